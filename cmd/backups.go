package main

import (
	"github.com/sirupsen/logrus"

	"github.com/spf13/cobra"

	"github.com/tawihq/tawi/internal/backups"
)

func backupCommands(t *tawiInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "snapshot tawi state",
	}

	cmd.AddCommand(backupToCommands(t))
	cmd.AddCommand(backupToS3Commands())

	return cmd
}

func backupToCommands(t *tawiInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use: "snapshot",
		Run: func(cmd *cobra.Command, args []string) {
			err := t.tawi.SaveSnapshot()
			if err != nil {
				logrus.Error(err)
				return
			}
		},
	}

	return cmd
}

func backupToS3Commands() *cobra.Command {
	cmd := &cobra.Command{
		Use: "s3",
		Run: func(cmd *cobra.Command, args []string) {
			err := backups.ZipUploadToS3()
			if err != nil {
				logrus.Error(err)
				return
			}
		},
	}

	return cmd
}
