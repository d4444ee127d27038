/*
Copyright 2025 Tawi Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tawihq/tawi"
	"github.com/tawihq/tawi/config"
	"github.com/tawihq/tawi/internal/notification"
)

// Tawi represents the CLI application, encapsulating the root Cobra command.
type Tawi struct {
	cmd *cobra.Command
}

// tawiInstance holds the runtime instance and its configuration, shared by
// every subcommand after preRun.
type tawiInstance struct {
	tawi *tawi.Tawi
	cnf  *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads configuration and initializes the coordinator, restoring the
// latest snapshot when one exists, before any command runs.
func preRun(app *tawiInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("tawi.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newTawi, err := tawi.NewTawi()
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.tawi = newTawi
		app.cnf = cnf

		return nil
	}
}

// NewCLI creates the command-line interface for the Tawi coordinator.
func NewCLI() *Tawi {
	var configFile string
	t := &tawiInstance{}

	var rootCmd = &cobra.Command{
		Use:   "tawi",
		Short: "Airtime top-up coordinator",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./tawi.json", "Configuration file for tawi")

	rootCmd.PersistentPreRunE = preRun(t)

	rootCmd.AddCommand(serverCommands(t))
	rootCmd.AddCommand(workerCommands(t))
	rootCmd.AddCommand(backupCommands(t))

	return &Tawi{cmd: rootCmd}
}

func (w Tawi) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
