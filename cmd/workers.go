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
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// workerCommands runs the schedulers without the HTTP surface: the payment
// poller, the retry worker and the snapshot writer. Useful for draining a
// restored retry queue after the API has been taken down.
func workerCommands(t *tawiInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start tawi schedulers without the api server",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if err := t.tawi.StartSchedulers(ctx); err != nil {
				log.Fatal(err)
			}
			log.Println("schedulers running...")

			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
			<-sigs

			cancel()
			if err := t.tawi.SaveSnapshot(); err != nil {
				log.Printf("final snapshot failed: %v", err)
			}
		},
	}

	return cmd
}
