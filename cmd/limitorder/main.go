/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	assumeYes  bool
	outputJson bool
)

var rootCmd = &cobra.Command{
	Use:   "limitorder",
	Short: "Create, edit and cancel limit orders",
	Long: `Client for the limit-order backend. Orders are signed with the configured wallet,
cancelled on chain or gaslessly, and tracked through push notifications.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Approve every signature and transaction without prompting")
	rootCmd.PersistentFlags().BoolVar(&outputJson, "json", false, "Print results as JSON")

	rootCmd.AddCommand(createCmd, editCmd, cancelCmd, ordersCmd, bookCmd, watchCmd)
}

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Interrupts cancel the running command
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
