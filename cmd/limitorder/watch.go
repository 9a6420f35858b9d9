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
	"time"

	"github.com/limit-order-samples/limit-order-client-go/internal/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// notificationRetention is how long shown notifications stay in the ledger
const notificationRetention = 30 * 24 * time.Hour

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow fills, cancellations and expirations",
	Long: `Subscribe to the connected wallet's push channels and print each lifecycle event once.
Events are acknowledged to the backend and recorded in the local journal.`,
	Example: `  limitorder watch
  limitorder watch --json`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	pruneLedger(ctx, a)

	if err := a.startReconciler(ctx); err != nil {
		return err
	}

	zap.L().Info("Watching orders. Press Ctrl+C to stop.",
		zap.String("maker", a.keys.Address()),
		zap.Int64("chain_id", a.cfg.Chain.ChainId),
		zap.String("database", a.cfg.Database.Path))
	if !outputJson {
		fmt.Printf("Watching orders of %s. Press Ctrl+C to stop.\n", common.ShortAddress(a.keys.Address()))
	}

	// Wait for interrupt signal
	<-ctx.Done()

	zap.L().Info("Shutting down order watch...")
	return nil
}

func pruneLedger(ctx context.Context, a *app) {
	pruned, err := a.db.PruneNotifications(ctx, time.Now().Add(-notificationRetention))
	if err != nil {
		zap.L().Warn("Failed to prune notification ledger", zap.Error(err))
		return
	}
	if pruned > 0 {
		zap.L().Debug("Pruned notification ledger", zap.Int64("entries", pruned))
	}
}
