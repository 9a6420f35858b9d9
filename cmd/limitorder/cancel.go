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
	"errors"
	"fmt"

	"github.com/limit-order-samples/limit-order-client-go/internal/cancel"
	"github.com/limit-order-samples/limit-order-client-go/internal/common"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	cancelIds  string
	cancelAll  bool
	cancelType string
	cancelWait bool
)

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel one, several or all active orders",
	Long: `Cancel orders gaslessly through the operator or on chain with a hard cancel.
Hard cancel-all increases the maker nonce on every limit-order contract that holds an active order.`,
	Example: `  # Gasless cancel of two orders, waiting for confirmation
  limitorder cancel --ids 41,42 --wait

  # Hard cancel of every active order
  limitorder cancel --all --type hard`,
	RunE: runCancel,
}

func init() {
	cancelCmd.Flags().StringVar(&cancelIds, "ids", "", "Comma-separated order ids")
	cancelCmd.Flags().BoolVar(&cancelAll, "all", false, "Cancel every active order")
	cancelCmd.Flags().StringVar(&cancelType, "type", "gasless", "Cancellation type: gasless or hard")
	cancelCmd.Flags().BoolVar(&cancelWait, "wait", false, "Wait until the backend confirms the cancellation")
}

func runCancel(cmd *cobra.Command, args []string) error {
	flags, err := parseCancelFlags(cancelIds, cancelAll, cancelType)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if cancelWait {
		if err := a.startReconciler(ctx); err != nil {
			return err
		}
		if !outputJson {
			a.cancel.OnCountdown(printCountdown)
		}
	}

	var result *cancel.Result
	if flags.all {
		active, err := a.listOrders(ctx, "")
		if err != nil {
			return err
		}
		result, err = a.cancel.CancelAll(ctx, activeOnly(active), flags.cancelType)
		if err != nil {
			return fmt.Errorf("%s", common.FriendlyError(err))
		}
	} else {
		found, err := a.findOrders(ctx, flags.orderIds)
		if err != nil {
			return err
		}
		result, err = a.cancel.Cancel(ctx, found, flags.cancelType)
		if err != nil {
			return fmt.Errorf("%s", common.FriendlyError(err))
		}
	}

	if result.Rejected {
		fmt.Println("Cancellation declined.")
		return nil
	}

	if outputJson {
		if err := printJson(result); err != nil {
			return err
		}
	} else {
		fmt.Printf("\n=== Cancellation Submitted ===\n")
		fmt.Printf("Type: %s\n", result.Type)
		fmt.Printf("Orders: %s\n", formatIds(result.OrderIds))
		for _, hash := range result.TxHashes {
			fmt.Printf("Transaction: %s\n", hash)
		}
		if !result.ExpiresAt.IsZero() {
			fmt.Printf("Operator window ends: %s\n", result.ExpiresAt.Format("15:04:05"))
		}
		if len(result.Declined) > 0 {
			fmt.Printf("Declined, still active: %s\n", formatIds(result.Declined))
		}
	}

	if !cancelWait {
		return nil
	}
	return awaitCancellation(ctx, a.cancel, result.OrderIds)
}

// awaitCancellation waits for every order's outcome and reports the first failure
func awaitCancellation(ctx context.Context, c *cancel.Controller, ids []int64) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			err := c.Await(gctx, id)
			if errors.Is(err, cancel.ErrNotCancelling) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("order %d: %s", id, common.FriendlyError(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if !outputJson {
		fmt.Println("Cancellation confirmed.")
	}
	return nil
}

func printCountdown(ids []int64, c cancel.Countdown) {
	switch c.Status {
	case cancel.CountdownRunning:
		fmt.Printf("%s %s %ds remaining\n", formatIds(ids), c.Status, int(c.Remaining.Seconds()))
	default:
		fmt.Printf("%s %s\n", formatIds(ids), c.Status)
	}
}

func activeOnly(list []common.LimitOrder) []common.LimitOrder {
	out := make([]common.LimitOrder, 0, len(list))
	for _, o := range list {
		if o.IsActive() {
			out = append(out, o)
		}
	}
	return out
}
