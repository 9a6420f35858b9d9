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
	"errors"
	"fmt"
	"time"

	"github.com/limit-order-samples/limit-order-client-go/internal/common"
	"github.com/limit-order-samples/limit-order-client-go/internal/form"
	"github.com/limit-order-samples/limit-order-client-go/internal/orders"
	"github.com/spf13/cobra"
)

var (
	editOrderId int64
	editAmount  string
	editRate    string
	editType    string
	editExpiry  time.Duration
	editInvert  bool
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Replace an active order with a new amount or rate",
	Long: `Cancel an active order and create its replacement once the cancellation is confirmed.
If the cancellation is not confirmed within EDIT_CANCEL_TIMEOUT no replacement is created.`,
	Example: `  # Change the rate of order 42
  limitorder edit --id 42 --rate 0.00052

  # Change the amount, cancelling on chain
  limitorder edit --id 42 --amount 500 --type hard`,
	RunE: runEdit,
}

func init() {
	editCmd.Flags().Int64Var(&editOrderId, "id", 0, "Id of the order to replace [required]")
	editCmd.Flags().StringVar(&editAmount, "amount", "", "New maker amount (defaults to the remaining amount)")
	editCmd.Flags().StringVar(&editRate, "rate", "", "New taker tokens per maker token (defaults to the current rate)")
	editCmd.Flags().StringVar(&editType, "type", "gasless", "Cancellation type: gasless or hard")
	editCmd.Flags().DurationVar(&editExpiry, "expiry", form.DefaultExpiry, "Lifetime of the replacement order")
	editCmd.Flags().BoolVar(&editInvert, "invert", false, "Interpret --rate as maker tokens per taker token")

	editCmd.MarkFlagRequired("id")
}

func runEdit(cmd *cobra.Command, args []string) error {
	flags, err := parseEditFlags(editOrderId, editAmount, editRate, editType, editExpiry, editInvert)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Confirmations arrive on the push channel
	if err := a.startReconciler(ctx); err != nil {
		return err
	}

	found, err := a.findOrders(ctx, []int64{flags.orderId})
	if err != nil {
		return err
	}
	original := found[0]

	editor := orders.NewEditor(a.cancel, &approvingCreator{form: a.form}, a.cfg.Cancel.EditCancelTimeout)
	result, err := editor.Edit(ctx, original, editIntent(original, flags), flags.cancelType)
	switch {
	case errors.Is(err, orders.ErrEditCancelRejected):
		fmt.Println("Cancellation declined; order left unchanged.")
		return nil
	case errors.Is(err, orders.ErrEditCancelTimeout):
		return fmt.Errorf("order %d was not confirmed cancelled in time; no replacement was created, retry the edit", original.Id)
	case err != nil:
		return fmt.Errorf("%s", common.FriendlyError(err))
	}

	if outputJson {
		return printJson(map[string]any{
			"originalId": original.Id,
			"orderId":    result.OrderId,
			"cancelType": result.Cancel.Type.String(),
			"txHashes":   result.Cancel.TxHashes,
		})
	}

	fmt.Printf("\n=== Order Edited ===\n")
	fmt.Printf("Cancelled: %d (%s)\n", original.Id, result.Cancel.Type)
	fmt.Printf("Created: %d\n", result.OrderId)
	return nil
}

// editIntent keeps the original amount or rate where the flags leave them out
func editIntent(original common.LimitOrder, flags *parsedEditFlags) form.Intent {
	intent := form.Intent{
		Maker:      original.MakerToken(),
		Taker:      original.TakerToken(),
		Amount:     flags.amount,
		Rate:       flags.rate,
		InvertRate: flags.invert,
		Expiry:     flags.expiry,
	}
	if intent.Amount == "" {
		intent.Amount = common.FromBaseUnits(original.RemainingMakingAmount().String(), original.MakerAssetDecimals)
	}
	if intent.Rate == "" {
		making := common.FromBaseUnits(original.MakingAmount, original.MakerAssetDecimals)
		taking := common.FromBaseUnits(original.TakingAmount, original.TakerAssetDecimals)
		intent.Rate = common.CalcRate(making, taking, original.TakerAssetDecimals)
	}
	return intent
}
