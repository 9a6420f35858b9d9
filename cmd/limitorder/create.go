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
	"github.com/limit-order-samples/limit-order-client-go/internal/form"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	createMakerToken string
	createTakerToken string
	createAmount     string
	createRate       string
	createExpiry     time.Duration
	createMarket     bool
	createInvert     bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a limit order",
	Long: `Sign and submit a limit order selling --amount of the maker token at --rate taker tokens per maker token.
The maker token is approved for the limit-order contract first when the allowance is too low.`,
	Example: `  # Sell 1000 USDC for WETH at 0.0005 WETH per USDC
  limitorder create --maker-token 0xA0b8...eB48 --taker-token 0xC02a...6Cc2 --amount 1000 --rate 0.0005

  # Same order priced in USDC per WETH, valid for one day
  limitorder create --maker-token 0xA0b8...eB48 --taker-token 0xC02a...6Cc2 --amount 1000 --rate 2000 --invert --expiry 24h

  # Use the current market rate
  limitorder create --maker-token 0xA0b8...eB48 --taker-token 0xC02a...6Cc2 --amount 1000 --market`,
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createMakerToken, "maker-token", "", "Address of the token to sell [required]")
	createCmd.Flags().StringVar(&createTakerToken, "taker-token", "", "Address of the token to buy [required]")
	createCmd.Flags().StringVar(&createAmount, "amount", "", "Amount of the maker token to sell [required]")
	createCmd.Flags().StringVar(&createRate, "rate", "", "Taker tokens per maker token (maker per taker with --invert)")
	createCmd.Flags().DurationVar(&createExpiry, "expiry", form.DefaultExpiry, "Order lifetime")
	createCmd.Flags().BoolVar(&createMarket, "market", false, "Use the current market rate")
	createCmd.Flags().BoolVar(&createInvert, "invert", false, "Interpret --rate as maker tokens per taker token")

	createCmd.MarkFlagRequired("maker-token")
	createCmd.MarkFlagRequired("taker-token")
	createCmd.MarkFlagRequired("amount")
}

func runCreate(cmd *cobra.Command, args []string) error {
	flags, err := parseCreateFlags(createMakerToken, createTakerToken, createAmount, createRate, createExpiry, createMarket, createInvert)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	maker, err := a.token(ctx, flags.makerToken)
	if err != nil {
		return err
	}
	taker, err := a.token(ctx, flags.takerToken)
	if err != nil {
		return err
	}

	creator := &approvingCreator{form: a.form}
	if err := creator.Apply(ctx, form.Intent{
		Maker:      maker,
		Taker:      taker,
		Amount:     flags.amount,
		Rate:       flags.rate,
		InvertRate: flags.invert,
		Expiry:     flags.expiry,
	}); err != nil {
		return fmt.Errorf("failed to load order form: %w", err)
	}

	s := a.form.State()
	if !outputJson {
		printPreview(s)
	}

	id, err := creator.Submit(ctx)
	if err != nil {
		return fmt.Errorf("failed to create order: %s", common.FriendlyError(err))
	}

	if outputJson {
		return printJson(map[string]any{
			"orderId":      id,
			"makerAsset":   maker.Address,
			"takerAsset":   taker.Address,
			"makingAmount": s.InputAmount,
			"takingAmount": s.OutputAmount,
			"rate":         s.Rate.Rate,
		})
	}

	fmt.Printf("\n=== Order Created ===\n")
	fmt.Printf("Order Id: %d\n", id)
	fmt.Printf("Sell: %s %s | Receive: %s %s\n\n", s.InputAmount, maker.Symbol, s.OutputAmount, taker.Symbol)
	fmt.Println("To follow fills and cancellations, run:")
	fmt.Println("  limitorder watch")
	return nil
}

func printPreview(s form.State) {
	fmt.Printf("\n=== Order Preview ===\n")
	fmt.Printf("Sell: %s %s\n", s.InputAmount, s.MakerToken.Symbol)
	fmt.Printf("Receive: %s %s\n", s.OutputAmount, s.TakerToken.Symbol)
	if s.Rate.Invert {
		fmt.Printf("Rate: %s %s per %s\n", s.Rate.InvertRate, s.MakerToken.Symbol, s.TakerToken.Symbol)
	} else {
		fmt.Printf("Rate: %s %s per %s\n", s.Rate.Rate, s.TakerToken.Symbol, s.MakerToken.Symbol)
	}
	if s.MarketRate != "" {
		fmt.Printf("Market Rate: %s\n", s.MarketRate)
	}
	fmt.Printf("Expires In: %s\n", s.Expiry)
	fmt.Printf("Approval: %s\n\n", s.Approval)
}

// approvingCreator submits through the form, approving the maker token
// first when the allowance does not cover the order
type approvingCreator struct {
	form *form.Controller
}

func (c *approvingCreator) Apply(ctx context.Context, intent form.Intent) error {
	return c.form.Apply(ctx, intent)
}

func (c *approvingCreator) Submit(ctx context.Context) (int64, error) {
	if form.NeedsApproval(c.form.State()) {
		hash, err := c.form.Approve(ctx)
		if err != nil {
			return 0, err
		}
		zap.L().Info("Waiting for approval", zap.String("tx_hash", hash))
		if err := c.form.AwaitApproval(ctx); err != nil {
			return 0, fmt.Errorf("approval did not complete: %w", err)
		}
	}
	return c.form.Submit(ctx)
}
