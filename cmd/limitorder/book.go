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
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/limit-order-samples/limit-order-client-go/internal/common"
	"github.com/limit-order-samples/limit-order-client-go/internal/orderbook"
	"github.com/spf13/cobra"
)

var (
	bookMakerToken string
	bookTakerToken string
	bookReverse    bool
	bookWidth      int
	bookDepth      int
	bookWatch      bool
	bookInterval   time.Duration
)

var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Show the order book of a token pair",
	Long: `Show resting orders of a pair grouped by displayed rate, highest first.
Orders that are at least 99% filled are left out.`,
	Example: `  limitorder book --maker-token 0xA0b8...eB48 --taker-token 0xC02a...6Cc2
  limitorder book --maker-token 0xA0b8...eB48 --taker-token 0xC02a...6Cc2 --reverse --watch --interval 10s`,
	RunE: runBook,
}

func init() {
	bookCmd.Flags().StringVar(&bookMakerToken, "maker-token", "", "Maker token address [required]")
	bookCmd.Flags().StringVar(&bookTakerToken, "taker-token", "", "Taker token address [required]")
	bookCmd.Flags().BoolVar(&bookReverse, "reverse", false, "Show maker tokens per taker token")
	bookCmd.Flags().IntVar(&bookWidth, "width", 1024, "Viewport width; below 768 fewer digits are shown")
	bookCmd.Flags().IntVar(&bookDepth, "depth", 20, "Number of levels to show")
	bookCmd.Flags().BoolVar(&bookWatch, "watch", false, "Refresh until interrupted")
	bookCmd.Flags().DurationVar(&bookInterval, "interval", 5*time.Second, "Refresh interval with --watch")

	bookCmd.MarkFlagRequired("maker-token")
	bookCmd.MarkFlagRequired("taker-token")
}

func runBook(cmd *cobra.Command, args []string) error {
	flags, err := parseBookFlags(bookMakerToken, bookTakerToken, bookReverse, bookWidth, bookDepth, bookInterval)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	store := orderbook.NewStore()
	pair := orderbook.Pair{MakerAsset: flags.makerToken, TakerAsset: flags.takerToken, Reverse: flags.reverse}

	render := func(snap orderbook.Snapshot) {
		if len(snap.Rows) > flags.depth {
			snap.Rows = snap.Rows[:flags.depth]
		}
		if outputJson {
			printJson(snap)
			return
		}
		printBook(os.Stdout, snap)
	}

	if bookWatch {
		store.Watch(ctx, a.client, pair, flags.width, flags.interval, render)
		return nil
	}

	snap, err := store.Refresh(ctx, a.client, pair, flags.width)
	if err != nil {
		return err
	}
	render(snap)
	return nil
}

func printBook(out io.Writer, snap orderbook.Snapshot) {
	fmt.Fprintf(out, "\n=== Order Book %s/%s ===\n",
		common.ShortAddress(snap.Pair.MakerAsset), common.ShortAddress(snap.Pair.TakerAsset))
	fmt.Fprintf(out, "Updated: %s | Sequence: %d\n\n", snap.UpdateTime.Format(time.TimeOnly), snap.Sequence)
	if len(snap.Rows) == 0 {
		fmt.Fprintln(out, "No resting orders.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "RATE\tMAKING\tTAKING\tFILLED\tORDERS\t")
	for _, row := range snap.Rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s%%\t%d\t\n",
			row.DisplayRate,
			row.MakingAmount.String(),
			row.TakingAmount.String(),
			row.FilledPercent(),
			len(row.OrderIds))
	}
	w.Flush()
}
