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
	"os"
	"text/tabwriter"
	"time"

	"github.com/limit-order-samples/limit-order-client-go/internal/common"
	"github.com/limit-order-samples/limit-order-client-go/internal/database"
	"github.com/limit-order-samples/limit-order-client-go/internal/orders"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	ordersStatus string
	ordersLocal  bool
	ordersEvents int64
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List your limit orders",
	Long: `List the connected wallet's orders from the backend and record them in the local journal.
With --local the journal is read instead, including orders the backend no longer returns.`,
	Example: `  limitorder orders --status active
  limitorder orders --local
  limitorder orders --events 42`,
	RunE: runOrders,
}

func init() {
	ordersCmd.Flags().StringVar(&ordersStatus, "status", "all", "Filter: all, active, open, closed, filled, cancelled, expired")
	ordersCmd.Flags().BoolVar(&ordersLocal, "local", false, "Read the local journal instead of the backend")
	ordersCmd.Flags().Int64Var(&ordersEvents, "events", 0, "Show the journaled push events of one order")
}

func runOrders(cmd *cobra.Command, args []string) error {
	status, err := parseStatusFilter(ordersStatus)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if ordersEvents > 0 {
		events, err := a.db.ListOrderEvents(ctx, ordersEvents)
		if err != nil {
			return err
		}
		if outputJson {
			return printJson(events)
		}
		printEvents(events)
		return nil
	}

	if ordersLocal {
		records, err := a.db.ListOrders(ctx, common.NormalizeAddress(a.keys.Address()), a.cfg.Chain.ChainId, status)
		if err != nil {
			return err
		}
		if outputJson {
			return printJson(records)
		}
		printRecords(records)
		return nil
	}

	list, err := a.listOrders(ctx, status)
	if err != nil {
		return err
	}
	if err := a.recorder.RecordOrders(ctx, list); err != nil {
		zap.L().Warn("Failed to journal listed orders", zap.Error(err))
	}
	list = orders.ApplyLocalStatus(list, a.cancel, a.tracker)

	if outputJson {
		return printJson(list)
	}
	printOrders(list)
	return nil
}

func printOrders(list []common.LimitOrder) {
	if len(list) == 0 {
		fmt.Println("No orders found.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSELL\tRECEIVE\tRATE\tFILLED\tSTATUS\tEXPIRES")
	for _, o := range list {
		making := common.FromBaseUnits(o.MakingAmount, o.MakerAssetDecimals)
		taking := common.FromBaseUnits(o.TakingAmount, o.TakerAssetDecimals)
		fmt.Fprintf(w, "%d\t%s %s\t%s %s\t%s\t%s%%\t%s\t%s\n",
			o.Id,
			making, o.MakerAssetSymbol,
			taking, o.TakerAssetSymbol,
			common.CalcRate(making, taking, o.TakerAssetDecimals),
			common.CalcPercentFilledOrder(o.FilledMakingAmount, o.MakingAmount),
			o.Status,
			formatUnix(o.ExpiredAt))
	}
	w.Flush()
}

func printRecords(records []*database.OrderRecord) {
	if len(records) == 0 {
		fmt.Println("No journaled orders.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPAIR\tMAKING\tFILLED\tSTATUS\tTX\tUPDATED")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s/%s\t%s\t%s%%\t%s\t%s\t%s\n",
			r.OrderId,
			r.MakerSymbol, r.TakerSymbol,
			r.MakingAmount,
			common.CalcPercentFilledOrder(r.FilledMakingAmount, r.MakingAmount),
			r.Status,
			common.ShortAddress(r.TxHash),
			r.LastUpdatedAt.Local().Format(time.DateTime))
	}
	w.Flush()
}

func printEvents(events []*database.OrderEvent) {
	if len(events) == 0 {
		fmt.Println("No events journaled for this order.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RECEIVED\tTOPIC\tSTATUS\tSUCCESS\tTX")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
			e.ReceivedAt.Local().Format(time.DateTime), e.Topic, e.Status, e.IsSuccessful, common.ShortAddress(e.TxHash))
	}
	w.Flush()
}

func formatUnix(ts int64) string {
	if ts <= 0 {
		return "-"
	}
	return time.Unix(ts, 0).Local().Format(time.DateTime)
}
