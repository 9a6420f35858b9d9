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

package orderbook

import (
	"sort"

	"github.com/limit-order-samples/limit-order-client-go/internal/common"
	"github.com/shopspring/decimal"
)

// Orders at or above this fill ratio are treated as consumed
var FilledThreshold = decimal.RequireFromString("0.99")

// Options controls how raw orders are turned into rows
type Options struct {
	// Reverse shows the mirrored side: making per taking
	Reverse bool
	// ViewportWidth picks how many significant digits are shown
	ViewportWidth int
}

// Row is one aggregated price level
type Row struct {
	Rate         decimal.Decimal
	DisplayRate  string
	MakingAmount decimal.Decimal
	TakingAmount decimal.Decimal
	FilledMaking decimal.Decimal
	OrderIds     []int64
}

// FilledPercent returns the level's filled share of the maker amount
func (r Row) FilledPercent() string {
	return common.CalcPercentFilledOrder(r.FilledMaking.String(), r.MakingAmount.String())
}

// Format drops consumed orders, groups the rest by displayed rate and
// sorts the levels by rate, highest first
func Format(orders []common.LimitOrder, opts Options) []Row {
	levels := make(map[string]*Row)
	var keys []string

	for _, order := range orders {
		if isConsumed(order) {
			continue
		}
		rate, ok := EffectiveRate(order, opts.Reverse)
		if !ok {
			continue
		}
		making := common.BaseUnitsToDecimal(order.MakingAmount, order.MakerAssetDecimals)
		taking := common.BaseUnitsToDecimal(order.TakingAmount, order.TakerAssetDecimals)
		display := DisplayRate(rate, opts.ViewportWidth)

		row, exists := levels[display]
		if !exists {
			row = &Row{
				Rate:        decimal.RequireFromString(display),
				DisplayRate: display,
			}
			levels[display] = row
			keys = append(keys, display)
		}
		row.MakingAmount = row.MakingAmount.Add(making)
		row.TakingAmount = row.TakingAmount.Add(taking)
		row.FilledMaking = row.FilledMaking.Add(common.BaseUnitsToDecimal(order.FilledMakingAmount, order.MakerAssetDecimals))
		row.OrderIds = append(row.OrderIds, order.Id)
	}

	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, *levels[k])
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Rate.GreaterThan(rows[j].Rate)
	})
	return rows
}

// isConsumed reports whether either side of the order is filled past the threshold
func isConsumed(order common.LimitOrder) bool {
	taking := common.FillRatio(order.FilledTakingAmount, order.TakingAmount)
	making := common.FillRatio(order.FilledMakingAmount, order.MakingAmount)
	return decimal.Max(taking, making).GreaterThanOrEqual(FilledThreshold)
}

// EffectiveRate is taking per making in human units, or the inverse for
// the reverse side
func EffectiveRate(order common.LimitOrder, reverse bool) (decimal.Decimal, bool) {
	making := common.BaseUnitsToDecimal(order.MakingAmount, order.MakerAssetDecimals)
	taking := common.BaseUnitsToDecimal(order.TakingAmount, order.TakerAssetDecimals)
	if making.IsZero() || taking.IsZero() {
		return decimal.Zero, false
	}
	if reverse {
		return making.DivRound(taking, common.MaxDecimals), true
	}
	return taking.DivRound(making, common.MaxDecimals), true
}

// DisplayRate rounds rate the way it is shown for the given viewport
func DisplayRate(rate decimal.Decimal, viewportWidth int) string {
	digits := common.SignificantDigits(viewportWidth, rate.LessThan(decimal.NewFromInt(1)))
	return common.FormatSignificant(rate, digits)
}
