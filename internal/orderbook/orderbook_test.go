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
	"context"
	"errors"
	"testing"

	"github.com/limit-order-samples/limit-order-client-go/internal/common"
	"github.com/shopspring/decimal"
)

// order builds a 6-decimal maker / 6-decimal taker order from human amounts
func order(id int64, making, taking, filled string) common.LimitOrder {
	return common.LimitOrder{
		Id:                 id,
		MakerAssetDecimals: 6,
		TakerAssetDecimals: 6,
		MakingAmount:       common.ToBaseUnits(making, 6),
		TakingAmount:       common.ToBaseUnits(taking, 6),
		FilledMakingAmount: common.ToBaseUnits(filled, 6),
	}
}

func TestFormat_MergesSameDisplayedRate(t *testing.T) {
	orders := []common.LimitOrder{
		order(1, "10", "12.345", "0"),
		order(2, "15", "18.5175", "0"),
	}

	rows := Format(orders, Options{ViewportWidth: 1024})

	if len(rows) != 1 {
		t.Fatalf("Expected 1 level, got %d", len(rows))
	}
	if rows[0].DisplayRate != "1.2345" {
		t.Errorf("Expected rate 1.2345, got %s", rows[0].DisplayRate)
	}
	if !rows[0].MakingAmount.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Expected merged making amount 25, got %s", rows[0].MakingAmount)
	}
	if len(rows[0].OrderIds) != 2 {
		t.Errorf("Expected both orders in the level, got %v", rows[0].OrderIds)
	}
}

func TestFormat_MergesAfterRounding(t *testing.T) {
	// 1.23456781 and 1.23456784 differ only beyond 8 significant digits
	orders := []common.LimitOrder{
		order(1, "100", "123.456781", "0"),
		order(2, "100", "123.456784", "0"),
	}

	if rows := Format(orders, Options{ViewportWidth: 1024}); len(rows) != 1 {
		t.Errorf("Expected rounding to merge levels on wide viewport, got %d", len(rows))
	}
	if rows := Format(orders, Options{ViewportWidth: 400}); len(rows) != 1 || rows[0].DisplayRate != "1.23457" {
		t.Errorf("Expected 6 significant digits on narrow viewport, got %+v", rows)
	}
}

func TestFormat_DropsFilledOrders(t *testing.T) {
	tests := []struct {
		name     string
		filled   string
		expected int
	}{
		{"Unfilled", "0", 1},
		{"JustBelowThreshold", "98.9", 1},
		{"AtThreshold", "99", 0},
		{"NinetyNinePointFive", "99.5", 0},
		{"Full", "100", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := Format([]common.LimitOrder{order(1, "100", "200", tt.filled)}, Options{})
			if len(rows) != tt.expected {
				t.Errorf("Expected %d rows, got %d", tt.expected, len(rows))
			}
		})
	}
}

func TestFormat_DropsByTakingFill(t *testing.T) {
	o := order(1, "100", "200", "0")
	o.FilledTakingAmount = common.ToBaseUnits("199", 6)

	if rows := Format([]common.LimitOrder{o}, Options{}); len(rows) != 0 {
		t.Errorf("Expected order 99.5%% filled on the taking side to be dropped, got %+v", rows)
	}
}

func TestFormat_SortsDescending(t *testing.T) {
	orders := []common.LimitOrder{
		order(1, "1", "2", "0"),
		order(2, "1", "5", "0"),
		order(3, "1", "3", "0"),
	}

	rows := Format(orders, Options{ViewportWidth: 1024})

	expected := []string{"5", "3", "2"}
	if len(rows) != len(expected) {
		t.Fatalf("Expected %d rows, got %d", len(expected), len(rows))
	}
	for i, rate := range expected {
		if rows[i].DisplayRate != rate {
			t.Errorf("Row %d: expected rate %s, got %s", i, rate, rows[i].DisplayRate)
		}
	}
}

func TestFormat_Reverse(t *testing.T) {
	rows := Format([]common.LimitOrder{order(1, "4", "2", "0")}, Options{Reverse: true, ViewportWidth: 1024})

	if len(rows) != 1 || rows[0].DisplayRate != "2" {
		t.Errorf("Expected reverse rate 2, got %+v", rows)
	}
}

func TestFormat_ScalesByDecimals(t *testing.T) {
	o := common.LimitOrder{
		Id:                 1,
		MakerAssetDecimals: 6,
		TakerAssetDecimals: 18,
		MakingAmount:       "2000000000",          // 2000 USDC
		TakingAmount:       "1000000000000000000", // 1 WETH
		FilledMakingAmount: "0",
	}

	rows := Format([]common.LimitOrder{o}, Options{ViewportWidth: 1024})

	if len(rows) != 1 || rows[0].DisplayRate != "0.0005" {
		t.Errorf("Expected rate 0.0005, got %+v", rows)
	}
}

func TestFormat_SkipsMalformed(t *testing.T) {
	orders := []common.LimitOrder{
		{Id: 1, MakingAmount: "0", TakingAmount: "5"},
		{Id: 2, MakingAmount: "abc", TakingAmount: "5"},
	}

	if rows := Format(orders, Options{}); len(rows) != 0 {
		t.Errorf("Expected malformed orders to be skipped, got %+v", rows)
	}
}

func TestRow_FilledPercent(t *testing.T) {
	rows := Format([]common.LimitOrder{order(1, "10", "20", "2.5"), order(2, "10", "20", "2.5")}, Options{})

	if got := rows[0].FilledPercent(); got != "25" {
		t.Errorf("Expected 25, got %s", got)
	}
}

func TestDisplayRate_BelowOneShowsMoreDigits(t *testing.T) {
	rate := decimal.RequireFromString("0.123456789123")

	if got := DisplayRate(rate, 1024); got != "0.1234567891" {
		t.Errorf("Expected 10 significant digits, got %s", got)
	}
	if got := DisplayRate(rate, 400); got != "0.12345679" {
		t.Errorf("Expected 8 significant digits, got %s", got)
	}
}

type fakeSource struct {
	orders []common.LimitOrder
	err    error
}

func (f fakeSource) ListOrderBook(_ context.Context, _, _ string) ([]common.LimitOrder, error) {
	return f.orders, f.err
}

func TestStore_Refresh(t *testing.T) {
	store := NewStore()
	pair := Pair{MakerAsset: "0xMaker", TakerAsset: "0xTaker"}

	snap, err := store.Refresh(context.Background(), fakeSource{orders: []common.LimitOrder{
		order(1, "1", "2", "0"),
		order(2, "1", "3", "0"),
	}}, pair, 1024)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if snap.Sequence != 1 || len(snap.Rows) != 2 {
		t.Errorf("Unexpected snapshot %+v", snap)
	}

	book, ok := store.Get(Pair{MakerAsset: "0xmaker", TakerAsset: "0xTAKER"})
	if !ok {
		t.Fatal("Expected pair lookup to ignore address case")
	}
	best, ok := book.Best()
	if !ok || best.DisplayRate != "3" {
		t.Errorf("Expected best rate 3, got %+v", best)
	}

	// snapshots are copies
	snap.Rows[0].DisplayRate = "changed"
	if book.Top(1)[0].DisplayRate != "3" {
		t.Error("Expected snapshot mutation not to leak into the book")
	}
}

func TestStore_RefreshError(t *testing.T) {
	store := NewStore()

	_, err := store.Refresh(context.Background(), fakeSource{err: errors.New("down")}, Pair{}, 0)
	if err == nil {
		t.Fatal("Expected error")
	}
	if _, ok := store.Get(Pair{}); ok {
		t.Error("Expected no book after failed refresh")
	}
}

func TestBook_EmptyBest(t *testing.T) {
	book := NewBook(Pair{})
	if _, ok := book.Best(); ok {
		t.Error("Expected no best level on a new book")
	}
	book.Update(nil)
	if _, ok := book.Best(); ok {
		t.Error("Expected no best level after empty update")
	}
	if rows := book.Top(5); len(rows) != 0 {
		t.Errorf("Expected no rows, got %d", len(rows))
	}
}
