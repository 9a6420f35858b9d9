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
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/limit-order-samples/limit-order-client-go/internal/common"
	"github.com/limit-order-samples/limit-order-client-go/internal/orderbook"
	"github.com/shopspring/decimal"
)

const (
	usdc = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	weth = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
)

func TestParseCreateFlags_Valid(t *testing.T) {
	result, err := parseCreateFlags(usdc, weth, "1000.50", "0.0005", 24*time.Hour, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !common.SameAddress(result.makerToken, usdc) {
		t.Errorf("expected maker token %s, got %s", usdc, result.makerToken)
	}
	if !common.SameAddress(result.takerToken, weth) {
		t.Errorf("expected taker token %s, got %s", weth, result.takerToken)
	}
	if result.amount != "1000.5" {
		t.Errorf("expected amount 1000.5, got %s", result.amount)
	}
	if result.rate != "0.0005" {
		t.Errorf("expected rate 0.0005, got %s", result.rate)
	}
	if result.expiry != 24*time.Hour {
		t.Errorf("expected expiry 24h, got %s", result.expiry)
	}
}

func TestParseCreateFlags_Market(t *testing.T) {
	result, err := parseCreateFlags(usdc, weth, "10", "", time.Hour, true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.rate != "" {
		t.Errorf("expected empty rate for market order, got %s", result.rate)
	}
}

func TestParseCreateFlags_Errors(t *testing.T) {
	tests := []struct {
		name    string
		maker   string
		taker   string
		amount  string
		rate    string
		expiry  time.Duration
		market  bool
		invert  bool
		wantErr string
	}{
		{"MissingMaker", "", weth, "1", "1", time.Hour, false, false, "--maker-token is required"},
		{"BadTaker", usdc, "weth", "1", "1", time.Hour, false, false, "--taker-token must be a token address"},
		{"SameToken", usdc, strings.ToUpper(usdc[:2]) + usdc[2:], "1", "1", time.Hour, false, false, "must differ"},
		{"ZeroAmount", usdc, weth, "0", "1", time.Hour, false, false, "--amount must be greater than zero"},
		{"BadAmount", usdc, weth, "abc", "1", time.Hour, false, false, "invalid amount"},
		{"MissingRate", usdc, weth, "1", "", time.Hour, false, false, "--rate is required"},
		{"RateWithMarket", usdc, weth, "1", "2", time.Hour, true, false, "--rate should not be specified"},
		{"InvertWithMarket", usdc, weth, "1", "", time.Hour, true, true, "--invert only applies"},
		{"NegativeRate", usdc, weth, "1", "-2", time.Hour, false, false, "--rate must be greater than zero"},
		{"NegativeExpiry", usdc, weth, "1", "2", -time.Hour, false, false, "--expiry cannot be negative"},
		{"ExpiryTooLong", usdc, weth, "1", "2", 2 * maxExpiry, false, false, "--expiry cannot exceed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCreateFlags(tt.maker, tt.taker, tt.amount, tt.rate, tt.expiry, tt.market, tt.invert)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseEditFlags(t *testing.T) {
	tests := []struct {
		name     string
		id       int64
		amount   string
		rate     string
		typ      string
		invert   bool
		wantErr  string
		wantType common.CancelOrderType
	}{
		{"RateOnly", 42, "", "0.0006", "gasless", false, "", common.CancelTypeGasless},
		{"AmountHard", 42, "500", "", "hard", false, "", common.CancelTypeHard},
		{"InvertedRate", 42, "", "1800", "gasless", true, "", common.CancelTypeGasless},
		{"MissingId", 0, "1", "", "gasless", false, "--id is required", 0},
		{"NothingChanges", 42, "", "", "gasless", false, "--amount or --rate is required", 0},
		{"InvertWithoutRate", 42, "1", "", "gasless", true, "--invert only applies", 0},
		{"BadType", 42, "1", "", "soft-ish", false, "--type", 0},
		{"ZeroRate", 42, "", "0", "gasless", false, "--rate must be greater than zero", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseEditFlags(tt.id, tt.amount, tt.rate, tt.typ, time.Hour, tt.invert)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.orderId != tt.id {
				t.Errorf("expected id %d, got %d", tt.id, result.orderId)
			}
			if result.cancelType != tt.wantType {
				t.Errorf("expected cancel type %s, got %s", tt.wantType, result.cancelType)
			}
			if result.invert != tt.invert {
				t.Errorf("expected invert %v, got %v", tt.invert, result.invert)
			}
		})
	}
}

func TestParseCancelFlags(t *testing.T) {
	tests := []struct {
		name     string
		ids      string
		all      bool
		typ      string
		wantIds  []int64
		wantType common.CancelOrderType
		wantErr  string
	}{
		{"Ids", "41, 42", false, "gasless", []int64{41, 42}, common.CancelTypeGasless, ""},
		{"DuplicateIds", "7,7,8", false, "hard", []int64{7, 8}, common.CancelTypeHard, ""},
		{"All", "", true, "hard", nil, common.CancelTypeHard, ""},
		{"Neither", "", false, "hard", nil, 0, "--ids or --all is required"},
		{"Both", "1", true, "hard", nil, 0, "mutually exclusive"},
		{"BadId", "1,x", false, "hard", nil, 0, "invalid --ids"},
		{"OnlyCommas", ",,", false, "hard", nil, 0, "invalid --ids"},
		{"BadType", "1", false, "later", nil, 0, "--type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseCancelFlags(tt.ids, tt.all, tt.typ)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.all != tt.all {
				t.Errorf("expected all %v, got %v", tt.all, result.all)
			}
			if result.cancelType != tt.wantType {
				t.Errorf("expected cancel type %s, got %s", tt.wantType, result.cancelType)
			}
			if len(result.orderIds) != len(tt.wantIds) {
				t.Fatalf("expected ids %v, got %v", tt.wantIds, result.orderIds)
			}
			for i, id := range tt.wantIds {
				if result.orderIds[i] != id {
					t.Errorf("expected ids %v, got %v", tt.wantIds, result.orderIds)
				}
			}
		})
	}
}

func TestParseStatusFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"all", "", false},
		{"Active", "active", false},
		{" expired ", "expired", false},
		{"pending", "", true},
	}
	for _, tt := range tests {
		got, err := parseStatusFilter(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseStatusFilter(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseStatusFilter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseBookFlags(t *testing.T) {
	result, err := parseBookFlags(usdc, weth, true, 500, 10, 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.reverse || result.width != 500 || result.depth != 10 {
		t.Errorf("unexpected flags %+v", result)
	}

	errorCases := []struct {
		name     string
		width    int
		depth    int
		interval time.Duration
	}{
		{"ZeroWidth", 0, 10, time.Second},
		{"ZeroDepth", 1024, 0, time.Second},
		{"FastInterval", 1024, 10, 100 * time.Millisecond},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseBookFlags(usdc, weth, false, tt.width, tt.depth, tt.interval); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEditIntent_KeepsOriginalValues(t *testing.T) {
	original := common.LimitOrder{
		Id:                 42,
		MakerAsset:         usdc,
		MakerAssetSymbol:   "USDC",
		MakerAssetDecimals: 6,
		TakerAsset:         weth,
		TakerAssetSymbol:   "WETH",
		TakerAssetDecimals: 18,
		MakingAmount:       "2000000000",
		TakingAmount:       "1000000000000000000",
		FilledMakingAmount: "500000000",
	}

	intent := editIntent(original, &parsedEditFlags{orderId: 42, expiry: time.Hour})

	if intent.Amount != "1500" {
		t.Errorf("expected remaining amount 1500, got %s", intent.Amount)
	}
	if intent.Rate != "0.0005" {
		t.Errorf("expected original rate 0.0005, got %s", intent.Rate)
	}
	if intent.Maker.Symbol != "USDC" || intent.Taker.Decimals != 18 {
		t.Errorf("expected tokens from the original order, got %+v %+v", intent.Maker, intent.Taker)
	}

	intent = editIntent(original, &parsedEditFlags{orderId: 42, amount: "100", rate: "1900", invert: true})
	if intent.Amount != "100" || intent.Rate != "1900" || !intent.InvertRate {
		t.Errorf("expected flag values to win, got %+v", intent)
	}
}

func TestConsoleNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := newConsoleNotifier(&buf)

	n.Notify(common.Notification{
		Kind:     common.NotificationSuccess,
		Title:    "Order cancelled",
		Summary:  "Sell 10 USDC for 0.005 WETH",
		OrderIds: []int64{7, 8},
	})

	want := "[SUCCESS] Order cancelled: Sell 10 USDC for 0.005 WETH (#7, #8)\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestPrintBook(t *testing.T) {
	var buf bytes.Buffer
	printBook(&buf, orderbook.Snapshot{
		Pair:     orderbook.Pair{MakerAsset: usdc, TakerAsset: weth},
		Sequence: 3,
		Rows: []orderbook.Row{
			{DisplayRate: "0.0005", MakingAmount: decimal.NewFromInt(2000), TakingAmount: decimal.NewFromInt(1), OrderIds: []int64{1, 2}},
		},
	})

	out := buf.String()
	for _, want := range []string{"Sequence: 3", "0.0005", "2000", "RATE"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q:\n%s", want, out)
		}
	}

	buf.Reset()
	printBook(&buf, orderbook.Snapshot{})
	if !strings.Contains(buf.String(), "No resting orders.") {
		t.Errorf("expected empty book message, got:\n%s", buf.String())
	}
}

func TestSelectActive(t *testing.T) {
	list := []common.LimitOrder{
		{Id: 1, Status: common.OrderStatusActive},
		{Id: 2, Status: common.OrderStatusOpen},
		{Id: 3, Status: common.OrderStatusPartiallyFilled},
		{Id: 4, Status: common.OrderStatusFilled},
	}

	tests := []struct {
		name        string
		ids         []int64
		expected    []int64
		expectError bool
	}{
		{name: "ActiveStatus", ids: []int64{1}, expected: []int64{1}},
		{name: "OpenAndPartiallyFilled", ids: []int64{2, 3}, expected: []int64{2, 3}},
		{name: "KeepsRequestedOrder", ids: []int64{3, 1}, expected: []int64{3, 1}},
		{name: "FilledOrder", ids: []int64{4}, expectError: true},
		{name: "UnknownOrder", ids: []int64{9}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := selectActive(list, tt.ids, weth)
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error, got %v", found)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(found) != len(tt.expected) {
				t.Fatalf("found %d orders, want %d", len(found), len(tt.expected))
			}
			for i, id := range tt.expected {
				if found[i].Id != id {
					t.Errorf("order %d: got id %d, want %d", i, found[i].Id, id)
				}
			}
		})
	}
}
