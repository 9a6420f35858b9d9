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

package common

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"testing"
)

func TestIsActiveStatus(t *testing.T) {
	tests := []struct {
		status   OrderStatus
		expected bool
	}{
		{OrderStatusActive, true},
		{OrderStatusOpen, true},
		{OrderStatusPartiallyFilled, true},
		{OrderStatusFilled, false},
		{OrderStatusCancelling, false},
		{OrderStatusClosed, false},
		{OrderStatusCancelled, false},
		{OrderStatusExpired, false},
		{OrderStatusCancelledFailed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := IsActiveStatus(tt.status); got != tt.expected {
				t.Errorf("IsActiveStatus(%s) = %v, want %v", tt.status, got, tt.expected)
			}
		})
	}
}

func TestLimitOrder_Validate(t *testing.T) {
	tests := []struct {
		name    string
		order   LimitOrder
		wantErr bool
	}{
		{
			name:  "unfilled",
			order: LimitOrder{Id: 1, TakingAmount: "100", FilledTakingAmount: "0", Status: OrderStatusActive},
		},
		{
			name:  "partially filled",
			order: LimitOrder{Id: 2, TakingAmount: "100", FilledTakingAmount: "40", Status: OrderStatusPartiallyFilled},
		},
		{
			name:  "fully filled",
			order: LimitOrder{Id: 3, TakingAmount: "100", FilledTakingAmount: "100", Status: OrderStatusFilled},
		},
		{
			name:    "overfilled",
			order:   LimitOrder{Id: 4, TakingAmount: "100", FilledTakingAmount: "101", Status: OrderStatusFilled},
			wantErr: true,
		},
		{
			name:    "fully filled but active",
			order:   LimitOrder{Id: 5, TakingAmount: "100", FilledTakingAmount: "100", Status: OrderStatusActive},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLimitOrder_RemainingMakingAmount(t *testing.T) {
	order := LimitOrder{MakingAmount: "1000", FilledMakingAmount: "250"}
	if got := order.RemainingMakingAmount(); got.Cmp(big.NewInt(750)) != 0 {
		t.Errorf("RemainingMakingAmount() = %s, want 750", got)
	}

	order.FilledMakingAmount = "2000"
	if got := order.RemainingMakingAmount(); got.Sign() != 0 {
		t.Errorf("RemainingMakingAmount() = %s, want 0 when overfilled", got)
	}
}

func TestRateInfo(t *testing.T) {
	info := NewRateInfo("2")
	if info.Rate != "2" || info.InvertRate != "0.5" {
		t.Fatalf("NewRateInfo(2) = %+v", info)
	}
	if info.Display() != "2" {
		t.Errorf("Display() = %q, want 2", info.Display())
	}

	flipped := info.Inverted()
	if flipped.Display() != "0.5" {
		t.Errorf("Inverted().Display() = %q, want 0.5", flipped.Display())
	}
	if flipped.RateFraction.Cmp(info.RateFraction) != 0 {
		t.Error("Inverted() must not change the underlying fraction")
	}
	if flipped.Inverted().Display() != "2" {
		t.Error("double inversion should restore the original orientation")
	}

	typed := NewInvertedRateInfo("4")
	if typed.Rate != "0.25" || !typed.Invert {
		t.Errorf("NewInvertedRateInfo(4) = %+v", typed)
	}
	if typed.RateFraction.Cmp(big.NewRat(1, 4)) != 0 {
		t.Errorf("RateFraction = %s, want 1/4", typed.RateFraction)
	}

	if !NewRateInfo("abc").IsEmpty() {
		t.Error("malformed rate should be empty")
	}

	derived := RateInfoFromAmounts("3", "1", 18)
	if derived.RateFraction.Cmp(big.NewRat(1, 3)) != 0 {
		t.Errorf("RateInfoFromAmounts fraction = %s, want exact 1/3", derived.RateFraction)
	}
}

func TestParseCancelOrderType(t *testing.T) {
	tests := []struct {
		input    string
		expected CancelOrderType
		wantErr  bool
	}{
		{"gasless", CancelTypeGasless, false},
		{"HARD", CancelTypeHard, false},
		{" soft ", CancelTypeGasless, false},
		{"maybe", CancelTypeHard, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCancelOrderType(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCancelOrderType(%q) error = %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ParseCancelOrderType(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

// ============================================================================
// Error Tests
// ============================================================================

type rpcError struct{ code int }

func (e rpcError) Error() string  { return fmt.Sprintf("rpc error %d", e.code) }
func (e rpcError) ErrorCode() int { return e.code }

func TestIsUserRejected(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrUserRejected, true},
		{"wrapped sentinel", fmt.Errorf("sign: %w", ErrUserRejected), true},
		{"code 4001", rpcError{code: 4001}, true},
		{"other code", rpcError{code: -32000}, false},
		{"ethers style", errors.New("ACTION_REJECTED: user rejected transaction"), true},
		{"unrelated", errors.New("insufficient funds"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserRejected(tt.err); got != tt.expected {
				t.Errorf("IsUserRejected(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestFriendlyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil", nil, ""},
		{"rejected", ErrUserRejected, "Transaction was rejected. Please try again."},
		{"circuit open", fmt.Errorf("list orders: %w", ErrServiceUnavailable), "The limit order service is temporarily unavailable. Please try again shortly."},
		{"rate limited", &ApiError{StatusCode: http.StatusTooManyRequests}, "Too many requests. Please wait a moment and try again."},
		{"server error", &ApiError{StatusCode: http.StatusBadGateway, Message: "upstream"}, "The limit order service encountered an error. Please try again."},
		{"client error message", &ApiError{StatusCode: http.StatusBadRequest, Message: "order expired"}, "order expired"},
		{"gas", errors.New("insufficient funds for gas * price + value"), "Insufficient funds for gas. Please top up your balance."},
		{"unknown", errors.New("boom"), "Something went wrong. Please try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FriendlyError(tt.err); got != tt.expected {
				t.Errorf("FriendlyError() = %q, want %q", got, tt.expected)
			}
		})
	}
}

// ============================================================================
// Utility Tests
// ============================================================================

func TestParseOrderIds(t *testing.T) {
	ids, err := ParseOrderIds("1, 2,3,")
	if err != nil {
		t.Fatalf("ParseOrderIds() error = %v", err)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[2] != 3 {
		t.Errorf("ParseOrderIds() = %v, want [1 2 3]", ids)
	}

	for _, bad := range []string{"", "a", "1,-2"} {
		if _, err := ParseOrderIds(bad); err == nil {
			t.Errorf("ParseOrderIds(%q) expected error", bad)
		}
	}
}

func TestNewSalt(t *testing.T) {
	a, b := NewSalt(), NewSalt()
	if a == b {
		t.Error("NewSalt() returned the same salt twice")
	}
	if _, ok := new(big.Int).SetString(a, 10); !ok {
		t.Errorf("NewSalt() = %q, want a decimal integer", a)
	}
}

func TestNormalizeStatus(t *testing.T) {
	if got := NormalizeStatus(" PARTIALLY_FILLED "); got != OrderStatusPartiallyFilled {
		t.Errorf("NormalizeStatus() = %q", got)
	}
}
