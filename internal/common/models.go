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
	"fmt"
	"math/big"
	"strings"
	"time"
)

// ============================================================================
// Order Models
// ============================================================================

// OrderStatus is the lifecycle status of a limit order
type OrderStatus string

// IsActiveStatus reports whether an order can still be filled
func IsActiveStatus(status OrderStatus) bool {
	switch status {
	case OrderStatusActive, OrderStatusOpen, OrderStatusPartiallyFilled:
		return true
	}
	return false
}

// Token describes one side of a pair
type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	LogoUrl  string `json:"logoUrl,omitempty"`
	Decimals int32  `json:"decimals"`
}

// LimitOrder is one resting order known to the backend.
// All amounts are integer base-unit strings.
type LimitOrder struct {
	Id              int64  `json:"id"`
	Nonce           uint64 `json:"nonce"`
	ChainId         string `json:"chainId"`
	ContractAddress string `json:"contractAddress"`
	Maker           string `json:"maker"`
	Receiver        string `json:"receiver,omitempty"`

	MakerAsset         string `json:"makerAsset"`
	MakerAssetSymbol   string `json:"makerAssetSymbol"`
	MakerAssetLogoUrl  string `json:"makerAssetLogoURL,omitempty"`
	MakerAssetDecimals int32  `json:"makerAssetDecimals"`
	TakerAsset         string `json:"takerAsset"`
	TakerAssetSymbol   string `json:"takerAssetSymbol"`
	TakerAssetLogoUrl  string `json:"takerAssetLogoURL,omitempty"`
	TakerAssetDecimals int32  `json:"takerAssetDecimals"`

	MakingAmount       string `json:"makingAmount"`
	TakingAmount       string `json:"takingAmount"`
	FilledMakingAmount string `json:"filledMakingAmount"`
	FilledTakingAmount string `json:"filledTakingAmount"`

	CreatedAt                  int64 `json:"createdAt"`
	ExpiredAt                  int64 `json:"expiredAt"`
	OperatorSignatureExpiredAt int64 `json:"operatorSignatureExpiredAt,omitempty"`

	Status          OrderStatus `json:"status"`
	TransactionHash string      `json:"transactionHash,omitempty"`
}

// MakerToken returns the maker side as a Token
func (o LimitOrder) MakerToken() Token {
	return Token{Address: o.MakerAsset, Symbol: o.MakerAssetSymbol, LogoUrl: o.MakerAssetLogoUrl, Decimals: o.MakerAssetDecimals}
}

// TakerToken returns the taker side as a Token
func (o LimitOrder) TakerToken() Token {
	return Token{Address: o.TakerAsset, Symbol: o.TakerAssetSymbol, LogoUrl: o.TakerAssetLogoUrl, Decimals: o.TakerAssetDecimals}
}

// IsActive reports whether the order is still fillable
func (o LimitOrder) IsActive() bool {
	return IsActiveStatus(o.Status)
}

// RemainingMakingAmount returns makingAmount - filledMakingAmount in base units, floored at zero
func (o LimitOrder) RemainingMakingAmount() *big.Int {
	making := ParseBaseUnits(o.MakingAmount)
	filled := ParseBaseUnits(o.FilledMakingAmount)
	remaining := new(big.Int).Sub(making, filled)
	if remaining.Sign() < 0 {
		return big.NewInt(0)
	}
	return remaining
}

// Validate checks the fill invariants of an order snapshot
func (o LimitOrder) Validate() error {
	taking := ParseBaseUnits(o.TakingAmount)
	filled := ParseBaseUnits(o.FilledTakingAmount)

	if filled.Cmp(taking) > 0 {
		return fmt.Errorf("order %d: filled taking amount %s exceeds taking amount %s", o.Id, o.FilledTakingAmount, o.TakingAmount)
	}
	if taking.Sign() > 0 && filled.Cmp(taking) == 0 && o.Status != OrderStatusFilled {
		return fmt.Errorf("order %d: fully filled but status is %s", o.Id, o.Status)
	}
	return nil
}

// SameAddress reports whether two addresses are equal ignoring case
func SameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}

// ============================================================================
// Rate Models
// ============================================================================

// RateInfo is the user-facing exchange rate state.
// Rate is taker-per-maker; InvertRate is maker-per-taker.
type RateInfo struct {
	Rate         string
	InvertRate   string
	Invert       bool
	RateFraction *big.Rat
}

// Display returns the rate in the orientation currently shown
func (r RateInfo) Display() string {
	if r.Invert {
		return r.InvertRate
	}
	return r.Rate
}

// IsEmpty reports whether no usable rate is set
func (r RateInfo) IsEmpty() bool {
	return r.Rate == "" || r.RateFraction == nil || r.RateFraction.Sign() == 0
}

// NewRateInfo builds a RateInfo from a taker-per-maker rate typed by the user
func NewRateInfo(rate string) RateInfo {
	frac, ok := ParseRat(rate)
	if !ok || frac.Sign() <= 0 {
		return RateInfo{Rate: rate}
	}
	return RateInfo{
		Rate:         rate,
		InvertRate:   CalcInvert(rate),
		RateFraction: frac,
	}
}

// NewInvertedRateInfo builds a RateInfo from a maker-per-taker rate typed by the user
func NewInvertedRateInfo(invertRate string) RateInfo {
	frac, ok := ParseRat(invertRate)
	if !ok || frac.Sign() <= 0 {
		return RateInfo{InvertRate: invertRate, Invert: true}
	}
	return RateInfo{
		Rate:         CalcInvert(invertRate),
		InvertRate:   invertRate,
		Invert:       true,
		RateFraction: new(big.Rat).Inv(frac),
	}
}

// RateInfoFromAmounts derives the rate from an input and output amount pair
func RateInfoFromAmounts(input, output string, outputDecimals int32) RateInfo {
	rate := CalcRate(input, output, outputDecimals)
	if rate == "" {
		return RateInfo{}
	}
	in, okIn := ParseRat(input)
	out, okOut := ParseRat(output)
	var frac *big.Rat
	if okIn && okOut && in.Sign() != 0 {
		frac = new(big.Rat).Quo(out, in)
	}
	return RateInfo{
		Rate:         rate,
		InvertRate:   CalcInvert(rate),
		RateFraction: frac,
	}
}

// Inverted flips the displayed orientation, keeping both values
func (r RateInfo) Inverted() RateInfo {
	r.Invert = !r.Invert
	return r
}

// ============================================================================
// Cancellation Models
// ============================================================================

// CancelOrderType selects the cancellation protocol
type CancelOrderType int

const (
	CancelTypeGasless CancelOrderType = iota
	CancelTypeHard
)

func (t CancelOrderType) String() string {
	switch t {
	case CancelTypeGasless:
		return "gasless"
	case CancelTypeHard:
		return "hard"
	}
	return "unknown"
}

// ParseCancelOrderType parses "gasless" or "hard"
func ParseCancelOrderType(s string) (CancelOrderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gasless", "gas_less", "soft":
		return CancelTypeGasless, nil
	case "hard":
		return CancelTypeHard, nil
	}
	return CancelTypeHard, fmt.Errorf("cancel type must be 'gasless' or 'hard', got: %s", s)
}

// ============================================================================
// Notification Models
// ============================================================================

// NotificationKind classifies a user-visible notification
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
	NotificationWarning NotificationKind = "warning"
	NotificationInfo    NotificationKind = "info"
)

// Notification is a user-visible message about one or more orders
type Notification struct {
	Id        string
	Kind      NotificationKind
	Title     string
	Summary   string
	OrderIds  []int64
	CreatedAt time.Time
}

// Notifier presents notifications to the user
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }
