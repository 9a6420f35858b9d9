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
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// ============================================================================
// Parsing
// ============================================================================

// ParseDecimal parses a user or backend supplied decimal string.
// Empty and malformed strings report ok=false.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseRat parses a decimal string into an exact rational
func ParseRat(s string) (*big.Rat, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, false
	}
	return r, true
}

// ParseBaseUnits parses an integer base-unit string; malformed input yields zero
func ParseBaseUnits(s string) *big.Int {
	n, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return big.NewInt(0)
	}
	return n
}

func clampDecimals(decimals int32) int32 {
	if decimals < 0 {
		return 0
	}
	if decimals > MaxDecimals {
		return MaxDecimals
	}
	return decimals
}

// ============================================================================
// Rate Calculations
// ============================================================================

// CalcRate returns output/input as a decimal string rounded to outputDecimals.
// Returns "" when either side is malformed or input is zero.
func CalcRate(input, output string, outputDecimals int32) string {
	in, ok := ParseDecimal(input)
	if !ok || in.IsZero() {
		return ""
	}
	if input == output {
		return "1"
	}
	out, ok := ParseDecimal(output)
	if !ok {
		return ""
	}

	rate := out.DivRound(in, clampDecimals(outputDecimals))
	if rate.IsZero() && !out.IsZero() {
		// too small for the token precision; keep full precision instead of "0"
		rate = out.DivRound(in, MaxDecimals)
	}
	return rate.String()
}

// CalcInvert returns 1/rate to MaxDecimals places. A non-terminating
// reciprocal inverts back to within (rate²+1)·10^-MaxDecimals of rate;
// RateInfo keeps the exact fraction for both orientations.
func CalcInvert(rate string) string {
	r, ok := ParseDecimal(rate)
	if !ok || r.IsZero() {
		return ""
	}
	if r.Equal(one) {
		return "1"
	}
	return one.DivRound(r, MaxDecimals).String()
}

// CalcOutput returns input*rate truncated to outputDecimals
func CalcOutput(input, rate string, outputDecimals int32) string {
	in, ok := ParseDecimal(input)
	if !ok {
		return ""
	}
	r, ok := ParseDecimal(rate)
	if !ok {
		return ""
	}
	if r.Equal(one) {
		return input
	}
	return in.Mul(r).RoundDown(clampDecimals(outputDecimals)).String()
}

// CalcOutputFromFraction returns input*rate using an exact rational rate
func CalcOutputFromFraction(input string, rate *big.Rat, outputDecimals int32) string {
	if rate == nil {
		return ""
	}
	in, ok := ParseRat(input)
	if !ok {
		return ""
	}
	if rate.Cmp(big.NewRat(1, 1)) == 0 {
		return input
	}
	product := new(big.Rat).Mul(in, rate)
	num := decimal.NewFromBigInt(product.Num(), 0)
	den := decimal.NewFromBigInt(product.Denom(), 0)
	// DivRound then RoundDown keeps truncation semantics without a float detour
	return num.DivRound(den, MaxDecimals+1).RoundDown(clampDecimals(outputDecimals)).String()
}

// ============================================================================
// Fill Percentage
// ============================================================================

// CalcPercentFilledOrder returns filled/total*100 for display
func CalcPercentFilledOrder(filled, total string) string {
	f, ok := ParseDecimal(filled)
	if !ok {
		return DefaultZeroString
	}
	t, ok := ParseDecimal(total)
	if !ok || t.IsZero() {
		return DefaultZeroString
	}
	if f.IsZero() {
		return DefaultZeroString
	}

	pct := f.Mul(hundred).DivRound(t, MaxDecimals)
	if pct.LessThan(decimal.RequireFromString(MinDisplayPercent)) {
		return PercentBelowDisplay
	}
	return pct.RoundDown(PercentPrecision).String()
}

// FillRatio returns filled/total, zero when total is zero or malformed
func FillRatio(filled, total string) decimal.Decimal {
	f, ok := ParseDecimal(filled)
	if !ok {
		return decimal.Zero
	}
	t, ok := ParseDecimal(total)
	if !ok || t.IsZero() {
		return decimal.Zero
	}
	return f.DivRound(t, MaxDecimals)
}

// ============================================================================
// Base Unit Conversions
// ============================================================================

// ToBaseUnits converts a human amount into an integer base-unit string, truncating extra precision
func ToBaseUnits(amount string, decimals int32) string {
	d, ok := ParseDecimal(amount)
	if !ok || d.IsNegative() {
		return ""
	}
	return d.Shift(clampDecimals(decimals)).Truncate(0).String()
}

// FromBaseUnits converts an integer base-unit string into a human amount
func FromBaseUnits(raw string, decimals int32) string {
	d, ok := ParseDecimal(raw)
	if !ok {
		return ""
	}
	return d.Shift(-clampDecimals(decimals)).String()
}

// BaseUnitsToDecimal is FromBaseUnits without the string round trip
func BaseUnitsToDecimal(raw string, decimals int32) decimal.Decimal {
	d, ok := ParseDecimal(raw)
	if !ok {
		return decimal.Zero
	}
	return d.Shift(-clampDecimals(decimals))
}

// ============================================================================
// Display Formatting
// ============================================================================

// Viewport widths at which more digits fit in the order book
const (
	NarrowViewportWidth = 768

	narrowDigits   = 6
	wideDigits     = 8
	belowOneDigits = 2
)

// SignificantDigits returns how many significant digits to display
func SignificantDigits(viewportWidth int, belowOne bool) int {
	digits := wideDigits
	if viewportWidth < NarrowViewportWidth {
		digits = narrowDigits
	}
	if belowOne {
		digits += belowOneDigits
	}
	return digits
}

// FormatSignificant rounds value to the given number of significant digits.
// Integer digits are never dropped.
func FormatSignificant(value decimal.Decimal, digits int) string {
	if value.IsZero() {
		return DefaultZeroString
	}
	if digits <= 0 {
		digits = 1
	}

	// exponent of the leading digit, e.g. 1234.5 -> 3, 0.00123 -> -3
	coefficientDigits := len(value.Coefficient().Abs(value.Coefficient()).String())
	leading := int32(coefficientDigits) + value.Exponent() - 1

	places := int32(digits) - 1 - leading
	if places < 0 {
		places = 0
	}
	return value.Round(places).String()
}
