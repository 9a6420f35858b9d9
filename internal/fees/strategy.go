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

package fees

import (
	"context"
	"fmt"

	"github.com/limit-order-samples/limit-order-client-go/internal/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FeeStrategy calculates the operator fee for sponsoring a gasless cancel
// as a percentage of the order's remaining value
type FeeStrategy struct {
	Percent decimal.Decimal // e.g., 0.001 for 0.1% (10 bps)
}

// NewFeeStrategy creates a new percentage-based fee strategy
func NewFeeStrategy(percent decimal.Decimal) *FeeStrategy {
	return &FeeStrategy{Percent: percent}
}

// Compute calculates the fee for a given quantity and price
func (s *FeeStrategy) Compute(qty decimal.Decimal, price decimal.Decimal) decimal.Decimal {
	notional := qty.Mul(price)
	return s.ComputeFromNotional(notional)
}

// ComputeFromNotional calculates the fee from a notional value (qty * price)
func (s *FeeStrategy) ComputeFromNotional(notional decimal.Decimal) decimal.Decimal {
	return notional.Mul(s.Percent)
}

// CreateFeeStrategy creates a percentage-based fee strategy from configuration
func CreateFeeStrategy(feePercent string) (*FeeStrategy, error) {
	percent, err := decimal.NewFromString(feePercent)
	if err != nil {
		return nil, fmt.Errorf("invalid fee percent: %w", err)
	}
	if percent.IsNegative() {
		return nil, fmt.Errorf("fee percent cannot be negative")
	}
	return NewFeeStrategy(percent), nil
}

// ============================================================================
// Gasless Eligibility
// ============================================================================

// PriceSource values one unit of a token in the unit the sponsored fee
// limit is expressed in
type PriceSource interface {
	Price(ctx context.Context, token string) (decimal.Decimal, error)
}

// GaslessPolicy decides whether the operator will sponsor a cancel: the
// estimated fee on the remaining maker amount must not exceed MaxFee
type GaslessPolicy struct {
	Fee    *FeeStrategy
	MaxFee decimal.Decimal
	prices PriceSource
}

// NewGaslessPolicy creates a policy; a nil prices values every token at 1
func NewGaslessPolicy(fee *FeeStrategy, maxFee decimal.Decimal, prices PriceSource) *GaslessPolicy {
	return &GaslessPolicy{Fee: fee, MaxFee: maxFee, prices: prices}
}

// CreateGaslessPolicy builds a policy from configuration strings
func CreateGaslessPolicy(feePercent, maxFee string, prices PriceSource) (*GaslessPolicy, error) {
	fee, err := CreateFeeStrategy(feePercent)
	if err != nil {
		return nil, err
	}
	limit, err := decimal.NewFromString(maxFee)
	if err != nil {
		return nil, fmt.Errorf("invalid max sponsored fee: %w", err)
	}
	if limit.IsNegative() {
		return nil, fmt.Errorf("max sponsored fee cannot be negative")
	}
	return NewGaslessPolicy(fee, limit, prices), nil
}

// EstimateFee returns the sponsored fee for cancelling what is left of order
func (p *GaslessPolicy) EstimateFee(ctx context.Context, order common.LimitOrder) (decimal.Decimal, error) {
	remaining := common.BaseUnitsToDecimal(order.RemainingMakingAmount().String(), order.MakerAssetDecimals)
	price := decimal.NewFromInt(1)
	if p.prices != nil {
		var err error
		price, err = p.prices.Price(ctx, order.MakerAsset)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to price %s: %w", order.MakerAsset, err)
		}
	}
	return p.Fee.Compute(remaining, price), nil
}

// GaslessEligible reports whether order can be cancelled without gas.
// Pricing failures make the order ineligible, leaving hard cancel available.
func (p *GaslessPolicy) GaslessEligible(ctx context.Context, order common.LimitOrder) bool {
	if !order.IsActive() {
		return false
	}
	fee, err := p.EstimateFee(ctx, order)
	if err != nil {
		zap.L().Debug("Gasless eligibility unknown", zap.Int64("order_id", order.Id), zap.Error(err))
		return false
	}
	return fee.LessThanOrEqual(p.MaxFee)
}
