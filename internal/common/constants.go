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

// ============================================================================
// Order Status Constants
// ============================================================================

// Order statuses reported by the limit-order backend
const (
	OrderStatusActive          OrderStatus = "active"
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelling      OrderStatus = "cancelling"
	OrderStatusClosed          OrderStatus = "closed"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusExpired         OrderStatus = "expired"

	// OrderStatusCancelledFailed never comes from the backend; it marks a
	// cancellation whose transaction failed locally.
	OrderStatusCancelledFailed OrderStatus = "cancelled_failed"
)

// ============================================================================
// Default Values
// ============================================================================

const (
	DefaultZeroString = "0"
	ZeroAddress       = "0x0000000000000000000000000000000000000000"

	// PercentBelowDisplay is rendered for fills smaller than MinDisplayPercent
	PercentBelowDisplay = "< 0.01"
)

// ============================================================================
// Precision Constants
// ============================================================================

const (
	// MaxDecimals is the widest token precision handled (ERC-20 standard)
	MaxDecimals int32 = 18

	// PercentPrecision is the number of decimals shown for fill percentages
	PercentPrecision int32 = 2

	// MinDisplayPercent is the smallest fill percentage shown as a number
	MinDisplayPercent = "0.01"

	// FullyFilledRatio is the fill ratio at which an order is treated as consumed
	FullyFilledRatio = "0.99"
)
