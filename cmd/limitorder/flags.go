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
	"strings"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/limit-order-samples/limit-order-client-go/internal/common"
	"github.com/shopspring/decimal"
)

// maxExpiry bounds how long an order may rest on the book
const maxExpiry = 365 * 24 * time.Hour

// parsedCreateFlags holds the validated flags of the create command
type parsedCreateFlags struct {
	makerToken string
	takerToken string
	amount     string
	rate       string
	invert     bool
	expiry     time.Duration
}

// parseCreateFlags validates the create command flags. An empty rate with
// market set uses the current market rate.
func parseCreateFlags(makerVal, takerVal, amountVal, rateVal string, expiry time.Duration, market, invert bool) (*parsedCreateFlags, error) {
	makerToken, err := parseTokenAddress("--maker-token", makerVal)
	if err != nil {
		return nil, err
	}
	takerToken, err := parseTokenAddress("--taker-token", takerVal)
	if err != nil {
		return nil, err
	}
	if common.SameAddress(makerToken, takerToken) {
		return nil, fmt.Errorf("--maker-token and --taker-token must differ")
	}

	amount, err := parsePositiveDecimal("--amount", amountVal)
	if err != nil {
		return nil, err
	}

	// Validate rate/market combination
	if market && rateVal != "" {
		return nil, fmt.Errorf("--rate should not be specified with --market")
	}
	if !market && rateVal == "" {
		return nil, fmt.Errorf("--rate is required unless --market is set")
	}
	if market && invert {
		return nil, fmt.Errorf("--invert only applies to an explicit --rate")
	}
	rate := ""
	if rateVal != "" {
		if rate, err = parsePositiveDecimal("--rate", rateVal); err != nil {
			return nil, err
		}
	}

	if err := validateExpiry(expiry); err != nil {
		return nil, err
	}

	return &parsedCreateFlags{
		makerToken: makerToken,
		takerToken: takerToken,
		amount:     amount,
		rate:       rate,
		invert:     invert,
		expiry:     expiry,
	}, nil
}

// parsedEditFlags holds the validated flags of the edit command
type parsedEditFlags struct {
	orderId    int64
	amount     string
	rate       string
	invert     bool
	expiry     time.Duration
	cancelType common.CancelOrderType
}

// parseEditFlags validates the edit command flags. Empty amount or rate
// keep the original order's values, but at least one must change.
func parseEditFlags(orderId int64, amountVal, rateVal, typeVal string, expiry time.Duration, invert bool) (*parsedEditFlags, error) {
	if orderId <= 0 {
		return nil, fmt.Errorf("--id is required")
	}
	if amountVal == "" && rateVal == "" {
		return nil, fmt.Errorf("--amount or --rate is required")
	}
	if invert && rateVal == "" {
		return nil, fmt.Errorf("--invert only applies to an explicit --rate")
	}

	var (
		amount, rate string
		err          error
	)
	if amountVal != "" {
		if amount, err = parsePositiveDecimal("--amount", amountVal); err != nil {
			return nil, err
		}
	}
	if rateVal != "" {
		if rate, err = parsePositiveDecimal("--rate", rateVal); err != nil {
			return nil, err
		}
	}
	if err := validateExpiry(expiry); err != nil {
		return nil, err
	}
	cancelType, err := common.ParseCancelOrderType(typeVal)
	if err != nil {
		return nil, fmt.Errorf("--type: %w", err)
	}

	return &parsedEditFlags{
		orderId:    orderId,
		amount:     amount,
		rate:       rate,
		invert:     invert,
		expiry:     expiry,
		cancelType: cancelType,
	}, nil
}

// parsedCancelFlags holds the validated flags of the cancel command
type parsedCancelFlags struct {
	orderIds   []int64
	all        bool
	cancelType common.CancelOrderType
}

// parseCancelFlags validates the cancel command flags; exactly one of ids
// and all must be given
func parseCancelFlags(idsVal string, all bool, typeVal string) (*parsedCancelFlags, error) {
	idsVal = strings.TrimSpace(idsVal)
	if idsVal == "" && !all {
		return nil, fmt.Errorf("--ids or --all is required")
	}
	if idsVal != "" && all {
		return nil, fmt.Errorf("--ids and --all are mutually exclusive")
	}

	var ids []int64
	if idsVal != "" {
		parsed, err := common.ParseOrderIds(idsVal)
		if err != nil {
			return nil, fmt.Errorf("invalid --ids: %w", err)
		}
		ids = common.UniqueIds(parsed)
	}

	cancelType, err := common.ParseCancelOrderType(typeVal)
	if err != nil {
		return nil, fmt.Errorf("--type: %w", err)
	}

	return &parsedCancelFlags{orderIds: ids, all: all, cancelType: cancelType}, nil
}

// statusFilters maps --status values to the backend query
var statusFilters = map[string]string{
	"":          "",
	"all":       "",
	"active":    "active",
	"open":      "open",
	"closed":    "closed",
	"filled":    "filled",
	"cancelled": "cancelled",
	"expired":   "expired",
}

// parseStatusFilter validates the orders command status filter
func parseStatusFilter(statusVal string) (string, error) {
	status, ok := statusFilters[strings.ToLower(strings.TrimSpace(statusVal))]
	if !ok {
		return "", fmt.Errorf("--status must be one of all, active, open, closed, filled, cancelled, expired; got: %s", statusVal)
	}
	return status, nil
}

// parsedBookFlags holds the validated flags of the book command
type parsedBookFlags struct {
	makerToken string
	takerToken string
	reverse    bool
	width      int
	depth      int
	interval   time.Duration
}

func parseBookFlags(makerVal, takerVal string, reverse bool, width, depth int, interval time.Duration) (*parsedBookFlags, error) {
	makerToken, err := parseTokenAddress("--maker-token", makerVal)
	if err != nil {
		return nil, err
	}
	takerToken, err := parseTokenAddress("--taker-token", takerVal)
	if err != nil {
		return nil, err
	}
	if width <= 0 {
		return nil, fmt.Errorf("--width must be positive, got: %d", width)
	}
	if depth <= 0 {
		return nil, fmt.Errorf("--depth must be positive, got: %d", depth)
	}
	if interval < time.Second {
		return nil, fmt.Errorf("--interval must be at least 1s, got: %s", interval)
	}
	return &parsedBookFlags{
		makerToken: makerToken,
		takerToken: takerToken,
		reverse:    reverse,
		width:      width,
		depth:      depth,
		interval:   interval,
	}, nil
}

func parseTokenAddress(flag, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s is required", flag)
	}
	if !ethcommon.IsHexAddress(value) {
		return "", fmt.Errorf("%s must be a token address, got: %s", flag, value)
	}
	return ethcommon.HexToAddress(value).Hex(), nil
}

func parsePositiveDecimal(flag, value string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("invalid %s: %w", strings.TrimPrefix(flag, "--"), err)
	}
	if !d.IsPositive() {
		return "", fmt.Errorf("%s must be greater than zero, got: %s", flag, value)
	}
	return d.String(), nil
}

func validateExpiry(expiry time.Duration) error {
	if expiry < 0 {
		return fmt.Errorf("--expiry cannot be negative")
	}
	if expiry > maxExpiry {
		return fmt.Errorf("--expiry cannot exceed %s", maxExpiry)
	}
	return nil
}
