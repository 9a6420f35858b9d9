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
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ============================================================================
// Normalization Functions
// ============================================================================

// NormalizeStatus lowercases a backend status ("PARTIALLY_FILLED" -> "partially_filled")
func NormalizeStatus(status string) OrderStatus {
	return OrderStatus(strings.ToLower(strings.TrimSpace(status)))
}

// NormalizeAddress lowercases an address for use as a map or cache key
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// ShortAddress renders 0x1234...abcd
func ShortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// ============================================================================
// Identifiers
// ============================================================================

// NewSalt returns a random order salt derived from a v4 UUID
func NewSalt() string {
	id := uuid.New()
	return new(big.Int).SetBytes(id[:]).String()
}

// ParseOrderIds parses a comma separated list of order ids ("1, 2,3")
func ParseOrderIds(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid order id: %s", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one order id is required")
	}
	return ids, nil
}

// UniqueIds drops repeated ids, keeping first-seen order
func UniqueIds(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
