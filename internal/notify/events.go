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

package notify

import (
	"context"
	"strings"
	"sync"

	"github.com/limit-order-samples/limit-order-client-go/internal/common"
)

// Topic is one logical push channel
type Topic string

const (
	TopicCancelled Topic = "cancelled"
	TopicExpired   Topic = "expired"
	TopicFilled    Topic = "filled"
)

// Topics lists every channel the reconciler subscribes to
var Topics = []Topic{TopicCancelled, TopicExpired, TopicFilled}

// Key scopes a subscription to one account on one chain
type Key struct {
	Account string
	ChainId int64
}

// Matches compares keys ignoring address case
func (k Key) Matches(other Key) bool {
	return k.ChainId == other.ChainId && strings.EqualFold(k.Account, other.Account)
}

// OrderDelta is one order's change within a delivery
type OrderDelta struct {
	Id                 int64              `json:"id"`
	Uuid               string             `json:"uuid,omitempty"`
	Status             common.OrderStatus `json:"status"`
	IsSuccessful       bool               `json:"isSuccessful"`
	TxHash             string             `json:"txHash,omitempty"`
	ContractAddress    string             `json:"contractAddress,omitempty"`
	MakerAssetSymbol   string             `json:"makerAssetSymbol,omitempty"`
	TakerAssetSymbol   string             `json:"takerAssetSymbol,omitempty"`
	MakingAmount       string             `json:"makingAmount,omitempty"`
	FilledMakingAmount string             `json:"filledMakingAmount,omitempty"`
	TakingAmount       string             `json:"takingAmount,omitempty"`
	FilledTakingAmount string             `json:"filledTakingAmount,omitempty"`
}

// CancelAllSummary accompanies a cancellation delivery produced by an
// increase-nonce transaction
type CancelAllSummary struct {
	ContractAddress string `json:"contractAddress"`
	Nonce           uint64 `json:"nonce"`
	TxHash          string `json:"txHash,omitempty"`
	IsSuccessful    bool   `json:"isSuccessful"`
}

// Event is one push delivery
type Event struct {
	Topic     Topic             `json:"topic"`
	Key       Key               `json:"-"`
	Orders    []OrderDelta      `json:"orders"`
	CancelAll *CancelAllSummary `json:"cancelAll,omitempty"`
}

// Handler receives deliveries for one subscription
type Handler func(Event)

// Subscriber is a push channel. The returned function unsubscribes.
type Subscriber interface {
	Subscribe(ctx context.Context, topic Topic, key Key, handler Handler) (func(), error)
}

// ============================================================================
// Seen store
// ============================================================================

// SeenStore remembers which lifecycle events were already shown
type SeenStore interface {
	// MarkSeen records id and reports whether it was new
	MarkSeen(ctx context.Context, id string) (bool, error)
}

// MemorySeenStore is a process-local SeenStore
type MemorySeenStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemorySeenStore() *MemorySeenStore {
	return &MemorySeenStore{seen: make(map[string]struct{})}
}

func (m *MemorySeenStore) MarkSeen(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[id]; ok {
		return false, nil
	}
	m.seen[id] = struct{}{}
	return true, nil
}
