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

package transactions

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/limit-order-samples/limit-order-client-go/internal/wallet"
	"go.uber.org/zap"
)

// Kind labels what a locally broadcast transaction was for
type Kind string

const (
	KindApprove    Kind = "approve"
	KindHardCancel Kind = "hard_cancel"
	KindCancelAll  Kind = "cancel_all"
)

// Tx is one locally broadcast transaction
type Tx struct {
	Hash     string
	Kind     Kind
	OrderIds []int64
	Status   wallet.TxStatus
	AddedAt  time.Time
}

// Listener is told when a tracked transaction is mined
type Listener func(tx Tx)

// Tracker remembers transactions this client broadcast so push events
// can be checked against what the wallet itself observed
type Tracker struct {
	mu        sync.RWMutex
	txs       map[string]*Tx
	listeners []Listener
	now       func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		txs: make(map[string]*Tx),
		now: time.Now,
	}
}

func normalizeHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}

// Add starts tracking a pending transaction
func (t *Tracker) Add(hash string, kind Kind, orderIds []int64) {
	if hash == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.txs[normalizeHash(hash)] = &Tx{
		Hash:     hash,
		Kind:     kind,
		OrderIds: append([]int64(nil), orderIds...),
		Status:   wallet.TxPending,
		AddedAt:  t.now(),
	}
}

// OnMined registers a listener for pending to success/failed transitions
func (t *Tracker) OnMined(l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, l)
}

// MarkMined records the final status of a tracked transaction
func (t *Tracker) MarkMined(hash string, status wallet.TxStatus) {
	t.mu.Lock()
	tx, ok := t.txs[normalizeHash(hash)]
	if !ok || tx.Status != wallet.TxPending || status == wallet.TxPending {
		t.mu.Unlock()
		return
	}
	tx.Status = status
	snapshot := *tx
	listeners := append([]Listener(nil), t.listeners...)
	t.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

// Get returns a copy of the tracked transaction
func (t *Tracker) Get(hash string) (Tx, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tx, ok := t.txs[normalizeHash(hash)]
	if !ok {
		return Tx{}, false
	}
	return *tx, true
}

// IsFailed reports whether hash is known locally and failed on chain
func (t *Tracker) IsFailed(hash string) bool {
	tx, ok := t.Get(hash)
	return ok && tx.Status == wallet.TxFailed
}

// LatestCancel returns the most recent cancel transaction covering orderId
func (t *Tracker) LatestCancel(orderId int64) (Tx, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var latest *Tx
	for _, tx := range t.txs {
		if tx.Kind != KindHardCancel && tx.Kind != KindCancelAll {
			continue
		}
		if !slices.Contains(tx.OrderIds, orderId) {
			continue
		}
		if latest == nil || tx.AddedAt.After(latest.AddedAt) {
			latest = tx
		}
	}
	if latest == nil {
		return Tx{}, false
	}
	return *latest, true
}

// Pending returns hashes still awaiting a receipt
func (t *Tracker) Pending() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var hashes []string
	for _, tx := range t.txs {
		if tx.Status == wallet.TxPending {
			hashes = append(hashes, tx.Hash)
		}
	}
	return hashes
}

// Clear forgets every transaction; used on account switch
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.txs = make(map[string]*Tx)
}

// Watch polls receipts for pending transactions until ctx is done
func (t *Tracker) Watch(ctx context.Context, reader wallet.Reader, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Poll(ctx, reader)
		}
	}
}

// Poll checks each pending transaction once
func (t *Tracker) Poll(ctx context.Context, reader wallet.Reader) {
	for _, hash := range t.Pending() {
		status, err := reader.TxStatus(ctx, hash)
		if err != nil {
			zap.L().Debug("Receipt lookup failed", zap.String("tx_hash", hash), zap.Error(err))
			continue
		}
		if status != wallet.TxPending {
			zap.L().Info("Transaction mined",
				zap.String("tx_hash", hash),
				zap.String("status", status.String()))
			t.MarkMined(hash, status)
		}
	}
}
