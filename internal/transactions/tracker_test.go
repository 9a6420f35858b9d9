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
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/limit-order-samples/limit-order-client-go/internal/wallet"
)

type fakeReader struct {
	mu       sync.Mutex
	statuses map[string]wallet.TxStatus
}

func (f *fakeReader) BalanceOf(context.Context, string, string) (*big.Int, error) { return nil, nil }
func (f *fakeReader) Allowance(context.Context, string, string, string) (*big.Int, error) {
	return nil, nil
}
func (f *fakeReader) ContractNonce(context.Context, string, string) (uint64, error) { return 0, nil }

func (f *fakeReader) TxStatus(_ context.Context, hash string) (wallet.TxStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[hash], nil
}

func (f *fakeReader) set(hash string, status wallet.TxStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[hash] = status
}

func TestTracker_MarkMined(t *testing.T) {
	tracker := NewTracker()
	tracker.Add("0xABC", KindHardCancel, []int64{1, 2})

	var notified []Tx
	tracker.OnMined(func(tx Tx) { notified = append(notified, tx) })

	if tracker.IsFailed("0xabc") {
		t.Fatal("pending transaction reported as failed")
	}

	tracker.MarkMined("0xabc", wallet.TxFailed)
	if !tracker.IsFailed("0xABC") {
		t.Error("IsFailed() = false after failure, lookup should ignore case")
	}

	// a second, contradicting receipt is ignored
	tracker.MarkMined("0xABC", wallet.TxSuccess)
	if !tracker.IsFailed("0xABC") {
		t.Error("final status should not change once mined")
	}
	if len(notified) != 1 || notified[0].Status != wallet.TxFailed || len(notified[0].OrderIds) != 2 {
		t.Errorf("listener calls = %+v, want one failed notification", notified)
	}
}

func TestTracker_UnknownHash(t *testing.T) {
	tracker := NewTracker()
	tracker.MarkMined("0xdead", wallet.TxFailed)
	if tracker.IsFailed("0xdead") {
		t.Error("untracked hash should never be reported as failed")
	}
	if _, ok := tracker.Get("0xdead"); ok {
		t.Error("MarkMined should not start tracking a hash")
	}
}

func TestTracker_Poll(t *testing.T) {
	tracker := NewTracker()
	reader := &fakeReader{statuses: map[string]wallet.TxStatus{}}
	tracker.Add("0x1", KindApprove, nil)
	tracker.Add("0x2", KindHardCancel, []int64{9})

	reader.set("0x1", wallet.TxSuccess)
	tracker.Poll(context.Background(), reader)

	pending := tracker.Pending()
	if len(pending) != 1 || pending[0] != "0x2" {
		t.Errorf("Pending() = %v, want [0x2]", pending)
	}
	if tx, _ := tracker.Get("0x1"); tx.Status != wallet.TxSuccess {
		t.Errorf("0x1 status = %v, want success", tx.Status)
	}
}

func TestTracker_WatchStopsWithContext(t *testing.T) {
	tracker := NewTracker()
	reader := &fakeReader{statuses: map[string]wallet.TxStatus{"0x1": wallet.TxFailed}}
	tracker.Add("0x1", KindCancelAll, nil)

	mined := make(chan Tx, 1)
	tracker.OnMined(func(tx Tx) { mined <- tx })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tracker.Watch(ctx, reader, 5*time.Millisecond)
		close(done)
	}()

	select {
	case tx := <-mined:
		if tx.Status != wallet.TxFailed {
			t.Errorf("mined status = %v, want failed", tx.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("Watch() did not observe the receipt")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch() did not return after cancel")
	}
}

func TestTracker_LatestCancel(t *testing.T) {
	tracker := NewTracker()
	clock := time.Unix(1_700_000_000, 0)
	tracker.now = func() time.Time { return clock }

	tracker.Add("0x01", KindHardCancel, []int64{7})
	clock = clock.Add(time.Second)
	tracker.Add("0x02", KindApprove, []int64{7})
	clock = clock.Add(time.Second)
	tracker.Add("0x03", KindCancelAll, []int64{7, 8})
	tracker.MarkMined("0x03", wallet.TxFailed)

	tx, ok := tracker.LatestCancel(7)
	if !ok {
		t.Fatal("Expected a cancel transaction for order 7")
	}
	if tx.Hash != "0x03" || tx.Status != wallet.TxFailed {
		t.Errorf("Expected latest failed cancel-all, got %+v", tx)
	}

	if _, ok := tracker.LatestCancel(9); ok {
		t.Error("Expected no cancel transaction for order 9")
	}
}
