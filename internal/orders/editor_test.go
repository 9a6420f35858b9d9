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

package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/limit-order-samples/limit-order-client-go/internal/cancel"
	"github.com/limit-order-samples/limit-order-client-go/internal/common"
	"github.com/limit-order-samples/limit-order-client-go/internal/form"
	"github.com/limit-order-samples/limit-order-client-go/internal/transactions"
	"github.com/limit-order-samples/limit-order-client-go/internal/wallet"
)

type fakeCanceller struct {
	result    *cancel.Result
	cancelErr error
	// awaitErr is returned once confirmed closes; a nil channel blocks forever
	confirmed chan struct{}
	awaitErr  error
	cancelled []int64
}

func (f *fakeCanceller) Cancel(_ context.Context, orders []common.LimitOrder, cancelType common.CancelOrderType) (*cancel.Result, error) {
	for _, o := range orders {
		f.cancelled = append(f.cancelled, o.Id)
	}
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	if f.result != nil {
		return f.result, nil
	}
	return &cancel.Result{Type: cancelType, OrderIds: []int64{orders[0].Id}}, nil
}

func (f *fakeCanceller) Await(ctx context.Context, _ int64) error {
	select {
	case <-f.confirmed:
		return f.awaitErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

type fakeCreator struct {
	intents   []form.Intent
	submitted int
	id        int64
	err       error
	applyErr  error
}

func (f *fakeCreator) Apply(_ context.Context, intent form.Intent) error {
	f.intents = append(f.intents, intent)
	return f.applyErr
}

func (f *fakeCreator) Submit(context.Context) (int64, error) {
	f.submitted++
	return f.id, f.err
}

var original = common.LimitOrder{
	Id:                 21,
	MakerAsset:         "0xmaker",
	MakerAssetSymbol:   "USDC",
	MakerAssetDecimals: 6,
	TakerAsset:         "0xtaker",
	TakerAssetSymbol:   "WETH",
	TakerAssetDecimals: 18,
	MakingAmount:       "100000000",
	TakingAmount:       "50000000000000000",
	Status:             common.OrderStatusActive,
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func TestEditor_CreatesAfterConfirmation(t *testing.T) {
	canceller := &fakeCanceller{confirmed: closedChan()}
	creator := &fakeCreator{id: 99}
	editor := NewEditor(canceller, creator, time.Second)

	res, err := editor.Edit(context.Background(), original, form.Intent{Amount: "120", Rate: "0.0006"}, common.CancelTypeHard)
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if res.OrderId != 99 {
		t.Errorf("Expected new order 99, got %d", res.OrderId)
	}
	if len(canceller.cancelled) != 1 || canceller.cancelled[0] != 21 {
		t.Errorf("Expected order 21 cancelled, got %v", canceller.cancelled)
	}
	intent := creator.intents[0]
	if intent.Maker.Address != "0xmaker" || intent.Taker.Decimals != 18 {
		t.Errorf("Expected tokens from the original order, got %+v", intent)
	}
}

func TestEditor_ApplyFailureAfterConfirmation(t *testing.T) {
	loadErr := errors.New("balance unavailable")
	canceller := &fakeCanceller{confirmed: closedChan()}
	creator := &fakeCreator{id: 99, applyErr: loadErr}
	editor := NewEditor(canceller, creator, time.Second)

	res, err := editor.Edit(context.Background(), original, form.Intent{Amount: "120", Rate: "0.0006"}, common.CancelTypeHard)
	if !errors.Is(err, loadErr) {
		t.Fatalf("Expected load error, got %v", err)
	}
	if creator.submitted != 0 {
		t.Error("Expected no submit after a failed load")
	}
	if res == nil || res.Cancel == nil {
		t.Fatal("Expected the cancellation result to be returned")
	}
	if res.OrderId != 0 {
		t.Errorf("Expected no replacement order, got %d", res.OrderId)
	}
	if len(creator.intents) != 1 || creator.intents[0].Amount != "120" {
		t.Errorf("Expected the edit intent to reach the creator, got %+v", creator.intents)
	}
}

func TestEditor_TimeoutCreatesNothing(t *testing.T) {
	canceller := &fakeCanceller{}
	creator := &fakeCreator{id: 99}
	editor := NewEditor(canceller, creator, 20*time.Millisecond)

	res, err := editor.Edit(context.Background(), original, form.Intent{Amount: "1"}, common.CancelTypeGasless)
	if !errors.Is(err, ErrEditCancelTimeout) {
		t.Fatalf("Expected ErrEditCancelTimeout, got %v", err)
	}
	if creator.submitted != 0 {
		t.Error("Expected no replacement order")
	}
	if res == nil || res.Cancel == nil {
		t.Error("Expected the cancellation result to be returned")
	}
}

func TestEditor_CountdownTimeout(t *testing.T) {
	canceller := &fakeCanceller{confirmed: closedChan(), awaitErr: cancel.ErrCountdownTimeout}
	creator := &fakeCreator{}
	editor := NewEditor(canceller, creator, time.Second)

	_, err := editor.Edit(context.Background(), original, form.Intent{Amount: "1"}, common.CancelTypeGasless)
	if !errors.Is(err, ErrEditCancelTimeout) {
		t.Fatalf("Expected ErrEditCancelTimeout, got %v", err)
	}
	if creator.submitted != 0 {
		t.Error("Expected no replacement order")
	}
}

func TestEditor_CancelFailures(t *testing.T) {
	tests := []struct {
		name      string
		canceller *fakeCanceller
		expected  error
	}{
		{
			name:      "Rejected",
			canceller: &fakeCanceller{result: &cancel.Result{Rejected: true}},
			expected:  ErrEditCancelRejected,
		},
		{
			name:      "AlreadyCancelling",
			canceller: &fakeCanceller{cancelErr: cancel.ErrAlreadyCancelling},
			expected:  cancel.ErrAlreadyCancelling,
		},
		{
			name:      "TxFailed",
			canceller: &fakeCanceller{confirmed: closedChan(), awaitErr: cancel.ErrCancelTxFailed},
			expected:  cancel.ErrCancelTxFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator := &fakeCreator{}
			_, err := NewEditor(tt.canceller, creator, time.Second).Edit(context.Background(), original, form.Intent{Amount: "1"}, common.CancelTypeHard)
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
			if creator.submitted != 0 {
				t.Error("Expected no replacement order")
			}
		})
	}
}

func TestEditor_CallerCancelled(t *testing.T) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	cancelCtx()

	_, err := NewEditor(&fakeCanceller{}, &fakeCreator{}, time.Second).Edit(ctx, original, form.Intent{}, common.CancelTypeHard)
	if errors.Is(err, ErrEditCancelTimeout) || !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

type cancellingIds map[int64]bool

func (c cancellingIds) IsCancelling(id int64) bool { return c[id] }

type latestCancels map[int64]transactions.Tx

func (l latestCancels) LatestCancel(id int64) (transactions.Tx, bool) {
	tx, ok := l[id]
	return tx, ok
}

func TestApplyLocalStatus(t *testing.T) {
	orders := []common.LimitOrder{
		{Id: 1, Status: common.OrderStatusActive},
		{Id: 2, Status: common.OrderStatusOpen},
		{Id: 3, Status: common.OrderStatusPartiallyFilled},
		{Id: 4, Status: common.OrderStatusFilled},
	}
	cancelling := cancellingIds{1: true, 4: true}
	txs := latestCancels{
		2: {Hash: "0x2", Status: wallet.TxFailed},
		3: {Hash: "0x3", Status: wallet.TxSuccess},
		4: {Hash: "0x4", Status: wallet.TxFailed},
	}

	got := ApplyLocalStatus(orders, cancelling, txs)

	expected := []common.OrderStatus{
		common.OrderStatusCancelling,
		common.OrderStatusCancelledFailed,
		common.OrderStatusPartiallyFilled,
		common.OrderStatusFilled,
	}
	for i, status := range expected {
		if got[i].Status != status {
			t.Errorf("Order %d: expected %s, got %s", got[i].Id, status, got[i].Status)
		}
	}
	if orders[0].Status != common.OrderStatusActive {
		t.Error("Expected input to be left untouched")
	}
}
