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
	"fmt"
	"time"

	"github.com/limit-order-samples/limit-order-client-go/internal/cancel"
	"github.com/limit-order-samples/limit-order-client-go/internal/common"
	"github.com/limit-order-samples/limit-order-client-go/internal/form"
	"go.uber.org/zap"
)

const DefaultEditCancelTimeout = 60 * time.Second

var (
	ErrEditCancelTimeout  = errors.New("original order was not confirmed cancelled in time")
	ErrEditCancelRejected = errors.New("cancellation of the original order was declined")
)

// Canceller cancels the original order and reports its confirmation
type Canceller interface {
	Cancel(ctx context.Context, orders []common.LimitOrder, cancelType common.CancelOrderType) (*cancel.Result, error)
	Await(ctx context.Context, id int64) error
}

// Creator loads and submits the replacement order
type Creator interface {
	Apply(ctx context.Context, intent form.Intent) error
	Submit(ctx context.Context) (int64, error)
}

// EditResult describes a completed edit
type EditResult struct {
	Cancel  *cancel.Result
	OrderId int64
}

// Editor replaces an order by cancelling it and creating a new one only
// after the cancellation is confirmed
type Editor struct {
	canceller Canceller
	creator   Creator
	timeout   time.Duration
}

func NewEditor(canceller Canceller, creator Creator, timeout time.Duration) *Editor {
	if timeout <= 0 {
		timeout = DefaultEditCancelTimeout
	}
	return &Editor{canceller: canceller, creator: creator, timeout: timeout}
}

// Edit cancels original with cancelType, waits for confirmation and then
// submits intent. Tokens missing from intent are taken from original. On
// ErrEditCancelTimeout nothing was created and the edit can be retried.
func (e *Editor) Edit(ctx context.Context, original common.LimitOrder, intent form.Intent, cancelType common.CancelOrderType) (*EditResult, error) {
	if intent.Maker.Address == "" {
		intent.Maker = original.MakerToken()
	}
	if intent.Taker.Address == "" {
		intent.Taker = original.TakerToken()
	}

	res, err := e.canceller.Cancel(ctx, []common.LimitOrder{original}, cancelType)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order %d: %w", original.Id, err)
	}
	if res.Rejected {
		return &EditResult{Cancel: res}, ErrEditCancelRejected
	}

	zap.L().Info("Waiting for cancellation before re-creating order",
		zap.Int64("order_id", original.Id),
		zap.Duration("timeout", e.timeout))

	waitCtx, stop := context.WithTimeout(ctx, e.timeout)
	err = e.canceller.Await(waitCtx, original.Id)
	stop()
	switch {
	case err == nil:
	case errors.Is(err, cancel.ErrCountdownTimeout),
		errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		zap.L().Warn("Cancellation not confirmed, replacement not created", zap.Int64("order_id", original.Id))
		return &EditResult{Cancel: res}, ErrEditCancelTimeout
	default:
		return &EditResult{Cancel: res}, fmt.Errorf("cancellation of order %d did not complete: %w", original.Id, err)
	}

	if err := e.creator.Apply(ctx, intent); err != nil {
		return &EditResult{Cancel: res}, fmt.Errorf("failed to load replacement order: %w", err)
	}
	id, err := e.creator.Submit(ctx)
	if err != nil {
		return &EditResult{Cancel: res}, fmt.Errorf("failed to create replacement order: %w", err)
	}

	zap.L().Info("Order edited", zap.Int64("original_id", original.Id), zap.Int64("order_id", id))
	return &EditResult{Cancel: res, OrderId: id}, nil
}
