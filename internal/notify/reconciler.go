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
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/limit-order-samples/limit-order-client-go/internal/api"
	"github.com/limit-order-samples/limit-order-client-go/internal/common"
	"github.com/limit-order-samples/limit-order-client-go/internal/metrics"
	"go.uber.org/zap"
)

const ackTimeout = 10 * time.Second

// Dispositions recorded per delivered order
const (
	DispositionShown      = "shown"
	DispositionDuplicate  = "duplicate"
	DispositionSuppressed = "suppressed"
	DispositionStale      = "stale"
)

// Acker acknowledges delivered events
type Acker interface {
	AckEvents(ctx context.Context, req api.AckRequest) error
}

// TxChecker reports locally observed transaction failures
type TxChecker interface {
	IsFailed(hash string) bool
}

// Canceller receives cancellation outcomes reported by the backend
type Canceller interface {
	Confirm(orderIds []int64)
	Fail(orderIds []int64)
}

// Invalidator drops cached committed amounts for a maker
type Invalidator interface {
	InvalidateMaker(ctx context.Context, maker string)
}

// EventSink journals every accepted delivery
type EventSink interface {
	Record(ctx context.Context, event Event) error
}

// Option configures optional Reconciler collaborators
type Option func(*Reconciler)

func WithCanceller(c Canceller) Option     { return func(r *Reconciler) { r.canceller = c } }
func WithInvalidator(i Invalidator) Option { return func(r *Reconciler) { r.invalidator = i } }
func WithEventSink(s EventSink) Option     { return func(r *Reconciler) { r.sink = s } }

// Reconciler turns push deliveries into at-most-once user notifications
// for the connected account and acknowledges them to the backend
type Reconciler struct {
	mu           sync.Mutex
	key          Key
	generation   uint64
	unsubscribes []func()

	// serializes delivery handling so events keep their order
	process sync.Mutex

	subscriber  Subscriber
	seen        SeenStore
	acker       Acker
	notifier    common.Notifier
	txs         TxChecker
	canceller   Canceller
	invalidator Invalidator
	sink        EventSink
	now         func() time.Time
	acks        sync.WaitGroup
}

func NewReconciler(
	subscriber Subscriber,
	seen SeenStore,
	acker Acker,
	notifier common.Notifier,
	txs TxChecker,
	opts ...Option,
) *Reconciler {
	r := &Reconciler{
		subscriber: subscriber,
		seen:       seen,
		acker:      acker,
		notifier:   notifier,
		txs:        txs,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start subscribes all topics for key, dropping any previous account's
// subscriptions first
func (r *Reconciler) Start(ctx context.Context, key Key) error {
	r.mu.Lock()
	previous := r.unsubscribes
	r.unsubscribes = nil
	r.generation++
	r.key = key
	gen := r.generation
	r.mu.Unlock()
	unsubscribeAll(previous)

	var unsubscribes []func()
	for _, topic := range Topics {
		unsubscribe, err := r.subscriber.Subscribe(ctx, topic, key, func(event Event) {
			r.deliver(ctx, gen, event)
		})
		if err != nil {
			r.mu.Lock()
			if r.generation == gen {
				r.generation++
			}
			r.mu.Unlock()
			unsubscribeAll(unsubscribes)
			return fmt.Errorf("failed to subscribe %s: %w", topic, err)
		}
		unsubscribes = append(unsubscribes, unsubscribe)
	}

	r.mu.Lock()
	if r.generation != gen {
		// switched or stopped while subscribing
		r.mu.Unlock()
		unsubscribeAll(unsubscribes)
		return nil
	}
	r.unsubscribes = unsubscribes
	r.mu.Unlock()

	zap.L().Info("Notification reconciler started",
		zap.String("account", key.Account),
		zap.Int64("chain_id", key.ChainId))
	return nil
}

// Stop unsubscribes every topic; deliveries already in flight are discarded
func (r *Reconciler) Stop() {
	r.mu.Lock()
	previous := r.unsubscribes
	r.unsubscribes = nil
	r.generation++
	r.mu.Unlock()
	unsubscribeAll(previous)
}

// Wait blocks until outstanding acknowledgements finish
func (r *Reconciler) Wait() {
	r.acks.Wait()
}

// unsubscribeAll runs outside r.mu since a subscriber may wait for its
// delivery goroutine to finish
func unsubscribeAll(unsubscribes []func()) {
	for _, unsubscribe := range unsubscribes {
		unsubscribe()
	}
}

func (r *Reconciler) current(gen uint64) (Key, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.key, gen == r.generation
}

func (r *Reconciler) deliver(ctx context.Context, gen uint64, event Event) {
	r.process.Lock()
	defer r.process.Unlock()

	key, live := r.current(gen)
	if !live || (event.Key != Key{} && !event.Key.Matches(key)) {
		metrics.RecordNotification(string(event.Topic), DispositionStale)
		zap.L().Debug("Dropping delivery for inactive subscription",
			zap.String("topic", string(event.Topic)),
			zap.String("account", event.Key.Account))
		return
	}
	event.Key = key

	if r.sink != nil {
		if err := r.sink.Record(ctx, event); err != nil {
			zap.L().Warn("Failed to journal delivery", zap.String("topic", string(event.Topic)), zap.Error(err))
		}
	}

	switch event.Topic {
	case TopicCancelled:
		r.handleCancelled(ctx, key, event)
	case TopicExpired:
		r.handleExpired(ctx, key, event)
	case TopicFilled:
		r.handleFilled(ctx, key, event)
	default:
		zap.L().Warn("Unknown notification topic", zap.String("topic", string(event.Topic)))
		return
	}

	if r.invalidator != nil {
		r.invalidator.InvalidateMaker(ctx, key.Account)
	}
}

// ============================================================================
// Topics
// ============================================================================

func (r *Reconciler) handleCancelled(ctx context.Context, key Key, event Event) {
	var succeeded, failed []OrderDelta
	var confirmed, rejected, ackIds []int64

	summaryFailedLocally := event.CancelAll != nil && event.CancelAll.IsSuccessful && r.failedLocally(event.CancelAll.TxHash)

	for _, delta := range event.Orders {
		ackIds = append(ackIds, delta.Id)

		if delta.IsSuccessful && (summaryFailedLocally || r.failedLocally(delta.TxHash)) {
			metrics.RecordNotification(string(event.Topic), DispositionSuppressed)
			zap.L().Warn("Suppressing cancel success contradicted by local transaction",
				zap.Int64("order_id", delta.Id),
				zap.String("tx_hash", delta.TxHash))
			continue
		}
		if delta.IsSuccessful {
			confirmed = append(confirmed, delta.Id)
		} else {
			rejected = append(rejected, delta.Id)
		}
		if !r.markSeen(ctx, key, event.Topic, delta) {
			continue
		}
		if delta.IsSuccessful {
			succeeded = append(succeeded, delta)
		} else {
			failed = append(failed, delta)
		}
	}

	if r.canceller != nil {
		if len(confirmed) > 0 {
			r.canceller.Confirm(confirmed)
		}
		if len(rejected) > 0 {
			r.canceller.Fail(rejected)
		}
	}

	if event.CancelAll != nil {
		if len(succeeded) > 0 {
			r.notify(common.NotificationSuccess, "All orders cancelled",
				fmt.Sprintf("%d orders were cancelled", len(succeeded)), deltaIds(succeeded))
		}
		if len(failed) > 0 {
			r.notify(common.NotificationError, "Cancel all failed",
				fmt.Sprintf("%d orders could not be cancelled", len(failed)), deltaIds(failed))
		}
	} else {
		for _, delta := range succeeded {
			r.notify(common.NotificationSuccess, "Order cancelled", describe(delta)+" was cancelled", []int64{delta.Id})
		}
		for _, delta := range failed {
			r.notify(common.NotificationError, "Cancel failed", describe(delta)+" could not be cancelled", []int64{delta.Id})
		}
	}

	r.ack(key, api.AckRequest{Status: string(TopicCancelled), OrderIds: ackIds})
}

func (r *Reconciler) handleExpired(ctx context.Context, key Key, event Event) {
	var ackIds []int64
	for _, delta := range event.Orders {
		ackIds = append(ackIds, delta.Id)
		if !r.markSeen(ctx, key, event.Topic, delta) {
			continue
		}
		r.notify(common.NotificationInfo, "Order expired", describe(delta)+" has expired", []int64{delta.Id})
	}
	r.ack(key, api.AckRequest{Status: string(TopicExpired), OrderIds: ackIds})
}

func (r *Reconciler) handleFilled(ctx context.Context, key Key, event Event) {
	var ackUuids []string
	var ackIds []int64
	for _, delta := range event.Orders {
		if delta.Uuid != "" {
			ackUuids = append(ackUuids, delta.Uuid)
		} else {
			ackIds = append(ackIds, delta.Id)
		}
		if !r.markSeen(ctx, key, event.Topic, delta) {
			continue
		}

		title := "Order filled"
		if delta.Status == common.OrderStatusPartiallyFilled {
			title = "Order partially filled"
		}
		summary := describe(delta)
		if delta.TakingAmount != "" {
			summary += " is " + common.CalcPercentFilledOrder(delta.FilledTakingAmount, delta.TakingAmount) + "% filled"
		}
		r.notify(common.NotificationSuccess, title, summary, []int64{delta.Id})
	}
	r.ack(key, api.AckRequest{Status: string(TopicFilled), OrderIds: ackIds, Uuids: ackUuids})
}

// ============================================================================
// Helpers
// ============================================================================

func (r *Reconciler) failedLocally(hash string) bool {
	return hash != "" && r.txs != nil && r.txs.IsFailed(hash)
}

// markSeen reports whether delta has not been notified before
func (r *Reconciler) markSeen(ctx context.Context, key Key, topic Topic, delta OrderDelta) bool {
	first, err := r.seen.MarkSeen(ctx, seenKey(key, topic, delta))
	if err != nil {
		// store errors fail open
		zap.L().Warn("Seen store unavailable", zap.Int64("order_id", delta.Id), zap.Error(err))
		first = true
	}
	if !first {
		metrics.RecordNotification(string(topic), DispositionDuplicate)
		zap.L().Debug("Duplicate delivery", zap.String("topic", string(topic)), zap.Int64("order_id", delta.Id))
		return false
	}
	metrics.RecordNotification(string(topic), DispositionShown)
	return true
}

// seenKey identifies one lifecycle event of one order. Fills carry a uuid
// per fill; a retried cancel carries a new transaction hash.
func seenKey(key Key, topic Topic, delta OrderDelta) string {
	id := delta.Uuid
	if id == "" {
		id = strconv.FormatInt(delta.Id, 10)
	}
	k := fmt.Sprintf("%s:%d:%s:%s", topic, key.ChainId, common.NormalizeAddress(key.Account), id)
	if topic == TopicCancelled && delta.TxHash != "" {
		k += ":" + common.NormalizeAddress(delta.TxHash)
	}
	return k
}

// ack is fire-and-forget: failures are logged and never retried
func (r *Reconciler) ack(key Key, req api.AckRequest) {
	if r.acker == nil || (len(req.OrderIds) == 0 && len(req.Uuids) == 0) {
		return
	}
	req.Maker = key.Account
	req.ChainId = strconv.FormatInt(key.ChainId, 10)

	r.acks.Add(1)
	go func() {
		defer r.acks.Done()
		ctx, cancel := context.WithTimeout(context.Background(), ackTimeout)
		defer cancel()
		if err := r.acker.AckEvents(ctx, req); err != nil {
			metrics.AckFailures.Inc()
			zap.L().Warn("Failed to acknowledge events",
				zap.String("status", req.Status),
				zap.Int64s("order_ids", req.OrderIds),
				zap.Error(err))
		}
	}()
}

func (r *Reconciler) notify(kind common.NotificationKind, title, summary string, ids []int64) {
	if r.notifier == nil {
		return
	}
	r.notifier.Notify(common.Notification{
		Id:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Summary:   summary,
		OrderIds:  ids,
		CreatedAt: r.now(),
	})
}

func describe(delta OrderDelta) string {
	if delta.MakerAssetSymbol == "" || delta.TakerAssetSymbol == "" {
		return fmt.Sprintf("Order #%d", delta.Id)
	}
	return fmt.Sprintf("Order #%d (%s → %s)", delta.Id, delta.MakerAssetSymbol, delta.TakerAssetSymbol)
}

func deltaIds(deltas []OrderDelta) []int64 {
	ids := make([]int64, 0, len(deltas))
	for _, d := range deltas {
		ids = append(ids, d.Id)
	}
	return ids
}
