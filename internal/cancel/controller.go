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

package cancel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/google/uuid"
	"github.com/limit-order-samples/limit-order-client-go/internal/api"
	"github.com/limit-order-samples/limit-order-client-go/internal/common"
	"github.com/limit-order-samples/limit-order-client-go/internal/metrics"
	"github.com/limit-order-samples/limit-order-client-go/internal/transactions"
	"github.com/limit-order-samples/limit-order-client-go/internal/wallet"
	"go.uber.org/zap"
)

var (
	ErrAlreadyCancelling = errors.New("order is already being cancelled")
	ErrNothingToCancel   = errors.New("no active orders to cancel")
	ErrNotEligible       = errors.New("order is not eligible for gasless cancel")
	ErrNotCancelling     = errors.New("order has no cancellation in progress")
	ErrCancelTxFailed    = errors.New("cancel transaction failed on chain")
	ErrCountdownTimeout  = errors.New("gasless cancel was not confirmed in time")
	ErrCancelFailed      = errors.New("backend reported the cancellation failed")
)

// Backend is the subset of the REST client used for cancellation
type Backend interface {
	EncodeCancel(ctx context.Context, req api.EncodeCancelRequest) (*api.EncodedTx, error)
	GetCancelTypedData(ctx context.Context, req api.GaslessCancelRequest) (*apitypes.TypedData, error)
	SubmitGaslessCancel(ctx context.Context, req api.GaslessCancelRequest, signature string) (*api.GaslessCancelResult, error)
}

// Eligibility decides whether an order may be cancelled without gas
type Eligibility interface {
	GaslessEligible(ctx context.Context, order common.LimitOrder) bool
}

// EligibilityFunc adapts a function to Eligibility
type EligibilityFunc func(ctx context.Context, order common.LimitOrder) bool

func (f EligibilityFunc) GaslessEligible(ctx context.Context, order common.LimitOrder) bool {
	return f(ctx, order)
}

// CountdownListener is told about every countdown change
type CountdownListener func(orderIds []int64, c Countdown)

// Result describes a cancellation accepted by the wallet and backend
type Result struct {
	Type      common.CancelOrderType
	OrderIds  []int64
	TxHashes  []string
	ExpiresAt time.Time
	// Rejected is set when the wallet holder declined before any
	// transaction went out; this is not an error
	Rejected bool
	// Declined lists orders left active because a later transaction was
	// declined after earlier ones were sent
	Declined []int64
}

// outcome resolves once per cancellation attempt of one order
type outcome struct {
	done chan struct{}
	err  error
}

func (o *outcome) open() bool {
	select {
	case <-o.done:
		return false
	default:
		return true
	}
}

type session struct {
	orderIds []int64
	state    Countdown
	stop     chan struct{}
	stopped  bool
}

// Controller issues hard and gasless cancellations and tracks them until
// the backend confirms
type Controller struct {
	mu        sync.Mutex
	outcomes  map[int64]*outcome
	sessions  map[int64]*session
	listeners []CountdownListener

	backend     Backend
	wallet      wallet.Wallet
	tracker     *transactions.Tracker
	notifier    common.Notifier
	eligibility Eligibility
	tick        time.Duration
	now         func() time.Time
}

func NewController(
	backend Backend,
	w wallet.Wallet,
	tracker *transactions.Tracker,
	notifier common.Notifier,
	eligibility Eligibility,
	tick time.Duration,
) *Controller {
	if tick <= 0 {
		tick = time.Second
	}
	c := &Controller{
		outcomes:    make(map[int64]*outcome),
		sessions:    make(map[int64]*session),
		backend:     backend,
		wallet:      w,
		tracker:     tracker,
		notifier:    notifier,
		eligibility: eligibility,
		tick:        tick,
		now:         time.Now,
	}
	tracker.OnMined(c.onTxMined)
	return c
}

// OnCountdown registers a listener for gasless countdown changes
func (c *Controller) OnCountdown(l CountdownListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// ============================================================================
// Requests
// ============================================================================

// Cancel cancels the given orders individually with the chosen protocol
func (c *Controller) Cancel(ctx context.Context, orders []common.LimitOrder, cancelType common.CancelOrderType) (*Result, error) {
	return c.run(ctx, orders, cancelType, false)
}

// CancelAll invalidates every order: one increase-nonce transaction per
// contract for hard cancel, or one request for gasless
func (c *Controller) CancelAll(ctx context.Context, orders []common.LimitOrder, cancelType common.CancelOrderType) (*Result, error) {
	return c.run(ctx, orders, cancelType, true)
}

func (c *Controller) run(ctx context.Context, orders []common.LimitOrder, cancelType common.CancelOrderType, all bool) (*Result, error) {
	orders = activeOrders(orders)
	if len(orders) == 0 {
		return nil, ErrNothingToCancel
	}
	ids := orderIds(orders)
	if err := c.begin(ids); err != nil {
		return nil, err
	}

	var (
		res *Result
		err error
	)
	if cancelType == common.CancelTypeGasless {
		res, err = c.gasless(ctx, orders)
	} else {
		res, err = c.hard(ctx, orders, all)
	}
	return c.finish(cancelType, ids, res, err)
}

func (c *Controller) finish(cancelType common.CancelOrderType, ids []int64, res *Result, err error) (*Result, error) {
	if err == nil {
		metrics.RecordCancellation(cancelType.String(), metrics.OutcomeSuccess)
		zap.L().Info("Cancellation submitted",
			zap.String("type", cancelType.String()),
			zap.Int64s("order_ids", res.OrderIds),
			zap.Strings("tx_hashes", res.TxHashes))
		return res, nil
	}

	// orders whose transaction did go out stay in flight
	var sent map[int64]bool
	if res != nil {
		sent = make(map[int64]bool, len(res.OrderIds))
		for _, id := range res.OrderIds {
			sent[id] = true
		}
	}
	var unsent []int64
	for _, id := range ids {
		if !sent[id] {
			unsent = append(unsent, id)
		}
	}
	c.release(unsent, err)

	if common.IsUserRejected(err) {
		metrics.RecordCancellation(cancelType.String(), metrics.OutcomeRejected)
		zap.L().Info("Cancellation declined in wallet", zap.Int64s("order_ids", unsent))
		if res == nil {
			res = &Result{Type: cancelType}
		}
		if len(res.TxHashes) == 0 {
			res.Rejected = true
		} else {
			res.Declined = unsent
		}
		return res, nil
	}

	metrics.RecordCancellation(cancelType.String(), metrics.OutcomeFailure)
	c.notify(common.NotificationError, "Cancellation failed", common.FriendlyError(err), ids)
	return res, err
}

func (c *Controller) hard(ctx context.Context, orders []common.LimitOrder, all bool) (*Result, error) {
	res := &Result{Type: common.CancelTypeHard}
	kind := transactions.KindHardCancel
	if all {
		kind = transactions.KindCancelAll
	}
	maker := c.wallet.Address()

	for _, group := range groupByContract(orders) {
		req := api.EncodeCancelRequest{ContractAddress: group.contract}
		if all {
			nonce, err := c.wallet.ContractNonce(ctx, group.contract, maker)
			if err != nil {
				return res, fmt.Errorf("failed to read nonce of %s: %w", group.contract, err)
			}
			req.IsCancelAll = true
			req.Nonce = nonce
		} else {
			req.OrderIds = group.ids
		}

		encoded, err := c.backend.EncodeCancel(ctx, req)
		if err != nil {
			return res, err
		}
		hash, err := c.send(ctx, encoded, group.contract)
		if err != nil {
			return res, err
		}

		c.tracker.Add(hash, kind, group.ids)
		res.TxHashes = append(res.TxHashes, hash)
		res.OrderIds = append(res.OrderIds, group.ids...)
	}
	return res, nil
}

func (c *Controller) send(ctx context.Context, encoded *api.EncodedTx, contract string) (string, error) {
	data, err := hexutil.Decode(encoded.Data)
	if err != nil {
		return "", fmt.Errorf("invalid cancel calldata: %w", err)
	}
	to := encoded.To
	if to == "" {
		to = contract
	}
	return c.wallet.SendTransaction(ctx, to, data)
}

func (c *Controller) gasless(ctx context.Context, orders []common.LimitOrder) (*Result, error) {
	if c.eligibility != nil {
		for _, o := range orders {
			if !c.eligibility.GaslessEligible(ctx, o) {
				return nil, fmt.Errorf("order %d: %w", o.Id, ErrNotEligible)
			}
		}
	}

	req := api.GaslessCancelRequest{Maker: c.wallet.Address(), OrderIds: orderIds(orders)}
	typed, err := c.backend.GetCancelTypedData(ctx, req)
	if err != nil {
		return nil, err
	}
	signature, err := c.wallet.SignTypedData(ctx, typed)
	if err != nil {
		return nil, fmt.Errorf("failed to sign cancel: %w", err)
	}
	accepted, err := c.backend.SubmitGaslessCancel(ctx, req, signature)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Unix(accepted.OperatorSignatureExpiredAt, 0)
	c.startCountdown(req.OrderIds, expiresAt)

	return &Result{Type: common.CancelTypeGasless, OrderIds: req.OrderIds, ExpiresAt: expiresAt}, nil
}

// ============================================================================
// In-flight tracking
// ============================================================================

func (c *Controller) begin(ids []int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if o, ok := c.outcomes[id]; ok && o.open() {
			return fmt.Errorf("order %d: %w", id, ErrAlreadyCancelling)
		}
	}
	for _, id := range ids {
		c.outcomes[id] = &outcome{done: make(chan struct{})}
	}
	return nil
}

// release resolves open outcomes with err
func (c *Controller) release(ids []int64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if o, ok := c.outcomes[id]; ok && o.open() {
			o.err = err
			close(o.done)
		}
	}
}

// IsCancelling reports whether a cancellation of id awaits confirmation
func (c *Controller) IsCancelling(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.outcomes[id]
	return ok && o.open()
}

// Await blocks until the cancellation of id is confirmed or fails
func (c *Controller) Await(ctx context.Context, id int64) error {
	c.mu.Lock()
	o, ok := c.outcomes[id]
	c.mu.Unlock()
	if !ok {
		return ErrNotCancelling
	}
	select {
	case <-o.done:
		return o.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Confirm records backend confirmation for ids. It is accepted in every
// state, so a late confirmation still ends a timed out countdown as done.
func (c *Controller) Confirm(ids []int64) {
	c.mu.Lock()
	var finished []*session
	for _, id := range ids {
		if o, ok := c.outcomes[id]; ok && o.open() {
			close(o.done)
		}
		s, ok := c.sessions[id]
		if !ok || s.state.Status == CountdownDone {
			continue
		}
		s.state = ReduceCountdown(s.state, CancelConfirmed{})
		c.stopLocked(s)
		finished = append(finished, s)
	}
	c.mu.Unlock()

	for _, s := range finished {
		c.emit(s.orderIds, s.state)
	}
}

// Fail records a cancellation the backend reports as failed
func (c *Controller) Fail(ids []int64) {
	c.release(ids, ErrCancelFailed)
}

// Countdown returns the gasless countdown for id
func (c *Controller) Countdown(id int64) (Countdown, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[id]
	if !ok {
		return Countdown{}, false
	}
	return s.state, true
}

func (c *Controller) onTxMined(tx transactions.Tx) {
	if tx.Kind != transactions.KindHardCancel && tx.Kind != transactions.KindCancelAll {
		return
	}
	if tx.Status != wallet.TxFailed {
		return
	}
	c.release(tx.OrderIds, ErrCancelTxFailed)
	zap.L().Warn("Cancel transaction failed", zap.String("tx_hash", tx.Hash), zap.Int64s("order_ids", tx.OrderIds))
}

// ============================================================================
// Countdown
// ============================================================================

func (c *Controller) startCountdown(ids []int64, expiresAt time.Time) {
	s := &session{orderIds: ids, stop: make(chan struct{})}

	c.mu.Lock()
	s.state = ReduceCountdown(s.state, CountdownStarted{ExpiresAt: expiresAt, Now: c.now()})
	for _, id := range ids {
		if prev, ok := c.sessions[id]; ok {
			c.stopLocked(prev)
		}
		c.sessions[id] = s
	}
	state := s.state
	c.mu.Unlock()

	c.emit(ids, state)
	if state.Status == CountdownTimeout {
		c.onTimeout(s)
		return
	}
	go c.runCountdown(s)
}

func (c *Controller) runCountdown(s *session) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if s.state.Status != CountdownRunning {
			c.mu.Unlock()
			return
		}
		s.state = ReduceCountdown(s.state, CountdownTicked{Now: c.now()})
		state := s.state
		c.mu.Unlock()

		c.emit(s.orderIds, state)
		if state.Status == CountdownTimeout {
			c.onTimeout(s)
			return
		}
	}
}

func (c *Controller) onTimeout(s *session) {
	metrics.CountdownTimeouts.Inc()
	c.release(s.orderIds, ErrCountdownTimeout)
	zap.L().Warn("Gasless cancel timed out", zap.Int64s("order_ids", s.orderIds))
	c.notify(common.NotificationWarning, "Cancellation timed out",
		"The operator did not confirm in time. Try again or use a hard cancel.", s.orderIds)
}

func (c *Controller) stopLocked(s *session) {
	if !s.stopped {
		s.stopped = true
		close(s.stop)
	}
}

func (c *Controller) emit(ids []int64, state Countdown) {
	c.mu.Lock()
	listeners := append([]CountdownListener(nil), c.listeners...)
	c.mu.Unlock()
	for _, l := range listeners {
		l(ids, state)
	}
}

func (c *Controller) notify(kind common.NotificationKind, title, summary string, ids []int64) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(common.Notification{
		Id:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Summary:   summary,
		OrderIds:  ids,
		CreatedAt: c.now(),
	})
}

// ============================================================================
// Helpers
// ============================================================================

type contractGroup struct {
	contract string
	ids      []int64
}

// groupByContract keeps first-seen contract order
func groupByContract(orders []common.LimitOrder) []contractGroup {
	var groups []contractGroup
	index := make(map[string]int)
	for _, o := range orders {
		key := common.NormalizeAddress(o.ContractAddress)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, contractGroup{contract: o.ContractAddress})
		}
		groups[i].ids = append(groups[i].ids, o.Id)
	}
	return groups
}

func activeOrders(orders []common.LimitOrder) []common.LimitOrder {
	var active []common.LimitOrder
	seen := make(map[int64]bool)
	for _, o := range orders {
		if o.IsActive() && !seen[o.Id] {
			seen[o.Id] = true
			active = append(active, o)
		}
	}
	return active
}

func orderIds(orders []common.LimitOrder) []int64 {
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.Id)
	}
	return ids
}
