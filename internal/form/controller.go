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

package form

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/google/uuid"
	"github.com/limit-order-samples/limit-order-client-go/internal/api"
	"github.com/limit-order-samples/limit-order-client-go/internal/common"
	"github.com/limit-order-samples/limit-order-client-go/internal/metrics"
	"github.com/limit-order-samples/limit-order-client-go/internal/transactions"
	"github.com/limit-order-samples/limit-order-client-go/internal/wallet"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	allowanceReadTimeout = 15 * time.Second
	approvalPollInterval = 250 * time.Millisecond
)

// Backend is the subset of the REST client the form needs
type Backend interface {
	GetMarketRate(ctx context.Context, makerAsset, takerAsset string) (string, error)
	CreateOrderSignMessage(ctx context.Context, params api.OrderParams) (*apitypes.TypedData, error)
	CreateOrder(ctx context.Context, req api.CreateOrderRequest) (int64, error)
}

// ActiveAmounts reads and invalidates the committed maker amount per token
type ActiveAmounts interface {
	Get(ctx context.Context, maker, token string) (string, error)
	Invalidate(ctx context.Context, maker, token string)
}

// Controller owns the form state and performs its side effects.
// All state changes go through Reduce.
type Controller struct {
	mu    sync.Mutex
	state State

	backend  Backend
	wallet   wallet.Wallet
	active   ActiveAmounts
	tracker  *transactions.Tracker
	notifier common.Notifier
	contract string
	now      func() time.Time
}

func NewController(
	backend Backend,
	w wallet.Wallet,
	active ActiveAmounts,
	tracker *transactions.Tracker,
	notifier common.Notifier,
	contract string,
) *Controller {
	c := &Controller{
		state:    NewState(),
		backend:  backend,
		wallet:   w,
		active:   active,
		tracker:  tracker,
		notifier: notifier,
		contract: contract,
		now:      time.Now,
	}
	tracker.OnMined(c.onTxMined)
	return c
}

// Dispatch applies msg and returns the resulting state
func (c *Controller) Dispatch(msg Msg) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Reduce(c.state, msg)
	return c.state
}

// State returns a snapshot of the form
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ============================================================================
// Loading
// ============================================================================

// Refresh loads balance, committed amount, allowance and market rate concurrently
func (c *Controller) Refresh(ctx context.Context) error {
	s := c.State()
	if !s.HasCurrencies() {
		return nil
	}
	maker := c.wallet.Address()
	makerAsset := s.MakerToken.Address
	takerAsset := s.TakerToken.Address

	c.Dispatch(MarketLoadingChanged{Loading: true})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		balance, err := c.wallet.BalanceOf(gctx, makerAsset, maker)
		if err != nil {
			return fmt.Errorf("failed to read balance: %w", err)
		}
		c.Dispatch(BalanceLoaded{Token: makerAsset, Raw: balance.String()})
		return nil
	})

	g.Go(func() error {
		amount, err := c.active.Get(gctx, maker, makerAsset)
		if err != nil {
			return fmt.Errorf("failed to read active making amount: %w", err)
		}
		c.Dispatch(ActiveMakingAmountLoaded{Token: makerAsset, Raw: amount})
		return nil
	})

	g.Go(func() error {
		return c.readAllowance(gctx, makerAsset)
	})

	g.Go(func() error {
		rate, err := c.backend.GetMarketRate(gctx, makerAsset, takerAsset)
		if err != nil {
			zap.L().Warn("Market rate unavailable",
				zap.String("maker_asset", makerAsset),
				zap.String("taker_asset", takerAsset),
				zap.Error(err))
			c.Dispatch(MarketLoadingChanged{Loading: false})
			return nil
		}
		c.Dispatch(MarketRateLoaded{Rate: rate})
		return nil
	})

	return g.Wait()
}

func (c *Controller) readAllowance(ctx context.Context, token string) error {
	allowance, err := c.wallet.Allowance(ctx, token, c.wallet.Address(), c.contract)
	if err != nil {
		return fmt.Errorf("failed to read allowance: %w", err)
	}
	c.Dispatch(AllowanceRead{Token: token, Raw: allowance.String()})
	return nil
}

// ============================================================================
// Approval
// ============================================================================

// Approve sends an ERC-20 approve for the required spend. The form shows
// PENDING from broadcast until a receipt or allowance read resolves it.
func (c *Controller) Approve(ctx context.Context) (string, error) {
	s := c.State()
	if !s.HasCurrencies() {
		return "", inputError(FieldCurrencies, ErrCurrenciesRequired)
	}
	required := RequiredAllowance(s)
	if makingAmount(s).Sign() <= 0 {
		return "", inputError(FieldInput, ErrEmptyAmount)
	}

	hash, err := c.wallet.Approve(ctx, s.MakerToken.Address, c.contract, required)
	if err != nil {
		c.notify(common.NotificationError, "Approval failed", common.FriendlyError(err), nil)
		return "", fmt.Errorf("failed to approve %s: %w", s.MakerToken.Symbol, err)
	}

	c.Dispatch(ApprovalSubmitted{TxHash: hash})
	c.tracker.Add(hash, transactions.KindApprove, nil)

	zap.L().Info("Approval submitted",
		zap.String("token", s.MakerToken.Address),
		zap.String("amount", required.String()),
		zap.String("tx_hash", hash))

	return hash, nil
}

func (c *Controller) onTxMined(tx transactions.Tx) {
	if tx.Kind != transactions.KindApprove {
		return
	}
	if tx.Status == wallet.TxFailed {
		c.Dispatch(ApprovalFailed{TxHash: tx.Hash})
		c.notify(common.NotificationError, "Approval failed", "The approval transaction failed. Please try again.", nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), allowanceReadTimeout)
	defer cancel()
	if err := c.readAllowance(ctx, c.State().MakerToken.Address); err != nil {
		zap.L().Warn("Allowance refresh after approval failed", zap.String("tx_hash", tx.Hash), zap.Error(err))
	}
}

// AwaitApproval blocks until a pending approval resolves
func (c *Controller) AwaitApproval(ctx context.Context) error {
	ticker := time.NewTicker(approvalPollInterval)
	defer ticker.Stop()

	for {
		switch c.State().Approval {
		case ApprovalApproved:
			return nil
		case ApprovalPending:
		default:
			return ErrNotApproved
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ============================================================================
// Submission
// ============================================================================

// Submit signs and creates the order. Inputs are kept on failure so the
// user can retry; on success the form resets to its defaults.
func (c *Controller) Submit(ctx context.Context) (int64, error) {
	c.mu.Lock()
	if err := Validate(c.state); err != nil {
		c.mu.Unlock()
		return 0, err
	}
	c.state = Reduce(c.state, SubmitStarted{})
	s := c.state
	c.mu.Unlock()

	maker := c.wallet.Address()
	params := api.OrderParams{
		MakerAsset:   s.MakerToken.Address,
		TakerAsset:   s.TakerToken.Address,
		Maker:        maker,
		Receiver:     maker,
		MakingAmount: common.ToBaseUnits(s.InputAmount, s.MakerToken.Decimals),
		TakingAmount: common.ToBaseUnits(s.OutputAmount, s.TakerToken.Decimals),
		ExpiredAt:    c.now().Add(s.Expiry).Unix(),
		Salt:         common.NewSalt(),
	}

	id, err := c.create(ctx, params)
	if err != nil {
		message := common.FriendlyError(err)
		c.Dispatch(SubmitFailed{Message: message})
		c.notify(common.NotificationError, "Order creation failed", message, nil)

		outcome := metrics.OutcomeFailure
		if common.IsUserRejected(err) {
			outcome = metrics.OutcomeRejected
		}
		metrics.RecordOrderCreated(outcome)

		zap.L().Warn("Order creation failed",
			zap.String("maker_asset", params.MakerAsset),
			zap.String("taker_asset", params.TakerAsset),
			zap.Error(err))
		return 0, err
	}

	c.active.Invalidate(ctx, maker, params.MakerAsset)
	c.Dispatch(SubmitSucceeded{OrderId: id})
	metrics.RecordOrderCreated(metrics.OutcomeSuccess)

	summary := fmt.Sprintf("Sell %s %s for %s %s",
		s.InputAmount, s.MakerToken.Symbol, s.OutputAmount, s.TakerToken.Symbol)
	c.notify(common.NotificationSuccess, "Order created", summary, []int64{id})

	zap.L().Info("Order created",
		zap.Int64("order_id", id),
		zap.String("making_amount", params.MakingAmount),
		zap.String("taking_amount", params.TakingAmount),
		zap.Int64("expired_at", params.ExpiredAt))

	return id, nil
}

func (c *Controller) create(ctx context.Context, params api.OrderParams) (int64, error) {
	typed, err := c.backend.CreateOrderSignMessage(ctx, params)
	if err != nil {
		return 0, err
	}
	signature, err := c.wallet.SignTypedData(ctx, typed)
	if err != nil {
		return 0, fmt.Errorf("failed to sign order: %w", err)
	}
	return c.backend.CreateOrder(ctx, api.CreateOrderRequest{OrderParams: params, Signature: signature})
}

func (c *Controller) notify(kind common.NotificationKind, title, summary string, orderIds []int64) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(common.Notification{
		Id:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Summary:   summary,
		OrderIds:  orderIds,
		CreatedAt: c.now(),
	})
}

// ============================================================================
// Intents
// ============================================================================

// Intent is a complete order description, used by the CLI and by edit-order
type Intent struct {
	Maker      common.Token
	Taker      common.Token
	Amount     string
	Rate       string // empty uses the market rate
	InvertRate bool
	Expiry     time.Duration
}

// Apply loads intent into the form, refreshing pair data first
func (c *Controller) Apply(ctx context.Context, intent Intent) error {
	c.Dispatch(CurrenciesSelected{Maker: intent.Maker, Taker: intent.Taker})
	if err := c.Refresh(ctx); err != nil {
		return err
	}
	c.Dispatch(InputAmountChanged{Value: intent.Amount})
	if intent.Rate != "" {
		c.Dispatch(RateChanged{Value: intent.Rate, Invert: intent.InvertRate})
	} else {
		c.Dispatch(SetToMarket{})
	}
	if intent.Expiry > 0 {
		c.Dispatch(ExpiryChanged{Expiry: intent.Expiry})
	}
	return nil
}
