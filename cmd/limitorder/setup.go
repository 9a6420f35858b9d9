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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/limit-order-samples/limit-order-client-go/config"
	"github.com/limit-order-samples/limit-order-client-go/internal/api"
	"github.com/limit-order-samples/limit-order-client-go/internal/cache"
	"github.com/limit-order-samples/limit-order-client-go/internal/cancel"
	"github.com/limit-order-samples/limit-order-client-go/internal/common"
	"github.com/limit-order-samples/limit-order-client-go/internal/database"
	"github.com/limit-order-samples/limit-order-client-go/internal/fees"
	"github.com/limit-order-samples/limit-order-client-go/internal/form"
	"github.com/limit-order-samples/limit-order-client-go/internal/metrics"
	"github.com/limit-order-samples/limit-order-client-go/internal/notify"
	"github.com/limit-order-samples/limit-order-client-go/internal/orders"
	"github.com/limit-order-samples/limit-order-client-go/internal/transactions"
	"github.com/limit-order-samples/limit-order-client-go/internal/wallet"
	"github.com/limit-order-samples/limit-order-client-go/internal/websocket"
	"go.uber.org/zap"
)

const (
	listPageSize    = 100
	shutdownTimeout = 5 * time.Second
)

// app wires the controllers shared by every command
type app struct {
	cfg      *config.Config
	client   *api.Client
	keys     *wallet.KeyWallet
	wallet   wallet.Wallet
	tracker  *transactions.Tracker
	active   *cache.ActiveAmounts
	db       *database.OrdersDb
	recorder *orders.EventRecorder
	notifier common.Notifier
	form     *form.Controller
	cancel   *cancel.Controller

	eth        *ethclient.Client
	redis      *cache.RedisStore
	metrics    *metrics.Server
	reconciler *notify.Reconciler
	stopWatch  context.CancelFunc
}

func newApp(ctx context.Context) (*app, error) {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	config.SetupLogger(cfg.Server.LogLevel, cfg.Server.LogJson)

	a := &app{
		cfg:      cfg,
		client:   api.NewClient(cfg.Backend, cfg.Chain.ChainId),
		tracker:  transactions.NewTracker(),
		notifier: newConsoleNotifier(os.Stdout),
	}
	if err := a.setup(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) setup(ctx context.Context) error {
	cfg := a.cfg

	eth, err := ethclient.DialContext(ctx, cfg.Chain.RpcUrl)
	if err != nil {
		return fmt.Errorf("failed to connect to rpc: %w", err)
	}
	a.eth = eth

	a.keys, err = wallet.NewKeyWallet(eth, cfg.Chain.PrivateKey, cfg.Chain.ChainId)
	if err != nil {
		return fmt.Errorf("failed to load wallet: %w", err)
	}
	confirm := wallet.PromptConfirm(os.Stdin, os.Stderr)
	if assumeYes {
		confirm = wallet.AutoConfirm
	}
	a.wallet = wallet.WithConfirmation(a.keys, confirm)

	// Active making amount cache
	var store cache.Store
	if cfg.Cache.RedisAddr != "" {
		a.redis, err = cache.NewRedisStoreFromAddr(ctx, cfg.Cache.RedisAddr, cfg.Cache.Ttl)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		store = a.redis
	} else {
		store = cache.NewMemoryStore(cfg.Cache.Ttl)
	}
	a.active = cache.NewActiveAmounts(store, a.client, cfg.Chain.ChainId)

	// Open database
	a.db, err = database.NewOrdersDb(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.recorder = orders.NewEventRecorder(a.db)

	policy, err := fees.CreateGaslessPolicy(cfg.Cancel.GaslessFeePercent, cfg.Cancel.MaxSponsoredFee, nil)
	if err != nil {
		return fmt.Errorf("failed to create gasless policy: %w", err)
	}

	a.form = form.NewController(a.client, a.wallet, a.active, a.tracker, a.notifier, cfg.Chain.LimitOrderContract)
	a.cancel = cancel.NewController(a.client, a.wallet, a.tracker, a.notifier, policy, cfg.Cancel.CountdownTick)

	watchCtx, stop := context.WithCancel(context.Background())
	a.stopWatch = stop
	go a.tracker.Watch(watchCtx, a.keys, cfg.Chain.ReceiptPollRate)

	if cfg.Server.MetricsAddr != "" {
		a.metrics = metrics.NewServer(cfg.Server.MetricsAddr)
		a.metrics.Start()
	}

	zap.L().Debug("Client ready",
		zap.String("maker", a.keys.Address()),
		zap.Int64("chain_id", cfg.Chain.ChainId),
		zap.String("database", cfg.Database.Path))
	return nil
}

// startReconciler subscribes the push topics for the connected account
func (a *app) startReconciler(ctx context.Context) error {
	subscriber := websocket.NewSubscriber(websocket.Config{
		Url:            a.cfg.Notifications.WebSocketUrl,
		ApiKey:         a.cfg.Backend.ApiKey,
		ApiSecret:      a.cfg.Backend.ApiSecret,
		ReconnectDelay: a.cfg.Notifications.ReconnectDelay,
	})

	a.reconciler = notify.NewReconciler(subscriber, a.db, a.client, a.notifier, a.tracker,
		notify.WithCanceller(a.cancel),
		notify.WithInvalidator(a.active),
		notify.WithEventSink(a.recorder))

	key := notify.Key{Account: a.keys.Address(), ChainId: a.cfg.Chain.ChainId}
	if err := a.reconciler.Start(ctx, key); err != nil {
		return fmt.Errorf("failed to start notifications: %w", err)
	}
	return nil
}

// listOrders pages through the maker's orders with the given status
func (a *app) listOrders(ctx context.Context, status string) ([]common.LimitOrder, error) {
	var all []common.LimitOrder
	for page := 1; ; page++ {
		result, err := a.client.ListOrders(ctx, api.ListOrdersParams{
			Maker:    a.keys.Address(),
			Status:   status,
			Page:     page,
			PageSize: listPageSize,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, result.Orders...)
		if len(result.Orders) < listPageSize {
			return all, nil
		}
	}
}

// findOrders returns the maker's active orders with the given ids
func (a *app) findOrders(ctx context.Context, ids []int64) ([]common.LimitOrder, error) {
	list, err := a.listOrders(ctx, "")
	if err != nil {
		return nil, err
	}
	return selectActive(list, ids, a.keys.Address())
}

// selectActive picks ids out of list, failing on any id that is missing or
// no longer active
func selectActive(list []common.LimitOrder, ids []int64, maker string) ([]common.LimitOrder, error) {
	byId := make(map[int64]common.LimitOrder, len(list))
	for _, o := range list {
		byId[o.Id] = o
	}

	found := make([]common.LimitOrder, 0, len(ids))
	for _, id := range ids {
		o, ok := byId[id]
		if !ok || !o.IsActive() {
			return nil, fmt.Errorf("order %d is not an active order of %s", id, common.ShortAddress(maker))
		}
		found = append(found, o)
	}
	return found, nil
}

// token reads decimals for address from chain
func (a *app) token(ctx context.Context, address string) (common.Token, error) {
	decimals, err := a.keys.Decimals(ctx, address)
	if err != nil {
		return common.Token{}, fmt.Errorf("failed to read token %s: %w", common.ShortAddress(address), err)
	}
	return common.Token{
		Address:  address,
		Symbol:   common.ShortAddress(address),
		Decimals: decimals,
	}, nil
}

// Close releases everything newApp opened
func (a *app) Close() {
	if a.reconciler != nil {
		a.reconciler.Stop()
		a.reconciler.Wait()
	}
	if a.stopWatch != nil {
		a.stopWatch()
	}
	if a.metrics != nil {
		ctx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.metrics.Shutdown(ctx); err != nil {
			zap.L().Warn("Metrics server shutdown failed", zap.Error(err))
		}
		stop()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.eth != nil {
		a.eth.Close()
	}
	zap.L().Sync()
}

// consoleNotifier prints notifications as they arrive
type consoleNotifier struct {
	out io.Writer
}

func newConsoleNotifier(out io.Writer) *consoleNotifier {
	return &consoleNotifier{out: out}
}

func (c *consoleNotifier) Notify(n common.Notification) {
	if outputJson {
		data, err := json.Marshal(n)
		if err == nil {
			fmt.Fprintln(c.out, string(data))
		}
		return
	}
	line := fmt.Sprintf("[%s] %s", strings.ToUpper(string(n.Kind)), n.Title)
	if n.Summary != "" {
		line += ": " + n.Summary
	}
	if len(n.OrderIds) > 0 {
		line += " " + formatIds(n.OrderIds)
	}
	fmt.Fprintln(c.out, line)
}

func formatIds(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// printJson writes v as indented JSON
func printJson(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
