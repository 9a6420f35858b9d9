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

package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/limit-order-samples/limit-order-client-go/internal/common"
	"github.com/limit-order-samples/limit-order-client-go/internal/metrics"
	"go.uber.org/zap"
)

const keyPrefix = "limitorder:active"

// Key identifies one maker's committed amount of one token on one chain
type Key struct {
	ChainId int64
	Maker   string
	Token   string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d:%s:%s", keyPrefix, k.ChainId, common.NormalizeAddress(k.Maker), common.NormalizeAddress(k.Token))
}

func makerPrefix(chainId int64, maker string) string {
	return fmt.Sprintf("%s:%d:%s:", keyPrefix, chainId, common.NormalizeAddress(maker))
}

// Store holds active making amounts keyed by (chain, maker, token)
type Store interface {
	Get(ctx context.Context, key Key) (string, bool, error)
	Set(ctx context.Context, key Key, amount string) error
	Delete(ctx context.Context, key Key) error
	DeleteMaker(ctx context.Context, chainId int64, maker string) error
}

// Fetcher loads the committed amount from the backend
type Fetcher interface {
	GetActiveMakingAmount(ctx context.Context, maker, token string) (string, error)
}

// ActiveAmounts is a read-through cache of active making amounts.
// Callers invalidate explicitly when orders are created, cancelled or filled.
type ActiveAmounts struct {
	store   Store
	fetcher Fetcher
	chainId int64
}

func NewActiveAmounts(store Store, fetcher Fetcher, chainId int64) *ActiveAmounts {
	return &ActiveAmounts{store: store, fetcher: fetcher, chainId: chainId}
}

// Get returns the cached amount, loading it on a miss
func (a *ActiveAmounts) Get(ctx context.Context, maker, token string) (string, error) {
	key := Key{ChainId: a.chainId, Maker: maker, Token: token}

	amount, ok, err := a.store.Get(ctx, key)
	if err != nil {
		zap.L().Warn("Active amount cache lookup failed", zap.String("key", key.String()), zap.Error(err))
	} else if ok {
		metrics.RecordCacheLookup(true)
		return amount, nil
	}
	metrics.RecordCacheLookup(false)

	amount, err = a.fetcher.GetActiveMakingAmount(ctx, maker, token)
	if err != nil {
		return "", err
	}

	if err := a.store.Set(ctx, key, amount); err != nil {
		zap.L().Warn("Failed to cache active amount", zap.String("key", key.String()), zap.Error(err))
	}
	return amount, nil
}

// Invalidate drops one token's cached amount for maker
func (a *ActiveAmounts) Invalidate(ctx context.Context, maker, token string) {
	key := Key{ChainId: a.chainId, Maker: maker, Token: token}
	if err := a.store.Delete(ctx, key); err != nil {
		zap.L().Warn("Failed to invalidate active amount", zap.String("key", key.String()), zap.Error(err))
	}
}

// InvalidateMaker drops every cached amount for maker
func (a *ActiveAmounts) InvalidateMaker(ctx context.Context, maker string) {
	if err := a.store.DeleteMaker(ctx, a.chainId, maker); err != nil {
		zap.L().Warn("Failed to invalidate maker amounts",
			zap.String("maker", strings.ToLower(maker)),
			zap.Error(err))
	}
}
