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

package orderbook

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/limit-order-samples/limit-order-client-go/internal/common"
	"go.uber.org/zap"
)

// Pair identifies one side of a token pair
type Pair struct {
	MakerAsset string
	TakerAsset string
	Reverse    bool
}

func (p Pair) String() string {
	s := common.NormalizeAddress(p.MakerAsset) + "/" + common.NormalizeAddress(p.TakerAsset)
	if p.Reverse {
		s += ":reverse"
	}
	return s
}

// Snapshot is a point-in-time copy of a book
type Snapshot struct {
	Pair       Pair
	Rows       []Row
	UpdateTime time.Time
	Sequence   uint64
}

// Book holds the latest formatted rows for a pair
type Book struct {
	mu         sync.Mutex // only writers use this
	Pair       Pair
	Rows       []Row // Sorted descending by rate
	UpdateTime time.Time
	Sequence   uint64
	bestValue  atomic.Value // stores Row or nil
}

func NewBook(pair Pair) *Book {
	return &Book{
		Pair:       pair,
		Rows:       make([]Row, 0),
		UpdateTime: time.Now(),
	}
}

// Update replaces the rows and bumps the sequence
func (b *Book) Update(rows []Row) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Rows = rows
	b.Sequence++
	b.UpdateTime = time.Now()

	if len(rows) > 0 {
		b.bestValue.Store(&rows[0])
	} else {
		b.bestValue.Store((*Row)(nil))
	}
}

// Best returns the highest rate level
func (b *Book) Best() (Row, bool) {
	v, _ := b.bestValue.Load().(*Row)
	if v == nil {
		return Row{}, false
	}
	return *v, true
}

// Top returns a copy of the first n levels
func (b *Book) Top(n int) []Row {
	b.mu.Lock()
	defer b.mu.Unlock()

	count := n
	if len(b.Rows) < count {
		count = len(b.Rows)
	}
	rows := make([]Row, count)
	copy(rows, b.Rows[:count])
	return rows
}

// Snapshot returns a copy of the current book state
func (b *Book) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows := make([]Row, len(b.Rows))
	copy(rows, b.Rows)

	return Snapshot{
		Pair:       b.Pair,
		Rows:       rows,
		UpdateTime: b.UpdateTime,
		Sequence:   b.Sequence,
	}
}

// Store manages one book per pair
type Store struct {
	mu    sync.RWMutex
	books map[string]*Book
}

func NewStore() *Store {
	return &Store{
		books: make(map[string]*Book),
	}
}

// GetOrCreate retrieves or creates the book for a pair
func (s *Store) GetOrCreate(pair Pair) *Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	if book, exists := s.books[pair.String()]; exists {
		return book
	}

	book := NewBook(pair)
	s.books[pair.String()] = book
	return book
}

// Get retrieves the book for a pair
func (s *Store) Get(pair Pair) (*Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book, exists := s.books[pair.String()]
	return book, exists
}

// Source lists the resting orders of a pair
type Source interface {
	ListOrderBook(ctx context.Context, makerAsset, takerAsset string) ([]common.LimitOrder, error)
}

// Refresh fetches the pair's orders and stores the formatted rows
func (s *Store) Refresh(ctx context.Context, source Source, pair Pair, viewportWidth int) (Snapshot, error) {
	orders, err := source.ListOrderBook(ctx, pair.MakerAsset, pair.TakerAsset)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to refresh order book %s: %w", pair, err)
	}

	book := s.GetOrCreate(pair)
	book.Update(Format(orders, Options{Reverse: pair.Reverse, ViewportWidth: viewportWidth}))

	snap := book.Snapshot()
	zap.L().Debug("Order book refreshed",
		zap.String("pair", pair.String()),
		zap.Int("orders", len(orders)),
		zap.Int("levels", len(snap.Rows)),
		zap.Uint64("sequence", snap.Sequence))
	return snap, nil
}

// Watch refreshes the pair every interval until ctx ends, passing each
// snapshot to fn. Refresh errors are logged and retried on the next tick.
func (s *Store) Watch(ctx context.Context, source Source, pair Pair, viewportWidth int, interval time.Duration, fn func(Snapshot)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snap, err := s.Refresh(ctx, source, pair, viewportWidth)
		if err != nil {
			zap.L().Warn("Order book refresh failed", zap.String("pair", pair.String()), zap.Error(err))
		} else {
			fn(snap)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
