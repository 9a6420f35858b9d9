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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// OrdersDb journals order state, push events and shown notifications
type OrdersDb struct {
	db *sql.DB
}

// OrderRecord is the latest known state of an order
type OrderRecord struct {
	OrderId         int64
	ChainId         int64
	Maker           string
	ContractAddress string
	MakerSymbol     string
	TakerSymbol     string

	// Amounts are integer base-unit strings
	MakingAmount       string
	TakingAmount       string
	FilledMakingAmount string
	FilledTakingAmount string

	Status string
	TxHash string

	// Metadata
	FirstSeenAt   time.Time
	LastUpdatedAt time.Time
}

// OrderEvent is one push delivery for one order
type OrderEvent struct {
	Id           int64
	OrderId      int64
	Topic        string
	Status       string
	IsSuccessful bool
	TxHash       string
	FillUuid     string
	RawJson      string // Full raw JSON for debugging
	ReceivedAt   time.Time
}

// NewOrdersDb opens or creates the journal at dbPath
func NewOrdersDb(dbPath string) (*OrdersDb, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrent write performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set busy timeout to handle concurrent writes
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	ordersDb := &OrdersDb{db: db}

	if err := ordersDb.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return ordersDb, nil
}

// createTables creates the database schema
func (db *OrdersDb) createTables() error {
	// Main orders table - one row per order, always current state
	ordersTable := `
	CREATE TABLE IF NOT EXISTS orders (
		order_id INTEGER PRIMARY KEY,
		chain_id INTEGER NOT NULL,
		maker TEXT NOT NULL,
		contract_address TEXT NOT NULL DEFAULT '',
		maker_symbol TEXT NOT NULL DEFAULT '',
		taker_symbol TEXT NOT NULL DEFAULT '',

		-- Base-unit amounts stored as TEXT for exact precision
		making_amount TEXT NOT NULL DEFAULT '0',
		taking_amount TEXT NOT NULL DEFAULT '0',
		filled_making_amount TEXT NOT NULL DEFAULT '0',
		filled_taking_amount TEXT NOT NULL DEFAULT '0',

		status TEXT NOT NULL,
		tx_hash TEXT NOT NULL DEFAULT '',

		-- Metadata
		first_seen_at TIMESTAMP NOT NULL,
		last_updated_at TIMESTAMP NOT NULL
	);`

	// Order events table - append-only log of push deliveries
	eventsTable := `
	CREATE TABLE IF NOT EXISTS order_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL,
		topic TEXT NOT NULL,
		status TEXT NOT NULL,
		is_successful BOOLEAN NOT NULL DEFAULT FALSE,
		tx_hash TEXT NOT NULL DEFAULT '',
		fill_uuid TEXT NOT NULL DEFAULT '',

		-- Raw data for debugging
		raw_json TEXT NOT NULL,
		received_at TIMESTAMP NOT NULL
	);`

	// Notifications already shown, keyed by lifecycle event
	notificationsTable := `
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		seen_at TIMESTAMP NOT NULL
	);`

	// Create indexes separately
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_maker ON orders(maker, chain_id);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_updated ON orders(last_updated_at);`,
		`CREATE INDEX IF NOT EXISTS idx_events_order ON order_events(order_id);`,
		`CREATE INDEX IF NOT EXISTS idx_events_received ON order_events(received_at);`,
	}

	for name, table := range map[string]string{
		"orders":        ordersTable,
		"order_events":  eventsTable,
		"notifications": notificationsTable,
	} {
		if _, err := db.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create %s table: %w", name, err)
		}
	}

	for _, idx := range indexes {
		if _, err := db.db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// UpsertOrder updates or inserts an order record. Empty descriptive fields
// never overwrite known values.
func (db *OrdersDb) UpsertOrder(ctx context.Context, order *OrderRecord) error {
	query := `
	INSERT INTO orders (
		order_id, chain_id, maker, contract_address, maker_symbol, taker_symbol,
		making_amount, taking_amount, filled_making_amount, filled_taking_amount,
		status, tx_hash,
		first_seen_at, last_updated_at
	) VALUES (
		?, ?, ?, ?, ?, ?,
		?, ?, ?, ?,
		?, ?,
		?, ?
	)
	ON CONFLICT(order_id) DO UPDATE SET
		contract_address = COALESCE(NULLIF(excluded.contract_address, ''), orders.contract_address),
		maker_symbol = COALESCE(NULLIF(excluded.maker_symbol, ''), orders.maker_symbol),
		taker_symbol = COALESCE(NULLIF(excluded.taker_symbol, ''), orders.taker_symbol),
		making_amount = COALESCE(NULLIF(excluded.making_amount, '0'), orders.making_amount),
		taking_amount = COALESCE(NULLIF(excluded.taking_amount, '0'), orders.taking_amount),
		filled_making_amount = COALESCE(NULLIF(excluded.filled_making_amount, '0'), orders.filled_making_amount),
		filled_taking_amount = COALESCE(NULLIF(excluded.filled_taking_amount, '0'), orders.filled_taking_amount),
		status = excluded.status,
		tx_hash = COALESCE(NULLIF(excluded.tx_hash, ''), orders.tx_hash),
		last_updated_at = excluded.last_updated_at
	`

	_, err := db.db.ExecContext(ctx, query,
		order.OrderId, order.ChainId, order.Maker, order.ContractAddress, order.MakerSymbol, order.TakerSymbol,
		zeroIfEmpty(order.MakingAmount), zeroIfEmpty(order.TakingAmount),
		zeroIfEmpty(order.FilledMakingAmount), zeroIfEmpty(order.FilledTakingAmount),
		order.Status, order.TxHash,
		order.FirstSeenAt, order.LastUpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert order: %w", err)
	}

	return nil
}

// InsertOrderEvent appends a push delivery to the event log
func (db *OrdersDb) InsertOrderEvent(ctx context.Context, event *OrderEvent) error {
	query := `
	INSERT INTO order_events (
		order_id, topic, status, is_successful, tx_hash, fill_uuid,
		raw_json, received_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.db.ExecContext(ctx, query,
		event.OrderId, event.Topic, event.Status, event.IsSuccessful, event.TxHash, event.FillUuid,
		event.RawJson, event.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order event: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		event.Id = id
	}
	return nil
}

// GetOrder retrieves the current state of an order, nil when unknown
func (db *OrdersDb) GetOrder(ctx context.Context, orderId int64) (*OrderRecord, error) {
	query := `
	SELECT
		order_id, chain_id, maker, contract_address, maker_symbol, taker_symbol,
		making_amount, taking_amount, filled_making_amount, filled_taking_amount,
		status, tx_hash,
		first_seen_at, last_updated_at
	FROM orders
	WHERE order_id = ?
	`

	order, err := scanOrder(db.db.QueryRowContext(ctx, query, orderId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return order, nil
}

// ListOrders returns the maker's journaled orders, newest first. An empty
// status matches every status.
func (db *OrdersDb) ListOrders(ctx context.Context, maker string, chainId int64, status string) ([]*OrderRecord, error) {
	query := `
	SELECT
		order_id, chain_id, maker, contract_address, maker_symbol, taker_symbol,
		making_amount, taking_amount, filled_making_amount, filled_taking_amount,
		status, tx_hash,
		first_seen_at, last_updated_at
	FROM orders
	WHERE maker = ? AND chain_id = ? AND (? = '' OR status = ?)
	ORDER BY last_updated_at DESC, order_id DESC
	`

	rows, err := db.db.QueryContext(ctx, query, maker, chainId, status, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*OrderRecord
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ListOrderEvents returns an order's push deliveries in arrival order
func (db *OrdersDb) ListOrderEvents(ctx context.Context, orderId int64) ([]*OrderEvent, error) {
	query := `
	SELECT id, order_id, topic, status, is_successful, tx_hash, fill_uuid, raw_json, received_at
	FROM order_events
	WHERE order_id = ?
	ORDER BY id
	`

	rows, err := db.db.QueryContext(ctx, query, orderId)
	if err != nil {
		return nil, fmt.Errorf("failed to list order events: %w", err)
	}
	defer rows.Close()

	var events []*OrderEvent
	for rows.Next() {
		var e OrderEvent
		if err := rows.Scan(&e.Id, &e.OrderId, &e.Topic, &e.Status, &e.IsSuccessful,
			&e.TxHash, &e.FillUuid, &e.RawJson, &e.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list order events: %w", err)
	}
	return events, nil
}

// MarkSeen records a shown notification and reports whether it was new
func (db *OrdersDb) MarkSeen(ctx context.Context, id string) (bool, error) {
	result, err := db.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO notifications (id, seen_at) VALUES (?, ?)`,
		id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to mark notification seen: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark notification seen: %w", err)
	}
	return n == 1, nil
}

// PruneNotifications removes ledger entries older than cutoff
func (db *OrdersDb) PruneNotifications(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.db.ExecContext(ctx, `DELETE FROM notifications WHERE seen_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune notifications: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection
func (db *OrdersDb) Close() error {
	if db.db != nil {
		zap.L().Info("Closing orders database")
		return db.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*OrderRecord, error) {
	var order OrderRecord
	err := row.Scan(
		&order.OrderId, &order.ChainId, &order.Maker, &order.ContractAddress, &order.MakerSymbol, &order.TakerSymbol,
		&order.MakingAmount, &order.TakingAmount, &order.FilledMakingAmount, &order.FilledTakingAmount,
		&order.Status, &order.TxHash,
		&order.FirstSeenAt, &order.LastUpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
