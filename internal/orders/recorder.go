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
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/limit-order-samples/limit-order-client-go/internal/common"
	"github.com/limit-order-samples/limit-order-client-go/internal/database"
	"github.com/limit-order-samples/limit-order-client-go/internal/notify"
	"go.uber.org/zap"
)

// Journal is the persistence the recorder writes to
type Journal interface {
	UpsertOrder(ctx context.Context, order *database.OrderRecord) error
	InsertOrderEvent(ctx context.Context, event *database.OrderEvent) error
	GetOrder(ctx context.Context, orderId int64) (*database.OrderRecord, error)
}

// EventRecorder journals push deliveries and order snapshots
type EventRecorder struct {
	db  Journal
	now func() time.Time
}

func NewEventRecorder(db Journal) *EventRecorder {
	return &EventRecorder{db: db, now: time.Now}
}

// Record appends every order delta of event to the event log and moves the
// order's snapshot forward. A failing delta does not stop the others.
func (r *EventRecorder) Record(ctx context.Context, event notify.Event) error {
	var failed int
	for _, delta := range event.Orders {
		if err := r.recordDelta(ctx, event, delta); err != nil {
			failed++
			zap.L().Error("Failed to journal order event",
				zap.Int64("order_id", delta.Id),
				zap.String("topic", string(event.Topic)),
				zap.Error(err))
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to journal %d of %d order events", failed, len(event.Orders))
	}
	return nil
}

func (r *EventRecorder) recordDelta(ctx context.Context, event notify.Event, delta notify.OrderDelta) error {
	timestamp := r.now().UTC()

	rawJson, err := json.Marshal(delta)
	if err != nil {
		return fmt.Errorf("failed to marshal order delta: %w", err)
	}

	status := deltaStatus(event.Topic, delta)
	txHash := delta.TxHash
	if txHash == "" && event.CancelAll != nil {
		txHash = event.CancelAll.TxHash
	}

	// Insert event into the log
	if err := r.db.InsertOrderEvent(ctx, &database.OrderEvent{
		OrderId:      delta.Id,
		Topic:        string(event.Topic),
		Status:       string(status),
		IsSuccessful: delta.IsSuccessful,
		TxHash:       txHash,
		FillUuid:     delta.Uuid,
		RawJson:      string(rawJson),
		ReceivedAt:   timestamp,
	}); err != nil {
		return fmt.Errorf("failed to insert order event: %w", err)
	}

	// Check if this is the first time we've seen this order
	existing, err := r.db.GetOrder(ctx, delta.Id)
	if err != nil {
		return fmt.Errorf("failed to check existing order: %w", err)
	}
	firstSeen := timestamp
	if existing != nil {
		firstSeen = existing.FirstSeenAt
		if isTerminal(common.OrderStatus(existing.Status)) && !isTerminal(status) {
			// a late fill must not revive a closed order
			status = common.OrderStatus(existing.Status)
		}
	}

	record := &database.OrderRecord{
		OrderId:            delta.Id,
		ChainId:            event.Key.ChainId,
		Maker:              common.NormalizeAddress(event.Key.Account),
		ContractAddress:    delta.ContractAddress,
		MakerSymbol:        delta.MakerAssetSymbol,
		TakerSymbol:        delta.TakerAssetSymbol,
		MakingAmount:       normalizeNumeric(delta.MakingAmount),
		TakingAmount:       normalizeNumeric(delta.TakingAmount),
		FilledMakingAmount: normalizeNumeric(delta.FilledMakingAmount),
		FilledTakingAmount: normalizeNumeric(delta.FilledTakingAmount),
		Status:             string(status),
		TxHash:             txHash,
		FirstSeenAt:        firstSeen,
		LastUpdatedAt:      timestamp,
	}
	if err := r.db.UpsertOrder(ctx, record); err != nil {
		return fmt.Errorf("failed to upsert order: %w", err)
	}

	zap.L().Debug("Journaled order event",
		zap.Int64("order_id", delta.Id),
		zap.String("topic", string(event.Topic)),
		zap.String("status", string(status)))
	return nil
}

// RecordOrders stores snapshots of orders listed from the backend
func (r *EventRecorder) RecordOrders(ctx context.Context, orders []common.LimitOrder) error {
	timestamp := r.now().UTC()
	for _, o := range orders {
		chainId, _ := strconv.ParseInt(o.ChainId, 10, 64)

		existing, err := r.db.GetOrder(ctx, o.Id)
		if err != nil {
			return fmt.Errorf("failed to check existing order: %w", err)
		}
		firstSeen := timestamp
		if existing != nil {
			firstSeen = existing.FirstSeenAt
		}

		if err := r.db.UpsertOrder(ctx, &database.OrderRecord{
			OrderId:            o.Id,
			ChainId:            chainId,
			Maker:              common.NormalizeAddress(o.Maker),
			ContractAddress:    o.ContractAddress,
			MakerSymbol:        o.MakerAssetSymbol,
			TakerSymbol:        o.TakerAssetSymbol,
			MakingAmount:       normalizeNumeric(o.MakingAmount),
			TakingAmount:       normalizeNumeric(o.TakingAmount),
			FilledMakingAmount: normalizeNumeric(o.FilledMakingAmount),
			FilledTakingAmount: normalizeNumeric(o.FilledTakingAmount),
			Status:             string(o.Status),
			TxHash:             o.TransactionHash,
			FirstSeenAt:        firstSeen,
			LastUpdatedAt:      timestamp,
		}); err != nil {
			return fmt.Errorf("failed to upsert order %d: %w", o.Id, err)
		}
	}
	return nil
}

// deltaStatus picks the status a delivery implies
func deltaStatus(topic notify.Topic, delta notify.OrderDelta) common.OrderStatus {
	switch topic {
	case notify.TopicCancelled:
		if !delta.IsSuccessful {
			return common.OrderStatusCancelledFailed
		}
		return common.OrderStatusCancelled
	case notify.TopicExpired:
		return common.OrderStatusExpired
	}
	if delta.Status != "" {
		return common.NormalizeStatus(string(delta.Status))
	}
	if delta.TakingAmount != "" && delta.FilledTakingAmount == delta.TakingAmount {
		return common.OrderStatusFilled
	}
	return common.OrderStatusPartiallyFilled
}

func isTerminal(status common.OrderStatus) bool {
	switch status {
	case common.OrderStatusFilled, common.OrderStatusCancelled, common.OrderStatusExpired, common.OrderStatusClosed:
		return true
	}
	return false
}

// normalizeNumeric maps empty strings to "0" for storage
func normalizeNumeric(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
