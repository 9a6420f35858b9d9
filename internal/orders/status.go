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
	"github.com/limit-order-samples/limit-order-client-go/internal/common"
	"github.com/limit-order-samples/limit-order-client-go/internal/transactions"
	"github.com/limit-order-samples/limit-order-client-go/internal/wallet"
)

// CancelState reports cancellations awaiting confirmation
type CancelState interface {
	IsCancelling(id int64) bool
}

// CancelTxs finds the last cancel transaction sent for an order
type CancelTxs interface {
	LatestCancel(orderId int64) (transactions.Tx, bool)
}

// ApplyLocalStatus overlays client-side knowledge on backend orders: an
// active order with a cancellation in flight shows as cancelling, and one
// whose latest cancel transaction failed shows as cancelled_failed. The
// input slice is not modified.
func ApplyLocalStatus(orders []common.LimitOrder, cancelling CancelState, txs CancelTxs) []common.LimitOrder {
	out := make([]common.LimitOrder, len(orders))
	copy(out, orders)

	for i := range out {
		if !out[i].IsActive() {
			continue
		}
		if cancelling != nil && cancelling.IsCancelling(out[i].Id) {
			out[i].Status = common.OrderStatusCancelling
			continue
		}
		if txs == nil {
			continue
		}
		if tx, ok := txs.LatestCancel(out[i].Id); ok && tx.Status == wallet.TxFailed {
			out[i].Status = common.OrderStatusCancelledFailed
		}
	}
	return out
}
