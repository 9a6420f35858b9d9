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

package api

import (
	"github.com/limit-order-samples/limit-order-client-go/internal/common"
)

// ============================================================================
// Create Order
// ============================================================================

// OrderParams describes the order to be signed. Amounts are base units.
type OrderParams struct {
	ChainId      string `json:"chainId"`
	MakerAsset   string `json:"makerAsset"`
	TakerAsset   string `json:"takerAsset"`
	Maker        string `json:"maker"`
	Receiver     string `json:"receiver,omitempty"`
	MakingAmount string `json:"makingAmount"`
	TakingAmount string `json:"takingAmount"`
	ExpiredAt    int64  `json:"expiredAt"`
	Salt         string `json:"salt"`
}

// CreateOrderRequest is OrderParams plus the maker's signature
type CreateOrderRequest struct {
	OrderParams
	Signature string `json:"signature"`
}

type createOrderResponse struct {
	Id int64 `json:"id"`
}

// ============================================================================
// Query
// ============================================================================

// ListOrdersParams filters GET /orders
type ListOrdersParams struct {
	Maker      string
	MakerAsset string
	TakerAsset string
	Status     string // "active", "open", "closed" ...
	Page       int
	PageSize   int
}

// OrderPage is one page of orders
type OrderPage struct {
	Orders     []common.LimitOrder `json:"orders"`
	Pagination struct {
		TotalItems int `json:"totalItems"`
	} `json:"pagination"`
}

type activeMakingAmountResponse struct {
	ActiveMakingAmount string `json:"activeMakingAmount"`
}

type marketRateResponse struct {
	Rate string `json:"rate"`
}

// ============================================================================
// Cancel
// ============================================================================

// EncodeCancelRequest asks the backend for on-chain cancel calldata.
// Either OrderIds or IsCancelAll (with the contract and its current nonce) is set.
type EncodeCancelRequest struct {
	OrderIds        []int64 `json:"orderIds,omitempty"`
	IsCancelAll     bool    `json:"isCancelAll,omitempty"`
	ContractAddress string  `json:"contractAddress,omitempty"`
	Nonce           uint64  `json:"nonce,omitempty"`
}

// EncodedTx is unsigned calldata for the limit-order contract
type EncodedTx struct {
	To   string `json:"to"`
	Data string `json:"encodedData"`
}

// GaslessCancelRequest identifies the orders to cancel without gas
type GaslessCancelRequest struct {
	ChainId  string  `json:"chainId"`
	Maker    string  `json:"maker"`
	OrderIds []int64 `json:"orderIds"`
}

type submitGaslessCancelRequest struct {
	ChainId   string  `json:"chainId"`
	Maker     string  `json:"maker"`
	OrderIds  []int64 `json:"orderIds"`
	Signature string  `json:"signature"`
}

// GaslessCancelResult is the operator's acceptance of a signed cancel
type GaslessCancelResult struct {
	OrderIds                   []int64 `json:"orderIds"`
	OperatorSignatureExpiredAt int64   `json:"operatorSignatureExpiredAt"`
}

// ============================================================================
// Events
// ============================================================================

// AckRequest acknowledges delivered push events so the backend stops redelivering
type AckRequest struct {
	ChainId  string   `json:"chainId"`
	Maker    string   `json:"maker"`
	Status   string   `json:"status"`
	OrderIds []int64  `json:"orderIds,omitempty"`
	Uuids    []string `json:"uuids,omitempty"`
}
