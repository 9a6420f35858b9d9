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
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/limit-order-samples/limit-order-client-go/internal/common"
)

func (c *Client) chainIdString() string {
	return strconv.FormatInt(c.chainId, 10)
}

// ============================================================================
// Create Order
// ============================================================================

// CreateOrderSignMessage returns the EIP-712 payload the maker must sign
func (c *Client) CreateOrderSignMessage(ctx context.Context, params OrderParams) (*apitypes.TypedData, error) {
	if params.ChainId == "" {
		params.ChainId = c.chainIdString()
	}
	var typed apitypes.TypedData
	if err := c.do(ctx, "create_order_sign_message", http.MethodPost, "/orders/sign-message", params, &typed); err != nil {
		return nil, fmt.Errorf("failed to get order sign message: %w", err)
	}
	return &typed, nil
}

// CreateOrder submits a signed order and returns its backend id
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (int64, error) {
	if req.ChainId == "" {
		req.ChainId = c.chainIdString()
	}
	var resp createOrderResponse
	if err := c.do(ctx, "create_order", http.MethodPost, "/orders", req, &resp); err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}
	return resp.Id, nil
}

// ============================================================================
// Query
// ============================================================================

// ListOrders returns one page of the maker's orders
func (c *Client) ListOrders(ctx context.Context, params ListOrdersParams) (*OrderPage, error) {
	q := url.Values{}
	q.Set("chainId", c.chainIdString())
	if params.Maker != "" {
		q.Set("maker", params.Maker)
	}
	if params.MakerAsset != "" {
		q.Set("makerAsset", params.MakerAsset)
	}
	if params.TakerAsset != "" {
		q.Set("takerAsset", params.TakerAsset)
	}
	if params.Status != "" {
		q.Set("status", params.Status)
	}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(params.PageSize))
	}

	var page OrderPage
	if err := c.do(ctx, "list_orders", http.MethodGet, "/orders?"+q.Encode(), nil, &page); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	for i := range page.Orders {
		page.Orders[i].Status = common.NormalizeStatus(string(page.Orders[i].Status))
	}
	return &page, nil
}

// ListOrderBook returns all active orders for a pair, any maker
func (c *Client) ListOrderBook(ctx context.Context, makerAsset, takerAsset string) ([]common.LimitOrder, error) {
	q := url.Values{}
	q.Set("chainId", c.chainIdString())
	q.Set("makerAsset", makerAsset)
	q.Set("takerAsset", takerAsset)

	var resp struct {
		Orders []common.LimitOrder `json:"orders"`
	}
	if err := c.do(ctx, "list_order_book", http.MethodGet, "/orders/book?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list order book: %w", err)
	}
	return resp.Orders, nil
}

// GetActiveMakingAmount returns the maker's committed amount of token across active orders
func (c *Client) GetActiveMakingAmount(ctx context.Context, maker, token string) (string, error) {
	q := url.Values{}
	q.Set("chainId", c.chainIdString())
	q.Set("maker", maker)
	q.Set("makerAsset", token)

	var resp activeMakingAmountResponse
	if err := c.do(ctx, "active_making_amount", http.MethodGet, "/orders/active-making-amount?"+q.Encode(), nil, &resp); err != nil {
		return "", fmt.Errorf("failed to get active making amount: %w", err)
	}
	if resp.ActiveMakingAmount == "" {
		return common.DefaultZeroString, nil
	}
	return resp.ActiveMakingAmount, nil
}

// GetMarketRate returns the current taker-per-maker market rate
func (c *Client) GetMarketRate(ctx context.Context, makerAsset, takerAsset string) (string, error) {
	q := url.Values{}
	q.Set("chainId", c.chainIdString())
	q.Set("makerAsset", makerAsset)
	q.Set("takerAsset", takerAsset)

	var resp marketRateResponse
	if err := c.do(ctx, "market_rate", http.MethodGet, "/market-rate?"+q.Encode(), nil, &resp); err != nil {
		return "", fmt.Errorf("failed to get market rate: %w", err)
	}
	return resp.Rate, nil
}

// ============================================================================
// Cancel
// ============================================================================

// EncodeCancel returns calldata for a hard cancel
func (c *Client) EncodeCancel(ctx context.Context, req EncodeCancelRequest) (*EncodedTx, error) {
	if len(req.OrderIds) == 0 && !req.IsCancelAll {
		return nil, fmt.Errorf("orderIds or isCancelAll is required")
	}
	var tx EncodedTx
	if err := c.do(ctx, "encode_cancel", http.MethodPost, "/orders/cancel/encode", req, &tx); err != nil {
		return nil, fmt.Errorf("failed to encode cancel: %w", err)
	}
	return &tx, nil
}

// GetCancelTypedData returns the EIP-712 payload for a gasless cancel
func (c *Client) GetCancelTypedData(ctx context.Context, req GaslessCancelRequest) (*apitypes.TypedData, error) {
	if req.ChainId == "" {
		req.ChainId = c.chainIdString()
	}
	var typed apitypes.TypedData
	if err := c.do(ctx, "cancel_sign_message", http.MethodPost, "/orders/cancel/sign-message", req, &typed); err != nil {
		return nil, fmt.Errorf("failed to get cancel sign message: %w", err)
	}
	return &typed, nil
}

// SubmitGaslessCancel hands the signed cancel to the operator
func (c *Client) SubmitGaslessCancel(ctx context.Context, req GaslessCancelRequest, signature string) (*GaslessCancelResult, error) {
	if req.ChainId == "" {
		req.ChainId = c.chainIdString()
	}
	body := submitGaslessCancelRequest{
		ChainId:   req.ChainId,
		Maker:     req.Maker,
		OrderIds:  req.OrderIds,
		Signature: signature,
	}
	var result GaslessCancelResult
	if err := c.do(ctx, "gasless_cancel", http.MethodPost, "/orders/cancel", body, &result); err != nil {
		return nil, fmt.Errorf("failed to submit gasless cancel: %w", err)
	}
	return &result, nil
}

// ============================================================================
// Events
// ============================================================================

// AckEvents acknowledges delivered events
func (c *Client) AckEvents(ctx context.Context, req AckRequest) error {
	if req.ChainId == "" {
		req.ChainId = c.chainIdString()
	}
	if err := c.do(ctx, "ack_events", http.MethodDelete, "/events", req, nil); err != nil {
		return fmt.Errorf("failed to acknowledge %s events: %w", req.Status, err)
	}
	return nil
}
