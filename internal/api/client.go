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
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/limit-order-samples/limit-order-client-go/config"
	"github.com/limit-order-samples/limit-order-client-go/internal/common"
	"github.com/limit-order-samples/limit-order-client-go/internal/metrics"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrCircuitOpen is returned while the breaker rejects calls
var ErrCircuitOpen = fmt.Errorf("circuit open: %w", common.ErrServiceUnavailable)

const (
	breakerName          = "limit-order-api"
	breakerHalfOpenReqs  = 3
	breakerCountInterval = 10 * time.Second
	maxErrorBodyLength   = 200
)

// Client talks to the limit-order REST backend.
// Every call is rate limited and runs behind a circuit breaker.
type Client struct {
	baseUrl    string
	apiKey     string
	apiSecret  string
	chainId    int64
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	now        func() time.Time
}

// NewClient creates a backend client for one chain
func NewClient(cfg config.BackendConfig, chainId int64) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		baseUrl:    cfg.BaseUrl,
		apiKey:     cfg.ApiKey,
		apiSecret:  cfg.ApiSecret,
		chainId:    chainId,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), burst),
		now:        time.Now,
	}

	minRequests := cfg.BreakerMinRequests
	failureRatio := cfg.BreakerFailureRatio
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: breakerHalfOpenReqs,
		Interval:    breakerCountInterval,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= failureRatio
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			zap.L().Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.SetCircuitBreakerState(int(to))
		},
	})

	return c
}

// ChainId returns the chain the client is scoped to
func (c *Client) ChainId() int64 {
	return c.chainId
}

// isBreakerSuccess keeps client errors from tripping the breaker
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *common.ApiError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode < http.StatusInternalServerError && apiErr.StatusCode != http.StatusTooManyRequests
	}
	return errors.Is(err, context.Canceled)
}

// envelope is the backend's response wrapper
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do executes one request and decodes the envelope's data into result
func (c *Client) do(ctx context.Context, endpoint, method, path string, body, result interface{}) error {
	start := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, body, result)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = ErrCircuitOpen
	}

	metrics.RecordApiCall(endpoint, float64(time.Since(start).Milliseconds()), err)
	if err != nil {
		zap.L().Debug("Backend request failed",
			zap.String("endpoint", endpoint),
			zap.String("path", path),
			zap.Error(err))
		return err
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, result interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseUrl+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authenticate(req, method, path, payload)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, result)
}

// authenticate signs timestamp+method+path+body with the API secret
func (c *Client) authenticate(req *http.Request, method, path string, payload []byte) {
	if c.apiKey == "" {
		return
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	if c.apiSecret == "" {
		return
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(timestamp + method + path + string(payload)))

	req.Header.Set("X-TIMESTAMP", timestamp)
	req.Header.Set("X-SIGNATURE", base64.StdEncoding.EncodeToString(h.Sum(nil)))
}

func decodeResponse(resp *http.Response, result interface{}) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(bodyBytes, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &common.ApiError{StatusCode: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Code = env.Code
			apiErr.Message = env.Message
		} else {
			apiErr.Message = truncate(string(bodyBytes))
		}
		return apiErr
	}

	if decodeErr != nil {
		return fmt.Errorf("failed to decode JSON response: %w (body: %s)", decodeErr, truncate(string(bodyBytes)))
	}
	if env.Code != 0 {
		return &common.ApiError{StatusCode: resp.StatusCode, Code: env.Code, Message: env.Message}
	}

	if result == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return fmt.Errorf("failed to decode response data: %w (body: %s)", err, truncate(string(env.Data)))
	}
	return nil
}

func truncate(s string) string {
	if len(s) > maxErrorBodyLength {
		return s[:maxErrorBodyLength] + "..."
	}
	return s
}
