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

package metrics

import (
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bounded label values
const (
	ErrorTimeout     = "timeout"
	ErrorRateLimit   = "rate_limit"
	ErrorAuth        = "authentication"
	ErrorNetwork     = "network"
	ErrorInvalidReq  = "invalid_request"
	ErrorServerError = "server_error"
	ErrorOther       = "other"

	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
)

// Backend API metrics
var (
	ApiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "limitorder_api_request_duration_ms",
		Help:    "Limit order backend request latency in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"endpoint"})

	ApiErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "limitorder_api_errors_total",
		Help: "Limit order backend errors by category",
	}, []string{"endpoint", "category"})

	CircuitBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "limitorder_api_circuit_breaker_state",
		Help: "Backend circuit breaker state (0=closed, 1=half-open, 2=open)",
	})
)

// Order lifecycle metrics
var (
	OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "limitorder_orders_created_total",
		Help: "Create order attempts by outcome",
	}, []string{"outcome"})

	Cancellations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "limitorder_cancellations_total",
		Help: "Cancellation requests by protocol and outcome",
	}, []string{"type", "outcome"})

	CountdownTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "limitorder_gasless_countdown_timeouts_total",
		Help: "Gasless cancellations that reached zero without confirmation",
	})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "limitorder_notifications_total",
		Help: "Push events by topic and disposition",
	}, []string{"topic", "disposition"})

	AckFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "limitorder_ack_failures_total",
		Help: "Event acknowledgements that failed",
	})

	StreamReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "limitorder_stream_reconnects_total",
		Help: "Push channel reconnect attempts by topic",
	}, []string{"topic"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "limitorder_active_amount_cache_lookups_total",
		Help: "Active making amount cache lookups by result",
	}, []string{"result"})
)

// NormalizeApiError maps an error to a bounded category
func NormalizeApiError(err error) string {
	if err == nil {
		return ""
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTimeout
	}
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
		return ErrorTimeout
	case strings.Contains(errStr, "429") || strings.Contains(errStr, "rate"):
		return ErrorRateLimit
	case strings.Contains(errStr, "401") || strings.Contains(errStr, "403"):
		return ErrorAuth
	case strings.Contains(errStr, "connection") || strings.Contains(errStr, "network"):
		return ErrorNetwork
	case strings.Contains(errStr, "http 4"):
		return ErrorInvalidReq
	case strings.Contains(errStr, "http 5"):
		return ErrorServerError
	default:
		return ErrorOther
	}
}

// RecordApiCall records a backend call with its latency and error category
func RecordApiCall(endpoint string, durationMs float64, err error) {
	ApiRequestDuration.WithLabelValues(endpoint).Observe(durationMs)
	if err != nil {
		ApiErrors.WithLabelValues(endpoint, NormalizeApiError(err)).Inc()
	}
}

// SetCircuitBreakerState records the breaker state as a number
func SetCircuitBreakerState(state int) {
	CircuitBreakerState.Set(float64(state))
}

// RecordOrderCreated records a create order outcome
func RecordOrderCreated(outcome string) {
	OrdersCreated.WithLabelValues(outcome).Inc()
}

// RecordCancellation records a cancellation outcome
func RecordCancellation(cancelType, outcome string) {
	Cancellations.WithLabelValues(cancelType, outcome).Inc()
}

// RecordNotification records how a push event was handled
func RecordNotification(topic, disposition string) {
	Notifications.WithLabelValues(topic, disposition).Inc()
}

// RecordCacheLookup records a cache hit or miss
func RecordCacheLookup(hit bool) {
	CacheLookups.WithLabelValues(strconv.FormatBool(hit)).Inc()
}
