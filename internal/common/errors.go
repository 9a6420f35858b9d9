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

package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUserRejected is returned when the wallet holder declines a signature or transaction
	ErrUserRejected = errors.New("user rejected the request")

	// ErrServiceUnavailable is returned while the backend circuit is open
	ErrServiceUnavailable = errors.New("limit order service temporarily unavailable")
)

// UserRejectedCode is the EIP-1193 code for a declined request
const UserRejectedCode = 4001

// ApiError is a non-success response from the limit-order backend
type ApiError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *ApiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s (code %d)", e.StatusCode, e.Message, e.Code)
}

// CodedError is implemented by wallet errors that carry an RPC error code
type CodedError interface {
	ErrorCode() int
}

// IsUserRejected reports whether err represents a declined wallet request
func IsUserRejected(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUserRejected) {
		return true
	}
	var coded CodedError
	if errors.As(err, &coded) && coded.ErrorCode() == UserRejectedCode {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "action_rejected") || strings.Contains(msg, "user rejected") || strings.Contains(msg, "user denied")
}

// FriendlyError translates a raw error into a message fit for the user
func FriendlyError(err error) string {
	if err == nil {
		return ""
	}
	if IsUserRejected(err) {
		return "Transaction was rejected. Please try again."
	}
	if errors.Is(err, ErrServiceUnavailable) {
		return "The limit order service is temporarily unavailable. Please try again shortly."
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The request timed out. Please try again."
	}

	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return "Too many requests. Please wait a moment and try again."
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return "The limit order service encountered an error. Please try again."
		case apiErr.Message != "":
			return apiErr.Message
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return "Insufficient funds for gas. Please top up your balance."
	case strings.Contains(msg, "nonce too low"), strings.Contains(msg, "replacement transaction underpriced"):
		return "A previous transaction is still pending. Please wait for it to confirm."
	case strings.Contains(msg, "execution reverted"):
		return "The transaction would fail on chain."
	}
	return "Something went wrong. Please try again."
}
