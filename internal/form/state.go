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

package form

import (
	"time"

	"github.com/limit-order-samples/limit-order-client-go/internal/common"
)

// DefaultExpiry is the order lifetime used until the user picks one
const DefaultExpiry = 7 * 24 * time.Hour

// ApprovalState tracks maker-token allowance against the required spend
type ApprovalState int

const (
	ApprovalUnknown ApprovalState = iota
	ApprovalNotApproved
	ApprovalPending
	ApprovalApproved
)

func (a ApprovalState) String() string {
	switch a {
	case ApprovalNotApproved:
		return "NOT_APPROVED"
	case ApprovalPending:
		return "PENDING"
	case ApprovalApproved:
		return "APPROVED"
	}
	return "UNKNOWN"
}

// State is everything the order form shows. Amounts typed by the user are
// human decimal strings; wallet and backend reads are base-unit strings.
type State struct {
	MakerToken common.Token
	TakerToken common.Token

	InputAmount  string
	OutputAmount string
	Rate         common.RateInfo
	Expiry       time.Duration

	MarketRate    string
	MarketLoading bool

	// base units; empty means not loaded yet
	Balance            string
	ActiveMakingAmount string
	Allowance          string

	Approval   ApprovalState
	ApprovalTx string

	Submitting bool
	LastError  string
}

// NewState returns the form defaults
func NewState() State {
	return State{Expiry: DefaultExpiry}
}

// HasCurrencies reports whether both sides of the pair are chosen
func (s State) HasCurrencies() bool {
	return s.MakerToken.Address != "" && s.TakerToken.Address != ""
}

// ============================================================================
// Messages
// ============================================================================

// Msg is a state transition consumed by Reduce
type Msg interface {
	isMsg()
}

// InputAmountChanged: the user typed a maker amount
type InputAmountChanged struct{ Value string }

// OutputAmountChanged: the user typed a taker amount
type OutputAmountChanged struct{ Value string }

// RateChanged: the user typed a rate; Invert marks a maker-per-taker value
type RateChanged struct {
	Value  string
	Invert bool
}

// RateInverted flips the displayed rate orientation
type RateInverted struct{}

// MarketRateLoaded carries a fresh taker-per-maker market rate
type MarketRateLoaded struct{ Rate string }

// MarketLoadingChanged marks market data as loading or settled
type MarketLoadingChanged struct{ Loading bool }

// SetToMarket copies the market rate into the form
type SetToMarket struct{}

// MaxInputRequested fills the input with the spendable balance
type MaxInputRequested struct{}

// CurrenciesSelected picks a new pair and clears pair-specific state
type CurrenciesSelected struct {
	Maker common.Token
	Taker common.Token
}

// BalanceLoaded carries the maker token wallet balance
type BalanceLoaded struct {
	Token string
	Raw   string
}

// ActiveMakingAmountLoaded carries the amount already committed to active orders
type ActiveMakingAmountLoaded struct {
	Token string
	Raw   string
}

// ApprovalSubmitted: an approve transaction was broadcast
type ApprovalSubmitted struct{ TxHash string }

// AllowanceRead carries a fresh on-chain allowance read
type AllowanceRead struct {
	Token string
	Raw   string
}

// ApprovalFailed: the approve transaction failed or was rejected
type ApprovalFailed struct{ TxHash string }

// ExpiryChanged sets the order lifetime
type ExpiryChanged struct{ Expiry time.Duration }

type SubmitStarted struct{}

type SubmitSucceeded struct{ OrderId int64 }

// SubmitFailed keeps every input so the user can retry
type SubmitFailed struct{ Message string }

// Reset returns to defaults, keeping the selected pair
type Reset struct{}

func (InputAmountChanged) isMsg()       {}
func (OutputAmountChanged) isMsg()      {}
func (RateChanged) isMsg()              {}
func (RateInverted) isMsg()             {}
func (MarketRateLoaded) isMsg()         {}
func (MarketLoadingChanged) isMsg()     {}
func (SetToMarket) isMsg()              {}
func (MaxInputRequested) isMsg()        {}
func (CurrenciesSelected) isMsg()       {}
func (BalanceLoaded) isMsg()            {}
func (ActiveMakingAmountLoaded) isMsg() {}
func (ApprovalSubmitted) isMsg()        {}
func (AllowanceRead) isMsg()            {}
func (ApprovalFailed) isMsg()           {}
func (ExpiryChanged) isMsg()            {}
func (SubmitStarted) isMsg()            {}
func (SubmitSucceeded) isMsg()          {}
func (SubmitFailed) isMsg()             {}
func (Reset) isMsg()                    {}
