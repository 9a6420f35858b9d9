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
	"math/big"

	"github.com/limit-order-samples/limit-order-client-go/internal/common"
)

// Reduce is a pure function returning the next form state for msg.
// After any single edit exactly one of rate and output is authoritative
// and the other is derived from it.
func Reduce(s State, msg Msg) State {
	switch m := msg.(type) {
	case InputAmountChanged:
		s.InputAmount = m.Value
		s = deriveFromInput(s)
		return evaluateApproval(s)

	case OutputAmountChanged:
		s.OutputAmount = m.Value
		invert := s.Rate.Invert
		if m.Value == "" {
			s.Rate = common.RateInfo{Invert: invert}
			return s
		}
		s.Rate = common.RateInfoFromAmounts(s.InputAmount, m.Value, s.TakerToken.Decimals)
		s.Rate.Invert = invert
		return s

	case RateChanged:
		if m.Invert {
			s.Rate = common.NewInvertedRateInfo(m.Value)
		} else {
			s.Rate = common.NewRateInfo(m.Value)
		}
		return applyRate(s)

	case RateInverted:
		s.Rate = s.Rate.Inverted()
		return s

	case MarketRateLoaded:
		s.MarketRate = m.Rate
		s.MarketLoading = false
		if s.Rate.Rate == "" && s.Rate.InvertRate == "" {
			return setToMarket(s)
		}
		return s

	case MarketLoadingChanged:
		s.MarketLoading = m.Loading
		return s

	case SetToMarket:
		if s.MarketLoading || s.MarketRate == "" {
			return s
		}
		return setToMarket(s)

	case MaxInputRequested:
		return maxInput(s)

	case CurrenciesSelected:
		next := NewState()
		next.MakerToken = m.Maker
		next.TakerToken = m.Taker
		return next

	case BalanceLoaded:
		if !common.SameAddress(m.Token, s.MakerToken.Address) {
			return s
		}
		s.Balance = m.Raw
		return s

	case ActiveMakingAmountLoaded:
		if !common.SameAddress(m.Token, s.MakerToken.Address) {
			return s
		}
		s.ActiveMakingAmount = m.Raw
		return evaluateApproval(s)

	case ApprovalSubmitted:
		s.Approval = ApprovalPending
		s.ApprovalTx = m.TxHash
		return s

	case AllowanceRead:
		if !common.SameAddress(m.Token, s.MakerToken.Address) {
			return s
		}
		s.Allowance = m.Raw
		return evaluateApproval(s)

	case ApprovalFailed:
		if s.Approval != ApprovalPending || (m.TxHash != "" && m.TxHash != s.ApprovalTx) {
			return s
		}
		s.Approval = ApprovalNotApproved
		s.ApprovalTx = ""
		return s

	case ExpiryChanged:
		s.Expiry = m.Expiry
		return s

	case SubmitStarted:
		s.Submitting = true
		s.LastError = ""
		return s

	case SubmitSucceeded:
		next := NewState()
		next.MakerToken = s.MakerToken
		next.TakerToken = s.TakerToken
		next.MarketRate = s.MarketRate
		next.Balance = s.Balance
		next.Allowance = s.Allowance
		next.Approval = s.Approval
		next.ApprovalTx = s.ApprovalTx
		// the committed amount just changed; force a fresh read before the next submit
		next.ActiveMakingAmount = ""
		return next

	case SubmitFailed:
		s.Submitting = false
		s.LastError = m.Message
		return s

	case Reset:
		next := NewState()
		next.MakerToken = s.MakerToken
		next.TakerToken = s.TakerToken
		next.MarketRate = s.MarketRate
		next.MarketLoading = s.MarketLoading
		next.Balance = s.Balance
		next.ActiveMakingAmount = s.ActiveMakingAmount
		next.Allowance = s.Allowance
		next.Approval = s.Approval
		next.ApprovalTx = s.ApprovalTx
		return next
	}

	return s
}

// deriveFromInput recomputes output from the rate, or the rate from the
// output when no rate has been set
func deriveFromInput(s State) State {
	if s.InputAmount == "" {
		if !s.Rate.IsEmpty() {
			s.OutputAmount = ""
		}
		return s
	}
	if !s.Rate.IsEmpty() {
		s.OutputAmount = common.CalcOutputFromFraction(s.InputAmount, s.Rate.RateFraction, s.TakerToken.Decimals)
		return s
	}
	if s.OutputAmount != "" {
		invert := s.Rate.Invert
		s.Rate = common.RateInfoFromAmounts(s.InputAmount, s.OutputAmount, s.TakerToken.Decimals)
		s.Rate.Invert = invert
	}
	return s
}

func applyRate(s State) State {
	if s.Rate.IsEmpty() || s.InputAmount == "" {
		s.OutputAmount = ""
		return s
	}
	s.OutputAmount = common.CalcOutputFromFraction(s.InputAmount, s.Rate.RateFraction, s.TakerToken.Decimals)
	return s
}

func setToMarket(s State) State {
	invert := s.Rate.Invert
	s.Rate = common.NewRateInfo(s.MarketRate)
	s.Rate.Invert = invert
	return applyRate(s)
}

func maxInput(s State) State {
	if s.Balance == "" || s.ActiveMakingAmount == "" {
		return s
	}
	spendable := new(big.Int).Sub(common.ParseBaseUnits(s.Balance), common.ParseBaseUnits(s.ActiveMakingAmount))
	if spendable.Sign() <= 0 {
		s.InputAmount = common.DefaultZeroString
	} else {
		s.InputAmount = common.FromBaseUnits(spendable.String(), s.MakerToken.Decimals)
	}
	s = deriveFromInput(s)
	return evaluateApproval(s)
}

// evaluateApproval compares the last allowance read with the required
// spend. PENDING is only left through a sufficient read or ApprovalFailed.
func evaluateApproval(s State) State {
	if s.Allowance == "" {
		return s
	}
	sufficient := common.ParseBaseUnits(s.Allowance).Cmp(RequiredAllowance(s)) >= 0
	switch {
	case sufficient:
		s.Approval = ApprovalApproved
		s.ApprovalTx = ""
	case s.Approval == ApprovalPending:
	default:
		s.Approval = ApprovalNotApproved
	}
	return s
}

// RequiredAllowance is the new order amount plus what active orders already commit
func RequiredAllowance(s State) *big.Int {
	required := common.ParseBaseUnits(common.ToBaseUnits(s.InputAmount, s.MakerToken.Decimals))
	return required.Add(required, common.ParseBaseUnits(s.ActiveMakingAmount))
}
