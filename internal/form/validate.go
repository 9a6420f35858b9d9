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
	"errors"
	"math/big"

	"github.com/limit-order-samples/limit-order-client-go/internal/common"
)

var (
	ErrCurrenciesRequired    = errors.New("select both currencies")
	ErrEmptyAmount           = errors.New("enter an amount")
	ErrEmptyOutput           = errors.New("enter the amount to receive")
	ErrEmptyRate             = errors.New("enter a rate")
	ErrActiveAmountNotLoaded = errors.New("active order amount is still loading")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrNotApproved           = errors.New("token spend is not approved")
	ErrExpiryRequired        = errors.New("select an expiry")
	ErrSubmitting            = errors.New("an order is already being submitted")
)

// Field names used in InputError
const (
	FieldCurrencies = "currencies"
	FieldInput      = "inputAmount"
	FieldOutput     = "outputAmount"
	FieldRate       = "rate"
	FieldExpiry     = "expiry"
	FieldApproval   = "approval"
)

// InputError is a validation failure shown next to a form field
type InputError struct {
	Field   string
	Message string
	Err     error
}

func (e *InputError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *InputError) Unwrap() error {
	return e.Err
}

func inputError(field string, err error) *InputError {
	return &InputError{Field: field, Message: err.Error(), Err: err}
}

// Validate returns the first problem blocking submission, or nil
func Validate(s State) error {
	if s.Submitting {
		return ErrSubmitting
	}
	if !s.HasCurrencies() {
		return inputError(FieldCurrencies, ErrCurrenciesRequired)
	}
	if !isPositive(s.InputAmount) {
		return inputError(FieldInput, ErrEmptyAmount)
	}
	if s.Rate.IsEmpty() {
		return inputError(FieldRate, ErrEmptyRate)
	}
	if !isPositive(s.OutputAmount) || common.ToBaseUnits(s.OutputAmount, s.TakerToken.Decimals) == "0" {
		return inputError(FieldOutput, ErrEmptyOutput)
	}
	if s.ActiveMakingAmount == "" {
		return inputError(FieldInput, ErrActiveAmountNotLoaded)
	}
	if s.Balance != "" && RequiredAllowance(s).Cmp(common.ParseBaseUnits(s.Balance)) > 0 {
		return inputError(FieldInput, ErrInsufficientBalance)
	}
	if s.Expiry <= 0 {
		return inputError(FieldExpiry, ErrExpiryRequired)
	}
	if s.Approval != ApprovalApproved {
		return inputError(FieldApproval, ErrNotApproved)
	}
	return nil
}

func isPositive(amount string) bool {
	d, ok := common.ParseDecimal(amount)
	return ok && d.IsPositive()
}

// NeedsApproval reports whether the wallet must approve more spend first
func NeedsApproval(s State) bool {
	if s.Allowance == "" {
		return s.Approval != ApprovalApproved
	}
	return common.ParseBaseUnits(s.Allowance).Cmp(RequiredAllowance(s)) < 0
}

// makingAmount returns the input in maker base units
func makingAmount(s State) *big.Int {
	return common.ParseBaseUnits(common.ToBaseUnits(s.InputAmount, s.MakerToken.Decimals))
}
