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

package wallet

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// ConfirmFunc asks the holder to approve an action; false means rejected
type ConfirmFunc func(action string) bool

// ConfirmingWallet asks for approval before every signature or transaction,
// returning ErrUserRejected when declined
type ConfirmingWallet struct {
	Wallet
	confirm ConfirmFunc
}

func WithConfirmation(w Wallet, confirm ConfirmFunc) *ConfirmingWallet {
	return &ConfirmingWallet{Wallet: w, confirm: confirm}
}

func (c *ConfirmingWallet) SignTypedData(ctx context.Context, typed *apitypes.TypedData) (string, error) {
	action := "sign message"
	if typed != nil {
		action = fmt.Sprintf("sign %s for %s", typed.PrimaryType, typed.Domain.Name)
	}
	if !c.confirm(action) {
		return "", ErrUserRejected
	}
	return c.Wallet.SignTypedData(ctx, typed)
}

func (c *ConfirmingWallet) SendTransaction(ctx context.Context, to string, data []byte) (string, error) {
	selector := hexutil.Encode(data)
	if len(data) >= 4 {
		selector = hexutil.Encode(data[:4])
	}
	if !c.confirm(fmt.Sprintf("send transaction to %s (%s)", to, selector)) {
		return "", ErrUserRejected
	}
	return c.Wallet.SendTransaction(ctx, to, data)
}

func (c *ConfirmingWallet) Approve(ctx context.Context, token, spender string, amount *big.Int) (string, error) {
	if !c.confirm(fmt.Sprintf("approve %s to spend %s of %s", spender, amount, token)) {
		return "", ErrUserRejected
	}
	// the inner wallet sends directly so the holder is asked once
	return c.Wallet.Approve(ctx, token, spender, amount)
}

// PromptConfirm reads y/n answers from in, writing prompts to out
func PromptConfirm(in io.Reader, out io.Writer) ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(action string) bool {
		fmt.Fprintf(out, "Confirm %s? [y/N]: ", action)
		answer, err := reader.ReadString('\n')
		if err != nil && answer == "" {
			return false
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}
}

// AutoConfirm approves everything
func AutoConfirm(string) bool { return true }
