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
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	limitcommon "github.com/limit-order-samples/limit-order-client-go/internal/common"
	"go.uber.org/zap"
)

// ErrUserRejected is returned when the holder declines a signature or transaction
var ErrUserRejected = limitcommon.ErrUserRejected

// IsUserRejected reports whether err is a declined request (code 4001 or ACTION_REJECTED)
func IsUserRejected(err error) bool {
	return limitcommon.IsUserRejected(err)
}

// gas estimates are padded by 20%
const (
	gasBufferNumerator   = 12
	gasBufferDenominator = 10
)

// TxStatus is the on-chain outcome of a broadcast transaction
type TxStatus int

const (
	TxPending TxStatus = iota
	TxSuccess
	TxFailed
)

func (s TxStatus) String() string {
	switch s {
	case TxSuccess:
		return "success"
	case TxFailed:
		return "failed"
	}
	return "pending"
}

// Signer produces eth_signTypedData_v4 signatures
type Signer interface {
	Address() string
	SignTypedData(ctx context.Context, typed *apitypes.TypedData) (string, error)
}

// TxSender signs and broadcasts a contract call, returning its hash
type TxSender interface {
	SendTransaction(ctx context.Context, to string, data []byte) (string, error)
}

// Reader performs the read-only chain calls the controllers need
type Reader interface {
	BalanceOf(ctx context.Context, token, owner string) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender string) (*big.Int, error)
	ContractNonce(ctx context.Context, contract, maker string) (uint64, error)
	TxStatus(ctx context.Context, hash string) (TxStatus, error)
}

// Wallet is the full capability set of a connected account
type Wallet interface {
	Signer
	TxSender
	Reader
	Approve(ctx context.Context, token, spender string, amount *big.Int) (string, error)
}

// Backend is the subset of *ethclient.Client used by KeyWallet
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// KeyWallet is a Wallet backed by a local private key
type KeyWallet struct {
	backend    Backend
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainId    *big.Int
}

// NewKeyWallet creates a wallet from a hex private key (no 0x prefix)
func NewKeyWallet(backend Backend, privateKeyHex string, chainId int64) (*KeyWallet, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &KeyWallet{
		backend:    backend,
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		chainId:    big.NewInt(chainId),
	}, nil
}

func (w *KeyWallet) Address() string {
	return w.address.Hex()
}

// SignTypedData hashes per EIP-712 and returns a 65-byte signature with v in {27, 28}
func (w *KeyWallet) SignTypedData(_ context.Context, typed *apitypes.TypedData) (string, error) {
	if typed == nil {
		return "", fmt.Errorf("typed data is required")
	}
	hash, _, err := apitypes.TypedDataAndHash(*typed)
	if err != nil {
		return "", fmt.Errorf("failed to hash typed data: %w", err)
	}

	signature, err := crypto.Sign(hash, w.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign: %w", err)
	}
	signature[64] += 27

	return hexutil.Encode(signature), nil
}

// ============================================================================
// Reads
// ============================================================================

func (w *KeyWallet) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return w.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

func (w *KeyWallet) callUint(ctx context.Context, contract string, parsed abi.ABI, method string, args ...interface{}) (*big.Int, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	result, err := w.call(ctx, common.HexToAddress(contract), data)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	out, err := parsed.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	value, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s returned %T, want uint256", method, out[0])
	}
	return value, nil
}

func (w *KeyWallet) BalanceOf(ctx context.Context, token, owner string) (*big.Int, error) {
	return w.callUint(ctx, token, erc20ABI, "balanceOf", common.HexToAddress(owner))
}

func (w *KeyWallet) Allowance(ctx context.Context, token, owner, spender string) (*big.Int, error) {
	return w.callUint(ctx, token, erc20ABI, "allowance", common.HexToAddress(owner), common.HexToAddress(spender))
}

// ContractNonce reads the maker's current nonce from a limit-order contract
func (w *KeyWallet) ContractNonce(ctx context.Context, contract, maker string) (uint64, error) {
	nonce, err := w.callUint(ctx, contract, limitOrderABI, "nonce", common.HexToAddress(maker))
	if err != nil {
		return 0, err
	}
	if !nonce.IsUint64() {
		return 0, fmt.Errorf("nonce %s overflows uint64", nonce)
	}
	return nonce.Uint64(), nil
}

// Decimals reads an ERC-20 token's decimals
func (w *KeyWallet) Decimals(ctx context.Context, token string) (int32, error) {
	data, err := erc20ABI.Pack("decimals")
	if err != nil {
		return 0, err
	}
	result, err := w.call(ctx, common.HexToAddress(token), data)
	if err != nil {
		return 0, fmt.Errorf("decimals call failed: %w", err)
	}
	var decimals uint8
	if err := erc20ABI.UnpackIntoInterface(&decimals, "decimals", result); err != nil {
		return 0, fmt.Errorf("failed to unpack decimals: %w", err)
	}
	return int32(decimals), nil
}

// TxStatus reports whether hash is mined and whether it succeeded
func (w *KeyWallet) TxStatus(ctx context.Context, hash string) (TxStatus, error) {
	receipt, err := w.backend.TransactionReceipt(ctx, common.HexToHash(hash))
	if errors.Is(err, ethereum.NotFound) {
		return TxPending, nil
	}
	if err != nil {
		return TxPending, err
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		return TxSuccess, nil
	}
	return TxFailed, nil
}

// ============================================================================
// Writes
// ============================================================================

// SendTransaction signs and broadcasts a call to `to`
func (w *KeyWallet) SendTransaction(ctx context.Context, to string, data []byte) (string, error) {
	toAddr := common.HexToAddress(to)

	nonce, err := w.backend.PendingNonceAt(ctx, w.address)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := w.backend.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get gas price: %w", err)
	}
	gas, err := w.backend.EstimateGas(ctx, ethereum.CallMsg{From: w.address, To: &toAddr, Data: data})
	if err != nil {
		return "", fmt.Errorf("failed to estimate gas: %w", err)
	}
	gas = gas * gasBufferNumerator / gasBufferDenominator

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &toAddr,
		Value:    big.NewInt(0),
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(w.chainId), w.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := w.backend.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	zap.L().Info("Transaction broadcast",
		zap.String("tx_hash", signedTx.Hash().Hex()),
		zap.String("to", toAddr.Hex()),
		zap.Uint64("nonce", nonce))

	return signedTx.Hash().Hex(), nil
}

// Approve sends an ERC-20 approve(spender, amount)
func (w *KeyWallet) Approve(ctx context.Context, token, spender string, amount *big.Int) (string, error) {
	data, err := erc20ABI.Pack("approve", common.HexToAddress(spender), amount)
	if err != nil {
		return "", fmt.Errorf("failed to pack approve: %w", err)
	}
	return w.SendTransaction(ctx, token, data)
}
