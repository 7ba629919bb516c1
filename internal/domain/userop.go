package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Tx is a raw transaction destined to be wrapped into a user operation.
type Tx struct {
	To       common.Address `json:"to"`
	Value    *hexutil.Big   `json:"value,omitempty"`
	Data     hexutil.Bytes  `json:"data"`
	GasLimit uint64         `json:"gasLimit,omitempty"`
}

// ValueOrZero returns the transfer value, treating nil as zero.
func (t Tx) ValueOrZero() *big.Int {
	if t.Value == nil {
		return new(big.Int)
	}
	return (*big.Int)(t.Value)
}

// UserOperation is an EIP-4337 operation in its wire (hex-quantity) form.
// Gas fields and paymaster data come back from the sponsor relayer; the
// signature field stays empty until the claimant signs.
type UserOperation struct {
	Sender               common.Address `json:"sender"`
	Nonce                *hexutil.Big   `json:"nonce"`
	InitCode             hexutil.Bytes  `json:"initCode"`
	CallData             hexutil.Bytes  `json:"callData"`
	CallGasLimit         *hexutil.Big   `json:"callGasLimit"`
	VerificationGasLimit *hexutil.Big   `json:"verificationGasLimit"`
	PreVerificationGas   *hexutil.Big   `json:"preVerificationGas"`
	MaxFeePerGas         *hexutil.Big   `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big   `json:"maxPriorityFeePerGas"`
	PaymasterAndData     hexutil.Bytes  `json:"paymasterAndData"`
	Signature            hexutil.Bytes  `json:"signature"`
}

// UserOpAndHash bundles a built operation with its entry-point hash.
// This is the unit cached per (job, step).
type UserOpAndHash struct {
	UserOp UserOperation `json:"userOp"`
	Hash   common.Hash   `json:"hash"`
}

// UserOpReceipt is the bundler's receipt for a submitted user operation.
type UserOpReceipt struct {
	UserOpHash    common.Hash    `json:"userOpHash"`
	EntryPoint    common.Address `json:"entryPoint"`
	Sender        common.Address `json:"sender"`
	Paymaster     common.Address `json:"paymaster"`
	Success       bool           `json:"success"`
	ActualGasCost *hexutil.Big   `json:"actualGasCost"`
	ActualGasUsed *hexutil.Big   `json:"actualGasUsed"`
	Reason        string         `json:"reason,omitempty"`
}
