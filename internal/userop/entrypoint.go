package userop

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/gib-ens/gasless-registrar/internal/domain"
	"github.com/gib-ens/gasless-registrar/internal/eth"
)

// EntryPointAddress is the canonical v0.6 EntryPoint singleton.
var EntryPointAddress = common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")

var userOpTuple = eth.MustType("tuple", []abi.ArgumentMarshaling{
	{Name: "sender", Type: "address"},
	{Name: "nonce", Type: "uint256"},
	{Name: "initCode", Type: "bytes"},
	{Name: "callData", Type: "bytes"},
	{Name: "callGasLimit", Type: "uint256"},
	{Name: "verificationGasLimit", Type: "uint256"},
	{Name: "preVerificationGas", Type: "uint256"},
	{Name: "maxFeePerGas", Type: "uint256"},
	{Name: "maxPriorityFeePerGas", Type: "uint256"},
	{Name: "paymasterAndData", Type: "bytes"},
	{Name: "signature", Type: "bytes"},
})

var (
	getNonceArgs = abi.Arguments{{Type: eth.TypeAddress}, {Type: eth.TypeUint192}}
	getNonceOut  = abi.Arguments{{Type: eth.TypeUint256}}

	getUserOpHashArgs = abi.Arguments{{Type: userOpTuple}}
	getUserOpHashOut  = abi.Arguments{{Type: eth.TypeBytes32}}
)

const (
	sigGetNonce      = "getNonce(address,uint192)"
	sigGetUserOpHash = "getUserOpHash((address,uint256,bytes,bytes,uint256,uint256,uint256,uint256,uint256,bytes,bytes))"
)

// userOpABI mirrors the EntryPoint's UserOperation struct for abi packing.
type userOpABI struct {
	Sender               common.Address
	Nonce                *big.Int
	InitCode             []byte
	CallData             []byte
	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	PaymasterAndData     []byte
	Signature            []byte
}

func toUserOpABI(op domain.UserOperation) userOpABI {
	return userOpABI{
		Sender:               op.Sender,
		Nonce:                op.Nonce.ToInt(),
		InitCode:             op.InitCode,
		CallData:             op.CallData,
		CallGasLimit:         op.CallGasLimit.ToInt(),
		VerificationGasLimit: op.VerificationGasLimit.ToInt(),
		PreVerificationGas:   op.PreVerificationGas.ToInt(),
		MaxFeePerGas:         op.MaxFeePerGas.ToInt(),
		MaxPriorityFeePerGas: op.MaxPriorityFeePerGas.ToInt(),
		PaymasterAndData:     op.PaymasterAndData,
		Signature:            op.Signature,
	}
}

type entryPoint struct {
	caller  eth.Caller
	address common.Address
}

// getNonce reads the smart account's current nonce for the given key.
func (e *entryPoint) getNonce(ctx context.Context, account common.Address, key *big.Int) (*big.Int, error) {
	data, err := eth.PackCall(sigGetNonce, getNonceArgs, account, key)
	if err != nil {
		return nil, err
	}
	out, err := eth.Call(ctx, e.caller, e.address, data)
	if err != nil {
		return nil, fmt.Errorf("userop: getNonce: %w", err)
	}
	vals, err := getNonceOut.Unpack(out)
	if err != nil {
		return nil, fmt.Errorf("userop: decode getNonce: %w", err)
	}
	return vals[0].(*big.Int), nil
}

// getUserOpHash computes the operation's canonical hash via the entry
// point itself, so the hash always matches what the claimant signs over.
func (e *entryPoint) getUserOpHash(ctx context.Context, op domain.UserOperation) (common.Hash, error) {
	data, err := eth.PackCall(sigGetUserOpHash, getUserOpHashArgs, toUserOpABI(op))
	if err != nil {
		return common.Hash{}, err
	}
	out, err := eth.Call(ctx, e.caller, e.address, data)
	if err != nil {
		return common.Hash{}, fmt.Errorf("userop: getUserOpHash: %w", err)
	}
	vals, err := getUserOpHashOut.Unpack(out)
	if err != nil {
		return common.Hash{}, fmt.Errorf("userop: decode getUserOpHash: %w", err)
	}
	return common.Hash(vals[0].([32]byte)), nil
}
