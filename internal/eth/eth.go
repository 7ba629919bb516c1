// Package eth holds the small amount of contract-call plumbing shared by the
// registrar, voucher, and user-operation clients: the chain-read interface
// they depend on and helpers for hand-rolled ABI method encoding.
package eth

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Caller is the read-only chain surface this system needs. *ethclient.Client
// satisfies it; tests provide fakes.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// MustType parses an ABI type expression, panicking on malformed input.
// Only used for package-level type constants.
func MustType(t string, components []abi.ArgumentMarshaling) abi.Type {
	ty, err := abi.NewType(t, "", components)
	if err != nil {
		panic(fmt.Sprintf("eth: bad abi type %q: %v", t, err))
	}
	return ty
}

var (
	TypeAddress = MustType("address", nil)
	TypeUint256 = MustType("uint256", nil)
	TypeUint192 = MustType("uint192", nil)
	TypeBytes32 = MustType("bytes32", nil)
	TypeBytes   = MustType("bytes", nil)
	TypeBool    = MustType("bool", nil)
	TypeString  = MustType("string", nil)
)

// Selector returns the 4-byte method id for a canonical signature.
func Selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

// PackCall builds calldata from a selector signature and packed arguments.
func PackCall(signature string, args abi.Arguments, values ...interface{}) ([]byte, error) {
	packed, err := args.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("eth: pack %s: %w", signature, err)
	}
	return append(Selector(signature), packed...), nil
}

// Call performs an eth_call against the given contract at the latest block.
func Call(ctx context.Context, caller Caller, to common.Address, data []byte) ([]byte, error) {
	return caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// Bytes32 copies a byte slice into the fixed array form the abi package
// packs bytes32 values from.
func Bytes32(b []byte) [32]byte {
	var out [32]byte
	copy(out[:], b)
	return out
}

// BytesSlice converts hex-encoded byte strings to the form the abi package
// packs bytes[] values from.
func BytesSlice(in []hexutil.Bytes) [][]byte {
	out := make([][]byte, len(in))
	for i, b := range in {
		out[i] = b
	}
	return out
}
