package ens

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/gib-ens/gasless-registrar/internal/domain"
	"github.com/gib-ens/gasless-registrar/internal/eth"
)

// Calldata and call encoding for the ETH registrar controller. The
// controller's commitment hash is computed on-chain via eth_call so the
// exact packing always matches what commit/register verify against.

const commitGasLimit = 100_000

var (
	typeBytesSlice = eth.MustType("bytes[]", nil)
	typeUint16     = eth.MustType("uint16", nil)

	availableArgs = abi.Arguments{{Type: eth.TypeString}}
	availableOut  = abi.Arguments{{Type: eth.TypeBool}}

	rentPriceArgs = abi.Arguments{{Type: eth.TypeString}, {Type: eth.TypeUint256}}
	rentPriceOut  = abi.Arguments{{Type: eth.TypeUint256}, {Type: eth.TypeUint256}}

	makeCommitmentArgs = abi.Arguments{
		{Type: eth.TypeString},  // name
		{Type: eth.TypeAddress}, // owner
		{Type: eth.TypeUint256}, // duration
		{Type: eth.TypeBytes32}, // secret
		{Type: eth.TypeAddress}, // resolver
		{Type: typeBytesSlice},  // data
		{Type: eth.TypeBool},    // reverseRecord
		{Type: typeUint16},      // ownerControlledFuses
	}
	makeCommitmentOut = abi.Arguments{{Type: eth.TypeBytes32}}

	commitmentsArgs = abi.Arguments{{Type: eth.TypeBytes32}}
	commitmentsOut  = abi.Arguments{{Type: eth.TypeUint256}}

	commitArgs = abi.Arguments{{Type: eth.TypeBytes32}}
)

const (
	sigAvailable      = "available(string)"
	sigRentPrice      = "rentPrice(string,uint256)"
	sigMakeCommitment = "makeCommitment(string,address,uint256,bytes32,address,bytes[],bool,uint16)"
	sigCommitments    = "commitments(bytes32)"
	sigCommit         = "commit(bytes32)"
)

type controller struct {
	caller  eth.Caller
	address common.Address
}

func (c *controller) available(ctx context.Context, name string) (bool, error) {
	data, err := eth.PackCall(sigAvailable, availableArgs, name)
	if err != nil {
		return false, err
	}
	out, err := eth.Call(ctx, c.caller, c.address, data)
	if err != nil {
		return false, fmt.Errorf("ens: available: %w", err)
	}
	vals, err := availableOut.Unpack(out)
	if err != nil {
		return false, fmt.Errorf("ens: decode available: %w", err)
	}
	return vals[0].(bool), nil
}

// rentPrice returns base + premium for registering name for duration seconds.
func (c *controller) rentPrice(ctx context.Context, name string, duration uint64) (*big.Int, error) {
	data, err := eth.PackCall(sigRentPrice, rentPriceArgs, name, new(big.Int).SetUint64(duration))
	if err != nil {
		return nil, err
	}
	out, err := eth.Call(ctx, c.caller, c.address, data)
	if err != nil {
		return nil, fmt.Errorf("ens: rentPrice: %w", err)
	}
	vals, err := rentPriceOut.Unpack(out)
	if err != nil {
		return nil, fmt.Errorf("ens: decode rentPrice: %w", err)
	}
	base := vals[0].(*big.Int)
	premium := vals[1].(*big.Int)
	return new(big.Int).Add(base, premium), nil
}

func (c *controller) makeCommitment(ctx context.Context, p domain.ENSParams) (common.Hash, error) {
	data, err := eth.PackCall(sigMakeCommitment, makeCommitmentArgs,
		p.Name,
		p.Owner,
		new(big.Int).SetUint64(p.Duration),
		eth.Bytes32(p.Secret),
		p.Resolver,
		eth.BytesSlice(p.Data),
		p.ReverseRecord,
		p.OwnerControlledFuses,
	)
	if err != nil {
		return common.Hash{}, err
	}
	out, err := eth.Call(ctx, c.caller, c.address, data)
	if err != nil {
		return common.Hash{}, fmt.Errorf("ens: makeCommitment: %w", err)
	}
	vals, err := makeCommitmentOut.Unpack(out)
	if err != nil {
		return common.Hash{}, fmt.Errorf("ens: decode makeCommitment: %w", err)
	}
	return common.Hash(vals[0].([32]byte)), nil
}

// commitmentTimestamp returns the block timestamp the commitment was
// recorded at, or zero if the hash is unknown to the registrar.
func (c *controller) commitmentTimestamp(ctx context.Context, commitment common.Hash) (uint64, error) {
	data, err := eth.PackCall(sigCommitments, commitmentsArgs, commitment)
	if err != nil {
		return 0, err
	}
	out, err := eth.Call(ctx, c.caller, c.address, data)
	if err != nil {
		return 0, fmt.Errorf("ens: commitments: %w", err)
	}
	vals, err := commitmentsOut.Unpack(out)
	if err != nil {
		return 0, fmt.Errorf("ens: decode commitments: %w", err)
	}
	return vals[0].(*big.Int).Uint64(), nil
}

func (c *controller) commitTx(commitment common.Hash) (domain.Tx, error) {
	data, err := eth.PackCall(sigCommit, commitArgs, commitment)
	if err != nil {
		return domain.Tx{}, err
	}
	return domain.Tx{
		To:       c.address,
		Data:     data,
		GasLimit: commitGasLimit,
	}, nil
}

