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

// SimpleAccountFactoryAddress is the canonical SimpleAccount factory
// deployed alongside EntryPoint v0.6.
var SimpleAccountFactoryAddress = common.HexToAddress("0x9406cc6185a346906296840746125a0e44976454")

var (
	factoryCallArgs = abi.Arguments{{Type: eth.TypeAddress}, {Type: eth.TypeUint256}}
	getAddressOut   = abi.Arguments{{Type: eth.TypeAddress}}

	executeArgs = abi.Arguments{{Type: eth.TypeAddress}, {Type: eth.TypeUint256}, {Type: eth.TypeBytes}}
)

const (
	sigGetAddress    = "getAddress(address,uint256)"
	sigCreateAccount = "createAccount(address,uint256)"
	sigExecute       = "execute(address,uint256,bytes)"
)

type accountFactory struct {
	caller  eth.Caller
	address common.Address
}

// accountAddress derives the claimant's deterministic smart-account address
// for the given account index.
func (f *accountFactory) accountAddress(ctx context.Context, owner common.Address, index *big.Int) (common.Address, error) {
	data, err := eth.PackCall(sigGetAddress, factoryCallArgs, owner, index)
	if err != nil {
		return common.Address{}, err
	}
	out, err := eth.Call(ctx, f.caller, f.address, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("userop: factory getAddress: %w", err)
	}
	vals, err := getAddressOut.Unpack(out)
	if err != nil {
		return common.Address{}, fmt.Errorf("userop: decode getAddress: %w", err)
	}
	return vals[0].(common.Address), nil
}

// initCode builds the factory-invocation bytecode placed in a user
// operation when the smart account is not yet deployed: factory address
// followed by the createAccount calldata.
func (f *accountFactory) initCode(owner common.Address, index *big.Int) ([]byte, error) {
	call, err := eth.PackCall(sigCreateAccount, factoryCallArgs, owner, index)
	if err != nil {
		return nil, err
	}
	return append(f.address.Bytes(), call...), nil
}

// executeCallData wraps a raw transaction as the smart account's execute
// call, the form the entry point dispatches.
func executeCallData(tx domain.Tx) ([]byte, error) {
	data, err := eth.PackCall(sigExecute, executeArgs, tx.To, tx.ValueOrZero(), []byte(tx.Data))
	if err != nil {
		return nil, err
	}
	return data, nil
}
