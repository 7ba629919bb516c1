package voucher

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/gib-ens/gasless-registrar/internal/domain"
	"github.com/gib-ens/gasless-registrar/internal/eth"
)

// Voucher contract call encoding. The contract reverts with human-readable
// reasons ("Invalid signature", "The expiration window has passed.",
// "Insufficient contract balance for registration", "User has already
// redeemed for this event."); those are terminal for the signed payload
// that triggered them, never retried.

const completeRegistrationGasLimit = 800_000

var ensParamsTuple = eth.MustType("tuple", []abi.ArgumentMarshaling{
	{Name: "name", Type: "string"},
	{Name: "owner", Type: "address"},
	{Name: "duration", Type: "uint256"},
	{Name: "secret", Type: "bytes32"},
	{Name: "resolver", Type: "address"},
	{Name: "data", Type: "bytes[]"},
	{Name: "reverseRecord", Type: "bool"},
	{Name: "ownerControlledFuses", Type: "uint16"},
})

var (
	getRedeemResultArgs = abi.Arguments{{Type: eth.TypeAddress}, {Type: eth.TypeBytes32}}
	getRedeemResultOut  = abi.Arguments{{Type: eth.TypeBool}, {Type: eth.TypeBytes32}}

	completeRegistrationArgs = abi.Arguments{
		{Type: eth.TypeBytes32}, // policyHash
		{Type: eth.TypeUint256}, // maxPrice
		{Type: eth.TypeUint256}, // expiry
		{Type: ensParamsTuple},  // ensParams
		{Type: eth.TypeBytes},   // signature
	}
)

const (
	sigGetRedeemResult      = "getRedeemResult(address,bytes32)"
	sigCompleteRegistration = "completeENSRegistration(bytes32,uint256,uint256,(string,address,uint256,bytes32,address,bytes[],bool,uint16),bytes)"
)

// ensParamsABI mirrors the contract's ENSParams struct for abi packing.
type ensParamsABI struct {
	Name                 string
	Owner                common.Address
	Duration             *big.Int
	Secret               [32]byte
	Resolver             common.Address
	Data                 [][]byte
	ReverseRecord        bool
	OwnerControlledFuses uint16
}

func toEnsParamsABI(p domain.ENSParams) ensParamsABI {
	return ensParamsABI{
		Name:                 p.Name,
		Owner:                p.Owner,
		Duration:             new(big.Int).SetUint64(p.Duration),
		Secret:               eth.Bytes32(p.Secret),
		Resolver:             p.Resolver,
		Data:                 eth.BytesSlice(p.Data),
		ReverseRecord:        p.ReverseRecord,
		OwnerControlledFuses: p.OwnerControlledFuses,
	}
}

type contract struct {
	caller  eth.Caller
	address common.Address
}

// getRedeemResult reads the on-chain redemption record for (claimant,
// policyHash): whether they already redeemed and the domain hash they got.
func (c *contract) getRedeemResult(ctx context.Context, claimant common.Address, policyHash common.Hash) (bool, common.Hash, error) {
	data, err := eth.PackCall(sigGetRedeemResult, getRedeemResultArgs, claimant, policyHash)
	if err != nil {
		return false, common.Hash{}, err
	}
	out, err := eth.Call(ctx, c.caller, c.address, data)
	if err != nil {
		return false, common.Hash{}, fmt.Errorf("voucher: getRedeemResult: %w", err)
	}
	vals, err := getRedeemResultOut.Unpack(out)
	if err != nil {
		return false, common.Hash{}, fmt.Errorf("voucher: decode getRedeemResult: %w", err)
	}
	redeemed := vals[0].(bool)
	domainHash := common.Hash(vals[1].([32]byte))
	return redeemed, domainHash, nil
}

func (c *contract) completeRegistrationTx(policyHash common.Hash, maxPrice, expiry *big.Int, p domain.ENSParams, signature []byte) (domain.Tx, error) {
	data, err := eth.PackCall(sigCompleteRegistration, completeRegistrationArgs,
		policyHash, maxPrice, expiry, toEnsParamsABI(p), signature)
	if err != nil {
		return domain.Tx{}, err
	}
	return domain.Tx{
		To:       c.address,
		Data:     data,
		GasLimit: completeRegistrationGasLimit,
	}, nil
}
