// Package userop converts raw transactions into sponsored EIP-4337 user
// operations: smart-account derivation, nonce and init code, relayer gas
// sponsorship, and the canonical entry-point hash.
package userop

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/gib-ens/gasless-registrar/internal/domain"
	"github.com/gib-ens/gasless-registrar/internal/eth"
)

// Config identifies the entry point and account factory the builder
// targets, and the smart-account index used for address derivation.
type Config struct {
	EntryPoint   common.Address
	Factory      common.Address
	AccountIndex uint64
}

// DefaultConfig targets the canonical v0.6 deployment at index 0.
func DefaultConfig() Config {
	return Config{
		EntryPoint:   EntryPointAddress,
		Factory:      SimpleAccountFactoryAddress,
		AccountIndex: 0,
	}
}

// Builder assembles sponsored user operations. It persists nothing; caching
// built operations is the caller's concern.
type Builder struct {
	entryPoint *entryPoint
	factory    *accountFactory
	chain      eth.Caller
	sponsor    Sponsor
	index      *big.Int
	logger     *zap.Logger
}

// NewBuilder creates a builder over the given chain and sponsor relayer.
func NewBuilder(chain eth.Caller, sponsor Sponsor, cfg Config, logger *zap.Logger) *Builder {
	return &Builder{
		entryPoint: &entryPoint{caller: chain, address: cfg.EntryPoint},
		factory:    &accountFactory{caller: chain, address: cfg.Factory},
		chain:      chain,
		sponsor:    sponsor,
		index:      new(big.Int).SetUint64(cfg.AccountIndex),
		logger:     logger,
	}
}

// BuildSponsored wraps a raw transaction into a fully sponsored user
// operation and computes its canonical hash. Relayer rejections surface
// unretried; the caller's poll loop is the retry mechanism.
func (b *Builder) BuildSponsored(ctx context.Context, claimant common.Address, tx domain.Tx) (domain.UserOpAndHash, error) {
	sender, err := b.factory.accountAddress(ctx, claimant, b.index)
	if err != nil {
		return domain.UserOpAndHash{}, err
	}

	code, err := b.chain.CodeAt(ctx, sender, nil)
	if err != nil {
		return domain.UserOpAndHash{}, fmt.Errorf("userop: code lookup for %s: %w", sender.Hex(), err)
	}
	initCode := []byte{}
	if len(code) == 0 {
		if initCode, err = b.factory.initCode(claimant, b.index); err != nil {
			return domain.UserOpAndHash{}, err
		}
	}

	nonce, err := b.entryPoint.getNonce(ctx, sender, new(big.Int))
	if err != nil {
		return domain.UserOpAndHash{}, err
	}

	callData, err := executeCallData(tx)
	if err != nil {
		return domain.UserOpAndHash{}, err
	}

	op, err := b.sponsor.RequestGasAndPaymasterAndData(ctx, domain.UserOperation{
		Sender:   sender,
		Nonce:    (*hexutil.Big)(nonce),
		InitCode: initCode,
		CallData: callData,
	})
	if err != nil {
		return domain.UserOpAndHash{}, err
	}

	hash, err := b.entryPoint.getUserOpHash(ctx, op)
	if err != nil {
		return domain.UserOpAndHash{}, err
	}

	b.logger.Debug("built sponsored user operation",
		zap.String("sender", sender.Hex()),
		zap.String("hash", hash.Hex()),
		zap.Bool("deploysAccount", len(initCode) > 0),
	)
	return domain.UserOpAndHash{UserOp: op, Hash: hash}, nil
}

// Receipt exposes the sponsor's receipt lookup to the state machine.
func (b *Builder) Receipt(ctx context.Context, userOpHash common.Hash) (*domain.UserOpReceipt, error) {
	return b.sponsor.Receipt(ctx, userOpHash)
}
