// Package service wires per-policy service bundles: each policy names its
// own RPC endpoint, contracts, and sponsorship credentials, so the chain
// clients and the redeem state machine are constructed per policy and
// cached for the process lifetime.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/gib-ens/gasless-registrar/internal/config"
	"github.com/gib-ens/gasless-registrar/internal/ens"
	"github.com/gib-ens/gasless-registrar/internal/redeem"
	"github.com/gib-ens/gasless-registrar/internal/store"
	"github.com/gib-ens/gasless-registrar/internal/userop"
	"github.com/gib-ens/gasless-registrar/internal/voucher"
)

// Bundle is the fully wired service set for one policy.
type Bundle struct {
	Policy *config.PolicyConfig
	ENS    *ens.Service
	Redeem *redeem.Service
}

// Factory resolves policy names to wired service bundles.
type Factory struct {
	store  store.Store
	logger *zap.Logger

	mu      sync.Mutex
	bundles map[string]*Bundle
}

// NewFactory creates a factory over the shared job store.
func NewFactory(st store.Store, logger *zap.Logger) *Factory {
	return &Factory{
		store:   st,
		logger:  logger,
		bundles: make(map[string]*Bundle),
	}
}

// ForPolicy returns the bundle for a policy, wiring and caching it on first
// use. Unknown policies fail with domain.ErrPolicyNotFound.
func (f *Factory) ForPolicy(ctx context.Context, name string) (*Bundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.bundles[name]; ok {
		return b, nil
	}

	policy, err := config.LoadPolicy(name)
	if err != nil {
		return nil, err
	}

	rpcClient, err := rpc.DialContext(ctx, policy.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("service: dial rpc for policy %s: %w", name, err)
	}
	chain := ethclient.NewClient(rpcClient)

	logger := f.logger.With(zap.String("policy", name))

	ensSvc := ens.NewService(chain, ens.Config{
		Controller:           policy.ControllerContract,
		Resolver:             policy.ResolverContract,
		RegistrationDuration: policy.RegistrationDuration,
		MaxPriceWei:          policy.MaxPriceWei,
		SettlementWindow:     policy.SettlementWindow,
	}, logger)

	authority := voucher.NewAuthority(chain, voucher.Config{
		Contract:       policy.VoucherContract,
		SigningKey:     policy.AuthorityKey,
		ValidityWindow: policy.VoucherValidity,
	}, logger)

	relayer := userop.NewRelayer(rpcClient, policy.GasPolicyID, userop.EntryPointAddress, logger)
	builder := userop.NewBuilder(chain, relayer, userop.DefaultConfig(), logger)

	b := &Bundle{
		Policy: policy,
		ENS:    ensSvc,
		Redeem: redeem.NewService(f.store, ensSvc, authority, builder, policy.Name, policy.JobTTL, logger),
	}
	f.bundles[name] = b
	return b, nil
}
