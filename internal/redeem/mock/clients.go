// Package mock provides in-memory fakes of the redeem collaborators for
// testing.
package mock

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/gib-ens/gasless-registrar/internal/domain"
)

// ENSResolver is a scriptable fake registrar.
type ENSResolver struct {
	mu sync.Mutex

	Availability domain.AvailabilityResult
	Commitment   common.Hash
	Settlement   domain.Settlement

	// Hook functions for overriding behavior
	CheckAvailabilityFunc func(ctx context.Context, raw string) (domain.AvailabilityResult, error)
	NewParamsFunc         func(name string, owner common.Address) (domain.ENSParams, error)
	CommitmentHashFunc    func(ctx context.Context, p domain.ENSParams) (common.Hash, error)
	CommitTxFunc          func(ctx context.Context, p domain.ENSParams) (domain.Tx, error)
	SettlementStatusFunc  func(ctx context.Context, commitment common.Hash) (domain.Settlement, error)

	CommitTxCalls int
}

// NewENSResolver creates a fake registrar that reports the given name as
// available for priceWei and tracks one commitment hash.
func NewENSResolver(name string, priceWei int64) *ENSResolver {
	return &ENSResolver{
		Availability: domain.Available(domain.PurchaseInfo{
			NormalizedDomainName: name,
			Price:                (*hexutil.Big)(big.NewInt(priceWei)),
			Duration:             31536000,
		}),
		Commitment: crypto.Keccak256Hash([]byte(name)),
		Settlement: domain.Settlement{State: domain.SettlementNotFound},
	}
}

func (m *ENSResolver) CheckAvailability(ctx context.Context, raw string) (domain.AvailabilityResult, error) {
	if m.CheckAvailabilityFunc != nil {
		return m.CheckAvailabilityFunc(ctx, raw)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Availability, nil
}

func (m *ENSResolver) NewParams(name string, owner common.Address) (domain.ENSParams, error) {
	if m.NewParamsFunc != nil {
		return m.NewParamsFunc(name, owner)
	}
	secret := crypto.Keccak256([]byte(name + owner.Hex()))
	return domain.ENSParams{
		Name:     name,
		Owner:    owner,
		Duration: 31536000,
		Secret:   secret,
	}, nil
}

func (m *ENSResolver) CommitmentHash(ctx context.Context, p domain.ENSParams) (common.Hash, error) {
	if m.CommitmentHashFunc != nil {
		return m.CommitmentHashFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Commitment, nil
}

func (m *ENSResolver) CommitTx(ctx context.Context, p domain.ENSParams) (domain.Tx, error) {
	m.mu.Lock()
	m.CommitTxCalls++
	m.mu.Unlock()
	if m.CommitTxFunc != nil {
		return m.CommitTxFunc(ctx, p)
	}
	return domain.Tx{
		To:       common.HexToAddress("0x0000000000000000000000000000000000c0701e"),
		Data:     append([]byte{0xc0}, []byte(p.Name)...),
		GasLimit: 100000,
	}, nil
}

func (m *ENSResolver) SettlementStatus(ctx context.Context, commitment common.Hash) (domain.Settlement, error) {
	if m.SettlementStatusFunc != nil {
		return m.SettlementStatusFunc(ctx, commitment)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Settlement, nil
}

// SetSettlement updates the reported settlement state.
func (m *ENSResolver) SetSettlement(s domain.Settlement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Settlement = s
}

// VoucherAuthority is a scriptable fake voucher signer.
type VoucherAuthority struct {
	mu sync.Mutex

	Redeemed bool

	IsAlreadyRedeemedFunc      func(ctx context.Context, claimant common.Address, policyID string) (bool, error)
	CompleteRegistrationTxFunc func(ctx context.Context, commitment common.Hash, p domain.ENSParams, maxPrice *big.Int, policyID string) (domain.Tx, error)

	CompleteTxCalls int
}

func (m *VoucherAuthority) IsAlreadyRedeemed(ctx context.Context, claimant common.Address, policyID string) (bool, error) {
	if m.IsAlreadyRedeemedFunc != nil {
		return m.IsAlreadyRedeemedFunc(ctx, claimant, policyID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Redeemed, nil
}

func (m *VoucherAuthority) CompleteRegistrationTx(ctx context.Context, commitment common.Hash, p domain.ENSParams, maxPrice *big.Int, policyID string) (domain.Tx, error) {
	m.mu.Lock()
	m.CompleteTxCalls++
	m.mu.Unlock()
	if m.CompleteRegistrationTxFunc != nil {
		return m.CompleteRegistrationTxFunc(ctx, commitment, p, maxPrice, policyID)
	}
	return domain.Tx{
		To:       common.HexToAddress("0x0000000000000000000000000000000000f1d0"),
		Data:     append(commitment.Bytes(), []byte(p.Name)...),
		GasLimit: 800000,
	}, nil
}

// SetRedeemed updates the reported redemption state.
func (m *VoucherAuthority) SetRedeemed(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Redeemed = v
}

// OperationBuilder is a fake sponsor pipeline. Built operations hash
// deterministically from their calldata so a rebuild of the same
// transaction is observable as the same hash.
type OperationBuilder struct {
	mu sync.Mutex

	Receipts map[common.Hash]*domain.UserOpReceipt

	BuildSponsoredFunc func(ctx context.Context, claimant common.Address, tx domain.Tx) (domain.UserOpAndHash, error)
	ReceiptFunc        func(ctx context.Context, userOpHash common.Hash) (*domain.UserOpReceipt, error)

	BuildCalls int
}

func (m *OperationBuilder) BuildSponsored(ctx context.Context, claimant common.Address, tx domain.Tx) (domain.UserOpAndHash, error) {
	m.mu.Lock()
	m.BuildCalls++
	m.mu.Unlock()
	if m.BuildSponsoredFunc != nil {
		return m.BuildSponsoredFunc(ctx, claimant, tx)
	}
	op := domain.UserOperation{
		Sender:   claimant,
		Nonce:    (*hexutil.Big)(big.NewInt(0)),
		CallData: tx.Data,
	}
	return domain.UserOpAndHash{
		UserOp: op,
		Hash:   crypto.Keccak256Hash(claimant.Bytes(), tx.To.Bytes(), tx.Data),
	}, nil
}

func (m *OperationBuilder) Receipt(ctx context.Context, userOpHash common.Hash) (*domain.UserOpReceipt, error) {
	if m.ReceiptFunc != nil {
		return m.ReceiptFunc(ctx, userOpHash)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Receipts[userOpHash], nil
}

// SetReceipt records a receipt for a hash.
func (m *OperationBuilder) SetReceipt(hash common.Hash, receipt *domain.UserOpReceipt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Receipts == nil {
		m.Receipts = make(map[common.Hash]*domain.UserOpReceipt)
	}
	m.Receipts[hash] = receipt
}
