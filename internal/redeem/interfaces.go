package redeem

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/gib-ens/gasless-registrar/internal/domain"
)

// ENSResolver is the registrar surface the state machine consults: name
// availability, commitment hashing, and settlement tracking.
type ENSResolver interface {
	CheckAvailability(ctx context.Context, raw string) (domain.AvailabilityResult, error)
	NewParams(name string, owner common.Address) (domain.ENSParams, error)
	CommitmentHash(ctx context.Context, p domain.ENSParams) (common.Hash, error)
	CommitTx(ctx context.Context, p domain.ENSParams) (domain.Tx, error)
	SettlementStatus(ctx context.Context, commitment common.Hash) (domain.Settlement, error)
}

// VoucherAuthority checks redemption state and builds signed completion
// transactions.
type VoucherAuthority interface {
	IsAlreadyRedeemed(ctx context.Context, claimant common.Address, policyID string) (bool, error)
	CompleteRegistrationTx(ctx context.Context, commitment common.Hash, p domain.ENSParams, maxPrice *big.Int, policyID string) (domain.Tx, error)
}

// OperationBuilder wraps raw transactions into sponsored user operations
// and resolves their receipts.
type OperationBuilder interface {
	BuildSponsored(ctx context.Context, claimant common.Address, tx domain.Tx) (domain.UserOpAndHash, error)
	Receipt(ctx context.Context, userOpHash common.Hash) (*domain.UserOpReceipt, error)
}
