package redeem

import (
	"context"
	"fmt"

	"github.com/gib-ens/gasless-registrar/internal/domain"
	"github.com/gib-ens/gasless-registrar/internal/metrics"
)

// completionStatus derives the completion step's state. Transitions run
// strictly pending -> ready -> complete. Checks are ordered cheapest and
// most terminal first so the expensive tail (voucher signature, relayer
// round-trip) only runs when nothing else can answer, and no signed voucher
// is generated without cause: each one is single-use and a needless rebuild
// would strand the earlier signature.
func (s *Service) completionStatus(ctx context.Context, job *domain.RedeemJob, step domain.Step) (domain.StepStatus, error) {
	cacheKey := completionCacheKey(step.ID)

	// 1. Our own cached operation already succeeded on-chain.
	cached, err := s.cachedOp(ctx, cacheKey)
	if err != nil {
		return domain.StepStatus{}, err
	}
	if cached != nil {
		receipt, err := s.builder.Receipt(ctx, cached.Hash)
		if err != nil {
			return domain.StepStatus{}, err
		}
		if receipt != nil && receipt.Success {
			return domain.CompleteStatus(step, domain.CompleteOpSucceeded, &cached.Hash), nil
		}
	}

	// 2. The claimant's redemption slot was consumed by another job.
	redeemed, err := s.voucher.IsAlreadyRedeemed(ctx, job.Params.Owner, s.policyID)
	if err != nil {
		return domain.StepStatus{}, err
	}
	if redeemed {
		return domain.CompleteStatus(step, domain.CompleteSuperseded, nil), nil
	}

	// 3. The completion cannot be built before the commitment settles.
	commitment, err := s.ens.CommitmentHash(ctx, job.ENS)
	if err != nil {
		return domain.StepStatus{}, err
	}
	settlement, err := s.ens.SettlementStatus(ctx, commitment)
	if err != nil {
		return domain.StepStatus{}, err
	}
	switch settlement.State {
	case domain.SettlementNotFound:
		return domain.PendingStatus(step, domain.PendingNotOnchain, nil), nil
	case domain.SettlementPending:
		pct := s.settlementPct(job, settlement)
		return domain.PendingStatus(step, domain.PendingSettlement, &pct), nil
	}

	// 4. Settled: hand out the cached operation or build one now.
	if cached != nil {
		return domain.ReadyStatus(step, cached.UserOp, cached.Hash), nil
	}

	avail, err := s.ens.CheckAvailability(ctx, job.ENS.Name)
	if err != nil {
		return domain.StepStatus{}, err
	}
	if !avail.IsAvailable || avail.PurchaseInfo == nil {
		return domain.StepStatus{}, fmt.Errorf("%w: %s", domain.ErrNotAvailable, job.ENS.Name)
	}

	tx, err := s.voucher.CompleteRegistrationTx(ctx, commitment, job.ENS, avail.PurchaseInfo.Price.ToInt(), s.policyID)
	if err != nil {
		return domain.StepStatus{}, err
	}
	built, err := s.builder.BuildSponsored(ctx, job.Params.Owner, tx)
	if err != nil {
		return domain.StepStatus{}, err
	}
	if err := s.cacheOp(ctx, cacheKey, built); err != nil {
		return domain.StepStatus{}, err
	}
	metrics.UserOpsBuilt.WithLabelValues(string(domain.StepCompletion)).Inc()

	return domain.ReadyStatus(step, built.UserOp, built.Hash), nil
}

// settlementPct estimates settlement progress from the job's creation time,
// floored and clamped to [0, 100].
func (s *Service) settlementPct(job *domain.RedeemJob, settlement domain.Settlement) int {
	total := settlement.SettlesAt.Sub(job.CreatedAt)
	if total <= 0 {
		return 100
	}
	elapsed := s.now().Sub(job.CreatedAt)
	pct := int(100 * elapsed / total)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
