package redeem

import (
	"context"

	"github.com/gib-ens/gasless-registrar/internal/domain"
	"github.com/gib-ens/gasless-registrar/internal/metrics"
)

// commitmentStatus derives the commitment step's state. The step has no
// prerequisite, so it is never pending: it is complete once the commitment
// settled (or its operation succeeded), otherwise ready with the cached or
// freshly built commit operation.
func (s *Service) commitmentStatus(ctx context.Context, job *domain.RedeemJob, step domain.Step) (domain.StepStatus, error) {
	commitment, err := s.ens.CommitmentHash(ctx, job.ENS)
	if err != nil {
		return domain.StepStatus{}, err
	}
	cacheKey := commitmentCacheKey(commitment)

	settlement, err := s.ens.SettlementStatus(ctx, commitment)
	if err != nil {
		return domain.StepStatus{}, err
	}
	if settlement.State == domain.SettlementSettled {
		cached, err := s.cachedOp(ctx, cacheKey)
		if err != nil {
			return domain.StepStatus{}, err
		}
		if cached != nil {
			return domain.CompleteStatus(step, domain.CompleteOpSucceeded, &cached.Hash), nil
		}
		// Settled without a cached operation: the commit happened, but not
		// through an operation this system can point at.
		return domain.CompleteStatus(step, domain.CompleteCommitmentSettled, nil), nil
	}

	cached, err := s.cachedOp(ctx, cacheKey)
	if err != nil {
		return domain.StepStatus{}, err
	}
	if cached == nil {
		tx, err := s.ens.CommitTx(ctx, job.ENS)
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
		metrics.UserOpsBuilt.WithLabelValues(string(domain.StepCommitment)).Inc()
		cached = &built
	}

	// The commit may have mined within the settlement window already.
	receipt, err := s.builder.Receipt(ctx, cached.Hash)
	if err != nil {
		return domain.StepStatus{}, err
	}
	if receipt != nil && receipt.Success {
		return domain.CompleteStatus(step, domain.CompleteOpSucceeded, &cached.Hash), nil
	}

	return domain.ReadyStatus(step, cached.UserOp, cached.Hash), nil
}
