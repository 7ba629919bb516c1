// Package redeem owns the lifecycle of a gasless domain registration: job
// creation with per-user mutual exclusion, idempotent step status
// derivation, and create-only caching of sponsored user operations. All
// durable state lives in the key-value store; status is recomputed on every
// poll by reconciling cached intents against live on-chain facts.
package redeem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gib-ens/gasless-registrar/internal/domain"
	"github.com/gib-ens/gasless-registrar/internal/metrics"
	"github.com/gib-ens/gasless-registrar/internal/store"
)

// DefaultJobTTL bounds how long an abandoned job can lock its (owner,
// policy) slot.
const DefaultJobTTL = 30 * time.Minute

// Service is the redeem job state machine for one policy.
type Service struct {
	store    store.Store
	ens      ENSResolver
	voucher  VoucherAuthority
	builder  OperationBuilder
	policyID string
	jobTTL   time.Duration
	logger   *zap.Logger

	now func() time.Time
}

// NewService wires the state machine to its collaborators. jobTTL <= 0
// selects DefaultJobTTL.
func NewService(st store.Store, ens ENSResolver, voucher VoucherAuthority, builder OperationBuilder, policyID string, jobTTL time.Duration, logger *zap.Logger) *Service {
	if jobTTL <= 0 {
		jobTTL = DefaultJobTTL
	}
	return &Service{
		store:    st,
		ens:      ens,
		voucher:  voucher,
		builder:  builder,
		policyID: policyID,
		jobTTL:   jobTTL,
		logger:   logger,
		now:      time.Now,
	}
}

func claimKey(owner common.Address, policyID string) string {
	return fmt.Sprintf("currentRedeem:%s:%s", owner.Hex(), policyID)
}

func jobIndexKey(jobID string) string {
	return "redeemJob:" + jobID
}

func commitmentCacheKey(commitment common.Hash) string {
	return "ensCommitment:" + commitment.Hex()
}

func completionCacheKey(stepID string) string {
	return "redeem:" + stepID
}

// Availability runs the combined check: registrar availability and price
// ceiling, then the claimant's redemption record. Read-only.
func (s *Service) Availability(ctx context.Context, owner common.Address, rawDomain string) (domain.AvailabilityResult, error) {
	result, err := s.ens.CheckAvailability(ctx, rawDomain)
	if err != nil || !result.IsAvailable {
		return result, err
	}
	redeemed, err := s.voucher.IsAlreadyRedeemed(ctx, owner, s.policyID)
	if err != nil {
		return domain.AvailabilityResult{}, err
	}
	if redeemed {
		return domain.Unavailable(domain.ReasonAlreadyRegistered), nil
	}
	return result, nil
}

// Start creates a redeem job for an availability result that the caller
// verified via Availability. Exactly one job per (owner, policy) can be
// active; the loser of a concurrent start observes ErrAlreadyActive along
// with the winning job.
func (s *Service) Start(ctx context.Context, owner common.Address, avail domain.AvailabilityResult) (*domain.RedeemJob, error) {
	if !avail.IsAvailable || avail.PurchaseInfo == nil {
		return nil, domain.ErrNotAvailable
	}

	params, err := s.ens.NewParams(avail.PurchaseInfo.NormalizedDomainName, owner)
	if err != nil {
		return nil, err
	}

	jobID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("redeem: generate job id: %w", err)
	}
	job := &domain.RedeemJob{
		ID: jobID.String(),
		Params: domain.RedeemParams{
			Owner:                owner,
			PolicyID:             s.policyID,
			NormalizedDomainName: avail.PurchaseInfo.NormalizedDomainName,
		},
		ENS: params,
		Steps: []domain.Step{
			{ID: uuid.NewString(), Type: domain.StepCommitment},
			{ID: uuid.NewString(), Type: domain.StepCompletion},
		},
		CreatedAt: s.now().UTC(),
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("redeem: marshal job: %w", err)
	}

	key := claimKey(owner, s.policyID)
	claimed, err := s.store.SetIfAbsent(ctx, key, payload)
	if err != nil {
		return nil, fmt.Errorf("redeem: claim job slot: %w", err)
	}
	if !claimed {
		existing, getErr := s.GetCurrent(ctx, owner)
		if getErr != nil {
			return nil, fmt.Errorf("redeem: slot claimed but unreadable: %w", getErr)
		}
		return existing, domain.ErrAlreadyActive
	}

	// The claim's TTL is armed before anything else; a crash after the
	// claim without it would lock the (owner, policy) slot forever.
	if err := s.store.Expire(ctx, key, s.jobTTL); err != nil {
		return nil, fmt.Errorf("redeem: expire claim: %w", err)
	}
	// The id index is a separate write; a crash between the claim and the
	// index leaves the job reachable by owner but not by id until the
	// claim's TTL releases the slot.
	if err := s.store.Set(ctx, jobIndexKey(job.ID), []byte(key)); err != nil {
		return nil, fmt.Errorf("redeem: write job index: %w", err)
	}
	if err := s.store.Expire(ctx, jobIndexKey(job.ID), s.jobTTL); err != nil {
		return nil, fmt.Errorf("redeem: expire job index: %w", err)
	}

	metrics.JobsStartedTotal.WithLabelValues(s.policyID).Inc()
	s.logger.Info("redeem job started",
		zap.String("job_id", job.ID),
		zap.String("owner", owner.Hex()),
		zap.String("domain", job.Params.NormalizedDomainName),
	)
	return job, nil
}

// GetCurrent returns the active job for (owner, policy), if any.
func (s *Service) GetCurrent(ctx context.Context, owner common.Address) (*domain.RedeemJob, error) {
	return s.loadJob(ctx, claimKey(owner, s.policyID))
}

// GetByID resolves a job through the id index. A job whose slot was
// reclaimed by a newer job is reported not found.
func (s *Service) GetByID(ctx context.Context, jobID string) (*domain.RedeemJob, error) {
	key, err := s.store.Get(ctx, jobIndexKey(jobID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("redeem: read job index: %w", err)
	}
	job, err := s.loadJob(ctx, string(key))
	if err != nil {
		return nil, err
	}
	if job.ID != jobID {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func (s *Service) loadJob(ctx context.Context, key string) (*domain.RedeemJob, error) {
	payload, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("redeem: read job: %w", err)
	}
	var job domain.RedeemJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, fmt.Errorf("redeem: decode job: %w", err)
	}
	return &job, nil
}

// StepStatus derives the current status of one step. Idempotent: with no
// intervening on-chain change, repeated calls return the identical status
// and never rebuild a cached operation.
func (s *Service) StepStatus(ctx context.Context, job *domain.RedeemJob, stepID string) (domain.StepStatus, error) {
	step, ok := job.FindStep(stepID)
	if !ok {
		return domain.StepStatus{}, domain.ErrStepNotFound
	}

	var (
		status domain.StepStatus
		err    error
	)
	switch step.Type {
	case domain.StepCommitment:
		status, err = s.commitmentStatus(ctx, job, step)
	case domain.StepCompletion:
		status, err = s.completionStatus(ctx, job, step)
	default:
		return domain.StepStatus{}, fmt.Errorf("redeem: unknown step type %q", step.Type)
	}
	if err != nil {
		return domain.StepStatus{}, err
	}

	metrics.StepStatusTotal.WithLabelValues(string(step.Type), string(status.State)).Inc()
	return status, nil
}

// cachedOp loads a cached user operation, returning nil when absent.
func (s *Service) cachedOp(ctx context.Context, key string) (*domain.UserOpAndHash, error) {
	payload, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("redeem: read cached userop: %w", err)
	}
	var cached domain.UserOpAndHash
	if err := json.Unmarshal(payload, &cached); err != nil {
		return nil, fmt.Errorf("redeem: decode cached userop: %w", err)
	}
	return &cached, nil
}

// cacheOp persists a freshly built operation create-only. Losing the race
// to a concurrent build fails with ErrCacheConflict; overwriting could
// orphan an operation the winner already handed out for signing.
func (s *Service) cacheOp(ctx context.Context, key string, op domain.UserOpAndHash) error {
	payload, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("redeem: marshal userop: %w", err)
	}
	stored, err := s.store.SetIfAbsent(ctx, key, payload)
	if err != nil {
		return fmt.Errorf("redeem: cache userop: %w", err)
	}
	if !stored {
		return domain.ErrCacheConflict
	}
	return s.store.Expire(ctx, key, s.jobTTL)
}
