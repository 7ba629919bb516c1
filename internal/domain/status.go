package domain

import "github.com/ethereum/go-ethereum/common"

// StepState is the top-level tag of a step status.
type StepState string

const (
	StateReady    StepState = "ready"
	StatePending  StepState = "pending"
	StateComplete StepState = "complete"
)

// PendingReason explains why a completion step is not yet actionable.
type PendingReason string

const (
	// PendingNotOnchain means the commit operation has not been observed mined.
	PendingNotOnchain PendingReason = "awaiting-onchain-visibility"
	// PendingSettlement means the commitment is mined but inside the
	// registrar's mandatory settlement window.
	PendingSettlement PendingReason = "awaiting-settlement"
)

// CompleteReason explains how a step reached its terminal state.
type CompleteReason string

const (
	// CompleteOpSucceeded means this step's own user operation succeeded.
	CompleteOpSucceeded CompleteReason = "operation-succeeded"
	// CompleteSuperseded means the claimant already redeemed a domain for
	// this policy through another job.
	CompleteSuperseded CompleteReason = "superseded-by-other-redemption"
	// CompleteCommitmentSettled means the commitment is settled on-chain
	// with no locally built operation to attribute it to.
	CompleteCommitmentSettled CompleteReason = "commitment-settled"
)

// StepStatus is the tagged status variant returned by every status poll.
// Exactly one of the Ready/Pending/Complete field groups is populated,
// selected by State; the constructors below are the only way status values
// are produced.
type StepStatus struct {
	StepID string    `json:"id"`
	Type   StepType  `json:"type"`
	State  StepState `json:"status"`

	// ready
	UserOp *UserOperation `json:"userOp,omitempty"`
	Hash   *common.Hash   `json:"hash,omitempty"`

	// pending
	PendingReason PendingReason `json:"pendingReason,omitempty"`
	PctComplete   *int          `json:"pctComplete,omitempty"`

	// complete
	CompleteReason CompleteReason `json:"completeReason,omitempty"`
	UserOpHash     *common.Hash   `json:"userOpHash,omitempty"`
}

// ReadyStatus builds a ready status carrying the sponsored operation the
// claimant still has to sign and submit.
func ReadyStatus(step Step, op UserOperation, hash common.Hash) StepStatus {
	return StepStatus{
		StepID: step.ID,
		Type:   step.Type,
		State:  StateReady,
		UserOp: &op,
		Hash:   &hash,
	}
}

// PendingStatus builds a pending status. pct is only meaningful for
// PendingSettlement and may be nil otherwise.
func PendingStatus(step Step, reason PendingReason, pct *int) StepStatus {
	return StepStatus{
		StepID:        step.ID,
		Type:          step.Type,
		State:         StatePending,
		PendingReason: reason,
		PctComplete:   pct,
	}
}

// CompleteStatus builds a terminal status. opHash is nil when the step was
// superseded by a redemption this system never built an operation for.
func CompleteStatus(step Step, reason CompleteReason, opHash *common.Hash) StepStatus {
	return StepStatus{
		StepID:         step.ID,
		Type:           step.Type,
		State:          StateComplete,
		CompleteReason: reason,
		UserOpHash:     opHash,
	}
}
