package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// StepType identifies one of the two ordered steps of a redeem job.
type StepType string

const (
	// StepCommitment submits the ENS commitment hash on-chain.
	StepCommitment StepType = "commitment"
	// StepCompletion finalizes the registration through the voucher contract.
	StepCompletion StepType = "completion"
)

// IsValid checks if the step type is known.
func (t StepType) IsValid() bool {
	return t == StepCommitment || t == StepCompletion
}

// Step is one entry of a job's fixed two-step plan.
type Step struct {
	ID   string   `json:"id"`
	Type StepType `json:"type"`
}

// RedeemParams identifies the claimant and scope of a redeem job.
// Immutable once the job is created.
type RedeemParams struct {
	Owner                common.Address `json:"owner"`
	PolicyID             string         `json:"policyId"`
	NormalizedDomainName string         `json:"normalizedDomainName"`
}

// ENSParams is the full registrar parameter set for one registration.
// Every field must stay byte-identical between the commit and completion
// steps or the commitment hash diverges and the commitment is never found.
type ENSParams struct {
	Name                 string          `json:"name"`
	Owner                common.Address  `json:"owner"`
	Duration             uint64          `json:"duration"`
	Secret               hexutil.Bytes   `json:"secret"`
	Resolver             common.Address  `json:"resolver"`
	Data                 []hexutil.Bytes `json:"data"`
	ReverseRecord        bool            `json:"reverseRecord"`
	OwnerControlledFuses uint16          `json:"ownerControlledFuses"`
}

// RedeemJob is the aggregate root of one in-progress gasless registration.
// It is persisted once at creation and never mutated; derived artifacts
// (signed user operations) are cached under separate keys.
type RedeemJob struct {
	ID        string       `json:"id"`
	Params    RedeemParams `json:"params"`
	ENS       ENSParams    `json:"ens"`
	Steps     []Step       `json:"steps"`
	CreatedAt time.Time    `json:"createdAt"`
}

// FindStep returns the step with the given id, if any.
func (j *RedeemJob) FindStep(stepID string) (Step, bool) {
	for _, s := range j.Steps {
		if s.ID == stepID {
			return s, true
		}
	}
	return Step{}, false
}
