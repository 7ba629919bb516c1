package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found by ID.
	ErrJobNotFound = errors.New("redeem job not found")

	// ErrStepNotFound is returned when a step ID does not belong to the job.
	ErrStepNotFound = errors.New("step not found in redeem job")

	// ErrAlreadyActive is returned when a (owner, policy) pair already holds
	// an active redeem job.
	ErrAlreadyActive = errors.New("redeem process already started for this owner and policy")

	// ErrNotAvailable is returned when a redeem is started for a domain that
	// is no longer available.
	ErrNotAvailable = errors.New("domain is not available for registration")

	// ErrCacheConflict is returned when a create-only cache write loses the
	// race to a concurrent build. Callers re-poll and observe the winner.
	ErrCacheConflict = errors.New("user operation already cached by a concurrent request")

	// ErrPolicyNotFound is returned when no policy is configured under the
	// requested name.
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrRelayerRejected is returned when the sponsorship relayer refuses to
	// provide gas and paymaster data.
	ErrRelayerRejected = errors.New("sponsorship relayer rejected the user operation")

	// ErrRateLimitExceeded is returned when the API rate limit is hit.
	ErrRateLimitExceeded = errors.New("rate limit exceeded, try again later")
)
