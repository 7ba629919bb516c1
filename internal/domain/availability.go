package domain

import "github.com/ethereum/go-ethereum/common/hexutil"

// UnavailableReason explains why a domain cannot be registered right now.
type UnavailableReason string

const (
	// ReasonInvalid means the input failed normalization or label rules.
	ReasonInvalid UnavailableReason = "invalid"
	// ReasonUnavailable means the registrar reports the name as taken.
	ReasonUnavailable UnavailableReason = "unavailable"
	// ReasonExpensive means the rent price exceeds the policy ceiling.
	ReasonExpensive UnavailableReason = "expensive"
	// ReasonAlreadyRegistered means the claimant already used their one
	// redemption for this policy.
	ReasonAlreadyRegistered UnavailableReason = "alreadyRegistered"
)

// PurchaseInfo describes an available name's registration terms.
type PurchaseInfo struct {
	NormalizedDomainName string       `json:"normalizedDomainName"`
	Price                *hexutil.Big `json:"price"`
	Duration             uint64       `json:"duration"`
}

// AvailabilityResult is the outcome of a combined domain + voucher
// availability check. PurchaseInfo is set exactly when IsAvailable is true.
type AvailabilityResult struct {
	IsAvailable  bool              `json:"isAvailable"`
	Reason       UnavailableReason `json:"reason,omitempty"`
	PurchaseInfo *PurchaseInfo     `json:"purchaseInfo,omitempty"`
}

// Available builds a positive result.
func Available(info PurchaseInfo) AvailabilityResult {
	return AvailabilityResult{IsAvailable: true, PurchaseInfo: &info}
}

// Unavailable builds a negative result with the given reason.
func Unavailable(reason UnavailableReason) AvailabilityResult {
	return AvailabilityResult{IsAvailable: false, Reason: reason}
}
