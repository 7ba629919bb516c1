package domain

import "time"

// SettlementState describes an ENS commitment's progress toward settling.
type SettlementState string

const (
	// SettlementNotFound means the registrar has no timestamp for the hash.
	SettlementNotFound SettlementState = "notFound"
	// SettlementPending means the commitment is mined but still inside the
	// registrar's minimum age window.
	SettlementPending SettlementState = "pending"
	// SettlementSettled means the registration may be completed.
	SettlementSettled SettlementState = "settled"
)

// Settlement is the on-chain settlement status of one commitment hash.
// SettlesAt is only meaningful while State is SettlementPending.
type Settlement struct {
	State     SettlementState `json:"state"`
	SettlesAt time.Time       `json:"settlesAt,omitempty"`
}
