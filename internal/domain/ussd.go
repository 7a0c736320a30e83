package domain

import "time"

// FailureKind classifies why a USSD session did not succeed.
type FailureKind string

const (
	FailureNone            FailureKind = "none"
	FailureTimeout         FailureKind = "timeout"
	FailureNoService       FailureKind = "no_service"
	FailureBusySlot        FailureKind = "busy_slot"
	FailureConnectionError FailureKind = "connection_error"
	FailureUnknown         FailureKind = "unknown"
)

// SlotSelector either pins a slot number or asks for any active slot,
// optionally restricted to one operator.
type SlotSelector struct {
	SlotNumber int
	Operator   string
}

// Pinned reports whether the selector names a specific slot.
func (s SlotSelector) Pinned() bool {
	return s.SlotNumber > 0
}

// UssdSessionRequest maps to exactly one slot and one outcome.
type UssdSessionRequest struct {
	Selector SlotSelector
	Code     string
}

// UssdOutcome is created per session attempt and never mutated after return.
type UssdOutcome struct {
	ID             string
	SlotNumber     int
	Operator       string
	Code           string
	Success        bool
	RawPayload     *string
	DecodedMessage string
	FailureKind    FailureKind
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Duration returns how long the session took.
func (o *UssdOutcome) Duration() time.Duration {
	if o.FinishedAt.IsZero() {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}
