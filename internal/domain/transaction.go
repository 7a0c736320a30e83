package domain

import "time"

// UssdTransaction is the persisted record of an outcome, owned by the recorder.
type UssdTransaction struct {
	ID             string
	SlotNumber     int
	Operator       string
	Code           string
	Success        bool
	FailureKind    FailureKind
	RawPayload     *string
	DecodedMessage string
	Amount         *float64
	StartedAt      time.Time
	FinishedAt     time.Time
	CreatedAt      time.Time
}
