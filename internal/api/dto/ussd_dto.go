package dto

import (
	"time"

	"github.com/simgate/sim-gateway/internal/domain"
)

// SendUssdRequest payload. Slot pins a slot; otherwise any active slot of
// Operator (or of any operator) is used.
type SendUssdRequest struct {
	Slot     int    `json:"slot" validate:"omitempty,min=1"`
	Operator string `json:"operator" validate:"omitempty,max=64"`
	Code     string `json:"code" validate:"required,max=182"`
}

// BalanceRequest payload.
type BalanceRequest struct {
	Slot     int    `json:"slot" validate:"omitempty,min=1"`
	Operator string `json:"operator" validate:"omitempty,max=64"`
}

// TransferRequest payload.
type TransferRequest struct {
	Slot      int     `json:"slot" validate:"omitempty,min=1"`
	Operator  string  `json:"operator" validate:"omitempty,max=64"`
	Recipient string  `json:"recipient" validate:"required,max=32"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	PIN       string  `json:"pin" validate:"required,numeric,min=4,max=8"`
}

// OutcomeResponse represents a USSD session result.
type OutcomeResponse struct {
	ID             string             `json:"id"`
	SlotNumber     int                `json:"slot_number"`
	Operator       string             `json:"operator"`
	Code           string             `json:"code"`
	Success        bool               `json:"success"`
	RawPayload     *string            `json:"raw_payload"`
	DecodedMessage string             `json:"decoded_message"`
	FailureKind    domain.FailureKind `json:"failure_kind"`
	StartedAt      time.Time          `json:"started_at"`
	FinishedAt     time.Time          `json:"finished_at"`
	DurationMillis int64              `json:"duration_ms"`
}

// BalanceResponse wraps a balance check.
type BalanceResponse struct {
	Outcome OutcomeResponse `json:"outcome"`
	Balance *float64        `json:"balance"`
}

// TransactionResponse represents a recorded outcome.
type TransactionResponse struct {
	ID             string             `json:"id"`
	SlotNumber     int                `json:"slot_number"`
	Operator       string             `json:"operator"`
	Code           string             `json:"code"`
	Success        bool               `json:"success"`
	FailureKind    domain.FailureKind `json:"failure_kind"`
	RawPayload     *string            `json:"raw_payload"`
	DecodedMessage string             `json:"decoded_message"`
	Amount         *float64           `json:"amount"`
	StartedAt      time.Time          `json:"started_at"`
	FinishedAt     time.Time          `json:"finished_at"`
	CreatedAt      time.Time          `json:"created_at"`
}

// NewOutcomeResponse maps an outcome.
func NewOutcomeResponse(outcome *domain.UssdOutcome) OutcomeResponse {
	return OutcomeResponse{
		ID:             outcome.ID,
		SlotNumber:     outcome.SlotNumber,
		Operator:       outcome.Operator,
		Code:           outcome.Code,
		Success:        outcome.Success,
		RawPayload:     outcome.RawPayload,
		DecodedMessage: outcome.DecodedMessage,
		FailureKind:    outcome.FailureKind,
		StartedAt:      outcome.StartedAt,
		FinishedAt:     outcome.FinishedAt,
		DurationMillis: outcome.Duration().Milliseconds(),
	}
}

// NewTransactionResponse maps a transaction record.
func NewTransactionResponse(tx domain.UssdTransaction) TransactionResponse {
	return TransactionResponse{
		ID:             tx.ID,
		SlotNumber:     tx.SlotNumber,
		Operator:       tx.Operator,
		Code:           tx.Code,
		Success:        tx.Success,
		FailureKind:    tx.FailureKind,
		RawPayload:     tx.RawPayload,
		DecodedMessage: tx.DecodedMessage,
		Amount:         tx.Amount,
		StartedAt:      tx.StartedAt,
		FinishedAt:     tx.FinishedAt,
		CreatedAt:      tx.CreatedAt,
	}
}
