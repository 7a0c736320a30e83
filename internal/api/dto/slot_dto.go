package dto

import (
	"time"

	"github.com/simgate/sim-gateway/internal/domain"
)

// SlotResponse represents a SIM slot.
type SlotResponse struct {
	ID              string            `json:"id"`
	SlotNumber      int               `json:"slot_number"`
	PhoneNumber     string            `json:"phone_number"`
	Operator        string            `json:"operator"`
	Status          domain.SlotStatus `json:"status"`
	Balance         float64           `json:"balance"`
	DailyUsageCount int               `json:"daily_usage_count"`
	LastUsedAt      *time.Time        `json:"last_used_at"`
}

// UpdateSlotStatusRequest payload.
type UpdateSlotStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive error"`
}

// NewSlotResponse maps a slot snapshot.
func NewSlotResponse(slot domain.SimSlot) SlotResponse {
	return SlotResponse{
		ID:              slot.ID,
		SlotNumber:      slot.SlotNumber,
		PhoneNumber:     slot.PhoneNumber,
		Operator:        slot.Operator,
		Status:          slot.Status,
		Balance:         slot.Balance,
		DailyUsageCount: slot.DailyUsageCount,
		LastUsedAt:      slot.LastUsedAt,
	}
}
