package domain

import "time"

// SlotStatus is the single source of truth for slot availability.
type SlotStatus string

const (
	SlotStatusActive   SlotStatus = "active"
	SlotStatusBusy     SlotStatus = "busy"
	SlotStatusInactive SlotStatus = "inactive"
	SlotStatusError    SlotStatus = "error"
)

// Valid reports whether the status is one of the known values.
func (s SlotStatus) Valid() bool {
	switch s {
	case SlotStatusActive, SlotStatusBusy, SlotStatusInactive, SlotStatusError:
		return true
	}
	return false
}

// SimSlot is one physical SIM card and the modem port that carries it.
type SimSlot struct {
	ID              string
	SlotNumber      int
	PhoneNumber     string
	Operator        string
	Endpoint        string
	Status          SlotStatus
	Balance         float64
	DailyUsageCount int
	LastUsedAt      *time.Time
}

// OperatorProfile holds the dial codes a carrier uses for balance and transfers.
type OperatorProfile struct {
	Name             string
	BalanceCode      string
	TransferTemplate string
}
