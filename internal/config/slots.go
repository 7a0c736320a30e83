package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"github.com/pelletier/go-toml/v2"

	"github.com/simgate/sim-gateway/internal/domain"
)

// SlotFile is the on-disk slot seed document.
type SlotFile struct {
	Operators []OperatorEntry `toml:"operator"`
	Slots     []SlotEntry     `toml:"slot"`
}

// OperatorEntry describes one carrier's dial codes.
type OperatorEntry struct {
	Name             string `toml:"name"`
	BalanceCode      string `toml:"balance_code"`
	TransferTemplate string `toml:"transfer_template"`
}

// SlotEntry describes one SIM slot.
type SlotEntry struct {
	ID       string `toml:"id"`
	Number   int    `toml:"number"`
	Phone    string `toml:"phone"`
	Operator string `toml:"operator"`
	Endpoint string `toml:"endpoint"`
	Status   string `toml:"status"`
}

// Seed is the validated content of a slot seed source.
type Seed struct {
	Slots     []domain.SimSlot
	Operators map[string]domain.OperatorProfile
}

// LoadSlotFile reads and validates a TOML slot seed file.
func LoadSlotFile(path, region string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read slots file: %w", err)
	}
	return ParseSlotFile(data, region)
}

// ParseSlotFile validates TOML slot seeds.
func ParseSlotFile(data []byte, region string) (*Seed, error) {
	var file SlotFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse slots file: %w", err)
	}
	return BuildSeed(file.Slots, file.Operators, region)
}

// BuildSeed validates entries and converts them into domain values.
func BuildSeed(slots []SlotEntry, operators []OperatorEntry, region string) (*Seed, error) {
	seed := &Seed{Operators: make(map[string]domain.OperatorProfile, len(operators))}
	for _, op := range operators {
		name := strings.TrimSpace(op.Name)
		if name == "" {
			return nil, fmt.Errorf("operator entry without name")
		}
		seed.Operators[strings.ToLower(name)] = domain.OperatorProfile{
			Name:             name,
			BalanceCode:      strings.TrimSpace(op.BalanceCode),
			TransferTemplate: strings.TrimSpace(op.TransferTemplate),
		}
	}

	seen := make(map[int]struct{}, len(slots))
	for _, entry := range slots {
		if entry.Number < 1 {
			return nil, fmt.Errorf("slot number must be >= 1, got %d", entry.Number)
		}
		if _, dup := seen[entry.Number]; dup {
			return nil, fmt.Errorf("duplicate slot number %d", entry.Number)
		}
		seen[entry.Number] = struct{}{}

		if strings.TrimSpace(entry.Endpoint) == "" {
			return nil, fmt.Errorf("slot %d: endpoint required", entry.Number)
		}
		status := domain.SlotStatus(strings.ToLower(strings.TrimSpace(entry.Status)))
		if status == "" {
			status = domain.SlotStatusActive
		}
		if status == domain.SlotStatusBusy || !status.Valid() {
			return nil, fmt.Errorf("slot %d: invalid status %q", entry.Number, entry.Status)
		}
		phone, err := NormalizePhone(entry.Phone, region)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", entry.Number, err)
		}
		id := entry.ID
		if id == "" {
			id = fmt.Sprintf("slot-%d", entry.Number)
		}
		seed.Slots = append(seed.Slots, domain.SimSlot{
			ID:          id,
			SlotNumber:  entry.Number,
			PhoneNumber: phone,
			Operator:    strings.TrimSpace(entry.Operator),
			Endpoint:    strings.TrimRight(strings.TrimSpace(entry.Endpoint), "/"),
			Status:      status,
		})
	}
	return seed, nil
}

// NormalizePhone returns the E.164 form of a phone number, reading national
// numbers in region. Empty input stays empty.
func NormalizePhone(phone, region string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", nil
	}
	num, err := phonenumbers.Parse(phone, region)
	if err != nil {
		return "", fmt.Errorf("invalid phone number %q: %w", phone, err)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// NationalPhone returns the national dialing form of a phone number, which is
// what carrier transfer codes expect (for example 0661123456).
func NationalPhone(phone, region string) (string, error) {
	phone = strings.TrimSpace(phone)
	num, err := phonenumbers.Parse(phone, region)
	if err != nil {
		return "", fmt.Errorf("invalid phone number %q: %w", phone, err)
	}
	national := phonenumbers.Format(num, phonenumbers.NATIONAL)
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, national), nil
}
