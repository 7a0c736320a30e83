// Package registry owns the runtime state of every SIM slot.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/simgate/sim-gateway/internal/domain"
)

// Registry is an in-memory table of slots keyed by slot number. Slot fields
// change only through MarkBusy, MarkIdle, SetStatus and RecordBalance.
type Registry struct {
	mu      sync.RWMutex
	slots   map[int]*domain.SimSlot
	order   []int
	started map[int]time.Time
	pending map[int]domain.SlotStatus
	now     func() time.Time
}

// New seeds a registry. Seeds may not repeat slot numbers or start busy.
func New(seeds []domain.SimSlot) (*Registry, error) {
	r := &Registry{
		slots:   make(map[int]*domain.SimSlot, len(seeds)),
		started: make(map[int]time.Time),
		pending: make(map[int]domain.SlotStatus),
		now:     time.Now,
	}
	for _, seed := range seeds {
		if seed.SlotNumber < 1 {
			return nil, fmt.Errorf("slot number must be >= 1, got %d", seed.SlotNumber)
		}
		if _, exists := r.slots[seed.SlotNumber]; exists {
			return nil, fmt.Errorf("duplicate slot number %d", seed.SlotNumber)
		}
		slot := seed
		if slot.Status == "" {
			slot.Status = domain.SlotStatusActive
		}
		if slot.Status == domain.SlotStatusBusy || !slot.Status.Valid() {
			return nil, fmt.Errorf("slot %d: invalid initial status %q", slot.SlotNumber, slot.Status)
		}
		r.slots[slot.SlotNumber] = &slot
		r.order = append(r.order, slot.SlotNumber)
	}
	sort.Ints(r.order)
	return r, nil
}

// Get returns a copy of the slot.
func (r *Registry) Get(slotNumber int) (domain.SimSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slot, ok := r.slots[slotNumber]
	if !ok {
		return domain.SimSlot{}, fmt.Errorf("%w: %d", domain.ErrSlotNotFound, slotNumber)
	}
	return snapshot(slot), nil
}

// List returns copies of all slots in slot-number order.
func (r *Registry) List() []domain.SimSlot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.SimSlot, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, snapshot(r.slots[n]))
	}
	return out
}

// Candidates returns active slots matching operator (case-insensitive, empty
// matches all), least used first with ties broken by slot number.
func (r *Registry) Candidates(operator string) []domain.SimSlot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.SimSlot
	for _, n := range r.order {
		slot := r.slots[n]
		if slot.Status != domain.SlotStatusActive {
			continue
		}
		if operator != "" && !strings.EqualFold(slot.Operator, operator) {
			continue
		}
		out = append(out, snapshot(slot))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DailyUsageCount != out[j].DailyUsageCount {
			return out[i].DailyUsageCount < out[j].DailyUsageCount
		}
		return out[i].SlotNumber < out[j].SlotNumber
	})
	return out
}

// MarkBusy moves an active slot to busy.
func (r *Registry) MarkBusy(slotNumber int) (domain.SimSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[slotNumber]
	if !ok {
		return domain.SimSlot{}, fmt.Errorf("%w: %d", domain.ErrSlotNotFound, slotNumber)
	}
	if slot.Status != domain.SlotStatusActive {
		return domain.SimSlot{}, fmt.Errorf("%w: slot %d is %s", domain.ErrSlotUnavailable, slotNumber, slot.Status)
	}
	slot.Status = domain.SlotStatusBusy
	r.started[slotNumber] = r.now()
	return snapshot(slot), nil
}

// MarkIdle ends a session: the slot returns to active unless an operator
// requested another status meanwhile, the usage counter grows by usageDelta
// and LastUsedAt becomes the session start time. It never fails.
func (r *Registry) MarkIdle(slotNumber int, usageDelta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[slotNumber]
	if !ok {
		return
	}
	if slot.Status == domain.SlotStatusBusy {
		slot.Status = domain.SlotStatusActive
	}
	if next, ok := r.pending[slotNumber]; ok {
		slot.Status = next
		delete(r.pending, slotNumber)
	}
	if usageDelta > 0 {
		slot.DailyUsageCount += usageDelta
	}
	startedAt, ok := r.started[slotNumber]
	if !ok {
		startedAt = r.now()
	}
	delete(r.started, slotNumber)
	slot.LastUsedAt = &startedAt
}

// SetStatus is the operator-level transition (for example clearing error).
// A busy slot keeps running its session and takes the status on MarkIdle.
func (r *Registry) SetStatus(slotNumber int, status domain.SlotStatus) (domain.SimSlot, error) {
	if status == domain.SlotStatusBusy || !status.Valid() {
		return domain.SimSlot{}, fmt.Errorf("%w: cannot set status %q", domain.ErrMalformedRequest, status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[slotNumber]
	if !ok {
		return domain.SimSlot{}, fmt.Errorf("%w: %d", domain.ErrSlotNotFound, slotNumber)
	}
	if slot.Status == domain.SlotStatusBusy {
		r.pending[slotNumber] = status
		return snapshot(slot), nil
	}
	slot.Status = status
	return snapshot(slot), nil
}

// RecordBalance stores the last balance read from the slot.
func (r *Registry) RecordBalance(slotNumber int, balance float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, ok := r.slots[slotNumber]; ok {
		slot.Balance = balance
	}
}

// BusyCount returns how many slots are in a session.
func (r *Registry) BusyCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, slot := range r.slots {
		if slot.Status == domain.SlotStatusBusy {
			count++
		}
	}
	return count
}

func snapshot(slot *domain.SimSlot) domain.SimSlot {
	out := *slot
	if slot.LastUsedAt != nil {
		t := *slot.LastUsedAt
		out.LastUsedAt = &t
	}
	return out
}
