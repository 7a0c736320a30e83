// Package scheduler picks slots for requests and admits at most one session
// per slot at a time.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/simgate/sim-gateway/internal/domain"
	"github.com/simgate/sim-gateway/internal/registry"
)

// Scheduler guards each slot with a one-token channel. Blocked senders on a
// channel are admitted in arrival order, which gives FIFO admission per slot.
type Scheduler struct {
	registry *registry.Registry

	mu    sync.Mutex
	locks map[int]chan struct{}
}

// New builds a Scheduler over the registry.
func New(reg *registry.Registry) *Scheduler {
	return &Scheduler{
		registry: reg,
		locks:    make(map[int]chan struct{}),
	}
}

// Lease is an acquired slot. Release must be called exactly once.
type Lease struct {
	Slot domain.SimSlot

	s    *Scheduler
	once sync.Once
}

// Release marks the slot idle with usageDelta and frees its lock.
func (l *Lease) Release(usageDelta int) {
	l.once.Do(func() {
		l.s.registry.MarkIdle(l.Slot.SlotNumber, usageDelta)
		<-l.s.lock(l.Slot.SlotNumber)
	})
}

// Acquire returns a leased slot. A pinned selector waits for the slot's lock
// until ctx ends; a slot that is not active fails with ErrSlotUnavailable.
// A logical selector never waits: it takes the least used free candidate or
// fails with ErrNoSlotAvailable.
func (s *Scheduler) Acquire(ctx context.Context, selector domain.SlotSelector) (*Lease, error) {
	if selector.Pinned() {
		return s.acquirePinned(ctx, selector.SlotNumber)
	}
	return s.acquireAny(selector.Operator)
}

func (s *Scheduler) acquirePinned(ctx context.Context, slotNumber int) (*Lease, error) {
	slot, err := s.registry.Get(slotNumber)
	if err != nil {
		return nil, err
	}
	if slot.Status != domain.SlotStatusActive && slot.Status != domain.SlotStatusBusy {
		return nil, fmt.Errorf("%w: slot %d is %s", domain.ErrSlotUnavailable, slotNumber, slot.Status)
	}

	lock := s.lock(slotNumber)
	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: slot %d: %v", domain.ErrSlotUnavailable, slotNumber, ctx.Err())
	}
	return s.markBusy(slotNumber, lock)
}

func (s *Scheduler) acquireAny(operator string) (*Lease, error) {
	for _, candidate := range s.registry.Candidates(operator) {
		lock := s.lock(candidate.SlotNumber)
		select {
		case lock <- struct{}{}:
		default:
			continue
		}
		lease, err := s.markBusy(candidate.SlotNumber, lock)
		if err == nil {
			return lease, nil
		}
	}
	if operator == "" {
		return nil, domain.ErrNoSlotAvailable
	}
	return nil, fmt.Errorf("%w: operator %s", domain.ErrNoSlotAvailable, operator)
}

// markBusy runs while holding the slot lock, so the status check and the
// transition cannot interleave with another acquirer.
func (s *Scheduler) markBusy(slotNumber int, lock chan struct{}) (*Lease, error) {
	slot, err := s.registry.MarkBusy(slotNumber)
	if err != nil {
		<-lock
		return nil, err
	}
	return &Lease{Slot: slot, s: s}, nil
}

func (s *Scheduler) lock(slotNumber int) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[slotNumber]
	if !ok {
		lock = make(chan struct{}, 1)
		s.locks[slotNumber] = lock
	}
	return lock
}
