package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simgate/sim-gateway/internal/domain"
)

func seedSlots() []domain.SimSlot {
	return []domain.SimSlot{
		{SlotNumber: 3, Operator: "Mobilis", PhoneNumber: "+213661000003", Endpoint: "http://m3"},
		{SlotNumber: 1, Operator: "Djezzy", PhoneNumber: "+213770000001", Endpoint: "http://m1"},
		{SlotNumber: 2, Operator: "Mobilis", PhoneNumber: "+213661000002", Endpoint: "http://m2", Status: domain.SlotStatusError},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(seedSlots())
	require.NoError(t, err)
	return r
}

func TestNew_RejectsInvalidSeeds(t *testing.T) {
	_, err := New([]domain.SimSlot{{SlotNumber: 1}, {SlotNumber: 1}})
	assert.ErrorContains(t, err, "duplicate slot number 1")

	_, err = New([]domain.SimSlot{{SlotNumber: 0}})
	assert.Error(t, err)

	_, err = New([]domain.SimSlot{{SlotNumber: 1, Status: domain.SlotStatusBusy}})
	assert.Error(t, err)

	_, err = New([]domain.SimSlot{{SlotNumber: 1, Status: "broken"}})
	assert.Error(t, err)
}

func TestListIsOrdered(t *testing.T) {
	r := newTestRegistry(t)
	slots := r.List()
	require.Len(t, slots, 3)
	assert.Equal(t, 1, slots[0].SlotNumber)
	assert.Equal(t, 2, slots[1].SlotNumber)
	assert.Equal(t, 3, slots[2].SlotNumber)
	assert.Equal(t, domain.SlotStatusActive, slots[0].Status)
}

func TestGet(t *testing.T) {
	r := newTestRegistry(t)
	slot, err := r.Get(3)
	require.NoError(t, err)
	assert.Equal(t, "Mobilis", slot.Operator)

	_, err = r.Get(42)
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)
}

func TestMarkBusyAndIdle(t *testing.T) {
	r := newTestRegistry(t)
	start := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return start }

	slot, err := r.MarkBusy(3)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotStatusBusy, slot.Status)

	_, err = r.MarkBusy(3)
	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)

	r.now = func() time.Time { return start.Add(time.Minute) }
	r.MarkIdle(3, 1)

	slot, err = r.Get(3)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotStatusActive, slot.Status)
	assert.Equal(t, 1, slot.DailyUsageCount)
	require.NotNil(t, slot.LastUsedAt)
	assert.Equal(t, start, *slot.LastUsedAt)
}

func TestMarkBusy_ErrorIsSticky(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.MarkBusy(2)
	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)

	r.MarkIdle(2, 0)
	slot, _ := r.Get(2)
	assert.Equal(t, domain.SlotStatusError, slot.Status)

	_, err = r.MarkBusy(99)
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)
}

func TestSetStatus(t *testing.T) {
	r := newTestRegistry(t)

	slot, err := r.SetStatus(2, domain.SlotStatusActive)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotStatusActive, slot.Status)

	_, err = r.SetStatus(2, domain.SlotStatusBusy)
	assert.ErrorIs(t, err, domain.ErrMalformedRequest)

	_, err = r.SetStatus(7, domain.SlotStatusError)
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)
}

func TestSetStatus_DeferredWhileBusy(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.MarkBusy(1)
	require.NoError(t, err)

	slot, err := r.SetStatus(1, domain.SlotStatusError)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotStatusBusy, slot.Status)

	r.MarkIdle(1, 1)
	slot, _ = r.Get(1)
	assert.Equal(t, domain.SlotStatusError, slot.Status)
	assert.Equal(t, 1, slot.DailyUsageCount)
}

func TestCandidates_LeastLoadedFirst(t *testing.T) {
	r, err := New([]domain.SimSlot{
		{SlotNumber: 1, Operator: "Mobilis", DailyUsageCount: 5},
		{SlotNumber: 2, Operator: "Mobilis", DailyUsageCount: 2},
		{SlotNumber: 3, Operator: "mobilis", DailyUsageCount: 2},
		{SlotNumber: 4, Operator: "Djezzy", DailyUsageCount: 0},
		{SlotNumber: 5, Operator: "Mobilis", DailyUsageCount: 0, Status: domain.SlotStatusInactive},
	})
	require.NoError(t, err)

	candidates := r.Candidates("Mobilis")
	require.Len(t, candidates, 3)
	assert.Equal(t, []int{2, 3, 1}, slotNumbers(candidates))

	assert.Equal(t, []int{4, 2, 3, 1}, slotNumbers(r.Candidates("")))
	assert.Empty(t, r.Candidates("Ooredoo"))
}

func TestRecordBalance(t *testing.T) {
	r := newTestRegistry(t)
	r.RecordBalance(1, 1500)
	slot, _ := r.Get(1)
	assert.InDelta(t, 1500.0, slot.Balance, 0.001)
	r.RecordBalance(99, 1)
}

func TestSnapshotsAreCopies(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.MarkBusy(1)
	require.NoError(t, err)
	r.MarkIdle(1, 1)

	slot, _ := r.Get(1)
	*slot.LastUsedAt = time.Time{}
	slot.Status = domain.SlotStatusError

	again, _ := r.Get(1)
	assert.Equal(t, domain.SlotStatusActive, again.Status)
	assert.False(t, again.LastUsedAt.IsZero())
}

func TestConcurrentTransitionsAcrossSlots(t *testing.T) {
	seeds := make([]domain.SimSlot, 0, 16)
	for i := 1; i <= 16; i++ {
		seeds = append(seeds, domain.SimSlot{SlotNumber: i, Operator: "Mobilis"})
	}
	r, err := New(seeds)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := r.MarkBusy(n); err == nil {
					_ = r.List()
					r.MarkIdle(n, 1)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, r.BusyCount())
	for _, slot := range r.List() {
		assert.Equal(t, 50, slot.DailyUsageCount)
	}
}

func slotNumbers(slots []domain.SimSlot) []int {
	out := make([]int, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.SlotNumber)
	}
	return out
}
