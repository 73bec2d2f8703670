// Package memory provides in-memory implementations of the storage ports
// for tests and development. Transactions are simulated with a snapshot of
// the state that is restored when the scoped function errors.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/timecomp/ledger"
	"github.com/warp/timecomp/punch"
)

// =============================================================================
// PUNCH STORE
// =============================================================================

// Punch is an in-memory punch.Store. Events are kept sorted by timestamp.
type Punch struct {
	mu     sync.RWMutex
	events map[ledger.EmployeeID][]punch.Event
}

func NewPunch() *Punch {
	return &Punch{events: make(map[ledger.EmployeeID][]punch.Event)}
}

// Append adds one event at its timestamp position. Append-only.
func (m *Punch) Append(_ context.Context, ev punch.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	evs := m.events[ev.EmployeeID]
	i := sort.Search(len(evs), func(i int) bool {
		return evs[i].At.After(ev.At)
	})
	evs = append(evs, punch.Event{})
	copy(evs[i+1:], evs[i:])
	evs[i] = ev
	m.events[ev.EmployeeID] = evs
	return nil
}

func (m *Punch) EventsOn(_ context.Context, id ledger.EmployeeID, day ledger.Date) ([]punch.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []punch.Event
	for _, ev := range m.events[id] {
		if ledger.DateOf(ev.At) == day {
			result = append(result, ev)
		}
	}
	return result, nil
}

func (m *Punch) EventsBetween(_ context.Context, id ledger.EmployeeID, from, to ledger.Date) ([]punch.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []punch.Event
	for _, ev := range m.events[id] {
		d := ledger.DateOf(ev.At)
		if !d.Before(from) && !d.After(to) {
			result = append(result, ev)
		}
	}
	return result, nil
}

func (m *Punch) Recent(_ context.Context, id ledger.EmployeeID, limit int) ([]punch.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	evs := m.events[id]
	if limit > len(evs) {
		limit = len(evs)
	}
	result := make([]punch.Event, 0, limit)
	for i := len(evs) - 1; i >= len(evs)-limit; i-- {
		result = append(result, evs[i])
	}
	return result, nil
}
