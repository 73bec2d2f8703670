package ledger

import "sync"

// =============================================================================
// KEYED MUTEX - Per-employee mutation serialization
// =============================================================================

// KeyedMutex serializes mutations per employee. Check-then-write sequences
// ("count today's punches, then insert", "load quota, then increment") run
// under the employee's lock so two concurrent attempts cannot both pass the
// check. Operations on different employees proceed concurrently.
//
// One KeyedMutex instance is shared by the punch, leave and overtime ledgers
// so that all mutations for an employee serialize against each other.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[EmployeeID]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[EmployeeID]*sync.Mutex)}
}

// Lock acquires the employee's lock, creating it on first use.
// Returns the unlock function.
func (k *KeyedMutex) Lock(id EmployeeID) func() {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
