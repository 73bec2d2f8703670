package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/timecomp/ledger"
	"github.com/warp/timecomp/payroll"
)

// =============================================================================
// PAYROLL STORE
// =============================================================================

// Payroll is an in-memory payroll.Store. Statements are append-only.
type Payroll struct {
	mu         sync.RWMutex
	profiles   map[ledger.EmployeeID]payroll.Profile
	statements []payroll.Statement
}

func NewPayroll() *Payroll {
	return &Payroll{profiles: make(map[ledger.EmployeeID]payroll.Profile)}
}

func (m *Payroll) GetProfile(_ context.Context, id ledger.EmployeeID) (payroll.Profile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[id]
	return p, ok, nil
}

func (m *Payroll) PutProfile(_ context.Context, p payroll.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[p.EmployeeID] = p
	return nil
}

func (m *Payroll) AppendStatement(_ context.Context, s payroll.Statement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.statements = append(m.statements, s)
	return nil
}

func (m *Payroll) Statements(_ context.Context, id ledger.EmployeeID, year int, month time.Month) ([]payroll.Statement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []payroll.Statement
	for _, s := range m.statements {
		if s.EmployeeID == id && s.Year == year && s.Month == month {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CalculatedAt.After(result[j].CalculatedAt)
	})
	return result, nil
}
