package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/timecomp/leave"
	"github.com/warp/timecomp/ledger"
	"github.com/warp/timecomp/policy"
)

// =============================================================================
// LEAVE STORE
// =============================================================================

type quotaKey struct {
	EmployeeID ledger.EmployeeID
	Year       int
	Type       policy.LeaveType
}

// Leave is an in-memory leave.Store with snapshot-based transactions.
type Leave struct {
	mu sync.RWMutex
	s  leaveState
}

type leaveState struct {
	requests  map[ledger.RequestID]leave.Request
	quotas    map[quotaKey]leave.Quota
	decisions []leave.DecisionEntry
}

func NewLeave() *Leave {
	return &Leave{s: leaveState{
		requests: make(map[ledger.RequestID]leave.Request),
		quotas:   make(map[quotaKey]leave.Quota),
	}}
}

func (s leaveState) clone() leaveState {
	requests := make(map[ledger.RequestID]leave.Request, len(s.requests))
	for k, v := range s.requests {
		requests[k] = v
	}
	quotas := make(map[quotaKey]leave.Quota, len(s.quotas))
	for k, v := range s.quotas {
		quotas[k] = v
	}
	return leaveState{
		requests:  requests,
		quotas:    quotas,
		decisions: append([]leave.DecisionEntry{}, s.decisions...),
	}
}

// WithTx simulates a transaction: the state is snapshotted up front and
// restored when fn errors.
func (m *Leave) WithTx(_ context.Context, fn func(leave.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.s.clone()
	if err := fn(&leaveTxView{s: &m.s}); err != nil {
		m.s = snapshot
		return err
	}
	return nil
}

func (m *Leave) InsertRequest(_ context.Context, r leave.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.insertRequest(r)
}

func (m *Leave) GetRequest(_ context.Context, id ledger.RequestID) (leave.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.getRequest(id)
}

func (m *Leave) UpdateRequest(_ context.Context, r leave.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.updateRequest(r)
}

func (m *Leave) ActiveOverlapping(_ context.Context, id ledger.EmployeeID, start, end time.Time) ([]leave.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.activeOverlapping(id, start, end)
}

func (m *Leave) RequestsInYear(_ context.Context, id ledger.EmployeeID, year int) ([]leave.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.requestsInYear(id, year)
}

func (m *Leave) GetQuota(_ context.Context, id ledger.EmployeeID, year int, t policy.LeaveType) (leave.Quota, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.getQuota(id, year, t)
}

func (m *Leave) PutQuota(_ context.Context, q leave.Quota) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.putQuota(q)
}

func (m *Leave) QuotasInYear(_ context.Context, id ledger.EmployeeID, year int) ([]leave.Quota, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.quotasInYear(id, year)
}

func (m *Leave) AppendDecision(_ context.Context, entry leave.DecisionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.appendDecision(entry)
}

// Decisions returns the audit entries for a request, oldest first.
func (m *Leave) Decisions(requestID ledger.RequestID) []leave.DecisionEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []leave.DecisionEntry
	for _, e := range m.s.decisions {
		if e.RequestID == requestID {
			result = append(result, e)
		}
	}
	return result
}

// leaveTxView serves calls inside WithTx; the parent's lock is already held.
type leaveTxView struct {
	s *leaveState
}

func (v *leaveTxView) InsertRequest(_ context.Context, r leave.Request) error {
	return v.s.insertRequest(r)
}

func (v *leaveTxView) GetRequest(_ context.Context, id ledger.RequestID) (leave.Request, error) {
	return v.s.getRequest(id)
}

func (v *leaveTxView) UpdateRequest(_ context.Context, r leave.Request) error {
	return v.s.updateRequest(r)
}

func (v *leaveTxView) ActiveOverlapping(_ context.Context, id ledger.EmployeeID, start, end time.Time) ([]leave.Request, error) {
	return v.s.activeOverlapping(id, start, end)
}

func (v *leaveTxView) RequestsInYear(_ context.Context, id ledger.EmployeeID, year int) ([]leave.Request, error) {
	return v.s.requestsInYear(id, year)
}

func (v *leaveTxView) GetQuota(_ context.Context, id ledger.EmployeeID, year int, t policy.LeaveType) (leave.Quota, bool, error) {
	return v.s.getQuota(id, year, t)
}

func (v *leaveTxView) PutQuota(_ context.Context, q leave.Quota) error {
	return v.s.putQuota(q)
}

func (v *leaveTxView) QuotasInYear(_ context.Context, id ledger.EmployeeID, year int) ([]leave.Quota, error) {
	return v.s.quotasInYear(id, year)
}

func (v *leaveTxView) AppendDecision(_ context.Context, entry leave.DecisionEntry) error {
	return v.s.appendDecision(entry)
}

func (v *leaveTxView) WithTx(_ context.Context, fn func(leave.Store) error) error {
	return fn(v)
}

// =============================================================================
// STATE OPERATIONS
// =============================================================================

func (s *leaveState) insertRequest(r leave.Request) error {
	s.requests[r.ID] = r
	return nil
}

func (s *leaveState) getRequest(id ledger.RequestID) (leave.Request, error) {
	r, ok := s.requests[id]
	if !ok {
		return leave.Request{}, &ledger.NotFoundError{Kind: "leave request", ID: string(id)}
	}
	return r, nil
}

func (s *leaveState) updateRequest(r leave.Request) error {
	if _, ok := s.requests[r.ID]; !ok {
		return &ledger.NotFoundError{Kind: "leave request", ID: string(r.ID)}
	}
	s.requests[r.ID] = r
	return nil
}

func (s *leaveState) activeOverlapping(id ledger.EmployeeID, start, end time.Time) ([]leave.Request, error) {
	var result []leave.Request
	for _, r := range s.requests {
		if r.EmployeeID != id {
			continue
		}
		if r.Status != leave.StatusPending && r.Status != leave.StatusApproved {
			continue
		}
		if r.Overlaps(start, end) {
			result = append(result, r)
		}
	}
	sortRequests(result)
	return result, nil
}

func (s *leaveState) requestsInYear(id ledger.EmployeeID, year int) ([]leave.Request, error) {
	var result []leave.Request
	for _, r := range s.requests {
		if r.EmployeeID == id && r.Start.Year() == year {
			result = append(result, r)
		}
	}
	sortRequests(result)
	return result, nil
}

func (s *leaveState) getQuota(id ledger.EmployeeID, year int, t policy.LeaveType) (leave.Quota, bool, error) {
	q, ok := s.quotas[quotaKey{EmployeeID: id, Year: year, Type: t}]
	return q, ok, nil
}

func (s *leaveState) putQuota(q leave.Quota) error {
	s.quotas[quotaKey{EmployeeID: q.EmployeeID, Year: q.Year, Type: q.Type}] = q
	return nil
}

func (s *leaveState) quotasInYear(id ledger.EmployeeID, year int) ([]leave.Quota, error) {
	var result []leave.Quota
	for k, q := range s.quotas {
		if k.EmployeeID == id && k.Year == year {
			result = append(result, q)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result, nil
}

func (s *leaveState) appendDecision(entry leave.DecisionEntry) error {
	s.decisions = append(s.decisions, entry)
	return nil
}

func sortRequests(rs []leave.Request) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].Start.Before(rs[j].Start) })
}
