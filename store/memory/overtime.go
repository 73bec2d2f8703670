package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/timecomp/ledger"
	"github.com/warp/timecomp/overtime"
)

// =============================================================================
// OVERTIME STORE
// =============================================================================

// Overtime is an in-memory overtime.Store with snapshot-based transactions.
type Overtime struct {
	mu sync.RWMutex
	s  overtimeState
}

type overtimeState struct {
	requests map[ledger.RequestID]overtime.Request
	records  []overtime.Record
}

func NewOvertime() *Overtime {
	return &Overtime{s: overtimeState{
		requests: make(map[ledger.RequestID]overtime.Request),
	}}
}

func (s overtimeState) clone() overtimeState {
	requests := make(map[ledger.RequestID]overtime.Request, len(s.requests))
	for k, v := range s.requests {
		requests[k] = v
	}
	return overtimeState{
		requests: requests,
		records:  append([]overtime.Record{}, s.records...),
	}
}

// WithTx simulates a transaction: the state is snapshotted up front and
// restored when fn errors.
func (m *Overtime) WithTx(_ context.Context, fn func(overtime.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.s.clone()
	if err := fn(&overtimeTxView{s: &m.s}); err != nil {
		m.s = snapshot
		return err
	}
	return nil
}

func (m *Overtime) InsertRequest(_ context.Context, r overtime.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.insertRequest(r)
}

func (m *Overtime) GetRequest(_ context.Context, id ledger.RequestID) (overtime.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.getRequest(id)
}

func (m *Overtime) UpdateRequest(_ context.Context, r overtime.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.updateRequest(r)
}

func (m *Overtime) DeleteRequest(_ context.Context, id ledger.RequestID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.deleteRequest(id)
}

func (m *Overtime) ActiveOnDate(_ context.Context, id ledger.EmployeeID, day ledger.Date) ([]overtime.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.activeOnDate(id, day)
}

func (m *Overtime) RequestsBetween(_ context.Context, id ledger.EmployeeID, from, to ledger.Date) ([]overtime.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.requestsBetween(id, from, to)
}

func (m *Overtime) AppendRecord(_ context.Context, rec overtime.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.appendRecord(rec)
}

func (m *Overtime) RecordsBetween(_ context.Context, id ledger.EmployeeID, from, to ledger.Date) ([]overtime.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.recordsBetween(id, from, to)
}

// overtimeTxView serves calls inside WithTx; the parent's lock is already held.
type overtimeTxView struct {
	s *overtimeState
}

func (v *overtimeTxView) InsertRequest(_ context.Context, r overtime.Request) error {
	return v.s.insertRequest(r)
}

func (v *overtimeTxView) GetRequest(_ context.Context, id ledger.RequestID) (overtime.Request, error) {
	return v.s.getRequest(id)
}

func (v *overtimeTxView) UpdateRequest(_ context.Context, r overtime.Request) error {
	return v.s.updateRequest(r)
}

func (v *overtimeTxView) DeleteRequest(_ context.Context, id ledger.RequestID) error {
	return v.s.deleteRequest(id)
}

func (v *overtimeTxView) ActiveOnDate(_ context.Context, id ledger.EmployeeID, day ledger.Date) ([]overtime.Request, error) {
	return v.s.activeOnDate(id, day)
}

func (v *overtimeTxView) RequestsBetween(_ context.Context, id ledger.EmployeeID, from, to ledger.Date) ([]overtime.Request, error) {
	return v.s.requestsBetween(id, from, to)
}

func (v *overtimeTxView) AppendRecord(_ context.Context, rec overtime.Record) error {
	return v.s.appendRecord(rec)
}

func (v *overtimeTxView) RecordsBetween(_ context.Context, id ledger.EmployeeID, from, to ledger.Date) ([]overtime.Record, error) {
	return v.s.recordsBetween(id, from, to)
}

func (v *overtimeTxView) WithTx(_ context.Context, fn func(overtime.Store) error) error {
	return fn(v)
}

// =============================================================================
// STATE OPERATIONS
// =============================================================================

func (s *overtimeState) insertRequest(r overtime.Request) error {
	s.requests[r.ID] = r
	return nil
}

func (s *overtimeState) getRequest(id ledger.RequestID) (overtime.Request, error) {
	r, ok := s.requests[id]
	if !ok {
		return overtime.Request{}, &ledger.NotFoundError{Kind: "overtime request", ID: string(id)}
	}
	return r, nil
}

func (s *overtimeState) updateRequest(r overtime.Request) error {
	if _, ok := s.requests[r.ID]; !ok {
		return &ledger.NotFoundError{Kind: "overtime request", ID: string(r.ID)}
	}
	s.requests[r.ID] = r
	return nil
}

func (s *overtimeState) deleteRequest(id ledger.RequestID) error {
	if _, ok := s.requests[id]; !ok {
		return &ledger.NotFoundError{Kind: "overtime request", ID: string(id)}
	}
	delete(s.requests, id)
	return nil
}

func (s *overtimeState) activeOnDate(id ledger.EmployeeID, day ledger.Date) ([]overtime.Request, error) {
	var result []overtime.Request
	for _, r := range s.requests {
		if r.EmployeeID != id || !r.Date.Equal(day) {
			continue
		}
		if r.Status == overtime.StatusPending || r.Status == overtime.StatusApproved {
			result = append(result, r)
		}
	}
	return result, nil
}

func (s *overtimeState) requestsBetween(id ledger.EmployeeID, from, to ledger.Date) ([]overtime.Request, error) {
	var result []overtime.Request
	for _, r := range s.requests {
		if r.EmployeeID == id && !r.Date.Before(from) && !r.Date.After(to) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (s *overtimeState) appendRecord(rec overtime.Record) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *overtimeState) recordsBetween(id ledger.EmployeeID, from, to ledger.Date) ([]overtime.Record, error) {
	var result []overtime.Record
	for _, rec := range s.records {
		if rec.EmployeeID == id && !rec.Date.Before(from) && !rec.Date.After(to) {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}
