/*
ledger.go - Overtime request lifecycle and pay snapshots

PURPOSE:
  Submit, decide, cancel and summarize overtime requests. Approval freezes a
  payable amount (hours x rate-at-approval) into an immutable Record.

STATE MACHINE:
  Pending -> Approved (creates Record) | Rejected
  Pending -> Cancelled (request row deleted)
  Approved and Rejected are immutable - no later cancellation, unlike leave.

SNAPSHOT SEMANTICS:
  The Record is the payroll-facing fact. The rate is read once, at approval,
  and stored in the record; a later rate change produces different FUTURE
  records but never rewrites an existing one.

INVARIANT:
  At most one Pending/Approved request per (employee, date).

SEE ALSO:
  - types.go: Request, Record, Store and RateSource ports
  - payroll/profile.go: the RateSource implementation
*/
package overtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/timecomp/ledger"
	"github.com/warp/timecomp/policy"
)

// Ledger coordinates the overtime request lifecycle.
type Ledger struct {
	store    Store
	rates    RateSource
	settings *policy.Settings
	locks    *ledger.KeyedMutex
}

func NewLedger(store Store, rates RateSource, settings *policy.Settings, locks *ledger.KeyedMutex) *Ledger {
	return &Ledger{store: store, rates: rates, settings: settings, locks: locks}
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit validates and creates a Pending request. An end at or before the
// start means the shift runs past midnight.
func (l *Ledger) Submit(ctx context.Context, id ledger.EmployeeID, day ledger.Date, start, end ledger.TimeOfDay, reason string) (Request, error) {
	unlock := l.locks.Lock(id)
	defer unlock()

	startAt := start.On(day, time.UTC)
	endAt := end.On(day, time.UTC)
	if !endAt.After(startAt) {
		endAt = endAt.Add(24 * time.Hour) // overnight shift
	}

	hours := ledger.HoursOf(endAt.Sub(startAt))
	if !hours.IsPositive() || hours.GreaterThan(l.settings.MaxOvertimeHours) {
		return Request{}, &ledger.ValidationError{
			Field:   "hours",
			Message: "overtime must be between 0 and " + l.settings.MaxOvertimeHours.String() + " hours",
		}
	}

	active, err := l.store.ActiveOnDate(ctx, id, day)
	if err != nil {
		return Request{}, err
	}
	if len(active) > 0 {
		return Request{}, &DuplicateDayError{EmployeeID: id, Date: day, ExistingID: active[0].ID}
	}

	now := time.Now()
	req := Request{
		ID:         ledger.RequestID(uuid.NewString()),
		EmployeeID: id,
		Date:       day,
		Start:      start,
		End:        end,
		Hours:      hours,
		Reason:     reason,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := l.store.InsertRequest(ctx, req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// =============================================================================
// DECIDE
// =============================================================================

type Action string

const (
	Approve Action = "approve"
	Reject  Action = "reject"
)

// Decide approves or rejects a Pending request. Approval reads the current
// overtime rate under the employee lock, computes the payable amount and
// appends the Record in the same transaction as the status update.
func (l *Ledger) Decide(ctx context.Context, requestID ledger.RequestID, approverID string, action Action) (Request, *Record, error) {
	if action != Approve && action != Reject {
		return Request{}, nil, &ledger.ValidationError{Field: "action", Message: "must be approve or reject"}
	}

	req, err := l.store.GetRequest(ctx, requestID)
	if err != nil {
		return Request{}, nil, err
	}
	unlock := l.locks.Lock(req.EmployeeID)
	defer unlock()

	// The rate source reads through the same store handle, so it must be
	// resolved before the transaction opens. The employee lock is already
	// held; nothing can reprice between here and the commit.
	var rate decimal.Decimal
	if action == Approve {
		rate, err = l.rates.OvertimeRate(ctx, req.EmployeeID)
		if err != nil {
			return Request{}, nil, &ledger.DependencyError{Dependency: "overtime rate lookup", Err: err}
		}
	}

	var (
		decided Request
		record  *Record
	)
	err = l.store.WithTx(ctx, func(tx Store) error {
		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return &ledger.StateError{Operation: string(action) + " overtime request", Status: string(req.Status)}
		}

		now := time.Now()
		req.UpdatedAt = now
		switch action {
		case Approve:
			req.Status = StatusApproved
			req.ApprovedBy = approverID
			req.ApprovedAt = &now

			rec := Record{
				ID:         uuid.NewString(),
				RequestID:  req.ID,
				EmployeeID: req.EmployeeID,
				Date:       req.Date,
				Hours:      req.Hours,
				Rate:       rate,
				Payable:    req.Hours.Mul(rate),
				ApprovedBy: approverID,
				CreatedAt:  now,
			}
			if err := tx.AppendRecord(ctx, rec); err != nil {
				return err
			}
			record = &rec
		case Reject:
			req.Status = StatusRejected
			req.ApprovedBy = approverID
			req.ApprovedAt = &now
		}

		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		decided = req
		return nil
	})
	if err != nil {
		return Request{}, nil, err
	}
	return decided, record, nil
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel is owner-only and deletes a Pending request. Decided requests are
// immutable facts and cannot be cancelled.
func (l *Ledger) Cancel(ctx context.Context, requestID ledger.RequestID, employeeID ledger.EmployeeID) error {
	unlock := l.locks.Lock(employeeID)
	defer unlock()

	req, err := l.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.EmployeeID != employeeID {
		return &ledger.StateError{Operation: "cancel overtime request", Status: "owned by another employee"}
	}
	if req.Status != StatusPending {
		return &ledger.StateError{Operation: "cancel overtime request", Status: string(req.Status)}
	}
	return l.store.DeleteRequest(ctx, requestID)
}

// =============================================================================
// SUMMARY
// =============================================================================

// StatusTally counts requests and hours in one status.
type StatusTally struct {
	Count int
	Hours decimal.Decimal
}

// Summary tallies a period's requests by status plus the payable total over
// the approved records in the period.
type Summary struct {
	EmployeeID   ledger.EmployeeID
	From, To     ledger.Date
	ByStatus     map[Status]StatusTally
	TotalPayable decimal.Decimal
}

func (l *Ledger) Summary(ctx context.Context, id ledger.EmployeeID, from, to ledger.Date) (Summary, error) {
	requests, err := l.store.RequestsBetween(ctx, id, from, to)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		EmployeeID:   id,
		From:         from,
		To:           to,
		ByStatus:     make(map[Status]StatusTally),
		TotalPayable: decimal.Zero,
	}
	for _, req := range requests {
		tally := summary.ByStatus[req.Status]
		tally.Count++
		tally.Hours = tally.Hours.Add(req.Hours)
		summary.ByStatus[req.Status] = tally
	}

	records, err := l.store.RecordsBetween(ctx, id, from, to)
	if err != nil {
		return Summary{}, err
	}
	for _, rec := range records {
		summary.TotalPayable = summary.TotalPayable.Add(rec.Payable)
	}
	return summary, nil
}

// Records returns the employee's approved overtime records in a period.
func (l *Ledger) Records(ctx context.Context, id ledger.EmployeeID, from, to ledger.Date) ([]Record, error) {
	return l.store.RecordsBetween(ctx, id, from, to)
}

// Get returns one request by id.
func (l *Ledger) Get(ctx context.Context, id ledger.RequestID) (Request, error) {
	return l.store.GetRequest(ctx, id)
}
