/*
ledger.go - Leave request lifecycle and quota bookkeeping

PURPOSE:
  Submit, decide, cancel and summarize leave requests. Approval of a
  quota-tracked type debits the annual quota; cancelling an approved request
  restores it. Quotas are touched ONLY here.

STATE MACHINE:
  Pending  -> Approved | Rejected     (decide)
  Pending  -> Cancelled               (owner cancel)
  Approved -> Cancelled               (owner cancel, restores quota)
  Rejected / Cancelled are terminal.

ATOMICITY:
  A decision's status update, quota mutation and audit-log row commit in one
  store transaction. A crash can never leave an approved request without its
  quota debit.

INVARIANTS:
  - No two Pending/Approved requests for one employee overlap.
  - used_days equals the sum of total_days over currently-Approved requests
    of that type; approve-then-cancel is an exact round trip.
  - used_days never goes negative; a restore that would do so aborts the
    whole transaction with QuotaUnderflowError.

SEE ALSO:
  - types.go: Request, Quota, Store port
  - policy/policy.go: the leave-type table and default allocations
*/
package leave

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/timecomp/ledger"
	"github.com/warp/timecomp/policy"
)

// Ledger coordinates the leave request lifecycle.
type Ledger struct {
	store    Store
	settings *policy.Settings
	locks    *ledger.KeyedMutex
}

func NewLedger(store Store, settings *policy.Settings, locks *ledger.KeyedMutex) *Ledger {
	return &Ledger{store: store, settings: settings, locks: locks}
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit validates and creates a Pending request. Quota is untouched until a
// decision is made.
func (l *Ledger) Submit(ctx context.Context, id ledger.EmployeeID, t policy.LeaveType, start, end time.Time, reason string) (Request, error) {
	unlock := l.locks.Lock(id)
	defer unlock()

	lt, ok := l.settings.LeaveType(t)
	if !ok {
		return Request{}, &ledger.ValidationError{Field: "leave_type", Message: "unknown leave type " + string(t)}
	}
	if !end.After(start) {
		return Request{}, &ledger.ValidationError{Field: "range", Message: "end must be after start"}
	}

	totalHours := ledger.HoursOf(end.Sub(start))
	totalDays := totalHours.Div(ledger.EightHours)
	if totalDays.GreaterThan(lt.MaxDaysPerRequest) {
		return Request{}, &ledger.LimitError{
			What:  lt.Name + " request of " + totalDays.StringFixed(2) + " days",
			Limit: lt.MaxDaysPerRequest.String() + " days per request",
		}
	}

	existing, err := l.store.ActiveOverlapping(ctx, id, start, end)
	if err != nil {
		return Request{}, err
	}
	if len(existing) > 0 {
		return Request{}, &OverlapError{EmployeeID: id, ExistingID: existing[0].ID, Start: start, End: end}
	}

	now := time.Now()
	req := Request{
		ID:         ledger.RequestID(uuid.NewString()),
		EmployeeID: id,
		Type:       t,
		Start:      start,
		End:        end,
		TotalDays:  totalDays,
		TotalHours: totalHours,
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

// Decide approves or rejects a Pending request. Approving a quota-tracked
// type debits the quota in the same transaction; the quota row is created
// lazily with the policy's default allocation.
func (l *Ledger) Decide(ctx context.Context, requestID ledger.RequestID, approverID string, action Action, reason string) (Request, error) {
	if action != Approve && action != Reject {
		return Request{}, &ledger.ValidationError{Field: "action", Message: "must be approve or reject"}
	}

	// Resolve the owner first so the mutation serializes per employee.
	req, err := l.store.GetRequest(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	unlock := l.locks.Lock(req.EmployeeID)
	defer unlock()

	var decided Request
	err = l.store.WithTx(ctx, func(tx Store) error {
		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return &ledger.StateError{Operation: string(action) + " leave request", Status: string(req.Status)}
		}

		now := time.Now()
		req.UpdatedAt = now
		switch action {
		case Approve:
			req.Status = StatusApproved
			req.ApprovedBy = approverID
			req.ApprovedAt = &now
			if err := l.debitQuota(ctx, tx, req); err != nil {
				return err
			}
		case Reject:
			req.Status = StatusRejected
			req.RejectedReason = reason
		}

		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		if err := tx.AppendDecision(ctx, DecisionEntry{
			ID:         uuid.NewString(),
			RequestID:  req.ID,
			ReviewerID: approverID,
			Action:     string(action),
			Reason:     reason,
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		decided = req
		return nil
	})
	if err != nil {
		return Request{}, err
	}
	return decided, nil
}

// debitQuota adds the request's days to used_days, creating the quota row
// with the default allocation when absent.
func (l *Ledger) debitQuota(ctx context.Context, tx Store, req Request) error {
	lt, _ := l.settings.LeaveType(req.Type)
	if !lt.QuotaTracked {
		return nil
	}

	year := req.Start.Year()
	q, found, err := tx.GetQuota(ctx, req.EmployeeID, year, req.Type)
	if err != nil {
		return err
	}
	if !found {
		q = Quota{
			EmployeeID: req.EmployeeID,
			Year:       year,
			Type:       req.Type,
			Allocated:  l.settings.QuotaAllocation(req.Type),
			Used:       decimal.Zero,
		}
	}
	q.Used = q.Used.Add(req.TotalDays)
	q.UpdatedAt = time.Now()
	return tx.PutQuota(ctx, q)
}

// =============================================================================
// BATCH DECIDE
// =============================================================================

// DecisionResult is one item's outcome in a batch decision.
type DecisionResult struct {
	RequestID ledger.RequestID
	Request   Request
	Err       error
}

// DecideBatch decides each item sequentially and collects one result per
// item. A failed item never rolls back the others.
func (l *Ledger) DecideBatch(ctx context.Context, requestIDs []ledger.RequestID, approverID string, action Action, reason string) []DecisionResult {
	results := make([]DecisionResult, 0, len(requestIDs))
	for _, id := range requestIDs {
		req, err := l.Decide(ctx, id, approverID, action, reason)
		results = append(results, DecisionResult{RequestID: id, Request: req, Err: err})
	}
	return results
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel is owner-only and allowed from Pending or Approved. Cancelling an
// approved quota-tracked request restores the quota in the same transaction.
func (l *Ledger) Cancel(ctx context.Context, requestID ledger.RequestID, employeeID ledger.EmployeeID) (Request, error) {
	unlock := l.locks.Lock(employeeID)
	defer unlock()

	var cancelled Request
	err := l.store.WithTx(ctx, func(tx Store) error {
		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.EmployeeID != employeeID {
			return &ledger.StateError{Operation: "cancel leave request", Status: "owned by another employee"}
		}
		if req.Status.Terminal() {
			return &ledger.StateError{Operation: "cancel leave request", Status: string(req.Status)}
		}

		wasApproved := req.Status == StatusApproved
		now := time.Now()
		req.Status = StatusCancelled
		req.UpdatedAt = now

		if wasApproved {
			if err := l.restoreQuota(ctx, tx, req); err != nil {
				return err
			}
		}
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		if err := tx.AppendDecision(ctx, DecisionEntry{
			ID:         uuid.NewString(),
			RequestID:  req.ID,
			ReviewerID: string(employeeID),
			Action:     "cancel",
			Reason:     "cancelled by owner",
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		cancelled = req
		return nil
	})
	if err != nil {
		return Request{}, err
	}
	return cancelled, nil
}

// restoreQuota subtracts the request's days from used_days. Driving
// used_days negative aborts the transaction: it would mean the ledger and
// quota have already diverged.
func (l *Ledger) restoreQuota(ctx context.Context, tx Store, req Request) error {
	lt, _ := l.settings.LeaveType(req.Type)
	if !lt.QuotaTracked {
		return nil
	}

	year := req.Start.Year()
	q, found, err := tx.GetQuota(ctx, req.EmployeeID, year, req.Type)
	if err != nil {
		return err
	}
	if !found || q.Used.LessThan(req.TotalDays) {
		used := decimal.Zero
		if found {
			used = q.Used
		}
		return &QuotaUnderflowError{
			EmployeeID: req.EmployeeID,
			Year:       year,
			Type:       req.Type,
			Used:       used,
			Restore:    req.TotalDays,
		}
	}
	q.Used = q.Used.Sub(req.TotalDays)
	q.UpdatedAt = time.Now()
	return tx.PutQuota(ctx, q)
}

// =============================================================================
// SUMMARY
// =============================================================================

// StatusTally counts requests and days in one status.
type StatusTally struct {
	Count int
	Days  decimal.Decimal
}

// TypeSummary tallies one leave type across statuses.
type TypeSummary struct {
	Type     policy.LeaveType
	ByStatus map[Status]StatusTally
}

// QuotaView is the quota balance shown in a summary.
type QuotaView struct {
	Type      policy.LeaveType
	Allocated decimal.Decimal
	Used      decimal.Decimal
	Remaining decimal.Decimal
}

// Summary tallies the employee's requests for a year by type and status,
// plus the current quota balances.
type Summary struct {
	EmployeeID ledger.EmployeeID
	Year       int
	Types      map[policy.LeaveType]TypeSummary
	Quotas     []QuotaView
}

func (l *Ledger) Summary(ctx context.Context, id ledger.EmployeeID, year int) (Summary, error) {
	requests, err := l.store.RequestsInYear(ctx, id, year)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		EmployeeID: id,
		Year:       year,
		Types:      make(map[policy.LeaveType]TypeSummary),
	}
	for _, req := range requests {
		ts, ok := summary.Types[req.Type]
		if !ok {
			ts = TypeSummary{Type: req.Type, ByStatus: make(map[Status]StatusTally)}
		}
		tally := ts.ByStatus[req.Status]
		tally.Count++
		tally.Days = tally.Days.Add(req.TotalDays)
		ts.ByStatus[req.Status] = tally
		summary.Types[req.Type] = ts
	}

	quotas, err := l.store.QuotasInYear(ctx, id, year)
	if err != nil {
		return Summary{}, err
	}
	for _, q := range quotas {
		summary.Quotas = append(summary.Quotas, QuotaView{
			Type:      q.Type,
			Allocated: q.Allocated,
			Used:      q.Used,
			Remaining: q.Remaining(),
		})
	}
	return summary, nil
}

// Get returns one request by id.
func (l *Ledger) Get(ctx context.Context, id ledger.RequestID) (Request, error) {
	return l.store.GetRequest(ctx, id)
}
