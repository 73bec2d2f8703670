// Package leave implements the leave ledger: the request lifecycle
// (pending -> approved/rejected, pending/approved -> cancelled) and the
// per-type annual quota bookkeeping driven by those transitions.
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timecomp/ledger"
	"github.com/warp/timecomp/policy"
)

// =============================================================================
// REQUEST STATE MACHINE
// =============================================================================

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is allowed from the status.
// Approved is not terminal: the owner may still cancel.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCancelled
}

// Request is one leave application. TotalHours and TotalDays are derived at
// submission and fixed for the request's lifetime.
type Request struct {
	ID         ledger.RequestID
	EmployeeID ledger.EmployeeID
	Type       policy.LeaveType
	Start      time.Time
	End        time.Time
	TotalDays  decimal.Decimal
	TotalHours decimal.Decimal
	Reason     string
	Status     Status

	ApprovedBy     string
	ApprovedAt     *time.Time
	RejectedReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Overlaps applies the closed-interval test against another range:
// NOT(end < otherStart OR start > otherEnd).
func (r Request) Overlaps(start, end time.Time) bool {
	return !(r.End.Before(start) || r.Start.After(end))
}

// =============================================================================
// QUOTA
// =============================================================================

// Quota is the annual entitlement balance for (employee, year, leave type).
// It is mutated only by request transitions, never directly.
type Quota struct {
	EmployeeID ledger.EmployeeID
	Year       int
	Type       policy.LeaveType
	Allocated  decimal.Decimal
	Used       decimal.Decimal
	UpdatedAt  time.Time
}

// Remaining is always derived; there is no stored remaining column to drift.
func (q Quota) Remaining() decimal.Decimal {
	return q.Allocated.Sub(q.Used)
}

// =============================================================================
// DECISION LOG
// =============================================================================

// DecisionEntry is one immutable row of the review audit trail.
type DecisionEntry struct {
	ID         string
	RequestID  ledger.RequestID
	ReviewerID string
	Action     string // approve, reject, cancel
	Reason     string
	CreatedAt  time.Time
}

// =============================================================================
// PORTS
// =============================================================================

// Store is the persistence port for leave requests, quotas and the decision
// log. WithTx scopes a decide/cancel so the status transition and its quota
// side effect commit together or not at all.
type Store interface {
	InsertRequest(ctx context.Context, r Request) error
	GetRequest(ctx context.Context, id ledger.RequestID) (Request, error)
	UpdateRequest(ctx context.Context, r Request) error

	// ActiveOverlapping returns the employee's Pending/Approved requests
	// whose range overlaps [start, end].
	ActiveOverlapping(ctx context.Context, id ledger.EmployeeID, start, end time.Time) ([]Request, error)

	// RequestsInYear returns the employee's requests whose range starts in
	// the given year.
	RequestsInYear(ctx context.Context, id ledger.EmployeeID, year int) ([]Request, error)

	GetQuota(ctx context.Context, id ledger.EmployeeID, year int, t policy.LeaveType) (Quota, bool, error)
	PutQuota(ctx context.Context, q Quota) error
	QuotasInYear(ctx context.Context, id ledger.EmployeeID, year int) ([]Quota, error)

	AppendDecision(ctx context.Context, entry DecisionEntry) error

	// WithTx runs fn against a transactional view of the store. If fn
	// returns an error the transaction is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// OverlapError reports a collision with an existing Pending/Approved request.
type OverlapError struct {
	EmployeeID ledger.EmployeeID
	ExistingID ledger.RequestID
	Start, End time.Time
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("leave range %s..%s overlaps existing request %s",
		e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"), e.ExistingID)
}

func (e *OverlapError) Unwrap() error { return ledger.ErrConflict }

// QuotaUnderflowError reports a transition that would drive used_days
// negative. This is an invariant violation, never a normal outcome.
type QuotaUnderflowError struct {
	EmployeeID ledger.EmployeeID
	Year       int
	Type       policy.LeaveType
	Used       decimal.Decimal
	Restore    decimal.Decimal
}

func (e *QuotaUnderflowError) Error() string {
	return fmt.Sprintf("quota underflow for %s/%d/%s: used %s, restore %s",
		e.EmployeeID, e.Year, e.Type, e.Used, e.Restore)
}

func (e *QuotaUnderflowError) Unwrap() error { return ledger.ErrState }
