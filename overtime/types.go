// Package overtime implements the overtime ledger: the request lifecycle and
// the immutable pay snapshots created on approval.
package overtime

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timecomp/ledger"
)

// =============================================================================
// REQUEST STATE MACHINE
// =============================================================================

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request is one overtime application. Hours are derived at submission;
// overnight ranges (end <= start) wrap past midnight.
//
// Unlike leave, a decided request is immutable: approved and rejected
// requests can never be cancelled afterwards.
type Request struct {
	ID         ledger.RequestID
	EmployeeID ledger.EmployeeID
	Date       ledger.Date
	Start      ledger.TimeOfDay
	End        ledger.TimeOfDay
	Hours      decimal.Decimal
	Reason     string
	Status     Status

	ApprovedBy string
	ApprovedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// OVERTIME RECORD - Immutable pay snapshot
// =============================================================================

// Record freezes the payable amount at approval time. Later changes to the
// employee's overtime rate never touch an existing record.
type Record struct {
	ID         string
	RequestID  ledger.RequestID
	EmployeeID ledger.EmployeeID
	Date       ledger.Date
	Hours      decimal.Decimal
	Rate       decimal.Decimal
	Payable    decimal.Decimal
	ApprovedBy string
	CreatedAt  time.Time
}

// =============================================================================
// PORTS
// =============================================================================

// Store is the persistence port for overtime requests and records. Records
// are append-only; requests are deleted only by a Pending cancel.
type Store interface {
	InsertRequest(ctx context.Context, r Request) error
	GetRequest(ctx context.Context, id ledger.RequestID) (Request, error)
	UpdateRequest(ctx context.Context, r Request) error

	// DeleteRequest removes a request row. Only a Pending cancel may call
	// this; decided requests are never deleted.
	DeleteRequest(ctx context.Context, id ledger.RequestID) error

	// ActiveOnDate returns the employee's Pending/Approved requests for a day.
	ActiveOnDate(ctx context.Context, id ledger.EmployeeID, day ledger.Date) ([]Request, error)

	// RequestsBetween returns requests with dates in [from, to].
	RequestsBetween(ctx context.Context, id ledger.EmployeeID, from, to ledger.Date) ([]Request, error)

	AppendRecord(ctx context.Context, rec Record) error

	// RecordsBetween returns records with dates in [from, to].
	RecordsBetween(ctx context.Context, id ledger.EmployeeID, from, to ledger.Date) ([]Record, error)

	// WithTx runs fn against a transactional view of the store.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// RateSource supplies the employee's current overtime rate. The payroll
// profile store implements this, falling back to the policy default when the
// employee has no profile.
type RateSource interface {
	OvertimeRate(ctx context.Context, id ledger.EmployeeID) (decimal.Decimal, error)
}

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// DuplicateDayError reports an existing Pending/Approved request on the day.
type DuplicateDayError struct {
	EmployeeID ledger.EmployeeID
	Date       ledger.Date
	ExistingID ledger.RequestID
}

func (e *DuplicateDayError) Error() string {
	return fmt.Sprintf("overtime already requested for %s (request %s)", e.Date, e.ExistingID)
}

func (e *DuplicateDayError) Unwrap() error { return ledger.ErrConflict }
