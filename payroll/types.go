// Package payroll aggregates punch statistics and pay-rate profiles into
// monthly salary statements, persisted as append-only audit snapshots.
package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timecomp/ledger"
	"github.com/warp/timecomp/punch"
)

// =============================================================================
// PAY RATE PROFILE
// =============================================================================

// Profile is an employee's configured pay rates. All monetary fields are
// decimals; arithmetic never goes through floats.
type Profile struct {
	EmployeeID    ledger.EmployeeID
	BaseSalary    decimal.Decimal
	HourlyRate    decimal.Decimal
	OvertimeRate  decimal.Decimal
	Bonus         decimal.Decimal
	Deductions    decimal.Decimal
	EffectiveDate ledger.Date
}

// =============================================================================
// MONTHLY STATEMENT
// =============================================================================

// Statement is one monthly salary calculation. Statements are append-only
// audit snapshots keyed by (employee, year, month, calculated_at): a
// recalculation appends a new snapshot and never overwrites a prior one. The
// latest snapshot is authoritative for display; all are retained.
type Statement struct {
	ID         string
	EmployeeID ledger.EmployeeID
	Year       int
	Month      time.Month

	WorkStats punch.WorkStats

	BaseSalary  decimal.Decimal
	HourlyPay   decimal.Decimal
	OvertimePay decimal.Decimal
	Bonus       decimal.Decimal
	Gross       decimal.Decimal

	Deductions      decimal.Decimal
	LatePenalty     decimal.Decimal
	TotalDeductions decimal.Decimal

	Net decimal.Decimal

	CalculatedAt time.Time
}

// =============================================================================
// PORT
// =============================================================================

// Store is the persistence port for profiles and statement snapshots.
// Statement writes are append-only.
type Store interface {
	GetProfile(ctx context.Context, id ledger.EmployeeID) (Profile, bool, error)
	PutProfile(ctx context.Context, p Profile) error

	// AppendStatement persists a new snapshot. It never replaces an
	// existing row.
	AppendStatement(ctx context.Context, s Statement) error

	// Statements returns all snapshots for (employee, year, month),
	// newest first.
	Statements(ctx context.Context, id ledger.EmployeeID, year int, month time.Month) ([]Statement, error)
}
