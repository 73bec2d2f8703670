/*
calculator.go - Monthly salary statements

PURPOSE:
  Fold one month of punch statistics and resolved pay rates into a salary
  statement, and persist statements as append-only snapshots.

FORMULAS:
  hourly_pay   = total_hours    x hourly_rate
  overtime_pay = overtime_hours x overtime_rate
  late_penalty = late_count     x policy penalty
  gross        = base + hourly_pay + overtime_pay + bonus
  net          = max(0, gross - deductions - late_penalty)

  The net floor at zero is deliberate: a statement never shows a negative
  payout, however large the deductions.

SNAPSHOT SEMANTICS:
  CalculateAndStore always appends a new snapshot row. Recalculating a month
  leaves the earlier snapshots intact; Latest picks the newest.

SEE ALSO:
  - profile.go: rate resolution with policy fallback
  - punch/ledger.go: MonthlyWorkStats, the statistics input
*/
package payroll

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/timecomp/ledger"
	"github.com/warp/timecomp/policy"
	"github.com/warp/timecomp/punch"
)

// WorkStatsSource supplies the month's punch statistics. The punch ledger
// implements this.
type WorkStatsSource interface {
	MonthlyWorkStats(ctx context.Context, id ledger.EmployeeID, year int, month time.Month) (punch.WorkStats, error)
}

// Calculator derives monthly salary statements.
type Calculator struct {
	stats    WorkStatsSource
	profiles *Profiles
	store    Store
	settings *policy.Settings
}

func NewCalculator(stats WorkStatsSource, profiles *Profiles, store Store, settings *policy.Settings) *Calculator {
	return &Calculator{stats: stats, profiles: profiles, store: store, settings: settings}
}

// =============================================================================
// CALCULATION
// =============================================================================

// MonthlySalary computes a statement without persisting it. The computation
// is a pure fold over the month's punch log and the resolved rates: running
// it twice over the same inputs yields the same figures.
func (c *Calculator) MonthlySalary(ctx context.Context, id ledger.EmployeeID, year int, month time.Month) (Statement, error) {
	if month < time.January || month > time.December {
		return Statement{}, &ledger.ValidationError{Field: "month", Message: "must be 1..12"}
	}

	stats, err := c.stats.MonthlyWorkStats(ctx, id, year, month)
	if err != nil {
		return Statement{}, err
	}
	rates, err := c.profiles.Resolve(ctx, id)
	if err != nil {
		return Statement{}, err
	}

	hourlyPay := stats.TotalHours.Mul(rates.HourlyRate)
	overtimePay := stats.OvertimeHours.Mul(rates.OvertimeRate)
	latePenalty := c.settings.LatePenalty.Mul(decimal.NewFromInt(int64(stats.LateCount)))

	gross := rates.BaseSalary.Add(hourlyPay).Add(overtimePay).Add(rates.Bonus)
	totalDeductions := rates.Deductions.Add(latePenalty)

	net := gross.Sub(totalDeductions)
	if net.IsNegative() {
		net = decimal.Zero
	}

	return Statement{
		ID:         uuid.NewString(),
		EmployeeID: id,
		Year:       year,
		Month:      month,

		WorkStats: stats,

		BaseSalary:  rates.BaseSalary,
		HourlyPay:   hourlyPay,
		OvertimePay: overtimePay,
		Bonus:       rates.Bonus,
		Gross:       gross,

		Deductions:      rates.Deductions,
		LatePenalty:     latePenalty,
		TotalDeductions: totalDeductions,

		Net:          net,
		CalculatedAt: time.Now(),
	}, nil
}

// CalculateAndStore computes the month's statement and appends it as a new
// snapshot.
func (c *Calculator) CalculateAndStore(ctx context.Context, id ledger.EmployeeID, year int, month time.Month) (Statement, error) {
	s, err := c.MonthlySalary(ctx, id, year, month)
	if err != nil {
		return Statement{}, err
	}
	if err := c.store.AppendStatement(ctx, s); err != nil {
		return Statement{}, err
	}
	return s, nil
}

// =============================================================================
// HISTORY
// =============================================================================

// Latest returns the newest snapshot for a month, reporting absence without
// error.
func (c *Calculator) Latest(ctx context.Context, id ledger.EmployeeID, year int, month time.Month) (Statement, bool, error) {
	snapshots, err := c.store.Statements(ctx, id, year, month)
	if err != nil {
		return Statement{}, false, err
	}
	if len(snapshots) == 0 {
		return Statement{}, false, nil
	}
	return snapshots[0], true, nil
}

// Snapshots returns every stored snapshot for a month, newest first.
func (c *Calculator) Snapshots(ctx context.Context, id ledger.EmployeeID, year int, month time.Month) ([]Statement, error) {
	return c.store.Statements(ctx, id, year, month)
}

// History returns the latest snapshot for each of the months months ending at
// (year, month), oldest first. Months that were never calculated are skipped.
func (c *Calculator) History(ctx context.Context, id ledger.EmployeeID, year int, month time.Month, months int) ([]Statement, error) {
	if months <= 0 {
		return nil, &ledger.ValidationError{Field: "months", Message: "must be positive"}
	}

	anchor := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Statement, 0, months)
	for i := months - 1; i >= 0; i-- {
		at := anchor.AddDate(0, -i, 0)
		s, found, err := c.Latest(ctx, id, at.Year(), at.Month())
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, s)
		}
	}
	return out, nil
}

// =============================================================================
// BATCH
// =============================================================================

// MonthlyResult is one employee's outcome in a batch run.
type MonthlyResult struct {
	EmployeeID ledger.EmployeeID
	Statement  Statement
	Err        error
}

// MonthlyAll calculates and stores the month for every employee, one
// goroutine per employee. Each employee succeeds or fails independently;
// results come back in input order.
func (c *Calculator) MonthlyAll(ctx context.Context, ids []ledger.EmployeeID, year int, month time.Month) []MonthlyResult {
	results := make([]MonthlyResult, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id ledger.EmployeeID) {
			defer wg.Done()
			s, err := c.CalculateAndStore(ctx, id, year, month)
			results[i] = MonthlyResult{EmployeeID: id, Statement: s, Err: err}
		}(i, id)
	}
	wg.Wait()
	return results
}
