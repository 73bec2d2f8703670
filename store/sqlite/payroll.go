package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/timecomp/ledger"
	"github.com/warp/timecomp/payroll"
	"github.com/warp/timecomp/punch"
)

// Payroll returns the payroll.Store view.
func (d *DB) Payroll() payroll.Store {
	return &payrollStore{d: d}
}

type payrollStore struct {
	d *DB
}

// =============================================================================
// PROFILES
// =============================================================================

func (s *payrollStore) GetProfile(ctx context.Context, id ledger.EmployeeID) (payroll.Profile, bool, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()

	var (
		p                    payroll.Profile
		base, hourly, over   string
		bonus, deductions    string
		effectiveDate        string
	)
	err := s.d.db.QueryRowContext(ctx,
		`SELECT base_salary, hourly_rate, overtime_rate, bonus, deductions, effective_date
		 FROM pay_profiles WHERE employee_id = ?`,
		string(id),
	).Scan(&base, &hourly, &over, &bonus, &deductions, &effectiveDate)

	if err == sql.ErrNoRows {
		return payroll.Profile{}, false, nil
	}
	if err != nil {
		return payroll.Profile{}, false, fmt.Errorf("failed to get pay profile: %w", err)
	}

	p.EmployeeID = id
	p.BaseSalary = parseDec(base)
	p.HourlyRate = parseDec(hourly)
	p.OvertimeRate = parseDec(over)
	p.Bonus = parseDec(bonus)
	p.Deductions = parseDec(deductions)
	p.EffectiveDate = parseDay(effectiveDate)
	return p, true, nil
}

func (s *payrollStore) PutProfile(ctx context.Context, p payroll.Profile) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	query := `
		INSERT INTO pay_profiles
		(employee_id, base_salary, hourly_rate, overtime_rate, bonus, deductions, effective_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			base_salary = excluded.base_salary,
			hourly_rate = excluded.hourly_rate,
			overtime_rate = excluded.overtime_rate,
			bonus = excluded.bonus,
			deductions = excluded.deductions,
			effective_date = excluded.effective_date,
			updated_at = excluded.updated_at
	`
	_, err := s.d.db.ExecContext(ctx, query,
		string(p.EmployeeID),
		p.BaseSalary.String(),
		p.HourlyRate.String(),
		p.OvertimeRate.String(),
		p.Bonus.String(),
		p.Deductions.String(),
		p.EffectiveDate.String(),
		time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to put pay profile: %w", err)
	}
	return nil
}

// =============================================================================
// STATEMENT SNAPSHOTS
// =============================================================================

func (s *payrollStore) AppendStatement(ctx context.Context, st payroll.Statement) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	query := `
		INSERT INTO salary_statements
		(id, employee_id, year, month, work_days, total_hours, overtime_hours,
		 late_count, average_hours, base_salary, hourly_pay, overtime_pay, bonus,
		 gross, deductions, late_penalty, total_deductions, net, calculated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.d.db.ExecContext(ctx, query,
		st.ID,
		string(st.EmployeeID),
		st.Year,
		int(st.Month),
		st.WorkStats.WorkDays,
		st.WorkStats.TotalHours.String(),
		st.WorkStats.OvertimeHours.String(),
		st.WorkStats.LateCount,
		st.WorkStats.AverageHours.String(),
		st.BaseSalary.String(),
		st.HourlyPay.String(),
		st.OvertimePay.String(),
		st.Bonus.String(),
		st.Gross.String(),
		st.Deductions.String(),
		st.LatePenalty.String(),
		st.TotalDeductions.String(),
		st.Net.String(),
		st.CalculatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to append salary statement: %w", err)
	}
	return nil
}

func (s *payrollStore) Statements(ctx context.Context, id ledger.EmployeeID, year int, month time.Month) ([]payroll.Statement, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()

	query := `
		SELECT id, employee_id, year, month, work_days, total_hours, overtime_hours,
		       late_count, average_hours, base_salary, hourly_pay, overtime_pay, bonus,
		       gross, deductions, late_penalty, total_deductions, net, calculated_at
		FROM salary_statements
		WHERE employee_id = ? AND year = ? AND month = ?
		ORDER BY calculated_at DESC
	`
	rows, err := s.d.db.QueryContext(ctx, query, string(id), year, int(month))
	if err != nil {
		return nil, fmt.Errorf("failed to query salary statements: %w", err)
	}
	defer rows.Close()

	var statements []payroll.Statement
	for rows.Next() {
		var (
			st                              payroll.Statement
			emp                             string
			monthNum                        int
			totalHours, overtimeHours       string
			averageHours                    string
			base, hourlyPay, overtimePay    string
			bonus, gross, deductions        string
			latePenalty, totalDeductions    string
			net, calculatedAt               string
		)
		if err := rows.Scan(
			&st.ID, &emp, &st.Year, &monthNum,
			&st.WorkStats.WorkDays, &totalHours, &overtimeHours,
			&st.WorkStats.LateCount, &averageHours,
			&base, &hourlyPay, &overtimePay, &bonus,
			&gross, &deductions, &latePenalty, &totalDeductions,
			&net, &calculatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan salary statement: %w", err)
		}
		st.EmployeeID = ledger.EmployeeID(emp)
		st.Month = time.Month(monthNum)
		st.WorkStats = punch.WorkStats{
			WorkDays:      st.WorkStats.WorkDays,
			TotalHours:    parseDec(totalHours),
			OvertimeHours: parseDec(overtimeHours),
			LateCount:     st.WorkStats.LateCount,
			AverageHours:  parseDec(averageHours),
		}
		st.BaseSalary = parseDec(base)
		st.HourlyPay = parseDec(hourlyPay)
		st.OvertimePay = parseDec(overtimePay)
		st.Bonus = parseDec(bonus)
		st.Gross = parseDec(gross)
		st.Deductions = parseDec(deductions)
		st.LatePenalty = parseDec(latePenalty)
		st.TotalDeductions = parseDec(totalDeductions)
		st.Net = parseDec(net)
		st.CalculatedAt, _ = time.Parse(time.RFC3339Nano, calculatedAt)
		statements = append(statements, st)
	}
	return statements, rows.Err()
}
