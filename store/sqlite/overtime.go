package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/timecomp/ledger"
	"github.com/warp/timecomp/overtime"
)

// Overtime returns the overtime.Store view.
func (d *DB) Overtime() overtime.Store {
	return &overtimeStore{d: d}
}

type overtimeStore struct {
	d  *DB
	tx *sql.Tx
}

func (s *overtimeStore) q() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.d.db
}

func (s *overtimeStore) rlock() func() {
	if s.tx != nil {
		return func() {}
	}
	s.d.mu.RLock()
	return s.d.mu.RUnlock
}

func (s *overtimeStore) wlock() func() {
	if s.tx != nil {
		return func() {}
	}
	s.d.mu.Lock()
	return s.d.mu.Unlock
}

// WithTx runs fn against a transactional view. Rolls back when fn errors.
func (s *overtimeStore) WithTx(ctx context.Context, fn func(overtime.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	return s.d.withTx(ctx, func(tx *sql.Tx) error {
		return fn(&overtimeStore{d: s.d, tx: tx})
	})
}

// =============================================================================
// REQUESTS
// =============================================================================

func (s *overtimeStore) InsertRequest(ctx context.Context, r overtime.Request) error {
	defer s.wlock()()

	query := `
		INSERT INTO overtime_requests
		(id, employee_id, day, start_time, end_time, hours, reason, status,
		 approved_by, approved_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.q().ExecContext(ctx, query,
		string(r.ID),
		string(r.EmployeeID),
		r.Date.String(),
		r.Start.String(),
		r.End.String(),
		r.Hours.String(),
		nullString(r.Reason),
		string(r.Status),
		nullString(r.ApprovedBy),
		nullTime(r.ApprovedAt),
		r.CreatedAt.UTC().Format(timeFormat),
		r.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		// idx_overtime_active_day backs the one-active-per-day rule
		if isUniqueConstraintError(err) {
			return fmt.Errorf("overtime already requested for %s: %w", r.Date, ledger.ErrConflict)
		}
		return fmt.Errorf("failed to insert overtime request: %w", err)
	}
	return nil
}

func (s *overtimeStore) GetRequest(ctx context.Context, id ledger.RequestID) (overtime.Request, error) {
	defer s.rlock()()

	row := s.q().QueryRowContext(ctx, selectOvertimeRequest+` WHERE id = ?`, string(id))
	r, err := scanOvertimeRequest(row.Scan)
	if err == sql.ErrNoRows {
		return overtime.Request{}, &ledger.NotFoundError{Kind: "overtime request", ID: string(id)}
	}
	if err != nil {
		return overtime.Request{}, fmt.Errorf("failed to get overtime request: %w", err)
	}
	return r, nil
}

func (s *overtimeStore) UpdateRequest(ctx context.Context, r overtime.Request) error {
	defer s.wlock()()

	query := `
		UPDATE overtime_requests SET
			status = ?, approved_by = ?, approved_at = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.q().ExecContext(ctx, query,
		string(r.Status),
		nullString(r.ApprovedBy),
		nullTime(r.ApprovedAt),
		r.UpdatedAt.UTC().Format(timeFormat),
		string(r.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update overtime request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ledger.NotFoundError{Kind: "overtime request", ID: string(r.ID)}
	}
	return nil
}

func (s *overtimeStore) DeleteRequest(ctx context.Context, id ledger.RequestID) error {
	defer s.wlock()()

	res, err := s.q().ExecContext(ctx, `DELETE FROM overtime_requests WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete overtime request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ledger.NotFoundError{Kind: "overtime request", ID: string(id)}
	}
	return nil
}

func (s *overtimeStore) ActiveOnDate(ctx context.Context, id ledger.EmployeeID, day ledger.Date) ([]overtime.Request, error) {
	defer s.rlock()()

	query := selectOvertimeRequest + `
		WHERE employee_id = ? AND day = ? AND status IN ('pending', 'approved')
	`
	return s.queryRequests(ctx, query, string(id), day.String())
}

func (s *overtimeStore) RequestsBetween(ctx context.Context, id ledger.EmployeeID, from, to ledger.Date) ([]overtime.Request, error) {
	defer s.rlock()()

	query := selectOvertimeRequest + `
		WHERE employee_id = ? AND day >= ? AND day <= ?
		ORDER BY day ASC
	`
	return s.queryRequests(ctx, query, string(id), from.String(), to.String())
}

const selectOvertimeRequest = `
	SELECT id, employee_id, day, start_time, end_time, hours, reason, status,
	       approved_by, approved_at, created_at, updated_at
	FROM overtime_requests
`

func (s *overtimeStore) queryRequests(ctx context.Context, query string, args ...any) ([]overtime.Request, error) {
	rows, err := s.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query overtime requests: %w", err)
	}
	defer rows.Close()

	var requests []overtime.Request
	for rows.Next() {
		r, err := scanOvertimeRequest(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan overtime request: %w", err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func scanOvertimeRequest(scan func(dest ...any) error) (overtime.Request, error) {
	var (
		r                    overtime.Request
		reqID, emp, day      string
		startT, endT         string
		hours, status        string
		reason, approvedBy   sql.NullString
		approvedAt           sql.NullString
		createdAt, updatedAt string
	)
	err := scan(&reqID, &emp, &day, &startT, &endT, &hours, &reason, &status,
		&approvedBy, &approvedAt, &createdAt, &updatedAt)
	if err != nil {
		return r, err
	}

	r.ID = ledger.RequestID(reqID)
	r.EmployeeID = ledger.EmployeeID(emp)
	r.Date = parseDay(day)
	r.Start, _ = ledger.ParseTimeOfDay(startT)
	r.End, _ = ledger.ParseTimeOfDay(endT)
	r.Hours = parseDec(hours)
	r.Reason = reason.String
	r.Status = overtime.Status(status)
	r.ApprovedBy = approvedBy.String
	r.ApprovedAt = parseNullTime(approvedAt)
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return r, nil
}

// =============================================================================
// RECORDS
// =============================================================================

func (s *overtimeStore) AppendRecord(ctx context.Context, rec overtime.Record) error {
	defer s.wlock()()

	query := `
		INSERT INTO overtime_records
		(id, request_id, employee_id, day, hours, rate, payable, approved_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.q().ExecContext(ctx, query,
		rec.ID,
		string(rec.RequestID),
		string(rec.EmployeeID),
		rec.Date.String(),
		rec.Hours.String(),
		rec.Rate.String(),
		rec.Payable.String(),
		nullString(rec.ApprovedBy),
		rec.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		// request_id is UNIQUE: one snapshot per approval
		if isUniqueConstraintError(err) {
			return fmt.Errorf("overtime record already exists for request %s: %w", rec.RequestID, ledger.ErrConflict)
		}
		return fmt.Errorf("failed to append overtime record: %w", err)
	}
	return nil
}

func (s *overtimeStore) RecordsBetween(ctx context.Context, id ledger.EmployeeID, from, to ledger.Date) ([]overtime.Record, error) {
	defer s.rlock()()

	query := `
		SELECT id, request_id, employee_id, day, hours, rate, payable, approved_by, created_at
		FROM overtime_records
		WHERE employee_id = ? AND day >= ? AND day <= ?
		ORDER BY day ASC
	`
	rows, err := s.q().QueryContext(ctx, query, string(id), from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query overtime records: %w", err)
	}
	defer rows.Close()

	var records []overtime.Record
	for rows.Next() {
		var (
			rec                  overtime.Record
			reqID, emp, day      string
			hours, rate, payable string
			approvedBy           sql.NullString
			createdAt            string
		)
		if err := rows.Scan(&rec.ID, &reqID, &emp, &day, &hours, &rate, &payable, &approvedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan overtime record: %w", err)
		}
		rec.RequestID = ledger.RequestID(reqID)
		rec.EmployeeID = ledger.EmployeeID(emp)
		rec.Date = parseDay(day)
		rec.Hours = parseDec(hours)
		rec.Rate = parseDec(rate)
		rec.Payable = parseDec(payable)
		rec.ApprovedBy = approvedBy.String
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}
