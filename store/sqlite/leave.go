package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/timecomp/leave"
	"github.com/warp/timecomp/ledger"
	"github.com/warp/timecomp/policy"
)

// Leave returns the leave.Store view.
func (d *DB) Leave() leave.Store {
	return &leaveStore{d: d}
}

// leaveStore serves both direct calls and WithTx scopes: tx is nil for
// direct calls and set inside a transaction, where the write lock is
// already held.
type leaveStore struct {
	d  *DB
	tx *sql.Tx
}

func (s *leaveStore) q() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.d.db
}

func (s *leaveStore) rlock() func() {
	if s.tx != nil {
		return func() {}
	}
	s.d.mu.RLock()
	return s.d.mu.RUnlock
}

func (s *leaveStore) wlock() func() {
	if s.tx != nil {
		return func() {}
	}
	s.d.mu.Lock()
	return s.d.mu.Unlock
}

// WithTx runs fn against a transactional view. Rolls back when fn errors.
func (s *leaveStore) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	return s.d.withTx(ctx, func(tx *sql.Tx) error {
		return fn(&leaveStore{d: s.d, tx: tx})
	})
}

// =============================================================================
// REQUESTS
// =============================================================================

func (s *leaveStore) InsertRequest(ctx context.Context, r leave.Request) error {
	defer s.wlock()()

	query := `
		INSERT INTO leave_requests
		(id, employee_id, leave_type, start_at, end_at, total_days, total_hours,
		 reason, status, approved_by, approved_at, rejected_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.q().ExecContext(ctx, query,
		string(r.ID),
		string(r.EmployeeID),
		string(r.Type),
		r.Start.Format(timeFormat),
		r.End.Format(timeFormat),
		r.TotalDays.String(),
		r.TotalHours.String(),
		nullString(r.Reason),
		string(r.Status),
		nullString(r.ApprovedBy),
		nullTime(r.ApprovedAt),
		nullString(r.RejectedReason),
		r.CreatedAt.UTC().Format(timeFormat),
		r.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to insert leave request: %w", err)
	}
	return nil
}

func (s *leaveStore) GetRequest(ctx context.Context, id ledger.RequestID) (leave.Request, error) {
	defer s.rlock()()

	query := selectLeaveRequest + ` WHERE id = ?`
	row := s.q().QueryRowContext(ctx, query, string(id))

	r, err := scanLeaveRequest(row.Scan)
	if err == sql.ErrNoRows {
		return leave.Request{}, &ledger.NotFoundError{Kind: "leave request", ID: string(id)}
	}
	if err != nil {
		return leave.Request{}, fmt.Errorf("failed to get leave request: %w", err)
	}
	return r, nil
}

func (s *leaveStore) UpdateRequest(ctx context.Context, r leave.Request) error {
	defer s.wlock()()

	query := `
		UPDATE leave_requests SET
			status = ?, approved_by = ?, approved_at = ?, rejected_reason = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.q().ExecContext(ctx, query,
		string(r.Status),
		nullString(r.ApprovedBy),
		nullTime(r.ApprovedAt),
		nullString(r.RejectedReason),
		r.UpdatedAt.UTC().Format(timeFormat),
		string(r.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update leave request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ledger.NotFoundError{Kind: "leave request", ID: string(r.ID)}
	}
	return nil
}

func (s *leaveStore) ActiveOverlapping(ctx context.Context, id ledger.EmployeeID, start, end time.Time) ([]leave.Request, error) {
	defer s.rlock()()

	// The overlap test runs in Go against the small active set so timezone
	// offsets in stored timestamps never skew a string comparison.
	query := selectLeaveRequest + `
		WHERE employee_id = ? AND status IN ('pending', 'approved')
		ORDER BY start_at ASC
	`
	active, err := s.queryRequests(ctx, query, string(id))
	if err != nil {
		return nil, err
	}

	var overlapping []leave.Request
	for _, r := range active {
		if r.Overlaps(start, end) {
			overlapping = append(overlapping, r)
		}
	}
	return overlapping, nil
}

func (s *leaveStore) RequestsInYear(ctx context.Context, id ledger.EmployeeID, year int) ([]leave.Request, error) {
	defer s.rlock()()

	query := selectLeaveRequest + `
		WHERE employee_id = ?
		ORDER BY start_at ASC
	`
	all, err := s.queryRequests(ctx, query, string(id))
	if err != nil {
		return nil, err
	}

	var inYear []leave.Request
	for _, r := range all {
		if r.Start.Year() == year {
			inYear = append(inYear, r)
		}
	}
	return inYear, nil
}

const selectLeaveRequest = `
	SELECT id, employee_id, leave_type, start_at, end_at, total_days, total_hours,
	       reason, status, approved_by, approved_at, rejected_reason, created_at, updated_at
	FROM leave_requests
`

func (s *leaveStore) queryRequests(ctx context.Context, query string, args ...any) ([]leave.Request, error) {
	rows, err := s.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave requests: %w", err)
	}
	defer rows.Close()

	var requests []leave.Request
	for rows.Next() {
		r, err := scanLeaveRequest(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leave request: %w", err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func scanLeaveRequest(scan func(dest ...any) error) (leave.Request, error) {
	var (
		r                          leave.Request
		reqID, emp, typ, status    string
		startAt, endAt             string
		totalDays, totalHours      string
		reason, approvedBy         sql.NullString
		approvedAt, rejectedReason sql.NullString
		createdAt, updatedAt       string
	)
	err := scan(&reqID, &emp, &typ, &startAt, &endAt, &totalDays, &totalHours,
		&reason, &status, &approvedBy, &approvedAt, &rejectedReason, &createdAt, &updatedAt)
	if err != nil {
		return r, err
	}

	r.ID = ledger.RequestID(reqID)
	r.EmployeeID = ledger.EmployeeID(emp)
	r.Type = policy.LeaveType(typ)
	r.Start, _ = time.Parse(time.RFC3339Nano, startAt)
	r.End, _ = time.Parse(time.RFC3339Nano, endAt)
	r.TotalDays = parseDec(totalDays)
	r.TotalHours = parseDec(totalHours)
	r.Reason = reason.String
	r.Status = leave.Status(status)
	r.ApprovedBy = approvedBy.String
	r.ApprovedAt = parseNullTime(approvedAt)
	r.RejectedReason = rejectedReason.String
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return r, nil
}

// =============================================================================
// QUOTAS
// =============================================================================

func (s *leaveStore) GetQuota(ctx context.Context, id ledger.EmployeeID, year int, t policy.LeaveType) (leave.Quota, bool, error) {
	defer s.rlock()()

	var (
		q                     leave.Quota
		allocated, used       string
		updatedAt             string
	)
	err := s.q().QueryRowContext(ctx,
		`SELECT allocated, used, updated_at FROM leave_quotas
		 WHERE employee_id = ? AND year = ? AND leave_type = ?`,
		string(id), year, string(t),
	).Scan(&allocated, &used, &updatedAt)

	if err == sql.ErrNoRows {
		return leave.Quota{}, false, nil
	}
	if err != nil {
		return leave.Quota{}, false, fmt.Errorf("failed to get quota: %w", err)
	}

	q.EmployeeID = id
	q.Year = year
	q.Type = t
	q.Allocated = parseDec(allocated)
	q.Used = parseDec(used)
	q.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return q, true, nil
}

func (s *leaveStore) PutQuota(ctx context.Context, q leave.Quota) error {
	defer s.wlock()()

	query := `
		INSERT INTO leave_quotas (employee_id, year, leave_type, allocated, used, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, year, leave_type) DO UPDATE SET
			allocated = excluded.allocated,
			used = excluded.used,
			updated_at = excluded.updated_at
	`
	_, err := s.q().ExecContext(ctx, query,
		string(q.EmployeeID), q.Year, string(q.Type),
		q.Allocated.String(), q.Used.String(),
		q.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to put quota: %w", err)
	}
	return nil
}

func (s *leaveStore) QuotasInYear(ctx context.Context, id ledger.EmployeeID, year int) ([]leave.Quota, error) {
	defer s.rlock()()

	rows, err := s.q().QueryContext(ctx,
		`SELECT leave_type, allocated, used, updated_at FROM leave_quotas
		 WHERE employee_id = ? AND year = ?
		 ORDER BY leave_type ASC`,
		string(id), year,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotas: %w", err)
	}
	defer rows.Close()

	var quotas []leave.Quota
	for rows.Next() {
		var (
			typ, allocated, used, updatedAt string
		)
		if err := rows.Scan(&typ, &allocated, &used, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quota: %w", err)
		}
		q := leave.Quota{
			EmployeeID: id,
			Year:       year,
			Type:       policy.LeaveType(typ),
			Allocated:  parseDec(allocated),
			Used:       parseDec(used),
		}
		q.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		quotas = append(quotas, q)
	}
	return quotas, rows.Err()
}

// =============================================================================
// DECISION LOG
// =============================================================================

func (s *leaveStore) AppendDecision(ctx context.Context, entry leave.DecisionEntry) error {
	defer s.wlock()()

	query := `
		INSERT INTO leave_decisions (id, request_id, reviewer_id, action, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.q().ExecContext(ctx, query,
		entry.ID,
		string(entry.RequestID),
		entry.ReviewerID,
		entry.Action,
		nullString(entry.Reason),
		entry.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to append decision entry: %w", err)
	}
	return nil
}
