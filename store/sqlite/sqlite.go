/*
Package sqlite provides the SQLite-backed implementations of the storage
ports.

PURPOSE:
  One database holds every ledger's tables. Each domain port gets its own
  view over the shared connection:

    db, _ := sqlite.New("./data/timecomp.db")
    punchStore    := db.Punch()      // punch.Store
    leaveStore    := db.Leave()      // leave.Store
    overtimeStore := db.Overtime()   // overtime.Store
    payrollStore  := db.Payroll()    // payroll.Store

KEY TABLES:
  punch_events:       Append-only punch log (no UPDATE, no DELETE)
  leave_requests:     Leave request lifecycle rows
  leave_quotas:       Annual quota balances, keyed (employee, year, type)
  leave_decisions:    Append-only review audit trail
  overtime_requests:  Overtime request lifecycle rows
  overtime_records:   Append-only approved-overtime pay snapshots
  pay_profiles:       Per-employee pay rates
  salary_statements:  Append-only monthly statement snapshots

SCHEMA-LEVEL INVARIANTS:
  idx_overtime_active_day enforces at most one pending/approved overtime
  request per (employee, date) even if the application-level check races.
  overtime_records.request_id is UNIQUE: one snapshot per approval.

WAL MODE:
  SQLite is opened with WAL so readers do not block the single writer.

MIGRATION:
  The schema is auto-migrated on New(). A production deployment would use a
  versioned migration tool instead.

SEE ALSO:
  - store/memory: the in-memory counterparts used by tests
  - punch/types.go, leave/types.go, overtime/types.go, payroll/types.go:
    the port definitions implemented here
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/timecomp/ledger"
)

// DB is the shared SQLite handle behind every domain store.
type DB struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite has a single writer anyway, and a pooled second
	// connection to ":memory:" would see a separate empty database.
	db.SetMaxOpenConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) migrate() error {
	schema := `
	-- Punch events (append-only log)
	CREATE TABLE IF NOT EXISTS punch_events (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		at TEXT NOT NULL,
		day TEXT NOT NULL,
		ip TEXT,
		network_info TEXT,
		flag TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_punch_employee_day
		ON punch_events(employee_id, day);
	CREATE INDEX IF NOT EXISTS idx_punch_employee_at
		ON punch_events(employee_id, at DESC);

	-- Leave requests
	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		total_days TEXT NOT NULL,
		total_hours TEXT NOT NULL,
		reason TEXT,
		status TEXT NOT NULL,
		approved_by TEXT,
		approved_at TEXT,
		rejected_reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_employee_status
		ON leave_requests(employee_id, status);
	CREATE INDEX IF NOT EXISTS idx_leave_employee_start
		ON leave_requests(employee_id, start_at);

	-- Quota balances, one row per (employee, year, type)
	CREATE TABLE IF NOT EXISTS leave_quotas (
		employee_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		leave_type TEXT NOT NULL,
		allocated TEXT NOT NULL,
		used TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, year, leave_type)
	);

	-- Review audit trail (append-only)
	CREATE TABLE IF NOT EXISTS leave_decisions (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		reviewer_id TEXT NOT NULL,
		action TEXT NOT NULL,
		reason TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_decisions_request
		ON leave_decisions(request_id);

	-- Overtime requests
	CREATE TABLE IF NOT EXISTS overtime_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		day TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		hours TEXT NOT NULL,
		reason TEXT,
		status TEXT NOT NULL,
		approved_by TEXT,
		approved_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: one pending/approved overtime request per (employee, day),
	-- enforced at the schema level as the backstop to the ledger's check
	CREATE UNIQUE INDEX IF NOT EXISTS idx_overtime_active_day
		ON overtime_requests(employee_id, day)
		WHERE status IN ('pending', 'approved');

	CREATE INDEX IF NOT EXISTS idx_overtime_employee_day
		ON overtime_requests(employee_id, day);

	-- Approved-overtime pay snapshots (append-only)
	CREATE TABLE IF NOT EXISTS overtime_records (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL UNIQUE,
		employee_id TEXT NOT NULL,
		day TEXT NOT NULL,
		hours TEXT NOT NULL,
		rate TEXT NOT NULL,
		payable TEXT NOT NULL,
		approved_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_overtime_records_employee_day
		ON overtime_records(employee_id, day);

	-- Pay profiles
	CREATE TABLE IF NOT EXISTS pay_profiles (
		employee_id TEXT PRIMARY KEY,
		base_salary TEXT NOT NULL,
		hourly_rate TEXT NOT NULL,
		overtime_rate TEXT NOT NULL,
		bonus TEXT NOT NULL,
		deductions TEXT NOT NULL,
		effective_date TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Monthly statement snapshots (append-only)
	CREATE TABLE IF NOT EXISTS salary_statements (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		work_days INTEGER NOT NULL,
		total_hours TEXT NOT NULL,
		overtime_hours TEXT NOT NULL,
		late_count INTEGER NOT NULL,
		average_hours TEXT NOT NULL,
		base_salary TEXT NOT NULL,
		hourly_pay TEXT NOT NULL,
		overtime_pay TEXT NOT NULL,
		bonus TEXT NOT NULL,
		gross TEXT NOT NULL,
		deductions TEXT NOT NULL,
		late_penalty TEXT NOT NULL,
		total_deductions TEXT NOT NULL,
		net TEXT NOT NULL,
		calculated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_statements_employee_month
		ON salary_statements(employee_id, year, month, calculated_at DESC);
	`

	_, err := d.db.Exec(schema)
	return err
}

// =============================================================================
// SHARED PLUMBING
// =============================================================================

// timeFormat is RFC3339 with fixed-width nanoseconds so stored timestamps
// sort correctly as strings (RFC3339Nano trims trailing zeros and does not).
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// querier is satisfied by both *sql.DB and *sql.Tx so the same statement
// helpers serve direct calls and WithTx scopes.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside one SQL transaction under the write lock. Store
// views handed to fn skip locking; the lock is already held here.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeFormat), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseDec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return v
}

func parseDay(s string) ledger.Date {
	d, err := ledger.ParseDate(s)
	if err != nil {
		return ledger.Date{}
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
