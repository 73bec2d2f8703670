package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/timecomp/ledger"
	"github.com/warp/timecomp/punch"
)

// Punch returns the punch.Store view. The punch log is append-only: this
// view exposes no update and no delete.
func (d *DB) Punch() punch.Store {
	return &punchStore{d: d}
}

type punchStore struct {
	d *DB
}

func (s *punchStore) Append(ctx context.Context, ev punch.Event) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	query := `
		INSERT INTO punch_events
		(id, employee_id, kind, at, day, ip, network_info, flag, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.d.db.ExecContext(ctx, query,
		ev.ID,
		string(ev.EmployeeID),
		string(ev.Kind),
		ev.At.UTC().Format(timeFormat),
		ledger.DateOf(ev.At).String(),
		nullString(ev.Origin.IP),
		nullString(ev.Origin.NetworkInfo),
		string(ev.Flag),
		time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to append punch event: %w", err)
	}
	return nil
}

func (s *punchStore) EventsOn(ctx context.Context, id ledger.EmployeeID, day ledger.Date) ([]punch.Event, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()

	query := `
		SELECT id, employee_id, kind, at, ip, network_info, flag
		FROM punch_events
		WHERE employee_id = ? AND day = ?
		ORDER BY at ASC
	`
	return s.queryEvents(ctx, query, string(id), day.String())
}

func (s *punchStore) EventsBetween(ctx context.Context, id ledger.EmployeeID, from, to ledger.Date) ([]punch.Event, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()

	query := `
		SELECT id, employee_id, kind, at, ip, network_info, flag
		FROM punch_events
		WHERE employee_id = ? AND day >= ? AND day <= ?
		ORDER BY at ASC
	`
	return s.queryEvents(ctx, query, string(id), from.String(), to.String())
}

func (s *punchStore) Recent(ctx context.Context, id ledger.EmployeeID, limit int) ([]punch.Event, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()

	query := `
		SELECT id, employee_id, kind, at, ip, network_info, flag
		FROM punch_events
		WHERE employee_id = ?
		ORDER BY at DESC
		LIMIT ?
	`
	return s.queryEvents(ctx, query, string(id), limit)
}

func (s *punchStore) queryEvents(ctx context.Context, query string, args ...any) ([]punch.Event, error) {
	rows, err := s.d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query punch events: %w", err)
	}
	defer rows.Close()

	var events []punch.Event
	for rows.Next() {
		var (
			ev       punch.Event
			emp      string
			kind     string
			at       string
			ip, info sql.NullString
			flag     string
		)
		if err := rows.Scan(&ev.ID, &emp, &kind, &at, &ip, &info, &flag); err != nil {
			return nil, fmt.Errorf("failed to scan punch event: %w", err)
		}
		ev.EmployeeID = ledger.EmployeeID(emp)
		ev.Kind = punch.Kind(kind)
		ev.At, _ = time.Parse(time.RFC3339Nano, at)
		ev.Origin = punch.Origin{IP: ip.String, NetworkInfo: info.String}
		ev.Flag = punch.Flag(flag)
		events = append(events, ev)
	}
	return events, rows.Err()
}
