// Package punch implements the punch ledger: an append-only log of clock-in
// and clock-out events from which daily and monthly worked hours are derived.
package punch

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timecomp/ledger"
)

// =============================================================================
// PUNCH EVENTS
// =============================================================================

type Kind string

const (
	ClockIn  Kind = "clock_in"
	ClockOut Kind = "clock_out"
)

type Flag string

const (
	FlagNormal Flag = "normal"
	FlagLate   Flag = "late"
	// FlagNetworkViolation marks a punch recorded from a disallowed network
	// while enforcement is off. Enforced denials are rejected outright.
	FlagNetworkViolation Flag = "network_violation"
)

// Origin records where a punch came from.
type Origin struct {
	IP          string
	NetworkInfo string
}

// Event is one immutable punch record. Events are append-only: corrections
// are made by appending, never by editing history.
type Event struct {
	ID         string
	EmployeeID ledger.EmployeeID
	Kind       Kind
	At         time.Time
	Origin     Origin
	Flag       Flag
}

// =============================================================================
// SESSIONS - Derived pairing, never persisted
// =============================================================================

// Session pairs a clock-in with the next clock-out of the same day.
// Out is nil while the session is still open.
type Session struct {
	In  Event
	Out *Event
}

// Open reports whether the session has no closing clock-out yet.
func (s Session) Open() bool { return s.Out == nil }

// Duration returns the completed session length; zero for an open session.
func (s Session) Duration() time.Duration {
	if s.Out == nil {
		return 0
	}
	return s.Out.At.Sub(s.In.At)
}

// NoOpenSessionError rejects a clock-out with no unmatched clock-in: the
// punch conflicts with the recorded state of the day, not with a lifecycle
// status.
type NoOpenSessionError struct {
	EmployeeID ledger.EmployeeID
	Day        ledger.Date
}

func (e *NoOpenSessionError) Error() string {
	return fmt.Sprintf("no open session for %s on %s", e.EmployeeID, e.Day)
}

func (e *NoOpenSessionError) Unwrap() error { return ledger.ErrConflict }

// =============================================================================
// WORK STATS
// =============================================================================

// WorkStats summarizes a month of punches.
type WorkStats struct {
	WorkDays      int
	TotalHours    decimal.Decimal
	OvertimeHours decimal.Decimal
	LateCount     int
	AverageHours  decimal.Decimal
}

// WorkState is the employee's current state derived from the last punch.
type WorkState string

const (
	StateWorking WorkState = "working"
	StateOff     WorkState = "off"
)

// =============================================================================
// PORTS
// =============================================================================

// Store is the persistence port for punch events. Append-only: there is no
// update and no delete.
type Store interface {
	// Append persists one event.
	Append(ctx context.Context, ev Event) error

	// EventsOn returns the employee's events on a day, ordered by timestamp.
	EventsOn(ctx context.Context, id ledger.EmployeeID, day ledger.Date) ([]Event, error)

	// EventsBetween returns events in [from, to] inclusive, ordered by timestamp.
	EventsBetween(ctx context.Context, id ledger.EmployeeID, from, to ledger.Date) ([]Event, error)

	// Recent returns the employee's most recent events, newest first.
	Recent(ctx context.Context, id ledger.EmployeeID, limit int) ([]Event, error)
}

// Decision is the outcome of a network policy check.
type Decision struct {
	Allowed bool
	IP      string
	Info    string
}

// NetworkPolicy decides whether a punch origin is acceptable. The check is a
// synchronous precondition: a lookup error or enforced denial aborts the punch
// before anything is written. The implementation (CIDR allow-lists, VPN
// detection) lives outside this module.
type NetworkPolicy interface {
	Check(ctx context.Context, origin Origin) (Decision, error)
}

// AllowAll is a NetworkPolicy that accepts every origin.
type AllowAll struct{}

func (AllowAll) Check(_ context.Context, origin Origin) (Decision, error) {
	return Decision{Allowed: true, IP: origin.IP, Info: "network check disabled"}, nil
}
