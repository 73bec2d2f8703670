/*
ledger.go - Punch ledger operations

PURPOSE:
  Clock-in/clock-out with the daily caps, lateness flagging and the network
  precondition, plus the derived daily/monthly hour statistics.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: punch events are never updated or deleted
  2. CAPS: at most 2 clock-ins and 2 clock-outs per employee per day
  3. PAIRING: a clock-out requires an open session
  4. NO PARTIAL WRITES: a failed network check writes nothing

CONCURRENCY:
  Every mutation runs under the employee's lock (ledger.KeyedMutex) so that
  concurrent "count today's events, then insert" sequences serialize. Two
  concurrent clock-ins that both observe count < 2 cannot both commit.

LATENESS:
  Only the FIRST clock-in of a day is compared against
  work_start + late_threshold. Returning from lunch is not "late".

SECOND CLOCK-IN POLICY:
  A second clock-in is allowed only after the first session was closed.
  Clocking in while a session is open is a conflict (the employee is already
  working), not a silent second session start.

SEE ALSO:
  - sessions.go: the pure pairing fold
  - ledger/errors.go: error kinds returned here
*/
package punch

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/timecomp/ledger"
	"github.com/warp/timecomp/policy"
)

// Ledger coordinates punch mutations and derivations.
type Ledger struct {
	store    Store
	settings *policy.Settings
	network  NetworkPolicy
	locks    *ledger.KeyedMutex
}

func NewLedger(store Store, settings *policy.Settings, network NetworkPolicy, locks *ledger.KeyedMutex) *Ledger {
	if network == nil {
		network = AllowAll{}
	}
	return &Ledger{store: store, settings: settings, network: network, locks: locks}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// ClockIn records a clock-in at now. The event is flagged Late when it is the
// first clock-in of the day and now is past work_start + late_threshold.
func (l *Ledger) ClockIn(ctx context.Context, id ledger.EmployeeID, now time.Time, origin Origin) (Event, error) {
	unlock := l.locks.Lock(id)
	defer unlock()

	day := ledger.DateOf(now)
	events, err := l.store.EventsOn(ctx, id, day)
	if err != nil {
		return Event{}, err
	}

	ins := countKind(events, ClockIn)
	if ins >= l.settings.DailyPunchLimit {
		return Event{}, &ledger.LimitError{What: "clock-ins today", Limit: strconv.Itoa(l.settings.DailyPunchLimit) + " per day"}
	}
	if ins > countKind(events, ClockOut) {
		return Event{}, &ledger.StateError{Operation: "clock in", Status: "session still open"}
	}

	flag, err := l.checkNetwork(ctx, &origin)
	if err != nil {
		return Event{}, err
	}

	if ins == 0 && flag == FlagNormal {
		deadline := l.settings.WorkStart.On(day, now.Location()).Add(l.settings.LateThreshold)
		if now.After(deadline) {
			flag = FlagLate
		}
	}

	ev := Event{
		ID:         uuid.NewString(),
		EmployeeID: id,
		Kind:       ClockIn,
		At:         now,
		Origin:     origin,
		Flag:       flag,
	}
	if err := l.store.Append(ctx, ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// ClockOut records a clock-out at now and returns the event together with the
// duration of the session it closes.
func (l *Ledger) ClockOut(ctx context.Context, id ledger.EmployeeID, now time.Time, origin Origin) (Event, time.Duration, error) {
	unlock := l.locks.Lock(id)
	defer unlock()

	day := ledger.DateOf(now)
	events, err := l.store.EventsOn(ctx, id, day)
	if err != nil {
		return Event{}, 0, err
	}

	if countKind(events, ClockOut) >= l.settings.DailyPunchLimit {
		return Event{}, 0, &ledger.LimitError{What: "clock-outs today", Limit: strconv.Itoa(l.settings.DailyPunchLimit) + " per day"}
	}
	open := lastUnmatchedClockIn(events)
	if open == nil {
		return Event{}, 0, &NoOpenSessionError{EmployeeID: id, Day: day}
	}

	flag, err := l.checkNetwork(ctx, &origin)
	if err != nil {
		return Event{}, 0, err
	}

	ev := Event{
		ID:         uuid.NewString(),
		EmployeeID: id,
		Kind:       ClockOut,
		At:         now,
		Origin:     origin,
		Flag:       flag,
	}
	if err := l.store.Append(ctx, ev); err != nil {
		return Event{}, 0, err
	}
	return ev, now.Sub(open.At), nil
}

// checkNetwork runs the network precondition. A lookup error always aborts.
// A denial aborts when enforcement is on; otherwise the punch is recorded
// flagged as a network violation. Origin is enriched with the check's info.
func (l *Ledger) checkNetwork(ctx context.Context, origin *Origin) (Flag, error) {
	decision, err := l.network.Check(ctx, *origin)
	if err != nil {
		return "", &ledger.DependencyError{Dependency: "network policy check", Err: err}
	}
	if decision.IP != "" {
		origin.IP = decision.IP
	}
	if decision.Info != "" {
		origin.NetworkInfo = decision.Info
	}
	if decision.Allowed {
		return FlagNormal, nil
	}
	if l.settings.EnforceNetworkCheck {
		return "", &ledger.DependencyError{Dependency: "network policy check", Reason: decision.Info}
	}
	return FlagNetworkViolation, nil
}

// =============================================================================
// DERIVATIONS - Pure folds over the event log
// =============================================================================

// DailyHours returns the completed worked duration for a day. Deterministic
// and idempotent: it replays the day's events in timestamp order and sums
// clock-in -> clock-out pairs. An open session contributes zero.
func (l *Ledger) DailyHours(ctx context.Context, id ledger.EmployeeID, day ledger.Date) (time.Duration, error) {
	events, err := l.store.EventsOn(ctx, id, day)
	if err != nil {
		return 0, err
	}
	return CompletedDuration(PairSessions(events)), nil
}

// MonthlyWorkStats aggregates a month of punches.
func (l *Ledger) MonthlyWorkStats(ctx context.Context, id ledger.EmployeeID, year int, month time.Month) (WorkStats, error) {
	first, last := ledger.MonthRange(year, month)
	events, err := l.store.EventsBetween(ctx, id, first, last)
	if err != nil {
		return WorkStats{}, err
	}

	byDay := make(map[ledger.Date][]Event)
	stats := WorkStats{TotalHours: decimal.Zero, OvertimeHours: decimal.Zero, AverageHours: decimal.Zero}
	for _, ev := range events {
		byDay[ledger.DateOf(ev.At)] = append(byDay[ledger.DateOf(ev.At)], ev)
		if ev.Kind == ClockIn && ev.Flag == FlagLate {
			stats.LateCount++
		}
	}

	for _, dayEvents := range byDay {
		if countKind(dayEvents, ClockIn) == 0 {
			continue
		}
		stats.WorkDays++

		hours := ledger.HoursOf(CompletedDuration(PairSessions(dayEvents)))
		stats.TotalHours = stats.TotalHours.Add(hours)
		if over := hours.Sub(ledger.EightHours); over.IsPositive() {
			stats.OvertimeHours = stats.OvertimeHours.Add(over)
		}
	}

	if stats.WorkDays > 0 {
		stats.AverageHours = stats.TotalHours.Div(decimal.NewFromInt(int64(stats.WorkDays)))
	}
	return stats, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// State reports whether the employee is currently working, derived from the
// last event of the day.
func (l *Ledger) State(ctx context.Context, id ledger.EmployeeID, day ledger.Date) (WorkState, error) {
	events, err := l.store.EventsOn(ctx, id, day)
	if err != nil {
		return StateOff, err
	}
	if lastUnmatchedClockIn(events) != nil {
		return StateWorking, nil
	}
	return StateOff, nil
}

// Sessions returns the day's sessions in chronological order.
func (l *Ledger) Sessions(ctx context.Context, id ledger.EmployeeID, day ledger.Date) ([]Session, error) {
	events, err := l.store.EventsOn(ctx, id, day)
	if err != nil {
		return nil, err
	}
	return PairSessions(events), nil
}

// RecentEvents returns the employee's latest punches, newest first.
func (l *Ledger) RecentEvents(ctx context.Context, id ledger.EmployeeID, limit int) ([]Event, error) {
	return l.store.Recent(ctx, id, limit)
}
