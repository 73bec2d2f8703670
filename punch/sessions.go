package punch

import (
	"sort"
	"time"
)

// =============================================================================
// SESSION PAIRING - Pure fold over the event log
// =============================================================================

// PairSessions reconstructs sessions from a day's events. It sorts internally
// so the result is invariant to input ordering, pairs each clock-in with the
// next clock-out, and leaves a trailing unmatched clock-in as an open session.
//
// This is a pure function over the immutable log. There is no cached running
// total anywhere that could desynchronize from it.
func PairSessions(events []Event) []Session {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].At.Before(sorted[j].At)
	})

	var sessions []Session
	var open *Session
	for i := range sorted {
		ev := sorted[i]
		switch ev.Kind {
		case ClockIn:
			if open != nil {
				// Unclosed session followed by another clock-in: the earlier
				// session stays open (contributes zero completed hours).
				sessions = append(sessions, *open)
			}
			open = &Session{In: ev}
		case ClockOut:
			if open != nil {
				out := ev
				open.Out = &out
				sessions = append(sessions, *open)
				open = nil
			}
			// A clock-out with no preceding clock-in is ignored here; the
			// ledger never writes one, but the fold must stay total.
		}
	}
	if open != nil {
		sessions = append(sessions, *open)
	}
	return sessions
}

// CompletedDuration sums the durations of the closed sessions.
// Open sessions contribute zero.
func CompletedDuration(sessions []Session) time.Duration {
	var total time.Duration
	for _, s := range sessions {
		total += s.Duration()
	}
	return total
}

// countKind counts events of one kind.
func countKind(events []Event, kind Kind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// lastUnmatchedClockIn returns the most recent clock-in without a later
// clock-out, or nil when no session is open.
func lastUnmatchedClockIn(events []Event) *Event {
	sessions := PairSessions(events)
	for i := len(sessions) - 1; i >= 0; i-- {
		if sessions[i].Open() {
			in := sessions[i].In
			return &in
		}
	}
	return nil
}
