package punch_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timecomp/punch"
)

func eventAt(kind punch.Kind, hour, minute int) punch.Event {
	return punch.Event{
		ID:         string(kind) + time.Date(2026, time.March, 2, hour, minute, 0, 0, time.UTC).String(),
		EmployeeID: "emp-1",
		Kind:       kind,
		At:         time.Date(2026, time.March, 2, hour, minute, 0, 0, time.UTC),
		Flag:       punch.FlagNormal,
	}
}

func TestPairSessions_OrderInvariant(t *testing.T) {
	// GIVEN: A day of punches in chronological order and the same day shuffled
	// WHEN: Pairing sessions
	// THEN: Both orders derive identical sessions

	ordered := []punch.Event{
		eventAt(punch.ClockIn, 9, 0),
		eventAt(punch.ClockOut, 12, 0),
		eventAt(punch.ClockIn, 13, 0),
		eventAt(punch.ClockOut, 18, 0),
	}
	shuffled := []punch.Event{ordered[3], ordered[0], ordered[2], ordered[1]}

	a := punch.PairSessions(ordered)
	b := punch.PairSessions(shuffled)

	require.Len(t, a, 2)
	assert.Equal(t, a, b, "pairing must not depend on input order")
	assert.Equal(t, 3*time.Hour, a[0].Duration())
	assert.Equal(t, 5*time.Hour, a[1].Duration())
}

func TestPairSessions_OpenSessionKept(t *testing.T) {
	// GIVEN: A clock-in with no matching clock-out
	// WHEN: Pairing sessions
	// THEN: The trailing session is open and contributes zero duration

	events := []punch.Event{
		eventAt(punch.ClockIn, 9, 0),
		eventAt(punch.ClockOut, 12, 0),
		eventAt(punch.ClockIn, 13, 0),
	}

	sessions := punch.PairSessions(events)
	require.Len(t, sessions, 2)
	assert.False(t, sessions[0].Open())
	assert.True(t, sessions[1].Open())
	assert.Equal(t, time.Duration(0), sessions[1].Duration())
	assert.Equal(t, 3*time.Hour, punch.CompletedDuration(sessions))
}

func TestPairSessions_Empty(t *testing.T) {
	assert.Empty(t, punch.PairSessions(nil))
	assert.Equal(t, time.Duration(0), punch.CompletedDuration(nil))
}
