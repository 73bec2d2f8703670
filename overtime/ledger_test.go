package overtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timecomp/ledger"
	"github.com/warp/timecomp/overtime"
	"github.com/warp/timecomp/payroll"
	"github.com/warp/timecomp/policy"
	"github.com/warp/timecomp/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// The rate source is the real payroll profile resolver so the tests cover
// both the profile path and the policy-default fallback (300/hour).
func newTestLedger(t *testing.T) (*overtime.Ledger, *payroll.Profiles) {
	t.Helper()

	settings := policy.Default()
	profiles := payroll.NewProfiles(memory.NewPayroll(), settings)
	l := overtime.NewLedger(memory.NewOvertime(), profiles, settings, ledger.NewKeyedMutex())
	return l, profiles
}

func tod(hour, minute int) ledger.TimeOfDay {
	return ledger.TimeOfDay{Hour: hour, Minute: minute}
}

var day = ledger.NewDate(2026, time.May, 11)

// =============================================================================
// SUBMISSION
// =============================================================================

func TestSubmit_DerivesHours(t *testing.T) {
	// 18:00 to 20:30 is 2.5 hours.

	l, _ := newTestLedger(t)

	req, err := l.Submit(context.Background(), "emp-1", day, tod(18, 0), tod(20, 30), "release")
	require.NoError(t, err)
	assert.Equal(t, overtime.StatusPending, req.Status)
	assert.True(t, req.Hours.Equal(decimal.RequireFromString("2.5")), "got %s", req.Hours)
}

func TestSubmit_Overnight_WrapsPastMidnight(t *testing.T) {
	// GIVEN: A shift from 22:00 to 02:00
	// WHEN: Submitting
	// THEN: The end wraps to the next day and the shift is 4 hours

	l, _ := newTestLedger(t)

	req, err := l.Submit(context.Background(), "emp-1", day, tod(22, 0), tod(2, 0), "")
	require.NoError(t, err)
	assert.True(t, req.Hours.Equal(decimal.NewFromInt(4)), "got %s", req.Hours)
}

func TestSubmit_EqualStartEnd_FullDay(t *testing.T) {
	// An end equal to the start wraps a full 24 hours, the allowed maximum.

	l, _ := newTestLedger(t)

	req, err := l.Submit(context.Background(), "emp-1", day, tod(9, 0), tod(9, 0), "")
	require.NoError(t, err)
	assert.True(t, req.Hours.Equal(decimal.NewFromInt(24)), "got %s", req.Hours)
}

func TestSubmit_DuplicateDay_Rejected(t *testing.T) {
	// At most one pending/approved request per (employee, date).

	l, _ := newTestLedger(t)
	ctx := context.Background()

	first, err := l.Submit(ctx, "emp-1", day, tod(18, 0), tod(20, 0), "")
	require.NoError(t, err)

	_, err = l.Submit(ctx, "emp-1", day, tod(20, 0), tod(22, 0), "")
	var dup *overtime.DuplicateDayError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.ID, dup.ExistingID)
	assert.ErrorIs(t, err, ledger.ErrConflict)
}

func TestSubmit_OtherDayOrEmployee_Allowed(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Submit(ctx, "emp-1", day, tod(18, 0), tod(20, 0), "")
	require.NoError(t, err)
	_, err = l.Submit(ctx, "emp-1", day.AddDays(1), tod(18, 0), tod(20, 0), "")
	require.NoError(t, err)
	_, err = l.Submit(ctx, "emp-2", day, tod(18, 0), tod(20, 0), "")
	require.NoError(t, err)
}

// =============================================================================
// DECISION AND PAY SNAPSHOT
// =============================================================================

func TestDecide_Approve_FreezesPayable(t *testing.T) {
	// GIVEN: A 2.5 hour request and the default 300/hour rate
	// WHEN: Approving, then raising the employee's rate to 400
	// THEN: The record keeps payable 750; rate changes never rewrite it

	l, profiles := newTestLedger(t)
	ctx := context.Background()

	req, err := l.Submit(ctx, "emp-1", day, tod(18, 0), tod(20, 30), "")
	require.NoError(t, err)

	decided, record, err := l.Decide(ctx, req.ID, "mgr-1", overtime.Approve)
	require.NoError(t, err)
	assert.Equal(t, overtime.StatusApproved, decided.Status)
	require.NotNil(t, record)
	assert.True(t, record.Rate.Equal(decimal.NewFromInt(300)))
	assert.True(t, record.Payable.Equal(decimal.NewFromInt(750)), "got %s", record.Payable)

	err = profiles.Save(ctx, payroll.Profile{
		EmployeeID:   "emp-1",
		HourlyRate:   decimal.NewFromInt(250),
		OvertimeRate: decimal.NewFromInt(400),
	})
	require.NoError(t, err)

	records, err := l.Records(ctx, "emp-1", day, day)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Payable.Equal(decimal.NewFromInt(750)), "frozen payable must not move")
}

func TestDecide_Approve_UsesProfileRate(t *testing.T) {
	l, profiles := newTestLedger(t)
	ctx := context.Background()

	err := profiles.Save(ctx, payroll.Profile{
		EmployeeID:   "emp-1",
		OvertimeRate: decimal.NewFromInt(400),
	})
	require.NoError(t, err)

	req, err := l.Submit(ctx, "emp-1", day, tod(18, 0), tod(20, 0), "")
	require.NoError(t, err)

	_, record, err := l.Decide(ctx, req.ID, "mgr-1", overtime.Approve)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.Payable.Equal(decimal.NewFromInt(800)), "got %s", record.Payable)
}

func TestDecide_Reject_NoRecord(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	req, err := l.Submit(ctx, "emp-1", day, tod(18, 0), tod(20, 0), "")
	require.NoError(t, err)

	decided, record, err := l.Decide(ctx, req.ID, "mgr-1", overtime.Reject)
	require.NoError(t, err)
	assert.Equal(t, overtime.StatusRejected, decided.Status)
	assert.Nil(t, record)

	records, err := l.Records(ctx, "emp-1", day, day)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDecide_NonPending_Rejected(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	req, err := l.Submit(ctx, "emp-1", day, tod(18, 0), tod(20, 0), "")
	require.NoError(t, err)

	_, _, err = l.Decide(ctx, req.ID, "mgr-1", overtime.Approve)
	require.NoError(t, err)

	_, _, err = l.Decide(ctx, req.ID, "mgr-2", overtime.Reject)
	assert.ErrorIs(t, err, ledger.ErrState)
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestCancel_Pending_Deletes(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	req, err := l.Submit(ctx, "emp-1", day, tod(18, 0), tod(20, 0), "")
	require.NoError(t, err)

	require.NoError(t, l.Cancel(ctx, req.ID, "emp-1"))

	_, err = l.Get(ctx, req.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	// The day is free again.
	_, err = l.Submit(ctx, "emp-1", day, tod(19, 0), tod(21, 0), "")
	assert.NoError(t, err)
}

func TestCancel_Approved_Rejected(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	req, err := l.Submit(ctx, "emp-1", day, tod(18, 0), tod(20, 0), "")
	require.NoError(t, err)
	_, _, err = l.Decide(ctx, req.ID, "mgr-1", overtime.Approve)
	require.NoError(t, err)

	err = l.Cancel(ctx, req.ID, "emp-1")
	assert.ErrorIs(t, err, ledger.ErrState)
}

func TestCancel_NotOwner_Rejected(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	req, err := l.Submit(ctx, "emp-1", day, tod(18, 0), tod(20, 0), "")
	require.NoError(t, err)

	err = l.Cancel(ctx, req.ID, "emp-2")
	assert.ErrorIs(t, err, ledger.ErrState)
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestSummary_TalliesAndPayable(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	a, err := l.Submit(ctx, "emp-1", day, tod(18, 0), tod(20, 30), "")
	require.NoError(t, err)
	_, err = l.Submit(ctx, "emp-1", day.AddDays(1), tod(18, 0), tod(19, 0), "")
	require.NoError(t, err)

	_, _, err = l.Decide(ctx, a.ID, "mgr-1", overtime.Approve)
	require.NoError(t, err)

	summary, err := l.Summary(ctx, "emp-1", day, day.AddDays(7))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.ByStatus[overtime.StatusApproved].Count)
	assert.Equal(t, 1, summary.ByStatus[overtime.StatusPending].Count)
	assert.True(t, summary.ByStatus[overtime.StatusApproved].Hours.Equal(decimal.RequireFromString("2.5")))
	assert.True(t, summary.TotalPayable.Equal(decimal.NewFromInt(750)), "got %s", summary.TotalPayable)
}
