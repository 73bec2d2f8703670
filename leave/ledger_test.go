package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timecomp/leave"
	"github.com/warp/timecomp/ledger"
	"github.com/warp/timecomp/policy"
	"github.com/warp/timecomp/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*leave.Ledger, *memory.Leave) {
	t.Helper()

	store := memory.NewLeave()
	return leave.NewLedger(store, policy.Default(), ledger.NewKeyedMutex()), store
}

func span(day, startHour, endHour int) (time.Time, time.Time) {
	return time.Date(2026, time.April, day, startHour, 0, 0, 0, time.UTC),
		time.Date(2026, time.April, day, endHour, 0, 0, 0, time.UTC)
}

func mustSubmit(t *testing.T, l *leave.Ledger, id ledger.EmployeeID, typ policy.LeaveType, start, end time.Time) leave.Request {
	t.Helper()

	req, err := l.Submit(context.Background(), id, typ, start, end, "test")
	require.NoError(t, err)
	return req
}

// =============================================================================
// SUBMISSION
// =============================================================================

func TestSubmit_DerivesHoursAndDays(t *testing.T) {
	// GIVEN: A 9 hour annual leave request (09:00 to 18:00)
	// WHEN: Submitting
	// THEN: 9 hours, 1.125 days, status pending

	l, _ := newTestLedger(t)
	start, end := span(6, 9, 18)

	req := mustSubmit(t, l, "emp-1", policy.LeaveAnnual, start, end)

	assert.Equal(t, leave.StatusPending, req.Status)
	assert.True(t, req.TotalHours.Equal(decimal.NewFromInt(9)), "got %s", req.TotalHours)
	assert.True(t, req.TotalDays.Equal(decimal.RequireFromString("1.125")), "got %s", req.TotalDays)
}

func TestSubmit_UnknownType_Rejected(t *testing.T) {
	l, _ := newTestLedger(t)
	start, end := span(6, 9, 18)

	_, err := l.Submit(context.Background(), "emp-1", "sabbatical", start, end, "")
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestSubmit_EndNotAfterStart_Rejected(t *testing.T) {
	l, _ := newTestLedger(t)
	start, _ := span(6, 9, 18)

	_, err := l.Submit(context.Background(), "emp-1", policy.LeaveAnnual, start, start, "")
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestSubmit_OverTypeMaximum_Rejected(t *testing.T) {
	// Paternity leave allows at most 5 days per request.

	l, _ := newTestLedger(t)
	start := time.Date(2026, time.April, 6, 9, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 10)

	_, err := l.Submit(context.Background(), "emp-1", policy.LeavePaternity, start, end, "")
	assert.ErrorIs(t, err, ledger.ErrLimitExceeded)
}

func TestSubmit_OverlapWithActive_Rejected(t *testing.T) {
	// GIVEN: A pending request April 6 09:00-18:00
	// WHEN: Submitting an adjacent-but-touching range for the same employee
	// THEN: The closed-interval overlap test rejects it

	l, _ := newTestLedger(t)
	start, end := span(6, 9, 18)
	mustSubmit(t, l, "emp-1", policy.LeaveAnnual, start, end)

	_, err := l.Submit(context.Background(), "emp-1", policy.LeaveSick, end, end.Add(2*time.Hour), "")
	var overlap *leave.OverlapError
	require.ErrorAs(t, err, &overlap)
	assert.ErrorIs(t, err, ledger.ErrConflict)
}

func TestSubmit_OverlapOtherEmployee_Allowed(t *testing.T) {
	l, _ := newTestLedger(t)
	start, end := span(6, 9, 18)

	mustSubmit(t, l, "emp-1", policy.LeaveAnnual, start, end)
	mustSubmit(t, l, "emp-2", policy.LeaveAnnual, start, end)
}

func TestSubmit_AfterRejection_SameRangeAllowed(t *testing.T) {
	// Rejected requests are terminal and no longer block the range.

	l, _ := newTestLedger(t)
	ctx := context.Background()
	start, end := span(6, 9, 18)

	req := mustSubmit(t, l, "emp-1", policy.LeaveAnnual, start, end)
	_, err := l.Decide(ctx, req.ID, "mgr-1", leave.Reject, "headcount")
	require.NoError(t, err)

	mustSubmit(t, l, "emp-1", policy.LeaveAnnual, start, end)
}

// =============================================================================
// DECISIONS AND QUOTA
// =============================================================================

func TestDecide_Approve_DebitsQuota(t *testing.T) {
	// GIVEN: A pending 1.125 day annual request and no quota row yet
	// WHEN: Approving
	// THEN: The quota row is created lazily with the default 7 day allocation
	//       and 1.125 days used

	l, store := newTestLedger(t)
	ctx := context.Background()
	start, end := span(6, 9, 18)
	req := mustSubmit(t, l, "emp-1", policy.LeaveAnnual, start, end)

	decided, err := l.Decide(ctx, req.ID, "mgr-1", leave.Approve, "")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, decided.Status)
	assert.Equal(t, "mgr-1", decided.ApprovedBy)
	require.NotNil(t, decided.ApprovedAt)

	q, found, err := store.GetQuota(ctx, "emp-1", 2026, policy.LeaveAnnual)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, q.Allocated.Equal(decimal.NewFromInt(7)))
	assert.True(t, q.Used.Equal(decimal.RequireFromString("1.125")))
	assert.True(t, q.Remaining().Equal(decimal.RequireFromString("5.875")))
}

func TestDecide_Approve_NonQuotaType_LeavesQuotaAlone(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	start, end := span(6, 9, 18)
	req := mustSubmit(t, l, "emp-1", policy.LeaveSick, start, end)

	_, err := l.Decide(ctx, req.ID, "mgr-1", leave.Approve, "")
	require.NoError(t, err)

	_, found, err := store.GetQuota(ctx, "emp-1", 2026, policy.LeaveSick)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDecide_Reject_RecordsReason(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	start, end := span(6, 9, 18)
	req := mustSubmit(t, l, "emp-1", policy.LeaveAnnual, start, end)

	decided, err := l.Decide(ctx, req.ID, "mgr-1", leave.Reject, "headcount")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusRejected, decided.Status)
	assert.Equal(t, "headcount", decided.RejectedReason)
}

func TestDecide_NonPending_Rejected(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	start, end := span(6, 9, 18)
	req := mustSubmit(t, l, "emp-1", policy.LeaveAnnual, start, end)

	_, err := l.Decide(ctx, req.ID, "mgr-1", leave.Approve, "")
	require.NoError(t, err)

	_, err = l.Decide(ctx, req.ID, "mgr-2", leave.Approve, "")
	assert.ErrorIs(t, err, ledger.ErrState)
}

func TestDecide_WritesAuditTrail(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	start, end := span(6, 9, 18)
	req := mustSubmit(t, l, "emp-1", policy.LeaveAnnual, start, end)

	_, err := l.Decide(ctx, req.ID, "mgr-1", leave.Approve, "")
	require.NoError(t, err)

	entries := store.Decisions(req.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, "approve", entries[0].Action)
	assert.Equal(t, "mgr-1", entries[0].ReviewerID)
}

func TestDecideBatch_PartialFailure(t *testing.T) {
	// GIVEN: One pending request and one already-approved request
	// WHEN: Batch-approving both
	// THEN: Each item reports its own outcome; the failure does not roll
	//       back the success

	l, _ := newTestLedger(t)
	ctx := context.Background()

	s1, e1 := span(6, 9, 18)
	s2, e2 := span(8, 9, 18)
	a := mustSubmit(t, l, "emp-1", policy.LeaveAnnual, s1, e1)
	b := mustSubmit(t, l, "emp-1", policy.LeaveAnnual, s2, e2)

	_, err := l.Decide(ctx, b.ID, "mgr-1", leave.Approve, "")
	require.NoError(t, err)

	results := l.DecideBatch(ctx, []ledger.RequestID{a.ID, b.ID}, "mgr-1", leave.Approve, "")
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, leave.StatusApproved, results[0].Request.Status)
	assert.ErrorIs(t, results[1].Err, ledger.ErrState)
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestCancel_Approved_RestoresQuota(t *testing.T) {
	// Approve then cancel is an exact quota round trip.

	l, store := newTestLedger(t)
	ctx := context.Background()
	start, end := span(6, 9, 18)
	req := mustSubmit(t, l, "emp-1", policy.LeaveAnnual, start, end)

	_, err := l.Decide(ctx, req.ID, "mgr-1", leave.Approve, "")
	require.NoError(t, err)

	cancelled, err := l.Cancel(ctx, req.ID, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusCancelled, cancelled.Status)

	q, found, err := store.GetQuota(ctx, "emp-1", 2026, policy.LeaveAnnual)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, q.Used.IsZero(), "got %s used", q.Used)
}

func TestCancel_Pending_NoQuotaTouched(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	start, end := span(6, 9, 18)
	req := mustSubmit(t, l, "emp-1", policy.LeaveAnnual, start, end)

	_, err := l.Cancel(ctx, req.ID, "emp-1")
	require.NoError(t, err)

	_, found, err := store.GetQuota(ctx, "emp-1", 2026, policy.LeaveAnnual)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCancel_NotOwner_Rejected(t *testing.T) {
	l, _ := newTestLedger(t)
	start, end := span(6, 9, 18)
	req := mustSubmit(t, l, "emp-1", policy.LeaveAnnual, start, end)

	_, err := l.Cancel(context.Background(), req.ID, "emp-2")
	assert.ErrorIs(t, err, ledger.ErrState)
}

func TestCancel_Terminal_Rejected(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	start, end := span(6, 9, 18)
	req := mustSubmit(t, l, "emp-1", policy.LeaveAnnual, start, end)

	_, err := l.Decide(ctx, req.ID, "mgr-1", leave.Reject, "no")
	require.NoError(t, err)

	_, err = l.Cancel(ctx, req.ID, "emp-1")
	assert.ErrorIs(t, err, ledger.ErrState)
}

func TestCancel_QuotaUnderflow_RollsBack(t *testing.T) {
	// GIVEN: An approved request whose quota row was corrupted to zero used
	// WHEN: Cancelling
	// THEN: The restore aborts with QuotaUnderflowError and the whole
	//       transaction rolls back, leaving the request approved

	l, store := newTestLedger(t)
	ctx := context.Background()
	start, end := span(6, 9, 18)
	req := mustSubmit(t, l, "emp-1", policy.LeaveAnnual, start, end)

	_, err := l.Decide(ctx, req.ID, "mgr-1", leave.Approve, "")
	require.NoError(t, err)

	q, _, err := store.GetQuota(ctx, "emp-1", 2026, policy.LeaveAnnual)
	require.NoError(t, err)
	q.Used = decimal.Zero
	require.NoError(t, store.PutQuota(ctx, q))

	_, err = l.Cancel(ctx, req.ID, "emp-1")
	var underflow *leave.QuotaUnderflowError
	require.ErrorAs(t, err, &underflow)
	assert.ErrorIs(t, err, ledger.ErrState)

	got, err := l.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, got.Status, "rollback must keep the request approved")
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestSummary_TalliesByTypeAndStatus(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	s1, e1 := span(6, 9, 18)
	s2, e2 := span(8, 9, 13)
	req := mustSubmit(t, l, "emp-1", policy.LeaveAnnual, s1, e1)
	mustSubmit(t, l, "emp-1", policy.LeaveSick, s2, e2)

	_, err := l.Decide(ctx, req.ID, "mgr-1", leave.Approve, "")
	require.NoError(t, err)

	summary, err := l.Summary(ctx, "emp-1", 2026)
	require.NoError(t, err)

	annual := summary.Types[policy.LeaveAnnual]
	assert.Equal(t, 1, annual.ByStatus[leave.StatusApproved].Count)
	assert.True(t, annual.ByStatus[leave.StatusApproved].Days.Equal(decimal.RequireFromString("1.125")))

	sick := summary.Types[policy.LeaveSick]
	assert.Equal(t, 1, sick.ByStatus[leave.StatusPending].Count)

	require.Len(t, summary.Quotas, 1)
	assert.Equal(t, policy.LeaveAnnual, summary.Quotas[0].Type)
	assert.True(t, summary.Quotas[0].Remaining.Equal(decimal.RequireFromString("5.875")))
}
