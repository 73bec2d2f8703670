package policy_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timecomp/ledger"
	"github.com/warp/timecomp/policy"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	s, err := policy.Load("")
	require.NoError(t, err)
	assert.Equal(t, ledger.TimeOfDay{Hour: 9, Minute: 0}, s.WorkStart)
	assert.Equal(t, 10*time.Minute, s.LateThreshold)
	assert.True(t, s.LatePenalty.Equal(decimal.NewFromInt(50)))
}

func TestLoad_OverridesOnTopOfDefaults(t *testing.T) {
	// GIVEN: A file overriding a few fields
	// WHEN: Loading
	// THEN: Overridden fields change, everything else keeps its default

	path := writeConfig(t, `
work_start: "08:30"
late_threshold_minutes: 15
late_penalty: "75"
default_rates:
  hourly_rate: "220"
leave_types:
  annual:
    name: Annual Leave
    max_days_per_request: 20
    quota_tracked: true
    default_quota: 10
`)

	s, err := policy.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ledger.TimeOfDay{Hour: 8, Minute: 30}, s.WorkStart)
	assert.Equal(t, 15*time.Minute, s.LateThreshold)
	assert.True(t, s.LatePenalty.Equal(decimal.NewFromInt(75)))
	assert.True(t, s.DefaultRates.HourlyRate.Equal(decimal.NewFromInt(220)))

	annual, ok := s.LeaveType(policy.LeaveAnnual)
	require.True(t, ok)
	assert.True(t, annual.MaxDaysPerRequest.Equal(decimal.NewFromInt(20)))
	assert.True(t, s.QuotaAllocation(policy.LeaveAnnual).Equal(decimal.NewFromInt(10)))

	// Untouched defaults survive.
	assert.True(t, s.DefaultRates.OvertimeRate.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, 2, s.DailyPunchLimit)
	sick, ok := s.LeaveType(policy.LeaveSick)
	require.True(t, ok)
	assert.False(t, sick.QuotaTracked)
}

func TestLoad_BadValues(t *testing.T) {
	_, err := policy.Load(writeConfig(t, `work_start: "25:99"`))
	assert.Error(t, err)

	_, err = policy.Load(writeConfig(t, `late_penalty: "a lot"`))
	assert.Error(t, err)

	_, err = policy.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestQuotaAllocation_UnlistedTypeIsZero(t *testing.T) {
	s := policy.Default()
	assert.True(t, s.QuotaAllocation(policy.LeaveCompensatory).IsZero())
	assert.True(t, s.QuotaAllocation(policy.LeaveSick).IsZero())
}
