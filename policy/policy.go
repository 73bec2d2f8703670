/*
Package policy supplies the read-only settings the ledgers consult.

PURPOSE:
  Work-start time, late threshold, the leave-type table, overtime bounds,
  default pay rates and default quota allocations all live here. The ledgers
  never hardcode these values; they receive a *Settings at construction.

DEFAULTS:
  Default() returns the standard company configuration. Every value can be
  overridden by a YAML file loaded with Load() - see config.go.

QUOTA-TRACKED LEAVE:
  Only some leave types debit an annual quota (annual leave, compensatory
  leave earned from overtime). The rest are approval-only. DefaultQuota maps
  each quota-tracked type to its annual allocation; the leave ledger creates
  quota rows lazily with these allocations.

SEE ALSO:
  - config.go: YAML loading
  - leave/ledger.go, punch/ledger.go, payroll/calculator.go: consumers
*/
package policy

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timecomp/ledger"
)

// =============================================================================
// LEAVE TYPES
// =============================================================================

type LeaveType string

const (
	LeaveAnnual       LeaveType = "annual"
	LeaveSick         LeaveType = "sick"
	LeavePersonal     LeaveType = "personal"
	LeaveFuneral      LeaveType = "funeral"
	LeaveMaternity    LeaveType = "maternity"
	LeavePaternity    LeaveType = "paternity"
	LeaveOfficial     LeaveType = "official"
	LeaveCompensatory LeaveType = "compensatory"
	LeaveMarriage     LeaveType = "marriage"
)

// LeaveTypePolicy is one row of the leave-type table.
type LeaveTypePolicy struct {
	Name              string
	MaxDaysPerRequest decimal.Decimal
	QuotaTracked      bool
}

// =============================================================================
// PAY RATES
// =============================================================================

// PayRates are the fallback rates used when an employee has no pay profile.
// Payroll must stay computable for audit, so these are always present.
type PayRates struct {
	BaseSalary   decimal.Decimal
	HourlyRate   decimal.Decimal
	OvertimeRate decimal.Decimal
	Bonus        decimal.Decimal
	Deductions   decimal.Decimal
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings is the complete read-only policy input for the engine.
type Settings struct {
	// Punch rules
	WorkStart           ledger.TimeOfDay
	LateThreshold       time.Duration
	DailyPunchLimit     int
	EnforceNetworkCheck bool

	// Leave rules
	LeaveTypes   map[LeaveType]LeaveTypePolicy
	DefaultQuota map[LeaveType]decimal.Decimal

	// Overtime rules
	MaxOvertimeHours decimal.Decimal

	// Payroll rules
	DefaultRates PayRates
	LatePenalty  decimal.Decimal
}

// LeaveType looks up one leave-type row.
func (s *Settings) LeaveType(t LeaveType) (LeaveTypePolicy, bool) {
	p, ok := s.LeaveTypes[t]
	return p, ok
}

// QuotaAllocation returns the default annual allocation for a leave type.
// Types without an entry allocate zero (compensatory leave is earned, not
// granted upfront).
func (s *Settings) QuotaAllocation(t LeaveType) decimal.Decimal {
	if alloc, ok := s.DefaultQuota[t]; ok {
		return alloc
	}
	return decimal.Zero
}

// Default returns the standard configuration.
func Default() *Settings {
	days := func(n int64) decimal.Decimal { return decimal.NewFromInt(n) }
	return &Settings{
		WorkStart:           ledger.TimeOfDay{Hour: 9, Minute: 0},
		LateThreshold:       10 * time.Minute,
		DailyPunchLimit:     2,
		EnforceNetworkCheck: true,

		LeaveTypes: map[LeaveType]LeaveTypePolicy{
			LeaveAnnual:       {Name: "Annual Leave", MaxDaysPerRequest: days(30), QuotaTracked: true},
			LeaveSick:         {Name: "Sick Leave", MaxDaysPerRequest: days(30)},
			LeavePersonal:     {Name: "Personal Leave", MaxDaysPerRequest: days(14)},
			LeaveFuneral:      {Name: "Funeral Leave", MaxDaysPerRequest: days(8)},
			LeaveMaternity:    {Name: "Maternity Leave", MaxDaysPerRequest: days(56)},
			LeavePaternity:    {Name: "Paternity Leave", MaxDaysPerRequest: days(5)},
			LeaveOfficial:     {Name: "Official Leave", MaxDaysPerRequest: days(30)},
			LeaveCompensatory: {Name: "Compensatory Leave", MaxDaysPerRequest: days(10), QuotaTracked: true},
			LeaveMarriage:     {Name: "Marriage Leave", MaxDaysPerRequest: days(8)},
		},
		DefaultQuota: map[LeaveType]decimal.Decimal{
			LeaveAnnual:       days(7),
			LeaveCompensatory: days(0),
		},

		MaxOvertimeHours: days(24),

		DefaultRates: PayRates{
			BaseSalary:   decimal.Zero,
			HourlyRate:   decimal.NewFromInt(200),
			OvertimeRate: decimal.NewFromInt(300),
			Bonus:        decimal.Zero,
			Deductions:   decimal.Zero,
		},
		LatePenalty: decimal.NewFromInt(50),
	}
}
