/*
profile.go - Pay rate resolution

PURPOSE:
  Resolve an employee's effective pay rates: the stored profile when one
  exists, the policy defaults otherwise. Payroll must stay computable for
  every employee, profile or not, so resolution never fails on absence.

SEE ALSO:
  - calculator.go: consumes resolved rates for monthly statements
  - overtime/types.go: the RateSource port this file implements
*/
package payroll

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/timecomp/ledger"
	"github.com/warp/timecomp/policy"
)

// Rates is the resolved per-employee rate set used by a calculation.
type Rates struct {
	BaseSalary   decimal.Decimal
	HourlyRate   decimal.Decimal
	OvertimeRate decimal.Decimal
	Bonus        decimal.Decimal
	Deductions   decimal.Decimal
	FromProfile  bool
}

// Profiles resolves rates from the profile store with policy fallback. It is
// the engine's overtime.RateSource.
type Profiles struct {
	store    Store
	settings *policy.Settings
}

func NewProfiles(store Store, settings *policy.Settings) *Profiles {
	return &Profiles{store: store, settings: settings}
}

// Save upserts an employee's pay profile after validating the rates.
func (p *Profiles) Save(ctx context.Context, profile Profile) error {
	if profile.EmployeeID == "" {
		return &ledger.ValidationError{Field: "employee_id", Message: "must not be empty"}
	}
	for _, rate := range []struct {
		field string
		value decimal.Decimal
	}{
		{"base_salary", profile.BaseSalary},
		{"hourly_rate", profile.HourlyRate},
		{"overtime_rate", profile.OvertimeRate},
		{"bonus", profile.Bonus},
		{"deductions", profile.Deductions},
	} {
		if rate.value.IsNegative() {
			return &ledger.ValidationError{Field: rate.field, Message: "must not be negative"}
		}
	}
	return p.store.PutProfile(ctx, profile)
}

// Get returns the stored profile, reporting absence without error.
func (p *Profiles) Get(ctx context.Context, id ledger.EmployeeID) (Profile, bool, error) {
	return p.store.GetProfile(ctx, id)
}

// Resolve returns the rates a calculation should use for the employee.
func (p *Profiles) Resolve(ctx context.Context, id ledger.EmployeeID) (Rates, error) {
	profile, found, err := p.store.GetProfile(ctx, id)
	if err != nil {
		return Rates{}, err
	}
	if !found {
		d := p.settings.DefaultRates
		return Rates{
			BaseSalary:   d.BaseSalary,
			HourlyRate:   d.HourlyRate,
			OvertimeRate: d.OvertimeRate,
			Bonus:        d.Bonus,
			Deductions:   d.Deductions,
		}, nil
	}
	return Rates{
		BaseSalary:   profile.BaseSalary,
		HourlyRate:   profile.HourlyRate,
		OvertimeRate: profile.OvertimeRate,
		Bonus:        profile.Bonus,
		Deductions:   profile.Deductions,
		FromProfile:  true,
	}, nil
}

// OvertimeRate implements overtime.RateSource.
func (p *Profiles) OvertimeRate(ctx context.Context, id ledger.EmployeeID) (decimal.Decimal, error) {
	rates, err := p.Resolve(ctx, id)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return rates.OvertimeRate, nil
}
