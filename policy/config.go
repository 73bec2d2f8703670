package policy

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timecomp/ledger"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// YAML CONFIG - File overrides on top of Default()
// =============================================================================

// fileConfig is the YAML shape. Absent fields keep their defaults.
//
//	work_start: "09:00"
//	late_threshold_minutes: 10
//	enforce_network_check: true
//	late_penalty: "50"
//	leave_types:
//	  annual:
//	    name: Annual Leave
//	    max_days_per_request: 30
//	    quota_tracked: true
//	    default_quota: 7
type fileConfig struct {
	WorkStart            string                         `yaml:"work_start"`
	LateThresholdMinutes *int                           `yaml:"late_threshold_minutes"`
	DailyPunchLimit      *int                           `yaml:"daily_punch_limit"`
	EnforceNetworkCheck  *bool                          `yaml:"enforce_network_check"`
	MaxOvertimeHours     *float64                       `yaml:"max_overtime_hours"`
	LatePenalty          string                         `yaml:"late_penalty"`
	LeaveTypes           map[string]fileLeaveTypePolicy `yaml:"leave_types"`
	DefaultRates         *fileRates                     `yaml:"default_rates"`
}

type fileLeaveTypePolicy struct {
	Name              string   `yaml:"name"`
	MaxDaysPerRequest float64  `yaml:"max_days_per_request"`
	QuotaTracked      bool     `yaml:"quota_tracked"`
	DefaultQuota      *float64 `yaml:"default_quota"`
}

type fileRates struct {
	BaseSalary   string `yaml:"base_salary"`
	HourlyRate   string `yaml:"hourly_rate"`
	OvertimeRate string `yaml:"overtime_rate"`
	Bonus        string `yaml:"bonus"`
	Deductions   string `yaml:"deductions"`
}

// Load reads a YAML policy file and applies it on top of Default().
// An empty path returns the defaults unchanged.
func Load(path string) (*Settings, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	s := Default()
	if err := fc.apply(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (fc *fileConfig) apply(s *Settings) error {
	if fc.WorkStart != "" {
		ws, err := ledger.ParseTimeOfDay(fc.WorkStart)
		if err != nil {
			return fmt.Errorf("work_start: %w", err)
		}
		s.WorkStart = ws
	}
	if fc.LateThresholdMinutes != nil {
		s.LateThreshold = time.Duration(*fc.LateThresholdMinutes) * time.Minute
	}
	if fc.DailyPunchLimit != nil {
		s.DailyPunchLimit = *fc.DailyPunchLimit
	}
	if fc.EnforceNetworkCheck != nil {
		s.EnforceNetworkCheck = *fc.EnforceNetworkCheck
	}
	if fc.MaxOvertimeHours != nil {
		s.MaxOvertimeHours = decimal.NewFromFloat(*fc.MaxOvertimeHours)
	}
	if fc.LatePenalty != "" {
		p, err := decimal.NewFromString(fc.LatePenalty)
		if err != nil {
			return fmt.Errorf("late_penalty: %w", err)
		}
		s.LatePenalty = p
	}

	for name, ft := range fc.LeaveTypes {
		t := LeaveType(name)
		lt := LeaveTypePolicy{
			Name:              ft.Name,
			MaxDaysPerRequest: decimal.NewFromFloat(ft.MaxDaysPerRequest),
			QuotaTracked:      ft.QuotaTracked,
		}
		if lt.Name == "" {
			if existing, ok := s.LeaveTypes[t]; ok {
				lt.Name = existing.Name
			} else {
				lt.Name = name
			}
		}
		s.LeaveTypes[t] = lt
		if ft.DefaultQuota != nil {
			s.DefaultQuota[t] = decimal.NewFromFloat(*ft.DefaultQuota)
		}
	}

	if fc.DefaultRates != nil {
		if err := fc.DefaultRates.apply(&s.DefaultRates); err != nil {
			return err
		}
	}
	return nil
}

func (fr *fileRates) apply(r *PayRates) error {
	set := func(field string, dst *decimal.Decimal, raw string) error {
		if raw == "" {
			return nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("default_rates.%s: %w", field, err)
		}
		*dst = d
		return nil
	}
	if err := set("base_salary", &r.BaseSalary, fr.BaseSalary); err != nil {
		return err
	}
	if err := set("hourly_rate", &r.HourlyRate, fr.HourlyRate); err != nil {
		return err
	}
	if err := set("overtime_rate", &r.OvertimeRate, fr.OvertimeRate); err != nil {
		return err
	}
	if err := set("bonus", &r.Bonus, fr.Bonus); err != nil {
		return err
	}
	return set("deductions", &r.Deductions, fr.Deductions)
}
