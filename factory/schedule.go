/*
Package factory provides JSON to Go schedule and payroll-policy conversion.

PURPOSE:
  Converts JSON configuration into engine.ScheduleConfig and payroll
  policy objects. This lets HR adjust the workday definition and the
  late-penalty table without code changes - the admin UI or a config
  file supplies JSON, the factory produces validated Go values.

JSON SCHEMA (schedule):
  {
    "morning_start": 8.0,
    "morning_end": 12.0,
    "afternoon_start": 13.0,
    "afternoon_end": 17.0,
    "break_start": 12.0,
    "break_end": 13.0,
    "grace_minutes": 30,
    "session_cap_hours": 4,
    "max_daily_hours": 8
  }

  Times are decimal hours on a 24h clock (13.5 = 13:30). Every field is
  independently overridable; omitted fields fall back to the defaults.

JSON SCHEMA (payroll policy):
  {
    "expected_monthly_hours": 160,
    "overtime_to_leave_ratio": 0.125,
    "late_deduction": {
      "type": "per_minute",          // "none" | "per_minute" | "tiered"
      "rate_per_minute": 0.5,
      "tiers": [{"up_to_minutes": 30, "amount": 5}],
      "overflow": 50
    }
  }

VALIDATION:
  ParseSchedule validates the assembled config in one batch and returns
  the full violation list, so the operator fixes everything in one
  round trip.

SEE ALSO:
  - engine/schedule.go: ScheduleConfig and its invariants
  - payroll/policies.go: Deduction policy implementations
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/engine"
	"github.com/warp/attendance-engine/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ScheduleJSON is the JSON representation of a schedule configuration.
// Pointer fields distinguish "absent, use default" from explicit zero.
type ScheduleJSON struct {
	MorningStart   *float64 `json:"morning_start,omitempty"`
	MorningEnd     *float64 `json:"morning_end,omitempty"`
	AfternoonStart *float64 `json:"afternoon_start,omitempty"`
	AfternoonEnd   *float64 `json:"afternoon_end,omitempty"`
	BreakStart     *float64 `json:"break_start,omitempty"`
	BreakEnd       *float64 `json:"break_end,omitempty"`
	GraceMinutes   *int     `json:"grace_minutes,omitempty"`
	SessionCap     *float64 `json:"session_cap_hours,omitempty"`
	MaxDailyHours  *float64 `json:"max_daily_hours,omitempty"`
}

// PayrollPolicyJSON is the JSON representation of period-level payroll
// parameters.
type PayrollPolicyJSON struct {
	ExpectedMonthlyHours int                `json:"expected_monthly_hours,omitempty"`
	OvertimeToLeave      *float64           `json:"overtime_to_leave_ratio,omitempty"`
	LateDeduction        *LateDeductionJSON `json:"late_deduction,omitempty"`
}

type LateDeductionJSON struct {
	Type          string     `json:"type"` // none, per_minute, tiered
	RatePerMinute float64    `json:"rate_per_minute,omitempty"`
	Tiers         []TierJSON `json:"tiers,omitempty"`
	Overflow      float64    `json:"overflow,omitempty"`
}

type TierJSON struct {
	UpToMinutes int64   `json:"up_to_minutes"`
	Amount      float64 `json:"amount"`
}

// =============================================================================
// SCHEDULE FACTORY
// =============================================================================

type ScheduleFactory struct{}

func NewScheduleFactory() *ScheduleFactory {
	return &ScheduleFactory{}
}

// ParseSchedule builds a validated ScheduleConfig from JSON, overlaying
// the overrides onto the defaults.
func (f *ScheduleFactory) ParseSchedule(jsonStr string) (engine.ScheduleConfig, error) {
	var raw ScheduleJSON
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return engine.ScheduleConfig{}, fmt.Errorf("invalid schedule JSON: %w", err)
	}
	return f.FromJSON(raw)
}

// FromJSON overlays the overrides onto DefaultSchedule and validates.
func (f *ScheduleFactory) FromJSON(raw ScheduleJSON) (engine.ScheduleConfig, error) {
	cfg := engine.DefaultSchedule()

	if raw.MorningStart != nil {
		cfg.MorningStart = engine.ClockTimeFromHours(*raw.MorningStart)
	}
	if raw.MorningEnd != nil {
		cfg.MorningEnd = engine.ClockTimeFromHours(*raw.MorningEnd)
	}
	if raw.AfternoonStart != nil {
		cfg.AfternoonStart = engine.ClockTimeFromHours(*raw.AfternoonStart)
	}
	if raw.AfternoonEnd != nil {
		cfg.AfternoonEnd = engine.ClockTimeFromHours(*raw.AfternoonEnd)
	}
	if raw.BreakStart != nil {
		cfg.BreakStart = engine.ClockTimeFromHours(*raw.BreakStart)
	}
	if raw.BreakEnd != nil {
		cfg.BreakEnd = engine.ClockTimeFromHours(*raw.BreakEnd)
	}
	if raw.GraceMinutes != nil {
		cfg.GraceMinutes = *raw.GraceMinutes
	}
	if raw.SessionCap != nil {
		cfg.SessionCapHours = decimal.NewFromFloat(*raw.SessionCap)
	}
	if raw.MaxDailyHours != nil {
		cfg.MaxDailyHours = decimal.NewFromFloat(*raw.MaxDailyHours)
	}

	if err := cfg.Validate(); err != nil {
		return engine.ScheduleConfig{}, err
	}
	return cfg, nil
}

// ToJSON renders a config back into its JSON form (for the admin API).
func (f *ScheduleFactory) ToJSON(cfg engine.ScheduleConfig) ScheduleJSON {
	hours := func(c engine.ClockTime) *float64 {
		v := float64(c.Hour()) + float64(c.Minute())/60
		return &v
	}
	sessionCap, _ := cfg.SessionCapHours.Float64()
	dailyCap, _ := cfg.MaxDailyHours.Float64()
	grace := cfg.GraceMinutes
	return ScheduleJSON{
		MorningStart:   hours(cfg.MorningStart),
		MorningEnd:     hours(cfg.MorningEnd),
		AfternoonStart: hours(cfg.AfternoonStart),
		AfternoonEnd:   hours(cfg.AfternoonEnd),
		BreakStart:     hours(cfg.BreakStart),
		BreakEnd:       hours(cfg.BreakEnd),
		GraceMinutes:   &grace,
		SessionCap:     &sessionCap,
		MaxDailyHours:  &dailyCap,
	}
}

// =============================================================================
// PAYROLL POLICY FACTORY
// =============================================================================

// PayrollPolicy is the parsed period-level payroll configuration.
type PayrollPolicy struct {
	ExpectedMonthlyHours decimal.Decimal
	OvertimeToLeaveRatio decimal.Decimal
	LatePolicy           engine.DeductionPolicy
}

// ParsePayrollPolicy builds payroll parameters from JSON.
func ParsePayrollPolicy(jsonStr string) (PayrollPolicy, error) {
	var raw PayrollPolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return PayrollPolicy{}, fmt.Errorf("invalid payroll policy JSON: %w", err)
	}

	policy := PayrollPolicy{
		ExpectedMonthlyHours: decimal.NewFromInt(int64(raw.ExpectedMonthlyHours)),
		OvertimeToLeaveRatio: engine.DefaultOvertimeToLeaveRatio,
		LatePolicy:           payroll.NoLateDeduction{},
	}
	if raw.OvertimeToLeave != nil {
		policy.OvertimeToLeaveRatio = decimal.NewFromFloat(*raw.OvertimeToLeave)
	}

	if raw.LateDeduction == nil {
		return policy, nil
	}
	switch raw.LateDeduction.Type {
	case "", "none":
		// keep NoLateDeduction
	case "per_minute":
		policy.LatePolicy = payroll.PerMinuteDeduction{
			Rate: decimal.NewFromFloat(raw.LateDeduction.RatePerMinute),
		}
	case "tiered":
		tiered := payroll.TieredDeduction{
			Overflow: decimal.NewFromFloat(raw.LateDeduction.Overflow),
		}
		for _, t := range raw.LateDeduction.Tiers {
			tiered.Tiers = append(tiered.Tiers, payroll.DeductionTier{
				UpToMinutes: t.UpToMinutes,
				Amount:      decimal.NewFromFloat(t.Amount),
			})
		}
		policy.LatePolicy = tiered.Normalize()
	default:
		return PayrollPolicy{}, fmt.Errorf("unknown late deduction type %q", raw.LateDeduction.Type)
	}

	return policy, nil
}
