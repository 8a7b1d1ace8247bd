/*
policies.go - Late-deduction policies

PURPOSE:
  Concrete implementations of engine.DeductionPolicy: the business rule
  that converts accumulated late minutes into money withheld from gross
  pay. The hours calculator never bakes penalties into credited hours -
  it reports raw late minutes, and one of these policies prices them.

AVAILABLE POLICIES:
  NoLateDeduction:
    - Lateness is tolerated entirely (grace already absorbed the
      first GraceMinutes at the hours level)

  PerMinuteDeduction:
    - Flat rate per late minute (e.g., 0.50 per minute)
    - The simplest additive policy

  TieredDeduction:
    - Escalating flat amounts per lateness bracket
      (e.g., <=30 min: 5.00, <=120 min: 20.00, beyond: 50.00)
    - Mirrors the stepped penalty tables HR departments publish

ALL POLICIES:
  - Monotonically non-decreasing in late minutes
  - Compose additively across days: the engine passes the period sum
  - Never produce a deduction exceeding gross pay (the deriver clamps)

EXAMPLE:
  policy := payroll.PerMinuteDeduction{Rate: engine.MustParseDecimal("0.50")}
  figures := deriver.Derive(engine.PayrollInput{..., LatePolicy: policy})

SEE ALSO:
  - engine/payroll.go: DeductionPolicy interface and the clamp
  - factory/schedule.go: JSON selection of a policy
*/
package payroll

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// NO-OP POLICY
// =============================================================================

// NoLateDeduction tolerates all lateness.
type NoLateDeduction struct{}

func (NoLateDeduction) Deduct(lateMinutes int64) decimal.Decimal {
	return decimal.Zero
}

// =============================================================================
// PER-MINUTE POLICY
// =============================================================================

// PerMinuteDeduction charges a flat rate for every late minute.
type PerMinuteDeduction struct {
	Rate decimal.Decimal
}

func (p PerMinuteDeduction) Deduct(lateMinutes int64) decimal.Decimal {
	if lateMinutes <= 0 || !p.Rate.IsPositive() {
		return decimal.Zero
	}
	return p.Rate.Mul(decimal.NewFromInt(lateMinutes))
}

// =============================================================================
// TIERED POLICY
// =============================================================================

// DeductionTier charges Amount when late minutes reach UpToMinutes or less.
type DeductionTier struct {
	UpToMinutes int64
	Amount      decimal.Decimal
}

// TieredDeduction applies the first tier whose bound covers the
// lateness; beyond the last tier, Overflow applies. Tiers must be
// ordered by callers or via Normalize.
type TieredDeduction struct {
	Tiers    []DeductionTier
	Overflow decimal.Decimal
}

// Normalize sorts tiers by bound and drops negative amounts, keeping
// the policy monotone regardless of configuration order.
func (t TieredDeduction) Normalize() TieredDeduction {
	tiers := make([]DeductionTier, 0, len(t.Tiers))
	for _, tier := range t.Tiers {
		if !tier.Amount.IsNegative() && tier.UpToMinutes > 0 {
			tiers = append(tiers, tier)
		}
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].UpToMinutes < tiers[j].UpToMinutes })
	t.Tiers = tiers
	return t
}

func (t TieredDeduction) Deduct(lateMinutes int64) decimal.Decimal {
	if lateMinutes <= 0 {
		return decimal.Zero
	}
	for _, tier := range t.Tiers {
		if lateMinutes <= tier.UpToMinutes {
			return tier.Amount
		}
	}
	if t.Overflow.IsNegative() {
		return decimal.Zero
	}
	return t.Overflow
}

// Compile-time checks that the policies satisfy the engine interface.
var (
	_ engine.DeductionPolicy = NoLateDeduction{}
	_ engine.DeductionPolicy = PerMinuteDeduction{}
	_ engine.DeductionPolicy = TieredDeduction{}
)
