package billing

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Average days per calendar month, used to bucket a lease into whole months
// for fee-rate selection.
const daysPerMonthPrecise = 30.4375

// FeeSchedule selects the platform fee rate from the total lease duration.
// Leases at or above ThresholdMonths use the lower long-term rate.
type FeeSchedule struct {
	ShortTermRate   decimal.Decimal
	LongTermRate    decimal.Decimal
	ThresholdMonths int
}

// DefaultFeeSchedule returns the standard platform fee schedule:
// 3% short-term, 1.5% for leases of 6 months or longer.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		ShortTermRate:   decimal.NewFromFloat(0.03),
		LongTermRate:    decimal.NewFromFloat(0.015),
		ThresholdMonths: 6,
	}
}

// NewFeeSchedule builds a schedule from configured rates.
func NewFeeSchedule(shortTermRate, longTermRate float64, thresholdMonths int) FeeSchedule {
	return FeeSchedule{
		ShortTermRate:   decimal.NewFromFloat(shortTermRate),
		LongTermRate:    decimal.NewFromFloat(longTermRate),
		ThresholdMonths: thresholdMonths,
	}
}

// RateFor returns the fee rate for a lease of the given whole-month duration.
func (f FeeSchedule) RateFor(durationMonths int) decimal.Decimal {
	if durationMonths >= f.ThresholdMonths {
		return f.LongTermRate
	}
	return f.ShortTermRate
}

// RateType names the selected tier, stored in charge metadata.
func (f FeeSchedule) RateType(durationMonths int) string {
	if durationMonths >= f.ThresholdMonths {
		return "long_term"
	}
	return "short_term"
}

// FeeCents computes round(rate × baseAmount) in cents, rounding half away
// from zero.
func (f FeeSchedule) FeeCents(baseAmountCents int64, durationMonths int) int64 {
	return f.RateFor(durationMonths).
		Mul(decimal.NewFromInt(baseAmountCents)).
		Round(0).
		IntPart()
}

// LeaseDurationMonths converts a lease interval into a whole-month duration.
// It is computed once for the whole lease so every billing period of the
// lease uses the same fee tier.
func LeaseDurationMonths(start, end time.Time) int {
	days := end.Sub(start).Hours() / 24
	return int(math.Round(days / daysPerMonthPrecise))
}
