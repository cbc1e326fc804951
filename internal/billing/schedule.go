package billing

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"rentloop-backend/internal/domain"
)

// LeasePeriod is the occupied interval of a lease, inclusive on both ends,
// at calendar-day granularity.
type LeasePeriod struct {
	Start time.Time
	End   time.Time
}

// BillingPeriod is one month-aligned span of a lease with its itemized
// charge breakdown. Amounts are cents; DailyRate keeps full precision so
// rounding happens only at the final charge amount.
type BillingPeriod struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	IsProrated  bool
	DaysInMonth int
	DaysCharged int
	DailyRate   decimal.Decimal

	Charges          []domain.Charge
	BaseAmountCents  int64 // rent + pet rent, excludes platform fee
	TotalAmountCents int64 // sum of applied charges
}

// GenerateSchedule splits a lease into calendar-month billing periods with
// exact charge breakdowns. First and last months are prorated when they
// cover only part of the month; interior months are always charged in full.
// The function is pure and safe for concurrent use.
func GenerateSchedule(period LeasePeriod, monthlyRentCents, monthlyPetRentCents int64, includeServiceFee bool, fees FeeSchedule) ([]BillingPeriod, error) {
	start := dateOnly(period.Start)
	end := dateOnly(period.End)
	if end.Before(start) {
		return nil, fmt.Errorf("invalid lease period: end %s is before start %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	durationMonths := LeaseDurationMonths(start, end)

	var periods []BillingPeriod
	segStart := start
	for !segStart.After(end) {
		monthEnd := lastDayOfMonth(segStart)
		segEnd := monthEnd
		if end.Before(monthEnd) {
			segEnd = end
		}

		daysInMonth := monthEnd.Day()
		fullMonth := segStart.Day() == 1 && segEnd.Equal(monthEnd)

		daysCharged := daysInMonth
		if !fullMonth {
			daysCharged = segEnd.Day() - segStart.Day() + 1
		}

		bp := buildPeriod(segStart, segEnd, daysInMonth, daysCharged, !fullMonth,
			monthlyRentCents, monthlyPetRentCents, includeServiceFee, fees, durationMonths)
		periods = append(periods, bp)

		segStart = firstDayOfNextMonth(segStart)
	}

	return periods, nil
}

func buildPeriod(segStart, segEnd time.Time, daysInMonth, daysCharged int, prorated bool,
	monthlyRentCents, monthlyPetRentCents int64, includeServiceFee bool, fees FeeSchedule, durationMonths int) BillingPeriod {

	dailyRate := decimal.NewFromInt(monthlyRentCents).Div(decimal.NewFromInt(int64(daysInMonth)))

	rentCents := monthlyRentCents
	petRentCents := monthlyPetRentCents
	if prorated {
		rentCents = prorate(monthlyRentCents, daysCharged, daysInMonth)
		petRentCents = prorate(monthlyPetRentCents, daysCharged, daysInMonth)
	}

	var prorationMeta map[string]string
	if prorated {
		prorationMeta = map[string]string{
			"days_in_month": strconv.Itoa(daysInMonth),
			"days_charged":  strconv.Itoa(daysCharged),
		}
	}

	charges := []domain.Charge{{
		Category:    domain.ChargeCategoryBaseRent,
		AmountCents: rentCents,
		IsApplied:   true,
		Metadata:    prorationMeta,
	}}

	if petRentCents > 0 {
		charges = append(charges, domain.Charge{
			Category:    domain.ChargeCategoryPetRent,
			AmountCents: petRentCents,
			IsApplied:   true,
			Metadata:    prorationMeta,
		})
	}

	if includeServiceFee {
		// Fee base is the period's rent portion only, never pet rent.
		charges = append(charges, domain.Charge{
			Category:    domain.ChargeCategoryPlatformFee,
			AmountCents: fees.FeeCents(rentCents, durationMonths),
			IsApplied:   true,
			Metadata: map[string]string{
				"rate":            fees.RateFor(durationMonths).Mul(decimal.NewFromInt(100)).String(),
				"rate_type":       fees.RateType(durationMonths),
				"duration_months": strconv.Itoa(durationMonths),
			},
		})
	}

	var total int64
	for _, c := range charges {
		if c.IsApplied {
			total += c.AmountCents
		}
	}

	return BillingPeriod{
		PeriodStart:      segStart,
		PeriodEnd:        segEnd,
		IsProrated:       prorated,
		DaysInMonth:      daysInMonth,
		DaysCharged:      daysCharged,
		DailyRate:        dailyRate,
		Charges:          charges,
		BaseAmountCents:  rentCents + petRentCents,
		TotalAmountCents: total,
	}
}

// prorate computes round(monthly / daysInMonth × daysCharged), rounding half
// away from zero, only at the final amount.
func prorate(monthlyCents int64, daysCharged, daysInMonth int) int64 {
	return decimal.NewFromInt(monthlyCents).
		Div(decimal.NewFromInt(int64(daysInMonth))).
		Mul(decimal.NewFromInt(int64(daysCharged))).
		Round(0).
		IntPart()
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func lastDayOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

func firstDayOfNextMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
