/*
prorate.go - Partial-period fee calculation

PURPOSE:
  Two kinds of partial billing periods exist in the academy calendar:

  A. MID-SEASON JOIN - a student enrolls after a season has started and
     pays only for the class days remaining in the season:
       fee x (remaining class days / total class days), thousand-truncated.

  B. OFF-SEASON TAIL - the span from the 1st of a month through the
     "non-season end date", billed at the regular monthly rate converted
     to a per-class price under the fixed four-week month:
       per-class = monthly fee / (weekdays x 4)
       base      = floor(per-class x classes in tail)
       final     = truncate1000(base - floor(base x discount%))

  PreviewSeasonTransition combines B with the gap between the tail end and
  the season start, answering "what does next month's bill look like?".

EDGE CASES (valid, not errors):
  - join on/before season start  -> full fee, no proration
  - join after season end        -> zero fee, full fee reported as discount
  - zero total class days        -> full fee, proration impossible
  - empty weekday set (tail)     -> zero charge, zero classes
*/
package billing

import "fmt"

// =============================================================================
// MID-SEASON JOIN (contract A)
// =============================================================================

// MidSeasonJoinResult reports a season-fee proration.
type MidSeasonJoinResult struct {
	OriginalFee        int64  `json:"originalFee"`
	FinalFee           int64  `json:"finalFee"`
	Discount           int64  `json:"discount"`
	TotalClassDays     int    `json:"totalClassDays"`
	RemainingClassDays int    `json:"remainingClassDays"`
	ProRated           bool   `json:"proRated"`
	Detail             string `json:"detail"`
}

// MidSeasonJoinFee prorates a season fee for a student joining mid-season.
func MidSeasonJoinFee(seasonFee int64, seasonStart, seasonEnd, joinDate Date, set WeekdaySet) (MidSeasonJoinResult, error) {
	if seasonFee < 0 {
		return MidSeasonJoinResult{}, fmt.Errorf("%w: season fee %d", ErrNegativeAmount, seasonFee)
	}
	if seasonEnd.Before(seasonStart) {
		return MidSeasonJoinResult{}, &PeriodError{Start: seasonStart, End: seasonEnd}
	}

	if joinDate.BeforeOrEqual(seasonStart) {
		return MidSeasonJoinResult{
			OriginalFee: seasonFee,
			FinalFee:    seasonFee,
			Detail:      "joined before season start - no proration",
		}, nil
	}

	if joinDate.After(seasonEnd) {
		return MidSeasonJoinResult{
			OriginalFee: seasonFee,
			FinalFee:    0,
			Discount:    seasonFee,
			ProRated:    true,
			Detail:      "joined after season end - no season fee",
		}, nil
	}

	totalClassDays := CountClassDays(seasonStart, seasonEnd, set)
	remainingClassDays := CountClassDays(joinDate, seasonEnd, set)

	if totalClassDays == 0 {
		return MidSeasonJoinResult{
			OriginalFee: seasonFee,
			FinalFee:    seasonFee,
			Detail:      "no class days in season - proration not possible",
		}, nil
	}

	finalFee := truncateThousand(won(seasonFee).Mul(won(int64(remainingClassDays))).Div(won(int64(totalClassDays))))

	return MidSeasonJoinResult{
		OriginalFee:        seasonFee,
		FinalFee:           finalFee,
		Discount:           seasonFee - finalFee,
		TotalClassDays:     totalClassDays,
		RemainingClassDays: remainingClassDays,
		ProRated:           true,
		Detail:             fmt.Sprintf("%d x (%d/%d class days) = %d", seasonFee, remainingClassDays, totalClassDays, finalFee),
	}, nil
}

// =============================================================================
// OFF-SEASON TAIL (contract B)
// =============================================================================

// TailPeriodResult reports the pro-rated charge for an off-season tail.
type TailPeriodResult struct {
	FinalAmount         int64 `json:"finalAmount"`
	BaseAmount          int64 `json:"baseAmount"`
	DiscountAmount      int64 `json:"discountAmount"`
	PerClassFee         int64 `json:"perClassFee"`
	ClassCount          int   `json:"classCount"`
	TotalMonthlyClasses int   `json:"totalMonthlyClasses"`
	PeriodStart         Date  `json:"-"`
	PeriodEnd           Date  `json:"-"`
}

// TailPeriodFee computes the charge for the period from the 1st of the
// month containing tailEnd through tailEnd, at the regular monthly rate.
func TailPeriodFee(monthlyFee int64, set WeekdaySet, tailEnd Date, discountRate int) (TailPeriodResult, error) {
	if monthlyFee < 0 {
		return TailPeriodResult{}, fmt.Errorf("%w: monthly fee %d", ErrNegativeAmount, monthlyFee)
	}
	if discountRate < 0 || discountRate > 100 {
		return TailPeriodResult{}, fmt.Errorf("%w: got %d", ErrInvalidDiscountRate, discountRate)
	}

	periodStart := StartOfMonth(tailEnd.Year(), tailEnd.Month())
	totalMonthlyClasses := ExpectedMonthlyClasses(set)

	// No fixed schedule: nothing to charge for.
	if totalMonthlyClasses == 0 {
		return TailPeriodResult{PeriodStart: periodStart, PeriodEnd: tailEnd}, nil
	}

	classCount := CountClassDays(periodStart, tailEnd, set)

	perClass := won(monthlyFee).Div(won(int64(totalMonthlyClasses)))
	baseAmount := floorWon(perClass.Mul(won(int64(classCount))))
	discountAmount := floorWon(won(baseAmount).Mul(won(int64(discountRate))).Div(won(100)))
	finalAmount := TruncateToThousand(baseAmount - discountAmount)

	return TailPeriodResult{
		FinalAmount:         finalAmount,
		BaseAmount:          baseAmount,
		DiscountAmount:      discountAmount,
		PerClassFee:         floorWon(perClass),
		ClassCount:          classCount,
		TotalMonthlyClasses: totalMonthlyClasses,
		PeriodStart:         periodStart,
		PeriodEnd:           tailEnd,
	}, nil
}

// =============================================================================
// SEASON TRANSITION PREVIEW
// =============================================================================

// GapPeriod is the span between the off-season tail end and the season
// start during which no billing applies.
type GapPeriod struct {
	Start Date `json:"-"`
	End   Date `json:"-"`
	Days  int  `json:"days"`
}

// SeasonTransitionPreview summarizes what the next bill looks like when a
// student moves from the monthly cycle into a season.
type SeasonTransitionPreview struct {
	Tail            TailPeriodResult `json:"tail"`
	Gap             *GapPeriod       `json:"gap,omitempty"`
	SeasonStart     Date             `json:"-"`
	NextMonthCharge int64            `json:"nextMonthCharge"`
}

// PreviewSeasonTransition computes the tail-period charge and the gap (if
// any) before the season takes over.
func PreviewSeasonTransition(monthlyFee int64, set WeekdaySet, tailEnd, seasonStart Date, discountRate int) (SeasonTransitionPreview, error) {
	if seasonStart.Before(tailEnd) {
		return SeasonTransitionPreview{}, &PeriodError{Start: tailEnd, End: seasonStart}
	}

	tail, err := TailPeriodFee(monthlyFee, set, tailEnd, discountRate)
	if err != nil {
		return SeasonTransitionPreview{}, err
	}

	preview := SeasonTransitionPreview{
		Tail:            tail,
		SeasonStart:     seasonStart,
		NextMonthCharge: tail.FinalAmount,
	}

	gapStart := tailEnd.AddDays(1)
	gapEnd := seasonStart.AddDays(-1)
	if gapStart.BeforeOrEqual(gapEnd) {
		days := 0
		for d := gapStart; d.BeforeOrEqual(gapEnd); d = d.AddDays(1) {
			days++
		}
		preview.Gap = &GapPeriod{Start: gapStart, End: gapEnd, Days: days}
	}

	return preview, nil
}
