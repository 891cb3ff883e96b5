/*
refund.go - Season cancellation refunds

PURPOSE:
  When a student cancels a season enrollment, two refund figures are
  computed side by side:

  1. USAGE-BASED (authoritative): the paid amount minus the value of the
     class days already usable, measured through the day BEFORE the
     cancellation date:
       used   = truncate1000(paid x attended / total)
       refund = paid - used
  2. STATUTORY TIERED (informational): the private-academy act's schedule
     based on season progress:
       < 1/3 elapsed -> 2/3 of paid
       < 1/2 elapsed -> 1/2 of paid
       otherwise     -> no refund
     Reported alongside, never substituted for the usage-based figure.

  Optionally the VAT component is deducted from the usage-based refund:
  vat = truncate1000(refund / 11), i.e. the tax share of a VAT-inclusive
  amount.

DEGENERATE CASE:
  Zero total class days makes every ratio undefined. No usage can have
  occurred, so the full paid amount is refunded and the result is flagged
  as non-prorated.
*/
package billing

import "fmt"

// RefundResult reports both refund calculations for a canceled season.
type RefundResult struct {
	PaidAmount     int64 `json:"paidAmount"`
	OriginalFee    int64 `json:"originalFee"`
	DiscountAmount int64 `json:"discountAmount"`

	TotalClassDays     int `json:"totalClassDays"`
	AttendedClassDays  int `json:"attendedClassDays"`
	RemainingClassDays int `json:"remainingClassDays"`

	// Usage-based figures (authoritative).
	UsedAmount  int64 `json:"usedAmount"`
	UsageRefund int64 `json:"usageRefund"`

	// Statutory tiered figures (informational only).
	StatutoryRefund int64  `json:"statutoryRefund"`
	StatutoryBasis  string `json:"statutoryBasis"`

	// VAT option.
	VATExcluded bool  `json:"vatExcluded"`
	VATAmount   int64 `json:"vatAmount"`

	// FinalRefund is the usage-based refund after the optional VAT deduction.
	FinalRefund int64 `json:"finalRefund"`

	// ProRated is false when zero total class days forced a full refund.
	ProRated bool `json:"proRated"`
}

// SeasonRefund computes the refund for a season enrollment canceled on
// cancellationDate. originalFee may be zero, in which case the paid amount
// is taken as the original fee.
func SeasonRefund(paidAmount, originalFee int64, seasonStart, seasonEnd, cancellationDate Date, set WeekdaySet, excludeVAT bool) (RefundResult, error) {
	if paidAmount < 0 {
		return RefundResult{}, fmt.Errorf("%w: paid amount %d", ErrNegativeAmount, paidAmount)
	}
	if seasonEnd.Before(seasonStart) {
		return RefundResult{}, &PeriodError{Start: seasonStart, End: seasonEnd}
	}
	if originalFee <= 0 {
		originalFee = paidAmount
	}

	result := RefundResult{
		PaidAmount:     paidAmount,
		OriginalFee:    originalFee,
		DiscountAmount: originalFee - paidAmount,
		VATExcluded:    excludeVAT,
	}

	totalClassDays := CountClassDays(seasonStart, seasonEnd, set)

	// No class days at all: ratios are undefined, and no usage can have
	// occurred. Refund everything.
	if totalClassDays == 0 {
		result.UsageRefund = paidAmount
		result.FinalRefund = paidAmount
		result.StatutoryBasis = "no class days - full refund"
		if excludeVAT {
			result.VATAmount = truncateThousand(won(paidAmount).Div(won(11)))
			result.FinalRefund = paidAmount - result.VATAmount
		}
		return result, nil
	}

	// Usage is measured through the day before cancellation, capped at the
	// season end so a late cancellation never produces negative refunds.
	usageEnd := cancellationDate.AddDays(-1).Min(seasonEnd)
	attended := CountClassDays(seasonStart, usageEnd, set)

	result.ProRated = true
	result.TotalClassDays = totalClassDays
	result.AttendedClassDays = attended
	result.RemainingClassDays = totalClassDays - attended

	usedAmount := truncateThousand(won(paidAmount).Mul(won(int64(attended))).Div(won(int64(totalClassDays))))
	result.UsedAmount = usedAmount
	result.UsageRefund = paidAmount - usedAmount

	// Statutory tiers compare progress against 1/3 and 1/2 exactly.
	switch {
	case attended*3 < totalClassDays:
		result.StatutoryRefund = truncateThousand(won(paidAmount).Mul(won(2)).Div(won(3)))
		result.StatutoryBasis = "before 1/3 of season elapsed: 2/3 refund"
	case attended*2 < totalClassDays:
		result.StatutoryRefund = truncateThousand(won(paidAmount).Div(won(2)))
		result.StatutoryBasis = "before 1/2 of season elapsed: 1/2 refund"
	default:
		result.StatutoryRefund = 0
		result.StatutoryBasis = "past 1/2 of season: no statutory refund"
	}

	result.FinalRefund = result.UsageRefund
	if excludeVAT {
		result.VATAmount = truncateThousand(won(result.UsageRefund).Div(won(11)))
		result.FinalRefund = result.UsageRefund - result.VATAmount
	}

	return result, nil
}
