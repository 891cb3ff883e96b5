/*
money.go - Currency arithmetic with the academy truncation rule

PURPOSE:
  All charge, refund, and credit amounts in this engine are integer Korean
  won. Intermediate values (per-class unit prices, usage ratios, VAT splits)
  are real-valued, so they are computed with decimal.Decimal and only
  converted back to integer won at well-defined truncation points.

TRUNCATION RULE:
  Customer-facing amounts are truncated DOWN to the nearest 1,000 won after
  discounts are applied. Per-class unit prices are floored to whole won
  first; the thousand-truncation happens at the final output step only.

WHY decimal?
  650,000 * 6 / 13 must come out as exactly 300,000 - not 299,999.99999.
  float64 ratio math produces off-by-one-won results that compound across
  a season. decimal.Decimal keeps the intermediate arithmetic exact.

SEE ALSO:
  - prorate.go, refund.go: the calculators applying these rules
*/
package billing

import "github.com/shopspring/decimal"

var thousand = decimal.NewFromInt(1000)

// TruncateToThousand truncates an amount down to the nearest multiple of
// 1,000 won. Amounts in this engine are non-negative.
func TruncateToThousand(amount int64) int64 {
	return truncateThousand(decimal.NewFromInt(amount))
}

// truncateThousand floors a real-valued amount to the nearest 1,000 won.
func truncateThousand(d decimal.Decimal) int64 {
	return d.Div(thousand).Floor().Mul(thousand).IntPart()
}

// floorWon floors a real-valued amount to whole won.
func floorWon(d decimal.Decimal) int64 {
	return d.Floor().IntPart()
}

// won converts an integer amount to a decimal for intermediate arithmetic.
func won(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount)
}
