package pricing

import "github.com/shopspring/decimal"

// PriceTolerance absorbs client-side rounding. The bound is inclusive.
var PriceTolerance = decimal.RequireFromString("0.10")

type PriceCheck struct {
	IsValid    bool            `json:"is_valid"`
	Difference decimal.Decimal `json:"difference"`
}

// ValidatePriceMatch compares the client-declared total with the recomputed one.
func ValidatePriceMatch(clientTotal, serverTotal decimal.Decimal) PriceCheck {
	diff := clientTotal.Sub(serverTotal).Abs().Round(2)
	return PriceCheck{
		IsValid:    diff.LessThanOrEqual(PriceTolerance),
		Difference: diff,
	}
}
