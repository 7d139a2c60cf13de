package usecase

import "github.com/shopspring/decimal"

// amountEpsilon is the smallest difference treated as a real mismatch
// between a reported and a stored amount.
var amountEpsilon = decimal.New(1, -2)

func validAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(2))
}

func amountsMatch(stored, reported decimal.Decimal) bool {
	return stored.Sub(reported).Abs().LessThan(amountEpsilon)
}
