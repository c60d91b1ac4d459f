// Package reward converts base-currency task rewards into coins.
package reward

import "github.com/shopspring/decimal"

// DefaultConversionRate is the share of a task's INR reward paid out as coins.
const DefaultConversionRate = 0.8

// DeriveCoinValue returns floor(rewardINR * rate). Callers must pass a non-negative
// reward and a rate in (0,1].
func DeriveCoinValue(rewardINR, rate float64) int {
	return int(decimal.NewFromFloat(rewardINR).Mul(decimal.NewFromFloat(rate)).Floor().IntPart())
}

// RateOrDefault returns the task-specific rate when set.
func RateOrDefault(rate *float64) float64 {
	if rate == nil || *rate <= 0 {
		return DefaultConversionRate
	}
	return *rate
}

// CoinsToINR is the base-currency value of a coin amount, rounded to paise.
func CoinsToINR(coins int, rate float64) decimal.Decimal {
	if rate <= 0 {
		rate = DefaultConversionRate
	}
	return decimal.NewFromInt(int64(coins)).Div(decimal.NewFromFloat(rate)).Round(2)
}
