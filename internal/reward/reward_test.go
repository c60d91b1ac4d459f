package reward

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveCoinValue(t *testing.T) {
	cases := []struct {
		inr  float64
		rate float64
		want int
	}{
		{50, 0.8, 40},
		{25, 0.8, 20},
		{15, 0.8, 12},
		{0, 0.8, 0},
		{99, 1, 99},
		{100, 0.29, 29},
		{10.99, 0.5, 5},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, DeriveCoinValue(c.inr, c.rate), "inr=%v rate=%v", c.inr, c.rate)
	}
}

func TestDeriveCoinValueNeverExceedsReward(t *testing.T) {
	for inr := 0; inr <= 500; inr += 7 {
		for _, rate := range []float64{0.1, 0.33, 0.5, 0.8, 0.99, 1} {
			got := DeriveCoinValue(float64(inr), rate)
			assert.LessOrEqual(t, got, inr)
			assert.Equal(t, int(math.Floor(float64(inr)*rate+1e-9)), got)
		}
	}
}

func TestRateOrDefault(t *testing.T) {
	assert.Equal(t, DefaultConversionRate, RateOrDefault(nil))
	r := 0.5
	assert.Equal(t, 0.5, RateOrDefault(&r))
	zero := 0.0
	assert.Equal(t, DefaultConversionRate, RateOrDefault(&zero))
}

func TestCoinsToINR(t *testing.T) {
	assert.Equal(t, "50", CoinsToINR(40, 0.8).String())
	assert.Equal(t, "625", CoinsToINR(500, 0).String())
}
