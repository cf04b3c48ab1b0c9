package fare

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	testCases := []struct {
		minutes  int64
		expected float64
	}{
		{0, 1.15},  // clamped to the one minute minimum
		{-5, 1.15}, // negative durations clamp too
		{1, 1.15},
		{10, 2.50},
		{30, 5.50},
		{60, 10.00},
		{120, 19.00},
	}

	calc := New()
	for _, tt := range testCases {
		assert.Equal(t, tt.expected, calc.Compute(tt.minutes), "minutes=%d", tt.minutes)
	}
}

func TestComputeRounding(t *testing.T) {
	// 0.333.../minute produces sub-cent amounts that must round half up.
	calc := Calculator{BaseRate: 0, PerMinuteRate: 1.0 / 3.0}
	assert.Equal(t, 0.33, calc.Compute(1))
	assert.Equal(t, 0.67, calc.Compute(2))
	assert.Equal(t, 1.0, calc.Compute(3))
}

func TestComputeDuration(t *testing.T) {
	calc := New()

	// Partial minutes are not billed beyond the elapsed whole minutes.
	assert.Equal(t, calc.Compute(10), calc.ComputeDuration(10*time.Minute+59*time.Second))
	// Sub-minute rides still pay the minimum.
	assert.Equal(t, calc.Compute(1), calc.ComputeDuration(20*time.Second))
}
