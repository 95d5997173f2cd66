package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketCalendar_IsOpen(t *testing.T) {
	cal, err := NewMarketCalendar()
	require.NoError(t, err)

	et, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name string
		t    time.Time
		open bool
	}{
		{"monday before bell", time.Date(2025, 6, 2, 9, 29, 0, 0, et), false},
		{"monday at bell", time.Date(2025, 6, 2, 9, 30, 0, 0, et), true},
		{"monday last minute", time.Date(2025, 6, 2, 15, 59, 0, 0, et), true},
		{"monday at close", time.Date(2025, 6, 2, 16, 0, 0, 0, et), false},
		{"saturday midday", time.Date(2025, 6, 7, 12, 0, 0, 0, et), false},
		{"sunday midday", time.Date(2025, 6, 8, 12, 0, 0, 0, et), false},

		// DST: 13:30 UTC is 9:30 EDT in July but 8:30 EST in January.
		{"july 13:30 utc", time.Date(2025, 7, 1, 13, 30, 0, 0, time.UTC), true},
		{"january 13:30 utc", time.Date(2025, 1, 6, 13, 30, 0, 0, time.UTC), false},
		{"january 14:30 utc", time.Date(2025, 1, 6, 14, 30, 0, 0, time.UTC), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.open, cal.IsOpen(tc.t))
		})
	}
}
