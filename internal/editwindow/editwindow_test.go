package editwindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsEditable(t *testing.T) {
	now := time.Date(2024, 6, 10, 15, 30, 0, 0, time.Local)

	tests := []struct {
		date string
		want bool
	}{
		{"2024-06-08", true},
		{"2024-06-07", false},
		{"2024-06-10", true},
		{"2024-06-09", true},
		{"2024-06-11", false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, IsEditable(now, tt.date), "date %s", tt.date)
	}
}

func TestAllowedRangeDayBoundary(t *testing.T) {
	lastInstant := time.Date(2024, 6, 10, 23, 59, 59, 0, time.Local)
	require.True(t, IsEditable(lastInstant, "2024-06-08"))

	nextDay := time.Date(2024, 6, 11, 0, 0, 0, 0, time.Local)
	require.False(t, IsEditable(nextDay, "2024-06-08"))
	require.Equal(t, Range{MinDate: "2024-06-09", MaxDate: "2024-06-11"}, AllowedRange(nextDay))
}

func TestAllowedRangeAcrossMonth(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local)
	require.Equal(t, Range{MinDate: "2024-02-28", MaxDate: "2024-03-01"}, AllowedRange(now))
}
