package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	start, err := ParseTimeOfDay("09:00")
	require.NoError(t, err)
	require.Equal(t, TimeOfDay(540), start)
	require.Equal(t, "09:00", start.String())

	end, err := ParseTimeOfDay("17:30")
	require.NoError(t, err)
	require.True(t, end.After(start))

	_, err = ParseTimeOfDay("25:00")
	require.Error(t, err)
	_, err = ParseTimeOfDay("9am")
	require.Error(t, err)
}

func TestValidateTimes(t *testing.T) {
	nine := TimeOfDay(9 * 60)
	five := TimeOfDay(17 * 60)

	require.NoError(t, validateTimes(nine, five))

	err := validateTimes(five, nine)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "end_time", validation.Field)

	// Equal times are invalid too.
	require.Error(t, validateTimes(nine, nine))
}

func TestDayOfWeekIsIdempotent(t *testing.T) {
	date := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	first := DayOfWeek(date)
	require.Equal(t, "Monday", first)
	require.Equal(t, first, DayOfWeek(date))
}

func TestStartOfWeek(t *testing.T) {
	monday := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   time.Time
	}{
		{"monday maps to itself", monday},
		{"wednesday maps back", time.Date(2025, 1, 8, 15, 30, 0, 0, time.UTC)},
		{"sunday maps back six days", time.Date(2025, 1, 12, 23, 59, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, monday, StartOfWeek(tc.in))
		})
	}
}

func TestStatusValid(t *testing.T) {
	require.True(t, StatusSubmitted.Valid())
	require.True(t, StatusApproved.Valid())
	require.True(t, StatusRejected.Valid())
	require.False(t, Status("Pending").Valid())
	require.False(t, Status("").Valid())
}
