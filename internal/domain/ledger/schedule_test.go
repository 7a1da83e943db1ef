package ledger

import (
	"testing"
	"time"

	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFrequency_MonthStep(t *testing.T) {
	tests := []struct {
		frequency Frequency
		step      int
	}{
		{FrequencyMonthly, 1},
		{FrequencyBimonthly, 2},
		{FrequencyQuarterly, 3},
		{FrequencySemiannual, 6},
		{FrequencyAnnual, 12},
		{Frequency("weekly"), 0},
	}

	for _, tc := range tests {
		t.Run(string(tc.frequency), func(t *testing.T) {
			assert.Equal(t, tc.step, tc.frequency.MonthStep())
			assert.Equal(t, tc.step > 0, tc.frequency.IsValid())
		})
	}
}

func TestNextOccurrences_MonthEndClampsAcrossLeapFebruary(t *testing.T) {
	dates, err := NextOccurrences(date(2024, 1, 31), FrequencyMonthly, 31, time.Time{}, 3)
	require.NoError(t, err)

	assert.Equal(t, []time.Time{
		date(2024, 1, 31),
		date(2024, 2, 29),
		date(2024, 3, 31),
	}, dates)
}

func TestNextOccurrences_StopsAtLimit(t *testing.T) {
	dates, err := NextOccurrences(date(2024, 1, 10), FrequencyQuarterly, 10, date(2024, 10, 9), 0)
	require.NoError(t, err)

	assert.Equal(t, []time.Time{
		date(2024, 1, 10),
		date(2024, 4, 10),
		date(2024, 7, 10),
	}, dates)
}

func TestNextOccurrences_CountAndLimitWhicheverFirst(t *testing.T) {
	dates, err := NextOccurrences(date(2024, 1, 5), FrequencyMonthly, 5, date(2030, 1, 1), 2)
	require.NoError(t, err)
	assert.Len(t, dates, 2)

	dates, err = NextOccurrences(date(2024, 1, 5), FrequencyAnnual, 5, date(2025, 6, 1), 10)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date(2024, 1, 5), date(2025, 1, 5)}, dates)
}

func TestNextOccurrences_NeverSkipsPeriods(t *testing.T) {
	frequencies := []Frequency{FrequencyMonthly, FrequencyBimonthly, FrequencyQuarterly, FrequencySemiannual, FrequencyAnnual}
	start := date(2023, 1, 1)

	for _, f := range frequencies {
		for dueDay := 1; dueDay <= 31; dueDay++ {
			dates, err := NextOccurrences(start, f, dueDay, time.Time{}, 30)
			require.NoError(t, err)
			require.Len(t, dates, 30)

			for i, d := range dates {
				expectedMonth := AddMonthsClamped(start, i*f.MonthStep(), 1)
				assert.Equal(t, expectedMonth.Year(), d.Year(), "%s day %d occurrence %d", f, dueDay, i)
				assert.Equal(t, expectedMonth.Month(), d.Month(), "%s day %d occurrence %d", f, dueDay, i)
				assert.Equal(t, min(dueDay, DaysInMonth(d.Year(), d.Month())), d.Day())
			}
		}
	}
}

func TestNextOccurrences_Validation(t *testing.T) {
	t.Run("unknown frequency", func(t *testing.T) {
		_, err := NextOccurrences(date(2024, 1, 1), Frequency("weekly"), 1, time.Time{}, 1)
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("due day out of range", func(t *testing.T) {
		for _, d := range []int{0, 32, -1} {
			_, err := NextOccurrences(date(2024, 1, 1), FrequencyMonthly, d, time.Time{}, 1)
			assert.True(t, shared.IsValidation(err), "due day %d", d)
		}
	})

	t.Run("unbounded generation", func(t *testing.T) {
		_, err := NextOccurrences(date(2024, 1, 1), FrequencyMonthly, 1, time.Time{}, 0)
		assert.True(t, shared.IsValidation(err))
	})
}

func TestAdjustForWeekend(t *testing.T) {
	saturday := date(2024, 6, 1)
	sunday := date(2024, 6, 2)
	monday := date(2024, 6, 3)
	wednesday := date(2024, 6, 5)

	assert.Equal(t, monday, AdjustForWeekend(saturday, true))
	assert.Equal(t, monday, AdjustForWeekend(sunday, true))
	assert.Equal(t, wednesday, AdjustForWeekend(wednesday, true))
	assert.Equal(t, saturday, AdjustForWeekend(saturday, false))

	for d := date(2024, 1, 1); d.Year() == 2024; d = d.AddDate(0, 0, 1) {
		adjusted := AdjustForWeekend(d, true)
		assert.NotEqual(t, time.Saturday, adjusted.Weekday())
		assert.NotEqual(t, time.Sunday, adjusted.Weekday())
		if d.Weekday() == time.Saturday {
			assert.Equal(t, d.AddDate(0, 0, 2), adjusted)
		}
	}
}

func TestOccurrenceAfter(t *testing.T) {
	start := date(2024, 1, 31)

	next, err := OccurrenceAfter(start, FrequencyMonthly, 31, date(2024, 2, 29))
	require.NoError(t, err)
	assert.Equal(t, date(2024, 3, 31), next)

	next, err = OccurrenceAfter(start, FrequencyQuarterly, 31, date(2025, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, date(2025, 1, 31), next)

	first, err := OccurrenceOnOrAfter(date(2024, 1, 15), FrequencyMonthly, 10, date(2024, 1, 15))
	require.NoError(t, err)
	assert.Equal(t, date(2024, 2, 10), first)

	same, err := OccurrenceOnOrAfter(start, FrequencyMonthly, 31, start)
	require.NoError(t, err)
	assert.Equal(t, start, same)
}
