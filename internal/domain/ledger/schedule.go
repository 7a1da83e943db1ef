package ledger

import (
	"fmt"
	"time"
)

// Frequency is how often a recurring definition produces an occurrence
type Frequency string

const (
	FrequencyMonthly    Frequency = "monthly"
	FrequencyBimonthly  Frequency = "bimonthly"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencySemiannual Frequency = "semiannual"
	FrequencyAnnual     Frequency = "annual"
)

// IsValid checks if the frequency is known
func (f Frequency) IsValid() bool {
	return f.MonthStep() > 0
}

// MonthStep returns the number of months between two occurrences, or 0 for an unknown frequency
func (f Frequency) MonthStep() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyBimonthly:
		return 2
	case FrequencyQuarterly:
		return 3
	case FrequencySemiannual:
		return 6
	case FrequencyAnnual:
		return 12
	}
	return 0
}

// String returns the string representation of Frequency
func (f Frequency) String() string {
	return string(f)
}

// DateOf truncates t to a calendar date in UTC
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days of the given month
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonthsClamped moves anchor by the given number of months and replaces the
// day-of-month with day, using the last day of the target month when day does not exist there.
func AddMonthsClamped(anchor time.Time, months, day int) time.Time {
	y, m, _ := anchor.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := DaysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

func validateSchedule(frequency Frequency, dueDay int) error {
	if !frequency.IsValid() {
		return newValidationError(CodeInvalidFrequency, fmt.Sprintf("unknown frequency %q", frequency))
	}
	if dueDay < 1 || dueDay > 31 {
		return newValidationError(CodeInvalidDueDay, fmt.Sprintf("due day must be between 1 and 31, got %d", dueDay))
	}
	return nil
}

// NextOccurrences lists occurrence dates of a schedule anchored at start.
// Occurrence i falls step*i months after start's month on dueDay (clamped to the
// month's last day). Generation stops after count dates or at the first date after
// limit. A zero limit means no date bound; count <= 0 means no count bound, but at
// least one bound is required.
func NextOccurrences(start time.Time, frequency Frequency, dueDay int, limit time.Time, count int) ([]time.Time, error) {
	if err := validateSchedule(frequency, dueDay); err != nil {
		return nil, err
	}
	if count <= 0 && limit.IsZero() {
		return nil, newValidationError(CodeInvalidSchedule, "either a limit date or a positive count is required")
	}

	step := frequency.MonthStep()
	limit = DateOf(limit)
	occurrences := make([]time.Time, 0)
	for i := 0; count <= 0 || len(occurrences) < count; i++ {
		date := AddMonthsClamped(start, step*i, dueDay)
		if !limit.IsZero() && date.After(limit) {
			break
		}
		occurrences = append(occurrences, date)
	}
	return occurrences, nil
}

// AdjustForWeekend moves a Saturday or Sunday forward to the following Monday when enabled.
// Holidays are not considered.
func AdjustForWeekend(date time.Time, enabled bool) time.Time {
	if !enabled {
		return date
	}
	switch date.Weekday() {
	case time.Saturday:
		return date.AddDate(0, 0, 2)
	case time.Sunday:
		return date.AddDate(0, 0, 1)
	}
	return date
}

// monthsBetween returns the whole-month distance between the months of a and b
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// occurrenceFrom returns the first occurrence of the schedule anchored at start
// that satisfies accept. Occurrences are indexed from start's month so that a
// clamped day (Feb 29) never drifts the following dates.
func occurrenceFrom(start time.Time, frequency Frequency, dueDay int, pivot time.Time, accept func(time.Time) bool) time.Time {
	step := frequency.MonthStep()
	i := monthsBetween(start, pivot)/step - 1
	if i < 0 {
		i = 0
	}
	for {
		date := AddMonthsClamped(start, step*i, dueDay)
		if accept(date) {
			return date
		}
		i++
	}
}

// OccurrenceOnOrAfter returns the first occurrence of the schedule that is not before pivot
func OccurrenceOnOrAfter(start time.Time, frequency Frequency, dueDay int, pivot time.Time) (time.Time, error) {
	if err := validateSchedule(frequency, dueDay); err != nil {
		return time.Time{}, err
	}
	pivot = DateOf(pivot)
	return occurrenceFrom(start, frequency, dueDay, pivot, func(d time.Time) bool { return !d.Before(pivot) }), nil
}

// OccurrenceAfter returns the first occurrence of the schedule strictly after pivot
func OccurrenceAfter(start time.Time, frequency Frequency, dueDay int, pivot time.Time) (time.Time, error) {
	if err := validateSchedule(frequency, dueDay); err != nil {
		return time.Time{}, err
	}
	pivot = DateOf(pivot)
	return occurrenceFrom(start, frequency, dueDay, pivot, func(d time.Time) bool { return d.After(pivot) }), nil
}
