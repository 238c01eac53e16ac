package util

import "time"

// DaysPerYear is the day count used to convert elapsed time into years
const DaysPerYear = 365

// YearDuration is the length of one accrual year
const YearDuration = DaysPerYear * 24 * time.Hour

// DefaultFrequency is the recurring contribution period used when none is given
const DefaultFrequency = 30 * 24 * time.Hour

// YearFraction converts an elapsed duration into years using a 365-day year.
// Negative durations count as zero.
func YearFraction(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return elapsed.Seconds() / YearDuration.Seconds()
}

// NextOccurrence returns the due date one period after due. A non-positive
// frequency falls back to DefaultFrequency.
func NextOccurrence(due time.Time, frequency time.Duration) time.Time {
	if frequency <= 0 {
		frequency = DefaultFrequency
	}
	return due.Add(frequency)
}
