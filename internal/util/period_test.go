package util

import (
	"math"
	"testing"
	"time"
)

func TestYearFraction(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    float64
	}{
		{0, 0},
		{-time.Hour, 0},
		{YearDuration, 1},
		{YearDuration / 2, 0.5},
		{24 * time.Hour, 1.0 / 365},
	}

	for _, tt := range tests {
		got := YearFraction(tt.elapsed)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("YearFraction(%v) = %v, want %v", tt.elapsed, got, tt.want)
		}
	}
}

func TestNextOccurrence(t *testing.T) {
	due := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	got := NextOccurrence(due, 7*24*time.Hour)
	want := time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextOccurrence weekly = %v, want %v", got, want)
	}

	// Zero frequency uses the default 30-day period
	got = NextOccurrence(due, 0)
	want = due.Add(DefaultFrequency)
	if !got.Equal(want) {
		t.Errorf("NextOccurrence default = %v, want %v", got, want)
	}
}
