package core

import (
	"testing"
	"time"
)

func TestPeriodBoundsMonthly(t *testing.T) {
	tests := []struct {
		name      string
		date      time.Time
		wantStart string
		wantEnd   string
	}{
		{
			name:      "mid month",
			date:      time.Date(2025, 6, 15, 13, 45, 0, 0, time.UTC),
			wantStart: "2025-06-01",
			wantEnd:   "2025-06-30",
		},
		{
			name:      "february leap year",
			date:      time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
			wantStart: "2024-02-01",
			wantEnd:   "2024-02-29",
		},
		{
			name:      "last day of december",
			date:      time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC),
			wantStart: "2025-12-01",
			wantEnd:   "2025-12-31",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := PeriodBounds(tt.date, Monthly)
			if got := start.Format("2006-01-02"); got != tt.wantStart {
				t.Errorf("start = %s, want %s", got, tt.wantStart)
			}
			if got := end.Format("2006-01-02"); got != tt.wantEnd {
				t.Errorf("end = %s, want %s", got, tt.wantEnd)
			}
		})
	}
}

func TestPeriodBoundsWeekly(t *testing.T) {
	tests := []struct {
		name      string
		date      time.Time
		wantStart string
		wantEnd   string
	}{
		{
			name:      "wednesday maps to its monday",
			date:      time.Date(2025, 6, 18, 10, 0, 0, 0, time.UTC), // Wed
			wantStart: "2025-06-16",
			wantEnd:   "2025-06-22",
		},
		{
			name:      "monday starts its own week",
			date:      time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC),
			wantStart: "2025-06-16",
			wantEnd:   "2025-06-22",
		},
		{
			name:      "sunday ends the week",
			date:      time.Date(2025, 6, 22, 23, 0, 0, 0, time.UTC),
			wantStart: "2025-06-16",
			wantEnd:   "2025-06-22",
		},
		{
			name:      "week spanning a month boundary",
			date:      time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), // Tue
			wantStart: "2025-06-30",
			wantEnd:   "2025-07-06",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := PeriodBounds(tt.date, Weekly)
			if got := start.Format("2006-01-02"); got != tt.wantStart {
				t.Errorf("start = %s, want %s", got, tt.wantStart)
			}
			if got := end.Format("2006-01-02"); got != tt.wantEnd {
				t.Errorf("end = %s, want %s", got, tt.wantEnd)
			}
		})
	}
}

func TestPeriodBoundsStableWithinPeriod(t *testing.T) {
	// Every day of a month maps to the same monthly period row.
	first, _ := PeriodBounds(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Monthly)
	for d := 2; d <= 31; d++ {
		start, _ := PeriodBounds(time.Date(2025, 3, d, 12, 0, 0, 0, time.UTC), Monthly)
		if !start.Equal(first) {
			t.Fatalf("day %d: start %v differs from day 1 start %v", d, start, first)
		}
	}
}
