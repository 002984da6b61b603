package util

import (
	"testing"
	"time"
)

func TestPreviousMonth(t *testing.T) {
	tests := []struct {
		year, month         int
		wantYear, wantMonth int
	}{
		{2025, 6, 2025, 5},
		{2025, 1, 2024, 12},
		{2024, 12, 2024, 11},
	}

	for _, tt := range tests {
		gotYear, gotMonth := PreviousMonth(tt.year, tt.month)
		if gotYear != tt.wantYear || gotMonth != tt.wantMonth {
			t.Errorf("PreviousMonth(%d, %d) = (%d, %d), want (%d, %d)",
				tt.year, tt.month, gotYear, gotMonth, tt.wantYear, tt.wantMonth)
		}
	}
}

func TestMonthBounds(t *testing.T) {
	start, end := MonthBounds(2025, 2)

	wantStart := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	if !start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", start, wantStart)
	}
	if !end.Equal(wantEnd) {
		t.Errorf("end = %v, want %v", end, wantEnd)
	}
}

func TestMonthBounds_YearRollover(t *testing.T) {
	_, end := MonthBounds(2024, 12)
	want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if !end.Equal(want) {
		t.Errorf("end = %v, want %v", end, want)
	}
}

func TestResolveMonth_Defaults(t *testing.T) {
	now := time.Now().UTC()

	month, year := ResolveMonth(0, 0)
	if month != int(now.Month()) || year != now.Year() {
		t.Errorf("ResolveMonth(0, 0) = (%d, %d), want current (%d, %d)",
			month, year, int(now.Month()), now.Year())
	}

	month, year = ResolveMonth(3, 2023)
	if month != 3 || year != 2023 {
		t.Errorf("ResolveMonth(3, 2023) = (%d, %d), want (3, 2023)", month, year)
	}
}

func TestValidMonth(t *testing.T) {
	for m := 1; m <= 12; m++ {
		if !ValidMonth(m) {
			t.Errorf("ValidMonth(%d) = false, want true", m)
		}
	}
	for _, m := range []int{0, 13, -1} {
		if ValidMonth(m) {
			t.Errorf("ValidMonth(%d) = true, want false", m)
		}
	}
}
