package calendar

import (
	"testing"
	"time"
)

func TestDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name      string
		at        time.Time
		loc       *time.Location
		wantStart time.Time
		wantHours float64
	}{
		{
			name:      "utc midday",
			at:        time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC),
			loc:       time.UTC,
			wantStart: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
			wantHours: 24,
		},
		{
			name:      "utc instant that is still yesterday in new york",
			at:        time.Date(2024, 3, 9, 3, 0, 0, 0, time.UTC),
			loc:       ny,
			wantStart: time.Date(2024, 3, 8, 0, 0, 0, 0, ny),
			wantHours: 24,
		},
		{
			name:      "spring forward day",
			at:        time.Date(2024, 3, 10, 15, 0, 0, 0, ny),
			loc:       ny,
			wantStart: time.Date(2024, 3, 10, 0, 0, 0, 0, ny),
			wantHours: 23,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			start, end := Day(tc.at, tc.loc)
			if !start.Equal(tc.wantStart) {
				t.Fatalf("expected start %v, got %v", tc.wantStart, start)
			}
			if got := end.Sub(start).Hours(); got != tc.wantHours {
				t.Fatalf("expected %v hour day, got %v", tc.wantHours, got)
			}
		})
	}
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	if err != nil || loc != time.Local {
		t.Fatalf("expected local zone, got %v (%v)", loc, err)
	}
	if _, err := LoadLocation("Mars/Olympus_Mons"); err == nil {
		t.Fatalf("expected error for unknown zone")
	}
}
