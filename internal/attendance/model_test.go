package attendance

import (
	"testing"
	"time"
)

func TestFormatLabel(t *testing.T) {
	at := time.Date(2024, 1, 10, 9, 15, 42, 0, time.UTC)

	tests := []struct {
		name    string
		periods []int
		want    string
	}{
		{name: "single period", periods: []int{1}, want: "P1 - 09:15"},
		{name: "multiple periods sorted", periods: []int{3, 1, 2}, want: "P1,2,3 - 09:15"},
		{name: "duplicates collapsed", periods: []int{2, 2, 5}, want: "P2,5 - 09:15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatLabel(tt.periods, at); got != tt.want {
				t.Errorf("FormatLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseLabel(t *testing.T) {
	tests := []struct {
		name        string
		label       string
		wantPeriods []int
		wantClock   string
		wantErr     bool
	}{
		{name: "full label", label: "P1,2,3 - 09:15", wantPeriods: []int{1, 2, 3}, wantClock: "09:15"},
		{name: "single period", label: "P7 - 16:40", wantPeriods: []int{7}, wantClock: "16:40"},
		{name: "no clock suffix", label: "P4,5", wantPeriods: []int{4, 5}},
		{name: "missing prefix", label: "1,2 - 09:15", wantErr: true},
		{name: "garbage periods", label: "Pone - 09:15", wantErr: true},
		{name: "empty", label: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			periods, clock, err := ParseLabel(tt.label)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLabel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if clock != tt.wantClock {
				t.Errorf("clock = %q, want %q", clock, tt.wantClock)
			}
			if len(periods) != len(tt.wantPeriods) {
				t.Fatalf("periods = %v, want %v", periods, tt.wantPeriods)
			}
			for i := range periods {
				if periods[i] != tt.wantPeriods[i] {
					t.Errorf("periods = %v, want %v", periods, tt.wantPeriods)
				}
			}
		})
	}
}

func TestLabelRoundTrip(t *testing.T) {
	at := time.Date(2024, 1, 10, 14, 5, 0, 0, time.UTC)
	label := FormatLabel([]int{2, 4, 6}, at)

	periods, clock, err := ParseLabel(label)
	if err != nil {
		t.Fatalf("ParseLabel(%q) error = %v", label, err)
	}
	if clock != "14:05" {
		t.Errorf("clock = %q, want 14:05", clock)
	}
	if FormatLabel(periods, at) != label {
		t.Errorf("round trip changed label: %q -> %q", label, FormatLabel(periods, at))
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPresent, StatusAbsent, StatusOD, StatusNotMarked} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []Status{"", "Late", "present"} {
		if Status(s).Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}
