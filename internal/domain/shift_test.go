package domain

import (
	"testing"
	"time"
)

func TestClassifyShift_Boundaries(t *testing.T) {
	cases := []struct {
		hour int
		want Shift
	}{
		{0, ShiftDawn},
		{5, ShiftDawn},
		{6, ShiftMorning},
		{11, ShiftMorning},
		{12, ShiftAfternoon},
		{17, ShiftAfternoon},
		{18, ShiftNight},
		{23, ShiftNight},
	}

	for _, c := range cases {
		ts := time.Date(2025, 3, 10, c.hour, 0, 0, 0, time.Local)
		if got := ClassifyShift(ts); got != c.want {
			t.Fatalf("hour %d: got %q, want %q", c.hour, got, c.want)
		}
	}
}

func TestClassifyShift_Total(t *testing.T) {
	for h := 0; h < 24; h++ {
		ts := time.Date(2025, 3, 10, h, 30, 0, 0, time.Local)
		switch ClassifyShift(ts) {
		case ShiftDawn, ShiftMorning, ShiftAfternoon, ShiftNight:
		default:
			t.Fatalf("hour %d mapped to no shift", h)
		}
	}
}
