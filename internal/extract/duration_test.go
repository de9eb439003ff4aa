package extract

import (
	"strconv"
	"testing"
)

func TestParseISODuration(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  int
	}{
		{name: "hours and minutes", input: "PT1H30M", want: 90},
		{name: "minutes only", input: "PT15M", want: 15},
		{name: "hours only", input: "PT2H", want: 120},
		{name: "zero hours", input: "PT0H15M", want: 15},
		{name: "lower case", input: "pt10m", want: 10},
		{name: "surrounding space", input: "  PT45M ", want: 45},
		{name: "bare designator", input: "PT", want: 0},
		{name: "empty", input: "", want: 0},
		{name: "garbage", input: "twenty minutes", want: 0},
		{name: "date part only", input: "P1D", want: 0},
		{name: "overflowing hours", input: "PT99999999999999H", want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseISODuration(tc.input); got != tc.want {
				t.Errorf("ParseISODuration(%q) = %d, want %d", tc.input, got, tc.want)
			}
		})
	}
}

// TestParseISODurationFormula checks 60h+m over a grid of components.
func TestParseISODurationFormula(t *testing.T) {
	for h := 0; h <= 30; h += 3 {
		for m := 0; m <= 59; m += 7 {
			input := "PT" + strconv.Itoa(h) + "H" + strconv.Itoa(m) + "M"
			if got := ParseISODuration(input); got != 60*h+m {
				t.Errorf("ParseISODuration(%q) = %d, want %d", input, got, 60*h+m)
			}
		}
	}
}

func TestDurationPtr(t *testing.T) {
	if got := durationPtr(""); got != nil {
		t.Errorf("durationPtr(\"\") = %v, want nil", *got)
	}
	got := durationPtr("nonsense")
	if got == nil || *got != 0 {
		t.Errorf("durationPtr(nonsense) should be a pointer to 0")
	}
}
