package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var isoDurationRe = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?`)

// ParseISODuration converts a PT[n]H[n]M duration into whole minutes.
// Missing components count as zero; anything unparsable yields 0.
func ParseISODuration(s string) int {
	m := isoDurationRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return 0
	}
	hours, ok := atoiOrZero(m[1])
	if !ok {
		return 0
	}
	minutes, ok := atoiOrZero(m[2])
	if !ok {
		return 0
	}
	total := hours*60 + minutes
	if total < 0 {
		return 0
	}
	return total
}

func atoiOrZero(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > 1<<31/60 {
		return 0, false
	}
	return n, true
}

// durationPtr parses a duration field that may be absent.
func durationPtr(s string) *int {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	n := ParseISODuration(s)
	return &n
}
