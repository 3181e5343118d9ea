// Package terms resolves payment-term codes ("Net 30", "Due on Receipt",
// "14 calendar days") into due dates.
package terms

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var netDays = map[string]int{
	"due today":      0,
	"due on receipt": 0,
	"net 7":          7,
	"net 9":          9,
	"net 14":         14,
	"net 15":         15,
	"net 30":         30,
	"net 60":         60,
	"net 90":         90,
}

var calendarDaysRe = regexp.MustCompile(`^(\d{1,3})\s+calendar\s+days?$`)

// Days maps a term code to its net-day count. Matching is case-insensitive.
// The second return is false for unrecognized codes.
func Days(code string) (int, bool) {
	c := strings.ToLower(strings.TrimSpace(code))
	if c == "" {
		return 0, false
	}
	if n, ok := netDays[c]; ok {
		return n, true
	}
	if m := calendarDaysRe.FindStringSubmatch(c); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return n, true
		}
	}
	return 0, false
}

// Resolve returns issue + N days for a known term code, and the issue date
// unchanged for anything it does not recognize. It never fails: a garbled
// term on a draft must not block pricing or display.
func Resolve(issue time.Time, code string) time.Time {
	n, ok := Days(code)
	if !ok {
		return issue
	}
	return issue.AddDate(0, 0, n)
}
