package chatdate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Format is the resolved field order for ambiguous numeric dates.
type Format int

const (
	DayFirst Format = iota
	MonthFirst
)

func (f Format) String() string {
	if f == MonthFirst {
		return "month-first"
	}
	return "day-first"
}

var datePattern = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{2,4})`)

// Resolve scans the transcript once and decides whether two-field numeric
// dates are day-first or month-first. A line votes day-first when its first
// field exceeds 12 while the second does not, and vice versa. Ties favor
// day-first, as does a transcript with no disambiguating line; in that case
// later parses may silently misread the date (accepted limitation).
func Resolve(lines []string) Format {
	dayFirst, monthFirst := 0, 0
	for _, line := range lines {
		m := datePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		switch {
		case a > 12 && b <= 12:
			dayFirst++
		case b > 12 && a <= 12:
			monthFirst++
		}
	}
	if dayFirst >= monthFirst {
		return DayFirst
	}
	return MonthFirst
}

// Parse composes a date token and a time token into a single instant using
// the resolved format. The year is tried as two digits first; on failure the
// parse is retried once with a four-digit year. A second failure is returned
// to the caller, which treats it as a per-line recoverable error.
func (f Format) Parse(dateStr, timeStr string) (time.Time, error) {
	composed := strings.TrimSpace(dateStr) + " " + strings.TrimSpace(timeStr)

	short, long := "2/1/06 15:04", "2/1/2006 15:04"
	if f == MonthFirst {
		short, long = "1/2/06 15:04", "1/2/2006 15:04"
	}

	t, err := time.Parse(short, composed)
	if err == nil {
		return t, nil
	}
	t, err2 := time.Parse(long, composed)
	if err2 == nil {
		return t, nil
	}
	return time.Time{}, err
}
