package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the only accepted request date format (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// DatasetHour is the hour of day at which the daily datasets store their observations.
const DatasetHour = 12

// Window is an inclusive [Start, End] pair of normalised timestamps.
type Window struct {
	Start time.Time
	End   time.Time
}

// DefaultWindow returns the dataset coverage used when a request names no dates.
func DefaultWindow() Window {
	return Window{
		Start: time.Date(1960, time.January, 1, DatasetHour, 0, 0, 0, time.UTC),
		End:   time.Date(2015, time.December, 31, DatasetHour, 0, 0, 0, time.UTC),
	}
}

// DateInputs carries the raw date query parameters of a request. Empty means absent.
type DateInputs struct {
	Date      string
	StartDate string
	EndDate   string
}

// IsEmpty reports whether no date input was given.
func (in DateInputs) IsEmpty() bool {
	return in.Date == "" && in.StartDate == "" && in.EndDate == ""
}

// Normalize moves t to DatasetHour (UTC) on the same calendar day.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, DatasetHour, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string and normalises it.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, InputErrorf("invalid date %q (expected YYYY-MM-DD)", s)
	}
	return Normalize(t), nil
}

// ResolveRequestWindow applies the request date precedence:
// date, then start+end, then start only, then end only, then the defaults.
func ResolveRequestWindow(in DateInputs, defaults Window) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	switch {
	case in.Date != "":
		start, err = ParseDate(in.Date)
		end = start
	case in.StartDate != "" && in.EndDate != "":
		if start, err = ParseDate(in.StartDate); err == nil {
			end, err = ParseDate(in.EndDate)
		}
	case in.StartDate != "":
		start, err = ParseDate(in.StartDate)
		end = defaults.End
	case in.EndDate != "":
		start = defaults.Start
		end, err = ParseDate(in.EndDate)
	default:
		start, end = defaults.Start, defaults.End
	}
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	return Normalize(start), Normalize(end), nil
}

// ExpandRange returns every calendar day from start to end inclusive.
// A reversed range is rejected rather than producing an empty window.
func ExpandRange(start, end time.Time) ([]time.Time, error) {
	if end.Before(start) {
		return nil, InputErrorf("end date %s is before start date %s",
			end.Format(DateLayout), start.Format(DateLayout))
	}

	days := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days, nil
}

// ExpandYears replicates each day across the n preceding years (inclusive of the day itself).
// Feb 29 shifted into a non-leap year resolves to Feb 28. The result is sorted and deduplicated.
func ExpandYears(days []time.Time, n int) []time.Time {
	if n < 0 {
		n = 0
	}

	out := make([]time.Time, 0, len(days)*(n+1))
	for _, d := range days {
		for i := n; i >= 0; i-- {
			out = append(out, shiftYears(d, -i))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return dedupeSorted(out)
}

// shiftYears moves t by delta calendar years, clamping Feb 29 to the last valid day.
func shiftYears(t time.Time, delta int) time.Time {
	year := t.Year() + delta
	month := t.Month()
	day := t.Day()
	if month == time.February && day == 29 && !isLeap(year) {
		day = 28
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func dedupeSorted(ts []time.Time) []time.Time {
	if len(ts) < 2 {
		return ts
	}
	out := ts[:1]
	for _, t := range ts[1:] {
		if !t.Equal(out[len(out)-1]) {
			out = append(out, t)
		}
	}
	return out
}

// YearsOf returns the distinct calendar years present in days, ascending.
func YearsOf(days []time.Time) []int {
	seen := make(map[int]bool)
	years := make([]int, 0)
	for _, d := range days {
		if !seen[d.Year()] {
			seen[d.Year()] = true
			years = append(years, d.Year())
		}
	}
	sort.Ints(years)
	return years
}

// PartitionPattern builds the file pattern selecting the given years:
// a single year is matched directly, several years become a brace set.
func PartitionPattern(years []int) string {
	switch len(years) {
	case 0:
		return ""
	case 1:
		return strconv.Itoa(years[0])
	}

	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = strconv.Itoa(y)
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, ","))
}
