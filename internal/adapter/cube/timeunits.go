package cube

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimeUnits is a CF-style "<unit> since <epoch>" time encoding on the standard calendar.
type TimeUnits struct {
	Step  time.Duration
	Epoch time.Time
}

var unitSteps = map[string]time.Duration{
	"second": time.Second, "seconds": time.Second, "sec": time.Second, "secs": time.Second, "s": time.Second,
	"minute": time.Minute, "minutes": time.Minute, "min": time.Minute, "mins": time.Minute,
	"hour": time.Hour, "hours": time.Hour, "hr": time.Hour, "hrs": time.Hour, "h": time.Hour,
	"day": 24 * time.Hour, "days": 24 * time.Hour, "d": 24 * time.Hour,
}

// ParseTimeUnits parses strings such as "hours since 1970-01-01 00:00:00".
func ParseTimeUnits(s string) (TimeUnits, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) < 3 || !strings.EqualFold(fields[1], "since") {
		return TimeUnits{}, fmt.Errorf("invalid time units %q (expected \"<unit> since <date>\")", s)
	}

	step, ok := unitSteps[strings.ToLower(fields[0])]
	if !ok {
		return TimeUnits{}, fmt.Errorf("unsupported time unit %q", fields[0])
	}

	epoch, err := parseEpoch(fields[2:])
	if err != nil {
		return TimeUnits{}, fmt.Errorf("invalid epoch in %q: %w", s, err)
	}
	return TimeUnits{Step: step, Epoch: epoch}, nil
}

// parseEpoch accepts "Y-M-D", "Y-M-D h:m[:s]" and "Y-M-DTh:m:s", with optional Z/UTC suffix.
func parseEpoch(parts []string) (time.Time, error) {
	joined := strings.Join(parts, " ")
	joined = strings.TrimSuffix(joined, " UTC")
	joined = strings.TrimSuffix(joined, "Z")
	joined = strings.Replace(joined, "T", " ", 1)

	datePart, timePart, _ := strings.Cut(strings.TrimSpace(joined), " ")
	ymd := strings.Split(datePart, "-")
	if len(ymd) != 3 {
		return time.Time{}, fmt.Errorf("bad date %q", datePart)
	}
	var dateVals [3]int
	for i, p := range ymd {
		v, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("bad date %q", datePart)
		}
		dateVals[i] = v
	}

	var clock [3]float64
	if timePart = strings.TrimSpace(timePart); timePart != "" {
		hms := strings.Split(timePart, ":")
		if len(hms) > 3 {
			return time.Time{}, fmt.Errorf("bad time %q", timePart)
		}
		for i, p := range hms {
			v, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return time.Time{}, fmt.Errorf("bad time %q", timePart)
			}
			clock[i] = v
		}
	}

	secs := math.Floor(clock[2])
	nanos := int((clock[2] - secs) * 1e9)
	return time.Date(dateVals[0], time.Month(dateVals[1]), dateVals[2],
		int(clock[0]), int(clock[1]), int(secs), nanos, time.UTC), nil
}

// String formats the units in CF form.
func (u TimeUnits) String() string {
	name := "seconds"
	switch u.Step {
	case time.Minute:
		name = "minutes"
	case time.Hour:
		name = "hours"
	case 24 * time.Hour:
		name = "days"
	}
	return fmt.Sprintf("%s since %s", name, u.Epoch.Format("2006-01-02 15:04:05"))
}

// Date2Num encodes t as a numeric offset from the epoch.
func (u TimeUnits) Date2Num(t time.Time) float64 {
	secs := float64(t.Unix()-u.Epoch.Unix()) + float64(t.Nanosecond()-u.Epoch.Nanosecond())/1e9
	return secs / u.Step.Seconds()
}

// Num2Date decodes a numeric offset, rounded to the microsecond.
func (u TimeUnits) Num2Date(v float64) time.Time {
	micros := math.Round(v * u.Step.Seconds() * 1e6)
	whole := math.Floor(micros / 1e6)
	frac := micros - whole*1e6
	return time.Unix(u.Epoch.Unix()+int64(whole), int64(u.Epoch.Nanosecond())+int64(frac)*1000).UTC()
}
