package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"
)

// Clock is the scheduler's source of time.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

var ErrInvalidClock = errors.New("invalid clock time")

// TimeOfDay is a local wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseClock parses "HMM" or "HHMM", e.g. "900" or "1310".
func ParseClock(s string) (TimeOfDay, error) {
	if len(s) == 3 {
		s = "0" + s
	}
	if len(s) != 4 {
		return TimeOfDay{}, fmt.Errorf("%w %q: expected HHMM", ErrInvalidClock, s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return TimeOfDay{}, fmt.Errorf("%w %q: expected digits", ErrInvalidClock, s)
		}
	}
	n, _ := strconv.Atoi(s)
	t := TimeOfDay{Hour: n / 100, Minute: n % 100}
	if t.Hour > 23 || t.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("%w %q: out of range", ErrInvalidClock, s)
	}
	return t, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d%02d", t.Hour, t.Minute)
}

// On returns the time of day on day's date, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

// nearest returns the occurrence of t closest to now, looking at yesterday,
// today and tomorrow so windows that straddle midnight work.
func (t TimeOfDay) nearest(now time.Time) (time.Time, time.Duration) {
	var best time.Time
	bestDist := time.Duration(-1)
	for d := -1; d <= 1; d++ {
		occ := t.On(now.AddDate(0, 0, d))
		dist := now.Sub(occ)
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = occ, dist
		}
	}
	return best, bestDist
}

// parseClocks keeps the valid entries of runTimes, logging the rest.
func parseClocks(runTimes []string) []TimeOfDay {
	out := make([]TimeOfDay, 0, len(runTimes))
	for _, s := range runTimes {
		t, err := ParseClock(s)
		if err != nil {
			slog.Warn("skipping run time", "run_time", s, "error", err)
			continue
		}
		out = append(out, t)
	}
	return out
}

// NextRun returns the next explicit run after now. Invalid entries are
// skipped; with no valid entry the next run is an hour from now.
func NextRun(runTimes []string, now time.Time) time.Time {
	clocks := parseClocks(runTimes)
	if len(clocks) == 0 {
		return now.Add(time.Hour)
	}

	var candidates []time.Time
	for _, c := range clocks {
		occ := c.On(now)
		if !occ.After(now) {
			occ = c.On(now.AddDate(0, 0, 1))
		}
		candidates = append(candidates, occ)
	}
	return slices.MinFunc(candidates, func(a, b time.Time) int { return a.Compare(b) })
}
