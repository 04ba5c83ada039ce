package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NextRun resolves a recompute-cadence expression against a base time.
// Supported forms: "@every <duration>" (with a "d" suffix for days),
// "@hourly", "@daily".
func NextRun(expr string, baseTime time.Time) (time.Time, error) {
	expr = strings.TrimSpace(expr)
	switch {
	case expr == "@hourly":
		return baseTime.Add(time.Hour).Truncate(time.Hour), nil
	case expr == "@daily":
		t := baseTime
		return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location()), nil
	case strings.HasPrefix(expr, "@every "):
		return parseEveryDuration(strings.TrimPrefix(expr, "@every "), baseTime)
	default:
		return time.Time{}, fmt.Errorf("unsupported schedule expression: %s", expr)
	}
}

// ValidateExpression checks a cadence expression without resolving it.
func ValidateExpression(expr string) error {
	_, err := NextRun(expr, time.Now())
	return err
}

func parseEveryDuration(duration string, baseTime time.Time) (time.Time, error) {
	// time.ParseDuration has no day unit, so handle "7d" style explicitly.
	if strings.HasSuffix(duration, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(duration, "d"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid duration: %s", duration)
		}
		return baseTime.Add(time.Duration(days) * 24 * time.Hour), nil
	}
	d, err := time.ParseDuration(duration)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid duration: %s", duration)
	}
	return baseTime.Add(d), nil
}
