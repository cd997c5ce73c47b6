// Package scheduler implements the background side-effect runner: a job
// registry evaluated on a fixed wall-clock tick.
//
// Schedules are deliberately restricted to three shapes: every minute,
// every hour at a minute, every day at a time. The cron string is parsed
// once at registration into a tagged Schedule; an unsupported pattern is a
// configuration error at startup, never a silent per-tick degradation.
package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/traction-app/traction/internal/domain"
)

type scheduleKind int

const (
	kindEveryMinute scheduleKind = iota
	kindEveryHourAt
	kindEveryDayAt
)

// Schedule is a tagged trigger pattern decided at registration time.
type Schedule struct {
	kind   scheduleKind
	minute int
	hour   int
}

// EveryMinute triggers once per tick.
func EveryMinute() Schedule {
	return Schedule{kind: kindEveryMinute}
}

// EveryHourAt triggers once per hour at the given minute.
func EveryHourAt(minute int) (Schedule, error) {
	if minute < 0 || minute > 59 {
		return Schedule{}, fmt.Errorf("%w: minute %d", domain.ErrUnsupportedSchedule, minute)
	}
	return Schedule{kind: kindEveryHourAt, minute: minute}, nil
}

// EveryDayAt triggers once per day at the given wall-clock time.
func EveryDayAt(hour, minute int) (Schedule, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Schedule{}, fmt.Errorf("%w: time %02d:%02d", domain.ErrUnsupportedSchedule, hour, minute)
	}
	return Schedule{kind: kindEveryDayAt, hour: hour, minute: minute}, nil
}

// Parse converts a 5-field cron expression (minute hour day month weekday)
// into a Schedule. Only "* * * * *", "M * * * *" and "M H * * *" are
// supported.
func Parse(expr string) (Schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return Schedule{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedSchedule, expr)
	}
	if fields[2] != "*" || fields[3] != "*" || fields[4] != "*" {
		return Schedule{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedSchedule, expr)
	}

	minute, hour := fields[0], fields[1]
	switch {
	case minute == "*" && hour == "*":
		return EveryMinute(), nil
	case hour == "*":
		m, err := cronField(minute, expr)
		if err != nil {
			return Schedule{}, err
		}
		return EveryHourAt(m)
	default:
		m, err := cronField(minute, expr)
		if err != nil {
			return Schedule{}, err
		}
		h, err := cronField(hour, expr)
		if err != nil {
			return Schedule{}, err
		}
		return EveryDayAt(h, m)
	}
}

func cronField(field, expr string) (int, error) {
	v, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnsupportedSchedule, expr)
	}
	return v, nil
}

// Next computes the first trigger instant strictly after now. Rolling
// forward a full period when the computed instant is not after now prevents
// double-firing within one tick.
func (s Schedule) Next(now time.Time) time.Time {
	switch s.kind {
	case kindEveryMinute:
		return now.Truncate(time.Minute).Add(time.Minute)
	case kindEveryHourAt:
		next := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), s.minute, 0, 0, now.Location())
		if !next.After(now) {
			next = next.Add(time.Hour)
		}
		return next
	default:
		next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
}

// String renders the schedule back as a cron expression.
func (s Schedule) String() string {
	switch s.kind {
	case kindEveryMinute:
		return "* * * * *"
	case kindEveryHourAt:
		return fmt.Sprintf("%d * * * *", s.minute)
	default:
		return fmt.Sprintf("%d %d * * *", s.minute, s.hour)
	}
}
