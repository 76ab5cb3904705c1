package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleType enumerates the cadences a scheduled trigger supports.
type ScheduleType string

const (
	ScheduleHourly   ScheduleType = "hourly"
	ScheduleDaily    ScheduleType = "daily"
	ScheduleWeekly   ScheduleType = "weekly"
	ScheduleMonthly  ScheduleType = "monthly"
	ScheduleInterval ScheduleType = "interval"
)

// ErrInvalidSchedule is returned when a schedule configuration cannot
// be translated into a cron expression.
var ErrInvalidSchedule = errors.New("invalid schedule configuration")

// MinIntervalMinutes is the floor for interval schedules.
const MinIntervalMinutes = 5

// Schedule is the typed form of a scheduled trigger's configuration.
// Hour applies to daily and weekly schedules, Day (0=Sunday) to weekly,
// Minutes to interval schedules.
type Schedule struct {
	Type    ScheduleType `json:"type"`
	Hour    int          `json:"hour,omitempty"`
	Day     int          `json:"day,omitempty"`
	Minutes int          `json:"minutes,omitempty"`
}

// CronExpression renders the schedule as a standard 5-field cron
// expression (minute hour day-of-month month day-of-week).
func (s Schedule) CronExpression() (string, error) {
	switch s.Type {
	case ScheduleHourly:
		return "0 * * * *", nil
	case ScheduleDaily:
		if s.Hour < 0 || s.Hour > 23 {
			return "", fmt.Errorf("%w: hour %d out of range", ErrInvalidSchedule, s.Hour)
		}

		return fmt.Sprintf("0 %d * * *", s.Hour), nil
	case ScheduleWeekly:
		if s.Hour < 0 || s.Hour > 23 {
			return "", fmt.Errorf("%w: hour %d out of range", ErrInvalidSchedule, s.Hour)
		}

		if s.Day < 0 || s.Day > 6 {
			return "", fmt.Errorf("%w: day %d out of range", ErrInvalidSchedule, s.Day)
		}

		return fmt.Sprintf("0 %d * * %d", s.Hour, s.Day), nil
	case ScheduleMonthly:
		return "0 0 1 * *", nil
	case ScheduleInterval:
		if s.Minutes < MinIntervalMinutes {
			return "", fmt.Errorf("%w: interval below %d minutes", ErrInvalidSchedule, MinIntervalMinutes)
		}

		return fmt.Sprintf("*/%d * * * *", s.Minutes), nil
	default:
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidSchedule, s.Type)
	}
}

// NextDue computes the next firing time after the reference time. Used
// by the editor for preview only; the scheduler runtime lives server-side.
func (s Schedule) NextDue(after time.Time) (time.Time, error) {
	expr, err := s.CronExpression()
	if err != nil {
		return time.Time{}, err
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	cronSchedule, err := parser.Parse(expr)
	if err != nil {
		return time.Time{}, err
	}

	return cronSchedule.Next(after), nil
}
