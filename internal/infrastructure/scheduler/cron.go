package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	syncdomain "github.com/catalogsync/backend/internal/domain/sync"
)

// cronParser accepts standard five-field expressions plus descriptors like
// @hourly.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateCron checks a cron expression without computing anything.
func ValidateCron(expr string) error {
	if expr == "" {
		return syncdomain.ErrInvalidCronExpression
	}
	if _, err := cronParser.Parse(expr); err != nil {
		return syncdomain.ErrInvalidCronExpression
	}
	return nil
}

// NextRun computes the next fire time after the given instant. An expression
// that stopped parsing (edited by hand in the database, or a version skew in
// the cron library) falls back to one hour so the schedule degrades to hourly
// instead of going dead.
func NextRun(expr string, after time.Time) time.Time {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return after.Add(time.Hour)
	}
	return schedule.Next(after)
}
