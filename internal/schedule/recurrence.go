package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"meettrack/internal/apperr"
)

// dayNumbers maps day names to cron day-of-week values (Sunday is 0).
var dayNumbers = map[string]time.Weekday{
	"Sunday":    time.Sunday,
	"Monday":    time.Monday,
	"Tuesday":   time.Tuesday,
	"Wednesday": time.Wednesday,
	"Thursday":  time.Thursday,
	"Friday":    time.Friday,
	"Saturday":  time.Saturday,
}

// recurrenceRule derives the weekly cron rule for a schedule definition.
// The returned rule's Next is evaluated in the registry's location.
func recurrenceRule(day string, hour, minute int) (cron.Schedule, error) {
	d, ok := dayNumbers[day]
	if !ok {
		return nil, apperr.Invalid("Unknown day of week")
	}
	if hour < 0 || hour > 23 {
		return nil, apperr.Invalid("Hour must be between 0 and 23")
	}
	if minute < 0 || minute > 59 {
		return nil, apperr.Invalid("Minute must be between 0 and 59")
	}
	rule, err := cron.ParseStandard(fmt.Sprintf("%d %d * * %d", minute, hour, int(d)))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return rule, nil
}
