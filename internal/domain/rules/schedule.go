package rules

import "time"

const (
	DefaultDeadlineHour   = 22
	DefaultDeadlineMinute = 0
)

func DayKey(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format("2006-01-02")
}

// MatchDate truncates now to the local calendar day the pairing belongs to.
func MatchDate(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DeadlineAt returns the submission deadline for a pairing created at now:
// the same local day at the configured deadline hour.
func DeadlineAt(now time.Time, loc *time.Location, hour, minute int) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if hour <= 0 || hour > 23 {
		hour = DefaultDeadlineHour
	}
	if minute < 0 || minute > 59 {
		minute = DefaultDeadlineMinute
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc).UTC()
}

// NextOccurrence returns the next time-of-day trigger at or after now.
func NextOccurrence(now time.Time, loc *time.Location, hour, minute int) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next.UTC()
}
