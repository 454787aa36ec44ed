// Package timewindow checks event schedules and whether a file's creation time
// falls inside an event's buffered acceptance window.
package timewindow

import (
	"fmt"
	"time"

	"github.com/On-Jun9/ShutterGate/pkg/types"
)

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04"
	dateTimeLayout = dateLayout + " " + timeLayout
)

const (
	msgStartDateInPast    = "Start date cannot be in the past"
	msgEndBeforeStart     = "End date cannot be before start date"
	msgStartTimeInPast    = "Start time cannot be in the past for today's date. You can create 1 mins ahead of your current time if the event has started already!!"
	msgEndTimeBeforeStart = "End time cannot be before start time on the same day"
)

// ValidateEventSchedule checks a schedule as entered at event-creation time. Dates and
// times are read in now's location. Every violated rule is reported, in rule order.
func ValidateEventSchedule(s types.EventSchedule, now time.Time) types.ScheduleValidation {
	result := types.ScheduleValidation{IsValid: true, Errors: []string{}}
	fail := func(msg string) {
		result.IsValid = false
		result.Errors = append(result.Errors, msg)
	}

	loc := now.Location()
	start, startErr := combine(s.StartDate, s.StartTime, loc)
	end, endErr := combine(s.EndDate, s.EndTime, loc)
	for _, err := range []error{startErr, endErr} {
		if err != nil {
			fail(err.Error())
		}
	}
	if !result.IsValid {
		return result
	}

	startDay := midnight(start)
	endDay := midnight(end)
	today := midnight(now)

	if startDay.Before(today) {
		fail(msgStartDateInPast)
	}
	if endDay.Before(startDay) {
		fail(msgEndBeforeStart)
	}
	if startDay.Equal(today) && start.Before(now) {
		fail(msgStartTimeInPast)
	}
	if s.StartDate == s.EndDate && end.Before(start) {
		fail(msgEndTimeBeforeStart)
	}

	return result
}

// EventFromSchedule combines the schedule's date and time strings into an event window.
func EventFromSchedule(s types.EventSchedule, loc *time.Location) (types.EventWindow, error) {
	if loc == nil {
		loc = time.Local
	}
	start, err := combine(s.StartDate, s.StartTime, loc)
	if err != nil {
		return types.EventWindow{}, err
	}
	end, err := combine(s.EndDate, s.EndTime, loc)
	if err != nil {
		return types.EventWindow{}, err
	}
	if end.Before(start) {
		return types.EventWindow{}, fmt.Errorf("event ends (%s) before it starts (%s)",
			end.Format(dateTimeLayout), start.Format(dateTimeLayout))
	}
	return types.EventWindow{Start: start, End: end}, nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func combine(date, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateTimeLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %q %q: expected YYYY-MM-DD and HH:mm", date, clock)
	}
	return t, nil
}
