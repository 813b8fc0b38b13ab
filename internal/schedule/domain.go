package schedule

import (
	"errors"
	"fmt"
	"time"
)

// Status enumerates schedule workflow states.
type Status string

const (
	StatusSubmitted Status = "Submitted"
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
)

// Valid reports whether s is a recognised status.
func (s Status) Valid() bool {
	switch s {
	case StatusSubmitted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ErrFinalStatus indicates an approve/reject on a schedule that already left
// the Submitted state. Approved and Rejected are terminal for the workflow;
// only an administrator update can move a schedule out of them.
var ErrFinalStatus = errors.New("schedule: status already finalized")

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses a "15:04" formatted clock time.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("schedule: invalid time %q", value)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// String renders the time as "15:04".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// After reports whether t is strictly later than other.
func (t TimeOfDay) After(other TimeOfDay) bool {
	return t > other
}

// Schedule is a single work-shift request.
type Schedule struct {
	ID        int64
	OwnerID   string
	OwnerName string
	Date      time.Time
	Day       string
	StartTime TimeOfDay
	EndTime   TimeOfDay
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DayOfWeek derives the weekday name for a date. The stored Day column is
// never authoritative: it is always recomputed from Date before persisting.
func DayOfWeek(date time.Time) string {
	return date.Weekday().String()
}

// ValidationError is a user-correctable structural error tied to one input
// field. It is raised before any authorization check is attempted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schedule: %s: %s", e.Field, e.Message)
}

func validateTimes(start, end TimeOfDay) error {
	if !end.After(start) {
		return &ValidationError{Field: "end_time", Message: "End time must be after start time."}
	}
	return nil
}

// CreateScheduleInput carries the fields of a new shift request.
type CreateScheduleInput struct {
	OwnerID   string
	Date      time.Time
	StartTime TimeOfDay
	EndTime   TimeOfDay
	Status    Status
}

// UpdateScheduleInput carries the replacement fields for an existing shift.
type UpdateScheduleInput struct {
	OwnerID   string
	Date      time.Time
	StartTime TimeOfDay
	EndTime   TimeOfDay
	Status    Status
}

// ListSort enumerates the supported index orderings.
type ListSort string

const (
	SortDateAsc   ListSort = "date_asc"
	SortDateDesc  ListSort = "date_desc"
	SortOwnerAsc  ListSort = "user_asc"
	SortOwnerDesc ListSort = "user_desc"
)

// WeekData groups one calendar week of schedules per weekday.
type WeekData struct {
	StartOfWeek time.Time
	EndOfWeek   time.Time
	Monday      []Schedule
	Tuesday     []Schedule
	Wednesday   []Schedule
	Thursday    []Schedule
	Friday      []Schedule
	Saturday    []Schedule
	Sunday      []Schedule
}

// StartOfWeek truncates a date to the Monday that opens its week.
func StartOfWeek(d time.Time) time.Time {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
	diff := (int(day.Weekday()) - int(time.Monday) + 7) % 7
	return day.AddDate(0, 0, -diff)
}
