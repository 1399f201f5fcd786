package yearplan

import (
	"fmt"
	"iter"
	"math"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/classroom-curator/planner/core"
	"github.com/classroom-curator/planner/core/calendar"
)

// Statuses of a ScheduledUnit.
const (
	StatusScheduled Status = "scheduled"
	StatusOverspill Status = "overspill"
)

// dayEpsilon is the relative float noise absorbed when converting hours to days,
// eg: 1.1h*60 = 66.00000000000001 min.
const dayEpsilon = 1e-12

// maxRequiredDays bounds RequiredDays. Such a unit overspills any window.
const maxRequiredDays = math.MaxInt32

type Status string

// CalendarWindow is the teaching calendar of a plan.
type CalendarWindow struct {
	StartDate    calendar.Date
	EndDate      calendar.Date
	ClassDays    calendar.WeekdaySet
	DailyMinutes int
	Holidays     map[calendar.Date]struct{}
}

// NewHolidaySet builds a holiday set from `dates`.
func NewHolidaySet(dates ...calendar.Date) map[calendar.Date]struct{} {
	set := make(map[calendar.Date]struct{}, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	return set
}

// IsSchoolDay reports whether `d` is a class day of the window that is not a holiday.
func (w CalendarWindow) IsSchoolDay(d calendar.Date) bool {
	if !d.Within(w.StartDate, w.EndDate) || !w.ClassDays.Has(d.Weekday()) {
		return false
	}
	_, holiday := w.Holidays[d]
	return !holiday
}

var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// schoolDaySet is the weekly recurrence of the class days of `w`, with its holidays excluded.
func schoolDaySet(w CalendarWindow) (*rrule.Set, error) {
	byweekday := make([]rrule.Weekday, 0, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if w.ClassDays.Has(wd) {
			byweekday = append(byweekday, rruleWeekdays[wd])
		}
	}
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   w.StartDate.Time(),
		Until:     w.EndDate.Time(),
		Byweekday: byweekday,
	})
	if err != nil {
		return nil, err
	}

	set := &rrule.Set{}
	set.RRule(rule)
	for d := range w.Holidays {
		if d.Within(w.StartDate, w.EndDate) {
			set.ExDate(d.Time())
		}
	}
	return set, nil
}

// SchoolDays yields the school days of `w` in increasing order.
// The sequence is empty when StartDate > EndDate or when ClassDays is empty.
// It can be ranged over any number of times.
func SchoolDays(w CalendarWindow) iter.Seq[calendar.Date] {
	return func(yield func(calendar.Date) bool) {
		if w.ClassDays.IsEmpty() || w.StartDate.After(w.EndDate) {
			return
		}
		set, err := schoolDaySet(w)
		if err != nil {
			return
		}
		next := set.Iterator()
		for t, ok := next(); ok; t, ok = next() {
			if !yield(calendar.DateOf(t)) {
				return
			}
		}
	}
}

// Unit is a chunk of curriculum to schedule. Order is its position in the submitted sequence.
type Unit struct {
	Title          string
	EstimatedHours float64
	Color          string
	Order          int
}

// ScheduledUnit is the outcome of scheduling a Unit.
// Overspill units have no dates. Scheduled units with zero hours have no dates either.
type ScheduledUnit struct {
	Title               string          `json:"title"`
	EstimatedHours      float64         `json:"estimated_hours"`
	Color               string          `json:"color"`
	Order               int             `json:"order"`
	RequiredDays        int             `json:"required_days"`
	Status              Status          `json:"status"`
	CalculatedStartDate *calendar.Date  `json:"calculated_start_date"`
	CalculatedEndDate   *calendar.Date  `json:"calculated_end_date"`
	Dates               []calendar.Date `json:"dates"`
}

// Stats aggregates a scheduling run.
type Stats struct {
	TotalSchoolDays         int     `json:"total_school_days"`
	TotalInstructionalHours float64 `json:"total_instructional_hours"`
	TotalPlannedHours       float64 `json:"total_planned_hours"`
	UsedHours               float64 `json:"used_hours"`
	UnusedHours             float64 `json:"unused_hours"`
	UnmetHours              float64 `json:"unmet_hours"` // requested by overspill units
	ScheduledCount          int     `json:"scheduled_count"`
	OverspillCount          int     `json:"overspill_count"`
}

// Result is the output of Schedule.
type Result struct {
	Units []ScheduledUnit
	Stats Stats
}

// RequiredDays converts `hours` into a number of school days of `dailyMinutes` each.
// dailyMinutes must be > 0.
func RequiredDays(hours float64, dailyMinutes int) int {
	if !(hours > 0) {
		return 0
	}
	days := hours * 60 / float64(dailyMinutes)
	days = math.Ceil(days - days*dayEpsilon)
	switch {
	case days < 1:
		return 1
	case days > maxRequiredDays:
		return maxRequiredDays
	}
	return int(days)
}

// Schedule allocates contiguous runs of school days to `units` in the order given.
// A unit that does not fit in the remaining days is marked overspill and consumes no days.
// Invalid input returns a *core.ValidationError and no result.
func Schedule(w CalendarWindow, units []Unit) (Result, error) {
	if err := validateSchedule(w, units); err != nil {
		return Result{}, err
	}

	days := slices.Collect(SchoolDays(w))
	scheduled := make([]ScheduledUnit, 0, len(units))
	cursor := 0

	for _, u := range units {
		su := ScheduledUnit{
			Title:          u.Title,
			EstimatedHours: u.EstimatedHours,
			Color:          u.Color,
			Order:          u.Order,
			RequiredDays:   RequiredDays(u.EstimatedHours, w.DailyMinutes),
			Dates:          []calendar.Date{},
		}

		switch {
		case su.RequiredDays == 0:
			su.Status = StatusScheduled
		case len(days)-cursor < su.RequiredDays:
			su.Status = StatusOverspill
		default:
			run := days[cursor : cursor+su.RequiredDays]
			start, end := run[0], run[len(run)-1]
			su.Status = StatusScheduled
			su.Dates = append(su.Dates, run...)
			su.CalculatedStartDate = &start
			su.CalculatedEndDate = &end
			cursor += su.RequiredDays
		}

		scheduled = append(scheduled, su)
	}

	return Result{
		Units: scheduled,
		Stats: computeStats(w, len(days), scheduled),
	}, nil
}

func computeStats(w CalendarWindow, totalDays int, units []ScheduledUnit) Stats {
	stats := Stats{
		TotalSchoolDays:         totalDays,
		TotalInstructionalHours: float64(totalDays*w.DailyMinutes) / 60,
	}
	for _, u := range units {
		stats.TotalPlannedHours += u.EstimatedHours
		switch u.Status {
		case StatusScheduled:
			stats.UsedHours += u.EstimatedHours
			stats.ScheduledCount++
		case StatusOverspill:
			stats.UnmetHours += u.EstimatedHours
			stats.OverspillCount++
		}
	}
	stats.UnusedHours = math.Max(0, stats.TotalInstructionalHours-stats.UsedHours)
	return stats
}

func validateSchedule(w CalendarWindow, units []Unit) error {
	var flds []core.FieldError

	if w.StartDate.IsZero() {
		flds = append(flds, core.FieldError{Field: "start_date", Error: "start date is required"})
	}
	if w.EndDate.IsZero() {
		flds = append(flds, core.FieldError{Field: "end_date", Error: "end date is required"})
	}
	if w.DailyMinutes <= 0 {
		flds = append(flds, core.FieldError{Field: "daily_minutes", Error: "daily minutes must be greater than 0"})
	}

	needsDays := false
	for i, u := range units {
		fld := fmt.Sprintf("units[%d].estimated_hours", i)
		switch {
		case math.IsNaN(u.EstimatedHours) || math.IsInf(u.EstimatedHours, 0):
			flds = append(flds, core.FieldError{Field: fld, Error: "estimated hours must be a finite number"})
		case u.EstimatedHours < 0:
			flds = append(flds, core.FieldError{Field: fld, Error: "estimated hours cannot be negative"})
		case u.EstimatedHours > 0:
			needsDays = true
		}
	}

	if needsDays && w.ClassDays.IsEmpty() {
		flds = append(flds, core.FieldError{Field: "class_days", Error: "at least one class day is required to schedule units"})
	}

	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}
