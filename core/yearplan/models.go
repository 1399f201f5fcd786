package yearplan

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/classroom-curator/planner/core"
	"github.com/classroom-curator/planner/core/calendar"
)

// DefaultColor is the display color of units submitted without one.
const DefaultColor = "#3174ad"

// MaxWindowYears is the number of calendar years a plan may cover.
const MaxWindowYears = 5

// spanTooLong reports whether [start, end] covers more than MaxWindowYears calendar years.
func spanTooLong(start, end calendar.Date) bool {
	return !start.After(end) && end.Year-start.Year >= MaxWindowYears
}

// UnitRequest is a Unit as submitted by clients.
type UnitRequest struct {
	Title          string   `json:"title" validate:"required,notblank,max=255"`
	EstimatedHours *float64 `json:"estimated_hours" validate:"required,gte=0"`
	Color          string   `json:"color" validate:"omitempty,hexcolor"`
}

// CalculateRequest contains the information needed to calculate a year plan.
type CalculateRequest struct {
	Title             string        `json:"title" validate:"required,notblank,max=255"`
	StartDate         string        `json:"start_date" validate:"required,isodate"`
	EndDate           string        `json:"end_date" validate:"required,isodate"`
	ClassDays         []string      `json:"class_days" validate:"max=7,dive,weekday"`
	DailyMinutes      int           `json:"daily_minutes" validate:"required,gt=0,lte=1440"`
	Holidays          []string      `json:"holidays" validate:"max=1000,dive,isodate"`
	AutoFetchHolidays *bool         `json:"auto_fetch_holidays"`
	Units             []UnitRequest `json:"units" validate:"max=1000,dive"`
}

// ShouldFetchHolidays defaults to true when AutoFetchHolidays is not set.
func (req *CalculateRequest) ShouldFetchHolidays() bool {
	return req.AutoFetchHolidays == nil || *req.AutoFetchHolidays
}

func (req *CalculateRequest) Clean() {
	req.Title = core.CleanString(req.Title)
	req.StartDate = core.CleanString(req.StartDate)
	req.EndDate = core.CleanString(req.EndDate)
	req.ClassDays = core.CleanStrings(req.ClassDays)
	req.Holidays = core.CleanStrings(req.Holidays)
	for i := range req.Units {
		req.Units[i].Title = core.CleanString(req.Units[i].Title)
		req.Units[i].Color = core.CleanString(req.Units[i].Color, true /* lower */)
		if req.Units[i].Color == "" {
			req.Units[i].Color = DefaultColor
		}
	}
}

// Validate cleans the request then applies its validation tags.
func (req *CalculateRequest) Validate(validate *validator.Validate) error {
	req.Clean()
	return validate.Struct(req)
}

// Window parses the request into a CalendarWindow. `extraHolidays` are merged into the explicit ones.
func (req *CalculateRequest) Window(extraHolidays ...calendar.Date) (CalendarWindow, error) {
	var flds []core.FieldError

	start, startErr := calendar.ParseDate(req.StartDate)
	if startErr != nil {
		flds = append(flds, core.FieldError{Field: "start_date", Error: startErr.Error()})
	}
	end, endErr := calendar.ParseDate(req.EndDate)
	if endErr != nil {
		flds = append(flds, core.FieldError{Field: "end_date", Error: endErr.Error()})
	}
	if startErr == nil && endErr == nil && spanTooLong(start, end) {
		flds = append(flds, core.FieldError{Field: "end_date", Error: windowSpanMessage("end_date")})
	}
	classDays, err := calendar.ParseWeekdaySet(req.ClassDays)
	if err != nil {
		flds = append(flds, core.FieldError{Field: "class_days", Error: err.Error()})
	}
	holidays, err := req.ExplicitHolidays()
	if err != nil {
		flds = append(flds, core.FieldError{Field: "holidays", Error: err.Error()})
	}

	if len(flds) > 0 {
		return CalendarWindow{}, core.NewValidationError(nil, flds...)
	}

	return CalendarWindow{
		StartDate:    start,
		EndDate:      end,
		ClassDays:    classDays,
		DailyMinutes: req.DailyMinutes,
		Holidays:     NewHolidaySet(append(holidays, extraHolidays...)...),
	}, nil
}

// ExplicitHolidays parses the holidays supplied with the request.
func (req *CalculateRequest) ExplicitHolidays() ([]calendar.Date, error) {
	dates := make([]calendar.Date, 0, len(req.Holidays))
	for _, h := range req.Holidays {
		d, err := calendar.ParseDate(h)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// ToUnits returns the units to schedule, in submitted order.
func (req *CalculateRequest) ToUnits() []Unit {
	units := make([]Unit, 0, len(req.Units))
	for i, u := range req.Units {
		unit := Unit{Title: u.Title, Color: u.Color, Order: i}
		if u.EstimatedHours != nil {
			unit.EstimatedHours = *u.EstimatedHours
		}
		if unit.Color == "" {
			unit.Color = DefaultColor
		}
		units = append(units, unit)
	}
	return units
}

// Preview is a calculated, unsaved year plan.
type Preview struct {
	Title          string          `json:"title"`
	ScheduledUnits []ScheduledUnit `json:"scheduled_units"`
	Stats          Stats           `json:"stats"`
	Holidays       []calendar.Date `json:"holidays"` // applied, within the window, sorted
	HolidaysSource string          `json:"holidays_source"`
}

// Holiday sources of a Preview.
const (
	HolidaysExplicit = "explicit"
	HolidaysFetched  = "explicit+fetched"
	HolidaysFallback = "explicit (fetch failed)"
)

// YearPlan is a saved year plan.
type YearPlan struct {
	ID                string          `json:"id"`
	OwnerID           string          `json:"owner_id"`
	Title             string          `json:"title"`
	StartDate         calendar.Date   `json:"start_date"`
	EndDate           calendar.Date   `json:"end_date"`
	ClassDays         []string        `json:"class_days"`
	DailyMinutes      int             `json:"daily_minutes"`
	Holidays          []calendar.Date `json:"holidays"`
	AutoFetchHolidays bool            `json:"auto_fetch_holidays"`
	Units             []PlannedUnit   `json:"units"`
	CreatedAt         time.Time       `json:"created_at"` // UTC
	UpdatedAt         time.Time       `json:"updated_at"` // UTC
}

// PlannedUnit is a Unit of a saved YearPlan along with its calculated dates.
type PlannedUnit struct {
	ID                  string         `json:"id"`
	Title               string         `json:"title"`
	EstimatedHours      float64        `json:"estimated_hours"`
	OrderIndex          int            `json:"order_index"`
	Color               string         `json:"color"`
	Status              Status         `json:"status"`
	CalculatedStartDate *calendar.Date `json:"calculated_start_date"`
	CalculatedEndDate   *calendar.Date `json:"calculated_end_date"`
}

// ToRequest rebuilds the CalculateRequest the plan was saved from.
func (p YearPlan) ToRequest() CalculateRequest {
	holidays := make([]string, 0, len(p.Holidays))
	for _, h := range p.Holidays {
		holidays = append(holidays, h.String())
	}
	autoFetch := p.AutoFetchHolidays
	units := make([]UnitRequest, 0, len(p.Units))
	for _, u := range p.Units {
		hours := u.EstimatedHours
		units = append(units, UnitRequest{Title: u.Title, EstimatedHours: &hours, Color: u.Color})
	}
	return CalculateRequest{
		Title:             p.Title,
		StartDate:         p.StartDate.String(),
		EndDate:           p.EndDate.String(),
		ClassDays:         append([]string(nil), p.ClassDays...),
		DailyMinutes:      p.DailyMinutes,
		Holidays:          holidays,
		AutoFetchHolidays: &autoFetch,
		Units:             units,
	}
}

// QueryFilter filters saved year plans. Fields are ANDed.
type QueryFilter struct {
	OwnerID string `query:"-"`
	Search  string `query:"search"` // case-insensitive match on Title
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// OrderingFields maps the public ordering fields to their columns.
var OrderingFields = map[string]string{
	"title":      "title",
	"start_date": "start_date",
	"end_date":   "end_date",
	"created_at": "created_at",
	"updated_at": "updated_at",
}
