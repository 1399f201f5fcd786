package yearplan

import (
	"context"
	"fmt"
	"net/mail"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/classroom-curator/planner/core"
	"github.com/classroom-curator/planner/core/calendar"
)

var (
	// errors
	ErrNotFound      = errors.New("year plan not found")
	ErrForbidden     = errors.New("year plan belongs to another owner")
	ErrNoRecipients  = errors.New("at least one recipient is required")
	errNilHolidaySrc = errors.New("no holiday provider configured")
)

type (
	Repository interface {
		CreateYearPlan(ctx context.Context, plan YearPlan) (YearPlan, error)
		GetYearPlan(ctx context.Context, id string) (YearPlan, error)
		// QueryYearPlans applies AND operation on available QueryFilter fields.
		QueryYearPlans(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]YearPlan, error)
		DeleteYearPlansByID(ctx context.Context, ids ...string) (int, error)
	}

	// HolidayProvider is any source of public holidays.
	HolidayProvider interface {
		Holidays(ctx context.Context, year int) ([]calendar.Date, error)
	}

	// Recorder records scheduling metrics.
	Recorder interface {
		ObserveSchedule(outcome string, elapsed time.Duration, units []ScheduledUnit)
		HolidayFetchFailed()
	}

	Service interface {
		Calculate(ctx context.Context, req CalculateRequest) (Preview, error)
		Create(ctx context.Context, ownerID string, req CalculateRequest) (YearPlan, Preview, error)
		Get(ctx context.Context, id string) (YearPlan, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]YearPlan, error)
		Delete(ctx context.Context, ids ...string) error
		Recalculate(ctx context.Context, plan YearPlan) (Preview, error)
		ExportICal(ctx context.Context, plan YearPlan) (ICalExport, error)
		ShareByEmail(ctx context.Context, plan YearPlan, to []mail.Address) error
	}

	Deps struct {
		Repo     Repository
		Holidays HolidayProvider // optional
		MailSvc  core.EmailService
		Logger   core.Logger
		Metrics  Recorder // optional
		NowFunc  func() time.Time
	}

	service struct {
		repo     Repository
		holidays HolidayProvider
		mailSvc  core.EmailService
		logger   core.Logger
		metrics  Recorder
		nowFunc  func() time.Time
	}
)

var _ Service = (*service)(nil)

func NewService(deps Deps) Service {
	svc := &service{
		repo:     deps.Repo,
		holidays: deps.Holidays,
		mailSvc:  deps.MailSvc,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		nowFunc:  deps.NowFunc,
	}
	if svc.logger == nil {
		svc.logger = core.NopLogger{}
	}
	if svc.metrics == nil {
		svc.metrics = nopRecorder{}
	}
	if svc.nowFunc == nil {
		svc.nowFunc = time.Now
	}
	return svc
}

// Calculate schedules `req` without saving it.
// req is expected to be validated already; malformed values still return a *core.ValidationError.
func (svc *service) Calculate(ctx context.Context, req CalculateRequest) (Preview, error) {
	window, err := req.Window()
	if err != nil {
		return Preview{}, err
	}

	source := HolidaysExplicit
	if req.ShouldFetchHolidays() && !window.StartDate.After(window.EndDate) {
		fetched, err := svc.fetchHolidays(ctx, window.StartDate, window.EndDate)
		if err != nil {
			// scheduling goes on with the explicit holidays only
			svc.metrics.HolidayFetchFailed()
			svc.logger.Warn(fmt.Sprintf("fetching holidays: %v", err), err)
			source = HolidaysFallback
		} else {
			for _, d := range fetched {
				window.Holidays[d] = struct{}{}
			}
			source = HolidaysFetched
		}
	}

	began := svc.nowFunc()
	result, err := Schedule(window, req.ToUnits())
	elapsed := svc.nowFunc().Sub(began)
	if err != nil {
		svc.metrics.ObserveSchedule("invalid", elapsed, nil)
		return Preview{}, err
	}
	svc.metrics.ObserveSchedule("ok", elapsed, result.Units)

	return Preview{
		Title:          req.Title,
		ScheduledUnits: result.Units,
		Stats:          result.Stats,
		Holidays:       appliedHolidays(window),
		HolidaysSource: source,
	}, nil
}

// fetchHolidays fetches the holidays of every year covered by [start, end]. Any failure fails the whole fetch.
// Window bounds the span to MaxWindowYears years.
func (svc *service) fetchHolidays(ctx context.Context, start, end calendar.Date) ([]calendar.Date, error) {
	if svc.holidays == nil {
		return nil, errNilHolidaySrc
	}

	var dates []calendar.Date
	for year := start.Year; year <= end.Year; year++ {
		yearDates, err := svc.holidays.Holidays(ctx, year)
		if err != nil {
			return nil, errors.Wrapf(err, "fetching %d holidays", year)
		}
		dates = append(dates, yearDates...)
	}
	return dates, nil
}

func appliedHolidays(w CalendarWindow) []calendar.Date {
	applied := make([]calendar.Date, 0, len(w.Holidays))
	for d := range w.Holidays {
		if d.Within(w.StartDate, w.EndDate) {
			applied = append(applied, d)
		}
	}
	calendar.SortDates(applied)
	return applied
}

func (svc *service) Create(ctx context.Context, ownerID string, req CalculateRequest) (YearPlan, Preview, error) {
	preview, err := svc.Calculate(ctx, req)
	if err != nil {
		return YearPlan{}, Preview{}, err
	}

	explicit, err := req.ExplicitHolidays()
	if err != nil {
		return YearPlan{}, Preview{}, err
	}
	calendar.SortDates(explicit)
	explicit = slices.Compact(explicit)

	window, _ := req.Window() // already parsed by Calculate
	now := svc.nowFunc().UTC()

	plan := YearPlan{
		ID:                uuid.New().String(),
		OwnerID:           ownerID,
		Title:             req.Title,
		StartDate:         window.StartDate,
		EndDate:           window.EndDate,
		ClassDays:         window.ClassDays.Names(),
		DailyMinutes:      req.DailyMinutes,
		Holidays:          explicit,
		AutoFetchHolidays: req.ShouldFetchHolidays(),
		Units:             make([]PlannedUnit, 0, len(preview.ScheduledUnits)),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, su := range preview.ScheduledUnits {
		plan.Units = append(plan.Units, PlannedUnit{
			ID:                  uuid.New().String(),
			Title:               su.Title,
			EstimatedHours:      su.EstimatedHours,
			OrderIndex:          su.Order,
			Color:               su.Color,
			Status:              su.Status,
			CalculatedStartDate: su.CalculatedStartDate,
			CalculatedEndDate:   su.CalculatedEndDate,
		})
	}

	plan, err = svc.repo.CreateYearPlan(ctx, plan)
	if err != nil {
		return YearPlan{}, Preview{}, errors.Wrap(err, "saving year plan")
	}
	svc.logger.Info(fmt.Sprintf("year plan %s created", plan.ID), core.Owner{ID: ownerID})
	return plan, preview, nil
}

func (svc *service) Get(ctx context.Context, id string) (YearPlan, error) {
	return svc.repo.GetYearPlan(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]YearPlan, error) {
	return svc.repo.QueryYearPlans(ctx, filter, ordering)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	cnt, err := svc.repo.DeleteYearPlansByID(ctx, ids...)
	if err != nil {
		return err
	}
	if cnt == 0 {
		return ErrNotFound
	}
	return nil
}

// Recalculate schedules a saved plan again from its inputs.
func (svc *service) Recalculate(ctx context.Context, plan YearPlan) (Preview, error) {
	return svc.Calculate(ctx, plan.ToRequest())
}

type nopRecorder struct{}

func (nopRecorder) ObserveSchedule(string, time.Duration, []ScheduledUnit) {}
func (nopRecorder) HolidayFetchFailed()                                   {}
