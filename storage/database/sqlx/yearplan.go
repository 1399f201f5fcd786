package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/classroom-curator/planner/core"
	"github.com/classroom-curator/planner/core/calendar"
	"github.com/classroom-curator/planner/core/yearplan"
)

const (
	yearPlanColumns = `id, owner_id, title, start_date, end_date, class_days, daily_minutes, holidays,
		auto_fetch_holidays, created_at, updated_at`
	unitColumns = `id, year_plan_id, title, estimated_hours, order_index, color, status,
		calculated_start_date, calculated_end_date`
)

type (
	yearPlanRow struct {
		ID                string         `db:"id"`
		OwnerID           string         `db:"owner_id"`
		Title             string         `db:"title"`
		StartDate         time.Time      `db:"start_date"`
		EndDate           time.Time      `db:"end_date"`
		ClassDays         pq.StringArray `db:"class_days"`
		DailyMinutes      int            `db:"daily_minutes"`
		Holidays          pq.StringArray `db:"holidays"`
		AutoFetchHolidays bool           `db:"auto_fetch_holidays"`
		CreatedAt         null.Time      `db:"created_at"`
		UpdatedAt         null.Time      `db:"updated_at"`
	}

	unitRow struct {
		ID                  string    `db:"id"`
		YearPlanID          string    `db:"year_plan_id"`
		Title               string    `db:"title"`
		EstimatedHours      float64   `db:"estimated_hours"`
		OrderIndex          int       `db:"order_index"`
		Color               string    `db:"color"`
		Status              string    `db:"status"`
		CalculatedStartDate null.Time `db:"calculated_start_date"`
		CalculatedEndDate   null.Time `db:"calculated_end_date"`
	}
)

type yearPlanRepository struct {
	db *sqlx.DB
}

var _ yearplan.Repository = (*yearPlanRepository)(nil) // interface compliance check

func NewYearPlanRepository(db *sqlx.DB) *yearPlanRepository {
	return &yearPlanRepository{db: db}
}

func toPlanRow(plan yearplan.YearPlan) yearPlanRow {
	classDays := append(pq.StringArray{}, plan.ClassDays...) // nil arrays are stored as NULL
	holidays := make(pq.StringArray, 0, len(plan.Holidays))
	for _, h := range plan.Holidays {
		holidays = append(holidays, h.String())
	}
	return yearPlanRow{
		ID:                plan.ID,
		OwnerID:           plan.OwnerID,
		Title:             plan.Title,
		StartDate:         plan.StartDate.Time(),
		EndDate:           plan.EndDate.Time(),
		ClassDays:         classDays,
		DailyMinutes:      plan.DailyMinutes,
		Holidays:          holidays,
		AutoFetchHolidays: plan.AutoFetchHolidays,
		CreatedAt:         null.NewTime(plan.CreatedAt.UTC(), !plan.CreatedAt.IsZero()),
		UpdatedAt:         null.NewTime(plan.UpdatedAt.UTC(), !plan.UpdatedAt.IsZero()),
	}
}

func toUnitRow(planID string, u yearplan.PlannedUnit) unitRow {
	row := unitRow{
		ID:             u.ID,
		YearPlanID:     planID,
		Title:          u.Title,
		EstimatedHours: u.EstimatedHours,
		OrderIndex:     u.OrderIndex,
		Color:          u.Color,
		Status:         string(u.Status),
	}
	if u.CalculatedStartDate != nil {
		row.CalculatedStartDate = null.TimeFrom(u.CalculatedStartDate.Time())
	}
	if u.CalculatedEndDate != nil {
		row.CalculatedEndDate = null.TimeFrom(u.CalculatedEndDate.Time())
	}
	return row
}

func fromPlanRow(row yearPlanRow, units []unitRow) (yearplan.YearPlan, error) {
	holidays := make([]calendar.Date, 0, len(row.Holidays))
	for _, h := range row.Holidays {
		d, err := calendar.ParseDate(h)
		if err != nil {
			return yearplan.YearPlan{}, errors.Wrapf(err, "parsing holiday of year plan %s", row.ID)
		}
		holidays = append(holidays, d)
	}

	plan := yearplan.YearPlan{
		ID:                row.ID,
		OwnerID:           row.OwnerID,
		Title:             row.Title,
		StartDate:         calendar.DateOf(row.StartDate),
		EndDate:           calendar.DateOf(row.EndDate),
		ClassDays:         []string(row.ClassDays),
		DailyMinutes:      row.DailyMinutes,
		Holidays:          holidays,
		AutoFetchHolidays: row.AutoFetchHolidays,
		Units:             make([]yearplan.PlannedUnit, 0, len(units)),
		CreatedAt:         row.CreatedAt.Time.UTC(),
		UpdatedAt:         row.UpdatedAt.Time.UTC(),
	}
	if plan.ClassDays == nil {
		plan.ClassDays = []string{}
	}
	for _, u := range units {
		plan.Units = append(plan.Units, yearplan.PlannedUnit{
			ID:                  u.ID,
			Title:               u.Title,
			EstimatedHours:      u.EstimatedHours,
			OrderIndex:          u.OrderIndex,
			Color:               u.Color,
			Status:              yearplan.Status(u.Status),
			CalculatedStartDate: datePtr(u.CalculatedStartDate),
			CalculatedEndDate:   datePtr(u.CalculatedEndDate),
		})
	}
	return plan, nil
}

func datePtr(t null.Time) *calendar.Date {
	if !t.Valid {
		return nil
	}
	d := calendar.DateOf(t.Time)
	return &d
}

// trapNoRowsErr maps psql "no rows" err to yearplan.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return yearplan.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *yearPlanRepository) CreateYearPlan(ctx context.Context, plan yearplan.YearPlan) (yearplan.YearPlan, error) {
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	if plan.UpdatedAt.IsZero() {
		plan.UpdatedAt = now
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return yearplan.YearPlan{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	_, err = tx.NamedExecContext(ctx, `INSERT INTO year_plans (`+yearPlanColumns+`) VALUES (
		:id, :owner_id, :title, :start_date, :end_date, :class_days, :daily_minutes, :holidays,
		:auto_fetch_holidays, :created_at, :updated_at)`, toPlanRow(plan))
	if err != nil {
		return yearplan.YearPlan{}, errors.Wrap(err, "inserting year plan")
	}

	if len(plan.Units) > 0 {
		rows := make([]unitRow, 0, len(plan.Units))
		for i := range plan.Units {
			if plan.Units[i].ID == "" {
				plan.Units[i].ID = uuid.New().String()
			}
			rows = append(rows, toUnitRow(plan.ID, plan.Units[i]))
		}
		_, err = tx.NamedExecContext(ctx, `INSERT INTO units (`+unitColumns+`) VALUES (
			:id, :year_plan_id, :title, :estimated_hours, :order_index, :color, :status,
			:calculated_start_date, :calculated_end_date)`, rows)
		if err != nil {
			return yearplan.YearPlan{}, errors.Wrap(err, "inserting units")
		}
	}

	if err = tx.Commit(); err != nil {
		return yearplan.YearPlan{}, errors.Wrap(err, "committing year plan")
	}
	return plan, nil
}

func (repo *yearPlanRepository) GetYearPlan(ctx context.Context, id string) (yearplan.YearPlan, error) {
	if _, err := uuid.Parse(id); err != nil {
		return yearplan.YearPlan{}, yearplan.ErrNotFound
	}

	var row yearPlanRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+yearPlanColumns+` FROM year_plans WHERE id = $1`, id)
	if err != nil {
		return yearplan.YearPlan{}, trapNoRowsErr(err, "finding year plan by ID")
	}

	units, err := repo.units(ctx, id)
	if err != nil {
		return yearplan.YearPlan{}, err
	}
	return fromPlanRow(row, units[id])
}

// units returns the units of `planIDs`, keyed by plan ID, in order_index order.
func (repo *yearPlanRepository) units(ctx context.Context, planIDs ...string) (map[string][]unitRow, error) {
	byPlan := make(map[string][]unitRow, len(planIDs))
	if len(planIDs) == 0 {
		return byPlan, nil
	}

	var rows []unitRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+unitColumns+` FROM units WHERE year_plan_id = ANY($1::uuid[]) ORDER BY year_plan_id, order_index`,
		pq.StringArray(planIDs))
	if err != nil {
		return nil, errors.Wrap(err, "querying units")
	}
	for _, r := range rows {
		byPlan[r.YearPlanID] = append(byPlan[r.YearPlanID], r)
	}
	return byPlan, nil
}

func (repo *yearPlanRepository) QueryYearPlans(ctx context.Context, filter *yearplan.QueryFilter, ordering []core.DBOrdering) ([]yearplan.YearPlan, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		if filter.OwnerID != "" {
			args = append(args, filter.OwnerID)
			where = append(where, "owner_id = ?")
		}
		// plans with Title matching the search keyword
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			where = append(where, "title ILIKE ?")
		}
	}

	q := `SELECT ` + yearPlanColumns + ` FROM year_plans`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		q += " ORDER BY " + strings.Join(orderList, ", ")
	} else {
		q += " ORDER BY created_at DESC"
	}

	var rows []yearPlanRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying year plans")
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	units, err := repo.units(ctx, ids...)
	if err != nil {
		return nil, err
	}

	plans := make([]yearplan.YearPlan, 0, len(rows))
	for _, r := range rows {
		plan, err := fromPlanRow(r, units[r.ID])
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func (repo *yearPlanRepository) DeleteYearPlansByID(ctx context.Context, ids ...string) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	// units are removed by ON DELETE CASCADE
	res, err := repo.db.ExecContext(ctx, `DELETE FROM year_plans WHERE id = ANY($1::uuid[])`, pq.StringArray(valid))
	if err != nil {
		return 0, errors.Wrap(err, "deleting year plans")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting year plans")
	}
	return int(cnt), nil
}
