package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroom-curator/planner/core"
	"github.com/classroom-curator/planner/core/calendar"
	"github.com/classroom-curator/planner/core/yearplan"
	"github.com/classroom-curator/planner/tests"
)

func newPlan(owner, title, start string, created time.Time) yearplan.YearPlan {
	startDate := calendar.MustParseDate(start)
	firstEnd := startDate.AddDays(2)
	return yearplan.YearPlan{
		OwnerID:           owner,
		Title:             title,
		StartDate:         startDate,
		EndDate:           startDate.AddDays(90),
		ClassDays:         []string{"Mon", "Wed"},
		DailyMinutes:      60,
		Holidays:          []calendar.Date{startDate.AddDays(14), startDate.AddDays(30)},
		AutoFetchHolidays: true,
		Units: []yearplan.PlannedUnit{
			{Title: "Second", EstimatedHours: 2000, OrderIndex: 1, Color: "#ff0000", Status: yearplan.StatusOverspill},
			{
				Title:               "First",
				EstimatedHours:      1.5,
				OrderIndex:          0,
				Color:               yearplan.DefaultColor,
				Status:              yearplan.StatusScheduled,
				CalculatedStartDate: &startDate,
				CalculatedEndDate:   &firstEnd,
			},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestYearPlanRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	repo := NewYearPlanRepository(db)
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	p1, err := repo.CreateYearPlan(ctx, newPlan("u1", "Grade 5 Math", "2025-08-01", base))
	require.NoError(t, err)
	p2, err := repo.CreateYearPlan(ctx, newPlan("u1", "Grade 6 science", "2025-06-01", base.Add(time.Hour)))
	require.NoError(t, err)
	p3, err := repo.CreateYearPlan(ctx, newPlan("u2", "Grade 5 English", "2025-07-01", base.Add(2*time.Hour)))
	require.NoError(t, err)

	t.Run("create assigns IDs", func(t *testing.T) {
		_, err := uuid.Parse(p1.ID)
		assert.NoError(t, err)
		for _, u := range p1.Units {
			_, err = uuid.Parse(u.ID)
			assert.NoError(t, err)
		}
	})

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetYearPlan(ctx, p2.ID)
		require.NoError(t, err)

		assert.Equal(t, p2.ID, got.ID)
		assert.Equal(t, "u1", got.OwnerID)
		assert.Equal(t, "Grade 6 science", got.Title)
		assert.Equal(t, calendar.MustParseDate("2025-06-01"), got.StartDate)
		assert.Equal(t, calendar.MustParseDate("2025-08-30"), got.EndDate)
		assert.Equal(t, []string{"Mon", "Wed"}, got.ClassDays)
		assert.Equal(t, 60, got.DailyMinutes)
		assert.Equal(t, []calendar.Date{calendar.MustParseDate("2025-06-15"), calendar.MustParseDate("2025-07-01")}, got.Holidays)
		assert.True(t, got.AutoFetchHolidays)
		assert.True(t, base.Add(time.Hour).Equal(got.CreatedAt), "created_at %v", got.CreatedAt)
		assert.True(t, base.Add(time.Hour).Equal(got.UpdatedAt), "updated_at %v", got.UpdatedAt)

		require.Len(t, got.Units, 2)
		first, second := got.Units[0], got.Units[1]
		assert.Equal(t, "First", first.Title)
		assert.Equal(t, 1.5, first.EstimatedHours)
		assert.Equal(t, yearplan.StatusScheduled, first.Status)
		require.NotNil(t, first.CalculatedStartDate)
		require.NotNil(t, first.CalculatedEndDate)
		assert.Equal(t, calendar.MustParseDate("2025-06-01"), *first.CalculatedStartDate)
		assert.Equal(t, calendar.MustParseDate("2025-06-03"), *first.CalculatedEndDate)

		assert.Equal(t, "Second", second.Title)
		assert.Equal(t, "#ff0000", second.Color)
		assert.Equal(t, yearplan.StatusOverspill, second.Status)
		assert.Nil(t, second.CalculatedStartDate)
		assert.Nil(t, second.CalculatedEndDate)
	})

	t.Run("get unknown", func(t *testing.T) {
		for _, id := range []string{uuid.New().String(), "missing", ""} {
			_, err := repo.GetYearPlan(ctx, id)
			assert.Equal(t, yearplan.ErrNotFound, err, id)
		}
	})

	t.Run("empty arrays", func(t *testing.T) {
		plan := newPlan("u3", "Empty", "2025-09-01", base)
		plan.ClassDays = nil
		plan.Holidays = nil
		plan.Units = nil
		created, err := repo.CreateYearPlan(ctx, plan)
		require.NoError(t, err)

		got, err := repo.GetYearPlan(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{}, got.ClassDays)
		assert.Empty(t, got.Holidays)
		assert.Empty(t, got.Units)

		cnt, err := repo.DeleteYearPlansByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, cnt)
	})

	t.Run("query", func(t *testing.T) {
		tests := []struct {
			name     string
			filter   *yearplan.QueryFilter
			ordering []core.DBOrdering
			want     []string
		}{
			{name: "all, newest first", want: []string{p3.ID, p2.ID, p1.ID}},
			{name: "by owner", filter: &yearplan.QueryFilter{OwnerID: "u1"}, want: []string{p2.ID, p1.ID}},
			{name: "unknown owner", filter: &yearplan.QueryFilter{OwnerID: "nobody"}, want: []string{}},
			{name: "search is case-insensitive", filter: &yearplan.QueryFilter{Search: "grade 5"}, want: []string{p3.ID, p1.ID}},
			{name: "owner and search", filter: &yearplan.QueryFilter{OwnerID: "u1", Search: "SCIENCE"}, want: []string{p2.ID}},
			{
				name:     "ordering",
				ordering: core.ParseOrdering("start_date", yearplan.OrderingFields),
				want:     []string{p2.ID, p3.ID, p1.ID},
			},
			{
				name:     "descending title",
				ordering: core.ParseOrdering("-title", yearplan.OrderingFields),
				want:     []string{p2.ID, p1.ID, p3.ID},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				plans, err := repo.QueryYearPlans(ctx, tt.filter, tt.ordering)
				require.NoError(t, err)
				ids := make([]string, 0, len(plans))
				for _, p := range plans {
					ids = append(ids, p.ID)
					assert.Len(t, p.Units, 2, "units of %s", p.Title)
				}
				assert.Equal(t, tt.want, ids)
			})
		}
	})

	t.Run("delete", func(t *testing.T) {
		cnt, err := repo.DeleteYearPlansByID(ctx, p1.ID, "missing", uuid.New().String())
		require.NoError(t, err)
		assert.Equal(t, 1, cnt)

		cnt, err = repo.DeleteYearPlansByID(ctx, p1.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, cnt)

		_, err = repo.GetYearPlan(ctx, p1.ID)
		assert.Equal(t, yearplan.ErrNotFound, err)

		var units int
		require.NoError(t, db.GetContext(ctx, &units, `SELECT count(*) FROM units WHERE year_plan_id = $1`, p1.ID))
		assert.Equal(t, 0, units)

		cnt, err = repo.DeleteYearPlansByID(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, cnt)
	})
}
