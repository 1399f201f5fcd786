package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/classroom-curator/planner/core"
	"github.com/classroom-curator/planner/core/calendar"
	"github.com/classroom-curator/planner/core/yearplan"
)

type yearPlanRepository struct {
	db *yearPlanTable
}

var _ yearplan.Repository = (*yearPlanRepository)(nil) // interface compliance check

func NewYearPlanRepository(db *DB) *yearPlanRepository {
	return &yearPlanRepository{db: db.yearPlan}
}

// clone copies the slices of `plan` so that callers never share memory with the table.
func clone(plan yearplan.YearPlan) yearplan.YearPlan {
	plan.ClassDays = append([]string{}, plan.ClassDays...)
	plan.Holidays = append([]calendar.Date{}, plan.Holidays...)
	plan.Units = append([]yearplan.PlannedUnit{}, plan.Units...)
	return plan
}

func (repo *yearPlanRepository) CreateYearPlan(_ context.Context, plan yearplan.YearPlan) (yearplan.YearPlan, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

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
	for i := range plan.Units {
		if plan.Units[i].ID == "" {
			plan.Units[i].ID = uuid.New().String()
		}
	}
	sort.SliceStable(plan.Units, func(i, j int) bool { return plan.Units[i].OrderIndex < plan.Units[j].OrderIndex })

	stored := clone(plan)
	repo.db.table[plan.ID] = &stored
	return clone(plan), nil
}

func (repo *yearPlanRepository) GetYearPlan(_ context.Context, id string) (yearplan.YearPlan, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if plan, ok := repo.db.table[id]; ok {
		return clone(*plan), nil
	}
	return yearplan.YearPlan{}, yearplan.ErrNotFound
}

func (repo *yearPlanRepository) QueryYearPlans(_ context.Context, filter *yearplan.QueryFilter, ordering []core.DBOrdering) ([]yearplan.YearPlan, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	plans := make([]yearplan.YearPlan, 0, len(repo.db.table))
	for _, plan := range repo.db.table {
		if filter != nil {
			if filter.OwnerID != "" && plan.OwnerID != filter.OwnerID {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(plan.Title), strings.ToLower(filter.Search)) {
				continue
			}
		}
		plans = append(plans, clone(*plan))
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: false}}
	}
	sort.SliceStable(plans, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareField(plans[i], plans[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return plans[i].ID < plans[j].ID
	})
	return plans, nil
}

func compareField(a, b yearplan.YearPlan, field string) int {
	switch field {
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "start_date":
		return a.StartDate.Compare(b.StartDate)
	case "end_date":
		return a.EndDate.Compare(b.EndDate)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
	return 0
}

func (repo *yearPlanRepository) DeleteYearPlansByID(_ context.Context, ids ...string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			cnt++
		}
	}
	return cnt, nil
}
