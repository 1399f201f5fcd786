package inmemdb

import (
	"sync"

	"github.com/classroom-curator/planner/core/yearplan"
)

type (
	DB struct {
		yearPlan *yearPlanTable
	}

	yearPlanTable struct {
		sync.RWMutex
		table map[string]*yearplan.YearPlan
	}
)

func Open() *DB {
	return &DB{
		yearPlan: &yearPlanTable{table: make(map[string]*yearplan.YearPlan)},
	}
}
