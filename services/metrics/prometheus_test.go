package metricsvc

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroom-curator/planner/core/yearplan"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	r.ObserveSchedule("ok", 2*time.Millisecond, []yearplan.ScheduledUnit{
		{Status: yearplan.StatusScheduled},
		{Status: yearplan.StatusScheduled},
		{Status: yearplan.StatusOverspill},
	})
	r.ObserveSchedule("invalid", time.Millisecond, nil)
	r.HolidayFetchFailed()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.scheduleRuns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.scheduleRuns.WithLabelValues("invalid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.units.WithLabelValues("scheduled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.units.WithLabelValues("overspill")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.holidayFailures))

	expected := `
# HELP planner_holiday_fetch_failures_total Holiday fetches that failed and fell back to explicit holidays.
# TYPE planner_holiday_fetch_failures_total counter
planner_holiday_fetch_failures_total 1
`
	require.NoError(t, testutil.CollectAndCompare(r.holidayFailures, strings.NewReader(expected)))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.ObserveSchedule("ok", time.Millisecond, []yearplan.ScheduledUnit{{Status: yearplan.StatusScheduled}})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `planner_schedule_runs_total{outcome="ok"} 1`)
	assert.Contains(t, string(body), `planner_units_total{status="overspill"} 0`)
	assert.Contains(t, string(body), "planner_schedule_duration_seconds_count 1")
	assert.Contains(t, string(body), "go_goroutines")
}
