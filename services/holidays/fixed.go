package holidaysvc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/classroom-curator/planner/core"
	"github.com/classroom-curator/planner/core/calendar"
	"github.com/classroom-curator/planner/core/yearplan"
)

type fixedHoliday struct {
	name  string
	month time.Month
	day   int
}

// Countries Nager.Date does not cover. Only holidays on a fixed date are listed.
var bundledHolidays = map[string][]fixedHoliday{
	"IN": {
		{name: "Republic Day", month: time.January, day: 26},
		{name: "Independence Day", month: time.August, day: 15},
		{name: "Gandhi Jayanti", month: time.October, day: 2},
	},
}

// FixedProvider serves holidays that fall on the same date every year.
type FixedProvider struct {
	country  string
	holidays []fixedHoliday
}

var _ yearplan.HolidayProvider = (*FixedProvider)(nil)

// NewFixedProvider returns the bundled provider for country, if there is one.
func NewFixedProvider(country string) (*FixedProvider, bool) {
	country = strings.ToUpper(country)
	holidays, ok := bundledHolidays[country]
	if !ok {
		return nil, false
	}
	return &FixedProvider{country: country, holidays: holidays}, true
}

func (p *FixedProvider) Holidays(_ context.Context, year int) ([]calendar.Date, error) {
	dates := make([]calendar.Date, 0, len(p.holidays))
	for _, h := range p.holidays {
		dates = append(dates, calendar.NewDate(year, h.month, h.day))
	}
	calendar.SortDates(dates)
	return dates, nil
}

// NewProvider picks the bundled data set for the configured country and
// falls back to the Nager.Date API for every other country.
func NewProvider(conf *core.Config, logger core.Logger) yearplan.HolidayProvider {
	if p, ok := NewFixedProvider(conf.Holidays.Country); ok {
		logger.Info(fmt.Sprintf("using bundled public holidays for %s", p.country))
		return p
	}
	return NewNagerProvider(conf, logger)
}
