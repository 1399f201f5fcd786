package holidaysvc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/classroom-curator/planner/core"
	"github.com/classroom-curator/planner/core/calendar"
	"github.com/classroom-curator/planner/core/yearplan"
)

const maxBodySize = 1 << 20

type nagerHoliday struct {
	Date      string   `json:"date"`
	LocalName string   `json:"localName"`
	Name      string   `json:"name"`
	Global    bool     `json:"global"`
	Types     []string `json:"types"`
}

type fetchFailure struct {
	err   error
	until time.Time
}

// NagerProvider fetches public holidays from a Nager.Date compatible API.
// Successful responses are cached per year for the lifetime of the provider.
// A failed year is answered with the same error until retryAfter has elapsed.
type NagerProvider struct {
	baseURL    string
	country    string
	client     *http.Client
	logger     core.Logger
	retryAfter time.Duration
	nowFunc    func() time.Time

	mu       sync.Mutex
	cache    map[int][]calendar.Date
	failures map[int]fetchFailure
}

var _ yearplan.HolidayProvider = (*NagerProvider)(nil)

func NewNagerProvider(conf *core.Config, logger core.Logger) *NagerProvider {
	timeout := conf.Holidays.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	retryAfter := conf.Holidays.RetryAfter
	if retryAfter <= 0 {
		retryAfter = time.Minute
	}
	return &NagerProvider{
		baseURL:    strings.TrimRight(conf.Holidays.BaseURL, "/"),
		country:    strings.ToUpper(conf.Holidays.Country),
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
		retryAfter: retryAfter,
		nowFunc:    time.Now,
		cache:      make(map[int][]calendar.Date),
		failures:   make(map[int]fetchFailure),
	}
}

func (p *NagerProvider) Holidays(ctx context.Context, year int) ([]calendar.Date, error) {
	p.mu.Lock()
	cached, ok := p.cache[year]
	failure, failed := p.failures[year]
	p.mu.Unlock()
	if ok {
		return append([]calendar.Date(nil), cached...), nil
	}
	if failed && p.nowFunc().Before(failure.until) {
		return nil, failure.err
	}

	dates, err := p.fetch(ctx, year)
	if err != nil {
		if ctx.Err() == nil { // the caller giving up says nothing about the API
			p.mu.Lock()
			p.failures[year] = fetchFailure{err: err, until: p.nowFunc().Add(p.retryAfter)}
			p.mu.Unlock()
		}
		return nil, err
	}

	p.mu.Lock()
	p.cache[year] = dates
	delete(p.failures, year)
	p.mu.Unlock()
	p.logger.Debug(fmt.Sprintf("fetched %d public holidays for %s/%d", len(dates), p.country, year))
	return append([]calendar.Date(nil), dates...), nil
}

func (p *NagerProvider) fetch(ctx context.Context, year int) ([]calendar.Date, error) {
	endpoint := fmt.Sprintf("%s/api/v3/PublicHolidays/%d/%s", p.baseURL, year, url.PathEscape(p.country))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building holidays request")
	}
	req.Header.Set("Accept", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "requesting holidays")
	}
	defer func() { _ = res.Body.Close() }()

	switch {
	case res.StatusCode == http.StatusNoContent:
		return []calendar.Date{}, nil
	case res.StatusCode < 200 || res.StatusCode > 299:
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxBodySize))
		return nil, errors.Errorf("holidays API returned status %d", res.StatusCode)
	}

	var payload []nagerHoliday
	if err = json.NewDecoder(io.LimitReader(res.Body, maxBodySize)).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "decoding holidays")
	}

	dates := make([]calendar.Date, 0, len(payload))
	for _, h := range payload {
		d, err := calendar.ParseDate(h.Date)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing holiday %q", h.Name)
		}
		dates = append(dates, d)
	}
	calendar.SortDates(dates)
	return dates, nil
}

// StaticProvider serves a fixed list of holidays.
type StaticProvider struct {
	byYear map[int][]calendar.Date
}

var _ yearplan.HolidayProvider = (*StaticProvider)(nil)

func NewStaticProvider(dates ...calendar.Date) *StaticProvider {
	p := &StaticProvider{byYear: make(map[int][]calendar.Date)}
	for _, d := range dates {
		p.byYear[d.Year] = append(p.byYear[d.Year], d)
	}
	for _, yearDates := range p.byYear {
		calendar.SortDates(yearDates)
	}
	return p
}

func (p *StaticProvider) Holidays(_ context.Context, year int) ([]calendar.Date, error) {
	return append([]calendar.Date{}, p.byYear[year]...), nil
}
