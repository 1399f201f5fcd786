package yearplan

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/classroom-curator/planner/core/calendar"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// ICalExport is an iCalendar rendering of a year plan.
type ICalExport struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ExportICal renders the scheduled units of `plan` as all-day events.
// Each run of consecutive calendar days of a unit becomes one event, so a Mon-Fri run is a single event.
func (svc *service) ExportICal(ctx context.Context, plan YearPlan) (ICalExport, error) {
	preview, err := svc.Recalculate(ctx, plan)
	if err != nil {
		return ICalExport{}, err
	}
	return renderICal(plan, preview, svc.nowFunc()), nil
}

func renderICal(plan YearPlan, preview Preview, now time.Time) ICalExport {
	stamp := now.UTC().Format("20060102T150405Z")

	var buf bytes.Buffer
	line := func(format string, args ...interface{}) {
		buf.WriteString(foldLine(fmt.Sprintf(format, args...)))
		buf.WriteString("\r\n")
	}

	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:-//Classroom Curator//Year Plan//EN")
	line("X-WR-CALNAME:%s", escapeICalText(plan.Title))
	line("CALSCALE:GREGORIAN")
	line("METHOD:PUBLISH")

	for _, su := range preview.ScheduledUnits {
		if su.Status != StatusScheduled || len(su.Dates) == 0 {
			continue
		}
		for i, run := range consecutiveRuns(su) {
			line("BEGIN:VEVENT")
			line("UID:%s-%d-%d@curator", plan.ID, su.Order, i)
			line("DTSTAMP:%s", stamp)
			line("DTSTART;VALUE=DATE:%s", run[0].Time().Format("20060102"))
			// DTEND is exclusive for all-day events
			line("DTEND;VALUE=DATE:%s", run[1].AddDays(1).Time().Format("20060102"))
			line("SUMMARY:%s", escapeICalText(su.Title))
			line("DESCRIPTION:%s", escapeICalText(
				fmt.Sprintf("%g hours over %d school days", su.EstimatedHours, su.RequiredDays)))
			if su.Color != "" {
				line("X-APPLE-CALENDAR-COLOR:%s", su.Color)
			}
			line("TRANSP:TRANSPARENT")
			line("END:VEVENT")
		}
	}

	line("END:VCALENDAR")

	return ICalExport{
		Data: buf.Bytes(),
		Filename: fmt.Sprintf("%s-%s-to-%s.ics",
			slugify(plan.Title), plan.StartDate.String(), plan.EndDate.String()),
		ContentType: "text/calendar; charset=utf-8",
	}
}

const maxLineOctets = 75

// foldLine splits a content line into chunks of at most 75 octets joined by CRLF and a space.
// Multi-byte UTF-8 sequences are never split.
func foldLine(s string) string {
	if len(s) <= maxLineOctets {
		return s
	}
	var b strings.Builder
	limit := maxLineOctets // continuation lines spend one octet on the leading space
	for len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		b.WriteString(s[:cut])
		b.WriteString("\r\n ")
		s = s[cut:]
		limit = maxLineOctets - 1
	}
	b.WriteString(s)
	return b.String()
}

// consecutiveRuns groups the dates of `su` into [first, last] pairs of consecutive calendar days.
func consecutiveRuns(su ScheduledUnit) [][2]calendar.Date {
	var runs [][2]calendar.Date
	for _, d := range su.Dates {
		if n := len(runs); n > 0 && runs[n-1][1].AddDays(1) == d {
			runs[n-1][1] = d
			continue
		}
		runs = append(runs, [2]calendar.Date{d, d})
	}
	return runs
}

func escapeICalText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\r\n", "\\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func slugify(s string) string {
	slug := strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if slug == "" {
		return "year-plan"
	}
	return slug
}
