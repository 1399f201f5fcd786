package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	shortNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

	weekdayNames = map[string]time.Weekday{
		"sun": time.Sunday, "sunday": time.Sunday,
		"mon": time.Monday, "monday": time.Monday,
		"tue": time.Tuesday, "tuesday": time.Tuesday,
		"wed": time.Wednesday, "wednesday": time.Wednesday,
		"thu": time.Thursday, "thursday": time.Thursday,
		"fri": time.Friday, "friday": time.Friday,
		"sat": time.Saturday, "saturday": time.Saturday,
	}

	// Workweek is Mon-Fri.
	Workweek = NewWeekdaySet(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
)

// ParseWeekday accepts short ("Mon") or full ("Monday") english names, case-insensitive.
func ParseWeekday(name string) (time.Weekday, error) {
	if wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return wd, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}

// ShortName returns the 3-letter name of wd, eg: "Mon".
func ShortName(wd time.Weekday) string {
	return shortNames[wd%7]
}

// WeekdaySet is a set of weekdays. The zero value is empty.
type WeekdaySet uint8

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << (uint(d) % 7)
	}
	return s
}

// ParseWeekdaySet parses every name in `names`. Duplicates are ignored.
func ParseWeekdaySet(names []string) (WeekdaySet, error) {
	var s WeekdaySet
	for _, name := range names {
		wd, err := ParseWeekday(name)
		if err != nil {
			return 0, err
		}
		s = s.With(wd)
	}
	return s, nil
}

func (s WeekdaySet) With(wd time.Weekday) WeekdaySet {
	return s | NewWeekdaySet(wd)
}

func (s WeekdaySet) Has(wd time.Weekday) bool {
	return s&NewWeekdaySet(wd) != 0
}

func (s WeekdaySet) IsEmpty() bool { return s == 0 }

func (s WeekdaySet) Len() int {
	n := 0
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if s.Has(wd) {
			n++
		}
	}
	return n
}

// Names returns the short names of the set, Monday first.
func (s WeekdaySet) Names() []string {
	names := make([]string, 0, 7)
	for _, wd := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday} {
		if s.Has(wd) {
			names = append(names, ShortName(wd))
		}
	}
	return names
}

func (s WeekdaySet) String() string {
	return strings.Join(s.Names(), ",")
}

// SortDates sorts dates in place in ascending order.
func SortDates(dates []Date) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}
