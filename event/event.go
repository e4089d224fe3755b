// Package event builds the holiday calendar used as event features by the decomposition
// model
package event

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

var (
	ErrStartAfterEnd = errors.New("event start time is after end time")
	ErrUnsetTime     = errors.New("unset event start or end time")
	ErrNoEventName   = errors.New("no event name")
)

// Event is a span of days where demand departs from its usual pattern. Events sharing
// a name across years are modeled by a single feature.
type Event struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewEvent(name string, start, end time.Time) Event {
	return Event{
		Name:  name,
		Start: start,
		End:   end,
	}
}

func (e *Event) Valid() error {
	if e.Start.IsZero() || e.End.IsZero() {
		return ErrUnsetTime
	}
	if e.Start.After(e.End) {
		return ErrStartAfterEnd
	}
	if e.Name == "" {
		return ErrNoEventName
	}
	return nil
}

// Contains reports whether t falls within [Start, End)
func (e Event) Contains(t time.Time) bool {
	return !t.Before(e.Start) && t.Before(e.End)
}

var (
	RepublicDay = &cal.Holiday{
		Name:  "Republic Day",
		Type:  cal.ObservancePublic,
		Month: time.January,
		Day:   26,
		Func:  cal.CalcDayOfMonth,
	}
	IndependenceDay = &cal.Holiday{
		Name:  "Independence Day",
		Type:  cal.ObservancePublic,
		Month: time.August,
		Day:   15,
		Func:  cal.CalcDayOfMonth,
	}
	GandhiJayanti = &cal.Holiday{
		Name:  "Gandhi Jayanti",
		Type:  cal.ObservancePublic,
		Month: time.October,
		Day:   2,
		Func:  cal.CalcDayOfMonth,
	}
)

// NationalHolidays are the fixed-date national holidays of the demand region
var NationalHolidays = []*cal.Holiday{
	RepublicDay,
	IndependenceDay,
	GandhiJayanti,
	us.ChristmasDay,
}

// Holiday returns one event per year between start and end for the holiday, widened by
// durBefore and durAfter. The calendar date is used rather than any observed weekday
// shift.
func Holiday(hol *cal.Holiday, start, end time.Time, durBefore, durAfter time.Duration) []Event {
	loc := start.Location()
	name := strings.ReplaceAll(hol.Name, " ", "_")

	events := []Event{}
	for i := start.Year(); i <= end.Year(); i++ {
		actual, _ := hol.Calc(i)
		if actual.IsZero() {
			continue
		}
		day := time.Date(actual.Year(), actual.Month(), actual.Day(), 0, 0, 0, 0, loc)

		if (day.After(start) || day.Equal(start)) && (day.Before(end) || day.Equal(end)) {
			events = append(events, Event{
				Name:  name,
				Start: day.Add(-durBefore),
				End:   day.AddDate(0, 0, 1).Add(durAfter),
			})
		}
	}
	return events
}

// Holidays returns the events of every holiday between start and end
func Holidays(hols []*cal.Holiday, start, end time.Time, durBefore, durAfter time.Duration) []Event {
	var events []Event
	for _, hol := range hols {
		events = append(events, Holiday(hol, start, end, durBefore, durAfter)...)
	}
	return events
}

// Names returns the distinct sorted event names
func Names(events []Event) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, e := range events {
		if _, exists := seen[e.Name]; exists {
			continue
		}
		seen[e.Name] = struct{}{}
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// Indicators returns a 0/1 column per event name marking the time points that fall in
// any event with that name
func Indicators(t []time.Time, events []Event) map[string][]float64 {
	res := make(map[string][]float64)
	for _, name := range Names(events) {
		res[name] = make([]float64, len(t))
	}
	for _, e := range events {
		col := res[e.Name]
		for i, tPnt := range t {
			if e.Contains(tPnt) {
				col[i] = 1.0
			}
		}
	}
	return res
}
