package feature

import "strings"

// Event is an indicator column for days on which demand departs from its regular
// pattern, holidays or planned outages. Spaces in the name are replaced so the
// column label stays a single token.
type Event struct {
	Name string `json:"name"`
}

func NewEvent(name string) *Event {
	return &Event{Name: strings.ReplaceAll(name, " ", "_")}
}

func (e Event) String() string {
	return "event_" + e.Name
}

// Get looks up the name label
func (e Event) Get(label string) (string, bool) {
	if strings.EqualFold(label, "name") {
		return e.Name, true
	}
	return "", false
}

func (e Event) Type() FeatureType {
	return FeatureTypeEvent
}

func (e Event) Decode() map[string]string {
	return map[string]string{"name": e.Name}
}
