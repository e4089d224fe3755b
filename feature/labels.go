package feature

import (
	"fmt"
	"slices"

	"github.com/goccy/go-json"
)

// Labels is the ordered list of features behind a coefficient vector. The position of
// a feature is the position of its coefficient.
type Labels struct {
	idx    map[string]int
	labels []Feature
}

func NewLabels(labels []Feature) *Labels {
	l := &Labels{labels: labels, idx: make(map[string]int, len(labels))}
	for i, f := range labels {
		l.idx[f.String()] = i
	}
	return l
}

func (l *Labels) Len() int {
	if l == nil {
		return 0
	}
	return len(l.labels)
}

// Labels returns a copy of the ordered features
func (l *Labels) Labels() []Feature {
	if l == nil {
		return nil
	}
	return slices.Clone(l.labels)
}

// Index is the coefficient position of the feature, -1 when absent
func (l *Labels) Index(f Feature) (int, bool) {
	if l == nil {
		return -1, false
	}
	i, exists := l.idx[f.String()]
	if !exists {
		return -1, false
	}
	return i, true
}

func (l *Labels) Strings() []string {
	res := make([]string, l.Len())
	for i, f := range l.Labels() {
		res[i] = f.String()
	}
	return res
}

type labelJSON struct {
	Type   string            `json:"type"`
	Labels map[string]string `json:"labels"`
}

// MarshalJSON writes each feature as its type and decoded labels so the ordering can be
// restored along with persisted coefficients.
func (l *Labels) MarshalJSON() ([]byte, error) {
	out := make([]labelJSON, 0, l.Len())
	for _, f := range l.Labels() {
		out = append(out, labelJSON{Type: f.Type().String(), Labels: f.Decode()})
	}
	return json.Marshal(out)
}

func (l *Labels) UnmarshalJSON(data []byte) error {
	var in []labelJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	labels := make([]Feature, 0, len(in))
	for i, raw := range in {
		ft, err := ParseFeatureType(raw.Type)
		if err != nil {
			return fmt.Errorf("label %d, %w", i, err)
		}
		feat, err := FromDecoded(ft, raw.Labels)
		if err != nil {
			return fmt.Errorf("label %d, %w", i, err)
		}
		labels = append(labels, feat)
	}
	*l = *NewLabels(labels)
	return nil
}
