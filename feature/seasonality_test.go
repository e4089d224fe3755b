package feature

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeasonalityString(t *testing.T) {
	feat := NewSeasonality("yearly", FourierCompCos, 2)
	assert.Equal(t, "seas_yearly_02_cos", feat.String())
}

func TestSeasonalityGet(t *testing.T) {
	feat := NewSeasonality("weekly", FourierCompSin, 3)

	testData := map[string]struct {
		label     string
		expVal    string
		expExists bool
	}{
		"unknown":           {label: "unknown"},
		"capitalized":       {label: "NAME", expVal: "weekly", expExists: true},
		"fourier component": {label: "fourier_component", expVal: "sin", expExists: true},
		"order":             {label: "order", expVal: "3", expExists: true},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			val, exists := feat.Get(td.label)
			assert.Equal(t, td.expExists, exists, "exists")
			assert.Equal(t, td.expVal, val, "value")
		})
	}
}

func TestSeasonalityUnmarshalJSON(t *testing.T) {
	feat := NewSeasonality("weekly", FourierCompCos, 2)

	testData := map[string]struct {
		in  func() ([]byte, error)
		err bool
	}{
		"decoded labels": {in: func() ([]byte, error) { return json.Marshal(feat.Decode()) }},
		"struct":         {in: func() ([]byte, error) { return json.Marshal(feat) }},
		"bad order": {
			in:  func() ([]byte, error) { return []byte(`{"name":"weekly","order":"two"}`), nil },
			err: true,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			out, err := td.in()
			require.NoError(t, err)

			var nextFeat Seasonality
			err = json.Unmarshal(out, &nextFeat)
			if td.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, feat, &nextFeat)
		})
	}
}

func TestSeasonalityGenerate(t *testing.T) {
	testData := map[string]struct {
		feat     *Seasonality
		t        []float64
		order    int
		period   float64
		expected []float64
	}{
		"weekly sin": {
			feat:     NewSeasonality("weekly", FourierCompSin, 1),
			t:        []float64{0, 1.75, 3.5, 5.25, 7},
			order:    1,
			period:   7,
			expected: []float64{0, 1, 0, -1, 0},
		},
		"weekly cos second order": {
			feat:     NewSeasonality("weekly", FourierCompCos, 2),
			t:        []float64{0, 1.75, 3.5},
			order:    2,
			period:   7,
			expected: []float64{1, -1, 1},
		},
		"empty": {
			feat:     NewSeasonality("yearly", FourierCompSin, 1),
			t:        []float64{},
			order:    1,
			period:   365.25,
			expected: []float64{},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := td.feat.Generate(td.t, td.order, td.period)
			assert.InDeltaSlice(t, td.expected, res, 1e-9)
		})
	}
}

func TestDaysSinceEpoch(t *testing.T) {
	assert.Equal(t, []float64{0, 1, 1.5}, DaysSinceEpoch([]float64{0, 86400, 129600}))
}
