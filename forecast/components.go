package forecast

import "time"

type component int

const (
	componentTrend component = iota
	componentSeasonality
	componentEvents
	componentRegressors
)

// Components breaks the fitted value into additive parts. In multiplicative mode each
// part is on the log scale.
type Components struct {
	Trend       []float64 `json:"trend"`
	Seasonality []float64 `json:"seasonality"`
	Events      []float64 `json:"events"`
	Regressors  []float64 `json:"regressors"`
}

func newComponents(n int) Components {
	return Components{
		Trend:       make([]float64, n),
		Seasonality: make([]float64, n),
		Events:      make([]float64, n),
		Regressors:  make([]float64, n),
	}
}

func (c Components) get(comp component) []float64 {
	switch comp {
	case componentTrend:
		return c.Trend
	case componentSeasonality:
		return c.Seasonality
	case componentEvents:
		return c.Events
	default:
		return c.Regressors
	}
}

// Results holds the point forecast and its prediction band for every requested time
type Results struct {
	T          []time.Time `json:"time"`
	Forecast   []float64   `json:"forecast"`
	Lower      []float64   `json:"lower"`
	Upper      []float64   `json:"upper"`
	Components Components  `json:"components"`
}

// Len returns the number of forecasted points
func (r *Results) Len() int {
	if r == nil {
		return 0
	}
	return len(r.T)
}

// Tail returns the last n points of the results
func (r *Results) Tail(n int) *Results {
	if r == nil {
		return nil
	}
	n = min(max(n, 0), len(r.T))
	start := len(r.T) - n
	return &Results{
		T:        r.T[start:],
		Forecast: r.Forecast[start:],
		Lower:    r.Lower[start:],
		Upper:    r.Upper[start:],
		Components: Components{
			Trend:       r.Components.Trend[start:],
			Seasonality: r.Components.Seasonality[start:],
			Events:      r.Components.Events[start:],
			Regressors:  r.Components.Regressors[start:],
		},
	}
}

// Append returns the points of r followed by the points of o
func (r *Results) Append(o *Results) *Results {
	if r == nil {
		return o
	}
	if o == nil {
		return r
	}
	return &Results{
		T:        append(append([]time.Time{}, r.T...), o.T...),
		Forecast: append(append([]float64{}, r.Forecast...), o.Forecast...),
		Lower:    append(append([]float64{}, r.Lower...), o.Lower...),
		Upper:    append(append([]float64{}, r.Upper...), o.Upper...),
		Components: Components{
			Trend:       append(append([]float64{}, r.Components.Trend...), o.Components.Trend...),
			Seasonality: append(append([]float64{}, r.Components.Seasonality...), o.Components.Seasonality...),
			Events:      append(append([]float64{}, r.Components.Events...), o.Components.Events...),
			Regressors:  append(append([]float64{}, r.Components.Regressors...), o.Components.Regressors...),
		},
	}
}
