package feature

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// MaxLookback is the number of prior observations needed to derive every vector field
const MaxLookback = 30

// Vector holds the inputs derived for a single target day. Lags and rolling statistics
// look strictly at days before Date.
type Vector struct {
	Date time.Time

	Lag1  float64
	Lag7  float64
	Lag30 float64

	RollingMean7  float64
	RollingStd7   float64
	RollingMean30 float64

	Covariates map[string]float64
}

// NewVector derives the vector for the target date whose prior values are values[:pos].
// Lags and rolling statistics both read from values.
func NewVector(date time.Time, values []float64, pos int, covariates map[string]float64) (Vector, error) {
	if err := checkLookback(values, pos); err != nil {
		return Vector{}, err
	}
	v := Vector{
		Date:  date,
		Lag1:  values[pos-1],
		Lag7:  values[pos-7],
		Lag30: values[pos-30],
	}
	if len(covariates) > 0 {
		v.Covariates = make(map[string]float64, len(covariates))
		for k, c := range covariates {
			v.Covariates[k] = c
		}
	}
	if err := v.SetRolling(values, pos); err != nil {
		return Vector{}, err
	}
	return v, nil
}

// SetRolling recomputes the rolling statistics from the window of values ending just
// before pos. This allows the statistics to come from a different series than the lags.
func (v *Vector) SetRolling(values []float64, pos int) error {
	if err := checkLookback(values, pos); err != nil {
		return err
	}
	w7 := values[pos-7 : pos]
	v.RollingMean7 = stat.Mean(w7, nil)
	v.RollingStd7 = stat.StdDev(w7, nil)
	v.RollingMean30 = stat.Mean(values[pos-30:pos], nil)
	return nil
}

func checkLookback(values []float64, pos int) error {
	if pos < MaxLookback || pos > len(values) {
		return fmt.Errorf("position %d of %d values with lookback of %d, %w",
			pos, len(values), MaxLookback, ErrInsufficientHistory)
	}
	return nil
}

// DayOfWeek returns the weekday with Monday as 0 and Sunday as 6
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Get returns the value of a feature for this vector and whether the vector can supply it
func (v Vector) Get(f Feature) (float64, bool) {
	switch f.Type() {
	case FeatureTypeLag:
		days, _ := f.Get("days")
		switch days {
		case "1":
			return v.Lag1, true
		case "7":
			return v.Lag7, true
		case "30":
			return v.Lag30, true
		}
	case FeatureTypeRolling:
		statName, _ := f.Get("stat")
		window, _ := f.Get("window")
		switch RollingStat(statName) {
		case RollingMean:
			switch window {
			case "7":
				return v.RollingMean7, true
			case "30":
				return v.RollingMean30, true
			}
		case RollingStd:
			if window == "7" {
				return v.RollingStd7, true
			}
		}
	case FeatureTypeCalendar:
		name, _ := f.Get("name")
		switch CalendarField(name) {
		case CalendarYear:
			return float64(v.Date.Year()), true
		case CalendarMonth:
			return float64(v.Date.Month()), true
		case CalendarDayOfYear:
			return float64(v.Date.YearDay()), true
		case CalendarDayOfWeek:
			return float64(DayOfWeek(v.Date)), true
		}
	case FeatureTypeCovariate:
		name, _ := f.Get("name")
		val, exists := v.Covariates[name]
		return val, exists
	case FeatureTypeGrowth:
		if name, _ := f.Get("name"); name == GrowthIntercept {
			return 1.0, true
		}
	}
	return math.NaN(), false
}

// Row returns the vector values in label order
func (v Vector) Row(labels *Labels) ([]float64, error) {
	row := make([]float64, 0, labels.Len())
	for _, l := range labels.Labels() {
		val, exists := v.Get(l)
		if !exists {
			return nil, fmt.Errorf("%s, %w", l, ErrMissingFeature)
		}
		row = append(row, val)
	}
	return row, nil
}

// DefaultLabels returns the lag, rolling and calendar features followed by one feature
// per covariate.
func DefaultLabels(covariates []string) []Feature {
	labels := []Feature{
		NewLag(1),
		NewLag(7),
		NewLag(30),
		NewRolling(RollingMean, 7),
		NewRolling(RollingMean, 30),
		NewRolling(RollingStd, 7),
		NewCalendar(CalendarYear),
		NewCalendar(CalendarMonth),
		NewCalendar(CalendarDayOfYear),
		NewCalendar(CalendarDayOfWeek),
	}
	for _, c := range covariates {
		labels = append(labels, NewCovariate(c))
	}
	return labels
}
