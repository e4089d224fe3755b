package forecast

import (
	"math"
	"time"

	"github.com/aouyang1/go-demand/event"
	"github.com/aouyang1/go-demand/feature"
	"github.com/aouyang1/go-demand/timedataset"
)

// RegressorScale standardizes a regressor column with the training mean and standard
// deviation
type RegressorScale struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Last float64 `json:"last"`
}

func newRegressorScale(col []float64) RegressorScale {
	var sum, sumSq, last float64
	var n int
	for _, v := range col {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		sumSq += v * v
		last = v
		n++
	}
	if n == 0 {
		return RegressorScale{Std: 1}
	}
	mean := sum / float64(n)
	std := math.Sqrt(math.Max(sumSq/float64(n)-mean*mean, 0))
	if std == 0 {
		std = 1
	}
	return RegressorScale{Mean: mean, Std: std, Last: last}
}

func (r RegressorScale) apply(col []float64) []float64 {
	res := make([]float64, len(col))
	for i, v := range col {
		res[i] = (v - r.Mean) / r.Std
	}
	return res
}

// carryForward returns a column of length n where missing or NaN values repeat the
// previous value, starting from last
func carryForward(col []float64, n int, last float64) []float64 {
	res := make([]float64, n)
	prev := last
	for i := 0; i < n; i++ {
		if i < len(col) && !math.IsNaN(col[i]) {
			prev = col[i]
		}
		res[i] = prev
	}
	return res
}

func epochSeconds(t []time.Time) []float64 {
	epoch := make([]float64, len(t))
	for i, tPnt := range t {
		epoch[i] = float64(tPnt.UnixNano()) / 1e9
	}
	return epoch
}

// generateFeatures builds every model column for the time points. Columns are scaled
// against the training window so the same coefficients apply for any t.
func (f *Forecast) generateFeatures(t []time.Time, x map[string][]float64) feature.Set {
	set := feature.NewSet()
	epoch := epochSeconds(t)

	growth := feature.Linear()
	set.Add(growth, growth.Generate(epoch, f.trainStartTime, f.trainEndTime))

	days := feature.DaysSinceEpoch(epoch)
	for _, cfg := range f.opt.SeasonalityOptions.SeasonalityConfigs {
		periodDays := float64(cfg.Period) / float64(timedataset.Day)
		for order := 1; order <= cfg.Orders; order++ {
			sin := feature.NewSeasonality(cfg.Name, feature.FourierCompSin, order)
			set.Add(sin, sin.Generate(days, order, periodDays))
			cos := feature.NewSeasonality(cfg.Name, feature.FourierCompCos, order)
			set.Add(cos, cos.Generate(days, order, periodDays))
		}
	}

	for _, chpt := range f.opt.ChangepointOptions.Changepoints {
		// changepoints outside of the training window carry no information
		if !chpt.T.After(f.trainStartTime) || !chpt.T.Before(f.trainEndTime) {
			continue
		}
		c := feature.NewChangepoint(chpt.Name, feature.ChangepointCompSlope)
		set.Add(c, c.Generate(epoch, chpt.T, f.trainStartTime, f.trainEndTime))
	}

	if len(t) > 0 {
		events := f.opt.EventOptions.Generate(t[0], t[len(t)-1])
		for name, col := range event.Indicators(t, events) {
			set.Add(feature.NewEvent(name), col)
		}
	}

	for _, name := range f.opt.Regressors {
		scale := f.regressors[name]
		col := carryForward(x[name], len(t), scale.Last)
		set.Add(feature.NewCovariate(name), scale.apply(col))
	}
	return set
}

// componentOf maps a feature to the decomposition component it contributes to
func componentOf(f feature.Feature) component {
	switch f.Type() {
	case feature.FeatureTypeGrowth, feature.FeatureTypeChangepoint:
		return componentTrend
	case feature.FeatureTypeSeasonality:
		return componentSeasonality
	case feature.FeatureTypeEvent:
		return componentEvents
	default:
		return componentRegressors
	}
}
