package timedataset

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

// GenerateDays returns n consecutive calendar days starting at start
func GenerateDays(start time.Time, n int) []time.Time {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	t := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t = append(t, start.AddDate(0, 0, i))
	}
	return t
}

// Series is a synthetic column. Combinators modify it in place and return it for
// chaining.
type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

// GenerateLinearY returns a straight line starting at bias growing by slope per point
func GenerateLinearY(n int, bias, slope float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, bias+slope*float64(i))
	}
	return Series(y)
}

// GenerateYearlyWaveY returns a sine wave with a period of one year using the day of
// year of each time point. phaseDays shifts the peak.
func GenerateYearlyWaveY(t []time.Time, amp, phaseDays float64) Series {
	y := make([]float64, 0, len(t))
	for _, tPnt := range t {
		doy := float64(tPnt.YearDay())
		y = append(y, amp*math.Sin(2.0*math.Pi*(doy+phaseDays)/365.25))
	}
	return Series(y)
}

// GenerateWeeklyY assigns a fixed offset per weekday
func GenerateWeeklyY(t []time.Time, offsets [7]float64) Series {
	y := make([]float64, 0, len(t))
	for _, tPnt := range t {
		y = append(y, offsets[tPnt.Weekday()])
	}
	return Series(y)
}

// GenerateNoise returns normally distributed noise scaled by noiseScale. A nil rng uses
// the global source.
func GenerateNoise(n int, noiseScale float64, rng *rand.Rand) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		var v float64
		if rng != nil {
			v = rng.NormFloat64()
		} else {
			v = rand.NormFloat64()
		}
		y = append(y, v*noiseScale)
	}
	return Series(y)
}

// GenerateDailyDemand simulates a daily electricity demand series with growth, a
// yearly cycle peaking in late spring, a weekday/weekend pattern and a temperature
// covariate correlated with the yearly cycle. The seed makes the output reproducible.
func GenerateDailyDemand(start time.Time, days int, seed uint64) *TimeDataset {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	t := GenerateDays(start, days)

	temp := make(Series, days)
	temp.Add(GenerateConstY(days, 29.0)).
		Add(GenerateYearlyWaveY(t, 5.5, -45)).
		Add(GenerateNoise(days, 0.8, rng))

	y := make(Series, days)
	y.Add(GenerateLinearY(days, 150.0, 0.03)).
		Add(GenerateYearlyWaveY(t, 22.0, -45)).
		Add(GenerateWeeklyY(t, [7]float64{-9, 1, 2, 2, 2, 1, -3})).
		Add(GenerateNoise(days, 3.0, rng))

	return &TimeDataset{
		T: t,
		Y: y,
		X: map[string][]float64{"temp": temp},
	}
}
