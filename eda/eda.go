// Package eda computes the descriptive statistics of a prepared demand frame
package eda

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aouyang1/go-demand/dataset"
	"github.com/aouyang1/go-demand/timedataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrEmpty            = errors.New("no observations")
	ErrNoHolidayColumn  = errors.New("frame has no holiday column")
	ErrLenMismatch      = errors.New("series have different lengths")
	ErrNotEnoughSamples = errors.New("need at least two paired samples")
)

// Summary describes the demand column of a frame
type Summary struct {
	Records int       `json:"records"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Days    int       `json:"days"`
	Mean    float64   `json:"mean"`
	Median  float64   `json:"median"`
	Min     float64   `json:"min"`
	Max     float64   `json:"max"`
	Std     float64   `json:"std"`

	// CovariateMeans and Correlations are keyed by covariate name. Correlations are
	// against demand.
	CovariateMeans map[string]float64 `json:"covariate_means,omitempty"`
	Correlations   map[string]float64 `json:"correlations,omitempty"`
}

// Summarize computes the summary of the frame. Std is the sample standard deviation.
func Summarize(f *dataset.Frame) (*Summary, error) {
	if f.Len() == 0 {
		return nil, ErrEmpty
	}
	y := f.Demand
	s := &Summary{
		Records: f.Len(),
		Start:   f.Dates[0],
		End:     f.Dates[f.Len()-1],
		Days:    int(f.Dates[f.Len()-1].Sub(f.Dates[0]) / timedataset.Day),
		Mean:    stat.Mean(y, nil),
		Median:  Median(y),
		Min:     floats.Min(y),
		Max:     floats.Max(y),
	}
	if len(y) > 1 {
		s.Std = stat.StdDev(y, nil)
	}

	if len(f.Covariates) > 0 {
		s.CovariateMeans = make(map[string]float64, len(f.Covariates))
		s.Correlations = make(map[string]float64, len(f.Covariates))
		for name, col := range f.Covariates {
			s.CovariateMeans[name] = stat.Mean(col, nil)
			if c, err := Correlation(col, y); err == nil {
				s.Correlations[name] = c
			}
		}
	}
	return s, nil
}

// Median returns the middle value, averaging the two middle values of an even length
func Median(y []float64) float64 {
	if len(y) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(y))
	copy(sorted, y)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Correlation returns the Pearson correlation of the pairs where both values are defined
func Correlation(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("got %d and %d, %w", len(a), len(b), ErrLenMismatch)
	}
	x := make([]float64, 0, len(a))
	y := make([]float64, 0, len(b))
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		x = append(x, a[i])
		y = append(y, b[i])
	}
	if len(x) < 2 {
		return 0, ErrNotEnoughSamples
	}
	return stat.Correlation(x, y, nil), nil
}

// PeriodMean is the mean demand of the calendar period starting at Start
type PeriodMean struct {
	Start time.Time `json:"start"`
	Mean  float64   `json:"mean"`
	Count int       `json:"count"`
}

// MonthlyMeans returns the mean of every calendar month in the frame in order
func MonthlyMeans(f *dataset.Frame) []PeriodMean {
	return periodMeans(f, func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	})
}

// YearlyMeans returns the mean of every calendar year in the frame in order
func YearlyMeans(f *dataset.Frame) []PeriodMean {
	return periodMeans(f, func(t time.Time) time.Time {
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	})
}

func periodMeans(f *dataset.Frame, bucket func(time.Time) time.Time) []PeriodMean {
	var res []PeriodMean
	var sum float64
	for i := 0; i < f.Len(); i++ {
		start := bucket(f.Dates[i])
		if len(res) == 0 || !res[len(res)-1].Start.Equal(start) {
			if len(res) > 0 {
				res[len(res)-1].Mean = sum / float64(res[len(res)-1].Count)
			}
			res = append(res, PeriodMean{Start: start})
			sum = 0
		}
		sum += f.Demand[i]
		res[len(res)-1].Count++
	}
	if len(res) > 0 {
		res[len(res)-1].Mean = sum / float64(res[len(res)-1].Count)
	}
	return res
}

// MonthMean is the mean demand of a month of the year across all years
type MonthMean struct {
	Month time.Month `json:"month"`
	Name  string     `json:"name"`
	Mean  float64    `json:"mean"`
	Count int        `json:"count"`
}

// MonthOfYearMeans returns the mean per month of the year for the months present
func MonthOfYearMeans(f *dataset.Frame) []MonthMean {
	var sums [12]float64
	var counts [12]int
	for i := 0; i < f.Len(); i++ {
		m := f.Dates[i].Month() - 1
		sums[m] += f.Demand[i]
		counts[m]++
	}
	res := make([]MonthMean, 0, 12)
	for m := 0; m < 12; m++ {
		if counts[m] == 0 {
			continue
		}
		month := time.Month(m + 1)
		res = append(res, MonthMean{
			Month: month,
			Name:  month.String()[:3],
			Mean:  sums[m] / float64(counts[m]),
			Count: counts[m],
		})
	}
	return res
}

// HeatCell is the mean demand of one month of one year
type HeatCell struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Mean  float64    `json:"mean"`
}

// Heatmap pivots the monthly means into year by month cells. Only populated cells are
// returned.
type Heatmap struct {
	Years []int      `json:"years"`
	Cells []HeatCell `json:"cells"`
}

func NewHeatmap(f *dataset.Frame) Heatmap {
	var h Heatmap
	for _, pm := range MonthlyMeans(f) {
		year := pm.Start.Year()
		if len(h.Years) == 0 || h.Years[len(h.Years)-1] != year {
			h.Years = append(h.Years, year)
		}
		h.Cells = append(h.Cells, HeatCell{Year: year, Month: pm.Start.Month(), Mean: pm.Mean})
	}
	return h
}

// DayTypeStats describes demand on holidays or work days
type DayTypeStats struct {
	Label string  `json:"label"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Count int     `json:"count"`
}

// HolidayImpact compares demand on holidays against work days. Labels without any day
// are omitted.
func HolidayImpact(f *dataset.Frame) ([]DayTypeStats, error) {
	if f.Len() == 0 {
		return nil, ErrEmpty
	}
	if f.Holiday == nil {
		return nil, ErrNoHolidayColumn
	}
	var holiday, work []float64
	for i, h := range f.Holiday {
		if h {
			holiday = append(holiday, f.Demand[i])
			continue
		}
		work = append(work, f.Demand[i])
	}

	var res []DayTypeStats
	for _, group := range []struct {
		label string
		y     []float64
	}{
		{dataset.HolidayLabel, holiday},
		{dataset.WorkLabel, work},
	} {
		if len(group.y) == 0 {
			continue
		}
		s := DayTypeStats{Label: group.label, Mean: stat.Mean(group.y, nil), Count: len(group.y)}
		if len(group.y) > 1 {
			s.Std = stat.StdDev(group.y, nil)
		}
		res = append(res, s)
	}
	return res, nil
}

// Insights are the headline numbers of the dashboard
type Insights struct {
	// Growth is the percent change from the first to the last observation
	Growth          float64 `json:"growth"`
	PeakMonth       string  `json:"peak_month"`
	PeakValue       float64 `json:"peak_value"`
	Volatility      float64 `json:"volatility"`
	AvgYearlyGrowth float64 `json:"avg_yearly_growth"`
}

// NewInsights derives the headline numbers. Volatility is the coefficient of variation
// in percent and the yearly growth spreads Growth over the years spanned by the frame.
func NewInsights(f *dataset.Frame) (*Insights, error) {
	s, err := Summarize(f)
	if err != nil {
		return nil, err
	}
	first, last := f.Demand[0], f.Demand[f.Len()-1]

	ins := &Insights{}
	if first != 0 {
		ins.Growth = (last - first) / first * 100
	}
	if s.Mean != 0 {
		ins.Volatility = s.Std / s.Mean * 100
	}
	if years := float64(s.Days) / 365.25; years > 0 {
		ins.AvgYearlyGrowth = ins.Growth / years
	}
	for _, mm := range MonthOfYearMeans(f) {
		if ins.PeakMonth == "" || mm.Mean > ins.PeakValue {
			ins.PeakMonth = mm.Name
			ins.PeakValue = mm.Mean
		}
	}
	return ins, nil
}

// Round rounds v to the given number of decimals
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
