// Package plot builds the echarts dashboards of the demand analysis
package plot

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/aouyang1/go-demand/dataset"
	"github.com/aouyang1/go-demand/eda"
	"github.com/aouyang1/go-demand/forecast"
	"github.com/aouyang1/go-demand/recursive"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	NameDemand         = "demand"
	NameMonthly        = "monthly"
	NameYearly         = "yearly"
	NameMonthOfYear    = "month-of-year"
	NameTemperature    = "temperature"
	NameHoliday        = "holiday"
	NameHeatmap        = "heatmap"
	NameDecomposition  = "decomposition-forecast"
	NameComponents     = "decomposition-components"
	NameBoosting       = "boosting-forecast"
	DefaultTemperature = "temp"
	demandAxisName     = "Energy Required (MU)"
	missingValue       = "-"
	heatmapColorLow    = "#ffffb2"
	heatmapColorHigh   = "#bd0026"
)

var ErrMissingCovariate = errors.New("covariate not found in frame")

// Chart is any echarts chart that can be added to a page and rendered on its own
type Chart interface {
	components.Charter
	Render(w io.Writer) error
}

// Named pairs a chart with the name it is served under
type Named struct {
	Name  string
	Title string
	Chart Chart
}

func dateAxis(t []time.Time) []string {
	res := make([]string, len(t))
	for i, tPnt := range t {
		res[i] = tPnt.Format(time.DateOnly)
	}
	return res
}

// lineData maps NaN to the echarts missing value so gaps are not drawn
func lineData(y []float64) []opts.LineData {
	res := make([]opts.LineData, len(y))
	for i, v := range y {
		if math.IsNaN(v) {
			res[i] = opts.LineData{Value: missingValue}
			continue
		}
		res[i] = opts.LineData{Value: v}
	}
	return res
}

func titleOpts(title, subtitle string) charts.GlobalOpts {
	return charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle})
}

func tooltipOpts() charts.GlobalOpts {
	return charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"})
}

// LineTSeries generates a multi-line chart for arbitrary time/value combinations. Every
// series must have the same length as t.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		titleOpts(title, ""),
		tooltipOpts(),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	line.SetXAxis(dateAxis(t))
	for i, series := range seriesName {
		line.AddSeries(series, lineData(y[i]))
	}
	return line
}

// DemandOverTime plots the daily demand
func DemandOverTime(f *dataset.Frame) *charts.Line {
	line := LineTSeries("Electricity Demand Over Time", []string{"Demand"}, f.Dates, [][]float64{f.Demand})
	line.SetGlobalOptions(charts.WithYAxisOpts(opts.YAxis{Name: demandAxisName}))
	return line
}

// MonthlyAverage plots the mean demand of every calendar month
func MonthlyAverage(monthly []eda.PeriodMean) *charts.Line {
	t := make([]time.Time, len(monthly))
	y := make([]float64, len(monthly))
	for i, pm := range monthly {
		t[i] = pm.Start
		y[i] = pm.Mean
	}
	line := LineTSeries("Monthly Average Electricity Demand", []string{"Monthly Average"}, t, [][]float64{y})
	line.SetGlobalOptions(charts.WithYAxisOpts(opts.YAxis{Name: "Average " + demandAxisName}))
	return line
}

func barChart(title, xName string, x []string, series string, y []float64) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		titleOpts(title, ""),
		tooltipOpts(),
		charts.WithXAxisOpts(opts.XAxis{Name: xName}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Average " + demandAxisName}),
	)
	data := make([]opts.BarData, len(y))
	for i, v := range y {
		data[i] = opts.BarData{Value: eda.Round(v, 1)}
	}
	bar.SetXAxis(x).AddSeries(series, data)
	return bar
}

// YearlyAverage plots the mean demand per year
func YearlyAverage(yearly []eda.PeriodMean) *charts.Bar {
	x := make([]string, len(yearly))
	y := make([]float64, len(yearly))
	for i, pm := range yearly {
		x[i] = fmt.Sprint(pm.Start.Year())
		y[i] = pm.Mean
	}
	return barChart("Average Electricity Demand by Year", "Year", x, "Yearly Average", y)
}

// MonthOfYear plots the mean demand per month of the year
func MonthOfYear(moy []eda.MonthMean) *charts.Bar {
	x := make([]string, len(moy))
	y := make([]float64, len(moy))
	for i, mm := range moy {
		x[i] = mm.Name
		y[i] = mm.Mean
	}
	return barChart("Average Electricity Demand by Month", "Month", x, "Monthly Pattern", y)
}

// HolidayImpact compares the mean demand on holidays and work days
func HolidayImpact(stats []eda.DayTypeStats) *charts.Bar {
	x := make([]string, len(stats))
	y := make([]float64, len(stats))
	for i, s := range stats {
		x[i] = s.Label
		y[i] = s.Mean
	}
	return barChart("Average Electricity Demand: Holiday vs Work Days", "Day Type", x, "Average Demand", y)
}

// CovariateScatter plots demand against a covariate with their correlation in the title
func CovariateScatter(f *dataset.Frame, name string) (*charts.Scatter, error) {
	col, exists := f.Covariates[name]
	if !exists {
		return nil, fmt.Errorf("%q, %w", name, ErrMissingCovariate)
	}
	corr, err := eda.Correlation(col, f.Demand)
	if err != nil {
		return nil, err
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		titleOpts(fmt.Sprintf("%s vs Electricity Demand", name), fmt.Sprintf("Correlation: %.3f", corr)),
		charts.WithXAxisOpts(opts.XAxis{Name: name, Type: "value", Scale: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: demandAxisName, Type: "value", Scale: opts.Bool(true)}),
	)
	data := make([]opts.ScatterData, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		if math.IsNaN(col[i]) || math.IsNaN(f.Demand[i]) {
			continue
		}
		data = append(data, opts.ScatterData{Value: []interface{}{col[i], f.Demand[i]}, SymbolSize: 5})
	}
	scatter.AddSeries("Days", data)
	return scatter, nil
}

// Heatmap plots the year by month mean demand
func Heatmap(h eda.Heatmap) *charts.HeatMap {
	months := make([]string, 12)
	for m := range months {
		months[m] = time.Month(m + 1).String()[:3]
	}
	years := make([]string, len(h.Years))
	yearIdx := make(map[int]int, len(h.Years))
	for i, y := range h.Years {
		years[i] = fmt.Sprint(y)
		yearIdx[y] = i
	}

	low, high := math.Inf(1), math.Inf(-1)
	data := make([]opts.HeatMapData, 0, len(h.Cells))
	for _, c := range h.Cells {
		low = math.Min(low, c.Mean)
		high = math.Max(high, c.Mean)
		data = append(data, opts.HeatMapData{Value: [3]interface{}{int(c.Month) - 1, yearIdx[c.Year], eda.Round(c.Mean, 1)}})
	}
	if len(h.Cells) == 0 {
		low, high = 0, 0
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		titleOpts("Electricity Demand Heatmap: Year vs Month", ""),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: months, SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: years, SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        float32(low),
			Max:        float32(high),
			InRange:    &opts.VisualMapInRange{Color: []string{heatmapColorLow, heatmapColorHigh}},
		}),
	)
	hm.SetXAxis(months).AddSeries("demand", data)
	return hm
}

// LineForecaster plots the actual values together with the forecast and its band. Actual
// values are aligned on the forecast times and missing past the end of history.
func LineForecaster(t []time.Time, actual []float64, res *forecast.Results) *charts.Line {
	observed := make(map[time.Time]float64, len(t))
	for i, tPnt := range t {
		observed[tPnt] = actual[i]
	}
	aligned := make([]float64, res.Len())
	for i, tPnt := range res.T {
		v, exists := observed[tPnt]
		if !exists {
			v = math.NaN()
		}
		aligned[i] = v
	}

	return LineTSeries(
		"Decomposition Forecast",
		[]string{"Actual", "Forecast", "Upper", "Lower"},
		res.T,
		[][]float64{aligned, res.Forecast, res.Upper, res.Lower},
	)
}

// Components plots the decomposition of the forecast
func Components(res *forecast.Results) *charts.Line {
	return LineTSeries(
		"Forecast Components",
		[]string{"Trend", "Seasonality", "Events", "Regressors"},
		res.T,
		[][]float64{
			res.Components.Trend,
			res.Components.Seasonality,
			res.Components.Events,
			res.Components.Regressors,
		},
	)
}

// BoostingSeries holds the recent history, the holdout predictions and the recursive
// forecast of the boosting model
type BoostingSeries struct {
	HistoryT      []time.Time
	HistoryY      []float64
	TestT         []time.Time
	TestPredicted []float64
	Future        []recursive.Point
}

// BoostingForecast plots recent history, the holdout predictions and the future forecast
// on one time axis
func BoostingForecast(b BoostingSeries) *charts.Line {
	n := len(b.HistoryT) + len(b.Future)
	t := make([]time.Time, 0, n)
	t = append(t, b.HistoryT...)
	for _, p := range b.Future {
		t = append(t, p.Date)
	}
	hist := nanSeries(n)
	test := nanSeries(n)
	future := nanSeries(n)
	copy(hist, b.HistoryY)

	pos := make(map[time.Time]int, n)
	for i, tPnt := range t {
		pos[tPnt] = i
	}
	for i, tPnt := range b.TestT {
		if j, exists := pos[tPnt]; exists {
			test[j] = b.TestPredicted[i]
		}
	}
	for i, p := range b.Future {
		future[len(b.HistoryT)+i] = p.Value
	}

	return LineTSeries(
		"Gradient Boosting Forecast",
		[]string{"Actual", "Holdout Prediction", "Forecast"},
		t,
		[][]float64{hist, test, future},
	)
}

func nanSeries(n int) []float64 {
	res := make([]float64, n)
	for i := range res {
		res[i] = math.NaN()
	}
	return res
}

// Page renders the charts one after the other in a single html document
func Page(title string, named []Named) *components.Page {
	page := components.NewPage()
	page.SetPageTitle(title)
	for _, n := range named {
		page.AddCharts(n.Chart)
	}
	return page
}

// RenderPage writes the page of charts to w
func RenderPage(w io.Writer, title string, named []Named) error {
	return Page(title, named).Render(w)
}

// Inputs are the artifacts charted by Build. Nil or empty inputs are skipped.
type Inputs struct {
	Frame         *dataset.Frame
	Monthly       []eda.PeriodMean
	Yearly        []eda.PeriodMean
	MonthOfYear   []eda.MonthMean
	Heatmap       eda.Heatmap
	Holiday       []eda.DayTypeStats
	Temperature   string
	Decomposition *forecast.Results
	Boosting      *BoostingSeries
}

// Build returns every chart the inputs allow in dashboard order
func Build(in Inputs) []Named {
	var res []Named
	add := func(name, title string, c Chart) {
		res = append(res, Named{Name: name, Title: title, Chart: c})
	}

	if in.Frame.Len() > 0 {
		add(NameDemand, "Demand over time", DemandOverTime(in.Frame))
	}
	if len(in.Monthly) > 0 {
		add(NameMonthly, "Monthly average", MonthlyAverage(in.Monthly))
	}
	if len(in.Yearly) > 0 {
		add(NameYearly, "Yearly average", YearlyAverage(in.Yearly))
	}
	if len(in.MonthOfYear) > 0 {
		add(NameMonthOfYear, "Month of year", MonthOfYear(in.MonthOfYear))
	}
	if in.Frame.Len() > 0 {
		name := in.Temperature
		if name == "" {
			name = DefaultTemperature
		}
		if scatter, err := CovariateScatter(in.Frame, name); err == nil {
			add(NameTemperature, "Temperature vs demand", scatter)
		}
	}
	if len(in.Holiday) > 0 {
		add(NameHoliday, "Holiday impact", HolidayImpact(in.Holiday))
	}
	if len(in.Heatmap.Cells) > 0 {
		add(NameHeatmap, "Year by month heatmap", Heatmap(in.Heatmap))
	}
	if in.Decomposition != nil {
		var t []time.Time
		var y []float64
		if in.Frame != nil {
			t, y = in.Frame.Dates, in.Frame.Demand
		}
		add(NameDecomposition, "Decomposition forecast", LineForecaster(t, y, in.Decomposition))
		if in.Decomposition.Components.Trend != nil {
			add(NameComponents, "Forecast components", Components(in.Decomposition))
		}
	}
	if in.Boosting != nil {
		add(NameBoosting, "Gradient boosting forecast", BoostingForecast(*in.Boosting))
	}
	return res
}

// Find returns the chart with the given name
func Find(named []Named, name string) (Named, bool) {
	for _, n := range named {
		if n.Name == name {
			return n, true
		}
	}
	return Named{}, false
}
