package pipeline

import (
	"errors"

	"github.com/aouyang1/go-demand/dataset"
	"github.com/aouyang1/go-demand/eda"
)

// Analysis holds the descriptive statistics of the prepared frame. Holiday is nil when
// the source has no holiday column.
type Analysis struct {
	Summary     *eda.Summary       `json:"summary"`
	Insights    *eda.Insights      `json:"insights"`
	Monthly     []eda.PeriodMean   `json:"monthly"`
	Yearly      []eda.PeriodMean   `json:"yearly"`
	MonthOfYear []eda.MonthMean    `json:"month_of_year"`
	Heatmap     eda.Heatmap        `json:"heatmap"`
	Holiday     []eda.DayTypeStats `json:"holiday,omitempty"`
	Gaps        []dataset.Gap      `json:"gaps,omitempty"`
}

// Analyze computes every descriptive statistic of the frame
func Analyze(f *dataset.Frame) (*Analysis, error) {
	summary, err := eda.Summarize(f)
	if err != nil {
		return nil, err
	}
	insights, err := eda.NewInsights(f)
	if err != nil {
		return nil, err
	}
	holiday, err := eda.HolidayImpact(f)
	if err != nil && !errors.Is(err, eda.ErrNoHolidayColumn) {
		return nil, err
	}
	return &Analysis{
		Summary:     summary,
		Insights:    insights,
		Monthly:     eda.MonthlyMeans(f),
		Yearly:      eda.YearlyMeans(f),
		MonthOfYear: eda.MonthOfYearMeans(f),
		Heatmap:     eda.NewHeatmap(f),
		Holiday:     holiday,
		Gaps:        f.Gaps(),
	}, nil
}
