package forecast

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-demand/event"
	"github.com/aouyang1/go-demand/forecast/util"
	"github.com/aouyang1/go-demand/timedataset"
)

const (
	LabelSeasYearly = "yearly"
	LabelSeasWeekly = "weekly"

	// YearPeriod is the mean length of a calendar year
	YearPeriod = time.Duration(365.25 * float64(timedataset.Day))
	WeekPeriod = 7 * timedataset.Day

	DefaultYearlyOrders        = 10
	DefaultWeeklyOrders        = 3
	DefaultAutoNumChangepoints = 25
	DefaultChangepointRange    = 0.8
	DefaultRegularization      = 1.0
	DefaultIntervalZScore      = 1.2816
)

var (
	ErrNegativeRegularization = errors.New("regularization must be non-negative")
	ErrInvalidChangepointRng  = errors.New("changepoint range must be within (0, 1]")
	ErrNegativeChangepoints   = errors.New("number of changepoints must be non-negative")
	ErrNegativeZScore         = errors.New("interval z-score must be non-negative")
)

// Options configures the decomposition model. Demand is modeled as the sum of a
// piecewise linear trend, fourier seasonalities, holiday events and external
// regressors. With UseLog the model is fit on the log of demand, making every
// component multiplicative.
type Options struct {
	UseLog bool `json:"use_log"`

	// Regularization is the ridge penalty applied to every feature except the intercept
	Regularization float64 `json:"regularization"`

	SeasonalityOptions SeasonalityOptions `json:"seasonality_options"`
	ChangepointOptions ChangepointOptions `json:"changepoint_options"`
	EventOptions       EventOptions       `json:"event_options"`
	OutlierOptions     OutlierOptions     `json:"outlier_options"`

	// Regressors are covariate names used as additional linear features. Missing future
	// values are carried forward from the last observation.
	Regressors []string `json:"regressors"`

	// IntervalZScore scales the residual standard deviation into the prediction band
	IntervalZScore float64 `json:"interval_z_score"`
}

// NewDefaultOptions returns yearly and weekly seasonality, automatic changepoints,
// national holidays and an 80% prediction band.
func NewDefaultOptions() *Options {
	return &Options{
		Regularization:     DefaultRegularization,
		SeasonalityOptions: NewDefaultSeasonalityOptions(),
		ChangepointOptions: NewDefaultChangepointOptions(),
		EventOptions:       NewDefaultEventOptions(),
		OutlierOptions:     NewDefaultOutlierOptions(),
		IntervalZScore:     DefaultIntervalZScore,
	}
}

// Validate returns a copy of the options with invalid seasonalities removed
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	if o.Regularization < 0 {
		return nil, fmt.Errorf("got %f, %w", o.Regularization, ErrNegativeRegularization)
	}
	if o.IntervalZScore < 0 {
		return nil, fmt.Errorf("got %f, %w", o.IntervalZScore, ErrNegativeZScore)
	}
	if o.ChangepointOptions.AutoNumChangepoints < 0 {
		return nil, fmt.Errorf("got %d, %w", o.ChangepointOptions.AutoNumChangepoints, ErrNegativeChangepoints)
	}
	for _, e := range o.EventOptions.Events {
		if err := e.Valid(); err != nil {
			return nil, fmt.Errorf("invalid event %q, %w", e.Name, err)
		}
	}

	res := *o
	if res.ChangepointOptions.Auto {
		if res.ChangepointOptions.AutoNumChangepoints == 0 {
			res.ChangepointOptions.AutoNumChangepoints = DefaultAutoNumChangepoints
		}
		if res.ChangepointOptions.Range == 0 {
			res.ChangepointOptions.Range = DefaultChangepointRange
		}
		if rng := res.ChangepointOptions.Range; rng < 0 || rng > 1 {
			return nil, fmt.Errorf("got %f, %w", rng, ErrInvalidChangepointRng)
		}
	}
	res.SeasonalityOptions.SeasonalityConfigs = append([]SeasonalityConfig(nil), o.SeasonalityOptions.SeasonalityConfigs...)
	res.SeasonalityOptions.removeDuplicates()
	res.ChangepointOptions.Changepoints = append([]Changepoint(nil), o.ChangepointOptions.Changepoints...)
	res.Regressors = append([]string(nil), o.Regressors...)
	sort.Strings(res.Regressors)
	return &res, nil
}

// SeasonalityOptions configures the number of seasonality components to fit for
type SeasonalityOptions struct {
	SeasonalityConfigs []SeasonalityConfig `json:"seasonality_configs"`
}

// SeasonalityConfig generates sin and cos terms for orders 1 through Orders of the period
type SeasonalityConfig struct {
	Name   string        `json:"name"`
	Orders int           `json:"orders"`
	Period time.Duration `json:"period"`
}

func NewSeasonalityConfig(name string, period time.Duration, orders int) SeasonalityConfig {
	return SeasonalityConfig{Name: name, Orders: orders, Period: period}
}

func NewYearlySeasonalityConfig(orders int) SeasonalityConfig {
	return NewSeasonalityConfig(LabelSeasYearly, YearPeriod, orders)
}

func NewWeeklySeasonalityConfig(orders int) SeasonalityConfig {
	return NewSeasonalityConfig(LabelSeasWeekly, WeekPeriod, orders)
}

func NewDefaultSeasonalityOptions() SeasonalityOptions {
	return SeasonalityOptions{
		SeasonalityConfigs: []SeasonalityConfig{
			NewYearlySeasonalityConfig(DefaultYearlyOrders),
			NewWeeklySeasonalityConfig(DefaultWeeklyOrders),
		},
	}
}

// removeDuplicates keeps one config per period, preferring the highest order, and drops
// configs without a name, period or order.
func (s *SeasonalityOptions) removeDuplicates() {
	cfgs := s.SeasonalityConfigs
	sort.Slice(cfgs, func(i, j int) bool {
		if cfgs[i].Period != cfgs[j].Period {
			return cfgs[i].Period < cfgs[j].Period
		}
		if cfgs[i].Orders != cfgs[j].Orders {
			return cfgs[i].Orders > cfgs[j].Orders
		}
		return cfgs[i].Name < cfgs[j].Name
	})

	valid := make([]SeasonalityConfig, 0, len(cfgs))
	var lastPeriod time.Duration
	for _, cfg := range cfgs {
		if cfg.Period > lastPeriod && cfg.Name != "" && cfg.Orders > 0 {
			valid = append(valid, cfg)
			lastPeriod = cfg.Period
		}
	}
	s.SeasonalityConfigs = valid
}

func (s SeasonalityOptions) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	noCfg := " None"
	if len(s.SeasonalityConfigs) > 0 {
		noCfg = ""
	}
	if _, err := fmt.Fprintf(w, "%s%sSeasonality:%s\n", prefix, util.IndentExpand(indent, indentGrowth), noCfg); err != nil {
		return err
	}
	if len(s.SeasonalityConfigs) == 0 {
		return nil
	}
	fmt.Fprintf(tbl, "%s%sName\tPeriod\tOrders\t\n", prefix, util.IndentExpand(indent, indentGrowth+1))
	for _, cfg := range s.SeasonalityConfigs {
		fmt.Fprintf(tbl, "%s%s%s\t%s\t%d\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			cfg.Name, cfg.Period, cfg.Orders)
	}
	return tbl.Flush()
}

// Changepoint is a point in time after which the trend may bend
type Changepoint struct {
	T    time.Time `json:"time"`
	Name string    `json:"name"`
}

func NewChangepoint(name string, t time.Time) Changepoint {
	return Changepoint{T: t, Name: name}
}

// ChangepointOptions either lists known changepoints or places AutoNumChangepoints of them
// uniformly over the first Range fraction of the training window. The ridge penalty keeps
// the unneeded ones small.
type ChangepointOptions struct {
	Changepoints        []Changepoint `json:"changepoints"`
	Auto                bool          `json:"auto"`
	AutoNumChangepoints int           `json:"auto_num_changepoints"`
	Range               float64       `json:"range"`
}

func NewDefaultChangepointOptions() ChangepointOptions {
	return ChangepointOptions{
		Auto:                true,
		AutoNumChangepoints: DefaultAutoNumChangepoints,
		Range:               DefaultChangepointRange,
	}
}

// GenerateAutoChangepoints replaces the changepoints with evenly spaced ones between
// start and start+Range*(end-start). The training start itself is never a changepoint.
func (c *ChangepointOptions) GenerateAutoChangepoints(start, end time.Time) []Changepoint {
	if !c.Auto {
		return c.Changepoints
	}
	n := c.AutoNumChangepoints
	window := time.Duration(float64(end.Sub(start)) * c.Range)
	if n == 0 || window <= 0 {
		c.Changepoints = nil
		return nil
	}

	step := window / time.Duration(n)
	chpts := make([]Changepoint, 0, n)
	for i := 1; i <= n; i++ {
		chpts = append(chpts, NewChangepoint("auto_"+strconv.Itoa(i), start.Add(step*time.Duration(i))))
	}
	c.Changepoints = chpts
	return chpts
}

func (c ChangepointOptions) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	noCfg := " None"
	if len(c.Changepoints) > 0 {
		noCfg = ""
	}
	if _, err := fmt.Fprintf(w, "%s%sChangepoints:%s\n", prefix, util.IndentExpand(indent, indentGrowth), noCfg); err != nil {
		return err
	}
	if len(c.Changepoints) == 0 {
		return nil
	}
	fmt.Fprintf(tbl, "%s%sName\tDatetime\t\n", prefix, util.IndentExpand(indent, indentGrowth+1))
	for _, chpt := range c.Changepoints {
		fmt.Fprintf(tbl, "%s%s%s\t%s\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			chpt.Name, chpt.T.Format(time.DateOnly))
	}
	return tbl.Flush()
}

// EventOptions adds one indicator feature per event name. National holidays are
// generated for every year of the training and prediction windows.
type EventOptions struct {
	NationalHolidays bool          `json:"national_holidays"`
	DurBefore        time.Duration `json:"duration_before"`
	DurAfter         time.Duration `json:"duration_after"`
	Events           []event.Event `json:"events"`
}

func NewDefaultEventOptions() EventOptions {
	return EventOptions{NationalHolidays: true}
}

// Generate returns the configured events overlapping [start, end]
func (e EventOptions) Generate(start, end time.Time) []event.Event {
	var events []event.Event
	if e.NationalHolidays {
		events = append(events, event.Holidays(event.NationalHolidays, start, end, e.DurBefore, e.DurAfter)...)
	}
	for _, ev := range e.Events {
		if ev.End.Before(start) || ev.Start.After(end) {
			continue
		}
		events = append(events, ev)
	}
	return events
}

func (e EventOptions) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	if _, err := fmt.Fprintf(w, "%s%sNational Holidays: %t\n", prefix, util.IndentExpand(indent, indentGrowth), e.NationalHolidays); err != nil {
		return err
	}
	noCfg := " None"
	if len(e.Events) > 0 {
		noCfg = ""
	}
	if _, err := fmt.Fprintf(w, "%s%sEvents:%s\n", prefix, util.IndentExpand(indent, indentGrowth), noCfg); err != nil {
		return err
	}
	if len(e.Events) == 0 {
		return nil
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tbl, "%s%sName\tStart\tEnd\t\n", prefix, util.IndentExpand(indent, indentGrowth+1))
	for _, ev := range e.Events {
		fmt.Fprintf(tbl, "%s%s%s\t%s\t%s\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			ev.Name, ev.Start.Format(time.DateOnly), ev.End.Format(time.DateOnly))
	}
	return tbl.Flush()
}

// OutlierOptions drops residual outliers between fit passes. Points outside the
// percentile range widened by TukeyFactor are removed before refitting.
type OutlierOptions struct {
	NumPasses       int     `json:"num_passes"`
	LowerPercentile float64 `json:"lower_percentile"`
	UpperPercentile float64 `json:"upper_percentile"`
	TukeyFactor     float64 `json:"tukey_factor"`
}

func NewDefaultOutlierOptions() OutlierOptions {
	return OutlierOptions{
		NumPasses:       2,
		LowerPercentile: 0.25,
		UpperPercentile: 0.75,
		TukeyFactor:     3.0,
	}
}
