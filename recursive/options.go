package recursive

import (
	"fmt"
	"strings"
)

// RollingSource selects the series that rolling statistics are computed over during the
// forecast.
type RollingSource int

const (
	// RollingHistorical computes rolling statistics over the trailing historical values
	// only, so they stay fixed across every step.
	RollingHistorical RollingSource = iota

	// RollingExtended computes rolling statistics over the history extended with the
	// predictions made so far.
	RollingExtended
)

func (r RollingSource) String() string {
	switch r {
	case RollingHistorical:
		return "historical"
	case RollingExtended:
		return "extended"
	}
	return fmt.Sprintf("unknown(%d)", int(r))
}

// ParseRollingSource converts a name returned by String back to a RollingSource
func ParseRollingSource(s string) (RollingSource, error) {
	switch strings.ToLower(s) {
	case "", "historical":
		return RollingHistorical, nil
	case "extended":
		return RollingExtended, nil
	}
	return 0, fmt.Errorf("%q, %w", s, ErrUnknownRolling)
}

func (r RollingSource) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *RollingSource) UnmarshalText(text []byte) error {
	src, err := ParseRollingSource(string(text))
	if err != nil {
		return err
	}
	*r = src
	return nil
}

type Options struct {
	// Name labels log lines and metrics
	Name       string
	Rolling    RollingSource
	Covariates CovariateFunc
	Observer   Observer
}

func NewDefaultOptions() *Options {
	return &Options{
		Name:       "recursive",
		Rolling:    RollingHistorical,
		Covariates: CarryForward,
	}
}

// Validate fills in defaults and returns a copy of the options
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	res := *o
	switch res.Rolling {
	case RollingHistorical, RollingExtended:
	default:
		return nil, fmt.Errorf("%s, %w", res.Rolling, ErrUnknownRolling)
	}
	if res.Name == "" {
		res.Name = "recursive"
	}
	if res.Covariates == nil {
		res.Covariates = CarryForward
	}
	return &res, nil
}
