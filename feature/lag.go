package feature

import (
	"fmt"
	"strconv"
	"strings"
)

// Lag is the observed value a fixed number of days before the target day
type Lag struct {
	Days int `json:"days"`
}

func NewLag(days int) *Lag {
	return &Lag{days}
}

func (l Lag) String() string {
	return fmt.Sprintf("lag_%d", l.Days)
}

func (l Lag) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "days":
		return strconv.Itoa(l.Days), true
	}
	return "", false
}

func (l Lag) Type() FeatureType {
	return FeatureTypeLag
}

func (l Lag) Decode() map[string]string {
	return map[string]string{"days": strconv.Itoa(l.Days)}
}

type RollingStat string

const (
	RollingMean RollingStat = "mean"
	RollingStd  RollingStat = "std"
)

// Rolling is a statistic over the trailing window of days before the target day
type Rolling struct {
	Stat   RollingStat `json:"stat"`
	Window int         `json:"window"`
}

func NewRolling(stat RollingStat, window int) *Rolling {
	return &Rolling{stat, window}
}

func (r Rolling) String() string {
	return fmt.Sprintf("rolling_%s_%d", r.Stat, r.Window)
}

func (r Rolling) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "stat":
		return string(r.Stat), true
	case "window":
		return strconv.Itoa(r.Window), true
	}
	return "", false
}

func (r Rolling) Type() FeatureType {
	return FeatureTypeRolling
}

func (r Rolling) Decode() map[string]string {
	return map[string]string{
		"stat":   string(r.Stat),
		"window": strconv.Itoa(r.Window),
	}
}

type CalendarField string

const (
	CalendarYear      CalendarField = "year"
	CalendarMonth     CalendarField = "month"
	CalendarDayOfYear CalendarField = "day_of_year"
	CalendarDayOfWeek CalendarField = "day_of_week"
)

// Calendar is a numeric field of the target date
type Calendar struct {
	Name CalendarField `json:"name"`
}

func NewCalendar(name CalendarField) *Calendar {
	return &Calendar{name}
}

func (c Calendar) String() string {
	return string(c.Name)
}

func (c Calendar) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return string(c.Name), true
	}
	return "", false
}

func (c Calendar) Type() FeatureType {
	return FeatureTypeCalendar
}

func (c Calendar) Decode() map[string]string {
	return map[string]string{"name": string(c.Name)}
}

// Covariate is an exogenous column observed alongside demand, e.g. temperature
type Covariate struct {
	Name string `json:"name"`
}

func NewCovariate(name string) *Covariate {
	return &Covariate{name}
}

func (c Covariate) String() string {
	return fmt.Sprintf("cov_%s", c.Name)
}

func (c Covariate) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return c.Name, true
	}
	return "", false
}

func (c Covariate) Type() FeatureType {
	return FeatureTypeCovariate
}

func (c Covariate) Decode() map[string]string {
	return map[string]string{"name": c.Name}
}
