package feature

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownFeatureType  = errors.New("unknown feature type")
	ErrMissingFeature      = errors.New("feature not available in vector")
	ErrInsufficientHistory = errors.New("insufficient history to derive features")
)

type FeatureType int

const (
	FeatureTypeChangepoint FeatureType = iota
	FeatureTypeSeasonality
	FeatureTypeEvent
	FeatureTypeGrowth
	FeatureTypeLag
	FeatureTypeRolling
	FeatureTypeCalendar
	FeatureTypeCovariate
)

var featureTypeNames = map[FeatureType]string{
	FeatureTypeChangepoint: "changepoint",
	FeatureTypeSeasonality: "seasonality",
	FeatureTypeEvent:       "event",
	FeatureTypeGrowth:      "growth",
	FeatureTypeLag:         "lag",
	FeatureTypeRolling:     "rolling",
	FeatureTypeCalendar:    "calendar",
	FeatureTypeCovariate:   "covariate",
}

func (f FeatureType) String() string {
	if name, exists := featureTypeNames[f]; exists {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(f))
}

// ParseFeatureType is the inverse of FeatureType.String
func ParseFeatureType(s string) (FeatureType, error) {
	for ft, name := range featureTypeNames {
		if name == s {
			return ft, nil
		}
	}
	return 0, fmt.Errorf("%q, %w", s, ErrUnknownFeatureType)
}

// Feature is a single named column of a design matrix. The string representation must be
// unique across all features of a model.
type Feature interface {
	String() string
	Get(string) (string, bool)
	Type() FeatureType
	Decode() map[string]string
}

// FromDecoded rebuilds a feature from its type and the label map returned by Decode
func FromDecoded(ft FeatureType, labels map[string]string) (Feature, error) {
	switch ft {
	case FeatureTypeChangepoint:
		return NewChangepoint(labels["name"], ChangepointComp(labels["changepoint_component"])), nil
	case FeatureTypeSeasonality:
		order, err := atoiLabel(labels, "order")
		if err != nil {
			return nil, err
		}
		return NewSeasonality(labels["name"], FourierComp(labels["fourier_component"]), order), nil
	case FeatureTypeEvent:
		return NewEvent(labels["name"]), nil
	case FeatureTypeGrowth:
		return NewGrowth(labels["name"]), nil
	case FeatureTypeLag:
		days, err := atoiLabel(labels, "days")
		if err != nil {
			return nil, err
		}
		return NewLag(days), nil
	case FeatureTypeRolling:
		window, err := atoiLabel(labels, "window")
		if err != nil {
			return nil, err
		}
		return NewRolling(RollingStat(labels["stat"]), window), nil
	case FeatureTypeCalendar:
		return NewCalendar(CalendarField(labels["name"])), nil
	case FeatureTypeCovariate:
		return NewCovariate(labels["name"]), nil
	}
	return nil, fmt.Errorf("%s, %w", ft, ErrUnknownFeatureType)
}
