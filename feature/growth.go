package feature

import (
	"strings"
	"time"
)

const (
	GrowthIntercept = "intercept"
	GrowthLinear    = "linear"
)

// Growth is a trend column over time scaled onto the training window
type Growth struct {
	Name string `json:"name"`
}

func NewGrowth(name string) *Growth {
	return &Growth{Name: name}
}

func Intercept() *Growth {
	return NewGrowth(GrowthIntercept)
}

func Linear() *Growth {
	return NewGrowth(GrowthLinear)
}

func (g Growth) String() string {
	return "growth_" + g.Name
}

func (g Growth) Get(label string) (string, bool) {
	if strings.EqualFold(label, "name") {
		return g.Name, true
	}
	return "", false
}

func (g Growth) Type() FeatureType {
	return FeatureTypeGrowth
}

func (g Growth) Decode() map[string]string {
	return map[string]string{"name": g.Name}
}

// Generate returns the growth column for the epoch seconds with the training window
// mapped onto [0, 1]. An empty window or an unknown growth gives nil.
func (g Growth) Generate(epoch []float64, trainStartTime, trainEndTime time.Time) []float64 {
	start := float64(trainStartTime.UnixNano()) / 1e9
	span := float64(trainEndTime.UnixNano())/1e9 - start
	if span <= 0 {
		return nil
	}

	var curve func(x float64) float64
	switch g.Name {
	case GrowthIntercept:
		curve = func(float64) float64 { return 1 }
	case GrowthLinear:
		curve = func(x float64) float64 { return x }
	default:
		return nil
	}

	res := make([]float64, len(epoch))
	for i, e := range epoch {
		res[i] = curve((e - start) / span)
	}
	return res
}
