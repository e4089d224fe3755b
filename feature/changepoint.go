package feature

import (
	"strings"
	"time"
)

type ChangepointComp string

const (
	ChangepointCompBias  ChangepointComp = "bias"
	ChangepointCompSlope ChangepointComp = "slope"
)

// Changepoint allows the trend to jump (bias) or bend (slope) after a point in time
type Changepoint struct {
	Name            string          `json:"name"`
	ChangepointComp ChangepointComp `json:"changepoint_component"`
}

func NewChangepoint(name string, comp ChangepointComp) *Changepoint {
	return &Changepoint{Name: name, ChangepointComp: comp}
}

func (c Changepoint) String() string {
	return "chpnt_" + c.Name + "_" + string(c.ChangepointComp)
}

func (c Changepoint) Get(label string) (string, bool) {
	v, exists := c.Decode()[strings.ToLower(label)]
	return v, exists
}

func (c Changepoint) Type() FeatureType {
	return FeatureTypeChangepoint
}

func (c Changepoint) Decode() map[string]string {
	return map[string]string{
		"name":                  c.Name,
		"changepoint_component": string(c.ChangepointComp),
	}
}

// Generate returns the changepoint column for the epoch seconds. The slope component grows
// from zero at the changepoint at the same scale as linear growth. The bias component is a
// step from zero to one.
func (c Changepoint) Generate(epoch []float64, chpnt, trainStartTime, trainEndTime time.Time) []float64 {
	span := trainEndTime.Sub(trainStartTime).Seconds()
	if span <= 0 {
		return nil
	}
	at := float64(chpnt.UnixNano()) / 1e9

	res := make([]float64, len(epoch))
	for i, e := range epoch {
		if e < at {
			continue
		}
		switch c.ChangepointComp {
		case ChangepointCompBias:
			res[i] = 1.0
		case ChangepointCompSlope:
			res[i] = (e - at) / span
		}
	}
	return res
}
