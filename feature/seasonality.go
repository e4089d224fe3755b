package feature

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

type FourierComp string

const (
	FourierCompSin FourierComp = "sin"
	FourierCompCos FourierComp = "cos"
)

// Seasonality is one fourier term of a periodic component such as the yearly or weekly
// cycle of demand.
type Seasonality struct {
	Name        string      `json:"name"`
	FourierComp FourierComp `json:"fourier_component"`
	Order       int         `json:"order"`
}

func NewSeasonality(name string, fcomp FourierComp, order int) *Seasonality {
	return &Seasonality{name, fcomp, order}
}

func (s Seasonality) String() string {
	return fmt.Sprintf("seas_%s_%02d_%s", s.Name, s.Order, s.FourierComp)
}

func (s Seasonality) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return s.Name, true
	case "fourier_component":
		return string(s.FourierComp), true
	case "order":
		return strconv.Itoa(s.Order), true
	}
	return "", false
}

func (s Seasonality) Type() FeatureType {
	return FeatureTypeSeasonality
}

func (s Seasonality) Decode() map[string]string {
	res := make(map[string]string)
	res["name"] = s.Name
	res["fourier_component"] = string(s.FourierComp)
	res["order"] = strconv.Itoa(s.Order)
	return res
}

// UnmarshalJSON accepts the order either as a number or as the decoded string form
func (s *Seasonality) UnmarshalJSON(data []byte) error {
	var labelStr struct {
		Name        string          `json:"name"`
		FourierComp FourierComp     `json:"fourier_component"`
		Order       json.RawMessage `json:"order"`
	}
	if err := json.Unmarshal(data, &labelStr); err != nil {
		return err
	}
	order, err := strconv.Atoi(strings.Trim(string(labelStr.Order), `"`))
	if err != nil {
		return fmt.Errorf("unable to parse seasonality order, %w", err)
	}
	s.Name = labelStr.Name
	s.FourierComp = labelStr.FourierComp
	s.Order = order
	return nil
}

// Generate evaluates the fourier term at each time point t for the given order and
// period. t and period must share units.
func (s Seasonality) Generate(t []float64, order int, period float64) []float64 {
	res := make([]float64, len(t))
	omega := 2.0 * math.Pi * float64(order) / period
	for i, tPnt := range t {
		switch s.FourierComp {
		case FourierCompSin:
			res[i] = math.Sin(omega * tPnt)
		case FourierCompCos:
			res[i] = math.Cos(omega * tPnt)
		}
	}
	return res
}

// DaysSinceEpoch converts epoch seconds into fractional days which is the unit used for
// daily seasonalities.
func DaysSinceEpoch(epoch []float64) []float64 {
	res := make([]float64, len(epoch))
	for i, e := range epoch {
		res[i] = e / 86400.0
	}
	return res
}

func atoiLabel(labels map[string]string, key string) (int, error) {
	v, err := strconv.Atoi(labels[key])
	if err != nil {
		return 0, fmt.Errorf("unable to parse %s label, %w", key, err)
	}
	return v, nil
}
