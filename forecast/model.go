package forecast

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-demand/feature"
	"github.com/aouyang1/go-demand/forecast/util"
	"github.com/goccy/go-json"
)

// Model represents a serializeable format of a forecast storing the forecast options, fit
// scores, and coefficients
type Model struct {
	TrainStartTime time.Time                 `json:"train_start_time"`
	TrainEndTime   time.Time                 `json:"train_end_time"`
	Options        *Options                  `json:"options"`
	Scores         *Scores                   `json:"scores"`
	Sigma          float64                   `json:"sigma"`
	Regressors     map[string]RegressorScale `json:"regressors,omitempty"`
	Weights        Weights                   `json:"weights"`
}

// Model returns the serializeable representation of a trained forecast
func (f *Forecast) Model() (Model, error) {
	if !f.trained {
		return Model{}, ErrUntrainedForecast
	}
	labels := f.fLabels.Labels()
	weights := Weights{
		Intercept: f.intercept,
		Coef:      make([]FeatureWeight, 0, len(labels)),
	}
	for i, label := range labels {
		weights.Coef = append(weights.Coef, NewFeatureWeight(label, f.coef[i]))
	}

	regressors := make(map[string]RegressorScale, len(f.regressors))
	for name, scale := range f.regressors {
		regressors[name] = scale
	}
	scores := f.Scores()
	return Model{
		TrainStartTime: f.trainStartTime,
		TrainEndTime:   f.trainEndTime,
		Options:        f.opt,
		Scores:         &scores,
		Sigma:          f.sigma,
		Regressors:     regressors,
		Weights:        weights,
	}, nil
}

// NewFromModel rebuilds a trained forecast from its serialized model
func NewFromModel(model Model) (*Forecast, error) {
	opt, err := model.Options.Validate()
	if err != nil {
		return nil, fmt.Errorf("unable to validate options, %w", err)
	}
	labels, err := model.Weights.FeatureLabels()
	if err != nil {
		return nil, fmt.Errorf("unable to decode feature labels, %w", err)
	}
	for _, name := range opt.Regressors {
		if _, exists := model.Regressors[name]; !exists {
			return nil, fmt.Errorf("no scale for %q, %w", name, ErrMissingRegressor)
		}
	}

	return &Forecast{
		opt:            opt,
		scores:         model.Scores,
		fLabels:        feature.NewLabels(labels),
		trainStartTime: model.TrainStartTime,
		trainEndTime:   model.TrainEndTime,
		sigma:          model.Sigma,
		regressors:     model.Regressors,
		coef:           model.Weights.Coefficients(),
		intercept:      model.Weights.Intercept,
		trained:        true,
	}, nil
}

func (m Model) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%s%sForecast:\n", prefix, util.IndentExpand(indent, 0)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sTraining Window: %s to %s\n", prefix, util.IndentExpand(indent, 1),
		m.TrainStartTime.Format(time.DateOnly), m.TrainEndTime.Format(time.DateOnly)); err != nil {
		return err
	}

	if m.Options != nil {
		if _, err := fmt.Fprintf(w, "%s%sMultiplicative: %t    Regularization: %.3f    Interval Z: %.3f\n",
			prefix, util.IndentExpand(indent, 1),
			m.Options.UseLog, m.Options.Regularization, m.Options.IntervalZScore); err != nil {
			return err
		}
		if err := m.Options.SeasonalityOptions.TablePrint(w, prefix, indent, 1); err != nil {
			return err
		}
		if err := m.Options.ChangepointOptions.TablePrint(w, prefix, indent, 1); err != nil {
			return err
		}
		if err := m.Options.EventOptions.TablePrint(w, prefix, indent, 1); err != nil {
			return err
		}
	}

	if m.Scores != nil {
		if _, err := fmt.Fprintf(w, "%s%sScores:\n", prefix, util.IndentExpand(indent, 0)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s%sMAPE: %.3f    MSE: %.3f    R2: %.3f    MAE: %.3f    RMSE: %.3f\n",
			prefix, util.IndentExpand(indent, 1),
			m.Scores.MAPE,
			m.Scores.MSE,
			m.Scores.R2,
			m.Scores.MAE,
			m.Scores.RMSE,
		); err != nil {
			return err
		}
	}

	return m.Weights.tablePrint(w, prefix, indent, 0)
}

// Weights stores the intercept and coefficients for the forecast model
type Weights struct {
	Intercept float64         `json:"intercept"`
	Coef      []FeatureWeight `json:"coefficients"`
}

// FeatureLabels returns all of the feature labels in the same order as the coefficients
func (w *Weights) FeatureLabels() ([]feature.Feature, error) {
	labels := make([]feature.Feature, 0, len(w.Coef))
	for _, fw := range w.Coef {
		feat, err := fw.ToFeature()
		if err != nil {
			return nil, err
		}
		labels = append(labels, feat)
	}
	return labels, nil
}

// Coefficients returns a slice copy of the coefficients ignoring the intercept.
func (w *Weights) Coefficients() []float64 {
	coef := make([]float64, 0, len(w.Coef))
	for _, fw := range w.Coef {
		coef = append(coef, fw.Value)
	}
	return coef
}

func (w Weights) tablePrint(wr io.Writer, prefix, indent string, indentGrowth int) error {
	if _, err := fmt.Fprintf(wr, "%s%sWeights:\n", prefix, util.IndentExpand(indent, indentGrowth)); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(wr, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sType\tLabels\tValue\t\n", prefix, util.IndentExpand(indent, indentGrowth+1)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(tbl, "%s%sintercept\t\t%.3f\t\n", prefix, util.IndentExpand(indent, indentGrowth+1), w.Intercept); err != nil {
		return err
	}
	for _, fw := range w.Coef {
		labelOut, err := json.Marshal(fw.Labels)
		if err != nil {
			return err
		}
		val := fmt.Sprintf("%.3f", fw.Value)
		if fw.Value == 0 {
			val = "..."
		}
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t%s\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			fw.Type, string(labelOut), val); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// FeatureWeight represents a feature described with a type e.g. changepoint, labels and the value
type FeatureWeight struct {
	Labels map[string]string   `json:"labels"`
	Type   feature.FeatureType `json:"type"`
	Value  float64             `json:"value"`
}

func NewFeatureWeight(f feature.Feature, val float64) FeatureWeight {
	return FeatureWeight{
		Labels: f.Decode(),
		Type:   f.Type(),
		Value:  val,
	}
}

// ToFeature transforms the Type and Labels into a feature type
func (fw *FeatureWeight) ToFeature() (feature.Feature, error) {
	if fw == nil {
		return nil, feature.ErrUnknownFeatureType
	}
	return feature.FromDecoded(fw.Type, fw.Labels)
}
