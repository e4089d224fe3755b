package forecast

import (
	"bytes"
	"testing"
	"time"

	"github.com/aouyang1/go-demand/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelTablePrint(t *testing.T) {
	testData := map[string]struct {
		m        Model
		prefix   string
		indent   string
		expected []string
	}{
		"no input": {
			expected: []string{
				"Forecast:\n",
				"Training Window: 0001-01-01 to 0001-01-01\n",
				"Weights:\n",
				"intercept",
			},
		},
		"with options and scores": {
			m: Model{
				TrainStartTime: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
				TrainEndTime:   time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC),
				Options:        NewDefaultOptions(),
				Scores:         &Scores{MAPE: 0.1234, MSE: 1.2345, R2: 0.0123, MAE: 2, RMSE: 1.111},
				Weights: Weights{
					Intercept: 100,
					Coef: []FeatureWeight{
						NewFeatureWeight(feature.Linear(), 12.5),
						NewFeatureWeight(feature.NewEvent("Republic_Day"), 0),
					},
				},
			},
			prefix: "--",
			indent: "**",
			expected: []string{
				"--Forecast:\n",
				"--**Training Window: 2020-01-01 to 2022-12-31\n",
				"--**Multiplicative: false    Regularization: 1.000    Interval Z: 1.282\n",
				"--**Seasonality:\n",
				"--**National Holidays: true\n",
				"--Scores:\n",
				"--**MAPE: 0.123    MSE: 1.234    R2: 0.012    MAE: 2.000    RMSE: 1.111\n",
				"12.500",
				"...",
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var b bytes.Buffer
			require.NoError(t, td.m.TablePrint(&b, td.prefix, td.indent))
			for _, e := range td.expected {
				assert.Contains(t, b.String(), e)
			}
		})
	}
}

func TestFeatureWeightToFeature(t *testing.T) {
	testData := map[string]struct {
		fw       *FeatureWeight
		expected feature.Feature
		err      error
	}{
		"nil": {
			err: feature.ErrUnknownFeatureType,
		},
		"seasonality": {
			fw:       &FeatureWeight{Type: feature.FeatureTypeSeasonality, Labels: feature.NewSeasonality("yearly", feature.FourierCompSin, 2).Decode()},
			expected: feature.NewSeasonality("yearly", feature.FourierCompSin, 2),
		},
		"covariate": {
			fw:       &FeatureWeight{Type: feature.FeatureTypeCovariate, Labels: map[string]string{"name": "temp"}},
			expected: feature.NewCovariate("temp"),
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := td.fw.ToFeature()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, res)
		})
	}
}
