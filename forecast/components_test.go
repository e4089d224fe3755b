package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResults(start time.Time, vals ...float64) *Results {
	res := &Results{Components: newComponents(len(vals))}
	for i, v := range vals {
		res.T = append(res.T, start.AddDate(0, 0, i))
		res.Forecast = append(res.Forecast, v)
		res.Lower = append(res.Lower, v-1)
		res.Upper = append(res.Upper, v+1)
		res.Components.Trend[i] = v
	}
	return res
}

func TestResultsTailAppend(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	a := testResults(start, 1, 2, 3)
	b := testResults(start.AddDate(0, 0, 3), 4, 5)

	joined := a.Append(b)
	require.Equal(t, 5, joined.Len())
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, joined.Forecast)
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, joined.Lower)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, joined.Components.Trend)
	assert.Equal(t, start.AddDate(0, 0, 4), joined.T[4])

	// appending never aliases the inputs
	joined.Forecast[0] = 100
	assert.Equal(t, 1.0, a.Forecast[0])

	tail := joined.Tail(2)
	assert.Equal(t, []float64{4, 5}, tail.Forecast)
	assert.Equal(t, []float64{0, 0}, tail.Components.Events)
	assert.Equal(t, 5, joined.Tail(10).Len())

	var empty *Results
	assert.Equal(t, b, empty.Append(b))
	assert.Equal(t, a, a.Append(nil))
	assert.Equal(t, 0, empty.Len())
}
