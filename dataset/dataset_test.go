package dataset

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/aouyang1/go-demand/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestLoadCSV(t *testing.T) {
	testData := map[string]struct {
		input    string
		expected *Raw
		err      error
	}{
		"empty": {
			input: "",
			err:   ErrNoRows,
		},
		"header only": {
			input:    "Date,demand\n",
			expected: &Raw{Header: []string{"Date", "demand"}, Records: [][]string{}},
		},
		"bom and spaces": {
			input: "\ufeffDate, Energy Required (MU)\n2015-01-01, 150\n",
			expected: &Raw{
				Header:  []string{"Date", "Energy Required (MU)"},
				Records: [][]string{{"2015-01-01", "150"}},
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := LoadCSV(strings.NewReader(td.input))
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected.Header, res.Header)
			assert.Len(t, res.Records, len(td.expected.Records))
			for i, rec := range td.expected.Records {
				assert.Equal(t, rec, res.Records[i])
			}
		})
	}
}

func TestPrepare(t *testing.T) {
	testData := map[string]struct {
		input    string
		opt      *Options
		expected *Frame
		err      error
	}{
		"missing date": {
			input: "day,demand\n2015-01-01,1\n",
			err:   ErrMissingDateColumn,
		},
		"missing demand": {
			input: "Date,load\n2015-01-01,1\n",
			err:   ErrMissingDemandColumn,
		},
		"no rows": {
			input: "Date,demand\n",
			err:   ErrNoRows,
		},
		"bad date": {
			input: "Date,demand\nyesterday,1\n",
			err:   ErrParseDate,
		},
		"bad demand": {
			input: "Date,demand\n2015-01-01,high\n",
			err:   ErrParseValue,
		},
		"short row": {
			input: "Date,demand,temp\n2015-01-01,1\n",
			err:   ErrRowLen,
		},
		"sort dedupe fill and rename": {
			input: strings.Join([]string{
				"Date,Energy Required (MU),temp,Holiday,Region",
				"03-01-2015,130,,Work,AP",
				"2015-01-01,,28,Holiday,AP",
				"2015/01/02,120,29,,AP",
				"2015-01-02,125,30,Work,AP",
			}, "\n"),
			expected: &Frame{
				Dates:      []time.Time{day(2015, 1, 1), day(2015, 1, 2), day(2015, 1, 3)},
				Demand:     []float64{125, 125, 130},
				Covariates: map[string][]float64{"temp": {28, 30, 30}},
				Holiday:    []bool{true, false, false},
			},
		},
		"custom demand column": {
			input: "Date,load\n2015-01-01,1\n",
			opt:   &Options{DemandColumn: "load"},
			expected: &Frame{
				Dates:      []time.Time{day(2015, 1, 1)},
				Demand:     []float64{1},
				Covariates: map[string][]float64{},
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			raw, err := LoadCSV(strings.NewReader(td.input))
			require.NoError(t, err)

			res, err := Prepare(raw, td.opt)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestParseDate(t *testing.T) {
	testData := map[string]struct {
		input    string
		expected time.Time
	}{
		"iso":      {input: "2016-02-29", expected: day(2016, 2, 29)},
		"dmy":      {input: "29-02-2016", expected: day(2016, 2, 29)},
		"slashes":  {input: "2016/02/29", expected: day(2016, 2, 29)},
		"us":       {input: "02/29/2016", expected: day(2016, 2, 29)},
		"rfc3339":  {input: "2016-02-29T18:30:00+05:30", expected: day(2016, 2, 29)},
		"datetime": {input: "2016-02-29 23:00:00", expected: day(2016, 2, 29)},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := ParseDate(td.input)
			require.NoError(t, err)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestFrameValidate(t *testing.T) {
	f := &Frame{
		Dates:  []time.Time{day(2015, 1, 1), day(2015, 1, 2), day(2015, 1, 5)},
		Demand: []float64{1, 2, 3},
	}
	gaps := f.Gaps()
	require.Len(t, gaps, 1)
	assert.Equal(t, 2, gaps[0].Days())
	assert.ErrorIs(t, f.Validate(), timedataset.ErrNonContiguous)

	f.Dates[2] = day(2015, 1, 3)
	assert.NoError(t, f.Validate())

	var empty *Frame
	assert.ErrorIs(t, empty.Validate(), ErrNoRows)
}

func TestFrameRoundTrip(t *testing.T) {
	td := timedataset.GenerateDailyDemand(day(2015, 1, 1), 20, 5)
	holiday := make([]bool, td.Len())
	holiday[3] = true
	f := FromDataset(td, holiday)

	var b bytes.Buffer
	require.NoError(t, f.WriteCSV(&b))
	assert.True(t, strings.HasPrefix(b.String(), "Date,Energy Required (MU),temp,Holiday\n"))

	raw, err := LoadCSV(&b)
	require.NoError(t, err)
	res, err := Prepare(raw, nil)
	require.NoError(t, err)
	assert.Equal(t, f, res)

	ds, err := res.Dataset()
	require.NoError(t, err)
	assert.Equal(t, td, ds)

	head := res.Head(5)
	require.Len(t, head, 5)
	assert.True(t, *head[3].Holiday)
	assert.Equal(t, td.X["temp"][0], head[0].Covariates["temp"])

	assert.Equal(t, res, FromRecords(res.Head(res.Len())))
}
