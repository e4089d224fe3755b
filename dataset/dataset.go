// Package dataset loads the daily demand csv and prepares it for analysis
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aouyang1/go-demand/timedataset"
)

const (
	ColumnDate    = "Date"
	ColumnDemand  = "demand"
	ColumnEnergy  = "Energy Required (MU)"
	ColumnHoliday = "Holiday"

	HolidayLabel = "Holiday"
	WorkLabel    = "Work"
)

var (
	ErrMissingDateColumn   = errors.New("missing Date column")
	ErrMissingDemandColumn = errors.New("missing demand column")
	ErrNoRows              = errors.New("no data rows")
	ErrParseDate           = errors.New("unable to parse date")
	ErrParseValue          = errors.New("unable to parse numeric value")
	ErrRowLen              = errors.New("row has a different number of fields than the header")
)

// DateFormats are tried in order when parsing the Date column
var DateFormats = []string{
	time.DateOnly,
	"02-01-2006",
	"2006/01/02",
	"01/02/2006",
	time.RFC3339,
	time.DateTime,
}

// Raw is the unparsed content of a csv file
type Raw struct {
	Header  []string
	Records [][]string
}

// LoadCSV reads a header row followed by records
func LoadCSV(r io.Reader) (*Raw, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to read csv, %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoRows
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return &Raw{Header: header, Records: records[1:]}, nil
}

// LoadFile opens path and reads it with LoadCSV
func LoadFile(path string) (*Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s, %w", path, err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// Options configures Prepare
type Options struct {
	// DemandColumn overrides the column holding demand. When empty the energy column or a
	// column already named demand is used.
	DemandColumn string `json:"demand_column"`
}

// Frame is the prepared daily series. Dates are sorted and unique. Covariates hold every
// other numeric column keyed by name. Holiday is nil when the source has no Holiday
// column.
type Frame struct {
	Dates      []time.Time
	Demand     []float64
	Covariates map[string][]float64
	Holiday    []bool
}

// Prepare parses the raw records into a Frame. Dates are sorted ascending and duplicate
// dates keep the last record. Missing numeric values are forward filled and then
// backward filled. Non-numeric columns are dropped.
func Prepare(raw *Raw, opt *Options) (*Frame, error) {
	if raw == nil || len(raw.Records) == 0 {
		return nil, ErrNoRows
	}
	if opt == nil {
		opt = &Options{}
	}

	dateIdx := indexOf(raw.Header, ColumnDate)
	if dateIdx < 0 {
		return nil, ErrMissingDateColumn
	}
	demandIdx := -1
	for _, name := range []string{opt.DemandColumn, ColumnEnergy, ColumnDemand} {
		if name == "" {
			continue
		}
		if demandIdx = indexOf(raw.Header, name); demandIdx >= 0 {
			break
		}
	}
	if demandIdx < 0 {
		return nil, ErrMissingDemandColumn
	}
	holidayIdx := indexOf(raw.Header, ColumnHoliday)

	n := len(raw.Records)
	dates := make([]time.Time, n)
	for i, rec := range raw.Records {
		if len(rec) != len(raw.Header) {
			return nil, fmt.Errorf("row %d has %d fields, expected %d, %w", i+2, len(rec), len(raw.Header), ErrRowLen)
		}
		d, err := ParseDate(rec[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d, %w", i+2, err)
		}
		dates[i] = d
	}

	demand, err := parseColumn(raw.Records, demandIdx)
	if err != nil {
		return nil, fmt.Errorf("column %q, %w", raw.Header[demandIdx], err)
	}

	covariates := make(map[string][]float64)
	for j, name := range raw.Header {
		if j == dateIdx || j == demandIdx || j == holidayIdx || name == "" {
			continue
		}
		col, err := parseColumn(raw.Records, j)
		if err != nil {
			// text columns are not covariates
			continue
		}
		covariates[name] = col
	}

	var holiday []float64
	if holidayIdx >= 0 {
		holiday = make([]float64, n)
		for i, rec := range raw.Records {
			holiday[i] = parseHoliday(rec[holidayIdx])
		}
	}

	order := dedupeLast(dates)
	f := &Frame{
		Dates:      make([]time.Time, len(order)),
		Demand:     pick(demand, order),
		Covariates: make(map[string][]float64, len(covariates)),
	}
	for i, idx := range order {
		f.Dates[i] = dates[idx]
	}
	fillMissing(f.Demand)
	for name, col := range covariates {
		c := pick(col, order)
		fillMissing(c)
		f.Covariates[name] = c
	}
	if holiday != nil {
		h := pick(holiday, order)
		fillMissing(h)
		f.Holiday = make([]bool, len(h))
		for i, v := range h {
			f.Holiday[i] = v == 1
		}
	}
	return f, nil
}

// ParseDate tries every supported layout and truncates the result to a UTC day
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range DateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q, %w", s, ErrParseDate)
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func parseColumn(records [][]string, j int) ([]float64, error) {
	col := make([]float64, len(records))
	for i, rec := range records {
		v := strings.TrimSpace(rec[j])
		if v == "" || strings.EqualFold(v, "nan") {
			col[i] = math.NaN()
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d value %q, %w", i+2, v, ErrParseValue)
		}
		col[i] = f
	}
	return col, nil
}

// parseHoliday maps Holiday to 1, Work to 0 and anything else to missing
func parseHoliday(s string) float64 {
	switch {
	case strings.EqualFold(strings.TrimSpace(s), HolidayLabel):
		return 1
	case strings.EqualFold(strings.TrimSpace(s), WorkLabel):
		return 0
	}
	return math.NaN()
}

// dedupeLast returns the record indexes sorted by date keeping the last record of every
// repeated date
func dedupeLast(dates []time.Time) []int {
	idx := make([]int, len(dates))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return dates[idx[a]].Before(dates[idx[b]])
	})

	res := make([]int, 0, len(idx))
	for _, i := range idx {
		if len(res) > 0 && dates[res[len(res)-1]].Equal(dates[i]) {
			res[len(res)-1] = i
			continue
		}
		res = append(res, i)
	}
	return res
}

func pick(col []float64, order []int) []float64 {
	res := make([]float64, len(order))
	for i, idx := range order {
		res[i] = col[idx]
	}
	return res
}

// fillMissing forward fills NaN values and backward fills any leading NaN values
func fillMissing(col []float64) {
	last := math.NaN()
	for i, v := range col {
		if math.IsNaN(v) {
			col[i] = last
			continue
		}
		last = v
	}
	next := math.NaN()
	for i := len(col) - 1; i >= 0; i-- {
		if math.IsNaN(col[i]) {
			col[i] = next
			continue
		}
		next = col[i]
	}
}

// Len returns the number of days in the frame
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Dates)
}

// CovariateNames returns the sorted covariate names
func (f *Frame) CovariateNames() []string {
	names := make([]string, 0, len(f.Covariates))
	for name := range f.Covariates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dataset converts the frame into a time dataset with demand as the target
func (f *Frame) Dataset() (*timedataset.TimeDataset, error) {
	if f.Len() == 0 {
		return nil, ErrNoRows
	}
	return timedataset.NewDataset(f.Dates, f.Demand, f.Covariates)
}

// Gap is a stretch of missing days between two consecutive dates
type Gap struct {
	After  time.Time `json:"after"`
	Before time.Time `json:"before"`
}

// Days returns the number of missing days
func (g Gap) Days() int {
	return int(g.Before.Sub(g.After)/timedataset.Day) - 1
}

// Gaps returns every break in the daily index
func (f *Frame) Gaps() []Gap {
	var gaps []Gap
	for i := 1; i < f.Len(); i++ {
		if !f.Dates[i].Equal(f.Dates[i-1].AddDate(0, 0, 1)) {
			gaps = append(gaps, Gap{After: f.Dates[i-1], Before: f.Dates[i]})
		}
	}
	return gaps
}

// Validate reports the first gap in the daily index
func (f *Frame) Validate() error {
	if f.Len() == 0 {
		return ErrNoRows
	}
	gaps := f.Gaps()
	if len(gaps) == 0 {
		return nil
	}
	return fmt.Errorf("%d gaps, first after %s missing %d days, %w",
		len(gaps), gaps[0].After.Format(time.DateOnly), gaps[0].Days(), timedataset.ErrNonContiguous)
}

// Record is a single row of the frame
type Record struct {
	Date       time.Time          `json:"date"`
	Demand     float64            `json:"demand"`
	Covariates map[string]float64 `json:"covariates,omitempty"`
	Holiday    *bool              `json:"holiday,omitempty"`
}

// Head returns up to the first n records
func (f *Frame) Head(n int) []Record {
	n = min(max(n, 0), f.Len())
	res := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		rec := Record{Date: f.Dates[i], Demand: f.Demand[i]}
		if len(f.Covariates) > 0 {
			rec.Covariates = make(map[string]float64, len(f.Covariates))
			for name, col := range f.Covariates {
				rec.Covariates[name] = col[i]
			}
		}
		if f.Holiday != nil {
			h := f.Holiday[i]
			rec.Holiday = &h
		}
		res = append(res, rec)
	}
	return res
}

// FromDataset builds a frame from a dataset. holiday may be nil.
func FromDataset(td *timedataset.TimeDataset, holiday []bool) *Frame {
	td = td.Copy()
	return &Frame{
		Dates:      td.T,
		Demand:     td.Y,
		Covariates: td.X,
		Holiday:    holiday,
	}
}

// WriteCSV writes the frame in the source layout with the energy column name so the
// output can be read back by LoadCSV and Prepare
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	names := f.CovariateNames()
	header := append([]string{ColumnDate, ColumnEnergy}, names...)
	if f.Holiday != nil {
		header = append(header, ColumnHoliday)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := 0; i < f.Len(); i++ {
		rec := []string{
			f.Dates[i].Format(time.DateOnly),
			strconv.FormatFloat(f.Demand[i], 'f', -1, 64),
		}
		for _, name := range names {
			rec = append(rec, strconv.FormatFloat(f.Covariates[name][i], 'f', -1, 64))
		}
		if f.Holiday != nil {
			label := WorkLabel
			if f.Holiday[i] {
				label = HolidayLabel
			}
			rec = append(rec, label)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FromRecords rebuilds a frame from records sorted by date. The frame has a holiday
// column only when every record carries one.
func FromRecords(recs []Record) *Frame {
	f := &Frame{
		Dates:      make([]time.Time, len(recs)),
		Demand:     make([]float64, len(recs)),
		Covariates: make(map[string][]float64),
	}
	hasHoliday := len(recs) > 0
	for i, rec := range recs {
		f.Dates[i] = rec.Date
		f.Demand[i] = rec.Demand
		for name, v := range rec.Covariates {
			col, exists := f.Covariates[name]
			if !exists {
				col = make([]float64, len(recs))
				for j := range col {
					col[j] = math.NaN()
				}
				f.Covariates[name] = col
			}
			col[i] = v
		}
		if rec.Holiday == nil {
			hasHoliday = false
		}
	}
	if hasHoliday {
		f.Holiday = make([]bool, len(recs))
		for i, rec := range recs {
			f.Holiday[i] = *rec.Holiday
		}
	}
	return f
}
