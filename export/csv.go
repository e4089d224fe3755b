package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aouyang1/go-demand/store"
)

// FileNames maps a model to the file its runs are written to
var FileNames = map[string]string{
	store.ModelBoosting:      "xgboost_forecast.csv",
	store.ModelDecomposition: "prophet_forecast.csv",
}

// CSV overwrites one file per model in Dir with the latest run
type CSV struct {
	Dir string
}

func NewCSV(dir string) *CSV {
	return &CSV{Dir: dir}
}

// FileName returns the file a model is exported to
func FileName(model string) string {
	if name, exists := FileNames[model]; exists {
		return name
	}
	return model + "_forecast.csv"
}

func (c *CSV) Export(ctx context.Context, run *store.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("unable to create export directory, %w", err)
	}
	path := filepath.Join(c.Dir, FileName(run.Model))

	// write next to the target and rename so readers never see a partial file
	tmp, err := os.CreateTemp(c.Dir, ".forecast-*.csv")
	if err != nil {
		return fmt.Errorf("unable to create export file, %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := WriteRun(tmp, run); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("unable to move export file into place, %w", err)
	}
	return nil
}

// WriteRun writes the run as csv. Bounded runs use the ds,yhat,yhat_lower,yhat_upper
// layout and unbounded runs use date,forecast.
func WriteRun(w io.Writer, run *store.Run) error {
	cw := csv.NewWriter(w)
	header := []string{"date", "forecast"}
	if run.Bounded {
		header = []string{"ds", "yhat", "yhat_lower", "yhat_upper"}
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, p := range run.Points {
		rec := []string{p.Date.Format(time.DateOnly), formatFloat(p.Value)}
		if run.Bounded {
			rec = append(rec, formatFloat(p.Lower), formatFloat(p.Upper))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
