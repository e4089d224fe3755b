package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/aouyang1/go-demand/dataset"
	"github.com/aouyang1/go-demand/eda"
	"github.com/aouyang1/go-demand/plot"
	"github.com/aouyang1/go-demand/service"
	"github.com/aouyang1/go-demand/store"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageHome           = "home"
	pageData           = "data"
	pageVisualizations = "visualizations"
	pageForecasting    = "forecasting"
	pageInsights       = "insights"
	pageError          = "error"
	pageReactive       = "reactive"
)

var funcs = template.FuncMap{
	"num": func(v float64, decimals int) string {
		if math.IsNaN(v) {
			return "-"
		}
		return strconv.FormatFloat(eda.Round(v, decimals), 'f', decimals, 64)
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format(time.DateOnly)
	},
	"holiday": func(h *bool) string {
		switch {
		case h == nil:
			return "-"
		case *h:
			return dataset.HolidayLabel
		default:
			return dataset.WorkLabel
		}
	},
	"covariate": func(rec dataset.Record, name string) float64 {
		v, exists := rec.Covariates[name]
		if !exists {
			return math.NaN()
		}
		return v
	},
}

type pages struct {
	tmpl *template.Template
}

func parsePages() (*pages, error) {
	tmpl, err := template.New("pages").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("unable to parse templates, %w", err)
	}
	return &pages{tmpl: tmpl}, nil
}

// view is the data handed to every classic page
type view struct {
	Title   string
	Active  string
	Message string

	Summary    *eda.Summary
	Insights   *eda.Insights
	Aggregates *service.Aggregates
	Records    []dataset.Record
	Covariates []string
	Charts     []plot.Named

	Models    []string
	Model     string
	Forecasts []service.ForecastStats
	Points    []store.Point
	Bounded   bool
}

// render executes the page into a buffer first so a failing template never leaves a
// partial response
func (s *Server) render(w http.ResponseWriter, status int, name string, v *view) {
	var buf bytes.Buffer
	if err := s.pages.tmpl.ExecuteTemplate(&buf, name, v); err != nil {
		slog.Error("unable to render page", "page", name, "error", err)
		http.Error(w, "unable to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("unable to write page", "page", name, "error", err)
	}
}

func (s *Server) renderError(w http.ResponseWriter, status int, msg string) {
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "error", msg)
	}
	s.render(w, status, pageError, &view{Title: "Error", Message: msg})
}
