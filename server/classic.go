package server

import (
	"net/http"
	"slices"
	"time"

	"github.com/aouyang1/go-demand/service"
	"github.com/aouyang1/go-demand/store"
)

// forecastRows is the number of forecast days listed on a page or returned by the
// forecast data api
const forecastRows = 30

func (s *Server) classicRoutes(mux *http.ServeMux) {
	s.handle(mux, "GET /{$}", s.home)
	s.handle(mux, "GET /data-overview", s.dataOverview)
	s.handle(mux, "GET /visualizations", s.visualizations)
	s.handle(mux, "GET /forecasting", s.forecasting)
	s.handle(mux, "GET /insights", s.insights)

	s.handle(mux, "GET /api/data-stats", s.apiDataStats)
	s.handle(mux, "GET /api/forecast-data", s.apiForecastData)
	s.handle(mux, "GET /api/forecast/{model}", s.apiForecast)
	s.handle(mux, "POST /api/reload", s.apiReload)

	s.handle(mux, "/", s.notFound)
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	v := &view{Title: "Home", Active: pageHome}
	// a missing dataset still renders the landing page without numbers
	if summary, err := s.svc.Summary(r.Context()); err == nil {
		v.Summary = summary
	}
	s.render(w, http.StatusOK, pageHome, v)
}

func (s *Server) dataOverview(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Snapshot(r.Context())
	if err != nil {
		s.renderError(w, statusOf(err), "Data not found")
		return
	}
	s.render(w, http.StatusOK, pageData, &view{
		Title:      "Data Overview",
		Active:     pageData,
		Summary:    snap.Analysis.Summary,
		Records:    snap.Frame.Head(service.DefaultHeadRows),
		Covariates: snap.Frame.CovariateNames(),
	})
}

func (s *Server) visualizations(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Snapshot(r.Context())
	if err != nil {
		s.renderError(w, statusOf(err), "Data not found")
		return
	}
	s.render(w, http.StatusOK, pageVisualizations, &view{
		Title:      "Visualizations",
		Active:     pageVisualizations,
		Aggregates: snap.Aggregates(),
		Charts:     snap.Charts,
	})
}

// forecasting lists every stored run and the leading days of the selected model
func (s *Server) forecasting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	model := r.URL.Query().Get("model")
	if model == "" {
		model = store.ModelDecomposition
	}
	if !slices.Contains(service.Models, model) {
		s.renderError(w, http.StatusNotFound, "Unknown forecast model "+model)
		return
	}

	v := &view{Title: "Forecasting", Active: pageForecasting, Models: service.Models, Model: model}
	var err error
	if v.Summary, err = s.svc.Summary(ctx); err != nil {
		s.renderError(w, statusOf(err), "Data not found")
		return
	}
	if v.Forecasts, err = s.svc.ForecastStats(ctx); err != nil {
		s.renderError(w, statusOf(err), err.Error())
		return
	}
	if run, err := s.svc.Forecast(ctx, model); err == nil {
		v.Points = run.Points[:min(forecastRows, len(run.Points))]
		v.Bounded = run.Bounded
	}
	s.render(w, http.StatusOK, pageForecasting, v)
}

func (s *Server) insights(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Snapshot(r.Context())
	if err != nil {
		s.renderError(w, statusOf(err), "Data not found")
		return
	}
	s.render(w, http.StatusOK, pageInsights, &view{
		Title:    "Insights",
		Active:   pageInsights,
		Summary:  snap.Analysis.Summary,
		Insights: snap.Analysis.Insights,
	})
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, http.StatusNotFound, "Page not found")
}

func (s *Server) apiDataStats(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Summary(r.Context())
	if err != nil {
		writeJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// bandPoint is a forecast day in the decomposition csv layout
type bandPoint struct {
	DS        string  `json:"ds"`
	YHat      float64 `json:"yhat"`
	YHatLower float64 `json:"yhat_lower"`
	YHatUpper float64 `json:"yhat_upper"`
}

// apiForecastData returns the leading days of the decomposition forecast with its
// uncertainty band
func (s *Server) apiForecastData(w http.ResponseWriter, r *http.Request) {
	run, err := s.svc.Forecast(r.Context(), store.ModelDecomposition)
	if err != nil {
		writeJSONError(w, err)
		return
	}
	n := min(forecastRows, len(run.Points))
	res := make([]bandPoint, n)
	for i, p := range run.Points[:n] {
		res[i] = bandPoint{
			DS:        p.Date.Format(time.DateOnly),
			YHat:      p.Value,
			YHatLower: p.Lower,
			YHatUpper: p.Upper,
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) apiForecast(w http.ResponseWriter, r *http.Request) {
	run, err := s.svc.Forecast(r.Context(), r.PathValue("model"))
	if err != nil {
		writeJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

type reloadBody struct {
	Records int      `json:"records"`
	Models  []string `json:"models"`
	Charts  int      `json:"charts"`
	Loaded  string   `json:"loaded"`
}

func (s *Server) apiReload(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Reload(r.Context())
	if err != nil {
		writeJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReloadBody(snap))
}

func newReloadBody(snap *service.Snapshot) reloadBody {
	res := reloadBody{
		Records: snap.Frame.Len(),
		Models:  []string{},
		Charts:  len(snap.Charts),
		Loaded:  snap.Loaded.UTC().Format(time.RFC3339),
	}
	for _, model := range service.Models {
		if _, exists := snap.Runs[model]; exists {
			res.Models = append(res.Models, model)
		}
	}
	return res
}
