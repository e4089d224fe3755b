// Package server exposes the demand analysis over http, either as classic server
// rendered pages or as a reactive dashboard fed over a websocket
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aouyang1/go-demand/metrics"
	"github.com/aouyang1/go-demand/pipeline"
	"github.com/aouyang1/go-demand/service"
	"github.com/goccy/go-json"
)

const (
	ModeClassic  = "classic"
	ModeReactive = "reactive"

	DefaultAddr = "127.0.0.1:5000"

	shutdownTimeout = 5 * time.Second
)

var (
	ErrUnknownMode = errors.New("unknown server mode")
	ErrNoService   = errors.New("no service")
)

type Config struct {
	Addr         string        `json:"addr"`
	Mode         string        `json:"mode"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

func NewDefaultConfig() *Config {
	return &Config{
		Addr:         DefaultAddr,
		Mode:         ModeClassic,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Validate returns a copy of the config with defaults filled in
func (c *Config) Validate() (*Config, error) {
	if c == nil {
		return NewDefaultConfig(), nil
	}
	res := *c
	if res.Addr == "" {
		res.Addr = DefaultAddr
	}
	if res.Mode == "" {
		res.Mode = ModeClassic
	}
	if err := validMode(res.Mode); err != nil {
		return nil, err
	}
	return &res, nil
}

func validMode(mode string) error {
	switch mode {
	case ModeClassic, ModeReactive:
		return nil
	default:
		return fmt.Errorf("%q, %w", mode, ErrUnknownMode)
	}
}

// Server serves one front-end over the shared service
type Server struct {
	mode     string
	svc      *service.Service
	cfg      *Config
	recorder *metrics.Recorder
	pages    *pages
}

// New builds the server for the mode. An empty mode falls back to the configured one.
func New(mode string, svc *service.Service, cfg *Config) (*Server, error) {
	if svc == nil {
		return nil, ErrNoService
	}
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if mode == "" {
		mode = cfg.Mode
	}
	if err := validMode(mode); err != nil {
		return nil, err
	}
	p, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Server{mode: mode, svc: svc, cfg: cfg, pages: p}, nil
}

// WithRecorder records every request on rec
func (s *Server) WithRecorder(rec *metrics.Recorder) *Server {
	s.recorder = rec
	return s
}

func (s *Server) Mode() string {
	return s.mode
}

// Handler returns the routes of the server mode
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	switch s.mode {
	case ModeReactive:
		s.reactiveRoutes(mux)
	default:
		s.classicRoutes(mux)
	}
	s.handle(mux, "GET /charts/{name}", s.chart)
	mux.Handle("GET /metrics", metrics.Handler(nil))
	return mux
}

// Start serves until ctx is canceled
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("unable to shutdown server", "error", err)
		}
		cancel()
	}()

	slog.Info("serving demand dashboard", "addr", ln.Addr().String(), "mode", s.mode)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handle registers h under pattern and records each request against the pattern
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.instrument(pattern, h))
}

func (s *Server) instrument(route string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		h.ServeHTTP(sw, r)
		s.recorder.ObserveRequest(route, sw.code, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.code = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Hijack lets the websocket upgrade take over the connection
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.code = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("unable to encode json response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSONError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// statusOf maps service errors onto http status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownModel),
		errors.Is(err, service.ErrNoForecast),
		errors.Is(err, service.ErrChartNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrNoData):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) chart(w http.ResponseWriter, r *http.Request) {
	named, err := s.svc.Chart(r.Context(), r.PathValue("name"))
	if err != nil {
		s.renderError(w, statusOf(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := named.Chart.Render(w); err != nil {
		slog.Error("unable to render chart", "chart", named.Name, "error", err)
	}
}
