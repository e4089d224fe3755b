package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/aouyang1/go-demand/dataset"
	"github.com/aouyang1/go-demand/eda"
	"github.com/aouyang1/go-demand/service"
	"github.com/aouyang1/go-demand/store"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	MessageSelect = "select"
	MessageReload = "reload"
	MessageState  = "state"
	MessageError  = "error"

	writeWait = 10 * time.Second
)

var ErrUnknownPage = errors.New("unknown page")

// reactivePages are the dashboard sections a client can select
var reactivePages = []string{pageHome, pageData, pageVisualizations, pageForecasting, pageInsights}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ClientMessage selects the page and forecast model, or asks for a reload
type ClientMessage struct {
	Type  string `json:"type"`
	Page  string `json:"page,omitempty"`
	Model string `json:"model,omitempty"`
}

// ServerMessage carries the state of the selected page or an error
type ServerMessage struct {
	Type  string `json:"type"`
	State *State `json:"state,omitempty"`
	Error string `json:"error,omitempty"`
}

// ChartRef points the dashboard at a chart served under /charts
type ChartRef struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// State is everything a dashboard section renders. Only the fields of the selected
// page are set.
type State struct {
	Page   string   `json:"page"`
	Model  string   `json:"model"`
	Models []string `json:"models"`

	Summary    *eda.Summary            `json:"summary,omitempty"`
	Insights   *eda.Insights           `json:"insights,omitempty"`
	Records    []dataset.Record        `json:"records,omitempty"`
	Aggregates *service.Aggregates     `json:"aggregates,omitempty"`
	Charts     []ChartRef              `json:"charts,omitempty"`
	Forecasts  []service.ForecastStats `json:"forecasts,omitempty"`
	Points     []store.Point           `json:"points,omitempty"`
	Loaded     time.Time               `json:"loaded"`
}

func (s *Server) reactiveRoutes(mux *http.ServeMux) {
	s.handle(mux, "GET /{$}", s.dashboard)
	s.handle(mux, "GET /ws", s.serveWS)
	s.handle(mux, "/", s.notFound)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, pageReactive, &view{
		Title:  "Dashboard",
		Models: service.Models,
		Model:  store.ModelDecomposition,
	})
}

// serveWS pushes the home state on connect and replies to every client message with
// the state it selects
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("unable to upgrade websocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	ctx := r.Context()
	sel := ClientMessage{Type: MessageSelect, Page: pageHome, Model: store.ModelDecomposition}
	if _, err := s.reply(ctx, conn, sel); err != nil {
		return
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("websocket closed", "error", err)
			}
			return
		}

		var cmd ClientMessage
		if err := json.Unmarshal(msg, &cmd); err != nil {
			if err := send(conn, ServerMessage{Type: MessageError, Error: "invalid message format"}); err != nil {
				return
			}
			continue
		}

		next := sel
		switch cmd.Type {
		case MessageSelect:
			if cmd.Page != "" {
				next.Page = cmd.Page
			}
			if cmd.Model != "" {
				next.Model = cmd.Model
			}
		case MessageReload:
			if _, err := s.svc.Reload(ctx); err != nil {
				if err := send(conn, ServerMessage{Type: MessageError, Error: err.Error()}); err != nil {
					return
				}
				continue
			}
		default:
			if err := send(conn, ServerMessage{Type: MessageError, Error: "unknown command: " + cmd.Type}); err != nil {
				return
			}
			continue
		}

		// an invalid selection keeps the previous one
		if ok, err := s.reply(ctx, conn, next); err != nil {
			return
		} else if ok {
			sel = next
		}
	}
}

// reply sends the state of the selection or the error building it. It reports whether
// a state was sent and only returns write failures.
func (s *Server) reply(ctx context.Context, conn *websocket.Conn, sel ClientMessage) (bool, error) {
	st, err := s.State(ctx, sel.Page, sel.Model)
	if err != nil {
		return false, send(conn, ServerMessage{Type: MessageError, Error: err.Error()})
	}
	return true, send(conn, ServerMessage{Type: MessageState, State: st})
}

func send(conn *websocket.Conn, msg ServerMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("unable to encode websocket message", "error", err)
		b, _ = json.Marshal(ServerMessage{Type: MessageError, Error: "unable to encode state"})
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}

// State builds the dashboard state of the page and forecast model
func (s *Server) State(ctx context.Context, page, model string) (*State, error) {
	if !slices.Contains(reactivePages, page) {
		return nil, fmt.Errorf("%q, %w", page, ErrUnknownPage)
	}
	if !slices.Contains(service.Models, model) {
		return nil, fmt.Errorf("%q, %w", model, service.ErrUnknownModel)
	}
	snap, err := s.svc.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	st := &State{
		Page:    page,
		Model:   model,
		Models:  service.Models,
		Summary: snap.Analysis.Summary,
		Loaded:  snap.Loaded,
	}
	switch page {
	case pageData:
		st.Records = snap.Frame.Head(service.DefaultHeadRows)
	case pageVisualizations:
		st.Aggregates = snap.Aggregates()
		for _, c := range snap.Charts {
			st.Charts = append(st.Charts, ChartRef{Name: c.Name, Title: c.Title, URL: "/charts/" + c.Name})
		}
	case pageForecasting:
		for _, m := range service.Models {
			if run, exists := snap.Runs[m]; exists {
				st.Forecasts = append(st.Forecasts, service.NewForecastStats(run))
			}
		}
		if run, exists := snap.Runs[model]; exists {
			st.Points = run.Points[:min(forecastRows, len(run.Points))]
		}
	case pageInsights:
		st.Insights = snap.Analysis.Insights
	}
	return st, nil
}
