package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vulcancal/internal/config"
	"vulcancal/internal/coordinator"
	"vulcancal/internal/ics"
	appLog "vulcancal/internal/log"
	"vulcancal/internal/model"
)

const (
	defaultBackfill = 24 * time.Hour
	defaultAhead    = 7 * 24 * time.Hour
	shutdownTimeout = 5 * time.Second
)

// Calendar is the query and refresh surface the server exposes.
// *coordinator.Coordinator implements it.
type Calendar interface {
	EventsInRange(kind model.Kind, start, end time.Time) ([]model.Event, error)
	Events(kind model.Kind) ([]model.Event, error)
	NextEvent(kind model.Kind) (model.Event, bool, error)
	Refresh(ctx context.Context) error
	Snapshot() *coordinator.Snapshot
	Status() coordinator.Status
	Location() *time.Location
}

// Server provides the JSON API and calendar feeds.
type Server struct {
	cfg *config.Config
	cal Calendar
	mux *http.ServeMux

	// now overrides the clock in tests.
	now func() time.Time
	// nextRefresh reports the next scheduled refresh, if a scheduler runs.
	nextRefresh func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, cal Calendar) *Server {
	s := &Server{
		cfg: cfg,
		cal: cal,
		mux: http.NewServeMux(),
		now: time.Now,
	}
	s.registerRoutes()
	return s
}

// SetRefreshSchedule lets /api/status report the next scheduled refresh.
func (s *Server) SetRefreshSchedule(next func() time.Time) {
	s.nextRefresh = next
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="vulcancal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe serves on cfg.Listen until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/next", s.handleNext)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /calendar/{file}", s.handleCalendar)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// EventView is the JSON shape of model.Event. All-day bounds are
// civil dates ("2024-10-14"); timed bounds are RFC 3339 in the display zone.
type EventView struct {
	UID         string     `json:"uid"`
	Kind        model.Kind `json:"kind"`
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	AllDay      bool       `json:"all_day"`
	Start       string     `json:"start"`
	End         string     `json:"end"`
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Kind            model.Kind  `json:"kind"`
	Events          []EventView `json:"events"`
	RangeStart      time.Time   `json:"range_start"`
	RangeEnd        time.Time   `json:"range_end"`
	DisplayTimeZone string      `json:"display_timezone"`
}

type statusResponse struct {
	coordinator.Status
	NextRefresh *time.Time `json:"next_refresh,omitempty"`
}

// ViewOf renders ev for JSON output in loc.
func ViewOf(ev model.Event, loc *time.Location) EventView {
	d := EventView{
		UID:         ev.UID,
		Kind:        ev.Kind,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		AllDay:      ev.AllDay,
	}
	if ev.AllDay {
		d.Start = ev.Start.Date().String()
		d.End = ev.End.Date().String()
	} else {
		d.Start = ev.Start.Instant(loc).In(loc).Format(time.RFC3339)
		d.End = ev.End.Instant(loc).In(loc).Format(time.RFC3339)
	}
	return d
}

// handleEvents returns the events of one kind overlapping a window.
//
// GET /api/events?kind=schedule&start=RFC3339&end=RFC3339
//   - kind:  schedule (default), homework, exam
//   - start: defaults to now minus one day
//   - end:   defaults to now plus seven days
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	loc := s.cal.Location()
	now := s.now().In(loc)
	q := r.URL.Query()
	start, err := timeParam(q.Get("start"), now.Add(-defaultBackfill))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start: "+err.Error())
		return
	}
	end, err := timeParam(q.Get("end"), now.Add(defaultAhead))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end: "+err.Error())
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end is before start")
		return
	}

	evs, err := s.cal.EventsInRange(kind, start, end)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	appLog.Debug("api events request",
		"kind", kind,
		"range_start", start.Format(time.RFC3339),
		"range_end", end.Format(time.RFC3339),
		"event_count", len(evs),
	)

	views := make([]EventView, 0, len(evs))
	for _, ev := range evs {
		views = append(views, ViewOf(ev, loc))
	}
	writeJSON(w, http.StatusOK, eventsResponse{
		Kind:            kind,
		Events:          views,
		RangeStart:      start,
		RangeEnd:        end,
		DisplayTimeZone: loc.String(),
	})
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ev, ok, err := s.cal.NextEvent(kind)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, ViewOf(ev, s.cal.Location()))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{Status: s.cal.Status()}
	if s.nextRefresh != nil {
		if next := s.nextRefresh(); !next.IsZero() {
			resp.NextRefresh = &next
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRefresh runs one refresh synchronously. A failed refresh keeps the
// previous data and answers 502.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.cal.Refresh(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: s.cal.Status()})
}

// handleCalendar serves /calendar/{kind}.ics.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".ics")
	if !ok {
		http.NotFound(w, r)
		return
	}
	kind, err := model.ParseKind(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	evs, err := s.cal.Events(kind)
	switch {
	case errors.Is(err, coordinator.ErrUnsupportedKind):
		http.NotFound(w, r)
		return
	case err != nil:
		writeQueryError(w, err)
		return
	}

	var pupil, slug string
	if snap := s.cal.Snapshot(); snap != nil {
		pupil, slug = snap.Name, snap.Slug
	}
	feed := ics.Feed{
		Name:     ics.Title(kind, pupil),
		Kind:     kind,
		Location: s.cal.Location(),
		Stamp:    s.now(),
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", ics.Filename(slug, kind)))
	if err := ics.Write(w, feed, evs); err != nil {
		appLog.Error("calendar feed failed", err, "kind", kind)
	}
}

func kindParam(r *http.Request) (model.Kind, error) {
	v := r.URL.Query().Get("kind")
	if v == "" {
		return model.KindSchedule, nil
	}
	return model.ParseKind(v)
}

func timeParam(v string, def time.Time) (time.Time, error) {
	if v == "" {
		return def, nil
	}
	return time.Parse(time.RFC3339, v)
}

func writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, coordinator.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, coordinator.ErrUnsupportedKind):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		appLog.Error("query failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
