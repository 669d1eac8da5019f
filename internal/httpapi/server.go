// Package httpapi exposes the JSON surface consumed by the external admin
// UI and dashboards: hardware status, door control, audit logs, settings
// and Prometheus metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/portero-acs/portero/internal/portero/door"
	"github.com/portero-acs/portero/internal/portero/hardware"
	"github.com/portero-acs/portero/internal/portero/store"
	"github.com/portero-acs/portero/internal/settings"
)

type Dependencies struct {
	Logger   *log.Logger
	Addr     string
	Hardware *hardware.Subsystem
	Settings *settings.Store
	Logs     store.AccessLogStore
	Events   store.SystemEventStore
	Registry *prometheus.Registry
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	mux        *http.ServeMux
	hw         *hardware.Subsystem
	settings   *settings.Store
	logs       store.AccessLogStore
	events     store.SystemEventStore
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:   d.Logger,
		mux:      mux,
		hw:       d.Hardware,
		settings: d.Settings,
		logs:     d.Logs,
		events:   d.Events,
	}

	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("POST /v1/door/open", s.handleDoorOpen)
	mux.HandleFunc("POST /v1/door/lock", s.handleDoorLock)
	mux.HandleFunc("POST /v1/door/unlock", s.handleDoorUnlock)
	mux.HandleFunc("PUT /v1/settings/opening-time", s.handleSetOpeningTime)
	mux.HandleFunc("GET /v1/access-logs", s.handleAccessLogs)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	if d.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hw.Status())
}

type doorOpenRequest struct {
	DurationSeconds int `json:"duration_seconds,omitempty"` // 0 = configured default
}

type doorResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleDoorOpen(w http.ResponseWriter, r *http.Request) {
	var req doorOpenRequest
	if r.ContentLength > 0 {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
			return
		}
	}

	// Blocks for the full opening duration by design; the relay must stay
	// energized for exactly that interval.
	err := s.hw.Door().MomentaryOpen(r.Context(), time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		s.doorError(w, "open", err)
		return
	}
	writeJSON(w, http.StatusOK, doorResponse{OK: true, Message: "door opened and re-locked"})
}

func (s *Server) handleDoorLock(w http.ResponseWriter, r *http.Request) {
	if err := s.hw.Door().Lock(); err != nil {
		s.doorError(w, "lock", err)
		return
	}
	writeJSON(w, http.StatusOK, doorResponse{OK: true, Message: "door locked"})
}

func (s *Server) handleDoorUnlock(w http.ResponseWriter, r *http.Request) {
	if err := s.hw.Door().UnlockPermanently(r.Context()); err != nil {
		s.doorError(w, "unlock", err)
		return
	}
	writeJSON(w, http.StatusOK, doorResponse{OK: true, Message: "door unlocked permanently"})
}

func (s *Server) doorError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, door.ErrHardwareUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "hardware_unavailable", "hardware unavailable")
		return
	}
	s.logger.Printf("door %s error: %v", op, err)
	writeError(w, http.StatusInternalServerError, "relay_error", "relay operation failed")
}

type openingTimeRequest struct {
	Seconds int `json:"seconds"`
}

func (s *Server) handleSetOpeningTime(w http.ResponseWriter, r *http.Request) {
	var req openingTimeRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	if err := s.settings.SetOpeningTime(req.Seconds); err != nil {
		if errors.Is(err, settings.ErrOpeningTimeRange) {
			writeError(w, http.StatusBadRequest, "out_of_range", err.Error())
			return
		}
		s.logger.Printf("set opening time error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not persist setting")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "seconds": req.Seconds})
}

func (s *Server) handleAccessLogs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	recs, err := s.logs.List(r.Context(), limit)
	if err != nil {
		s.logger.Printf("access logs list error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not list access logs")
		return
	}
	writeJSON(w, http.StatusOK, toAccessLogDTOs(recs))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	recs, err := s.events.List(r.Context(), limit)
	if err != nil {
		s.logger.Printf("system events list error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not list system events")
		return
	}
	writeJSON(w, http.StatusOK, toEventDTOs(recs))
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
