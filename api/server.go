// Package api exposes the assistant over HTTP and websocket: a JSON chat
// endpoint, read-only views of appointments and stats, and a streaming /ws
// channel.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"

	"github.com/clinicdesk/clinic-assistant/assistant"
	"github.com/clinicdesk/clinic-assistant/logger"
	"github.com/clinicdesk/clinic-assistant/types"
	"github.com/clinicdesk/clinic-assistant/websocket"
)

// Server wires the engine and stores to the HTTP surface.
type Server struct {
	engine   *assistant.Engine
	appts    assistant.AppointmentStore
	accounts assistant.AccountStore
	hub      *websocket.Hub
	upgrader gorilla.Upgrader
	http     *http.Server
}

// NewServer builds the router. allowedOrigins applies to the websocket
// handshake only.
func NewServer(port int, engine *assistant.Engine, appts assistant.AppointmentStore, accounts assistant.AccountStore, allowedOrigins []string) *Server {
	s := &Server{
		engine:   engine,
		appts:    appts,
		accounts: accounts,
		hub:      websocket.NewHub(),
		upgrader: websocket.NewUpgrader(allowedOrigins),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Post("/api/chat", s.handleChat)
	r.Get("/api/appointments", s.handleAppointments)
	r.Get("/api/stats", s.handleStats)
	r.Get("/ws", s.handleWS)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start runs the hub and listens. Blocks until Shutdown or a listen error.
func (s *Server) Start() error {
	go s.hub.Run()
	logger.For("api").Info().Str("addr", s.http.Addr).Msg("listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	return s.http.Shutdown(ctx)
}

// BroadcastEvent pushes a dispatcher event to every websocket client. Wire
// it as the engine's Notify.
func (s *Server) BroadcastEvent(ev types.Event) {
	frame, err := json.Marshal(types.WSServerMessage{Type: types.WSTypeEvent, Event: &ev})
	if err != nil {
		return
	}
	s.hub.Broadcast(frame)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()
	resp := s.engine.HandleTurn(ctx, req.SessionID, req.Message)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAppointments(w http.ResponseWriter, r *http.Request) {
	items, err := s.appts.LoadAppointments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load appointments")
		return
	}
	if items == nil {
		items = []types.Appointment{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"appointments": items})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.LoadAccounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load accounts")
		return
	}
	var stats types.ClinicStats
	stats.Clients = len(accounts)
	for _, a := range accounts {
		stats.TotalPaid += a.TotalPaid
		stats.TotalAmount += a.TotalAmount
		stats.TotalOwed += a.Owed()
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.For("api").Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
