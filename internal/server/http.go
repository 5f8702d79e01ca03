package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/stagcourt/stag-server/internal/game"
	"github.com/stagcourt/stag-server/internal/repository"
	"github.com/stagcourt/stag-server/internal/table"
)

const maxBodyBytes = 64 * 1024

// API serves the JSON game API and hands WebSocket upgrades to the hub.
type API struct {
	tables    *table.Service
	validator *PayloadValidator
	hub       *Hub
	logger    *zap.Logger
}

// NewAPI creates the HTTP API. hub may be nil to disable push updates.
func NewAPI(tables *table.Service, validator *PayloadValidator, hub *Hub, logger *zap.Logger) *API {
	return &API{tables: tables, validator: validator, hub: hub, logger: logger}
}

// Routes returns the API handler.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/game/create", a.handleCreate)
	mux.HandleFunc("POST /api/game/{gameId}/action", a.handleAction)
	mux.HandleFunc("GET /api/game/{gameId}/state", a.handleState)
	if a.hub != nil {
		mux.HandleFunc("GET /api/game/{gameId}/ws", a.handleWebSocket)
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return a.logRequests(mux)
}

type createRequest struct {
	PlayerName string `json:"playerName"`
}

// actionRequest is the flat body of the action endpoint: routing fields plus
// the engine payload fields at the top level.
type actionRequest struct {
	Action     string `json:"action"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	game.Payload
}

// handleCreate opens a lobby
func (a *API) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !a.decode(w, r, SchemaCreate, &req) {
		return
	}
	joined, err := a.tables.Create(r.Context(), req.PlayerName)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, joined)
}

// handleAction routes lobby actions and engine actions
func (a *API) handleAction(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("gameId")
	var req actionRequest
	if !a.decode(w, r, SchemaAction, &req) {
		return
	}

	switch req.Action {
	case "join":
		joined, err := a.tables.Join(r.Context(), gameID, req.PlayerName)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, joined)
	case "start":
		if err := a.tables.Start(r.Context(), gameID, req.PlayerID); err != nil {
			a.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"started": true})
	default:
		view, err := a.tables.Act(r.Context(), gameID, req.PlayerID, req.Action, req.Payload)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// handleState returns the caller's view of a game
func (a *API) handleState(w http.ResponseWriter, r *http.Request) {
	view, err := a.tables.View(r.Context(), r.PathValue("gameId"), r.URL.Query().Get("playerId"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleWebSocket subscribes the caller to view pushes
func (a *API) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("gameId")
	playerID := r.URL.Query().Get("playerId")
	if _, err := a.tables.View(r.Context(), gameID, playerID); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.hub.ServeWS(w, r, gameID, playerID)
}

// decode reads, validates and unmarshals a request body. It writes the error
// response itself and reports whether the handler should continue.
func (a *API) decode(w http.ResponseWriter, r *http.Request, schema string, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
		return false
	}
	if err := a.validator.ValidateJSON(schema, body); err != nil {
		a.writeError(w, r, err)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		a.writeError(w, r, errors.Join(ErrInvalidRequest, err))
		return false
	}
	return true
}

type errorBody struct {
	Error string `json:"error"`
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

// httpStatus maps service errors to HTTP status codes
func httpStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, table.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidRequest), table.IsBadRequest(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack passes WebSocket upgrades through to the underlying connection.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
