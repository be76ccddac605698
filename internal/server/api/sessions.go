// Package api provides HTTP API handlers for the wavecoach service.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/wavecoach/internal/app"
	"github.com/ayusman/wavecoach/internal/pose"
	"github.com/ayusman/wavecoach/internal/report"
	"github.com/ayusman/wavecoach/internal/store"
	"github.com/ayusman/wavecoach/internal/wave"
)

// maxFrameBytes bounds a single posted frame. A full 33-landmark frame is
// well under 8 KiB.
const maxFrameBytes = 64 << 10

// SessionHandler handles HTTP requests for session resources.
type SessionHandler struct {
	app *app.App
}

// NewSessionHandler creates a new SessionHandler backed by a.
func NewSessionHandler(a *app.App) *SessionHandler {
	return &SessionHandler{app: a}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/sessions, /api/sessions/{id} or /api/sessions/{id}/{action}
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) > 2 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	id := parts[0]
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	type route struct {
		method  string
		handler func(http.ResponseWriter, *http.Request, string)
	}
	routes := map[string]route{
		"frames":      {http.MethodPost, h.frame},
		"reset":       {http.MethodPost, h.reset},
		"end":         {http.MethodPost, h.end},
		"repetitions": {http.MethodGet, h.repetitions},
		"summary":     {http.MethodGet, h.summary},
	}

	rt, ok := routes[parts[1]]
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != rt.method {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	rt.handler(w, r, id)
}

// Request and response types

type createSessionRequest struct {
	Name            string   `json:"name"`
	Side            string   `json:"side"`
	WaveAngleThresh *float64 `json:"wave_angle_thresh"`
	MinAngle        *float64 `json:"min_angle"`
	MaxAngle        *float64 `json:"max_angle"`
	Smoothing       *bool    `json:"smoothing"`
}

type sessionResponse struct {
	*store.Session
	// Live is the analyzer state of an active session.
	Live *wave.Snapshot `json:"live,omitempty"`
}

type listSessionsResponse struct {
	Sessions []*store.Session `json:"sessions"`
}

type listRepetitionsResponse struct {
	Repetitions []store.Repetition `json:"repetitions"`
}

type summaryResponse struct {
	SessionID string `json:"session_id"`
	report.Summary
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Errorf("encode %T response: %s", data, err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeAppError maps App errors onto status codes. Unexpected errors are
// logged and reported as fallback.
func writeAppError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, app.ErrSessionEnded):
		writeError(w, http.StatusConflict, "Session ended")
	case errors.Is(err, app.ErrInvalidOptions), app.IsFrameError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Errorf("%s: %s", fallback, err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// list handles GET /api/sessions and returns all sessions, newest first.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.app.Sessions()
	if err != nil {
		writeAppError(w, err, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}
	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}

// create handles POST /api/sessions and starts a new session. Omitted fields
// fall back to the configured defaults.
func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	opts, err := h.app.Defaults()
	if err != nil {
		writeAppError(w, err, "Failed to load defaults")
		return
	}

	opts.Name = req.Name
	if req.Side != "" {
		opts.Side = pose.Side(req.Side)
	}
	if req.WaveAngleThresh != nil {
		opts.Wave.WaveAngleThresh = *req.WaveAngleThresh
	}
	if req.MinAngle != nil {
		opts.Wave.MinAngle = *req.MinAngle
	}
	if req.MaxAngle != nil {
		opts.Wave.MaxAngle = *req.MaxAngle
	}
	if req.Smoothing != nil {
		opts.Smoothing = *req.Smoothing
	}

	session, err := h.app.StartSession(opts)
	if err != nil {
		writeAppError(w, err, "Failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{Session: session})
}

// get handles GET /api/sessions/{id}.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	session, err := h.app.Session(id)
	if err != nil {
		writeAppError(w, err, "Failed to get session")
		return
	}

	resp := sessionResponse{Session: session}
	if session.Active() {
		snap, err := h.app.Snapshot(id)
		if err == nil {
			resp.Live = &snap
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// delete handles DELETE /api/sessions/{id} and removes the session with its repetitions.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.app.DeleteSession(id); err != nil {
		writeAppError(w, err, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// frame handles POST /api/sessions/{id}/frames and analyzes one frame.
func (h *SessionHandler) frame(w http.ResponseWriter, r *http.Request, id string) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFrameBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read frame")
		return
	}

	frame, err := pose.DecodeFrame(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.app.Analyze(id, frame)
	if err != nil {
		writeAppError(w, err, "Failed to analyze frame")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// reset handles POST /api/sessions/{id}/reset and zeroes the count.
func (h *SessionHandler) reset(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.app.ResetCount(id); err != nil {
		writeAppError(w, err, "Failed to reset count")
		return
	}
	h.get(w, r, id)
}

// end handles POST /api/sessions/{id}/end. Ending twice is not an error.
func (h *SessionHandler) end(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.app.EndSession(id); err != nil {
		writeAppError(w, err, "Failed to end session")
		return
	}
	h.get(w, r, id)
}

// repetitions handles GET /api/sessions/{id}/repetitions.
func (h *SessionHandler) repetitions(w http.ResponseWriter, r *http.Request, id string) {
	reps, err := h.app.Repetitions(id)
	if err != nil {
		writeAppError(w, err, "Failed to list repetitions")
		return
	}
	if reps == nil {
		reps = []store.Repetition{}
	}
	writeJSON(w, http.StatusOK, listRepetitionsResponse{Repetitions: reps})
}

// summary handles GET /api/sessions/{id}/summary.
func (h *SessionHandler) summary(w http.ResponseWriter, r *http.Request, id string) {
	sum, err := h.app.Summary(id)
	if err != nil {
		writeAppError(w, err, "Failed to summarize session")
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{SessionID: id, Summary: sum})
}
