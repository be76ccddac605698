package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/wavecoach/internal/app"
)

// SettingsHandler handles HTTP requests for the stored session defaults.
type SettingsHandler struct {
	app *app.App
}

// NewSettingsHandler creates a new SettingsHandler backed by a.
func NewSettingsHandler(a *app.App) *SettingsHandler {
	return &SettingsHandler{app: a}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/settings or /api/settings/{key}
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/settings"), "/")

	if key == "" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.list(w, r)
		return
	}

	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	h.set(w, r, key)
}

type setSettingRequest struct {
	Value string `json:"value"`
}

type defaultsResponse struct {
	Side            string  `json:"side"`
	Smoothing       bool    `json:"smoothing"`
	WaveAngleThresh float64 `json:"wave_angle_thresh"`
	MinAngle        float64 `json:"min_angle"`
	MaxAngle        float64 `json:"max_angle"`
}

type settingsResponse struct {
	Settings map[string]string `json:"settings"`
	Defaults defaultsResponse  `json:"defaults"`
}

// list handles GET /api/settings and returns the stored overrides together
// with the defaults they produce.
func (h *SettingsHandler) list(w http.ResponseWriter, r *http.Request) {
	settings, err := h.app.Settings()
	if err != nil {
		writeAppError(w, err, "Failed to list settings")
		return
	}
	opts, err := h.app.Defaults()
	if err != nil {
		writeAppError(w, err, "Failed to load defaults")
		return
	}

	writeJSON(w, http.StatusOK, settingsResponse{
		Settings: settings,
		Defaults: defaultsResponse{
			Side:            string(opts.Side),
			Smoothing:       opts.Smoothing,
			WaveAngleThresh: opts.Wave.WaveAngleThresh,
			MinAngle:        opts.Wave.MinAngle,
			MaxAngle:        opts.Wave.MaxAngle,
		},
	})
}

// set handles PUT /api/settings/{key}.
func (h *SettingsHandler) set(w http.ResponseWriter, r *http.Request, key string) {
	var req setSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.app.SetSetting(key, req.Value); err != nil {
		if errors.Is(err, app.ErrUnknownSetting) {
			writeError(w, http.StatusNotFound, "Unknown setting")
			return
		}
		writeAppError(w, err, "Failed to store setting")
		return
	}

	h.list(w, r)
}
