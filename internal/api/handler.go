package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mechvibesdx/settings/internal/settings"
	"github.com/mechvibesdx/settings/internal/theme"
	"github.com/mechvibesdx/settings/internal/timefmt"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const maxBodyBytes = 1 << 20

// Settings is the collaborator surface of a config observer.
type Settings interface {
	Current() settings.Snapshot
	Update(mutate func(*settings.Snapshot)) settings.Snapshot
}

// Themes is the collaborator surface of the theme broadcaster.
type Themes interface {
	Themes() theme.Themes
	Generation() uint64
	Upsert(name, description, css string) error
	Delete(name string) error
}

// Autostart controls launch at login.
type Autostart interface {
	Supported() bool
	Enabled() bool
	Set(enabled, minimized bool) error
}

// Handler wires the settings observer, themes and autostart into HTTP handlers.
type Handler struct {
	settings  Settings
	themes    Themes
	autostart Autostart
	logger    *zap.Logger

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(s Settings, t Themes, a Autostart, logger *zap.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		settings:  s,
		themes:    t,
		autostart: a,
		logger:    logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	_ = r
	writeJSON(w, http.StatusOK, h.configResponse(h.settings.Current(), ""))
}

func (h *Handler) handlePatchConfig(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to read request body")
		return
	}
	patch, err := settings.ParsePatch(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	// Apply to a scratch copy first so bad field types are reported
	// instead of being dropped inside the update.
	candidate := h.settings.Current()
	if err := patch.Apply(&candidate); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid settings", err.Error())
		return
	}
	if patch.Has("theme") && candidate.Theme.IsCustom() {
		if _, ok := h.themes.Themes().Get(candidate.Theme.Custom); !ok {
			writeError(w, http.StatusBadRequest, "Unknown theme", candidate.Theme.Custom, "create it with PUT /api/themes/"+candidate.Theme.Custom)
			return
		}
	}

	updated := h.settings.Update(func(s *settings.Snapshot) {
		if err := patch.Apply(s); err != nil {
			h.logger.Warn("config patch no longer applies", zap.Error(err))
		}
	})
	writeJSON(w, http.StatusOK, h.configResponse(updated, "Settings updated"))
}

func (h *Handler) handleListThemes(w http.ResponseWriter, r *http.Request) {
	_ = r
	current := h.themes.Themes()
	writeJSON(w, http.StatusOK, themesResponse{
		BuiltIn:    settings.BuiltInThemes(),
		Custom:     current.List(),
		Generation: h.themes.Generation(),
	})
}

func (h *Handler) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ct, ok := h.themes.Themes().Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "Theme not found", name)
		return
	}
	writeJSON(w, http.StatusOK, ct)
}

func (h *Handler) handlePutTheme(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req themeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if err := h.themes.Upsert(name, req.Description, req.CSS); err != nil {
		if errors.Is(err, theme.ErrInvalidThemeName) {
			writeError(w, http.StatusBadRequest, "Invalid theme name", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	ct, _ := h.themes.Themes().Get(name)
	writeJSON(w, http.StatusOK, ct)
}

func (h *Handler) handleDeleteTheme(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := h.themes.Delete(name); err != nil {
		if errors.Is(err, theme.ErrThemeNotFound) {
			writeError(w, http.StatusNotFound, "Theme not found", name)
			return
		}
		writeInternalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetAutostart(w http.ResponseWriter, r *http.Request) {
	_ = r
	current := h.settings.Current()
	writeJSON(w, http.StatusOK, autostartResponse{
		Supported: h.autostart.Supported(),
		Enabled:   h.autostart.Enabled(),
		Minimized: current.StartMinimized,
	})
}

func (h *Handler) handlePutAutostart(w http.ResponseWriter, r *http.Request) {
	var req autostartRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "enabled must be provided")
		return
	}

	if !h.autostart.Supported() {
		writeError(w, http.StatusNotImplemented, "Not supported", "auto startup is only supported on Windows")
		return
	}

	minimized := h.settings.Current().StartMinimized
	if req.Minimized != nil {
		minimized = *req.Minimized
	}

	if err := h.autostart.Set(*req.Enabled, minimized); err != nil {
		h.logger.Error("failed to change auto startup", zap.Error(err))
		writeInternalError(w, err)
		return
	}

	updated := h.settings.Update(func(s *settings.Snapshot) {
		s.AutoStart = *req.Enabled
		s.StartMinimized = minimized
	})
	writeJSON(w, http.StatusOK, autostartResponse{
		Supported: true,
		Enabled:   updated.AutoStart,
		Minimized: updated.StartMinimized,
	})
}

func (h *Handler) configResponse(s settings.Snapshot, message string) configResponse {
	relative := ""
	if !s.LastUpdated.IsZero() {
		relative = timefmt.Relative(s.LastUpdated, h.clock())
	}
	return configResponse{
		Config:              s,
		DaisyTheme:          s.Theme.DaisyTheme(),
		LastUpdatedRelative: relative,
		Message:             message,
	}
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type themeRequest struct {
	Description string `json:"description"`
	CSS         string `json:"css"`
}

type autostartRequest struct {
	Enabled   *bool `json:"enabled"`
	Minimized *bool `json:"minimized"`
}

type configResponse struct {
	Config              settings.Snapshot `json:"config"`
	DaisyTheme          string            `json:"daisyTheme"`
	LastUpdatedRelative string            `json:"lastUpdatedRelative,omitempty"`
	Message             string            `json:"message,omitempty"`
}

type themesResponse struct {
	BuiltIn    []string            `json:"builtIn"`
	Custom     []theme.CustomTheme `json:"custom"`
	Generation uint64              `json:"generation"`
}

type autostartResponse struct {
	Supported bool `json:"supported"`
	Enabled   bool `json:"enabled"`
	Minimized bool `json:"minimized"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
