package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kozaktomas/faceid/internal/advisor"
	"github.com/kozaktomas/faceid/internal/database"
)

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// profileOf is the part of an identity returned to clients as userInfo.
func profileOf(identity *database.Identity) advisor.Profile {
	return advisor.Profile{
		Name:        identity.Name,
		Lastname:    identity.Lastname,
		Description: identity.Description,
	}
}

// Counter is the part of the identity store the health check reports on.
type Counter interface {
	Count(ctx context.Context) (int, error)
	CountEnrolled(ctx context.Context) (int, error)
}

// HealthHandler reports liveness and, when a store is given, identity counts.
type HealthHandler struct {
	store  Counter
	logger *slog.Logger
}

func NewHealthHandler(store Counter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{store: store, logger: logger}
}

// Get handles GET /api/health.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if h.store == nil {
		respondJSON(w, http.StatusOK, resp)
		return
	}

	total, err := h.store.Count(r.Context())
	if err != nil {
		h.logger.Error("health check: count identities", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "database unavailable"})
		return
	}
	enrolled, err := h.store.CountEnrolled(r.Context())
	if err != nil {
		h.logger.Error("health check: count enrolled identities", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "database unavailable"})
		return
	}

	resp["identities"] = total
	resp["enrolled"] = enrolled
	respondJSON(w, http.StatusOK, resp)
}
