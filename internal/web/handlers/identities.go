package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/faceid/internal/database"
)

// IdentitiesHandler exposes read-only identity listings. Embeddings are never returned.
type IdentitiesHandler struct {
	identities database.IdentityReader
	logger     *slog.Logger
}

func NewIdentitiesHandler(identities database.IdentityReader, logger *slog.Logger) *IdentitiesHandler {
	return &IdentitiesHandler{identities: identities, logger: logger}
}

// IdentityResponse represents an identity in API responses
type IdentityResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Lastname    string    `json:"lastname"`
	DNI         string    `json:"dni,omitempty"`
	Description string    `json:"description"`
	Enrolled    bool      `json:"enrolled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toIdentityResponse(identity *database.Identity) IdentityResponse {
	return IdentityResponse{
		ID:          identity.ID,
		Name:        identity.Name,
		Lastname:    identity.Lastname,
		DNI:         identity.DNI,
		Description: identity.Description,
		Enrolled:    identity.Enrolled(),
		CreatedAt:   identity.CreatedAt,
		UpdatedAt:   identity.UpdatedAt,
	}
}

// List handles GET /api/identities. The optional q parameter filters on full
// name, ignoring case and diacritics.
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	identities, err := h.identities.List(r.Context())
	if err != nil {
		h.logger.Error("list identities", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list identities")
		return
	}

	query := r.URL.Query().Get("q")
	result := make([]IdentityResponse, 0, len(identities))
	for i := range identities {
		if database.MatchesQuery(&identities[i], query) {
			result = append(result, toIdentityResponse(&identities[i]))
		}
	}
	respondJSON(w, http.StatusOK, result)
}

// Get handles GET /api/identities/{id}.
func (h *IdentitiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	identity, err := h.identities.Get(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("get identity", "id", sanitizeForLog(id), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get identity")
		return
	}
	respondJSON(w, http.StatusOK, toIdentityResponse(identity))
}
