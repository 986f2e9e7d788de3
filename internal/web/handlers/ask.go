package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kozaktomas/faceid/internal/advisor"
	"github.com/kozaktomas/faceid/internal/constants"
)

// Asker answers a question about a person.
type Asker interface {
	Ask(ctx context.Context, profile advisor.Profile, question string) (string, error)
}

// AskHandler relays questions to the advisor.
type AskHandler struct {
	asker  Asker
	logger *slog.Logger
}

func NewAskHandler(asker Asker, logger *slog.Logger) *AskHandler {
	return &AskHandler{asker: asker, logger: logger}
}

type askRequest struct {
	Question string           `json:"question"`
	UserInfo *advisor.Profile `json:"userInfo"`
}

// Ask handles POST /api/ask.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxAskBodySize)

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, constants.MsgMissingParams)
		return
	}
	if req.UserInfo == nil {
		respondError(w, http.StatusBadRequest, constants.MsgMissingParams)
		return
	}

	answer, err := h.asker.Ask(r.Context(), *req.UserInfo, req.Question)
	if errors.Is(err, advisor.ErrMissingParameter) {
		respondError(w, http.StatusBadRequest, constants.MsgMissingParams)
		return
	}
	if err != nil {
		h.logger.Error("ask failed",
			"name", sanitizeForLog(req.UserInfo.Name),
			"lastname", sanitizeForLog(req.UserInfo.Lastname),
			"error", err,
		)
		respondError(w, http.StatusInternalServerError, constants.MsgAskFailed)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"answer": answer})
}
