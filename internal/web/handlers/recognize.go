package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/kozaktomas/faceid/internal/advisor"
	"github.com/kozaktomas/faceid/internal/constants"
	"github.com/kozaktomas/faceid/internal/imaging"
	"github.com/kozaktomas/faceid/internal/recognition"
)

// Recognizer matches the first face of an image against stored identities.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (*recognition.Result, error)
}

// Dispatcher queues a priming notification without blocking.
type Dispatcher interface {
	Dispatch(profile advisor.Profile) bool
}

// RecognizeHandler handles face recognition uploads.
type RecognizeHandler struct {
	recognizer      Recognizer
	notifier        Dispatcher
	returnEmbedding bool
	logger          *slog.Logger
}

// NewRecognizeHandler creates a recognize handler. notifier may be nil.
func NewRecognizeHandler(recognizer Recognizer, notifier Dispatcher, returnEmbedding bool, logger *slog.Logger) *RecognizeHandler {
	return &RecognizeHandler{
		recognizer:      recognizer,
		notifier:        notifier,
		returnEmbedding: returnEmbedding,
		logger:          logger,
	}
}

type recognizeResponse struct {
	Message       string           `json:"message"`
	UserInfo      *advisor.Profile `json:"userInfo,omitempty"`
	FaceEmbedding []float32        `json:"faceEmbedding,omitempty"`
}

// Recognize handles POST /api/recognize with a multipart "image" field.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	image, ok := readUploadedImage(w, r)
	if !ok {
		respondError(w, http.StatusBadRequest, constants.MsgNoImage)
		return
	}

	result, err := h.recognizer.Recognize(r.Context(), image)
	if errors.Is(err, recognition.ErrNoFace) {
		respondError(w, http.StatusBadRequest, constants.MsgNoFace)
		return
	}
	if errors.Is(err, imaging.ErrImageTooLarge) {
		respondError(w, http.StatusBadRequest, constants.MsgImageTooLarge)
		return
	}
	if err != nil {
		h.logger.Error("recognition failed", "error", err)
		respondError(w, http.StatusInternalServerError, constants.MsgRecognizeFailed)
		return
	}

	resp := recognizeResponse{}
	if h.returnEmbedding {
		resp.FaceEmbedding = result.Embedding
	}

	if !result.Matched() {
		resp.Message = constants.MsgUserNotFound
		respondJSON(w, http.StatusNotFound, resp)
		return
	}

	profile := profileOf(result.Identity)
	if h.notifier != nil {
		h.notifier.Dispatch(profile)
	}

	h.logger.Info("identity recognized", "id", result.Identity.ID, "faces", result.FacesCount)
	resp.Message = fmt.Sprintf("Usuario: %s %s", profile.Name, profile.Lastname)
	resp.UserInfo = &profile
	respondJSON(w, http.StatusOK, resp)
}

// readUploadedImage returns the bytes of the "image" form file. It reports false
// when the request carries no usable image.
func readUploadedImage(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		return nil, false
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}
