package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/AkhileshRajan/zentra-pro/internal/apperr"
	"github.com/AkhileshRajan/zentra-pro/internal/extract"
	"github.com/AkhileshRajan/zentra-pro/internal/gate"
	"github.com/AkhileshRajan/zentra-pro/internal/http/respond"
	"github.com/AkhileshRajan/zentra-pro/internal/ledger"
	"github.com/AkhileshRajan/zentra-pro/internal/models/dto"
)

// UploadHandler summarizes PDF and Excel uploads. Files are never persisted.
type UploadHandler struct {
	gate      *gate.Gate
	assistant Assistant
	maxBytes  int64
	logger    *zap.Logger
}

// NewUploadHandler constructs the handler; maxBytes caps the multipart body.
func NewUploadHandler(g *gate.Gate, assistant Assistant, maxBytes int64, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{gate: g, assistant: assistant, maxBytes: maxBytes, logger: logger}
}

// Register attaches upload routes.
func (h *UploadHandler) Register(r chi.Router) {
	r.Post("/upload", h.handleUpload)
}

func (h *UploadHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Fail(w, apperr.KindValidation, "file too large")
			return
		}
		respond.Fail(w, apperr.KindValidation, "a file field is required")
		return
	}
	defer file.Close()

	if !extract.Supported(header.Filename) {
		respond.Fail(w, apperr.KindValidation, "Only PDF and Excel files are allowed")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		respond.Fail(w, apperr.KindValidation, "could not read uploaded file")
		return
	}

	summary, _, err := h.gate.Spend(r.Context(), id, ledger.CreditsPerPrompt, func(ctx context.Context) (string, error) {
		doc, err := extract.Extract(header.Filename, data)
		switch {
		case errors.Is(err, extract.ErrNoText):
			return "", apperr.Wrap(apperr.KindValidation, "No text could be extracted from the file", err)
		case errors.Is(err, extract.ErrInvalidDocument):
			return "", apperr.Wrap(apperr.KindValidation, err.Error(), err)
		case err != nil:
			return "", apperr.Wrap(apperr.KindValidation, "could not read uploaded file", err)
		}
		return h.assistant.Summarize(ctx, doc.Text, string(doc.Kind))
	})
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	respond.JSON(w, http.StatusOK, dto.UploadResponse{Summary: summary, CreditsUsed: ledger.CreditsPerPrompt})
}
