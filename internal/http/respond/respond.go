// Package respond writes JSON bodies and classified error payloads.
package respond

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/AkhileshRajan/zentra-pro/internal/apperr"
)

// ErrorBody is the payload of every failed request.
type ErrorBody struct {
	Error  apperr.Kind `json:"error"`
	Detail string      `json:"detail"`
}

// JSON writes payload with status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Fail writes a classified error without logging.
func Fail(w http.ResponseWriter, kind apperr.Kind, detail string) {
	JSON(w, apperr.Status(kind), ErrorBody{Error: kind, Detail: detail})
}

// Error classifies err and writes it. Internal failures are logged with their
// cause and reported to the caller with a generic detail.
func Error(w http.ResponseWriter, logger *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	detail := "internal server error"
	if appErr, ok := apperr.As(err); ok && kind != apperr.KindInternal {
		detail = appErr.Message
	}
	switch kind {
	case apperr.KindInternal:
		logger.Error("request failed", zap.Error(err))
	case apperr.KindExternal:
		logger.Warn("upstream failure", zap.Error(err))
	}
	Fail(w, kind, detail)
}
