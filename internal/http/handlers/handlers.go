// Package handlers implements the HTTP endpoints. Every authenticated handler
// expects middleware.Authenticate to have stored an auth.Identity on the context.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AkhileshRajan/zentra-pro/internal/apperr"
	"github.com/AkhileshRajan/zentra-pro/internal/auth"
	"github.com/AkhileshRajan/zentra-pro/internal/http/respond"
	"github.com/AkhileshRajan/zentra-pro/internal/llm"
)

const maxJSONBody = 1 << 20

// Assistant is the LLM surface the paid endpoints depend on.
type Assistant interface {
	Chat(ctx context.Context, messages []llm.Message, userContext string) (string, error)
	Summarize(ctx context.Context, text, fileType string) (string, error)
}

func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		respond.Fail(w, apperr.KindAuthentication, "Not authenticated")
	}
	return id, ok
}

// decodeJSON reads at most maxJSONBody bytes into dst and reports failures as 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Fail(w, apperr.KindValidation, "request body too large")
			return false
		}
		respond.Fail(w, apperr.KindValidation, "invalid JSON payload")
		return false
	}
	return true
}
