package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AkhileshRajan/zentra-pro/internal/apperr"
	"github.com/AkhileshRajan/zentra-pro/internal/llm"
	"github.com/AkhileshRajan/zentra-pro/internal/models/dto"
)

func TestToLLMMessages(t *testing.T) {
	got, err := toLLMMessages([]dto.ChatMessage{
		{Role: " User ", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, []llm.Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}, got)

	for name, in := range map[string][]dto.ChatMessage{
		"nil":           nil,
		"system":        {{Role: "system", Content: "x"}},
		"empty role":    {{Role: "", Content: "x"}},
		"blank content": {{Role: "user", Content: "\n\t"}},
	} {
		_, err := toLLMMessages(in)
		require.Error(t, err, name)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), name)
	}
}

func TestHealthHandler(t *testing.T) {
	r := chi.NewRouter()
	NewHealthHandler(time.Now().Add(-90*time.Second)).Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"uptime":"1m30s"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAuthenticatedHandlersRequireIdentity(t *testing.T) {
	r := chi.NewRouter()
	NewAccountHandler(nil, zap.NewNop()).Register(r)
	NewChatHandler(nil, nil, zap.NewNop()).Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"messages":[]}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDecodeJSON_BodyLimit(t *testing.T) {
	var dst map[string]string
	body := `{"k":"` + strings.Repeat("a", maxJSONBody) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)).WithContext(context.Background())
	rec := httptest.NewRecorder()

	assert.False(t, decodeJSON(rec, req, &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "request body too large")
}
