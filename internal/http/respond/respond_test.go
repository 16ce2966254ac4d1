package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/AkhileshRajan/zentra-pro/internal/apperr"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]string{"status": "ok"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestError_ClassifiedKeepsMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, zap.NewNop(), apperr.New(apperr.KindInsufficientCredits, "Insufficient credits"))
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, ErrorBody{Error: apperr.KindInsufficientCredits, Detail: "Insufficient credits"}, decode(t, rec))
}

func TestError_InternalHidesCause(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	rec := httptest.NewRecorder()

	Error(rec, zap.New(core), apperr.Wrap(apperr.KindInternal, "could not load account", errors.New("pq: relation users does not exist")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, apperr.KindInternal, body.Error)
	assert.Equal(t, "internal server error", body.Detail)
	assert.NotContains(t, rec.Body.String(), "relation")
	assert.Equal(t, 1, logs.Len())
}

func TestError_UnclassifiedIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, zap.NewNop(), errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode(t, rec).Detail)
}
