package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/AkhileshRajan/zentra-pro/internal/auth"
	"github.com/AkhileshRajan/zentra-pro/internal/gate"
	"github.com/AkhileshRajan/zentra-pro/internal/ledger"
	"github.com/AkhileshRajan/zentra-pro/internal/llm"
	"github.com/AkhileshRajan/zentra-pro/internal/middleware"
	"github.com/AkhileshRajan/zentra-pro/internal/models/dto"
	"github.com/AkhileshRajan/zentra-pro/internal/storage/postgres"
)

type echoAssistant struct{}

func (echoAssistant) Chat(_ context.Context, messages []llm.Message, _ string) (string, error) {
	return "echo: " + messages[len(messages)-1].Content, nil
}

func (echoAssistant) Summarize(_ context.Context, text, fileType string) (string, error) {
	return fmt.Sprintf("%s with %d chars", fileType, len(text)), nil
}

// TestCreditsIntegration exercises /me, /chat and /zentra-score against a live Postgres.
func TestCreditsIntegration(t *testing.T) {
	if os.Getenv("RUN_PG_INTEGRATION") != "true" {
		t.Skip("set RUN_PG_INTEGRATION=true to run this integration test")
	}

	loadDotEnv()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	store, err := postgres.NewStore(ctx, dbURL, 0)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	defer store.Close()

	tokens := auth.NewTokenManager("integration-secret", "", "authenticated", time.Hour)
	g := gate.New(ledger.New(store), zap.NewNop())

	r := chi.NewRouter()
	r.Use(middleware.Authenticate(tokens, zap.NewNop()))
	NewAccountHandler(g, zap.NewNop()).Register(r)
	NewChatHandler(g, echoAssistant{}, zap.NewNop()).Register(r)
	NewScoreHandler(g, store, zap.NewNop()).Register(r)

	ts := httptest.NewServer(r)
	defer ts.Close()

	userID := fmt.Sprintf("it_%d", time.Now().UnixNano())
	token, err := tokens.Generate(auth.Identity{ID: userID, Email: userID + "@example.com"})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	var me dto.MeResponse
	requestJSON(t, ts.URL, http.MethodGet, "/me", token, nil, http.StatusOK, &me)
	if me.ID != userID || me.Credits != ledger.FreeCreditsPerMonth {
		t.Fatalf("unexpected profile: %+v", me)
	}

	if err := store.UpdateCredits(ctx, userID, ledger.CreditsPerPrompt); err != nil {
		t.Fatalf("set credits: %v", err)
	}
	chat := dto.ChatRequest{Messages: []dto.ChatMessage{{Role: "user", Content: "hello"}}}
	var reply dto.ChatResponse
	requestJSON(t, ts.URL, http.MethodPost, "/chat", token, chat, http.StatusOK, &reply)
	if reply.Message.Content != "echo: hello" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	requestJSON(t, ts.URL, http.MethodPost, "/chat", token, chat, http.StatusPaymentRequired, nil)

	var scored dto.ScoreResponse
	requestJSON(t, ts.URL, http.MethodPost, "/zentra-score", token,
		dto.ScoreRequest{Income: 100000, Expenses: 50000, Savings: 20000, Debt: 10000}, http.StatusOK, &scored)
	if scored.Record.ID == "" || scored.Record.CreatedAt.IsZero() {
		t.Fatalf("score record not persisted: %+v", scored.Record)
	}

	t.Logf("user %s: chat charged, second chat refused, score %.1f saved", userID, scored.Score)
}

func requestJSON(t *testing.T, baseURL, method, path, token string, payload any, wantStatus int, out any) {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s status = %d, want %d", method, path, resp.StatusCode, wantStatus)
	}
	if out == nil {
		return
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s response: %v", path, err)
	}
}

func loadDotEnv() {
	paths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	for _, path := range paths {
		_ = godotenv.Overload(path)
	}
}
