package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkhileshRajan/zentra-pro/internal/auth"
	"github.com/AkhileshRajan/zentra-pro/internal/config"
	"github.com/AkhileshRajan/zentra-pro/internal/ledger"
	"github.com/AkhileshRajan/zentra-pro/internal/models/dto"
	"github.com/AkhileshRajan/zentra-pro/internal/storage"
	"github.com/AkhileshRajan/zentra-pro/internal/storage/sqlite"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		StoreDriver:   config.DriverSQLite,
		SQLitePath:    filepath.Join(t.TempDir(), "admin.db"),
		StoreTimeout:  time.Second,
		AuthJWTSecret: "admin-secret",
		AuthAudience:  "authenticated",
		AuthTokenTTL:  time.Hour,
	}
}

func seed(t *testing.T, cfg config.Config, id string) {
	t.Helper()
	store, err := sqlite.New(context.Background(), cfg.SQLitePath, cfg.StoreTimeout)
	require.NoError(t, err)
	defer store.Close()
	_, err = ledger.New(store).EnsureUser(context.Background(), id, id+"@example.com")
	require.NoError(t, err)
}

func show(t *testing.T, cfg config.Config, args ...string) dto.MeResponse {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, append([]string{"show"}, args...), &out))
	var me dto.MeResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &me))
	return me
}

func TestRun_Token(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, []string{"token", "-id", "u1", "-email", "u1@example.com"}, &out))

	tokens := auth.NewTokenManager(cfg.AuthJWTSecret, "", cfg.AuthAudience, time.Hour)
	id, err := tokens.Verify(context.Background(), strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, auth.Identity{ID: "u1", Email: "u1@example.com"}, id)
}

func TestRun_SubscriptionAndCredits(t *testing.T) {
	cfg := testConfig(t)
	seed(t, cfg, "u1")
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, run(ctx, cfg, []string{"activate", "-id", "u1"}, &out))
	assert.Equal(t, "activate: ok\n", out.String())
	me := show(t, cfg, "-id", "u1")
	assert.Equal(t, "active", string(me.SubscriptionStatus))
	assert.Equal(t, int64(100), me.Credits)

	require.NoError(t, run(ctx, cfg, []string{"set-credits", "-id", "u1", "-credits", "7"}, &out))
	require.NoError(t, run(ctx, cfg, []string{"cancel", "-id", "u1"}, &out))
	me = show(t, cfg, "-email", "u1@example.com")
	assert.Equal(t, "cancelled", string(me.SubscriptionStatus))
	assert.Equal(t, int64(7), me.Credits)
}

func TestRun_Errors(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	var out bytes.Buffer

	assert.ErrorIs(t, run(ctx, cfg, nil, &out), errUsage)
	assert.ErrorIs(t, run(ctx, cfg, []string{"bogus"}, &out), errUsage)
	assert.ErrorIs(t, run(ctx, cfg, []string{"token"}, &out), errUsage)
	assert.ErrorIs(t, run(ctx, cfg, []string{"activate"}, &out), errUsage)
	assert.ErrorIs(t, run(ctx, cfg, []string{"show"}, &out), errUsage)
	assert.ErrorIs(t, run(ctx, cfg, []string{"set-credits", "-id", "u1"}, &out), errUsage)
	assert.ErrorIs(t, run(ctx, cfg, []string{"show", "-nope"}, &out), errUsage)
	assert.ErrorIs(t, run(ctx, cfg, []string{"activate", "-id", "ghost"}, &out), storage.ErrNotFound)
	assert.ErrorIs(t, run(ctx, cfg, []string{"show", "-id", "ghost"}, &out), storage.ErrNotFound)

	cfg.AuthJWTSecret = ""
	assert.Error(t, run(ctx, cfg, []string{"token", "-id", "u1"}, &out))
}
