package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://idp.test/auth/v1"

func newJWKSServer(t *testing.T, key *rsa.PrivateKey, kid string) *httptest.Server {
	t.Helper()
	jwks := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": kid,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signRS256(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func TestJWKSVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := newJWKSServer(t, key, "k1")

	ctx := context.Background()
	v := NewJWKSVerifier(ctx, srv.URL, testIssuer, "authenticated")

	valid := signRS256(t, key, "k1", jwt.MapClaims{
		"iss":   testIssuer,
		"aud":   "authenticated",
		"sub":   "user-rsa",
		"email": "rsa@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	})
	id, err := v.Verify(ctx, valid)
	require.NoError(t, err)
	assert.Equal(t, Identity{ID: "user-rsa", Email: "rsa@example.com"}, id)

	wrongAud := signRS256(t, key, "k1", jwt.MapClaims{
		"iss": testIssuer,
		"aud": "someone-else",
		"sub": "user-rsa",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, err = v.Verify(ctx, wrongAud)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := signRS256(t, key, "k1", jwt.MapClaims{
		"iss": testIssuer,
		"aud": "authenticated",
		"sub": "user-rsa",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	_, err = v.Verify(ctx, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	forged := signRS256(t, other, "k1", jwt.MapClaims{
		"iss": testIssuer,
		"aud": "authenticated",
		"sub": "user-rsa",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, err = v.Verify(ctx, forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
