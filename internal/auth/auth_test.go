package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
)

func TestStaticVerifier(t *testing.T) {
	v := NewStaticVerifier(map[string]Identity{
		"tok-alice": {UserID: "alice", ScreenName: "Alice"},
	})

	identity, err := v.Verify(context.Background(), "tok-alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.UserID)

	t.Run("unknown token", func(t *testing.T) {
		_, err := v.Verify(context.Background(), "tok-mallory")
		assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
		assert.Equal(t, "invalid_token", apperr.ReasonOf(err))
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := v.Verify(context.Background(), "")
		assert.Equal(t, "missing_token", apperr.ReasonOf(err))
	})
}

func TestHTTPVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req verifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch req.Token {
		case "tok-good":
			json.NewEncoder(w).Encode(verifyResponse{Valid: true, UserID: "alice", ScreenName: "Alice"})
		case "tok-rejected":
			w.WriteHeader(http.StatusUnauthorized)
		case "tok-soft-reject":
			json.NewEncoder(w).Encode(verifyResponse{Valid: false})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()
	v := NewHTTPVerifier(srv.URL)

	t.Run("valid token", func(t *testing.T) {
		identity, err := v.Verify(context.Background(), "tok-good")
		require.NoError(t, err)
		assert.Equal(t, Identity{UserID: "alice", ScreenName: "Alice"}, identity)
	})

	t.Run("rejected by status", func(t *testing.T) {
		_, err := v.Verify(context.Background(), "tok-rejected")
		assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
	})

	t.Run("rejected by body", func(t *testing.T) {
		_, err := v.Verify(context.Background(), "tok-soft-reject")
		assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
	})

	t.Run("service trouble is infra, not auth", func(t *testing.T) {
		_, err := v.Verify(context.Background(), "tok-boom")
		assert.Equal(t, apperr.KindInfra, apperr.KindOf(err))
	})

	t.Run("unreachable service", func(t *testing.T) {
		down := NewHTTPVerifier("http://127.0.0.1:1/verify")
		_, err := down.Verify(context.Background(), "tok-good")
		assert.Equal(t, apperr.KindInfra, apperr.KindOf(err))
	})
}
