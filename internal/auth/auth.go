// Package auth verifies the opaque bearer tokens clients present.
// Identity management lives in an external service; this package only
// asks it whether a token is good and who it belongs to.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
)

// Identity is the authenticated user behind a token.
type Identity struct {
	UserID     string `json:"user_id"`
	ScreenName string `json:"screen_name"`
}

// Verifier checks tokens.
type Verifier interface {
	// Verify returns the identity behind a valid token. Invalid tokens
	// yield an auth error; an unreachable verifier yields an infra
	// error so callers can tell rejection from outage.
	Verify(ctx context.Context, token string) (Identity, error)
}

const verifyTimeout = 2 * time.Second

// HTTPVerifier asks an external endpoint to verify tokens.
type HTTPVerifier struct {
	url    string
	client *http.Client
}

// NewHTTPVerifier builds a verifier calling the given endpoint.
func NewHTTPVerifier(url string) *HTTPVerifier {
	return &HTTPVerifier{
		url:    url,
		client: &http.Client{Timeout: verifyTimeout},
	}
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	Valid      bool   `json:"valid"`
	UserID     string `json:"user_id,omitempty"`
	ScreenName string `json:"screen_name,omitempty"`
}

// Verify implements Verifier.
func (v *HTTPVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, apperr.Auth("missing_token", "no token provided")
	}

	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	body, err := json.Marshal(verifyRequest{Token: token})
	if err != nil {
		return Identity{}, apperr.Infra("auth_request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return Identity{}, apperr.Infra("auth_request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return Identity{}, apperr.Infra("auth_unavailable", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return Identity{}, apperr.Auth("invalid_token", "the token was rejected")
	default:
		return Identity{}, apperr.Infra("auth_unavailable",
			apperr.New(apperr.KindInfra, "auth_status", resp.Status))
	}

	var decoded verifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		return Identity{}, apperr.Infra("auth_response", err)
	}
	if !decoded.Valid || decoded.UserID == "" {
		return Identity{}, apperr.Auth("invalid_token", "the token was rejected")
	}
	return Identity{UserID: decoded.UserID, ScreenName: decoded.ScreenName}, nil
}

// StaticVerifier maps fixed tokens to identities. Dev and test use.
type StaticVerifier struct {
	tokens map[string]Identity
}

// NewStaticVerifier builds a verifier over a fixed token table.
func NewStaticVerifier(tokens map[string]Identity) *StaticVerifier {
	return &StaticVerifier{tokens: tokens}
}

// Verify implements Verifier.
func (v *StaticVerifier) Verify(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, apperr.Auth("missing_token", "no token provided")
	}
	identity, ok := v.tokens[token]
	if !ok {
		return Identity{}, apperr.Auth("invalid_token", "the token was rejected")
	}
	return identity, nil
}
