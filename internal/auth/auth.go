// Package auth gates the signaling WebSocket handshake. The default mode
// leaves the endpoint open, matching a public deployment behind an origin
// allowlist; apikey and jwt modes are for embedding the relay inside a
// larger product where the web app already holds a credential.
package auth

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/meetlink/signal-relay/internal/config"
)

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Verifier interface {
	Verify(credential string) error
}

// NewVerifier builds the verifier for the configured mode. A nil verifier
// means the handshake is unauthenticated.
func NewVerifier(cfg config.Config) (Verifier, error) {
	switch cfg.AuthMode {
	case "", config.AuthModeNone:
		return nil, nil
	case config.AuthModeAPIKey:
		return APIKeyVerifier{Expected: cfg.APIKey}, nil
	case config.AuthModeJWT:
		return NewJWTVerifier(cfg.JWTSecret), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.AuthMode)
	}
}

// CredentialFromQuery pulls the handshake credential out of the request
// query string. Browsers cannot attach headers to a WebSocket upgrade, so
// the query string is the only channel available to web clients.
func CredentialFromQuery(mode config.AuthMode, q url.Values) (string, error) {
	var key string
	switch mode {
	case config.AuthModeAPIKey:
		key = "apiKey"
	case config.AuthModeJWT:
		key = "token"
	default:
		return "", fmt.Errorf("unsupported auth mode %q", mode)
	}
	if cred := q.Get(key); cred != "" {
		return cred, nil
	}
	return "", ErrMissingCredentials
}
