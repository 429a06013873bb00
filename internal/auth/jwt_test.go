package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"
	"time"
)

func signJWT(t *testing.T, secret, headerJSON, payloadJSON string) string {
	t.Helper()

	h := base64.RawURLEncoding.EncodeToString([]byte(headerJSON))
	p := base64.RawURLEncoding.EncodeToString([]byte(payloadJSON))
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(h + "." + p))
	return h + "." + p + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func fixedJWTVerifier(secret string, now int64) JWTVerifier {
	v := NewJWTVerifier(secret)
	v.now = func() time.Time { return time.Unix(now, 0) }
	return v
}

func TestJWTVerifier_AcceptsValidToken(t *testing.T) {
	v := fixedJWTVerifier("secret", 1000)
	token := signJWT(t, "secret", `{"alg":"HS256","typ":"JWT"}`, `{"exp":2000}`)
	if err := v.Verify(token); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
}

func TestJWTVerifier_RejectsBadTokens(t *testing.T) {
	v := fixedJWTVerifier("secret", 1000)

	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"two parts", "a.b"},
		{"four parts", "a.b.c.d"},
		{"wrong secret", signJWT(t, "other", `{"alg":"HS256"}`, `{"exp":2000}`)},
		{"alg none", signJWT(t, "secret", `{"alg":"none"}`, `{"exp":2000}`)},
		{"alg HS512", signJWT(t, "secret", `{"alg":"HS512"}`, `{"exp":2000}`)},
		{"expired", signJWT(t, "secret", `{"alg":"HS256"}`, `{"exp":999}`)},
		{"exp at now", signJWT(t, "secret", `{"alg":"HS256"}`, `{"exp":1000}`)},
		{"missing exp", signJWT(t, "secret", `{"alg":"HS256"}`, `{}`)},
		{"not yet valid", signJWT(t, "secret", `{"alg":"HS256"}`, `{"exp":2000,"nbf":1500}`)},
		{"payload not an object", signJWT(t, "secret", `{"alg":"HS256"}`, `"str"`)},
		{"trailing payload bytes", signJWT(t, "secret", `{"alg":"HS256"}`, `{"exp":2000}{}`)},
	}
	for _, tc := range cases {
		if err := v.Verify(tc.token); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%s: err=%v, want ErrInvalidCredentials", tc.name, err)
		}
	}
}

func TestJWTVerifier_NbfInPastIsAccepted(t *testing.T) {
	v := fixedJWTVerifier("secret", 1000)
	token := signJWT(t, "secret", `{"alg":"HS256"}`, `{"exp":2000,"nbf":500}`)
	if err := v.Verify(token); err != nil {
		t.Fatalf("token past nbf rejected: %v", err)
	}
}
