package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Only HS256 is accepted. The size cap bounds the work spent on a garbage
// token before the signature check rejects it.
const (
	hmacSHA256SigLen = 32
	maxJWTLen        = 8 * 1024
)

type JWTVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewJWTVerifier(secret string) JWTVerifier {
	return JWTVerifier{
		secret: []byte(secret),
		now:    time.Now,
	}
}

type jwtClaims struct {
	Exp int64  `json:"exp"`
	Nbf *int64 `json:"nbf"`
}

func (v JWTVerifier) Verify(token string) error {
	if token == "" || len(token) > maxJWTLen {
		return ErrInvalidCredentials
	}
	headerB64, rest, found := strings.Cut(token, ".")
	if !found {
		return ErrInvalidCredentials
	}
	payloadB64, sigB64, found := strings.Cut(rest, ".")
	if !found || strings.Contains(sigB64, ".") {
		return ErrInvalidCredentials
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(headerB64)
	if err != nil {
		return ErrInvalidCredentials
	}
	var header struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return ErrInvalidCredentials
	}
	if header.Alg != "HS256" {
		return fmt.Errorf("%w: alg %q", ErrInvalidCredentials, header.Alg)
	}

	gotSig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil || len(gotSig) != hmacSHA256SigLen {
		return ErrInvalidCredentials
	}
	mac := hmac.New(sha256.New, v.secret)
	_, _ = mac.Write([]byte(headerB64))
	_, _ = mac.Write([]byte{'.'})
	_, _ = mac.Write([]byte(payloadB64))
	if !hmac.Equal(gotSig, mac.Sum(nil)) {
		return ErrInvalidCredentials
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return ErrInvalidCredentials
	}
	dec := json.NewDecoder(bytes.NewReader(payloadJSON))
	var claims jwtClaims
	if err := dec.Decode(&claims); err != nil {
		return ErrInvalidCredentials
	}
	// The payload must be exactly one JSON object; json.Decoder tolerates
	// trailing bytes on its own.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return ErrInvalidCredentials
	}

	now := v.now().Unix()
	if claims.Exp == 0 || now >= claims.Exp {
		return ErrInvalidCredentials
	}
	if claims.Nbf != nil && now < *claims.Nbf {
		return ErrInvalidCredentials
	}
	return nil
}
