// Package turnrest mints coturn-compatible TURN REST credentials for
// browser clients. The signaling server hands these out so peers behind
// symmetric NATs can still reach each other through a relay.
//
// Algorithm (draft-uberti-behave-turn-rest):
//
//	username   = <unix_expiry>:<realm>:<connection_id>
//	credential = base64(hmac_sha1(shared_secret, username))
package turnrest

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Minter struct {
	secret []byte
	ttl    time.Duration
	realm  string
	now    func() time.Time
}

type MinterConfig struct {
	// SharedSecret must match the static-auth-secret configured on the TURN
	// server.
	SharedSecret string
	TTL          time.Duration
	// Realm is embedded in the minted username. It must not contain ':',
	// which separates the username fields.
	Realm string
	Now   func() time.Time
}

func NewMinter(cfg MinterConfig) (*Minter, error) {
	if cfg.SharedSecret == "" {
		return nil, errors.New("shared secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("ttl must be > 0")
	}
	if cfg.Realm == "" {
		return nil, errors.New("realm is required")
	}
	if strings.ContainsRune(cfg.Realm, ':') {
		return nil, errors.New("realm must not contain ':'")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Minter{
		secret: []byte(cfg.SharedSecret),
		ttl:    cfg.TTL,
		realm:  cfg.Realm,
		now:    cfg.Now,
	}, nil
}

type Credentials struct {
	Username   string
	Credential string
	ExpiryUnix int64
}

// Mint issues time-limited credentials bound to a connection id. Connection
// ids are UUIDs and never contain ':', but the guard keeps a future caller
// honest.
func (m *Minter) Mint(connID string) (Credentials, error) {
	if connID == "" {
		return Credentials{}, errors.New("connection id is required")
	}
	if strings.ContainsRune(connID, ':') {
		return Credentials{}, errors.New("connection id must not contain ':'")
	}
	expiry := m.now().UTC().Unix() + int64(m.ttl/time.Second)
	username := fmt.Sprintf("%d:%s:%s", expiry, m.realm, connID)
	mac := hmac.New(sha1.New, m.secret)
	_, _ = mac.Write([]byte(username))
	return Credentials{
		Username:   username,
		Credential: base64.StdEncoding.EncodeToString(mac.Sum(nil)),
		ExpiryUnix: expiry,
	}, nil
}
