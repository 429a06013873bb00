package turnrest

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"testing"
	"time"
)

func TestMint_DeterministicWithFixedTime(t *testing.T) {
	m, err := NewMinter(MinterConfig{
		SharedSecret: "shared-secret",
		TTL:          time.Hour,
		Realm:        "meetlink",
		Now:          func() time.Time { return time.Unix(1_700_000_000, 0).UTC() },
	})
	if err != nil {
		t.Fatalf("NewMinter: %v", err)
	}

	creds, err := m.Mint("4f6d2c1e-conn")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	wantExpiry := int64(1_700_003_600)
	if creds.ExpiryUnix != wantExpiry {
		t.Fatalf("ExpiryUnix: got %d, want %d", creds.ExpiryUnix, wantExpiry)
	}
	wantUsername := "1700003600:meetlink:4f6d2c1e-conn"
	if creds.Username != wantUsername {
		t.Fatalf("Username: got %q, want %q", creds.Username, wantUsername)
	}

	mac := hmac.New(sha1.New, []byte("shared-secret"))
	_, _ = mac.Write([]byte(wantUsername))
	if want := base64.StdEncoding.EncodeToString(mac.Sum(nil)); creds.Credential != want {
		t.Fatalf("Credential: got %q, want %q", creds.Credential, want)
	}
}

func TestMint_CredentialIsBase64HMACSHA1(t *testing.T) {
	m, err := NewMinter(MinterConfig{
		SharedSecret: "secret",
		TTL:          time.Second,
		Realm:        "r",
		Now:          func() time.Time { return time.Unix(0, 0).UTC() },
	})
	if err != nil {
		t.Fatalf("NewMinter: %v", err)
	}

	creds, err := m.Mint("cid")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(creds.Credential)
	if err != nil {
		t.Fatalf("DecodeString: %v", err)
	}
	if len(decoded) != sha1.Size {
		t.Fatalf("decoded length: got %d, want %d", len(decoded), sha1.Size)
	}
}

func TestMint_Validation(t *testing.T) {
	m, err := NewMinter(MinterConfig{SharedSecret: "s", TTL: time.Minute, Realm: "r"})
	if err != nil {
		t.Fatalf("NewMinter: %v", err)
	}
	if _, err := m.Mint(""); err == nil {
		t.Fatalf("empty connection id should be rejected")
	}
	if _, err := m.Mint("a:b"); err == nil {
		t.Fatalf("colon in connection id should be rejected")
	}
}

func TestNewMinter_Validation(t *testing.T) {
	cases := []struct {
		name string
		cfg  MinterConfig
	}{
		{"missing secret", MinterConfig{TTL: time.Minute, Realm: "r"}},
		{"zero ttl", MinterConfig{SharedSecret: "s", Realm: "r"}},
		{"missing realm", MinterConfig{SharedSecret: "s", TTL: time.Minute}},
		{"colon in realm", MinterConfig{SharedSecret: "s", TTL: time.Minute, Realm: "a:b"}},
	}
	for _, tc := range cases {
		if _, err := NewMinter(tc.cfg); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
