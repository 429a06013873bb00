package origin

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://example.com", "https://example.com", true},
		{"HTTPS://Example.COM", "https://example.com", true},
		{"https://example.com:443", "https://example.com", true},
		{"http://example.com:80", "http://example.com", true},
		{"http://example.com:8080", "http://example.com:8080", true},
		{"https://[::1]:8443", "https://[::1]:8443", true},
		{"null", "null", true},
		{"", "", false},
		{"example.com", "", false},
		{"ftp://example.com", "", false},
		{"https://example.com/path", "", false},
		{"https://user@example.com", "", false},
		{"https://example.com?q=1", "", false},
		{"https://example.com:0", "", false},
	}

	for _, tc := range cases {
		got, ok := Normalize(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("Normalize(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestChecker_EmptyAllowlistAllowsEverything(t *testing.T) {
	c := NewChecker(nil)
	if !c.Allow("https://anything.example") {
		t.Fatalf("empty allowlist should allow all origins")
	}
	if !c.Allow("") {
		t.Fatalf("missing Origin header should be allowed")
	}
}

func TestChecker_Allowlist(t *testing.T) {
	c := NewChecker([]string{"https://app.example.com", "http://localhost:3000"})

	if !c.Allow("https://app.example.com") {
		t.Fatalf("listed origin should be allowed")
	}
	if !c.Allow("HTTPS://APP.EXAMPLE.COM:443") {
		t.Fatalf("origin should match after normalization")
	}
	if !c.Allow("http://localhost:3000") {
		t.Fatalf("listed localhost origin should be allowed")
	}
	if c.Allow("https://evil.example.com") {
		t.Fatalf("unlisted origin must be rejected")
	}
	if c.Allow("garbage") {
		t.Fatalf("malformed origin must be rejected")
	}
	if !c.Allow("") {
		t.Fatalf("missing Origin header should be allowed")
	}
}

func TestChecker_Wildcard(t *testing.T) {
	c := NewChecker([]string{"*"})
	if !c.Allow("https://anywhere.example") {
		t.Fatalf("wildcard allowlist should allow all origins")
	}
}
