package httpserver

import (
	"net/http"
	"strings"

	"github.com/pion/webrtc/v4"

	"github.com/meetlink/signal-relay/internal/origin"
	"github.com/meetlink/signal-relay/internal/turnrest"
)

// RegisterICEConfig serves the ICE server list clients pass to
// RTCPeerConnection. When TURN REST is configured, every response carries
// freshly minted time-limited TURN credentials.
func (s *Server) RegisterICEConfig(minter *turnrest.Minter) {
	origins := origin.NewChecker(s.cfg.AllowedOrigins)

	s.mux.HandleFunc("GET /ice-config", withOriginPolicy(origins, func(w http.ResponseWriter, r *http.Request) {
		servers := make([]webrtc.ICEServer, 0, 2)
		if len(s.cfg.STUNUrls) > 0 {
			servers = append(servers, webrtc.ICEServer{URLs: s.cfg.STUNUrls})
		}
		if minter != nil && len(s.cfg.TURNUrls) > 0 {
			creds, err := minter.Mint(r.URL.Query().Get("id"))
			if err != nil {
				// No usable connection id; mint against an anonymous one so
				// the client still gets a relay.
				creds, err = minter.Mint("anonymous")
			}
			if err != nil {
				WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": "credential minting failed"})
				return
			}
			servers = append(servers, webrtc.ICEServer{
				URLs:       s.cfg.TURNUrls,
				Username:   creds.Username,
				Credential: creds.Credential,
			})
		}
		WriteJSON(w, http.StatusOK, map[string]any{"iceServers": servers})
	}))
}

// withOriginPolicy enforces the browser origin allowlist on plain HTTP
// routes and emits the CORS headers a cross-origin frontend needs.
func withOriginPolicy(origins *origin.Checker, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		originHeader := strings.TrimSpace(r.Header.Get("Origin"))
		if originHeader == "" {
			next(w, r)
			return
		}
		if !origins.Allow(originHeader) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		normalized, ok := origin.Normalize(originHeader)
		if !ok {
			normalized = originHeader
		}
		w.Header().Set("Access-Control-Allow-Origin", normalized)
		w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		w.Header().Add("Vary", "Origin")

		next(w, r)
	}
}
