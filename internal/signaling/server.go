package signaling

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/meetlink/signal-relay/internal/auth"
	"github.com/meetlink/signal-relay/internal/config"
	"github.com/meetlink/signal-relay/internal/match"
	"github.com/meetlink/signal-relay/internal/metrics"
	"github.com/meetlink/signal-relay/internal/origin"
	"github.com/meetlink/signal-relay/internal/ratelimit"
	"github.com/meetlink/signal-relay/internal/registry"
	"github.com/meetlink/signal-relay/internal/room"
)

const wsWriteWait = 1 * time.Second

// Server owns the websocket endpoint and all per-connection plumbing. It
// implements Sender; the coordinator and relay deliver every outbound event
// through it.
type Server struct {
	log     *slog.Logger
	cfg     config.Config
	metrics *metrics.Metrics

	origins  *origin.Checker
	verifier auth.Verifier
	upgrader websocket.Upgrader
	clock    ratelimit.Clock

	registry *registry.Registry
	rooms    *room.Directory
	queue    *match.Queue
	coord    *Coordinator

	mu     sync.Mutex
	peers  map[string]*peer
	closed bool
}

func NewServer(cfg config.Config, m *metrics.Metrics, log *slog.Logger) (*Server, error) {
	verifier, err := auth.NewVerifier(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		verifier: verifier,
		log:      log,
		cfg:      cfg,
		metrics:  m,
		origins:  origin.NewChecker(cfg.AllowedOrigins),
		clock:    ratelimit.RealClock{},
		peers:    make(map[string]*peer),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return s.origins.Allow(r.Header.Get("Origin"))
		},
	}

	s.registry = registry.New()
	s.rooms = room.NewDirectory()
	s.queue = match.NewQueue(s.registry)
	relay := NewRelay(s.registry, s, m, log)
	s.coord = NewCoordinator(s.registry, s.rooms, s.queue, relay, s, m, log)
	return s, nil
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", s.handleWebSocket)
}

// Close tears down every live connection. Each read loop observes the closed
// socket and runs its normal disconnect cleanup.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	peers := make([]*peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()

	for _, p := range peers {
		_ = p.conn.Close()
	}
}

// Send implements Sender. Unknown connection ids and write failures are
// dropped; the disconnect cleanup path is the single place that reconciles
// peer state.
func (s *Server) Send(connID, event string, data any) {
	s.mu.Lock()
	p := s.peers[connID]
	s.mu.Unlock()
	if p == nil {
		return
	}

	payload, err := MarshalEnvelope(event, data)
	if err != nil {
		s.log.Error("marshal outbound event", "event", event, "err", err)
		return
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := p.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.log.Debug("outbound write failed", "conn", connID, "event", event, "err", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.verifier != nil {
		cred, err := auth.CredentialFromQuery(s.cfg.AuthMode, r.URL.Query())
		if err == nil {
			err = s.verifier.Verify(cred)
		}
		if err != nil {
			s.metrics.Add(metrics.DropUnauthorized, 1)
			s.log.Debug("handshake rejected", "remote", r.RemoteAddr, "err", err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	p := &peer{
		id:   uuid.NewString(),
		conn: conn,
		srv:  s,
		limiter: ratelimit.NewTokenBucket(
			s.clock,
			int64(s.cfg.MaxMessagesPerSecond),
			int64(s.cfg.MaxMessagesPerSecond),
		),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.peers[p.id] = p
	s.mu.Unlock()

	s.coord.OnConnect(p.id)

	go p.pingLoop(s.cfg.WSPingInterval)
	p.readLoop()

	close(p.done)
	s.mu.Lock()
	delete(s.peers, p.id)
	s.mu.Unlock()

	s.coord.OnDisconnect(p.id)
	_ = conn.Close()
}

type peer struct {
	id      string
	conn    *websocket.Conn
	srv     *Server
	limiter *ratelimit.TokenBucket

	writeMu sync.Mutex
	done    chan struct{}
}

func (p *peer) readLoop() {
	cfg := p.srv.cfg

	p.conn.SetReadLimit(cfg.MaxMessageBytes)
	_ = p.conn.SetReadDeadline(time.Now().Add(cfg.WSIdleTimeout))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(cfg.WSIdleTimeout))
	})

	for {
		msgType, data, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		// Inbound events also refresh the idle deadline; a client that only
		// sends (never pongs) must not be dropped.
		_ = p.conn.SetReadDeadline(time.Now().Add(cfg.WSIdleTimeout))

		if !p.limiter.Allow(1) {
			p.srv.metrics.Add(metrics.DropRateLimited, 1)
			p.closeWith(websocket.ClosePolicyViolation, "rate limit exceeded")
			return
		}
		if msgType != websocket.TextMessage {
			p.srv.metrics.Add(metrics.DropBadMessage, 1)
			p.closeWith(websocket.CloseUnsupportedData, "expected text message")
			return
		}

		env, err := ParseEnvelope(data)
		if err != nil {
			// A malformed frame is dropped, not fatal; the worst outcome of
			// any bad event is a lost message.
			p.srv.metrics.Add(metrics.DropBadMessage, 1)
			p.srv.log.Debug("malformed frame dropped", "conn", p.id, "err", err)
			continue
		}

		p.srv.coord.OnMessage(p.id, env)
	}
}

func (p *peer) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			// WriteControl is safe concurrently with WriteMessage.
			if err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func (p *peer) closeWith(code int, reason string) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(wsWriteWait))
}
