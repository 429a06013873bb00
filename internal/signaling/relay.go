package signaling

import (
	"log/slog"

	"github.com/meetlink/signal-relay/internal/metrics"
)

// Sender delivers an outbound event to one connection. Delivery is
// fire-and-forget; implementations must not block on the receiver.
type Sender interface {
	Send(connID string, event string, data any)
}

// Liveness reports whether a connection id is still live.
type Liveness interface {
	IsLive(id string) bool
}

// Relay forwards call-negotiation payloads between two connections that are
// establishing a direct peer link outside this system.
//
// It is stateless: the target is validated against the connection registry
// as a best-effort check and the payload is passed through verbatim, tagged
// with the sender so the recipient can reply. A vanished target drops the
// message silently; the sender could not act on a delivery failure anyway.
type Relay struct {
	live    Liveness
	send    Sender
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewRelay(live Liveness, send Sender, m *metrics.Metrics, log *slog.Logger) *Relay {
	return &Relay{
		live:    live,
		send:    send,
		metrics: m,
		log:     log,
	}
}

// Forward delivers event/data to targetID on behalf of senderID. It reports
// whether the message was handed to the transport.
func (r *Relay) Forward(senderID, targetID, event string, data any) bool {
	if !r.live.IsLive(targetID) {
		r.metrics.Add(metrics.DropStaleTarget, 1)
		r.log.Debug("relay target gone", "from", senderID, "to", targetID, "event", event)
		return false
	}
	r.send.Send(targetID, event, data)
	r.metrics.Add(metrics.SignalRelayed, 1)
	return true
}
