package signaling

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/meetlink/signal-relay/internal/metrics"
	"github.com/meetlink/signal-relay/internal/registry"
)

type sentEvent struct {
	to    string
	event string
	data  any
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentEvent
}

func (r *recordingSender) Send(connID, event string, data any) {
	r.mu.Lock()
	r.sent = append(r.sent, sentEvent{to: connID, event: event, data: data})
	r.mu.Unlock()
}

func (r *recordingSender) all() []sentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentEvent(nil), r.sent...)
}

func (r *recordingSender) eventsFor(connID string) []sentEvent {
	var out []sentEvent
	for _, e := range r.all() {
		if e.to == connID {
			out = append(out, e)
		}
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRelay_ForwardsToLiveTarget(t *testing.T) {
	reg := registry.New()
	reg.Register("a")
	reg.Register("b")
	sender := &recordingSender{}
	m := metrics.New()
	r := NewRelay(reg, sender, m, discardLogger())

	if !r.Forward("a", "b", EventIncomingCall, offerFromData{From: "a"}) {
		t.Fatalf("forward to live target should succeed")
	}

	got := sender.eventsFor("b")
	if len(got) != 1 || got[0].event != EventIncomingCall {
		t.Fatalf("unexpected deliveries: %+v", got)
	}
	if m.Get(metrics.SignalRelayed) != 1 {
		t.Fatalf("relayed counter = %d, want 1", m.Get(metrics.SignalRelayed))
	}
}

func TestRelay_DropsVanishedTargetSilently(t *testing.T) {
	reg := registry.New()
	reg.Register("a")
	sender := &recordingSender{}
	m := metrics.New()
	r := NewRelay(reg, sender, m, discardLogger())

	if r.Forward("a", "ghost", EventIncomingCall, offerFromData{From: "a"}) {
		t.Fatalf("forward to a vanished target must report failure")
	}
	if len(sender.all()) != 0 {
		t.Fatalf("nothing may be delivered for a vanished target")
	}
	if m.Get(metrics.DropStaleTarget) != 1 {
		t.Fatalf("stale target counter = %d, want 1", m.Get(metrics.DropStaleTarget))
	}
}
