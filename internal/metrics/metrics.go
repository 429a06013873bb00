package metrics

import "sync"

// Event counter names. Drops are split by reason so a dashboard can tell a
// chatty buggy client (bad_message) from normal churn (stale_target).
const (
	RoomJoin       = "room_join"
	RoomLeave      = "room_leave"
	RoomDeleted    = "room_deleted"
	StrangerPaired = "stranger_paired"
	StrangerWaited = "stranger_waited"
	StrangerSkip   = "stranger_skip"
	StrangerLeave  = "stranger_leave"
	SignalRelayed  = "signal_relayed"

	DropStaleTarget  = "drop_stale_target"
	DropBadMessage   = "drop_bad_message"
	DropRateLimited  = "drop_rate_limited"
	DropUnknownEvent = "drop_unknown_event"
	DropUnauthorized = "drop_unauthorized"
)

// Metrics is a minimal, concurrency-safe counter registry.
//
// It exists so the coordination logic stays testable without a metrics
// backend; counters are exposed for scraping via PrometheusHandler.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{
		m: make(map[string]uint64),
	}
}

func (m *Metrics) Inc(name string) {
	m.Add(name, 1)
}

func (m *Metrics) Add(name string, delta uint64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.m[name] += delta
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}
