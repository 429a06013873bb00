// Package match implements the stranger-matchmaking queue: a FIFO waiting
// list of connections looking for a random 1:1 partner, plus the symmetric
// table of currently paired partners.
//
// Like the room directory, the queue only mutates state and describes what
// changed. All stranger-connected / stranger-disconnected notifications are
// sent by the caller after the operation returns.
package match

import "sync"

// Liveness reports whether a connection id is still live. Satisfied by
// *registry.Registry.
type Liveness interface {
	IsLive(id string) bool
}

// FindResult describes the outcome of a FindPartner call.
type FindResult struct {
	// Paired is true when a partner was found; PartnerID names it. When
	// false the caller is now waiting in the queue.
	Paired    bool
	PartnerID string

	// PriorPartnerID is non-empty when the caller was already paired and
	// that pairing was dissolved first. Both sides of the old pairing must
	// be told it is over.
	PriorPartnerID string
}

// Queue owns the waiting list and the pairing table.
//
// Invariants: an id appears at most once in the waiting list; an id is a
// pairing-table key iff its partner is a key pointing back at it; no id is
// both queued and paired.
type Queue struct {
	mu      sync.Mutex
	live    Liveness
	waiting []string
	pairs   map[string]string
}

func NewQueue(live Liveness) *Queue {
	return &Queue{
		live:  live,
		pairs: make(map[string]string),
	}
}

// FindPartner pairs the caller with the connection at the head of the queue,
// or enqueues the caller when no live candidate is waiting.
//
// A caller that is already paired is unpaired first (implicit skip), so a
// connection never holds two partners. A stale queue head is evicted once
// per call rather than retried in a loop; the evicted slot self-heals on the
// next call.
func (q *Queue) FindPartner(connID string) FindResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	var res FindResult

	if partner, ok := q.pairs[connID]; ok {
		q.unpairLocked(connID, partner)
		res.PriorPartnerID = partner
	}

	// Drop any stale queue entry for the caller so it can never pair with
	// itself or end up queued twice.
	q.removeLocked(connID)

	if len(q.waiting) > 0 {
		head := q.waiting[0]
		q.waiting = q.waiting[1:]

		if q.live != nil && !q.live.IsLive(head) {
			q.waiting = append(q.waiting, connID)
			return res
		}

		q.pairs[connID] = head
		q.pairs[head] = connID
		res.Paired = true
		res.PartnerID = head
		return res
	}

	q.waiting = append(q.waiting, connID)
	return res
}

// Skip dissolves the caller's pairing and puts the caller (not the former
// partner) back at the tail of the queue. It returns false without effect
// when expectedPartnerID does not match the current pairing, which guards
// against a client skipping with stale state.
func (q *Queue) Skip(connID, expectedPartnerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.unpairIfMatchLocked(connID, expectedPartnerID) {
		return false
	}
	q.waiting = append(q.waiting, connID)
	return true
}

// DisconnectPartner dissolves the caller's pairing without requeueing
// anyone. Same stale-state validation as Skip.
func (q *Queue) DisconnectPartner(connID, expectedPartnerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.unpairIfMatchLocked(connID, expectedPartnerID)
}

// RemoveFromQueue removes the connection from the waiting list if present.
func (q *Queue) RemoveFromQueue(connID string) {
	q.mu.Lock()
	q.removeLocked(connID)
	q.mu.Unlock()
}

// OnDisconnect cleans up all matchmaking state for a vanished connection.
// It returns the former partner id when a pairing was dissolved, so the
// caller can notify the survivor. Both the pairing and the queue are checked
// unconditionally; cleanup must not assume which state held.
func (q *Queue) OnDisconnect(connID string) (partnerID string, unpaired bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if partner, ok := q.pairs[connID]; ok {
		q.unpairLocked(connID, partner)
		partnerID, unpaired = partner, true
	}
	q.removeLocked(connID)
	return partnerID, unpaired
}

// WaitingCount returns the current queue length.
func (q *Queue) WaitingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

// PairedCount returns the number of currently paired connections.
func (q *Queue) PairedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pairs)
}

// PartnerOf reports the caller's current partner, if any.
func (q *Queue) PartnerOf(connID string) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	p, ok := q.pairs[connID]
	return p, ok
}

func (q *Queue) unpairIfMatchLocked(connID, expectedPartnerID string) bool {
	partner, ok := q.pairs[connID]
	if !ok || partner != expectedPartnerID {
		return false
	}
	q.unpairLocked(connID, partner)
	return true
}

func (q *Queue) unpairLocked(a, b string) {
	delete(q.pairs, a)
	delete(q.pairs, b)
}

func (q *Queue) removeLocked(connID string) {
	for i, id := range q.waiting {
		if id == connID {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return
		}
	}
}
