// Package room implements the room directory: which connections are members
// of which named room, and under what display identity.
//
// The directory only mutates state and reports what changed; notifying other
// members (user-joined / user-left events) is the caller's job. This keeps
// the directory testable without a live message-delivery collaborator.
package room

import "sync"

// Member is one room occupant as seen on the wire.
type Member struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// JoinResult describes the effect of a Join call.
type JoinResult struct {
	RoomID string

	// Existing lists every other current member in insertion order, so the
	// joining client can learn who is already present.
	Existing []Member

	// Rejoined is true when the connection was already a member of this room.
	// The caller must not announce the member to the room a second time.
	Rejoined bool

	// PriorLeave is non-nil when the connection was a member of a different
	// room and was implicitly removed from it first. A connection holds at
	// most one room membership at a time.
	PriorLeave *LeaveResult
}

// LeaveResult describes the effect of removing a connection from its room.
type LeaveResult struct {
	RoomID    string
	Member    Member
	Remaining int

	// RoomDeleted is true when the departure emptied the room. Empty rooms
	// never linger in the directory.
	RoomDeleted bool
}

type participant struct {
	email  string
	roomID string
}

// Directory owns all Participant and room records. Safe for concurrent use;
// every operation runs under one coarse lock, which is plenty for maps this
// small.
type Directory struct {
	mu sync.Mutex

	// members keeps insertion order per room so the "existing members" reply
	// is stable for a given call.
	members      map[string][]string
	participants map[string]participant
}

func NewDirectory() *Directory {
	return &Directory{
		members:      make(map[string][]string),
		participants: make(map[string]participant),
	}
}

// Join adds the connection to roomID under the given display identity,
// creating the room if absent. An empty email is allowed; it is an opaque
// token. Rejoining the same room overwrites the identity and re-reports the
// other members without duplicating the membership.
func (d *Directory) Join(connID, roomID, email string) JoinResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	res := JoinResult{RoomID: roomID}

	if p, ok := d.participants[connID]; ok {
		if p.roomID == roomID {
			res.Rejoined = true
		} else {
			prior := d.leaveLocked(connID)
			res.PriorLeave = &prior
		}
	}

	if !res.Rejoined {
		d.members[roomID] = append(d.members[roomID], connID)
	}
	d.participants[connID] = participant{email: email, roomID: roomID}

	for _, id := range d.members[roomID] {
		if id == connID {
			continue
		}
		p, ok := d.participants[id]
		if !ok {
			continue
		}
		res.Existing = append(res.Existing, Member{ID: id, Email: p.email})
	}
	return res
}

// Leave removes the connection from its room, deleting the room if it ends
// up empty. The second return is false when the connection had no room;
// calling Leave twice in a row is a harmless no-op.
func (d *Directory) Leave(connID string) (LeaveResult, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.participants[connID]; !ok {
		return LeaveResult{}, false
	}
	return d.leaveLocked(connID), true
}

func (d *Directory) leaveLocked(connID string) LeaveResult {
	p := d.participants[connID]
	delete(d.participants, connID)

	ids := d.members[p.roomID]
	for i, id := range ids {
		if id == connID {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}

	res := LeaveResult{
		RoomID:    p.roomID,
		Member:    Member{ID: connID, Email: p.email},
		Remaining: len(ids),
	}
	if len(ids) == 0 {
		delete(d.members, p.roomID)
		res.RoomDeleted = true
	} else {
		d.members[p.roomID] = ids
	}
	return res
}

// Members returns the current member ids of roomID in insertion order, or
// nil if the room does not exist. Used to fan out room broadcasts.
func (d *Directory) Members(roomID string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := d.members[roomID]
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// RoomCount returns the number of rooms currently tracked.
func (d *Directory) RoomCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.members)
}
