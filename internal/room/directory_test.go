package room

import (
	"reflect"
	"testing"
)

func TestDirectory_JoinReportsExistingMembers(t *testing.T) {
	d := NewDirectory()

	res := d.Join("x", "r1", "alice")
	if len(res.Existing) != 0 {
		t.Fatalf("first joiner should see no existing members, got %v", res.Existing)
	}

	res = d.Join("y", "r1", "bob")
	want := []Member{{ID: "x", Email: "alice"}}
	if !reflect.DeepEqual(res.Existing, want) {
		t.Fatalf("Existing = %v, want %v", res.Existing, want)
	}
	if res.Rejoined {
		t.Fatalf("fresh join must not be reported as rejoin")
	}
}

func TestDirectory_MemberCountTracksJoinsAndLeaves(t *testing.T) {
	d := NewDirectory()

	d.Join("a", "r", "")
	d.Join("b", "r", "")
	d.Join("c", "r", "")
	if got := len(d.Members("r")); got != 3 {
		t.Fatalf("member count = %d, want 3", got)
	}

	res, ok := d.Leave("b")
	if !ok {
		t.Fatalf("expected leave to find a room")
	}
	if res.RoomID != "r" || res.Remaining != 2 || res.RoomDeleted {
		t.Fatalf("unexpected leave result: %+v", res)
	}
	if got := len(d.Members("r")); got != 2 {
		t.Fatalf("member count = %d, want 2", got)
	}
}

func TestDirectory_EmptyRoomIsDeleted(t *testing.T) {
	d := NewDirectory()

	d.Join("x", "r1", "alice")
	d.Join("y", "r1", "bob")

	res, _ := d.Leave("x")
	if res.RoomDeleted {
		t.Fatalf("room with a remaining member must survive")
	}

	res, _ = d.Leave("y")
	if !res.RoomDeleted || res.Remaining != 0 {
		t.Fatalf("last leave should delete the room: %+v", res)
	}
	if d.Members("r1") != nil {
		t.Fatalf("deleted room still has members")
	}
	if d.RoomCount() != 0 {
		t.Fatalf("directory should hold no rooms, got %d", d.RoomCount())
	}
}

func TestDirectory_LeaveTwiceIsNoop(t *testing.T) {
	d := NewDirectory()
	d.Join("x", "r1", "alice")

	if _, ok := d.Leave("x"); !ok {
		t.Fatalf("first leave should report a room")
	}
	if _, ok := d.Leave("x"); ok {
		t.Fatalf("second leave must be a no-op")
	}
}

func TestDirectory_RejoinSameRoomDoesNotDuplicate(t *testing.T) {
	d := NewDirectory()

	d.Join("x", "r1", "alice")
	d.Join("y", "r1", "bob")

	res := d.Join("x", "r1", "alice2")
	if !res.Rejoined {
		t.Fatalf("expected rejoin to be flagged")
	}
	if got := len(d.Members("r1")); got != 2 {
		t.Fatalf("rejoin duplicated the member: count = %d", got)
	}
	// Identity is replace-on-rejoin.
	res = d.Join("z", "r1", "carol")
	want := []Member{{ID: "x", Email: "alice2"}, {ID: "y", Email: "bob"}}
	if !reflect.DeepEqual(res.Existing, want) {
		t.Fatalf("Existing = %v, want %v", res.Existing, want)
	}
}

func TestDirectory_JoinSecondRoomLeavesFirst(t *testing.T) {
	d := NewDirectory()

	d.Join("x", "r1", "alice")
	d.Join("y", "r1", "bob")

	res := d.Join("x", "r2", "alice")
	if res.PriorLeave == nil {
		t.Fatalf("expected implicit leave of prior room")
	}
	if res.PriorLeave.RoomID != "r1" || res.PriorLeave.Remaining != 1 {
		t.Fatalf("unexpected prior leave: %+v", res.PriorLeave)
	}
	if got := d.Members("r1"); !reflect.DeepEqual(got, []string{"y"}) {
		t.Fatalf("r1 members = %v, want [y]", got)
	}
	if got := d.Members("r2"); !reflect.DeepEqual(got, []string{"x"}) {
		t.Fatalf("r2 members = %v, want [x]", got)
	}
}

func TestDirectory_EmptyEmailIsAllowed(t *testing.T) {
	d := NewDirectory()
	d.Join("x", "r1", "")
	res := d.Join("y", "r1", "bob")
	want := []Member{{ID: "x", Email: ""}}
	if !reflect.DeepEqual(res.Existing, want) {
		t.Fatalf("Existing = %v, want %v", res.Existing, want)
	}
}
