package registry

import (
	"sync"
	"testing"
)

func TestRegistry_RegisterUnregister(t *testing.T) {
	r := New()

	if r.IsLive("a") {
		t.Fatalf("expected unknown id to not be live")
	}

	r.Register("a")
	if !r.IsLive("a") {
		t.Fatalf("expected registered id to be live")
	}
	if got := r.Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}

	r.Unregister("a")
	if r.IsLive("a") {
		t.Fatalf("expected unregistered id to not be live")
	}
	if got := r.Count(); got != 0 {
		t.Fatalf("Count() = %d, want 0", got)
	}
}

func TestRegistry_UnregisterUnknownIsNoop(t *testing.T) {
	r := New()
	r.Unregister("missing")

	r.Register("a")
	r.Unregister("missing")
	if !r.IsLive("a") {
		t.Fatalf("unrelated unregister must not remove other ids")
	}
}

func TestRegistry_ConcurrentLookups(t *testing.T) {
	r := New()
	r.Register("a")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				r.IsLive("a")
			}
		}()
	}
	r.Unregister("a")
	wg.Wait()

	if r.IsLive("a") {
		t.Fatalf("id must not be live after Unregister returned")
	}
}
