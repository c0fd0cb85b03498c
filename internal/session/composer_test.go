package session

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"testing"

	"maamcp/internal/engine"
	"maamcp/internal/registry"
)

type fakeController struct {
	engine.Controller
}

type fakeResource struct {
	path string
}

func (r *fakeResource) PostBundle(path string) *engine.Pending {
	return engine.Resolved(engine.Success(path))
}

func (r *fakeResource) Path() string { return r.path }

type fakeTasker struct{}

func (fakeTasker) PostRecognition(img image.Image) *engine.Pending {
	return engine.Resolved(engine.Success(nil))
}

type countingBinder struct {
	binds atomic.Int32
	fail  bool
}

func (b *countingBinder) BindTasker(c engine.Controller, r engine.Resource) (engine.Tasker, error) {
	b.binds.Add(1)
	if b.fail {
		return nil, fmt.Errorf("bind refused")
	}
	return fakeTasker{}, nil
}

func newFixture(t *testing.T, binder Binder) (*registry.Registry, *Composer, string, string) {
	t.Helper()
	reg := registry.New()
	cid := reg.Register(&fakeController{})
	rid := reg.Register(&fakeResource{path: "/bundle"})
	return reg, NewComposer(reg, binder, nil), cid, rid
}

func TestGetOrCreateTaskerMemoizes(t *testing.T) {
	binder := &countingBinder{}
	reg, comp, cid, rid := newFixture(t, binder)

	h1, ok := comp.GetOrCreateTasker(cid, rid)
	if !ok || h1 == "" {
		t.Fatalf("first GetOrCreateTasker = %q, %v", h1, ok)
	}
	h2, ok := comp.GetOrCreateTasker(cid, rid)
	if !ok || h2 != h1 {
		t.Fatalf("second GetOrCreateTasker = %q, %v; want %q, true", h2, ok, h1)
	}
	if binder.binds.Load() != 1 {
		t.Fatalf("bind count = %d, want 1", binder.binds.Load())
	}
	if _, ok := reg.Get(h1); !ok {
		t.Fatal("tasker handle does not resolve in the registry")
	}
}

func TestGetOrCreateTaskerOrderSensitiveKey(t *testing.T) {
	binder := &countingBinder{}
	_, comp, cid, rid := newFixture(t, binder)

	h1, ok := comp.GetOrCreateTasker(cid, rid)
	if !ok {
		t.Fatal("forward pair failed")
	}
	// Swapped roles must not land on the same cache slot. The swapped pair
	// fails to bind (controller slot holds a resource) but it must not
	// return the forward pair's handle either.
	h2, ok := comp.GetOrCreateTasker(rid, cid)
	if ok && h2 == h1 {
		t.Fatalf("swapped pair collided on cache slot %q", h1)
	}
}

func TestGetOrCreateTaskerUnknownHandles(t *testing.T) {
	binder := &countingBinder{}
	_, comp, cid, rid := newFixture(t, binder)

	if _, ok := comp.GetOrCreateTasker("missing", rid); ok {
		t.Fatal("unknown controller handle composed a tasker")
	}
	if _, ok := comp.GetOrCreateTasker(cid, "missing"); ok {
		t.Fatal("unknown resource handle composed a tasker")
	}
	if binder.binds.Load() != 0 {
		t.Fatalf("binder invoked %d times for unknown handles", binder.binds.Load())
	}
}

func TestGetOrCreateTaskerFailedBindNotCached(t *testing.T) {
	binder := &countingBinder{fail: true}
	reg, comp, cid, rid := newFixture(t, binder)

	if _, ok := comp.GetOrCreateTasker(cid, rid); ok {
		t.Fatal("failed bind reported success")
	}
	if _, ok := reg.Get(taskerKey(cid, rid)); ok {
		t.Fatal("failed bind was cached")
	}

	// A later attempt retries the bind instead of serving a cached failure.
	binder.fail = false
	if _, ok := comp.GetOrCreateTasker(cid, rid); !ok {
		t.Fatal("bind retry after earlier failure did not succeed")
	}
	if binder.binds.Load() != 2 {
		t.Fatalf("bind count = %d, want 2", binder.binds.Load())
	}
}

func TestGetOrCreateTaskerConcurrentFirstUse(t *testing.T) {
	binder := &countingBinder{}
	_, comp, cid, rid := newFixture(t, binder)

	const callers = 32
	handles := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			h, ok := comp.GetOrCreateTasker(cid, rid)
			if !ok {
				t.Errorf("caller %d failed", n)
				return
			}
			handles[n] = h
		}(i)
	}
	wg.Wait()

	for _, h := range handles {
		if h != handles[0] {
			t.Fatalf("divergent tasker handles: %q vs %q", h, handles[0])
		}
	}
	if binder.binds.Load() != 1 {
		t.Fatalf("bind count = %d under concurrent first use, want 1", binder.binds.Load())
	}
}
