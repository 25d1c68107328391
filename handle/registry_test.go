package handle

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

type closer struct {
	closed int
	err    error
}

func (c *closer) Close() error {
	c.closed++
	return c.err
}

func mustPanic(t *testing.T, contains string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		msg, _ := r.(string)
		if !strings.Contains(msg, contains) {
			t.Fatalf("Expected panic containing %q, got %v", contains, r)
		}
	}()
	fn()
}

func TestInsertGetDestroy(t *testing.T) {
	r := NewRegistry[*closer]()
	c := &closer{}

	id := r.Insert(c)
	if id == Null {
		t.Fatal("Insert returned the null handle")
	}
	if r.State(id) != StateLive {
		t.Errorf("Expected live, got %s", r.State(id))
	}

	got, err := r.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != c {
		t.Error("Get returned a different instance")
	}

	if err := r.Destroy(id); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if c.closed != 1 {
		t.Errorf("Expected one close, got %d", c.closed)
	}
	if r.Len() != 0 {
		t.Errorf("Expected empty registry, got %d", r.Len())
	}
	if r.State(id) != StateDestroyed {
		t.Errorf("Expected destroyed, got %s", r.State(id))
	}
}

func TestIDsAreNotReused(t *testing.T) {
	r := NewRegistry[*closer]()
	a := r.Insert(&closer{})
	_ = r.Destroy(a)
	b := r.Insert(&closer{})
	if a == b {
		t.Errorf("Id %d reused", a)
	}
}

func TestNullHandle(t *testing.T) {
	r := NewRegistry[*closer]()
	if _, err := r.Get(Null); !errors.Is(err, ErrNullHandle) {
		t.Errorf("Expected ErrNullHandle, got %v", err)
	}
	if err := r.Destroy(Null); err != nil {
		t.Errorf("Destroy(Null) must be a no-op, got %v", err)
	}
}

func TestUnknownHandle(t *testing.T) {
	r := NewRegistry[*closer]()
	if _, err := r.Get(77); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("Expected ErrUnknownHandle, got %v", err)
	}
	if err := r.Destroy(77); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("Expected ErrUnknownHandle, got %v", err)
	}
}

func TestUseAfterDestroyPanics(t *testing.T) {
	r := NewRegistry[*closer]()
	id := r.Insert(&closer{})
	_ = r.Destroy(id)

	mustPanic(t, "use of destroyed handle", func() { _, _ = r.Get(id) })
	mustPanic(t, "destroy of destroyed handle", func() { _ = r.Destroy(id) })
}

func TestDestroyReturnsCloseError(t *testing.T) {
	r := NewRegistry[*closer]()
	want := errors.New("close failed")
	id := r.Insert(&closer{err: want})
	if err := r.Destroy(id); !errors.Is(err, want) {
		t.Errorf("Expected close error, got %v", err)
	}
	if r.Len() != 0 {
		t.Error("Instance must be removed even when close fails")
	}
}

func TestCloseAll(t *testing.T) {
	r := NewRegistry[*closer]()
	cs := []*closer{{}, {}, {}}
	for _, c := range cs {
		r.Insert(c)
	}
	if err := r.CloseAll(); err != nil {
		t.Fatalf("CloseAll failed: %v", err)
	}
	for i, c := range cs {
		if c.closed != 1 {
			t.Errorf("closer %d closed %d times", i, c.closed)
		}
	}
	if r.Len() != 0 {
		t.Errorf("Expected empty registry, got %d", r.Len())
	}
}

func TestConcurrentInsert(t *testing.T) {
	r := NewRegistry[*closer]()
	var wg sync.WaitGroup
	ids := make(chan ID, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- r.Insert(&closer{})
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[ID]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("Duplicate id %d", id)
		}
		seen[id] = true
	}
	if r.Len() != 100 {
		t.Errorf("Expected 100 live handles, got %d", r.Len())
	}
}
