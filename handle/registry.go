// Package handle keeps the library instances that hosts refer to by opaque id.
//
// Ids are issued from a counter and never reused, so an id that was issued
// and destroyed can be told apart from one that was never issued. Using a
// destroyed id is a caller bug and panics. Passing the null id or an id that
// was never issued is reported as an error.
package handle

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ID is the opaque value hosts hold. Zero is the null handle.
type ID uint64

// Null is the invalid handle.
const Null ID = 0

var (
	ErrNullHandle    = errors.New("handle: null handle")
	ErrUnknownHandle = errors.New("handle: unknown handle")
)

// State classifies an id against a registry.
type State int

const (
	StateNull State = iota
	StateLive
	StateDestroyed
	StateUnknown
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "null"
	case StateLive:
		return "live"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Registry maps ids to live instances.
type Registry[T io.Closer] struct {
	mu   sync.RWMutex
	last ID
	live map[ID]T
}

// NewRegistry creates an empty registry.
func NewRegistry[T io.Closer]() *Registry[T] {
	return &Registry[T]{live: make(map[ID]T)}
}

// Insert stores v and returns its new id.
func (r *Registry[T]) Insert(v T) ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last++
	r.live[r.last] = v
	return r.last
}

// State reports what id refers to.
func (r *Registry[T]) State(id ID) State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stateLocked(id)
}

func (r *Registry[T]) stateLocked(id ID) State {
	if id == Null {
		return StateNull
	}
	if _, ok := r.live[id]; ok {
		return StateLive
	}
	if id <= r.last {
		return StateDestroyed
	}
	return StateUnknown
}

// Get borrows the instance behind id.
func (r *Registry[T]) Get(id ID) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T
	switch r.stateLocked(id) {
	case StateLive:
		return r.live[id], nil
	case StateNull:
		return zero, ErrNullHandle
	case StateDestroyed:
		panic(fmt.Sprintf("handle: use of destroyed handle %d", id))
	default:
		return zero, fmt.Errorf("%w: %d", ErrUnknownHandle, id)
	}
}

// Destroy removes id and closes its instance. The null id is a no-op.
func (r *Registry[T]) Destroy(id ID) error {
	r.mu.Lock()
	state := r.stateLocked(id)
	v, ok := r.live[id]
	if ok {
		delete(r.live, id)
	}
	r.mu.Unlock()

	switch state {
	case StateNull:
		return nil
	case StateDestroyed:
		panic(fmt.Sprintf("handle: destroy of destroyed handle %d", id))
	case StateUnknown:
		return fmt.Errorf("%w: %d", ErrUnknownHandle, id)
	}
	return v.Close()
}

// Len returns the number of live instances.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}

// CloseAll destroys every live instance and returns the first close error.
func (r *Registry[T]) CloseAll() error {
	r.mu.Lock()
	live := r.live
	r.live = make(map[ID]T)
	r.mu.Unlock()

	var first error
	for _, v := range live {
		if err := v.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
