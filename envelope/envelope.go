// Package envelope implements the result container returned by every
// boundary call, and the rules for releasing the memory behind it.
//
// An Envelope is either a Buffer, holding serialized bytes in memory obtained
// from an Allocator, or a HandlePointer, carrying the id of a library
// instance. The receiver owns the envelope and must call Release exactly
// once. Buffers are freed with their recorded capacity, which is the true
// allocation size and may exceed the payload length.
package envelope

import (
	"fmt"

	"github.com/VanDung-dev/flm-bridge/wire"
)

// Kind discriminates the payload of an envelope.
type Kind uint8

const (
	Buffer        Kind = 0
	HandlePointer Kind = 1
)

func (k Kind) String() string {
	switch k {
	case Buffer:
		return "buffer"
	case HandlePointer:
		return "handle_pointer"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Envelope is an owned boundary result.
type Envelope struct {
	kind     Kind
	isError  bool
	length   int
	capacity int
	buf      []byte
	handle   uint64
	alloc    *Allocator
	released bool
}

// Make builds an envelope of the given kind. For Buffer, payload is copied
// into freshly allocated memory and id is ignored. For HandlePointer, id is
// carried and payload is ignored.
func (a *Allocator) Make(kind Kind, payload []byte, id uint64) *Envelope {
	switch kind {
	case HandlePointer:
		return a.NewHandle(id)
	default:
		return a.NewBuffer(payload)
	}
}

// NewBuffer copies payload into a Buffer envelope.
func (a *Allocator) NewBuffer(payload []byte) *Envelope {
	buf, capacity := a.allocate(len(payload))
	copy(buf, payload)
	return &Envelope{
		kind:     Buffer,
		length:   len(payload),
		capacity: capacity,
		buf:      buf,
		alloc:    a,
	}
}

// NewHandle wraps a handle id. Length and capacity are zero.
func (a *Allocator) NewHandle(id uint64) *Envelope {
	a.track(0)
	return &Envelope{
		kind:   HandlePointer,
		handle: id,
		alloc:  a,
	}
}

// MarkError builds an error-flagged Buffer envelope whose payload is a
// serialized diagnostic.
func (a *Allocator) MarkError(message string) *Envelope {
	e := a.NewBuffer(wire.MarshalDiagnostic(message))
	e.isError = true
	return e
}

// MarkErrorf is MarkError with formatting.
func (a *Allocator) MarkErrorf(format string, args ...any) *Envelope {
	return a.MarkError(fmt.Sprintf(format, args...))
}

// FailWith builds an error-flagged envelope carrying a serialized error.
func (a *Allocator) FailWith(err error) *Envelope {
	data, merr := wire.Marshal(wire.NewOuterError(err))
	if merr != nil {
		return a.MarkError(err.Error())
	}
	e := a.NewBuffer(data)
	e.isError = true
	return e
}

// Kind reports the payload discriminant.
func (e *Envelope) Kind() Kind { return e.kind }

// IsError reports a bridge-level failure.
func (e *Envelope) IsError() bool { return e.isError }

// Len is the logical payload length.
func (e *Envelope) Len() int { return e.length }

// Cap is the allocated size backing the payload.
func (e *Envelope) Cap() int { return e.capacity }

// Bytes returns the payload without copying. The slice is valid until Release.
func (e *Envelope) Bytes() []byte {
	if e.released || e.kind != Buffer {
		return nil
	}
	return e.buf[:e.length]
}

// Handle returns the carried handle id, or 0 for buffers.
func (e *Envelope) Handle() uint64 {
	if e.kind != HandlePointer {
		return 0
	}
	return e.handle
}

// Released reports whether Release has run.
func (e *Envelope) Released() bool { return e.released }

// Release frees the envelope. It is a no-op on a nil envelope and panics on a
// second release or on a length exceeding the capacity.
func (e *Envelope) Release() {
	if e == nil {
		return
	}
	if e.released {
		panic(fmt.Sprintf("envelope: double release of %s envelope", e.kind))
	}
	MustFit(e.length, e.capacity)
	e.released = true

	switch e.kind {
	case Buffer:
		e.alloc.free(e.buf, e.capacity)
		e.buf = nil
	case HandlePointer:
		// The instance has its own destroy path.
		e.alloc.untrack(0)
	default:
		panic(fmt.Sprintf("envelope: release of unknown %s", e.kind))
	}
}

// MustFit panics unless length <= capacity.
func MustFit(length, capacity int) {
	if length < 0 || length > capacity {
		panic(fmt.Sprintf("envelope: length %d exceeds capacity %d", length, capacity))
	}
}

// Raw is the flattened form of an envelope used by boundary layers.
type Raw struct {
	Len     int
	Cap     int
	Data    []byte
	Handle  uint64
	IsError bool
	Kind    Kind
}

// Raw flattens the envelope. Data spans the whole allocation and stays owned
// by the envelope.
func (e *Envelope) Raw() Raw {
	r := Raw{
		Len:     e.length,
		Cap:     e.capacity,
		IsError: e.isError,
		Kind:    e.kind,
	}
	switch e.kind {
	case Buffer:
		r.Data = e.buf[:e.capacity]
	case HandlePointer:
		r.Handle = e.handle
	}
	return r
}
