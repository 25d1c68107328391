package envelope

import (
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Alignment is the allocation granularity of buffer payloads.
const Alignment = 64

// Allocator hands out envelope memory and keeps count of live envelopes.
type Allocator struct {
	mem   memory.Allocator
	live  atomic.Int64
	bytes atomic.Int64
}

// NewAllocator wraps an arrow allocator. A nil mem uses the Go heap.
func NewAllocator(mem memory.Allocator) *Allocator {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Allocator{mem: mem}
}

// Default allocates from the Go heap.
var Default = NewAllocator(nil)

// Stats is a snapshot of outstanding envelopes.
type Stats struct {
	Live  int64
	Bytes int64
}

// Stats reports envelopes created and not yet released.
func (a *Allocator) Stats() Stats {
	return Stats{Live: a.live.Load(), Bytes: a.bytes.Load()}
}

// CapacityFor returns the allocation size used for a payload of n bytes.
func CapacityFor(n int) int {
	c := (n + Alignment - 1) &^ (Alignment - 1)
	if c == 0 {
		c = Alignment
	}
	return c
}

func (a *Allocator) allocate(n int) ([]byte, int) {
	capacity := CapacityFor(n)
	buf := a.mem.Allocate(capacity)
	a.track(capacity)
	return buf[:capacity], capacity
}

func (a *Allocator) free(buf []byte, capacity int) {
	a.mem.Free(buf[:capacity])
	a.untrack(capacity)
}

func (a *Allocator) track(size int) {
	a.live.Add(1)
	a.bytes.Add(int64(size))
}

func (a *Allocator) untrack(size int) {
	a.live.Add(-1)
	a.bytes.Add(-int64(size))
}
