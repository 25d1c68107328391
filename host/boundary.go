// Package host drives a filter list library through the bridge boundary the
// way a foreign host runtime does: by handle, opcode and serialized bytes.
//
// A Boundary exposes the six raw boundary functions. InProcess calls a
// bridge in the same process, host/native calls the built C library and
// remote.Client talks to a bridge server over ZeroMQ. Driver owns one
// handle on a Boundary, and Manager turns a Driver back into a typed
// flm.Manager.
//
// Nothing here releases memory behind the caller's back. Every Response must
// be released exactly once and every Driver must be closed.
package host

import (
	"fmt"
	"sync/atomic"

	"github.com/VanDung-dev/flm-bridge/bridge"
	"github.com/VanDung-dev/flm-bridge/envelope"
	"github.com/VanDung-dev/flm-bridge/flm"
)

// ResponseType is the discriminant of a Response. The values match the C
// FLMResponseType.
type ResponseType int32

const (
	TypeBuffer        ResponseType = 0
	TypeHandlePointer ResponseType = 1
)

func (t ResponseType) String() string {
	switch t {
	case TypeBuffer:
		return "buffer"
	case TypeHandlePointer:
		return "handle_pointer"
	default:
		return fmt.Sprintf("ResponseType(%d)", int32(t))
	}
}

// Response is a boundary result owned by the host.
type Response interface {
	Type() ResponseType
	IsError() bool
	// Bytes views the payload without copying. The view is invalid after
	// Release.
	Bytes() []byte
	Handle() uint64
	// Release frees the response. A second call panics.
	Release()
}

// Boundary is the raw call surface of a bridge.
type Boundary interface {
	DefaultConfiguration() (Response, error)
	Init(config []byte) (Response, error)
	Call(handle uint64, method Method, args []byte) (Response, error)
	DestroyHandle(handle uint64) error
	Constants() (flm.Constants, error)
}

// BufferedResponse is a Response held in Go memory, used by adapters that
// receive a copy of the bridge's envelope.
type BufferedResponse struct {
	typ      ResponseType
	isError  bool
	data     []byte
	handle   uint64
	released atomic.Bool
}

// NewBufferedResponse takes ownership of data.
func NewBufferedResponse(typ ResponseType, isError bool, data []byte, handle uint64) *BufferedResponse {
	return &BufferedResponse{typ: typ, isError: isError, data: data, handle: handle}
}

func (r *BufferedResponse) Type() ResponseType { return r.typ }
func (r *BufferedResponse) IsError() bool      { return r.isError }
func (r *BufferedResponse) Bytes() []byte      { return r.data }
func (r *BufferedResponse) Handle() uint64     { return r.handle }

func (r *BufferedResponse) Release() {
	if !r.released.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("host: double release of %s response", r.typ))
	}
	r.data = nil
}

// InProcess is a Boundary over a bridge living in the same process.
type InProcess struct {
	b *bridge.Bridge
}

// NewInProcess wraps b.
func NewInProcess(b *bridge.Bridge) *InProcess {
	return &InProcess{b: b}
}

func (p *InProcess) DefaultConfiguration() (Response, error) {
	return envelopeResponse{p.b.DefaultConfiguration()}, nil
}

func (p *InProcess) Init(config []byte) (Response, error) {
	return envelopeResponse{p.b.Init(config)}, nil
}

func (p *InProcess) Call(handle uint64, method Method, args []byte) (Response, error) {
	return envelopeResponse{p.b.Call(handle, int32(method), args)}, nil
}

func (p *InProcess) DestroyHandle(handle uint64) error {
	return p.b.DestroyHandle(handle)
}

func (p *InProcess) Constants() (flm.Constants, error) {
	return p.b.Constants(), nil
}

// envelopeResponse hands the bridge's envelope to the host without copying.
type envelopeResponse struct {
	e *envelope.Envelope
}

func (r envelopeResponse) Type() ResponseType { return ResponseType(r.e.Kind()) }
func (r envelopeResponse) IsError() bool      { return r.e.IsError() }
func (r envelopeResponse) Bytes() []byte      { return r.e.Bytes() }
func (r envelopeResponse) Handle() uint64     { return r.e.Handle() }
func (r envelopeResponse) Release()           { r.e.Release() }
