//go:build flm_native

// Package native binds host.Boundary to the C library built from cmd/libflm.
//
// Build the library first:
//
//	go build -buildmode=c-shared -o build/libflm.so ./cmd/libflm
//
// then build with -tags flm_native.
package native

/*
#cgo CFLAGS: -I${SRCDIR}/../../include
#cgo linux LDFLAGS: -L${SRCDIR}/../../build -lflm -Wl,-rpath,${SRCDIR}/../../build
#cgo darwin LDFLAGS: -L${SRCDIR}/../../build -lflm -Wl,-rpath,${SRCDIR}/../../build
#cgo windows LDFLAGS: -L${SRCDIR}/../../build -lflm

#include <stdint.h>
#include <stdlib.h>
#include "flm.h"

static inline FLMHandle flm_handle_from(uintptr_t id) { return (FLMHandle)id; }
static inline uintptr_t flm_handle_to(FLMHandle h) { return (uintptr_t)h; }
*/
import "C"

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/VanDung-dev/flm-bridge/flm"
	"github.com/VanDung-dev/flm-bridge/host"
)

// MaxInputSize is the largest buffer passed into the library (100MB).
const MaxInputSize = 100 * 1024 * 1024

// ErrInputTooLarge is returned for buffers above MaxInputSize.
var ErrInputTooLarge = errors.New("native: input size exceeds maximum allowed")

// Library is a host.Boundary over the C ABI.
type Library struct{}

var _ host.Boundary = Library{}

// Open returns the boundary of the linked library.
func Open() Library { return Library{} }

func (Library) DefaultConfiguration() (host.Response, error) {
	return wrap(C.flm_default_configuration_protobuf())
}

func (Library) Init(config []byte) (host.Response, error) {
	if len(config) > MaxInputSize {
		return nil, ErrInputTooLarge
	}
	in, size := cbytes(config)
	defer C.free(in)
	return wrap(C.flm_init_protobuf((*C.uint8_t)(in), size))
}

func (Library) Call(handle uint64, method host.Method, args []byte) (host.Response, error) {
	if len(args) > MaxInputSize {
		return nil, ErrInputTooLarge
	}
	in, size := cbytes(args)
	defer C.free(in)
	return wrap(C.flm_call_protobuf(toHandle(handle), C.int32_t(method), (*C.uint8_t)(in), size))
}

func (Library) DestroyHandle(handle uint64) error {
	C.flm_free_handle(toHandle(handle))
	return nil
}

func (Library) Constants() (flm.Constants, error) {
	c := C.flm_get_constants()
	return flm.Constants{
		UserRulesID:      int32(c.user_rules_id),
		CustomGroupID:    int32(c.custom_group_id),
		SpecialGroupID:   int32(c.special_group_id),
		SmallestFilterID: int32(c.smallest_filter_id),
	}, nil
}

// cbytes copies b to the C heap. An empty b becomes a null pointer.
func cbytes(b []byte) (unsafe.Pointer, C.size_t) {
	if len(b) == 0 {
		return nil, 0
	}
	return C.CBytes(b), C.size_t(len(b))
}

func toHandle(h uint64) C.FLMHandle {
	return C.flm_handle_from(C.uintptr_t(h))
}

func wrap(resp *C.FLMResponse) (host.Response, error) {
	if resp == nil {
		return nil, &host.AdapterError{Op: "native", Err: errors.New("null response")}
	}
	if resp.result_data_len > resp.result_data_capacity {
		return nil, &host.AdapterError{Op: "native", Err: fmt.Errorf(
			"length %d exceeds capacity %d", uint64(resp.result_data_len), uint64(resp.result_data_capacity))}
	}
	r := &response{
		c:       resp,
		typ:     host.ResponseType(resp.response_type),
		isError: bool(resp.ffi_error),
	}
	if r.typ == host.TypeHandlePointer {
		r.handle = uint64(C.flm_handle_to(C.FLMHandle(resp.result_data)))
	}
	return r, nil
}

// response views C memory until Release. The scalar fields are copied out
// so they stay valid after the C struct is freed.
type response struct {
	c        *C.FLMResponse
	typ      host.ResponseType
	isError  bool
	handle   uint64
	released atomic.Bool
}

func (r *response) Type() host.ResponseType { return r.typ }
func (r *response) IsError() bool           { return r.isError }
func (r *response) Handle() uint64          { return r.handle }

func (r *response) Bytes() []byte {
	if r.released.Load() || r.typ != host.TypeBuffer || r.c.result_data == nil {
		return nil
	}
	return unsafe.Slice((*byte)(r.c.result_data), int(r.c.result_data_len))
}

func (r *response) Release() {
	if !r.released.CompareAndSwap(false, true) {
		panic("native: double release of response")
	}
	C.flm_free_response(r.c)
	r.c = nil
}
