// Command libflm builds the filter list bridge as a C shared library:
//
//	go build -buildmode=c-shared -o libflm.so ./cmd/libflm
//
// The exported functions are declared in include/flm.h. Response buffers are
// allocated on the C heap so hosts can wrap them without copying.
package main

/*
#cgo CFLAGS: -I${SRCDIR}/../../include
#include <stdint.h>
#include <stdlib.h>
#include "flm_types.h"

static inline FLMHandle flm_handle_from(uintptr_t id) { return (FLMHandle)id; }
static inline uintptr_t flm_handle_to(FLMHandle h) { return (uintptr_t)h; }
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow/memory/mallocator"
	"github.com/rs/zerolog"

	"github.com/VanDung-dev/flm-bridge/bridge"
	"github.com/VanDung-dev/flm-bridge/catalog"
	"github.com/VanDung-dev/flm-bridge/envelope"
	"github.com/VanDung-dev/flm-bridge/logging"
)

// MaxInputSize bounds configuration and argument buffers (100MB).
const MaxInputSize = 100 * 1024 * 1024

var (
	lib *bridge.Bridge
	// failures holds diagnostics produced before a call reaches the bridge.
	failures *envelope.Allocator

	mu        sync.Mutex
	responses = make(map[*C.FLMResponse]*envelope.Envelope)
)

func init() {
	cfg := logging.DefaultConfig()
	cfg.Level = zerolog.Disabled
	log := logging.New("libflm", cfg)

	mem := mallocator.NewMallocator()
	failures = envelope.NewAllocator(mem)
	lib = bridge.New(catalog.Factory(catalog.WithLogger(log)),
		bridge.WithMemory(mem),
		bridge.WithLogger(log),
	)
}

// input views a host buffer for the duration of one call.
func input(bytes *C.uint8_t, size C.size_t) ([]byte, error) {
	if bytes == nil || size == 0 {
		return nil, nil
	}
	if size > MaxInputSize {
		return nil, fmt.Errorf("input of %d bytes exceeds the %d byte limit", uint64(size), MaxInputSize)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(bytes)), int(size)), nil
}

// export flattens e into a C-allocated response and keeps e alive until the
// host frees it.
func export(e *envelope.Envelope) *C.FLMResponse {
	raw := e.Raw()
	resp := (*C.FLMResponse)(C.malloc(C.size_t(unsafe.Sizeof(C.FLMResponse{}))))
	resp.result_data_len = C.size_t(raw.Len)
	resp.result_data_capacity = C.size_t(raw.Cap)
	resp.ffi_error = C.bool(raw.IsError)
	resp.response_type = C.FLMResponseType(raw.Kind)

	switch raw.Kind {
	case envelope.HandlePointer:
		resp.result_data = unsafe.Pointer(handlePointer(raw.Handle))
	default:
		resp.result_data = nil
		if raw.Cap > 0 {
			resp.result_data = unsafe.Pointer(&raw.Data[0])
		}
	}

	mu.Lock()
	responses[resp] = e
	mu.Unlock()
	return resp
}

// Handles cross the boundary as pointer-sized integers. The conversions
// happen in C so no uintptr is turned into a Go pointer.
func handlePointer(h uint64) C.FLMHandle {
	return C.flm_handle_from(C.uintptr_t(h))
}

func handleID(h C.FLMHandle) uint64 {
	return uint64(C.flm_handle_to(h))
}

//export flm_default_configuration_protobuf
func flm_default_configuration_protobuf() *C.FLMResponse {
	return export(lib.DefaultConfiguration())
}

//export flm_init_protobuf
func flm_init_protobuf(bytes *C.uint8_t, size C.size_t) *C.FLMResponse {
	config, err := input(bytes, size)
	if err != nil {
		return export(failures.MarkErrorf("cannot init: %v", err))
	}
	return export(lib.Init(config))
}

//export flm_call_protobuf
func flm_call_protobuf(handle C.FLMHandle, method C.int32_t, bytes *C.uint8_t, size C.size_t) *C.FLMResponse {
	args, err := input(bytes, size)
	if err != nil {
		return export(failures.MarkErrorf("cannot call method %d: %v", int32(method), err))
	}
	return export(lib.Call(handleID(handle), int32(method), args))
}

//export flm_free_response
func flm_free_response(resp *C.FLMResponse) {
	if resp == nil {
		return
	}
	mu.Lock()
	e, ok := responses[resp]
	delete(responses, resp)
	mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("flm_free_response: unknown or already freed response %p", resp))
	}

	envelope.MustFit(int(resp.result_data_len), int(resp.result_data_capacity))
	if int(resp.result_data_capacity) != e.Cap() {
		panic(fmt.Sprintf("flm_free_response: capacity changed from %d to %d", e.Cap(), int(resp.result_data_capacity)))
	}
	e.Release()
	C.free(unsafe.Pointer(resp))
}

//export flm_free_handle
func flm_free_handle(handle C.FLMHandle) {
	if err := lib.DestroyHandle(handleID(handle)); err != nil {
		panic(err)
	}
}

//export flm_get_constants
func flm_get_constants() C.FilterListManagerConstants {
	c := lib.Constants()
	return C.FilterListManagerConstants{
		user_rules_id:      C.int32_t(c.UserRulesID),
		custom_group_id:    C.int32_t(c.CustomGroupID),
		special_group_id:   C.int32_t(c.SpecialGroupID),
		smallest_filter_id: C.int32_t(c.SmallestFilterID),
	}
}

func main() {}
