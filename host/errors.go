package host

import (
	"errors"
	"fmt"

	"github.com/VanDung-dev/flm-bridge/wire"
)

// ErrClosed is returned by a Driver after Close.
var ErrClosed = errors.New("host: driver is closed")

// BridgeError is an error envelope returned by the bridge itself: a
// malformed request, a failed construction or a panic inside the library.
// The library's own failures arrive as *flm.Error instead.
type BridgeError struct {
	Op    string
	Cause *wire.OuterError
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("host: bridge error in %s: %s", e.Op, e.Cause.Message)
}

func (e *BridgeError) Unwrap() error {
	if e.Cause == nil {
		return nil
	}
	return e.Cause
}

// AdapterError reports a boundary that broke its contract, such as an
// unknown response discriminant or an undecodable payload. It is never
// produced by a correctly built bridge.
type AdapterError struct {
	Op  string
	Err error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("host: adapter failure in %s: %v", e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

func adapterErrorf(op, format string, args ...any) *AdapterError {
	return &AdapterError{Op: op, Err: fmt.Errorf(format, args...)}
}
