// Package remote carries the bridge boundary over ZeroMQ, so a host can drive
// a library instance living in another process.
//
// Every message has a correlation id frame and a fixed-size header frame,
// followed by a payload frame when the payload is not empty. Empty frames
// delimit routing envelopes on REQ/REP sockets and never carry data.
//
//	request header: verb (1) | handle (8, big endian) | method (4, big endian)
//	reply header:   status (1) | type (1) | flags (1) | handle (8, big endian)
//
// A reply with statusOK mirrors one envelope. statusRejected means the server
// refused the request without reaching the bridge; the payload is the reason.
package remote

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Common errors for remote operations
var (
	ErrClosed    = errors.New("remote: client is closed")
	ErrRejected  = errors.New("remote: request rejected")
	ErrMalformed = errors.New("remote: malformed message")
	ErrTimeout   = errors.New("remote: reply timed out")
)

// Verb selects the boundary function a request invokes.
type Verb byte

const (
	VerbDefaultConfiguration Verb = 'D'
	VerbInit                 Verb = 'I'
	VerbCall                 Verb = 'C'
	VerbDestroy              Verb = 'X'
	VerbConstants            Verb = 'K'
)

func (v Verb) String() string {
	switch v {
	case VerbDefaultConfiguration:
		return "default_configuration"
	case VerbInit:
		return "init"
	case VerbCall:
		return "call"
	case VerbDestroy:
		return "destroy"
	case VerbConstants:
		return "constants"
	default:
		return fmt.Sprintf("verb(%#x)", byte(v))
	}
}

type status byte

const (
	statusOK       status = 0
	statusRejected status = 1
)

const (
	flagError byte = 1 << 0

	requestHeaderSize = 13
	replyHeaderSize   = 11
)

type request struct {
	id      uuid.UUID
	verb    Verb
	handle  uint64
	method  int32
	payload []byte
}

func (r request) frames() [][]byte {
	hdr := make([]byte, requestHeaderSize)
	hdr[0] = byte(r.verb)
	binary.BigEndian.PutUint64(hdr[1:9], r.handle)
	binary.BigEndian.PutUint32(hdr[9:13], uint32(r.method))
	return messageFrames(r.id, hdr, r.payload)
}

func messageFrames(id uuid.UUID, hdr, payload []byte) [][]byte {
	if len(payload) == 0 {
		return [][]byte{id[:], hdr}
	}
	return [][]byte{id[:], hdr, payload}
}

// splitFrames checks the frame layout and returns the payload.
func splitFrames(frames [][]byte, what string) ([]byte, error) {
	switch len(frames) {
	case 2:
		return nil, nil
	case 3:
		if len(frames[2]) == 0 {
			return nil, fmt.Errorf("%w: empty %s payload frame", ErrMalformed, what)
		}
		return frames[2], nil
	default:
		return nil, fmt.Errorf("%w: %d %s frames", ErrMalformed, len(frames), what)
	}
}

func parseRequest(frames [][]byte) (request, error) {
	payload, err := splitFrames(frames, "request")
	if err != nil {
		return request{}, err
	}
	id, err := uuid.FromBytes(frames[0])
	if err != nil {
		return request{}, fmt.Errorf("%w: correlation id: %v", ErrMalformed, err)
	}
	hdr := frames[1]
	if len(hdr) != requestHeaderSize {
		return request{id: id}, fmt.Errorf("%w: request header of %d bytes", ErrMalformed, len(hdr))
	}
	return request{
		id:      id,
		verb:    Verb(hdr[0]),
		handle:  binary.BigEndian.Uint64(hdr[1:9]),
		method:  int32(binary.BigEndian.Uint32(hdr[9:13])),
		payload: payload,
	}, nil
}

type reply struct {
	id      uuid.UUID
	status  status
	typ     byte
	isError bool
	handle  uint64
	payload []byte
}

func (r reply) frames() [][]byte {
	hdr := make([]byte, replyHeaderSize)
	hdr[0] = byte(r.status)
	hdr[1] = r.typ
	if r.isError {
		hdr[2] |= flagError
	}
	binary.BigEndian.PutUint64(hdr[3:11], r.handle)
	return messageFrames(r.id, hdr, r.payload)
}

func parseReply(frames [][]byte) (reply, error) {
	payload, err := splitFrames(frames, "reply")
	if err != nil {
		return reply{}, err
	}
	id, err := uuid.FromBytes(frames[0])
	if err != nil {
		return reply{}, fmt.Errorf("%w: correlation id: %v", ErrMalformed, err)
	}
	hdr := frames[1]
	if len(hdr) != replyHeaderSize {
		return reply{}, fmt.Errorf("%w: reply header of %d bytes", ErrMalformed, len(hdr))
	}
	return reply{
		id:      id,
		status:  status(hdr[0]),
		typ:     hdr[1],
		isError: hdr[2]&flagError != 0,
		handle:  binary.BigEndian.Uint64(hdr[3:11]),
		payload: payload,
	}, nil
}

func rejected(id uuid.UUID, format string, args ...any) reply {
	return reply{id: id, status: statusRejected, payload: []byte(fmt.Sprintf(format, args...))}
}
