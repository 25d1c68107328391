package flm

import (
	"fmt"
	"strings"
)

// ErrorKind categorizes a library error. Values cross the boundary inside
// serialized responses, so they are append-only like method ordinals.
type ErrorKind int32

const (
	KindOther ErrorKind = iota
	KindCannotOpenDatabase
	KindNotADatabase
	KindDatabaseBusy
	KindDiskFull
	KindEntityNotFound
	KindPathNotFound
	KindPathHasDeniedPermission
	KindPathAlreadyExists
	KindTimedOut
	KindHTTPClientNetworkError
	KindHTTPStrict200Response
	KindHTTPClientBodyRecoveryFailed
	KindFilterContentIsLikelyNotAFilter
	KindFilterParserError
	KindFieldIsEmpty
	KindMutex
	KindInvalidConfiguration
)

var kindNames = map[ErrorKind]string{
	KindOther:                           "other",
	KindCannotOpenDatabase:              "cannot_open_database",
	KindNotADatabase:                    "not_a_database",
	KindDatabaseBusy:                    "database_busy",
	KindDiskFull:                        "disk_full",
	KindEntityNotFound:                  "entity_not_found",
	KindPathNotFound:                    "path_not_found",
	KindPathHasDeniedPermission:         "path_has_denied_permission",
	KindPathAlreadyExists:               "path_already_exists",
	KindTimedOut:                        "timed_out",
	KindHTTPClientNetworkError:          "http_client_network_error",
	KindHTTPStrict200Response:           "http_strict_200_response",
	KindHTTPClientBodyRecoveryFailed:    "http_client_body_recovery_failed",
	KindFilterContentIsLikelyNotAFilter: "filter_content_is_likely_not_a_filter",
	KindFilterParserError:               "filter_parser_error",
	KindFieldIsEmpty:                    "field_is_empty",
	KindMutex:                           "mutex",
	KindInvalidConfiguration:            "invalid_configuration",
}

func (k ErrorKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int32(k))
}

// Error is a domain error reported by a library operation.
type Error struct {
	Kind       ErrorKind `cbor:"1,keyasint" json:"kind"`
	Message    string    `cbor:"2,keyasint,omitempty" json:"message,omitempty"`
	EntityID   int64     `cbor:"3,keyasint,omitempty" json:"entity_id,omitempty"`
	StatusCode int32     `cbor:"4,keyasint,omitempty" json:"status_code,omitempty"`
	URL        string    `cbor:"5,keyasint,omitempty" json:"url,omitempty"`
	Field      string    `cbor:"6,keyasint,omitempty" json:"field,omitempty"`
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("flm: ")
	b.WriteString(e.Kind.String())

	switch e.Kind {
	case KindEntityNotFound:
		fmt.Fprintf(&b, " (id %d)", e.EntityID)
	case KindHTTPStrict200Response:
		fmt.Fprintf(&b, " (status %d for %s)", e.StatusCode, e.URL)
	case KindFieldIsEmpty:
		if e.Field != "" {
			fmt.Fprintf(&b, " (%s)", e.Field)
		}
	}

	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is matches errors of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Errorf builds an Error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity.
func NotFound(id int64) *Error {
	return &Error{Kind: KindEntityNotFound, EntityID: id}
}

// FieldIsEmpty reports a required field without a value.
func FieldIsEmpty(field string) *Error {
	return &Error{Kind: KindFieldIsEmpty, Field: field}
}

// Strict200 reports a non-200 HTTP response.
func Strict200(code int, url string) *Error {
	return &Error{Kind: KindHTTPStrict200Response, StatusCode: int32(code), URL: url}
}
