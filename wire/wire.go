// Package wire is the serialized message format carried inside envelopes and
// call arguments.
//
// Messages are CBOR maps with small integer keys. Decoders ignore unknown keys,
// so fields can be added without breaking older hosts. An empty buffer decodes
// to the zero value of the message.
package wire

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/VanDung-dev/flm-bridge/flm"
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Marshal encodes a message.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes a message. Empty input leaves v untouched.
func Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("wire: unmarshal %T: %w", v, err)
	}
	return nil
}

// OuterError is an error as it travels across the boundary, either as the
// payload of an error envelope or inside a response.
type OuterError = flm.Error

// NewOuterError converts any error into its serializable form.
func NewOuterError(err error) *OuterError {
	if err == nil {
		return nil
	}
	var fe *flm.Error
	if errors.As(err, &fe) {
		out := *fe
		return &out
	}
	return &OuterError{Kind: flm.KindOther, Message: err.Error()}
}

// ErrorOf returns the error carried by a response, or nil.
func ErrorOf(e *OuterError) error {
	if e == nil {
		return nil
	}
	return e
}

// MarshalDiagnostic encodes a bridge-level diagnostic. It never fails; a
// diagnostic that cannot be encoded degrades to its raw text.
func MarshalDiagnostic(message string) []byte {
	b, err := Marshal(&OuterError{Kind: flm.KindOther, Message: message})
	if err != nil {
		return []byte(message)
	}
	return b
}

// UnmarshalOuterError decodes an error envelope payload.
func UnmarshalOuterError(data []byte) (*OuterError, error) {
	var e OuterError
	if err := Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// MarshalConfiguration encodes a library configuration.
func MarshalConfiguration(cfg flm.Configuration) ([]byte, error) {
	return Marshal(&cfg)
}

// UnmarshalConfiguration decodes a library configuration.
func UnmarshalConfiguration(data []byte) (flm.Configuration, error) {
	var cfg flm.Configuration
	if err := Unmarshal(data, &cfg); err != nil {
		return flm.Configuration{}, err
	}
	return cfg, nil
}
