package packetconn

import (
	"fmt"

	"github.com/pkg/errors"
)

// Errors returned by client and codec operations.
var (
	// ErrInvalidHandler is returned when no handler is provided.
	ErrInvalidHandler = errors.New("invalid handler")
	// ErrNotIdle is returned by Connect on an instance that is not Idle.
	ErrNotIdle = errors.New("client is not idle")
	// ErrNotActive is returned by Send when there is no active connection.
	// The call is a no-op.
	ErrNotActive = errors.New("client is not active")
	// ErrReservedKind is returned when application code sends KindDisconnect.
	ErrReservedKind = errors.New("reserved element kind")
	// ErrFrameTooLarge is returned when a frame exceeds the maximum size.
	ErrFrameTooLarge = errors.New("frame too large")
	// ErrPayloadTooLarge is returned when a payload length does not fit the
	// 4-byte length field.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrTruncated is returned when a body ends inside an element.
	ErrTruncated = errors.New("truncated element")
	// ErrUnknownKind is returned for an unrecognized element kind.
	ErrUnknownKind = errors.New("unknown element kind")
	// ErrStreamDesync is the cause of a disconnect after repeated decode
	// failures.
	ErrStreamDesync = errors.New("stream desynchronized")
	// ErrPeerDisconnect is the cause of a disconnect requested by the server.
	ErrPeerDisconnect = errors.New("peer requested disconnect")
)

// DialError is returned by Connect when the socket could not be established.
type DialError struct {
	Addr string
	Err  error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("dial %s: %v", e.Addr, e.Err)
}

func (e *DialError) Unwrap() error { return e.Err }

// Cause supports errors.Cause.
func (e *DialError) Cause() error { return e.Err }

// EncodeError reports the element that could not be encoded.
type EncodeError struct {
	Index int
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode element %d: %v", e.Index, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Cause supports errors.Cause.
func (e *EncodeError) Cause() error { return e.Err }

// DecodeError reports a malformed packet body. The whole packet is lost.
type DecodeError struct {
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Cause supports errors.Cause.
func (e *DecodeError) Cause() error { return e.Err }

// WriteError is returned by Send when the socket write failed.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write packet: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Cause supports errors.Cause.
func (e *WriteError) Cause() error { return e.Err }

// DisconnectError describes a disconnect that was not requested through
// Stop: EOF, a read error, a fatal write error, stream desync or a
// disconnect element from the server.
type DisconnectError struct {
	Err error
}

func (e *DisconnectError) Error() string {
	return fmt.Sprintf("unexpected disconnect: %v", e.Err)
}

func (e *DisconnectError) Unwrap() error { return e.Err }

// Cause supports errors.Cause.
func (e *DisconnectError) Cause() error { return e.Err }
