package packetconn

import "strconv"

// Kind tags every element of a packet.
type Kind uint8

// Recognized element kinds. Any other value, including zero, is rejected
// by the codec in both directions.
const (
	// KindMessage carries application data.
	KindMessage Kind = iota + 1
	// KindDisconnect is reserved for the disconnect handshake and must not
	// be used for application data.
	KindDisconnect
	// KindSession carries the session id assigned by the server as a
	// 4-byte big-endian integer.
	KindSession
)

// disconnectPayload is the payload of the courtesy element sent by Stop.
var disconnectPayload = []byte("[disconnect]")

// Valid reports whether k is a recognized kind.
func (k Kind) Valid() bool {
	return k >= KindMessage && k <= KindSession
}

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindDisconnect:
		return "disconnect"
	case KindSession:
		return "session"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Element is the smallest unit of application data inside a packet.
// Payload must not be modified once the element has been handed to Send
// or delivered to a Handler.
type Element struct {
	Kind    Kind
	Payload []byte
}

// NewMessage returns an application element carrying payload.
func NewMessage(payload []byte) Element {
	return Element{Kind: KindMessage, Payload: payload}
}

// NewMessageString returns an application element carrying s.
func NewMessageString(s string) Element {
	return NewMessage([]byte(s))
}

// Codec converts a batch of elements to a packet body and back.
//
// The body is everything after the 4-byte length prefix; framing is done
// by the client, not the codec. Decode must either return every element of
// the body or an error, never a partial batch.
type Codec interface {
	// Encode serializes elements, in order, into one packet body.
	Encode(elements []Element) ([]byte, error)
	// Decode parses a complete packet body.
	Decode(body []byte) ([]Element, error)
}
