package packetconn

import (
	"bytes"
	"math"
	"testing"

	"github.com/pkg/errors"
)

// mockCodec implements Codec for testing.
type mockCodec struct {
	decodeFunc func([]byte) ([]Element, error)
	encodeFunc func([]Element) ([]byte, error)
}

func (c *mockCodec) Decode(body []byte) ([]Element, error) {
	if c.decodeFunc != nil {
		return c.decodeFunc(body)
	}
	return PacketCodec{}.Decode(body)
}

func (c *mockCodec) Encode(elements []Element) ([]byte, error) {
	if c.encodeFunc != nil {
		return c.encodeFunc(elements)
	}
	return PacketCodec{}.Encode(elements)
}

func equalElements(a, b []Element) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind || !bytes.Equal(a[i].Payload, b[i].Payload) {
			return false
		}
	}
	return true
}

func TestPacketCodec_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		elements []Element
	}{
		{"empty batch", nil},
		{"empty payload", []Element{{Kind: KindMessage}}},
		{"single", []Element{NewMessageString("hi")}},
		{"mixed kinds", []Element{
			NewMessageString("first"),
			{Kind: KindSession, Payload: []byte{0, 0, 0, 7}},
			{Kind: KindMessage, Payload: []byte{}},
			NewMessage([]byte{0x00, 0xff, 0x10}),
		}},
		{"large payload", []Element{NewMessage(bytes.Repeat([]byte("x"), 70000))}},
	}

	codec := PacketCodec{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := codec.Encode(tt.elements)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			got, err := codec.Decode(body)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			if !equalElements(got, tt.elements) {
				t.Errorf("Decode(Encode(x)) = %v, want %v", got, tt.elements)
			}
		})
	}
}

func TestPacketCodec_WireLayout(t *testing.T) {
	body, err := PacketCodec{}.Encode([]Element{NewMessageString("hi"), {Kind: KindDisconnect}})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	want := []byte{
		1, 0, 0, 0, 2, 'h', 'i',
		2, 0, 0, 0, 0,
	}
	if !bytes.Equal(body, want) {
		t.Errorf("body = %v, want %v", body, want)
	}
}

func TestPacketCodec_EncodeUnknownKind(t *testing.T) {
	_, err := PacketCodec{}.Encode([]Element{NewMessageString("ok"), {Kind: 0x7f}})

	var encodeErr *EncodeError
	if !errors.As(err, &encodeErr) {
		t.Fatalf("expected *EncodeError, got %v", err)
	}
	if encodeErr.Index != 1 {
		t.Errorf("Index = %d, want 1", encodeErr.Index)
	}
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestPacketCodec_DecodeErrors(t *testing.T) {
	valid, _ := PacketCodec{}.Encode([]Element{NewMessageString("hello"), NewMessageString("world")})

	tests := []struct {
		name string
		body []byte
		want error
	}{
		{"short header", []byte{1, 0, 0}, ErrTruncated},
		{"short payload", []byte{1, 0, 0, 0, 5, 'a', 'b'}, ErrTruncated},
		{"length overflows body", []byte{1, 0xff, 0xff, 0xff, 0xff}, ErrTruncated},
		{"zero kind", []byte{0, 0, 0, 0, 0}, ErrUnknownKind},
		{"unknown kind", []byte{9, 0, 0, 0, 0}, ErrUnknownKind},
		{"second element truncated", valid[:len(valid)-1], ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elements, err := PacketCodec{}.Decode(tt.body)
			if elements != nil {
				t.Errorf("partial result %v returned with error", elements)
			}

			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("expected *DecodeError, got %v", err)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPacketCodec_DecodePayloadIsBounded(t *testing.T) {
	body, _ := PacketCodec{}.Encode([]Element{NewMessageString("ab"), NewMessageString("cd")})

	elements, err := PacketCodec{}.Decode(body)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	// Appending to one payload must not overwrite the next element.
	_ = append(elements[0].Payload, 'z')
	if string(elements[1].Payload) != "cd" {
		t.Errorf("second payload = %q, want \"cd\"", elements[1].Payload)
	}
}

func TestKind(t *testing.T) {
	for _, k := range []Kind{KindMessage, KindDisconnect, KindSession} {
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
	}

	for _, k := range []Kind{0, 4, math.MaxUint8} {
		if k.Valid() {
			t.Errorf("%s should be invalid", k)
		}
	}

	if KindMessage.String() != "message" {
		t.Errorf("KindMessage.String() = %s", KindMessage)
	}
	if Kind(9).String() != "kind(9)" {
		t.Errorf("Kind(9).String() = %s", Kind(9))
	}
}
