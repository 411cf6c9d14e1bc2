package packetconn

import (
	"encoding/binary"
	"math"
)

// elementHeaderSize is the kind byte plus the 4-byte payload length.
const elementHeaderSize = 1 + 4

// PacketCodec is the default Codec. Each element is written as
//
//	[1 byte kind][4 bytes big-endian payload length M][M bytes payload]
//
// and the body is the concatenation of all elements.
type PacketCodec struct{}

var _ Codec = PacketCodec{}

// Encode implements Codec.
func (PacketCodec) Encode(elements []Element) ([]byte, error) {
	size := 0
	for i, e := range elements {
		if !e.Kind.Valid() {
			return nil, &EncodeError{Index: i, Err: ErrUnknownKind}
		}
		if uint64(len(e.Payload)) > math.MaxUint32 {
			return nil, &EncodeError{Index: i, Err: ErrPayloadTooLarge}
		}
		size += elementHeaderSize + len(e.Payload)
		if uint64(size) > math.MaxUint32 {
			return nil, &EncodeError{Index: i, Err: ErrFrameTooLarge}
		}
	}

	buf := make([]byte, 0, size)
	for _, e := range elements {
		buf = append(buf, byte(e.Kind))
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(e.Payload)))
		buf = append(buf, e.Payload...)
	}
	return buf, nil
}

// Decode implements Codec. Payloads alias body, so the caller must hand
// over a buffer it no longer reuses.
func (PacketCodec) Decode(body []byte) ([]Element, error) {
	elements := make([]Element, 0, 1)
	offset := 0
	for offset < len(body) {
		if len(body)-offset < elementHeaderSize {
			return nil, &DecodeError{Offset: offset, Err: ErrTruncated}
		}

		kind := Kind(body[offset])
		if !kind.Valid() {
			return nil, &DecodeError{Offset: offset, Err: ErrUnknownKind}
		}

		length := uint64(binary.BigEndian.Uint32(body[offset+1:]))
		start := offset + elementHeaderSize
		if length > uint64(len(body)-start) {
			return nil, &DecodeError{Offset: offset, Err: ErrTruncated}
		}

		end := start + int(length)
		elements = append(elements, Element{Kind: kind, Payload: body[start:end:end]})
		offset = end
	}
	return elements, nil
}
