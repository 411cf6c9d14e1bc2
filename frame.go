package packetconn

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// framePrefixSize is the size of the big-endian body length in front of
// every packet.
const framePrefixSize = 4

// writeFrame writes the length prefix and body with a single Write so that
// a frame is handed to the socket as one unit.
func writeFrame(w io.Writer, body []byte, maxFrameSize int) (int, error) {
	if len(body) > maxFrameSize {
		return 0, errors.Wrapf(ErrFrameTooLarge, "outbound frame of %d bytes exceeds %d", len(body), maxFrameSize)
	}

	frame := make([]byte, framePrefixSize, framePrefixSize+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	frame = append(frame, body...)

	return w.Write(frame)
}

// readFrame reads one complete frame body. The declared length is checked
// against maxFrameSize before anything is allocated. A body shorter than
// declared is reported as io.ErrUnexpectedEOF and never returned.
func readFrame(r io.Reader, maxFrameSize int) ([]byte, error) {
	var prefix [framePrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(prefix[:])
	if uint64(length) > uint64(maxFrameSize) {
		return nil, errors.Wrapf(ErrFrameTooLarge, "inbound frame of %d bytes exceeds %d", length, maxFrameSize)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return body, nil
}
