package streamio

import (
	"encoding/binary"
	"errors"
	"io"
)

var ErrFrameTooLarge = errors.New("frame too large")

// WriteFrame writes a big-endian uint32 payload length followed by the
// payload. Frames delimit encoded messages on a byte stream.
func WriteFrame(w io.Writer, payload []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed frame. maxFrame > 0 caps the payload
// size to bound allocation on corrupt or hostile input.
func ReadFrame(r io.Reader, maxFrame int) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint32(hdr[:]))
	if maxFrame > 0 && n > maxFrame {
		return nil, ErrFrameTooLarge
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
