// Package streamio implements the byte-stable stream primitives of the
// cluster wire contract: LEB128 variable-length integers, length-prefixed
// UTF-8 strings, nullable strings, and varint durations. The layout is
// version-sensitive; peers must agree byte-for-byte.
package streamio

import (
	"encoding/binary"
	"errors"
	"time"
	"unicode/utf8"
)

var (
	ErrTruncated      = errors.New("unexpected end of stream")
	ErrLengthOverflow = errors.New("length prefix exceeds remaining input")
	ErrInvalidUTF8    = errors.New("invalid utf-8 in string")
	ErrVarintOverflow = errors.New("varint overflows 64 bits")
	ErrInvalidMarker  = errors.New("invalid marker byte")
)

// Writer accumulates the wire form in memory. Writes cannot fail; call
// Bytes once the message is complete.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated wire form. The slice aliases the writer's
// buffer and is valid until the next write or Reset.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) Reset() { w.buf = w.buf[:0] }

// WriteVInt appends v as an unsigned LEB128 varint.
func (w *Writer) WriteVInt(v uint64) {
	w.buf = binary.AppendUvarint(w.buf, v)
}

// WriteVLong appends v as a zigzag-encoded signed varint.
func (w *Writer) WriteVLong(v int64) {
	w.buf = binary.AppendVarint(w.buf, v)
}

// WriteBool appends a single 0|1 marker byte.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

// WriteString appends the UTF-8 byte length as a varint followed by the
// raw bytes.
func (w *Writer) WriteString(s string) {
	w.WriteVInt(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteNullableString appends a presence marker followed by the string
// when present. The empty string counts as absent.
func (w *Writer) WriteNullableString(s string) {
	if s == "" {
		w.WriteBool(false)
		return
	}
	w.WriteBool(true)
	w.WriteString(s)
}

// WriteDuration appends d as a signed varint of nanoseconds.
func (w *Writer) WriteDuration(d time.Duration) {
	w.WriteVLong(int64(d))
}

// Reader consumes a byte slice field by field. Any error leaves the reader
// unusable; the caller must discard whatever was decoded so far.
type Reader struct {
	b   []byte
	off int
}

func NewReader(b []byte) *Reader { return &Reader{b: b} }

// Remaining reports how many bytes are left to consume.
func (r *Reader) Remaining() int { return len(r.b) - r.off }

func (r *Reader) readByte() (byte, error) {
	if r.off >= len(r.b) {
		return 0, ErrTruncated
	}
	b := r.b[r.off]
	r.off++
	return b, nil
}

// ReadVInt consumes an unsigned LEB128 varint.
func (r *Reader) ReadVInt() (uint64, error) {
	v, n := binary.Uvarint(r.b[r.off:])
	if n == 0 {
		return 0, ErrTruncated
	}
	if n < 0 {
		return 0, ErrVarintOverflow
	}
	r.off += n
	return v, nil
}

// ReadVLong consumes a zigzag-encoded signed varint.
func (r *Reader) ReadVLong() (int64, error) {
	v, n := binary.Varint(r.b[r.off:])
	if n == 0 {
		return 0, ErrTruncated
	}
	if n < 0 {
		return 0, ErrVarintOverflow
	}
	r.off += n
	return v, nil
}

// ReadBool consumes a 0|1 marker byte. Any other value is corrupt input.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.readByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrInvalidMarker
	}
}

// ReadString consumes a varint length prefix and that many UTF-8 bytes.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadVInt()
	if err != nil {
		return "", err
	}
	if n > uint64(r.Remaining()) {
		return "", ErrLengthOverflow
	}
	raw := r.b[r.off : r.off+int(n)]
	if !utf8.Valid(raw) {
		return "", ErrInvalidUTF8
	}
	r.off += int(n)
	return string(raw), nil
}

// ReadNullableString consumes a presence marker and, when set, a string.
// Absent decodes as the empty string.
func (r *Reader) ReadNullableString() (string, error) {
	present, err := r.ReadBool()
	if err != nil {
		return "", err
	}
	if !present {
		return "", nil
	}
	return r.ReadString()
}

// ReadDuration consumes a signed varint of nanoseconds.
func (r *Reader) ReadDuration() (time.Duration, error) {
	v, err := r.ReadVLong()
	if err != nil {
		return 0, err
	}
	return time.Duration(v), nil
}
