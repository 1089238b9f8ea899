// Package breader provides a small binary cursor used by every asset
// decoder in this module. It reads little-endian primitives from any
// io.ReadSeeker, so the same decoding code runs unchanged over an
// on-disk file or an in-memory byte slice.
package breader

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Reader is a cursor over a random-access byte source. It owns neither
// the file descriptor nor the memory backing it; callers are
// responsible for closing an underlying *os.File.
type Reader struct {
	src io.ReadSeeker
}

// New wraps any io.ReadSeeker (a file, or a bytes.Reader for in-memory
// sources) in a Reader.
func New(src io.ReadSeeker) *Reader {
	return &Reader{src: src}
}

// NewMemory wraps a byte slice for in-memory parsing.
func NewMemory(data []byte) *Reader {
	return &Reader{src: bytes.NewReader(data)}
}

func (r *Reader) ReadU8() (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r.src, buf[:]); err != nil {
		return 0, fmt.Errorf("breader: read u8: %w", err)
	}
	return buf[0], nil
}

func (r *Reader) ReadI8() (int8, error) {
	b, err := r.ReadU8()
	return int8(b), err
}

func (r *Reader) ReadU16() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r.src, buf[:]); err != nil {
		return 0, fmt.Errorf("breader: read u16: %w", err)
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

func (r *Reader) ReadU32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r.src, buf[:]); err != nil {
		return 0, fmt.Errorf("breader: read u32: %w", err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadExact reads exactly n bytes, failing with a wrapped io error if
// the source is exhausted first.
func (r *Reader) ReadExact(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("breader: read exact: negative length %d", n)
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if _, err := io.ReadFull(r.src, buf); err != nil {
		return nil, fmt.Errorf("breader: read exact %d bytes: %w", n, err)
	}
	return buf, nil
}

// SeekFromStart positions the cursor at an absolute offset.
func (r *Reader) SeekFromStart(pos int64) error {
	if _, err := r.src.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("breader: seek from start %d: %w", pos, err)
	}
	return nil
}

// SeekFromEnd positions the cursor relative to EOF. A negative offset
// of -24 positions the cursor 24 bytes before EOF.
func (r *Reader) SeekFromEnd(offset int64) error {
	if _, err := r.src.Seek(offset, io.SeekEnd); err != nil {
		return fmt.Errorf("breader: seek from end %d: %w", offset, err)
	}
	return nil
}

// SeekRelative moves the cursor by delta bytes from its current position.
func (r *Reader) SeekRelative(delta int64) error {
	if _, err := r.src.Seek(delta, io.SeekCurrent); err != nil {
		return fmt.Errorf("breader: seek relative %d: %w", delta, err)
	}
	return nil
}

// Position reports the current absolute offset.
func (r *Reader) Position() (int64, error) {
	pos, err := r.src.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("breader: tell: %w", err)
	}
	return pos, nil
}

// Len reports the total length of the underlying source.
func (r *Reader) Len() (int64, error) {
	cur, err := r.Position()
	if err != nil {
		return 0, err
	}
	end, err := r.src.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("breader: seek to end: %w", err)
	}
	if _, err := r.src.Seek(cur, io.SeekStart); err != nil {
		return 0, fmt.Errorf("breader: restore position: %w", err)
	}
	return end, nil
}
