// Package wire implements the byte-cursor codec primitives the SMB2/3
// message catalog is built on: a little-endian Reader/Writer pair with
// sticky error accumulation, explicit bounds checking, alignment padding,
// and back-patch writes for offset/length fields that are only known once
// a variable-length payload has been laid out.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf16"
)

// ErrShortRead is returned when there are insufficient bytes to complete a read.
var ErrShortRead = errors.New("wire: short read")

// ErrExpectMismatch is returned when ExpectUint16 finds an unexpected value.
var ErrExpectMismatch = errors.New("wire: expect mismatch")

// Reader provides sequential reading of little-endian wire data with error
// accumulation: once an error occurs, all subsequent reads are no-ops that
// return zero values, so callers can chain reads and check Err() once.
type Reader struct {
	data []byte
	pos  int
	err  error
}

// NewReader wraps data for sequential reading starting at position 0.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) require(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortRead, n, r.pos, len(r.data)-r.pos)
		return false
	}
	return true
}

// ReadUint8 reads one byte and advances the cursor by 1.
func (r *Reader) ReadUint8() uint8 {
	if !r.require(1) {
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

// ReadUint16 reads a little-endian uint16 and advances the cursor by 2.
func (r *Reader) ReadUint16() uint16 {
	if !r.require(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

// ReadUint32 reads a little-endian uint32 and advances the cursor by 4.
func (r *Reader) ReadUint32() uint32 {
	if !r.require(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

// ReadUint64 reads a little-endian uint64 and advances the cursor by 8.
// The high byte sits at shift 56 — a legacy helper this codec is modeled
// after once shifted 54 there by mistake; this implementation goes through
// encoding/binary and cannot reproduce that bug.
func (r *Reader) ReadUint64() uint64 {
	if !r.require(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v
}

// ReadBytes reads n raw bytes and advances the cursor.
func (r *Reader) ReadBytes(n int) []byte {
	if !r.require(n) {
		return nil
	}
	b := make([]byte, n)
	copy(b, r.data[r.pos:r.pos+n])
	r.pos += n
	return b
}

// ReadUTF16 reads n bytes and decodes them as little-endian UTF-16.
// n must be even; an odd n is a short read.
func (r *Reader) ReadUTF16(n int) string {
	if n%2 != 0 {
		if r.err == nil {
			r.err = fmt.Errorf("%w: odd UTF-16 byte length %d", ErrShortRead, n)
		}
		return ""
	}
	b := r.ReadBytes(n)
	if b == nil {
		return ""
	}
	units := make([]uint16, n/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return string(utf16.Decode(units))
}

// Skip advances the cursor by n bytes without reading.
func (r *Reader) Skip(n int) {
	if !r.require(n) {
		return
	}
	r.pos += n
}

// ExpectUint16 reads a uint16 and records ErrExpectMismatch if it isn't expected.
func (r *Reader) ExpectUint16(expected uint16) {
	v := r.ReadUint16()
	if r.err != nil {
		return
	}
	if v != expected {
		r.err = fmt.Errorf("%w: expected 0x%04X, got 0x%04X at offset %d", ErrExpectMismatch, expected, v, r.pos-2)
	}
}

// EnsureRemaining sets an error if fewer than n bytes remain, without consuming any.
func (r *Reader) EnsureRemaining(n int) {
	r.require(n)
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error {
	return r.err
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	if rem := len(r.data) - r.pos; rem > 0 {
		return rem
	}
	return 0
}

// Position returns the current read cursor.
func (r *Reader) Position() int {
	return r.pos
}

// At returns a Reader positioned at an absolute offset into the same
// underlying data, used for Inner-offset field placement. The returned
// reader shares no error state with r.
func (r *Reader) At(offset int) *Reader {
	if offset < 0 || offset > len(r.data) {
		return &Reader{err: fmt.Errorf("%w: offset %d out of range (len %d)", ErrShortRead, offset, len(r.data))}
	}
	return &Reader{data: r.data[offset:]}
}

// Data returns the full underlying slice the reader was created with.
func (r *Reader) Data() []byte {
	return r.data
}
