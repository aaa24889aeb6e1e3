package wire

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// Writer provides sequential writing of little-endian wire data with
// append-based growth and sticky error accumulation.
type Writer struct {
	buf []byte
	err error
}

// NewWriter creates a Writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// WriteUint8 appends a single byte.
func (w *Writer) WriteUint8(v uint8) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, v)
}

// WriteUint16 appends a little-endian uint16.
func (w *Writer) WriteUint16(v uint16) {
	if w.err != nil {
		return
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteUint32 appends a little-endian uint32.
func (w *Writer) WriteUint32(v uint32) {
	if w.err != nil {
		return
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteUint64 appends a little-endian uint64.
func (w *Writer) WriteUint64(v uint64) {
	if w.err != nil {
		return
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteBytes appends raw bytes.
func (w *Writer) WriteBytes(data []byte) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, data...)
}

// WriteUTF16 encodes s as little-endian UTF-16 and appends it.
func (w *Writer) WriteUTF16(s string) {
	if w.err != nil {
		return
	}
	units := utf16.Encode([]rune(s))
	b := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[i*2:], u)
	}
	w.buf = append(w.buf, b...)
}

// WriteZeros appends n zero bytes.
func (w *Writer) WriteZeros(n int) {
	if w.err != nil || n <= 0 {
		return
	}
	w.buf = append(w.buf, make([]byte, n)...)
}

// Pad appends zero bytes until len(buf) is a multiple of alignment.
func (w *Writer) Pad(alignment int) {
	if w.err != nil || alignment <= 0 {
		return
	}
	if remainder := len(w.buf) % alignment; remainder != 0 {
		w.buf = append(w.buf, make([]byte, alignment-remainder)...)
	}
}

// WriteAt overwrites bytes at offset, used to back-patch offset/length
// fields in a header once a variable-length payload's placement is known.
func (w *Writer) WriteAt(offset int, data []byte) {
	if w.err != nil {
		return
	}
	if offset < 0 || offset+len(data) > len(w.buf) {
		w.err = fmt.Errorf("wire: WriteAt out of bounds: offset %d + %d > %d", offset, len(data), len(w.buf))
		return
	}
	copy(w.buf[offset:], data)
}

// WriteUint16At back-patches a little-endian uint16 at offset.
func (w *Writer) WriteUint16At(offset int, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.WriteAt(offset, b[:])
}

// WriteUint32At back-patches a little-endian uint32 at offset.
func (w *Writer) WriteUint32At(offset int, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.WriteAt(offset, b[:])
}

// WriteUint64At back-patches a little-endian uint64 at offset.
func (w *Writer) WriteUint64At(offset int, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.WriteAt(offset, b[:])
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the current buffer length.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Err returns the first error encountered, if any.
func (w *Writer) Err() error {
	return w.err
}

// ClampMin returns v raised to min if smaller, implementing the Inner
// field contract's on-encode min_val clamp.
func ClampMin(v, min int) int {
	if v < min {
		return min
	}
	return v
}

// HeaderOffset converts an absolute offset measured from the SMB2 header
// origin into one relative to the body, subtracting the fixed 64-byte
// header region ubiquitous across Buffer/Vector Inner references.
func HeaderOffset(absolute uint32) int {
	const subtract = 64
	if absolute < subtract {
		return 0
	}
	return int(absolute - subtract)
}
