// Package binreader provides bounds-checked little-endian reads over a byte
// buffer, used by code.Chunk to decode a bytecode file without trusting its
// declared sizes (a malformed or truncated chunk must return an error, not
// panic or read out of bounds).
package binreader

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrOutsideBoundary is returned whenever a read would run past the end of
// the buffer, including on integer-overflow of offset+size.
var ErrOutsideBoundary = errors.New("binreader: read outside buffer boundary")

// Reader wraps a byte slice with a cursor and exposes bounds-checked reads,
// mirroring the read-at-offset style used by binary format parsers: every
// read validates its own range rather than trusting the caller.
type Reader struct {
	data []byte
	pos  uint32
}

// New wraps buf for sequential reads starting at offset 0.
func New(buf []byte) *Reader {
	return &Reader{data: buf}
}

func (r *Reader) size() uint32 { return uint32(len(r.data)) }

// Pos returns the current cursor offset.
func (r *Reader) Pos() uint32 { return r.pos }

// Remaining reports how many bytes are left to read.
func (r *Reader) Remaining() uint32 {
	if r.pos >= r.size() {
		return 0
	}
	return r.size() - r.pos
}

// ReadUint8 reads one byte and advances the cursor.
func (r *Reader) ReadUint8() (uint8, error) {
	if r.pos+1 > r.size() {
		return 0, ErrOutsideBoundary
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadUint16 reads a little-endian uint16 and advances the cursor.
func (r *Reader) ReadUint16() (uint16, error) {
	if r.pos+2 > r.size() {
		return 0, ErrOutsideBoundary
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadUint32 reads a little-endian uint32 and advances the cursor.
func (r *Reader) ReadUint32() (uint32, error) {
	if r.pos+4 > r.size() {
		return 0, ErrOutsideBoundary
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadUint64 reads a little-endian uint64 and advances the cursor.
func (r *Reader) ReadUint64() (uint64, error) {
	if r.pos+8 > r.size() {
		return 0, ErrOutsideBoundary
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadFloat64 reads a little-endian IEEE754 double and advances the cursor.
func (r *Reader) ReadFloat64() (float64, error) {
	bits, err := r.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// ReadVarint reads an unsigned LEB128 varint (spec §6.1 chunk format).
func (r *Reader) ReadVarint() (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.ReadUint8()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift > 35 {
			return 0, errors.New("binreader: varint too long")
		}
	}
}

// ReadBytes returns the next n bytes without copying, and advances the
// cursor. The returned slice aliases the reader's buffer.
func (r *Reader) ReadBytes(n uint32) ([]byte, error) {
	total := r.pos + n
	if (total > r.pos) != (n > 0) {
		return nil, ErrOutsideBoundary
	}
	if r.pos >= r.size() && n > 0 || total > r.size() {
		return nil, ErrOutsideBoundary
	}
	b := r.data[r.pos:total]
	r.pos = total
	return b, nil
}

// ReadString reads a varint length prefix followed by that many raw bytes.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadVarint()
	if err != nil {
		return "", err
	}
	b, err := r.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
