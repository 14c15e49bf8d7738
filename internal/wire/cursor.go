// Package wire provides bounds-checked access to kernel message buffers.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrNotFound is the single error class for replies that can't be used: truncated
// or malformed messages, missing attributes, or no reply at all.
var ErrNotFound = errors.New("local interface MTU not found")

// ErrTruncated is returned when a read or skip would cross the end of the buffer.
var ErrTruncated = fmt.Errorf("%w: message truncated", ErrNotFound)

// Align rounds n up to the next multiple of a. a must be a power of two.
func Align(n, a int) int {
	return (n + a - 1) &^ (a - 1)
}

// Roundup is like Align but treats a zero length as one full unit, which is how
// BSD routing sockets lay out empty sockaddr slots.
func Roundup(n, a int) int {
	if n == 0 {
		return a
	}
	return Align(n, a)
}

// Cursor reads sequentially from a byte slice and never indexes past its end.
type Cursor struct {
	b   []byte
	off int
}

// NewCursor returns a cursor positioned at the start of b.
func NewCursor(b []byte) *Cursor {
	return &Cursor{b: b}
}

// Offset reports the current position.
func (c *Cursor) Offset() int { return c.off }

// Len reports how many bytes remain.
func (c *Cursor) Len() int { return len(c.b) - c.off }

// Peek returns the next n bytes without consuming them.
func (c *Cursor) Peek(n int) ([]byte, error) {
	if n < 0 || n > c.Len() {
		return nil, fmt.Errorf("%w: want %d bytes at offset %d, have %d", ErrTruncated, n, c.off, c.Len())
	}
	return c.b[c.off : c.off+n], nil
}

// Next consumes and returns the next n bytes.
func (c *Cursor) Next(n int) ([]byte, error) {
	b, err := c.Peek(n)
	if err != nil {
		return nil, err
	}
	c.off += n
	return b, nil
}

// Skip advances the cursor by n bytes.
func (c *Cursor) Skip(n int) error {
	_, err := c.Next(n)
	return err
}

// Uint8 consumes one byte.
func (c *Cursor) Uint8() (uint8, error) {
	b, err := c.Next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Uint16 consumes a native-endian uint16.
func (c *Cursor) Uint16() (uint16, error) {
	b, err := c.Next(2)
	if err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint16(b), nil
}

// Uint32 consumes a native-endian uint32.
func (c *Cursor) Uint32() (uint32, error) {
	b, err := c.Next(4)
	if err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint32(b), nil
}

// Sub consumes n bytes and returns a cursor confined to them.
func (c *Cursor) Sub(n int) (*Cursor, error) {
	b, err := c.Next(n)
	if err != nil {
		return nil, err
	}
	return NewCursor(b), nil
}

// Uint16At reads a native-endian uint16 at an absolute offset of b.
func Uint16At(b []byte, off int) (uint16, error) {
	if off < 0 || off+2 > len(b) {
		return 0, fmt.Errorf("%w: uint16 at offset %d of %d", ErrTruncated, off, len(b))
	}
	return binary.NativeEndian.Uint16(b[off:]), nil
}

// Uint32At reads a native-endian uint32 at an absolute offset of b.
func Uint32At(b []byte, off int) (uint32, error) {
	if off < 0 || off+4 > len(b) {
		return 0, fmt.Errorf("%w: uint32 at offset %d of %d", ErrTruncated, off, len(b))
	}
	return binary.NativeEndian.Uint32(b[off:]), nil
}

// Uint64At reads a native-endian uint64 at an absolute offset of b.
func Uint64At(b []byte, off int) (uint64, error) {
	if off < 0 || off+8 > len(b) {
		return 0, fmt.Errorf("%w: uint64 at offset %d of %d", ErrTruncated, off, len(b))
	}
	return binary.NativeEndian.Uint64(b[off:]), nil
}
