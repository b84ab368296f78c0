// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import (
	"fmt"
	"io"
)

// Stream is the minimal random-access contract the KLV cursor needs. Both
// the disk-backed File and the in-memory MemoryFile implement it.
type Stream interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

// MaxRunIn is the largest run-in a KLV cursor will search before giving up
// (ST 377-1).
const MaxRunIn = 65536

// KLV is one decoded Key-Length-Value triple: the key, the declared length
// of the value, and the stream position at which the value begins.
type KLV struct {
	Key      UL
	Length   uint64
	ValuePos int64
	// KeyLen is always 16; LengthSize records how many bytes the BER
	// length encoding itself occupied, so callers can recompute the
	// position of the next KLV as ValuePos + int64(Length).
	LengthSize int
}

// End returns the stream position immediately following this KLV's value.
func (k KLV) End() int64 {
	return k.ValuePos + int64(k.Length)
}

// Cursor walks successive KLV triples in a Stream starting at a given
// position, per ST 377-1 "KLV cursor".
type Cursor struct {
	s   Stream
	pos int64
}

// NewCursor creates a cursor positioned at pos.
func NewCursor(s Stream, pos int64) *Cursor {
	return &Cursor{s: s, pos: pos}
}

// Pos returns the cursor's current stream position.
func (c *Cursor) Pos() int64 { return c.pos }

// Seek repositions the cursor.
func (c *Cursor) Seek(pos int64) { c.pos = pos }

// Next reads the KLV triple at the cursor's current position and advances
// the cursor to the following KLV.
func (c *Cursor) Next() (KLV, error) {
	var keyBuf [16]byte
	if _, err := c.s.ReadAt(keyBuf[:], c.pos); err != nil {
		return KLV{}, fmt.Errorf("klv: reading key at %d: %w", c.pos, err)
	}
	key, _ := ULFromBytes(keyBuf[:])

	// BER length follows the key; read up to 9 bytes speculatively (the
	// maximum a long-form BER can occupy) and decode from that window.
	var lenBuf [9]byte
	n, err := c.s.ReadAt(lenBuf[:], c.pos+16)
	if err != nil && n == 0 {
		return KLV{}, fmt.Errorf("klv: reading length at %d: %w", c.pos+16, err)
	}
	length, consumed, err := DecodeBER(lenBuf[:n])
	if err != nil {
		return KLV{}, fmt.Errorf("klv: decoding length at %d: %w", c.pos+16, err)
	}

	valuePos := c.pos + 16 + int64(consumed)
	klv := KLV{Key: key, Length: length, ValuePos: valuePos, LengthSize: consumed}
	c.pos = klv.End()
	return klv, nil
}

// ReadValue reads the full value of a previously-returned KLV.
func ReadValue(s Stream, k KLV) ([]byte, error) {
	buf := make([]byte, k.Length)
	if k.Length == 0 {
		return buf, nil
	}
	n, err := s.ReadAt(buf, k.ValuePos)
	if err != nil && int64(n) < int64(k.Length) {
		return buf[:n], fmt.Errorf("klv: reading value at %d (%d bytes): %w", k.ValuePos, k.Length, err)
	}
	return buf, nil
}

// closedHeaderBaseKey is the 11-byte prefix (ignoring byte 8, the registry
// version) shared by every MXF closed-header partition pack key. Run-in
// detection scans for this prefix.
var closedHeaderBaseKey = [11]byte{
	0x06, 0x0E, 0x2B, 0x34, 0x02, 0x05, 0x01, 0x00 /*version ignored*/, 0x0D, 0x01, 0x02,
}

func looksLikePartitionKey(b []byte) bool {
	if len(b) < 11 {
		return false
	}
	for i, want := range closedHeaderBaseKey {
		if i == 7 {
			continue // registry version byte, ignored
		}
		if b[i] != want {
			return false
		}
	}
	return true
}

// FindRunIn scans up to MaxRunIn bytes from the start of s for the first
// byte offset at which the next 11 bytes match the closed-header base key
// (ignoring byte 8 / index 7). Returns the run-in length (0 if the file
// starts directly with a partition key). ErrNoKLVKey is returned if no
// match is found within the window.
func FindRunIn(s Stream) (int64, error) {
	return findRunIn(s, MaxRunIn)
}

func findRunIn(s Stream, maxRunIn int64) (int64, error) {
	if maxRunIn <= 0 || maxRunIn > MaxRunIn {
		maxRunIn = MaxRunIn
	}
	window := make([]byte, maxRunIn+16)
	n, err := s.ReadAt(window, 0)
	if err != nil && n == 0 {
		return 0, fmt.Errorf("runin: %w", err)
	}
	window = window[:n]
	limit := int64(n - 11)
	if limit > maxRunIn {
		limit = maxRunIn
	}
	for i := int64(0); i <= limit; i++ {
		if looksLikePartitionKey(window[i:]) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("runin: %w", ErrNoKLVKey)
}

// WriteKLV writes a complete KLV triple to w: the 16-byte key, the BER
// length (forced to berSize bytes when berSize > 0, shortest form
// otherwise), then the value bytes.
func WriteKLV(w io.Writer, key UL, value []byte, berSize int) (int, error) {
	total := 0
	n, err := w.Write(key[:])
	total += n
	if err != nil {
		return total, err
	}
	lenBytes, err := EncodeBER(uint64(len(value)), berSize)
	if err != nil {
		return total, err
	}
	n, err = w.Write(lenBytes)
	total += n
	if err != nil {
		return total, err
	}
	n, err = w.Write(value)
	total += n
	return total, err
}
