// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import "fmt"

// primerKey is the canonical SMPTE UL identifying a Primer Pack.
var primerKey = UL{0x06, 0x0E, 0x2B, 0x34, 0x02, 0x05, 0x01, 0x01, 0x0D, 0x01, 0x02, 0x01, 0x01, 0x05, 0x01, 0x00}

// PrimerKey exposes the canonical Primer Pack UL.
func PrimerKey() UL { return primerKey }

// Primer translates local tags to global ULs within a single partition; it
// is append-only on write, and every UL maps to exactly one tag within a
// partition (ST 377-1 "Local Tag").
type Primer struct {
	tagToUL map[Tag]UL
	ulToTag map[UL]Tag
	next    Tag
}

// NewPrimer creates an empty primer. Local tags below 0x8000 are reserved
// for statically-known dictionary ULs in real MXF; new dynamic entries are
// allocated starting at 0x8000.
func NewPrimer() *Primer {
	return &Primer{
		tagToUL: make(map[Tag]UL),
		ulToTag: make(map[UL]Tag),
		next:    0x8000,
	}
}

// Lookup resolves a local tag to its UL.
func (p *Primer) Lookup(t Tag) (UL, bool) {
	ul, ok := p.tagToUL[t]
	return ul, ok
}

// TagFor returns the tag already assigned to ul, allocating and recording a
// new one if none exists yet. The same UL always maps to the same tag
// within one primer (ST 377-1).
func (p *Primer) TagFor(ul UL) Tag {
	if t, ok := p.ulToTag[ul]; ok {
		return t
	}
	t := p.next
	p.next++
	p.Insert(t, ul)
	return t
}

// Insert adds an explicit tag/UL pair, failing if the tag is already
// mapped to a different UL.
func (p *Primer) Insert(t Tag, ul UL) error {
	if existing, ok := p.tagToUL[t]; ok && existing != ul {
		return fmt.Errorf("primer.Insert(%04x): %w", uint16(t), ErrPrimerConflict)
	}
	p.tagToUL[t] = ul
	p.ulToTag[ul] = t
	return nil
}

// Entries returns the primer's (tag, UL) pairs in ascending tag order,
// suitable for serialization.
func (p *Primer) Entries() []struct {
	Tag Tag
	UL  UL
} {
	out := make([]struct {
		Tag Tag
		UL  UL
	}, 0, len(p.tagToUL))
	for t, ul := range p.tagToUL {
		out = append(out, struct {
			Tag Tag
			UL  UL
		}{t, ul})
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Tag < out[j-1].Tag; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// EncodePrimer serializes the primer as a Primer Pack value: an 8-byte
// vector header (count, 18) followed by 18-byte entries (2-byte tag +
// 16-byte UL).
func (p *Primer) EncodePrimer() []byte {
	entries := p.Entries()
	out := make([]byte, 0, 8+18*len(entries))
	var hdr [8]byte
	putUint32(hdr[0:4], uint32(len(entries)))
	putUint32(hdr[4:8], 18)
	out = append(out, hdr[:]...)
	for _, e := range entries {
		var tagBytes [2]byte
		tagBytes[0] = byte(e.Tag >> 8)
		tagBytes[1] = byte(e.Tag)
		out = append(out, tagBytes[:]...)
		out = append(out, e.UL[:]...)
	}
	return out
}

// DecodePrimer parses a Primer Pack value: an 8-byte vector header
// followed by 18-byte entries (2-byte tag + 16-byte UL).
func DecodePrimer(value []byte) (*Primer, error) {
	if len(value) < 8 {
		return nil, fmt.Errorf("DecodePrimer: %w", ErrShortRead)
	}
	items := (len(value) - 8) / 18
	p := NewPrimer()
	buf := value[8:]
	for i := 0; i < items; i++ {
		off := i * 18
		if off+18 > len(buf) {
			return nil, fmt.Errorf("DecodePrimer: %w", ErrShortRead)
		}
		tag := Tag(uint16(buf[off])<<8 | uint16(buf[off+1]))
		ul, err := ULFromBytes(buf[off+2 : off+18])
		if err != nil {
			return nil, err
		}
		if err := p.Insert(tag, ul); err != nil {
			return nil, err
		}
	}
	return p, nil
}
