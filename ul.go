// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import (
	"encoding/hex"
	"fmt"
)

// UL is a 16-byte SMPTE Universal Label, used as both the KLV key and the
// class/member identifier throughout header metadata (ST 377-1 "Universal
// Label").
type UL [16]byte

// String renders the UL as 32 lowercase hex digits with no separators,
// e.g. "060e2b34...".
func (u UL) String() string {
	return hex.EncodeToString(u[:])
}

// Equal compares two ULs. When ignoreVersion is true, byte index 7 (the
// registry version octet) is ignored, matching the "equality may optionally
// ignore the 8th byte" rule of registry-version-insensitive matching.
func (u UL) Equal(other UL, ignoreVersion bool) bool {
	if !ignoreVersion {
		return u == other
	}
	for i := range u {
		if i == 7 {
			continue
		}
		if u[i] != other[i] {
			return false
		}
	}
	return true
}

// IsSMPTELabel reports whether the UL carries the standard SMPTE registered
// prefix (06 0E 2B 34).
func (u UL) IsSMPTELabel() bool {
	return u[0] == 0x06 && u[1] == 0x0E && u[2] == 0x2B && u[3] == 0x34
}

// ULCategory classifies byte 6 of a SMPTE UL: set, variable-length pack, or
// fixed-length pack (ST 377-1).
type ULCategory byte

const (
	CategoryUnknown ULCategory = iota
	CategorySet
	CategoryVariablePack
	CategoryFixedPack
)

// Category inspects byte 5 of the UL, which ST 377-1 documents as
// distinguishing set (02 53) vs variable pack (02 04) vs fixed pack (02 05)
// encodings (byte 4 is always 0x02 for a registered metadata item).
func (u UL) Category() ULCategory {
	if u[4] != 0x02 {
		return CategoryUnknown
	}
	switch u[5] {
	case 0x53:
		return CategorySet
	case 0x04:
		return CategoryVariablePack
	case 0x05:
		return CategoryFixedPack
	default:
		return CategoryUnknown
	}
}

// ULFromBytes copies 16 bytes into a UL, returning ErrShortRead if fewer
// than 16 bytes are supplied.
func ULFromBytes(b []byte) (UL, error) {
	var u UL
	if len(b) < 16 {
		return u, fmt.Errorf("ul: %w", ErrShortRead)
	}
	copy(u[:], b[:16])
	return u, nil
}

// Tag is a 16-bit local alias for a UL, valid only within the partition
// whose primer defines it (ST 377-1 "Local Tag").
type Tag uint16

// UnknownULForTag synthesises a placeholder UL for a local tag that has no
// primer entry ("an unknown tag is dark and preserved as a
// raw KLV with an 'Unknown' UL synthesised from the tag"). The synthesised
// UL is drawn from a private-use range so it can never collide with a real
// registered label.
func UnknownULForTag(t Tag) UL {
	return UL{
		0x06, 0x0E, 0x2B, 0x34, 0x01, 0x01, 0x0D, 0x01,
		0x7F, 0x7F, byte(t >> 8), byte(t), 0x00, 0x00, 0x00, 0x00,
	}
}

// TrackNumber decodes bytes 13-16 of a Generic Container essence key into
// its structured {ItemType, Count, ElementType, Number} fields.
type TrackNumber struct {
	ItemType    byte
	Count       byte
	ElementType byte
	Number      byte
}

// TrackNumberOf extracts the track number from a GC essence key.
func TrackNumberOf(key UL) TrackNumber {
	return TrackNumber{
		ItemType:    key[12],
		Count:       key[13],
		ElementType: key[14],
		Number:      key[15],
	}
}

// Encode packs the track number back into a 4-byte big-endian form, the
// layout used for bytes 13-16 of a GC essence key.
func (t TrackNumber) Encode() [4]byte {
	return [4]byte{t.ItemType, t.Count, t.ElementType, t.Number}
}

// GC element-type byte ranges (ST 377-1): CP (clip/content package)
// values occupy 4-8, GC (generic container) values occupy 0x14-0x18.
const (
	ElementTypeCPLow  = 0x04
	ElementTypeCPHigh = 0x08
	ElementTypeGCLow  = 0x14
	ElementTypeGCHigh = 0x18
)

// IsGC reports whether the element-type byte uses the GC (vs CP) range.
func (t TrackNumber) IsGC() bool {
	return t.ElementType >= ElementTypeGCLow && t.ElementType <= ElementTypeGCHigh
}
