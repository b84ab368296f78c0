// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import "fmt"

// indexSegmentKey is the canonical SMPTE UL identifying an Index Table
// Segment.
var indexSegmentKey = UL{0x06, 0x0E, 0x2B, 0x34, 0x02, 0x53, 0x01, 0x01, 0x0D, 0x01, 0x02, 0x01, 0x01, 0x10, 0x01, 0x00}

// IndexSegmentKey exposes the canonical Index Table Segment UL.
func IndexSegmentKey() UL { return indexSegmentKey }

// EncodeIndexSegment serialises an index table as one Index Table Segment
// value (ST 377-1 "Serialization"): index edit rate, start position,
// duration, EditUnitByteCount (0 for VBR), IndexSID, BodySID, SliceCount,
// PosTableCount, the delta-entry array, then the index-entry array in
// ascending edit-unit order.
func EncodeIndexSegment(t *IndexTable) []byte {
	var out []byte
	out = append(out, encodeRational(t.EditRate)...)

	keys := t.sortedEditUnits()
	start := int64(0)
	if len(keys) > 0 {
		start = keys[0]
	}
	out = appendI64(out, start)
	out = appendU32(out, uint32(len(keys)))
	out = appendU64(out, t.BytesPerEditUnit)

	out = appendU32(out, t.IndexSID)
	out = appendU32(out, t.BodySID)
	out = appendU8(out, uint8(t.SliceCount))
	out = appendU8(out, uint8(t.PosTableCount))

	out = appendU32(out, uint32(len(t.Delta)))
	for _, d := range t.Delta {
		out = append(out, byte(d.PosTableIndex), d.Slice)
		out = appendU32(out, d.ElementDelta)
	}

	out = appendU32(out, uint32(len(keys)))
	for _, k := range keys {
		e := t.entries[k]
		out = appendI64(out, k)
		out = append(out, byte(e.TemporalOffset), byte(e.KeyFrameOffset), e.Flags)
		out = appendU64(out, e.StreamOffset)
		out = appendU32(out, uint32(len(e.SliceOffsetArray)))
		for _, s := range e.SliceOffsetArray {
			out = appendU32(out, s)
		}
		out = appendU32(out, uint32(len(e.PosTableArray)))
		for _, p := range e.PosTableArray {
			out = append(out, encodeRational(p)...)
		}
	}
	return out
}

// DecodeIndexSegment parses an Index Table Segment value produced by
// EncodeIndexSegment.
func DecodeIndexSegment(value []byte) (*IndexTable, error) {
	r := &byteReader{buf: value}

	editRate, err := r.rational()
	if err != nil {
		return nil, err
	}
	start, err := r.i64()
	if err != nil {
		return nil, err
	}
	duration, err := r.u32()
	if err != nil {
		return nil, err
	}
	bpeu, err := r.u64()
	if err != nil {
		return nil, err
	}
	indexSID, err := r.u32()
	if err != nil {
		return nil, err
	}
	bodySID, err := r.u32()
	if err != nil {
		return nil, err
	}
	sliceCount, err := r.u8()
	if err != nil {
		return nil, err
	}
	posTableCount, err := r.u8()
	if err != nil {
		return nil, err
	}

	t := &IndexTable{
		IndexSID: indexSID, BodySID: bodySID, EditRate: editRate,
		SliceCount: int(sliceCount), PosTableCount: int(posTableCount),
		BytesPerEditUnit: bpeu, entries: make(map[int64]*IndexEntry),
	}

	deltaCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < deltaCount; i++ {
		pti, err := r.u8()
		if err != nil {
			return nil, err
		}
		slice, err := r.u8()
		if err != nil {
			return nil, err
		}
		delta, err := r.u32()
		if err != nil {
			return nil, err
		}
		t.Delta = append(t.Delta, DeltaEntry{PosTableIndex: int8(pti), Slice: slice, ElementDelta: delta})
	}

	entryCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	if t.IsCBR() && entryCount == 0 && duration > 0 {
		// CBR tables carry no explicit entries; start/duration alone
		// describe the covered range.
		_ = start
	}
	for i := uint32(0); i < entryCount; i++ {
		eu, err := r.i64()
		if err != nil {
			return nil, err
		}
		toff, err := r.u8()
		if err != nil {
			return nil, err
		}
		kfo, err := r.u8()
		if err != nil {
			return nil, err
		}
		flags, err := r.u8()
		if err != nil {
			return nil, err
		}
		streamOff, err := r.u64()
		if err != nil {
			return nil, err
		}
		sliceArrLen, err := r.u32()
		if err != nil {
			return nil, err
		}
		entry := &IndexEntry{TemporalOffset: int8(toff), KeyFrameOffset: int8(kfo), Flags: flags, StreamOffset: streamOff}
		for j := uint32(0); j < sliceArrLen; j++ {
			v, err := r.u32()
			if err != nil {
				return nil, err
			}
			entry.SliceOffsetArray = append(entry.SliceOffsetArray, v)
		}
		posArrLen, err := r.u32()
		if err != nil {
			return nil, err
		}
		for j := uint32(0); j < posArrLen; j++ {
			p, err := r.rational()
			if err != nil {
				return nil, err
			}
			entry.PosTableArray = append(entry.PosTableArray, p)
		}
		t.entries[eu] = entry
	}
	return t, nil
}

func encodeRational(r Rational) []byte {
	out := make([]byte, 8)
	putU32(out[0:4], uint32(r.Numerator))
	putU32(out[4:8], uint32(r.Denominator))
	return out
}

func appendU8(b []byte, v uint8) []byte { return append(b, v) }
func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	putU32(tmp[:], v)
	return append(b, tmp[:]...)
}
func appendU64(b []byte, v uint64) []byte {
	var tmp [8]byte
	putU64(tmp[:], v)
	return append(b, tmp[:]...)
}
func appendI64(b []byte, v int64) []byte { return appendU64(b, uint64(v)) }

// byteReader is a small sequential-cursor decoder shared by the index
// segment and (elsewhere) partition/RIP codecs' fixed-field layouts.
type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("indexcodec: %w", ErrShortRead)
	}
	return nil
}
func (r *byteReader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}
func (r *byteReader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := getU32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}
func (r *byteReader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := getU64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}
func (r *byteReader) i64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}
func (r *byteReader) rational() (Rational, error) {
	if err := r.need(8); err != nil {
		return Rational{}, err
	}
	n := int32(getU32(r.buf[r.pos:]))
	d := int32(getU32(r.buf[r.pos+4:]))
	r.pos += 8
	return Rational{Numerator: n, Denominator: d}, nil
}
