// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import (
	"fmt"
	"sort"
)

// ripKey is the canonical SMPTE UL identifying a Random Index Pack.
var ripKey = UL{0x06, 0x0E, 0x2B, 0x34, 0x02, 0x05, 0x01, 0x01, 0x0D, 0x01, 0x02, 0x01, 0x01, 0x11, 0x01, 0x00}

// RIPKey exposes the canonical Random Index Pack UL.
func RIPKey() UL { return ripKey }

// RIPEntry is one (BodySID, ByteOffset) pair for a partition pack
// (ST 377-1).
type RIPEntry struct {
	BodySID    uint32
	ByteOffset uint64
}

// RIP is the ordered table of every partition pack's location in a file.
// AddPartition keeps entries ordered by ByteOffset, replacing any existing
// entry at the same offset.
type RIP struct {
	Entries []RIPEntry
}

// NewRIP creates an empty RIP.
func NewRIP() *RIP { return &RIP{} }

// AddPartition inserts or replaces the entry for a partition pack at
// byteOffset, keeping Entries sorted by ByteOffset.
func (r *RIP) AddPartition(bodySID uint32, byteOffset uint64) {
	i := sort.Search(len(r.Entries), func(i int) bool { return r.Entries[i].ByteOffset >= byteOffset })
	if i < len(r.Entries) && r.Entries[i].ByteOffset == byteOffset {
		r.Entries[i].BodySID = bodySID
		return
	}
	r.Entries = append(r.Entries, RIPEntry{})
	copy(r.Entries[i+1:], r.Entries[i:])
	r.Entries[i] = RIPEntry{BodySID: bodySID, ByteOffset: byteOffset}
}

// NearestBefore returns the entry with the greatest ByteOffset strictly
// less than pos, used to derive a partition's PreviousPartition value.
func (r *RIP) NearestBefore(pos uint64) (RIPEntry, bool) {
	best, found := RIPEntry{}, false
	for _, e := range r.Entries {
		if e.ByteOffset < pos {
			if !found || e.ByteOffset > best.ByteOffset {
				best, found = e, true
			}
		}
	}
	return best, found
}

// Encode serializes the RIP value: a sequence of 12-byte (BodySID,
// ByteOffset) entries followed by a 4-byte total KLV length, per ST 377-1
// ("optional Random Index Pack KLV whose last four bytes are its total
// KLV length").
func (r *RIP) Encode() []byte {
	value := make([]byte, 12*len(r.Entries))
	for i, e := range r.Entries {
		putU32(value[i*12:], e.BodySID)
		putU64(value[i*12+4:], e.ByteOffset)
	}
	klvLen := 16 + len(BuildBERLength(uint64(len(value)+4))) + len(value) + 4
	tail := make([]byte, 4)
	putU32(tail, uint32(klvLen))
	return append(value, tail...)
}

// BuildBERLength returns the shortest BER encoding of length, used only to
// predict a KLV's own total size for the RIP trailer.
func BuildBERLength(length uint64) []byte { return encodeBERShortest(length) }

// DecodeRIP parses a RIP value (without its trailing 4-byte total length,
// which the caller should already have validated and stripped).
func DecodeRIP(value []byte) (*RIP, error) {
	if len(value)%12 != 0 {
		return nil, fmt.Errorf("DecodeRIP: %w", ErrShortRead)
	}
	r := NewRIP()
	for off := 0; off < len(value); off += 12 {
		bodySID := getU32(value[off:])
		byteOffset := getU64(value[off+4:])
		r.Entries = append(r.Entries, RIPEntry{BodySID: bodySID, ByteOffset: byteOffset})
	}
	return r, nil
}

// ReadRIP implements the first RIP-acquisition strategy (ST 377-1):
// the last four bytes of the file are the RIP's total KLV length; seek
// back that far, validate the key, and parse the BodySID/offset vector.
func ReadRIP(s Stream, fileSize int64) (*RIP, error) {
	if fileSize < 4 {
		return nil, fmt.Errorf("ReadRIP: %w", ErrNoRIP)
	}
	tail := make([]byte, 4)
	if _, err := s.ReadAt(tail, fileSize-4); err != nil {
		return nil, fmt.Errorf("ReadRIP: %w", err)
	}
	ripLen := int64(getU32(tail))
	if ripLen < 20 || ripLen > fileSize {
		return nil, fmt.Errorf("ReadRIP: %w", ErrNoRIP)
	}
	start := fileSize - ripLen
	key := make([]byte, 16)
	if _, err := s.ReadAt(key, start); err != nil {
		return nil, fmt.Errorf("ReadRIP: %w", err)
	}
	ul, err := ULFromBytes(key)
	if err != nil {
		return nil, err
	}
	if !ul.Equal(ripKey, true) {
		return nil, fmt.Errorf("ReadRIP: %w", ErrBadRIPKey)
	}
	length, consumed, err := decodeBERAt(s, start+16)
	if err != nil {
		return nil, fmt.Errorf("ReadRIP: %w", err)
	}
	valueStart := start + 16 + int64(consumed)
	value := make([]byte, int64(length)-4)
	if len(value) > 0 {
		if _, err := s.ReadAt(value, valueStart); err != nil {
			return nil, fmt.Errorf("ReadRIP: %w", err)
		}
	}
	return DecodeRIP(value)
}

// decodeBERAt reads and decodes a BER length at an absolute stream
// position without requiring the whole tail to already be buffered.
func decodeBERAt(s Stream, pos int64) (uint64, int, error) {
	head := make([]byte, 9)
	n, err := s.ReadAt(head, pos)
	if err != nil && n == 0 {
		return 0, 0, err
	}
	return DecodeBER(head[:n])
}

// ScanRIP implements the second RIP-acquisition strategy (ST 377-1):
// follow FooterPartition from the header partition pack when known, else
// locate the footer by a bounded backward 4 KiB-block scan for a key whose
// type indicates footer, then walk PreviousPartition back to the header,
// recording every partition visited.
func ScanRIP(s Stream, fileSize int64, header *Partition) (*RIP, error) {
	footerOffset, err := locateFooter(s, fileSize, header)
	if err != nil {
		return nil, err
	}

	rip := NewRIP()
	pos := footerOffset
	for {
		p, err := readPartitionAt(s, pos)
		if err != nil {
			return nil, fmt.Errorf("ScanRIP: %w", err)
		}
		rip.AddPartition(p.BodySID, uint64(pos))
		if p.Kind.Header || pos == 0 {
			break
		}
		pos = int64(p.PreviousPartition)
	}
	return rip, nil
}

const scanBlockSize = 4096

func locateFooter(s Stream, fileSize int64, header *Partition) (int64, error) {
	if header != nil && header.FooterPartition != 0 {
		return int64(header.FooterPartition), nil
	}
	for end := fileSize; end > 0; {
		start := end - scanBlockSize
		if start < 0 {
			start = 0
		}
		buf := make([]byte, end-start)
		if _, err := s.ReadAt(buf, start); err != nil {
			return 0, fmt.Errorf("locateFooter: %w", err)
		}
		for i := len(buf) - 16; i >= 0; i-- {
			ul, err := ULFromBytes(buf[i : i+16])
			if err != nil {
				continue
			}
			if kind, ok := KindFromKey(ul); ok && kind.Footer {
				return start + int64(i), nil
			}
		}
		end = start
	}
	return 0, fmt.Errorf("locateFooter: %w", ErrNoRIP)
}

func readPartitionAt(s Stream, pos int64) (*Partition, error) {
	key := make([]byte, 16)
	if _, err := s.ReadAt(key, pos); err != nil {
		return nil, err
	}
	ul, err := ULFromBytes(key)
	if err != nil {
		return nil, err
	}
	length, consumed, err := decodeBERAt(s, pos+16)
	if err != nil {
		return nil, err
	}
	value := make([]byte, length)
	if _, err := s.ReadAt(value, pos+16+int64(consumed)); err != nil {
		return nil, err
	}
	return DecodePartition(ul, value)
}

// BuildRIP implements the third RIP-acquisition strategy: read the first
// partition, skip forward by HeaderByteCount + IndexByteCount, then skip
// any essence KLVs one BER length at a time until the next partition pack
// (or the trailing RIP, or end of file). v10Adjust enables the version-10
// workaround: when a leading filler immediately follows a v1.0 partition
// pack and its end falls on a KAG boundary, the filler is treated as
// outside the declared HeaderByteCount. Pre-v11 muxers wrote both
// conventions; the adjustment is a tolerant reinterpretation rather than
// a hard failure.
func BuildRIP(s Stream, fileSize int64, v10Adjust bool) (*RIP, error) {
	rip := NewRIP()
	pos := int64(0)
	for pos < fileSize {
		p, err := readPartitionAt(s, pos)
		if err != nil {
			return nil, fmt.Errorf("BuildRIP: %w", err)
		}
		rip.AddPartition(p.BodySID, uint64(pos))

		packSize, err := klvTotalSize(s, pos)
		if err != nil {
			return nil, fmt.Errorf("BuildRIP: %w", err)
		}
		bodyStart := pos + packSize

		headerCount := int64(p.HeaderByteCount)
		if v10Adjust && p.MajorVersion == 1 && p.MinorVersion == 0 {
			headerCount = version10HeaderAdjust(s, bodyStart, headerCount, int64(p.KAGSize))
		}

		pos = bodyStart + headerCount + int64(p.IndexByteCount)

		// Anything between the declared counts and the next partition pack
		// is essence (or filler); skip it KLV by KLV.
		for pos < fileSize {
			var keyBuf [16]byte
			n, rerr := s.ReadAt(keyBuf[:], pos)
			if rerr != nil && n < 16 {
				return rip, nil
			}
			ul, _ := ULFromBytes(keyBuf[:])
			if _, ok := KindFromKey(ul); ok {
				break
			}
			if ul.Equal(ripKey, true) {
				return rip, nil
			}
			size, serr := klvTotalSize(s, pos)
			if serr != nil {
				return nil, fmt.Errorf("BuildRIP: %w", serr)
			}
			pos += size
		}
	}
	return rip, nil
}

// klvTotalSize returns the total byte size (key + length + value) of the
// KLV starting at pos.
func klvTotalSize(s Stream, pos int64) (int64, error) {
	key := make([]byte, 16)
	if _, err := s.ReadAt(key, pos); err != nil {
		return 0, err
	}
	length, consumed, err := decodeBERAt(s, pos+16)
	if err != nil {
		return 0, err
	}
	return 16 + int64(consumed) + int64(length), nil
}

// version10HeaderAdjust detects a leading filler right after the partition
// pack whose end lands on a KAG boundary; when found, the filler is taken
// to be outside the declared HeaderByteCount, so its size is added to the
// skip distance.
func version10HeaderAdjust(s Stream, bodyStart, headerCount, kag int64) int64 {
	if kag <= 0 {
		return headerCount
	}
	fillerSize, err := klvTotalSize(s, bodyStart)
	if err != nil {
		return headerCount
	}
	key := make([]byte, 16)
	if _, err := s.ReadAt(key, bodyStart); err != nil {
		return headerCount
	}
	ul, err := ULFromBytes(key)
	if err != nil || !ul.Equal(FillerKey, true) {
		return headerCount
	}
	if (bodyStart+fillerSize)%kag == 0 {
		return headerCount + fillerSize
	}
	return headerCount
}
