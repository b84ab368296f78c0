// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import "fmt"

// PartitionKind selects the {open|closed} x {complete|incomplete} x
// {header|body|footer} category encoded in byte 13/14 of a partition pack
// key (ST 377-1).
type PartitionKind struct {
	Header   bool
	Body     bool
	Footer   bool
	Open     bool
	Complete bool
}

// partitionBaseKey is the 13-byte SMPTE partition-pack prefix shared by
// every partition kind; bytes 13-15 select header/body/footer and
// open/closed/complete.
var partitionBaseKey = [13]byte{0x06, 0x0E, 0x2B, 0x34, 0x02, 0x05, 0x01, 0x01, 0x0D, 0x01, 0x02, 0x01, 0x01}

// PartitionKey returns the canonical UL for kind.
func PartitionKey(kind PartitionKind) UL {
	var ul UL
	copy(ul[:13], partitionBaseKey[:])
	ul[13] = partitionByte13(kind)
	ul[14] = partitionByte14(kind)
	ul[15] = 0x00
	return ul
}

func partitionByte13(kind PartitionKind) byte {
	switch {
	case kind.Header:
		return 0x02
	case kind.Body:
		return 0x03
	case kind.Footer:
		return 0x04
	default:
		return 0x01
	}
}

func partitionByte14(kind PartitionKind) byte {
	switch {
	case kind.Open && !kind.Complete:
		return 0x01
	case kind.Open && kind.Complete:
		return 0x02
	case !kind.Open && !kind.Complete:
		return 0x03
	default: // closed, complete
		return 0x04
	}
}

// KindFromKey inspects a partition pack key's byte 13/14 and recovers the
// PartitionKind it encodes, or false if key is not a partition pack key.
func KindFromKey(key UL) (PartitionKind, bool) {
	for i := 0; i < 13; i++ {
		if key[i] != partitionBaseKey[i] {
			return PartitionKind{}, false
		}
	}
	var kind PartitionKind
	switch key[13] {
	case 0x01:
		// neither header, body nor footer: a generic "partition" marker,
		// not used by this implementation's writer but accepted on read.
	case 0x02:
		kind.Header = true
	case 0x03:
		kind.Body = true
	case 0x04:
		kind.Footer = true
	default:
		return PartitionKind{}, false
	}
	switch key[14] {
	case 0x01:
		kind.Open = true
	case 0x02:
		kind.Open, kind.Complete = true, true
	case 0x03:
	case 0x04:
		kind.Complete = true
	default:
		return PartitionKind{}, false
	}
	return kind, true
}

// Partition is the fixed-layout partition pack, plus the bookkeeping a
// reader/writer needs to navigate a file (ST 377-1).
type Partition struct {
	Kind PartitionKind

	MajorVersion uint16
	MinorVersion uint16

	KAGSize uint32

	ThisPartition     uint64
	PreviousPartition uint64
	FooterPartition   uint64

	HeaderByteCount uint64
	IndexByteCount  uint64
	IndexSID        uint32

	BodyOffset uint64
	BodySID    uint32

	OperationalPattern UL
	EssenceContainers  []UL
}

// NewPartition creates a partition pack of the given kind with the default
// version 1.2 (MajorVersion 1, MinorVersion 2), a KAG of 1, and an empty
// essence-container batch.
func NewPartition(kind PartitionKind) *Partition {
	return &Partition{
		Kind:         kind,
		MajorVersion: 1,
		MinorVersion: 2,
		KAGSize:      1,
	}
}

// WriteAt finalizes ThisPartition/PreviousPartition/FooterPartition
// bookkeeping for writing the pack at file offset pos, given the RIP's
// record of partitions written so far (ST 377-1).
func (p *Partition) WriteAt(pos uint64, rip *RIP) {
	p.ThisPartition = pos
	if rip != nil {
		if prev, ok := rip.NearestBefore(pos); ok {
			p.PreviousPartition = prev.ByteOffset
		} else {
			p.PreviousPartition = 0
		}
	}
	if p.Kind.Footer {
		p.FooterPartition = pos
		p.BodySID = 0
		p.BodyOffset = 0
	} else {
		p.FooterPartition = 0
	}
}

// partitionPackFixedSize is the byte size of the partition pack's fixed
// fields (everything before the EssenceContainers batch), used by both
// Encode and DecodePartition.
const partitionPackFixedSize = 2 + 2 + 4 + 8 + 8 + 8 + 8 + 8 + 4 + 8 + 4 + 16

// Encode serializes the partition pack value (everything after the 16-byte
// key and BER length): major/minor version, KAG size, the five offset/byte
// counts, IndexSID, BodyOffset, BodySID, the OperationalPattern UL, and the
// EssenceContainers UL batch.
func (p *Partition) Encode() []byte {
	out := make([]byte, partitionPackFixedSize)
	off := 0
	putU16(out[off:], p.MajorVersion)
	off += 2
	putU16(out[off:], p.MinorVersion)
	off += 2
	putU32(out[off:], p.KAGSize)
	off += 4
	putU64(out[off:], p.ThisPartition)
	off += 8
	putU64(out[off:], p.PreviousPartition)
	off += 8
	putU64(out[off:], p.FooterPartition)
	off += 8
	putU64(out[off:], p.HeaderByteCount)
	off += 8
	putU64(out[off:], p.IndexByteCount)
	off += 8
	putU32(out[off:], p.IndexSID)
	off += 4
	putU64(out[off:], p.BodyOffset)
	off += 8
	putU32(out[off:], p.BodySID)
	off += 4
	copy(out[off:off+16], p.OperationalPattern[:])
	off += 16

	batch := make([]byte, 8+16*len(p.EssenceContainers))
	putU32(batch[0:4], uint32(len(p.EssenceContainers)))
	putU32(batch[4:8], 16)
	for i, ul := range p.EssenceContainers {
		copy(batch[8+i*16:8+i*16+16], ul[:])
	}
	return append(out, batch...)
}

// DecodePartition parses a partition pack value, recovering its kind from
// key and filling in every fixed field plus the EssenceContainers batch.
func DecodePartition(key UL, value []byte) (*Partition, error) {
	kind, ok := KindFromKey(key)
	if !ok {
		return nil, fmt.Errorf("DecodePartition: %w", ErrBadPartitionPack)
	}
	if len(value) < partitionPackFixedSize {
		return nil, fmt.Errorf("DecodePartition: %w", ErrShortRead)
	}
	p := &Partition{Kind: kind}
	off := 0
	p.MajorVersion = getU16(value[off:])
	off += 2
	p.MinorVersion = getU16(value[off:])
	off += 2
	p.KAGSize = getU32(value[off:])
	off += 4
	p.ThisPartition = getU64(value[off:])
	off += 8
	p.PreviousPartition = getU64(value[off:])
	off += 8
	p.FooterPartition = getU64(value[off:])
	off += 8
	p.HeaderByteCount = getU64(value[off:])
	off += 8
	p.IndexByteCount = getU64(value[off:])
	off += 8
	p.IndexSID = getU32(value[off:])
	off += 4
	p.BodyOffset = getU64(value[off:])
	off += 8
	p.BodySID = getU32(value[off:])
	off += 4
	ul, err := ULFromBytes(value[off : off+16])
	if err != nil {
		return nil, err
	}
	p.OperationalPattern = ul
	off += 16

	if off+8 > len(value) {
		return nil, fmt.Errorf("DecodePartition: %w", ErrShortRead)
	}
	count := getU32(value[off:])
	size := getU32(value[off+4:])
	off += 8
	if size != 0 && size != 16 {
		return nil, fmt.Errorf("DecodePartition: essence container batch: %w", ErrInvalidSize)
	}
	p.EssenceContainers = make([]UL, 0, count)
	for i := uint32(0); i < count; i++ {
		if off+16 > len(value) {
			return nil, fmt.Errorf("DecodePartition: %w", ErrShortRead)
		}
		ul, err := ULFromBytes(value[off : off+16])
		if err != nil {
			return nil, err
		}
		p.EssenceContainers = append(p.EssenceContainers, ul)
		off += 16
	}
	return p, nil
}

func putU16(b []byte, v uint16) { b[0] = byte(v >> 8); b[1] = byte(v) }
func putU32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[7-i] = byte(v >> (8 * i))
	}
}
func getU16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
func getU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
func getU64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}
