// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

var testEssenceKey = UL{0x06, 0x0E, 0x2B, 0x34, 0x01, 0x02, 0x01, 0x01, 0x0D, 0x01, 0x03, 0x01, 0x16, 0x01, 0x01, 0x01}

// buildThreePartitionFile assembles header + body(+essence) + footer + RIP
// by hand and returns the file image.
func buildThreePartitionFile(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	rip := NewRIP()

	writePart := func(kind PartitionKind, bodySID uint32) {
		pos := int64(buf.Len())
		p := NewPartition(kind)
		p.BodySID = bodySID
		p.WriteAt(uint64(pos), rip)
		if _, err := WriteKLV(&buf, PartitionKey(kind), p.Encode(), 0); err != nil {
			t.Fatalf("WriteKLV failed, reason: %v", err)
		}
		rip.AddPartition(p.BodySID, uint64(pos))
	}

	writePart(PartitionKind{Header: true, Complete: true}, 0)
	writePart(PartitionKind{Body: true, Complete: true}, 1)
	if _, err := WriteKLV(&buf, testEssenceKey, make([]byte, 100), 0); err != nil {
		t.Fatalf("WriteKLV failed, reason: %v", err)
	}
	writePart(PartitionKind{Footer: true, Complete: true}, 0)

	if _, err := WriteKLV(&buf, RIPKey(), rip.Encode(), 0); err != nil {
		t.Fatalf("WriteKLV failed, reason: %v", err)
	}
	return buf.Bytes()
}

// All three acquisition strategies must agree on a file with a valid
// explicit RIP.
func TestRIPStrategiesAgree(t *testing.T) {
	data := buildThreePartitionFile(t)
	s := bytes.NewReader(data)
	size := int64(len(data))

	read, err := ReadRIP(s, size)
	if err != nil {
		t.Fatalf("ReadRIP failed, reason: %v", err)
	}
	scanned, err := ScanRIP(s, size, nil)
	if err != nil {
		t.Fatalf("ScanRIP failed, reason: %v", err)
	}
	built, err := BuildRIP(s, size, false)
	if err != nil {
		t.Fatalf("BuildRIP failed, reason: %v", err)
	}

	if !reflect.DeepEqual(read.Entries, scanned.Entries) {
		t.Errorf("ReadRIP %v != ScanRIP %v", read.Entries, scanned.Entries)
	}
	if !reflect.DeepEqual(read.Entries, built.Entries) {
		t.Errorf("ReadRIP %v != BuildRIP %v", read.Entries, built.Entries)
	}
	if len(read.Entries) != 3 {
		t.Errorf("RIP has %d entries, want 3", len(read.Entries))
	}
	if read.Entries[1].BodySID != 1 {
		t.Errorf("body partition SID = %d", read.Entries[1].BodySID)
	}
}

func TestReadRIPAbsent(t *testing.T) {
	var buf bytes.Buffer
	p := NewPartition(PartitionKind{Header: true, Complete: true})
	WriteKLV(&buf, PartitionKey(p.Kind), p.Encode(), 0)

	if _, err := ReadRIP(bytes.NewReader(buf.Bytes()), int64(buf.Len())); err == nil {
		t.Error("ReadRIP on RIP-less file did not fail")
	}
	if _, err := ReadRIP(bytes.NewReader(nil), 0); !errors.Is(err, ErrNoRIP) {
		t.Errorf("ReadRIP(empty) error = %v, want ErrNoRIP", err)
	}
}

func TestRIPEncodeDecode(t *testing.T) {
	rip := NewRIP()
	rip.AddPartition(0, 0)
	rip.AddPartition(1, 65536)
	rip.AddPartition(2, 1<<40)

	encoded := rip.Encode()
	decoded, err := DecodeRIP(encoded[:len(encoded)-4])
	if err != nil {
		t.Fatalf("DecodeRIP failed, reason: %v", err)
	}
	if !reflect.DeepEqual(rip.Entries, decoded.Entries) {
		t.Errorf("round trip got %v, want %v", decoded.Entries, rip.Entries)
	}
}

func TestRIPAddPartitionKeepsOrder(t *testing.T) {
	rip := NewRIP()
	rip.AddPartition(2, 9000)
	rip.AddPartition(1, 100)
	rip.AddPartition(3, 4000)
	rip.AddPartition(9, 100) // replaces the entry at offset 100

	want := []RIPEntry{{9, 100}, {3, 4000}, {2, 9000}}
	if !reflect.DeepEqual(rip.Entries, want) {
		t.Errorf("entries = %v, want %v", rip.Entries, want)
	}
}

func TestNearestBefore(t *testing.T) {
	rip := NewRIP()
	rip.AddPartition(0, 0)
	rip.AddPartition(1, 4096)
	rip.AddPartition(0, 8192)

	e, ok := rip.NearestBefore(8192)
	if !ok || e.ByteOffset != 4096 {
		t.Errorf("NearestBefore(8192) = %v, %v", e, ok)
	}
	e, ok = rip.NearestBefore(1)
	if !ok || e.ByteOffset != 0 {
		t.Errorf("NearestBefore(1) = %v, %v", e, ok)
	}
	if _, ok := rip.NearestBefore(0); ok {
		t.Error("NearestBefore(0) found an entry")
	}
}

// The version-10 heuristic adds a KAG-aligned leading filler back into
// the skip distance when the partition declares it outside the count.
func TestBuildRIPVersion10Filler(t *testing.T) {
	var buf bytes.Buffer
	rip := NewRIP()

	// v1.0 header partition declaring HeaderByteCount that excludes the
	// leading filler.
	kag := int64(512)
	header := NewPartition(PartitionKind{Header: true, Complete: true})
	header.MajorVersion, header.MinorVersion = 1, 0
	header.KAGSize = uint32(kag)

	primer := NewPrimer()
	primerKLV := func() []byte {
		var b bytes.Buffer
		WriteKLV(&b, PrimerKey(), primer.EncodePrimer(), 0)
		return b.Bytes()
	}()
	header.HeaderByteCount = uint64(len(primerKLV))
	packKLV := func() []byte {
		var b bytes.Buffer
		WriteKLV(&b, PartitionKey(header.Kind), header.Encode(), 0)
		return b.Bytes()
	}()
	buf.Write(packKLV)
	fillSize, err := FillerSize(int64(buf.Len()), kag, 0, false)
	if err != nil {
		t.Fatalf("FillerSize failed, reason: %v", err)
	}
	filler, err := BuildFiller(fillSize, false)
	if err != nil {
		t.Fatalf("BuildFiller failed, reason: %v", err)
	}
	buf.Write(filler)
	buf.Write(primerKLV)
	rip.AddPartition(0, 0)

	footerPos := int64(buf.Len())
	footer := NewPartition(PartitionKind{Footer: true, Complete: true})
	footer.WriteAt(uint64(footerPos), rip)
	WriteKLV(&buf, PartitionKey(footer.Kind), footer.Encode(), 0)

	built, err := BuildRIP(bytes.NewReader(buf.Bytes()), int64(buf.Len()), true)
	if err != nil {
		t.Fatalf("BuildRIP failed, reason: %v", err)
	}
	if len(built.Entries) != 2 || built.Entries[1].ByteOffset != uint64(footerPos) {
		t.Errorf("entries = %v, want footer at %d", built.Entries, footerPos)
	}
}
