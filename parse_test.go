// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import (
	"errors"
	"testing"
)

func TestParseRejectsJunk(t *testing.T) {
	junk := make([]byte, 1024)
	for i := range junk {
		junk[i] = byte(i * 7)
	}
	if _, err := OpenBytes(junk, DefaultContext(), nil); !errors.Is(err, ErrNoKLVKey) {
		t.Errorf("OpenBytes(junk) error = %v, want ErrNoKLVKey", err)
	}
	if _, err := OpenBytes(nil, DefaultContext(), nil); err == nil {
		t.Error("OpenBytes(empty) did not fail")
	}
}

func TestParseHandlesRunIn(t *testing.T) {
	body := buildThreePartitionFile(t)
	runIn := make([]byte, 32) // zeros can never match the partition prefix
	data := append(runIn, body...)

	parsed, err := OpenBytes(data, DefaultContext(), &Options{RIPOrder: []string{"scan"}})
	if err != nil {
		t.Fatalf("OpenBytes failed, reason: %v", err)
	}
	if parsed.RunIn != 32 {
		t.Errorf("RunIn = %d, want 32", parsed.RunIn)
	}
	if len(parsed.Partitions) != 3 {
		t.Fatalf("parsed %d partitions", len(parsed.Partitions))
	}
	if parsed.Partitions[0].Offset != 32 {
		t.Errorf("header offset = %d, want 32", parsed.Partitions[0].Offset)
	}
	if hp := parsed.HeaderPartition(); hp == nil || !hp.Pack.Kind.Header {
		t.Error("HeaderPartition not found")
	}
}

func TestParseFallsBackToObservedPartitions(t *testing.T) {
	// A file with no RIP at all: acquisition falls back to the partitions
	// the parser itself walked.
	body := buildThreePartitionFile(t)
	// Strip the trailing RIP KLV.
	ripLen := int64(getU32(body[len(body)-4:]))
	noRIP := body[:int64(len(body))-ripLen]

	parsed, err := OpenBytes(noRIP, DefaultContext(), &Options{RIPOrder: []string{"read"}})
	if err != nil {
		t.Fatalf("OpenBytes failed, reason: %v", err)
	}
	if len(parsed.RIP.Entries) != 3 {
		t.Errorf("fallback RIP entries = %v", parsed.RIP.Entries)
	}
	if parsed.RIP.Entries[1].BodySID != 1 {
		t.Errorf("fallback RIP SIDs = %v", parsed.RIP.Entries)
	}
}

func TestParseReadsMetadataAndPrimer(t *testing.T) {
	ctx := DefaultContext()
	stream := NewBodyStream(1, &sliceSource{data: make([]byte, 40), bpeu: 4}, 0, WrapClip, 1)
	bw := NewBodyWriter(ctx, SharingPolicy{AllowEssenceWithMetadata: true})
	bw.AddStream(stream)

	mem := NewMemoryFile()
	pos, err := bw.WriteHeader(mem, 0, testOPUL, []UL{testECUL}, buildTestGraph(ctx), NewPrimer())
	if err != nil {
		t.Fatalf("WriteHeader failed, reason: %v", err)
	}
	pos, err = bw.WritePartition(mem, pos, 0, 0)
	if err != nil {
		t.Fatalf("WritePartition failed, reason: %v", err)
	}
	if _, err := bw.WriteFooter(mem, pos, testOPUL, []UL{testECUL}); err != nil {
		t.Fatalf("WriteFooter failed, reason: %v", err)
	}

	parsed, err := Parse(mem, mem.Len(), ctx, nil)
	if err != nil {
		t.Fatalf("Parse failed, reason: %v", err)
	}

	hp := parsed.HeaderPartition()
	if hp == nil || hp.Primer == nil {
		t.Fatal("header partition primer missing")
	}
	if len(parsed.Graph.All) != 5 {
		t.Errorf("graph has %d objects, want 5", len(parsed.Graph.All))
	}
	if len(parsed.Graph.UnresolvedWeakRefs()) != 0 {
		t.Errorf("unresolved refs: %v", parsed.Graph.UnresolvedWeakRefs())
	}
	if hp.Pack.OperationalPattern != testOPUL {
		t.Errorf("operational pattern = %s", hp.Pack.OperationalPattern)
	}
	if len(hp.Pack.EssenceContainers) != 1 || hp.Pack.EssenceContainers[0] != testECUL {
		t.Errorf("essence containers = %v", hp.Pack.EssenceContainers)
	}
}

func TestFuzzEntryDoesNotPanic(t *testing.T) {
	inputs := [][]byte{
		nil,
		{0x06},
		make([]byte, 17),
		buildThreePartitionFile(t),
	}
	for _, in := range inputs {
		Fuzz(in) // must not panic
	}
}
