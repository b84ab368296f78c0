// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import (
	"bytes"
	"errors"
	"testing"
)

var (
	testOPUL = ulHex("060e2b34040101010d01020101010900")
	testECUL = ulHex("060e2b34040101020d01030102060100")
)

func TestPhaseMachine(t *testing.T) {

	type step struct {
		end  bool
		want Phase
	}
	tests := []struct {
		name   string
		policy IndexPolicy
		steps  []step
	}{
		{
			"no index",
			0,
			[]step{{false, PhaseBody}, {false, PhaseBody}, {true, PhaseDone}},
		},
		{
			"CBR in header",
			IdxCBRInHeader,
			[]step{{false, PhaseHeadIndex}, {false, PhaseBody}, {true, PhaseDone}},
		},
		{
			"pre-body then footer",
			IdxCBRPreBody | IdxCBRFooter,
			[]step{{false, PhasePreBodyIndex}, {false, PhaseBody}, {true, PhaseFootIndex}, {true, PhaseDone}},
		},
		{
			"VBR full footer",
			IdxVBRFullFooter,
			[]step{{false, PhaseBody}, {true, PhaseFootIndex}, {true, PhaseDone}},
		},
		{
			"end of essence straight out of head index",
			IdxCBRInHeader | IdxCBRFooter,
			[]step{{false, PhaseHeadIndex}, {true, PhaseFootIndex}, {true, PhaseDone}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewBodyStream(1, nil, tt.policy, WrapFrame, 1)
			for i, st := range tt.steps {
				if got := s.Advance(st.end); got != st.want {
					t.Errorf("step %d: phase %d, want %d", i, got, st.want)
					break
				}
			}
		})
	}
}

func TestAdvanceIdempotentInBody(t *testing.T) {
	s := NewBodyStream(1, nil, 0, WrapFrame, 1)
	s.Advance(false)
	if s.Phase() != PhaseBody {
		t.Fatalf("phase = %d", s.Phase())
	}
	for i := 0; i < 3; i++ {
		if got := s.Advance(false); got != PhaseBody {
			t.Errorf("Advance(false) left body phase: %d", got)
		}
	}
}

// Round-trip of a clip-wrapped CBR stream: header with index, one body
// partition holding the whole clip, footer with RIP. The reader's index
// lookup must hit the CBR formula.
func TestRoundTripCBRClip(t *testing.T) {
	ctx := DefaultContext()

	const bpeu = 4
	const editUnits = 2048
	payload := make([]byte, editUnits*bpeu)
	for i := range payload {
		payload[i] = byte(i)
	}
	src := &sliceSource{data: payload, bpeu: bpeu}

	stream := NewBodyStream(1, src, IdxCBRInHeader, WrapClip, 1)
	stream.Index = NewCBRIndexTable(1, 1, Rational{48000, 1}, bpeu, []DeltaEntry{{}})

	bw := NewBodyWriter(ctx, SharingPolicy{AllowIndexWithMetadata: true, AllowEssenceWithMetadata: true})
	bw.AddStream(stream)

	mem := NewMemoryFile()
	primer := NewPrimer()
	objects := buildTestGraph(ctx)

	pos, err := bw.WriteHeader(mem, 0, testOPUL, []UL{testECUL}, objects, primer)
	if err != nil {
		t.Fatalf("WriteHeader failed, reason: %v", err)
	}
	pos, err = bw.WritePartition(mem, pos, 0, 0)
	if err != nil {
		t.Fatalf("WritePartition failed, reason: %v", err)
	}
	if stream.Phase() != PhaseDone {
		t.Fatalf("stream phase = %d after clip write", stream.Phase())
	}
	if _, err = bw.WriteFooter(mem, pos, testOPUL, []UL{testECUL}); err != nil {
		t.Fatalf("WriteFooter failed, reason: %v", err)
	}

	parsed, err := Parse(mem, mem.Len(), ctx, nil)
	if err != nil {
		t.Fatalf("Parse failed, reason: %v", err)
	}

	if len(parsed.Partitions) != 3 {
		t.Fatalf("parsed %d partitions, want 3", len(parsed.Partitions))
	}
	if !parsed.Partitions[0].Pack.Kind.Header || !parsed.Partitions[2].Pack.Kind.Footer {
		t.Error("partition kinds wrong")
	}
	if parsed.Partitions[1].Pack.BodySID != 1 {
		t.Errorf("body partition SID = %d", parsed.Partitions[1].Pack.BodySID)
	}

	table, ok := parsed.Index.Table(1)
	if !ok {
		t.Fatal("index table missing after parse")
	}
	loc, exact, _, err := table.Lookup(100, 0, false)
	if err != nil || !exact {
		t.Fatalf("Lookup failed: exact=%v, %v", exact, err)
	}
	if loc != 100*bpeu {
		t.Errorf("lookup(100) = %d, want %d", loc, 100*bpeu)
	}

	if len(parsed.RIP.Entries) != 3 {
		t.Errorf("RIP entries = %v", parsed.RIP.Entries)
	}

	// The metadata graph survived: the preface resolves its storage.
	preface := parsed.Graph.Targets[uidOf(0x01)]
	if preface == nil || preface.Links["ContentStorage"] == nil {
		t.Error("metadata graph did not survive the round trip")
	}
}

// The whole clip must land in one KLV whose BER length is 4 bytes wide.
func TestClipWrapSingleKLV(t *testing.T) {
	const bpeu = 4
	payload := bytes.Repeat([]byte{0xEE}, 100*bpeu)
	src := &sliceSource{data: payload, bpeu: bpeu}

	stream := NewBodyStream(2, src, 0, WrapClip, 1)
	bw := NewBodyWriter(DefaultContext(), SharingPolicy{})
	bw.AddStream(stream)

	mem := NewMemoryFile()
	pos, err := bw.WritePartition(mem, 0, 0, 0)
	if err != nil {
		t.Fatalf("WritePartition failed, reason: %v", err)
	}
	_ = pos

	cursor := NewCursor(mem, 0)
	packKLV, err := cursor.Next()
	if err != nil {
		t.Fatalf("Next failed, reason: %v", err)
	}
	if _, ok := KindFromKey(packKLV.Key); !ok {
		t.Fatal("first KLV is not a partition pack")
	}
	clip, err := cursor.Next()
	if err != nil {
		t.Fatalf("Next failed, reason: %v", err)
	}
	if clip.Length != uint64(len(payload)) {
		t.Errorf("clip KLV length = %d, want %d", clip.Length, len(payload))
	}
	if clip.LengthSize != 4 {
		t.Errorf("clip BER size = %d, want 4", clip.LengthSize)
	}
	if stream.editUnit != 100 {
		t.Errorf("edit units accounted = %d", stream.editUnit)
	}
}

func TestClipWrapForcedBER4TooSmall(t *testing.T) {
	big := make([]byte, 0x1000000+4) // five bytes past the 4-byte BER ceiling
	src := &sliceSource{data: big, bpeu: 4}

	stream := NewBodyStream(1, src, 0, WrapClip, 1)
	stream.ForceBER4 = true
	bw := NewBodyWriter(DefaultContext(), SharingPolicy{})
	bw.AddStream(stream)

	_, err := bw.WritePartition(NewMemoryFile(), 0, 0, 0)
	if !errors.Is(err, ErrBerSizeTooSmall) {
		t.Errorf("oversize forced clip error = %v, want ErrBerSizeTooSmall", err)
	}
}

// Two streams multiplex partition by partition in insertion order, each
// under its own BodySID.
func TestMultiStreamMux(t *testing.T) {
	ctx := DefaultContext()

	video := &sliceSource{data: make([]byte, 10*100), bpeu: 100}
	audio := &sliceSource{data: make([]byte, 40*8), bpeu: 8}

	vs := NewBodyStream(1, video, IdxVBRFullFooter, WrapFrame, 1)
	vs.Index = NewVBRIndexTable(1, 1, Rational{25, 1}, 0, 0)
	vs.Index.Delta = []DeltaEntry{{}}
	as := NewBodyStream(2, audio, 0, WrapClip, 1)
	as.EditAlign = true

	bw := NewBodyWriter(ctx, SharingPolicy{AllowIndexWithMetadata: true, AllowEssenceWithMetadata: true})
	bw.AddStream(vs)
	bw.AddStream(as)

	mem := NewMemoryFile()
	pos, err := bw.WriteHeader(mem, 0, testOPUL, []UL{testECUL}, buildTestGraph(ctx), NewPrimer())
	if err != nil {
		t.Fatalf("WriteHeader failed, reason: %v", err)
	}
	for i := 0; i < 8; i++ {
		if vs.Phase() == PhaseDone && as.Phase() == PhaseDone {
			break
		}
		pos, err = bw.WritePartition(mem, pos, 5, 0)
		if err != nil {
			t.Fatalf("WritePartition %d failed, reason: %v", i, err)
		}
	}
	pos, err = bw.WriteFooter(mem, pos, testOPUL, []UL{testECUL})
	if err != nil {
		t.Fatalf("WriteFooter failed, reason: %v", err)
	}

	parsed, err := Parse(mem, mem.Len(), ctx, nil)
	if err != nil {
		t.Fatalf("Parse failed, reason: %v", err)
	}

	sids := map[uint32]int{}
	for _, p := range parsed.Partitions {
		sids[p.Pack.BodySID]++
	}
	if sids[1] == 0 || sids[2] == 0 {
		t.Errorf("partition SIDs = %v, want both streams present", sids)
	}

	// The full-footer VBR index for the video stream is in the footer.
	table, ok := parsed.Index.Table(1)
	if !ok {
		t.Fatal("video index table missing")
	}
	if table.IsCBR() {
		t.Error("video index should be VBR")
	}
	if table.Duration() != 10 {
		t.Errorf("video index entries = %d, want 10", table.Duration())
	}
}

func TestPreChargeAlignment(t *testing.T) {
	a := NewBodyStream(1, nil, 0, WrapFrame, 1)
	a.PreCharge = 2
	b := NewBodyStream(2, nil, 0, WrapFrame, 1)
	b.PreCharge = 0

	bw := NewBodyWriter(DefaultContext(), SharingPolicy{})
	bw.AddStream(a)
	bw.AddStream(b)

	if got := bw.AlignPreCharge(); got != 2 {
		t.Errorf("AlignPreCharge = %d", got)
	}
	if a.PreCharge != 2 || b.PreCharge != 2 {
		t.Errorf("pre-charges = %d, %d; want both 2", a.PreCharge, b.PreCharge)
	}
}

// Negative edit units flow into the VBR index when a stream declares
// pre-charge.
func TestPreChargeNegativeIndexing(t *testing.T) {
	src := &sliceSource{data: make([]byte, 5*10), bpeu: 10}
	s := NewBodyStream(1, src, IdxVBRFullFooter, WrapFrame, 1)
	s.PreCharge = 2
	s.Index = NewVBRIndexTable(1, 1, Rational{25, 1}, 0, 0)
	s.Index.Delta = []DeltaEntry{{}}

	bw := NewBodyWriter(DefaultContext(), SharingPolicy{})
	bw.AddStream(s)
	s.Advance(false) // into body without a header partition

	mem := NewMemoryFile()
	if _, err := bw.WritePartition(mem, 0, 0, 0); err != nil {
		t.Fatalf("WritePartition failed, reason: %v", err)
	}

	units := s.Index.sortedEditUnits()
	if len(units) != 5 || units[0] != -2 || units[4] != 2 {
		t.Errorf("indexed edit units = %v, want [-2..2]", units)
	}
}

// A sprinkled VBR index is distributed one segment per partition: each
// body partition after the first carries the segment for its
// predecessor, and the footer carries the remainder. The parser must
// merge the segments back into one full table.
func TestSprinkledIndexRoundTrip(t *testing.T) {
	ctx := DefaultContext()
	src := &sliceSource{data: make([]byte, 10*50), bpeu: 50}

	s := NewBodyStream(1, src, IdxVBRSprinkled, WrapFrame, 1)
	s.Index = NewVBRIndexTable(1, 1, Rational{25, 1}, 0, 0)
	s.Index.Delta = []DeltaEntry{{}}

	bw := NewBodyWriter(ctx, SharingPolicy{AllowIndexWithMetadata: true, AllowEssenceWithMetadata: true})
	bw.AddStream(s)

	mem := NewMemoryFile()
	pos, err := bw.WriteHeader(mem, 0, testOPUL, []UL{testECUL}, buildTestGraph(ctx), NewPrimer())
	if err != nil {
		t.Fatalf("WriteHeader failed, reason: %v", err)
	}
	for s.Phase() != PhaseDone {
		pos, err = bw.WritePartition(mem, pos, 5, 0)
		if err != nil {
			t.Fatalf("WritePartition failed, reason: %v", err)
		}
	}
	if _, err := bw.WriteFooter(mem, pos, testOPUL, []UL{testECUL}); err != nil {
		t.Fatalf("WriteFooter failed, reason: %v", err)
	}

	parsed, err := Parse(mem, mem.Len(), ctx, nil)
	if err != nil {
		t.Fatalf("Parse failed, reason: %v", err)
	}

	// At least one mid-file partition must carry a sprinkled segment.
	sprinkled := 0
	for _, p := range parsed.Partitions {
		if p.Pack.Kind.Body && len(p.Segments) > 0 {
			sprinkled++
			if p.Pack.IndexByteCount == 0 {
				t.Error("sprinkled partition does not declare IndexByteCount")
			}
		}
	}
	if sprinkled == 0 {
		t.Fatal("no body partition carries a sprinkled segment")
	}

	table, ok := parsed.Index.Table(1)
	if !ok {
		t.Fatal("index table missing")
	}
	if table.Duration() != 10 {
		t.Errorf("merged sprinkled table has %d entries, want 10", table.Duration())
	}
	for eu := int64(0); eu < 10; eu++ {
		if _, exact, _, err := table.Lookup(eu, 0, false); err != nil || !exact {
			t.Errorf("merged lookup(%d): exact=%v, %v", eu, exact, err)
		}
	}
}

func TestSparseFooterTable(t *testing.T) {
	table := NewVBRIndexTable(1, 1, Rational{25, 1}, 0, 0)
	table.Delta = []DeltaEntry{{}}
	for eu := int64(0); eu < 10; eu++ {
		table.Append(eu, IndexEntry{StreamOffset: uint64(eu) * 100})
	}

	sparse := sparseFooterTable(table, []int64{0, 4, 8})
	if sparse.Duration() != 3 {
		t.Fatalf("sparse entries = %d, want 3", sparse.Duration())
	}
	for _, eu := range []int64{0, 4, 8} {
		loc, exact, _, err := sparse.Lookup(eu, 0, false)
		if err != nil || !exact || loc != uint64(eu)*100 {
			t.Errorf("sparse lookup(%d) = %d, exact=%v, %v", eu, loc, exact, err)
		}
	}
}
