// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import (
	"fmt"
	"io"
)

// IndexPolicy is the set of index-placement flags a BodyStream is
// configured with (ST 377-1): where a CBR or VBR index table may
// appear relative to the essence it describes.
type IndexPolicy uint16

const (
	IdxCBRInHeader IndexPolicy = 1 << iota
	IdxCBRInHeaderIsolated
	IdxCBRPreBody
	IdxCBRInBody
	IdxCBRIsolated
	IdxCBRFooter
	IdxCBRFooterIsolated
	IdxVBRSprinkled
	IdxVBRSprinkledIsolated
	IdxVBRSparseFooter
	IdxVBRFullFooter
)

// WrapType is the essence wrapping style a BodyStream uses.
type WrapType int

const (
	WrapFrame WrapType = iota
	WrapClip
	WrapOther
)

// Phase is a BodyStream's position in the per-stream index/body state
// machine (ST 377-1 "State machine"):
//
//	Start -> HeadIndex? -> PreBodyIndex? -> (BodyWithIndex | BodyNoIndex)+ ->
//	PostBodyIndex? -> ... -> FootIndex? -> Done.
type Phase int

const (
	PhaseStart Phase = iota
	PhaseHeadIndex
	PhasePreBodyIndex
	PhaseBody
	PhasePostBodyIndex
	PhaseFootIndex
	PhaseDone
)

// BodyStream aggregates one primary EssenceSource and its sub-streams
// under a shared BodySID, plus the index policy, wrap type, and KAG that
// govern how the body writer schedules it (ST 377-1 "Streams").
type BodyStream struct {
	BodySID    uint32
	Primary    EssenceSource
	SubStreams []EssenceSource
	Policy     IndexPolicy
	Wrap       WrapType
	KAG        uint32
	ForceBER4  bool
	EditAlign  bool

	// StopAfter caps the edit units this stream will ever write; 0 means
	// "until the source is exhausted".
	StopAfter int

	// PreCharge is this stream's leading-frame count, indexed at
	// negative edit units (ST 377-1).
	PreCharge int

	GC    *Writer
	Index *IndexTable

	phase           Phase
	editUnit        int64
	exhausted       bool
	partStarts      []int64 // first indexed edit unit of each body partition
	sprinkledUpTo   int64   // first edit unit not yet covered by a sprinkled segment
	sprinkleStarted bool
}

// NewBodyStream creates a stream bound to bodySID, starting in PhaseStart.
func NewBodyStream(bodySID uint32, primary EssenceSource, policy IndexPolicy, wrap WrapType, kag uint32) *BodyStream {
	return &BodyStream{BodySID: bodySID, Primary: primary, Policy: policy, Wrap: wrap, KAG: kag, phase: PhaseStart}
}

// Phase reports the stream's current state.
func (s *BodyStream) Phase() Phase { return s.phase }

// hasHeadIndex reports whether this stream's policy places a CBR or VBR
// index segment in the header partition.
func (s *BodyStream) hasHeadIndex() bool {
	return s.Policy&(IdxCBRInHeader|IdxCBRInHeaderIsolated) != 0
}

func (s *BodyStream) hasPreBodyIndex() bool {
	return s.Policy&IdxCBRPreBody != 0
}

func (s *BodyStream) hasFootIndex() bool {
	return s.Policy&(IdxCBRFooter|IdxCBRFooterIsolated|IdxVBRSparseFooter|IdxVBRFullFooter) != 0
}

func (s *BodyStream) sprinkles() bool {
	return s.Policy&(IdxVBRSprinkled|IdxVBRSprinkledIsolated) != 0
}

// Advance computes the next phase given whether essence is exhausted.
// The state function is deterministic and idempotent per call: a stream
// declared as CBR-in-header moves Start -> HeadIndex -> (body states)
// and skips the pre-body isolated state, and end-of-essence forces the
// earliest compatible transition to Done via any required footer-index
// states.
func (s *BodyStream) Advance(endOfEssence bool) Phase {
	switch s.phase {
	case PhaseStart:
		switch {
		case s.hasHeadIndex():
			s.phase = PhaseHeadIndex
		case s.hasPreBodyIndex():
			s.phase = PhasePreBodyIndex
		default:
			s.phase = PhaseBody
		}
	case PhaseHeadIndex:
		switch {
		case endOfEssence && s.hasFootIndex():
			s.phase = PhaseFootIndex
		case endOfEssence:
			s.phase = PhaseDone
		case s.hasPreBodyIndex():
			s.phase = PhasePreBodyIndex
		default:
			s.phase = PhaseBody
		}
	case PhasePreBodyIndex:
		switch {
		case endOfEssence && s.hasFootIndex():
			s.phase = PhaseFootIndex
		case endOfEssence:
			s.phase = PhaseDone
		default:
			s.phase = PhaseBody
		}
	case PhaseBody:
		if endOfEssence {
			if s.hasFootIndex() {
				s.phase = PhaseFootIndex
			} else {
				s.phase = PhaseDone
			}
		}
		// else: stays in PhaseBody, writing further content packages.
	case PhasePostBodyIndex:
		if endOfEssence {
			if s.hasFootIndex() {
				s.phase = PhaseFootIndex
			} else {
				s.phase = PhaseDone
			}
		} else {
			s.phase = PhaseBody
		}
	case PhaseFootIndex:
		s.phase = PhaseDone
	}
	return s.phase
}

// SharingPolicy configures whether index data or essence may share a
// partition with header metadata (ST 377-1).
type SharingPolicy struct {
	AllowIndexWithMetadata   bool
	AllowEssenceWithMetadata bool
}

// BodyWriter is the multi-stream muxer (ST 377-1 "Scheduler"): it
// owns every BodyStream sharing one file, visits them in insertion order
// skipping streams in a non-matching phase, and writes partitions one
// stream at a time.
type BodyWriter struct {
	ctx     *Context
	Streams []*BodyStream
	Sharing SharingPolicy
	RIP     *RIP
	cursor  int
}

// NewBodyWriter creates an empty multi-stream writer.
func NewBodyWriter(ctx *Context, sharing SharingPolicy) *BodyWriter {
	return &BodyWriter{ctx: ctx, Sharing: sharing, RIP: NewRIP()}
}

// AddStream registers a stream with the writer, in the order streams will
// be visited (ST 377-1).
func (bw *BodyWriter) AddStream(s *BodyStream) { bw.Streams = append(bw.Streams, s) }

// WriteHeader writes the header partition pack, primer, and header
// metadata object graph rooted at the given objects, then appends any
// head-index segments required by streams whose policy asks for one
// (ST 377-1).
func (bw *BodyWriter) WriteHeader(w io.Writer, pos int64, opUL UL, ecULs []UL, objects []*Object, primer *Primer) (int64, error) {
	metadata, err := WriteHeaderMetadata(bw.ctx, primer, objects)
	if err != nil {
		return pos, err
	}
	primerBody := primer.EncodePrimer()
	primerKLV := klvBytes(PrimerKey(), primerBody)
	headerByteCount := int64(len(primerKLV) + len(metadata))

	// Head-index segments share the header partition only when both the
	// policy and the sharing rules permit; otherwise each goes into its
	// own index-only partition right after the header.
	var segments []byte
	var indexSID uint32
	var isolated []*BodyStream
	for _, s := range bw.Streams {
		if !s.hasHeadIndex() || s.Index == nil {
			continue
		}
		if s.Policy&IdxCBRInHeaderIsolated != 0 || !bw.Sharing.AllowIndexWithMetadata {
			isolated = append(isolated, s)
			continue
		}
		segBody := EncodeIndexSegment(s.Index)
		segments = append(segments, klvBytes(IndexSegmentKey(), segBody)...)
		if indexSID == 0 {
			indexSID = s.Index.IndexSID
		}
	}

	part := NewPartition(PartitionKind{Header: true, Open: true, Complete: true})
	part.KAGSize = maxKAG(bw.Streams)
	part.OperationalPattern = opUL
	part.EssenceContainers = ecULs
	part.HeaderByteCount = uint64(headerByteCount)
	part.IndexByteCount = uint64(len(segments))
	part.IndexSID = indexSID
	part.WriteAt(uint64(pos), bw.RIP)

	partBody := part.Encode()
	partKLV := klvBytes(PartitionKey(part.Kind), partBody)
	bw.RIP.AddPartition(0, uint64(pos))

	newPos := pos
	if _, err := w.Write(partKLV); err != nil {
		return pos, err
	}
	newPos += int64(len(partKLV))
	if _, err := w.Write(primerKLV); err != nil {
		return pos, err
	}
	newPos += int64(len(primerKLV))
	if _, err := w.Write(metadata); err != nil {
		return pos, err
	}
	newPos += int64(len(metadata))
	if len(segments) > 0 {
		if _, err := w.Write(segments); err != nil {
			return pos, err
		}
		newPos += int64(len(segments))
	}

	for _, s := range isolated {
		seg := klvBytes(IndexSegmentKey(), EncodeIndexSegment(s.Index))
		var err error
		newPos, err = bw.writeIndexPartition(w, newPos, s, seg)
		if err != nil {
			return pos, err
		}
	}

	for _, s := range bw.Streams {
		if s.Advance(false) == PhaseHeadIndex {
			// The head index segment was just written above; move on.
			s.Advance(false)
		}
	}
	return newPos, nil
}

// WritePartition writes one partition for the next stream whose phase
// permits writing (ST 377-1). Duration limits how many edit
// units are written (0 = writer's own StopAfter/exhaustion only);
// maxPartitionSize is advisory: it is checked at each edit-unit boundary,
// so a partition may exceed it to finish the edit unit in progress.
func (bw *BodyWriter) WritePartition(w io.Writer, pos int64, duration int, maxPartitionSize int64) (int64, error) {
	if len(bw.Streams) == 0 {
		return pos, fmt.Errorf("bodywriter: no streams registered")
	}
	var s *BodyStream
	for i := 0; i < len(bw.Streams); i++ {
		cand := bw.Streams[(bw.cursor+i)%len(bw.Streams)]
		if cand.phase != PhaseDone {
			s = cand
			bw.cursor = (bw.cursor + i + 1) % len(bw.Streams)
			break
		}
	}
	if s == nil {
		return pos, fmt.Errorf("bodywriter: all streams done")
	}

	kind := PartitionKind{Body: true, Open: true, Complete: true}
	if !bw.Sharing.AllowEssenceWithMetadata && s.phase == PhaseHeadIndex {
		return pos, fmt.Errorf("bodywriter: %w", ErrPolicyViolation)
	}

	// A sprinkled VBR stream carries the segment describing the edit
	// units of its previous partitions, so the segment size is known
	// before any of this partition's essence is written. The isolated
	// flavour puts that segment in its own index-only partition first.
	seg := s.pendingSprinkledSegment()
	newPos := pos
	if seg != nil && s.Policy&IdxVBRSprinkledIsolated != 0 {
		var err error
		newPos, err = bw.writeIndexPartition(w, newPos, s, seg)
		if err != nil {
			return pos, err
		}
		seg = nil
	}

	part := NewPartition(kind)
	part.KAGSize = s.KAG
	part.BodySID = s.BodySID
	if seg != nil {
		part.IndexByteCount = uint64(len(seg))
		part.IndexSID = s.Index.IndexSID
	}
	part.WriteAt(uint64(newPos), bw.RIP)
	partKLV := klvBytes(PartitionKey(kind), part.Encode())
	bw.RIP.AddPartition(s.BodySID, uint64(newPos))

	if _, err := w.Write(partKLV); err != nil {
		return pos, err
	}
	newPos += int64(len(partKLV))
	if seg != nil {
		if _, err := w.Write(seg); err != nil {
			return pos, err
		}
		newPos += int64(len(seg))
	}

	s.partStarts = append(s.partStarts, s.editUnit-int64(s.PreCharge))
	newPos, err := bw.writeContentPackages(w, s, newPos, duration, maxPartitionSize)
	if err != nil {
		return pos, err
	}

	endOfEssence := s.exhausted || (s.StopAfter > 0 && s.editUnit >= int64(s.StopAfter))
	s.Advance(endOfEssence)
	return newPos, nil
}

// pendingSprinkledSegment returns the encoded index-segment KLV covering
// every edit unit committed since the last sprinkle, or nil when the
// stream doesn't sprinkle or has nothing new to report.
func (s *BodyStream) pendingSprinkledSegment() []byte {
	if !s.sprinkles() || s.Index == nil || s.Index.IsCBR() {
		return nil
	}
	from := s.sprinkledUpTo
	if !s.sprinkleStarted {
		from = -int64(s.PreCharge)
	}
	to := s.editUnit - int64(s.PreCharge)
	sub := subIndexTable(s.Index, from, to)
	if sub.Duration() == 0 {
		return nil
	}
	s.sprinkleStarted = true
	s.sprinkledUpTo = to
	return klvBytes(IndexSegmentKey(), EncodeIndexSegment(sub))
}

// writeIndexPartition emits an index-only body partition: a partition
// pack carrying the segment's byte count and no essence.
func (bw *BodyWriter) writeIndexPartition(w io.Writer, pos int64, s *BodyStream, seg []byte) (int64, error) {
	part := NewPartition(PartitionKind{Body: true, Complete: true})
	part.KAGSize = s.KAG
	part.IndexByteCount = uint64(len(seg))
	if s.Index != nil {
		part.IndexSID = s.Index.IndexSID
	}
	part.WriteAt(uint64(pos), bw.RIP)
	bw.RIP.AddPartition(0, uint64(pos))

	partKLV := klvBytes(PartitionKey(part.Kind), part.Encode())
	if _, err := w.Write(partKLV); err != nil {
		return pos, err
	}
	if _, err := w.Write(seg); err != nil {
		return pos, err
	}
	return pos + int64(len(partKLV)) + int64(len(seg)), nil
}

// subIndexTable clones the VBR entries of t in [from, to).
func subIndexTable(t *IndexTable, from, to int64) *IndexTable {
	sub := NewVBRIndexTable(t.IndexSID, t.BodySID, t.EditRate, t.SliceCount, t.PosTableCount)
	sub.Delta = t.Delta
	for eu, e := range t.entries {
		if eu >= from && eu < to {
			sub.entries[eu] = e
		}
	}
	return sub
}

// gcItemType derives a stream's GC item type from its wrapping when the
// caller didn't pick one: frame wrapping defaults to picture essence,
// clip wrapping to sound, anything else to data.
func (s *BodyStream) gcItemType() StreamItemType {
	switch s.Wrap {
	case WrapClip:
		return ItemTypeSound
	case WrapOther:
		return ItemTypeData
	default:
		return ItemTypePicture
	}
}

// writeContentPackages pulls edit units from s.Primary (and its
// sub-streams) through s.GC until duration edit units have been written,
// StopAfter is reached, maxPartitionSize is reached (checked at each
// edit-unit boundary, so the last edit unit may overshoot it), or the
// source is exhausted. Clip-wrapped streams
// instead run to exhaustion as a single KLV.
func (bw *BodyWriter) writeContentPackages(w io.Writer, s *BodyStream, pos int64, duration int, maxPartitionSize int64) (int64, error) {
	if s.GC == nil {
		s.GC = NewWriter(s.BodySID, s.KAG)
	}
	if s.Wrap == WrapClip {
		return bw.writeClip(w, s, pos)
	}
	start := pos
	count := 0
	for {
		if duration > 0 && count >= duration {
			break
		}
		if s.StopAfter > 0 && s.editUnit >= int64(s.StopAfter) {
			break
		}
		if maxPartitionSize > 0 && pos-start >= maxPartitionSize {
			break
		}

		edit, err := s.Primary.GetEssenceData(1)
		if err == io.EOF || len(edit) == 0 {
			s.exhausted = true
			break
		}
		if err != nil {
			return pos, err
		}

		if s.GC.streams[0] == nil {
			stream := s.GC.AddEssenceStream(s.gcItemType(), 1, 0, true)
			if s.ForceBER4 {
				stream.ForcedBERSize = 4
			}
		}
		if err := s.GC.QueueValue(0, edit); err != nil {
			return pos, err
		}
		newPos, err := s.GC.Flush(w, pos)
		if err != nil {
			return pos, err
		}
		if s.Index != nil {
			offset := uint64(pos - start)
			if s.Index.IsCBR() {
				// CBR tables derive offsets arithmetically; nothing to append.
			} else {
				s.Index.Append(s.editUnit-int64(s.PreCharge), IndexEntry{StreamOffset: offset})
			}
		}
		pos = newPos
		s.editUnit++
		count++
	}
	return pos, nil
}

// writeClip drains the whole essence source into one KLV. The length is
// written as a 4-byte BER when it fits, falling back to 8 bytes when it
// doesn't; a stream that forces 4-byte BER fails with ErrBerSizeTooSmall
// instead of truncating.
func (bw *BodyWriter) writeClip(w io.Writer, s *BodyStream, pos int64) (int64, error) {
	if s.GC.streams[0] == nil {
		s.GC.AddEssenceStream(s.gcItemType(), 1, 0, true)
	}
	key := s.GC.streams[0].Key()

	var all []byte
	for {
		chunk, err := s.Primary.GetEssenceData(1 << 16)
		all = append(all, chunk...)
		if err == io.EOF || len(chunk) == 0 {
			break
		}
		if err != nil {
			return pos, err
		}
	}
	s.exhausted = true

	berSize := 4
	if uint64(len(all)) > 0xFFFFFF {
		if s.ForceBER4 {
			return pos, fmt.Errorf("bodywriter: clip of %d bytes: %w", len(all), ErrBerSizeTooSmall)
		}
		berSize = 8
	}
	n, err := WriteKLV(w, key, all, berSize)
	if err != nil {
		return pos, err
	}

	if bpeu := s.Primary.BytesPerEditUnit(); bpeu > 0 {
		s.editUnit += int64(uint64(len(all)) / bpeu)
	} else {
		s.editUnit++
	}
	return pos + int64(n), nil
}

// AlignPreCharge levels pre-charge across every registered stream by
// setting each stream's PreCharge to the longest one, so the first
// indexed edit unit for all of them becomes -max. It writes no padding
// essence: a stream with a shorter pre-charge has its own first edit
// units indexed from -max. Returns the shared pre-charge.
func (bw *BodyWriter) AlignPreCharge() int {
	max := 0
	for _, s := range bw.Streams {
		if s.PreCharge > max {
			max = s.PreCharge
		}
	}
	for _, s := range bw.Streams {
		s.PreCharge = max
	}
	return max
}

// WriteFooter closes the file: it writes the footer partition pack,
// whatever footer index segments stream policies require (sparse footers
// carry only the first entry of each body partition, full footers the
// whole table), and finally the Random Index Pack. Every stream is
// advanced through its footer-index phase to Done.
func (bw *BodyWriter) WriteFooter(w io.Writer, pos int64, opUL UL, ecULs []UL) (int64, error) {
	var segments []byte
	var indexSID uint32
	for _, s := range bw.Streams {
		if s.Index == nil {
			continue
		}
		// A sprinkled stream still owes the segment for its final
		// partition's edit units.
		if seg := s.pendingSprinkledSegment(); seg != nil {
			segments = append(segments, seg...)
			if indexSID == 0 {
				indexSID = s.Index.IndexSID
			}
		}
		if !s.hasFootIndex() {
			continue
		}
		table := s.Index
		if s.Policy&IdxVBRSparseFooter != 0 && !table.IsCBR() {
			table = sparseFooterTable(table, s.partStarts)
		}
		segBody := EncodeIndexSegment(table)
		segments = append(segments, klvBytes(IndexSegmentKey(), segBody)...)
		if indexSID == 0 {
			indexSID = s.Index.IndexSID
		}
	}

	part := NewPartition(PartitionKind{Footer: true, Complete: true})
	part.KAGSize = maxKAG(bw.Streams)
	part.OperationalPattern = opUL
	part.EssenceContainers = ecULs
	part.IndexByteCount = uint64(len(segments))
	part.IndexSID = indexSID
	part.WriteAt(uint64(pos), bw.RIP)
	bw.RIP.AddPartition(0, uint64(pos))

	partKLV := klvBytes(PartitionKey(part.Kind), part.Encode())
	newPos := pos
	if _, err := w.Write(partKLV); err != nil {
		return pos, err
	}
	newPos += int64(len(partKLV))
	if len(segments) > 0 {
		if _, err := w.Write(segments); err != nil {
			return pos, err
		}
		newPos += int64(len(segments))
	}

	ripValue := bw.RIP.Encode()
	n, err := WriteKLV(w, RIPKey(), ripValue, 0)
	if err != nil {
		return pos, err
	}
	newPos += int64(n)

	for _, s := range bw.Streams {
		for s.phase != PhaseDone {
			s.Advance(true)
		}
	}
	return newPos, nil
}

// sparseFooterTable clones a VBR table down to the first entry of each
// body partition. Emitting only the leading entry per partition keeps the
// sparse footer proportional to the partition count rather than the edit
// unit count.
func sparseFooterTable(t *IndexTable, partStarts []int64) *IndexTable {
	sparse := NewVBRIndexTable(t.IndexSID, t.BodySID, t.EditRate, t.SliceCount, t.PosTableCount)
	sparse.Delta = t.Delta
	for _, start := range partStarts {
		if e, ok := t.entries[start]; ok {
			sparse.entries[start] = e
		}
	}
	return sparse
}

func maxKAG(streams []*BodyStream) uint32 {
	var m uint32 = 1
	for _, s := range streams {
		if s.KAG > m {
			m = s.KAG
		}
	}
	return m
}

func klvBytes(key UL, value []byte) []byte {
	out := make([]byte, 0, 16+9+len(value))
	out = append(out, key[:]...)
	out = append(out, encodeBERShortest(uint64(len(value)))...)
	out = append(out, value...)
	return out
}
