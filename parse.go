// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ParsedPartition is one partition as encountered by Parse: the pack
// itself, its absolute file offset, the primer it declared (nil when the
// partition carries no metadata), and the index segments found in it.
type ParsedPartition struct {
	Offset   int64
	Pack     *Partition
	Primer   *Primer
	Segments []*IndexTable
}

// ParsedFile is the result of parsing a whole file: every partition in
// file order, the header metadata graph with references resolved across
// all partitions, the merged index manager, the RIP (acquired by the
// first strategy in Options.RIPOrder that succeeds, or rebuilt), and the
// run-in length.
type ParsedFile struct {
	RunIn      int64
	Partitions []*ParsedPartition
	Graph      *Graph
	Index      *Manager
	RIP        *RIP
}

// HeaderPartition returns the first header-kind partition, or nil.
func (pf *ParsedFile) HeaderPartition() *ParsedPartition {
	for _, p := range pf.Partitions {
		if p.Pack.Kind.Header {
			return p
		}
	}
	return nil
}

// Parse reads the entire structure of an MXF stream: run-in, every
// partition pack, primers, header metadata sets (resolved into one Graph
// spanning the whole file), index segments, and the RIP. Essence KLVs are
// skipped by BER length; their bytes stay on disk for the BodyReader.
// The context is frozen on entry.
func Parse(s Stream, size int64, ctx *Context, opts *Options) (*ParsedFile, error) {
	o := opts.withDefaults()
	ctx.Freeze()

	runIn, err := findRunIn(s, o.RunInLimit)
	if err != nil {
		return nil, err
	}

	pf := &ParsedFile{
		RunIn: runIn,
		Graph: NewGraph(ctx),
		Index: NewManager(),
	}

	cursor := NewCursor(s, runIn)
	var current *ParsedPartition
	var metadataLeft int64 // bytes of header metadata still expected in current partition

	for cursor.Pos() < size {
		startPos := cursor.Pos()
		klv, err := cursor.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parse: at %d: %w", startPos, err)
		}
		if klv.ValuePos > size || klv.Length > uint64(size-klv.ValuePos) {
			return nil, fmt.Errorf("parse: KLV at %d claims %d bytes past end of file: %w",
				startPos, klv.Length, ErrShortRead)
		}

		switch {
		case isPartitionKey(klv.Key):
			value, err := ReadValue(s, klv)
			if err != nil {
				return nil, err
			}
			pack, err := DecodePartition(klv.Key, value)
			if err != nil {
				return nil, fmt.Errorf("parse: partition at %d: %w", startPos, err)
			}
			current = &ParsedPartition{Offset: startPos, Pack: pack}
			pf.Partitions = append(pf.Partitions, current)
			metadataLeft = int64(pack.HeaderByteCount)

		case klv.Key.Equal(ripKey, true):
			// The trailing RIP; strategy-based acquisition below re-reads
			// it with its own validation.

		case klv.Key.Equal(FillerKey, true):
			if metadataLeft > 0 {
				metadataLeft -= klv.End() - startPos
			}

		case klv.Key.Equal(primerKey, true):
			value, err := ReadValue(s, klv)
			if err != nil {
				return nil, err
			}
			primer, err := DecodePrimer(value)
			if err != nil {
				return nil, fmt.Errorf("parse: primer at %d: %w", startPos, err)
			}
			if current != nil {
				current.Primer = primer
			}
			if metadataLeft > 0 {
				metadataLeft -= klv.End() - startPos
			}

		case klv.Key.Equal(indexSegmentKey, true):
			value, err := ReadValue(s, klv)
			if err != nil {
				return nil, err
			}
			seg, err := DecodeIndexSegment(value)
			if err != nil {
				return nil, fmt.Errorf("parse: index segment at %d: %w", startPos, err)
			}
			if current != nil {
				current.Segments = append(current.Segments, seg)
			}
			mergeSegment(pf.Index, seg)

		case metadataLeft > 0:
			value, err := ReadValue(s, klv)
			if err != nil {
				return nil, err
			}
			if err := addMetadataSet(ctx, pf.Graph, current, klv, value, startPos); err != nil {
				return nil, err
			}
			metadataLeft -= klv.End() - startPos

		default:
			// Essence (or unknown body data): skip by the declared length.
		}
		cursor.Seek(klv.End())
	}

	pf.RIP = acquireRIP(s, size, pf, o)

	if unresolved := pf.Graph.UnresolvedWeakRefs(); len(unresolved) > 0 && ctx.Logger != nil {
		ctx.Logger.Warnf("parse: %d unresolved weak references", len(unresolved))
	}
	return pf, nil
}

// OpenBytes parses an in-memory MXF image, the byte-slice analogue of
// opening a file and calling Parse.
func OpenBytes(data []byte, ctx *Context, opts *Options) (*ParsedFile, error) {
	return Parse(bytes.NewReader(data), int64(len(data)), ctx, opts)
}

// ParseFile opens name read-only and parses it.
func ParseFile(name string, ctx *Context, opts *Options) (*ParsedFile, error) {
	f, err := Open(name, opts)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, f.Size(), ctx, opts)
}

func isPartitionKey(key UL) bool {
	_, ok := KindFromKey(key)
	return ok
}

// addMetadataSet decodes one top-level metadata KLV into the shared graph,
// preserving unknown keys as dark objects.
func addMetadataSet(ctx *Context, g *Graph, part *ParsedPartition, klv KLV, value []byte, pos int64) error {
	class, err := ctx.FindClassByUL(klv.Key)
	if err != nil {
		obj := NewObject(nil)
		obj.Dark = true
		obj.RawKey = klv.Key
		obj.RawValue = append([]byte(nil), value...)
		obj.Location = pos
		return g.AddObject(obj)
	}
	var primer *Primer
	if part != nil && part.Primer != nil {
		primer = part.Primer
	} else {
		primer = NewPrimer()
	}
	obj, err := ParseObject(ctx, class, value, primer, pos)
	if err != nil {
		return fmt.Errorf("parse: %s at %d: %w", class.Name, pos, err)
	}
	return g.AddObject(obj)
}

// mergeSegment folds one decoded index segment into the manager: segments
// sharing an IndexSID extend one table (the sprinkled-index case), others
// register a new table.
func mergeSegment(m *Manager, seg *IndexTable) {
	existing, ok := m.Table(seg.IndexSID)
	if !ok {
		m.Add(seg)
		return
	}
	if seg.IsCBR() || existing.IsCBR() {
		// CBR tables are self-contained; the last one read wins.
		m.Add(seg)
		return
	}
	for eu, e := range seg.entries {
		existing.entries[eu] = e
	}
}

// acquireRIP tries each configured strategy in order, falling back to the
// partitions Parse itself observed when none succeeds.
func acquireRIP(s Stream, size int64, pf *ParsedFile, o *Options) *RIP {
	var header *Partition
	if hp := pf.HeaderPartition(); hp != nil {
		header = hp.Pack
	}
	for _, strategy := range o.RIPOrder {
		var rip *RIP
		var err error
		switch strategy {
		case "read":
			rip, err = ReadRIP(s, size)
		case "scan":
			rip, err = ScanRIP(s, size, header)
		case "build":
			rip, err = BuildRIP(s, size, o.Version10HeaderByteCount)
		default:
			continue
		}
		if err == nil && rip != nil && len(rip.Entries) > 0 {
			return rip
		}
	}
	rip := NewRIP()
	for _, p := range pf.Partitions {
		rip.AddPartition(p.Pack.BodySID, uint64(p.Offset))
	}
	return rip
}
