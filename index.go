// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import (
	"fmt"
	"sort"
)

// DeltaEntry is one sub-stream's offset contribution within an edit unit
// (ST 377-1): PosTableIndex of -1 means "apply temporal reordering
// for this sub-stream" on lookup, a positive value selects a rational
// position offset within the edit unit, and 0 means neither.
type DeltaEntry struct {
	PosTableIndex int8
	Slice         uint8
	ElementDelta  uint32
}

// IndexEntry is one VBR edit-unit entry (ST 377-1 "Index table"):
// coded-to-display temporal offset, anchor (key-frame) offset, the
// standard MXF per-entry flag byte, the byte offset of the edit unit
// within the essence stream, and the slice/pos-table arrays used to
// locate individual sub-streams inside it.
type IndexEntry struct {
	TemporalOffset   int8
	KeyFrameOffset   int8
	Flags            byte
	StreamOffset     uint64
	SliceOffsetArray []uint32
	PosTableArray    []Rational

	// provisional marks an entry offered by the writer but not yet
	// committed (ST 377-1 "Append protocol").
	provisional bool
}

// Rational is a simple numerator/denominator pair, used for PosTable
// fractional edit-unit offsets and edit rates.
type Rational struct {
	Numerator   int32
	Denominator int32
}

// IndexTable holds, per IndexSID, everything the index manager needs: edit
// rate, the BodySID it indexes, slice/pos-table counts, the per-sub-stream
// delta array, and either a single CBR byte count or a sorted VBR entry
// map (ST 377-1 "Index table").
type IndexTable struct {
	IndexSID      uint32
	BodySID       uint32
	EditRate      Rational
	SliceCount    int
	PosTableCount int
	Delta         []DeltaEntry

	// CBR
	BytesPerEditUnit uint64 // 0 means VBR

	// VBR
	entries map[int64]*IndexEntry // edit unit -> entry; may include negative (pre-charge) keys
}

// NewCBRIndexTable creates a constant-bytes-per-edit-unit table.
func NewCBRIndexTable(indexSID, bodySID uint32, editRate Rational, bytesPerEditUnit uint64, delta []DeltaEntry) *IndexTable {
	return &IndexTable{
		IndexSID:         indexSID,
		BodySID:          bodySID,
		EditRate:         editRate,
		Delta:            delta,
		BytesPerEditUnit: bytesPerEditUnit,
	}
}

// NewVBRIndexTable creates an empty variable-bytes-per-edit-unit table.
func NewVBRIndexTable(indexSID, bodySID uint32, editRate Rational, sliceCount, posTableCount int) *IndexTable {
	return &IndexTable{
		IndexSID:      indexSID,
		BodySID:       bodySID,
		EditRate:      editRate,
		SliceCount:    sliceCount,
		PosTableCount: posTableCount,
		entries:       make(map[int64]*IndexEntry),
	}
}

// IsCBR reports whether this table uses a constant bytes-per-edit-unit.
func (t *IndexTable) IsCBR() bool { return t.BytesPerEditUnit != 0 }

// Append commits a VBR entry at the given edit unit (which may be negative,
// to represent pre-charge preceding the origin, per ST 377-1). It
// overwrites any provisional entry previously offered for the same edit
// unit and clears the provisional flag. Provisional entries at other edit
// units are left provisional; only AcceptProvisional commits them in place.
func (t *IndexTable) Append(editUnit int64, entry IndexEntry) error {
	if t.IsCBR() {
		return fmt.Errorf("IndexTable.Append: %w", ErrNotCBR)
	}
	entry.provisional = false
	t.entries[editUnit] = &entry
	return nil
}

// OfferProvisional records a not-yet-committed entry for editUnit. A
// provisional entry is visible to Lookup; a later Append for the same edit
// unit replaces it, and AcceptProvisional commits it as it is.
func (t *IndexTable) OfferProvisional(editUnit int64, entry IndexEntry) error {
	if t.IsCBR() {
		return fmt.Errorf("IndexTable.OfferProvisional: %w", ErrNotCBR)
	}
	entry.provisional = true
	t.entries[editUnit] = &entry
	return nil
}

// AcceptProvisional commits whatever entry is currently recorded (if any)
// for editUnit, clearing its provisional flag.
func (t *IndexTable) AcceptProvisional(editUnit int64) {
	if e, ok := t.entries[editUnit]; ok {
		e.provisional = false
	}
}

// sortedEditUnits returns the table's edit units in ascending order.
func (t *IndexTable) sortedEditUnits() []int64 {
	keys := make([]int64, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Lookup computes a stream byte offset. For a CBR table the computation is
// exact whenever subItem is within the delta array (ST 377-1). For a VBR table, an
// inexact edit unit falls back to the nearest preceding entry's sub-item 0
// (ST 377-1); when reorder is requested, the edit unit has an exact
// entry, the sub-item's delta entry has PosTableIndex -1 and the entry's
// TemporalOffset is non-zero, the lookup recurses at
// EditUnit+TemporalOffset with reorder disabled, the commuting property
// ST 377-1 requires.
func (t *IndexTable) Lookup(editUnit int64, subItem int, reorder bool) (location uint64, exact bool, posOffset *Rational, err error) {
	if t.IsCBR() {
		if subItem >= len(t.Delta) {
			return 0, false, nil, fmt.Errorf("IndexTable.Lookup: %w", ErrSubItemOutOfRange)
		}
		loc := uint64(editUnit)*t.BytesPerEditUnit + uint64(t.Delta[subItem].ElementDelta)
		return loc, true, nil, nil
	}
	return t.lookupVBR(editUnit, subItem, reorder)
}

func (t *IndexTable) lookupVBR(editUnit int64, subItem int, reorder bool) (uint64, bool, *Rational, error) {
	entry, exactEntry, foundUnit := t.nearestEntry(editUnit)
	if entry == nil {
		return 0, false, nil, fmt.Errorf("IndexTable.Lookup: %w", ErrIndexOutOfRange)
	}

	effectiveSub := subItem
	if !exactEntry {
		effectiveSub = 0
	}

	// A PosTableIndex of -1 marks the sub-stream as subject to temporal
	// reordering; the entry's own TemporalOffset (coded order -> display
	// order) then redirects the lookup, exactly once.
	if reorder && exactEntry && entry.TemporalOffset != 0 &&
		subItem < len(t.Delta) && t.Delta[subItem].PosTableIndex < 0 {
		return t.Lookup(editUnit+int64(entry.TemporalOffset), subItem, false)
	}

	var slice uint32
	if effectiveSub < len(t.Delta) {
		s := t.Delta[effectiveSub].Slice
		if int(s) < len(entry.SliceOffsetArray) {
			slice = entry.SliceOffsetArray[s]
		}
	}
	var elementDelta uint32
	if effectiveSub < len(t.Delta) {
		elementDelta = t.Delta[effectiveSub].ElementDelta
	}

	location := entry.StreamOffset + uint64(slice) + uint64(elementDelta)

	var pos *Rational
	if effectiveSub < len(t.Delta) {
		pti := t.Delta[effectiveSub].PosTableIndex
		if pti > 0 && int(pti-1) < len(entry.PosTableArray) {
			p := entry.PosTableArray[pti-1]
			pos = &p
		}
	}

	exact := exactEntry && foundUnit == editUnit
	return location, exact, pos, nil
}

// nearestEntry finds the entry at editUnit, or failing that the entry at
// the nearest preceding edit unit.
func (t *IndexTable) nearestEntry(editUnit int64) (entry *IndexEntry, exact bool, foundUnit int64) {
	if e, ok := t.entries[editUnit]; ok {
		return e, true, editUnit
	}
	keys := t.sortedEditUnits()
	best := int64(0)
	var bestEntry *IndexEntry
	found := false
	for _, k := range keys {
		if k <= editUnit {
			best = k
			bestEntry = t.entries[k]
			found = true
		} else {
			break
		}
	}
	if !found {
		return nil, false, 0
	}
	return bestEntry, false, best
}

// Duration reports how many entries the table holds, provisional ones
// included.
func (t *IndexTable) Duration() int {
	return len(t.entries)
}

// Manager owns every IndexTable in a file, keyed by IndexSID (ST 377-1).
type Manager struct {
	tables map[uint32]*IndexTable
}

// NewManager creates an empty index manager.
func NewManager() *Manager {
	return &Manager{tables: make(map[uint32]*IndexTable)}
}

// Add registers a table under its IndexSID.
func (m *Manager) Add(t *IndexTable) { m.tables[t.IndexSID] = t }

// Table returns the table for indexSID, if any.
func (m *Manager) Table(indexSID uint32) (*IndexTable, bool) {
	t, ok := m.tables[indexSID]
	return t, ok
}

// Tables returns every registered table.
func (m *Manager) Tables() []*IndexTable {
	out := make([]*IndexTable, 0, len(m.tables))
	for _, t := range m.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IndexSID < out[j].IndexSID })
	return out
}
