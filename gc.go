// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import (
	"fmt"
	"io"
	"sort"
)

// StreamItemType classifies a generic-container stream the way ST 377-1
// and do: system items use their own write-order formula, essence
// items (picture/sound/data/compound) use the GC track-number formula.
type StreamItemType byte

const (
	ItemTypeSystem StreamItemType = iota
	ItemTypePicture
	ItemTypeSound
	ItemTypeData
	ItemTypeCompound
)

// gcEssenceTypeByte maps a StreamItemType to the CP-range element-type
// byte (key index 14) a GC essence key encodes; Key shifts it into the
// GC range for non-CP streams. System items are excluded and map to 0.
func gcEssenceTypeByte(t StreamItemType) byte {
	switch t {
	case ItemTypePicture:
		return 0x05
	case ItemTypeSound:
		return 0x06
	case ItemTypeData:
		return 0x07
	case ItemTypeCompound:
		return 0x08
	default:
		return 0
	}
}

// GCStream is one registered content-package stream (ST 377-1
// "Stream model"): its item type, CP vs GC flavour, element count, an
// optional explicit key overriding the derived one, a forced BER length
// size, and (for essence streams feeding an index table) the index
// manager and sub-stream slot they report offsets into.
type GCStream struct {
	ID            int
	ItemType      StreamItemType
	CPCompatible  bool
	SchemeOrCount byte
	Element       byte
	Number        byte
	ExplicitKey   *UL
	ForcedBERSize int

	WriteOrder uint32

	Index          *IndexTable
	SubStreamIndex int
}

// Key returns the GC element key this stream writes essence under: the
// explicit key if one was set, otherwise one synthesised from the
// registered item/count/element/number fields (ST 377-1).
func (s *GCStream) Key() UL {
	if s.ExplicitKey != nil {
		return *s.ExplicitKey
	}
	var ul UL
	copy(ul[:12], []byte{0x06, 0x0E, 0x2B, 0x34, 0x01, 0x02, 0x01, 0x01, 0x0D, 0x01, 0x03, 0x01})
	elementType := gcEssenceTypeByte(s.ItemType)
	if !s.CPCompatible {
		elementType += ElementTypeGCLow - ElementTypeCPLow
	}
	tn := TrackNumber{ItemType: byte(s.ItemType), Count: s.SchemeOrCount, ElementType: elementType, Number: s.Number}
	enc := tn.Encode()
	copy(ul[12:], enc[:])
	return ul
}

// Writer is a generic-container writer bound to one BodySID (ST 377-1
// "Stream model"): it owns a table of streams, a per-content-package
// queue of pending writes, and the KAG-alignment policy used at the
// boundary between item *types*.
type Writer struct {
	BodySID uint32
	KAG     uint32

	streams map[int]*GCStream
	nextID  int

	queue []queuedItem
}

// queuedItem is one pending write-order-tagged item: either raw bytes or
// a pull from an EssenceSource (ST 377-1).
type queuedItem struct {
	writeOrder uint32
	itemType   StreamItemType
	key        UL
	value      []byte
	source     EssenceSource
	berSize    int
	fastClip   bool
}

// EssenceSource is the pull contract an essence sub-parser exposes
// (ST 377-1): GetEssenceData returns up to count edit units' worth of
// bytes, io.EOF when exhausted.
type EssenceSource interface {
	GetEssenceData(count int) ([]byte, error)
	BytesPerEditUnit() uint64 // 0 if not CBR
}

// NewWriter creates a generic-container writer for one BodySID.
func NewWriter(bodySID uint32, kag uint32) *Writer {
	if kag == 0 {
		kag = 1
	}
	return &Writer{BodySID: bodySID, KAG: kag, streams: make(map[int]*GCStream)}
}

// AddSystemStream registers a system-item stream and computes its default
// write order per ST 377-1: "System: 0x0840_0000 | (scheme<<14) |
// (element<<7) | sub for CP; add 0x0080_0000 for GC."
func (w *Writer) AddSystemStream(scheme, element, sub byte, cpCompatible bool) *GCStream {
	order := uint32(0x08400000) | uint32(scheme)<<14 | uint32(element)<<7 | uint32(sub)
	if !cpCompatible {
		order |= 0x00800000
	}
	return w.addStream(&GCStream{ItemType: ItemTypeSystem, CPCompatible: cpCompatible, SchemeOrCount: scheme, Element: element, Number: sub, WriteOrder: order})
}

// AddEssenceStream registers an essence-item stream and computes its
// default write order per ST 377-1: "Essence: (type<<25) |
// 0x0040_0000 | (count<<14) | sub; add 0x0080_0000 for GC."
func (w *Writer) AddEssenceStream(itemType StreamItemType, count, number byte, cpCompatible bool) *GCStream {
	order := uint32(itemType)<<25 | 0x00400000 | uint32(count)<<14 | uint32(number)
	if !cpCompatible {
		order |= 0x00800000
	}
	return w.addStream(&GCStream{ItemType: itemType, CPCompatible: cpCompatible, SchemeOrCount: count, Number: number, WriteOrder: order})
}

func (w *Writer) addStream(s *GCStream) *GCStream {
	s.ID = w.nextID
	w.nextID++
	w.streams[s.ID] = s
	return s
}

// SetWriteOrder overrides a stream's write order, keeping its item-type
// bits but replacing the lower 15 bits from order (ST 377-1).
func (w *Writer) SetWriteOrder(id int, order uint16) error {
	s, ok := w.streams[id]
	if !ok {
		return fmt.Errorf("gc: unknown stream id %d", id)
	}
	s.WriteOrder = (s.WriteOrder &^ 0x7FFF) | uint32(order)
	return nil
}

// SetRelativeWriteOrder places stream id relative to the registered stream
// of itemType with the lowest write order, offset by position slots.
func (w *Writer) SetRelativeWriteOrder(id int, itemType StreamItemType, position int) error {
	s, ok := w.streams[id]
	if !ok {
		return fmt.Errorf("gc: unknown stream id %d", id)
	}
	var anchor uint32
	found := false
	for _, other := range w.streams {
		if other.ItemType == itemType && (!found || other.WriteOrder < anchor) {
			anchor = other.WriteOrder
			found = true
		}
	}
	if !found {
		return fmt.Errorf("gc: no registered stream of item type %d to anchor to", itemType)
	}
	s.WriteOrder = uint32(int64(anchor) + int64(position))
	return nil
}

// QueueValue enqueues a fully-formed essence value for the given stream,
// to be written on the next Flush in ascending write-order (ST 377-1).
func (w *Writer) QueueValue(streamID int, value []byte) error {
	s, ok := w.streams[streamID]
	if !ok {
		return fmt.Errorf("gc: unknown stream id %d", streamID)
	}
	w.queue = append(w.queue, queuedItem{writeOrder: s.WriteOrder, itemType: s.ItemType, key: s.Key(), value: value, berSize: s.ForcedBERSize})
	return nil
}

// QueueSource enqueues a pull from an EssenceSource; count edit units are
// read immediately (frame-wrap) unless fastClip is set, in which case src
// is kept and drained completely by the next Flush.
func (w *Writer) QueueSource(streamID int, src EssenceSource, count int, fastClip bool) error {
	s, ok := w.streams[streamID]
	if !ok {
		return fmt.Errorf("gc: unknown stream id %d", streamID)
	}
	item := queuedItem{writeOrder: s.WriteOrder, itemType: s.ItemType, key: s.Key(), berSize: s.ForcedBERSize, fastClip: fastClip}
	if fastClip {
		item.source = src
	} else {
		v, err := src.GetEssenceData(count)
		if err != nil && err != io.EOF {
			return err
		}
		item.value = v
	}
	w.queue = append(w.queue, item)
	return nil
}

// WriteRaw emits an opaque, already-keyed KLV at the current position,
// KAG-aligning around it (ST 377-1 "Raw escape").
func (w *Writer) WriteRaw(out io.Writer, pos int64, key UL, value []byte) (int64, error) {
	newPos, err := w.alignForWrite(out, pos, ItemTypeData)
	if err != nil {
		return pos, err
	}
	n, err := WriteKLV(out, key, value, 0)
	if err != nil {
		return newPos + int64(n), err
	}
	return w.alignForWrite(out, newPos+int64(n), ItemTypeData)
}

// Flush writes every queued item in ascending write order, inserting a
// KAG-aligned filler whenever the item *type* changes from the previous
// item (ST 377-1), then clears the queue. It returns the new
// stream position.
func (w *Writer) Flush(out io.Writer, pos int64) (int64, error) {
	sort.SliceStable(w.queue, func(i, j int) bool { return w.queue[i].writeOrder < w.queue[j].writeOrder })

	var lastType StreamItemType
	haveLast := false
	for _, item := range w.queue {
		if haveLast && item.itemType != lastType {
			newPos, err := w.alignForWrite(out, pos, item.itemType)
			if err != nil {
				return pos, err
			}
			pos = newPos
		}
		haveLast, lastType = true, item.itemType

		if item.fastClip {
			n, err := w.writeFastClip(out, item)
			if err != nil {
				return pos, err
			}
			pos += n
			continue
		}
		n, err := WriteKLV(out, item.key, item.value, item.berSize)
		if err != nil {
			return pos, err
		}
		pos += int64(n)
	}
	w.queue = nil
	return pos, nil
}

// writeFastClip drains src completely into memory and writes it as one
// KLV carrying its true length, using the stream's forced BER size or 8
// bytes when none is set. No placeholder length is written and nothing is
// patched afterwards, so the whole clip is held in memory at once.
func (w *Writer) writeFastClip(out io.Writer, item queuedItem) (int64, error) {
	var all []byte
	for {
		chunk, err := item.source.GetEssenceData(1 << 20)
		all = append(all, chunk...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
		if len(chunk) == 0 {
			break
		}
	}
	berSize := item.berSize
	if berSize == 0 {
		berSize = 8
	}
	n, err := WriteKLV(out, item.key, all, berSize)
	return int64(n), err
}

// alignForWrite inserts a KAG-aligned filler before the next item when
// needed, returning the stream position after the filler.
func (w *Writer) alignForWrite(out io.Writer, pos int64, _ StreamItemType) (int64, error) {
	size, err := FillerSize(pos, int64(w.KAG), 0, false)
	if err != nil {
		return pos, err
	}
	if size == 0 {
		return pos, nil
	}
	filler, err := BuildFiller(size, false)
	if err != nil {
		return pos, err
	}
	if _, err := out.Write(filler); err != nil {
		return pos, err
	}
	return pos + size, nil
}
