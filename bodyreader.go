// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import (
	"fmt"
)

// Handler processes one dispatched KLV. Returning stop=true terminates
// the current ReadFromFile call; pushBack requests the cursor be left at
// the start of this KLV so the next ReadFromFile call re-reads it
// (ST 377-1).
type Handler func(klv KLV, value []byte) (stop bool, pushBack bool, err error)

// EncryptionHandler recognises and decrypts an encrypted-data KLV. If it
// returns a non-nil re-entry KLV/value pair, the reader dispatches that
// pair through the normal handler table as if it had been read directly
// (ST 377-1).
type EncryptionHandler func(klv KLV, value []byte) (reentryKLV *KLV, reentryValue []byte, err error)

// resyncWindow is the sliding-window size used to resynchronise after
// corruption (ST 377-1).
const resyncWindow = 65536

// BodyReader is the pull-based reader side of the body engine (ST 377-1
// "Contract"). It is bound to one Stream (a File or MemoryFile), and
// dispatches each KLV it encounters to a per-BodySID/per-track-number
// handler, falling back to a default handler when none matches.
type BodyReader struct {
	ctx    *Context
	s      Stream
	cursor *Cursor

	// FillerHandler, if set, is invoked for filler KLVs instead of
	// silently skipping them.
	FillerHandler Handler

	// Encryption recognises and decrypts encrypted-data KLVs whose key
	// belongs to a registered key family (ST 377-1).
	Encryption     EncryptionHandler
	isEncryptedKey func(UL) bool

	// handlers maps a GC track number (ST 377-1 bytes 13-16) to the
	// Handler registered for it.
	handlers map[TrackNumber]Handler
	// Default handles any KLV with no matching track-number handler.
	Default Handler
}

// NewBodyReader creates a reader bound to s.
func NewBodyReader(ctx *Context, s Stream) *BodyReader {
	return &BodyReader{ctx: ctx, s: s, cursor: NewCursor(s, 0), handlers: make(map[TrackNumber]Handler)}
}

// SetEncryptedKeyRecognizer registers the predicate used to recognise an
// encrypted-data KLV by its key (ST 377-1).
func (r *BodyReader) SetEncryptedKeyRecognizer(f func(UL) bool) { r.isEncryptedKey = f }

// RegisterHandler binds a handler to a GC track number (ST 377-1).
func (r *BodyReader) RegisterHandler(tn TrackNumber, h Handler) { r.handlers[tn] = h }

// Seek positions the reader at an absolute file offset (ST 377-1
// "Seek(offset)").
func (r *BodyReader) Seek(offset int64) { r.cursor.Seek(offset) }

// SeekStream positions the reader at an absolute file offset that the
// caller has already resolved from a BodySID and stream offset. It does
// no index lookup and takes no BodySID; it behaves exactly like Seek.
func (r *BodyReader) SeekStream(absoluteOffset int64) { r.cursor.Seek(absoluteOffset) }

// stopSignal is returned internally by dispatch to unwind ReadFromFile's
// loop without an error reaching the caller.
type stopSignal struct{ pushBack bool }

func (stopSignal) Error() string { return "mxf: body reader stopped" }

// ReadFromFile dispatches KLVs starting at the reader's current position,
// or exactly one KLV if single is true. limit, if non-zero, is the
// absolute file offset of the next partition pack; KLVs at or beyond it
// are not consumed. The reader does not recognise partition packs by
// itself: with limit 0 it dispatches them like any other KLV and reads
// on until a handler stops it or the cursor fails (end of stream
// included), returning that error.
func (r *BodyReader) ReadFromFile(single bool, limit int64) error {
	for {
		if limit > 0 && r.cursor.Pos() >= limit {
			return nil
		}
		startPos := r.cursor.Pos()
		klv, err := r.cursor.Next()
		if err != nil {
			return err
		}
		value, err := ReadValue(r.s, klv)
		if err != nil {
			return err
		}

		pushBack, err := r.dispatch(klv, value)
		if err != nil {
			if sig, ok := err.(stopSignal); ok {
				if sig.pushBack || pushBack {
					r.cursor.Seek(startPos)
				}
				return nil
			}
			return err
		}
		if pushBack {
			r.cursor.Seek(startPos)
		}
		if single {
			return nil
		}
	}
}

func (r *BodyReader) dispatch(klv KLV, value []byte) (pushBack bool, err error) {
	if klv.Key.Equal(FillerKey, true) {
		if r.FillerHandler != nil {
			stop, pb, err := r.FillerHandler(klv, value)
			if err != nil {
				return pb, err
			}
			if stop {
				return pb, stopSignal{pushBack: pb}
			}
		}
		return false, nil
	}

	if r.isEncryptedKey != nil && r.isEncryptedKey(klv.Key) && r.Encryption != nil {
		reKLV, reValue, err := r.Encryption(klv, value)
		if err != nil {
			return false, err
		}
		if reKLV != nil {
			return r.dispatch(*reKLV, reValue)
		}
		return false, nil
	}

	tn := TrackNumberOf(klv.Key)
	h, ok := r.handlers[tn]
	if !ok {
		h = r.Default
	}
	if h == nil {
		return false, nil
	}
	stop, pb, err := h(klv, value)
	if err != nil {
		return pb, err
	}
	if stop {
		return pb, stopSignal{pushBack: pb}
	}
	return false, nil
}

// Resync scans forward from the reader's current position for the next
// partition-pack key, using a sliding window bounded to resyncWindow bytes
// at a time, and repositions the cursor there (ST 377-1).
func (r *BodyReader) Resync(fileSize int64) error {
	pos := r.cursor.Pos()
	for pos < fileSize {
		end := pos + resyncWindow
		if end > fileSize {
			end = fileSize
		}
		buf := make([]byte, end-pos)
		if _, err := r.s.ReadAt(buf, pos); err != nil {
			return fmt.Errorf("bodyreader: resync: %w", err)
		}
		for i := 0; i+16 <= len(buf); i++ {
			ul, err := ULFromBytes(buf[i : i+16])
			if err != nil {
				continue
			}
			if _, ok := KindFromKey(ul); ok {
				r.cursor.Seek(pos + int64(i))
				return nil
			}
		}
		if end == fileSize {
			break
		}
		pos = end - 15 // overlap by 15 bytes so a key spanning the boundary isn't missed
		if pos < 0 {
			pos = 0
		}
	}
	return fmt.Errorf("bodyreader: resync: %w", ErrNoKLVKey)
}
