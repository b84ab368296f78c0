// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import "fmt"

// WriteHeaderMetadata serialises a list of objects (in the order given —
// callers typically pass a Preface-rooted DFS) as a run of top-level KLVs,
// assigning primer tags for every member UL along the way (ST 377-1
// "Construction"). Filler and the Primer Pack itself are written
// separately by the caller (partition.go / the body writer), since their
// placement depends on KAG alignment the metadata run itself knows
// nothing about.
func WriteHeaderMetadata(ctx *Context, primer *Primer, objects []*Object) ([]byte, error) {
	var out []byte
	for _, obj := range objects {
		if obj.Dark {
			n, err := writeDarkSet(obj)
			if err != nil {
				return nil, err
			}
			out = append(out, n...)
			continue
		}
		body, err := EncodeObject(ctx, obj, primer)
		if err != nil {
			return nil, fmt.Errorf("WriteHeaderMetadata: %s: %w", obj.Class.Name, err)
		}
		klv := appendKLV(nil, obj.Class.Key, body)
		out = append(out, klv...)
	}
	return out, nil
}

func writeDarkSet(obj *Object) ([]byte, error) {
	return appendKLV(nil, obj.RawKey, obj.RawValue), nil
}

func appendKLV(dst []byte, key UL, value []byte) []byte {
	dst = append(dst, key[:]...)
	dst = append(dst, encodeBERShortest(uint64(len(value)))...)
	dst = append(dst, value...)
	return dst
}

// ReadHeaderMetadata decodes a run of top-level KLVs (the portion of a
// partition between the Primer Pack and the first index/essence KLV) into
// a populated Graph, per ST 377-1 "Construction": for each non-filler
// KLV, an unknown key becomes a dark Object preserving its raw bytes,
// and a known class's body is parsed as a local set through primer.
func ReadHeaderMetadata(ctx *Context, primer *Primer, data []byte) (*Graph, error) {
	g := NewGraph(ctx)
	pos := 0
	for pos < len(data) {
		if pos+16 > len(data) {
			return nil, fmt.Errorf("ReadHeaderMetadata: %w", ErrShortRead)
		}
		key, err := ULFromBytes(data[pos : pos+16])
		if err != nil {
			return nil, err
		}
		pos += 16
		length, consumed, err := DecodeBER(data[pos:])
		if err != nil {
			return nil, fmt.Errorf("ReadHeaderMetadata: %w", err)
		}
		pos += consumed
		if pos+int(length) > len(data) {
			return nil, fmt.Errorf("ReadHeaderMetadata: %w", ErrShortRead)
		}
		body := data[pos : pos+int(length)]
		pos += int(length)

		if key.Equal(FillerKey, true) {
			continue
		}

		class, err := ctx.FindClassByUL(key)
		if err != nil {
			obj := NewObject(nil)
			obj.Dark = true
			obj.RawKey = key
			obj.RawValue = append([]byte(nil), body...)
			if err := g.AddObject(obj); err != nil {
				return nil, err
			}
			continue
		}
		obj, err := ParseObject(ctx, class, body, primer, int64(pos-int(length)))
		if err != nil {
			return nil, fmt.Errorf("ReadHeaderMetadata: %s: %w", class.Name, err)
		}
		if err := g.AddObject(obj); err != nil {
			return nil, err
		}
	}
	return g, nil
}
