// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import "fmt"

// arrayTraits backs both fixed/implicit arrays and length-prefixed batches
// (ST 377-1 "array/batch"). A batch value is encoded as an 8-byte vector
// header (4-byte count, 4-byte element size) followed by the elements; a
// plain array has no header and its element count is implied by the
// surrounding value length, which the caller (the compound/set decoder)
// supplies via ReadBytes's raw slice length.
type arrayTraits struct {
	element    Traits
	fixedCount int // non-zero for a fixed-size array
	isBatch    bool
}

func (t *arrayTraits) Size() int {
	if t.fixedCount > 0 {
		return t.fixedCount * t.element.Size()
	}
	return 0
}

func (t *arrayTraits) ReadBytes(raw []byte) ([]byte, error) {
	return append([]byte(nil), raw...), nil
}

func (t *arrayTraits) WriteBytes(v []byte) ([]byte, error) {
	return append([]byte(nil), v...), nil
}

// Elements decodes raw into its constituent element byte-slices.
func (t *arrayTraits) Elements(raw []byte) ([][]byte, error) {
	elemSize := t.element.Size()
	body := raw
	count := t.fixedCount

	if t.isBatch {
		if len(raw) < 8 {
			return nil, fmt.Errorf("arrayTraits: %w", ErrShortRead)
		}
		claimedCount, err := ReadUint32(raw, 0)
		if err != nil {
			return nil, err
		}
		claimedSize, err := ReadUint32(raw, 4)
		if err != nil {
			return nil, err
		}
		count = int(claimedCount)
		if elemSize == 0 {
			elemSize = int(claimedSize)
		}
		body = raw[8:]
	} else if count == 0 && elemSize > 0 {
		count = len(body) / elemSize
	}

	if elemSize == 0 {
		return nil, fmt.Errorf("arrayTraits: variable-element array needs explicit element framing")
	}
	out := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		start := i * elemSize
		end := start + elemSize
		if end > len(body) {
			return nil, fmt.Errorf("arrayTraits: %w", ErrShortRead)
		}
		out = append(out, body[start:end])
	}
	return out, nil
}

// EncodeElements re-assembles an array/batch value from element bytes.
func (t *arrayTraits) EncodeElements(elems [][]byte) ([]byte, error) {
	elemSize := t.element.Size()
	var out []byte
	if t.isBatch {
		out = make([]byte, 8)
		putUint32(out[0:4], uint32(len(elems)))
		putUint32(out[4:8], uint32(elemSize))
	}
	for _, e := range elems {
		out = append(out, e...)
	}
	return out, nil
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func (t *arrayTraits) ToInt(raw []byte) (int64, error) {
	return 0, fmt.Errorf("arrayTraits: %w", ErrTypeNotFound)
}
func (t *arrayTraits) FromInt(v int64) ([]byte, error) {
	return nil, fmt.Errorf("arrayTraits: %w", ErrTypeNotFound)
}
func (t *arrayTraits) ToString(raw []byte) (string, error) {
	elems, err := t.Elements(raw)
	if err != nil {
		return "", err
	}
	s := ""
	for i, e := range elems {
		if i > 0 {
			s += ","
		}
		v, err := t.element.ToString(e)
		if err != nil {
			return "", err
		}
		s += v
	}
	return s, nil
}
func (t *arrayTraits) FromString(s string) ([]byte, error) {
	return nil, fmt.Errorf("arrayTraits: %w", ErrTypeNotFound)
}
func (t *arrayTraits) ToRational(raw []byte) (int64, int64, error) {
	return 0, 0, fmt.Errorf("arrayTraits: %w", ErrTypeNotFound)
}
func (t *arrayTraits) FromRational(n, d int64) ([]byte, error) {
	return nil, fmt.Errorf("arrayTraits: %w", ErrTypeNotFound)
}

// compoundFieldTraits pairs a compound field's name with its traits.
type compoundFieldTraits struct {
	name   string
	traits Traits
}

// compoundTraits backs an ordered-field compound type (ST 377-1).
type compoundTraits struct {
	fields []compoundFieldTraits
}

func (t *compoundTraits) Size() int {
	total := 0
	for _, f := range t.fields {
		sz := f.traits.Size()
		if sz == 0 {
			return 0
		}
		total += sz
	}
	return total
}

func (t *compoundTraits) ReadBytes(raw []byte) ([]byte, error) {
	return append([]byte(nil), raw...), nil
}
func (t *compoundTraits) WriteBytes(v []byte) ([]byte, error) {
	return append([]byte(nil), v...), nil
}

// FieldValues splits raw into per-field byte slices, in declaration order.
func (t *compoundTraits) FieldValues(raw []byte) (map[string][]byte, error) {
	out := make(map[string][]byte, len(t.fields))
	offset := 0
	for _, f := range t.fields {
		sz := f.traits.Size()
		if sz == 0 {
			sz = len(raw) - offset
		}
		if offset+sz > len(raw) {
			return nil, fmt.Errorf("compoundTraits: %w", ErrShortRead)
		}
		out[f.name] = raw[offset : offset+sz]
		offset += sz
	}
	return out, nil
}

func (t *compoundTraits) ToInt(raw []byte) (int64, error) {
	return 0, fmt.Errorf("compoundTraits: %w", ErrTypeNotFound)
}
func (t *compoundTraits) FromInt(v int64) ([]byte, error) {
	return nil, fmt.Errorf("compoundTraits: %w", ErrTypeNotFound)
}
func (t *compoundTraits) ToString(raw []byte) (string, error) {
	fields, err := t.FieldValues(raw)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%v", fields), nil
}
func (t *compoundTraits) FromString(s string) ([]byte, error) {
	return nil, fmt.Errorf("compoundTraits: %w", ErrTypeNotFound)
}
func (t *compoundTraits) ToRational(raw []byte) (int64, int64, error) {
	return 0, 0, fmt.Errorf("compoundTraits: %w", ErrTypeNotFound)
}
func (t *compoundTraits) FromRational(n, d int64) ([]byte, error) {
	return nil, fmt.Errorf("compoundTraits: %w", ErrTypeNotFound)
}

// enumTraits backs named values of an underlying integer type (ST 377-1
// "enum").
type enumTraits struct {
	underlying Traits
	values     []EnumValue
}

func (t *enumTraits) Size() int                            { return t.underlying.Size() }
func (t *enumTraits) ReadBytes(raw []byte) ([]byte, error) { return t.underlying.ReadBytes(raw) }
func (t *enumTraits) WriteBytes(v []byte) ([]byte, error)  { return t.underlying.WriteBytes(v) }
func (t *enumTraits) ToInt(raw []byte) (int64, error)      { return t.underlying.ToInt(raw) }
func (t *enumTraits) FromInt(v int64) ([]byte, error)      { return t.underlying.FromInt(v) }

func (t *enumTraits) ToString(raw []byte) (string, error) {
	v, err := t.underlying.ToInt(raw)
	if err != nil {
		return "", err
	}
	for _, ev := range t.values {
		if ev.Value == v {
			return ev.Name, nil
		}
	}
	return fmt.Sprintf("%d", v), nil
}
func (t *enumTraits) FromString(s string) ([]byte, error) {
	for _, ev := range t.values {
		if ev.Name == s {
			return t.underlying.FromInt(ev.Value)
		}
	}
	return nil, fmt.Errorf("enumTraits: unknown value %q", s)
}
func (t *enumTraits) ToRational(raw []byte) (int64, int64, error) {
	return 0, 0, fmt.Errorf("enumTraits: %w", ErrTypeNotFound)
}
func (t *enumTraits) FromRational(n, d int64) ([]byte, error) {
	return nil, fmt.Errorf("enumTraits: %w", ErrTypeNotFound)
}
