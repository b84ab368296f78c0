// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"golang.org/x/text/encoding/unicode"
)

// TypeKind is the category a registered Type belongs to (ST 377-1 "Type").
type TypeKind int

const (
	KindBasic TypeKind = iota
	KindInterpretation
	KindArray
	KindBatch
	KindCompound
	KindEnum
)

// ReferenceKind annotates an interpretation-of-UUID type as a reference,
// and says what kind of reference it is (ST 377-1).
type ReferenceKind int

const (
	RefNone ReferenceKind = iota
	RefStrong
	RefWeak
	RefTarget
	RefGlobal
)

// CompoundField is one ordered field of a compound type. Field order is
// preserved and defines wire order.
type CompoundField struct {
	Name string
	Type string
	Size int // 0 inherits the field type's natural size
}

// EnumValue is one named value of an enum type.
type EnumValue struct {
	Name  string
	Value int64
}

// Type is one entry of the type registry (ST 377-1 "Type").
//
// A Type's Traits are resolved lazily by the Context once the whole type
// tree is loaded, since an interpretation or array can reference a type
// registered after it.
type Type struct {
	Name   string
	Kind   TypeKind
	Size   int  // fixed size in bytes; 0 for variable-length (array/batch)
	Endian bool // true if this basic type is byte-swapped on decode

	// Interpretation
	Base string

	// Array / batch
	Element   string
	FixedSize int // element count for a fixed array; 0 means variable (batch or implicit array)
	IsBatch   bool

	// Compound
	Fields []CompoundField

	// Enum
	Underlying string
	Values     []EnumValue

	// Reference annotation, valid for interpretations of a 16-byte UUID type.
	Ref         ReferenceKind
	TargetClass string
}

// Traits is the behavioural contract every Type exposes: how to move
// between raw bytes and the surface forms (integer, string, rational)
// ST 377-1 lists. Not every surface form is meaningful for every type;
// traits that don't apply return an error.
type Traits interface {
	// Size returns 0 for variable-length traits.
	Size() int
	ReadBytes(raw []byte) ([]byte, error)
	WriteBytes(v []byte) ([]byte, error)
	ToInt(raw []byte) (int64, error)
	FromInt(v int64) ([]byte, error)
	ToString(raw []byte) (string, error)
	FromString(s string) ([]byte, error)
	ToRational(raw []byte) (num, den int64, err error)
	FromRational(num, den int64) ([]byte, error)
}

// baseTraits is the default Traits implementation used by basic integer
// types; String/Rational conversions fail unless overridden.
type baseTraits struct {
	size   int
	endian bool
	signed bool
}

func (t baseTraits) Size() int { return t.size }

func (t baseTraits) ReadBytes(raw []byte) ([]byte, error) {
	if len(raw) < t.size {
		return nil, fmt.Errorf("traits: %w", ErrShortRead)
	}
	out := make([]byte, t.size)
	copy(out, raw[:t.size])
	if t.endian {
		reverse(out)
	}
	return out, nil
}

func (t baseTraits) WriteBytes(v []byte) ([]byte, error) {
	if len(v) != t.size {
		return nil, fmt.Errorf("traits: %w", ErrInvalidSize)
	}
	out := make([]byte, t.size)
	copy(out, v)
	if t.endian {
		reverse(out)
	}
	return out, nil
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

func (t baseTraits) ToInt(raw []byte) (int64, error) {
	if len(raw) < t.size {
		return 0, fmt.Errorf("traits: %w", ErrShortRead)
	}
	buf := make([]byte, 8)
	// MXF basic integers are stored big-endian on the wire.
	copy(buf[8-t.size:], raw[:t.size])
	u := binary.BigEndian.Uint64(buf)
	if !t.signed || t.size == 8 {
		return int64(u), nil
	}
	// Sign-extend from t.size bytes.
	shift := uint(64 - t.size*8)
	return int64(u<<shift) >> shift, nil
}

func (t baseTraits) FromInt(v int64) ([]byte, error) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf[8-t.size:], nil
}

func (t baseTraits) ToString(raw []byte) (string, error) {
	return "", fmt.Errorf("traits: %w", ErrTypeNotFound)
}
func (t baseTraits) FromString(s string) ([]byte, error) {
	return nil, fmt.Errorf("traits: %w", ErrTypeNotFound)
}
func (t baseTraits) ToRational(raw []byte) (int64, int64, error) {
	return 0, 0, fmt.Errorf("traits: %w", ErrTypeNotFound)
}
func (t baseTraits) FromRational(num, den int64) ([]byte, error) {
	return nil, fmt.Errorf("traits: %w", ErrTypeNotFound)
}

// rationalTraits backs MXF's Rational type: two big-endian int32s,
// numerator then denominator.
type rationalTraits struct{}

func (rationalTraits) Size() int { return 8 }
func (rationalTraits) ReadBytes(raw []byte) ([]byte, error) {
	if len(raw) < 8 {
		return nil, fmt.Errorf("traits: %w", ErrShortRead)
	}
	out := make([]byte, 8)
	copy(out, raw[:8])
	return out, nil
}
func (rationalTraits) WriteBytes(v []byte) ([]byte, error) {
	if len(v) != 8 {
		return nil, fmt.Errorf("traits: %w", ErrInvalidSize)
	}
	return append([]byte(nil), v...), nil
}
func (rationalTraits) ToInt(raw []byte) (int64, error) {
	return 0, fmt.Errorf("traits: %w", ErrTypeNotFound)
}
func (rationalTraits) FromInt(v int64) ([]byte, error) {
	return nil, fmt.Errorf("traits: %w", ErrTypeNotFound)
}
func (rationalTraits) ToString(raw []byte) (string, error) {
	n, d, err := rationalTraits{}.ToRational(raw)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d/%d", n, d), nil
}
func (rationalTraits) FromString(s string) ([]byte, error) {
	var n, d int64
	if _, err := fmt.Sscanf(s, "%d/%d", &n, &d); err != nil {
		return nil, err
	}
	return rationalTraits{}.FromRational(n, d)
}
func (rationalTraits) ToRational(raw []byte) (int64, int64, error) {
	if len(raw) < 8 {
		return 0, 0, fmt.Errorf("traits: %w", ErrShortRead)
	}
	return int64(int32(binary.BigEndian.Uint32(raw[0:4]))), int64(int32(binary.BigEndian.Uint32(raw[4:8]))), nil
}
func (rationalTraits) FromRational(num, den int64) ([]byte, error) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], uint32(int32(num)))
	binary.BigEndian.PutUint32(buf[4:8], uint32(int32(den)))
	return buf, nil
}

// utf16Traits backs MXF's native UTF-16BE string type.
type utf16Traits struct{}

func (utf16Traits) Size() int { return 0 }
func (utf16Traits) ReadBytes(raw []byte) ([]byte, error) {
	return append([]byte(nil), raw...), nil
}
func (utf16Traits) WriteBytes(v []byte) ([]byte, error) {
	return append([]byte(nil), v...), nil
}
func (utf16Traits) ToInt(raw []byte) (int64, error) {
	return 0, fmt.Errorf("traits: %w", ErrTypeNotFound)
}
func (utf16Traits) FromInt(v int64) ([]byte, error) {
	return nil, fmt.Errorf("traits: %w", ErrTypeNotFound)
}
func (utf16Traits) ToString(raw []byte) (string, error) {
	decoder := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	s, err := decoder.Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("utf16: %w", err)
	}
	return string(s), nil
}
func (utf16Traits) FromString(s string) ([]byte, error) {
	encoder := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()
	b, err := encoder.Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("utf16: %w", err)
	}
	return b, nil
}
func (utf16Traits) ToRational(raw []byte) (int64, int64, error) {
	return 0, 0, fmt.Errorf("traits: %w", ErrTypeNotFound)
}
func (utf16Traits) FromRational(num, den int64) ([]byte, error) {
	return nil, fmt.Errorf("traits: %w", ErrTypeNotFound)
}

// uuidTraits backs UL/UUID-shaped 16-byte identifiers (reference types and
// the basic "UUID"/"UL" types).
type uuidTraits struct{}

func (uuidTraits) Size() int { return 16 }
func (uuidTraits) ReadBytes(raw []byte) ([]byte, error) {
	if len(raw) < 16 {
		return nil, fmt.Errorf("traits: %w", ErrShortRead)
	}
	return append([]byte(nil), raw[:16]...), nil
}
func (uuidTraits) WriteBytes(v []byte) ([]byte, error) {
	if len(v) != 16 {
		return nil, fmt.Errorf("traits: %w", ErrInvalidSize)
	}
	return append([]byte(nil), v...), nil
}
func (uuidTraits) ToInt(raw []byte) (int64, error) {
	return 0, fmt.Errorf("traits: %w", ErrTypeNotFound)
}
func (uuidTraits) FromInt(v int64) ([]byte, error) {
	return nil, fmt.Errorf("traits: %w", ErrTypeNotFound)
}
func (uuidTraits) ToString(raw []byte) (string, error) {
	u, err := ULFromBytes(raw)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
func (uuidTraits) FromString(s string) ([]byte, error) {
	return nil, fmt.Errorf("traits: %w", ErrTypeNotFound)
}
func (uuidTraits) ToRational(raw []byte) (int64, int64, error) {
	return 0, 0, fmt.Errorf("traits: %w", ErrTypeNotFound)
}
func (uuidTraits) FromRational(num, den int64) ([]byte, error) {
	return nil, fmt.Errorf("traits: %w", ErrTypeNotFound)
}

// bigIntTraits supports oversized basic integers (e.g. a 64-bit-plus
// counter) via math/big, rarely needed but kept for completeness of the
// "basic (fixed size, optionally endian-swapped)" contract.
type bigIntTraits struct {
	size int
}

func (t bigIntTraits) Size() int { return t.size }
func (t bigIntTraits) ReadBytes(raw []byte) ([]byte, error) {
	if len(raw) < t.size {
		return nil, fmt.Errorf("traits: %w", ErrShortRead)
	}
	return append([]byte(nil), raw[:t.size]...), nil
}
func (t bigIntTraits) WriteBytes(v []byte) ([]byte, error) {
	if len(v) != t.size {
		return nil, fmt.Errorf("traits: %w", ErrInvalidSize)
	}
	return append([]byte(nil), v...), nil
}
func (t bigIntTraits) ToInt(raw []byte) (int64, error) {
	bi := new(big.Int).SetBytes(raw[:t.size])
	if !bi.IsInt64() {
		return 0, fmt.Errorf("traits: value overflows int64")
	}
	return bi.Int64(), nil
}
func (t bigIntTraits) FromInt(v int64) ([]byte, error) {
	bi := big.NewInt(v)
	b := bi.Bytes()
	out := make([]byte, t.size)
	copy(out[t.size-len(b):], b)
	return out, nil
}
func (t bigIntTraits) ToString(raw []byte) (string, error) {
	return new(big.Int).SetBytes(raw[:t.size]).String(), nil
}
func (t bigIntTraits) FromString(s string) ([]byte, error) {
	bi, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("traits: invalid integer %q", s)
	}
	return t.FromInt(bi.Int64())
}
func (t bigIntTraits) ToRational(raw []byte) (int64, int64, error) {
	return 0, 0, fmt.Errorf("traits: %w", ErrTypeNotFound)
}
func (t bigIntTraits) FromRational(num, den int64) ([]byte, error) {
	return nil, fmt.Errorf("traits: %w", ErrTypeNotFound)
}
