// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import (
	"bytes"
	"errors"
	"testing"
)

func TestBasicTraitsRoundTrip(t *testing.T) {

	ctx := DefaultContext()

	tests := []struct {
		typ    string
		values []int64
	}{
		{"UInt8", []int64{0, 1, 127, 255}},
		{"UInt16", []int64{0, 256, 65535}},
		{"UInt32", []int64{0, 1 << 16, 1<<32 - 1}},
		{"Int8", []int64{-128, -1, 0, 127}},
		{"Int16", []int64{-32768, -1, 32767}},
		{"Int32", []int64{-1 << 31, -1, 1<<31 - 1}},
		{"Int64", []int64{-1 << 62, -1, 0, 1 << 62}},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			tr, err := ctx.TraitsFor(tt.typ)
			if err != nil {
				t.Fatalf("TraitsFor(%s) failed, reason: %v", tt.typ, err)
			}
			for _, v := range tt.values {
				raw, err := tr.FromInt(v)
				if err != nil {
					t.Errorf("FromInt(%d) failed, reason: %v", v, err)
					continue
				}
				got, err := tr.ToInt(raw)
				if err != nil {
					t.Errorf("ToInt(FromInt(%d)) failed, reason: %v", v, err)
					continue
				}
				if got != v {
					t.Errorf("round trip of %d through %s got %d", v, tt.typ, got)
				}
			}
		})
	}
}

func TestEndianSwappedBasic(t *testing.T) {
	ctx := NewContext()
	if err := ctx.AddBasic("SwappedU32", 4, true); err != nil {
		t.Fatalf("AddBasic failed, reason: %v", err)
	}
	tr, err := ctx.TraitsFor("SwappedU32")
	if err != nil {
		t.Fatalf("TraitsFor failed, reason: %v", err)
	}
	in := []byte{0x01, 0x02, 0x03, 0x04}
	out, err := tr.ReadBytes(in)
	if err != nil {
		t.Fatalf("ReadBytes failed, reason: %v", err)
	}
	if !bytes.Equal(out, []byte{0x04, 0x03, 0x02, 0x01}) {
		t.Errorf("ReadBytes got % x, want reversed", out)
	}
	back, err := tr.WriteBytes(out)
	if err != nil || !bytes.Equal(back, in) {
		t.Errorf("WriteBytes got % x, %v", back, err)
	}
}

func TestRationalTraits(t *testing.T) {
	ctx := DefaultContext()
	tr, err := ctx.TraitsFor("Rational")
	if err != nil {
		t.Fatalf("TraitsFor(Rational) failed, reason: %v", err)
	}
	raw, err := tr.FromRational(25, 1)
	if err != nil {
		t.Fatalf("FromRational failed, reason: %v", err)
	}
	n, d, err := tr.ToRational(raw)
	if err != nil || n != 25 || d != 1 {
		t.Errorf("ToRational got %d/%d, %v", n, d, err)
	}
	s, err := tr.ToString(raw)
	if err != nil || s != "25/1" {
		t.Errorf("ToString got %q, %v", s, err)
	}
	raw2, err := tr.FromString("30000/1001")
	if err != nil {
		t.Fatalf("FromString failed, reason: %v", err)
	}
	n, d, _ = tr.ToRational(raw2)
	if n != 30000 || d != 1001 {
		t.Errorf("FromString round trip got %d/%d", n, d)
	}
}

func TestUTF16StringTraits(t *testing.T) {
	ctx := DefaultContext()
	tr, err := ctx.TraitsFor("UTF16String")
	if err != nil {
		t.Fatalf("TraitsFor(UTF16String) failed, reason: %v", err)
	}
	raw, err := tr.FromString("gomxf")
	if err != nil {
		t.Fatalf("FromString failed, reason: %v", err)
	}
	if len(raw) != 10 {
		t.Errorf("UTF-16BE encoding of 5 ASCII chars = %d bytes", len(raw))
	}
	if raw[0] != 0x00 || raw[1] != 'g' {
		t.Errorf("encoding is not big-endian: % x", raw[:2])
	}
	s, err := tr.ToString(raw)
	if err != nil || s != "gomxf" {
		t.Errorf("ToString got %q, %v", s, err)
	}
}

func TestEnumTraits(t *testing.T) {
	ctx := DefaultContext()
	tr, err := ctx.TraitsFor("FrameLayoutType")
	if err != nil {
		t.Fatalf("TraitsFor(FrameLayoutType) failed, reason: %v", err)
	}
	raw, err := tr.FromString("SeparateFields")
	if err != nil {
		t.Fatalf("FromString failed, reason: %v", err)
	}
	v, err := tr.ToInt(raw)
	if err != nil || v != 1 {
		t.Errorf("ToInt got %d, %v", v, err)
	}
	s, err := tr.ToString(raw)
	if err != nil || s != "SeparateFields" {
		t.Errorf("ToString got %q, %v", s, err)
	}
	if _, err := tr.FromString("NoSuchLayout"); err == nil {
		t.Error("FromString(unknown) did not fail")
	}
}

func TestCompoundTraits(t *testing.T) {
	ctx := DefaultContext()
	tr, err := ctx.TraitsFor("ProductVersionType")
	if err != nil {
		t.Fatalf("TraitsFor(ProductVersionType) failed, reason: %v", err)
	}
	if tr.Size() != 10 {
		t.Errorf("ProductVersionType size = %d, want 10", tr.Size())
	}
	ct := tr.(*compoundTraits)
	raw := []byte{0, 1, 0, 2, 0, 3, 0, 4, 0, 5}
	fields, err := ct.FieldValues(raw)
	if err != nil {
		t.Fatalf("FieldValues failed, reason: %v", err)
	}
	if !bytes.Equal(fields["Major"], []byte{0, 1}) || !bytes.Equal(fields["Release"], []byte{0, 5}) {
		t.Errorf("FieldValues got %v", fields)
	}
}

func TestBatchElements(t *testing.T) {
	ctx := DefaultContext()
	tr, err := ctx.TraitsFor("ULBatch")
	if err != nil {
		t.Fatalf("TraitsFor(ULBatch) failed, reason: %v", err)
	}
	at := tr.(*arrayTraits)

	ulA := FillerKey
	ulB := PrimerKey()
	encoded, err := at.EncodeElements([][]byte{ulA[:], ulB[:]})
	if err != nil {
		t.Fatalf("EncodeElements failed, reason: %v", err)
	}
	if getU32(encoded[0:4]) != 2 || getU32(encoded[4:8]) != 16 {
		t.Errorf("batch header = % x", encoded[:8])
	}
	elems, err := at.Elements(encoded)
	if err != nil {
		t.Fatalf("Elements failed, reason: %v", err)
	}
	if len(elems) != 2 || !bytes.Equal(elems[0], ulA[:]) || !bytes.Equal(elems[1], ulB[:]) {
		t.Errorf("Elements round trip failed: %d elements", len(elems))
	}
}

func TestRegistryRules(t *testing.T) {
	ctx := NewContext()

	if err := ctx.AddBasic("UInt8", 1, false); err != nil {
		t.Fatalf("AddBasic failed, reason: %v", err)
	}
	if err := ctx.AddBasic("UInt8", 1, false); !errors.Is(err, ErrTypeExists) {
		t.Errorf("duplicate AddBasic error = %v, want ErrTypeExists", err)
	}
	if err := ctx.AddBasic("Empty", 0, false); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("zero-size AddBasic error = %v, want ErrInvalidSize", err)
	}
	if err := ctx.RegisterClass("Concrete", "", UL{}, false, true); !errors.Is(err, ErrAbstractClassUL) {
		t.Errorf("concrete class without key error = %v, want ErrAbstractClassUL", err)
	}

	ctx.Freeze()
	if err := ctx.AddBasic("UInt16", 2, false); !errors.Is(err, ErrRegistryFrozen) {
		t.Errorf("mutation after Freeze error = %v, want ErrRegistryFrozen", err)
	}
}

func TestInterpretationInheritsBaseSize(t *testing.T) {
	ctx := DefaultContext()
	lengthType, err := ctx.FindType("Length")
	if err != nil {
		t.Fatalf("FindType(Length) failed, reason: %v", err)
	}
	if lengthType.Kind != KindInterpretation || lengthType.Base != "Int64" {
		t.Errorf("Length = %+v", lengthType)
	}
	tr, err := ctx.TraitsFor("Length")
	if err != nil {
		t.Fatalf("TraitsFor(Length) failed, reason: %v", err)
	}
	if tr.Size() != 8 {
		t.Errorf("Length size = %d, want 8 (inherited)", tr.Size())
	}
}
