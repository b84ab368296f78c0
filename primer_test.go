// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import (
	"errors"
	"testing"
)

func TestPrimerTagForIsStable(t *testing.T) {
	p := NewPrimer()
	ul := FillerKey

	first := p.TagFor(ul)
	second := p.TagFor(ul)
	if first != second {
		t.Errorf("TagFor returned %#x then %#x for the same UL", first, second)
	}
	if first < 0x8000 {
		t.Errorf("dynamic tag %#x allocated below 0x8000", first)
	}

	other := p.TagFor(PrimerKey())
	if other == first {
		t.Error("distinct ULs share a tag")
	}
}

func TestPrimerInsertConflict(t *testing.T) {
	p := NewPrimer()
	if err := p.Insert(0x3C0A, FillerKey); err != nil {
		t.Fatalf("Insert failed, reason: %v", err)
	}
	if err := p.Insert(0x3C0A, FillerKey); err != nil {
		t.Errorf("re-Insert of identical pair failed, reason: %v", err)
	}
	if err := p.Insert(0x3C0A, PrimerKey()); !errors.Is(err, ErrPrimerConflict) {
		t.Errorf("conflicting Insert error = %v, want ErrPrimerConflict", err)
	}
}

func TestPrimerEncodeDecode(t *testing.T) {
	p := NewPrimer()
	p.Insert(0x3C0A, ulHex("060e2b34010101010101150200000000"))
	p.Insert(0x3B03, ulHex("060e2b34010101020601010402010000"))
	p.Insert(0x8000, FillerKey)

	decoded, err := DecodePrimer(p.EncodePrimer())
	if err != nil {
		t.Fatalf("DecodePrimer failed, reason: %v", err)
	}
	for _, e := range p.Entries() {
		got, ok := decoded.Lookup(e.Tag)
		if !ok || got != e.UL {
			t.Errorf("tag %#x: got %s, ok=%v", uint16(e.Tag), got, ok)
		}
	}
	if len(decoded.Entries()) != 3 {
		t.Errorf("decoded primer has %d entries", len(decoded.Entries()))
	}
}

func TestDecodePrimerShort(t *testing.T) {
	if _, err := DecodePrimer([]byte{0, 0}); !errors.Is(err, ErrShortRead) {
		t.Errorf("DecodePrimer(short) error = %v, want ErrShortRead", err)
	}
}
