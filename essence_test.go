// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
)

func rawTestParser(t *testing.T, ctx *Context, editUnits int, bpeu uint64) (*RawParser, io.ReaderAt, int64) {
	t.Helper()
	class, err := ctx.FindClass("WaveAudioDescriptor")
	if err != nil {
		t.Fatalf("FindClass failed, reason: %v", err)
	}
	data := make([]byte, editUnits*int(bpeu))
	for i := range data {
		data[i] = byte(i)
	}
	return NewRawParser(bpeu, class), bytes.NewReader(data), int64(len(data))
}

func TestRawParserIdentify(t *testing.T) {
	is := is.New(t)
	ctx := DefaultContext()
	parser, src, size := rawTestParser(t, ctx, 10, 64)

	descs, err := parser.IdentifyEssence(src, size)
	is.NoErr(err)
	is.Equal(len(descs), 1)
	is.Equal(descs[0].StreamID, 0)
	is.True(descs[0].Descriptor != nil)
	is.Equal(descs[0].Descriptor.Class.Name, "WaveAudioDescriptor")

	// A size that is not a whole number of edit units is rejected.
	_, err = parser.IdentifyEssence(src, size-1)
	is.True(err != nil)
}

func TestRawParserWrappingOptions(t *testing.T) {
	is := is.New(t)
	ctx := DefaultContext()
	parser, src, size := rawTestParser(t, ctx, 10, 64)
	descs, err := parser.IdentifyEssence(src, size)
	is.NoErr(err)

	opts, err := parser.IdentifyWrappingOptions(descs[0])
	is.NoErr(err)
	is.Equal(len(opts), 2)
	is.Equal(opts[0].Wrap, WrapClip)
	is.Equal(opts[1].Wrap, WrapFrame)
	is.True(opts[0].CanSlave)
	is.True(opts[0].CanIndex)
}

func TestRawParserReadAdvances(t *testing.T) {
	is := is.New(t)
	ctx := DefaultContext()
	parser, src, size := rawTestParser(t, ctx, 4, 16)
	_, err := parser.IdentifyEssence(src, size)
	is.NoErr(err)

	first, err := parser.Read(1)
	is.NoErr(err)
	is.Equal(len(first), 16)
	is.Equal(parser.CurrentPosition(), int64(1))

	rest, err := parser.Read(10) // more than remains
	is.True(err == io.EOF || err == nil)
	is.Equal(len(rest), 48)
	is.Equal(parser.CurrentPosition(), int64(4))

	_, err = parser.Read(1)
	is.Equal(err, io.EOF)
}

func TestRawParserWrite(t *testing.T) {
	is := is.New(t)
	ctx := DefaultContext()
	parser, src, size := rawTestParser(t, ctx, 4, 8)
	_, err := parser.IdentifyEssence(src, size)
	is.NoErr(err)

	var out bytes.Buffer
	n, err := parser.Write(&out, 2)
	is.NoErr(err)
	is.Equal(n, 16)
	is.Equal(out.Len(), 16)
}

func TestFacadeSelectWrapping(t *testing.T) {
	is := is.New(t)
	ctx := DefaultContext()
	parser, src, size := rawTestParser(t, ctx, 10, 32)

	facade := NewFacade()
	facade.RegisterParser(parser)

	chosen, descs, err := facade.Identify(src, size)
	is.NoErr(err)
	is.Equal(chosen, EssenceParser(parser))
	is.Equal(len(descs), 1)

	rate := Rational{48000, 1}
	cfg, err := facade.SelectWrapping(chosen, descs[0], nil, rate)
	is.NoErr(err)
	is.Equal(cfg.Wrapping.Wrap, WrapClip) // first viable option
	is.Equal(cfg.EditRate, rate)

	// The descriptor is updated to match the chosen wrapping.
	sampleRate, ok := descs[0].Descriptor.Get("SampleRate")
	is.True(ok)
	n, d, err := rationalTraits{}.ToRational(sampleRate)
	is.NoErr(err)
	is.Equal(n, int64(48000))
	is.Equal(d, int64(1))
	ec, ok := descs[0].Descriptor.Get("EssenceContainer")
	is.True(ok)
	is.Equal(len(ec), 16)
}

func TestFacadeSelectWrappingPreferred(t *testing.T) {
	is := is.New(t)
	ctx := DefaultContext()
	parser, src, size := rawTestParser(t, ctx, 10, 32)
	facade := NewFacade()
	facade.RegisterParser(parser)

	_, descs, err := facade.Identify(src, size)
	is.NoErr(err)

	// Preferring a UL no option carries must fail at configuration time.
	bogus := uidOf(0x99)
	_, err = facade.SelectWrapping(parser, descs[0], &bogus, Rational{25, 1})
	is.True(err != nil)
}

func TestFileSequenceSource(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()

	// Three numbered segment files of two 4-byte edit units each.
	for i := 1; i <= 3; i++ {
		name := filepath.Join(dir, fmt.Sprintf("seg_%04d.raw", i))
		content := bytes.Repeat([]byte{byte(i)}, 8)
		is.NoErr(os.WriteFile(name, content, 0o644))
	}

	var opened []string
	fs := NewFileSequence(FileSequenceOptions{
		Pattern:   filepath.Join(dir, "seg_%04d.raw"),
		Origin:    1,
		Increment: 1,
		NewFileHandler: func(index int, name string, f *os.File) {
			opened = append(opened, filepath.Base(name))
		},
	}, 4)

	is.Equal(fs.BytesPerEditUnit(), uint64(4))

	// Read across a file boundary: 3 edit units = 12 bytes spanning
	// files 1 and 2.
	got, err := fs.GetEssenceData(3)
	is.NoErr(err)
	is.Equal(len(got), 12)
	is.Equal(got[:8], bytes.Repeat([]byte{1}, 8))
	is.Equal(got[8:], bytes.Repeat([]byte{2}, 4))

	rest, err := fs.GetEssenceData(10)
	is.NoErr(err)
	is.Equal(len(rest), 12) // remainder of file 2 plus file 3

	_, err = fs.GetEssenceData(1)
	is.Equal(err, io.EOF)

	is.Equal(opened, []string{"seg_0001.raw", "seg_0002.raw", "seg_0003.raw"})
}

func TestFileSequenceCountLimit(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	for i := 0; i < 4; i++ {
		name := filepath.Join(dir, fmt.Sprintf("f_%04d.raw", i))
		is.NoErr(os.WriteFile(name, make([]byte, 4), 0o644))
	}

	fs := NewFileSequence(FileSequenceOptions{
		Pattern:   filepath.Join(dir, "f_%04d.raw"),
		Origin:    0,
		Increment: 2, // every other file
		Count:     2,
	}, 4)

	got, err := fs.GetEssenceData(100)
	is.NoErr(err)
	is.Equal(len(got), 8) // two files of one edit unit each

	_, err = fs.GetEssenceData(1)
	is.Equal(err, io.EOF)
}

func TestRawParserEssenceSource(t *testing.T) {
	is := is.New(t)
	ctx := DefaultContext()
	parser, src, size := rawTestParser(t, ctx, 6, 10)
	_, err := parser.IdentifyEssence(src, size)
	is.NoErr(err)

	es, err := parser.GetEssenceSource(0)
	is.NoErr(err)
	is.Equal(es.BytesPerEditUnit(), uint64(10))

	chunk, err := es.GetEssenceData(2)
	is.NoErr(err)
	is.Equal(len(chunk), 20)
}
