// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import (
	"fmt"
	"io"
	"os"
)

// EssenceStreamDescriptor is what IdentifyEssence reports for one source
// essence stream: an id, a human description, and a populated file
// descriptor object (ST 377-1).
type EssenceStreamDescriptor struct {
	StreamID    int
	Description string
	Descriptor  *Object
}

// WrappingOption is one way a sub-parser can wrap a given essence stream
// into the generic container (ST 377-1): its UL, the GC essence/
// element type bytes it writes, its WrapType, whether it can slave to a
// non-native edit rate for clip wrapping, whether it can be indexed, and
// an optional fixed BER size.
type WrappingOption struct {
	UL           UL
	ItemType     StreamItemType
	ElementType  byte
	Wrap         WrapType
	CanSlave     bool
	CanIndex     bool
	FixedBERSize int
	Description  string
}

// EssenceParser is the capability interface every essence sub-parser
// implements (ST 377-1).
type EssenceParser interface {
	IdentifyEssence(src io.ReaderAt, size int64) ([]EssenceStreamDescriptor, error)
	IdentifyWrappingOptions(descriptor EssenceStreamDescriptor) ([]WrappingOption, error)
	Use(streamID int, wrapping WrappingOption) error
	SetEditRate(rate Rational) error
	Read(count int) ([]byte, error)
	GetEssenceSource(count int) (EssenceSource, error)
	Write(out io.Writer, count int) (int, error)
	GetBytesPerEditUnit() uint64
	CurrentPosition() int64
}

// WrappingConfig records the façade's choice of parser, stream, and
// wrapping option for one essence input (ST 377-1).
type WrappingConfig struct {
	Parser   EssenceParser
	Stream   EssenceStreamDescriptor
	Wrapping WrappingOption
	EditRate Rational
}

// Facade enumerates registered essence sub-parsers and selects one whose
// wrapping matches a requested type (ST 377-1).
type Facade struct {
	parsers []EssenceParser
}

// NewFacade creates an empty façade; RegisterParser adds sub-parsers to
// it.
func NewFacade() *Facade { return &Facade{} }

// RegisterParser adds a sub-parser the façade will try, in registration
// order.
func (f *Facade) RegisterParser(p EssenceParser) { f.parsers = append(f.parsers, p) }

// Identify asks every registered parser to identify essence in src,
// returning the first parser that recognises it along with its
// descriptors.
func (f *Facade) Identify(src io.ReaderAt, size int64) (EssenceParser, []EssenceStreamDescriptor, error) {
	for _, p := range f.parsers {
		descs, err := p.IdentifyEssence(src, size)
		if err == nil && len(descs) > 0 {
			return p, descs, nil
		}
	}
	return nil, nil, fmt.Errorf("essence: no registered parser identified this source")
}

// SelectWrapping picks a wrapping option for stream: preferredUL, if
// non-nil, is matched ignoring the registry-version byte; otherwise the
// first option offered is used, and no other option is tried if the
// parser then rejects the edit rate. The selection (and the file descriptor's SampleRate/
// EssenceContainer fields) are recorded into the returned WrappingConfig
// (ST 377-1).
func (f *Facade) SelectWrapping(p EssenceParser, stream EssenceStreamDescriptor, preferredUL *UL, rate Rational) (*WrappingConfig, error) {
	opts, err := p.IdentifyWrappingOptions(stream)
	if err != nil {
		return nil, err
	}
	if len(opts) == 0 {
		return nil, fmt.Errorf("essence: %w", ErrWrappingNotSupported)
	}
	chosen := opts[0]
	if preferredUL != nil {
		found := false
		for _, o := range opts {
			if o.UL.Equal(*preferredUL, true) {
				chosen = o
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("essence: %w", ErrWrappingNotSupported)
		}
	}
	if err := p.Use(stream.StreamID, chosen); err != nil {
		return nil, err
	}
	if err := p.SetEditRate(rate); err != nil {
		return nil, err
	}
	if stream.Descriptor != nil {
		rt := rationalTraits{}
		if rateBytes, err := rt.FromRational(int64(rate.Numerator), int64(rate.Denominator)); err == nil {
			stream.Descriptor.Set("SampleRate", rateBytes)
		}
		var ul [16]byte
		copy(ul[:], chosen.UL[:])
		stream.Descriptor.Set("EssenceContainer", ul[:])
	}
	return &WrappingConfig{Parser: p, Stream: stream, Wrapping: chosen, EditRate: rate}, nil
}

// FileSequenceOptions describes a numbered sequence of input files
// presented as one continuous essence source (ST 377-1).
type FileSequenceOptions struct {
	Pattern   string // e.g. "frame_%04d.raw"
	Origin    int
	Increment int
	Count     int // 0 means "until a file is missing"

	// NewFileHandler, if set, is invoked whenever a new file in the
	// sequence is opened (ST 377-1).
	NewFileHandler func(index int, name string, f *os.File)
}

// FileSequence is an EssenceSource backed by a numbered file sequence.
type FileSequence struct {
	opts   FileSequenceOptions
	index  int
	cur    *os.File
	bpeu   uint64
	opened int
}

// NewFileSequence creates a sequence source over opts.
func NewFileSequence(opts FileSequenceOptions, bytesPerEditUnit uint64) *FileSequence {
	return &FileSequence{opts: opts, index: opts.Origin, bpeu: bytesPerEditUnit}
}

// BytesPerEditUnit reports the fixed per-edit-unit size, satisfying
// EssenceSource.
func (fs *FileSequence) BytesPerEditUnit() uint64 { return fs.bpeu }

// GetEssenceData reads up to count edit units' worth of bytes, opening
// successive files in the sequence as each is exhausted, per the
// "name_%04d.ext" numbering scheme (ST 377-1).
func (fs *FileSequence) GetEssenceData(count int) ([]byte, error) {
	if fs.bpeu == 0 {
		return nil, fmt.Errorf("essence: FileSequence requires a known BytesPerEditUnit")
	}
	want := int64(count) * int64(fs.bpeu)
	out := make([]byte, 0, want)
	for int64(len(out)) < want {
		if fs.cur == nil {
			if err := fs.openNext(); err != nil {
				if err == io.EOF {
					if len(out) == 0 {
						return nil, io.EOF
					}
					return out, nil
				}
				return out, err
			}
		}
		buf := make([]byte, want-int64(len(out)))
		n, err := fs.cur.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			fs.cur.Close()
			fs.cur = nil
			continue
		}
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func (fs *FileSequence) openNext() error {
	if fs.opts.Count > 0 && fs.opened >= fs.opts.Count {
		return io.EOF
	}
	name := fmt.Sprintf(fs.opts.Pattern, fs.index)
	f, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return io.EOF
		}
		return err
	}
	fs.cur = f
	if fs.opts.NewFileHandler != nil {
		fs.opts.NewFileHandler(fs.opened, name, f)
	}
	fs.index += fs.opts.Increment
	fs.opened++
	return nil
}

// RawParser is a reference essence sub-parser for fixed-size, uninterpreted
// edit units (PCM-style), implemented to exercise the façade end to end
// (ST 377-1). It never does format sniffing: the caller supplies the
// edit-unit size and descriptor up front.
type RawParser struct {
	bytesPerEditUnit uint64
	descriptorClass  *Class
	src              io.ReaderAt
	size             int64
	pos              int64
	editRate         Rational
}

// NewRawParser creates a parser for fixed-size edit units of the given
// byte size, attaching descriptorClass (typically WaveAudioDescriptor or
// a similar concrete FileDescriptor subclass) to the stream it reports.
func NewRawParser(bytesPerEditUnit uint64, descriptorClass *Class) *RawParser {
	return &RawParser{bytesPerEditUnit: bytesPerEditUnit, descriptorClass: descriptorClass}
}

func (p *RawParser) IdentifyEssence(src io.ReaderAt, size int64) ([]EssenceStreamDescriptor, error) {
	if size <= 0 || size%int64(p.bytesPerEditUnit) != 0 {
		return nil, fmt.Errorf("essence: RawParser: size %d is not a multiple of edit unit size %d", size, p.bytesPerEditUnit)
	}
	p.src, p.size = src, size
	desc := NewObject(p.descriptorClass)
	return []EssenceStreamDescriptor{{StreamID: 0, Description: "raw fixed-size essence", Descriptor: desc}}, nil
}

func (p *RawParser) IdentifyWrappingOptions(stream EssenceStreamDescriptor) ([]WrappingOption, error) {
	return []WrappingOption{
		{UL: rawGCWrappingUL, ItemType: ItemTypeSound, ElementType: gcEssenceTypeByte(ItemTypeSound), Wrap: WrapClip, CanSlave: true, CanIndex: true, Description: "clip-wrapped raw essence"},
		{UL: rawGCWrappingUL, ItemType: ItemTypeSound, ElementType: gcEssenceTypeByte(ItemTypeSound), Wrap: WrapFrame, CanSlave: false, CanIndex: true, Description: "frame-wrapped raw essence"},
	}, nil
}

var rawGCWrappingUL = UL{0x06, 0x0E, 0x2B, 0x34, 0x04, 0x01, 0x01, 0x01, 0x0D, 0x01, 0x03, 0x01, 0x02, 0x06, 0x01, 0x00}

func (p *RawParser) Use(streamID int, wrapping WrappingOption) error {
	if streamID != 0 {
		return fmt.Errorf("essence: RawParser: unknown stream %d", streamID)
	}
	return nil
}

func (p *RawParser) SetEditRate(rate Rational) error {
	// Raw essence is defined purely by bytes-per-edit-unit, so any
	// caller-supplied rate is accepted here, whichever wrapping was chosen
	// (only the clip-wrapping option advertises CanSlave).
	p.editRate = rate
	return nil
}

func (p *RawParser) Read(count int) ([]byte, error) {
	want := int64(count) * int64(p.bytesPerEditUnit)
	remaining := p.size - p.pos
	if remaining <= 0 {
		return nil, io.EOF
	}
	if want > remaining {
		want = remaining
	}
	buf := make([]byte, want)
	n, err := p.src.ReadAt(buf, p.pos)
	p.pos += int64(n)
	if err != nil && err != io.EOF {
		return buf[:n], err
	}
	if int64(n) < want {
		return buf[:n], io.EOF
	}
	return buf, nil
}

func (p *RawParser) GetEssenceSource(count int) (EssenceSource, error) {
	return &rawParserSource{p: p}, nil
}

func (p *RawParser) Write(out io.Writer, count int) (int, error) {
	data, err := p.Read(count)
	if err != nil && err != io.EOF {
		return 0, err
	}
	n, werr := out.Write(data)
	if werr != nil {
		return n, werr
	}
	return n, err
}

func (p *RawParser) GetBytesPerEditUnit() uint64 { return p.bytesPerEditUnit }
func (p *RawParser) CurrentPosition() int64      { return p.pos / int64(p.bytesPerEditUnit) }

// rawParserSource adapts RawParser to the EssenceSource contract the
// generic-container/body writer pull against.
type rawParserSource struct{ p *RawParser }

func (s *rawParserSource) GetEssenceData(count int) ([]byte, error) { return s.p.Read(count) }
func (s *rawParserSource) BytesPerEditUnit() uint64                 { return s.p.bytesPerEditUnit }
