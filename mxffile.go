// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import (
	"fmt"
	"io"
	"os"
	"sync"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/orcaman/writerseeker"

	"github.com/go-mxf/mxf/log"
)

// Options configures how a File is opened and parsed. The KAG, run-in,
// RIP, and version-10 settings are points where real-world files disagree;
// they are exposed here rather than decided silently for every caller.
type Options struct {
	// KAGSize is the default KLV Alignment Grid used when writing, and
	// the value assumed when a partition pack doesn't (yet) specify one.
	KAGSize uint32

	// RunInLimit caps how many bytes FindRunIn will scan (default
	// MaxRunIn, ST 377-1).
	RunInLimit int64

	// RIPOrder lists the RIP-acquisition strategies to try, in order
	// (ST 377-1: ReadRIP, ScanRIP, BuildRIP). Empty means the
	// default order.
	RIPOrder []string

	// Version10HeaderByteCount selects the version-10 interpretation
	// resolved in DESIGN.md: when true, a leading filler
	// immediately after the partition pack is treated as excluded from
	// HeaderByteCount if doing so realigns to KAG (the BuildRIP
	// heuristic in rip.go); when false, HeaderByteCount is trusted as
	// written.
	Version10HeaderByteCount bool

	// Logger overrides the default stderr logger.
	Logger log.Logger
}

func (o *Options) withDefaults() *Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.KAGSize == 0 {
		out.KAGSize = 1
	}
	if out.RunInLimit == 0 {
		out.RunInLimit = MaxRunIn
	}
	if len(out.RIPOrder) == 0 {
		out.RIPOrder = []string{"read", "scan", "build"}
	}
	return &out
}

// File is an open, disk-backed MXF file. The read path maps the
// underlying descriptor read-only; writes go through a plain *os.File
// instead, since mmap-go offers no growable read/write mapping.
type File struct {
	opts   *Options
	Logger *log.Helper

	f    *os.File
	ro   mmap.MMap // present when opened read-only via Open
	size int64

	wmu  sync.Mutex
	wf   *os.File // present when opened for writing via Create
	woff int64

	rpos int64 // sequential read cursor for Read/Seek
}

// Open memory-maps name read-only for parsing (ST 377-1).
func Open(name string, opts *Options) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	var data mmap.MMap
	if info.Size() > 0 {
		data, err = mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			f.Close()
			return nil, err
		}
	}
	file := &File{opts: opts.withDefaults(), f: f, ro: data, size: info.Size()}
	file.Logger = log.NewHelper(file.resolveLogger())
	return file, nil
}

// Create opens name for writing, truncating any existing content.
func Create(name string, opts *Options) (*File, error) {
	wf, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	file := &File{opts: opts.withDefaults(), wf: wf}
	file.Logger = log.NewHelper(file.resolveLogger())
	return file, nil
}

func (file *File) resolveLogger() log.Logger {
	if file.opts.Logger != nil {
		return file.opts.Logger
	}
	return log.NewStdLogger(os.Stderr)
}

// Close releases the mapping and/or underlying descriptor.
func (file *File) Close() error {
	var err error
	if file.ro != nil {
		err = file.ro.Unmap()
	}
	if file.f != nil {
		if cerr := file.f.Close(); err == nil {
			err = cerr
		}
	}
	if file.wf != nil {
		if cerr := file.wf.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Size returns the mapped file's length.
func (file *File) Size() int64 { return file.size }

// Read reads sequentially from the file's read cursor, advancing it.
// Everything else in this package drives reads through ReadAt on a
// Cursor; Read/Seek exist to satisfy the Stream contract for callers
// that want an io.Reader view.
func (file *File) Read(p []byte) (int, error) {
	n, err := file.ReadAt(p, file.rpos)
	file.rpos += int64(n)
	return n, err
}

// Seek repositions the sequential read cursor.
func (file *File) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		file.rpos = offset
	case io.SeekCurrent:
		file.rpos += offset
	case io.SeekEnd:
		file.rpos = file.size + offset
	default:
		return 0, fmt.Errorf("mxffile: invalid whence %d", whence)
	}
	return file.rpos, nil
}

// ReadAt reads len(p) bytes starting at off from the read-only mapping.
func (file *File) ReadAt(p []byte, off int64) (int, error) {
	if file.ro == nil {
		return 0, fmt.Errorf("mxffile: %w", ErrShortRead)
	}
	if off < 0 || off >= int64(len(file.ro)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, file.ro[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Write appends to the file opened via Create, at the current write
// offset; the write path is a pure sequential append.
func (file *File) Write(p []byte) (int, error) {
	file.wmu.Lock()
	defer file.wmu.Unlock()
	if file.wf == nil {
		return 0, fmt.Errorf("mxffile: file not opened for writing")
	}
	n, err := file.wf.Write(p)
	file.woff += int64(n)
	return n, err
}

// WriteOffset reports how many bytes have been written so far, used by
// the body/GC writers to compute ThisPartition and KAG alignment without
// a separate Tell() syscall.
func (file *File) WriteOffset() int64 { return file.woff }

// MemoryFile is the in-memory analogue of File, backing round-trip
// fixtures that shouldn't touch disk. It wraps writerseeker.WriterSeeker
// (sequential append plus absolute seeks) and adds the random ReadAt a
// KLV Cursor needs.
type MemoryFile struct {
	mu sync.Mutex
	ws writerseeker.WriterSeeker
}

// NewMemoryFile creates an empty in-memory file.
func NewMemoryFile() *MemoryFile { return &MemoryFile{} }

// Write appends p at the writer's current position.
func (m *MemoryFile) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ws.Write(p)
}

// Seek repositions the writer/reader cursor.
func (m *MemoryFile) Seek(offset int64, whence int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ws.Seek(offset, whence)
}

// Read reads sequentially from the writer's current position.
func (m *MemoryFile) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ws.Reader().Read(p)
}

// ReadAt reads len(p) bytes at an absolute offset without disturbing the
// sequential read/write cursor. The end-of-buffer comparison here is
// strict-less-than: off == size is a legitimate zero-byte read, not an
// out-of-bounds one.
func (m *MemoryFile) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.ws.BytesReader()
	size := r.Size()
	if off < 0 {
		return 0, fmt.Errorf("mxffile: negative offset")
	}
	if off > size {
		return 0, io.EOF
	}
	if off == size {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	if _, err := r.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return r.Read(p)
}

// Len returns the number of bytes written so far.
func (m *MemoryFile) Len() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ws.BytesReader().Size()
}

// Bytes returns a copy of everything written so far.
func (m *MemoryFile) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.ws.BytesReader()
	out := make([]byte, r.Size())
	r.Seek(0, io.SeekStart)
	io.ReadFull(r, out)
	return out
}
