// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import "errors"

// Sentinel errors returned by the byte codec and KLV cursor.
var (
	// ErrBerSizeTooSmall is returned when a length does not fit in the
	// caller-requested fixed BER size.
	ErrBerSizeTooSmall = errors.New("mxf: BER size too small for value")

	// ErrBerTooLong is returned when a long-form BER length claims more
	// than 8 value bytes.
	ErrBerTooLong = errors.New("mxf: BER length encoding longer than 9 bytes")

	// ErrShortRead is returned when fewer bytes are available than requested.
	ErrShortRead = errors.New("mxf: short read")

	// ErrNoKLVKey is returned when no run-in terminator / KLV key is found
	// within the run-in search window.
	ErrNoKLVKey = errors.New("mxf: no KLV key found within run-in search window")

	// ErrInvalidKey is returned when a 16-byte key does not look like a
	// SMPTE registered UL (byte 0-3 prefix mismatch).
	ErrInvalidKey = errors.New("mxf: invalid universal label")

	// ErrFillerTooSmall is returned when a filler smaller than the
	// minimum encodable KLV (17 bytes) is requested.
	ErrFillerTooSmall = errors.New("mxf: filler size below minimum KLV size")

	// ErrFillerTooLarge is returned when a computed filler would exceed
	// the maximum representable length (2^24 - 1, per ST 377-1).
	ErrFillerTooLarge = errors.New("mxf: filler size exceeds maximum")
)

// Sentinel errors returned by the type/class registries.
var (
	ErrTypeExists      = errors.New("mxf: type already registered")
	ErrTypeNotFound    = errors.New("mxf: type not found")
	ErrClassNotFound   = errors.New("mxf: class not found")
	ErrInvalidSize     = errors.New("mxf: invalid size for type definition")
	ErrAbstractClassUL = errors.New("mxf: concrete class requires a key")
	ErrRegistryFrozen  = errors.New("mxf: registry mutated after first use")
	ErrPrimerConflict  = errors.New("mxf: local tag already mapped to a different UL")
)

// Sentinel errors returned by the object graph and reference resolver
// .
var (
	ErrStrongRefCycle    = errors.New("mxf: strong reference cycle on write")
	ErrDanglingStrongRef = errors.New("mxf: strong reference has no target on write")
	ErrDoubleStrongRef   = errors.New("mxf: target already strongly referenced")
	ErrLocalTagDuplicate = errors.New("mxf: local tag repeated within one set instance")
)

// Sentinel errors returned by the index engine.
var (
	ErrIndexOutOfRange   = errors.New("mxf: edit unit has no corresponding index entry")
	ErrNotCBR            = errors.New("mxf: index table is not CBR")
	ErrSubItemOutOfRange = errors.New("mxf: sub-item index beyond delta count")
)

// Sentinel errors returned by the file model / partition / RIP.
var (
	ErrNoRIP            = errors.New("mxf: file has no Random Index Pack")
	ErrBadRIPKey        = errors.New("mxf: trailing bytes are not a valid RIP key")
	ErrBadPartitionPack = errors.New("mxf: malformed partition pack")
)

// Sentinel errors returned by policy configuration.
var (
	ErrPolicyViolation      = errors.New("mxf: partition sharing policy violation")
	ErrWrappingNotSupported = errors.New("mxf: wrapping option does not support requested edit rate")
)
