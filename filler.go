// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

import "fmt"

// FillerKey is the canonical SMPTE UL identifying a KLVFill item. Its value
// is always zeros (ST 377-1 "Filler").
var FillerKey = UL{0x06, 0x0E, 0x2B, 0x34, 0x01, 0x01, 0x01, 0x01, 0x03, 0x01, 0x02, 0x10, 0x01, 0x00, 0x00, 0x00}

// MinFillerSize is the smallest KLV that can represent a filler with a
// short-form BER length: a 16-byte key plus a 1-byte zero length
// (ST 377-1).
const MinFillerSize = 17

// MinFillerSizeForcedBER is the smallest filler encodable when the BER
// length field is forced to 4 bytes.
const MinFillerSizeForcedBER = 20

// MaxFillerSize is the largest filler the writer will ever emit; long-form
// BER with a 4-byte size field caps the representable length at 2^24-1
// (ST 377-1).
const MaxFillerSize = 1<<24 - 1

// FillerSize computes the number of bytes a filler KLV must occupy so the
// stream position immediately following it lands on the next multiple of
// kag (the KLV Alignment Grid), starting from currentPos. extra bytes may
// be requested on top of the minimum gap to leave headroom for a
// subsequently-patched header (ST 377-1). forceFourByteBER requires a 4-byte BER length field even
// when the value would fit in fewer bytes, which raises the minimum
// representable filler to 20 bytes.
func FillerSize(currentPos, kag, extra int64, forceFourByteBER bool) (int64, error) {
	if kag <= 0 {
		kag = 1
	}
	minSize := int64(MinFillerSize)
	if forceFourByteBER {
		minSize = MinFillerSizeForcedBER
	}

	gap := kag - currentPos%kag
	if gap == kag {
		gap = 0
	}
	if gap == 0 && extra == 0 {
		return 0, nil
	}
	size := gap
	for size < gap+extra || size < minSize {
		size += kag
	}
	if size > MaxFillerSize {
		return 0, fmt.Errorf("filler: %w", ErrFillerTooLarge)
	}
	return size, nil
}

// BuildFiller returns the raw bytes of a filler KLV of exactly totalSize
// bytes (key + length + zeroed value), for a size previously computed by
// FillerSize with the same forceFourByteBER flag.
func BuildFiller(totalSize int64, forceFourByteBER bool) ([]byte, error) {
	minSize := int64(MinFillerSize)
	if forceFourByteBER {
		minSize = MinFillerSizeForcedBER
	}
	if totalSize < minSize {
		return nil, fmt.Errorf("filler: %w", ErrFillerTooSmall)
	}
	if totalSize > MaxFillerSize {
		return nil, fmt.Errorf("filler: %w", ErrFillerTooLarge)
	}

	berSize := 0
	if forceFourByteBER {
		berSize = 4
	}
	valueLen := totalSize - 16 - int64(BERLengthSize(uint64(totalSize-16)))
	if forceFourByteBER {
		valueLen = totalSize - 16 - 4
	} else {
		// Take the largest valueLen with 16 + BERLengthSize(valueLen) +
		// valueLen <= totalSize, then size the length field to fill the
		// rest; where no shortest encoding fits exactly (e.g. 145 bytes)
		// the length field is one byte wider than the shortest form.
		valueLen = totalSize - 17
		for valueLen > 0 && int64(BERLengthSize(uint64(valueLen)))+valueLen > totalSize-16 {
			valueLen--
		}
		berSize = int(totalSize - 16 - valueLen)
	}
	if valueLen < 0 {
		return nil, fmt.Errorf("filler: %w", ErrFillerTooSmall)
	}

	lenBytes, err := EncodeBER(uint64(valueLen), berSize)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, totalSize)
	out = append(out, FillerKey[:]...)
	out = append(out, lenBytes...)
	out = append(out, make([]byte, valueLen)...)
	return out, nil
}
