// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mxf

// Fuzz is a go-fuzz style entry point driving the whole-file parser over
// arbitrary input.
func Fuzz(data []byte) int {
	if _, err := OpenBytes(data, DefaultContext(), nil); err != nil {
		return 0
	}
	return 1
}
