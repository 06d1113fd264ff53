// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cstr provides the portable helpers for the emitter's
// C-style row buffers: null-terminated length and string extraction.
// bytes.IndexByte dispatches to the per-target vector kernels, so these
// stay fast without any build-tag selection of our own.
package cstr

import "bytes"

// Len returns the length of the null-terminated string in buf. A buffer
// with no terminator is treated as fully used. This is the only safe way
// to size emitter strings whose struct length fields are not documented
// as initialized.
func Len(buf []byte) int {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return i
	}
	return len(buf)
}

// String copies the null-terminated string out of buf.
func String(buf []byte) string {
	return string(buf[:Len(buf)])
}

// StringN copies exactly n bytes out of buf, for fields whose length the
// emitter does document as initialized. n is clamped to the buffer.
func StringN(buf []byte, n int) string {
	if n < 0 {
		n = 0
	}
	if n > len(buf) {
		n = len(buf)
	}
	return string(buf[:n])
}
