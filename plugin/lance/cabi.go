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

// Package lance is the bridge to the vector-format sidecar. The surface
// is the four-function C ABI the sidecar exports — create, write-batch,
// close, destroy — with record batches crossing the boundary as C data
// interface structs by pointer.
//
// Ownership rule (contract-critical): WriteBatch TRANSFERS ownership of
// both structs to the sidecar. The caller must not invoke their release
// callbacks and must not free them afterwards; the sidecar invokes each
// release exactly once when its imports drop. Violating this was the
// root of a double-free, so the host wrapper marks every call site with
// an explicit hand-off.
package lance

import "unsafe"

// Status is the sidecar's return code.
type Status int32

// Sidecar status codes. StatusImportFailure historically meant the
// manual import steps were unimplemented; its absence is the observable
// proof that import works end to end.
const (
	StatusOK            Status = 0
	StatusNullPtr       Status = 1
	StatusSchemaMismatch Status = 2
	StatusEncodeFailure Status = 3
	StatusImportFailure Status = 4
)

// CArrowSchema mirrors struct ArrowSchema of the C data interface. The
// release member is a callable in this in-process rendition; layout and
// semantics (null release == consumed) follow the C contract.
type CArrowSchema struct {
	Format      *byte // null-terminated type format string
	Name        *byte
	Metadata    *byte
	Flags       int64
	NChildren   int64
	Children    **CArrowSchema
	Dictionary  *CArrowSchema
	Release     func(*CArrowSchema)
	PrivateData unsafe.Pointer
}

// CArrowArray mirrors struct ArrowArray.
type CArrowArray struct {
	Length      int64
	NullCount   int64
	Offset      int64
	NBuffers    int64
	NChildren   int64
	Buffers     *unsafe.Pointer // array of buffer pointers; slot 0 is validity
	Children    **CArrowArray
	Dictionary  *CArrowArray
	Release     func(*CArrowArray)
	PrivateData unsafe.Pointer
}

// ReleaseSchema invokes and clears the schema's release callback. Safe
// on an already-consumed struct.
func ReleaseSchema(s *CArrowSchema) {
	if s != nil && s.Release != nil {
		r := s.Release
		s.Release = nil
		r(s)
	}
}

// ReleaseArray invokes and clears the array's release callback.
func ReleaseArray(a *CArrowArray) {
	if a != nil && a.Release != nil {
		r := a.Release
		a.Release = nil
		r(a)
	}
}

// cstr renders a Go string as a null-terminated byte pointer.
func cstr(s string) *byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return &b[0]
}

// gostr reads a null-terminated string back.
func gostr(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}

// childSchemas views the children pointer array.
func childSchemas(s *CArrowSchema) []*CArrowSchema {
	if s.NChildren == 0 || s.Children == nil {
		return nil
	}
	return unsafe.Slice(s.Children, s.NChildren)
}

// childArrays views the children pointer array.
func childArrays(a *CArrowArray) []*CArrowArray {
	if a.NChildren == 0 || a.Children == nil {
		return nil
	}
	return unsafe.Slice(a.Children, a.NChildren)
}

// bufferAt returns buffer pointer i of the array.
func bufferAt(a *CArrowArray, i int) unsafe.Pointer {
	if a.Buffers == nil || int64(i) >= a.NBuffers {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Add(unsafe.Pointer(a.Buffers), uintptr(i)*unsafe.Sizeof(uintptr(0))))
}
