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

package lance

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow"
)

// exportHolder pins the record and every derived allocation until the
// root release callback runs. It also counts release invocations so the
// exactly-once ownership rule is checkable.
type exportHolder struct {
	rec         arrow.Record
	released    atomic.Int32
	schemaFreed atomic.Int32
}

func (h *exportHolder) releaseRoot() {
	if h.released.Add(1) == 1 {
		h.rec.Release()
	}
}

// formatFor renders the C data interface format string of a type.
func formatFor(dt arrow.DataType) (string, error) {
	switch dt.ID() {
	case arrow.INT32:
		return "i", nil
	case arrow.INT64:
		return "l", nil
	case arrow.FLOAT64:
		return "g", nil
	case arrow.STRING:
		return "u", nil
	case arrow.FIXED_SIZE_BINARY:
		return fmt.Sprintf("w:%d", dt.(*arrow.FixedSizeBinaryType).ByteWidth), nil
	}
	return "", fmt.Errorf("lance: no C format for %s", dt)
}

// ExportRecord builds the C data interface pair for a record. The record
// is retained; the root array's release callback (invoked by the
// consumer, exactly once) drops it. Child structs are owned by the root:
// the consumer must not release them individually.
func ExportRecord(rec arrow.Record) (*CArrowArray, *CArrowSchema, error) {
	rec.Retain()
	h := &exportHolder{rec: rec}

	sch := rec.Schema()
	nf := sch.NumFields()
	childSch := make([]*CArrowSchema, nf)
	childArr := make([]*CArrowArray, nf)

	for i := 0; i < nf; i++ {
		f := sch.Field(i)
		format, err := formatFor(f.Type)
		if err != nil {
			rec.Release()
			return nil, nil, err
		}
		childSch[i] = &CArrowSchema{
			Format: cstr(format),
			Name:   cstr(f.Name),
			// children are consumed with the root; their release is a
			// no-op marker so a stray per-child release cannot double-free
			Release: func(s *CArrowSchema) {},
		}

		data := rec.Column(i).Data()
		bufs := data.Buffers()
		ptrs := make([]unsafe.Pointer, len(bufs))
		for bi, b := range bufs {
			if b != nil && b.Len() > 0 {
				ptrs[bi] = unsafe.Pointer(&b.Bytes()[0])
			}
		}
		ca := &CArrowArray{
			Length:    int64(data.Len()),
			NullCount: int64(data.NullN()),
			NBuffers:  int64(len(ptrs)),
			Release:   func(a *CArrowArray) {},
		}
		if len(ptrs) > 0 {
			ca.Buffers = &ptrs[0]
		}
		childArr[i] = ca
	}

	rootSchema := &CArrowSchema{
		Format:      cstr("+s"),
		Name:        cstr(""),
		NChildren:   int64(nf),
		Release:     func(s *CArrowSchema) { h.schemaFreed.Add(1) },
		PrivateData: unsafe.Pointer(h),
	}
	if nf > 0 {
		rootSchema.Children = &childSch[0]
	}

	rootBufs := []unsafe.Pointer{nil} // struct validity, absent
	root := &CArrowArray{
		Length:      rec.NumRows(),
		NBuffers:    1,
		Buffers:     &rootBufs[0],
		NChildren:   int64(nf),
		PrivateData: unsafe.Pointer(h),
	}
	if nf > 0 {
		root.Children = &childArr[0]
	}
	root.Release = func(a *CArrowArray) { h.releaseRoot() }

	return root, rootSchema, nil
}

// exportReleaseCount is a test hook: how many times the root release has
// run for an exported array.
func exportReleaseCount(a *CArrowArray) int32 {
	h := (*exportHolder)(a.PrivateData)
	return h.released.Load()
}

// exportSchemaReleaseCount is the matching hook for the schema struct.
func exportSchemaReleaseCount(s *CArrowSchema) int32 {
	h := (*exportHolder)(s.PrivateData)
	return h.schemaFreed.Load()
}
