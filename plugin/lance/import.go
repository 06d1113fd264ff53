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
	"strconv"
	"strings"
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Manual import of the C data interface. The ambient columnar library
// version exports these structs but does not import them, so the sidecar
// reads the raw layout itself:
//
//  1. read length / null_count / n_buffers / n_children off the structs,
//  2. fetch child i of the root array for schema field i,
//  3. fixed-width columns: buffer 0 is the optional validity bitmap,
//     buffer 1 the packed values; the typed array data is built directly
//     over those pointers, validity passed as its own buffer slot with
//     the null count carried separately,
//  4. utf8 columns: buffer 1 is int32 offsets (length+1 entries), buffer
//     2 the concatenated bytes sized by the last offset,
//  5. assemble the record, invoke both release callbacks, hand the
//     record to the accumulator.
//
// The wrapped views alias the exporter's buffers; the runtime keeps the
// backing memory reachable through them, so releasing the host's
// retention in step 5 is safe here, where it would be a use-after-free
// in the C rendition.

// typeOfFormat parses the format strings this pipeline produces.
func typeOfFormat(format string) (arrow.DataType, error) {
	switch format {
	case "i":
		return arrow.PrimitiveTypes.Int32, nil
	case "l":
		return arrow.PrimitiveTypes.Int64, nil
	case "g":
		return arrow.PrimitiveTypes.Float64, nil
	case "u":
		return arrow.BinaryTypes.String, nil
	}
	if w, ok := strings.CutPrefix(format, "w:"); ok {
		n, err := strconv.Atoi(w)
		if err != nil {
			return nil, fmt.Errorf("lance: bad fixed width %q", format)
		}
		return &arrow.FixedSizeBinaryType{ByteWidth: n}, nil
	}
	return nil, fmt.Errorf("lance: unsupported format %q", format)
}

// importSchema rebuilds the Arrow schema from the exported struct.
func importSchema(cs *CArrowSchema) (*arrow.Schema, error) {
	if gostr(cs.Format) != "+s" {
		return nil, fmt.Errorf("lance: root format %q, want +s", gostr(cs.Format))
	}
	children := childSchemas(cs)
	fields := make([]arrow.Field, len(children))
	for i, ch := range children {
		dt, err := typeOfFormat(gostr(ch.Format))
		if err != nil {
			return nil, err
		}
		fields[i] = arrow.Field{Name: gostr(ch.Name), Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

// wrapBuffer views count bytes at p as an arrow buffer without copying.
func wrapBuffer(p unsafe.Pointer, count int) *memory.Buffer {
	if p == nil || count == 0 {
		return nil
	}
	return memory.NewBufferBytes(unsafe.Slice((*byte)(p), count))
}

// importColumn builds one column's array data over the exported buffers.
func importColumn(dt arrow.DataType, ca *CArrowArray) (arrow.Array, error) {
	n := int(ca.Length)
	validity := wrapBuffer(bufferAt(ca, 0), (n+7)/8)
	switch dt.ID() {
	case arrow.INT32, arrow.INT64, arrow.FLOAT64, arrow.FIXED_SIZE_BINARY:
		if ca.NBuffers < 2 {
			return nil, fmt.Errorf("lance: fixed-width column has %d buffers", ca.NBuffers)
		}
		var width int
		switch dt.ID() {
		case arrow.INT32:
			width = 4
		case arrow.INT64, arrow.FLOAT64:
			width = 8
		default:
			width = dt.(*arrow.FixedSizeBinaryType).ByteWidth
		}
		values := wrapBuffer(bufferAt(ca, 1), n*width)
		data := array.NewData(dt, n, []*memory.Buffer{validity, values}, nil, int(ca.NullCount), int(ca.Offset))
		defer data.Release()
		return array.MakeFromData(data), nil
	case arrow.STRING:
		if ca.NBuffers < 3 {
			return nil, fmt.Errorf("lance: utf8 column has %d buffers", ca.NBuffers)
		}
		offPtr := bufferAt(ca, 1)
		if offPtr == nil {
			// zero-row string column
			data := array.NewData(dt, n, []*memory.Buffer{validity, nil, nil}, nil, int(ca.NullCount), int(ca.Offset))
			defer data.Release()
			return array.MakeFromData(data), nil
		}
		offsets := unsafe.Slice((*int32)(offPtr), n+1)
		offBuf := wrapBuffer(offPtr, (n+1)*4)
		dataBuf := wrapBuffer(bufferAt(ca, 2), int(offsets[n]))
		data := array.NewData(dt, n, []*memory.Buffer{validity, offBuf, dataBuf}, nil, int(ca.NullCount), int(ca.Offset))
		defer data.Release()
		return array.MakeFromData(data), nil
	}
	return nil, fmt.Errorf("lance: cannot import %s", dt)
}

// ImportRecord performs the manual import and consumes both structs:
// their release callbacks have run exactly once when it returns without
// error.
func ImportRecord(ca *CArrowArray, cs *CArrowSchema) (arrow.Record, error) {
	sch, err := importSchema(cs)
	if err != nil {
		return nil, err
	}
	children := childArrays(ca)
	if len(children) != sch.NumFields() {
		return nil, fmt.Errorf("lance: %d array children for %d fields", len(children), sch.NumFields())
	}
	cols := make([]arrow.Array, len(children))
	for i, ch := range children {
		col, err := importColumn(sch.Field(i).Type, ch)
		if err != nil {
			for _, c := range cols[:i] {
				c.Release()
			}
			return nil, err
		}
		cols[i] = col
	}
	rec := array.NewRecord(sch, cols, ca.Length)
	for _, c := range cols {
		c.Release()
	}
	ReleaseArray(ca)
	ReleaseSchema(cs)
	return rec, nil
}
