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

package tpchgen

import (
	"fmt"
	"hash/fnv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// pin keeps a wrapped vector reachable for the lifetime of its batch and,
// when debug checks are on, detects writes to the vector after the wrap.
type pin struct {
	ref  any
	data []byte // the wrapped storage, viewed as bytes
	sum  uint64 // 0 when debug checks are off
}

func (p *pin) verify() {
	if p.sum == 0 {
		return
	}
	if s := sampleSum(p.data); s != p.sum {
		panic("tpchgen: wrapped vector mutated between wrap and batch release")
	}
}

// sampleSum hashes the head, tail and length of the storage. Cheap enough
// to run per batch in debug builds, strong enough to catch in-place writes
// at either end. The length hashed is that of the pinned view, so a resize
// of the caller's slice is not seen.
func sampleSum(b []byte) uint64 {
	h := fnv.New64a()
	var n8 [8]byte
	for i := 0; i < 8; i++ {
		n8[i] = byte(len(b) >> (8 * i))
	}
	h.Write(n8[:])
	if len(b) <= 128 {
		h.Write(b)
	} else {
		h.Write(b[:64])
		h.Write(b[len(b)-64:])
	}
	s := h.Sum64()
	if s == 0 {
		s = 1
	}
	return s
}

// WrapColumns builds a batch whose fixed-width column buffers are the
// caller's vectors, with no copy. One vector per schema field, in schema
// order; allowed element types are []int32, []int64 and []float64 for the
// zero-copy columns, plus []string, which has non-contiguous storage and
// therefore falls back to the span path (values copied once).
//
// The returned batch pins every wrapped vector: the caller may drop its
// own reference, but must not resize or mutate a wrapped vector until the
// batch is released.
func (b *Builder) WrapColumns(vectors ColumnSpans) (*Batch, error) {
	if len(vectors) != b.schema.NumFields() {
		return nil, fmt.Errorf("%w: got %d vectors for %d fields", ErrColumnCount, len(vectors), b.schema.NumFields())
	}
	rows := -1
	for i, v := range vectors {
		var n int
		switch vv := v.(type) {
		case []int32:
			n = len(vv)
		case []int64:
			n = len(vv)
		case []float64:
			n = len(vv)
		case []string:
			n = len(vv)
		default:
			return nil, fmt.Errorf("%w: vector %d has type %T", ErrTypeMismatch, i, v)
		}
		if rows == -1 {
			rows = n
		} else if n != rows {
			return nil, fmt.Errorf("%w: vector %d has %d rows, want %d", ErrRaggedColumns, i, n, rows)
		}
	}

	cols := make([]arrow.Array, len(vectors))
	pins := make([]pin, 0, len(vectors))
	release := func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}
	for i, v := range vectors {
		f := b.schema.Field(i)
		switch vv := v.(type) {
		case []int32:
			if f.Type.ID() != arrow.INT32 {
				release()
				return nil, typeErr(i, Int32, f.Type)
			}
			bs := arrow.Int32Traits.CastToBytes(vv)
			cols[i] = wrapFixed(f.Type, len(vv), bs)
			pins = append(pins, b.newPin(vv, bs))
		case []int64:
			if f.Type.ID() != arrow.INT64 {
				release()
				return nil, typeErr(i, Int64, f.Type)
			}
			bs := arrow.Int64Traits.CastToBytes(vv)
			cols[i] = wrapFixed(f.Type, len(vv), bs)
			pins = append(pins, b.newPin(vv, bs))
		case []float64:
			if f.Type.ID() != arrow.FLOAT64 {
				release()
				return nil, typeErr(i, Float64, f.Type)
			}
			bs := arrow.Float64Traits.CastToBytes(vv)
			cols[i] = wrapFixed(f.Type, len(vv), bs)
			pins = append(pins, b.newPin(vv, bs))
		case []string:
			if f.Type.ID() != arrow.STRING {
				release()
				return nil, typeErr(i, String, f.Type)
			}
			sb := array.NewStringBuilder(b.mem)
			sb.AppendValues(vv, nil)
			cols[i] = sb.NewStringArray()
			sb.Release()
		}
	}

	rec := array.NewRecord(b.schema, cols, int64(rows))
	// NewRecord retains the columns; drop our references.
	release()
	return &Batch{rec: rec, pins: pins}, nil
}

func (b *Builder) newPin(ref any, data []byte) pin {
	p := pin{ref: ref, data: data}
	if b.debug {
		p.sum = sampleSum(data)
	}
	return p
}

// wrapFixed builds a fixed-width array directly over the caller's storage.
// Buffer slot 0 is the absent validity bitmap; slot 1 is the packed
// values. memory.NewBufferBytes does not copy.
func wrapFixed(dt arrow.DataType, n int, bs []byte) arrow.Array {
	buf := memory.NewBufferBytes(bs)
	data := array.NewData(dt, n, []*memory.Buffer{nil, buf}, nil, 0, 0)
	defer data.Release()
	return array.MakeFromData(data)
}
