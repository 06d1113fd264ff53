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

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Builder accumulates column values and emits record batches of a
// configured size. It is single-producer: one goroutine appends, cuts and
// hands batches off.
//
// Invariants:
//   - all column builders hold the same row count between cuts;
//   - builders keep their capacity after a cut (no hidden allocation
//     between batches);
//   - the schema is frozen at construction.
type Builder struct {
	schema    *arrow.Schema
	mem       memory.Allocator
	rb        *array.RecordBuilder
	batchRows int
	debug     bool
}

// NewBuilder creates a Builder for the schema. Only the pipeline's logical
// types are accepted: int32, int64, float64, utf8 and fixed-size binary.
func NewBuilder(schema *arrow.Schema, opts Options) (*Builder, error) {
	for i, f := range schema.Fields() {
		switch f.Type.ID() {
		case arrow.INT32, arrow.INT64, arrow.FLOAT64, arrow.STRING, arrow.FIXED_SIZE_BINARY:
		default:
			return nil, fmt.Errorf("%w: field %d (%s) has type %s", ErrUnsupportedCol, i, f.Name, f.Type)
		}
	}
	rows := opts.BatchRows
	if rows <= 0 {
		rows = DefaultBatchRows
	}
	mem := mustMem(opts.Mem)
	b := &Builder{
		schema:    schema,
		mem:       mem,
		rb:        array.NewRecordBuilder(mem, schema),
		batchRows: rows,
		debug:     opts.DebugChecks,
	}
	b.rb.Reserve(rows)
	return b, nil
}

// Schema reports the frozen schema.
func (b *Builder) Schema() *arrow.Schema { return b.schema }

// BatchRows reports the configured cut size.
func (b *Builder) BatchRows() int { return b.batchRows }

// Len reports the number of rows currently buffered.
func (b *Builder) Len() int {
	if b.schema.NumFields() == 0 {
		return 0
	}
	return b.rb.Field(0).Len()
}

// Full reports whether the buffered row count has reached the cut size.
func (b *Builder) Full() bool { return b.Len() >= b.batchRows }

// Release frees builder storage. The Builder must not be used afterwards.
func (b *Builder) Release() { b.rb.Release() }

// Int32Col returns the typed handle for an int32 column. Converters fetch
// handles once per relation and append through them on the per-row path.
func (b *Builder) Int32Col(i int) (*array.Int32Builder, error) {
	h, ok := b.rb.Field(i).(*array.Int32Builder)
	if !ok {
		return nil, typeErr(i, Int32, b.schema.Field(i).Type)
	}
	return h, nil
}

// Int64Col returns the typed handle for an int64 column.
func (b *Builder) Int64Col(i int) (*array.Int64Builder, error) {
	h, ok := b.rb.Field(i).(*array.Int64Builder)
	if !ok {
		return nil, typeErr(i, Int64, b.schema.Field(i).Type)
	}
	return h, nil
}

// Float64Col returns the typed handle for a float64 column.
func (b *Builder) Float64Col(i int) (*array.Float64Builder, error) {
	h, ok := b.rb.Field(i).(*array.Float64Builder)
	if !ok {
		return nil, typeErr(i, Float64, b.schema.Field(i).Type)
	}
	return h, nil
}

// StringCol returns the typed handle for a utf8 column.
func (b *Builder) StringCol(i int) (*array.StringBuilder, error) {
	h, ok := b.rb.Field(i).(*array.StringBuilder)
	if !ok {
		return nil, typeErr(i, String, b.schema.Field(i).Type)
	}
	return h, nil
}

// FixedSizeBinaryCol returns the typed handle for a fixed-size binary
// column.
func (b *Builder) FixedSizeBinaryCol(i int) (*array.FixedSizeBinaryBuilder, error) {
	h, ok := b.rb.Field(i).(*array.FixedSizeBinaryBuilder)
	if !ok {
		return nil, fmt.Errorf("%w: column %d is not fixed-size binary (%s)",
			ErrTypeMismatch, i, b.schema.Field(i).Type)
	}
	return h, nil
}

// ColumnSpans carries one contiguous slice per column for the span
// ingestion path. Exactly one slice per schema field, in schema order.
// Allowed element types: []int32, []int64, []float64, []string, [][]byte.
type ColumnSpans []any

// AppendColumns appends a whole batch worth of values, one span per
// column. Values are copied into builder storage but the per-row call
// overhead of the row path is gone. All spans must have equal length.
func (b *Builder) AppendColumns(spans ColumnSpans) error {
	if len(spans) != b.schema.NumFields() {
		return fmt.Errorf("%w: got %d spans for %d fields", ErrColumnCount, len(spans), b.schema.NumFields())
	}
	n := -1
	for i, s := range spans {
		var sn int
		switch v := s.(type) {
		case []int32:
			sn = len(v)
		case []int64:
			sn = len(v)
		case []float64:
			sn = len(v)
		case []string:
			sn = len(v)
		case [][]byte:
			sn = len(v)
		default:
			return fmt.Errorf("%w: span %d has type %T", ErrTypeMismatch, i, s)
		}
		if n == -1 {
			n = sn
		} else if sn != n {
			return fmt.Errorf("%w: span %d has %d rows, want %d", ErrRaggedColumns, i, sn, n)
		}
	}
	for i, s := range spans {
		switch v := s.(type) {
		case []int32:
			h, err := b.Int32Col(i)
			if err != nil {
				return err
			}
			h.AppendValues(v, nil)
		case []int64:
			h, err := b.Int64Col(i)
			if err != nil {
				return err
			}
			h.AppendValues(v, nil)
		case []float64:
			h, err := b.Float64Col(i)
			if err != nil {
				return err
			}
			h.AppendValues(v, nil)
		case []string:
			h, err := b.StringCol(i)
			if err != nil {
				return err
			}
			h.AppendValues(v, nil)
		case [][]byte:
			h, err := b.FixedSizeBinaryCol(i)
			if err != nil {
				return err
			}
			h.AppendValues(v, nil)
		}
	}
	return nil
}

// Cut produces a batch from the buffered rows and resets the builders,
// keeping their capacity. Cutting an empty builder returns a zero-row
// batch.
func (b *Builder) Cut() (*Batch, error) {
	n := b.Len()
	for i := 1; i < b.schema.NumFields(); i++ {
		if b.rb.Field(i).Len() != n {
			return nil, fmt.Errorf("%w: column 0 has %d rows, column %d has %d",
				ErrRaggedColumns, n, i, b.rb.Field(i).Len())
		}
	}
	rec := b.rb.NewRecord()
	// NewRecord resets the builders; re-reserve so the next batch appends
	// into pre-sized buffers.
	b.rb.Reserve(b.batchRows)
	return &Batch{rec: rec}, nil
}
