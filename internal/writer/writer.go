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

// Package writer defines the uniform writer contract and the flat-file
// format backends (CSV, Parquet, Arrow IPC). Lakehouse table writers and
// the FFI-bridged vector format live in their own packages and implement
// the same contract.
package writer

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"

	"tpchgen"
	"tpchgen/internal/uring"
)

var (
	// ErrSchemaLocked reports a WriteBatch whose schema differs from the
	// first batch's. Programmer error; fatal for the writer.
	ErrSchemaLocked = errors.New("writer: schema locked by first batch")

	// ErrClosed reports a write after Close.
	ErrClosed = errors.New("writer: closed")

	// ErrEncoding reports non-UTF-8 field content or an encoder overflow.
	ErrEncoding = errors.New("writer: encoding error")
)

// Writer is the uniform contract every backend implements: open once,
// absorb batches, close (idempotent), report counters. WriteBatch takes
// ownership of the batch and releases it once the format layer has
// absorbed it.
type Writer interface {
	Open(path string, schema *arrow.Schema, opts Options) error
	WriteBatch(b *tpchgen.Batch) error
	Close() error
	Rows() int64
	Bytes() int64
}

// Options carries the recognized writer knobs. Backends ignore options
// that do not apply to them.
type Options struct {
	// Compression is one of none, snappy, zstd, lz4, zlib
	// (format-dependent subset).
	Compression string
	// RowGroupRows bounds row groups for columnar formats.
	RowGroupRows int64
	// BatchSizeRows is the builder batch size the writer prefers.
	BatchSizeRows int
	// DirectIO opens the CSV output with direct I/O and aligned buffers.
	DirectIO bool
	// FormatVersion is carried for the lakehouse formats, but no backend
	// reads it: paimon always writes snapshot version 3 and iceberg always
	// writes format-version 1.
	FormatVersion int
	// Async, when non-nil, routes CSV file writes through the shared
	// async context.
	Async *uring.Shared
}

// Counters is the shared rows/bytes accounting embedded by backends.
type Counters struct {
	rows  atomic.Int64
	bytes atomic.Int64
}

// Rows reports rows written.
func (c *Counters) Rows() int64 { return c.rows.Load() }

// Bytes reports bytes written.
func (c *Counters) Bytes() int64 { return c.bytes.Load() }

// AddRows accumulates the row counter.
func (c *Counters) AddRows(n int64) { c.rows.Add(n) }

// AddBytes accumulates the byte counter.
func (c *Counters) AddBytes(n int64) { c.bytes.Add(n) }

// schemaLock implements the first-batch schema lock shared by backends.
type schemaLock struct {
	locked *arrow.Schema
}

func (l *schemaLock) check(s *arrow.Schema) error {
	if l.locked == nil {
		l.locked = s
		return nil
	}
	if !l.locked.Equal(s) {
		return fmt.Errorf("%w: got %s", ErrSchemaLocked, s)
	}
	return nil
}

// countingWriter counts bytes the format library flushes to the sink.
type countingWriter struct {
	w io.Writer
	c *Counters
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.c.AddBytes(int64(n))
	return n, err
}
