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
	"io/fs"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"

	"tpchgen"
	"tpchgen/internal/writer"
)

// FfiError surfaces a sidecar status at the writer API.
type FfiError struct {
	Status Status
	Op     string
}

func (e *FfiError) Error() string {
	kind := "unknown"
	switch e.Status {
	case StatusNullPtr:
		kind = "null_ptr"
	case StatusSchemaMismatch:
		kind = "schema_mismatch"
	case StatusEncodeFailure:
		kind = "encode_failure"
	case StatusImportFailure:
		kind = "import_failure"
	}
	return fmt.Sprintf("lance: %s: %s (status %d)", e.Op, kind, e.Status)
}

// Bridge is the host-side writer: it holds the single owning handle for
// one sidecar writer and speaks the four-function ABI.
type Bridge struct {
	writer.Counters
	lock struct{ schema *arrow.Schema }

	w      *Writer
	uri    string
	closed bool
}

// NewBridge constructs an unopened bridge writer.
func NewBridge() *Bridge { return &Bridge{} }

// Open creates the sidecar writer for the dataset directory.
func (b *Bridge) Open(dir string, schema *arrow.Schema, _ writer.Options) error {
	b.uri = dir
	b.lock.schema = schema
	b.w = Create(dir)
	return nil
}

// WriteBatch exports the batch and hands it across the boundary.
//
// Ownership handed off: after the WriteBatch call below, arr and sch
// belong to the sidecar. They must not be touched, released or freed on
// this side of the line, whatever the status.
func (b *Bridge) WriteBatch(batch *tpchgen.Batch) error {
	defer batch.Release()
	if b.closed {
		return writer.ErrClosed
	}
	if b.lock.schema != nil && !b.lock.schema.Equal(batch.Schema()) {
		return writer.ErrSchemaLocked
	}
	rows := batch.NumRows()

	arr, sch, err := ExportRecord(batch.Record())
	if err != nil {
		return err
	}
	st := WriteBatch(b.w, arr, sch) // ownership handed off
	arr, sch = nil, nil
	if st != StatusOK {
		return &FfiError{Status: st, Op: "write_batch"}
	}
	b.AddRows(rows)
	return nil
}

// Close finalizes the dataset and destroys the sidecar handle.
// Idempotent.
func (b *Bridge) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	st := Close(b.w)
	Destroy(b.w)
	if st != StatusOK {
		return &FfiError{Status: st, Op: "close"}
	}
	// dataset size is only known after the sidecar encodes
	var total int64
	filepath.WalkDir(b.uri, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	b.AddBytes(total)
	return nil
}
