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

package writer

import (
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"

	"tpchgen"
)

// IPC writes the Arrow IPC file container (one file per table).
//
// Compression is hard-wired to zstd: the options struct advertises more
// codecs but the pass-through was never built.
// TODO(codec): thread Options.Compression into the ipc writer options.
//
// Known hazard: linking the legacy apache/arrow/go module next to this
// one duplicates the flatbuffers-backed extension-type registry and
// panics at process init. The module avoids the legacy import entirely;
// keep it that way, or gate one of the two at build configuration time.
type IPC struct {
	Counters
	lock schemaLock

	f      *os.File
	fw     *ipc.FileWriter
	path   string
	closed bool
}

// NewIPC constructs an unopened IPC writer.
func NewIPC() *IPC { return &IPC{} }

// Open creates the file and the library writer.
func (w *IPC) Open(path string, schema *arrow.Schema, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ipc: create %s: %w", path, err)
	}
	fw, err := ipc.NewFileWriter(&countingWriter{w: f, c: &w.Counters},
		ipc.WithSchema(schema), ipc.WithZstd())
	if err != nil {
		f.Close()
		return fmt.Errorf("ipc: writer for %s: %w", path, err)
	}
	w.f = f
	w.fw = fw
	w.path = path
	return nil
}

// WriteBatch hands the record to the library and releases the batch.
func (w *IPC) WriteBatch(b *tpchgen.Batch) error {
	defer b.Release()
	if w.closed {
		return ErrClosed
	}
	if err := w.lock.check(b.Schema()); err != nil {
		return err
	}
	if err := w.fw.Write(b.Record()); err != nil {
		return fmt.Errorf("ipc: write %s: %w", w.path, err)
	}
	w.AddRows(b.NumRows())
	return nil
}

// Close finalizes the footer and the file. Idempotent.
func (w *IPC) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.fw.Close(); err != nil {
		w.f.Close()
		return fmt.Errorf("ipc: close %s: %w", w.path, err)
	}
	return w.f.Close()
}
