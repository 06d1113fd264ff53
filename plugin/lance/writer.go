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
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// maxRowsPerGroup is the native encoder's group size. Larger groups
// amortize the per-group statistics overhead.
const maxRowsPerGroup = 4096

// encodingStrategy is the per-field plan computed once per writer, so
// the encoder skips adaptive strategy evaluation on every batch for
// fixed-width fields: O(columns) instead of O(batches x columns).
type encodingStrategy struct {
	Name         string
	FixedWidth   bool
	SkipAdaptive bool
}

// Writer is the sidecar's streaming writer: a single background worker
// runs the event loop, the accumulator grows as batches arrive, and
// Close drains everything into the dataset layout under the uri
// (_transactions/, _versions/, data/).
//
// Single-producer: one goroutine calls WriteBatch/Close.
type Writer struct {
	uri string

	mu         sync.Mutex
	schema     *arrow.Schema
	strategies []encodingStrategy

	in     chan arrow.Record
	loopWG sync.WaitGroup

	batches []arrow.Record
	rows    int64
	status  Status
	closed  bool
}

// Create opens a streaming writer for the dataset uri (a directory
// path). Never fails for a syntactically valid uri; filesystem errors
// surface at Close.
func Create(uri string) *Writer {
	w := &Writer{
		uri:    uri,
		in:     make(chan arrow.Record),
		status: StatusOK,
	}
	w.loopWG.Add(1)
	go w.loop()
	return w
}

// loop is the writer's event loop: it owns the accumulator.
func (w *Writer) loop() {
	defer w.loopWG.Done()
	for rec := range w.in {
		w.mu.Lock()
		w.batches = append(w.batches, rec)
		w.rows += rec.NumRows()
		w.mu.Unlock()
	}
}

// WriteBatch imports the C data interface pair and pushes the batch to
// the event loop. Synchronous from the caller's view: it returns once
// the loop has accepted the batch. Ownership of both structs transfers
// to this call regardless of the status returned.
func WriteBatch(w *Writer, ca *CArrowArray, cs *CArrowSchema) Status {
	if w == nil || ca == nil || cs == nil {
		ReleaseArray(ca)
		ReleaseSchema(cs)
		return StatusNullPtr
	}
	rec, err := ImportRecord(ca, cs)
	if err != nil {
		ReleaseArray(ca)
		ReleaseSchema(cs)
		return StatusImportFailure
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		rec.Release()
		return StatusEncodeFailure
	}
	if w.schema == nil {
		w.schema = rec.Schema()
		w.strategies = planStrategies(w.schema)
	} else if !w.schema.Equal(rec.Schema()) {
		w.mu.Unlock()
		rec.Release()
		return StatusSchemaMismatch
	}
	w.mu.Unlock()

	w.in <- rec
	return StatusOK
}

// planStrategies flags fixed-width fields so the encoder bypasses
// per-batch strategy selection for them.
func planStrategies(sch *arrow.Schema) []encodingStrategy {
	out := make([]encodingStrategy, sch.NumFields())
	for i, f := range sch.Fields() {
		fixed := f.Type.ID() != arrow.STRING
		out[i] = encodingStrategy{Name: f.Name, FixedWidth: fixed, SkipAdaptive: fixed}
	}
	return out
}

// Close stops the loop, drains the accumulator through the native
// encoder, and writes the dataset. Idempotent at the bridge layer; a
// second call on a closed writer reports encode failure.
func Close(w *Writer) Status {
	if w == nil {
		return StatusNullPtr
	}
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return StatusEncodeFailure
	}
	w.closed = true
	w.mu.Unlock()

	close(w.in)
	w.loopWG.Wait()

	if err := w.encode(); err != nil {
		w.status = StatusEncodeFailure
		return w.status
	}
	return StatusOK
}

// Destroy frees the writer and any batches Close did not consume.
func Destroy(w *Writer) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.in)
		w.loopWG.Wait()
	}
	for _, rec := range w.batches {
		rec.Release()
	}
	w.batches = nil
}

// fragmentMeta is one data fragment in the version manifest.
type fragmentMeta struct {
	Path string `json:"path"`
	Rows int64  `json:"physical_rows"`
}

type versionManifest struct {
	Version   int               `json:"version"`
	Rows      int64             `json:"rows"`
	Fragments []fragmentMeta    `json:"fragments"`
	Fields    []manifestField   `json:"fields"`
	Encodings map[string]string `json:"encodings"`
}

type manifestField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type transaction struct {
	UUID      string         `json:"uuid"`
	Operation string         `json:"operation"`
	Fragments []fragmentMeta `json:"fragments"`
}

// encode drains the accumulated batches into the dataset layout. Each
// fragment is re-chunked to maxRowsPerGroup rows per group; the
// per-column strategy hints ride the fragment schema metadata.
func (w *Writer) encode() error {
	for _, sub := range []string{"data", "_versions", "_transactions"} {
		if err := os.MkdirAll(filepath.Join(w.uri, sub), 0o755); err != nil {
			return fmt.Errorf("lance: mkdir %s: %w", sub, err)
		}
	}
	if w.schema == nil {
		// no batches ever arrived; an empty dataset still gets its tree
		w.schema = arrow.NewSchema(nil, nil)
	}

	frag := fragmentMeta{Path: filepath.Join("data", uuid.NewString()+".lance")}
	if err := w.writeFragment(&frag); err != nil {
		return err
	}

	encodings := map[string]string{}
	for _, s := range w.strategies {
		if s.SkipAdaptive {
			encodings[s.Name] = "plain"
		} else {
			encodings[s.Name] = "adaptive"
		}
	}
	manifest := versionManifest{
		Version:   1,
		Rows:      w.rows,
		Fragments: []fragmentMeta{frag},
		Encodings: encodings,
	}
	for _, f := range w.schema.Fields() {
		manifest.Fields = append(manifest.Fields, manifestField{Name: f.Name, Type: strings.ToLower(f.Type.String())})
	}
	if err := writeJSON(filepath.Join(w.uri, "_versions", "1.manifest.json"), &manifest); err != nil {
		return err
	}
	txn := transaction{UUID: uuid.NewString(), Operation: "append", Fragments: manifest.Fragments}
	return writeJSON(filepath.Join(w.uri, "_transactions", txn.UUID+".txn.json"), &txn)
}

// writeFragment encodes every accumulated batch into one fragment file,
// re-sliced to the group bound. Batches are released as they are
// consumed.
func (w *Writer) writeFragment(frag *fragmentMeta) error {
	f, err := os.Create(filepath.Join(w.uri, frag.Path))
	if err != nil {
		return fmt.Errorf("lance: create fragment: %w", err)
	}
	md := strategyMetadata(w.strategies)
	schema := w.schema
	if md.Len() > 0 {
		schema = arrow.NewSchema(w.schema.Fields(), &md)
	}
	fw, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithZstd())
	if err != nil {
		f.Close()
		return fmt.Errorf("lance: fragment writer: %w", err)
	}
	for _, rec := range w.batches {
		for off := int64(0); off < rec.NumRows(); off += maxRowsPerGroup {
			end := off + maxRowsPerGroup
			if end > rec.NumRows() {
				end = rec.NumRows()
			}
			group := rec.NewSlice(off, end)
			err := fw.Write(group)
			group.Release()
			if err != nil {
				fw.Close()
				f.Close()
				return fmt.Errorf("lance: encode group: %w", err)
			}
			frag.Rows += end - off
		}
		rec.Release()
	}
	w.batches = nil
	if err := fw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// strategyMetadata renders the per-column hints the downstream encoder
// reads to skip strategy selection.
func strategyMetadata(strategies []encodingStrategy) arrow.Metadata {
	var keys, vals []string
	for _, s := range strategies {
		keys = append(keys, "lance.encoding."+s.Name)
		if s.SkipAdaptive {
			vals = append(vals, "plain")
		} else {
			vals = append(vals, "adaptive")
		}
	}
	return arrow.NewMetadata(keys, vals)
}

func writeJSON(path string, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("lance: marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("lance: write %s: %w", path, err)
	}
	return nil
}
