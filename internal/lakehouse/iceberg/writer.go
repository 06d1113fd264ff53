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

// Package iceberg writes a format-version-1 lakehouse table: Parquet
// data files under data/, JSON metadata, a JSON manifest list and
// manifest, and the plain-text version hint.
package iceberg

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"tpchgen"
	"tpchgen/internal/writer"
)

// maxRowsPerDataFile rolls a new Parquet file once the current one holds
// this many rows.
const maxRowsPerDataFile = 10_000_000

// metadata shapes; the field lists are fixed by the format's v1 spec and
// kept as in-repo constants (struct tags) to catch drift in review.

type schemaField struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Required bool   `json:"required"`
	Type     string `json:"type"`
}

type tableSchema struct {
	Type   string        `json:"type"`
	Fields []schemaField `json:"fields"`
}

type snapshotRef struct {
	SnapshotID   int64  `json:"snapshot-id"`
	TimestampMs  int64  `json:"timestamp-ms"`
	ManifestList string `json:"manifest-list"`
	ParentID     *int64 `json:"parent-snapshot-id,omitempty"`
}

type snapshotLogEntry struct {
	TimestampMs int64 `json:"timestamp-ms"`
	SnapshotID  int64 `json:"snapshot-id"`
}

type tableMetadata struct {
	FormatVersion   int                `json:"format-version"`
	TableUUID       string             `json:"table-uuid"`
	Location        string             `json:"location"`
	LastUpdatedMs   int64              `json:"last-updated-ms"`
	LastColumnID    int                `json:"last-column-id"`
	Schema          tableSchema        `json:"schema"`
	PartitionSpec   []struct{}         `json:"partition-spec"`
	DefaultSortID   int                `json:"default-sort-order-id"`
	SortOrders      []struct{}         `json:"sort-orders"`
	CurrentSnapshot int64              `json:"current-snapshot-id"`
	Snapshots       []snapshotRef      `json:"snapshots"`
	SnapshotLog     []snapshotLogEntry `json:"snapshot-log"`
}

type manifestListEntry struct {
	ManifestPath   string `json:"manifest_path"`
	ManifestLength int64  `json:"manifest_length"`
	AddedFiles     int    `json:"added_data_files_count"`
	AddedRows      int64  `json:"added_rows_count"`
}

type manifestDataFile struct {
	FilePath    string `json:"file_path"`
	FileFormat  string `json:"file_format"`
	RecordCount int64  `json:"record_count"`
	FileSize    int64  `json:"file_size_in_bytes"`
}

type manifestEntry struct {
	Status   int              `json:"status"` // 1 = added
	Snapshot int64            `json:"snapshot_id"`
	DataFile manifestDataFile `json:"data_file"`
}

func typeName(dt arrow.DataType) string {
	switch dt.ID() {
	case arrow.INT32:
		return "int"
	case arrow.INT64:
		return "long"
	case arrow.FLOAT64:
		return "double"
	case arrow.STRING:
		return "string"
	case arrow.FIXED_SIZE_BINARY:
		return fmt.Sprintf("fixed[%d]", dt.(*arrow.FixedSizeBinaryType).ByteWidth)
	}
	return "string"
}

// dataFile tracks one finished Parquet file.
type dataFile struct {
	rel  string
	rows int64
}

// Writer buffers batches into rolling Parquet data files and synthesizes
// the metadata tree at Close.
type Writer struct {
	writer.Counters

	dir    string
	schema *arrow.Schema
	opts   writer.Options

	cur      *writer.Parquet
	curRel   string
	curRows  int64
	fileSeq  int
	finished []dataFile
	closed   bool
}

// New constructs an unopened table writer.
func New() *Writer { return &Writer{} }

// Open creates the table directory tree and the first data file.
func (w *Writer) Open(dir string, schema *arrow.Schema, opts writer.Options) error {
	w.dir = dir
	w.schema = schema
	w.opts = opts
	for _, sub := range []string{"data", "metadata"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("iceberg: mkdir %s: %w", sub, err)
		}
	}
	return w.rollFile()
}

func (w *Writer) rollFile() error {
	w.curRel = filepath.Join("data", fmt.Sprintf("data_%05d.parquet", w.fileSeq))
	w.fileSeq++
	w.cur = writer.NewParquet()
	w.curRows = 0
	return w.cur.Open(filepath.Join(w.dir, w.curRel), w.schema, w.opts)
}

func (w *Writer) finishFile() error {
	if err := w.cur.Close(); err != nil {
		return err
	}
	w.AddBytes(w.cur.Bytes())
	w.finished = append(w.finished, dataFile{rel: w.curRel, rows: w.curRows})
	return nil
}

// WriteBatch forwards to the current data file, rolling a new one at the
// row bound.
func (w *Writer) WriteBatch(b *tpchgen.Batch) error {
	if w.closed {
		return writer.ErrClosed
	}
	rows := b.NumRows()
	if err := w.cur.WriteBatch(b); err != nil {
		return err
	}
	w.curRows += rows
	w.AddRows(rows)
	if w.curRows >= maxRowsPerDataFile {
		if err := w.finishFile(); err != nil {
			return err
		}
		return w.rollFile()
	}
	return nil
}

// Close finalizes the data files and writes the metadata tree.
// Idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.finishFile(); err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	const snapID = int64(1)

	// manifest-1.json
	var entries []manifestEntry
	for _, df := range w.finished {
		st, err := os.Stat(filepath.Join(w.dir, df.rel))
		if err != nil {
			return fmt.Errorf("iceberg: stat %s: %w", df.rel, err)
		}
		entries = append(entries, manifestEntry{
			Status:   1,
			Snapshot: snapID,
			DataFile: manifestDataFile{
				FilePath:    df.rel,
				FileFormat:  "PARQUET",
				RecordCount: df.rows,
				FileSize:    st.Size(),
			},
		})
	}
	manifestRel := filepath.Join("metadata", "manifest-1.json")
	mLen, err := writeJSON(filepath.Join(w.dir, manifestRel), entries)
	if err != nil {
		return err
	}

	// snap-<id>.manifest-list.json
	listRel := filepath.Join("metadata", fmt.Sprintf("snap-%d.manifest-list.json", snapID))
	if _, err := writeJSON(filepath.Join(w.dir, listRel), []manifestListEntry{{
		ManifestPath:   manifestRel,
		ManifestLength: mLen,
		AddedFiles:     len(w.finished),
		AddedRows:      w.Rows(),
	}}); err != nil {
		return err
	}

	// v1.metadata.json
	meta := tableMetadata{
		FormatVersion: 1,
		TableUUID:     uuid.NewString(),
		Location:      w.dir,
		LastUpdatedMs: now,
		LastColumnID:  w.schema.NumFields(),
		Schema:        tableSchema{Type: "struct"},
		PartitionSpec: []struct{}{},
		SortOrders:    []struct{}{},
		CurrentSnapshot: snapID,
		Snapshots: []snapshotRef{{
			SnapshotID:   snapID,
			TimestampMs:  now,
			ManifestList: listRel,
		}},
		SnapshotLog: []snapshotLogEntry{{TimestampMs: now, SnapshotID: snapID}},
	}
	for i, f := range w.schema.Fields() {
		meta.Schema.Fields = append(meta.Schema.Fields, schemaField{
			ID: i + 1, Name: f.Name, Required: !f.Nullable, Type: typeName(f.Type),
		})
	}
	metaName := "v1.metadata.json"
	if _, err := writeJSON(filepath.Join(w.dir, "metadata", metaName), &meta); err != nil {
		return err
	}

	// version-hint.text points a reader at the current metadata file.
	return os.WriteFile(filepath.Join(w.dir, "metadata", "version-hint.text"),
		[]byte("1"), 0o644)
}

func writeJSON(path string, v any) (int64, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("iceberg: marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return 0, fmt.Errorf("iceberg: write %s: %w", path, err)
	}
	return int64(len(out)), nil
}
