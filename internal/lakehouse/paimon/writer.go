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

// Package paimon writes an append-only lakehouse table: Parquet data
// files under bucket-0/, binary Avro manifests, and the snapshot and
// schema bookkeeping the format prescribes.
package paimon

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

// Snapshot is the version-3 snapshot record. All seventeen fields are
// always present in the JSON, nulls included.
type Snapshot struct {
	Version               int              `json:"version"`
	ID                    int64            `json:"id"`
	SchemaID              int64            `json:"schemaId"`
	BaseManifestList      string           `json:"baseManifestList"`
	DeltaManifestList     string           `json:"deltaManifestList"`
	ChangelogManifestList *string          `json:"changelogManifestList"`
	IndexManifest         *string          `json:"indexManifest"`
	CommitUser            string           `json:"commitUser"`
	CommitIdentifier      int64            `json:"commitIdentifier"`
	CommitKind            string           `json:"commitKind"`
	TimeMillis            int64            `json:"timeMillis"`
	LogOffsets            map[string]int64 `json:"logOffsets"`
	TotalRecordCount      int64            `json:"totalRecordCount"`
	DeltaRecordCount      int64            `json:"deltaRecordCount"`
	ChangelogRecordCount  int64            `json:"changelogRecordCount"`
	Watermark             *int64           `json:"watermark"`
	Statistics            *string          `json:"statistics"`
}

// schemaField is one column of schema/schema-0.
type schemaField struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type schemaFile struct {
	ID             int               `json:"id"`
	Fields         []schemaField     `json:"fields"`
	HighestFieldID int               `json:"highestFieldId"`
	PartitionKeys  []string          `json:"partitionKeys"`
	PrimaryKeys    []string          `json:"primaryKeys"`
	Options        map[string]string `json:"options"`
}

// typeName maps an Arrow type to the table format's type vocabulary.
func typeName(dt arrow.DataType) string {
	switch dt.ID() {
	case arrow.INT32:
		return "INT"
	case arrow.INT64:
		return "BIGINT"
	case arrow.FLOAT64:
		return "DOUBLE"
	case arrow.STRING:
		return "STRING"
	case arrow.FIXED_SIZE_BINARY:
		return fmt.Sprintf("BINARY(%d)", dt.(*arrow.FixedSizeBinaryType).ByteWidth)
	}
	return "STRING"
}

// Writer drives a Parquet writer for the data file, then synthesizes the
// table directory at Close. Counters mirror the data writer's.
type Writer struct {
	writer.Counters

	dir     string
	schema  *arrow.Schema
	opts    writer.Options
	data    *writer.Parquet
	dataRel string
	closed  bool
}

// New constructs an unopened table writer.
func New() *Writer { return &Writer{} }

// Open creates the table directory tree and the backing data file.
func (w *Writer) Open(dir string, schema *arrow.Schema, opts writer.Options) error {
	w.dir = dir
	w.schema = schema
	w.opts = opts
	for _, sub := range []string{"schema", "snapshot", "manifest", "bucket-0"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("paimon: mkdir %s: %w", sub, err)
		}
	}
	w.dataRel = filepath.Join("bucket-0", fmt.Sprintf("data-%s-0.parquet", uuid.NewString()))
	w.data = writer.NewParquet()
	if err := w.data.Open(filepath.Join(dir, w.dataRel), schema, opts); err != nil {
		return err
	}
	return nil
}

// WriteBatch forwards to the data writer.
func (w *Writer) WriteBatch(b *tpchgen.Batch) error {
	if w.closed {
		return writer.ErrClosed
	}
	rows := b.NumRows()
	if err := w.data.WriteBatch(b); err != nil {
		return err
	}
	w.AddRows(rows)
	return nil
}

// Close finalizes the data file and writes OPTIONS, schema, snapshot and
// manifest bookkeeping. Idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.data.Close(); err != nil {
		return err
	}
	w.AddBytes(w.data.Bytes())

	st, err := os.Stat(filepath.Join(w.dir, w.dataRel))
	if err != nil {
		return fmt.Errorf("paimon: stat data file: %w", err)
	}

	if err := w.writeOptions(); err != nil {
		return err
	}
	if err := w.writeSchema(); err != nil {
		return err
	}
	return w.commit(st.Size())
}

func (w *Writer) writeOptions() error {
	const options = "table.type=APPEND_ONLY\nbucket=1\nfile.format=parquet\n"
	return os.WriteFile(filepath.Join(w.dir, "OPTIONS"), []byte(options), 0o644)
}

func (w *Writer) writeSchema() error {
	sf := schemaFile{
		Fields:        make([]schemaField, w.schema.NumFields()),
		PartitionKeys: []string{},
		PrimaryKeys:   []string{},
		Options:       map[string]string{"bucket": "1"},
	}
	for i, f := range w.schema.Fields() {
		sf.Fields[i] = schemaField{ID: i, Name: f.Name, Type: typeName(f.Type)}
	}
	sf.HighestFieldID = w.schema.NumFields() - 1
	out, err := json.MarshalIndent(&sf, "", "  ")
	if err != nil {
		return fmt.Errorf("paimon: schema json: %w", err)
	}
	return os.WriteFile(filepath.Join(w.dir, "schema", "schema-0"), out, 0o644)
}

// commit writes the manifest, manifest list and snapshot for the single
// append. Manifests and snapshots are immutable once landed.
func (w *Writer) commit(dataSize int64) error {
	id := uuid.NewString()
	manifestName := fmt.Sprintf("manifest-%s-0", id)
	listName := fmt.Sprintf("manifest-list-%s-0", id)

	entry := ManifestEntry{
		Kind:         KindAdd,
		Partition:    []byte{},
		Bucket:       0,
		TotalBuckets: 1,
		File: DataFileMeta{
			FileName:       filepath.Base(w.dataRel),
			FileSize:       dataSize,
			Level:          0,
			MinKey:         []byte{},
			MaxKey:         []byte{},
			ColumnStats:    []byte{},
			NullCounts:     []byte{},
			RowCount:       w.Rows(),
			SequenceNumber: 1,
			FileSource:     FileSourceAppend,
			SchemaID:       0,
		},
	}
	mSize, err := WriteManifest(filepath.Join(w.dir, "manifest", manifestName), []ManifestEntry{entry})
	if err != nil {
		return err
	}

	_, err = WriteManifestList(filepath.Join(w.dir, "manifest", listName), []ManifestListEntry{{
		FileName:       manifestName,
		FileSize:       mSize,
		NumAddedFiles:  1,
		PartitionStats: []byte{},
		SchemaID:       0,
	}})
	if err != nil {
		return err
	}

	snap := Snapshot{
		Version:           3,
		ID:                1,
		SchemaID:          0,
		BaseManifestList:  listName,
		DeltaManifestList: listName,
		CommitUser:        uuid.NewString(),
		CommitIdentifier:  1,
		CommitKind:        "APPEND",
		TimeMillis:        time.Now().UnixMilli(),
		LogOffsets:        map[string]int64{},
		TotalRecordCount:  w.Rows(),
		DeltaRecordCount:  w.Rows(),
	}
	out, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return fmt.Errorf("paimon: snapshot json: %w", err)
	}
	snapDir := filepath.Join(w.dir, "snapshot")
	if err := os.WriteFile(filepath.Join(snapDir, "snapshot-1"), out, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(snapDir, "EARLIEST"), []byte("1"), 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(snapDir, "LATEST"), []byte("1"), 0o644)
}
