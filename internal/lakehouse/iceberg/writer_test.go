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

package iceberg

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"tpchgen"
	"tpchgen/internal/writer"
)

func TestWriter_MetadataTree(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "orders")
	sch := tpchgen.NewSchema([]tpchgen.Field{
		{Name: "k", Type: tpchgen.Int64},
		{Name: "s", Type: tpchgen.String},
	}, nil)

	w := New()
	if err := w.Open(dir, sch, writer.Options{}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	b, _ := tpchgen.NewBuilder(sch, tpchgen.Options{BatchRows: 8})
	defer b.Release()
	if err := b.AppendColumns(tpchgen.ColumnSpans{
		[]int64{1, 2, 3, 4}, []string{"a", "b", "c", "d"},
	}); err != nil {
		t.Fatalf("AppendColumns: %v", err)
	}
	batch, _ := b.Cut()
	if err := w.WriteBatch(batch); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close not idempotent: %v", err)
	}

	for _, p := range []string{
		"data/data_00000.parquet",
		"metadata/v1.metadata.json",
		"metadata/snap-1.manifest-list.json",
		"metadata/manifest-1.json",
		"metadata/version-hint.text",
	} {
		if _, err := os.Stat(filepath.Join(dir, p)); err != nil {
			t.Errorf("missing %s: %v", p, err)
		}
	}

	hint, _ := os.ReadFile(filepath.Join(dir, "metadata", "version-hint.text"))
	if string(hint) != "1" {
		t.Errorf("version hint = %q, want 1", hint)
	}

	out, _ := os.ReadFile(filepath.Join(dir, "metadata", "v1.metadata.json"))
	var meta map[string]any
	if err := json.Unmarshal(out, &meta); err != nil {
		t.Fatalf("metadata is not JSON: %v", err)
	}
	if v, _ := meta["format-version"].(float64); v != 1 {
		t.Errorf("format-version = %v, want 1", meta["format-version"])
	}
	if meta["table-uuid"] == "" {
		t.Error("table-uuid missing")
	}
	snaps, _ := meta["snapshots"].([]any)
	if len(snaps) != 1 {
		t.Fatalf("snapshots = %d entries, want 1", len(snaps))
	}

	mf, _ := os.ReadFile(filepath.Join(dir, "metadata", "manifest-1.json"))
	var entries []map[string]any
	if err := json.Unmarshal(mf, &entries); err != nil {
		t.Fatalf("manifest is not JSON: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("manifest entries = %d, want 1", len(entries))
	}
	df := entries[0]["data_file"].(map[string]any)
	if rc, _ := df["record_count"].(float64); int64(rc) != 4 {
		t.Errorf("record_count = %v, want 4", df["record_count"])
	}
	if w.Rows() != 4 {
		t.Errorf("Rows = %d, want 4", w.Rows())
	}
}
