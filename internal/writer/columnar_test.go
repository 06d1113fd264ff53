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
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

func TestParquetCodec(t *testing.T) {
	for _, ok := range []string{"", "none", "snappy", "zstd", "lz4", "zlib", " Snappy "} {
		if _, err := ParquetCodec(ok); err != nil {
			t.Errorf("ParquetCodec(%q) rejected: %v", ok, err)
		}
	}
	if _, err := ParquetCodec("brotli9000"); err == nil {
		t.Error("ParquetCodec accepted an unknown codec")
	}
}

func TestParquet_WriteAndFooter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.parquet")
	w := NewParquet()
	sch := buildBatch(t, nil).Schema() // zero-row batch just for the schema
	if err := w.Open(path, sch, Options{Compression: "zstd", RowGroupRows: 2}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := w.WriteBatch(buildBatch(t, []struct {
		K    int64
		Q    float64
		Name string
	}{{1, 1.5, "a"}, {2, 2.5, "b"}, {3, 3.5, "c"}})); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if w.Rows() != 3 {
		t.Errorf("Rows = %d, want 3", w.Rows())
	}
	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if int64(len(out)) != w.Bytes() {
		t.Errorf("Bytes = %d, file is %d", w.Bytes(), len(out))
	}
	if !bytes.HasPrefix(out, []byte("PAR1")) || !bytes.HasSuffix(out, []byte("PAR1")) {
		t.Error("output lacks the parquet magic framing")
	}
}

func TestIPC_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.arrow")
	w := NewIPC()
	sch := buildBatch(t, nil).Schema()
	if err := w.Open(path, sch, Options{}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := []struct {
		K    int64
		Q    float64
		Name string
	}{{7, 0.5, "x"}, {8, 1.5, "y"}}
	if err := w.WriteBatch(buildBatch(t, want)); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rd, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		t.Fatalf("ipc reader: %v", err)
	}
	defer rd.Close()
	if rd.NumRecords() != 1 {
		t.Fatalf("NumRecords = %d, want 1", rd.NumRecords())
	}
	rec, err := rd.Record(0)
	if err != nil {
		t.Fatalf("Record(0): %v", err)
	}
	if rec.NumRows() != 2 {
		t.Fatalf("NumRows = %d, want 2", rec.NumRows())
	}
	keys := rec.Column(0).(*array.Int64)
	if keys.Value(0) != 7 || keys.Value(1) != 8 {
		t.Errorf("keys = %d,%d want 7,8", keys.Value(0), keys.Value(1))
	}
}
