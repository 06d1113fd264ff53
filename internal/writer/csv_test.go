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
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tpchgen"
)

func buildBatch(t *testing.T, rows []struct {
	K    int64
	Q    float64
	Name string
}) *tpchgen.Batch {
	t.Helper()
	sch := tpchgen.NewSchema([]tpchgen.Field{
		{Name: "k", Type: tpchgen.Int64},
		{Name: "qty", Type: tpchgen.Float64},
		{Name: "name", Type: tpchgen.String},
	}, nil)
	b, err := tpchgen.NewBuilder(sch, tpchgen.Options{BatchRows: len(rows)})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	defer b.Release()
	ks := make([]int64, len(rows))
	qs := make([]float64, len(rows))
	ns := make([]string, len(rows))
	for i, r := range rows {
		ks[i], qs[i], ns[i] = r.K, r.Q, r.Name
	}
	if err := b.AppendColumns(tpchgen.ColumnSpans{ks, qs, ns}); err != nil {
		t.Fatalf("AppendColumns: %v", err)
	}
	batch, err := b.Cut()
	if err != nil {
		t.Fatalf("Cut: %v", err)
	}
	return batch
}

func TestCSV_RFC4180RoundTrip(t *testing.T) {
	// Fields with the quote-forcing bytes must survive an independent
	// RFC 4180 reader byte-for-byte.
	hard := []string{
		"plain",
		"with,comma",
		`with"quote`,
		"with\nnewline",
		"with\rreturn",
		`all,of "them"` + "\n",
	}
	rows := make([]struct {
		K    int64
		Q    float64
		Name string
	}, len(hard))
	for i, h := range hard {
		rows[i] = struct {
			K    int64
			Q    float64
			Name string
		}{int64(i), float64(i) + 0.25, h}
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	w := NewCSV()
	if err := w.Open(path, nil, Options{}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := w.WriteBatch(buildBatch(t, rows)); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := w.Rows(); got != int64(len(rows)) {
		t.Errorf("Rows = %d, want %d", got, len(rows))
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	rd := csv.NewReader(f)
	recs, err := rd.ReadAll()
	if err != nil {
		t.Fatalf("independent reader: %v", err)
	}
	if len(recs) != len(rows) {
		t.Fatalf("reader saw %d rows, want %d", len(recs), len(rows))
	}
	for i, rec := range recs {
		if rec[2] != hard[i] {
			t.Errorf("row %d field = %q, want %q", i, rec[2], hard[i])
		}
	}
}

func TestCSV_TerminatingNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nl.csv")
	w := NewCSV()
	if err := w.Open(path, nil, Options{}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := w.WriteBatch(buildBatch(t, []struct {
		K    int64
		Q    float64
		Name string
	}{{1, 1, "a"}, {2, 2, "b"}})); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	w.Close()
	out, _ := os.ReadFile(path)
	if len(out) == 0 || out[len(out)-1] != '\n' {
		t.Error("output does not end with LF")
	}
	if got := strings.Count(string(out), "\n"); got != 2 {
		t.Errorf("line count = %d, want 2", got)
	}
}

func TestCSV_SchemaLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock.csv")
	w := NewCSV()
	if err := w.Open(path, nil, Options{}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close()

	if err := w.WriteBatch(buildBatch(t, []struct {
		K    int64
		Q    float64
		Name string
	}{{1, 1, "a"}})); err != nil {
		t.Fatalf("first batch: %v", err)
	}

	// second batch with a different schema must refuse
	other := tpchgen.NewSchema([]tpchgen.Field{{Name: "x", Type: tpchgen.Int64}}, nil)
	ob, err := tpchgen.NewBuilder(other, tpchgen.Options{BatchRows: 1})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	defer ob.Release()
	h, _ := ob.Int64Col(0)
	h.Append(1)
	batch, _ := ob.Cut()
	if err := w.WriteBatch(batch); !errors.Is(err, ErrSchemaLocked) {
		t.Errorf("mismatched schema err = %v, want ErrSchemaLocked", err)
	}
}

func TestCSV_DirectIOByteIdentical(t *testing.T) {
	dir := t.TempDir()
	rows := []struct {
		K    int64
		Q    float64
		Name string
	}{}
	for i := 0; i < 5000; i++ {
		rows = append(rows, struct {
			K    int64
			Q    float64
			Name string
		}{int64(i), float64(i) / 3, strings.Repeat("x", i%37)})
	}

	plainPath := filepath.Join(dir, "plain.csv")
	w1 := NewCSV()
	if err := w1.Open(plainPath, nil, Options{}); err != nil {
		t.Fatalf("Open plain: %v", err)
	}
	if err := w1.WriteBatch(buildBatch(t, rows)); err != nil {
		t.Fatalf("write plain: %v", err)
	}
	w1.Close()

	directPath := filepath.Join(dir, "direct.csv")
	w2 := NewCSV()
	if err := w2.Open(directPath, nil, Options{DirectIO: true}); err != nil {
		t.Skipf("direct I/O unavailable here: %v", err)
	}
	if err := w2.WriteBatch(buildBatch(t, rows)); err != nil {
		// tmpfs and some filesystems refuse O_DIRECT writes
		t.Skipf("direct I/O write refused: %v", err)
	}
	if err := w2.Close(); err != nil {
		t.Fatalf("close direct: %v", err)
	}

	a, _ := os.ReadFile(plainPath)
	b, _ := os.ReadFile(directPath)
	if string(a) != string(b) {
		t.Errorf("direct output differs: %d vs %d bytes", len(b), len(a))
	}
}
