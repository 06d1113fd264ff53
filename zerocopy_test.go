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
	"errors"
	"runtime"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
)

func TestWrapColumns_NoCopy(t *testing.T) {
	b, err := NewBuilder(testSchema(), Options{})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	defer b.Release()

	keys := []int64{10, 20, 30}
	qtys := []float64{0.1, 0.2, 0.3}
	names := []string{"a", "b", "c"}

	batch, err := b.WrapColumns(ColumnSpans{keys, qtys, names})
	if err != nil {
		t.Fatalf("WrapColumns: %v", err)
	}
	defer batch.Release()

	col := batch.Record().Column(0).(*array.Int64)
	// True zero copy: the column's storage is the caller's slice.
	if &col.Int64Values()[0] != &keys[0] {
		t.Error("wrapped int64 column does not alias the caller's vector")
	}
}

func TestWrapColumns_PinOutlivesCallerReference(t *testing.T) {
	b, err := NewBuilder(testSchema(), Options{})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	defer b.Release()

	batch, err := b.WrapColumns(ColumnSpans{
		[]int64{7, 8, 9}, []float64{1, 2, 3}, []string{"x", "y", "z"},
	})
	if err != nil {
		t.Fatalf("WrapColumns: %v", err)
	}
	defer batch.Release()

	// The literals above have no remaining caller reference. After GC the
	// batch's pins must still keep the values readable.
	runtime.GC()
	col := batch.Record().Column(0).(*array.Int64)
	want := []int64{7, 8, 9}
	for i, w := range want {
		if col.Value(i) != w {
			t.Errorf("value[%d] = %d, want %d", i, col.Value(i), w)
		}
	}
}

func TestWrapColumns_DebugDetectsMutation(t *testing.T) {
	b, err := NewBuilder(testSchema(), Options{DebugChecks: true})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	defer b.Release()

	keys := []int64{1, 2, 3}
	batch, err := b.WrapColumns(ColumnSpans{keys, []float64{1, 2, 3}, []string{"a", "b", "c"}})
	if err != nil {
		t.Fatalf("WrapColumns: %v", err)
	}

	keys[0] = 99 // contract breach: mutation after wrap

	defer func() {
		if recover() == nil {
			t.Error("Release did not panic on mutated wrapped vector")
		}
	}()
	batch.Release()
}

func TestWrapColumns_Errors(t *testing.T) {
	b, err := NewBuilder(testSchema(), Options{})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	defer b.Release()

	if _, err := b.WrapColumns(ColumnSpans{[]int64{1}}); !errors.Is(err, ErrColumnCount) {
		t.Errorf("short vector list: err = %v, want ErrColumnCount", err)
	}
	if _, err := b.WrapColumns(ColumnSpans{
		[]int32{1}, []float64{1}, []string{"a"},
	}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("int32 for int64 field: err = %v, want ErrTypeMismatch", err)
	}
	if _, err := b.WrapColumns(ColumnSpans{
		[]int64{1, 2}, []float64{1}, []string{"a"},
	}); !errors.Is(err, ErrRaggedColumns) {
		t.Errorf("ragged vectors: err = %v, want ErrRaggedColumns", err)
	}
}
