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
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

func testSchema() *arrow.Schema {
	return NewSchema([]Field{
		{Name: "k", Type: Int64},
		{Name: "qty", Type: Float64},
		{Name: "name", Type: String},
	}, nil)
}

func TestBuilder_RowPath(t *testing.T) {
	b, err := NewBuilder(testSchema(), Options{BatchRows: 4})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	defer b.Release()

	k, err := b.Int64Col(0)
	if err != nil {
		t.Fatalf("Int64Col: %v", err)
	}
	q, err := b.Float64Col(1)
	if err != nil {
		t.Fatalf("Float64Col: %v", err)
	}
	n, err := b.StringCol(2)
	if err != nil {
		t.Fatalf("StringCol: %v", err)
	}

	for i := 0; i < 4; i++ {
		k.Append(int64(i))
		q.Append(float64(i) / 100)
		n.Append("row")
	}
	if !b.Full() {
		t.Fatalf("Full() = false after %d appends, batch size 4", b.Len())
	}

	batch, err := b.Cut()
	if err != nil {
		t.Fatalf("Cut: %v", err)
	}
	defer batch.Release()
	if got := batch.NumRows(); got != 4 {
		t.Errorf("NumRows = %d, want 4", got)
	}
	if got := b.Len(); got != 0 {
		t.Errorf("Len after Cut = %d, want 0", got)
	}
	keys := batch.Record().Column(0).(*array.Int64)
	for i := 0; i < 4; i++ {
		if keys.Value(i) != int64(i) {
			t.Errorf("key[%d] = %d, want %d", i, keys.Value(i), i)
		}
	}
}

func TestBuilder_TypedHandleMismatch(t *testing.T) {
	b, err := NewBuilder(testSchema(), Options{})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	defer b.Release()

	if _, err := b.Int32Col(0); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Int32Col on int64 column: err = %v, want ErrTypeMismatch", err)
	}
	if _, err := b.StringCol(1); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("StringCol on float64 column: err = %v, want ErrTypeMismatch", err)
	}
}

func TestBuilder_SpanPath(t *testing.T) {
	testCases := []struct {
		name    string
		spans   ColumnSpans
		wantErr error
		rows    int64
	}{
		{
			name:  "Aligned",
			spans: ColumnSpans{[]int64{1, 2, 3}, []float64{0.1, 0.2, 0.3}, []string{"a", "b", "c"}},
			rows:  3,
		},
		{
			name:    "Ragged",
			spans:   ColumnSpans{[]int64{1, 2, 3}, []float64{0.1}, []string{"a", "b", "c"}},
			wantErr: ErrRaggedColumns,
		},
		{
			name:    "WrongCount",
			spans:   ColumnSpans{[]int64{1}},
			wantErr: ErrColumnCount,
		},
		{
			name:    "WrongType",
			spans:   ColumnSpans{[]int32{1}, []float64{0.1}, []string{"a"}},
			wantErr: ErrTypeMismatch,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := NewBuilder(testSchema(), Options{BatchRows: 8})
			if err != nil {
				t.Fatalf("NewBuilder: %v", err)
			}
			defer b.Release()

			err = b.AppendColumns(tc.spans)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("AppendColumns err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("AppendColumns: %v", err)
			}
			batch, err := b.Cut()
			if err != nil {
				t.Fatalf("Cut: %v", err)
			}
			defer batch.Release()
			if batch.NumRows() != tc.rows {
				t.Errorf("NumRows = %d, want %d", batch.NumRows(), tc.rows)
			}
		})
	}
}

func TestBuilder_CapacityRetainedAcrossCuts(t *testing.T) {
	b, err := NewBuilder(testSchema(), Options{BatchRows: 2})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	defer b.Release()

	for cut := 0; cut < 3; cut++ {
		if err := b.AppendColumns(ColumnSpans{
			[]int64{1, 2}, []float64{1.5, 2.5}, []string{"x", "y"},
		}); err != nil {
			t.Fatalf("cut %d: AppendColumns: %v", cut, err)
		}
		batch, err := b.Cut()
		if err != nil {
			t.Fatalf("cut %d: Cut: %v", cut, err)
		}
		if batch.NumRows() != 2 {
			t.Errorf("cut %d: NumRows = %d, want 2", cut, batch.NumRows())
		}
		batch.Release()
	}
}

func TestNewBuilder_RejectsUnsupportedType(t *testing.T) {
	s := NewSchema([]Field{{Name: "b", Type: arrow.FixedWidthTypes.Boolean}}, nil)
	if _, err := NewBuilder(s, Options{}); !errors.Is(err, ErrUnsupportedCol) {
		t.Fatalf("NewBuilder(bool) err = %v, want ErrUnsupportedCol", err)
	}
}
