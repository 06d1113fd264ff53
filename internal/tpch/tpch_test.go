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

package tpch

import (
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"

	"tpchgen"
)

func TestRowCount(t *testing.T) {
	testCases := []struct {
		table Table
		sf    int
		want  int64
	}{
		{Nation, 1, 25},
		{Nation, 10, 25},
		{Region, 1, 5},
		{Region, 10, 5},
		{Supplier, 1, 10_000},
		{Supplier, 10, 100_000},
		{Customer, 1, 150_000},
		{Customer, 10, 1_500_000},
		{Part, 1, 200_000},
		{Part, 10, 2_000_000},
		{PartSupp, 1, 800_000},
		{PartSupp, 10, 8_000_000},
		{Orders, 1, 1_500_000},
		{Orders, 10, 15_000_000},
		{LineItem, 1, 6_001_215},
		{LineItem, 10, 59_986_052},
	}
	for _, tc := range testCases {
		t.Run(string(tc.table), func(t *testing.T) {
			if got := RowCount(tc.table, tc.sf); got != tc.want {
				t.Errorf("RowCount(%s, %d) = %d, want %d", tc.table, tc.sf, got, tc.want)
			}
		})
	}
}

func TestLineCountSteering(t *testing.T) {
	// The per-order line counts must land the relation exactly on its
	// target for any target in [orders, orders*7].
	r := newRNG(LineItem, 1)
	for _, target := range []int64{1000, 4003, 6999, 7000} {
		orders := int64(1000)
		emitted := int64(0)
		for oi := int64(0); oi < orders; oi++ {
			n := lineCountAt(r, emitted, target, orders-oi)
			if n < 1 || n > 7 {
				t.Fatalf("target %d: order %d got %d lines", target, oi, n)
			}
			emitted += n
		}
		if emitted != target {
			t.Errorf("target %d: emitted %d", target, emitted)
		}
	}
}

func TestDbgen_NationKeysInEmitOrder(t *testing.T) {
	g := NewDbgen(1)
	var keys []int32
	err := g.ForEachRow(Nation, 0, func(row any) error {
		r := row.(*NationRow)
		keys = append(keys, r.NationKey)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachRow: %v", err)
	}
	if len(keys) != 25 {
		t.Fatalf("emitted %d nations, want 25", len(keys))
	}
	for i, k := range keys {
		if k != int32(i) {
			t.Errorf("nation key[%d] = %d, want %d", i, k, i)
		}
	}
}

func TestDbgen_SupplierCountAndMaxRows(t *testing.T) {
	g := NewDbgen(1)
	n := 0
	if err := g.ForEachRow(Supplier, 0, func(any) error { n++; return nil }); err != nil {
		t.Fatalf("ForEachRow: %v", err)
	}
	if int64(n) != RowCount(Supplier, 1) {
		t.Errorf("emitted %d suppliers, want %d", n, RowCount(Supplier, 1))
	}

	n = 0
	if err := g.ForEachRow(Supplier, 17, func(any) error { n++; return nil }); err != nil {
		t.Fatalf("ForEachRow maxRows: %v", err)
	}
	if n != 17 {
		t.Errorf("maxRows=17 emitted %d", n)
	}
}

func TestConverter_DecimalRescale(t *testing.T) {
	b, err := tpchgen.NewBuilder(Schema(LineItem), tpchgen.Options{BatchRows: 4})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	defer b.Release()
	bd, err := Bind(LineItem, b)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	row := &LineItemRow{OrderKey: 1, PartKey: 1, SuppKey: 1, LineNumber: 1, Quantity: 1734}
	copy(row.ShipDate[:], "1995-03-15\x00")
	if err := bd.Append(row); err != nil {
		t.Fatalf("Append: %v", err)
	}
	batch, err := b.Cut()
	if err != nil {
		t.Fatalf("Cut: %v", err)
	}
	defer batch.Release()

	qty := batch.Record().Column(4).(*array.Float64)
	if got := qty.Value(0); got != 17.34 {
		t.Errorf("quantity 1734 rendered as %v, want 17.34", got)
	}
}

func TestConverter_PartNameIgnoresStaleBytes(t *testing.T) {
	b, err := tpchgen.NewBuilder(Schema(Part), tpchgen.Options{BatchRows: 4})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	defer b.Release()
	bd, err := Bind(Part, b)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	row := &PartRow{PartKey: 1}
	// Simulate struct reuse: a long previous name, then a short current
	// one, and a length field that was never written.
	copy(row.Name[:], "previous very long part name here\x00")
	copy(row.Name[:], "linen rose\x00")
	row.NameLen = 33 // stale garbage; must be ignored
	if err := bd.Append(row); err != nil {
		t.Fatalf("Append: %v", err)
	}
	batch, err := b.Cut()
	if err != nil {
		t.Fatalf("Cut: %v", err)
	}
	defer batch.Release()

	name := batch.Record().Column(1).(*array.String).Value(0)
	if name != "linen rose" {
		t.Errorf("p_name = %q, want %q", name, "linen rose")
	}
	if strings.Contains(name, "part name") {
		t.Error("stale bytes leaked into p_name")
	}
}

func TestSpanCollector_MatchesRowPath(t *testing.T) {
	g := NewDbgen(1)
	const rows = 64

	// Row path
	b1, _ := tpchgen.NewBuilder(Schema(Customer), tpchgen.Options{BatchRows: rows})
	defer b1.Release()
	bd, err := Bind(Customer, b1)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := g.ForEachRow(Customer, rows, func(row any) error { return bd.Append(row) }); err != nil {
		t.Fatalf("row path: %v", err)
	}
	batch1, _ := b1.Cut()
	defer batch1.Release()

	// Span path over the same deterministic rows
	g2 := NewDbgen(1)
	b2, _ := tpchgen.NewBuilder(Schema(Customer), tpchgen.Options{BatchRows: rows})
	defer b2.Release()
	col := NewSpanCollector(Customer, rows)
	if err := g2.ForEachRow(Customer, rows, func(row any) error { return col.Add(row) }); err != nil {
		t.Fatalf("span collect: %v", err)
	}
	if err := b2.AppendColumns(col.Spans()); err != nil {
		t.Fatalf("AppendColumns: %v", err)
	}
	batch2, _ := b2.Cut()
	defer batch2.Release()

	if batch1.NumRows() != batch2.NumRows() {
		t.Fatalf("row counts differ: %d vs %d", batch1.NumRows(), batch2.NumRows())
	}
	k1 := batch1.Record().Column(0).(*array.Int64)
	k2 := batch2.Record().Column(0).(*array.Int64)
	n1 := batch1.Record().Column(1).(*array.String)
	n2 := batch2.Record().Column(1).(*array.String)
	for i := 0; i < int(batch1.NumRows()); i++ {
		if k1.Value(i) != k2.Value(i) || n1.Value(i) != n2.Value(i) {
			t.Fatalf("row %d differs between paths", i)
		}
	}
}

func TestStub_Deterministic(t *testing.T) {
	s1, s2 := &Stub{Rows: 10}, &Stub{Rows: 10}
	var a, b []int64
	s1.ForEachRow(StubTable, 0, func(row any) error {
		a = append(a, row.(*StubRow).ID)
		return nil
	})
	s2.ForEachRow(StubTable, 0, func(row any) error {
		b = append(b, row.(*StubRow).ID)
		return nil
	})
	if len(a) != 10 || len(b) != 10 {
		t.Fatalf("stub emitted %d/%d rows, want 10", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("stub row %d differs across runs", i)
		}
	}
}
