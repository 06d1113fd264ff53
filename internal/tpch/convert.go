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
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"tpchgen"
	"tpchgen/internal/cstr"
)

// money renders a penny integer as the decimal column value: 1734 -> 17.34.
func money(m Money) float64 { return float64(m) / 100 }

// Binding caches the typed column handles of a builder for one relation,
// so the per-row path pays one interface dispatch per row, not one per
// cell. Append is the single dispatch point: it routes the emitter's row
// to the relation's converter.
type Binding struct {
	table Table

	i32 []*array.Int32Builder
	i64 []*array.Int64Builder
	f64 []*array.Float64Builder
	str []*array.StringBuilder
}

// Bind resolves the handles for the relation's schema. The builder must
// have been created with Schema(t).
func Bind(t Table, b *tpchgen.Builder) (*Binding, error) {
	sch := b.Schema()
	bd := &Binding{
		table: t,
		i32:   make([]*array.Int32Builder, sch.NumFields()),
		i64:   make([]*array.Int64Builder, sch.NumFields()),
		f64:   make([]*array.Float64Builder, sch.NumFields()),
		str:   make([]*array.StringBuilder, sch.NumFields()),
	}
	for i, f := range sch.Fields() {
		var err error
		switch f.Type.ID() {
		case arrow.INT32:
			bd.i32[i], err = b.Int32Col(i)
		case arrow.INT64:
			bd.i64[i], err = b.Int64Col(i)
		case arrow.FLOAT64:
			bd.f64[i], err = b.Float64Col(i)
		case arrow.STRING:
			bd.str[i], err = b.StringCol(i)
		default:
			err = fmt.Errorf("tpch: field %s: unsupported type %s", f.Name, f.Type)
		}
		if err != nil {
			return nil, err
		}
	}
	return bd, nil
}

// Append converts one emitter row and appends it to the bound builder.
func (bd *Binding) Append(row any) error {
	switch r := row.(type) {
	case *LineItemRow:
		bd.appendLineItem(r)
	case *OrdersRow:
		bd.appendOrders(r)
	case *CustomerRow:
		bd.appendCustomer(r)
	case *PartRow:
		bd.appendPart(r)
	case *PartSuppRow:
		bd.appendPartSupp(r)
	case *SupplierRow:
		bd.appendSupplier(r)
	case *NationRow:
		bd.appendNation(r)
	case *RegionRow:
		bd.appendRegion(r)
	case *StubRow:
		bd.appendStub(r)
	default:
		return fmt.Errorf("tpch: %s converter got row type %T", bd.table, row)
	}
	return nil
}

func (bd *Binding) appendLineItem(r *LineItemRow) {
	bd.i64[0].Append(r.OrderKey)
	bd.i64[1].Append(r.PartKey)
	bd.i64[2].Append(r.SuppKey)
	bd.i32[3].Append(r.LineNumber)
	bd.f64[4].Append(money(r.Quantity))
	bd.f64[5].Append(money(r.ExtendedPrice))
	bd.f64[6].Append(money(r.Discount))
	bd.f64[7].Append(money(r.Tax))
	bd.str[8].Append(cstr.String(r.ReturnFlag[:]))
	bd.str[9].Append(cstr.String(r.LineStatus[:]))
	bd.str[10].Append(cstr.String(r.ShipDate[:]))
	bd.str[11].Append(cstr.String(r.CommitDate[:]))
	bd.str[12].Append(cstr.String(r.ReceiptDate[:]))
	bd.str[13].Append(cstr.String(r.ShipInstruct[:]))
	bd.str[14].Append(cstr.String(r.ShipMode[:]))
	bd.str[15].Append(cstr.StringN(r.Comment[:], int(r.CommentLen)))
}

func (bd *Binding) appendOrders(r *OrdersRow) {
	bd.i64[0].Append(r.OrderKey)
	bd.i64[1].Append(r.CustKey)
	bd.str[2].Append(cstr.String(r.OrderStatus[:]))
	bd.f64[3].Append(money(r.TotalPrice))
	bd.str[4].Append(cstr.String(r.OrderDate[:]))
	bd.str[5].Append(cstr.String(r.OrderPriority[:]))
	bd.str[6].Append(cstr.String(r.Clerk[:]))
	bd.i32[7].Append(r.ShipPriority)
	bd.str[8].Append(cstr.StringN(r.Comment[:], int(r.CommentLen)))
}

func (bd *Binding) appendCustomer(r *CustomerRow) {
	bd.i64[0].Append(r.CustKey)
	bd.str[1].Append(cstr.String(r.Name[:]))
	bd.str[2].Append(cstr.StringN(r.Address[:], int(r.AddressLen)))
	bd.i32[3].Append(r.NationKey)
	bd.str[4].Append(cstr.String(r.Phone[:]))
	bd.f64[5].Append(money(r.AcctBal))
	bd.str[6].Append(cstr.String(r.MktSegment[:]))
	bd.str[7].Append(cstr.StringN(r.Comment[:], int(r.CommentLen)))
}

func (bd *Binding) appendPart(r *PartRow) {
	bd.i64[0].Append(r.PartKey)
	// NameLen is not initialized by the emitter; the terminator is the
	// only truth for this field.
	bd.str[1].Append(cstr.String(r.Name[:]))
	bd.str[2].Append(cstr.String(r.Mfgr[:]))
	bd.str[3].Append(cstr.String(r.Brand[:]))
	bd.str[4].Append(cstr.StringN(r.Type[:], int(r.TypeLen)))
	bd.i32[5].Append(r.Size)
	bd.str[6].Append(cstr.String(r.Container[:]))
	bd.f64[7].Append(money(r.RetailPrice))
	bd.str[8].Append(cstr.StringN(r.Comment[:], int(r.CommentLen)))
}

func (bd *Binding) appendPartSupp(r *PartSuppRow) {
	bd.i64[0].Append(r.PartKey)
	bd.i64[1].Append(r.SuppKey)
	bd.i32[2].Append(r.AvailQty)
	bd.f64[3].Append(money(r.SupplyCost))
	bd.str[4].Append(cstr.StringN(r.Comment[:], int(r.CommentLen)))
}

func (bd *Binding) appendSupplier(r *SupplierRow) {
	bd.i64[0].Append(r.SuppKey)
	bd.str[1].Append(cstr.String(r.Name[:]))
	bd.str[2].Append(cstr.StringN(r.Address[:], int(r.AddressLen)))
	bd.i32[3].Append(r.NationKey)
	bd.str[4].Append(cstr.String(r.Phone[:]))
	bd.f64[5].Append(money(r.AcctBal))
	bd.str[6].Append(cstr.StringN(r.Comment[:], int(r.CommentLen)))
}

func (bd *Binding) appendNation(r *NationRow) {
	bd.i32[0].Append(r.NationKey)
	bd.str[1].Append(cstr.String(r.Name[:]))
	bd.i32[2].Append(r.RegionKey)
	bd.str[3].Append(cstr.StringN(r.Comment[:], int(r.CommentLen)))
}

func (bd *Binding) appendRegion(r *RegionRow) {
	bd.i32[0].Append(r.RegionKey)
	bd.str[1].Append(cstr.String(r.Name[:]))
	bd.str[2].Append(cstr.StringN(r.Comment[:], int(r.CommentLen)))
}

// SpanCollector accumulates emitter rows into one contiguous slice per
// column, feeding the builder's span and wrap paths. Reset with reuse
// keeps slice capacity (span path); without reuse it allocates fresh
// slices, which the wrap path requires because the previous batch still
// pins the old ones.
type SpanCollector struct {
	table Table
	sch   *arrow.Schema
	cap   int
	cols  []any
	rows  int
}

// NewSpanCollector builds a collector for the relation sized for
// batchRows rows.
func NewSpanCollector(t Table, batchRows int) *SpanCollector {
	c := &SpanCollector{table: t, sch: Schema(t), cap: batchRows}
	c.alloc()
	return c
}

func (c *SpanCollector) alloc() {
	c.cols = make([]any, c.sch.NumFields())
	for i, f := range c.sch.Fields() {
		switch f.Type.ID() {
		case arrow.INT32:
			c.cols[i] = make([]int32, 0, c.cap)
		case arrow.INT64:
			c.cols[i] = make([]int64, 0, c.cap)
		case arrow.FLOAT64:
			c.cols[i] = make([]float64, 0, c.cap)
		case arrow.STRING:
			c.cols[i] = make([]string, 0, c.cap)
		}
	}
	c.rows = 0
}

// Len reports the collected row count.
func (c *SpanCollector) Len() int { return c.rows }

// Full reports whether the collector reached its batch size.
func (c *SpanCollector) Full() bool { return c.rows >= c.cap }

// Spans hands out the collected columns.
func (c *SpanCollector) Spans() tpchgen.ColumnSpans {
	out := make(tpchgen.ColumnSpans, len(c.cols))
	copy(out, c.cols)
	return out
}

// Reset clears the collector. With reuse it truncates in place; without
// it allocates fresh storage (mandatory after a WrapColumns hand-off).
func (c *SpanCollector) Reset(reuse bool) {
	if !reuse {
		c.alloc()
		return
	}
	for i := range c.cols {
		switch v := c.cols[i].(type) {
		case []int32:
			c.cols[i] = v[:0]
		case []int64:
			c.cols[i] = v[:0]
		case []float64:
			c.cols[i] = v[:0]
		case []string:
			c.cols[i] = v[:0]
		}
	}
	c.rows = 0
}

func (c *SpanCollector) i32(i int) []int32   { return c.cols[i].([]int32) }
func (c *SpanCollector) i64(i int) []int64   { return c.cols[i].([]int64) }
func (c *SpanCollector) f64(i int) []float64 { return c.cols[i].([]float64) }
func (c *SpanCollector) strs(i int) []string { return c.cols[i].([]string) }

func (c *SpanCollector) setI32(i int, v []int32)   { c.cols[i] = v }
func (c *SpanCollector) setI64(i int, v []int64)   { c.cols[i] = v }
func (c *SpanCollector) setF64(i int, v []float64) { c.cols[i] = v }
func (c *SpanCollector) setStr(i int, v []string)  { c.cols[i] = v }

// Add extracts one emitter row into the column slices.
func (c *SpanCollector) Add(row any) error {
	switch r := row.(type) {
	case *LineItemRow:
		c.setI64(0, append(c.i64(0), r.OrderKey))
		c.setI64(1, append(c.i64(1), r.PartKey))
		c.setI64(2, append(c.i64(2), r.SuppKey))
		c.setI32(3, append(c.i32(3), r.LineNumber))
		c.setF64(4, append(c.f64(4), money(r.Quantity)))
		c.setF64(5, append(c.f64(5), money(r.ExtendedPrice)))
		c.setF64(6, append(c.f64(6), money(r.Discount)))
		c.setF64(7, append(c.f64(7), money(r.Tax)))
		c.setStr(8, append(c.strs(8), cstr.String(r.ReturnFlag[:])))
		c.setStr(9, append(c.strs(9), cstr.String(r.LineStatus[:])))
		c.setStr(10, append(c.strs(10), cstr.String(r.ShipDate[:])))
		c.setStr(11, append(c.strs(11), cstr.String(r.CommitDate[:])))
		c.setStr(12, append(c.strs(12), cstr.String(r.ReceiptDate[:])))
		c.setStr(13, append(c.strs(13), cstr.String(r.ShipInstruct[:])))
		c.setStr(14, append(c.strs(14), cstr.String(r.ShipMode[:])))
		c.setStr(15, append(c.strs(15), cstr.StringN(r.Comment[:], int(r.CommentLen))))
	case *OrdersRow:
		c.setI64(0, append(c.i64(0), r.OrderKey))
		c.setI64(1, append(c.i64(1), r.CustKey))
		c.setStr(2, append(c.strs(2), cstr.String(r.OrderStatus[:])))
		c.setF64(3, append(c.f64(3), money(r.TotalPrice)))
		c.setStr(4, append(c.strs(4), cstr.String(r.OrderDate[:])))
		c.setStr(5, append(c.strs(5), cstr.String(r.OrderPriority[:])))
		c.setStr(6, append(c.strs(6), cstr.String(r.Clerk[:])))
		c.setI32(7, append(c.i32(7), r.ShipPriority))
		c.setStr(8, append(c.strs(8), cstr.StringN(r.Comment[:], int(r.CommentLen))))
	case *CustomerRow:
		c.setI64(0, append(c.i64(0), r.CustKey))
		c.setStr(1, append(c.strs(1), cstr.String(r.Name[:])))
		c.setStr(2, append(c.strs(2), cstr.StringN(r.Address[:], int(r.AddressLen))))
		c.setI32(3, append(c.i32(3), r.NationKey))
		c.setStr(4, append(c.strs(4), cstr.String(r.Phone[:])))
		c.setF64(5, append(c.f64(5), money(r.AcctBal)))
		c.setStr(6, append(c.strs(6), cstr.String(r.MktSegment[:])))
		c.setStr(7, append(c.strs(7), cstr.StringN(r.Comment[:], int(r.CommentLen))))
	case *PartRow:
		c.setI64(0, append(c.i64(0), r.PartKey))
		c.setStr(1, append(c.strs(1), cstr.String(r.Name[:]))) // computed length, always
		c.setStr(2, append(c.strs(2), cstr.String(r.Mfgr[:])))
		c.setStr(3, append(c.strs(3), cstr.String(r.Brand[:])))
		c.setStr(4, append(c.strs(4), cstr.StringN(r.Type[:], int(r.TypeLen))))
		c.setI32(5, append(c.i32(5), r.Size))
		c.setStr(6, append(c.strs(6), cstr.String(r.Container[:])))
		c.setF64(7, append(c.f64(7), money(r.RetailPrice)))
		c.setStr(8, append(c.strs(8), cstr.StringN(r.Comment[:], int(r.CommentLen))))
	case *PartSuppRow:
		c.setI64(0, append(c.i64(0), r.PartKey))
		c.setI64(1, append(c.i64(1), r.SuppKey))
		c.setI32(2, append(c.i32(2), r.AvailQty))
		c.setF64(3, append(c.f64(3), money(r.SupplyCost)))
		c.setStr(4, append(c.strs(4), cstr.StringN(r.Comment[:], int(r.CommentLen))))
	case *SupplierRow:
		c.setI64(0, append(c.i64(0), r.SuppKey))
		c.setStr(1, append(c.strs(1), cstr.String(r.Name[:])))
		c.setStr(2, append(c.strs(2), cstr.StringN(r.Address[:], int(r.AddressLen))))
		c.setI32(3, append(c.i32(3), r.NationKey))
		c.setStr(4, append(c.strs(4), cstr.String(r.Phone[:])))
		c.setF64(5, append(c.f64(5), money(r.AcctBal)))
		c.setStr(6, append(c.strs(6), cstr.StringN(r.Comment[:], int(r.CommentLen))))
	case *NationRow:
		c.setI32(0, append(c.i32(0), r.NationKey))
		c.setStr(1, append(c.strs(1), cstr.String(r.Name[:])))
		c.setI32(2, append(c.i32(2), r.RegionKey))
		c.setStr(3, append(c.strs(3), cstr.StringN(r.Comment[:], int(r.CommentLen))))
	case *RegionRow:
		c.setI32(0, append(c.i32(0), r.RegionKey))
		c.setStr(1, append(c.strs(1), cstr.String(r.Name[:])))
		c.setStr(2, append(c.strs(2), cstr.StringN(r.Comment[:], int(r.CommentLen))))
	case *StubRow:
		c.setI64(0, append(c.i64(0), r.ID))
		c.setF64(1, append(c.f64(1), r.Value))
		c.setStr(2, append(c.strs(2), cstr.String(r.Name[:])))
		c.setStr(3, append(c.strs(3), cstr.String(r.Stamp[:])))
	default:
		return fmt.Errorf("tpch: %s span collector got row type %T", c.table, row)
	}
	c.rows++
	return nil
}
