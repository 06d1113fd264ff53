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

// Package tpch defines the eight benchmark relations, their schemas and
// cardinalities, the emitter that produces their rows, and the converters
// that turn emitter rows into builder appends.
package tpch

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"tpchgen"
)

// Table identifies one of the eight relations.
type Table string

// The eight relations, in generation order: small dimension tables first
// so a failure surfaces before the multi-gigabyte fact tables start.
const (
	Region   Table = "region"
	Nation   Table = "nation"
	Supplier Table = "supplier"
	Customer Table = "customer"
	Part     Table = "part"
	PartSupp Table = "partsupp"
	Orders   Table = "orders"
	LineItem Table = "lineitem"
)

// All lists the relations in generation order.
var All = []Table{Region, Nation, Supplier, Customer, Part, PartSupp, Orders, LineItem}

// ParseTable validates a user-supplied table name.
func ParseTable(s string) (Table, error) {
	for _, t := range All {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("tpch: unknown table %q", s)
}

// Published lineitem cardinalities by scale factor. Lineitem is the one
// relation whose count is not a clean multiple of the scale factor; the
// emitter tops up the final orders so the generated count matches these
// exactly.
var lineItemCounts = map[int]int64{
	1:    6_001_215,
	10:   59_986_052,
	30:   179_998_372,
	100:  600_037_902,
	300:  1_799_989_091,
	1000: 5_999_989_709,
}

// RowCount returns the row count for the relation at the given scale
// factor.
func RowCount(t Table, sf int) int64 {
	if sf < 1 {
		sf = 1
	}
	switch t {
	case Region:
		return 5
	case Nation:
		return 25
	case Supplier:
		return 10_000 * int64(sf)
	case Customer:
		return 150_000 * int64(sf)
	case Part:
		return 200_000 * int64(sf)
	case PartSupp:
		return 800_000 * int64(sf)
	case Orders:
		return 1_500_000 * int64(sf)
	case LineItem:
		if n, ok := lineItemCounts[sf]; ok {
			return n
		}
		// Unpublished scale factors: the asymptotic four lines per order.
		return 6_000_000 * int64(sf)
	}
	return 0
}

// Schema returns the Arrow schema for a relation. Dates are 10-byte
// YYYY-MM-DD strings, decimals are float64 (the converter divides the
// emitter's penny integers by 100).
func Schema(t Table) *arrow.Schema {
	switch t {
	case LineItem:
		return tpchgen.NewSchema([]tpchgen.Field{
			{Name: "l_orderkey", Type: tpchgen.Int64},
			{Name: "l_partkey", Type: tpchgen.Int64},
			{Name: "l_suppkey", Type: tpchgen.Int64},
			{Name: "l_linenumber", Type: tpchgen.Int32},
			{Name: "l_quantity", Type: tpchgen.Float64},
			{Name: "l_extendedprice", Type: tpchgen.Float64},
			{Name: "l_discount", Type: tpchgen.Float64},
			{Name: "l_tax", Type: tpchgen.Float64},
			{Name: "l_returnflag", Type: tpchgen.String},
			{Name: "l_linestatus", Type: tpchgen.String},
			{Name: "l_shipdate", Type: tpchgen.String},
			{Name: "l_commitdate", Type: tpchgen.String},
			{Name: "l_receiptdate", Type: tpchgen.String},
			{Name: "l_shipinstruct", Type: tpchgen.String},
			{Name: "l_shipmode", Type: tpchgen.String},
			{Name: "l_comment", Type: tpchgen.String},
		}, nil)
	case Orders:
		return tpchgen.NewSchema([]tpchgen.Field{
			{Name: "o_orderkey", Type: tpchgen.Int64},
			{Name: "o_custkey", Type: tpchgen.Int64},
			{Name: "o_orderstatus", Type: tpchgen.String},
			{Name: "o_totalprice", Type: tpchgen.Float64},
			{Name: "o_orderdate", Type: tpchgen.String},
			{Name: "o_orderpriority", Type: tpchgen.String},
			{Name: "o_clerk", Type: tpchgen.String},
			{Name: "o_shippriority", Type: tpchgen.Int32},
			{Name: "o_comment", Type: tpchgen.String},
		}, nil)
	case Customer:
		return tpchgen.NewSchema([]tpchgen.Field{
			{Name: "c_custkey", Type: tpchgen.Int64},
			{Name: "c_name", Type: tpchgen.String},
			{Name: "c_address", Type: tpchgen.String},
			{Name: "c_nationkey", Type: tpchgen.Int32},
			{Name: "c_phone", Type: tpchgen.String},
			{Name: "c_acctbal", Type: tpchgen.Float64},
			{Name: "c_mktsegment", Type: tpchgen.String},
			{Name: "c_comment", Type: tpchgen.String},
		}, nil)
	case Part:
		return tpchgen.NewSchema([]tpchgen.Field{
			{Name: "p_partkey", Type: tpchgen.Int64},
			{Name: "p_name", Type: tpchgen.String},
			{Name: "p_mfgr", Type: tpchgen.String},
			{Name: "p_brand", Type: tpchgen.String},
			{Name: "p_type", Type: tpchgen.String},
			{Name: "p_size", Type: tpchgen.Int32},
			{Name: "p_container", Type: tpchgen.String},
			{Name: "p_retailprice", Type: tpchgen.Float64},
			{Name: "p_comment", Type: tpchgen.String},
		}, nil)
	case PartSupp:
		return tpchgen.NewSchema([]tpchgen.Field{
			{Name: "ps_partkey", Type: tpchgen.Int64},
			{Name: "ps_suppkey", Type: tpchgen.Int64},
			{Name: "ps_availqty", Type: tpchgen.Int32},
			{Name: "ps_supplycost", Type: tpchgen.Float64},
			{Name: "ps_comment", Type: tpchgen.String},
		}, nil)
	case Supplier:
		return tpchgen.NewSchema([]tpchgen.Field{
			{Name: "s_suppkey", Type: tpchgen.Int64},
			{Name: "s_name", Type: tpchgen.String},
			{Name: "s_address", Type: tpchgen.String},
			{Name: "s_nationkey", Type: tpchgen.Int32},
			{Name: "s_phone", Type: tpchgen.String},
			{Name: "s_acctbal", Type: tpchgen.Float64},
			{Name: "s_comment", Type: tpchgen.String},
		}, nil)
	case Nation:
		return tpchgen.NewSchema([]tpchgen.Field{
			{Name: "n_nationkey", Type: tpchgen.Int32},
			{Name: "n_name", Type: tpchgen.String},
			{Name: "n_regionkey", Type: tpchgen.Int32},
			{Name: "n_comment", Type: tpchgen.String},
		}, nil)
	case Region:
		return tpchgen.NewSchema([]tpchgen.Field{
			{Name: "r_regionkey", Type: tpchgen.Int32},
			{Name: "r_name", Type: tpchgen.String},
			{Name: "r_comment", Type: tpchgen.String},
		}, nil)
	case StubTable:
		return StubSchema()
	}
	return nil
}
