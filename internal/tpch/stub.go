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

	"tpchgen"
	"tpchgen/internal/cstr"
)

// StubTable is the synthetic relation used when the benchmark emitter is
// not selected: a small mixed-type schema that exercises every writer
// without benchmark semantics.
const StubTable Table = "stub"

// StubRow is the synthetic callback payload.
type StubRow struct {
	ID    int64
	Value float64
	Name  [32]byte
	Stamp [11]byte
}

// StubSchema is the synthetic stub schema.
func StubSchema() *arrow.Schema {
	return tpchgen.NewSchema([]tpchgen.Field{
		{Name: "id", Type: tpchgen.Int64},
		{Name: "value", Type: tpchgen.Float64},
		{Name: "name", Type: tpchgen.String},
		{Name: "stamp", Type: tpchgen.String},
	}, nil)
}

// Stub emits deterministic synthetic rows. Rows defaults to 100_000 when
// zero.
type Stub struct {
	Rows int64

	row StubRow
}

// ForEachRow ignores the relation argument: the stub has exactly one
// schema.
func (s *Stub) ForEachRow(_ Table, maxRows int64, fn RowFunc) error {
	total := s.Rows
	if total <= 0 {
		total = 100_000
	}
	if maxRows > 0 && maxRows < total {
		total = maxRows
	}
	r := newRNG(StubTable, 1)
	for i := int64(0); i < total; i++ {
		s.row.ID = i
		s.row.Value = float64(r.intn(0, 1_000_000)) / 100
		putText(s.row.Name[:], fmt.Sprintf("synthetic#%08d", i))
		putDate(s.row.Stamp[:], r.intn(0, dateRangeDays))
		if err := fn(&s.row); err != nil {
			return err
		}
	}
	return nil
}

func (bd *Binding) appendStub(r *StubRow) {
	bd.i64[0].Append(r.ID)
	bd.f64[1].Append(r.Value)
	bd.str[2].Append(cstr.String(r.Name[:]))
	bd.str[3].Append(cstr.String(r.Stamp[:]))
}
