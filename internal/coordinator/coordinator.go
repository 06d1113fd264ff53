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

// Package coordinator drives the eight relations through a writer each.
// The emitter has process-global seed state, so relations run strictly
// one after another; parallelism comes from overlapping the write of
// batch N with the conversion of batch N+1, and from the shared async
// I/O context underneath the writers.
package coordinator

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"tpchgen"
	"tpchgen/internal/metrics"
	"tpchgen/internal/tpch"
	"tpchgen/internal/writer"
)

// Mode selects the builder ingestion path.
type Mode int

// Ingestion modes, in increasing zero-copy level.
const (
	ModeRow Mode = iota
	ModeSpan
	ModeWrap
)

// Config parameterizes one run.
type Config struct {
	Emitter   tpch.Emitter
	BatchRows int
	MaxRows   int64 // 0 = full relation
	Mode      Mode
	// NewWriter opens the writer for a relation; the coordinator owns it
	// afterwards.
	NewWriter func(t tpch.Table) (writer.Writer, error)
}

// TableResult reports one relation's outcome.
type TableResult struct {
	Table tpch.Table
	Rows  int64
	Bytes int64
	Err   error
}

// Run generates the given relations in order. All writers are closed
// before it returns; per-table failures are collected, not short-
// circuited, so independent tables still land.
func Run(cfg Config, tables []tpch.Table) []TableResult {
	out := make([]TableResult, 0, len(tables))
	for _, t := range tables {
		res := TableResult{Table: t}
		res.Rows, res.Bytes, res.Err = runTable(cfg, t)
		out = append(out, res)
	}
	return out
}

// runTable drives one relation: emitter -> converter -> builder ->
// writer, with the writer one batch behind the converter.
func runTable(cfg Config, t tpch.Table) (rows, bytes int64, err error) {
	w, err := cfg.NewWriter(t)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: open writer: %w", t, err)
	}

	batchRows := cfg.BatchRows
	if batchRows <= 0 {
		batchRows = tpchgen.DefaultBatchRows
	}

	// one-deep pipeline: the sender blocks only while two batches are in
	// flight, which is exactly the compute/IO overlap wanted
	batches := make(chan *tpchgen.Batch, 1)
	var g errgroup.Group
	g.Go(func() error {
		for b := range batches {
			n := b.NumRows()
			if werr := w.WriteBatch(b); werr != nil {
				// drain so the producer can finish
				for b := range batches {
					b.Release()
				}
				return werr
			}
			metrics.RecordBatch(string(t), n)
		}
		return nil
	})

	produceErr := produce(cfg, t, batchRows, batches)
	close(batches)
	writeErr := g.Wait()

	closeErr := w.Close()
	metrics.RecordBytes(string(t), w.Bytes())

	switch {
	case produceErr != nil:
		err = fmt.Errorf("%s: %w", t, produceErr)
	case writeErr != nil:
		err = fmt.Errorf("%s: %w", t, writeErr)
	case closeErr != nil:
		err = fmt.Errorf("%s: close: %w", t, closeErr)
	}
	return w.Rows(), w.Bytes(), err
}

// produce converts emitter rows into batches on the chosen path.
func produce(cfg Config, t tpch.Table, batchRows int, batches chan<- *tpchgen.Batch) error {
	b, err := tpchgen.NewBuilder(tpch.Schema(t), tpchgen.Options{BatchRows: batchRows})
	if err != nil {
		return err
	}
	defer b.Release()

	switch cfg.Mode {
	case ModeRow:
		bd, err := tpch.Bind(t, b)
		if err != nil {
			return err
		}
		err = cfg.Emitter.ForEachRow(t, cfg.MaxRows, func(row any) error {
			if aerr := bd.Append(row); aerr != nil {
				return aerr
			}
			if b.Full() {
				return cut(b, batches)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if b.Len() > 0 {
			return cut(b, batches)
		}
		return nil

	case ModeSpan, ModeWrap:
		col := tpch.NewSpanCollector(t, batchRows)
		flush := func() error {
			if col.Len() == 0 {
				return nil
			}
			var batch *tpchgen.Batch
			var ferr error
			if cfg.Mode == ModeWrap {
				batch, ferr = b.WrapColumns(col.Spans())
				// the batch pins the collected vectors; fresh storage
				col.Reset(false)
			} else {
				if ferr = b.AppendColumns(col.Spans()); ferr == nil {
					batch, ferr = b.Cut()
				}
				col.Reset(true)
			}
			if ferr != nil {
				return ferr
			}
			batches <- batch
			return nil
		}
		err = cfg.Emitter.ForEachRow(t, cfg.MaxRows, func(row any) error {
			if aerr := col.Add(row); aerr != nil {
				return aerr
			}
			if col.Full() {
				return flush()
			}
			return nil
		})
		if err != nil {
			return err
		}
		return flush()
	}
	return fmt.Errorf("unknown ingestion mode %d", cfg.Mode)
}

func cut(b *tpchgen.Builder, batches chan<- *tpchgen.Batch) error {
	batch, err := b.Cut()
	if err != nil {
		return err
	}
	batches <- batch
	return nil
}
