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

// tpchgen generates the TPC-H relations at a chosen scale factor and
// streams them to the selected on-disk format with the write pipeline
// saturated: columnar batches from the emitter, optional zero-copy
// ingestion, async file I/O underneath the row-oriented writer, and
// throughput counters at the end.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"tpchgen/internal/coordinator"
	"tpchgen/internal/lakehouse/iceberg"
	"tpchgen/internal/lakehouse/paimon"
	"tpchgen/internal/metrics"
	"tpchgen/internal/tpch"
	"tpchgen/internal/uring"
	"tpchgen/internal/writer"
	"tpchgen/plugin/lance"
)

const (
	exitOK      = 0
	exitUsage   = 1
	exitRuntime = 2
)

var formats = []string{"csv", "colfmt_a", "colfmt_b", "lhfmt_p", "lhfmt_i", "vfmt"}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		scaleFactor = flag.Int("scale-factor", 1, "TPC-H scale factor")
		format      = flag.String("format", "colfmt_a", "output format: csv, colfmt_a, colfmt_b, lhfmt_p, lhfmt_i, vfmt")
		outputDir   = flag.String("output-dir", ".", "output directory")
		table       = flag.String("table", "all", "relation to generate, or all")
		maxRows     = flag.Int64("max-rows", 0, "row cap per relation; 0 = full TPC-H count")
		useDbgen    = flag.Bool("use-dbgen", false, "generate benchmark rows; without it a synthetic stub schema is used")
		asyncIO     = flag.Bool("async-io", false, "route CSV writes through the kernel ring")
		zeroCopy    = flag.Bool("zero-copy", false, "batch-level span ingestion")
		trueZero    = flag.Bool("true-zero-copy", false, "wrap column vectors into batches without copying")
		parallel    = flag.Bool("parallel", false, "multi-process mode (not recommended; runs the single-process path)")
		verbose     = flag.Bool("verbose", false, "verbose logging")
		metricsAddr = flag.String("metrics-addr", "", "serve /metrics on this address; empty disables")
		configPath  = flag.String("config", "", "TOML option file")
		compression = flag.String("compression", "", "columnar compression: none, snappy, zstd, lz4, zlib")
		rowGroup    = flag.Int64("row-group-rows", 0, "rows per row group for columnar formats")
		batchRows   = flag.Int("batch-size", 0, "builder batch size in rows")
		directIO    = flag.Bool("use-direct-io", false, "CSV direct I/O with aligned buffers")
	)
	flag.Parse()

	logger := newLogger(*verbose)
	defer logger.Sync()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: usage: %v\n", err)
		return exitUsage
	}
	// flags win over the option file
	if *compression == "" {
		*compression = cfg.Writer.Compression
	}
	if *rowGroup == 0 {
		*rowGroup = cfg.Writer.RowGroupRows
	}
	if *batchRows == 0 {
		*batchRows = cfg.Writer.BatchRows
	}
	if !*directIO {
		*directIO = cfg.Writer.DirectIO
	}

	if !validFormat(*format) {
		fmt.Fprintf(os.Stderr, "error: usage: unknown format %q\n", *format)
		return exitUsage
	}

	var tables []tpch.Table
	switch {
	case !*useDbgen:
		tables = []tpch.Table{tpch.StubTable}
	case *table == "all":
		tables = tpch.All
	default:
		t, err := tpch.ParseTable(*table)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: usage: %v\n", err)
			return exitUsage
		}
		tables = []tpch.Table{t}
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error: usage: output dir: %v\n", err)
		return exitUsage
	}

	metrics.Register()
	metrics.Serve(*metricsAddr)

	if *parallel {
		logger.Warn("parallel mode is not recommended: per-relation forks re-initialize " +
			"emitter seed state and serialize in the kernel; running single-process")
	}

	// one shared ring for every writer in the run
	var shared *uring.Shared
	if *asyncIO {
		shared, err = uring.NewShared(uring.Config{
			QueueDepth: cfg.Async.QueueDepth,
			BufferSize: cfg.Async.BufferSize,
			NumBuffers: cfg.Async.NumBuffers,
			KernelPoll: cfg.Async.KernelPoll,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: io: %v\n", err)
			return exitRuntime
		}
		defer shared.Release()
	}

	opts := writer.Options{
		Compression:   *compression,
		RowGroupRows:  *rowGroup,
		BatchSizeRows: *batchRows,
		DirectIO:      *directIO,
		Async:         shared,
	}

	mode := coordinator.ModeRow
	switch {
	case *trueZero:
		mode = coordinator.ModeWrap
	case *zeroCopy:
		mode = coordinator.ModeSpan
	}

	var emitter tpch.Emitter
	if *useDbgen {
		emitter = tpch.NewDbgen(*scaleFactor)
	} else {
		emitter = &tpch.Stub{}
	}

	start := time.Now()
	results := coordinator.Run(coordinator.Config{
		Emitter:   emitter,
		BatchRows: *batchRows,
		MaxRows:   *maxRows,
		Mode:      mode,
		NewWriter: func(t tpch.Table) (writer.Writer, error) {
			return openWriter(*format, *outputDir, t, opts)
		},
	}, tables)
	elapsed := time.Since(start)

	var totalRows, totalBytes int64
	failed := false
	for _, r := range results {
		if r.Err != nil {
			failed = true
			fmt.Fprintf(os.Stderr, "error: io: %v\n", r.Err)
			continue
		}
		totalRows += r.Rows
		totalBytes += r.Bytes
		logger.Info("table done",
			zap.String("table", string(r.Table)),
			zap.Int64("rows", r.Rows),
			zap.String("bytes", humanize.IBytes(uint64(r.Bytes))))
	}

	secs := elapsed.Seconds()
	fmt.Printf("rows: %d\nbytes: %d (%s)\nelapsed: %s\nrows/sec: %s\nMiB/sec: %.1f\n",
		totalRows, totalBytes, humanize.IBytes(uint64(totalBytes)),
		elapsed.Round(time.Millisecond),
		humanize.Comma(int64(float64(totalRows)/secs)),
		float64(totalBytes)/(1<<20)/secs)

	if failed {
		return exitRuntime
	}
	return exitOK
}

func validFormat(f string) bool {
	for _, v := range formats {
		if v == f {
			return true
		}
	}
	return false
}

// openWriter maps a format token to a backend and an output location.
func openWriter(format, dir string, t tpch.Table, opts writer.Options) (writer.Writer, error) {
	name := string(t)
	switch format {
	case "csv":
		w := writer.NewCSV()
		return w, w.Open(filepath.Join(dir, name+".csv"), tpch.Schema(t), opts)
	case "colfmt_a":
		w := writer.NewParquet()
		return w, w.Open(filepath.Join(dir, name+".parquet"), tpch.Schema(t), opts)
	case "colfmt_b":
		w := writer.NewIPC()
		return w, w.Open(filepath.Join(dir, name+".arrow"), tpch.Schema(t), opts)
	case "lhfmt_p":
		w := paimon.New()
		return w, w.Open(filepath.Join(dir, name), tpch.Schema(t), opts)
	case "lhfmt_i":
		w := iceberg.New()
		return w, w.Open(filepath.Join(dir, name), tpch.Schema(t), opts)
	case "vfmt":
		w := lance.NewBridge()
		return w, w.Open(filepath.Join(dir, name+".lance"), tpch.Schema(t), opts)
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

func newLogger(verbose bool) *zap.Logger {
	if verbose {
		l, _ := zap.NewDevelopment()
		return l
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	l, _ := cfg.Build()
	return l
}
