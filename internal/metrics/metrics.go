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

// Package metrics holds the process-global Prometheus counters for the
// generation run. Global only — no per-table label cardinality beyond
// the eight fixed relations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	rowsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tpchgen_rows_written_total",
		Help: "Rows handed to a format backend, by table",
	}, []string{"table"})

	bytesWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tpchgen_bytes_written_total",
		Help: "Bytes landed on disk, by table",
	}, []string{"table"})

	batchesCut = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tpchgen_batches_cut_total",
		Help: "Record batches emitted by the builder",
	})

	batchRows = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tpchgen_batch_rows",
		Help:    "Distribution of rows per emitted batch",
		Buckets: []float64{64, 256, 1024, 2500, 5000, 10000, 20000},
	})
)

// Register installs the collectors on the default registry. Call once.
func Register() {
	prometheus.MustRegister(rowsWritten, bytesWritten, batchesCut, batchRows)
}

// RecordBatch accounts one emitted batch.
func RecordBatch(table string, rows int64) {
	batchesCut.Inc()
	batchRows.Observe(float64(rows))
	rowsWritten.WithLabelValues(table).Add(float64(rows))
}

// RecordBytes accounts bytes landed for a table.
func RecordBytes(table string, n int64) {
	if n > 0 {
		bytesWritten.WithLabelValues(table).Add(float64(n))
	}
}

// Serve exposes /metrics on addr in the background. Empty addr disables
// the endpoint; register promhttp yourself if metrics are exposed
// elsewhere.
func Serve(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go http.ListenAndServe(addr, mux)
}
