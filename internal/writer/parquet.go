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
	"fmt"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"tpchgen"
)

// ParquetCodec maps an option token to the library codec.
func ParquetCodec(name string) (compress.Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "lz4":
		return compress.Codecs.Lz4Raw, nil
	case "zlib":
		return compress.Codecs.Gzip, nil
	case "none":
		return compress.Codecs.Uncompressed, nil
	default:
		return compress.Codecs.Uncompressed, fmt.Errorf("writer: unsupported parquet compression %q", name)
	}
}

// Parquet is a thin adapter over the columnar library's record-batch
// writer. The Arrow schema passes through unchanged; compression and row
// group sizing come from Options. Bytes are counted as the library
// flushes them.
type Parquet struct {
	Counters
	lock schemaLock

	f      *os.File
	fw     *pqarrow.FileWriter
	path   string
	closed bool
}

// NewParquet constructs an unopened Parquet writer.
func NewParquet() *Parquet { return &Parquet{} }

// Open creates the file and the library writer.
func (p *Parquet) Open(path string, schema *arrow.Schema, opts Options) error {
	codec, err := ParquetCodec(opts.Compression)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("parquet: create %s: %w", path, err)
	}
	props := []parquet.WriterProperty{
		parquet.WithCompression(codec),
		parquet.WithVersion(parquet.V2_LATEST),
		parquet.WithDictionaryDefault(true),
	}
	if opts.RowGroupRows > 0 {
		props = append(props, parquet.WithMaxRowGroupLength(opts.RowGroupRows))
	}
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	fw, err := pqarrow.NewFileWriter(schema, &countingWriter{w: f, c: &p.Counters},
		parquet.NewWriterProperties(props...), arrowProps)
	if err != nil {
		f.Close()
		return fmt.Errorf("parquet: writer for %s: %w", path, err)
	}
	p.f = f
	p.fw = fw
	p.path = path
	return nil
}

// WriteBatch hands the record to the library and releases the batch.
func (p *Parquet) WriteBatch(b *tpchgen.Batch) error {
	defer b.Release()
	if p.closed {
		return ErrClosed
	}
	if err := p.lock.check(b.Schema()); err != nil {
		return err
	}
	if err := p.fw.Write(b.Record()); err != nil {
		return fmt.Errorf("parquet: write %s: %w", p.path, err)
	}
	p.AddRows(b.NumRows())
	return nil
}

// Close finalizes the footer and the file. Idempotent.
func (p *Parquet) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.fw.Close(); err != nil {
		p.f.Close()
		return fmt.Errorf("parquet: close %s: %w", p.path, err)
	}
	return p.f.Close()
}
