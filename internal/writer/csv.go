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
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/ncw/directio"

	"tpchgen"
)

// csvBufSize matches the 1 MiB buffered-sink sizing used elsewhere in
// the pipeline.
const csvBufSize = 1 << 20

// CSV writes row-oriented RFC 4180 output: a field is quoted iff it
// contains a comma, quote, CR or LF, with embedded quotes doubled. Rows
// are LF-terminated. Optional direct I/O writes through 4 KiB-aligned
// blocks; the unaligned tail is appended through a normal descriptor at
// close so the bytes are identical either way. Optionally the file's
// writes ride the shared async context instead of blocking the builder.
type CSV struct {
	Counters
	lock schemaLock
	opts Options

	f      *os.File
	w      *bufio.Writer
	path   string
	closed bool

	// direct-I/O state
	direct  bool
	block   []byte
	blockN  int
	fileOff int64

	// async state
	async   bool
	bufs    [][]byte
	cur     int
	inUse   []bool
	pending int
}

// NewCSV constructs an unopened CSV writer.
func NewCSV() *CSV { return &CSV{} }

// Open creates the output file.
func (c *CSV) Open(path string, schema *arrow.Schema, opts Options) error {
	c.path = path
	c.opts = opts
	switch {
	case opts.DirectIO:
		f, err := directio.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("csv: open direct %s: %w", path, err)
		}
		c.f = f
		c.direct = true
		// a run of whole blocks per flush keeps the device queue busy
		c.block = directio.AlignedBlock(csvBufSize)
	case opts.Async != nil:
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("csv: open %s: %w", path, err)
		}
		c.f = f
		c.async = true
		opts.Async.RegisterFD(int(f.Fd()), 0)
		c.bufs = make([][]byte, 4)
		c.inUse = make([]bool, len(c.bufs))
		for i := range c.bufs {
			c.bufs[i] = make([]byte, 0, csvBufSize)
		}
	default:
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("csv: open %s: %w", path, err)
		}
		c.f = f
		c.w = bufio.NewWriterSize(f, csvBufSize)
	}
	return nil
}

// fieldNeedsQuote implements the exact RFC 4180 rule.
func fieldNeedsQuote(s string) bool {
	return strings.ContainsAny(s, ",\"\r\n")
}

func appendField(dst []byte, s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return dst, fmt.Errorf("%w: field is not valid UTF-8", ErrEncoding)
	}
	if !fieldNeedsQuote(s) {
		return append(dst, s...), nil
	}
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			dst = append(dst, '"', '"')
		} else {
			dst = append(dst, s[i])
		}
	}
	return append(dst, '"'), nil
}

// renderRecord renders the whole record into dst, one LF-terminated line
// per row.
func renderRecord(dst []byte, rec arrow.Record) ([]byte, error) {
	nrows := int(rec.NumRows())
	ncols := int(rec.NumCols())
	var err error
	for r := 0; r < nrows; r++ {
		for ci := 0; ci < ncols; ci++ {
			if ci > 0 {
				dst = append(dst, ',')
			}
			switch col := rec.Column(ci).(type) {
			case *array.Int32:
				dst = strconv.AppendInt(dst, int64(col.Value(r)), 10)
			case *array.Int64:
				dst = strconv.AppendInt(dst, col.Value(r), 10)
			case *array.Float64:
				dst = strconv.AppendFloat(dst, col.Value(r), 'f', 2, 64)
			case *array.String:
				dst, err = appendField(dst, col.Value(r))
				if err != nil {
					return dst, err
				}
			default:
				return dst, fmt.Errorf("%w: csv cannot render %s", ErrEncoding, col.DataType())
			}
		}
		dst = append(dst, '\n')
	}
	return dst, nil
}

// WriteBatch renders and writes one batch, then releases it.
func (c *CSV) WriteBatch(b *tpchgen.Batch) error {
	defer b.Release()
	if c.closed {
		return ErrClosed
	}
	if err := c.lock.check(b.Schema()); err != nil {
		return err
	}
	switch {
	case c.direct:
		if err := c.writeDirect(b.Record()); err != nil {
			return err
		}
	case c.async:
		if err := c.writeAsync(b.Record()); err != nil {
			return err
		}
	default:
		line, err := renderRecord(nil, b.Record())
		if err != nil {
			return err
		}
		if _, err := c.w.Write(line); err != nil {
			return fmt.Errorf("csv: write %s: %w", c.path, err)
		}
		c.AddBytes(int64(len(line)))
	}
	c.AddRows(b.NumRows())
	return nil
}

func (c *CSV) writeDirect(rec arrow.Record) error {
	out, err := renderRecord(nil, rec)
	if err != nil {
		return err
	}
	c.AddBytes(int64(len(out)))
	for len(out) > 0 {
		n := copy(c.block[c.blockN:], out)
		c.blockN += n
		out = out[n:]
		if c.blockN == len(c.block) {
			if _, err := c.f.WriteAt(c.block, c.fileOff); err != nil {
				return fmt.Errorf("csv: direct write %s: %w", c.path, err)
			}
			c.fileOff += int64(len(c.block))
			c.blockN = 0
		}
	}
	return nil
}

func (c *CSV) writeAsync(rec arrow.Record) error {
	sh := c.opts.Async
	fd := int(c.f.Fd())
	// Pick the next buffer, draining completions until it is free. Tags
	// carry the fd so completions for other writers on the shared ring
	// are not mistaken for ours (tables run sequentially, so foreign
	// completions only appear around handoffs).
	idx := c.cur
	c.cur = (c.cur + 1) % len(c.bufs)
	for c.inUse[idx] {
		comps, err := sh.Engine().WaitCompletions(1)
		if err != nil {
			return err
		}
		for _, cm := range comps {
			if int(cm.Tag>>32) != fd {
				continue
			}
			c.inUse[int(cm.Tag&0xffffffff)%len(c.bufs)] = false
			c.pending--
		}
	}
	buf, err := renderRecord(c.bufs[idx][:0], rec)
	if err != nil {
		return err
	}
	c.bufs[idx] = buf
	if len(buf) == 0 {
		return nil
	}
	if err := sh.AppendWrite(fd, buf, uint64(fd)<<32|uint64(idx)); err != nil {
		return err
	}
	c.inUse[idx] = true
	c.pending++
	c.AddBytes(int64(len(buf)))
	return nil
}

// Close flushes buffers, lands the direct-I/O tail, and closes the file.
// Idempotent.
func (c *CSV) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	switch {
	case c.direct:
		// whole blocks are already on disk; land the tail through a
		// buffered descriptor so no padding reaches the file
		tail := make([]byte, c.blockN)
		copy(tail, c.block[:c.blockN])
		if err := c.f.Close(); err != nil {
			return fmt.Errorf("csv: close %s: %w", c.path, err)
		}
		if len(tail) > 0 {
			f, err := os.OpenFile(c.path, os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("csv: reopen for tail %s: %w", c.path, err)
			}
			if _, err := f.WriteAt(tail, c.fileOff); err != nil {
				f.Close()
				return fmt.Errorf("csv: tail write %s: %w", c.path, err)
			}
			if err := f.Truncate(c.fileOff + int64(len(tail))); err != nil {
				f.Close()
				return fmt.Errorf("csv: truncate %s: %w", c.path, err)
			}
			if err := f.Close(); err != nil {
				return err
			}
		}
		return nil
	case c.async:
		if c.pending > 0 {
			if err := c.opts.Async.Drain(); err != nil {
				return err
			}
			c.pending = 0
		}
		return c.f.Close()
	default:
		if err := c.w.Flush(); err != nil {
			return fmt.Errorf("csv: flush %s: %w", c.path, err)
		}
		return c.f.Close()
	}
}
