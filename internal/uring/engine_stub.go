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

//go:build !linux

package uring

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Engine is the synchronous fallback used where the kernel ring is
// unavailable. Submissions are performed inline with pwrite; completions
// are queued and handed out by WaitCompletions so callers keep the same
// submit/drain discipline.
type Engine struct {
	cfg Config

	mu      sync.Mutex
	done    []Completion
	regBufs [][]byte
	pending atomic.Int64
	closed  bool
}

// New constructs the stub engine.
func New(cfg Config) (*Engine, error) {
	cfg.applyDefaults()
	return &Engine{cfg: cfg}, nil
}

// SubmitWrite performs the write synchronously, chunked exactly like the
// ring path so the large-write rule holds everywhere.
func (e *Engine) SubmitWrite(fd int, buf []byte, off int64, tag uint64) error {
	if e.cfg.DirectIO {
		if err := checkAligned(uintptr(unsafe.Pointer(&buf[0])), len(buf), off); err != nil {
			return err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if len(e.done) >= e.cfg.QueueDepth {
		return ErrQueueFull
	}
	rel := 0
	for _, s := range chunkSpans(off, len(buf)) {
		n, err := unix.Pwrite(fd, buf[rel:rel+s.Count], s.Off)
		if err != nil {
			return &IoError{Tag: tag, Op: "pwrite", Cause: err}
		}
		if n != s.Count {
			return &IoError{Tag: tag, Op: "pwrite",
				Cause: fmt.Errorf("short write: %d of %d bytes", n, s.Count)}
		}
		e.done = append(e.done, Completion{Tag: tag, Bytes: n})
		rel += s.Count
	}
	return nil
}

// RegisterBuffers records the buffers; the stub has no pinning to skip.
func (e *Engine) RegisterBuffers(bufs [][]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.regBufs = bufs
	return nil
}

// SubmitWriteFixed writes from a registered buffer.
func (e *Engine) SubmitWriteFixed(fd, index, count int, off int64, tag uint64) error {
	e.mu.Lock()
	ok := index >= 0 && index < len(e.regBufs) && count <= len(e.regBufs[index])
	var buf []byte
	if ok {
		buf = e.regBufs[index]
	}
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("uring: fixed buffer index %d count %d out of range", index, count)
	}
	return e.SubmitWrite(fd, buf[:count], off, tag)
}

// WaitCompletions hands out up to the queued completions; with the stub
// there is never anything to block on.
func (e *Engine) WaitCompletions(n int) ([]Completion, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	if n > len(e.done) {
		n = len(e.done)
	}
	out := e.done[:n:n]
	e.done = e.done[n:]
	return out, nil
}

// Flush drains the queued completions.
func (e *Engine) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.done = nil
	return nil
}

// PendingCount is always zero for the synchronous stub once a submit
// returns; kept for shape compatibility.
func (e *Engine) PendingCount() int64 { return e.pending.Load() }

// Close marks the engine closed. Idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
