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

package uring

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Shared wraps one engine behind a reference-counted handle so many
// writers (different tables, different files) share a single ring. For
// every registered file descriptor it keeps a monotonically increasing
// next-offset cursor, so independent writers append without coordinating
// offsets.
//
// Cursor updates are serialized per fd; different fds never contend.
type Shared struct {
	eng  *Engine
	refs atomic.Int64

	mu      sync.Mutex // guards the cursor map only
	cursors map[int]*fdCursor
}

type fdCursor struct {
	mu  sync.Mutex
	off int64
}

// NewShared creates the shared context with one reference held by the
// caller. Retain for each additional writer; the engine is closed when
// the last reference is released.
func NewShared(cfg Config) (*Shared, error) {
	eng, err := New(cfg)
	if err != nil {
		return nil, err
	}
	s := &Shared{eng: eng, cursors: make(map[int]*fdCursor)}
	s.refs.Store(1)
	return s, nil
}

// Engine exposes the underlying engine for callers that manage their own
// offsets (registered-buffer paths).
func (s *Shared) Engine() *Engine { return s.eng }

// Retain adds a reference.
func (s *Shared) Retain() { s.refs.Add(1) }

// Release drops a reference; the last release flushes and closes the
// engine. Exactly one caller observes the close error.
func (s *Shared) Release() error {
	if s.refs.Add(-1) != 0 {
		return nil
	}
	return s.eng.Close()
}

// RegisterFD starts offset bookkeeping for fd at the given base offset
// (usually 0 for a fresh file).
func (s *Shared) RegisterFD(fd int, base int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cursors[fd]; !ok {
		s.cursors[fd] = &fdCursor{off: base}
	}
}

// Offset reports the current cursor for fd.
func (s *Shared) Offset(fd int) int64 {
	s.mu.Lock()
	c := s.cursors[fd]
	s.mu.Unlock()
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.off
}

// AppendWrite submits buf at the fd's cursor and advances the cursor by
// len(buf), including any chunking the engine applies. Back-pressure is
// absorbed here: on a full ring it drains one completion and retries, so
// callers never see ErrQueueFull.
func (s *Shared) AppendWrite(fd int, buf []byte, tag uint64) error {
	s.mu.Lock()
	c := s.cursors[fd]
	s.mu.Unlock()
	if c == nil {
		return fmt.Errorf("uring: fd %d not registered with shared context", fd)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		err := s.eng.SubmitWrite(fd, buf, c.off, tag)
		if err == nil {
			c.off += int64(len(buf))
			return nil
		}
		if err != ErrQueueFull {
			return err
		}
		if _, werr := s.eng.WaitCompletions(1); werr != nil {
			return werr
		}
	}
}

// Drain waits for every outstanding submission on the shared engine.
func (s *Shared) Drain() error { return s.eng.Flush() }
