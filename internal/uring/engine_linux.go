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

//go:build linux

package uring

import (
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Ring ABI constants. Defined here rather than pulled from a wrapper
// module: the ring is the component, and the ABI is frozen.
const (
	ringOffSQ   = 0
	ringOffCQ   = 0x8000000
	ringOffSQEs = 0x10000000

	setupSQPoll = 1 << 1

	enterGetEvents = 1 << 0
	enterSQWakeup  = 1 << 1

	sqNeedWakeup = 1 << 0

	featSingleMmap = 1 << 0

	opWriteFixed = 5
	opWrite      = 23

	registerBuffers   = 0
	unregisterBuffers = 1
)

type sqringOffsets struct {
	head        uint32
	tail        uint32
	ringMask    uint32
	ringEntries uint32
	flags       uint32
	dropped     uint32
	array       uint32
	resv1       uint32
	userAddr    uint64
}

type cqringOffsets struct {
	head        uint32
	tail        uint32
	ringMask    uint32
	ringEntries uint32
	overflow    uint32
	cqes        uint32
	flags       uint32
	resv1       uint32
	userAddr    uint64
}

type uringParams struct {
	sqEntries    uint32
	cqEntries    uint32
	flags        uint32
	sqThreadCPU  uint32
	sqThreadIdle uint32
	features     uint32
	wqFD         uint32
	resv         [3]uint32
	sqOff        sqringOffsets
	cqOff        cqringOffsets
}

// sqe is struct io_uring_sqe (64 bytes).
type sqe struct {
	opcode      uint8
	flags       uint8
	ioprio      uint16
	fd          int32
	off         uint64
	addr        uint64
	len         uint32
	opFlags     uint32
	userData    uint64
	bufIndex    uint16
	personality uint16
	spliceFdIn  int32
	_           [2]uint64
}

// cqe is struct io_uring_cqe (16 bytes).
type cqe struct {
	userData uint64
	res      int32
	flags    uint32
}

// inflightOp tracks one submitted chunk until its completion is reaped.
type inflightOp struct {
	tag   uint64
	count int
	buf   []byte // keeps the caller's buffer reachable until completion
}

// Engine owns one kernel ring. Submission and completion reaping are
// serialized by mu; the ring itself runs in the kernel.
type Engine struct {
	cfg Config

	mu      sync.Mutex
	ringFD  int
	sqMem   []byte
	cqMem   []byte
	sqeMem  []byte
	singleM bool

	sqHead  *atomic.Uint32
	sqTail  *atomic.Uint32
	sqMask  uint32
	sqFlags *atomic.Uint32
	sqArray []uint32
	sqes    []sqe

	cqHead *atomic.Uint32
	cqTail *atomic.Uint32
	cqMask uint32
	cqes   []cqe

	nextOp   uint64
	inflight map[uint64]inflightOp

	regBufs [][]byte

	pending atomic.Int64
	closed  bool
}

// New sets up a ring of cfg.QueueDepth entries.
func New(cfg Config) (*Engine, error) {
	cfg.applyDefaults()

	var p uringParams
	if cfg.KernelPoll {
		p.flags |= setupSQPoll
		p.sqThreadIdle = 1000 // ms before the poller sleeps
	}
	fd, _, errno := unix.Syscall(unix.SYS_IO_URING_SETUP, uintptr(cfg.QueueDepth), uintptr(unsafe.Pointer(&p)), 0)
	if errno != 0 {
		return nil, fmt.Errorf("uring: io_uring_setup: %w", errno)
	}
	e := &Engine{
		cfg:      cfg,
		ringFD:   int(fd),
		inflight: make(map[uint64]inflightOp, cfg.QueueDepth),
	}
	if err := e.mmapRings(&p); err != nil {
		unix.Close(e.ringFD)
		return nil, err
	}
	return e, nil
}

func (e *Engine) mmapRings(p *uringParams) error {
	sqSize := int(p.sqOff.array) + int(p.sqEntries)*4
	cqSize := int(p.cqOff.cqes) + int(p.cqEntries)*int(unsafe.Sizeof(cqe{}))
	e.singleM = p.features&featSingleMmap != 0
	if e.singleM && cqSize > sqSize {
		sqSize = cqSize
	}

	sqMem, err := unix.Mmap(e.ringFD, ringOffSQ, sqSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		return fmt.Errorf("uring: mmap sq ring: %w", err)
	}
	e.sqMem = sqMem

	cqMem := sqMem
	if !e.singleM {
		cqMem, err = unix.Mmap(e.ringFD, ringOffCQ, cqSize,
			unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
		if err != nil {
			unix.Munmap(e.sqMem)
			return fmt.Errorf("uring: mmap cq ring: %w", err)
		}
		e.cqMem = cqMem
	}

	sqeMem, err := unix.Mmap(e.ringFD, ringOffSQEs, int(p.sqEntries)*int(unsafe.Sizeof(sqe{})),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		if e.cqMem != nil {
			unix.Munmap(e.cqMem)
		}
		unix.Munmap(e.sqMem)
		return fmt.Errorf("uring: mmap sqes: %w", err)
	}
	e.sqeMem = sqeMem

	base := unsafe.Pointer(&sqMem[0])
	e.sqHead = (*atomic.Uint32)(unsafe.Add(base, p.sqOff.head))
	e.sqTail = (*atomic.Uint32)(unsafe.Add(base, p.sqOff.tail))
	e.sqMask = *(*uint32)(unsafe.Add(base, p.sqOff.ringMask))
	e.sqFlags = (*atomic.Uint32)(unsafe.Add(base, p.sqOff.flags))
	e.sqArray = unsafe.Slice((*uint32)(unsafe.Add(base, p.sqOff.array)), p.sqEntries)
	e.sqes = unsafe.Slice((*sqe)(unsafe.Pointer(&sqeMem[0])), p.sqEntries)

	cbase := unsafe.Pointer(&cqMem[0])
	e.cqHead = (*atomic.Uint32)(unsafe.Add(cbase, p.cqOff.head))
	e.cqTail = (*atomic.Uint32)(unsafe.Add(cbase, p.cqOff.tail))
	e.cqMask = *(*uint32)(unsafe.Add(cbase, p.cqOff.ringMask))
	e.cqes = unsafe.Slice((*cqe)(unsafe.Add(cbase, p.cqOff.cqes)), p.cqEntries)
	return nil
}

// SubmitWrite enqueues an asynchronous write of buf at the absolute file
// offset. Writes beyond the per-op cap are split into sequential
// submissions with advancing offsets; every chunk completes under tag.
// The buffer must stay valid and untouched until the completions for all
// its chunks have been observed.
func (e *Engine) SubmitWrite(fd int, buf []byte, off int64, tag uint64) error {
	if e.cfg.DirectIO {
		if err := checkAligned(uintptr(unsafe.Pointer(&buf[0])), len(buf), off); err != nil {
			return err
		}
	}
	spans := chunkSpans(off, len(buf))
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if len(e.inflight)+len(spans) > e.cfg.QueueDepth {
		return ErrQueueFull
	}
	rel := 0
	for _, s := range spans {
		chunk := buf[rel : rel+s.Count]
		e.pushSQE(sqe{
			opcode:   opWrite,
			fd:       int32(fd),
			off:      uint64(s.Off),
			addr:     uint64(uintptr(unsafe.Pointer(&chunk[0]))),
			len:      uint32(s.Count),
			userData: e.trackOp(tag, s.Count, chunk),
		})
		rel += s.Count
	}
	return e.enterSubmit(len(spans))
}

// RegisterBuffers pins the given buffers in the kernel so fixed-buffer
// submissions skip per-op page pinning. Index i in SubmitWriteFixed refers
// to bufs[i].
func (e *Engine) RegisterBuffers(bufs [][]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	iovs := make([]unix.Iovec, len(bufs))
	for i, b := range bufs {
		iovs[i].Base = &b[0]
		iovs[i].SetLen(len(b))
	}
	_, _, errno := unix.Syscall6(unix.SYS_IO_URING_REGISTER, uintptr(e.ringFD),
		registerBuffers, uintptr(unsafe.Pointer(&iovs[0])), uintptr(len(iovs)), 0, 0)
	if errno != 0 {
		return fmt.Errorf("uring: register buffers: %w", errno)
	}
	e.regBufs = bufs
	return nil
}

// SubmitWriteFixed writes the first count bytes of registered buffer index
// at the absolute offset. The registered buffer cap (BufferSize) is far
// below the per-op cap, so no chunking applies here.
func (e *Engine) SubmitWriteFixed(fd, index, count int, off int64, tag uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if index < 0 || index >= len(e.regBufs) || count > len(e.regBufs[index]) {
		return fmt.Errorf("uring: fixed buffer index %d count %d out of range", index, count)
	}
	buf := e.regBufs[index]
	if e.cfg.DirectIO {
		if err := checkAligned(uintptr(unsafe.Pointer(&buf[0])), count, off); err != nil {
			return err
		}
	}
	if len(e.inflight)+1 > e.cfg.QueueDepth {
		return ErrQueueFull
	}
	e.pushSQE(sqe{
		opcode:   opWriteFixed,
		fd:       int32(fd),
		off:      uint64(off),
		addr:     uint64(uintptr(unsafe.Pointer(&buf[0]))),
		len:      uint32(count),
		bufIndex: uint16(index),
		userData: e.trackOp(tag, count, buf[:count]),
	})
	return e.enterSubmit(1)
}

// trackOp assigns an internal op id and records the expected byte count.
// Caller holds mu.
func (e *Engine) trackOp(tag uint64, count int, buf []byte) uint64 {
	e.nextOp++
	e.inflight[e.nextOp] = inflightOp{tag: tag, count: count, buf: buf}
	e.pending.Add(1)
	return e.nextOp
}

// pushSQE writes one entry at the current tail. Caller holds mu and has
// verified a free slot exists.
func (e *Engine) pushSQE(s sqe) {
	tail := e.sqTail.Load()
	idx := tail & e.sqMask
	e.sqes[idx] = s
	e.sqArray[idx] = idx
	e.sqTail.Store(tail + 1)
}

// enterSubmit tells the kernel about n new entries. With kernel polling
// the syscall is skipped unless the poller went to sleep.
func (e *Engine) enterSubmit(n int) error {
	if e.cfg.KernelPoll {
		if e.sqFlags.Load()&sqNeedWakeup == 0 {
			return nil
		}
		_, _, errno := unix.Syscall6(unix.SYS_IO_URING_ENTER, uintptr(e.ringFD),
			0, 0, enterSQWakeup, 0, 0)
		if errno != 0 {
			return fmt.Errorf("uring: io_uring_enter (wakeup): %w", errno)
		}
		return nil
	}
	_, _, errno := unix.Syscall6(unix.SYS_IO_URING_ENTER, uintptr(e.ringFD),
		uintptr(n), 0, 0, 0, 0)
	if errno != 0 {
		return fmt.Errorf("uring: io_uring_enter (submit %d): %w", n, errno)
	}
	return nil
}

// WaitCompletions blocks until at least n completions are observed and
// returns them. A completion whose kernel result is negative, or whose
// byte count is short, surfaces as *IoError after the whole reap.
func (e *Engine) WaitCompletions(n int) ([]Completion, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	if n > len(e.inflight) {
		n = len(e.inflight)
	}
	var out []Completion
	var firstErr error
	for len(out) < n {
		reaped := e.reapLocked(&out, &firstErr)
		// Errored completions consume inflight slots without producing an
		// entry in out; re-clamp so we never wait for events that cannot
		// arrive.
		if m := len(out) + len(e.inflight); n > m {
			n = m
		}
		if len(out) >= n {
			break
		}
		if reaped == 0 {
			want := n - len(out)
			_, _, errno := unix.Syscall6(unix.SYS_IO_URING_ENTER, uintptr(e.ringFD),
				0, uintptr(want), enterGetEvents, 0, 0)
			if errno != 0 && errno != unix.EINTR {
				return out, fmt.Errorf("uring: io_uring_enter (wait %d): %w", want, errno)
			}
		}
	}
	return out, firstErr
}

// reapLocked drains every posted cqe. Caller holds mu.
func (e *Engine) reapLocked(out *[]Completion, firstErr *error) int {
	head := e.cqHead.Load()
	tail := e.cqTail.Load()
	reaped := 0
	for ; head != tail; head++ {
		c := e.cqes[head&e.cqMask]
		op, ok := e.inflight[c.userData]
		if !ok {
			continue // stray completion; nothing to account
		}
		delete(e.inflight, c.userData)
		e.pending.Add(-1)
		reaped++
		switch {
		case c.res < 0:
			err := &IoError{Tag: op.tag, Op: "write", Cause: syscall.Errno(-c.res)}
			if *firstErr == nil {
				*firstErr = err
			}
		case int(c.res) != op.count:
			err := &IoError{Tag: op.tag, Op: "write",
				Cause: fmt.Errorf("short write: %d of %d bytes", c.res, op.count)}
			if *firstErr == nil {
				*firstErr = err
			}
			*out = append(*out, Completion{Tag: op.tag, Bytes: int(c.res)})
		default:
			*out = append(*out, Completion{Tag: op.tag, Bytes: int(c.res)})
		}
	}
	e.cqHead.Store(head)
	return reaped
}

// Flush waits for every outstanding submission.
func (e *Engine) Flush() error {
	for {
		e.mu.Lock()
		left := len(e.inflight)
		e.mu.Unlock()
		if left == 0 {
			return nil
		}
		if _, err := e.WaitCompletions(left); err != nil {
			return err
		}
	}
}

// PendingCount reports the number of not-yet-completed submissions.
func (e *Engine) PendingCount() int64 { return e.pending.Load() }

// Close drains the ring and releases its resources. Idempotent.
func (e *Engine) Close() error {
	if err := e.Flush(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.regBufs != nil {
		unix.Syscall6(unix.SYS_IO_URING_REGISTER, uintptr(e.ringFD), unregisterBuffers, 0, 0, 0, 0)
	}
	unix.Munmap(e.sqeMem)
	if e.cqMem != nil {
		unix.Munmap(e.cqMem)
	}
	unix.Munmap(e.sqMem)
	return unix.Close(e.ringFD)
}
