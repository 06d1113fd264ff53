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

package avro

import (
	"bytes"
	"math"
	"testing"
)

// decoder is an independent reader of the same framing, kept test-local
// on purpose: the production package only ever encodes.
type decoder struct {
	buf []byte
	pos int
	err error
}

func (d *decoder) varint() uint64 {
	var v uint64
	var shift uint
	for {
		if d.pos >= len(d.buf) {
			d.err = errShort
			return 0
		}
		b := d.buf[d.pos]
		d.pos++
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v
		}
		shift += 7
	}
}

var errShort = bytes.ErrTooLarge

func (d *decoder) long() int64 { return UnZigZag64(d.varint()) }

func (d *decoder) bytes() []byte {
	n := d.long()
	if d.pos+int(n) > len(d.buf) {
		d.err = errShort
		return nil
	}
	out := d.buf[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return out
}

func (d *decoder) str() string { return string(d.bytes()) }

func TestZigZagRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 300, math.MinInt64, math.MaxInt64, -300, 42}
	for _, v := range values {
		enc := AppendLong(nil, v)
		d := &decoder{buf: enc}
		if got := d.long(); got != v || d.err != nil {
			t.Errorf("long %d round-tripped as %d (err %v)", v, got, d.err)
		}
		if d.pos != len(enc) {
			t.Errorf("long %d: %d trailing bytes", v, len(enc)-d.pos)
		}
	}
}

func TestZigZagKnownEncodings(t *testing.T) {
	// spot-check the wire bytes against the specification's examples
	testCases := []struct {
		v    int64
		want []byte
	}{
		{0, []byte{0x00}},
		{-1, []byte{0x01}},
		{1, []byte{0x02}},
		{-2, []byte{0x03}},
		{64, []byte{0x80, 0x01}},
	}
	for _, tc := range testCases {
		if got := AppendLong(nil, tc.v); !bytes.Equal(got, tc.want) {
			t.Errorf("AppendLong(%d) = %x, want %x", tc.v, got, tc.want)
		}
	}
}

func TestNullableBytesUnion(t *testing.T) {
	if got := AppendNullableBytes(nil, nil); !bytes.Equal(got, []byte{0x00}) {
		t.Errorf("null branch = %x, want 00", got)
	}
	enc := AppendNullableBytes(nil, []byte("hi"))
	d := &decoder{buf: enc}
	if branch := d.long(); branch != 1 {
		t.Fatalf("branch = %d, want 1", branch)
	}
	if got := d.str(); got != "hi" {
		t.Errorf("payload = %q, want hi", got)
	}
}

func TestContainer_IndependentReader(t *testing.T) {
	const schema = `{"type":"record","name":"t","fields":[{"name":"a","type":"long"}]}`
	c, err := NewContainer(schema)
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}

	var recs []byte
	want := []int64{0, 1, -1, 300, math.MinInt64, math.MaxInt64}
	for _, v := range want {
		recs = AppendLong(recs, v)
	}
	c.WriteBlock(len(want), recs)
	c.WriteBlock(1, AppendLong(nil, 7))

	d := &decoder{buf: c.Bytes()}

	// magic
	if !bytes.Equal(d.buf[:4], Magic[:]) {
		t.Fatalf("magic = %x", d.buf[:4])
	}
	d.pos = 4

	// metadata map
	meta := map[string]string{}
	for {
		n := d.long()
		if n == 0 {
			break
		}
		for i := int64(0); i < n; i++ {
			meta[d.str()] = string(d.bytes())
		}
	}
	if meta["avro.schema"] != schema {
		t.Errorf("avro.schema = %q", meta["avro.schema"])
	}
	if meta["avro.codec"] != "null" {
		t.Errorf("avro.codec = %q", meta["avro.codec"])
	}

	// header sync marker
	var sync [16]byte
	copy(sync[:], d.buf[d.pos:d.pos+16])
	d.pos += 16

	// block 1
	if n := d.long(); n != int64(len(want)) {
		t.Fatalf("block 1 count = %d", n)
	}
	blockLen := d.long()
	end := d.pos + int(blockLen)
	for i, w := range want {
		if got := d.long(); got != w {
			t.Errorf("record %d = %d, want %d", i, got, w)
		}
	}
	if d.pos != end {
		t.Fatalf("block 1 payload length mismatch")
	}
	if !bytes.Equal(d.buf[d.pos:d.pos+16], sync[:]) {
		t.Error("block 1 sync marker differs from header sync")
	}
	d.pos += 16

	// block 2
	if n := d.long(); n != 1 {
		t.Fatalf("block 2 count = %d", n)
	}
	d.long() // byte count
	if got := d.long(); got != 7 {
		t.Errorf("block 2 record = %d, want 7", got)
	}
	if !bytes.Equal(d.buf[d.pos:d.pos+16], sync[:]) {
		t.Error("block 2 sync marker differs")
	}
	d.pos += 16
	if d.pos != len(d.buf) {
		t.Errorf("%d trailing bytes after final sync", len(d.buf)-d.pos)
	}
	if d.err != nil {
		t.Fatalf("decoder error: %v", d.err)
	}
}
