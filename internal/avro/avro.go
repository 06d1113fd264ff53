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

// Package avro is a hand-rolled encoder for the Avro binary encoding and
// object-container framing, sized for manifest records: zig-zag varints,
// length-prefixed strings and bytes, union-tagged nulls, and the
// container file layout (magic, metadata map, data blocks, sync marker).
// No third-party serializer is involved, so the emitted bytes are fixed
// by this package alone.
package avro

// AppendVarint appends v in seven-bit groups, continuation bit set on
// every byte but the last.
func AppendVarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// ZigZag64 folds the sign bit into bit zero.
func ZigZag64(n int64) uint64 { return uint64(n<<1) ^ uint64(n>>63) }

// ZigZag32 is the 32-bit fold.
func ZigZag32(n int32) uint32 { return uint32(n<<1) ^ uint32(n>>31) }

// UnZigZag64 reverses ZigZag64.
func UnZigZag64(u uint64) int64 { return int64(u>>1) ^ -int64(u&1) }

// AppendLong appends an Avro long (zig-zag then varint).
func AppendLong(dst []byte, n int64) []byte {
	return AppendVarint(dst, ZigZag64(n))
}

// AppendInt appends an Avro int.
func AppendInt(dst []byte, n int32) []byte {
	return AppendVarint(dst, uint64(ZigZag32(n)))
}

// AppendString appends a length-prefixed UTF-8 string.
func AppendString(dst []byte, s string) []byte {
	dst = AppendLong(dst, int64(len(s)))
	return append(dst, s...)
}

// AppendBytes appends length-prefixed raw bytes.
func AppendBytes(dst []byte, b []byte) []byte {
	dst = AppendLong(dst, int64(len(b)))
	return append(dst, b...)
}

// AppendUnionBranch appends the zig-zag branch index of a union value.
// Branch 0 is null by convention and carries no payload.
func AppendUnionBranch(dst []byte, branch int32) []byte {
	return AppendInt(dst, branch)
}

// AppendNullableBytes encodes a [null, bytes] union: branch 0 when b is
// nil, branch 1 plus the payload otherwise.
func AppendNullableBytes(dst []byte, b []byte) []byte {
	if b == nil {
		return AppendUnionBranch(dst, 0)
	}
	dst = AppendUnionBranch(dst, 1)
	return AppendBytes(dst, b)
}

// AppendNullableLong encodes a [null, long] union.
func AppendNullableLong(dst []byte, n *int64) []byte {
	if n == nil {
		return AppendUnionBranch(dst, 0)
	}
	dst = AppendUnionBranch(dst, 1)
	return AppendLong(dst, *n)
}
