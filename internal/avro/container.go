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
	"crypto/rand"
	"fmt"
	"os"
)

// Magic opens every container file.
var Magic = [4]byte{'O', 'b', 'j', 1}

// Container assembles one object-container file in memory: header with
// the schema and codec metadata, then one block per WriteBlock call,
// each closed by the file's random 16-byte sync marker. The codec is
// always "null"; records are stored uncompressed.
type Container struct {
	schemaJSON string
	sync       [16]byte
	out        []byte
}

// NewContainer starts a container for records of the given schema.
func NewContainer(schemaJSON string) (*Container, error) {
	c := &Container{schemaJSON: schemaJSON}
	if _, err := rand.Read(c.sync[:]); err != nil {
		return nil, fmt.Errorf("avro: sync marker: %w", err)
	}
	c.out = append(c.out, Magic[:]...)
	// metadata map: one block of two entries, then the zero terminator
	c.out = AppendLong(c.out, 2)
	c.out = AppendString(c.out, "avro.schema")
	c.out = AppendBytes(c.out, []byte(schemaJSON))
	c.out = AppendString(c.out, "avro.codec")
	c.out = AppendBytes(c.out, []byte("null"))
	c.out = AppendLong(c.out, 0)
	c.out = append(c.out, c.sync[:]...)
	return c, nil
}

// WriteBlock appends one data block holding count pre-encoded records.
func (c *Container) WriteBlock(count int, records []byte) {
	c.out = AppendLong(c.out, int64(count))
	c.out = AppendLong(c.out, int64(len(records)))
	c.out = append(c.out, records...)
	c.out = append(c.out, c.sync[:]...)
}

// Bytes returns the assembled file.
func (c *Container) Bytes() []byte { return c.out }

// WriteFile lands the container at path.
func (c *Container) WriteFile(path string) error {
	if err := os.WriteFile(path, c.out, 0o644); err != nil {
		return fmt.Errorf("avro: write %s: %w", path, err)
	}
	return nil
}
