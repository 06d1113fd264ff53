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

package paimon

import "tpchgen/internal/avro"

// Manifest and manifest-list schemas are fixed upstream; they are kept
// here as in-repo constants so drift shows up in review, not at a
// reader. Field order below is encoding order.

// ManifestEntrySchema is the Avro schema of one manifest entry.
const ManifestEntrySchema = `{"type":"record","name":"ManifestEntry","fields":[` +
	`{"name":"_KIND","type":"int"},` +
	`{"name":"_PARTITION","type":"bytes"},` +
	`{"name":"_BUCKET","type":"int"},` +
	`{"name":"_TOTAL_BUCKETS","type":"int"},` +
	`{"name":"_FILE","type":{"type":"record","name":"DataFileMeta","fields":[` +
	`{"name":"fileName","type":"string"},` +
	`{"name":"fileSize","type":"long"},` +
	`{"name":"level","type":"int"},` +
	`{"name":"minKey","type":"bytes"},` +
	`{"name":"maxKey","type":"bytes"},` +
	`{"name":"columnStats","type":"bytes"},` +
	`{"name":"nullCounts","type":"bytes"},` +
	`{"name":"rowCount","type":"long"},` +
	`{"name":"sequenceNumber","type":"long"},` +
	`{"name":"fileSource","type":"int"},` +
	`{"name":"schemaId","type":"long"}]}}]}`

// ManifestListEntrySchema is the Avro schema of one manifest-list entry.
const ManifestListEntrySchema = `{"type":"record","name":"ManifestListEntry","fields":[` +
	`{"name":"_FILE_NAME","type":"string"},` +
	`{"name":"_FILE_SIZE","type":"long"},` +
	`{"name":"_NUM_ADDED_FILES","type":"long"},` +
	`{"name":"_NUM_DELETED_FILES","type":"long"},` +
	`{"name":"_PARTITION_STATS","type":"bytes"},` +
	`{"name":"_SCHEMA_ID","type":"long"}]}`

// Entry kinds and file sources.
const (
	KindAdd          = 0
	FileSourceAppend = 0
)

// DataFileMeta is the per-file metadata carried by a manifest entry.
type DataFileMeta struct {
	FileName       string
	FileSize       int64
	Level          int32
	MinKey         []byte
	MaxKey         []byte
	ColumnStats    []byte
	NullCounts     []byte
	RowCount       int64
	SequenceNumber int64
	FileSource     int32
	SchemaID       int64
}

// ManifestEntry is one record of a manifest file.
type ManifestEntry struct {
	Kind         int32
	Partition    []byte
	Bucket       int32
	TotalBuckets int32
	File         DataFileMeta
}

// AppendTo encodes the entry in schema order. Records have no framing of
// their own; fields are simply concatenated.
func (m *ManifestEntry) AppendTo(dst []byte) []byte {
	dst = avro.AppendInt(dst, m.Kind)
	dst = avro.AppendBytes(dst, m.Partition)
	dst = avro.AppendInt(dst, m.Bucket)
	dst = avro.AppendInt(dst, m.TotalBuckets)
	dst = avro.AppendString(dst, m.File.FileName)
	dst = avro.AppendLong(dst, m.File.FileSize)
	dst = avro.AppendInt(dst, m.File.Level)
	dst = avro.AppendBytes(dst, m.File.MinKey)
	dst = avro.AppendBytes(dst, m.File.MaxKey)
	dst = avro.AppendBytes(dst, m.File.ColumnStats)
	dst = avro.AppendBytes(dst, m.File.NullCounts)
	dst = avro.AppendLong(dst, m.File.RowCount)
	dst = avro.AppendLong(dst, m.File.SequenceNumber)
	dst = avro.AppendInt(dst, m.File.FileSource)
	return avro.AppendLong(dst, m.File.SchemaID)
}

// ManifestListEntry is one record of a manifest-list file.
type ManifestListEntry struct {
	FileName        string
	FileSize        int64
	NumAddedFiles   int64
	NumDeletedFiles int64
	PartitionStats  []byte
	SchemaID        int64
}

// AppendTo encodes the entry in schema order.
func (m *ManifestListEntry) AppendTo(dst []byte) []byte {
	dst = avro.AppendString(dst, m.FileName)
	dst = avro.AppendLong(dst, m.FileSize)
	dst = avro.AppendLong(dst, m.NumAddedFiles)
	dst = avro.AppendLong(dst, m.NumDeletedFiles)
	dst = avro.AppendBytes(dst, m.PartitionStats)
	return avro.AppendLong(dst, m.SchemaID)
}

// WriteManifest lands a container with one entry per data file.
func WriteManifest(path string, entries []ManifestEntry) (int64, error) {
	c, err := avro.NewContainer(ManifestEntrySchema)
	if err != nil {
		return 0, err
	}
	var recs []byte
	for i := range entries {
		recs = entries[i].AppendTo(recs)
	}
	c.WriteBlock(len(entries), recs)
	if err := c.WriteFile(path); err != nil {
		return 0, err
	}
	return int64(len(c.Bytes())), nil
}

// WriteManifestList lands a container with one entry per manifest.
func WriteManifestList(path string, entries []ManifestListEntry) (int64, error) {
	c, err := avro.NewContainer(ManifestListEntrySchema)
	if err != nil {
		return 0, err
	}
	var recs []byte
	for i := range entries {
		recs = entries[i].AppendTo(recs)
	}
	c.WriteBlock(len(entries), recs)
	if err := c.WriteFile(path); err != nil {
		return 0, err
	}
	return int64(len(c.Bytes())), nil
}
