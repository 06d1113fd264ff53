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

package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// fileConfig is the optional TOML option file. Flags win over the file.
type fileConfig struct {
	Writer struct {
		Compression  string `toml:"compression"`
		RowGroupRows int64  `toml:"row_group_rows"`
		BatchRows    int    `toml:"batch_size_rows"`
		DirectIO     bool   `toml:"use_direct_io"`
	} `toml:"writer"`
	Async struct {
		QueueDepth int  `toml:"queue_depth"`
		BufferSize int  `toml:"buffer_size"`
		NumBuffers int  `toml:"num_buffers"`
		KernelPoll bool `toml:"kernel_poll"`
	} `toml:"async"`
}

func loadConfig(path string) (*fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return &cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}
