// Copyright 2020 The NATS Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package staticfile

// TransferMode selects how a file's bytes reach the socket.
type TransferMode int

const (
	Auto TransferMode = iota
	Buffered
	Chunked
	ZeroCopy
)

// Config is a mount's file-serving configuration, matching the
// server configuration surface enumerated in spec.md §6.
type Config struct {
	TransferMode     TransferMode `yaml:"transfer_mode"`
	SmallThreshold   int64        `yaml:"small_threshold"`
	LargeThreshold   int64        `yaml:"large_threshold"`
	ChunkSize        int          `yaml:"chunk_size"`
	ZeroCopyBlock    int64        `yaml:"zero_copy_block"`
	EnableCache      bool         `yaml:"enable_cache"`
	MaxCacheSize     int64        `yaml:"max_cache_size"`
	BlockHiddenFiles bool         `yaml:"block_hidden_files"`
	DenyList         []string     `yaml:"deny_list"`
}

// DefaultConfig matches the defaults spec.md §6 enumerates.
func DefaultConfig() Config {
	return Config{
		TransferMode:     Auto,
		SmallThreshold:   64 * 1024,
		LargeThreshold:   1024 * 1024,
		ChunkSize:        64 * 1024,
		ZeroCopyBlock:    10 * 1024 * 1024,
		BlockHiddenFiles: false,
		DenyList:         append([]string(nil), DefaultDenyList...),
	}
}

// SelectMode resolves the config's mode preference against an
// effective transfer size per spec.md §4.7 step 5: an explicit mode
// always wins; AUTO buckets by size.
func (c Config) SelectMode(size int64) TransferMode {
	if c.TransferMode != Auto {
		return c.TransferMode
	}
	switch {
	case size <= c.SmallThreshold:
		return Buffered
	case size <= c.LargeThreshold:
		return Chunked
	default:
		return ZeroCopy
	}
}
