/*
Copyright © 2026 Anton Brekhov <anton@abrekhov.ru>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package transfer

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

const (
	KiB = 1024
	MiB = 1024 * KiB
	GiB = 1024 * MiB
)

// Configuration keys understood by ConfigFromViper.
const (
	KeyMaxChunkBytes      = "max_chunk_bytes"
	KeyMaxTotalBytes      = "max_total_bytes"
	KeyMaxConcurrentTasks = "max_concurrent_tasks"
	KeyMaxZeroReads       = "max_zero_reads"
)

// Config bounds the engine. It is fixed at construction.
type Config struct {
	MaxChunkBytes      int   // Largest chunk staged in memory per read/write
	MaxTotalBytes      int64 // Largest declared source length accepted
	MaxConcurrentTasks int   // Uploads allowed to run at once
	MaxZeroReads       int   // Consecutive empty reads tolerated inside a chunk
}

// DefaultConfig returns the stock limits: 100 KiB chunks, 100 GiB uploads,
// 100 concurrent tasks.
func DefaultConfig() Config {
	return Config{
		MaxChunkBytes:      100 * KiB,
		MaxTotalBytes:      100 * GiB,
		MaxConcurrentTasks: 100,
		MaxZeroReads:       16,
	}
}

// Validate checks that every limit is usable.
func (c Config) Validate() error {
	var errs []error
	if c.MaxChunkBytes < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", KeyMaxChunkBytes, c.MaxChunkBytes))
	}
	if c.MaxTotalBytes < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", KeyMaxTotalBytes, c.MaxTotalBytes))
	}
	if c.MaxConcurrentTasks < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", KeyMaxConcurrentTasks, c.MaxConcurrentTasks))
	}
	if c.MaxZeroReads < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", KeyMaxZeroReads, c.MaxZeroReads))
	}
	return errors.Join(errs...)
}

// SetDefaults registers DefaultConfig values on v.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault(KeyMaxChunkBytes, d.MaxChunkBytes)
	v.SetDefault(KeyMaxTotalBytes, d.MaxTotalBytes)
	v.SetDefault(KeyMaxConcurrentTasks, d.MaxConcurrentTasks)
	v.SetDefault(KeyMaxZeroReads, d.MaxZeroReads)
}

// ConfigFromViper reads engine limits from v, falling back to DefaultConfig
// for unset keys.
func ConfigFromViper(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	c := Config{
		MaxChunkBytes:      v.GetInt(KeyMaxChunkBytes),
		MaxTotalBytes:      v.GetInt64(KeyMaxTotalBytes),
		MaxConcurrentTasks: v.GetInt(KeyMaxConcurrentTasks),
		MaxZeroReads:       v.GetInt(KeyMaxZeroReads),
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid transfer config: %w", err)
	}
	return c, nil
}
