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
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgress_Add(t *testing.T) {
	t.Run("accumulates processed bytes", func(t *testing.T) {
		p := NewProgress(1000)
		p.Add(100)
		p.Add(200)
		assert.Equal(t, int64(300), p.Processed())
	})

	t.Run("ignores non-positive increments", func(t *testing.T) {
		p := NewProgress(1000)
		p.Add(100)
		p.Add(0)
		p.Add(-50)
		assert.Equal(t, int64(100), p.Processed())
	})

	t.Run("never exceeds total", func(t *testing.T) {
		p := NewProgress(100)
		assert.Equal(t, int64(100), p.Add(150))
		assert.Equal(t, int64(100), p.Processed())
	})
}

func TestProgress_Percentage(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		processed int64
		expected  float64
	}{
		{"0% progress", 1000, 0, 0.0},
		{"50% progress", 1000, 500, 50.0},
		{"100% progress", 1000, 1000, 100.0},
		{"partial percentage", 1000, 333, 33.3},
		{"zero total is complete", 0, 0, 100.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProgress(tt.total)
			p.Add(tt.processed)
			assert.InDelta(t, tt.expected, p.Percentage(), 0.1)
		})
	}
}

func TestProgress_Metrics(t *testing.T) {
	t.Run("speed and ETA derive from start time", func(t *testing.T) {
		now := time.Now()
		p := NewProgress(2000)
		p.Start(now.Add(-time.Second))
		p.Add(1000)

		m := p.Metrics(now)

		assert.Equal(t, int64(2000), m.TotalBytes)
		assert.Equal(t, int64(1000), m.ProcessedBytes)
		assert.InDelta(t, 50.0, m.Percentage, 0.1)
		assert.InDelta(t, 1000.0, m.BytesPerSecond, 0.1)
		assert.InDelta(t, 1.0, m.ETASeconds, 0.01)
		assert.InDelta(t, 1.0, m.ElapsedSeconds, 0.01)
	})

	t.Run("not started reports no speed", func(t *testing.T) {
		p := NewProgress(2000)
		p.Add(1000)

		m := p.Metrics(time.Now())

		assert.Zero(t, m.BytesPerSecond)
		assert.Zero(t, m.ETASeconds)
	})

	t.Run("complete has zero ETA", func(t *testing.T) {
		now := time.Now()
		p := NewProgress(1000)
		p.Start(now.Add(-time.Second))
		p.Add(1000)

		assert.Zero(t, p.Metrics(now).ETASeconds)
	})
}

func TestFormatSpeed(t *testing.T) {
	tests := []struct {
		name           string
		expected       string
		bytesPerSecond float64
	}{
		{"bytes per second", "500 B/s", 500},
		{"kibibytes per second", "1.5 KiB/s", 1536},
		{"mebibytes per second", "1.5 MiB/s", 1.5 * 1024 * 1024},
		{"zero speed", "0 B/s", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatSpeed(tt.bytesPerSecond))
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		bytes    int64
	}{
		{"bytes", "500 B", 500},
		{"kibibytes", "100.0 KiB", 100 * 1024},
		{"mebibytes", "2.0 MiB", 2 * 1024 * 1024},
		{"gibibytes", "100.0 GiB", 100 << 30},
		{"tebibytes", "1.5 TiB", 3 << 39},
		{"zero bytes", "0 B", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatSize(tt.bytes))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		duration time.Duration
	}{
		{"seconds only", "00:00:45", 45 * time.Second},
		{"hours minutes seconds", "02:30:45", 2*time.Hour + 30*time.Minute + 45*time.Second},
		{"sub-second", "00:00:00", 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDuration(tt.duration))
		})
	}
}

func TestPrintProgressLine(t *testing.T) {
	var b strings.Builder
	PrintProgressLine(&b, Snapshot{Status: StatusPending})
	assert.Equal(t, "\rState: pending", b.String())

	b.Reset()
	PrintProgressLine(&b, Snapshot{
		Status: StatusInProgress,
		Metrics: ProgressMetrics{
			TotalBytes:     2048,
			ProcessedBytes: 1024,
			Percentage:     50,
			BytesPerSecond: 512,
			ETASeconds:     2,
		},
	})
	assert.Equal(t, "\r[50.0%] 1.0 KiB / 2.0 KiB | 512 B/s | ETA: 00:00:02     ", b.String())
}

func TestProgress_ThreadSafety(t *testing.T) {
	p := NewProgress(100000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Add(10)
				_ = p.Percentage()
				_ = p.Metrics(time.Now())
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10000), p.Processed())
}

func BenchmarkProgress_Add(b *testing.B) {
	p := NewProgress(int64(b.N) * 1000)
	for i := 0; i < b.N; i++ {
		p.Add(1000)
	}
}
