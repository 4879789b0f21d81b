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

// Package transfer implements the chunked upload engine: a pooled copy loop
// from a Source of known length into a Destination, tracked by an UploadTask.
package transfer

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// Progress counts bytes delivered for one upload.
// It is safe for concurrent use.
type Progress struct {
	start     atomic.Int64 // unix nanos, zero until started
	total     int64
	processed atomic.Int64
}

// ProgressMetrics contains a snapshot of transfer metrics.
type ProgressMetrics struct {
	TotalBytes     int64   // Declared source length
	ProcessedBytes int64   // Bytes written to the destination
	Percentage     float64 // 0-100, 100 for empty sources
	BytesPerSecond float64 // Average speed since start
	ETASeconds     float64 // Estimated time remaining in seconds
	ElapsedSeconds float64 // Time since start
}

// NewProgress creates a tracker for totalBytes.
func NewProgress(totalBytes int64) *Progress {
	return &Progress{total: totalBytes}
}

// Start stamps the start time used for speed and ETA.
func (p *Progress) Start(now time.Time) {
	p.start.Store(now.UnixNano())
}

// Add advances the processed counter by n bytes, never past the total.
func (p *Progress) Add(n int64) int64 {
	if n <= 0 {
		return p.processed.Load()
	}
	for {
		cur := p.processed.Load()
		next := cur + n
		if next > p.total {
			next = p.total
		}
		if p.processed.CompareAndSwap(cur, next) {
			return next
		}
	}
}

// Total returns the declared length.
func (p *Progress) Total() int64 {
	return p.total
}

// Processed returns bytes delivered so far.
func (p *Progress) Processed() int64 {
	return p.processed.Load()
}

// Percentage returns the completion percentage (0-100).
// An empty upload is always 100% done.
func (p *Progress) Percentage() float64 {
	return percentOf(p.processed.Load(), p.total)
}

func percentOf(processed, total int64) float64 {
	if total <= 0 {
		return 100.0
	}
	if processed >= total {
		return 100.0
	}
	return float64(processed) / float64(total) * 100.0
}

// Metrics returns a snapshot of all transfer metrics at once.
func (p *Progress) Metrics(now time.Time) ProgressMetrics {
	processed := p.processed.Load()
	m := ProgressMetrics{
		TotalBytes:     p.total,
		ProcessedBytes: processed,
		Percentage:     percentOf(processed, p.total),
	}

	started := p.start.Load()
	if started == 0 {
		return m
	}
	elapsed := now.Sub(time.Unix(0, started)).Seconds()
	m.ElapsedSeconds = elapsed
	if elapsed > 0 && processed > 0 {
		m.BytesPerSecond = float64(processed) / elapsed
		if processed < p.total {
			m.ETASeconds = float64(p.total-processed) / m.BytesPerSecond
		}
	}
	return m
}

// FormatSpeed formats a speed value (bytes per second) into a human-readable string.
func FormatSpeed(bytesPerSecond float64) string {
	return FormatSize(int64(bytesPerSecond)) + "/s"
}

// FormatSize formats a byte size using binary units.
func FormatSize(bytes int64) string {
	const TiB = 1024 * GiB

	switch {
	case bytes >= TiB:
		return fmt.Sprintf("%.1f TiB", float64(bytes)/float64(TiB))
	case bytes >= GiB:
		return fmt.Sprintf("%.1f GiB", float64(bytes)/float64(GiB))
	case bytes >= MiB:
		return fmt.Sprintf("%.1f MiB", float64(bytes)/float64(MiB))
	case bytes >= KiB:
		return fmt.Sprintf("%.1f KiB", float64(bytes)/float64(KiB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatDuration formats a duration into HH:MM:SS format.
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// PrintProgressLine writes a single-line progress update suitable for
// terminal output. Each call overwrites the previous line.
func PrintProgressLine(w io.Writer, s Snapshot) {
	if s.Status == StatusPending {
		fmt.Fprintf(w, "\rState: %s", s.Status)
		return
	}

	m := s.Metrics
	eta := FormatDuration(time.Duration(m.ETASeconds * float64(time.Second)))
	fmt.Fprintf(w, "\r[%.1f%%] %s / %s | %s | ETA: %s     ",
		m.Percentage, FormatSize(m.ProcessedBytes), FormatSize(m.TotalBytes), FormatSpeed(m.BytesPerSecond), eta)
}
