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

import "sync"

// BufferPool hands out reusable chunk buffers of a fixed default size.
// Buffers of any other size are allocated on demand and never pooled.
// It is safe for concurrent use.
type BufferPool struct {
	free     [][]byte
	leased   map[*byte]struct{}
	size     int
	acquired int64
	released int64
	mu       sync.Mutex
}

// PoolStats is a snapshot of default-size buffer accounting.
type PoolStats struct {
	Acquired    int64 // Default-size buffers handed out
	Released    int64 // Default-size buffers returned
	Outstanding int64 // Currently leased
	Idle        int   // Buffers waiting in the pool
}

// NewBufferPool creates a pool of buffers of chunkSize bytes.
func NewBufferPool(chunkSize int) *BufferPool {
	return &BufferPool{
		size:   chunkSize,
		leased: make(map[*byte]struct{}),
	}
}

// ChunkSize returns the default buffer size.
func (bp *BufferPool) ChunkSize() int {
	return bp.size
}

// Acquire returns a buffer of exactly size bytes. Default-size requests are
// served from the pool; anything else gets a fresh allocation.
func (bp *BufferPool) Acquire(size int) []byte {
	if size != bp.size || size == 0 {
		return make([]byte, size)
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()

	var buf []byte
	if n := len(bp.free); n > 0 {
		buf = bp.free[n-1]
		bp.free[n-1] = nil
		bp.free = bp.free[:n-1]
	} else {
		buf = make([]byte, bp.size)
	}
	bp.leased[&buf[0]] = struct{}{}
	bp.acquired++
	return buf
}

// Release returns buf to the pool. Buffers that were not leased from this
// pool, or were already released, are dropped.
func (bp *BufferPool) Release(buf []byte) {
	if cap(buf) < bp.size || bp.size == 0 {
		return
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()

	key := &buf[:1][0]
	if _, ok := bp.leased[key]; !ok {
		return
	}
	delete(bp.leased, key)
	bp.released++
	bp.free = append(bp.free, buf[:bp.size])
}

// Stats returns the current accounting counters.
func (bp *BufferPool) Stats() PoolStats {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return PoolStats{
		Acquired:    bp.acquired,
		Released:    bp.released,
		Outstanding: int64(len(bp.leased)),
		Idle:        len(bp.free),
	}
}
