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
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of an upload.
type Status int32

const (
	// StatusPending indicates the task was created but Run was not invoked.
	StatusPending Status = iota
	// StatusInProgress indicates chunks are being copied.
	StatusInProgress
	// StatusCompleted indicates every byte reached the destination.
	StatusCompleted
	// StatusCanceled indicates cancellation was observed at a chunk boundary.
	StatusCanceled
	// StatusFailed indicates the upload aborted with an error.
	StatusFailed
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusCanceled:
		return "canceled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for c := StatusPending; c <= StatusFailed; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// IsTerminal reports whether no further transition can leave s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled || s == StatusFailed
}

// Snapshot is a consistent, read-only view of an UploadTask.
type Snapshot struct {
	UpdatedAt time.Time
	Err       error
	ID        string
	Name      string
	Path      string
	Checksum  string
	Metrics   ProgressMetrics
	Status    Status
}

// Observer receives a Snapshot after every state or progress change.
type Observer func(Snapshot)

// UploadTask records one transfer from a Source to a destination path.
// The engine is its only writer; any goroutine may read it.
type UploadTask struct {
	source    Source
	progress  *Progress
	err       error
	id        string
	path      string
	checksum  string
	observers map[int]Observer
	nextObs   int
	mu        sync.RWMutex
	status    atomic.Int32
}

// NewUploadTask creates a Pending task that will copy src to path.
func NewUploadTask(src Source, path string) *UploadTask {
	return &UploadTask{
		id:        uuid.NewString(),
		source:    src,
		path:      path,
		progress:  NewProgress(src.Size()),
		observers: make(map[int]Observer),
	}
}

// ID returns the task identifier.
func (t *UploadTask) ID() string { return t.id }

// Path returns the resolved destination path.
func (t *UploadTask) Path() string { return t.path }

// Source returns the task's byte source.
func (t *UploadTask) Source() Source { return t.source }

// Status returns the current lifecycle state.
func (t *UploadTask) Status() Status {
	return Status(t.status.Load())
}

// TotalBytes returns the declared source length.
func (t *UploadTask) TotalBytes() int64 {
	return t.progress.Total()
}

// ProcessedBytes returns bytes written to the destination so far.
func (t *UploadTask) ProcessedBytes() int64 {
	return t.progress.Processed()
}

// Percent returns progress in the 0-100 range. It reads 100 only once the
// task is Completed, or for an empty source.
func (t *UploadTask) Percent() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.progress.Percentage()
}

// Err returns the failure cause. It is nil unless the task Failed.
func (t *UploadTask) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// Checksum returns the hex SHA-256 of the delivered bytes once Completed.
func (t *UploadTask) Checksum() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.checksum
}

// Snapshot returns the current state of the task.
func (t *UploadTask) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *UploadTask) snapshotLocked() Snapshot {
	now := time.Now()
	return Snapshot{
		ID:        t.id,
		Name:      t.source.Name(),
		Path:      t.path,
		Status:    t.Status(),
		Metrics:   t.progress.Metrics(now),
		Err:       t.err,
		Checksum:  t.checksum,
		UpdatedAt: now,
	}
}

// Subscribe registers fn for updates and returns a function that removes it.
// Observers run on the engine goroutine and must not block.
func (t *UploadTask) Subscribe(fn Observer) (unsubscribe func()) {
	t.mu.Lock()
	id := t.nextObs
	t.nextObs++
	t.observers[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.observers, id)
		t.mu.Unlock()
	}
}

// String implements fmt.Stringer.
func (t *UploadTask) String() string {
	return fmt.Sprintf("upload %s -> %s [%s %.1f%%]", t.id, t.path, t.Status(), t.Percent())
}

// begin moves Pending to InProgress. It fails if the task already ran.
func (t *UploadTask) begin(now time.Time) bool {
	if !t.status.CompareAndSwap(int32(StatusPending), int32(StatusInProgress)) {
		return false
	}
	t.progress.Start(now)
	t.notify()
	return true
}

func (t *UploadTask) advance(n int64) {
	t.progress.Add(n)
	t.notify()
}

// complete publishes the final n bytes together with the Completed status so
// observers never see 100% on a task that is still running.
func (t *UploadTask) complete(n int64, checksum string) {
	t.mu.Lock()
	if t.Status() != StatusInProgress {
		t.mu.Unlock()
		return
	}
	t.progress.Add(n)
	t.checksum = checksum
	t.status.Store(int32(StatusCompleted))
	t.mu.Unlock()
	t.notify()
}

func (t *UploadTask) fail(err error) {
	t.finish(StatusFailed, err)
}

func (t *UploadTask) cancel() {
	t.finish(StatusCanceled, nil)
}

func (t *UploadTask) finish(s Status, err error) {
	t.mu.Lock()
	if !t.status.CompareAndSwap(int32(StatusInProgress), int32(s)) {
		t.mu.Unlock()
		return
	}
	t.err = err
	t.mu.Unlock()
	t.notify()
}

func (t *UploadTask) notify() {
	t.mu.RLock()
	if len(t.observers) == 0 {
		t.mu.RUnlock()
		return
	}
	snap := t.snapshotLocked()
	observers := make([]Observer, 0, len(t.observers))
	for _, fn := range t.observers {
		observers = append(observers, fn)
	}
	t.mu.RUnlock()

	for _, fn := range observers {
		fn(snap)
	}
}
