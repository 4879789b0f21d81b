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
	"context"
	"errors"
	"io"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ErrTaskNotFound is returned for an unknown task id.
var ErrTaskNotFound = errors.New("task not found")

type entry struct {
	task   *UploadTask
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Registry runs uploads in the background and keeps them addressable by id
// so observers can poll or cancel them.
type Registry struct {
	ctx     context.Context
	engine  *Engine
	entries map[string]*entry
	order   []string
	wg      sync.WaitGroup
	mu      sync.RWMutex
}

// NewRegistry creates a Registry whose uploads are children of ctx.
func NewRegistry(ctx context.Context, engine *Engine) *Registry {
	return &Registry{
		ctx:     ctx,
		engine:  engine,
		entries: make(map[string]*entry),
	}
}

// Engine returns the engine uploads run on.
func (r *Registry) Engine() *Engine {
	return r.engine
}

// Submit starts task in the background. If the task's source is an
// io.Closer it is closed once the task is terminal.
func (r *Registry) Submit(task *UploadTask, dest Destination) *UploadTask {
	ctx, cancel := context.WithCancel(r.ctx)
	e := &entry{task: task, cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	r.entries[task.ID()] = e
	r.order = append(r.order, task.ID())
	r.mu.Unlock()

	logger := log.WithFields(log.Fields{
		"task": task.ID(),
		"name": task.Source().Name(),
		"path": task.Path(),
		"size": FormatSize(task.TotalBytes()),
	})
	logger.Infoln("Upload queued")

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()

		err := r.engine.Run(ctx, task, dest)
		if c, ok := task.Source().(io.Closer); ok {
			if cerr := c.Close(); cerr != nil {
				logger.WithError(cerr).Warnln("Failed to close source")
			}
		}

		r.mu.Lock()
		e.err = err
		r.mu.Unlock()
		close(e.done)

		switch task.Status() {
		case StatusCompleted:
			logger.WithField("checksum", task.Checksum()).Infoln("Upload completed")
		case StatusCanceled:
			logger.Infoln("Upload canceled")
		default:
			logger.WithError(err).WithField("kind", KindOf(err)).Errorln("Upload failed")
		}
	}()

	return task
}

// Get returns the task registered under id.
func (r *Registry) Get(id string) (*UploadTask, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.task, true
}

// List returns snapshots of all registered tasks in submission order.
func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	tasks := make([]*UploadTask, 0, len(r.order))
	for _, id := range r.order {
		tasks = append(tasks, r.entries[id].task)
	}
	r.mu.RUnlock()

	out := make([]Snapshot, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Snapshot())
	}
	return out
}

// Cancel requests cooperative cancellation of the task. It takes effect at
// the next chunk boundary; canceling a terminal task has no effect.
func (r *Registry) Cancel(id string) error {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return ErrTaskNotFound
	}
	e.cancel()
	return nil
}

// Wait blocks until the task is terminal or ctx is done and returns the
// run's error.
func (r *Registry) Wait(ctx context.Context, id string) error {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return ErrTaskNotFound
	}
	select {
	case <-e.done:
		r.mu.RLock()
		defer r.mu.RUnlock()
		return e.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Forget drops a terminal task from the registry.
func (r *Registry) Forget(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return ErrTaskNotFound
	}
	if !e.task.Status().IsTerminal() {
		return errors.New("task is still running")
	}
	delete(r.entries, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Shutdown cancels every running upload and waits for them to finish.
func (r *Registry) Shutdown() {
	r.mu.RLock()
	for _, e := range r.entries {
		e.cancel()
	}
	r.mu.RUnlock()
	r.wg.Wait()
}
