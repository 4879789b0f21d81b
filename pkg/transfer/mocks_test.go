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
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

// memDestination keeps artifacts in memory, keyed by path.
type memDestination struct {
	files    map[string]*bytes.Buffer
	open     map[string]bool
	writeErr error
	flushErr error
	closeErr error
	flushes  int
	removed  []string
	mu       sync.Mutex
}

func newMemDestination() *memDestination {
	return &memDestination{
		files: make(map[string]*bytes.Buffer),
		open:  make(map[string]bool),
	}
}

func (d *memDestination) Open(_ context.Context, path string) (Sink, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open[path] {
		return nil, errors.New("path is locked")
	}
	d.open[path] = true
	buf := &bytes.Buffer{}
	d.files[path] = buf
	return &memSink{dest: d, path: path, buf: buf}, nil
}

func (d *memDestination) Remove(_ context.Context, path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.files, path)
	d.removed = append(d.removed, path)
	return nil
}

func (d *memDestination) content(path string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, ok := d.files[path]
	if !ok {
		return nil, false
	}
	return bytes.Clone(buf.Bytes()), true
}

type memSink struct {
	dest *memDestination
	buf  *bytes.Buffer
	path string
}

func (s *memSink) Write(p []byte) (int, error) {
	s.dest.mu.Lock()
	defer s.dest.mu.Unlock()
	if s.dest.writeErr != nil {
		return 0, s.dest.writeErr
	}
	return s.buf.Write(p)
}

func (s *memSink) Flush() error {
	s.dest.mu.Lock()
	defer s.dest.mu.Unlock()
	s.dest.flushes++
	return s.dest.flushErr
}

func (s *memSink) Close() error {
	s.dest.mu.Lock()
	defer s.dest.mu.Unlock()
	delete(s.dest.open, s.path)
	return s.dest.closeErr
}

// scriptedReader replays a fixed sequence of read results.
type scriptedReader struct {
	steps []readStep
	calls int
}

type readStep struct {
	err  error
	data []byte
}

func (r *scriptedReader) Read(p []byte) (int, error) {
	if r.calls >= len(r.steps) {
		return 0, io.EOF
	}
	step := r.steps[r.calls]
	r.calls++
	n := copy(p, step.data)
	return n, step.err
}

// trickleReader returns at most max bytes per Read.
type trickleReader struct {
	r   io.Reader
	max int
}

func (t *trickleReader) Read(p []byte) (int, error) {
	if len(p) > t.max {
		p = p[:t.max]
	}
	return t.r.Read(p)
}

// hookReader calls before ahead of every Read.
type hookReader struct {
	r      io.Reader
	before func()
}

func (h *hookReader) Read(p []byte) (int, error) {
	h.before()
	return h.r.Read(p)
}

func patterned(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*31 + i/251)
	}
	return b
}
