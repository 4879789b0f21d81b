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

// Package destination provides the sinks uploads are written to: a local
// filesystem and a remote FTP server.
package destination

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/abrekhov/cloudserver/pkg/transfer"
	"github.com/spf13/afero"
)

// ErrLocked is returned when another upload holds the same path open.
var ErrLocked = errors.New("destination path is locked by another upload")

// Local writes uploads to an afero filesystem. Each path admits a single
// writer at a time. The lock lives in the Local value: other processes, or
// another Local over the same filesystem, are not excluded.
type Local struct {
	fs     afero.Fs
	locked map[string]struct{}
	perm   os.FileMode
	mu     sync.Mutex
}

var _ transfer.Destination = (*Local)(nil)

// NewLocal creates a Local destination over fs.
func NewLocal(fs afero.Fs) *Local {
	return &Local{
		fs:     fs,
		locked: make(map[string]struct{}),
		perm:   0o644,
	}
}

// NewLocalRoot creates a Local destination confined to root on the OS
// filesystem. Paths handed to it are interpreted relative to root.
func NewLocalRoot(root string) *Local {
	// BasePathFs rejects every path under a relative base such as ".".
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return NewLocal(afero.NewBasePathFs(afero.NewOsFs(), root))
}

// Fs returns the underlying filesystem.
func (l *Local) Fs() afero.Fs {
	return l.fs
}

// Open creates or truncates the file at path and locks it until the sink is closed.
func (l *Local) Open(ctx context.Context, path string) (transfer.Sink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := filepath.Clean(path)
	if err := l.lock(key); err != nil {
		return nil, err
	}

	if dir := filepath.Dir(key); dir != "." {
		if err := l.fs.MkdirAll(dir, 0o755); err != nil {
			l.unlock(key)
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := l.fs.OpenFile(key, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, l.perm)
	if err != nil {
		l.unlock(key)
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return &localSink{file: f, release: func() { l.unlock(key) }}, nil
}

// Remove deletes the file at path. A missing file is not an error.
func (l *Local) Remove(_ context.Context, path string) error {
	err := l.fs.Remove(filepath.Clean(path))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

func (l *Local) lock(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.locked[key]; held {
		return fmt.Errorf("%w: %s", ErrLocked, key)
	}
	l.locked[key] = struct{}{}
	return nil
}

func (l *Local) unlock(key string) {
	l.mu.Lock()
	delete(l.locked, key)
	l.mu.Unlock()
}

type localSink struct {
	file    afero.File
	release func()
	once    sync.Once
}

func (s *localSink) Write(p []byte) (int, error) {
	return s.file.Write(p)
}

// Flush forces written data to stable storage.
func (s *localSink) Flush() error {
	return s.file.Sync()
}

func (s *localSink) Close() error {
	err := s.file.Close()
	s.once.Do(s.release)
	return err
}
