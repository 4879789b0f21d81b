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
	"io"
	"os"
	"path/filepath"
)

// Source produces the bytes of one upload. Size is the declared total length
// and does not change for the lifetime of the source. Read follows io.Reader:
// io.EOF signals end of input.
type Source interface {
	io.Reader
	Name() string
	Size() int64
}

type readerSource struct {
	io.Reader
	name string
	size int64
}

// NewReaderSource wraps r as a Source declaring size bytes.
func NewReaderSource(name string, r io.Reader, size int64) Source {
	return &readerSource{Reader: r, name: name, size: size}
}

func (s *readerSource) Name() string { return s.name }
func (s *readerSource) Size() int64  { return s.size }

// FileSource reads a regular file from disk. The caller closes it.
type FileSource struct {
	*os.File
	size int64
}

// NewFileSource opens path for reading.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path) // #nosec G304 -- path is chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat source: %w", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("source %s is a directory", path)
	}
	return &FileSource{File: f, size: info.Size()}, nil
}

// Name returns the base name of the file.
func (s *FileSource) Name() string {
	return filepath.Base(s.File.Name())
}

// Size returns the file length at open time.
func (s *FileSource) Size() int64 {
	return s.size
}
