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
	"path"
	"path/filepath"
	"strings"
)

// Metadata describes a client-supplied file before it is stored.
type Metadata struct {
	Filename    string `json:"filename"`               // Name as sent by the client
	ContentType string `json:"content_type,omitempty"` // MIME type, if the client sent one
	Size        int64  `json:"size"`                   // Declared length in bytes
}

// NewMetadata creates Metadata with the given filename and size.
func NewMetadata(filename string, size int64) *Metadata {
	return &Metadata{
		Filename: filename,
		Size:     size,
	}
}

// MetadataFromSource describes an existing Source.
func MetadataFromSource(src Source) *Metadata {
	return NewMetadata(src.Name(), src.Size())
}

// Validate rejects empty names, negative sizes and names that try to escape
// the target directory.
func (m *Metadata) Validate() error {
	if m.Filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if m.Size < 0 {
		return fmt.Errorf("size cannot be negative")
	}

	// filepath.IsAbs is OS-dependent, so Unix-style absolute paths are checked explicitly
	clean := filepath.Clean(m.Filename)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) || strings.Contains(m.Filename, "..") || strings.HasPrefix(m.Filename, "/") {
		return fmt.Errorf("invalid filename: path traversal not allowed")
	}
	if len(m.Filename) >= 2 && m.Filename[1] == ':' {
		return fmt.Errorf("invalid filename: absolute path not allowed")
	}
	if strings.ContainsAny(m.Filename, `/\`) {
		return fmt.Errorf("invalid filename: path separators not allowed")
	}
	return nil
}

// SafeFilename reduces the client name to a plain base name.
func (m *Metadata) SafeFilename() string {
	clean := strings.ReplaceAll(m.Filename, "\\", "/")

	// Drive letters
	if len(clean) >= 2 && clean[1] == ':' {
		clean = clean[2:]
	}

	clean = path.Base(path.Clean(clean))
	if clean == "" || clean == "." || clean == ".." || clean == "/" {
		return "unnamed"
	}
	return clean
}

// LocalPath joins dir with the safe file name using OS separators.
func (m *Metadata) LocalPath(dir string) string {
	return filepath.Join(dir, m.SafeFilename())
}

// RemotePath joins dir with the safe file name using forward slashes.
func (m *Metadata) RemotePath(dir string) string {
	return path.Join("/", dir, m.SafeFilename())
}
