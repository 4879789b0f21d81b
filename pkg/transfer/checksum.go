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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// ChecksumSink wraps a Sink and computes a SHA-256 checksum of the bytes the
// underlying sink accepted.
type ChecksumSink struct {
	Sink
	hash         hash.Hash
	bytesWritten int64
}

// NewChecksumSink creates a ChecksumSink over s.
func NewChecksumSink(s Sink) *ChecksumSink {
	return &ChecksumSink{
		Sink: s,
		hash: sha256.New(),
	}
}

// Write writes to the underlying sink and hashes only the accepted prefix.
func (cs *ChecksumSink) Write(p []byte) (int, error) {
	n, err := cs.Sink.Write(p)
	if n > 0 {
		cs.hash.Write(p[:n])
		cs.bytesWritten += int64(n)
	}
	return n, err
}

// SumHex returns the SHA-256 checksum as a hexadecimal string.
func (cs *ChecksumSink) SumHex() string {
	return hex.EncodeToString(cs.hash.Sum(nil))
}

// BytesWritten returns the total number of bytes accepted by the sink.
func (cs *ChecksumSink) BytesWritten() int64 {
	return cs.bytesWritten
}

// ChecksumHex computes the hex SHA-256 of everything r yields.
func ChecksumHex(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FileChecksumHex computes the hex SHA-256 of a file.
func FileChecksumHex(path string) (string, error) {
	file, err := os.Open(path) // #nosec G304 -- path is validated by caller
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	sum, err := ChecksumHex(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return sum, nil
}
