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

package server

import (
	"fmt"
	"io"

	"github.com/abrekhov/cloudserver/pkg/transfer"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// spooledSource is a request body parked on the spool filesystem so the
// upload can outlive the request. Closing it deletes the file.
type spooledSource struct {
	file afero.File
	fs   afero.Fs
	name string
	size int64
}

var _ transfer.Source = (*spooledSource)(nil)

// spoolSource copies the client's file to the spool. The declared size is
// kept as the source length so a short body still fails as an incomplete read.
func (s *Server) spoolSource(meta *transfer.Metadata, r io.Reader) (*spooledSource, error) {
	f, err := afero.TempFile(s.spool, s.spoolDir, "upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create spool file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = s.spool.Remove(f.Name())
		return nil, fmt.Errorf("failed to spool upload: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		_ = s.spool.Remove(f.Name())
		return nil, fmt.Errorf("failed to rewind spool file: %w", err)
	}
	return &spooledSource{file: f, fs: s.spool, name: meta.SafeFilename(), size: meta.Size}, nil
}

func (s *spooledSource) Read(p []byte) (int, error) { return s.file.Read(p) }
func (s *spooledSource) Name() string               { return s.name }
func (s *spooledSource) Size() int64                { return s.size }

func (s *spooledSource) Close() error {
	err := s.file.Close()
	if rerr := s.fs.Remove(s.file.Name()); rerr != nil {
		log.WithError(rerr).WithField("file", s.file.Name()).Warnln("Failed to remove spool file")
	}
	return err
}
