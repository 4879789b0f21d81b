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

package destination

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"github.com/abrekhov/cloudserver/pkg/transfer"
	"github.com/jlaffaye/ftp"
	log "github.com/sirupsen/logrus"
)

// FTPConn is the part of an FTP session the destination uses.
// *ftp.ServerConn satisfies it.
type FTPConn interface {
	Stor(path string, r io.Reader) error
	Delete(path string) error
	MakeDir(path string) error
	Quit() error
}

// Dialer opens an authenticated FTP session.
type Dialer func(ctx context.Context) (FTPConn, error)

// FTPConfig holds connection settings for an FTP destination.
type FTPConfig struct {
	Addr     string        // host:port
	User     string        // "anonymous" when empty
	Password string        // Sent with User
	Timeout  time.Duration // Dial timeout, 0 for none
}

// FTP pushes uploads to a remote FTP server, one session per artifact.
type FTP struct {
	dial Dialer
}

var _ transfer.Destination = (*FTP)(nil)

// NewFTP creates an FTP destination that dials cfg.Addr.
func NewFTP(cfg FTPConfig) *FTP {
	return NewFTPWithDialer(func(ctx context.Context) (FTPConn, error) {
		opts := []ftp.DialOption{ftp.DialWithContext(ctx)}
		if cfg.Timeout > 0 {
			opts = append(opts, ftp.DialWithTimeout(cfg.Timeout))
		}
		c, err := ftp.Dial(cfg.Addr, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Addr, err)
		}
		user := cfg.User
		if user == "" {
			user = "anonymous"
		}
		if err := c.Login(user, cfg.Password); err != nil {
			_ = c.Quit()
			return nil, fmt.Errorf("failed to login to %s: %w", cfg.Addr, err)
		}
		return c, nil
	})
}

// NewFTPWithDialer creates an FTP destination over a custom session factory.
func NewFTPWithDialer(dial Dialer) *FTP {
	return &FTP{dial: dial}
}

// Open starts a STOR of remotePath. Bytes written to the sink are streamed
// to the server; Close waits for the server to acknowledge the transfer.
func (f *FTP) Open(ctx context.Context, remotePath string) (transfer.Sink, error) {
	conn, err := f.dial(ctx)
	if err != nil {
		return nil, err
	}

	if dir := path.Dir(remotePath); dir != "." && dir != "/" {
		// Fails when the directory already exists, which is fine.
		if err := conn.MakeDir(dir); err != nil {
			log.WithField("dir", dir).Debugf("MakeDir: %v", err)
		}
	}

	pr, pw := io.Pipe()
	s := &ftpSink{conn: conn, pw: pw, done: make(chan struct{})}
	go func() {
		err := conn.Stor(remotePath, pr)
		if err == nil {
			err = errStorEnded
		} else {
			err = fmt.Errorf("STOR %s: %w", remotePath, err)
		}
		// Record the outcome before unblocking writers so Flush sees it.
		s.finish(err)
		_ = pr.CloseWithError(err)
	}()
	return s, nil
}

// Remove deletes remotePath on the server.
func (f *FTP) Remove(ctx context.Context, remotePath string) error {
	conn, err := f.dial(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = conn.Quit()
	}()
	if err := conn.Delete(remotePath); err != nil {
		return fmt.Errorf("failed to delete %s: %w", remotePath, err)
	}
	return nil
}

// errStorEnded marks a STOR that returned without an error; writes after it
// are rejected with this error.
var errStorEnded = errors.New("ftp transfer ended")

type ftpSink struct {
	conn   FTPConn
	pw     *io.PipeWriter
	done   chan struct{}
	err    error
	mu     sync.Mutex
	closed bool
}

func (s *ftpSink) finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.done)
}

func (s *ftpSink) result() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if errors.Is(s.err, errStorEnded) {
		return nil
	}
	return s.err
}

func (s *ftpSink) Write(p []byte) (int, error) {
	return s.pw.Write(p)
}

// Flush reports a STOR that already failed. FTP has no way to force
// durability mid-transfer; each Write returns only once the data was handed
// to the data connection.
func (s *ftpSink) Flush() error {
	select {
	case <-s.done:
		return s.result()
	default:
		return nil
	}
}

func (s *ftpSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	_ = s.pw.Close()
	<-s.done
	storErr := s.result()
	quitErr := s.conn.Quit()
	if storErr != nil {
		return storErr
	}
	return quitErr
}
