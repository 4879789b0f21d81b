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
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// Engine copies sources into destinations in bounded chunks. One Engine is
// shared by all uploads of a process; its BufferPool is the only state the
// uploads share.
type Engine struct {
	pool *BufferPool
	sem  *semaphore.Weighted
	now  func() time.Time
	cfg  Config
}

// NewEngine creates an Engine bounded by cfg.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transfer config: %w", err)
	}
	return &Engine{
		cfg:  cfg,
		pool: NewBufferPool(cfg.MaxChunkBytes),
		sem:  semaphore.NewWeighted(int64(cfg.MaxConcurrentTasks)),
		now:  time.Now,
	}, nil
}

// Config returns the limits the engine was built with.
func (e *Engine) Config() Config {
	return e.cfg
}

// Pool returns the engine's shared buffer pool.
func (e *Engine) Pool() *BufferPool {
	return e.pool
}

// Go runs the task on its own goroutine. The channel yields Run's result
// and is then closed.
func (e *Engine) Go(ctx context.Context, task *UploadTask, dest Destination) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- e.Run(ctx, task, dest)
	}()
	return done
}

// Run copies task's source into dest and blocks until the task is terminal.
//
// Canceling ctx is observed between chunks: the task ends Canceled, the
// partial artifact is removed and ErrCanceled is returned. Any other failure
// ends the task Failed with a classified *Error, which is also returned; the
// partial artifact is left in place.
func (e *Engine) Run(ctx context.Context, task *UploadTask, dest Destination) error {
	if task.Status() != StatusPending {
		return ErrNotPending
	}
	if err := e.sem.Acquire(ctx, 1); err != nil {
		if task.begin(e.now()) {
			task.cancel()
		}
		return ErrCanceled
	}
	defer e.sem.Release(1)

	if !task.begin(e.now()) {
		return ErrNotPending
	}

	logger := log.WithFields(log.Fields{
		"task":  task.ID(),
		"path":  task.Path(),
		"total": task.TotalBytes(),
	})
	logger.Debugln("Upload started")

	err := e.copy(ctx, task, dest)
	switch {
	case err == nil:
		logger.WithField("checksum", task.Checksum()).Debugln("Upload completed")
	case errors.Is(err, ErrCanceled):
		task.cancel()
		logger.WithField("processed", task.ProcessedBytes()).Debugln("Upload canceled")
	default:
		task.fail(err)
		logger.WithError(err).Debugln("Upload failed")
	}
	return err
}

func (e *Engine) copy(ctx context.Context, task *UploadTask, dest Destination) (err error) {
	total := task.TotalBytes()
	if total < 0 {
		return newError(KindUnknown, "declared length", fmt.Errorf("negative size %d", total))
	}
	if total > e.cfg.MaxTotalBytes {
		return newError(KindSizeLimitExceeded, "declared length",
			fmt.Errorf("%s exceeds limit of %s", FormatSize(total), FormatSize(e.cfg.MaxTotalBytes)))
	}
	if ctx.Err() != nil {
		return ErrCanceled
	}

	var sink *ChecksumSink
	var buf []byte
	defer func() {
		if r := recover(); r != nil {
			err = newError(KindUnknown, "panic", fmt.Errorf("%v", r))
		}
		if buf != nil {
			e.pool.Release(buf)
		}
		if err != nil && sink != nil {
			_ = sink.Close()
		}
	}()

	raw, err := dest.Open(ctx, task.Path())
	if err != nil {
		return newError(KindIO, "open destination", err)
	}
	sink = NewChecksumSink(raw)

	src := task.Source()
	var processed, held int64
	for processed < total {
		chunk := int(min(total-processed, int64(e.cfg.MaxChunkBytes)))
		buf = e.pool.Acquire(chunk)

		n, readErr := e.fill(src, buf)
		if n > 0 {
			if werr := writeChunk(sink, buf[:n]); werr != nil {
				if accepted := sink.BytesWritten(); accepted < total {
					task.advance(accepted - processed)
				}
				return werr
			}
		}
		e.pool.Release(buf)
		buf = nil
		processed += int64(n)

		if readErr == nil && processed == total {
			// Published together with Completed once the sink is closed.
			held = int64(n)
		} else {
			task.advance(int64(n))
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return newError(KindIncompleteRead, "read source",
					fmt.Errorf("end of input after %d of %d bytes", processed, total))
			}
			return readErr
		}

		if processed < total && ctx.Err() != nil {
			open := sink
			sink = nil
			return e.abort(ctx, task, dest, open)
		}
	}

	closeErr := sink.Close()
	sum := sink.SumHex()
	sink = nil
	if closeErr != nil {
		return newError(KindIO, "close destination", closeErr)
	}
	task.complete(held, sum)
	return nil
}

// fill reads until buf is full or the source ends. An error that arrives
// together with the bytes completing buf is dropped. A run of MaxZeroReads
// reads that return no data and no error is reported as an incomplete read.
func (e *Engine) fill(src io.Reader, buf []byte) (int, error) {
	filled, idle := 0, 0
	for filled < len(buf) {
		n, err := src.Read(buf[filled:])
		filled += n
		if err != nil {
			// A full buffer is delivered as is; a lasting source error
			// comes back on the next Read.
			if filled == len(buf) {
				return filled, nil
			}
			if errors.Is(err, io.EOF) {
				return filled, io.EOF
			}
			return filled, newError(KindIO, "read source", err)
		}
		if n > 0 {
			idle = 0
			continue
		}
		idle++
		if idle >= e.cfg.MaxZeroReads {
			return filled, newError(KindIncompleteRead, "read source",
				fmt.Errorf("no progress after %d empty reads", idle))
		}
	}
	return filled, nil
}

func writeChunk(sink Sink, p []byte) error {
	n, err := sink.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return newError(KindIO, "write destination", err)
	}
	if err := sink.Flush(); err != nil {
		return newError(KindIO, "flush destination", err)
	}
	return nil
}

// abort closes the sink and removes the partial artifact of a canceled task.
func (e *Engine) abort(ctx context.Context, task *UploadTask, dest Destination, sink Sink) error {
	_ = sink.Close()
	if err := dest.Remove(context.WithoutCancel(ctx), task.Path()); err != nil {
		return errors.Join(ErrCanceled, fmt.Errorf("remove partial artifact: %w", err))
	}
	return ErrCanceled
}
