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
)

// ErrorKind classifies why an upload failed.
type ErrorKind string

const (
	// KindIO indicates a read or write failure on the source or destination.
	KindIO ErrorKind = "IO_ERROR"
	// KindIncompleteRead indicates the source ran dry before the declared length.
	KindIncompleteRead ErrorKind = "INCOMPLETE_READ"
	// KindSizeLimitExceeded indicates the declared length is above the configured limit.
	KindSizeLimitExceeded ErrorKind = "SIZE_LIMIT_EXCEEDED"
	// KindUnknown covers any other captured fault.
	KindUnknown ErrorKind = "UNKNOWN"
)

// Sentinels usable with errors.Is against any *Error of the same kind.
var (
	ErrIO                = &Error{Kind: KindIO}
	ErrIncompleteRead    = &Error{Kind: KindIncompleteRead}
	ErrSizeLimitExceeded = &Error{Kind: KindSizeLimitExceeded}
	ErrUnknown           = &Error{Kind: KindUnknown}
)

// ErrCanceled is returned by Engine.Run when the task ended Canceled.
// It wraps context.Canceled.
var ErrCanceled = fmt.Errorf("upload canceled: %w", context.Canceled)

// ErrNotPending is returned when Run is invoked on a task that already started.
var ErrNotPending = errors.New("task is not pending")

// Error is a classified upload failure.
type Error struct {
	Err  error
	Kind ErrorKind
	Op   string
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the ErrorKind of err, or KindUnknown if err is not classified.
// A nil error has no kind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}
