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
	"io"
)

// Sink is an open destination artifact. Writes are sequential. Flush pushes
// everything written so far to the underlying medium. Close finalizes the
// artifact and reports any deferred write error.
type Sink interface {
	io.Writer
	Flush() error
	Close() error
}

// Destination creates sinks at resolved paths.
//
// Open has create semantics: any artifact already at path is replaced, and
// no other writer may hold the same path until the sink is closed. Remove
// deletes the artifact at path; the engine calls it after a canceled run.
type Destination interface {
	Open(ctx context.Context, path string) (Sink, error)
	Remove(ctx context.Context, path string) error
}
