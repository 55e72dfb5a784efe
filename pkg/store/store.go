// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"context"
	"fmt"
	"regexp"
	"time"

	rkerrors "github.com/NVIDIA/recordkeeper/pkg/errors"
	"github.com/NVIDIA/recordkeeper/pkg/record"
)

// KeyPattern is the syntax every record key must match.
const KeyPattern = `^[A-Za-z0-9][A-Za-z0-9._-]{0,252}$`

var keyRegexp = regexp.MustCompile(KeyPattern)

// Kind names records in NOT_FOUND errors.
const Kind = "record"

// Entry is a stored record with its key and current revision.
type Entry struct {
	Key       string        `json:"key" yaml:"key"`
	Record    record.Record `json:"record" yaml:"record"`
	Revision  string        `json:"revision" yaml:"revision"`
	UpdatedAt time.Time     `json:"updatedAt" yaml:"updatedAt"`
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	out := *e
	out.Record = e.Record.Clone()
	return &out
}

// Store is a keyed record collection with optimistic concurrency.
type Store interface {
	// Get returns the entry for key or NOT_FOUND.
	Get(ctx context.Context, key string) (*Entry, error)
	// List returns every entry sorted by key.
	List(ctx context.Context) ([]Entry, error)
	// Create stores a new record. It fails with CONFLICT when key exists.
	Create(ctx context.Context, key string, rec record.Record) (*Entry, error)
	// Put replaces the record stored under key if its revision still equals
	// revision. It fails with NOT_FOUND or CONFLICT.
	Put(ctx context.Context, key string, rec record.Record, revision string) (*Entry, error)
	// Delete removes key. An empty revision deletes unconditionally.
	Delete(ctx context.Context, key string, revision string) error
	// Close releases backend resources.
	Close() error
}

// ValidateKey checks key against KeyPattern.
func ValidateKey(key string) error {
	if !keyRegexp.MatchString(key) {
		return rkerrors.NewValidation(rkerrors.FieldError{
			Field:  "key",
			Reason: fmt.Sprintf("must match %s", KeyPattern),
		})
	}
	return nil
}

// NewConflict reports a revision mismatch on key.
func NewConflict(key, expected, actual string) *rkerrors.StructuredError {
	return rkerrors.NewWithContext(rkerrors.ErrCodeConflict,
		fmt.Sprintf("record %q was modified concurrently", key),
		map[string]any{"key": key, "expectedRevision": expected, "actualRevision": actual})
}

// NewExists reports a create on a key that is already stored.
func NewExists(key string) *rkerrors.StructuredError {
	return rkerrors.NewWithContext(rkerrors.ErrCodeConflict,
		fmt.Sprintf("record %q already exists", key),
		map[string]any{"key": key})
}
