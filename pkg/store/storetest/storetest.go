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

// Package storetest holds a conformance suite for store.Store backends.
package storetest

import (
	"context"
	"testing"

	rkerrors "github.com/NVIDIA/recordkeeper/pkg/errors"
	"github.com/NVIDIA/recordkeeper/pkg/record"
	"github.com/NVIDIA/recordkeeper/pkg/store"
)

// Run exercises the behavior every Store backend must share.
// Backends call it from their own tests with a fresh, empty store.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	lily := record.MustNormalize(map[string]any{"name": "Lily", "age": 35})

	t.Run("get missing", func(t *testing.T) {
		_, err := s.Get(ctx, "Unknown")
		if !rkerrors.IsCode(err, rkerrors.ErrCodeNotFound) {
			t.Fatalf("Get(Unknown) error = %v, want NOT_FOUND", err)
		}
	})

	t.Run("invalid key", func(t *testing.T) {
		_, err := s.Create(ctx, "../etc", lily)
		if !rkerrors.IsCode(err, rkerrors.ErrCodeValidation) {
			t.Fatalf("Create(../etc) error = %v, want VALIDATION_FAILED", err)
		}
	})

	var rev string
	t.Run("create", func(t *testing.T) {
		e, err := s.Create(ctx, "Lily", lily)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if e.Revision == "" {
			t.Fatal("Create() returned empty revision")
		}
		if !e.Record.Equal(lily) {
			t.Errorf("Create() record = %v, want %v", e.Record, lily)
		}
		rev = e.Revision

		if _, err := s.Create(ctx, "Lily", lily); !rkerrors.IsCode(err, rkerrors.ErrCodeConflict) {
			t.Errorf("second Create() error = %v, want CONFLICT", err)
		}
	})

	t.Run("get returns copy", func(t *testing.T) {
		e, err := s.Get(ctx, "Lily")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		e.Record["age"] = int64(99)

		again, err := s.Get(ctx, "Lily")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if again.Record["age"] != int64(35) {
			t.Errorf("stored record mutated through returned entry: age = %v", again.Record["age"])
		}
	})

	t.Run("put with stale revision", func(t *testing.T) {
		_, err := s.Put(ctx, "Lily", lily, "stale-revision")
		if !rkerrors.IsCode(err, rkerrors.ErrCodeConflict) {
			t.Fatalf("Put() error = %v, want CONFLICT", err)
		}
	})

	t.Run("put", func(t *testing.T) {
		next := lily.Clone()
		next["age"] = int64(36)

		e, err := s.Put(ctx, "Lily", next, rev)
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if e.Revision == rev {
			t.Error("Put() did not change the revision")
		}
		if e.Record["age"] != int64(36) {
			t.Errorf("Put() age = %v, want 36", e.Record["age"])
		}

		if _, err := s.Put(ctx, "Lily", lily, rev); !rkerrors.IsCode(err, rkerrors.ErrCodeConflict) {
			t.Errorf("Put() with superseded revision error = %v, want CONFLICT", err)
		}
		rev = e.Revision
	})

	t.Run("put missing", func(t *testing.T) {
		_, err := s.Put(ctx, "Nobody", lily, "1")
		if !rkerrors.IsCode(err, rkerrors.ErrCodeNotFound) {
			t.Fatalf("Put(Nobody) error = %v, want NOT_FOUND", err)
		}
	})

	t.Run("list sorted", func(t *testing.T) {
		if _, err := s.Create(ctx, "Join", record.Record{"name": "Join"}); err != nil {
			t.Fatalf("Create(Join) error = %v", err)
		}
		entries, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(entries) != 2 || entries[0].Key != "Join" || entries[1].Key != "Lily" {
			t.Fatalf("List() keys = %v, want [Join Lily]", keysOf(entries))
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := s.Delete(ctx, "Lily", "stale-revision"); !rkerrors.IsCode(err, rkerrors.ErrCodeConflict) {
			t.Errorf("Delete() stale error = %v, want CONFLICT", err)
		}
		if err := s.Delete(ctx, "Lily", rev); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := s.Get(ctx, "Lily"); !rkerrors.IsCode(err, rkerrors.ErrCodeNotFound) {
			t.Errorf("Get() after Delete() error = %v, want NOT_FOUND", err)
		}
		if err := s.Delete(ctx, "Join", ""); err != nil {
			t.Errorf("unconditional Delete() error = %v", err)
		}
		if err := s.Delete(ctx, "Join", ""); !rkerrors.IsCode(err, rkerrors.ErrCodeNotFound) {
			t.Errorf("Delete() missing error = %v, want NOT_FOUND", err)
		}
	})
}

func keysOf(entries []store.Entry) []string {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}
