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

package store_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rkerrors "github.com/NVIDIA/recordkeeper/pkg/errors"
	"github.com/NVIDIA/recordkeeper/pkg/record"
	"github.com/NVIDIA/recordkeeper/pkg/store"
	"github.com/NVIDIA/recordkeeper/pkg/store/storetest"
)

func TestMemory(t *testing.T) {
	storetest.Run(t, store.NewMemory())
}

func TestJournal(t *testing.T) {
	j, err := store.OpenJournal(filepath.Join(t.TempDir(), "records.journal"))
	require.NoError(t, err)
	defer j.Close()

	storetest.Run(t, j)
}

func TestValidateKey(t *testing.T) {
	valid := []string{"Lily", "a", "item-1", "v1.2_beta", strings.Repeat("k", 253)}
	invalid := []string{"", "-lead", ".hidden", "a/b", "sp ace", strings.Repeat("k", 254)}

	for _, k := range valid {
		assert.NoError(t, store.ValidateKey(k), k)
	}
	for _, k := range invalid {
		err := store.ValidateKey(k)
		assert.True(t, rkerrors.IsCode(err, rkerrors.ErrCodeValidation), "key %q: %v", k, err)
	}
}

func TestMemory_ConcurrentPutsConflict(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	e, err := s.Create(ctx, "counter", record.Record{"n": int64(0)})
	require.NoError(t, err)

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := s.Put(ctx, "counter", record.Record{"n": int64(n)}, e.Revision)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(t, rkerrors.IsCode(err, rkerrors.ErrCodeConflict))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded, "exactly one writer wins the revision")
}

func TestMemory_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.NewMemory().Get(ctx, "Lily")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJournal_Replay(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.journal")

	j, err := store.OpenJournal(path)
	require.NoError(t, err)
	_, err = j.Create(ctx, "Lily", record.MustNormalize(map[string]any{"name": "Lily", "age": 35, "tags": []any{"a"}}))
	require.NoError(t, err)
	piter, err := j.Create(ctx, "Piter", record.Record{"name": "Piter"})
	require.NoError(t, err)
	require.NoError(t, j.Delete(ctx, "Piter", piter.Revision))
	lily, err := j.Get(ctx, "Lily")
	require.NoError(t, err)
	updated, err := j.Put(ctx, "Lily", record.Record{"name": "Lily", "age": int64(36)}, lily.Revision)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	reopened, err := store.OpenJournal(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "Lily")
	require.NoError(t, err)
	assert.Equal(t, int64(36), got.Record["age"], "integers survive replay as int64")
	assert.Equal(t, updated.Revision, got.Revision)
	assert.False(t, got.Record.Has("tags"))

	_, err = reopened.Get(ctx, "Piter")
	assert.True(t, rkerrors.IsCode(err, rkerrors.ErrCodeNotFound))

	next, err := reopened.Put(ctx, "Lily", got.Record, got.Revision)
	require.NoError(t, err)
	assert.NotEqual(t, got.Revision, next.Revision, "revisions continue after replay")
}

func TestJournal_TruncatesTornTail(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.journal")

	j, err := store.OpenJournal(path)
	require.NoError(t, err)
	_, err = j.Create(ctx, "Lily", record.Record{"name": "Lily"})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	intact, err := os.Stat(path)
	require.NoError(t, err)

	// A partially written frame: header claims more bytes than follow.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.Write([]byte{0, 0, 1, 0, 0xde, 0xad, 0xbe, 0xef, '{', '"'})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reopened, err := store.OpenJournal(path)
	require.NoError(t, err)

	_, err = reopened.Get(ctx, "Lily")
	require.NoError(t, err)

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, intact.Size(), after.Size())

	_, err = reopened.Create(ctx, "Join", record.Record{"name": "Join"})
	require.NoError(t, err)
	require.NoError(t, reopened.Close())

	again, err := store.OpenJournal(path)
	require.NoError(t, err)
	defer again.Close()
	entries, err := again.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestJournal_StopsAtCorruptChecksum(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.journal")

	j, err := store.OpenJournal(path)
	require.NoError(t, err)
	_, err = j.Create(ctx, "Lily", record.Record{"name": "Lily"})
	require.NoError(t, err)
	first, err := os.Stat(path)
	require.NoError(t, err)
	_, err = j.Create(ctx, "Join", record.Record{"name": "Join"})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-2] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o600))

	reopened, err := store.OpenJournal(path)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Lily", entries[0].Key)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, first.Size(), info.Size())
}

func TestJournal_ClosedRejectsWrites(t *testing.T) {
	j, err := store.OpenJournal(filepath.Join(t.TempDir(), "records.journal"))
	require.NoError(t, err)
	require.NoError(t, j.Close())

	_, err = j.Create(context.Background(), "Lily", record.Record{})
	assert.True(t, rkerrors.IsCode(err, rkerrors.ErrCodeUnavailable))
}
