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

package records

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rkerrors "github.com/NVIDIA/recordkeeper/pkg/errors"
	"github.com/NVIDIA/recordkeeper/pkg/notify"
	"github.com/NVIDIA/recordkeeper/pkg/record"
	"github.com/NVIDIA/recordkeeper/pkg/store"
)

type fakeNotifier struct {
	mu     sync.Mutex
	events []*notify.Event
	urls   []string
}

func (f *fakeNotifier) Notify(_ context.Context, url string, ev *notify.Event) (*notify.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	f.urls = append(f.urls, url)
	return &notify.Delivery{URL: url, Status: 200, Acknowledged: true, Attempts: 1}, nil
}

// racingStore commits a competing write just before the first n Puts.
type racingStore struct {
	store.Store
	races int
	race  func(ctx context.Context, s store.Store)
}

func (r *racingStore) Put(ctx context.Context, key string, rec record.Record, rev string) (*store.Entry, error) {
	if r.races > 0 {
		r.races--
		r.race(ctx, r.Store)
	}
	return r.Store.Put(ctx, key, rec, rev)
}

func payload(t *testing.T, body string) record.Payload {
	t.Helper()
	p, err := record.DecodePayload(strings.NewReader(body))
	require.NoError(t, err)
	return p
}

func seeded(t *testing.T, opts ...Option) (*Service, store.Store) {
	t.Helper()
	st := store.NewMemory()
	svc := NewService(st, nil, opts...)
	n, err := svc.Seed(context.Background(), DemoSeeds(time.Date(2025, 2, 26, 1, 37, 22, 0, time.UTC)))
	require.NoError(t, err)
	require.Equal(t, 3, n)
	return svc, st
}

func TestService_GetUnknown(t *testing.T) {
	svc, _ := seeded(t)

	_, err := svc.Get(context.Background(), "Unknown")

	assert.True(t, rkerrors.IsCode(err, rkerrors.ErrCodeNotFound))
}

func TestService_PatchLily(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()

	res, err := svc.Patch(ctx, "Lily", payload(t, `{"age": 36}`), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"age"}, res.Changed.Sorted())
	got, err := svc.Get(ctx, "Lily")
	require.NoError(t, err)
	assert.Equal(t, "Lily", got.Record["name"])
	assert.Equal(t, int64(36), got.Record["age"])
	assert.Equal(t, "Lily366@163.com", got.Record["email"])
	assert.Equal(t, res.Entry.Revision, got.Revision)
}

func TestService_PatchUnknown(t *testing.T) {
	svc, _ := seeded(t)

	_, err := svc.Patch(context.Background(), "Unknown", payload(t, `{"age": 36}`), Options{})

	assert.True(t, rkerrors.IsCode(err, rkerrors.ErrCodeNotFound))
}

func TestService_PatchInvalidLeavesRecord(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()
	before, err := svc.Get(ctx, "Lily")
	require.NoError(t, err)

	_, err = svc.Patch(ctx, "Lily", payload(t, `{"nickname": "L", "age": 36}`), Options{})
	require.True(t, rkerrors.IsCode(err, rkerrors.ErrCodeValidation))

	after, err := svc.Get(ctx, "Lily")
	require.NoError(t, err)
	assert.Equal(t, before.Revision, after.Revision)
	assert.True(t, before.Record.Equal(after.Record))
}

func TestService_ReplaceResetsFields(t *testing.T) {
	svc, _ := seeded(t)

	res, err := svc.Replace(context.Background(), "Piter", payload(t, `{"name": "Piter", "age": 33}`), Options{})
	require.NoError(t, err)

	assert.Nil(t, res.Entry.Record["tags"])
	assert.Equal(t, []string{"age", "tags"}, res.Changed.Sorted())
}

func TestService_CreateExisting(t *testing.T) {
	svc, _ := seeded(t)

	_, err := svc.Create(context.Background(), "Lily", payload(t, `{"name": "Lily", "age": 1}`), Options{})

	assert.True(t, rkerrors.IsCode(err, rkerrors.ErrCodeConflict))
}

func TestService_SeedIsIdempotent(t *testing.T) {
	svc, _ := seeded(t)

	n, err := svc.Seed(context.Background(), DemoSeeds(time.Now()))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_IfMatch(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()
	current, err := svc.Get(ctx, "Lily")
	require.NoError(t, err)

	_, err = svc.Patch(ctx, "Lily", payload(t, `{"age": 36}`), Options{IfMatch: "not-" + current.Revision})
	assert.True(t, rkerrors.IsCode(err, rkerrors.ErrCodePreconditionFailed))

	res, err := svc.Patch(ctx, "Lily", payload(t, `{"age": 36}`), Options{IfMatch: current.Revision})
	require.NoError(t, err)

	_, err = svc.Delete(ctx, "Lily", Options{IfMatch: current.Revision})
	assert.True(t, rkerrors.IsCode(err, rkerrors.ErrCodePreconditionFailed))

	_, err = svc.Delete(ctx, "Lily", Options{IfMatch: res.Entry.Revision})
	require.NoError(t, err)
}

func TestService_RetriesLostRace(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	_, err := mem.Create(ctx, "Lily", record.MustNormalize(map[string]any{"name": "Lily", "age": 35}))
	require.NoError(t, err)

	racer := &racingStore{Store: mem, races: 1, race: func(ctx context.Context, s store.Store) {
		e, err := s.Get(ctx, "Lily")
		require.NoError(t, err)
		next := e.Record.Clone()
		next["email"] = "lily@example.com"
		_, err = s.Put(ctx, "Lily", next, e.Revision)
		require.NoError(t, err)
	}}
	svc := NewService(racer, nil)

	res, err := svc.Patch(ctx, "Lily", payload(t, `{"age": 36}`), Options{})
	require.NoError(t, err)

	assert.Equal(t, int64(36), res.Entry.Record["age"])
	assert.Equal(t, "lily@example.com", res.Entry.Record["email"], "concurrent write is preserved")
}

func TestService_LostRaceWithIfMatch(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	e, err := mem.Create(ctx, "Lily", record.Record{"name": "Lily", "age": int64(35)})
	require.NoError(t, err)

	racer := &racingStore{Store: mem, races: 1, race: func(ctx context.Context, s store.Store) {
		cur, _ := s.Get(ctx, "Lily")
		_, _ = s.Put(ctx, "Lily", cur.Record, cur.Revision)
	}}
	svc := NewService(racer, nil)

	_, err = svc.Patch(ctx, "Lily", payload(t, `{"age": 36}`), Options{IfMatch: e.Revision})

	assert.True(t, rkerrors.IsCode(err, rkerrors.ErrCodePreconditionFailed))
}

func TestService_GivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	_, err := mem.Create(ctx, "Lily", record.Record{"name": "Lily", "age": int64(35)})
	require.NoError(t, err)

	racer := &racingStore{Store: mem, races: 10, race: func(ctx context.Context, s store.Store) {
		cur, _ := s.Get(ctx, "Lily")
		_, _ = s.Put(ctx, "Lily", cur.Record, cur.Revision)
	}}
	svc := NewService(racer, nil, WithMaxAttempts(2))

	_, err = svc.Patch(ctx, "Lily", payload(t, `{"age": 36}`), Options{})

	require.True(t, rkerrors.IsCode(err, rkerrors.ErrCodeConflict))
	assert.Equal(t, 8, racer.races)
}

func TestService_Callbacks(t *testing.T) {
	n := &fakeNotifier{}
	svc, _ := seeded(t, WithNotifier(n))
	ctx := context.Background()
	opts := Options{CallbackURL: "https://hooks.example.com"}

	res, err := svc.Patch(ctx, "Lily", payload(t, `{"age": 36}`), opts)
	require.NoError(t, err)
	require.NotNil(t, res.Delivery)
	assert.True(t, res.Delivery.Acknowledged)

	_, err = svc.Delete(ctx, "Join", opts)
	require.NoError(t, err)

	require.Len(t, n.events, 2)
	assert.Equal(t, notify.EventUpdated, n.events[0].Type)
	assert.JSONEq(t, `{"age":36}`, string(n.events[0].Patch))
	assert.Equal(t, res.Entry.Revision, n.events[0].Revision)
	assert.Equal(t, notify.EventDeleted, n.events[1].Type)
	assert.Equal(t, "Join", n.events[1].Key)
}

func TestService_CallbackValidation(t *testing.T) {
	ctx := context.Background()

	disabled, _ := seeded(t)
	_, err := disabled.Patch(ctx, "Lily", payload(t, `{"age": 36}`), Options{CallbackURL: "https://hooks.example.com"})
	assert.True(t, rkerrors.IsCode(err, rkerrors.ErrCodeUnavailable))

	svc, _ := seeded(t, WithNotifier(&fakeNotifier{}))
	_, err = svc.Patch(ctx, "Lily", payload(t, `{"age": 36}`), Options{CallbackURL: "mailto:lily@example.com"})
	require.True(t, rkerrors.IsCode(err, rkerrors.ErrCodeValidation))

	got, err := svc.Get(ctx, "Lily")
	require.NoError(t, err)
	assert.Equal(t, int64(35), got.Record["age"], "nothing is written when the callback is invalid")
}

func TestService_Apply(t *testing.T) {
	svc, _ := seeded(t)

	res, err := svc.Apply(context.Background(), "Lily", Options{}, func(stored record.Record) (record.Payload, error) {
		age := stored["age"].(int64)
		return record.PayloadOf(record.Record{"age": age + 1}, "age"), nil
	})
	require.NoError(t, err)

	assert.Equal(t, int64(36), res.Entry.Record["age"])
}

func TestDemoSeeds(t *testing.T) {
	now := time.Date(2025, 2, 26, 1, 37, 22, 0, time.UTC)
	seeds := DemoSeeds(now)

	assert.Equal(t, []string{"Join", "Lily", "Piter"}, sortedKeys(seeds))
	assert.Equal(t, "2025-02-26T01:37:22Z", seeds["Join"]["create_at"])
	assert.Equal(t, []any{"bright", "happy"}, seeds["Piter"]["tags"])
}

func TestService_Check(t *testing.T) {
	svc, _ := seeded(t)

	assert.NoError(t, svc.Check(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.Check(ctx), context.Canceled)
}
