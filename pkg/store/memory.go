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
	"sort"
	"strconv"
	"sync"
	"time"

	rkerrors "github.com/NVIDIA/recordkeeper/pkg/errors"
	"github.com/NVIDIA/recordkeeper/pkg/record"
)

// Memory is an in-process Store. The zero value is not usable; call NewMemory.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	seq     uint64
	now     func() time.Time

	// commit, when set, persists a mutation before it is applied.
	// It runs with mu held.
	commit func(m mutation) error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, key string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, rkerrors.NewNotFound(Kind, key)
	}
	return e.Clone(), nil
}

func (m *Memory) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, *e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *Memory) Create(ctx context.Context, key string, rec record.Record) (*Entry, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[key]; ok {
		return nil, NewExists(key)
	}
	return m.write(key, rec)
}

func (m *Memory) Put(ctx context.Context, key string, rec record.Record, revision string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, rkerrors.NewNotFound(Kind, key)
	}
	if e.Revision != revision {
		return nil, NewConflict(key, revision, e.Revision)
	}
	return m.write(key, rec)
}

func (m *Memory) Delete(ctx context.Context, key string, revision string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return rkerrors.NewNotFound(Kind, key)
	}
	if revision != "" && e.Revision != revision {
		return NewConflict(key, revision, e.Revision)
	}

	mut := mutation{Op: opDelete, Key: key, Seq: m.seq + 1, Time: m.now().UTC()}
	if m.commit != nil {
		if err := m.commit(mut); err != nil {
			return err
		}
	}
	m.apply(mut)
	return nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error {
	return nil
}

// write persists and applies a put. mu must be held.
func (m *Memory) write(key string, rec record.Record) (*Entry, error) {
	mut := mutation{Op: opPut, Key: key, Record: rec.Clone(), Seq: m.seq + 1, Time: m.now().UTC()}
	if m.commit != nil {
		if err := m.commit(mut); err != nil {
			return nil, err
		}
	}
	m.apply(mut)
	return m.entries[key].Clone(), nil
}

// apply updates the in-memory state. mu must be held.
func (m *Memory) apply(mut mutation) {
	if mut.Seq > m.seq {
		m.seq = mut.Seq
	}
	switch mut.Op {
	case opPut:
		m.entries[mut.Key] = &Entry{
			Key:       mut.Key,
			Record:    mut.Record.Clone(),
			Revision:  strconv.FormatUint(mut.Seq, 10),
			UpdatedAt: mut.Time,
		}
	case opDelete:
		delete(m.entries, mut.Key)
	}
}
