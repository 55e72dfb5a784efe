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
	"fmt"
	"log/slog"

	"github.com/NVIDIA/recordkeeper/pkg/defaults"
	rkerrors "github.com/NVIDIA/recordkeeper/pkg/errors"
	"github.com/NVIDIA/recordkeeper/pkg/merge"
	"github.com/NVIDIA/recordkeeper/pkg/notify"
	"github.com/NVIDIA/recordkeeper/pkg/record"
	"github.com/NVIDIA/recordkeeper/pkg/schema"
	"github.com/NVIDIA/recordkeeper/pkg/store"
)

const (
	opPatch   = "patch"
	opReplace = "replace"
	opDelete  = "delete"
)

// Options modify a single write.
type Options struct {
	// IfMatch is the revision the caller expects to be current. Empty
	// disables the precondition.
	IfMatch string
	// CallbackURL, when set, receives a change event after the write commits.
	CallbackURL string
}

// strict reports whether the write is pinned to one revision. "*" only
// requires the record to exist.
func (o Options) strict() bool {
	return o.IfMatch != "" && o.IfMatch != "*"
}

// Result is the outcome of a write.
type Result struct {
	Entry    *store.Entry
	Changed  record.FieldSet
	Delivery *notify.Delivery
}

// Notifier delivers change events.
type Notifier interface {
	Notify(ctx context.Context, callbackURL string, ev *notify.Event) (*notify.Delivery, error)
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier enables callback delivery.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithMaxAttempts bounds read-modify-write attempts per update.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// Service implements record operations over a store.
type Service struct {
	store       store.Store
	engine      *merge.Engine
	notifier    Notifier
	maxAttempts int
}

// NewService returns a Service. A nil engine uses the builtin item schema.
func NewService(st store.Store, eng *merge.Engine, opts ...Option) *Service {
	if eng == nil {
		eng = merge.New(nil)
	}
	s := &Service{
		store:       st,
		engine:      eng,
		maxAttempts: defaults.StoreMaxWriteAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schema returns the schema records are validated against.
func (s *Service) Schema() *schema.Schema {
	return s.engine.Schema()
}

// Get returns the entry stored under key.
func (s *Service) Get(ctx context.Context, key string) (*store.Entry, error) {
	return s.store.Get(ctx, key)
}

// List returns every entry sorted by key.
func (s *Service) List(ctx context.Context) ([]store.Entry, error) {
	return s.store.List(ctx)
}

// Check reports whether the store can serve reads.
func (s *Service) Check(ctx context.Context) error {
	_, err := s.store.List(ctx)
	return err
}

// Create validates p as a complete record and stores it under key.
func (s *Service) Create(ctx context.Context, key string, p record.Payload, opts Options) (*Result, error) {
	if err := s.checkCallback(opts); err != nil {
		return nil, err
	}
	if err := store.ValidateKey(key); err != nil {
		return nil, err
	}
	rec, err := s.engine.Create(p)
	if err != nil {
		return nil, err
	}
	e, err := s.store.Create(ctx, key, rec)
	if err != nil {
		return nil, err
	}
	slog.Info("record created", "key", key, "revision", e.Revision)

	res := &Result{Entry: e, Changed: record.Record(nil).Changed(e.Record)}
	s.notify(ctx, opts, res, notify.EventCreated, nil)
	return res, nil
}

// Patch merges the fields present in p onto the stored record.
func (s *Service) Patch(ctx context.Context, key string, p record.Payload, opts Options) (*Result, error) {
	return s.update(ctx, opPatch, key, opts, func(stored record.Record) (record.Record, error) {
		return s.engine.Merge(stored, p)
	})
}

// Replace overwrites the stored record with p, resetting absent fields.
func (s *Service) Replace(ctx context.Context, key string, p record.Payload, opts Options) (*Result, error) {
	return s.update(ctx, opReplace, key, opts, func(stored record.Record) (record.Record, error) {
		return s.engine.Replace(stored, p)
	})
}

// Apply runs an arbitrary transformation of the stored record through the
// same read-modify-write cycle as Patch. transform receives a copy of the
// stored record and returns the payload to merge onto it.
func (s *Service) Apply(ctx context.Context, key string, opts Options,
	transform func(stored record.Record) (record.Payload, error)) (*Result, error) {
	return s.update(ctx, opPatch, key, opts, func(stored record.Record) (record.Record, error) {
		p, err := transform(stored.Clone())
		if err != nil {
			return nil, err
		}
		return s.engine.Merge(stored, p)
	})
}

// Delete removes key.
func (s *Service) Delete(ctx context.Context, key string, opts Options) (*Result, error) {
	if err := s.checkCallback(opts); err != nil {
		return nil, err
	}
	current, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := checkPrecondition(key, opts.IfMatch, current.Revision); err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, key, current.Revision); err != nil {
		if rkerrors.IsCode(err, rkerrors.ErrCodeConflict) {
			writeConflicts.WithLabelValues(opDelete).Inc()
			if opts.strict() {
				return nil, preconditionFailed(key, opts.IfMatch, err)
			}
		}
		return nil, err
	}
	slog.Info("record deleted", "key", key, "revision", current.Revision)

	res := &Result{Entry: current, Changed: current.Record.Changed(nil)}
	s.notify(ctx, opts, res, notify.EventDeleted, current.Record)
	return res, nil
}

// Seed creates each record that does not exist yet. Existing keys are left
// untouched. It returns the number of records created.
func (s *Service) Seed(ctx context.Context, seeds map[string]record.Record) (int, error) {
	created := 0
	for _, key := range sortedKeys(seeds) {
		_, err := s.Create(ctx, key, record.NewPayload(seeds[key]), Options{})
		switch {
		case err == nil:
			created++
		case rkerrors.IsCode(err, rkerrors.ErrCodeConflict):
			slog.Debug("seed record already present", "key", key)
		default:
			return created, fmt.Errorf("failed to seed %q: %w", key, err)
		}
	}
	return created, nil
}

func (s *Service) update(ctx context.Context, op, key string, opts Options,
	next func(stored record.Record) (record.Record, error)) (*Result, error) {
	if err := s.checkCallback(opts); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		current, err := s.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if err := checkPrecondition(key, opts.IfMatch, current.Revision); err != nil {
			return nil, err
		}

		updated, err := next(current.Record)
		if err != nil {
			return nil, err
		}

		e, err := s.store.Put(ctx, key, updated, current.Revision)
		if err == nil {
			res := &Result{Entry: e, Changed: current.Record.Changed(e.Record)}
			slog.Info("record updated",
				"key", key, "op", op, "revision", e.Revision, "changed", res.Changed.Sorted(), "attempt", attempt)

			evType := notify.EventUpdated
			if op == opReplace {
				evType = notify.EventReplaced
			}
			s.notify(ctx, opts, res, evType, current.Record)
			return res, nil
		}
		if !rkerrors.IsCode(err, rkerrors.ErrCodeConflict) {
			return nil, err
		}

		writeConflicts.WithLabelValues(op).Inc()
		if opts.strict() {
			return nil, preconditionFailed(key, opts.IfMatch, err)
		}
		slog.Debug("write conflict, retrying", "key", key, "op", op, "attempt", attempt)
		lastErr = err
	}

	writeRetriesExhausted.WithLabelValues(op).Inc()
	return nil, rkerrors.WrapWithContext(rkerrors.ErrCodeConflict,
		fmt.Sprintf("record %q kept changing, gave up after %d attempts", key, s.maxAttempts),
		lastErr, map[string]any{"key": key})
}

func (s *Service) checkCallback(opts Options) error {
	if opts.CallbackURL == "" {
		return nil
	}
	if s.notifier == nil {
		return rkerrors.New(rkerrors.ErrCodeUnavailable, "callbacks are not enabled")
	}
	_, err := notify.ValidateCallbackURL(opts.CallbackURL)
	return err
}

func (s *Service) notify(ctx context.Context, opts Options, res *Result, typ notify.EventType, before record.Record) {
	if opts.CallbackURL == "" || s.notifier == nil {
		return
	}

	after := res.Entry.Record
	revision := res.Entry.Revision
	if typ == notify.EventDeleted {
		after = nil
		revision = ""
	}

	ev, err := notify.NewEvent(typ, res.Entry.Key, revision, before, after)
	if err != nil {
		slog.Error("failed to build change event", "key", res.Entry.Key, "error", err)
		res.Delivery = &notify.Delivery{Error: err.Error()}
		return
	}
	d, err := s.notifier.Notify(ctx, opts.CallbackURL, ev)
	if err != nil {
		res.Delivery = &notify.Delivery{Error: err.Error()}
		return
	}
	res.Delivery = d
}

func checkPrecondition(key, ifMatch, current string) error {
	if ifMatch == "" || ifMatch == "*" || ifMatch == current {
		return nil
	}
	return preconditionFailed(key, ifMatch, nil)
}

func preconditionFailed(key, ifMatch string, cause error) error {
	return rkerrors.WrapWithContext(rkerrors.ErrCodePreconditionFailed,
		fmt.Sprintf("record %q does not match revision %q", key, ifMatch),
		cause, map[string]any{"key": key, "ifMatch": ifMatch})
}
