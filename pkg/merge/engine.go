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

package merge

import (
	rkerrors "github.com/NVIDIA/recordkeeper/pkg/errors"
	"github.com/NVIDIA/recordkeeper/pkg/record"
	"github.com/NVIDIA/recordkeeper/pkg/schema"
)

// Engine validates payloads against a schema and applies them to records.
type Engine struct {
	schema *schema.Schema
}

// New returns an engine for the given schema. A nil schema selects the
// builtin item schema.
func New(s *schema.Schema) *Engine {
	if s == nil {
		s = schema.Item()
	}
	return &Engine{schema: s}
}

// Schema returns the schema the engine validates against.
func (e *Engine) Schema() *schema.Schema {
	return e.schema
}

// Merge returns stored with every field in the payload's presence set
// replaced by the payload's value. Fields outside the presence set keep
// their stored values, and nested records and lists are replaced wholesale.
// Declared fields the stored record lacks are filled with their implicit
// values first. An empty presence set returns an equal copy of the record.
//
// The payload is validated before anything is merged: unknown fields,
// fields present without a value and type or constraint violations are all
// reported in one VALIDATION_FAILED error. Record rules are checked against
// the merged result. Neither argument is modified.
func (e *Engine) Merge(stored record.Record, p record.Payload) (merged record.Record, err error) {
	defer func() { observe(opMerge, stored, merged, err) }()

	if err := e.schema.ValidatePayload(p); err != nil {
		return nil, err
	}

	base := e.schema.Complete(stored)
	merged = record.Merge(base, canonicalPayload(e.schema, p))

	if err := e.schema.CheckRules(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Replace builds the record that results from a full replace: every
// declared field comes from the payload when present and otherwise falls
// back to its implicit value. Required fields must be present. stored is
// only consulted for change accounting.
func (e *Engine) Replace(stored record.Record, p record.Payload) (replaced record.Record, err error) {
	defer func() { observe(opReplace, stored, replaced, err) }()
	return e.replace(p)
}

// Create builds a new record from the payload with Replace semantics.
func (e *Engine) Create(p record.Payload) (created record.Record, err error) {
	defer func() { observe(opCreate, nil, created, err) }()
	return e.replace(p)
}

func (e *Engine) replace(p record.Payload) (record.Record, error) {
	var errs []rkerrors.FieldError
	if err := e.schema.ValidatePayload(p); err != nil {
		errs = append(errs, rkerrors.FieldErrors(err)...)
	}
	for _, f := range e.schema.Fields {
		if f.Required && !p.Present(f.Name) && f.Default == nil {
			errs = append(errs, rkerrors.FieldError{Field: f.Name, Reason: "required field is missing"})
		}
	}
	if len(errs) > 0 {
		return nil, rkerrors.NewValidation(errs...)
	}

	out := record.Merge(e.schema.Defaults(), canonicalPayload(e.schema, p))
	if err := e.schema.ValidateRecord(out); err != nil {
		return nil, err
	}
	return out, nil
}

func canonicalPayload(s *schema.Schema, p record.Payload) record.Payload {
	return record.Payload{Values: s.Canonicalize(p.Values), Presence: p.Presence}
}

func changedCount(before, after map[string]any) int {
	if after == nil {
		return 0
	}
	return record.Record(before).Changed(record.Record(after)).Len()
}
