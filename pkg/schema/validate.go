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

package schema

import (
	rkerrors "github.com/NVIDIA/recordkeeper/pkg/errors"
	"github.com/NVIDIA/recordkeeper/pkg/record"
)

// ValidatePayload checks every field in the payload's presence set: the field
// must be declared, must carry a value and that value must satisfy the
// field's type and constraints. Values outside the presence set are never
// applied, but they must still name declared fields.
func (s *Schema) ValidatePayload(p record.Payload) error {
	var errs []rkerrors.FieldError
	for _, name := range p.Values.Fields() {
		if p.Presence.Has(name) {
			continue
		}
		if _, ok := s.index[name]; !ok {
			errs = append(errs, rkerrors.FieldError{Field: name, Reason: "unknown field"})
		}
	}
	for _, name := range p.Presence.Sorted() {
		f, ok := s.index[name]
		if !ok {
			errs = append(errs, rkerrors.FieldError{Field: name, Reason: "unknown field"})
			continue
		}
		v, ok := p.Values[name]
		if !ok {
			errs = append(errs, rkerrors.FieldError{Field: name, Reason: "present without a value"})
			continue
		}
		errs = append(errs, f.validate(name, v)...)
	}
	if len(errs) > 0 {
		return rkerrors.NewValidation(errs...)
	}
	return nil
}

// ValidateRecord checks a complete record: no unknown fields, every required
// field present, every value valid, then every record rule satisfied. Rules
// run only when the fields themselves are valid.
func (s *Schema) ValidateRecord(r record.Record) error {
	if errs := validateFields(s.Fields, s.index, "", r); len(errs) > 0 {
		return rkerrors.NewValidation(errs...)
	}
	return s.CheckRules(r)
}

// CheckRules evaluates every record rule against r and reports all that fail.
func (s *Schema) CheckRules(r record.Record) error {
	var errs []rkerrors.FieldError
	for _, rule := range s.Rules {
		ok, err := rule.Eval(r)
		if err != nil || !ok {
			errs = append(errs, rule.failure(err))
		}
	}
	if len(errs) > 0 {
		return rkerrors.NewValidation(errs...)
	}
	return nil
}
