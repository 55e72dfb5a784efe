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
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/expr-lang/expr/vm"

	rkerrors "github.com/NVIDIA/recordkeeper/pkg/errors"
	"github.com/NVIDIA/recordkeeper/pkg/record"
)

// Field declares one field of a record, or the element type of a list.
type Field struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Type        Type   `json:"type" yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Nullable    bool   `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty"`

	Minimum          *float64 `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	ExclusiveMinimum *float64 `json:"exclusiveMinimum,omitempty" yaml:"exclusiveMinimum,omitempty"`
	ExclusiveMaximum *float64 `json:"exclusiveMaximum,omitempty" yaml:"exclusiveMaximum,omitempty"`
	MinLength        *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength        *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Enum             []any    `json:"enum,omitempty" yaml:"enum,omitempty"`
	Pattern          string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Format           string   `json:"format,omitempty" yaml:"format,omitempty"`
	Rule             string   `json:"rule,omitempty" yaml:"rule,omitempty"`

	// Items is the element type of a list field.
	Items *Field `json:"items,omitempty" yaml:"items,omitempty"`
	// Fields are the nested fields of a record field. A record field without
	// nested fields accepts any object.
	Fields []*Field `json:"fields,omitempty" yaml:"fields,omitempty"`

	pattern *regexp.Regexp
	rule    *vm.Program
	index   map[string]*Field
}

func (f *Field) compile(path string) []string {
	var problems []string
	bad := func(format string, args ...any) {
		problems = append(problems, path+": "+fmt.Sprintf(format, args...))
	}

	switch f.Type {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean, TypeDatetime, TypeList, TypeRecord, TypeAny:
	case "":
		bad("type is required")
	default:
		bad("unknown type %q", f.Type)
	}

	if f.Required && f.Nullable {
		bad("a required field cannot be nullable")
	}
	if (f.Minimum != nil || f.Maximum != nil || f.ExclusiveMinimum != nil || f.ExclusiveMaximum != nil) &&
		f.Type != TypeInteger && f.Type != TypeNumber {
		bad("numeric bounds apply to integer and number fields only")
	}
	if (f.MinLength != nil || f.MaxLength != nil) && f.Type != TypeString && f.Type != TypeList {
		bad("length bounds apply to string and list fields only")
	}
	if f.MinLength != nil && f.MaxLength != nil && *f.MinLength > *f.MaxLength {
		bad("minLength %d exceeds maxLength %d", *f.MinLength, *f.MaxLength)
	}
	if f.Minimum != nil && f.Maximum != nil && *f.Minimum > *f.Maximum {
		bad("minimum %v exceeds maximum %v", *f.Minimum, *f.Maximum)
	}

	if f.Pattern != "" {
		if f.Type != TypeString {
			bad("pattern applies to string fields only")
		} else if re, err := regexp.Compile(f.Pattern); err != nil {
			bad("invalid pattern: %v", err)
		} else {
			f.pattern = re
		}
	}
	switch f.Format {
	case "":
	case FormatEmail, FormatURI:
		if f.Type != TypeString {
			bad("format applies to string fields only")
		}
	default:
		bad("unknown format %q", f.Format)
	}

	if f.Rule != "" {
		prg, err := compileFieldRule(f.Rule)
		if err != nil {
			bad("invalid rule: %v", err)
		} else {
			f.rule = prg
		}
	}

	if f.Items != nil {
		if f.Type != TypeList {
			bad("items applies to list fields only")
		} else {
			problems = append(problems, f.Items.compile(path+"[]")...)
		}
	}
	if len(f.Fields) > 0 {
		if f.Type != TypeRecord {
			bad("fields applies to record fields only")
		} else {
			index, nested := compileFields(f.Fields, path+".")
			problems = append(problems, nested...)
			f.index = index
		}
	}

	if len(f.Enum) > 0 {
		for i, v := range f.Enum {
			nv, err := record.NormalizeValue(v)
			if err != nil {
				bad("enum[%d]: %v", i, err)
				continue
			}
			f.Enum[i] = nv
		}
	}

	if f.Default != nil && len(problems) == 0 {
		nv, err := record.NormalizeValue(f.Default)
		if err != nil {
			bad("invalid default: %v", err)
		} else {
			f.Default = f.canonical(nv)
			for _, fe := range f.validate(path, f.Default) {
				bad("invalid default: %s", fe.Reason)
			}
		}
	}

	return problems
}

// validate checks a single value, appending one FieldError per violation.
func (f *Field) validate(path string, v any) []rkerrors.FieldError {
	var errs []rkerrors.FieldError
	fail := func(format string, args ...any) {
		errs = append(errs, rkerrors.FieldError{Field: path, Reason: fmt.Sprintf(format, args...)})
	}

	if v == nil {
		if !f.Nullable && f.Type != TypeAny {
			fail("must not be null")
		}
		return errs
	}

	switch f.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			fail("expected string, got %s", record.TypeName(v))
			return errs
		}
		n := len([]rune(s))
		if f.MinLength != nil && n < *f.MinLength {
			fail("length must be >= %d", *f.MinLength)
		}
		if f.MaxLength != nil && n > *f.MaxLength {
			fail("length must be <= %d", *f.MaxLength)
		}
		if f.pattern != nil && !f.pattern.MatchString(s) {
			fail("must match pattern %s", f.Pattern)
		}
		if reason := checkFormat(f.Format, s); reason != "" {
			fail("%s", reason)
		}

	case TypeInteger:
		n, ok := asNumber(v)
		if !ok || n != math.Trunc(n) {
			fail("expected integer, got %s", record.TypeName(v))
			return errs
		}
		if _, isInt := v.(int64); !isInt && !inInt64Range(n) {
			fail("integer out of range")
			return errs
		}
		errs = append(errs, f.checkBounds(path, n)...)

	case TypeNumber:
		n, ok := asNumber(v)
		if !ok {
			fail("expected number, got %s", record.TypeName(v))
			return errs
		}
		errs = append(errs, f.checkBounds(path, n)...)

	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			fail("expected boolean, got %s", record.TypeName(v))
			return errs
		}

	case TypeDatetime:
		s, ok := v.(string)
		if !ok {
			fail("expected datetime, got %s", record.TypeName(v))
			return errs
		}
		if reason := checkDatetime(s); reason != "" {
			fail("%s", reason)
		}

	case TypeList:
		items, ok := v.([]any)
		if !ok {
			fail("expected list, got %s", record.TypeName(v))
			return errs
		}
		if f.MinLength != nil && len(items) < *f.MinLength {
			fail("must hold at least %d items", *f.MinLength)
		}
		if f.MaxLength != nil && len(items) > *f.MaxLength {
			fail("must hold at most %d items", *f.MaxLength)
		}
		if f.Items != nil {
			for i, item := range items {
				errs = append(errs, f.Items.validate(fmt.Sprintf("%s[%d]", path, i), item)...)
			}
		}

	case TypeRecord:
		obj, ok := v.(map[string]any)
		if !ok {
			fail("expected record, got %s", record.TypeName(v))
			return errs
		}
		if f.index != nil {
			errs = append(errs, validateFields(f.Fields, f.index, path+".", obj)...)
		}

	case TypeAny:
	}

	if len(f.Enum) > 0 && !inEnum(f.Enum, v) {
		fail("must be one of %s", formatEnum(f.Enum))
	}

	if f.rule != nil && len(errs) == 0 {
		ok, err := runFieldRule(f.rule, v)
		switch {
		case err != nil:
			fail("rule failed: %v", err)
		case !ok:
			fail("does not satisfy rule %s", f.Rule)
		}
	}

	return errs
}

func (f *Field) hasImplicitValue() bool {
	return f.Default != nil || f.Nullable
}

func (f *Field) checkBounds(path string, n float64) []rkerrors.FieldError {
	var errs []rkerrors.FieldError
	fail := func(op string, bound float64) {
		errs = append(errs, rkerrors.FieldError{Field: path, Reason: fmt.Sprintf("must be %s %v", op, bound)})
	}
	if f.Minimum != nil && n < *f.Minimum {
		fail(">=", *f.Minimum)
	}
	if f.Maximum != nil && n > *f.Maximum {
		fail("<=", *f.Maximum)
	}
	if f.ExclusiveMinimum != nil && n <= *f.ExclusiveMinimum {
		fail(">", *f.ExclusiveMinimum)
	}
	if f.ExclusiveMaximum != nil && n >= *f.ExclusiveMaximum {
		fail("<", *f.ExclusiveMaximum)
	}
	return errs
}

// canonical converts integral floats held by integer fields to int64,
// recursing into list items and nested record fields.
func (f *Field) canonical(v any) any {
	switch f.Type {
	case TypeInteger:
		if x, ok := v.(float64); ok && x == math.Trunc(x) && inInt64Range(x) {
			return int64(x)
		}
	case TypeList:
		items, ok := v.([]any)
		if !ok || f.Items == nil {
			return v
		}
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = f.Items.canonical(item)
		}
		return out
	case TypeRecord:
		obj, ok := v.(map[string]any)
		if !ok || f.index == nil {
			return v
		}
		out := make(map[string]any, len(obj))
		for k, item := range obj {
			if nf, ok := f.index[k]; ok {
				out[k] = nf.canonical(item)
			} else {
				out[k] = item
			}
		}
		return out
	}
	return v
}

// validateFields checks obj against a set of declared fields: unknown keys,
// missing required fields and every present value.
func validateFields(fields []*Field, index map[string]*Field, prefix string, obj map[string]any) []rkerrors.FieldError {
	var errs []rkerrors.FieldError
	for name := range obj {
		if _, ok := index[name]; !ok {
			errs = append(errs, rkerrors.FieldError{Field: prefix + name, Reason: "unknown field"})
		}
	}
	for _, f := range fields {
		v, ok := obj[f.Name]
		if !ok {
			if f.Required {
				errs = append(errs, rkerrors.FieldError{Field: prefix + f.Name, Reason: "required field is missing"})
			}
			continue
		}
		errs = append(errs, f.validate(prefix+f.Name, v)...)
	}
	return errs
}

// inInt64Range reports whether n converts to int64 without wrapping.
// float64(math.MaxInt64) rounds up to 2^63, hence the strict bound.
func inInt64Range(n float64) bool {
	return n >= math.MinInt64 && n < math.MaxInt64
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func inEnum(enum []any, v any) bool {
	for _, e := range enum {
		if record.ValueEqual(e, v) {
			return true
		}
	}
	return false
}

func formatEnum(enum []any) string {
	parts := make([]string, len(enum))
	for i, e := range enum {
		parts[i] = fmt.Sprintf("%v", e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
