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
	"embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"

	rkerrors "github.com/NVIDIA/recordkeeper/pkg/errors"
	"github.com/NVIDIA/recordkeeper/pkg/record"
)

// Type names the kind of value a field holds.
type Type string

const (
	TypeString   Type = "string"
	TypeInteger  Type = "integer"
	TypeNumber   Type = "number"
	TypeBoolean  Type = "boolean"
	TypeDatetime Type = "datetime"
	TypeList     Type = "list"
	TypeRecord   Type = "record"
	TypeAny      Type = "any"
)

// Supported values for Field.Format.
const (
	FormatEmail = "email"
	FormatURI   = "uri"
)

// BuiltinItem is the name of the embedded default schema.
const BuiltinItem = "item"

//go:embed schemas/*.yaml
var builtinFS embed.FS

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Schema describes the fields a record may hold.
type Schema struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []*Field `json:"fields" yaml:"fields"`
	Rules       []*Rule  `json:"rules,omitempty" yaml:"rules,omitempty"`

	index map[string]*Field
}

// Parse decodes a YAML schema document and compiles its patterns and rules.
// Unknown keys are rejected.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.UnmarshalWithOptions(data, &s, yaml.Strict()); err != nil {
		return nil, rkerrors.Wrap(rkerrors.ErrCodeInvalidRequest,
			"failed to parse schema", fmt.Errorf("%s", yaml.FormatError(err, false, true)))
	}
	if err := s.Compile(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads and parses a schema file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rkerrors.Wrap(rkerrors.ErrCodeNotFound,
			fmt.Sprintf("failed to read schema %s", path), err)
	}
	return Parse(data)
}

// Builtin returns one of the embedded schemas by name.
func Builtin(name string) (*Schema, error) {
	data, err := builtinFS.ReadFile("schemas/" + name + ".yaml")
	if err != nil {
		return nil, rkerrors.NewNotFound("schema", name)
	}
	return Parse(data)
}

// Resolve returns the builtin schema when ref is empty or names one, and
// otherwise loads ref as a file path.
func Resolve(ref string) (*Schema, error) {
	if ref == "" {
		ref = BuiltinItem
	}
	if !strings.ContainsAny(ref, `/\.`) {
		return Builtin(ref)
	}
	return Load(ref)
}

// Item returns the builtin item schema. It panics if the embedded file is invalid.
func Item() *Schema {
	s, err := Builtin(BuiltinItem)
	if err != nil {
		panic(err)
	}
	return s
}

// Compile checks the schema definition and prepares patterns, defaults and
// rule programs. Parse calls it; schemas built in Go must call it before use.
func (s *Schema) Compile() error {
	var problems []string
	if s.Name == "" {
		problems = append(problems, "schema name is required")
	}
	if len(s.Fields) == 0 {
		problems = append(problems, "schema must declare at least one field")
	}

	index, fieldProblems := compileFields(s.Fields, "")
	problems = append(problems, fieldProblems...)

	seen := make(map[string]bool, len(s.Rules))
	for i, r := range s.Rules {
		if r == nil {
			problems = append(problems, fmt.Sprintf("rules[%d]: empty rule", i))
			continue
		}
		if r.Name == "" {
			problems = append(problems, fmt.Sprintf("rules[%d]: name is required", i))
		} else if seen[r.Name] {
			problems = append(problems, fmt.Sprintf("rules[%d]: duplicate rule %q", i, r.Name))
		}
		seen[r.Name] = true
		if err := r.compile(); err != nil {
			problems = append(problems, fmt.Sprintf("rules[%d]: %v", i, err))
		}
	}

	if len(problems) > 0 {
		return rkerrors.NewWithContext(rkerrors.ErrCodeInvalidRequest,
			"invalid schema: "+strings.Join(problems, "; "),
			map[string]any{"schema": s.Name})
	}
	s.index = index
	return nil
}

func compileFields(fields []*Field, prefix string) (map[string]*Field, []string) {
	var problems []string
	index := make(map[string]*Field, len(fields))
	for i, f := range fields {
		if f == nil {
			problems = append(problems, fmt.Sprintf("%sfields[%d]: empty field", prefix, i))
			continue
		}
		if !fieldNamePattern.MatchString(f.Name) {
			problems = append(problems, fmt.Sprintf("%sfields[%d]: invalid field name %q", prefix, i, f.Name))
			continue
		}
		if _, dup := index[f.Name]; dup {
			problems = append(problems, fmt.Sprintf("%s%s: duplicate field", prefix, f.Name))
			continue
		}
		index[f.Name] = f
		problems = append(problems, f.compile(prefix+f.Name)...)
	}
	return index, problems
}

// Field returns the declaration of a top-level field.
func (s *Schema) Field(name string) (*Field, bool) {
	f, ok := s.index[name]
	return f, ok
}

// Names returns the top-level field names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

// Defaults returns a record holding every field that has an implicit value:
// its declared default, or nil when the field is nullable. Fields with
// neither are left out.
func (s *Schema) Defaults() record.Record {
	out := make(record.Record, len(s.Fields))
	for _, f := range s.Fields {
		if f.hasImplicitValue() {
			out[f.Name] = record.CloneValue(f.Default)
		}
	}
	return out
}

// Complete returns a copy of r with every declared field that r lacks set to
// its implicit value (see Defaults). Fields r already holds are untouched.
func (s *Schema) Complete(r record.Record) record.Record {
	out := r.Clone()
	if out == nil {
		out = make(record.Record, len(s.Fields))
	}
	for _, f := range s.Fields {
		if !out.Has(f.Name) && f.hasImplicitValue() {
			out[f.Name] = record.CloneValue(f.Default)
		}
	}
	return out
}

// Canonicalize returns a copy of r with integral numbers held by integer
// fields stored as int64.
func (s *Schema) Canonicalize(r record.Record) record.Record {
	out := r.Clone()
	for name, v := range out {
		if f, ok := s.index[name]; ok {
			out[name] = f.canonical(v)
		}
	}
	return out
}
