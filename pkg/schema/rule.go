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

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	rkerrors "github.com/NVIDIA/recordkeeper/pkg/errors"
	"github.com/NVIDIA/recordkeeper/pkg/record"
)

// RuleFieldPrefix prefixes the FieldError.Field reported for a failed record rule.
const RuleFieldPrefix = "rule:"

// Rule is a record-level boolean expression. Every field of the record is
// available as a variable; fields the record lacks evaluate to nil.
type Rule struct {
	Name    string `json:"name" yaml:"name"`
	Expr    string `json:"expr" yaml:"expr"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	program *vm.Program
}

func (r *Rule) compile() error {
	if r.Expr == "" {
		return fmt.Errorf("rule %q: expr is required", r.Name)
	}
	prg, err := expr.Compile(r.Expr, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return fmt.Errorf("rule %q: %w", r.Name, err)
	}
	r.program = prg
	return nil
}

// Eval runs the rule against rec.
func (r *Rule) Eval(rec record.Record) (bool, error) {
	if r.program == nil {
		if err := r.compile(); err != nil {
			return false, err
		}
	}
	env := make(map[string]any, len(rec))
	for k, v := range rec {
		env[k] = record.CloneValue(v)
	}
	out, err := expr.Run(r.program, env)
	if err != nil {
		return false, err
	}
	ok, _ := out.(bool)
	return ok, nil
}

func (r *Rule) failure(err error) rkerrors.FieldError {
	reason := r.Message
	switch {
	case err != nil:
		reason = fmt.Sprintf("rule failed: %v", err)
	case reason == "":
		reason = fmt.Sprintf("does not satisfy %s", r.Expr)
	}
	return rkerrors.FieldError{Field: RuleFieldPrefix + r.Name, Reason: reason}
}

func compileFieldRule(src string) (*vm.Program, error) {
	return expr.Compile(src, expr.AsBool(), expr.AllowUndefinedVariables())
}

func runFieldRule(prg *vm.Program, v any) (bool, error) {
	out, err := expr.Run(prg, map[string]any{"value": v})
	if err != nil {
		return false, err
	}
	ok, _ := out.(bool)
	return ok, nil
}
