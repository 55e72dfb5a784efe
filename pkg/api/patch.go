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

package api

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"

	rkerrors "github.com/NVIDIA/recordkeeper/pkg/errors"
	"github.com/NVIDIA/recordkeeper/pkg/record"
)

var patchOps = map[string]bool{
	"add":     true,
	"remove":  true,
	"replace": true,
	"move":    true,
	"copy":    true,
	"test":    true,
}

type patchOp struct {
	Op   string `json:"op"`
	Path string `json:"path"`
	From string `json:"from,omitempty"`
}

// JSONPatch is a decoded RFC 6902 document together with the top-level
// fields its operations touch.
type JSONPatch struct {
	patch  jsonpatch.Patch
	fields record.FieldSet
}

// ParseJSONPatch decodes body and derives its presence set: every top-level
// field named by a path, plus the source of a move.
func ParseJSONPatch(body []byte) (*JSONPatch, error) {
	var ops []patchOp
	if err := json.Unmarshal(body, &ops); err != nil {
		return nil, rkerrors.Wrap(rkerrors.ErrCodeInvalidRequest, "json patch must be an array of operations", err)
	}
	if len(ops) == 0 {
		return nil, rkerrors.New(rkerrors.ErrCodeInvalidRequest, "json patch has no operations")
	}

	fields := record.NewFieldSet()
	for i, op := range ops {
		if !patchOps[op.Op] {
			return nil, rkerrors.NewWithContext(rkerrors.ErrCodeInvalidRequest,
				fmt.Sprintf("unsupported json patch operation %q", op.Op),
				map[string]any{"index": i})
		}
		if op.Op == "test" {
			continue
		}
		f, err := topLevelField(op.Path)
		if err != nil {
			return nil, withIndex(err, i)
		}
		fields.Add(f)
		if op.Op == "move" {
			from, err := topLevelField(op.From)
			if err != nil {
				return nil, withIndex(err, i)
			}
			fields.Add(from)
		}
	}

	p, err := jsonpatch.DecodePatch(body)
	if err != nil {
		return nil, rkerrors.Wrap(rkerrors.ErrCodeInvalidRequest, "invalid json patch", err)
	}
	return &JSONPatch{patch: p, fields: fields}, nil
}

// Fields returns the top-level fields the patch writes.
func (p *JSONPatch) Fields() record.FieldSet {
	return p.fields
}

// Payload applies the patch to stored and returns the touched fields as a
// payload. Removing a top-level field is rejected because a record keeps
// every field; clients set it to null instead.
func (p *JSONPatch) Payload(stored record.Record) (record.Payload, error) {
	if stored == nil {
		stored = record.Record{}
	}
	doc, err := json.Marshal(stored)
	if err != nil {
		return record.Payload{}, rkerrors.Wrap(rkerrors.ErrCodeInternal, "failed to encode stored record", err)
	}
	out, err := p.patch.Apply(doc)
	if err != nil {
		return record.Payload{}, rkerrors.Wrap(rkerrors.ErrCodeConflict,
			"json patch does not apply to the stored record", err)
	}
	patched, err := record.DecodeBytes(out)
	if err != nil {
		return record.Payload{}, err
	}

	var removed []rkerrors.FieldError
	values := record.Record{}
	for _, f := range p.fields.Sorted() {
		v, ok := patched[f]
		if !ok {
			removed = append(removed, rkerrors.FieldError{
				Field:  f,
				Reason: "cannot be removed, set it to null instead",
			})
			continue
		}
		values[f] = v
	}
	if len(removed) > 0 {
		return record.Payload{}, rkerrors.NewValidation(removed...)
	}
	return record.NewPayload(values), nil
}

// topLevelField returns the first reference token of a JSON pointer.
func topLevelField(pointer string) (string, error) {
	if !strings.HasPrefix(pointer, "/") {
		return "", rkerrors.New(rkerrors.ErrCodeInvalidRequest,
			fmt.Sprintf("json patch path %q must start with /", pointer))
	}
	token, _, _ := strings.Cut(pointer[1:], "/")
	if token == "" {
		return "", rkerrors.New(rkerrors.ErrCodeInvalidRequest,
			"json patch path must name a field")
	}
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~"), nil
}

func withIndex(err error, i int) error {
	if se, ok := err.(*rkerrors.StructuredError); ok {
		return rkerrors.NewWithContext(se.Code, se.Message, map[string]any{"index": i})
	}
	return err
}
