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

package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	rkerrors "github.com/NVIDIA/recordkeeper/pkg/errors"
)

// Payload is a partial update: the supplied values and the set of fields the
// caller explicitly supplied.
type Payload struct {
	Values   Record   `json:"values" yaml:"values"`
	Presence FieldSet `json:"presence" yaml:"presence"`
}

// NewPayload returns a payload in which every key of values is present.
func NewPayload(values Record) Payload {
	presence := NewFieldSet()
	for k := range values {
		presence.Add(k)
	}
	return Payload{Values: values, Presence: presence}
}

// PayloadOf returns a payload with an explicit presence set. Values outside
// the presence set are carried but never applied.
func PayloadOf(values Record, present ...string) Payload {
	return Payload{Values: values, Presence: NewFieldSet(present...)}
}

// Present reports whether the caller supplied field.
func (p Payload) Present(field string) bool {
	return p.Presence.Has(field)
}

// IsEmpty reports whether the payload supplies no fields.
func (p Payload) IsEmpty() bool {
	return p.Presence.Len() == 0
}

// DecodePayload reads a single JSON object and returns it as a payload whose
// presence set is exactly the object's top-level keys.
func DecodePayload(r io.Reader) (Payload, error) {
	values, err := DecodeObject(r)
	if err != nil {
		return Payload{}, err
	}
	return NewPayload(values), nil
}

// DecodeObject reads a single JSON object into a normalized Record.
// Numbers decode as int64 when integral and float64 otherwise.
func DecodeObject(r io.Reader) (Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, rkerrors.New(rkerrors.ErrCodeInvalidRequest, "request body is empty")
		}
		return nil, rkerrors.Wrap(rkerrors.ErrCodeInvalidRequest, "malformed JSON body", err)
	}
	if dec.More() {
		return nil, rkerrors.New(rkerrors.ErrCodeInvalidRequest, "request body must contain a single JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, rkerrors.New(rkerrors.ErrCodeInvalidRequest, "unexpected data after JSON object")
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, rkerrors.New(rkerrors.ErrCodeInvalidRequest,
			fmt.Sprintf("request body must be a JSON object, got %s", jsonKind(raw)))
	}

	rec, err := Normalize(obj)
	if err != nil {
		return nil, rkerrors.Wrap(rkerrors.ErrCodeInvalidRequest, "unsupported value in body", err)
	}
	return rec, nil
}

// DecodeBytes is DecodeObject over a byte slice.
func DecodeBytes(data []byte) (Record, error) {
	return DecodeObject(bytes.NewReader(data))
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
