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

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/recordkeeper/pkg/record"
	"github.com/NVIDIA/recordkeeper/pkg/serializer"
)

// parseSetFlags turns key=value pairs into a payload. A value that parses as
// JSON keeps its JSON type, so age=36 is a number, email=null is null and
// name=Lily is the string "Lily". Later pairs win.
func parseSetFlags(pairs []string) (record.Payload, error) {
	values := record.Record{}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return record.Payload{}, fmt.Errorf("invalid --set %q: expected key=value", pair)
		}
		v, err := record.NormalizeValue(parseSetValue(raw))
		if err != nil {
			return record.Payload{}, fmt.Errorf("invalid --set %q: %w", pair, err)
		}
		values[key] = v
	}
	return record.NewPayload(values), nil
}

func parseSetValue(raw string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	return v
}

// loadDocument reads a JSON or YAML object from path into a record.
func loadDocument(ctx context.Context, path string) (record.Record, error) {
	m, err := serializer.FromFile[map[string]any](ctx, path)
	if err != nil {
		return nil, err
	}
	if m == nil || *m == nil {
		return nil, fmt.Errorf("%s does not contain an object", path)
	}
	return record.Normalize(*m)
}

// loadPayload builds the payload of a write from --file and --set. Fields
// from --set override fields from the file.
func loadPayload(ctx context.Context, cmd *cli.Command) (record.Payload, error) {
	p := record.NewPayload(record.Record{})
	if path := cmd.String("file"); path != "" {
		rec, err := loadDocument(ctx, path)
		if err != nil {
			return record.Payload{}, fmt.Errorf("failed to load %s: %w", path, err)
		}
		p = record.NewPayload(rec)
	}

	set, err := parseSetFlags(cmd.StringSlice("set"))
	if err != nil {
		return record.Payload{}, err
	}
	for _, f := range set.Presence.Sorted() {
		p.Values[f] = set.Values[f]
		p.Presence.Add(f)
	}

	if p.IsEmpty() {
		return record.Payload{}, fmt.Errorf("%s needs at least one field from --set or --file", cmd.Name)
	}
	return p, nil
}
