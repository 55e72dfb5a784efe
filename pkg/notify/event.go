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

package notify

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/google/uuid"

	"github.com/NVIDIA/recordkeeper/pkg/header"
	"github.com/NVIDIA/recordkeeper/pkg/record"
)

// EventType classifies a change.
type EventType string

const (
	EventCreated  EventType = "record.created"
	EventUpdated  EventType = "record.updated"
	EventReplaced EventType = "record.replaced"
	EventDeleted  EventType = "record.deleted"
)

// Event describes one committed change to a record.
type Event struct {
	header.Header `yaml:",inline"`

	ID          string          `json:"id" yaml:"id"`
	Type        EventType       `json:"type" yaml:"type"`
	Key         string          `json:"key" yaml:"key"`
	Revision    string          `json:"revision,omitempty" yaml:"revision,omitempty"`
	Changed     record.FieldSet `json:"changed" yaml:"changed"`
	Patch       json.RawMessage `json:"patch,omitempty" yaml:"patch,omitempty"`
	Record      record.Record   `json:"record,omitempty" yaml:"record,omitempty"`
	Timestamp   time.Time       `json:"timestamp" yaml:"timestamp"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
}

// NewEvent builds the event for a change of key from before to after.
// before is nil for creations and after is nil for deletions.
func NewEvent(typ EventType, key, revision string, before, after record.Record) (*Event, error) {
	ev := &Event{
		Header:    *header.New(header.WithKind(header.KindRecordEvent)),
		ID:        uuid.NewString(),
		Type:      typ,
		Key:       key,
		Revision:  revision,
		Changed:   before.Changed(after),
		Record:    after.Clone(),
		Timestamp: time.Now().UTC(),
	}
	ev.Metadata = nil

	if after != nil {
		patch, err := mergePatch(before, after)
		if err != nil {
			return nil, fmt.Errorf("failed to compute merge patch for %q: %w", key, err)
		}
		ev.Patch = patch
	}
	ev.Description = describe(ev)
	return ev, nil
}

func mergePatch(before, after record.Record) (json.RawMessage, error) {
	if before == nil {
		before = record.Record{}
	}
	orig, err := json.Marshal(before)
	if err != nil {
		return nil, err
	}
	mod, err := json.Marshal(after)
	if err != nil {
		return nil, err
	}
	return jsonpatch.CreateMergePatch(orig, mod)
}

func describe(ev *Event) string {
	verb := strings.TrimPrefix(string(ev.Type), "record.")
	if ev.Changed.Len() == 0 || ev.Type == EventDeleted {
		return fmt.Sprintf("record %s %s", ev.Key, verb)
	}
	return fmt.Sprintf("record %s %s: %s", ev.Key, verb, strings.Join(ev.Changed.Sorted(), ", "))
}
