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
	"encoding/json"
	"strings"
	"time"

	"github.com/NVIDIA/recordkeeper/pkg/header"
	"github.com/NVIDIA/recordkeeper/pkg/notify"
	"github.com/NVIDIA/recordkeeper/pkg/record"
	"github.com/NVIDIA/recordkeeper/pkg/store"
)

// Document is the wire form of a stored record.
type Document struct {
	header.Header `json:",inline" yaml:",inline"`

	Key       string           `json:"key" yaml:"key"`
	Revision  string           `json:"revision" yaml:"revision"`
	UpdatedAt time.Time        `json:"updatedAt" yaml:"updatedAt"`
	Record    record.Record    `json:"record" yaml:"record"`
	Changed   record.FieldSet  `json:"changed,omitempty" yaml:"changed,omitempty"`
	Callback  *notify.Delivery `json:"callback,omitempty" yaml:"callback,omitempty"`
}

// NewDocument wraps e.
func NewDocument(e *store.Entry) *Document {
	d := &Document{
		Header:    header.Header{Kind: header.KindRecord, APIVersion: header.APIVersion},
		Key:       e.Key,
		Revision:  e.Revision,
		UpdatedAt: e.UpdatedAt,
		Record:    e.Record,
	}
	if d.Record == nil {
		d.Record = record.Record{}
	}
	return d
}

// DocumentOf wraps the outcome of a write.
func DocumentOf(res *Result) *Document {
	d := NewDocument(res.Entry)
	if res.Changed.Len() > 0 {
		d.Changed = res.Changed
	}
	d.Callback = res.Delivery
	return d
}

// DocumentList is the wire form of a record listing.
type DocumentList struct {
	header.Header `json:",inline" yaml:",inline"`

	Count int         `json:"count" yaml:"count"`
	Items []*Document `json:"items" yaml:"items"`
}

// NewDocumentList wraps entries in order.
func NewDocumentList(entries []store.Entry) *DocumentList {
	l := &DocumentList{
		Header: header.Header{Kind: header.KindRecordList, APIVersion: header.APIVersion},
		Count:  len(entries),
		Items:  make([]*Document, 0, len(entries)),
	}
	for i := range entries {
		l.Items = append(l.Items, NewDocument(&entries[i]))
	}
	return l
}

// TableHeader implements serializer.Tabular.
func (l *DocumentList) TableHeader() []string {
	return []string{"key", "revision", "updated", "fields"}
}

// TableRows implements serializer.Tabular.
func (l *DocumentList) TableRows() [][]string {
	rows := make([][]string, 0, len(l.Items))
	for _, d := range l.Items {
		rows = append(rows, []string{
			d.Key,
			d.Revision,
			d.UpdatedAt.UTC().Format(time.RFC3339),
			summarize(d.Record),
		})
	}
	return rows
}

// summarize renders a record as field=value pairs in field order.
func summarize(r record.Record) string {
	parts := make([]string, 0, len(r))
	for _, f := range r.Fields() {
		v, err := json.Marshal(r[f])
		if err != nil {
			v = []byte("?")
		}
		parts = append(parts, f+"="+string(v))
	}
	return strings.Join(parts, " ")
}
