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

// Package record defines the record model and the pure partial-update merge.
//
// A Record is a map from field name to a normalized value: string, int64,
// float64, bool, []any, map[string]any (a nested record) or nil. Records are
// treated as immutable values; every operation in this package returns a deep
// copy instead of mutating its input.
//
// A Payload is a sparse record together with its presence set, the names of
// the fields the caller actually supplied. Presence is explicit: a field that
// holds its type's zero value but was not supplied is not present, and a field
// supplied as JSON null is.
//
//	p, err := record.DecodePayload(strings.NewReader(`{"age": 36}`))
//	merged := record.Merge(stored, p)
//
// Merge copies the stored record and overwrites exactly the present fields.
// Nested records and lists are replaced wholesale. Schema validation lives in
// the merge package; this package has no notion of which fields are allowed.
package record
