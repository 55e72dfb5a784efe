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

// Package merge applies partial and full updates to stored records.
//
// An Engine pairs the pure field-presence merge from pkg/record with a schema.
// Merge validates only the fields the caller supplied, copies them onto the
// stored record and leaves every other field untouched:
//
//	eng := merge.New(schema.Item())
//	merged, err := eng.Merge(stored, record.PayloadOf(values, "age"))
//
// Replace and Create implement full-replace semantics: fields the caller did
// not supply are reset to their implicit values, and missing required fields
// fail validation.
//
// The engine is stateless apart from its schema and safe for concurrent use.
// It never performs I/O; locating the stored record and persisting the result
// are the caller's responsibility.
package merge
