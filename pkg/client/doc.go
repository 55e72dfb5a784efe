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

// Package client is a Go client for the recordkeeper record API.
//
// Responses decode into records.Document values with normalized records, and
// error responses become *errors.StructuredError values carrying the server's
// code, message and details, so callers can branch with errors.IsCode:
//
//	c, err := client.New("http://localhost:8080")
//	doc, err := c.Patch(ctx, "Lily", record.PayloadOf(record.Record{"age": 36}, "age"), records.Options{})
//	if errors.IsCode(err, errors.ErrCodeValidation) {
//	    for _, fe := range errors.FieldErrors(err) { ... }
//	}
package client
