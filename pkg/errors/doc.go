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

// Package errors provides the structured error type shared by every layer of
// recordkeeper.
//
// A StructuredError pairs a machine readable ErrorCode with a message, an
// optional cause and optional context. The HTTP server maps codes to status
// codes, so a store or the merge engine can raise an error once and have it
// rendered consistently:
//
//	ErrCodeNotFound            -> 404
//	ErrCodeValidation          -> 422
//	ErrCodeInvalidRequest      -> 400
//	ErrCodeConflict            -> 409
//	ErrCodePreconditionFailed  -> 412
//
// Validation failures carry the failing fields:
//
//	err := errors.NewValidation(errors.FieldError{Field: "nickname", Reason: "unknown field"})
//	for _, f := range errors.FieldErrors(err) {
//	    fmt.Println(f.Field, f.Reason)
//	}
//
// Matching on a code works through the standard library:
//
//	if errors.IsCode(err, errors.ErrCodeNotFound) { ... }
package errors
