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

// Package schema declares the shape of records and validates values against it.
//
// A schema is a list of typed fields plus optional record-level rules. Schemas
// are written in YAML and parsed strictly:
//
//	name: item
//	fields:
//	  - name: age
//	    type: integer
//	    required: true
//	    minimum: 0
//	    maximum: 150
//	rules:
//	  - name: adult-has-email
//	    expr: age < 18 || email != nil
//	    message: adults must provide an email
//
// Field types are string, integer, number, boolean, datetime (RFC 3339 string),
// list (with an optional items type), record (with optional nested fields) and any.
// Constraints cover numeric ranges, string and list length, enumerations, regular
// expression patterns and the email and uri formats. A field rule is an
// expr-lang boolean expression over the variable value; record rules see every
// field of the record as a variable.
//
// Validation never stops at the first failure. Every failing field is reported
// in a single VALIDATION_FAILED error (see pkg/errors).
//
// The builtin "item" schema is embedded and returned by Builtin("item").
package schema
