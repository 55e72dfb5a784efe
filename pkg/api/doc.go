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

// Package api provides the HTTP API layer for the recordkeeper service.
//
// This package is a thin wrapper around the reusable pkg/server package. It
// configures the store backend from the environment, builds the record
// service and mounts the record routes under /v1.
//
// # Usage
//
//	func main() {
//	    if err := api.Serve(); err != nil {
//	        log.Fatalf("server error: %v", err)
//	    }
//	}
//
// # Endpoints
//
//	GET    /v1/schema          active schema
//	GET    /v1/records         all records ordered by key
//	GET    /v1/records/{key}   one record
//	POST   /v1/records/{key}   create (201, Location)
//	PUT    /v1/records/{key}   full replace
//	PATCH  /v1/records/{key}   partial update
//	DELETE /v1/records/{key}   delete (204)
//
// PATCH accepts application/json and application/merge-patch+json bodies,
// where a field present with null sets it to null and an omitted field is
// left unchanged, and application/json-patch+json operation lists.
//
// Writes return the record revision in ETag. An If-Match header makes the
// write conditional; "*" only requires that the record exists. A
// callback_url query parameter posts a RecordEvent after the write and
// reports the outcome in X-Callback-Status and X-Callback-Acknowledged.
//
// # Configuration
//
//	RK_STORE           memory (default), journal or configmap
//	RK_JOURNAL_PATH    journal file, default recordkeeper.journal
//	RK_CONFIGMAP       [namespace/]name, default recordkeeper
//	RK_SCHEMA          builtin schema name or schema file
//	RK_SEED            create demo records on startup
//	RK_MAX_BODY_BYTES  request body limit
//	RK_CALLBACKS       enable callback_url, default true
//
// PORT, RATE_LIMIT and SHUTDOWN_TIMEOUT_SECONDS are read by pkg/server.
package api
