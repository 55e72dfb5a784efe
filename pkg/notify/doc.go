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

// Package notify delivers record change events to caller supplied callback URLs.
//
// A caller that passes callback_url with a write asks to be told about the
// result. After the write commits, the record service builds an Event and the
// Notifier POSTs it as JSON to "<callback_url>/records/<key>":
//
//	{
//	  "kind": "RecordEvent",
//	  "apiVersion": "recordkeeper.nvidia.com/v1",
//	  "id": "5b0c...",
//	  "type": "record.updated",
//	  "key": "Lily",
//	  "revision": "7",
//	  "changed": ["age"],
//	  "patch": {"age": 36},
//	  "record": {"name": "Lily", "age": 36, ...},
//	  "timestamp": "2025-02-26T01:37:22Z",
//	  "description": "record Lily updated: age"
//	}
//
// patch is an RFC 7386 merge patch from the previous record to the new one.
//
// The receiver acknowledges with {"ok": true}. Transport errors, 429 and 5xx
// responses are retried with exponential backoff; other responses are final.
// Outbound requests share a token bucket rate limiter. Delivery outcomes are
// reported in a Delivery value and never undo the write that triggered them.
package notify
