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

// Package configmap stores a record collection in a Kubernetes ConfigMap.
//
// Each record is one data key, "<key>.json", holding a JSON document with the
// record, its revision and its update time. Record revisions come from a
// generation counter kept in the ConfigMap's annotations and are prefixed
// with the ConfigMap UID, so a recreated collection never reuses a revision.
//
// Writes read the ConfigMap, check the caller's record revision and update
// the ConfigMap at the resourceVersion they read. When the API server rejects
// the update because another writer got there first, the cycle is repeated
// with client-go's retry.RetryOnConflict. A record revision mismatch is never
// retried here; it surfaces as CONFLICT for the caller to handle.
//
// The ConfigMap is created on the first write and deleted, with UID and
// resourceVersion preconditions, when its last record is removed.
package configmap
