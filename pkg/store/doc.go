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

// Package store persists records by key with compare-and-swap revisions.
//
// Every backend implements Store. Revisions are opaque strings that change on
// every write; Put and Delete accept the revision the caller last read and fail
// with CONFLICT when the stored revision has moved on. This lets the record
// service run read-modify-write cycles without holding locks across requests.
//
// Backends:
//
//   - Memory keeps entries in a map guarded by a sync.RWMutex.
//   - Journal is a Memory whose mutations are first appended to a file. Each
//     frame is a big-endian uint32 payload length, a CRC-32C of the payload
//     and the JSON-encoded mutation. Frames are fsynced before the mutation
//     is applied. On open the journal is replayed up to the first torn or
//     corrupt frame and the file is truncated there.
//   - configmap.Store (subpackage) keeps each collection in a Kubernetes ConfigMap.
//
// Keys must match KeyPattern.
package store
