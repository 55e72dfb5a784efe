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

// Package records implements the record operations exposed by the API.
//
// A Service composes a store.Store, a merge.Engine and an optional
// notify.Notifier. Updates are read-modify-write cycles:
//
//  1. Get the stored entry (NOT_FOUND when absent).
//  2. When the caller supplied an If-Match revision, compare it with the
//     stored revision (PRECONDITION_FAILED on mismatch).
//  3. Merge (Patch) or replace (Replace) with the engine.
//  4. Put with the revision read in step 1.
//
// A CONFLICT from step 4 means another writer committed in between. Without
// an If-Match revision the cycle is retried up to the configured number of
// attempts; with one, the conflict is reported as PRECONDITION_FAILED since
// the caller's view is stale.
//
// When Options.CallbackURL is set, a change event is delivered after the
// write commits and the delivery outcome is returned alongside the entry.
package records
