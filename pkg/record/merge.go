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

package record

// Merge returns a copy of stored in which every field of p's presence set is
// replaced by the payload value. Fields outside the presence set keep their
// stored value even when the payload carries a different one. Present nested
// records and lists replace the stored value wholesale.
//
// Merge does not validate; callers that need schema checks use merge.Engine.
func Merge(stored Record, p Payload) Record {
	out := stored.Clone()
	if out == nil {
		out = make(Record, p.Presence.Len())
	}
	for _, field := range p.Presence.Sorted() {
		out[field] = CloneValue(p.Values[field])
	}
	return out
}
