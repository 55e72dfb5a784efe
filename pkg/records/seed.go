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

package records

import (
	"sort"
	"time"

	"github.com/NVIDIA/recordkeeper/pkg/record"
)

// DemoSeeds returns the sample records served when seeding is enabled.
// now stamps the create_at field of the Join record.
func DemoSeeds(now time.Time) map[string]record.Record {
	return map[string]record.Record{
		"Lily": record.MustNormalize(map[string]any{
			"name":  "Lily",
			"age":   35,
			"email": "Lily366@163.com",
		}),
		"Piter": record.MustNormalize(map[string]any{
			"name": "Piter",
			"age":  32,
			"tags": []string{"bright", "happy"},
		}),
		"Join": record.MustNormalize(map[string]any{
			"name":      "Join",
			"age":       40,
			"create_at": now,
		}),
	}
}

func sortedKeys(m map[string]record.Record) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
