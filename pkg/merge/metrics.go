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

package merge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	opMerge   = "merge"
	opReplace = "replace"
	opCreate  = "create"

	outcomeApplied = "applied"
	outcomeNoop    = "noop"
	outcomeInvalid = "invalid"
)

var (
	mergeOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rk_merge_operations_total",
			Help: "Total number of merge engine operations by outcome",
		},
		[]string{"op", "outcome"},
	)

	mergeChangedFields = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rk_merge_changed_fields",
			Help:    "Number of fields whose value changed per applied operation",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
		},
		[]string{"op"},
	)
)

func observe(op string, before, after map[string]any, err error) {
	switch {
	case err != nil:
		mergeOperations.WithLabelValues(op, outcomeInvalid).Inc()
	default:
		changed := changedCount(before, after)
		outcome := outcomeApplied
		if changed == 0 {
			outcome = outcomeNoop
		}
		mergeOperations.WithLabelValues(op, outcome).Inc()
		mergeChangedFields.WithLabelValues(op).Observe(float64(changed))
	}
}
