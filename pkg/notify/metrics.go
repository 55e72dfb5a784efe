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

package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeAcknowledged = "acknowledged"
	outcomeDelivered    = "delivered"
	outcomeRejected     = "rejected"
	outcomeFailed       = "failed"
)

var (
	callbackDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rk_callback_deliveries_total",
			Help: "Total number of callback deliveries by outcome",
		},
		[]string{"outcome"},
	)

	callbackAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rk_callback_attempts_total",
			Help: "Total number of callback HTTP attempts, including retries",
		},
	)

	callbackDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rk_callback_delivery_duration_seconds",
			Help:    "Time spent delivering a callback, including retries",
			Buckets: prometheus.DefBuckets,
		},
	)
)
