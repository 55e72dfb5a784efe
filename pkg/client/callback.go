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

package client

import (
	"net/http"
	"strconv"

	"github.com/NVIDIA/recordkeeper/pkg/notify"
)

const (
	headerCallbackStatus       = "X-Callback-Status"
	headerCallbackAcknowledged = "X-Callback-Acknowledged"
)

// deliveryFromHeaders rebuilds the callback outcome reported in response
// headers. It returns nil when no callback was requested.
func deliveryFromHeaders(h http.Header) *notify.Delivery {
	status := h.Get(headerCallbackStatus)
	if status == "" {
		return nil
	}
	d := &notify.Delivery{}
	if n, err := strconv.Atoi(status); err == nil {
		d.Status = n
	} else {
		d.Error = "callback " + status
	}
	d.Acknowledged, _ = strconv.ParseBool(h.Get(headerCallbackAcknowledged))
	return d
}
