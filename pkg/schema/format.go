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

package schema

import (
	"net/mail"
	"net/url"
	"time"
)

// checkFormat returns a failure reason, or "" when s satisfies format.
func checkFormat(format, s string) string {
	switch format {
	case FormatEmail:
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s {
			return "must be a valid email address"
		}
	case FormatURI:
		u, err := url.Parse(s)
		if err != nil || !u.IsAbs() || (u.Host == "" && u.Opaque == "") {
			return "must be an absolute URI"
		}
	}
	return ""
}

func checkDatetime(s string) string {
	if _, err := time.Parse(time.RFC3339Nano, s); err != nil {
		return "must be an RFC 3339 timestamp"
	}
	return ""
}
