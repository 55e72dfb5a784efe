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

package defaults

import "time"

// Handler timeouts for HTTP request processing.
const (
	// RecordHandlerTimeout is the timeout for a single record request,
	// including any synchronous callback delivery.
	RecordHandlerTimeout = 25 * time.Second

	// MaxRequestBodyBytes caps record payloads accepted by the API.
	MaxRequestBodyBytes int64 = 1 << 20
)

// Server timeouts for HTTP server configuration.
const (
	// ServerReadTimeout is the maximum duration for reading request headers.
	ServerReadTimeout = 10 * time.Second

	// ServerReadHeaderTimeout prevents slow header attacks.
	ServerReadHeaderTimeout = 5 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	ServerWriteTimeout = 30 * time.Second

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second

	// ReadinessCheckTimeout bounds all readiness checks of one /ready probe.
	ReadinessCheckTimeout = 3 * time.Second
)

// Store settings for record persistence.
const (
	// StoreMaxWriteAttempts bounds read-modify-write retries after a CAS conflict.
	StoreMaxWriteAttempts = 3

	// ConfigMapRequestTimeout is the timeout for a single ConfigMap API call.
	ConfigMapRequestTimeout = 10 * time.Second
)

// Callback settings for change notifications.
const (
	// CallbackTimeout bounds one delivery attempt.
	CallbackTimeout = 5 * time.Second

	// CallbackMaxAttempts is the number of delivery attempts for retryable failures.
	CallbackMaxAttempts = 3

	// CallbackInitialBackoff is the delay before the second attempt.
	CallbackInitialBackoff = 200 * time.Millisecond

	// CallbackBackoffFactor multiplies the delay after each failed attempt.
	CallbackBackoffFactor = 2.0

	// CallbackRateLimit is the sustained outbound callbacks per second.
	CallbackRateLimit = 50

	// CallbackRateBurst is the outbound callback burst size.
	CallbackRateBurst = 100
)

// HTTP client timeouts for outbound requests.
const (
	// HTTPClientTimeout is the default total timeout for HTTP requests.
	HTTPClientTimeout = 30 * time.Second

	// HTTPConnectTimeout is the timeout for establishing connections.
	HTTPConnectTimeout = 5 * time.Second

	// HTTPTLSHandshakeTimeout is the timeout for TLS handshake.
	HTTPTLSHandshakeTimeout = 5 * time.Second

	// HTTPResponseHeaderTimeout is the timeout for reading response headers.
	HTTPResponseHeaderTimeout = 10 * time.Second

	// HTTPIdleConnTimeout is the timeout for idle connections in the pool.
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPKeepAlive is the keep-alive duration for connections.
	HTTPKeepAlive = 30 * time.Second

	// HTTPExpectContinueTimeout is the timeout for Expect: 100-continue.
	HTTPExpectContinueTimeout = 1 * time.Second
)
