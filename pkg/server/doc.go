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

// Package server provides the HTTP server shared by recordkeeper binaries.
//
// The server owns the listener lifecycle and the cross-cutting concerns of
// every endpoint: Prometheus instrumentation, API version negotiation,
// request IDs, panic recovery, token bucket rate limiting and request logging.
// Domain routes are supplied by the caller as handlers.
//
// # Usage
//
//	s := server.New(
//	    server.WithName("rkd"),
//	    server.WithVersion(version),
//	    server.WithHandler(map[string]http.HandlerFunc{
//	        "/v1/": router.ServeHTTP,
//	    }),
//	)
//	if err := s.Run(ctx); err != nil {
//	    return err
//	}
//
// # System Endpoints
//
// GET /health - liveness probe, always 200 once the process serves traffic.
//
// GET /ready - readiness probe, 503 until the listener is up and again
// during shutdown.
//
// GET /metrics - Prometheus metrics.
//
// # Errors
//
// Failures are rendered as:
//
//	{
//	  "code": "VALIDATION_FAILED",
//	  "message": "validation failed: age: must be <= 150",
//	  "details": {"fields": [{"field": "age", "reason": "must be <= 150"}]},
//	  "requestId": "550e8400-e29b-41d4-a716-446655440000",
//	  "timestamp": "2025-01-01T00:00:00Z",
//	  "retryable": false
//	}
//
// WriteErrorFromErr maps error codes from pkg/errors to HTTP status codes.
//
// # Configuration
//
// Environment variables read by NewConfig:
//
//	PORT                      listen port (default 8080)
//	RATE_LIMIT                requests per second (default 100)
//	SHUTDOWN_TIMEOUT_SECONDS  graceful shutdown budget (default 30)
package server
