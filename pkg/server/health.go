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

package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/NVIDIA/recordkeeper/pkg/defaults"
	"github.com/NVIDIA/recordkeeper/pkg/serializer"
)

const (
	statusHealthy  = "healthy"
	statusReady    = "ready"
	statusNotReady = "not_ready"
)

// HealthResponse is the body of /health and /ready.
type HealthResponse struct {
	Status    string            `json:"status" yaml:"status"`
	Version   string            `json:"version,omitempty" yaml:"version,omitempty"`
	Timestamp time.Time         `json:"timestamp" yaml:"timestamp"`
	Reason    string            `json:"reason,omitempty" yaml:"reason,omitempty"`
	Checks    map[string]string `json:"checks,omitempty" yaml:"checks,omitempty"`
}

type readinessCheck struct {
	name  string
	check func(context.Context) error
}

// handleHealth reports liveness only. It never consults dependencies.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	serializer.RespondJSON(w, http.StatusOK, s.healthResponse(statusHealthy))
}

// handleReady reports 503 until the server is started and while any
// readiness check fails.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()

	if !ready {
		resp := s.healthResponse(statusNotReady)
		resp.Reason = "service is initializing"
		serializer.RespondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	if failed := s.runChecks(r.Context()); len(failed) > 0 {
		resp := s.healthResponse(statusNotReady)
		resp.Reason = "dependency check failed"
		resp.Checks = failed
		serializer.RespondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	serializer.RespondJSON(w, http.StatusOK, s.healthResponse(statusReady))
}

// runChecks returns the error text of every failing check by name.
func (s *Server) runChecks(ctx context.Context) map[string]string {
	if len(s.checks) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaults.ReadinessCheckTimeout)
	defer cancel()

	var failed map[string]string
	for _, c := range s.checks {
		if err := c.check(ctx); err != nil {
			if failed == nil {
				failed = make(map[string]string)
			}
			failed[c.name] = err.Error()
			slog.Warn("readiness check failed", "check", c.name, "error", err)
		}
	}
	return failed
}

func (s *Server) healthResponse(status string) HealthResponse {
	return HealthResponse{
		Status:    status,
		Version:   s.config.Version,
		Timestamp: time.Now().UTC(),
	}
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet {
		return true
	}
	w.Header().Set("Allow", http.MethodGet)
	WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed,
		"Method not allowed", false, nil)
	return false
}
