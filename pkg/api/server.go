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

package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/NVIDIA/recordkeeper/pkg/logging"
	"github.com/NVIDIA/recordkeeper/pkg/merge"
	"github.com/NVIDIA/recordkeeper/pkg/notify"
	"github.com/NVIDIA/recordkeeper/pkg/records"
	"github.com/NVIDIA/recordkeeper/pkg/schema"
	"github.com/NVIDIA/recordkeeper/pkg/server"
)

const (
	name           = "rkd"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags to reflect actual version info
	// e.g., -X "github.com/NVIDIA/recordkeeper/pkg/api.version=1.0.0"
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Serve starts the record API server and blocks until shutdown.
// It configures logging, opens the store, seeds it when asked and delegates
// the server lifecycle to pkg/server.
func Serve() error {
	ctx := context.Background()

	logging.SetDefaultStructuredLogger(name, version)
	slog.Info("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"date", date,
	)

	cfg, err := LoadConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		return err
	}

	svc, closeStore, err := NewService(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize record service", "error", err)
		return err
	}
	defer func() {
		if cerr := closeStore(); cerr != nil {
			slog.Warn("failed to close store", "error", cerr)
		}
	}()

	h := NewHandler(svc, WithMaxBodyBytes(cfg.MaxBodyBytes))

	s := server.New(
		server.WithName(name),
		server.WithVersion(version),
		server.WithHandler(h.Handlers()),
		server.WithReadinessCheck("store", svc.Check),
	)

	if err := s.Run(ctx); err != nil {
		slog.Error("server exited with error", "error", err)
		return err
	}

	return nil
}

// NewService wires the store, schema and notifier named by cfg into a
// records.Service. The returned func closes the store.
func NewService(ctx context.Context, cfg *Config) (*records.Service, func() error, error) {
	sch, err := schema.Resolve(cfg.Schema)
	if err != nil {
		return nil, nil, err
	}

	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var opts []records.Option
	if cfg.Callbacks {
		opts = append(opts, records.WithNotifier(notify.New()))
	}
	svc := records.NewService(st, merge.New(sch), opts...)

	if cfg.Seed {
		n, serr := svc.Seed(ctx, records.DemoSeeds(time.Now().UTC()))
		if serr != nil {
			_ = st.Close()
			return nil, nil, serr
		}
		slog.Info("seeded records", "created", n)
	}

	slog.Info("record service ready", "schema", sch.Name, "store", cfg.Store)
	return svc, st.Close, nil
}
