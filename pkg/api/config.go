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
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/NVIDIA/recordkeeper/pkg/defaults"
	"github.com/NVIDIA/recordkeeper/pkg/k8s/client"
	"github.com/NVIDIA/recordkeeper/pkg/store"
	"github.com/NVIDIA/recordkeeper/pkg/store/configmap"
)

// Environment variables read by LoadConfig.
const (
	EnvStore        = "RK_STORE"
	EnvJournalPath  = "RK_JOURNAL_PATH"
	EnvConfigMap    = "RK_CONFIGMAP"
	EnvSchema       = "RK_SCHEMA"
	EnvSeed         = "RK_SEED"
	EnvMaxBodyBytes = "RK_MAX_BODY_BYTES"
	EnvCallbacks    = "RK_CALLBACKS"
)

// Store backends.
const (
	StoreMemory    = "memory"
	StoreJournal   = "journal"
	StoreConfigMap = "configmap"
)

const defaultJournalPath = "recordkeeper.journal"

// Config selects the backend and behavior of the record API.
type Config struct {
	// Store is one of StoreMemory, StoreJournal or StoreConfigMap.
	Store string
	// JournalPath is the journal file used by StoreJournal.
	JournalPath string
	// ConfigMap is the [namespace/]name used by StoreConfigMap. A bare name
	// lives in the pod namespace.
	ConfigMap string
	// Schema is a builtin schema name or a schema file path.
	Schema string
	// Seed creates the demo records on startup when they are missing.
	Seed bool
	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64
	// Callbacks enables callback_url notifications.
	Callbacks bool
}

// LoadConfig reads Config from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Store:        StoreMemory,
		JournalPath:  defaultJournalPath,
		ConfigMap:    "recordkeeper",
		MaxBodyBytes: defaults.MaxRequestBodyBytes,
		Callbacks:    true,
	}

	if v := strings.TrimSpace(os.Getenv(EnvStore)); v != "" {
		cfg.Store = strings.ToLower(v)
	}
	if v := os.Getenv(EnvJournalPath); v != "" {
		cfg.JournalPath = v
	}
	if v := os.Getenv(EnvConfigMap); v != "" {
		cfg.ConfigMap = v
	}
	cfg.Schema = os.Getenv(EnvSchema)

	var err error
	if cfg.Seed, err = envBool(EnvSeed, false); err != nil {
		return nil, err
	}
	if cfg.Callbacks, err = envBool(EnvCallbacks, true); err != nil {
		return nil, err
	}
	if v := os.Getenv(EnvMaxBodyBytes); v != "" {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil || n <= 0 {
			return nil, fmt.Errorf("invalid %s %q: must be a positive integer", EnvMaxBodyBytes, v)
		}
		cfg.MaxBodyBytes = n
	}

	switch cfg.Store {
	case StoreMemory, StoreJournal, StoreConfigMap:
	default:
		return nil, fmt.Errorf("invalid %s %q: must be one of %s, %s, %s",
			EnvStore, cfg.Store, StoreMemory, StoreJournal, StoreConfigMap)
	}

	return cfg, nil
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

// OpenStore opens the backend named by cfg.
func OpenStore(_ context.Context, cfg *Config) (store.Store, error) {
	switch cfg.Store {
	case StoreJournal:
		j, err := store.OpenJournal(cfg.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		slog.Info("using journal store", "path", j.Path())
		return j, nil
	case StoreConfigMap:
		namespace, name, err := configmap.ParseRef(cfg.ConfigMap)
		if err != nil {
			return nil, err
		}
		kc, _, err := client.GetKubeClient()
		if err != nil {
			return nil, fmt.Errorf("failed to get kubernetes client: %w", err)
		}
		s := configmap.New(kc, namespace, name)
		slog.Info("using configmap store", "ref", s.Ref())
		return s, nil
	default:
		slog.Info("using memory store")
		return store.NewMemory(), nil
	}
}
