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

// Package logging configures structured logging for recordkeeper binaries.
//
// Both rkd and rkctl log through log/slog. This package installs a JSON
// handler writing to stderr, tags every entry with the module name and build
// version, and derives the level from the LOG_LEVEL environment variable or an
// explicit flag.
//
// # Log Levels
//
// Supported log levels (case-insensitive):
//   - DEBUG: Detailed diagnostic information with source location
//   - INFO: General informational messages (default)
//   - WARN/WARNING: Warning messages for potentially problematic situations
//   - ERROR: Error messages for failures requiring attention
//
// # Usage
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("rkd", version)
//	    slog.Info("record patched", "key", "Lily", "changed", []string{"age"})
//	}
//
// Explicit level from a CLI flag:
//
//	logging.SetDefaultStructuredLoggerWithLevel("rkctl", version, "warn")
//
// Bridging code that still expects a *log.Logger (http.Server.ErrorLog):
//
//	srv.ErrorLog = logging.NewLogLogger(slog.LevelError, false)
//
// # Output Format
//
//	{
//	    "time": "2025-01-15T10:30:00.123Z",
//	    "level": "INFO",
//	    "msg": "record patched",
//	    "module": "rkd",
//	    "version": "v1.0.0",
//	    "key": "Lily"
//	}
//
// Debug logs include a "source" object with function, file and line.
package logging
