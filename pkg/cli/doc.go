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

// Package cli implements rkctl, the command-line client of recordkeeper.
//
// # Commands
//
//	rkctl get KEY                     show one record
//	rkctl list                        list all records
//	rkctl create KEY --set k=v ...    create a record
//	rkctl patch KEY --set k=v ...     update only the named fields
//	rkctl replace KEY --file rec.yaml replace a record
//	rkctl delete KEY                  delete a record
//	rkctl diff KEY --set k=v ...      preview a patch without writing
//	rkctl diff FILE FILE              diff two record files
//	rkctl merge --stored rec.yaml ... merge offline, no server needed
//	rkctl schema show|validate        inspect schemas, check record files
//
// --set values are parsed as JSON when possible: age=36 is a number,
// email=null clears the field and name=Lily is a string. Fields not named
// by a patch keep their stored values.
//
// # Global Flags
//
//	--server, -s   server URL (env RK_SERVER, default http://localhost:8080)
//	--log-level    log level (env LOG_LEVEL, default warn)
//	--no-color     disable colored diff output (env NO_COLOR)
//
// Output commands accept --format json|yaml|table and --output, which takes
// a file path, "-" for stdout, or a ConfigMap URI (cm://namespace/name).
//
// # Exit Codes
//
//	0  Success
//	1  General error (invalid arguments, request failure)
//	2  Interrupted
//
// Version information is embedded at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/NVIDIA/recordkeeper/pkg/cli.version=1.0.0'"
package cli
