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

// Package serializer reads and writes structured data in the formats the
// recordkeeper tools speak.
//
// Three output formats are supported:
//   - JSON: indented, machine readable
//   - YAML: human readable (gopkg.in/yaml.v3)
//   - Table: aligned columns for terminals; values implementing Tabular
//     choose their own columns, anything else is flattened into dotted keys
//
// Writing:
//
//	w := serializer.NewFileWriterOrStdout(serializer.FormatYAML, path)
//	defer w.Close()
//	if err := w.Serialize(ctx, entries); err != nil {
//		return err
//	}
//
// A path of the form cm://namespace/name writes to a Kubernetes ConfigMap
// through Server-Side Apply instead of a file.
//
// Reading:
//
//	doc, err := serializer.FromFile[map[string]any]("stored.yaml")
//
// FromFile accepts local paths, http(s) URLs and "-" for stdin. The format
// is picked from the extension.
//
// For HTTP responses:
//
//	serializer.RespondJSON(w, http.StatusOK, data)
package serializer
