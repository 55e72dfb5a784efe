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

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/recordkeeper/pkg/api"
	"github.com/NVIDIA/recordkeeper/pkg/record"
	"github.com/NVIDIA/recordkeeper/pkg/records"
	"github.com/NVIDIA/recordkeeper/pkg/server"
	"github.com/NVIDIA/recordkeeper/pkg/store"
)

func newTestServer(t *testing.T) string {
	t.Helper()
	svc := records.NewService(store.NewMemory(), nil)
	_, err := svc.Seed(context.Background(), records.DemoSeeds(time.Date(2025, 2, 26, 1, 37, 22, 0, time.UTC)))
	require.NoError(t, err)
	ts := httptest.NewServer(server.New(server.WithHandler(api.NewHandler(svc).Handlers())).Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

// run executes rkctl with args and returns what it printed to its writer.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.Writer = &out
	root.ErrWriter = &out
	err := root.Run(context.Background(), append([]string{name, "--no-color"}, args...))
	return out.String(), err
}

func readDocument(t *testing.T, path string) records.Document {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc records.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestPatchCommandKeepsOmittedFields(t *testing.T) {
	srv := newTestServer(t)
	out := filepath.Join(t.TempDir(), "lily.json")

	_, err := run(t, "--server", srv, "patch", "--set", "age=36", "--output", out, "Lily")
	require.NoError(t, err)

	doc := readDocument(t, out)
	assert.EqualValues(t, 36, doc.Record["age"])
	assert.Equal(t, "Lily366@163.com", doc.Record["email"])
	assert.Equal(t, []string{"age"}, doc.Changed.Sorted())
}

func TestPatchCommandNullClears(t *testing.T) {
	srv := newTestServer(t)
	out := filepath.Join(t.TempDir(), "lily.json")

	_, err := run(t, "--server", srv, "patch", "--set", "email=null", "--output", out, "Lily")
	require.NoError(t, err)

	doc := readDocument(t, out)
	v, ok := doc.Record["email"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestPatchCommandJSONPatch(t *testing.T) {
	srv := newTestServer(t)
	dir := t.TempDir()
	ops := filepath.Join(dir, "ops.json")
	require.NoError(t, os.WriteFile(ops, []byte(`[{"op": "add", "path": "/tags/-", "value": "calm"}]`), 0o600))
	out := filepath.Join(dir, "piter.json")

	_, err := run(t, "--server", srv, "patch", "--json-patch", ops, "--output", out, "Piter")
	require.NoError(t, err)

	doc := readDocument(t, out)
	assert.Equal(t, []any{"bright", "happy", "calm"}, doc.Record["tags"])
}

func TestPatchCommandValidationError(t *testing.T) {
	srv := newTestServer(t)

	_, err := run(t, "--server", srv, "patch", "--set", "age=-1", "Lily")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "age")
}

func TestGetCommandRequiresKey(t *testing.T) {
	_, err := run(t, "get")
	assert.Error(t, err)
}

func TestCreateListDelete(t *testing.T) {
	srv := newTestServer(t)
	dir := t.TempDir()

	_, err := run(t, "--server", srv, "create", "--set", "name=Ann", "--set", "age=20", "Ann")
	require.NoError(t, err)

	listOut := filepath.Join(dir, "list.json")
	_, err = run(t, "--server", srv, "list", "--output", listOut)
	require.NoError(t, err)
	data, err := os.ReadFile(listOut)
	require.NoError(t, err)
	var list records.DocumentList
	require.NoError(t, json.Unmarshal(data, &list))
	assert.Equal(t, 4, list.Count)

	out, err := run(t, "--server", srv, "delete", "Ann")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted Ann")

	_, err = run(t, "--server", srv, "get", "Ann")
	assert.Error(t, err)
}

func TestListCommandTable(t *testing.T) {
	srv := newTestServer(t)
	out := filepath.Join(t.TempDir(), "list.txt")

	_, err := run(t, "--server", srv, "list", "--format", "table", "--output", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "KEY")
	for _, key := range []string{"Join", "Lily", "Piter"} {
		assert.Contains(t, text, key)
	}
}

func TestDiffCommand(t *testing.T) {
	srv := newTestServer(t)

	out, err := run(t, "--server", srv, "diff", "--set", "age=36", "Lily")
	require.NoError(t, err)

	assert.Contains(t, out, `-   "age": 35,`)
	assert.Contains(t, out, `+   "age": 36,`)
	assert.Contains(t, out, `"email": "Lily366@163.com"`)

	after, err := run(t, "--server", srv, "diff", "--set", "age=35", "Lily")
	require.NoError(t, err)
	assert.Equal(t, "no changes\n", after, "diff does not write")
}

func TestMergeCommandOffline(t *testing.T) {
	dir := t.TempDir()
	stored := filepath.Join(dir, "lily.yaml")
	require.NoError(t, os.WriteFile(stored, []byte("name: Lily\nage: 35\nemail: Lily366@163.com\n"), 0o600))
	out := filepath.Join(dir, "merged.json")

	_, err := run(t, "merge", "--stored", stored, "--set", "age=36", "--output", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var merged map[string]any
	require.NoError(t, json.Unmarshal(data, &merged))
	assert.EqualValues(t, 36, merged["age"])
	assert.Equal(t, "Lily366@163.com", merged["email"])
	assert.Equal(t, "Lily", merged["name"])
}

func TestMergeCommandRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	stored := filepath.Join(dir, "lily.json")
	require.NoError(t, os.WriteFile(stored, []byte(`{"name": "Lily", "age": 35}`), 0o600))

	_, err := run(t, "merge", "--stored", stored, "--set", "nickname=L")

	assert.Error(t, err)
}

func TestSchemaValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(good, []byte("name: Ann\nage: 20\n"), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte(`{"name": "", "age": 200}`), 0o600))

	out, err := run(t, "schema", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, good+": valid")

	out, err = run(t, "schema", "validate", good, bad)
	require.Error(t, err)
	assert.Contains(t, out, bad+": ")
	assert.Contains(t, err.Error(), "1 of 2")
}

func TestSchemaShowLocal(t *testing.T) {
	out := filepath.Join(t.TempDir(), "schema.yaml")

	_, err := run(t, "schema", "show", "--schema", "item", "--format", "yaml", "--output", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kind: Schema")
	assert.Contains(t, string(data), "name: item")
}

func TestRenderDiff(t *testing.T) {
	color.NoColor = true
	before := record.Record{"name": "Lily", "age": int64(35)}
	after := record.Record{"name": "Lily", "age": int64(36)}

	var buf bytes.Buffer
	require.NoError(t, renderDiff(&buf, before, after))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Contains(t, lines, `-   "age": 35,`)
	assert.Contains(t, lines, `+   "age": 36,`)
	assert.Contains(t, lines, `    "name": "Lily"`)
}

func TestDiffCommandFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.json")
	require.NoError(t, os.WriteFile(a, []byte("name: Lily\nage: 35\n"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte(`{"name": "Lily", "age": 36}`), 0o600))

	out, err := run(t, "diff", a, b)
	require.NoError(t, err)

	assert.Contains(t, out, `-   "age": 35,`)
	assert.Contains(t, out, `+   "age": 36,`)
}
