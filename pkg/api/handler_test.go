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
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rkerrors "github.com/NVIDIA/recordkeeper/pkg/errors"
	"github.com/NVIDIA/recordkeeper/pkg/notify"
	"github.com/NVIDIA/recordkeeper/pkg/records"
	"github.com/NVIDIA/recordkeeper/pkg/server"
	"github.com/NVIDIA/recordkeeper/pkg/store"
)

func newTestServer(t *testing.T, svcOpts []records.Option, opts ...HandlerOption) *httptest.Server {
	t.Helper()
	svc := records.NewService(store.NewMemory(), nil, svcOpts...)
	n, err := svc.Seed(context.Background(), records.DemoSeeds(time.Date(2025, 2, 26, 1, 37, 22, 0, time.UTC)))
	require.NoError(t, err)
	require.Equal(t, 3, n)

	h := NewHandler(svc, opts...)
	s := server.New(server.WithHandler(h.Handlers()))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, target, contentType, body string, hdr map[string]string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, target, rd)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeDocument(t *testing.T, resp *http.Response) *records.Document {
	t.Helper()
	var doc records.Document
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	return &doc
}

func decodeError(t *testing.T, resp *http.Response) server.ErrorResponse {
	t.Helper()
	var e server.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e
}

func TestHandler_GetLily(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := do(t, http.MethodGet, ts.URL+"/v1/records/Lily", "", "", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := decodeDocument(t, resp)
	assert.Equal(t, "Record", doc.Kind.String())
	assert.Equal(t, "Lily", doc.Key)
	assert.Equal(t, `"`+doc.Revision+`"`, resp.Header.Get(HeaderETag))
	assert.EqualValues(t, 35, doc.Record["age"])
	assert.Equal(t, "Lily366@163.com", doc.Record["email"])
}

func TestHandler_GetUnknown(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := do(t, http.MethodGet, ts.URL+"/v1/records/Unknown", "", "", nil)

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	e := decodeError(t, resp)
	assert.Equal(t, string(rkerrors.ErrCodeNotFound), e.Code)
	assert.False(t, e.Retryable)
	assert.NotEmpty(t, e.RequestID)
}

func TestHandler_List(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := do(t, http.MethodGet, ts.URL+"/v1/records", "", "", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list records.DocumentList
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Equal(t, 3, list.Count)
	keys := make([]string, 0, len(list.Items))
	for _, d := range list.Items {
		keys = append(keys, d.Key)
	}
	assert.Equal(t, []string{"Join", "Lily", "Piter"}, keys)
}

func TestHandler_Schema(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := do(t, http.MethodGet, ts.URL+"/v1/schema", "", "", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "Schema", doc["kind"])
	assert.Equal(t, "item", doc["name"])
	assert.NotEmpty(t, doc["fields"])
}

func TestHandler_PatchPartialUpdate(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantChanged []string
		check       func(t *testing.T, rec map[string]any)
	}{
		{
			name:        "age only",
			contentType: MediaTypeJSON,
			body:        `{"age": 36}`,
			wantChanged: []string{"age"},
			check: func(t *testing.T, rec map[string]any) {
				assert.EqualValues(t, 36, rec["age"])
				assert.Equal(t, "Lily", rec["name"])
				assert.Equal(t, "Lily366@163.com", rec["email"])
			},
		},
		{
			name:        "explicit null",
			contentType: MediaTypeMergePatch,
			body:        `{"email": null}`,
			wantChanged: []string{"email"},
			check: func(t *testing.T, rec map[string]any) {
				v, ok := rec["email"]
				assert.True(t, ok)
				assert.Nil(t, v)
				assert.EqualValues(t, 35, rec["age"])
			},
		},
		{
			name:        "missing content type",
			body:        `{"tags": ["calm"]}`,
			wantChanged: []string{"tags"},
			check: func(t *testing.T, rec map[string]any) {
				assert.Equal(t, []any{"calm"}, rec["tags"])
			},
		},
		{
			name:        "json patch",
			contentType: MediaTypeJSONPatch,
			body:        `[{"op": "replace", "path": "/age", "value": 37}, {"op": "add", "path": "/tags", "value": ["x"]}]`,
			wantChanged: []string{"age", "tags"},
			check: func(t *testing.T, rec map[string]any) {
				assert.EqualValues(t, 37, rec["age"])
				assert.Equal(t, []any{"x"}, rec["tags"])
				assert.Equal(t, "Lily366@163.com", rec["email"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)

			resp := do(t, http.MethodPatch, ts.URL+"/v1/records/Lily", tt.contentType, tt.body, nil)

			require.Equal(t, http.StatusOK, resp.StatusCode)
			doc := decodeDocument(t, resp)
			assert.Equal(t, tt.wantChanged, doc.Changed.Sorted())
			tt.check(t, doc.Record)
		})
	}
}

func TestHandler_PatchErrors(t *testing.T) {
	tests := []struct {
		name        string
		key         string
		contentType string
		body        string
		wantStatus  int
		wantCode    rkerrors.ErrorCode
	}{
		{"unknown key", "Unknown", MediaTypeJSON, `{"age": 36}`, http.StatusNotFound, rkerrors.ErrCodeNotFound},
		{"wrong type", "Lily", MediaTypeJSON, `{"age": "old"}`, http.StatusUnprocessableEntity, rkerrors.ErrCodeValidation},
		{"unknown field", "Lily", MediaTypeJSON, `{"nickname": "L"}`, http.StatusUnprocessableEntity, rkerrors.ErrCodeValidation},
		{"not an object", "Lily", MediaTypeJSON, `[1, 2]`, http.StatusBadRequest, rkerrors.ErrCodeInvalidRequest},
		{"malformed", "Lily", MediaTypeJSON, `{"age":`, http.StatusBadRequest, rkerrors.ErrCodeInvalidRequest},
		{"empty body", "Lily", MediaTypeJSON, ``, http.StatusBadRequest, rkerrors.ErrCodeInvalidRequest},
		{"plain text", "Lily", "text/plain", `age=36`, http.StatusUnsupportedMediaType, rkerrors.ErrCodeUnsupportedMediaType},
		{"patch removes field", "Lily", MediaTypeJSONPatch, `[{"op": "remove", "path": "/email"}]`, http.StatusUnprocessableEntity, rkerrors.ErrCodeValidation},
		{"patch unknown op", "Lily", MediaTypeJSONPatch, `[{"op": "merge", "path": "/age"}]`, http.StatusBadRequest, rkerrors.ErrCodeInvalidRequest},
		{"patch whole document", "Lily", MediaTypeJSONPatch, `[{"op": "replace", "path": "", "value": {}}]`, http.StatusBadRequest, rkerrors.ErrCodeInvalidRequest},
		{"patch test fails", "Lily", MediaTypeJSONPatch, `[{"op": "test", "path": "/age", "value": 1}, {"op": "replace", "path": "/age", "value": 2}]`, http.StatusConflict, rkerrors.ErrCodeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)

			resp := do(t, http.MethodPatch, ts.URL+"/v1/records/"+tt.key, tt.contentType, tt.body, nil)

			require.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, string(tt.wantCode), decodeError(t, resp).Code)

			after := do(t, http.MethodGet, ts.URL+"/v1/records/Lily", "", "", nil)
			assert.EqualValues(t, 35, decodeDocument(t, after).Record["age"], "failed patch leaves the record unchanged")
		})
	}
}

func TestHandler_ValidationDetailsListFields(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := do(t, http.MethodPatch, ts.URL+"/v1/records/Lily", MediaTypeJSON, `{"age": -1, "email": "nope"}`, nil)

	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	e := decodeError(t, resp)
	fields, ok := e.Details[rkerrors.ContextKeyFields].([]any)
	require.True(t, ok, "details carry field errors: %v", e.Details)
	var names []string
	for _, f := range fields {
		names = append(names, f.(map[string]any)["field"].(string))
	}
	assert.Equal(t, []string{"age", "email"}, names)
}

func TestHandler_BodyLimit(t *testing.T) {
	ts := newTestServer(t, nil, WithMaxBodyBytes(16))

	resp := do(t, http.MethodPatch, ts.URL+"/v1/records/Lily", MediaTypeJSON,
		`{"email": "a-very-long-address@example.com"}`, nil)

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	e := decodeError(t, resp)
	assert.Equal(t, string(rkerrors.ErrCodeInvalidRequest), e.Code)
	assert.Contains(t, e.Message, "exceeds 16 bytes")
}

func TestHandler_IfMatch(t *testing.T) {
	ts := newTestServer(t, nil)
	target := ts.URL + "/v1/records/Lily"
	etag := do(t, http.MethodGet, target, "", "", nil).Header.Get(HeaderETag)
	require.NotEmpty(t, etag)

	stale := do(t, http.MethodPatch, target, MediaTypeJSON, `{"age": 36}`, map[string]string{HeaderIfMatch: `"stale"`})
	require.Equal(t, http.StatusPreconditionFailed, stale.StatusCode)
	assert.Equal(t, string(rkerrors.ErrCodePreconditionFailed), decodeError(t, stale).Code)

	ok := do(t, http.MethodPatch, target, MediaTypeJSON, `{"age": 36}`, map[string]string{HeaderIfMatch: etag})
	require.Equal(t, http.StatusOK, ok.StatusCode)
	assert.NotEqual(t, etag, ok.Header.Get(HeaderETag))

	wildcard := do(t, http.MethodPatch, target, MediaTypeJSON, `{"age": 37}`, map[string]string{HeaderIfMatch: "*"})
	assert.Equal(t, http.StatusOK, wildcard.StatusCode)
}

func TestHandler_CreateReplaceDelete(t *testing.T) {
	ts := newTestServer(t, nil)
	target := ts.URL + "/v1/records/Ann"

	created := do(t, http.MethodPost, target, MediaTypeJSON, `{"name": "Ann", "age": 20, "tags": ["new"]}`, nil)
	require.Equal(t, http.StatusCreated, created.StatusCode)
	assert.Equal(t, RecordsPath+"/Ann", created.Header.Get("Location"))

	again := do(t, http.MethodPost, target, MediaTypeJSON, `{"name": "Ann", "age": 20}`, nil)
	require.Equal(t, http.StatusConflict, again.StatusCode)
	assert.True(t, decodeError(t, again).Retryable)

	replaced := do(t, http.MethodPut, target, MediaTypeJSON, `{"name": "Ann", "age": 21}`, nil)
	require.Equal(t, http.StatusOK, replaced.StatusCode)
	doc := decodeDocument(t, replaced)
	assert.Nil(t, doc.Record["tags"], "replace resets omitted fields")
	assert.EqualValues(t, 21, doc.Record["age"])

	deleted := do(t, http.MethodDelete, target, "", "", nil)
	require.Equal(t, http.StatusNoContent, deleted.StatusCode)

	gone := do(t, http.MethodGet, target, "", "", nil)
	assert.Equal(t, http.StatusNotFound, gone.StatusCode)
}

func TestHandler_ReplaceRequiresFields(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := do(t, http.MethodPut, ts.URL+"/v1/records/Lily", MediaTypeJSON, `{"age": 36}`, nil)

	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := do(t, http.MethodPost, ts.URL+"/v1/records", MediaTypeJSON, `{}`, nil)

	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, string(rkerrors.ErrCodeMethodNotAllowed), decodeError(t, resp).Code)
}

func TestHandler_UnknownRoute(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := do(t, http.MethodGet, ts.URL+"/v1/nothing", "", "", nil)

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_Callback(t *testing.T) {
	var got notify.Event
	cb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/records/Lily", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer cb.Close()

	ts := newTestServer(t, []records.Option{records.WithNotifier(notify.New())})
	target := ts.URL + "/v1/records/Lily?" + QueryCallbackURL + "=" + url.QueryEscape(cb.URL)

	resp := do(t, http.MethodPatch, target, MediaTypeJSON, `{"age": 36}`, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "200", resp.Header.Get(HeaderCallbackStatus))
	assert.Equal(t, "true", resp.Header.Get(HeaderCallbackAcknowledged))
	assert.Equal(t, "Lily", got.Key)
}

func TestHandler_InvalidCallbackURL(t *testing.T) {
	ts := newTestServer(t, []records.Option{records.WithNotifier(notify.New())})
	target := ts.URL + "/v1/records/Lily?" + QueryCallbackURL + "=" + url.QueryEscape("ftp://example.com")

	resp := do(t, http.MethodPatch, target, MediaTypeJSON, `{"age": 36}`, nil)

	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	after := do(t, http.MethodGet, ts.URL+"/v1/records/Lily", "", "", nil)
	assert.EqualValues(t, 35, decodeDocument(t, after).Record["age"])
}

func TestParseIfMatch(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"*", "*"},
		{`"abc"`, "abc"},
		{`W/"abc"`, "abc"},
		{`"abc", "def"`, "abc"},
		{" abc ", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseIfMatch(tt.in))
		})
	}
}
