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

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	rkerrors "github.com/NVIDIA/recordkeeper/pkg/errors"
	"github.com/NVIDIA/recordkeeper/pkg/header"
	"github.com/NVIDIA/recordkeeper/pkg/record"
	"github.com/NVIDIA/recordkeeper/pkg/records"
	"github.com/NVIDIA/recordkeeper/pkg/schema"
	"github.com/NVIDIA/recordkeeper/pkg/serializer"
	"github.com/NVIDIA/recordkeeper/pkg/server"
)

const (
	// DefaultUserAgent identifies the Go client.
	DefaultUserAgent = "recordkeeper-client/1.0"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 16 << 20
)

// Media types understood by the record API.
const (
	MediaTypeJSON       = "application/json"
	MediaTypeMergePatch = "application/merge-patch+json"
	MediaTypeJSONPatch  = "application/json-patch+json"
)

// Client talks to a recordkeeper server.
type Client struct {
	base      *url.URL
	http      *http.Client
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.http.Timeout = d
	}
}

// New returns a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, rkerrors.New(rkerrors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid server URL %q: must be an absolute http or https URL", baseURL))
	}
	c := &Client{
		base: u,
		http: &http.Client{
			Transport: serializer.NewTransport(),
			Timeout:   DefaultTimeout,
		},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the record stored under key.
func (c *Client) Get(ctx context.Context, key string) (*records.Document, error) {
	var doc records.Document
	if _, err := c.do(ctx, http.MethodGet, c.recordPath(key), "", nil, records.Options{}, &doc); err != nil {
		return nil, err
	}
	return &doc, normalize(&doc)
}

// List returns every record ordered by key.
func (c *Client) List(ctx context.Context) (*records.DocumentList, error) {
	var list records.DocumentList
	if _, err := c.do(ctx, http.MethodGet, c.base.JoinPath("v1", "records"), "", nil, records.Options{}, &list); err != nil {
		return nil, err
	}
	for _, d := range list.Items {
		if err := normalize(d); err != nil {
			return nil, err
		}
	}
	return &list, nil
}

// Schema returns the schema the server validates against.
func (c *Client) Schema(ctx context.Context) (*schema.Schema, error) {
	var doc struct {
		header.Header
		*schema.Schema
	}
	doc.Schema = &schema.Schema{}
	if _, err := c.do(ctx, http.MethodGet, c.base.JoinPath("v1", "schema"), "", nil, records.Options{}, &doc); err != nil {
		return nil, err
	}
	if err := doc.Schema.Compile(); err != nil {
		return nil, err
	}
	return doc.Schema, nil
}

// Create stores a new record under key.
func (c *Client) Create(ctx context.Context, key string, rec record.Record, opts records.Options) (*records.Document, error) {
	return c.write(ctx, http.MethodPost, key, MediaTypeJSON, rec, opts)
}

// Replace overwrites the record under key. Omitted fields are reset.
func (c *Client) Replace(ctx context.Context, key string, rec record.Record, opts records.Options) (*records.Document, error) {
	return c.write(ctx, http.MethodPut, key, MediaTypeJSON, rec, opts)
}

// Patch sends the present fields of p as a merge patch.
func (c *Client) Patch(ctx context.Context, key string, p record.Payload, opts records.Options) (*records.Document, error) {
	body := record.Record{}
	for _, f := range p.Presence.Sorted() {
		body[f] = p.Values[f]
	}
	return c.write(ctx, http.MethodPatch, key, MediaTypeMergePatch, body, opts)
}

// JSONPatch sends an RFC 6902 operation list.
func (c *Client) JSONPatch(ctx context.Context, key string, ops json.RawMessage, opts records.Options) (*records.Document, error) {
	return c.write(ctx, http.MethodPatch, key, MediaTypeJSONPatch, ops, opts)
}

// Delete removes the record under key. The returned document carries only
// the key and, when a callback was requested, its outcome.
func (c *Client) Delete(ctx context.Context, key string, opts records.Options) (*records.Document, error) {
	resp, err := c.do(ctx, http.MethodDelete, c.recordPath(key), "", nil, opts, nil)
	if err != nil {
		return nil, err
	}
	doc := &records.Document{Key: key}
	doc.Callback = deliveryFromHeaders(resp.Header)
	return doc, nil
}

func (c *Client) write(ctx context.Context, method, key, contentType string, body any, opts records.Options) (*records.Document, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, rkerrors.Wrap(rkerrors.ErrCodeInvalidRequest, "failed to encode request body", err)
	}
	var doc records.Document
	if _, err := c.do(ctx, method, c.recordPath(key), contentType, data, opts, &doc); err != nil {
		return nil, err
	}
	return &doc, normalize(&doc)
}

func (c *Client) recordPath(key string) *url.URL {
	return c.base.JoinPath("v1", "records", key)
}

func (c *Client) do(ctx context.Context, method string, u *url.URL, contentType string,
	body []byte, opts records.Options, out any) (*http.Response, error) {

	if opts.CallbackURL != "" {
		q := u.Query()
		q.Set("callback_url", opts.CallbackURL)
		u.RawQuery = q.Encode()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, rkerrors.Wrap(rkerrors.ErrCodeInvalidRequest, "failed to create request", err)
	}
	req.Header.Set("Accept", MediaTypeJSON)
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if opts.IfMatch != "" {
		if opts.IfMatch == "*" {
			req.Header.Set("If-Match", "*")
		} else {
			req.Header.Set("If-Match", `"`+opts.IfMatch+`"`)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, rkerrors.Wrap(rkerrors.ErrCodeUnavailable,
			fmt.Sprintf("%s %s failed", method, u.Redacted()), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, rkerrors.Wrap(rkerrors.ErrCodeUnavailable, "failed to read response", err)
	}
	if resp.StatusCode >= 300 {
		return nil, decodeError(resp, data)
	}
	if out != nil && len(data) > 0 {
		dec := json.NewDecoder(bytes.NewReader(data))
		// Record values keep integer precision; schema documents do not
		// carry record values.
		switch out.(type) {
		case *records.Document, *records.DocumentList:
			dec.UseNumber()
		}
		if err := dec.Decode(out); err != nil {
			return nil, rkerrors.Wrap(rkerrors.ErrCodeInternal, "failed to decode response", err)
		}
	}
	if doc, ok := out.(*records.Document); ok && doc.Callback == nil {
		doc.Callback = deliveryFromHeaders(resp.Header)
	}
	return resp, nil
}

// decodeError turns an ErrorResponse body into a StructuredError carrying the
// same code, message and details.
func decodeError(resp *http.Response, data []byte) error {
	var e server.ErrorResponse
	if err := json.Unmarshal(data, &e); err != nil || e.Code == "" {
		return rkerrors.NewWithContext(codeFromStatus(resp.StatusCode),
			fmt.Sprintf("server returned %s", resp.Status),
			map[string]any{"status": resp.StatusCode})
	}
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	if e.RequestID != "" {
		details["requestId"] = e.RequestID
	}
	if raw, ok := details[rkerrors.ContextKeyFields]; ok {
		details[rkerrors.ContextKeyFields] = fieldErrors(raw)
	}
	return rkerrors.NewWithContext(rkerrors.ErrorCode(e.Code), e.Message, details)
}

// fieldErrors restores []FieldError from its decoded JSON form.
func fieldErrors(raw any) any {
	data, err := json.Marshal(raw)
	if err != nil {
		return raw
	}
	var fe []rkerrors.FieldError
	if err := json.Unmarshal(data, &fe); err != nil {
		return raw
	}
	return fe
}

func codeFromStatus(status int) rkerrors.ErrorCode {
	switch status {
	case http.StatusBadRequest:
		return rkerrors.ErrCodeInvalidRequest
	case http.StatusUnauthorized:
		return rkerrors.ErrCodeUnauthorized
	case http.StatusNotFound:
		return rkerrors.ErrCodeNotFound
	case http.StatusMethodNotAllowed:
		return rkerrors.ErrCodeMethodNotAllowed
	case http.StatusConflict:
		return rkerrors.ErrCodeConflict
	case http.StatusPreconditionFailed:
		return rkerrors.ErrCodePreconditionFailed
	case http.StatusUnsupportedMediaType:
		return rkerrors.ErrCodeUnsupportedMediaType
	case http.StatusUnprocessableEntity:
		return rkerrors.ErrCodeValidation
	case http.StatusTooManyRequests:
		return rkerrors.ErrCodeRateLimitExceeded
	case http.StatusServiceUnavailable:
		return rkerrors.ErrCodeUnavailable
	case http.StatusGatewayTimeout:
		return rkerrors.ErrCodeTimeout
	default:
		return rkerrors.ErrCodeInternal
	}
}

func normalize(doc *records.Document) error {
	if doc.Record == nil {
		return nil
	}
	rec, err := record.Normalize(doc.Record)
	if err != nil {
		return rkerrors.Wrap(rkerrors.ErrCodeInternal, "unsupported value in response", err)
	}
	doc.Record = rec
	return nil
}
