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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NVIDIA/recordkeeper/pkg/defaults"
	rkerrors "github.com/NVIDIA/recordkeeper/pkg/errors"
	"github.com/NVIDIA/recordkeeper/pkg/header"
	"github.com/NVIDIA/recordkeeper/pkg/notify"
	"github.com/NVIDIA/recordkeeper/pkg/record"
	"github.com/NVIDIA/recordkeeper/pkg/records"
	"github.com/NVIDIA/recordkeeper/pkg/schema"
	"github.com/NVIDIA/recordkeeper/pkg/serializer"
	"github.com/NVIDIA/recordkeeper/pkg/server"
)

// Media types accepted in request bodies.
const (
	MediaTypeJSON       = "application/json"
	MediaTypeMergePatch = "application/merge-patch+json"
	MediaTypeJSONPatch  = "application/json-patch+json"
)

// Headers and query parameters of the record API.
const (
	HeaderETag                 = "ETag"
	HeaderIfMatch              = "If-Match"
	HeaderCallbackStatus       = "X-Callback-Status"
	HeaderCallbackAcknowledged = "X-Callback-Acknowledged"
	QueryCallbackURL           = "callback_url"
)

// RecordsPath is the collection path; a record lives at RecordsPath/{key}.
const RecordsPath = "/v1/records"

// SchemaDocument is the wire form of the active schema.
type SchemaDocument struct {
	header.Header  `json:",inline" yaml:",inline"`
	*schema.Schema `json:",inline" yaml:",inline"`
}

// Handler serves the record API.
type Handler struct {
	svc          *records.Service
	maxBodyBytes int64
	timeout      time.Duration
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// NewHandler returns a Handler backed by svc.
func NewHandler(svc *records.Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		svc:          svc,
		maxBodyBytes: defaults.MaxRequestBodyBytes,
		timeout:      defaults.RecordHandlerTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handlers returns the routes to register with server.WithHandler.
func (h *Handler) Handlers() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"/v1/": h.Routes().ServeHTTP,
	}
}

// Routes returns the chi router for /v1.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		server.WriteError(w, r, http.StatusNotFound, rkerrors.ErrCodeNotFound,
			fmt.Sprintf("no route for %s", r.URL.Path), false, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		server.WriteError(w, r, http.StatusMethodNotAllowed, rkerrors.ErrCodeMethodNotAllowed,
			"Method not allowed", false, map[string]any{"method": r.Method})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/schema", h.handleSchema)
		r.Get("/records", h.handleList)
		r.Route("/records/{key}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Post("/", h.handleCreate)
			r.Put("/", h.handleReplace)
			r.Patch("/", h.handlePatch)
			r.Delete("/", h.handleDelete)
		})
	})
	return r
}

func (h *Handler) context(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.timeout)
}

func (h *Handler) handleSchema(w http.ResponseWriter, r *http.Request) {
	serializer.RespondJSON(w, http.StatusOK, SchemaDocument{
		Header: header.Header{Kind: header.KindSchema, APIVersion: header.APIVersion},
		Schema: h.svc.Schema(),
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	entries, err := h.svc.List(ctx)
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Failed to list records", nil)
		return
	}
	serializer.RespondJSON(w, http.StatusOK, records.NewDocumentList(entries))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	e, err := h.svc.Get(ctx, chi.URLParam(r, "key"))
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Failed to get record", nil)
		return
	}
	setETag(w, e.Revision)
	serializer.RespondJSON(w, http.StatusOK, records.NewDocument(e))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	key := chi.URLParam(r, "key")
	p, err := h.decodePayload(w, r, MediaTypeJSON)
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Invalid record body", nil)
		return
	}

	res, err := h.svc.Create(ctx, key, p, writeOptions(r))
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Failed to create record", nil)
		return
	}
	w.Header().Set("Location", RecordsPath+"/"+key)
	h.respondWrite(w, http.StatusCreated, res)
}

func (h *Handler) handleReplace(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := h.decodePayload(w, r, MediaTypeJSON)
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Invalid record body", nil)
		return
	}

	res, err := h.svc.Replace(ctx, chi.URLParam(r, "key"), p, writeOptions(r))
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Failed to replace record", nil)
		return
	}
	h.respondWrite(w, http.StatusOK, res)
}

func (h *Handler) handlePatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	key := chi.URLParam(r, "key")
	mediaType, err := contentType(r, MediaTypeJSON, MediaTypeMergePatch, MediaTypeJSONPatch)
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Unsupported content type", nil)
		return
	}

	var res *records.Result
	if mediaType == MediaTypeJSONPatch {
		body, rerr := h.readBody(w, r)
		if rerr != nil {
			server.WriteErrorFromErr(w, r, rerr, "Invalid patch body", nil)
			return
		}
		ops, perr := ParseJSONPatch(body)
		if perr != nil {
			server.WriteErrorFromErr(w, r, perr, "Invalid patch body", nil)
			return
		}
		res, err = h.svc.Apply(ctx, key, writeOptions(r), ops.Payload)
	} else {
		p, derr := h.decodePayload(w, r, mediaType)
		if derr != nil {
			server.WriteErrorFromErr(w, r, derr, "Invalid patch body", nil)
			return
		}
		res, err = h.svc.Patch(ctx, key, p, writeOptions(r))
	}
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Failed to patch record", nil)
		return
	}
	h.respondWrite(w, http.StatusOK, res)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	res, err := h.svc.Delete(ctx, chi.URLParam(r, "key"), writeOptions(r))
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Failed to delete record", nil)
		return
	}
	setCallbackHeaders(w, res.Delivery)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondWrite(w http.ResponseWriter, status int, res *records.Result) {
	setETag(w, res.Entry.Revision)
	setCallbackHeaders(w, res.Delivery)
	serializer.RespondJSON(w, status, records.DocumentOf(res))
}

// decodePayload reads a JSON object body. Presence is the set of top-level
// keys, so {"email": null} sets email to null while omitting it keeps it.
func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request, accepted ...string) (record.Payload, error) {
	if len(accepted) == 1 && accepted[0] == MediaTypeJSON {
		accepted = append(accepted, MediaTypeMergePatch)
	}
	if _, err := contentType(r, accepted...); err != nil {
		return record.Payload{}, err
	}
	p, err := record.DecodePayload(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		return record.Payload{}, h.bodyError(err)
	}
	return p, nil
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		return nil, h.bodyError(rkerrors.Wrap(rkerrors.ErrCodeInvalidRequest, "failed to read body", err))
	}
	return body, nil
}

func (h *Handler) bodyError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return rkerrors.NewWithContext(rkerrors.ErrCodeInvalidRequest,
			fmt.Sprintf("request body exceeds %d bytes", mbe.Limit),
			map[string]any{"limit": mbe.Limit})
	}
	return err
}

// contentType returns the request media type when it is one of accepted.
// A missing Content-Type is treated as the first accepted type.
func contentType(r *http.Request, accepted ...string) (string, error) {
	raw := r.Header.Get("Content-Type")
	if raw == "" {
		return accepted[0], nil
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err == nil {
		for _, a := range accepted {
			if mediaType == a {
				return mediaType, nil
			}
		}
	}
	return "", rkerrors.NewWithContext(rkerrors.ErrCodeUnsupportedMediaType,
		fmt.Sprintf("unsupported content type %q", raw),
		map[string]any{"accepted": accepted})
}

func writeOptions(r *http.Request) records.Options {
	return records.Options{
		IfMatch:     parseIfMatch(r.Header.Get(HeaderIfMatch)),
		CallbackURL: r.URL.Query().Get(QueryCallbackURL),
	}
}

// parseIfMatch returns the first entity tag of an If-Match header without
// quotes or weak prefix.
func parseIfMatch(v string) string {
	v = strings.TrimSpace(v)
	if first, _, found := strings.Cut(v, ","); found {
		v = strings.TrimSpace(first)
	}
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}

func setETag(w http.ResponseWriter, revision string) {
	if revision != "" {
		w.Header().Set(HeaderETag, strconv.Quote(revision))
	}
}

func setCallbackHeaders(w http.ResponseWriter, d *notify.Delivery) {
	if d == nil {
		return
	}
	status := "failed"
	if d.Status != 0 {
		status = strconv.Itoa(d.Status)
	}
	w.Header().Set(HeaderCallbackStatus, status)
	w.Header().Set(HeaderCallbackAcknowledged, strconv.FormatBool(d.Acknowledged))
	if d.Error != "" {
		slog.Warn("callback delivery failed", "url", d.URL, "attempts", d.Attempts, "error", d.Error)
	}
}
