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
	stderrors "errors"
	"net/http"
	"time"

	rkerrors "github.com/NVIDIA/recordkeeper/pkg/errors"
	"github.com/NVIDIA/recordkeeper/pkg/serializer"
	"github.com/google/uuid"
)

// Error codes used by the server itself.
const (
	ErrCodeRateLimitExceeded = rkerrors.ErrCodeRateLimitExceeded
	ErrCodeInternalError     = rkerrors.ErrCodeInternal
	ErrCodeInvalidRequest    = rkerrors.ErrCodeInvalidRequest
	ErrCodeMethodNotAllowed  = rkerrors.ErrCodeMethodNotAllowed
	ErrCodeNotFound          = rkerrors.ErrCodeNotFound
)

// ErrorResponse represents error response
type ErrorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId"`
	Timestamp time.Time      `json:"timestamp"`
	Retryable bool           `json:"retryable"`
}

// WriteError writes error response
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int,
	code rkerrors.ErrorCode, message string, retryable bool, details map[string]any) {

	requestID := RequestID(r.Context())
	if requestID == "" {
		requestID = uuid.New().String()
	}

	errResp := ErrorResponse{
		Code:      string(code),
		Message:   message,
		Details:   details,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Retryable: retryable,
	}

	serializer.RespondJSON(w, statusCode, errResp)
}

// WriteErrorFromErr maps err to a status code and writes the error
// response. StructuredErrors keep their code, message and context; anything
// else becomes an internal error described by fallbackMessage.
func WriteErrorFromErr(w http.ResponseWriter, r *http.Request, err error,
	fallbackMessage string, extraDetails map[string]any) {

	var se *rkerrors.StructuredError
	if !stderrors.As(err, &se) {
		details := mergeDetails(extraDetails, map[string]any{"error": err.Error()})
		WriteError(w, r, http.StatusInternalServerError, rkerrors.ErrCodeInternal,
			fallbackMessage, retryableFromCode(rkerrors.ErrCodeInternal), details)
		return
	}

	var cause map[string]any
	if se.Cause != nil {
		cause = map[string]any{"error": se.Cause.Error()}
	}
	details := mergeDetails(mergeDetails(se.Context, extraDetails), cause)

	WriteError(w, r, HTTPStatusFromCode(se.Code), se.Code, se.Message,
		retryableFromCode(se.Code), details)
}

// HTTPStatusFromCode maps an error code to its HTTP status.
func HTTPStatusFromCode(code rkerrors.ErrorCode) int {
	switch code {
	case rkerrors.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case rkerrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case rkerrors.ErrCodeNotFound:
		return http.StatusNotFound
	case rkerrors.ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case rkerrors.ErrCodeConflict:
		return http.StatusConflict
	case rkerrors.ErrCodePreconditionFailed:
		return http.StatusPreconditionFailed
	case rkerrors.ErrCodeUnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	case rkerrors.ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case rkerrors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case rkerrors.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	case rkerrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// retryableFromCode reports whether a client may retry the same request.
func retryableFromCode(code rkerrors.ErrorCode) bool {
	switch code {
	case rkerrors.ErrCodeTimeout,
		rkerrors.ErrCodeUnavailable,
		rkerrors.ErrCodeRateLimitExceeded,
		rkerrors.ErrCodeConflict,
		rkerrors.ErrCodeInternal:
		return true
	default:
		return false
	}
}

// mergeDetails returns the union of a and b, b winning on shared keys.
// It returns nil when both are empty.
func mergeDetails(a, b map[string]any) map[string]any {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
