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

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/NVIDIA/recordkeeper/pkg/defaults"
	rkerrors "github.com/NVIDIA/recordkeeper/pkg/errors"
	"github.com/NVIDIA/recordkeeper/pkg/serializer"
)

const (
	// UserAgent identifies callback requests.
	UserAgent = "recordkeeper-notifier/1.0"

	// HeaderEventType carries Event.Type on callback requests.
	HeaderEventType = "X-Recordkeeper-Event"

	// HeaderEventID carries Event.ID so receivers can drop duplicates.
	HeaderEventID = "Idempotency-Key"

	// CallbackURLField names the callback URL in validation errors.
	CallbackURLField = "callback_url"

	maxAckBytes = 64 << 10
)

// Delivery reports the outcome of sending one event.
type Delivery struct {
	URL          string `json:"url" yaml:"url"`
	Status       int    `json:"status,omitempty" yaml:"status,omitempty"`
	Acknowledged bool   `json:"acknowledged" yaml:"acknowledged"`
	Attempts     int    `json:"attempts" yaml:"attempts"`
	Error        string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Succeeded reports whether the receiver answered with a 2xx status.
func (d *Delivery) Succeeded() bool {
	return d != nil && d.Status >= 200 && d.Status < 300
}

type ack struct {
	OK bool `json:"ok"`
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithHTTPClient replaces the HTTP client used for deliveries.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) {
		n.client = c
	}
}

// WithRateLimit sets the outbound request rate and burst.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(n *Notifier) {
		n.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithBackoff sets the retry schedule. Steps is the total number of attempts.
func WithBackoff(b wait.Backoff) Option {
	return func(n *Notifier) {
		n.backoff = b
	}
}

// WithAttemptTimeout bounds each HTTP attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(n *Notifier) {
		n.attemptTimeout = d
	}
}

// Notifier posts events to callback URLs. It is safe for concurrent use.
type Notifier struct {
	client         *http.Client
	limiter        *rate.Limiter
	backoff        wait.Backoff
	attemptTimeout time.Duration
}

// New returns a Notifier with defaults from pkg/defaults.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		client:  &http.Client{Transport: serializer.NewTransport()},
		limiter: rate.NewLimiter(rate.Limit(defaults.CallbackRateLimit), defaults.CallbackRateBurst),
		backoff: wait.Backoff{
			Duration: defaults.CallbackInitialBackoff,
			Factor:   defaults.CallbackBackoffFactor,
			Jitter:   0.1,
			Steps:    defaults.CallbackMaxAttempts,
		},
		attemptTimeout: defaults.CallbackTimeout,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ValidateCallbackURL checks that raw is an absolute http or https URL.
func ValidateCallbackURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, rkerrors.NewValidation(rkerrors.FieldError{
			Field:  CallbackURLField,
			Reason: "must be an absolute http or https URL",
		})
	}
	return u, nil
}

// Target returns the URL an event for key is posted to.
func Target(callbackURL, key string) (string, error) {
	u, err := ValidateCallbackURL(callbackURL)
	if err != nil {
		return "", err
	}
	return u.JoinPath("records", key).String(), nil
}

// Notify posts ev to the callback. The returned error is non-nil only when
// the callback URL is invalid or the event cannot be encoded; delivery
// failures are reported in the Delivery.
func (n *Notifier) Notify(ctx context.Context, callbackURL string, ev *Event) (*Delivery, error) {
	target, err := Target(callbackURL, ev.Key)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, rkerrors.Wrap(rkerrors.ErrCodeInternal, "failed to encode event", err)
	}

	start := time.Now()
	d := &Delivery{URL: target}
	var lastErr error

	err = wait.ExponentialBackoffWithContext(ctx, n.backoff, func(ctx context.Context) (bool, error) {
		d.Attempts++
		callbackAttempts.Inc()

		status, acked, err := n.attempt(ctx, target, ev, body)
		d.Status = status
		d.Acknowledged = acked
		lastErr = err

		switch {
		case err == nil:
			return true, nil
		case retryable(status, err):
			slog.Debug("callback attempt failed, retrying",
				"url", target, "attempt", d.Attempts, "status", status, "error", err)
			return false, nil
		default:
			return false, err
		}
	})
	if err != nil && lastErr == nil {
		lastErr = err
	}

	callbackDuration.Observe(time.Since(start).Seconds())

	switch {
	case lastErr != nil:
		d.Error = lastErr.Error()
		outcome := outcomeFailed
		if d.Status >= 400 && d.Status < 500 && d.Status != http.StatusTooManyRequests {
			outcome = outcomeRejected
		}
		callbackDeliveries.WithLabelValues(outcome).Inc()
		slog.Warn("callback delivery failed",
			"url", target, "event", ev.ID, "attempts", d.Attempts, "status", d.Status, "error", lastErr)
	case d.Acknowledged:
		callbackDeliveries.WithLabelValues(outcomeAcknowledged).Inc()
	default:
		callbackDeliveries.WithLabelValues(outcomeDelivered).Inc()
	}
	return d, nil
}

// attempt performs one POST. A 2xx status returns a nil error.
func (n *Notifier) attempt(ctx context.Context, target string, ev *Event, body []byte) (int, bool, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return 0, false, fmt.Errorf("rate limiter: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, n.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return 0, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set(HeaderEventType, string(ev.Type))
	req.Header.Set(HeaderEventID, ev.ID)

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAckBytes))
	if err != nil && resp.StatusCode < 300 {
		return resp.StatusCode, false, fmt.Errorf("failed to read callback response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, false, fmt.Errorf("callback returned %s: %s",
			resp.Status, strings.TrimSpace(string(data)))
	}

	var a ack
	if len(bytes.TrimSpace(data)) > 0 && json.Unmarshal(data, &a) == nil {
		return resp.StatusCode, a.OK, nil
	}
	return resp.StatusCode, false, nil
}

func retryable(status int, err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch {
	case status == 0:
		return true
	case status == http.StatusTooManyRequests, status >= 500:
		return true
	}
	return false
}
