/*
   Copyright 2025 The DIRPX Authors

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"dirpx.dev/reqflow/adapter"
	"dirpx.dev/reqflow/apperr"
	"dirpx.dev/reqflow/obs"
)

// Defaults of the authentication recovery action.
const (
	DefaultLoginPath     = "/login"
	DefaultRedirectDelay = 1500 * time.Millisecond
)

// action is the per-kind presentation and recovery step.
type action func(h *Handler, ctx context.Context, e *apperr.Error)

// actions must have an entry for every apperr kind.
var actions = map[apperr.Kind]action{
	apperr.Network: func(h *Handler, ctx context.Context, e *apperr.Error) {
		h.notify(ctx, LevelError, e)
	},
	apperr.Validation: func(h *Handler, ctx context.Context, e *apperr.Error) {
		h.notify(ctx, LevelWarning, e)
	},
	apperr.Authentication: func(h *Handler, ctx context.Context, e *apperr.Error) {
		h.notify(ctx, LevelError, e)
		h.invalidate(ctx)
		h.scheduleRedirect()
	},
	apperr.Authorization: func(h *Handler, ctx context.Context, e *apperr.Error) {
		h.notify(ctx, LevelError, e)
	},
	apperr.Business: func(h *Handler, ctx context.Context, e *apperr.Error) {
		h.notify(ctx, LevelError, e)
	},
	apperr.Unknown: func(h *Handler, ctx context.Context, _ *apperr.Error) {
		h.notifier.Notify(ctx, LevelError, apperr.DefaultMessage(apperr.Unknown))
	},
}

// Handler dispatches terminal errors. It is safe for concurrent use.
type Handler struct {
	notifier  Notifier
	navigator Navigator
	reporter  Reporter
	creds     CredentialStore

	loginPath     string
	redirectDelay time.Duration
	dev           bool
	now           func() time.Time
	logger        *slog.Logger
	metrics       *obs.Metrics

	mu       sync.Mutex
	redirect *time.Timer
	closed   bool
}

// NewHandler builds a Handler. Unset collaborators default to no-ops.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		notifier:      NotifierFunc(func(context.Context, Level, string) {}),
		navigator:     NavigatorFunc(func(string) {}),
		reporter:      NopReporter{},
		loginPath:     DefaultLoginPath,
		redirectDelay: DefaultRedirectDelay,
		now:           time.Now,
		logger:        obs.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle classifies err and dispatches it. It never panics and returns
// nothing: it is a terminal sink. Cancellation (context.Canceled, including
// requests superseded by a duplicate) is an outcome, not a failure, and is
// ignored. tag is the caller's context label for logs and reports, e.g.
// "load task list".
func (h *Handler) Handle(ctx context.Context, err error, tag string) {
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		h.logger.Debug("cancellation ignored", "context", tag, "err", err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("error dispatch panicked", "context", tag, "panic", r)
		}
	}()

	e := apperr.Classify(err)
	if h.dev {
		h.logger.Error("handled error",
			"context", orUnknown(tag),
			"kind", e.Kind,
			"code", e.Code,
			"message", e.Message,
			"err", err,
		)
	}

	act, ok := actions[e.Kind]
	if !ok {
		h.logger.Warn("no dispatch action for kind, handling as UNKNOWN", "context", orUnknown(tag), "kind", e.Kind)
		act = actions[apperr.Unknown]
	}
	act(h, ctx, e)
	h.metrics.Handled(string(e.Kind))

	h.reporter.Report(ctx, adapter.ToReport(e, tag, h.now()))
}

// Wrap handles err and returns it unchanged, so callers can delegate to the
// handler and still unwind:
//
//	if err := client.CreateTask(ctx, t); err != nil {
//	    return h.Wrap(ctx, err, "create task")
//	}
func (h *Handler) Wrap(ctx context.Context, err error, tag string) error {
	h.Handle(ctx, err, tag)
	return err
}

// Close cancels a pending login redirect. Handle keeps working afterwards
// but no longer schedules redirects.
func (h *Handler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	if h.redirect != nil {
		h.redirect.Stop()
		h.redirect = nil
	}
	return nil
}

// RedirectPending reports whether a login redirect is scheduled.
func (h *Handler) RedirectPending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.redirect != nil
}

func (h *Handler) notify(ctx context.Context, level Level, e *apperr.Error) {
	msg := e.Message
	if msg == "" {
		msg = apperr.DefaultMessage(e.Kind)
	}
	h.notifier.Notify(ctx, level, msg)
}

func (h *Handler) invalidate(ctx context.Context) {
	if h.creds == nil {
		return
	}
	if err := h.creds.Clear(context.WithoutCancel(ctx)); err != nil {
		h.logger.Warn("credential invalidation failed", "err", err)
	}
}

// scheduleRedirect navigates to the login path after the redirect delay.
// Concurrent authentication failures share one pending redirect.
func (h *Handler) scheduleRedirect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || h.redirect != nil {
		return
	}
	h.redirect = time.AfterFunc(h.redirectDelay, func() {
		h.mu.Lock()
		h.redirect = nil
		closed := h.closed
		h.mu.Unlock()
		if !closed {
			h.navigator.Navigate(h.loginPath)
		}
	})
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
