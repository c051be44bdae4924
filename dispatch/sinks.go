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

// Package dispatch is the single funnel through which terminal failures
// reach the user.
//
// Handler.Handle classifies an error, surfaces exactly one notice for it
// through a Notifier, runs the recovery action of its kind (credential
// invalidation and a deferred redirect to the login path for
// AUTHENTICATION), and forwards it to a Reporter. The per-kind table is
// total over apperr.Kinds().
package dispatch

import (
	"context"
	"log/slog"

	"dirpx.dev/reqflow/adapter"
)

// Level is the severity of a user-facing notice.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	}
	return "unknown"
}

// Notifier surfaces a transient notice to the user.
type Notifier interface {
	Notify(ctx context.Context, level Level, message string)
}

// Navigator moves the user to another location, such as the login page.
type Navigator interface {
	Navigate(path string)
}

// Reporter is a fire-and-forget sink for handled errors. Implementations
// must not block the caller.
type Reporter interface {
	Report(ctx context.Context, r adapter.Report)
}

// CredentialStore is the part of the token store the handler needs to
// invalidate a session.
type CredentialStore interface {
	Clear(ctx context.Context) error
}

// NopReporter drops every report. It is the reporter of non-production
// builds.
type NopReporter struct{}

func (NopReporter) Report(context.Context, adapter.Report) {}

// LogReporter writes reports to a structured logger.
type LogReporter struct {
	Logger *slog.Logger
}

func (r LogReporter) Report(ctx context.Context, rep adapter.Report) {
	if r.Logger == nil {
		return
	}
	r.Logger.LogAttrs(ctx, slog.LevelError, "error reported",
		slog.String("report_id", rep.ID.String()),
		slog.String("context", rep.Context),
		slog.String("kind", rep.Error.Kind),
		slog.String("code", rep.Error.Code),
		slog.String("message", rep.Error.Message),
		slog.String("cause", rep.Error.Cause),
	)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, level Level, message string)

func (f NotifierFunc) Notify(ctx context.Context, level Level, message string) {
	f(ctx, level, message)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// LogNotifier writes notices to a logger. Useful for headless clients such
// as the CLI.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, level Level, message string) {
	if n.Logger == nil {
		return
	}
	lv := slog.LevelInfo
	switch level {
	case LevelWarning:
		lv = slog.LevelWarn
	case LevelError:
		lv = slog.LevelError
	}
	n.Logger.Log(ctx, lv, message, "notice", true)
}
