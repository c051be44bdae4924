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
	"log/slog"
	"time"

	"dirpx.dev/reqflow/obs"
)

// Option configures a Handler.
type Option func(*Handler)

func WithNotifier(n Notifier) Option {
	return func(h *Handler) {
		if n != nil {
			h.notifier = n
		}
	}
}

func WithNavigator(n Navigator) Option {
	return func(h *Handler) {
		if n != nil {
			h.navigator = n
		}
	}
}

func WithReporter(r Reporter) Option {
	return func(h *Handler) {
		if r != nil {
			h.reporter = r
		}
	}
}

// WithCredentialStore sets the store cleared on AUTHENTICATION errors.
func WithCredentialStore(s CredentialStore) Option {
	return func(h *Handler) { h.creds = s }
}

// WithLoginPath sets where AUTHENTICATION errors redirect to.
func WithLoginPath(p string) Option {
	return func(h *Handler) {
		if p != "" {
			h.loginPath = p
		}
	}
}

// WithRedirectDelay sets how long the notice stays visible before the
// login redirect.
func WithRedirectDelay(d time.Duration) Option {
	return func(h *Handler) {
		if d >= 0 {
			h.redirectDelay = d
		}
	}
}

// WithDevelopment enables context-tagged logging of every handled error.
func WithDevelopment(dev bool) Option {
	return func(h *Handler) { h.dev = dev }
}

func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

func WithMetrics(m *obs.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}
