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

package dedup

import (
	"log/slog"
	"time"

	"dirpx.dev/reqflow/obs"
)

type routeRule struct {
	prefix string
	policy Policy
}

type config struct {
	staleAfter    time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	methods       []string
	routes        []routeRule
	logger        *slog.Logger
	metrics       *obs.Metrics
}

// Option configures a Manager.
type Option func(*config)

// WithStaleAfter sets the age after which Sweep cancels an entry.
func WithStaleAfter(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.staleAfter = d
		}
	}
}

// WithSweepInterval sets the interval of Run.
func WithSweepInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.sweepInterval = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithTrackedMethods replaces the set of methods tracked when no route rule
// applies.
func WithTrackedMethods(methods ...string) Option {
	return func(c *config) { c.methods = append([]string(nil), methods...) }
}

// WithRoute adds a route rule. The prefix is a "/"-separated path where "*"
// matches one segment; the longest matching rule wins.
func WithRoute(prefix string, p Policy) Option {
	return func(c *config) { c.routes = append(c.routes, routeRule{prefix, p}) }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m *obs.Metrics) Option {
	return func(c *config) { c.metrics = m }
}
