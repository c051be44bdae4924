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
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"dirpx.dev/reqflow/internal/segmenttrie"
	"dirpx.dev/reqflow/obs"
)

// Default timings of the Manager.
const (
	DefaultStaleAfter    = 30 * time.Second
	DefaultSweepInterval = 60 * time.Second
)

// Policy decides whether requests under a route are tracked.
type Policy int

const (
	// PolicyDefault defers to the method set (safe methods only, unless
	// changed with WithTrackedMethods).
	PolicyDefault Policy = iota
	// PolicyTrack tracks every method under the route.
	PolicyTrack
	// PolicyBypass never tracks requests under the route.
	PolicyBypass
)

// ParsePolicy parses "default", "track" or "bypass".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return PolicyDefault, nil
	case "track":
		return PolicyTrack, nil
	case "bypass":
		return PolicyBypass, nil
	}
	return PolicyDefault, fmt.Errorf("dedup: unknown policy %q", s)
}

type entry struct {
	h         *Handle
	createdAt time.Time
}

// Manager tracks in-flight requests by fingerprint. It is safe for
// concurrent use; construct one per client session.
type Manager struct {
	mu      sync.Mutex
	entries map[Fingerprint]*entry

	staleAfter    time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	methods       map[string]bool
	routes        *segmenttrie.Trie[Policy]

	logger  *slog.Logger
	metrics *obs.Metrics
}

// NewManager builds a Manager. It fails only on malformed route rules.
func NewManager(opts ...Option) (*Manager, error) {
	cfg := config{
		staleAfter:    DefaultStaleAfter,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
		methods:       []string{"GET", "HEAD", "OPTIONS"},
		logger:        obs.Discard(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Manager{
		entries:       make(map[Fingerprint]*entry),
		staleAfter:    cfg.staleAfter,
		sweepInterval: cfg.sweepInterval,
		now:           cfg.now,
		methods:       make(map[string]bool, len(cfg.methods)),
		logger:        cfg.logger,
		metrics:       cfg.metrics,
	}
	for _, meth := range cfg.methods {
		m.methods[strings.ToUpper(strings.TrimSpace(meth))] = true
	}
	if len(cfg.routes) > 0 {
		m.routes = segmenttrie.New[Policy]()
		for _, r := range cfg.routes {
			if err := m.routes.Insert(r.prefix, r.policy); err != nil {
				return nil, fmt.Errorf("dedup: route %q: %w", r.prefix, err)
			}
		}
	}
	return m, nil
}

// Tracks reports whether requests described by d are tracked.
func (m *Manager) Tracks(d Descriptor) bool {
	if m.routes != nil {
		if p, ok := m.routes.Match(pathOf(d.URL)); ok {
			switch p {
			case PolicyTrack:
				return true
			case PolicyBypass:
				return false
			}
		}
	}
	method := strings.TrimSpace(d.Method)
	if strings.HasPrefix(method, "/") {
		// gRPC calls only opt in through route rules
		return false
	}
	return m.methods[strings.ToUpper(method)]
}

// Begin registers a request and returns its handle. If a request with the
// same fingerprint is in flight, that request's handle is cancelled with
// ReasonSuperseded and replaced. Begin never fails.
//
// Requests that are not tracked get a handle that behaves like any other
// but is never superseded, swept or cleared.
func (m *Manager) Begin(ctx context.Context, d Descriptor) *Handle {
	fp := FingerprintOf(d)
	now := m.now()

	if !m.Tracks(d) {
		m.metrics.DedupBegin(false)
		return newHandle(ctx, fp, false, now)
	}

	h := newHandle(ctx, fp, true, now)

	m.mu.Lock()
	old, superseded := m.entries[fp]
	if superseded {
		old.h.cancelWith(ReasonSuperseded)
	}
	m.entries[fp] = &entry{h: h, createdAt: now}
	n := len(m.entries)
	m.mu.Unlock()

	m.metrics.DedupBegin(true)
	m.metrics.DedupSetInFlight(n)
	if superseded {
		m.metrics.DedupSuperseded()
		m.logger.Debug("request superseded",
			"fingerprint", fp.Short(),
			"method", d.Method,
			"url", d.URL,
			"superseded_id", old.h.ID().String(),
		)
	}
	return h
}

// End removes the in-flight entry for d's fingerprint, if any. It is
// idempotent; unknown fingerprints are a no-op. Call it on every terminal
// outcome of a request, cancellation included.
//
// End only forgets the entry. It never cancels the removed handle, so a
// superseded request calling End cannot abort its successor; the successor
// merely loses its tracking slot. Context cleanup belongs to Release.
func (m *Manager) End(d Descriptor) {
	fp := FingerprintOf(d)

	m.mu.Lock()
	_, ok := m.entries[fp]
	if ok {
		delete(m.entries, fp)
	}
	n := len(m.entries)
	m.mu.Unlock()

	if ok {
		m.metrics.DedupSetInFlight(n)
	}
}

// Release ends the request of h. The entry is removed only if it still
// belongs to h, so a superseded request finishing late cannot evict its
// successor. The handle's context is released either way. Release is
// idempotent.
func (m *Manager) Release(h *Handle) {
	if h == nil {
		return
	}
	if h.tracked {
		m.mu.Lock()
		e, ok := m.entries[h.fp]
		if ok && e.h == h {
			delete(m.entries, h.fp)
		}
		n := len(m.entries)
		m.mu.Unlock()
		m.metrics.DedupSetInFlight(n)
	}
	h.release()
}

// Sweep cancels with ReasonTimeout and removes every entry older than the
// staleness threshold. Younger entries are untouched. It returns the number
// of entries removed.
func (m *Manager) Sweep() int {
	now := m.now()

	m.mu.Lock()
	swept := 0
	for fp, e := range m.entries {
		if now.Sub(e.createdAt) > m.staleAfter {
			e.h.cancelWith(ReasonTimeout)
			delete(m.entries, fp)
			swept++
		}
	}
	n := len(m.entries)
	m.mu.Unlock()

	m.metrics.DedupSwept(swept)
	m.metrics.DedupSetInFlight(n)
	if swept > 0 {
		m.logger.Info("stale requests swept", "swept", swept, "in_flight", n)
	}
	return swept
}

// Run sweeps on the configured interval until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	t := time.NewTicker(m.sweepInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Sweep()
		}
	}
}

// Clear cancels every tracked request with ReasonCleared and empties the
// manager. It returns the number of requests cancelled.
func (m *Manager) Clear() int {
	m.mu.Lock()
	n := len(m.entries)
	for fp, e := range m.entries {
		e.h.cancelWith(ReasonCleared)
		delete(m.entries, fp)
	}
	m.mu.Unlock()

	m.metrics.DedupCleared(n)
	m.metrics.DedupSetInFlight(0)
	return n
}

// Len returns the number of tracked in-flight requests.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func pathOf(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		return u.Path
	}
	return raw
}
