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

// Package refresh serializes credential renewal for one client session.
//
// When an access token expires, every request in flight discovers it at
// about the same time. The Coordinator makes sure exactly one refresh
// exchange runs for all of them: the first caller starts it, later callers
// join it, and when it settles every joiner is resumed, in the order it
// joined, with the same new token or the same error.
//
// The exchange is raced against a hard timeout (10s by default). A result
// that arrives after the timeout is discarded: it is neither stored nor
// delivered.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dirpx.dev/reqflow/apperr"
	"dirpx.dev/reqflow/code"
	"dirpx.dev/reqflow/obs"
	"dirpx.dev/reqflow/store"
	"github.com/google/uuid"
)

// DefaultTimeout is the hard ceiling of one refresh exchange.
const DefaultTimeout = 10 * time.Second

var (
	// ErrClosed is returned by Refresh after Close, and delivered to the
	// joiners of a flight interrupted by Close.
	ErrClosed = errors.New("refresh: coordinator closed")

	// ErrNilExchange is returned when Refresh is called without an exchange.
	ErrNilExchange = errors.New("refresh: nil exchange function")
)

// ExchangeFunc trades a refresh token for a new pair of tokens. It must
// honour ctx: the context is cancelled when the timeout fires or the
// coordinator closes. An empty Refresh in the result keeps the stored
// refresh token.
type ExchangeFunc func(ctx context.Context, refreshToken string) (store.Tokens, error)

type result struct {
	token string
	err   error
}

type waiter struct {
	seq int
	ch  chan result
}

type flight struct {
	id      uuid.UUID
	waiters []waiter
}

// Coordinator runs at most one refresh exchange at a time. It is safe for
// concurrent use; construct one per client session and Close it at
// teardown.
type Coordinator struct {
	mu     sync.Mutex
	flight *flight
	closed bool

	store   store.TokenStore
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
	metrics *obs.Metrics

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// afterNotify, when set, observes every delivery in order.
	afterNotify func(seq int)
}

// New returns an idle Coordinator persisting to st.
func New(st store.TokenStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   st,
		timeout: DefaultTimeout,
		now:     time.Now,
		logger:  obs.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.base, c.cancel = context.WithCancel(context.Background())
	return c
}

// Refresh returns a fresh access token.
//
// If no refresh is running, Refresh starts one with exchange; otherwise it
// joins the running one and exchange is ignored. Either way the caller
// blocks until the shared exchange settles or ctx is done. A caller whose
// ctx ends stops waiting but does not cancel the shared exchange.
//
// On failure every joiner receives the same *apperr.Error:
//   - AUTHENTICATION with code TOKEN_REFRESH_FAILED when the exchange fails;
//   - AUTHENTICATION with code TOKEN_REFRESH_TIMEOUT when it does not settle
//     in time;
//   - AUTHENTICATION with code NO_REFRESH_TOKEN when none is stored;
//   - UNKNOWN with code STORAGE_ERROR when the store fails.
//
// Stored credentials change only on success.
func (c *Coordinator) Refresh(ctx context.Context, exchange ExchangeFunc) (string, error) {
	if exchange == nil {
		return "", ErrNilExchange
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}
	f := c.flight
	starting := f == nil
	if starting {
		f = &flight{id: uuid.New()}
		c.flight = f
	}
	w := waiter{seq: len(f.waiters), ch: make(chan result, 1)}
	f.waiters = append(f.waiters, w)
	if starting {
		c.wg.Add(1)
	}
	c.mu.Unlock()

	if starting {
		c.metrics.RefreshStarted()
		go c.run(f, exchange)
	} else {
		c.metrics.RefreshJoined()
	}

	select {
	case r := <-w.ch:
		return r.token, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// IsRefreshing reports whether an exchange is in flight.
func (c *Coordinator) IsRefreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flight != nil
}

// Close cancels any running exchange, fails its joiners with ErrClosed and
// makes further Refresh calls fail. It waits for the running flight to
// settle. Close is idempotent.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	return nil
}

func (c *Coordinator) run(f *flight, exchange ExchangeFunc) {
	defer c.wg.Done()

	start := c.now()
	res, outcome := c.exchange(exchange)
	elapsed := c.now().Sub(start)

	// back to idle before anyone is resumed, so a resumed caller can start
	// the next flight
	c.mu.Lock()
	waiters := f.waiters
	c.flight = nil
	c.mu.Unlock()

	for _, w := range waiters {
		w.ch <- res
		if c.afterNotify != nil {
			c.afterNotify(w.seq)
		}
	}

	c.metrics.RefreshSettled(outcome, float64(elapsed.Milliseconds()))
	attrs := []any{
		"flight", f.id.String(),
		"joiners", len(waiters),
		"outcome", outcome,
		"latency_ms", elapsed.Milliseconds(),
	}
	if res.err != nil {
		c.logger.Warn("token refresh failed", append(attrs, "err", res.err)...)
		return
	}
	c.logger.Info("token refreshed", attrs...)
}

func (c *Coordinator) exchange(exchange ExchangeFunc) (result, string) {
	prev, err := c.store.Tokens(c.base)
	if err != nil {
		return result{err: storageError(err)}, "failure"
	}
	if prev.Refresh == "" {
		return result{err: apperr.NewAuthentication("no refresh token",
			apperr.WithCodeOption(code.NoRefreshToken),
		)}, "failure"
	}

	ctx, cancel := context.WithTimeout(c.base, c.timeout)
	defer cancel()

	type reply struct {
		t   store.Tokens
		err error
	}
	done := make(chan reply, 1)
	go func() {
		t, err := exchange(ctx, prev.Refresh)
		done <- reply{t, err}
	}()

	select {
	case r := <-done:
		if r.err == nil && ctx.Err() != nil {
			// settled together with the deadline; the deadline wins
			r.err = ctx.Err()
		}
		if r.err != nil {
			if c.base.Err() != nil {
				return result{err: ErrClosed}, "failure"
			}
			if errors.Is(r.err, context.DeadlineExceeded) {
				return result{err: timeoutError(c.timeout)}, "timeout"
			}
			return result{err: apperr.NewAuthentication("token refresh failed",
				apperr.WithCodeOption(code.RefreshFailed),
				apperr.WithCauseOption(r.err),
			)}, "failure"
		}
		if r.t.Access == "" {
			return result{err: apperr.NewAuthentication("token refresh returned no access token",
				apperr.WithCodeOption(code.RefreshFailed),
			)}, "failure"
		}
		if r.t.Refresh == "" {
			r.t.Refresh = prev.Refresh
		}
		if err := c.store.SetTokens(c.base, r.t); err != nil {
			return result{err: storageError(err)}, "failure"
		}
		return result{token: r.t.Access}, "success"

	case <-ctx.Done():
		// the exchange goroutine may still deliver into done; nobody reads it
		if c.base.Err() != nil {
			return result{err: ErrClosed}, "failure"
		}
		return result{err: timeoutError(c.timeout)}, "timeout"
	}
}

func timeoutError(d time.Duration) *apperr.Error {
	return apperr.NewAuthentication(fmt.Sprintf("token refresh timed out after %s", d),
		apperr.WithCodeOption(code.RefreshTimeout),
		apperr.WithCauseOption(context.DeadlineExceeded),
	)
}

func storageError(err error) *apperr.Error {
	return apperr.NewUnknown("",
		apperr.WithCodeOption(code.Storage),
		apperr.WithCauseOption(err),
	)
}
