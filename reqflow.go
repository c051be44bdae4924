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

// Package reqflow coordinates the lifecycle of API requests made by a
// client session.
//
// A Session owns one of each coordinator and is the façade the transport
// glue and application code talk to:
//
//   - dedup.Manager cancels a request when an identical one is issued
//     before it finished, and sweeps requests that never finished;
//   - refresh.Coordinator runs at most one token refresh at a time and
//     hands its outcome to every request that hit 401 meanwhile;
//   - dispatch.Handler turns any failure into one user notice, the
//     recovery step of its kind, and a report.
//
// Typical use:
//
//	s, err := reqflow.Open(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	s.Start(ctx)
//
//	api, err := s.HTTPClient(cfg.API.BaseURL)
//	...
//	if err := api.Get(ctx, "/api/tasks", q, &tasks); err != nil {
//	    return s.Wrap(ctx, err, "load task list")
//	}
package reqflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"google.golang.org/grpc"

	"dirpx.dev/reqflow/dedup"
	"dirpx.dev/reqflow/dispatch"
	"dirpx.dev/reqflow/grpcx"
	"dirpx.dev/reqflow/httpx"
	"dirpx.dev/reqflow/mapper"
	"dirpx.dev/reqflow/obs"
	"dirpx.dev/reqflow/refresh"
	"dirpx.dev/reqflow/store"
)

// ErrNoExchange is returned by RefreshToken when neither the caller nor
// the session supplies an exchange function.
var ErrNoExchange = errors.New("reqflow: no refresh exchange configured")

// Session is one client session. It is safe for concurrent use.
type Session struct {
	store    store.TokenStore
	dedup    *dedup.Manager
	refresh  *refresh.Coordinator
	handler  *dispatch.Handler
	mapper   *mapper.Mapper
	exchange refresh.ExchangeFunc
	dev      bool
	logger   *slog.Logger
	metrics  *obs.Metrics
	closers  []io.Closer

	mu      sync.Mutex
	stop    context.CancelFunc
	sweeper sync.WaitGroup
	closed  bool
}

// New builds a Session. Without WithStore credentials live in memory.
func New(opts ...Option) (*Session, error) {
	o := &options{logger: obs.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = store.NewMemory(store.Tokens{})
	}

	s := &Session{
		store:    o.store,
		exchange: o.exchange,
		dev:      o.dev,
		logger:   o.logger,
		metrics:  o.metrics,
		closers:  o.closers,
	}

	var err error
	s.dedup, err = dedup.NewManager(append([]dedup.Option{
		dedup.WithLogger(o.logger),
		dedup.WithMetrics(o.metrics),
	}, o.dedup...)...)
	if err != nil {
		return nil, err
	}

	s.mapper = o.mapper
	if s.mapper == nil {
		if s.mapper, err = mapper.New(o.mapperOpts...); err != nil {
			return nil, err
		}
	}

	s.refresh = refresh.New(s.store, append([]refresh.Option{
		refresh.WithLogger(o.logger),
		refresh.WithMetrics(o.metrics),
	}, o.refresh...)...)

	s.handler = dispatch.NewHandler(append([]dispatch.Option{
		dispatch.WithCredentialStore(s.store),
		dispatch.WithDevelopment(o.dev),
		dispatch.WithLogger(o.logger),
		dispatch.WithMetrics(o.metrics),
	}, o.handler...)...)

	return s, nil
}

// BeginRequest registers a request and returns its handle; see
// dedup.Manager.Begin.
func (s *Session) BeginRequest(ctx context.Context, d dedup.Descriptor) *dedup.Handle {
	return s.dedup.Begin(ctx, d)
}

// EndRequest removes the in-flight entry for d; see dedup.Manager.End.
func (s *Session) EndRequest(d dedup.Descriptor) {
	s.dedup.End(d)
}

// Release ends the request of h without touching a newer identical
// request; see dedup.Manager.Release.
func (s *Session) Release(h *dedup.Handle) {
	s.dedup.Release(h)
}

// RefreshToken returns a fresh access token, starting or joining the
// session's single refresh flight. A nil exchange uses the session's.
func (s *Session) RefreshToken(ctx context.Context, exchange refresh.ExchangeFunc) (string, error) {
	if exchange == nil {
		exchange = s.exchange
	}
	if exchange == nil {
		return "", ErrNoExchange
	}
	return s.refresh.Refresh(ctx, exchange)
}

// IsRefreshing reports whether a refresh flight is in progress.
func (s *Session) IsRefreshing() bool { return s.refresh.IsRefreshing() }

// ClassifyAndHandle dispatches err to the session's handler. tag labels
// the failing operation in logs and reports.
func (s *Session) ClassifyAndHandle(ctx context.Context, err error, tag string) {
	s.handler.Handle(ctx, err, tag)
}

// Wrap is ClassifyAndHandle that returns err unchanged.
func (s *Session) Wrap(ctx context.Context, err error, tag string) error {
	return s.handler.Wrap(ctx, err, tag)
}

// Start runs the stale request sweeper until ctx is done or the session
// is closed. Calling Start again while it runs is a no-op.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.stop != nil {
		return
	}
	ctx, s.stop = context.WithCancel(ctx)
	s.sweeper.Add(1)
	go func() {
		defer s.sweeper.Done()
		s.dedup.Run(ctx)
	}()
}

// Transport returns an http.RoundTripper over base wired to the session:
// deduplication, bearer injection and refresh-and-retry.
func (s *Session) Transport(base http.RoundTripper) *httpx.Transport {
	opts := []httpx.TransportOption{
		httpx.WithBase(base),
		httpx.WithDedup(s.dedup),
		httpx.WithTokens(s.store),
		httpx.WithRequestLogging(s.dev),
		httpx.WithTransportLogger(s.logger),
		httpx.WithTransportMetrics(s.metrics),
	}
	if s.exchange != nil {
		opts = append(opts, httpx.WithRefresh(s.refresh, s.exchange))
	}
	return httpx.NewTransport(opts...)
}

// HTTPClient returns an envelope client for the API at baseURL whose
// failures are dispatched to the session's handler.
func (s *Session) HTTPClient(baseURL string, opts ...httpx.ClientOption) (*httpx.Client, error) {
	return httpx.NewClient(baseURL, append([]httpx.ClientOption{
		httpx.WithTransport(s.Transport(nil)),
		httpx.WithMapper(s.mapper),
		httpx.WithHandler(s.handler),
		httpx.WithResponseLogging(s.dev),
		httpx.WithClientLogger(s.logger),
	}, opts...)...)
}

// UnaryClientInterceptor returns the gRPC interceptor wired to the session.
func (s *Session) UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	opts := []grpcx.Option{
		grpcx.WithDedup(s.dedup),
		grpcx.WithTokens(s.store),
		grpcx.WithMapper(s.mapper),
		grpcx.WithLogger(s.logger),
		grpcx.WithMetrics(s.metrics),
	}
	if s.exchange != nil {
		opts = append(opts, grpcx.WithRefresh(s.refresh, s.exchange))
	}
	return grpcx.UnaryClientInterceptor(opts...)
}

func (s *Session) Store() store.TokenStore         { return s.store }
func (s *Session) Dedup() *dedup.Manager           { return s.dedup }
func (s *Session) Refresher() *refresh.Coordinator { return s.refresh }
func (s *Session) Handler() *dispatch.Handler      { return s.handler }
func (s *Session) Mapper() *mapper.Mapper          { return s.mapper }

// Close tears the session down: the sweeper stops, every tracked request
// is cancelled with dedup.ReasonCleared, a running refresh is abandoned, a
// pending login redirect is cancelled, and stores opened by the session
// are closed. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stop := s.stop
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.sweeper.Wait()

	if n := s.dedup.Clear(); n > 0 {
		s.logger.Debug("in-flight requests cleared", "count", n)
	}
	errs := []error{s.refresh.Close(), s.handler.Close()}
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
