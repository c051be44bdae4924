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

// Package grpcx is the gRPC glue of reqflow: a unary client interceptor
// that applies the same request lifecycle as the HTTP transport.
//
// Calls carry the stored access token as "authorization: Bearer <token>"
// metadata. An Unauthenticated status triggers one shared token refresh and
// a single retry. Methods opted in through dedup route rules are
// deduplicated by method and deterministic proto encoding of the request.
// Every failure except cancellation leaves the interceptor as an
// *apperr.Error.
package grpcx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"dirpx.dev/reqflow/apperr"
	"dirpx.dev/reqflow/code"
	"dirpx.dev/reqflow/dedup"
	"dirpx.dev/reqflow/mapper"
	"dirpx.dev/reqflow/obs"
	"dirpx.dev/reqflow/refresh"
	"dirpx.dev/reqflow/store"
)

// AuthorizationKey is the metadata key the bearer token is sent under.
const AuthorizationKey = "authorization"

type interceptor struct {
	dedup     *dedup.Manager
	refresher *refresh.Coordinator
	exchange  refresh.ExchangeFunc
	tokens    store.TokenStore
	mapper    *mapper.Mapper
	logger    *slog.Logger
	metrics   *obs.Metrics
}

// Option configures the interceptor.
type Option func(*interceptor)

// WithDedup deduplicates calls through m. Only methods with a track route
// rule on m are affected.
func WithDedup(m *dedup.Manager) Option {
	return func(i *interceptor) { i.dedup = m }
}

// WithRefresh enables refresh-and-retry on Unauthenticated.
func WithRefresh(c *refresh.Coordinator, exchange refresh.ExchangeFunc) Option {
	return func(i *interceptor) {
		i.refresher = c
		i.exchange = exchange
	}
}

// WithTokens sets the store the bearer token is read from.
func WithTokens(st store.TokenStore) Option {
	return func(i *interceptor) { i.tokens = st }
}

// WithMapper sets the status mapper. Defaults to mapper.MustNew().
func WithMapper(m *mapper.Mapper) Option {
	return func(i *interceptor) { i.mapper = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(i *interceptor) {
		if l != nil {
			i.logger = l
		}
	}
}

func WithMetrics(m *obs.Metrics) Option {
	return func(i *interceptor) { i.metrics = m }
}

// UnaryClientInterceptor returns the reqflow client interceptor.
func UnaryClientInterceptor(opts ...Option) grpc.UnaryClientInterceptor {
	i := &interceptor{logger: obs.Discard()}
	for _, opt := range opts {
		opt(i)
	}
	if i.mapper == nil {
		i.mapper = mapper.MustNew()
	}
	return i.intercept
}

func (i *interceptor) intercept(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
	var h *dedup.Handle
	if i.dedup != nil {
		h = i.dedup.Begin(ctx, dedup.Descriptor{Method: method, URL: method, Body: req})
		defer i.dedup.Release(h)
		ctx = h.Context()
	}

	err := i.call(ctx, method, req, reply, cc, invoker, callOpts)
	if err == nil {
		return nil
	}
	if h != nil {
		if ce, ok := h.Canceled(); ok {
			return ce
		}
	}
	// the caller may give up while waiting on a shared refresh
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", method, err)
	}
	if status.Code(err) == codes.Canceled {
		return fmt.Errorf("%s: %w", method, context.Canceled)
	}
	e := i.mapper.FromError(err, method)
	i.logger.Debug("grpc call failed", "method", method, "kind", e.Kind, "code", e.Code)
	return e
}

func (i *interceptor) call(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, callOpts []grpc.CallOption) error {
	token := ""
	if i.tokens != nil {
		tk, err := i.tokens.Tokens(ctx)
		if err != nil {
			return apperr.NewUnknown("", apperr.WithCodeOption(code.Storage), apperr.WithCauseOption(err))
		}
		token = tk.Access
	}

	err := invoker(withBearer(ctx, token), method, req, reply, cc, callOpts...)
	if status.Code(err) != codes.Unauthenticated || i.refresher == nil {
		return err
	}

	token, rerr := i.refresher.Refresh(ctx, i.exchange)
	if rerr != nil {
		return rerr
	}
	i.metrics.Retried("grpc")

	err = invoker(withBearer(ctx, token), method, req, reply, cc, callOpts...)
	if status.Code(err) == codes.Unauthenticated {
		return apperr.NewAuthentication("session expired, please sign in again",
			apperr.WithCodeOption(code.SessionExpired),
			apperr.WithDetailOption(mapper.DetailMethod, method),
			apperr.WithCauseOption(err),
		)
	}
	return err
}

func withBearer(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, AuthorizationKey, "Bearer "+token)
}
