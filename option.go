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

package reqflow

import (
	"io"
	"log/slog"

	"dirpx.dev/reqflow/dedup"
	"dirpx.dev/reqflow/dispatch"
	"dirpx.dev/reqflow/mapper"
	"dirpx.dev/reqflow/obs"
	"dirpx.dev/reqflow/refresh"
	"dirpx.dev/reqflow/store"
)

type options struct {
	store      store.TokenStore
	exchange   refresh.ExchangeFunc
	dedup      []dedup.Option
	refresh    []refresh.Option
	handler    []dispatch.Option
	mapper     *mapper.Mapper
	mapperOpts []mapper.Option
	dev        bool
	logger     *slog.Logger
	metrics    *obs.Metrics
	closers    []io.Closer
}

// Option configures a Session.
type Option func(*options)

// WithStore sets the credential store.
func WithStore(st store.TokenStore) Option {
	return func(o *options) { o.store = st }
}

// WithExchange sets the default refresh exchange, used by RefreshToken
// and by the transport glue on 401.
func WithExchange(fn refresh.ExchangeFunc) Option {
	return func(o *options) { o.exchange = fn }
}

func WithDedupOptions(opts ...dedup.Option) Option {
	return func(o *options) { o.dedup = append(o.dedup, opts...) }
}

func WithRefreshOptions(opts ...refresh.Option) Option {
	return func(o *options) { o.refresh = append(o.refresh, opts...) }
}

func WithHandlerOptions(opts ...dispatch.Option) Option {
	return func(o *options) { o.handler = append(o.handler, opts...) }
}

// WithMapper sets a prebuilt mapper; it takes precedence over
// WithMapperOptions.
func WithMapper(m *mapper.Mapper) Option {
	return func(o *options) { o.mapper = m }
}

func WithMapperOptions(opts ...mapper.Option) Option {
	return func(o *options) { o.mapperOpts = append(o.mapperOpts, opts...) }
}

// WithDevelopment enables request, response and handled-error logging.
func WithDevelopment(dev bool) Option {
	return func(o *options) { o.dev = dev }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithMetrics(m *obs.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// withCloser registers a resource the session closes on Close.
func withCloser(c io.Closer) Option {
	return func(o *options) { o.closers = append(o.closers, c) }
}
