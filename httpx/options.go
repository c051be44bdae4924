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

package httpx

import (
	"log/slog"
	"net/http"

	"dirpx.dev/reqflow/dedup"
	"dirpx.dev/reqflow/dispatch"
	"dirpx.dev/reqflow/mapper"
	"dirpx.dev/reqflow/obs"
	"dirpx.dev/reqflow/refresh"
	"dirpx.dev/reqflow/store"
)

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithBase sets the underlying round tripper. Defaults to
// http.DefaultTransport.
func WithBase(rt http.RoundTripper) TransportOption {
	return func(t *Transport) {
		if rt != nil {
			t.base = rt
		}
	}
}

// WithDedup enables request deduplication through m.
func WithDedup(m *dedup.Manager) TransportOption {
	return func(t *Transport) { t.dedup = m }
}

// WithRefresh enables refresh-and-retry on 401 through c, using exchange
// to obtain new tokens.
func WithRefresh(c *refresh.Coordinator, exchange refresh.ExchangeFunc) TransportOption {
	return func(t *Transport) {
		t.refresher = c
		t.exchange = exchange
	}
}

// WithTokens sets the store the bearer token is read from.
func WithTokens(st store.TokenStore) TransportOption {
	return func(t *Transport) { t.tokens = st }
}

// WithRequestLogging logs every outgoing request at debug level.
func WithRequestLogging(on bool) TransportOption {
	return func(t *Transport) { t.dev = on }
}

func WithTransportLogger(l *slog.Logger) TransportOption {
	return func(t *Transport) {
		if l != nil {
			t.logger = l
		}
	}
}

func WithTransportMetrics(m *obs.Metrics) TransportOption {
	return func(t *Transport) { t.metrics = m }
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its transport should
// be a *Transport for deduplication and refresh to apply.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTransport uses t under a default http.Client.
func WithTransport(t *Transport) ClientOption {
	return func(c *Client) {
		if t != nil {
			c.http = &http.Client{Transport: t}
		}
	}
}

// WithMapper sets the status mapper. Defaults to mapper.MustNew().
func WithMapper(m *mapper.Mapper) ClientOption {
	return func(c *Client) { c.mapper = m }
}

// WithHandler hands every failure to h before returning it.
func WithHandler(h *dispatch.Handler) ClientOption {
	return func(c *Client) { c.handler = h }
}

// WithResponseLogging logs every successful response at debug level.
func WithResponseLogging(on bool) ClientOption {
	return func(c *Client) { c.dev = on }
}

func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
