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
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"dirpx.dev/reqflow/apperr"
	"dirpx.dev/reqflow/code"
	"dirpx.dev/reqflow/dedup"
	"dirpx.dev/reqflow/mapper"
	"dirpx.dev/reqflow/obs"
	"dirpx.dev/reqflow/refresh"
	"dirpx.dev/reqflow/store"
)

// Transport is the reqflow http.RoundTripper. The zero value is not
// usable; construct it with NewTransport.
type Transport struct {
	base      http.RoundTripper
	dedup     *dedup.Manager
	refresher *refresh.Coordinator
	exchange  refresh.ExchangeFunc
	tokens    store.TokenStore
	dev       bool
	logger    *slog.Logger
	metrics   *obs.Metrics
}

// NewTransport builds a Transport. Without WithDedup requests are not
// deduplicated; without WithRefresh a 401 response is returned as is.
func NewTransport(opts ...TransportOption) *Transport {
	t := &Transport{
		base:   http.DefaultTransport,
		logger: obs.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip sends req.
//
// When deduplication is enabled the request runs under a dedup handle: an
// identical request issued later cancels this one, and the error returned
// then is a *dedup.CanceledError. The handle is released when the response
// body is closed.
//
// A 401 response triggers one shared token refresh and one retry with the
// new token. If the refresh fails its *apperr.Error is returned. If the
// retry is rejected with 401 again the session is considered expired.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	body, err := readBody(req)
	if err != nil {
		return nil, err
	}

	if t.dedup == nil {
		return t.send(req.Context(), req, body)
	}

	d := dedup.Descriptor{Method: req.Method, URL: req.URL.String()}
	if len(body) > 0 {
		d.Body = body
	}
	h := t.dedup.Begin(req.Context(), d)

	resp, err := t.send(h.Context(), req, body)
	if err != nil {
		err = h.Outcome(err)
		t.dedup.Release(h)
		return nil, err
	}
	resp.Body = &handleBody{ReadCloser: resp.Body, h: h, release: func() { t.dedup.Release(h) }}
	return resp, nil
}

func (t *Transport) send(ctx context.Context, req *http.Request, body []byte) (*http.Response, error) {
	resp, err := t.attempt(ctx, req, body, "")
	if err != nil || resp.StatusCode != http.StatusUnauthorized || t.refresher == nil {
		return resp, err
	}
	discard(resp.Body)

	token, err := t.refresher.Refresh(ctx, t.exchange)
	if err != nil {
		return nil, err
	}
	t.metrics.Retried("http")

	resp, err = t.attempt(ctx, req, body, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		discard(resp.Body)
		return nil, apperr.NewAuthentication("session expired, please sign in again",
			apperr.WithCodeOption(code.SessionExpired),
			apperr.WithDetailOption(mapper.DetailRoute, req.URL.Path),
		)
	}
	return resp, nil
}

// attempt sends one copy of req. An empty token means the stored access
// token.
func (t *Transport) attempt(ctx context.Context, req *http.Request, body []byte, token string) (*http.Response, error) {
	r := req.Clone(ctx)
	if body != nil {
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.ContentLength = int64(len(body))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}

	if token == "" && t.tokens != nil {
		tk, err := t.tokens.Tokens(ctx)
		if err != nil {
			return nil, apperr.NewUnknown("", apperr.WithCodeOption(code.Storage), apperr.WithCauseOption(err))
		}
		token = tk.Access
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	if t.dev {
		t.logger.Debug("api request", "method", r.Method, "url", r.URL.String(), "bytes", len(body))
	}
	return t.base.RoundTrip(r)
}

func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	return io.ReadAll(req.Body)
}

func discard(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, maxErrorBody))
	_ = rc.Close()
}

// handleBody ties a response body to its dedup handle: read errors caused
// by the handle's cancellation carry the reason, and Close releases it.
type handleBody struct {
	io.ReadCloser
	h       *dedup.Handle
	once    sync.Once
	release func()
}

func (b *handleBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err != nil && err != io.EOF {
		err = b.h.Outcome(err)
	}
	return n, err
}

func (b *handleBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)
	return err
}
