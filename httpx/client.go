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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"dirpx.dev/reqflow/dedup"
	"dirpx.dev/reqflow/dispatch"
	"dirpx.dev/reqflow/mapper"
	"dirpx.dev/reqflow/obs"
)

// Client calls a JSON API that wraps its responses in an Envelope.
type Client struct {
	base    *url.URL
	http    *http.Client
	mapper  *mapper.Mapper
	handler *dispatch.Handler
	dev     bool
	logger  *slog.Logger
}

// NewClient builds a Client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("httpx: base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("httpx: base url %q must be absolute", baseURL)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Transport: NewTransport()},
		logger: obs.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.mapper == nil {
		c.mapper = mapper.MustNew()
	}
	return c, nil
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, in, out)
}

func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, in, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out)
}

// Do sends a request and decodes the envelope data into out.
//
// Transport, server and envelope failures are returned as *apperr.Error.
// Cancellation, including supersession by an identical request, is
// returned as is and satisfies errors.Is(err, context.Canceled). When the
// client has a dispatch.Handler, failures are also handed to it.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	err := c.do(ctx, method, path, query, in, out)
	if err != nil && c.handler != nil {
		c.handler.Handle(ctx, err, "API Response Error: "+path)
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("httpx: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("httpx: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return c.mapper.FromError(err, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, err := errorMessage(resp.Body)
		if ce := canceled(err); ce != nil {
			return ce
		}
		return c.mapper.FromHTTP(resp.StatusCode, path, msg)
	}
	if err := DecodeEnvelope(resp.Body, out); err != nil {
		if ce := canceled(err); ce != nil {
			return ce
		}
		return err
	}
	if c.dev {
		c.logger.Debug("api success", "method", method, "path", path, "status", resp.StatusCode)
	}
	return nil
}

// canceled returns the cancellation behind err, or nil. A body read cut
// short by supersession yields the *dedup.CanceledError.
func canceled(err error) error {
	var ce *dedup.CanceledError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	return nil
}
