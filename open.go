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
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"dirpx.dev/reqflow/config"
	"dirpx.dev/reqflow/dedup"
	"dirpx.dev/reqflow/dispatch"
	"dirpx.dev/reqflow/httpx"
	"dirpx.dev/reqflow/obs"
	"dirpx.dev/reqflow/refresh"
	"dirpx.dev/reqflow/store"
)

// Open builds a Session from a resolved configuration. Logs go to
// os.Stderr unless opts supply a logger; opts are applied after the
// configuration and win over it.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Session, error) {
	return open(ctx, cfg, os.Stderr, opts...)
}

func open(ctx context.Context, cfg config.Config, logOut io.Writer, opts ...Option) (*Session, error) {
	logger, err := obs.NewLogger(logOut, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithLogger(logger),
		WithDevelopment(cfg.Development()),
		WithDedupOptions(
			dedup.WithStaleAfter(cfg.Dedup.StaleAfter.Std()),
			dedup.WithSweepInterval(cfg.Dedup.SweepInterval.Std()),
		),
		WithRefreshOptions(refresh.WithTimeout(cfg.Refresh.Timeout.Std())),
		WithHandlerOptions(
			dispatch.WithLoginPath(cfg.Auth.LoginPath),
			dispatch.WithRedirectDelay(cfg.Auth.RedirectDelay.Std()),
			dispatch.WithReporter(reporterFor(cfg, logger)),
		),
	}
	for _, r := range cfg.Dedup.Routes {
		p, err := dedup.ParsePolicy(r.Policy)
		if err != nil {
			return nil, err
		}
		base = append(base, WithDedupOptions(dedup.WithRoute(r.Prefix, p)))
	}
	if cfg.API.BaseURL != "" {
		base = append(base, WithExchange(httpx.RefreshExchange(nil, cfg.API.BaseURL+cfg.API.RefreshPath)))
	}

	var sq *store.SQLite
	if cfg.Store.Driver == config.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o700); err != nil {
			return nil, fmt.Errorf("reqflow: store directory: %w", err)
		}
		sq, err = store.OpenSQLite(ctx, store.SQLiteConfig{Path: cfg.Store.Path})
		if err != nil {
			return nil, err
		}
		base = append(base, WithStore(sq), withCloser(sq))
	}

	s, err := New(append(base, opts...)...)
	if err != nil {
		if sq != nil {
			_ = sq.Close()
		}
		return nil, err
	}
	return s, nil
}

func reporterFor(cfg config.Config, logger *slog.Logger) dispatch.Reporter {
	if cfg.Environment == config.EnvProduction {
		return dispatch.LogReporter{Logger: logger}
	}
	return dispatch.NopReporter{}
}
