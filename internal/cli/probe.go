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

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dirpx.dev/reqflow"
	"dirpx.dev/reqflow/apperr"
	"dirpx.dev/reqflow/config"
	"dirpx.dev/reqflow/dedup"
	"dirpx.dev/reqflow/dispatch"
	"dirpx.dev/reqflow/obs"
)

type probeFlags struct {
	count   int
	baseURL string
	params  []string
	timeout time.Duration
}

// probeResult tallies the outcomes of one burst.
type probeResult struct {
	mu         sync.Mutex
	completed  int
	superseded int
	failed     map[apperr.Kind]int
}

func (r *probeResult) record(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch ce, ok := dedup.AsCanceled(err); {
	case err == nil:
		r.completed++
	case ok && ce.Reason == dedup.ReasonSuperseded:
		r.superseded++
	default:
		r.failed[apperr.KindOf(err)]++
	}
}

func probeCmd(env *Env, load func() (config.Config, error)) *cobra.Command {
	var f probeFlags
	cmd := &cobra.Command{
		Use:   "probe <path>",
		Short: "Fire a burst of identical GET requests",
		Long: `Fire --count identical GET requests at once through a reqflow
session and report how many completed, how many were superseded by a
later duplicate, and how many failed, by error kind.`,
		Example: `  reqflow probe /api/tasks --param page=1 --count 5
  reqflow probe /api/projects --base-url http://localhost:8080`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runProbe(cmd.Context(), env, cfg, args[0], f)
		},
	}
	cmd.Flags().IntVarP(&f.count, "count", "n", 5, "number of identical requests")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "API base URL (default: api.base_url from the configuration)")
	cmd.Flags().StringArrayVarP(&f.params, "param", "p", nil, "query parameter as key=value, repeatable")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 30*time.Second, "overall deadline of the burst")
	return cmd
}

func runProbe(ctx context.Context, env *Env, cfg config.Config, path string, f probeFlags) error {
	if f.count < 1 {
		return fmt.Errorf("--count must be at least 1")
	}
	base := f.baseURL
	if base == "" {
		base = cfg.API.BaseURL
	}
	if base == "" {
		return errors.New("no base URL: set --base-url or api.base_url")
	}
	query := url.Values{}
	for _, p := range f.params {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return fmt.Errorf("--param %q: want key=value", p)
		}
		query.Add(k, v)
	}

	logger, err := obs.NewLogger(env.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	s, err := reqflow.Open(ctx, cfg,
		reqflow.WithLogger(logger),
		reqflow.WithMetrics(obs.NewMetrics(reg)),
		reqflow.WithHandlerOptions(dispatch.WithNotifier(dispatch.LogNotifier{Logger: logger})),
	)
	if err != nil {
		return err
	}
	defer s.Close()

	api, err := s.HTTPClient(base)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	res := &probeResult{failed: map[apperr.Kind]int{}}
	var g errgroup.Group
	for i := 0; i < f.count; i++ {
		g.Go(func() error {
			res.record(api.Get(ctx, path, query, nil))
			return nil
		})
	}
	_ = g.Wait()

	fmt.Fprintf(env.Stdout, "requests:   %d\n", f.count)
	fmt.Fprintf(env.Stdout, "completed:  %d\n", res.completed)
	fmt.Fprintf(env.Stdout, "superseded: %d\n", res.superseded)
	for _, k := range apperr.Kinds() {
		if n := res.failed[k]; n > 0 {
			fmt.Fprintf(env.Stdout, "failed %s: %d\n", k, n)
		}
	}
	fmt.Fprintln(env.Stdout, "counters:")
	return obs.WriteCounters(env.Stdout, reg)
}
