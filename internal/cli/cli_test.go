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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/reqflow/config"
)

func testEnv(cfg config.Config, loadErr error) (*Env, *bytes.Buffer) {
	var out bytes.Buffer
	return &Env{
		Stdout: &out,
		Stderr: &bytes.Buffer{},
		LoadConfig: func(string, string) (config.Config, error) {
			return cfg, loadErr
		},
	}, &out
}

func run(env *Env, args ...string) error {
	cmd := RootCmd(env, "test")
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestConfigCmd_PrintsResolvedConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.LoginPath = "/signin"
	env, out := testEnv(cfg, nil)

	require.NoError(t, run(env, "config"))
	assert.Contains(t, out.String(), "login_path")
	assert.Contains(t, out.String(), "/signin")
}

func TestConfigCmd_PropagatesLoadError(t *testing.T) {
	env, _ := testEnv(config.Config{}, errors.New("invalid config"))
	assert.EqualError(t, run(env, "config"), "invalid config")
}

func TestProbeCmd_BurstKeepsOnlyTheLastRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(300 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 200, "data": []int{1}})
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.API.BaseURL = srv.URL
	env, out := testEnv(cfg, nil)

	require.NoError(t, run(env, "probe", "/api/tasks", "--param", "page=1", "--count", "3"))
	assert.Contains(t, out.String(), "requests:   3")
	assert.Contains(t, out.String(), "completed:  1")
	assert.Contains(t, out.String(), "superseded: 2")
	assert.Contains(t, out.String(), "reqflow_dedup_superseded_total 2\n")
	assert.Contains(t, out.String(), `reqflow_dedup_begin_total{tracked="true"} 3`)
}

func TestProbeCmd_ReportsFailuresByKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	env, out := testEnv(config.Default(), nil)
	require.NoError(t, run(env, "probe", "/api/admin", "--base-url", srv.URL, "-n", "1"))
	assert.Contains(t, out.String(), "failed AUTHORIZATION: 1")
	assert.Contains(t, out.String(), `reqflow_errors_handled_total{kind="AUTHORIZATION"} 1`)
}

func TestProbeCmd_Usage(t *testing.T) {
	env, _ := testEnv(config.Default(), nil)
	assert.Error(t, run(env, "probe", "/api/tasks"), "no base url")
	assert.Error(t, run(env, "probe", "/api/tasks", "--base-url", "http://localhost", "--param", "page"))
	assert.Error(t, run(env, "probe", "/api/tasks", "--base-url", "http://localhost", "--count", "0"))
	assert.Error(t, run(env, "probe"))
}
