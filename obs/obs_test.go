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

package obs

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	lg, err := NewLogger(&buf, "warn", "json")
	require.NoError(t, err)

	lg.Info("dropped")
	lg.Warn("kept", "fingerprint", "abc")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "abc", rec["fingerprint"])
}

func TestNewLogger_Invalid(t *testing.T) {
	_, err := NewLogger(&bytes.Buffer{}, "loud", "")
	assert.Error(t, err)

	_, err = NewLogger(&bytes.Buffer{}, "", "xml")
	assert.Error(t, err)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.DedupBegin(true)
		m.DedupSuperseded()
		m.DedupSwept(2)
		m.DedupCleared(1)
		m.DedupSetInFlight(3)
		m.RefreshStarted()
		m.RefreshJoined()
		m.RefreshSettled("success", 12)
		m.Retried("http")
		m.Handled("NETWORK")
	})
}

func TestMetrics_RegisterAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.DedupBegin(true)
	m.DedupBegin(true)
	m.DedupBegin(false)
	m.Handled("AUTHENTICATION")
	m.DedupSetInFlight(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DedupBeginTotal.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DedupBeginTotal.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HandledTotal.WithLabelValues("AUTHENTICATION")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.DedupInFlight))

	// a second registration on the same registry must collide
	assert.Panics(t, func() { NewMetrics(reg) })
}

func TestWriteCounters_OnlyNonZero(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.DedupSuperseded()
	m.DedupSuperseded()
	m.Handled("AUTHORIZATION")
	m.DedupSetInFlight(3)

	var buf bytes.Buffer
	require.NoError(t, WriteCounters(&buf, reg))

	out := buf.String()
	assert.Contains(t, out, "reqflow_dedup_superseded_total 2\n")
	assert.Contains(t, out, `reqflow_errors_handled_total{kind="AUTHORIZATION"} 1`)
	assert.NotContains(t, out, "reqflow_dedup_inflight", "gauges are not counters")
	assert.NotContains(t, out, "reqflow_refresh_flights_total", "zero counters are skipped")
}
