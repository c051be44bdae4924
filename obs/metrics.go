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
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds the reqflow collectors. A nil *Metrics is valid and records
// nothing, so components can take one unconditionally.
type Metrics struct {
	DedupBeginTotal      *prometheus.CounterVec // tracked=true|false
	DedupSupersededTotal prometheus.Counter
	DedupSweptTotal      prometheus.Counter
	DedupClearedTotal    prometheus.Counter
	DedupInFlight        prometheus.Gauge

	RefreshFlightsTotal prometheus.Counter
	RefreshJoinsTotal   prometheus.Counter
	RefreshResultTotal  *prometheus.CounterVec // result=success|failure|timeout
	RefreshLatencyMS    prometheus.Histogram

	RetriedTotal *prometheus.CounterVec // transport=http|grpc
	HandledTotal *prometheus.CounterVec // kind=NETWORK|...|UNKNOWN
}

// NewMetrics builds the collectors and registers them on reg. A nil reg
// leaves them unregistered, which is what tests usually want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DedupBeginTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_dedup_begin_total",
				Help: "Total requests seen by the deduplication manager",
			},
			[]string{"tracked"},
		),
		DedupSupersededTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reqflow_dedup_superseded_total",
			Help: "Total in-flight requests cancelled by a newer identical request",
		}),
		DedupSweptTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reqflow_dedup_swept_total",
			Help: "Total stale in-flight entries cancelled by the sweeper",
		}),
		DedupClearedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reqflow_dedup_cleared_total",
			Help: "Total in-flight entries cancelled by Clear",
		}),
		DedupInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reqflow_dedup_inflight",
			Help: "Number of tracked in-flight requests",
		}),
		RefreshFlightsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reqflow_refresh_flights_total",
			Help: "Total token refresh exchanges started",
		}),
		RefreshJoinsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reqflow_refresh_joins_total",
			Help: "Total callers that joined an already running refresh",
		}),
		RefreshResultTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_refresh_result_total",
				Help: "Total settled refresh exchanges by result",
			},
			[]string{"result"},
		),
		RefreshLatencyMS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reqflow_refresh_latency_ms",
			Help:    "Latency of token refresh exchanges (ms)",
			Buckets: prometheus.ExponentialBuckets(1, 2, 15), // 1ms .. ~16s
		}),
		RetriedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_retried_total",
				Help: "Total requests retried once after a token refresh",
			},
			[]string{"transport"},
		),
		HandledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_errors_handled_total",
				Help: "Total terminal errors dispatched, by kind",
			},
			[]string{"kind"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.DedupBeginTotal,
			m.DedupSupersededTotal,
			m.DedupSweptTotal,
			m.DedupClearedTotal,
			m.DedupInFlight,
			m.RefreshFlightsTotal,
			m.RefreshJoinsTotal,
			m.RefreshResultTotal,
			m.RefreshLatencyMS,
			m.RetriedTotal,
			m.HandledTotal,
		)
	}
	return m
}

func (m *Metrics) DedupBegin(tracked bool) {
	if m == nil {
		return
	}
	m.DedupBeginTotal.WithLabelValues(strconv.FormatBool(tracked)).Inc()
}

func (m *Metrics) DedupSuperseded() {
	if m == nil {
		return
	}
	m.DedupSupersededTotal.Inc()
}

func (m *Metrics) DedupSwept(n int) {
	if m == nil || n == 0 {
		return
	}
	m.DedupSweptTotal.Add(float64(n))
}

func (m *Metrics) DedupCleared(n int) {
	if m == nil || n == 0 {
		return
	}
	m.DedupClearedTotal.Add(float64(n))
}

func (m *Metrics) DedupSetInFlight(n int) {
	if m == nil {
		return
	}
	m.DedupInFlight.Set(float64(n))
}

func (m *Metrics) RefreshStarted() {
	if m == nil {
		return
	}
	m.RefreshFlightsTotal.Inc()
}

func (m *Metrics) RefreshJoined() {
	if m == nil {
		return
	}
	m.RefreshJoinsTotal.Inc()
}

// RefreshSettled records the outcome of one exchange; result is one of
// "success", "failure" or "timeout".
func (m *Metrics) RefreshSettled(result string, latencyMS float64) {
	if m == nil {
		return
	}
	m.RefreshResultTotal.WithLabelValues(result).Inc()
	m.RefreshLatencyMS.Observe(latencyMS)
}

func (m *Metrics) Retried(transport string) {
	if m == nil {
		return
	}
	m.RetriedTotal.WithLabelValues(transport).Inc()
}

func (m *Metrics) Handled(kind string) {
	if m == nil {
		return
	}
	m.HandledTotal.WithLabelValues(kind).Inc()
}

// WriteCounters writes every non-zero counter gathered from g, one
// "name{label="value"} n" line each, in the gatherer's order.
func WriteCounters(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		for _, m := range mf.GetMetric() {
			v := m.GetCounter().GetValue()
			if v == 0 {
				continue
			}
			if _, err := fmt.Fprintf(w, "%s%s %s\n", mf.GetName(), labelString(m.GetLabel()), strconv.FormatFloat(v, 'f', -1, 64)); err != nil {
				return err
			}
		}
	}
	return nil
}

func labelString(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, lp := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
