// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics keeps per-series counters of a pipeline run: window
// outcomes, malformed envelopes, missing values and produced rows. A run is a
// batch job, so the counters are exported as a Prometheus textfile rather than
// served over HTTP.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stockparfait/errors"
)

type contextKey int

const (
	metricsContextKey contextKey = iota
)

// Window outcome label values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
	StatusEmpty  = "empty"
)

// Metrics of a single pipeline run, registered in their own registry.
type Metrics struct {
	Registry           *prometheus.Registry
	Windows            *prometheus.CounterVec // labels: series, status
	MalformedEnvelopes *prometheus.CounterVec // labels: series
	MissingValues      *prometheus.CounterVec // labels: series, column
	SkippedRecords     *prometheus.CounterVec // labels: series
	Rows               *prometheus.GaugeVec   // labels: series
}

// New creates a fresh set of metrics with a new registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Windows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "macro_windows_total",
			Help: "API calls by outcome, one per time window",
		}, []string{"series", "status"}),
		MalformedEnvelopes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "macro_malformed_envelopes_total",
			Help: "Responses without the expected envelope structure",
		}, []string{"series"}),
		MissingValues: f.NewCounterVec(prometheus.CounterOpts{
			Name: "macro_missing_values_total",
			Help: "Cells set to the missing-value marker, by column",
		}, []string{"series", "column"}),
		SkippedRecords: f.NewCounterVec(prometheus.CounterOpts{
			Name: "macro_skipped_records_total",
			Help: "Records dropped for lack of a valid time key",
		}, []string{"series"}),
		Rows: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "macro_rows",
			Help: "Rows in the last written table of a series",
		}, []string{"series"}),
	}
}

// discard collects metrics when the context has none, so that callers never
// need to check for nil.
var discard = New()

// Use injects the metrics into the context.
func Use(ctx context.Context, m *Metrics) context.Context {
	return context.WithValue(ctx, metricsContextKey, m)
}

// Get extracts the metrics from the context. It never returns nil.
func Get(ctx context.Context) *Metrics {
	m, ok := ctx.Value(metricsContextKey).(*Metrics)
	if !ok || m == nil {
		return discard
	}
	return m
}

// WriteTextfile writes all the metrics in the Prometheus text format, e.g. for
// the node exporter's textfile collector.
func (m *Metrics) WriteTextfile(fileName string) error {
	return errors.Annotate(prometheus.WriteToTextfile(fileName, m.Registry),
		"failed to write metrics to '%s'", fileName)
}
