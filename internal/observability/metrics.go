// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Simulation metrics
	RunsTotal         *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	FillsTotal        *prometheus.CounterVec
	PositionsOpened   prometheus.Counter
	TimestepsWalked   prometheus.Counter
	LastRunROI        *prometheus.GaugeVec
	LastRunFinalValue *prometheus.GaugeVec

	// Sweep metrics
	SweepCellsTotal *prometheus.CounterVec
	SweepInFlight   prometheus.Gauge
	SweepDuration   prometheus.Histogram

	// Ingest metrics
	PointsStored   *prometheus.CounterVec
	IngestErrors   *prometheus.CounterVec
	WSReconnects   prometheus.Counter
	WSMessageDelay prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with the default registerer.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates a Metrics instance registered with reg.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "ladder_lab"
	}
	f := promauto.With(reg)

	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_total",
			Help:      "Total number of simulator runs by status",
		}, []string{"status"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "run_duration_seconds",
			Help:      "Simulator run duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
		FillsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "fills_total",
			Help:      "Total number of exit fills by kind",
		}, []string{"kind"}),
		PositionsOpened: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "positions_opened_total",
			Help:      "Total number of positions opened",
		}),
		TimestepsWalked: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "timesteps_total",
			Help:      "Total number of price points walked",
		}),
		LastRunROI: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "last_run_roi_percent",
			Help:      "ROI of the most recent run per symbol",
		}, []string{"symbol"}),
		LastRunFinalValue: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "last_run_final_capital",
			Help:      "Final liquid capital of the most recent run per symbol",
		}, []string{"symbol"}),

		SweepCellsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "cells_total",
			Help:      "Total number of sweep cells by status",
		}, []string{"status"}),
		SweepInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "in_flight",
			Help:      "Number of sweep cells currently running",
		}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Sweep batch duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		PointsStored: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "points_stored_total",
			Help:      "Total number of price points stored by source",
		}, []string{"source"}),
		IngestErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "errors_total",
			Help:      "Total number of ingest errors by stage",
		}, []string{"stage"}),
		WSReconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "ws_reconnects_total",
			Help:      "Total number of trade stream reconnects",
		}),
		WSMessageDelay: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "ws_message_delay_seconds",
			Help:      "Delay between trade time and receipt in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful simulator run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RunSummary is what RecordRun needs from a finished run.
type RunSummary struct {
	Symbol          string
	PositionsOpened int
	TakeProfitFills int
	StopLossFills   int
	Timesteps       int
	ROI             float64
	FinalCapital    float64
}

// RecordRun records a finished simulator run.
func (m *Metrics) RecordRun(s RunSummary, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.RunsTotal.WithLabelValues("error").Inc()
		return
	}
	m.RunsTotal.WithLabelValues("ok").Inc()
	m.PositionsOpened.Add(float64(s.PositionsOpened))
	m.FillsTotal.WithLabelValues("take_profit").Add(float64(s.TakeProfitFills))
	m.FillsTotal.WithLabelValues("stop_loss").Add(float64(s.StopLossFills))
	m.TimestepsWalked.Add(float64(s.Timesteps))
	m.LastRunROI.WithLabelValues(s.Symbol).Set(s.ROI)
	m.LastRunFinalValue.WithLabelValues(s.Symbol).Set(s.FinalCapital)
	m.LastSuccessfulRun.SetToCurrentTime()
}

// SweepCellStarted marks a sweep cell as running.
func (m *Metrics) SweepCellStarted() {
	if m == nil {
		return
	}
	m.SweepInFlight.Inc()
}

// SweepCellDone records a finished sweep cell.
func (m *Metrics) SweepCellDone(err error) {
	if m == nil {
		return
	}
	m.SweepInFlight.Dec()
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SweepCellsTotal.WithLabelValues(status).Inc()
}

// RecordSweep records the duration of a whole sweep batch.
func (m *Metrics) RecordSweep(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SweepDuration.Observe(elapsed.Seconds())
}

// RecordPointsStored counts price points persisted from source.
func (m *Metrics) RecordPointsStored(source string, n int) {
	if m == nil {
		return
	}
	m.PointsStored.WithLabelValues(source).Add(float64(n))
}

// RecordIngestError counts an ingest failure at stage.
func (m *Metrics) RecordIngestError(stage string) {
	if m == nil {
		return
	}
	m.IngestErrors.WithLabelValues(stage).Inc()
}

// RecordReconnect counts a trade stream reconnect.
func (m *Metrics) RecordReconnect() {
	if m == nil {
		return
	}
	m.WSReconnects.Inc()
}

// RecordMessageDelay observes trade-to-receipt delay.
func (m *Metrics) RecordMessageDelay(d time.Duration) {
	if m == nil || d < 0 {
		return
	}
	m.WSMessageDelay.Observe(d.Seconds())
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(elapsed.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
