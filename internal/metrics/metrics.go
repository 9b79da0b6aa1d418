package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	JobReconcile = "reconcile"
	JobBackfill  = "backfill"
)

type JobMetrics struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	RecordsScanned   *prometheus.CounterVec
	CorrectionsTotal *prometheus.CounterVec
	CreatedTotal     *prometheus.CounterVec
	SkippedTotal     *prometheus.CounterVec
	AmountAdjusted   *prometheus.CounterVec
}

// NewJobMetrics registers the collectors on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	f := promauto.With(reg)
	return &JobMetrics{
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commission_job_runs_total",
				Help: "Commission job runs by outcome",
			},
			[]string{"job", "outcome"},
		),
		RunDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "commission_job_duration_seconds",
				Help:    "Wall time of commission job runs",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"job"},
		),
		RecordsScanned: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commission_records_scanned_total",
				Help: "Commission records examined by reconciliation",
			},
			[]string{"job"},
		),
		CorrectionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commission_corrections_total",
				Help: "Stored commissions rewritten by reconciliation",
			},
			[]string{"currency", "method"},
		),
		CreatedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commission_created_total",
				Help: "Commissions created by source",
			},
			[]string{"source", "currency"},
		),
		SkippedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commission_skipped_total",
				Help: "Records or category groups skipped by a job",
			},
			[]string{"job", "reason"},
		),
		AmountAdjusted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commission_amount_adjusted_total",
				Help: "Absolute sum of reconciliation adjustments",
			},
			[]string{"currency"},
		),
	}
}

func (m *JobMetrics) RecordRun(job string, started time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.RunsTotal.WithLabelValues(job, outcome).Inc()
	m.RunDuration.WithLabelValues(job).Observe(time.Since(started).Seconds())
}

func (m *JobMetrics) RecordScanned(job string) {
	m.RecordsScanned.WithLabelValues(job).Inc()
}

func (m *JobMetrics) RecordCorrection(currency, method string, delta float64) {
	m.CorrectionsTotal.WithLabelValues(currency, method).Inc()
	if delta < 0 {
		delta = -delta
	}
	m.AmountAdjusted.WithLabelValues(currency).Add(delta)
}

func (m *JobMetrics) RecordCreated(source, currency string) {
	m.CreatedTotal.WithLabelValues(source, currency).Inc()
}

func (m *JobMetrics) RecordSkip(job, reason string) {
	m.SkippedTotal.WithLabelValues(job, ReasonLabel(reason)).Inc()
}

// ReasonLabel collapses free-form skip reasons into a bounded label set.
func ReasonLabel(reason string) string {
	r := strings.ToLower(reason)
	switch {
	case strings.HasPrefix(r, "error"):
		return "error"
	case strings.Contains(r, "no commission rate"):
		return "no_rate"
	case strings.Contains(r, "already exists"):
		return "exists"
	case strings.Contains(r, "no line items"):
		return "no_items"
	case strings.Contains(r, "subtotal is zero"):
		return "zero_subtotal"
	default:
		return "other"
	}
}
