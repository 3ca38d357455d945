// Package metrics exposes the service's Prometheus counters and the HTTP
// server that publishes them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the service counters. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	documentsRegistered prometheus.Counter
	documentsRevoked    prometheus.Counter
	verifications       *prometheus.CounterVec
	ledgerErrors        *prometheus.CounterVec
	fundingFailures     prometheus.Counter
	unpinFailures       prometheus.Counter
	sharesCreated       prometheus.Counter
	linksResolved       *prometheus.CounterVec
}

// NewRecorder registers the counters, plus the Go and process collectors, on
// a private registry.
func NewRecorder(namespace string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		documentsRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_registered_total",
			Help:      "Documents registered on the ledger.",
		}),
		documentsRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_revoked_total",
			Help:      "Documents revoked on the ledger.",
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Verification answers by source.",
		}, []string{"source"}),
		ledgerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_errors_total",
			Help:      "Failed ledger calls by operation.",
		}, []string{"op"}),
		fundingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "funding_failures_total",
			Help:      "Wallet top-ups that failed.",
		}),
		unpinFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unpin_failures_total",
			Help:      "Blob deletions that failed after revocation.",
		}),
		sharesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shares_created_total",
			Help:      "Document shares created.",
		}),
		linksResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_resolved_total",
			Help:      "Public link resolutions by outcome.",
		}, []string{"outcome"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.documentsRegistered,
		r.documentsRevoked,
		r.verifications,
		r.ledgerErrors,
		r.fundingFailures,
		r.unpinFailures,
		r.sharesCreated,
		r.linksResolved,
	)
	return r
}

func (r *Recorder) DocumentRegistered() {
	if r != nil {
		r.documentsRegistered.Inc()
	}
}

func (r *Recorder) DocumentRevoked() {
	if r != nil {
		r.documentsRevoked.Inc()
	}
}

func (r *Recorder) Verification(source string) {
	if r != nil {
		r.verifications.WithLabelValues(source).Inc()
	}
}

func (r *Recorder) LedgerError(op string) {
	if r != nil {
		r.ledgerErrors.WithLabelValues(op).Inc()
	}
}

func (r *Recorder) FundingFailure() {
	if r != nil {
		r.fundingFailures.Inc()
	}
}

func (r *Recorder) UnpinFailure() {
	if r != nil {
		r.unpinFailures.Inc()
	}
}

func (r *Recorder) ShareCreated() {
	if r != nil {
		r.sharesCreated.Inc()
	}
}

func (r *Recorder) LinkResolved(outcome string) {
	if r != nil {
		r.linksResolved.WithLabelValues(outcome).Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
