// Package metrics holds the Prometheus instruments for the issuance
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts issuance pipeline outcomes.
type Metrics struct {
	InvitationsCreated prometheus.Counter
	CredentialsIssued  prometheus.Counter
	SimulatedRequests  prometheus.Counter
	AnchorFallbacks    prometheus.Counter
	OfferFailures      prometheus.Counter
	DroppedConnections prometheus.Counter
	IssuanceDuration   prometheus.Histogram
}

// New registers the issuance metrics on the given registerer. Tests pass a
// fresh registry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		InvitationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "unicred_invitations_created_total",
			Help: "Total invitations generated for completed courses",
		}),
		CredentialsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "unicred_credentials_issued_total",
			Help: "Total credential offers delivered to wallets",
		}),
		SimulatedRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "unicred_simulated_requests_total",
			Help: "Total completion requests served in simulation mode",
		}),
		AnchorFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "unicred_anchor_fallbacks_total",
			Help: "Total credential anchors recorded locally because the ledger was unreachable",
		}),
		OfferFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "unicred_offer_failures_total",
			Help: "Total issuance attempts that terminally failed to deliver an offer",
		}),
		DroppedConnections: factory.NewCounter(prometheus.CounterOpts{
			Name: "unicred_dropped_connections_total",
			Help: "Total completed connections with no matching pending invitation",
		}),
		IssuanceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "unicred_issuance_duration_seconds",
			Help:    "Time from connection completion to offer delivery",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
