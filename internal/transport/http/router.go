// Package httptransport is the thin HTTP layer. Handlers delegate to the
// issuance service and the invitation store; business logic stays out of
// here.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"unicred/internal/platform/middleware"
)

// Deps groups everything the router mounts.
type Deps struct {
	Issuance *IssuanceHandler
	Delivery *DeliveryHandler
	Health   *HealthHandler
	// Webhook receives agent connection events. Nil in simulation mode.
	Webhook http.HandlerFunc
	// CredentialWebhook receives agent credential exchange events. Nil in
	// simulation mode.
	CredentialWebhook http.HandlerFunc
	// WebhookJWTKey guards the completion endpoint when set.
	WebhookJWTKey string
	Logger        *slog.Logger
}

// NewRouter wires all public endpoints.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", deps.Health.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.With(middleware.BearerAuth(deps.WebhookJWTKey, deps.Logger)).
		Post("/api/issue-credential", deps.Issuance.HandleIssue)

	r.Get("/credential-qr/{invitationID}", deps.Delivery.HandleQRPage)
	r.Get("/invitation/{invitationID}", deps.Delivery.HandleInvitation)

	if deps.Webhook != nil {
		r.Post("/webhooks/connections", deps.Webhook)
	}
	if deps.CredentialWebhook != nil {
		r.Post("/webhooks/credentials", deps.CredentialWebhook)
	}

	return r
}
