package httptransport

import (
	"net/http"

	"unicred/pkg/platform/httputil"
)

// HealthHandler reports static capability flags so operators can see at a
// glance which integrations a deployment is running with.
type HealthHandler struct {
	simulated    bool
	ledgerActive bool
}

func NewHealthHandler(simulated, ledgerActive bool) *HealthHandler {
	return &HealthHandler{simulated: simulated, ledgerActive: ledgerActive}
}

type healthResponse struct {
	Status    string            `json:"status"`
	Simulated bool              `json:"simulated"`
	Endpoints map[string]string `json:"endpoints"`
	Features  []string          `json:"features"`
}

// HandleHealth handles GET /health.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	features := []string{
		"W3C verifiable credentials",
		"DIDComm out-of-band invitations",
		"QR code delivery",
	}
	if h.ledgerActive {
		features = append(features, "Fabric ledger anchoring")
	}

	httputil.WriteJSON(w, http.StatusOK, healthResponse{
		Status:    "OK",
		Simulated: h.simulated,
		Endpoints: map[string]string{
			"issue":      "/api/issue-credential",
			"qr":         "/credential-qr/{id}",
			"invitation": "/invitation/{id}",
		},
		Features: features,
	})
}
