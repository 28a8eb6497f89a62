package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"unicred/internal/domain"
	"unicred/internal/issuance"
	dErrors "unicred/pkg/domain-errors"
	"unicred/pkg/platform/httputil"
)

// IssuanceService is the slice of the orchestrator the transport needs.
type IssuanceService interface {
	HandleCompletion(ctx context.Context, fact domain.CompletionFact) (issuance.Receipt, error)
}

// IssuanceHandler accepts course completion notifications from the LMS.
type IssuanceHandler struct {
	service IssuanceService
	logger  *slog.Logger
}

func NewIssuanceHandler(service IssuanceService, logger *slog.Logger) *IssuanceHandler {
	return &IssuanceHandler{service: service, logger: logger}
}

// issueResponse is the envelope the LMS plugin expects: success plus the QR
// page URL, or a structured failure it can show to an operator.
type issueResponse struct {
	Success   bool   `json:"success"`
	QRPageURL string `json:"qrPageUrl,omitempty"`
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
}

// HandleIssue handles POST /api/issue-credential.
func (h *IssuanceHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	fact, err := httputil.Decode[domain.CompletionFact](r)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	receipt, err := h.service.HandleCompletion(r.Context(), fact)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, issueResponse{
		Success:   true,
		QRPageURL: receipt.QRPageURL,
		Message:   "Invitation generated. The learner can scan the QR code to receive the credential.",
	})
}

func (h *IssuanceHandler) writeFailure(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	message := "could not generate invitation"
	var de *dErrors.Error
	if errors.As(err, &de) {
		code = de.Code
		message = de.Message
	}
	h.logger.Error("completion request failed", "error", err)
	httputil.WriteJSON(w, dErrors.ToHTTPStatus(code), issueResponse{
		Success: false,
		Message: message,
		Error:   string(code),
	})
}
