package httptransport

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mssola/useragent"

	"unicred/internal/invitation"
	dErrors "unicred/pkg/domain-errors"
	"unicred/pkg/platform/httputil"
	"unicred/pkg/platform/sentinel"
)

// DeliveryHandler serves the scan-to-connect flow: the QR page a learner
// opens and the raw invitation their wallet fetches.
type DeliveryHandler struct {
	store          invitation.Store
	publicBaseURL  string
	universityName string
	logger         *slog.Logger
}

func NewDeliveryHandler(store invitation.Store, publicBaseURL, universityName string, logger *slog.Logger) *DeliveryHandler {
	return &DeliveryHandler{
		store:          store,
		publicBaseURL:  publicBaseURL,
		universityName: universityName,
		logger:         logger,
	}
}

// HandleQRPage handles GET /credential-qr/{invitationID}.
func (h *DeliveryHandler) HandleQRPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "invitationID")

	pending, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			writeNotFoundPage(w)
			return
		}
		h.logger.Error("invitation lookup failed", "error", err, "invitation_id", id)
		http.Error(w, "could not render QR page", http.StatusInternalServerError)
		return
	}

	page, err := renderQRPage(qrPageData{
		UserName:      pending.Fact.UserName,
		CourseName:    pending.Fact.CourseName,
		University:    h.universityName,
		InvitationURL: h.publicBaseURL + "/invitation/" + id,
	})
	if err != nil {
		h.logger.Error("QR page rendering failed", "error", err, "invitation_id", id)
		http.Error(w, "could not render QR page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// HandleInvitation handles GET /invitation/{invitationID}, the endpoint
// wallets hit after scanning the QR code.
func (h *DeliveryHandler) HandleInvitation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "invitationID")

	pending, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "invitation not found"))
			return
		}
		h.logger.Error("invitation lookup failed", "error", err, "invitation_id", id)
		httputil.WriteError(w, err)
		return
	}

	ua := useragent.New(r.UserAgent())
	browser, _ := ua.Browser()
	h.logger.Info("wallet fetched invitation",
		"invitation_id", id, "wallet_os", ua.OS(), "wallet_client", browser)

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(pending.Invitation.RawInvitation)
}
