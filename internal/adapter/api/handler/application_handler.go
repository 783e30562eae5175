package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/V4T54L/vsd-gateway/internal/auth"
	"github.com/V4T54L/vsd-gateway/internal/usecase"
)

// ApplicationHandler reviews advertiser applications.
type ApplicationHandler struct {
	uc     *usecase.ApplicationUseCase
	logger *slog.Logger
}

func NewApplicationHandler(uc *usecase.ApplicationUseCase, logger *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{uc: uc, logger: logger}
}

// Approve handles POST /applications/{id}/approve.
func (h *ApplicationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	app, err := h.uc.Approve(r.Context(), auth.IdentityFromContext(r.Context()).UID, chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	RespondWithJSON(w, h.logger, http.StatusOK, app)
}

// Reject handles POST /applications/{id}/reject.
func (h *ApplicationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	app, err := h.uc.Reject(r.Context(), auth.IdentityFromContext(r.Context()).UID, chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	RespondWithJSON(w, h.logger, http.StatusOK, app)
}
