package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/V4T54L/vsd-gateway/internal/auth"
	"github.com/V4T54L/vsd-gateway/internal/domain"
	"github.com/V4T54L/vsd-gateway/internal/usecase"
)

// TenantHandler serves tenant administration on the admin proxy.
type TenantHandler struct {
	uc     *usecase.TenantAdminUseCase
	logger *slog.Logger
}

func NewTenantHandler(uc *usecase.TenantAdminUseCase, logger *slog.Logger) *TenantHandler {
	return &TenantHandler{uc: uc, logger: logger}
}

// Register handles POST /tenants.
func (h *TenantHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name   string `json:"name"`
		Domain string `json:"domain"`
	}
	if !h.decode(w, r, &payload) {
		return
	}

	tenant, err := h.uc.Register(r.Context(), auth.IdentityFromContext(r.Context()).UID, payload.Name, payload.Domain)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	RespondWithJSON(w, h.logger, http.StatusCreated, tenant)
}

// RotateKey handles POST /tenants/{id}/rotate-key.
func (h *TenantHandler) RotateKey(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.uc.RotateKey(r.Context(), auth.IdentityFromContext(r.Context()).UID, chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	RespondWithJSON(w, h.logger, http.StatusOK, tenant)
}

// SetStatus handles POST /tenants/{id}/status.
func (h *TenantHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status domain.TenantStatus `json:"status"`
	}
	if !h.decode(w, r, &payload) {
		return
	}

	tenant, err := h.uc.SetStatus(r.Context(), auth.IdentityFromContext(r.Context()).UID, chi.URLParam(r, "id"), payload.Status)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	RespondWithJSON(w, h.logger, http.StatusOK, tenant)
}

func (h *TenantHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if tooLarge, err := decodeJSON(r, v); err != nil {
		if tooLarge {
			RespondError(w, h.logger, http.StatusRequestEntityTooLarge, msgPayloadTooBig)
		} else {
			RespondError(w, h.logger, http.StatusBadRequest, msgInvalidJSON)
		}
		return false
	}
	return true
}
