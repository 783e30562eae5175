package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/V4T54L/vsd-gateway/internal/auth"
	"github.com/V4T54L/vsd-gateway/internal/usecase"
)

// SessionHandler revokes admin identity tokens.
type SessionHandler struct {
	uc     *usecase.SessionUseCase
	logger *slog.Logger
}

func NewSessionHandler(uc *usecase.SessionUseCase, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{uc: uc, logger: logger}
}

// RevokeTokens handles POST /admins/{uid}/revoke-tokens.
func (h *SessionHandler) RevokeTokens(w http.ResponseWriter, r *http.Request) {
	at, err := h.uc.RevokeTokens(r.Context(), auth.IdentityFromContext(r.Context()).UID, chi.URLParam(r, "uid"))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	RespondWithJSON(w, h.logger, http.StatusOK, map[string]any{"ok": true, "validAfter": at.Format(time.RFC3339)})
}
