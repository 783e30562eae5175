package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/V4T54L/vsd-gateway/internal/domain"
	"github.com/V4T54L/vsd-gateway/internal/usecase"
)

// TransactionHandler serves the public mock transaction endpoint.
type TransactionHandler struct {
	uc     *usecase.TransactionUseCase
	logger *slog.Logger
}

func NewTransactionHandler(uc *usecase.TransactionUseCase, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{uc: uc, logger: logger}
}

// Create handles POST /api/transactions.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.TransactionRequest
	if tooLarge, err := decodeJSON(r, &req); err != nil {
		if tooLarge {
			RespondError(w, h.logger, http.StatusRequestEntityTooLarge, msgPayloadTooBig)
			return
		}
		RespondError(w, h.logger, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	txn, err := h.uc.Create(r.Context(), r.URL.Path, req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			RespondError(w, h.logger, http.StatusBadRequest, "Missing or invalid fields: fromAddress, toAddress, amount")
			return
		}
		h.logger.Error("failed to create transaction", "error", err)
		RespondError(w, h.logger, http.StatusInternalServerError, msgInternal)
		return
	}
	RespondWithJSON(w, h.logger, http.StatusCreated, txn)
}

// Preflight answers OPTIONS requests after the CORS headers were set.
func Preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
