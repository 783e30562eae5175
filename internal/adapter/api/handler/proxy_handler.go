package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/V4T54L/vsd-gateway/internal/auth"
	"github.com/V4T54L/vsd-gateway/internal/domain"
	"github.com/V4T54L/vsd-gateway/internal/usecase"
)

// ProxyHandler serves the generic admin document proxy.
type ProxyHandler struct {
	uc     *usecase.AdminProxyUseCase
	logger *slog.Logger
}

func NewProxyHandler(uc *usecase.AdminProxyUseCase, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{uc: uc, logger: logger}
}

type readResponse struct {
	OK   bool              `json:"ok"`
	Docs []domain.Document `json:"docs"`
}

type mutateRequest struct {
	Op         string         `json:"op"`
	Collection string         `json:"collection"`
	DocID      string         `json:"docId"`
	Data       map[string]any `json:"data"`
}

type mutateResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id,omitempty"`
}

// Read handles GET /?collection=<name>.
func (h *ProxyHandler) Read(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())

	docs, err := h.uc.Read(r.Context(), id.UID, r.URL.Query().Get("collection"))
	if err != nil {
		if errors.Is(err, usecase.ErrMissingCollection) {
			RespondError(w, h.logger, http.StatusBadRequest, "Missing collection")
			return
		}
		h.logger.Error("proxy read failed", "error", err)
		RespondError(w, h.logger, http.StatusInternalServerError, msgInternal)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	RespondWithJSON(w, h.logger, http.StatusOK, readResponse{OK: true, Docs: docs})
}

// Mutate handles POST / with op write, create or delete.
func (h *ProxyHandler) Mutate(w http.ResponseWriter, r *http.Request) {
	var req mutateRequest
	if tooLarge, err := decodeJSON(r, &req); err != nil {
		if tooLarge {
			RespondError(w, h.logger, http.StatusRequestEntityTooLarge, msgPayloadTooBig)
			return
		}
		RespondError(w, h.logger, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	id := auth.IdentityFromContext(r.Context())
	docID, err := h.uc.Mutate(r.Context(), id.UID, usecase.MutationRequest{
		Op:         req.Op,
		Collection: req.Collection,
		DocID:      req.DocID,
		Data:       req.Data,
	})
	switch {
	case err == nil:
	case errors.Is(err, usecase.ErrMissingOpOrCollection):
		RespondError(w, h.logger, http.StatusBadRequest, "Missing op or collection")
		return
	case errors.Is(err, usecase.ErrMissingDocID):
		RespondError(w, h.logger, http.StatusBadRequest, "Missing docId")
		return
	case errors.Is(err, usecase.ErrUnknownOp):
		RespondError(w, h.logger, http.StatusBadRequest, "Unknown op")
		return
	default:
		h.logger.Error("proxy mutation failed", "op", req.Op, "collection", req.Collection, "error", err)
		RespondError(w, h.logger, http.StatusInternalServerError, msgInternal)
		return
	}

	resp := mutateResponse{OK: true}
	if req.Op == usecase.OpCreate {
		resp.ID = docID
	}
	RespondWithJSON(w, h.logger, http.StatusOK, resp)
}
