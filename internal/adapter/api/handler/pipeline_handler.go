package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/V4T54L/vsd-gateway/internal/usecase"
)

// PipelineHandler serves operator endpoints over the audit stream.
type PipelineHandler struct {
	uc     *usecase.AuditPipelineUseCase
	logger *slog.Logger
}

func NewPipelineHandler(uc *usecase.AuditPipelineUseCase, logger *slog.Logger) *PipelineHandler {
	return &PipelineHandler{uc: uc, logger: logger}
}

// Stats handles GET /pipeline/audit.
func (h *PipelineHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.uc.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to get audit stream stats", "error", err)
		RespondError(w, h.logger, http.StatusInternalServerError, msgInternal)
		return
	}
	RespondWithJSON(w, h.logger, http.StatusOK, stats)
}

// Trim handles POST /pipeline/audit/trim.
func (h *PipelineHandler) Trim(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MaxLen int64 `json:"maxlen"`
	}
	if _, err := decodeJSON(r, &payload); err != nil {
		RespondError(w, h.logger, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	trimmed, err := h.uc.Trim(r.Context(), payload.MaxLen)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	RespondWithJSON(w, h.logger, http.StatusOK, map[string]int64{"trimmed": trimmed})
}

// Pending handles GET /pipeline/audit/pending?group=<name>&count=<n>.
func (h *PipelineHandler) Pending(w http.ResponseWriter, r *http.Request) {
	var count int64
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			RespondError(w, h.logger, http.StatusBadRequest, "Invalid count")
			return
		}
		count = n
	}

	pending, err := h.uc.Pending(r.Context(), r.URL.Query().Get("group"), count)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	RespondWithJSON(w, h.logger, http.StatusOK, map[string]any{"pending": pending})
}

// Claim handles POST /pipeline/audit/claim.
func (h *PipelineHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Group     string   `json:"group"`
		Consumer  string   `json:"consumer"`
		MinIdleMs int64    `json:"minIdleMs"`
		IDs       []string `json:"ids"`
	}
	if _, err := decodeJSON(r, &payload); err != nil {
		RespondError(w, h.logger, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	minIdle := time.Duration(payload.MinIdleMs) * time.Millisecond
	claimed, err := h.uc.Claim(r.Context(), payload.Group, payload.Consumer, minIdle, payload.IDs)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	RespondWithJSON(w, h.logger, http.StatusOK, map[string]any{"claimed": claimed})
}

// HealthCheck is a simple health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
