package vendors

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/keelbooks/keelbooks/internal/shared"
)

// Handler exposes vendor balance endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers vendor routes under a company scope.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/vendors/{vendorID}/balance", h.getBalance)
	r.Get("/vendors/{vendorID}/ledger", h.getLedger)
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	companyID, vendorID, err := scopeIDs(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	summary, err := h.service.GetOutstandingSummary(r.Context(), companyID, vendorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) getLedger(w http.ResponseWriter, r *http.Request) {
	companyID, vendorID, err := scopeIDs(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.service.GetLedger(r.Context(), companyID, vendorID, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func scopeIDs(r *http.Request) (companyID, vendorID int64, err error) {
	companyID, err = strconv.ParseInt(chi.URLParam(r, "companyID"), 10, 64)
	if err != nil || companyID <= 0 {
		return 0, 0, shared.Validationf("invalid companyID")
	}
	vendorID, err = strconv.ParseInt(chi.URLParam(r, "vendorID"), 10, 64)
	if err != nil || vendorID <= 0 {
		return 0, 0, shared.Validationf("invalid vendorID")
	}
	return companyID, vendorID, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response", slog.Any("error", err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case shared.IsValidation(err):
		status = http.StatusUnprocessableEntity
	case shared.IsNotFound(err):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	h.writeJSON(w, status, map[string]any{"error": err.Error()})
}
