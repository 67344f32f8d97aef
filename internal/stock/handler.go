package stock

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/keelbooks/keelbooks/internal/shared"
)

// Handler exposes lot lookup endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers stock routes under a company scope.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products/{productID}/lots", h.listLots)
}

func (h *Handler) listLots(w http.ResponseWriter, r *http.Request) {
	companyID, err := strconv.ParseInt(chi.URLParam(r, "companyID"), 10, 64)
	if err != nil || companyID <= 0 {
		h.writeError(w, shared.Validationf("invalid companyID"))
		return
	}
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		h.writeError(w, shared.Validationf("invalid productID"))
		return
	}
	lots, err := h.service.OpenLots(r.Context(), companyID, productID)
	if err != nil {
		h.logger.Error("list lots failed", slog.Any("error", err))
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"lots": lots})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if shared.IsValidation(err) {
		status = http.StatusUnprocessableEntity
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": err.Error()})
}
