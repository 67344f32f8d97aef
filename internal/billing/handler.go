package billing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/keelbooks/keelbooks/internal/shared"
)

// Handler exposes the billing operations as a JSON API.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	validate    *validator.Validate
	idempotency *shared.IdempotencyStore
}

// NewHandler builds Handler instance. The idempotency store is optional.
func NewHandler(logger *slog.Logger, service *Service, idempotency *shared.IdempotencyStore) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		validate:    validator.New(),
		idempotency: idempotency,
	}
}

// MountRoutes registers billing routes under a company scope.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/bills", h.createBill)
	r.Get("/bills/{billID}", h.getBill)
	r.Put("/bills/{billID}", h.updateBill)
	r.Get("/vendors/{vendorID}/bills", h.listVendorBills)
	r.Post("/vendors/{vendorID}/payments", h.recordPayment)
}

type billItemRequest struct {
	ProductID   *int64  `json:"product_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
	TaxRate     float64 `json:"tax_rate" validate:"gte=0,lte=100"`
}

type createBillRequest struct {
	VendorID        int64             `json:"vendor_id" validate:"required"`
	OrderID         *int64            `json:"order_id"`
	EmployeeID      *int64            `json:"employee_id"`
	BillNumber      string            `json:"bill_number"`
	BillDate        string            `json:"bill_date"`
	DueDate         string            `json:"due_date"`
	PaymentMethodID *int64            `json:"payment_method_id"`
	MarkAsPaid      bool              `json:"mark_as_paid"`
	Notes           string            `json:"notes"`
	Items           []billItemRequest `json:"items" validate:"required,min=1,dive"`
}

type updateBillRequest struct {
	Version         int64             `json:"version" validate:"required,gt=0"`
	BillDate        string            `json:"bill_date"`
	DueDate         string            `json:"due_date"`
	EmployeeID      *int64            `json:"employee_id"`
	PaymentMethodID *int64            `json:"payment_method_id"`
	Notes           string            `json:"notes"`
	Items           []billItemRequest `json:"items" validate:"required,min=1,dive"`
}

type allocationRequest struct {
	BillID int64   `json:"bill_id" validate:"required"`
	Amount float64 `json:"payment_amount" validate:"gt=0"`
}

type recordPaymentRequest struct {
	Amount          float64             `json:"payment_amount" validate:"gt=0"`
	PaymentDate     string              `json:"payment_date"`
	PaymentMethodID *int64              `json:"payment_method_id"`
	DepositTo       *int64              `json:"deposit_to"`
	Notes           string              `json:"notes"`
	BillPayments    []allocationRequest `json:"bill_payments" validate:"required,min=1,dive"`
}

func (h *Handler) createBill(w http.ResponseWriter, r *http.Request) {
	companyID, err := pathID(r, "companyID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req createBillRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	billDate, err := parseDate(req.BillDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.service.CreateBill(r.Context(), CreateBillInput{
		CompanyID:       companyID,
		VendorID:        req.VendorID,
		OrderID:         req.OrderID,
		EmployeeID:      req.EmployeeID,
		BillNumber:      req.BillNumber,
		BillDate:        billDate,
		DueDate:         dueDate,
		PaymentMethodID: req.PaymentMethodID,
		MarkAsPaid:      req.MarkAsPaid,
		Notes:           req.Notes,
		Items:           toItemInputs(req.Items),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"bill_id":     result.BillID,
		"bill_number": result.BillNumber,
	})
}

func (h *Handler) updateBill(w http.ResponseWriter, r *http.Request) {
	companyID, err := pathID(r, "companyID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	billID, err := pathID(r, "billID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req updateBillRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	billDate, err := parseDate(req.BillDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.UpdateBill(r.Context(), UpdateBillInput{
		CompanyID:       companyID,
		BillID:          billID,
		Version:         req.Version,
		BillDate:        billDate,
		DueDate:         dueDate,
		EmployeeID:      req.EmployeeID,
		PaymentMethodID: req.PaymentMethodID,
		Notes:           req.Notes,
		Items:           toItemInputs(req.Items),
	}); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) getBill(w http.ResponseWriter, r *http.Request) {
	companyID, err := pathID(r, "companyID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	billID, err := pathID(r, "billID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	bill, err := h.service.GetBill(r.Context(), companyID, billID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, bill)
}

func (h *Handler) listVendorBills(w http.ResponseWriter, r *http.Request) {
	companyID, err := pathID(r, "companyID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	vendorID, err := pathID(r, "vendorID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	bills, err := h.service.ListBillsByVendor(r.Context(), companyID, vendorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"bills": bills})
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	companyID, err := pathID(r, "companyID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	vendorID, err := pathID(r, "vendorID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req recordPaymentRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	var paymentDate time.Time
	if req.PaymentDate != "" {
		parsed, err := parseDate(req.PaymentDate)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		paymentDate = *parsed
	}

	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), idemKey, "billing.payments"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				h.writeError(w, r, shared.Conflictf("payment already submitted"))
				return
			}
			h.writeError(w, r, err)
			return
		}
	}

	allocations := make([]BillAllocationInput, 0, len(req.BillPayments))
	for _, a := range req.BillPayments {
		allocations = append(allocations, BillAllocationInput{BillID: a.BillID, Amount: a.Amount})
	}

	if err := h.service.RecordPayment(r.Context(), RecordPaymentInput{
		CompanyID:       companyID,
		VendorID:        vendorID,
		Amount:          req.Amount,
		PaymentDate:     paymentDate,
		PaymentMethodID: req.PaymentMethodID,
		DepositTo:       req.DepositTo,
		Notes:           req.Notes,
		Allocations:     allocations,
	}); err != nil {
		// Release the key so the caller can retry the whole operation.
		if idemKey != "" && h.idempotency != nil {
			_ = h.idempotency.Delete(r.Context(), idemKey)
		}
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func toItemInputs(items []billItemRequest) []BillItemInput {
	out := make([]BillItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, BillItemInput{
			ProductID:   item.ProductID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TaxRate:     item.TaxRate,
		})
	}
	return out
}

func (h *Handler) decode(r *http.Request, dest any) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return shared.Validationf("invalid request body")
	}
	if err := h.validate.Struct(dest); err != nil {
		return shared.Validationf("%s", err.Error())
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validationf("invalid %s", name)
	}
	return id, nil
}

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, shared.Validationf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return &t, nil
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
	case shared.IsConflict(err):
		status = http.StatusConflict
	case shared.IsNotFound(err):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	h.writeJSON(w, status, map[string]any{"error": err.Error()})
}
