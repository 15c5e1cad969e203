package httpapi

import (
	"net/http"
	"strings"

	"fieldops/internal/models"
	"fieldops/internal/store"
)

type customerRequest struct {
	Name            string  `json:"name"`
	Phone           string  `json:"phone"`
	TypeOfWork      string  `json:"type_of_work"`
	DiscussedAmount float64 `json:"discussed_amount"`
	PaidAmount      float64 `json:"paid_amount"`
	// Accepted so clients can echo records back; always recomputed.
	PendingAmount *float64 `json:"pending_amount"`
	ModeOfPayment string   `json:"mode_of_payment"`
}

func (req *customerRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.TypeOfWork = strings.TrimSpace(req.TypeOfWork)
	req.ModeOfPayment = strings.TrimSpace(req.ModeOfPayment)
	if req.Name == "" {
		return "name is required"
	}
	if !models.ValidAmount(req.DiscussedAmount) || !models.ValidAmount(req.PaidAmount) {
		return "amounts must be between 0 and 999999999999.99"
	}
	return ""
}

func (req customerRequest) customer() models.Customer {
	customer := models.Customer{
		Name:            req.Name,
		Phone:           req.Phone,
		TypeOfWork:      req.TypeOfWork,
		DiscussedAmount: req.DiscussedAmount,
		PaidAmount:      req.PaidAmount,
		ModeOfPayment:   req.ModeOfPayment,
	}
	customer.Normalize()
	return customer
}

func (h *Handler) handleCustomers(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		filter := store.CustomerFilter{Search: strings.TrimSpace(r.URL.Query().Get("q"))}
		customers, err := h.store.ListCustomers(r.Context(), store.ScopeFor(user), filter)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if customers == nil {
			customers = []models.Customer{}
		}
		writeJSON(w, http.StatusOK, customers)
	case http.MethodPost:
		var req customerRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, r, http.StatusBadRequest, "invalid_request", msg)
			return
		}
		customer := req.customer()
		customer.CreatedBy = user.UserID
		created, err := h.store.CreateCustomer(r.Context(), customer)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, action, ok := pathID(r, "/api/customers/")
	if !ok || action != "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !isValidUUID(customerID) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "customer id must be a UUID")
		return
	}
	scope := store.ScopeFor(user)

	switch r.Method {
	case http.MethodGet:
		customer, err := h.store.GetCustomer(r.Context(), scope, customerID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, customer)
	case http.MethodPut:
		var req customerRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, r, http.StatusBadRequest, "invalid_request", msg)
			return
		}
		customer := req.customer()
		customer.CustomerID = customerID
		updated, err := h.store.UpdateCustomer(r.Context(), scope, customer)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := h.store.DeleteCustomer(r.Context(), scope, customerID); err != nil {
			h.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
