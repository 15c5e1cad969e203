package httpapi

import (
	"net/http"
	"strings"

	"fieldops/internal/models"
	"fieldops/internal/store"
)

type cardRequest struct {
	CustomerID     string `json:"customer_id"`
	CardNumber     string `json:"card_number"`
	RegisterNumber string `json:"register_number"`
	HolderName     string `json:"holder_name"`
	AgentName      string `json:"agent_name"`
	AgentMobile    string `json:"agent_mobile"`
}

func (req *cardRequest) trim() {
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.CardNumber = strings.TrimSpace(req.CardNumber)
	req.RegisterNumber = strings.TrimSpace(req.RegisterNumber)
	req.HolderName = strings.TrimSpace(req.HolderName)
	req.AgentName = strings.TrimSpace(req.AgentName)
	req.AgentMobile = strings.TrimSpace(req.AgentMobile)
}

func (req cardRequest) card() models.Card {
	return models.Card{
		CustomerID:     req.CustomerID,
		CardNumber:     req.CardNumber,
		RegisterNumber: req.RegisterNumber,
		HolderName:     req.HolderName,
		AgentName:      req.AgentName,
		AgentMobile:    req.AgentMobile,
	}
}

func (h *Handler) handleCards(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	scope := store.ScopeFor(user)

	switch r.Method {
	case http.MethodGet:
		customerID := strings.TrimSpace(r.URL.Query().Get("customer_id"))
		if customerID != "" && !isValidUUID(customerID) {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "customer_id must be a UUID")
			return
		}
		cards, err := h.store.ListCards(r.Context(), scope, customerID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if cards == nil {
			cards = []models.Card{}
		}
		writeJSON(w, http.StatusOK, cards)
	case http.MethodPost:
		var req cardRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		req.trim()
		if req.CustomerID == "" || req.CardNumber == "" {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "customer_id and card_number are required")
			return
		}
		if !isValidUUID(req.CustomerID) {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "customer_id must be a UUID")
			return
		}
		created, err := h.store.CreateCard(r.Context(), scope, req.card())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCard(w http.ResponseWriter, r *http.Request) {
	cardID, action, ok := pathID(r, "/api/cards/")
	if !ok || action != "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !isValidUUID(cardID) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "card id must be a UUID")
		return
	}
	scope := store.ScopeFor(user)

	switch r.Method {
	case http.MethodGet:
		card, err := h.store.GetCard(r.Context(), scope, cardID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, card)
	case http.MethodPut:
		var req cardRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		req.trim()
		if req.CardNumber == "" {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "card_number is required")
			return
		}
		// A card stays attached to the customer it was created for.
		card := req.card()
		card.CardID = cardID
		updated, err := h.store.UpdateCard(r.Context(), scope, card)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := h.store.DeleteCard(r.Context(), scope, cardID); err != nil {
			h.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
