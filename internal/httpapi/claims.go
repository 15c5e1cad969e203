package httpapi

import (
	"net/http"
	"strings"

	"fieldops/internal/models"
	"fieldops/internal/store"
)

type claimRequest struct {
	CardID          string   `json:"card_id"`
	TypeOfClaim     string   `json:"type_of_claim"`
	ProcessState    string   `json:"process_state"`
	DiscussedAmount float64  `json:"discussed_amount"`
	PaidAmount      float64  `json:"paid_amount"`
	PendingAmount   *float64 `json:"pending_amount"`
}

func (req *claimRequest) validate() string {
	req.CardID = strings.TrimSpace(req.CardID)
	req.TypeOfClaim = strings.TrimSpace(req.TypeOfClaim)
	req.ProcessState = strings.TrimSpace(req.ProcessState)
	if req.TypeOfClaim == "" {
		return "type_of_claim is required"
	}
	if req.ProcessState != "" && !models.ValidClaimState(req.ProcessState) {
		return "process_state must be one of " + strings.Join(models.ClaimStates, ", ")
	}
	if !models.ValidAmount(req.DiscussedAmount) || !models.ValidAmount(req.PaidAmount) {
		return "amounts must be between 0 and 999999999999.99"
	}
	return ""
}

func (req claimRequest) claim() models.Claim {
	claim := models.Claim{
		CardID:          req.CardID,
		TypeOfClaim:     req.TypeOfClaim,
		ProcessState:    req.ProcessState,
		DiscussedAmount: req.DiscussedAmount,
		PaidAmount:      req.PaidAmount,
	}
	claim.Normalize()
	return claim
}

func (h *Handler) handleClaims(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	scope := store.ScopeFor(user)

	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		filter := store.ClaimFilter{
			CardID:       strings.TrimSpace(query.Get("card_id")),
			ProcessState: strings.TrimSpace(query.Get("process_state")),
		}
		if filter.CardID != "" && !isValidUUID(filter.CardID) {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "card_id must be a UUID")
			return
		}
		if filter.ProcessState != "" && !models.ValidClaimState(filter.ProcessState) {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "unknown process_state")
			return
		}
		claims, err := h.store.ListClaims(r.Context(), scope, filter)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if claims == nil {
			claims = []models.Claim{}
		}
		writeJSON(w, http.StatusOK, claims)
	case http.MethodPost:
		var req claimRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, r, http.StatusBadRequest, "invalid_request", msg)
			return
		}
		if !isValidUUID(req.CardID) {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "card_id must be a UUID")
			return
		}
		created, err := h.store.CreateClaim(r.Context(), scope, req.claim())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	claimID, action, ok := pathID(r, "/api/claims/")
	if !ok || action != "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !isValidUUID(claimID) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "claim id must be a UUID")
		return
	}
	scope := store.ScopeFor(user)

	switch r.Method {
	case http.MethodGet:
		claim, err := h.store.GetClaim(r.Context(), scope, claimID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, claim)
	case http.MethodPut:
		var req claimRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, r, http.StatusBadRequest, "invalid_request", msg)
			return
		}
		if req.ProcessState == "" {
			current, err := h.store.GetClaim(r.Context(), scope, claimID)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			req.ProcessState = current.ProcessState
		}
		claim := req.claim()
		claim.ClaimID = claimID
		updated, err := h.store.UpdateClaim(r.Context(), scope, claim)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := h.store.DeleteClaim(r.Context(), scope, claimID); err != nil {
			h.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
