package httpapi

import (
	"context"
	"net/http"
	"strings"

	"fieldops/internal/mailer"
	"fieldops/internal/models"
	"fieldops/internal/store"

	"go.uber.org/zap"
)

type campRequest struct {
	Date        string `json:"date"`
	Location    string `json:"location"`
	Status      string `json:"status"`
	ConductedBy string `json:"conducted_by"`
	Notes       string `json:"notes"`
}

type assignRequest struct {
	EmployeeIDs []string `json:"employee_ids"`
}

type campStatusRequest struct {
	Status string `json:"status"`
}

func (req *campRequest) validate() string {
	req.Date = strings.TrimSpace(req.Date)
	req.Location = strings.TrimSpace(req.Location)
	req.Status = strings.TrimSpace(req.Status)
	req.ConductedBy = strings.TrimSpace(req.ConductedBy)
	req.Notes = strings.TrimSpace(req.Notes)
	if req.Date == "" || req.Location == "" {
		return "date and location are required"
	}
	if !models.ValidCampDate(req.Date) {
		return "date must be formatted as YYYY-MM-DD"
	}
	if req.Status != "" && !models.ValidCampStatus(req.Status) {
		return "status must be one of " + strings.Join(models.CampStatuses, ", ")
	}
	return ""
}

func (req campRequest) camp() models.Camp {
	return models.Camp{
		Date:        req.Date,
		Location:    req.Location,
		Status:      req.Status,
		ConductedBy: req.ConductedBy,
		Notes:       req.Notes,
	}
}

func (h *Handler) handleCamps(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		user, ok := requireUser(w, r)
		if !ok {
			return
		}
		query := r.URL.Query()
		filter := store.CampFilter{
			Status:     strings.TrimSpace(query.Get("status")),
			AssignedTo: strings.TrimSpace(query.Get("assigned_to")),
		}
		if filter.Status != "" && !models.ValidCampStatus(filter.Status) {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "unknown camp status")
			return
		}
		if !user.IsAdmin() {
			filter.AssignedTo = user.UserID
		}
		if filter.AssignedTo != "" && !isValidUUID(filter.AssignedTo) {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "assigned_to must be a UUID")
			return
		}
		camps, err := h.store.ListCamps(r.Context(), filter)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if camps == nil {
			camps = []models.Camp{}
		}
		writeJSON(w, http.StatusOK, camps)
	case http.MethodPost:
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		var req campRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, r, http.StatusBadRequest, "invalid_request", msg)
			return
		}
		if req.Status != "" && req.Status != models.CampPlanned {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "new camps start as planned")
			return
		}
		created, err := h.store.CreateCamp(r.Context(), req.camp())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCampActions(w http.ResponseWriter, r *http.Request) {
	campID, action, ok := pathID(r, "/api/camps/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if !isValidUUID(campID) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "camp id must be a UUID")
		return
	}

	switch action {
	case "":
		h.handleCamp(w, r, campID)
	case "assign":
		h.handleAssignCamp(w, r, campID)
	case "status":
		h.handleCampStatus(w, r, campID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleCamp(w http.ResponseWriter, r *http.Request, campID string) {
	switch r.Method {
	case http.MethodGet:
		user, ok := requireUser(w, r)
		if !ok {
			return
		}
		camp, err := h.store.GetCamp(r.Context(), campID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if !user.IsAdmin() && !camp.IsAssigned(user.UserID) {
			h.fail(w, r, store.ErrCampNotFound)
			return
		}
		writeJSON(w, http.StatusOK, camp)
	case http.MethodPut:
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		var req campRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, r, http.StatusBadRequest, "invalid_request", msg)
			return
		}
		current, err := h.store.GetCamp(r.Context(), campID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if req.Status != "" && req.Status != current.Status {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "use the status endpoint to change camp status")
			return
		}
		camp := req.camp()
		camp.CampID = campID
		updated, err := h.store.UpdateCamp(r.Context(), camp)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		if err := h.store.DeleteCamp(r.Context(), campID); err != nil {
			h.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleAssignCamp(w http.ResponseWriter, r *http.Request, campID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	var req assignRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	ids := make([]string, 0, len(req.EmployeeIDs))
	for _, id := range req.EmployeeIDs {
		id = strings.TrimSpace(id)
		if !isValidUUID(id) {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "employee_ids must be user ids (UUIDs), not employee codes")
			return
		}
		ids = append(ids, id)
	}

	camp, added, err := h.store.AssignCamp(r.Context(), campID, ids)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.notifyAssigned(context.WithoutCancel(r.Context()), camp, added)
	writeJSON(w, http.StatusOK, camp)
}

// notifyAssigned emails newly assigned employees in the background. Failures
// are logged and never surface to the caller.
func (h *Handler) notifyAssigned(ctx context.Context, camp models.Camp, users []models.User) {
	if len(users) == 0 {
		return
	}
	h.background.Add(1)
	go func() {
		defer h.background.Done()
		for _, user := range users {
			if err := h.mailer.Send(ctx, mailer.CampAssignment(user, camp)); err != nil {
				h.logger.Warn("camp assignment email failed",
					zap.String("camp_id", camp.CampID),
					zap.String("user_id", user.UserID),
					zap.Error(err),
				)
			}
		}
	}()
}

func (h *Handler) handleCampStatus(w http.ResponseWriter, r *http.Request, campID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req campStatusRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.Status = strings.TrimSpace(req.Status)
	if !models.ValidCampStatus(req.Status) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "status must be one of "+strings.Join(models.CampStatuses, ", "))
		return
	}

	camp, err := h.store.GetCamp(r.Context(), campID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !user.IsAdmin() && !camp.IsAssigned(user.UserID) {
		writeError(w, r, http.StatusForbidden, "access_denied", "only admins or assigned employees can change camp status")
		return
	}
	updated, err := h.store.UpdateCampStatus(r.Context(), campID, req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
