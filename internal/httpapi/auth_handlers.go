package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fieldops/internal/auth"
	"fieldops/internal/mailer"
	"fieldops/internal/models"
	"fieldops/internal/store"

	"go.uber.org/zap"
)

const minPasswordLength = 8

type registerRequest struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Contact    string `json:"contact"`
	Password   string `json:"password"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	EmployeeID string `json:"employee_id"`
	Password   string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

type profileRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// loginIdentifier picks whichever of identifier, email or employee_id the
// client sent.
func (req loginRequest) loginIdentifier() string {
	for _, value := range []string{req.Identifier, req.Email, req.EmployeeID} {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req registerRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Contact = strings.TrimSpace(req.Contact)

	if req.EmployeeID == "" || req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "employee_id, name, email and password are required")
		return
	}
	if !isValidEmail(req.Email) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "email is invalid")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "password must be at least 8 characters")
		return
	}

	user, err := h.store.CreateUser(r.Context(), store.CreateUserInput{
		EmployeeID: req.EmployeeID,
		Name:       req.Name,
		Email:      req.Email,
		Contact:    req.Contact,
		Password:   req.Password,
		Role:       models.RoleEmployee,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req loginRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	identifier := req.loginIdentifier()
	if identifier == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "email or employee_id and password are required")
		return
	}

	user, err := h.store.Authenticate(r.Context(), identifier, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	token, expiresAt, err := h.issuer.Issue(user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, user)
	case http.MethodPut:
		var req profileRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Contact = strings.TrimSpace(req.Contact)
		if req.Name == "" {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "name is required")
			return
		}
		updated, err := h.store.UpdateProfile(r.Context(), user.UserID, store.ProfileInput{Name: req.Name, Contact: req.Contact})
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "current_password and new_password are required")
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "password must be at least 8 characters")
		return
	}

	err := h.store.ChangePassword(r.Context(), user.UserID, req.CurrentPassword, req.NewPassword)
	if errors.Is(err, store.ErrInvalidCredentials) {
		// A wrong current password must not look like an expired session.
		writeError(w, r, http.StatusBadRequest, "invalid_password", "current password is incorrect")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "password updated"})
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req forgotPasswordRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if !isValidEmail(req.Email) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "a valid email is required")
		return
	}

	accepted := messageResponse{Message: "if the account exists, a reset link has been sent"}

	token, tokenHash, err := auth.NewResetToken()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.store.CreatePasswordReset(r.Context(), req.Email, tokenHash, time.Now().UTC().Add(h.resetTTL))
	if errors.Is(err, store.ErrUserNotFound) {
		writeJSON(w, http.StatusOK, accepted)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	link := h.baseURL + "/reset-password?token=" + url.QueryEscape(token)
	sendCtx, cancel := context.WithTimeout(r.Context(), h.mailTimeout)
	defer cancel()
	if err := h.mailer.Send(sendCtx, mailer.PasswordReset(user, link, h.resetTTL)); err != nil {
		h.logger.Warn("password reset email failed", zap.String("user_id", user.UserID), zap.Error(err))
		writeError(w, r, http.StatusBadGateway, "email_failed", "could not send the reset email, please try again later")
		return
	}
	writeJSON(w, http.StatusOK, accepted)
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req resetPasswordRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "token and password are required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "password must be at least 8 characters")
		return
	}
	if err := h.store.ResetPassword(r.Context(), auth.HashResetToken(req.Token), req.Password); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "password has been reset"})
}
