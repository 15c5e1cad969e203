package httpapi

import (
	"encoding/json"
	"errors"
	"expvar"
	"net/http"
	"strings"
	"sync"
	"time"

	"fieldops/internal/auth"
	"fieldops/internal/mailer"
	"fieldops/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	store       store.Store
	issuer      *auth.Issuer
	mailer      mailer.Sender
	logger      *zap.Logger
	resetTTL    time.Duration
	baseURL     string
	mailTimeout time.Duration

	background sync.WaitGroup
}

type Options struct {
	ResetTokenTTL time.Duration
	AppBaseURL    string
	// MailTimeout bounds emails sent while a request waits. It must stay
	// below the server's write timeout so the client still gets a response.
	MailTimeout time.Duration
}

type errorResponse struct {
	RequestID string        `json:"request_id,omitempty"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(st store.Store, issuer *auth.Issuer, sender mailer.Sender, logger *zap.Logger, options Options) *Handler {
	if options.ResetTokenTTL <= 0 {
		options.ResetTokenTTL = time.Hour
	}
	if options.MailTimeout <= 0 {
		options.MailTimeout = 8 * time.Second
	}
	return &Handler{
		store:       st,
		issuer:      issuer,
		mailer:      sender,
		logger:      logger,
		resetTTL:    options.ResetTokenTTL,
		baseURL:     strings.TrimRight(options.AppBaseURL, "/"),
		mailTimeout: options.MailTimeout,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.Handle("/metrics", expvar.Handler())
	mux.HandleFunc("/api/auth/register", h.handleRegister)
	mux.HandleFunc("/api/auth/login", h.handleLogin)
	mux.HandleFunc("/api/auth/profile", h.handleProfile)
	mux.HandleFunc("/api/auth/change-password", h.handleChangePassword)
	mux.HandleFunc("/api/auth/forgot-password", h.handleForgotPassword)
	mux.HandleFunc("/api/auth/reset-password", h.handleResetPassword)
	mux.HandleFunc("/api/users", h.handleUsers)
	mux.HandleFunc("/api/users/", h.handleUserActions)
	mux.HandleFunc("/api/customers", h.handleCustomers)
	mux.HandleFunc("/api/customers/", h.handleCustomer)
	mux.HandleFunc("/api/cards", h.handleCards)
	mux.HandleFunc("/api/cards/", h.handleCard)
	mux.HandleFunc("/api/claims", h.handleClaims)
	mux.HandleFunc("/api/claims/", h.handleClaim)
	mux.HandleFunc("/api/camps", h.handleCamps)
	mux.HandleFunc("/api/camps/", h.handleCampActions)
	mux.HandleFunc("/api/dashboard/summary", h.handleSummary)
	return mux
}

// Wait blocks until background notifications started by requests finish.
func (h *Handler) Wait() {
	h.background.Wait()
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pathID extracts the resource id and optional action from paths like
// /api/camps/{id} and /api/camps/{id}/status.
func pathID(r *http.Request, prefix string) (string, string, bool) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if path == "" {
		return "", "", false
	}
	parts := strings.Split(path, "/")
	switch len(parts) {
	case 1:
		return parts[0], "", true
	case 2:
		return parts[0], parts[1], true
	default:
		return "", "", false
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

func isValidEmail(value string) bool {
	at := strings.Index(value, "@")
	return at > 0 && at < len(value)-1 && !strings.ContainsAny(value, " \t\r\n")
}

// fail maps a store error to a response and logs anything unexpected.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := mapError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, r, status, code, msg)
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid credentials"
	case errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found", "user not found"
	case errors.Is(err, store.ErrDuplicateUser):
		return http.StatusConflict, "duplicate_user", "email or employee_id already registered"
	case errors.Is(err, store.ErrResetTokenInvalid):
		return http.StatusBadRequest, "invalid_reset_token", "reset token is invalid or expired"
	case errors.Is(err, store.ErrCustomerNotFound):
		return http.StatusNotFound, "customer_not_found", "customer not found"
	case errors.Is(err, store.ErrCardNotFound):
		return http.StatusNotFound, "card_not_found", "card not found"
	case errors.Is(err, store.ErrCardExists):
		return http.StatusConflict, "card_exists", "customer already has a card"
	case errors.Is(err, store.ErrDuplicateCard):
		return http.StatusConflict, "duplicate_card", "card number already registered"
	case errors.Is(err, store.ErrClaimNotFound):
		return http.StatusNotFound, "claim_not_found", "claim not found"
	case errors.Is(err, store.ErrCampNotFound):
		return http.StatusNotFound, "camp_not_found", "camp not found"
	case errors.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition", "camp status does not allow this change"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestIDFromRequest(r),
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func requestIDFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Header.Get("X-Request-ID"))
}
