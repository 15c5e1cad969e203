package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"fieldops/internal/auth"
	"fieldops/internal/mailer"
	"fieldops/internal/models"
	"fieldops/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	employeeID = "11111111-1111-1111-1111-111111111111"
	adminID    = "22222222-2222-2222-2222-222222222222"
	campID     = "33333333-3333-3333-3333-333333333333"
	customerID = "44444444-4444-4444-4444-444444444444"
)

var (
	employee = models.User{UserID: employeeID, EmployeeID: "E-1", Name: "Ana", Email: "ana@example.com", Role: models.RoleEmployee, Active: true}
	admin    = models.User{UserID: adminID, EmployeeID: "A-1", Name: "Ravi", Email: "ravi@example.com", Role: models.RoleAdmin, Active: true}
)

type fakeStore struct {
	createUserFn     func(ctx context.Context, input store.CreateUserInput) (models.User, error)
	authenticateFn   func(ctx context.Context, identifier, password string) (models.User, error)
	getUserFn        func(ctx context.Context, userID string) (models.User, error)
	listUsersFn      func(ctx context.Context, role string) ([]models.User, error)
	updateProfileFn  func(ctx context.Context, userID string, input store.ProfileInput) (models.User, error)
	updateRoleFn     func(ctx context.Context, userID, role string) (models.User, error)
	changePasswordFn func(ctx context.Context, userID, current, next string) error
	createResetFn    func(ctx context.Context, email, tokenHash string, expiresAt time.Time) (models.User, error)
	resetPasswordFn  func(ctx context.Context, tokenHash, password string) error

	createCustomerFn func(ctx context.Context, customer models.Customer) (models.Customer, error)
	getCustomerFn    func(ctx context.Context, scope store.Scope, customerID string) (models.Customer, error)
	listCustomersFn  func(ctx context.Context, scope store.Scope, filter store.CustomerFilter) ([]models.Customer, error)
	updateCustomerFn func(ctx context.Context, scope store.Scope, customer models.Customer) (models.Customer, error)
	deleteCustomerFn func(ctx context.Context, scope store.Scope, customerID string) error

	createCardFn func(ctx context.Context, scope store.Scope, card models.Card) (models.Card, error)
	getCardFn    func(ctx context.Context, scope store.Scope, cardID string) (models.Card, error)
	listCardsFn  func(ctx context.Context, scope store.Scope, customerID string) ([]models.Card, error)
	updateCardFn func(ctx context.Context, scope store.Scope, card models.Card) (models.Card, error)
	deleteCardFn func(ctx context.Context, scope store.Scope, cardID string) error

	createClaimFn func(ctx context.Context, scope store.Scope, claim models.Claim) (models.Claim, error)
	getClaimFn    func(ctx context.Context, scope store.Scope, claimID string) (models.Claim, error)
	listClaimsFn  func(ctx context.Context, scope store.Scope, filter store.ClaimFilter) ([]models.Claim, error)
	updateClaimFn func(ctx context.Context, scope store.Scope, claim models.Claim) (models.Claim, error)
	deleteClaimFn func(ctx context.Context, scope store.Scope, claimID string) error

	createCampFn func(ctx context.Context, camp models.Camp) (models.Camp, error)
	getCampFn    func(ctx context.Context, campID string) (models.Camp, error)
	listCampsFn  func(ctx context.Context, filter store.CampFilter) ([]models.Camp, error)
	updateCampFn func(ctx context.Context, camp models.Camp) (models.Camp, error)
	deleteCampFn func(ctx context.Context, campID string) error
	assignCampFn func(ctx context.Context, campID string, userIDs []string) (models.Camp, []models.User, error)
	campStatusFn func(ctx context.Context, campID, status string) (models.Camp, error)

	summaryFn func(ctx context.Context, scope store.Scope) (models.Summary, error)
}

func (f fakeStore) CreateUser(ctx context.Context, input store.CreateUserInput) (models.User, error) {
	if f.createUserFn == nil {
		return models.User{}, nil
	}
	return f.createUserFn(ctx, input)
}

func (f fakeStore) Authenticate(ctx context.Context, identifier, password string) (models.User, error) {
	if f.authenticateFn == nil {
		return models.User{}, store.ErrInvalidCredentials
	}
	return f.authenticateFn(ctx, identifier, password)
}

// GetUser resolves the two fixture users unless overridden.
func (f fakeStore) GetUser(ctx context.Context, userID string) (models.User, error) {
	if f.getUserFn != nil {
		return f.getUserFn(ctx, userID)
	}
	switch userID {
	case employeeID:
		return employee, nil
	case adminID:
		return admin, nil
	default:
		return models.User{}, store.ErrUserNotFound
	}
}

func (f fakeStore) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	if f.listUsersFn == nil {
		return nil, nil
	}
	return f.listUsersFn(ctx, role)
}

func (f fakeStore) UpdateProfile(ctx context.Context, userID string, input store.ProfileInput) (models.User, error) {
	if f.updateProfileFn == nil {
		return models.User{}, nil
	}
	return f.updateProfileFn(ctx, userID, input)
}

func (f fakeStore) UpdateUserRole(ctx context.Context, userID, role string) (models.User, error) {
	if f.updateRoleFn == nil {
		return models.User{}, nil
	}
	return f.updateRoleFn(ctx, userID, role)
}

func (f fakeStore) ChangePassword(ctx context.Context, userID, current, next string) error {
	if f.changePasswordFn == nil {
		return nil
	}
	return f.changePasswordFn(ctx, userID, current, next)
}

func (f fakeStore) CreatePasswordReset(ctx context.Context, email, tokenHash string, expiresAt time.Time) (models.User, error) {
	if f.createResetFn == nil {
		return models.User{}, store.ErrUserNotFound
	}
	return f.createResetFn(ctx, email, tokenHash, expiresAt)
}

func (f fakeStore) ResetPassword(ctx context.Context, tokenHash, password string) error {
	if f.resetPasswordFn == nil {
		return nil
	}
	return f.resetPasswordFn(ctx, tokenHash, password)
}

func (f fakeStore) CreateCustomer(ctx context.Context, customer models.Customer) (models.Customer, error) {
	if f.createCustomerFn == nil {
		return customer, nil
	}
	return f.createCustomerFn(ctx, customer)
}

func (f fakeStore) GetCustomer(ctx context.Context, scope store.Scope, customerID string) (models.Customer, error) {
	if f.getCustomerFn == nil {
		return models.Customer{}, store.ErrCustomerNotFound
	}
	return f.getCustomerFn(ctx, scope, customerID)
}

func (f fakeStore) ListCustomers(ctx context.Context, scope store.Scope, filter store.CustomerFilter) ([]models.Customer, error) {
	if f.listCustomersFn == nil {
		return nil, nil
	}
	return f.listCustomersFn(ctx, scope, filter)
}

func (f fakeStore) UpdateCustomer(ctx context.Context, scope store.Scope, customer models.Customer) (models.Customer, error) {
	if f.updateCustomerFn == nil {
		return customer, nil
	}
	return f.updateCustomerFn(ctx, scope, customer)
}

func (f fakeStore) DeleteCustomer(ctx context.Context, scope store.Scope, customerID string) error {
	if f.deleteCustomerFn == nil {
		return nil
	}
	return f.deleteCustomerFn(ctx, scope, customerID)
}

func (f fakeStore) CreateCard(ctx context.Context, scope store.Scope, card models.Card) (models.Card, error) {
	if f.createCardFn == nil {
		return card, nil
	}
	return f.createCardFn(ctx, scope, card)
}

func (f fakeStore) GetCard(ctx context.Context, scope store.Scope, cardID string) (models.Card, error) {
	if f.getCardFn == nil {
		return models.Card{}, store.ErrCardNotFound
	}
	return f.getCardFn(ctx, scope, cardID)
}

func (f fakeStore) ListCards(ctx context.Context, scope store.Scope, customerID string) ([]models.Card, error) {
	if f.listCardsFn == nil {
		return nil, nil
	}
	return f.listCardsFn(ctx, scope, customerID)
}

func (f fakeStore) UpdateCard(ctx context.Context, scope store.Scope, card models.Card) (models.Card, error) {
	if f.updateCardFn == nil {
		return card, nil
	}
	return f.updateCardFn(ctx, scope, card)
}

func (f fakeStore) DeleteCard(ctx context.Context, scope store.Scope, cardID string) error {
	if f.deleteCardFn == nil {
		return nil
	}
	return f.deleteCardFn(ctx, scope, cardID)
}

func (f fakeStore) CreateClaim(ctx context.Context, scope store.Scope, claim models.Claim) (models.Claim, error) {
	if f.createClaimFn == nil {
		return claim, nil
	}
	return f.createClaimFn(ctx, scope, claim)
}

func (f fakeStore) GetClaim(ctx context.Context, scope store.Scope, claimID string) (models.Claim, error) {
	if f.getClaimFn == nil {
		return models.Claim{}, store.ErrClaimNotFound
	}
	return f.getClaimFn(ctx, scope, claimID)
}

func (f fakeStore) ListClaims(ctx context.Context, scope store.Scope, filter store.ClaimFilter) ([]models.Claim, error) {
	if f.listClaimsFn == nil {
		return nil, nil
	}
	return f.listClaimsFn(ctx, scope, filter)
}

func (f fakeStore) UpdateClaim(ctx context.Context, scope store.Scope, claim models.Claim) (models.Claim, error) {
	if f.updateClaimFn == nil {
		return claim, nil
	}
	return f.updateClaimFn(ctx, scope, claim)
}

func (f fakeStore) DeleteClaim(ctx context.Context, scope store.Scope, claimID string) error {
	if f.deleteClaimFn == nil {
		return nil
	}
	return f.deleteClaimFn(ctx, scope, claimID)
}

func (f fakeStore) CreateCamp(ctx context.Context, camp models.Camp) (models.Camp, error) {
	if f.createCampFn == nil {
		return camp, nil
	}
	return f.createCampFn(ctx, camp)
}

func (f fakeStore) GetCamp(ctx context.Context, campID string) (models.Camp, error) {
	if f.getCampFn == nil {
		return models.Camp{}, store.ErrCampNotFound
	}
	return f.getCampFn(ctx, campID)
}

func (f fakeStore) ListCamps(ctx context.Context, filter store.CampFilter) ([]models.Camp, error) {
	if f.listCampsFn == nil {
		return nil, nil
	}
	return f.listCampsFn(ctx, filter)
}

func (f fakeStore) UpdateCamp(ctx context.Context, camp models.Camp) (models.Camp, error) {
	if f.updateCampFn == nil {
		return camp, nil
	}
	return f.updateCampFn(ctx, camp)
}

func (f fakeStore) DeleteCamp(ctx context.Context, campID string) error {
	if f.deleteCampFn == nil {
		return nil
	}
	return f.deleteCampFn(ctx, campID)
}

func (f fakeStore) AssignCamp(ctx context.Context, campID string, userIDs []string) (models.Camp, []models.User, error) {
	if f.assignCampFn == nil {
		return models.Camp{}, nil, nil
	}
	return f.assignCampFn(ctx, campID, userIDs)
}

func (f fakeStore) UpdateCampStatus(ctx context.Context, campID, status string) (models.Camp, error) {
	if f.campStatusFn == nil {
		return models.Camp{}, nil
	}
	return f.campStatusFn(ctx, campID, status)
}

func (f fakeStore) Summary(ctx context.Context, scope store.Scope) (models.Summary, error) {
	if f.summaryFn == nil {
		return models.Summary{}, nil
	}
	return f.summaryFn(ctx, scope)
}

type fakeMailer struct {
	mu       sync.Mutex
	err      error
	messages []mailer.Message
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return m.err
}

func (m *fakeMailer) sent() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.messages...)
}

type testServer struct {
	handler *Handler
	issuer  *auth.Issuer
	routes  http.Handler
}

func newTestServer(t *testing.T, st fakeStore, sender mailer.Sender) testServer {
	t.Helper()
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	if sender == nil {
		sender = &fakeMailer{}
	}
	h := NewHandler(st, issuer, sender, zap.NewNop(), Options{
		ResetTokenTTL: time.Hour,
		AppBaseURL:    "https://ops.example.com/",
	})
	return testServer{
		handler: h,
		issuer:  issuer,
		routes:  AuthMiddleware(issuer, st, h.Routes()),
	}
}

func (s testServer) do(t *testing.T, method, path string, user *models.User, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		switch value := payload.(type) {
		case string:
			body.WriteString(value)
		default:
			require.NoError(t, json.NewEncoder(&body).Encode(value))
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, _, err := s.issuer.Issue(*user)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	s.routes.ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) responseError {
	t.Helper()
	var envelope errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Error
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, fakeStore{}, nil)
	resp := srv.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestLoginSuccess(t *testing.T) {
	st := fakeStore{
		authenticateFn: func(ctx context.Context, identifier, password string) (models.User, error) {
			if identifier != "E-1" || password != "secret-pass" {
				return models.User{}, store.ErrInvalidCredentials
			}
			return employee, nil
		},
	}
	srv := newTestServer(t, st, nil)

	resp := srv.do(t, http.MethodPost, "/api/auth/login", nil, map[string]string{"employee_id": "E-1", "password": "secret-pass"})
	require.Equal(t, http.StatusOK, resp.Code)

	var body loginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, employeeID, body.User.UserID)
	claims, err := srv.issuer.Verify(body.Token)
	require.NoError(t, err)
	assert.Equal(t, employeeID, claims.Subject)
}

func TestLoginInvalidCredentials(t *testing.T) {
	srv := newTestServer(t, fakeStore{}, nil)
	resp := srv.do(t, http.MethodPost, "/api/auth/login", nil, map[string]string{"email": "ana@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "invalid_credentials", decodeError(t, resp).Code)
}

func TestLoginRejectsUnknownFields(t *testing.T) {
	srv := newTestServer(t, fakeStore{}, nil)
	resp := srv.do(t, http.MethodPost, "/api/auth/login", nil, `{"email":"ana@example.com","password":"x","remember":true}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_json", decodeError(t, resp).Code)
}

func TestRegisterAlwaysCreatesEmployee(t *testing.T) {
	var captured store.CreateUserInput
	st := fakeStore{
		createUserFn: func(ctx context.Context, input store.CreateUserInput) (models.User, error) {
			captured = input
			return models.User{UserID: employeeID, Role: input.Role}, nil
		},
	}
	srv := newTestServer(t, st, nil)

	resp := srv.do(t, http.MethodPost, "/api/auth/register", nil, registerRequest{
		EmployeeID: "E-9", Name: "New", Email: "new@example.com", Password: "long-enough",
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, models.RoleEmployee, captured.Role)

	resp = srv.do(t, http.MethodPost, "/api/auth/register", nil, registerRequest{
		EmployeeID: "E-9", Name: "New", Email: "new@example.com", Password: "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAuthMiddlewareRejectsMissingAndInvalidTokens(t *testing.T) {
	srv := newTestServer(t, fakeStore{}, nil)

	resp := srv.do(t, http.MethodGet, "/api/customers", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/customers", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	srv.routes.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ghost := models.User{UserID: "99999999-9999-9999-9999-999999999999", Role: models.RoleEmployee}
	resp = srv.do(t, http.MethodGet, "/api/customers", &ghost, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthMiddlewareRejectsInactiveUser(t *testing.T) {
	st := fakeStore{
		getUserFn: func(ctx context.Context, userID string) (models.User, error) {
			disabled := employee
			disabled.Active = false
			return disabled, nil
		},
	}
	srv := newTestServer(t, st, nil)
	resp := srv.do(t, http.MethodGet, "/api/auth/profile", &employee, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestProfileReturnsCaller(t *testing.T) {
	srv := newTestServer(t, fakeStore{}, nil)
	resp := srv.do(t, http.MethodGet, "/api/auth/profile", &employee, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var user models.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&user))
	assert.Equal(t, "ana@example.com", user.Email)
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	st := fakeStore{
		changePasswordFn: func(ctx context.Context, userID, current, next string) error {
			return store.ErrInvalidCredentials
		},
	}
	srv := newTestServer(t, st, nil)
	resp := srv.do(t, http.MethodPost, "/api/auth/change-password", &employee, changePasswordRequest{
		CurrentPassword: "old-password", NewPassword: "new-password",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_password", decodeError(t, resp).Code)
}

func TestUsersRequiresAdmin(t *testing.T) {
	st := fakeStore{
		listUsersFn: func(ctx context.Context, role string) ([]models.User, error) {
			return []models.User{employee}, nil
		},
	}
	srv := newTestServer(t, st, nil)

	resp := srv.do(t, http.MethodGet, "/api/users", &employee, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = srv.do(t, http.MethodGet, "/api/users?role=employee", &admin, nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = srv.do(t, http.MethodGet, "/api/users?role=owner", &admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdateUserRole(t *testing.T) {
	st := fakeStore{
		updateRoleFn: func(ctx context.Context, userID, role string) (models.User, error) {
			promoted := employee
			promoted.Role = role
			return promoted, nil
		},
	}
	srv := newTestServer(t, st, nil)

	resp := srv.do(t, http.MethodPut, "/api/users/"+employeeID+"/role", &admin, roleRequest{Role: models.RoleAdmin})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = srv.do(t, http.MethodPut, "/api/users/"+adminID+"/role", &admin, roleRequest{Role: models.RoleEmployee})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestCreateCustomerComputesPending(t *testing.T) {
	var stored models.Customer
	st := fakeStore{
		createCustomerFn: func(ctx context.Context, customer models.Customer) (models.Customer, error) {
			stored = customer
			customer.CustomerID = customerID
			return customer, nil
		},
	}
	srv := newTestServer(t, st, nil)

	resp := srv.do(t, http.MethodPost, "/api/customers", &employee, map[string]interface{}{
		"name":             "Kiran",
		"discussed_amount": 1000,
		"paid_amount":      250.5,
		"pending_amount":   1,
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, employeeID, stored.CreatedBy)
	assert.InDelta(t, 749.5, stored.PendingAmount, 0.001)

	resp = srv.do(t, http.MethodPost, "/api/customers", &employee, map[string]interface{}{
		"name":             "Kiran",
		"discussed_amount": 100,
		"paid_amount":      400,
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, 0.0, stored.PendingAmount)
}

func TestCreateCustomerRejectsNegativeAmount(t *testing.T) {
	srv := newTestServer(t, fakeStore{}, nil)
	resp := srv.do(t, http.MethodPost, "/api/customers", &employee, map[string]interface{}{
		"name":             "Kiran",
		"discussed_amount": -5,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateCustomerRejectsOversizedAmount(t *testing.T) {
	created := false
	srv := newTestServer(t, fakeStore{
		createCustomerFn: func(_ context.Context, customer models.Customer) (models.Customer, error) {
			created = true
			return customer, nil
		},
	}, nil)

	for _, payload := range []string{
		`{"name":"Kiran","discussed_amount":1e308}`,
		`{"name":"Kiran","discussed_amount":10,"paid_amount":1e12}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/customers", strings.NewReader(payload))
		token, _, err := srv.issuer.Issue(employee)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		srv.routes.ServeHTTP(resp, req)

		assert.Equal(t, http.StatusBadRequest, resp.Code, payload)
		assert.Equal(t, "invalid_request", decodeError(t, resp).Code)
	}
	assert.False(t, created)
}

func TestCustomerScopeFollowsRole(t *testing.T) {
	var scopes []store.Scope
	st := fakeStore{
		listCustomersFn: func(ctx context.Context, scope store.Scope, filter store.CustomerFilter) ([]models.Customer, error) {
			scopes = append(scopes, scope)
			assert.Equal(t, "kir", filter.Search)
			return nil, nil
		},
	}
	srv := newTestServer(t, st, nil)

	resp := srv.do(t, http.MethodGet, "/api/customers?q=kir", &employee, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "[]\n", resp.Body.String())

	resp = srv.do(t, http.MethodGet, "/api/customers?q=kir", &admin, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	require.Len(t, scopes, 2)
	assert.Equal(t, employeeID, scopes[0].OwnerID)
	assert.Equal(t, "", scopes[1].OwnerID)
}

func TestGetCustomerNotFoundOutsideScope(t *testing.T) {
	srv := newTestServer(t, fakeStore{}, nil)
	resp := srv.do(t, http.MethodGet, "/api/customers/"+customerID, &employee, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "customer_not_found", decodeError(t, resp).Code)

	resp = srv.do(t, http.MethodGet, "/api/customers/not-a-uuid", &employee, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateCardConflicts(t *testing.T) {
	for _, tc := range []struct {
		err  error
		code string
	}{
		{store.ErrCardExists, "card_exists"},
		{store.ErrDuplicateCard, "duplicate_card"},
	} {
		st := fakeStore{
			createCardFn: func(ctx context.Context, scope store.Scope, card models.Card) (models.Card, error) {
				return models.Card{}, tc.err
			},
		}
		srv := newTestServer(t, st, nil)
		resp := srv.do(t, http.MethodPost, "/api/cards", &employee, cardRequest{CustomerID: customerID, CardNumber: "C-1"})
		assert.Equal(t, http.StatusConflict, resp.Code)
		assert.Equal(t, tc.code, decodeError(t, resp).Code)
	}
}

func TestUpdateClaimKeepsStateWhenOmitted(t *testing.T) {
	claimID := "55555555-5555-5555-5555-555555555555"
	var updated models.Claim
	st := fakeStore{
		getClaimFn: func(ctx context.Context, scope store.Scope, id string) (models.Claim, error) {
			return models.Claim{ClaimID: id, ProcessState: models.ClaimApproved}, nil
		},
		updateClaimFn: func(ctx context.Context, scope store.Scope, claim models.Claim) (models.Claim, error) {
			updated = claim
			return claim, nil
		},
	}
	srv := newTestServer(t, st, nil)
	resp := srv.do(t, http.MethodPut, "/api/claims/"+claimID, &employee, claimRequest{
		TypeOfClaim: "medical", DiscussedAmount: 500, PaidAmount: 100,
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, models.ClaimApproved, updated.ProcessState)
	assert.InDelta(t, 400, updated.PendingAmount, 0.001)

	resp = srv.do(t, http.MethodPut, "/api/claims/"+claimID, &employee, claimRequest{
		TypeOfClaim: "medical", ProcessState: "lost",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListCampsScopesEmployees(t *testing.T) {
	var filters []store.CampFilter
	st := fakeStore{
		listCampsFn: func(ctx context.Context, filter store.CampFilter) ([]models.Camp, error) {
			filters = append(filters, filter)
			return []models.Camp{{CampID: campID, Status: filter.Status}}, nil
		},
	}
	srv := newTestServer(t, st, nil)

	resp := srv.do(t, http.MethodGet, "/api/camps?status=planned&assigned_to="+adminID, &employee, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	resp = srv.do(t, http.MethodGet, "/api/camps?status=ongoing", &admin, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	resp = srv.do(t, http.MethodGet, "/api/camps?status=postponed", &admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	require.Len(t, filters, 2)
	assert.Equal(t, store.CampFilter{Status: "planned", AssignedTo: employeeID}, filters[0])
	assert.Equal(t, store.CampFilter{Status: "ongoing"}, filters[1])
}

func TestCreateCampAdminOnly(t *testing.T) {
	srv := newTestServer(t, fakeStore{}, nil)
	payload := campRequest{Date: "2026-03-01", Location: "Pune"}

	resp := srv.do(t, http.MethodPost, "/api/camps", &employee, payload)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = srv.do(t, http.MethodPost, "/api/camps", &admin, payload)
	assert.Equal(t, http.StatusCreated, resp.Code)

	resp = srv.do(t, http.MethodPost, "/api/camps", &admin, campRequest{Date: "01/03/2026", Location: "Pune"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCampStatusPermissions(t *testing.T) {
	other := models.User{UserID: "66666666-6666-6666-6666-666666666666", Role: models.RoleEmployee, Active: true}
	var statuses []string
	st := fakeStore{
		getUserFn: func(ctx context.Context, userID string) (models.User, error) {
			switch userID {
			case employeeID:
				return employee, nil
			case other.UserID:
				return other, nil
			default:
				return admin, nil
			}
		},
		getCampFn: func(ctx context.Context, id string) (models.Camp, error) {
			return models.Camp{CampID: id, Status: models.CampPlanned, Assigned: []models.UserRef{employee.Ref()}}, nil
		},
		campStatusFn: func(ctx context.Context, id, status string) (models.Camp, error) {
			statuses = append(statuses, status)
			if status == models.CampCompleted {
				return models.Camp{}, store.ErrInvalidTransition
			}
			return models.Camp{CampID: id, Status: status}, nil
		},
	}
	srv := newTestServer(t, st, nil)
	path := "/api/camps/" + campID + "/status"

	resp := srv.do(t, http.MethodPost, path, &other, campStatusRequest{Status: models.CampOngoing})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = srv.do(t, http.MethodPost, path, &employee, campStatusRequest{Status: models.CampOngoing})
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = srv.do(t, http.MethodPost, path, &admin, campStatusRequest{Status: models.CampCompleted})
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "invalid_transition", decodeError(t, resp).Code)

	resp = srv.do(t, http.MethodPost, path, &admin, campStatusRequest{Status: "archived"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	assert.Equal(t, []string{models.CampOngoing, models.CampCompleted}, statuses)
}

func TestGetCampHiddenFromUnassignedEmployee(t *testing.T) {
	st := fakeStore{
		getCampFn: func(ctx context.Context, id string) (models.Camp, error) {
			return models.Camp{CampID: id, Status: models.CampPlanned}, nil
		},
	}
	srv := newTestServer(t, st, nil)
	resp := srv.do(t, http.MethodGet, "/api/camps/"+campID, &employee, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = srv.do(t, http.MethodGet, "/api/camps/"+campID, &admin, nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestUpdateCampRejectsStatusChange(t *testing.T) {
	st := fakeStore{
		getCampFn: func(ctx context.Context, id string) (models.Camp, error) {
			return models.Camp{CampID: id, Status: models.CampPlanned}, nil
		},
	}
	srv := newTestServer(t, st, nil)
	resp := srv.do(t, http.MethodPut, "/api/camps/"+campID, &admin, campRequest{Date: "2026-03-01", Location: "Pune", Status: models.CampCompleted})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = srv.do(t, http.MethodPut, "/api/camps/"+campID, &admin, campRequest{Date: "2026-03-02", Location: "Nashik"})
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestAssignCampEmailsNewlyAssigned(t *testing.T) {
	var requested []string
	st := fakeStore{
		assignCampFn: func(ctx context.Context, id string, userIDs []string) (models.Camp, []models.User, error) {
			requested = userIDs
			camp := models.Camp{CampID: id, Date: "2026-03-01", Location: "Pune", Assigned: []models.UserRef{employee.Ref()}}
			return camp, []models.User{employee}, nil
		},
	}
	sender := &fakeMailer{err: errors.New("smtp down")}
	srv := newTestServer(t, st, sender)

	resp := srv.do(t, http.MethodPost, "/api/camps/"+campID+"/assign", &admin, assignRequest{EmployeeIDs: []string{employeeID}})
	require.Equal(t, http.StatusOK, resp.Code)
	srv.handler.Wait()

	assert.Equal(t, []string{employeeID}, requested)
	sent := sender.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ana@example.com", sent[0].To)
	assert.Contains(t, sent[0].Subject, "Pune")

	for _, id := range []string{"bogus", employee.EmployeeID} {
		resp = srv.do(t, http.MethodPost, "/api/camps/"+campID+"/assign", &admin, assignRequest{EmployeeIDs: []string{id}})
		assert.Equal(t, http.StatusBadRequest, resp.Code, id)
	}

	resp = srv.do(t, http.MethodPost, "/api/camps/"+campID+"/assign", &employee, assignRequest{EmployeeIDs: []string{employeeID}})
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	sender := &fakeMailer{}
	srv := newTestServer(t, fakeStore{}, sender)
	resp := srv.do(t, http.MethodPost, "/api/auth/forgot-password", nil, forgotPasswordRequest{Email: "nobody@example.com"})
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, sender.sent())
}

func TestForgotPasswordSendsLink(t *testing.T) {
	var storedHash string
	st := fakeStore{
		createResetFn: func(ctx context.Context, email, tokenHash string, expiresAt time.Time) (models.User, error) {
			storedHash = tokenHash
			assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)
			return employee, nil
		},
	}
	sender := &fakeMailer{}
	srv := newTestServer(t, st, sender)

	resp := srv.do(t, http.MethodPost, "/api/auth/forgot-password", nil, forgotPasswordRequest{Email: "ana@example.com"})
	require.Equal(t, http.StatusOK, resp.Code)

	sent := sender.sent()
	require.Len(t, sent, 1)
	idx := strings.Index(sent[0].Body, "https://ops.example.com/reset-password?token=")
	require.GreaterOrEqual(t, idx, 0)
	token := strings.Fields(sent[0].Body[idx+len("https://ops.example.com/reset-password?token="):])[0]
	assert.Equal(t, storedHash, auth.HashResetToken(token))
}

func TestForgotPasswordMailerFailure(t *testing.T) {
	st := fakeStore{
		createResetFn: func(ctx context.Context, email, tokenHash string, expiresAt time.Time) (models.User, error) {
			return employee, nil
		},
	}
	srv := newTestServer(t, st, &fakeMailer{err: errors.New("exit status 1")})
	resp := srv.do(t, http.MethodPost, "/api/auth/forgot-password", nil, forgotPasswordRequest{Email: "ana@example.com"})
	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Equal(t, "email_failed", decodeError(t, resp).Code)
}

type blockingMailer struct{}

func (blockingMailer) Send(ctx context.Context, _ mailer.Message) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestForgotPasswordAnswersBeforeWriteTimeout(t *testing.T) {
	st := fakeStore{
		createResetFn: func(ctx context.Context, email, tokenHash string, expiresAt time.Time) (models.User, error) {
			return employee, nil
		},
	}
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	h := NewHandler(st, issuer, blockingMailer{}, zap.NewNop(), Options{MailTimeout: 50 * time.Millisecond})

	server := httptest.NewUnstartedServer(AuthMiddleware(issuer, st, h.Routes()))
	server.Config.WriteTimeout = time.Second
	server.Start()
	defer server.Close()

	client := server.Client()
	client.Timeout = 5 * time.Second
	resp, err := client.Post(server.URL+"/api/auth/forgot-password", "application/json", strings.NewReader(`{"email":"ana@example.com"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var envelope errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "email_failed", envelope.Error.Code)
}

func TestResetPasswordInvalidToken(t *testing.T) {
	st := fakeStore{
		resetPasswordFn: func(ctx context.Context, tokenHash, password string) error {
			return store.ErrResetTokenInvalid
		},
	}
	srv := newTestServer(t, st, nil)
	resp := srv.do(t, http.MethodPost, "/api/auth/reset-password", nil, resetPasswordRequest{Token: "abc", Password: "new-password"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_reset_token", decodeError(t, resp).Code)
}

func TestSummaryUsesCallerScope(t *testing.T) {
	var captured store.Scope
	st := fakeStore{
		summaryFn: func(ctx context.Context, scope store.Scope) (models.Summary, error) {
			captured = scope
			return models.Summary{Customers: 2}, nil
		},
	}
	srv := newTestServer(t, st, nil)
	resp := srv.do(t, http.MethodGet, "/api/dashboard/summary", &employee, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, employeeID, captured.OwnerID)
}

func TestUnexpectedStoreErrorIsInternal(t *testing.T) {
	st := fakeStore{
		listCustomersFn: func(ctx context.Context, scope store.Scope, filter store.CustomerFilter) ([]models.Customer, error) {
			return nil, errors.New("connection reset")
		},
	}
	srv := newTestServer(t, st, nil)
	resp := srv.do(t, http.MethodGet, "/api/customers", &admin, nil)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, "internal_error", decodeError(t, resp).Code)
}
