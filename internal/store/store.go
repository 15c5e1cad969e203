package store

import (
	"context"
	"time"

	"fieldops/internal/models"
)

// Scope limits which customers (and their cards and claims) a caller can
// reach. An empty OwnerID means unrestricted.
type Scope struct {
	OwnerID string
}

func ScopeFor(user models.User) Scope {
	if user.IsAdmin() {
		return Scope{}
	}
	return Scope{OwnerID: user.UserID}
}

type CreateUserInput struct {
	EmployeeID string
	Name       string
	Email      string
	Contact    string
	Password   string
	Role       string
}

type ProfileInput struct {
	Name    string
	Contact string
}

type CustomerFilter struct {
	Search string
}

type ClaimFilter struct {
	CardID       string
	ProcessState string
}

type CampFilter struct {
	Status     string
	AssignedTo string
}

type UserStore interface {
	CreateUser(ctx context.Context, input CreateUserInput) (models.User, error)
	Authenticate(ctx context.Context, identifier, password string) (models.User, error)
	GetUser(ctx context.Context, userID string) (models.User, error)
	ListUsers(ctx context.Context, role string) ([]models.User, error)
	UpdateProfile(ctx context.Context, userID string, input ProfileInput) (models.User, error)
	UpdateUserRole(ctx context.Context, userID, role string) (models.User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
	CreatePasswordReset(ctx context.Context, email, tokenHash string, expiresAt time.Time) (models.User, error)
	ResetPassword(ctx context.Context, tokenHash, password string) error
}

type CustomerStore interface {
	CreateCustomer(ctx context.Context, customer models.Customer) (models.Customer, error)
	GetCustomer(ctx context.Context, scope Scope, customerID string) (models.Customer, error)
	ListCustomers(ctx context.Context, scope Scope, filter CustomerFilter) ([]models.Customer, error)
	UpdateCustomer(ctx context.Context, scope Scope, customer models.Customer) (models.Customer, error)
	DeleteCustomer(ctx context.Context, scope Scope, customerID string) error
}

type CardStore interface {
	CreateCard(ctx context.Context, scope Scope, card models.Card) (models.Card, error)
	GetCard(ctx context.Context, scope Scope, cardID string) (models.Card, error)
	ListCards(ctx context.Context, scope Scope, customerID string) ([]models.Card, error)
	UpdateCard(ctx context.Context, scope Scope, card models.Card) (models.Card, error)
	DeleteCard(ctx context.Context, scope Scope, cardID string) error
}

type ClaimStore interface {
	CreateClaim(ctx context.Context, scope Scope, claim models.Claim) (models.Claim, error)
	GetClaim(ctx context.Context, scope Scope, claimID string) (models.Claim, error)
	ListClaims(ctx context.Context, scope Scope, filter ClaimFilter) ([]models.Claim, error)
	UpdateClaim(ctx context.Context, scope Scope, claim models.Claim) (models.Claim, error)
	DeleteClaim(ctx context.Context, scope Scope, claimID string) error
}

type CampStore interface {
	CreateCamp(ctx context.Context, camp models.Camp) (models.Camp, error)
	GetCamp(ctx context.Context, campID string) (models.Camp, error)
	ListCamps(ctx context.Context, filter CampFilter) ([]models.Camp, error)
	UpdateCamp(ctx context.Context, camp models.Camp) (models.Camp, error)
	DeleteCamp(ctx context.Context, campID string) error
	// AssignCamp replaces the assignment set and returns the updated camp
	// together with the users that were not assigned before.
	AssignCamp(ctx context.Context, campID string, userIDs []string) (models.Camp, []models.User, error)
	UpdateCampStatus(ctx context.Context, campID, status string) (models.Camp, error)
}

type ReportStore interface {
	Summary(ctx context.Context, scope Scope) (models.Summary, error)
}

type Store interface {
	UserStore
	CustomerStore
	CardStore
	ClaimStore
	CampStore
	ReportStore
}
