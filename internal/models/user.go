package models

import "time"

const (
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

type User struct {
	UserID     string    `json:"user_id"`
	EmployeeID string    `json:"employee_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Contact    string    `json:"contact"`
	Role       string    `json:"role"`
	Active     bool      `json:"active"`
	Created    time.Time `json:"created_at"`
}

// UserRef is the short form of a user embedded in other resources.
type UserRef struct {
	UserID     string `json:"user_id"`
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u User) Ref() UserRef {
	return UserRef{UserID: u.UserID, EmployeeID: u.EmployeeID, Name: u.Name, Email: u.Email}
}

func ValidRole(role string) bool {
	return role == RoleEmployee || role == RoleAdmin
}
