package store

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateUser      = errors.New("user already exists")
	ErrResetTokenInvalid  = errors.New("reset token invalid or expired")
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrCardNotFound       = errors.New("card not found")
	ErrCardExists         = errors.New("customer already has a card")
	ErrDuplicateCard      = errors.New("card number already registered")
	ErrClaimNotFound      = errors.New("claim not found")
	ErrCampNotFound       = errors.New("camp not found")
	ErrInvalidTransition  = errors.New("invalid camp status transition")
)
