package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrMissingCredentials = errors.New("email and password are required")
	ErrMissingFields      = errors.New("email, password and name are required")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNotAuthenticated   = errors.New("no user is logged in")
	ErrLevelLocked        = errors.New("task requires a higher level")
	ErrBelowMinimum       = errors.New("amount below minimum withdrawal")
	ErrInsufficientCoins  = errors.New("insufficient coins")
)
