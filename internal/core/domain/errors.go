package domain

import "errors"

var (
	ErrInvalidUserID      = errors.New("invalid user id")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrIdentityMismatch   = errors.New("claimed identity does not match token")
	ErrEmptyMessage       = errors.New("message requires text or image")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrInvalidInput       = errors.New("invalid input")
)

// Realtime errors
var (
	ErrRegistryClosed   = errors.New("registry closed")
	ErrHandleRegistered = errors.New("connection handle already registered")
	ErrClientClosed     = errors.New("client closed")
)
