package profiles

import "errors"

var (
	ErrNotFound           = errors.New("profile not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)
