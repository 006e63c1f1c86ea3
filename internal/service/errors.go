package service

import "errors"

var (
	// ErrInvalidCredentials is returned for an unknown username or a wrong
	// password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountExpired is returned when the password is correct but the
	// account's expiry lies in the past.
	ErrAccountExpired = errors.New("account expired")

	// ErrMissingFields is returned when a username or password is blank.
	ErrMissingFields = errors.New("username and password are required")

	// ErrRegistrationClosed is returned by Register when self-service
	// registration is disabled.
	ErrRegistrationClosed = errors.New("registration is disabled")
)
