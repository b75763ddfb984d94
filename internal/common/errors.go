package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Validation errors raised before any network call.
	ErrorEmptyEmail    = errors.New("email is required")
	ErrorEmptyPassword = errors.New("password is required")
	ErrorEmptyOTP      = errors.New("otp is required")
	ErrorMissingFields = errors.New("missing required fields")
)
