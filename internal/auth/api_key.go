package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

var (
	// ErrMissingAPIKey indicates the validator was built without a key.
	ErrMissingAPIKey = errors.New("api key validator: key required")
	// ErrInvalidAPIKey indicates the supplied key did not match.
	ErrInvalidAPIKey = errors.New("api key validator: invalid key")
)

// APIKeyValidator checks a static API key in constant time. It guards the
// read-only coach endpoints.
type APIKeyValidator struct {
	key []byte
}

// NewAPIKeyValidator constructs the validator for the configured key.
func NewAPIKeyValidator(key string) (*APIKeyValidator, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return nil, ErrMissingAPIKey
	}
	return &APIKeyValidator{key: []byte(trimmed)}, nil
}

// Validate compares the candidate against the configured key.
func (v *APIKeyValidator) Validate(candidate string) error {
	if subtle.ConstantTimeCompare(v.key, []byte(strings.TrimSpace(candidate))) != 1 {
		return ErrInvalidAPIKey
	}
	return nil
}
