package service

import (
	"crypto/rand"
	"encoding/base64"

	apperrors "github.com/allisson/canvas-oauth/internal/errors"
)

// StateService generates unguessable authorization state values.
type StateService interface {
	// Generate returns a new random state value.
	Generate() (string, error)
}

// stateService implements StateService with crypto/rand.
type stateService struct{}

// Generate creates 32 random bytes and encodes them as unpadded base64url,
// which is safe to embed in a query string without escaping.
func (s *stateService) Generate() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", apperrors.Wrap(err, "failed to generate oauth state")
	}
	return base64.RawURLEncoding.EncodeToString(randomBytes), nil
}

// NewStateService creates a new StateService.
func NewStateService() StateService {
	return &stateService{}
}
