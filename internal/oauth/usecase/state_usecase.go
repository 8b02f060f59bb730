package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/allisson/canvas-oauth/internal/cache"
	apperrors "github.com/allisson/canvas-oauth/internal/errors"
	oauthDomain "github.com/allisson/canvas-oauth/internal/oauth/domain"
	oauthService "github.com/allisson/canvas-oauth/internal/oauth/service"
)

const stateKeyPrefix = "oauth_state:"

// stateUseCase implements StateUseCase over a cache.Store.
type stateUseCase struct {
	store        cache.Store
	stateService oauthService.StateService
	ttl          time.Duration
	now          func() time.Time
}

// Begin generates a state and stores the handshake context for ttl.
func (s *stateUseCase) Begin(ctx context.Context, input *oauthDomain.BeginAuthorizationInput) (string, error) {
	state, err := s.stateService.Generate()
	if err != nil {
		return "", err
	}

	issuedAt := s.now().UTC()
	payload, err := json.Marshal(&oauthDomain.AuthorizationState{
		State:        state,
		ResumeURI:    input.ResumeURI,
		RedirectURI:  input.RedirectURI,
		Domain:       input.Domain,
		UserID:       input.UserID,
		IssuedAt:     issuedAt,
		ExpiresAt:    issuedAt.Add(s.ttl),
		ResumeParams: input.ResumeParams,
	})
	if err != nil {
		return "", apperrors.Wrap(err, "failed to encode oauth state")
	}

	if err := s.store.Set(ctx, stateKeyPrefix+state, payload, s.ttl); err != nil {
		return "", apperrors.Wrap(err, "failed to store oauth state")
	}
	return state, nil
}

// Consume removes the state from the store and returns it if it has not expired.
func (s *stateUseCase) Consume(ctx context.Context, state string) (*oauthDomain.AuthorizationState, error) {
	if state == "" {
		return nil, oauthDomain.ErrInvalidState
	}

	payload, found, err := s.store.GetDel(ctx, stateKeyPrefix+state)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to consume oauth state")
	}
	if !found {
		return nil, oauthDomain.ErrInvalidState
	}

	var authState oauthDomain.AuthorizationState
	if err := json.Unmarshal(payload, &authState); err != nil {
		return nil, apperrors.Wrap(oauthDomain.ErrInvalidState, "malformed state payload")
	}
	if authState.State != state || !s.now().Before(authState.ExpiresAt) {
		return nil, oauthDomain.ErrInvalidState
	}
	return &authState, nil
}

// NewStateUseCase creates a StateUseCase. A nil now uses time.Now.
func NewStateUseCase(
	store cache.Store,
	stateService oauthService.StateService,
	ttl time.Duration,
	now func() time.Time,
) StateUseCase {
	if now == nil {
		now = time.Now
	}
	return &stateUseCase{
		store:        store,
		stateService: stateService,
		ttl:          ttl,
		now:          now,
	}
}
