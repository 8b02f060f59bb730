// Package mocks provides mock implementations of the oauth usecase interfaces.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	oauthDomain "github.com/allisson/canvas-oauth/internal/oauth/domain"
)

// MockTokenRepository is a mock implementation of TokenRepository.
type MockTokenRepository struct {
	mock.Mock
}

// Upsert mocks the Upsert method.
func (m *MockTokenRepository) Upsert(ctx context.Context, token *oauthDomain.Token) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// Update mocks the Update method.
func (m *MockTokenRepository) Update(ctx context.Context, token *oauthDomain.Token) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// Get mocks the Get method.
func (m *MockTokenRepository) Get(
	ctx context.Context,
	userID string,
	environmentID uuid.UUID,
) (*oauthDomain.Token, error) {
	args := m.Called(ctx, userID, environmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.Token), args.Error(1)
}

// GetForUpdate mocks the GetForUpdate method.
func (m *MockTokenRepository) GetForUpdate(
	ctx context.Context,
	userID string,
	environmentID uuid.UUID,
) (*oauthDomain.Token, error) {
	args := m.Called(ctx, userID, environmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.Token), args.Error(1)
}

// Delete mocks the Delete method.
func (m *MockTokenRepository) Delete(ctx context.Context, userID string, environmentID uuid.UUID) error {
	args := m.Called(ctx, userID, environmentID)
	return args.Error(0)
}

// DeleteByEnvironment mocks the DeleteByEnvironment method.
func (m *MockTokenRepository) DeleteByEnvironment(ctx context.Context, environmentID uuid.UUID) (int64, error) {
	args := m.Called(ctx, environmentID)
	return args.Get(0).(int64), args.Error(1)
}

// MockStateUseCase is a mock implementation of StateUseCase.
type MockStateUseCase struct {
	mock.Mock
}

// Begin mocks the Begin method.
func (m *MockStateUseCase) Begin(ctx context.Context, input *oauthDomain.BeginAuthorizationInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

// Consume mocks the Consume method.
func (m *MockStateUseCase) Consume(ctx context.Context, state string) (*oauthDomain.AuthorizationState, error) {
	args := m.Called(ctx, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.AuthorizationState), args.Error(1)
}

// MockTokenUseCase is a mock implementation of TokenUseCase.
type MockTokenUseCase struct {
	mock.Mock
}

// GetToken mocks the GetToken method.
func (m *MockTokenUseCase) GetToken(
	ctx context.Context,
	userID string,
	env *envDomain.Environment,
) (*oauthDomain.GetTokenOutput, error) {
	args := m.Called(ctx, userID, env)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.GetTokenOutput), args.Error(1)
}

// Refresh mocks the Refresh method.
func (m *MockTokenUseCase) Refresh(
	ctx context.Context,
	userID string,
	env *envDomain.Environment,
) (*oauthDomain.GetTokenOutput, error) {
	args := m.Called(ctx, userID, env)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.GetTokenOutput), args.Error(1)
}

// Store mocks the Store method.
func (m *MockTokenUseCase) Store(
	ctx context.Context,
	userID string,
	env *envDomain.Environment,
	result *oauthDomain.ExchangeResult,
) (*oauthDomain.Token, error) {
	args := m.Called(ctx, userID, env, result)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.Token), args.Error(1)
}

// Purge mocks the Purge method.
func (m *MockTokenUseCase) Purge(ctx context.Context, env *envDomain.Environment) (int64, error) {
	args := m.Called(ctx, env)
	return args.Get(0).(int64), args.Error(1)
}

// MockAuthorizationUseCase is a mock implementation of AuthorizationUseCase.
type MockAuthorizationUseCase struct {
	mock.Mock
}

// Begin mocks the Begin method.
func (m *MockAuthorizationUseCase) Begin(
	ctx context.Context,
	input *oauthDomain.BeginAuthorizationInput,
) (*oauthDomain.BeginAuthorizationOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.BeginAuthorizationOutput), args.Error(1)
}

// HandleCallback mocks the HandleCallback method.
func (m *MockAuthorizationUseCase) HandleCallback(
	ctx context.Context,
	input *oauthDomain.CallbackInput,
) (*oauthDomain.CallbackOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.CallbackOutput), args.Error(1)
}
