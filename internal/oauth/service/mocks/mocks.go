// Package mocks provides mock implementations of the oauth service interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	oauthDomain "github.com/allisson/canvas-oauth/internal/oauth/domain"
)

// MockExchanger is a mock implementation of Exchanger.
type MockExchanger struct {
	mock.Mock
}

// AuthCodeURL mocks the AuthCodeURL method.
func (m *MockExchanger) AuthCodeURL(
	creds *envDomain.Credentials,
	redirectURI, state string,
	scopes []string,
) string {
	args := m.Called(creds, redirectURI, state, scopes)
	return args.String(0)
}

// ExchangeCode mocks the ExchangeCode method.
func (m *MockExchanger) ExchangeCode(
	ctx context.Context,
	creds *envDomain.Credentials,
	redirectURI, code string,
) (*oauthDomain.ExchangeResult, error) {
	args := m.Called(ctx, creds, redirectURI, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.ExchangeResult), args.Error(1)
}

// Refresh mocks the Refresh method.
func (m *MockExchanger) Refresh(
	ctx context.Context,
	creds *envDomain.Credentials,
	refreshToken string,
) (*oauthDomain.ExchangeResult, error) {
	args := m.Called(ctx, creds, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.ExchangeResult), args.Error(1)
}

// MockStateService is a mock implementation of StateService.
type MockStateService struct {
	mock.Mock
}

// Generate mocks the Generate method.
func (m *MockStateService) Generate() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}
