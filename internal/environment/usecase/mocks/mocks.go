// Package mocks provides mock implementations of the environment usecase interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	envUseCase "github.com/allisson/canvas-oauth/internal/environment/usecase"
)

// MockEnvironmentUseCase is a mock implementation of EnvironmentUseCase.
type MockEnvironmentUseCase struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockEnvironmentUseCase) Create(
	ctx context.Context,
	input *envDomain.CreateEnvironmentInput,
) (*envDomain.Environment, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*envDomain.Environment), args.Error(1)
}

// Update mocks the Update method.
func (m *MockEnvironmentUseCase) Update(
	ctx context.Context,
	name string,
	input *envDomain.UpdateEnvironmentInput,
) (*envDomain.Environment, error) {
	args := m.Called(ctx, name, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*envDomain.Environment), args.Error(1)
}

// GetByName mocks the GetByName method.
func (m *MockEnvironmentUseCase) GetByName(ctx context.Context, name string) (*envDomain.Environment, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*envDomain.Environment), args.Error(1)
}

// List mocks the List method.
func (m *MockEnvironmentUseCase) List(ctx context.Context, offset, limit int) ([]*envDomain.Environment, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*envDomain.Environment), args.Error(1)
}

// ResolveActive mocks the ResolveActive method.
func (m *MockEnvironmentUseCase) ResolveActive(ctx context.Context, domain string) (*envDomain.Environment, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*envDomain.Environment), args.Error(1)
}

// MockResolver is a mock implementation of Resolver.
type MockResolver struct {
	mock.Mock
}

// Resolve mocks the Resolve method.
func (m *MockResolver) Resolve(ctx context.Context, rc *envUseCase.RequestContext) (string, error) {
	args := m.Called(ctx, rc)
	return args.String(0), args.Error(1)
}

// MockCredentialProvider is a mock implementation of CredentialProvider.
type MockCredentialProvider struct {
	mock.Mock
}

// Resolve mocks the Resolve method.
func (m *MockCredentialProvider) Resolve(domain string) (*envDomain.Credentials, error) {
	args := m.Called(domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*envDomain.Credentials), args.Error(1)
}
