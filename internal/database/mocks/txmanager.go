// Package mocks provides mock implementations of database collaborators.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTxManager is a TxManager mock that runs the callback inline.
type MockTxManager struct {
	mock.Mock
}

// NewMockTxManager creates a MockTxManager and asserts its expectations on cleanup.
func NewMockTxManager(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTxManager {
	m := &MockTxManager{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// WithTx records the call and, unless an error is configured, invokes fn with ctx.
func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}
