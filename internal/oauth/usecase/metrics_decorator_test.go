package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	metricsMocks "github.com/allisson/canvas-oauth/internal/metrics/mocks"
	oauthDomain "github.com/allisson/canvas-oauth/internal/oauth/domain"
	"github.com/allisson/canvas-oauth/internal/oauth/usecase"
	usecaseMocks "github.com/allisson/canvas-oauth/internal/oauth/usecase/mocks"
)

func expectOperation(ctx context.Context, m *metricsMocks.MockBusinessMetrics, operation, status string) {
	m.On("RecordOperation", ctx, "oauth", operation, status).Return().Once()
	m.On("RecordDuration", ctx, "oauth", operation, mock.AnythingOfType("time.Duration"), status).
		Return().
		Once()
}

func TestTokenUseCaseWithMetrics(t *testing.T) {
	mockNext := &usecaseMocks.MockTokenUseCase{}
	mockMetrics := &metricsMocks.MockBusinessMetrics{}
	uc := usecase.NewTokenUseCaseWithMetrics(mockNext, mockMetrics)

	ctx := context.Background()
	env := &envDomain.Environment{Name: "prod", Domain: "canvas.example.edu"}

	t.Run("GetToken success", func(t *testing.T) {
		output := &oauthDomain.GetTokenOutput{AccessToken: "AT1", Domain: "canvas.example.edu"}

		mockNext.On("GetToken", ctx, "42", env).Return(output, nil).Once()
		expectOperation(ctx, mockMetrics, "token_get", "success")

		res, err := uc.GetToken(ctx, "42", env)
		assert.NoError(t, err)
		assert.Equal(t, output, res)
		mockNext.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("GetToken error", func(t *testing.T) {
		mockNext.On("GetToken", ctx, "42", env).Return(nil, oauthDomain.ErrMissingToken).Once()
		expectOperation(ctx, mockMetrics, "token_get", "error")

		res, err := uc.GetToken(ctx, "42", env)
		assert.ErrorIs(t, err, oauthDomain.ErrMissingToken)
		assert.Nil(t, res)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Refresh success", func(t *testing.T) {
		output := &oauthDomain.GetTokenOutput{AccessToken: "AT2"}

		mockNext.On("Refresh", ctx, "42", env).Return(output, nil).Once()
		expectOperation(ctx, mockMetrics, "token_refresh", "success")

		res, err := uc.Refresh(ctx, "42", env)
		assert.NoError(t, err)
		assert.Equal(t, output, res)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Store success", func(t *testing.T) {
		result := &oauthDomain.ExchangeResult{AccessToken: "AT1"}
		token := &oauthDomain.Token{AccessToken: "AT1"}

		mockNext.On("Store", ctx, "42", env, result).Return(token, nil).Once()
		expectOperation(ctx, mockMetrics, "token_store", "success")

		res, err := uc.Store(ctx, "42", env, result)
		assert.NoError(t, err)
		assert.Equal(t, token, res)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Purge error", func(t *testing.T) {
		mockNext.On("Purge", ctx, env).Return(int64(0), errors.New("error")).Once()
		expectOperation(ctx, mockMetrics, "token_purge", "error")

		count, err := uc.Purge(ctx, env)
		assert.Error(t, err)
		assert.Zero(t, count)
		mockMetrics.AssertExpectations(t)
	})
}

func TestAuthorizationUseCaseWithMetrics(t *testing.T) {
	mockNext := &usecaseMocks.MockAuthorizationUseCase{}
	mockMetrics := &metricsMocks.MockBusinessMetrics{}
	uc := usecase.NewAuthorizationUseCaseWithMetrics(mockNext, mockMetrics)

	ctx := context.Background()

	t.Run("Begin success", func(t *testing.T) {
		input := &oauthDomain.BeginAuthorizationInput{Domain: "canvas.example.edu", UserID: "42"}
		output := &oauthDomain.BeginAuthorizationOutput{AuthorizeURL: "https://canvas.example.edu/login/oauth2/auth"}

		mockNext.On("Begin", ctx, input).Return(output, nil).Once()
		expectOperation(ctx, mockMetrics, "authorization_begin", "success")

		res, err := uc.Begin(ctx, input)
		assert.NoError(t, err)
		assert.Equal(t, output, res)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("HandleCallback error", func(t *testing.T) {
		input := &oauthDomain.CallbackInput{Code: "abc", State: "forged"}

		mockNext.On("HandleCallback", ctx, input).Return(nil, oauthDomain.ErrInvalidState).Once()
		expectOperation(ctx, mockMetrics, "authorization_callback", "error")

		res, err := uc.HandleCallback(ctx, input)
		assert.ErrorIs(t, err, oauthDomain.ErrInvalidState)
		assert.Nil(t, res)
		mockMetrics.AssertExpectations(t)
	})
}
