package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	"github.com/allisson/canvas-oauth/internal/environment/usecase"
	usecaseMocks "github.com/allisson/canvas-oauth/internal/environment/usecase/mocks"
	metricsMocks "github.com/allisson/canvas-oauth/internal/metrics/mocks"
)

func TestEnvironmentUseCaseWithMetrics(t *testing.T) {
	mockNext := &usecaseMocks.MockEnvironmentUseCase{}
	mockMetrics := &metricsMocks.MockBusinessMetrics{}
	uc := usecase.NewEnvironmentUseCaseWithMetrics(mockNext, mockMetrics)

	ctx := context.Background()

	t.Run("Create success", func(t *testing.T) {
		input := &envDomain.CreateEnvironmentInput{Name: "prod", Domain: "canvas.example.edu"}
		env := &envDomain.Environment{Name: "prod", Domain: "canvas.example.edu"}

		mockNext.On("Create", ctx, input).Return(env, nil).Once()
		mockMetrics.On("RecordOperation", ctx, "environment", "environment_create", "success").Return().Once()
		mockMetrics.On("RecordDuration", ctx, "environment", "environment_create", mock.AnythingOfType("time.Duration"), "success").
			Return().
			Once()

		res, err := uc.Create(ctx, input)
		assert.NoError(t, err)
		assert.Equal(t, env, res)
		mockNext.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("ResolveActive error", func(t *testing.T) {
		expectedErr := errors.New("error")

		mockNext.On("ResolveActive", ctx, "canvas.example.edu").Return(nil, expectedErr).Once()
		mockMetrics.On("RecordOperation", ctx, "environment", "environment_resolve", "error").Return().Once()
		mockMetrics.On("RecordDuration", ctx, "environment", "environment_resolve", mock.AnythingOfType("time.Duration"), "error").
			Return().
			Once()

		res, err := uc.ResolveActive(ctx, "canvas.example.edu")
		assert.Error(t, err)
		assert.Nil(t, res)
		mockNext.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("List success", func(t *testing.T) {
		envs := []*envDomain.Environment{{Name: "prod"}}

		mockNext.On("List", ctx, 0, 10).Return(envs, nil).Once()
		mockMetrics.On("RecordOperation", ctx, "environment", "environment_list", "success").Return().Once()
		mockMetrics.On("RecordDuration", ctx, "environment", "environment_list", mock.AnythingOfType("time.Duration"), "success").
			Return().
			Once()

		res, err := uc.List(ctx, 0, 10)
		assert.NoError(t, err)
		assert.Equal(t, envs, res)
		mockMetrics.AssertExpectations(t)
	})
}
