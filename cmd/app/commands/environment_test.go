package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	envMocks "github.com/allisson/canvas-oauth/internal/environment/usecase/mocks"
)

func testEnvironment() *envDomain.Environment {
	created := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	return &envDomain.Environment{
		ID:        uuid.Must(uuid.NewV7()),
		Name:      "prod",
		Domain:    "canvas.example.edu",
		IsActive:  true,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunCreateEnvironment(t *testing.T) {
	ctx := context.Background()
	env := testEnvironment()
	input := &envDomain.CreateEnvironmentInput{Name: "prod", Domain: "canvas.example.edu", IsActive: true}

	t.Run("success-text", func(t *testing.T) {
		mockUseCase := &envMocks.MockEnvironmentUseCase{}
		mockUseCase.On("Create", ctx, input).Return(env, nil).Once()

		var out bytes.Buffer
		err := RunCreateEnvironment(ctx, mockUseCase, discardLogger(), &out, "prod", "canvas.example.edu", true, "text")

		require.NoError(t, err)
		assert.Contains(t, out.String(), "Environment created successfully!")
		assert.Contains(t, out.String(), "Domain: canvas.example.edu")
		assert.Contains(t, out.String(), "ID: "+env.ID.String())
		mockUseCase.AssertExpectations(t)
	})

	t.Run("success-json", func(t *testing.T) {
		mockUseCase := &envMocks.MockEnvironmentUseCase{}
		mockUseCase.On("Create", ctx, input).Return(env, nil).Once()

		var out bytes.Buffer
		err := RunCreateEnvironment(ctx, mockUseCase, discardLogger(), &out, "prod", "canvas.example.edu", true, "json")
		require.NoError(t, err)

		var result map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.Equal(t, env.ID.String(), result["id"])
		assert.Equal(t, "canvas.example.edu", result["domain"])
		assert.Equal(t, true, result["is_active"])
		assert.Equal(t, "2026-01-15T10:00:00Z", result["created_at"])
	})

	t.Run("use-case-error", func(t *testing.T) {
		mockUseCase := &envMocks.MockEnvironmentUseCase{}
		mockUseCase.On("Create", ctx, input).Return(nil, errors.New("duplicate")).Once()

		err := RunCreateEnvironment(ctx, mockUseCase, discardLogger(), &bytes.Buffer{}, "prod", "canvas.example.edu", true, "text")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create environment")
	})

	t.Run("invalid-format", func(t *testing.T) {
		mockUseCase := &envMocks.MockEnvironmentUseCase{}

		err := RunCreateEnvironment(ctx, mockUseCase, discardLogger(), &bytes.Buffer{}, "prod", "canvas.example.edu", true, "yaml")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid format")
		mockUseCase.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestRunUpdateEnvironment(t *testing.T) {
	ctx := context.Background()
	existing := testEnvironment()

	t.Run("keeps-unset-fields", func(t *testing.T) {
		updated := *existing
		updated.IsActive = false

		mockUseCase := &envMocks.MockEnvironmentUseCase{}
		mockUseCase.On("GetByName", ctx, "prod").Return(existing, nil).Once()
		mockUseCase.On("Update", ctx, "prod", &envDomain.UpdateEnvironmentInput{
			Name:     "prod",
			Domain:   "canvas.example.edu",
			IsActive: false,
		}).Return(&updated, nil).Once()

		var out bytes.Buffer
		err := RunUpdateEnvironment(ctx, mockUseCase, discardLogger(), &out, "prod", "", "", false, "text")

		require.NoError(t, err)
		assert.Contains(t, out.String(), "Environment updated successfully!")
		assert.Contains(t, out.String(), "Active: false")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("renames-and-moves", func(t *testing.T) {
		updated := *existing
		updated.Name = "production"
		updated.Domain = "lms.example.edu"

		mockUseCase := &envMocks.MockEnvironmentUseCase{}
		mockUseCase.On("GetByName", ctx, "prod").Return(existing, nil).Once()
		mockUseCase.On("Update", ctx, "prod", &envDomain.UpdateEnvironmentInput{
			Name:     "production",
			Domain:   "lms.example.edu",
			IsActive: true,
		}).Return(&updated, nil).Once()

		var out bytes.Buffer
		err := RunUpdateEnvironment(
			ctx, mockUseCase, discardLogger(), &out, "prod", "production", "lms.example.edu", true, "json",
		)

		require.NoError(t, err)
		assert.Contains(t, out.String(), `"name": "production"`)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("not-found", func(t *testing.T) {
		mockUseCase := &envMocks.MockEnvironmentUseCase{}
		mockUseCase.On("GetByName", ctx, "staging").Return(nil, envDomain.ErrEnvironmentNotFound).Once()

		err := RunUpdateEnvironment(ctx, mockUseCase, discardLogger(), &bytes.Buffer{}, "staging", "", "", true, "text")

		require.Error(t, err)
		assert.ErrorIs(t, err, envDomain.ErrEnvironmentNotFound)
	})
}

func TestRunListEnvironments(t *testing.T) {
	ctx := context.Background()
	env := testEnvironment()

	t.Run("text-table", func(t *testing.T) {
		mockUseCase := &envMocks.MockEnvironmentUseCase{}
		mockUseCase.On("List", ctx, 0, 50).Return([]*envDomain.Environment{env}, nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunListEnvironments(ctx, mockUseCase, &out, 0, 50, "text"))

		assert.Contains(t, out.String(), "NAME")
		assert.Contains(t, out.String(), "canvas.example.edu")
		assert.Contains(t, out.String(), env.ID.String())
	})

	t.Run("text-empty", func(t *testing.T) {
		mockUseCase := &envMocks.MockEnvironmentUseCase{}
		mockUseCase.On("List", ctx, 0, 50).Return([]*envDomain.Environment{}, nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunListEnvironments(ctx, mockUseCase, &out, 0, 50, "text"))

		assert.Equal(t, "No environments registered.\n", out.String())
	})

	t.Run("json", func(t *testing.T) {
		mockUseCase := &envMocks.MockEnvironmentUseCase{}
		mockUseCase.On("List", ctx, 10, 5).Return([]*envDomain.Environment{env}, nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunListEnvironments(ctx, mockUseCase, &out, 10, 5, "json"))

		var result struct {
			Data []environmentOutput `json:"data"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.Len(t, result.Data, 1)
		assert.Equal(t, "prod", result.Data[0].Name)
	})

	t.Run("invalid-pagination", func(t *testing.T) {
		mockUseCase := &envMocks.MockEnvironmentUseCase{}

		err := RunListEnvironments(ctx, mockUseCase, &bytes.Buffer{}, -1, 50, "text")

		require.Error(t, err)
		mockUseCase.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
	})
}
