package usecase

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	envMocks "github.com/allisson/canvas-oauth/internal/environment/usecase/mocks"
	apperrors "github.com/allisson/canvas-oauth/internal/errors"
	oauthDomain "github.com/allisson/canvas-oauth/internal/oauth/domain"
	serviceMocks "github.com/allisson/canvas-oauth/internal/oauth/service/mocks"
	"github.com/allisson/canvas-oauth/internal/oauth/usecase/mocks"
)

const testRedirectURI = "https://tool.example.com/oauth/callback"

type authorizationFixture struct {
	environments *envMocks.MockEnvironmentUseCase
	credentials  *envMocks.MockCredentialProvider
	states       *mocks.MockStateUseCase
	tokens       *mocks.MockTokenUseCase
	exchanger    *serviceMocks.MockExchanger
	useCase      AuthorizationUseCase
}

func newAuthorizationFixture() *authorizationFixture {
	f := &authorizationFixture{
		environments: &envMocks.MockEnvironmentUseCase{},
		credentials:  &envMocks.MockCredentialProvider{},
		states:       &mocks.MockStateUseCase{},
		tokens:       &mocks.MockTokenUseCase{},
		exchanger:    &serviceMocks.MockExchanger{},
	}
	f.useCase = NewAuthorizationUseCase(
		AuthorizationConfig{Scopes: []string{"url:GET|/api/v1/courses"}, ExchangeTimeout: time.Second},
		f.environments,
		f.credentials,
		f.states,
		f.tokens,
		f.exchanger,
		nil,
	)
	return f
}

func (f *authorizationFixture) assertExpectations(t *testing.T) {
	f.environments.AssertExpectations(t)
	f.credentials.AssertExpectations(t)
	f.states.AssertExpectations(t)
	f.tokens.AssertExpectations(t)
	f.exchanger.AssertExpectations(t)
}

func TestAuthorizationUseCase_Begin(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newAuthorizationFixture()
		env := testEnvironment()
		creds := testCredentials()
		input := &oauthDomain.BeginAuthorizationInput{
			Domain:      "canvas.example.edu",
			UserID:      "42",
			ResumeURI:   "/courses/7",
			RedirectURI: testRedirectURI,
		}

		f.environments.On("ResolveActive", ctx, "canvas.example.edu").Return(env, nil).Once()
		f.credentials.On("Resolve", "canvas.example.edu").Return(creds, nil).Once()
		f.states.On("Begin", ctx, mock.MatchedBy(func(in *oauthDomain.BeginAuthorizationInput) bool {
			return in.Domain == "canvas.example.edu" && in.UserID == "42" && in.RedirectURI == testRedirectURI
		})).Return("xyz", nil).Once()
		f.exchanger.On("AuthCodeURL", creds, testRedirectURI, "xyz", []string{"url:GET|/api/v1/courses"}).
			Return("https://canvas.example.edu/login/oauth2/auth?state=xyz").
			Once()

		output, err := f.useCase.Begin(ctx, input)

		require.NoError(t, err)
		assert.Equal(t, "xyz", output.State)
		assert.Equal(t, "https://canvas.example.edu/login/oauth2/auth?state=xyz", output.AuthorizeURL)
		f.assertExpectations(t)
	})

	t.Run("Error_MissingUserID", func(t *testing.T) {
		f := newAuthorizationFixture()

		_, err := f.useCase.Begin(ctx, &oauthDomain.BeginAuthorizationInput{Domain: "canvas.example.edu"})

		assert.ErrorIs(t, err, oauthDomain.ErrMissingUserID)
		f.states.AssertNotCalled(t, "Begin", mock.Anything, mock.Anything)
	})

	t.Run("Error_OffsiteResumeURI", func(t *testing.T) {
		f := newAuthorizationFixture()

		_, err := f.useCase.Begin(ctx, &oauthDomain.BeginAuthorizationInput{
			Domain:    "canvas.example.edu",
			UserID:    "42",
			ResumeURI: "https://evil.example/steal",
		})

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		f.environments.AssertNotCalled(t, "ResolveActive", mock.Anything, mock.Anything)
		f.states.AssertNotCalled(t, "Begin", mock.Anything, mock.Anything)
	})

	t.Run("Error_UnknownEnvironment", func(t *testing.T) {
		f := newAuthorizationFixture()
		f.environments.On("ResolveActive", ctx, "unknown.example.edu").
			Return(nil, envDomain.ErrEnvironmentNotFound).
			Once()

		_, err := f.useCase.Begin(ctx, &oauthDomain.BeginAuthorizationInput{
			Domain: "unknown.example.edu",
			UserID: "42",
		})

		assert.ErrorIs(t, err, envDomain.ErrEnvironmentNotFound)
		f.states.AssertNotCalled(t, "Begin", mock.Anything, mock.Anything)
	})

	t.Run("Error_MissingCredentials", func(t *testing.T) {
		f := newAuthorizationFixture()
		f.environments.On("ResolveActive", ctx, "canvas.example.edu").Return(testEnvironment(), nil).Once()
		f.credentials.On("Resolve", "canvas.example.edu").Return(nil, envDomain.ErrCredentialsNotFound).Once()

		_, err := f.useCase.Begin(ctx, &oauthDomain.BeginAuthorizationInput{
			Domain: "canvas.example.edu",
			UserID: "42",
		})

		assert.ErrorIs(t, err, envDomain.ErrCredentialsNotFound)
		f.states.AssertNotCalled(t, "Begin", mock.Anything, mock.Anything)
	})
}

func TestAuthorizationUseCase_HandleCallback(t *testing.T) {
	ctx := context.Background()

	authState := func() *oauthDomain.AuthorizationState {
		return &oauthDomain.AuthorizationState{
			State:       "xyz",
			ResumeURI:   "/courses/7?tab=grades",
			RedirectURI: testRedirectURI,
			Domain:      "canvas.example.edu",
			UserID:      "42",
			IssuedAt:    testNow,
			ExpiresAt:   testNow.Add(10 * time.Minute),
			ResumeParams: map[string]string{
				"user_id":                 "42",
				"custom_canvas_course_id": "",
			},
		}
	}

	t.Run("Success_ExchangesStoresAndResumes", func(t *testing.T) {
		f := newAuthorizationFixture()
		env := testEnvironment()
		creds := testCredentials()
		result := &oauthDomain.ExchangeResult{
			AccessToken:  "AT1",
			RefreshToken: "RT1",
			ExpiresAt:    testNow.Add(3600 * time.Second),
		}
		stored := &oauthDomain.Token{UserID: "42", EnvironmentID: env.ID, AccessToken: "AT1", RefreshToken: "RT1"}

		f.states.On("Consume", ctx, "xyz").Return(authState(), nil).Once()
		f.environments.On("ResolveActive", ctx, "canvas.example.edu").Return(env, nil).Once()
		f.credentials.On("Resolve", "canvas.example.edu").Return(creds, nil).Once()
		f.exchanger.On("ExchangeCode", mock.Anything, creds, testRedirectURI, "abc").Return(result, nil).Once()
		f.tokens.On("Store", mock.Anything, "42", env, result).Return(stored, nil).Once()

		output, err := f.useCase.HandleCallback(ctx, &oauthDomain.CallbackInput{Code: "abc", State: "xyz"})

		require.NoError(t, err)
		assert.Same(t, stored, output.Token)

		redirect, err := url.Parse(output.RedirectURL)
		require.NoError(t, err)
		assert.Equal(t, "/courses/7", redirect.Path)
		assert.Equal(t, "grades", redirect.Query().Get("tab"))
		assert.Equal(t, "42", redirect.Query().Get("user_id"))
		assert.False(t, redirect.Query().Has("custom_canvas_course_id"))
		f.assertExpectations(t)
	})

	t.Run("Error_CanvasDenied", func(t *testing.T) {
		f := newAuthorizationFixture()

		_, err := f.useCase.HandleCallback(ctx, &oauthDomain.CallbackInput{Error: "access_denied", State: "xyz"})

		assert.ErrorIs(t, err, oauthDomain.ErrAuthorizationDenied)
		assert.Contains(t, err.Error(), "access_denied")
		f.states.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything)
	})

	t.Run("Error_InvalidState", func(t *testing.T) {
		f := newAuthorizationFixture()
		f.states.On("Consume", ctx, "forged").Return(nil, oauthDomain.ErrInvalidState).Once()

		_, err := f.useCase.HandleCallback(ctx, &oauthDomain.CallbackInput{Code: "abc", State: "forged"})

		assert.ErrorIs(t, err, oauthDomain.ErrInvalidState)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		f.exchanger.AssertNotCalled(t, "ExchangeCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_MissingCodeConsumesState", func(t *testing.T) {
		f := newAuthorizationFixture()
		f.states.On("Consume", ctx, "xyz").Return(authState(), nil).Once()

		_, err := f.useCase.HandleCallback(ctx, &oauthDomain.CallbackInput{State: "xyz"})

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		f.states.AssertExpectations(t)
	})

	t.Run("Error_UpstreamExchangeFails", func(t *testing.T) {
		f := newAuthorizationFixture()
		env := testEnvironment()
		creds := testCredentials()

		f.states.On("Consume", ctx, "xyz").Return(authState(), nil).Once()
		f.environments.On("ResolveActive", ctx, "canvas.example.edu").Return(env, nil).Once()
		f.credentials.On("Resolve", "canvas.example.edu").Return(creds, nil).Once()
		f.exchanger.On("ExchangeCode", mock.Anything, creds, testRedirectURI, "abc").
			Return(nil, apperrors.Wrap(oauthDomain.ErrUpstreamExchange, "invalid_grant")).
			Once()

		_, err := f.useCase.HandleCallback(ctx, &oauthDomain.CallbackInput{Code: "abc", State: "xyz"})

		assert.ErrorIs(t, err, apperrors.ErrBadGateway)
		f.tokens.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Success_CancelledRequestStillStores", func(t *testing.T) {
		f := newAuthorizationFixture()
		env := testEnvironment()
		creds := testCredentials()
		result := &oauthDomain.ExchangeResult{AccessToken: "AT1", RefreshToken: "RT1"}

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		f.states.On("Consume", cancelled, "xyz").Return(authState(), nil).Once()
		f.environments.On("ResolveActive", cancelled, "canvas.example.edu").Return(env, nil).Once()
		f.credentials.On("Resolve", "canvas.example.edu").Return(creds, nil).Once()
		f.exchanger.On("ExchangeCode", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }),
			creds, testRedirectURI, "abc").
			Return(result, nil).
			Once()
		f.tokens.On("Store", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }),
			"42", env, result).
			Return(&oauthDomain.Token{AccessToken: "AT1"}, nil).
			Once()

		_, err := f.useCase.HandleCallback(cancelled, &oauthDomain.CallbackInput{Code: "abc", State: "xyz"})

		require.NoError(t, err)
		f.assertExpectations(t)
	})

	t.Run("Error_OffsiteResumeSkipsExchange", func(t *testing.T) {
		f := newAuthorizationFixture()
		state := authState()
		state.ResumeURI = "/\\evil.example"
		f.states.On("Consume", ctx, "xyz").Return(state, nil).Once()

		_, err := f.useCase.HandleCallback(ctx, &oauthDomain.CallbackInput{Code: "abc", State: "xyz"})

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		f.exchanger.AssertNotCalled(t, "ExchangeCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.tokens.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_StoreFails", func(t *testing.T) {
		f := newAuthorizationFixture()
		env := testEnvironment()
		creds := testCredentials()
		result := &oauthDomain.ExchangeResult{AccessToken: "AT1"}

		f.states.On("Consume", ctx, "xyz").Return(authState(), nil).Once()
		f.environments.On("ResolveActive", ctx, "canvas.example.edu").Return(env, nil).Once()
		f.credentials.On("Resolve", "canvas.example.edu").Return(creds, nil).Once()
		f.exchanger.On("ExchangeCode", mock.Anything, creds, testRedirectURI, "abc").Return(result, nil).Once()
		f.tokens.On("Store", mock.Anything, "42", env, result).Return(nil, errors.New("disk full")).Once()

		_, err := f.useCase.HandleCallback(ctx, &oauthDomain.CallbackInput{Code: "abc", State: "xyz"})

		assert.Error(t, err)
	})
}

func TestResumeURL(t *testing.T) {
	tests := []struct {
		name      string
		resumeURI string
		params    map[string]string
		want      string
	}{
		{name: "empty defaults to root", want: "/"},
		{name: "no params keeps uri", resumeURI: "/courses/7?tab=grades", want: "/courses/7?tab=grades"},
		{
			name:      "params appended",
			resumeURI: "/launch",
			params:    map[string]string{"custom_canvas_course_id": "7", "user_id": "42"},
			want:      "/launch?custom_canvas_course_id=7&user_id=42",
		},
		{
			name:      "empty params skipped",
			resumeURI: "/launch",
			params:    map[string]string{"user_id": ""},
			want:      "/launch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resumeURL(tt.resumeURI, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResumeURL_RejectsOffsiteTargets(t *testing.T) {
	params := map[string]string{"user_id": "u1", "custom_canvas_course_id": "42"}

	for _, resumeURI := range []string{
		"https://evil.example/x",
		"//evil.example/x",
		"/\\evil.example",
		"javascript:alert(1)",
	} {
		t.Run(resumeURI, func(t *testing.T) {
			got, err := resumeURL(resumeURI, params)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Empty(t, got)
		})
	}
}
