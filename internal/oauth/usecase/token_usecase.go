package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/allisson/canvas-oauth/internal/database"
	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	envUseCase "github.com/allisson/canvas-oauth/internal/environment/usecase"
	apperrors "github.com/allisson/canvas-oauth/internal/errors"
	"github.com/allisson/canvas-oauth/internal/metrics"
	oauthDomain "github.com/allisson/canvas-oauth/internal/oauth/domain"
	oauthService "github.com/allisson/canvas-oauth/internal/oauth/service"
)

// TokenConfig holds token lifecycle settings.
type TokenConfig struct {
	// ExpirationBuffer is how long before expiry a token is refreshed.
	ExpirationBuffer time.Duration
	// RefreshTimeout bounds one refresh, including the exchange and the write.
	RefreshTimeout time.Duration
	// Now is the clock used for expiry checks. Defaults to time.Now.
	Now func() time.Time
}

// tokenUseCase implements TokenUseCase.
type tokenUseCase struct {
	config      TokenConfig
	txManager   database.TxManager
	tokenRepo   TokenRepository
	credentials envUseCase.CredentialProvider
	exchanger   oauthService.Exchanger
	metrics     metrics.BusinessMetrics
	logger      *slog.Logger
	group       singleflight.Group
}

// GetToken returns the stored access token, refreshing it when it is near expiry.
func (t *tokenUseCase) GetToken(
	ctx context.Context,
	userID string,
	env *envDomain.Environment,
) (*oauthDomain.GetTokenOutput, error) {
	token, err := t.tokenRepo.Get(ctx, userID, env.ID)
	if err != nil {
		if apperrors.Is(err, oauthDomain.ErrTokenNotFound) {
			return nil, apperrors.Wrapf(oauthDomain.ErrMissingToken, "no token for user %s in %s", userID, env.Domain)
		}
		return nil, err
	}

	if !token.ExpiresWithin(t.config.Now(), t.config.ExpirationBuffer) {
		return tokenOutput(token, env), nil
	}
	return t.refresh(ctx, userID, env, false)
}

// Refresh forces a refresh_token grant for the pair.
func (t *tokenUseCase) Refresh(
	ctx context.Context,
	userID string,
	env *envDomain.Environment,
) (*oauthDomain.GetTokenOutput, error) {
	return t.refresh(ctx, userID, env, true)
}

// refresh collapses concurrent refreshes of one pair into a single call. The
// work runs detached from ctx so that a cancelled caller cannot interrupt the
// exchange or the write that follows it; the caller stops waiting instead.
func (t *tokenUseCase) refresh(
	ctx context.Context,
	userID string,
	env *envDomain.Environment,
	force bool,
) (*oauthDomain.GetTokenOutput, error) {
	key := userID + "|" + env.ID.String()

	ch := t.group.DoChan(key, func() (any, error) {
		workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.config.RefreshTimeout)
		defer cancel()
		return t.refreshLocked(workCtx, userID, env, force)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*oauthDomain.GetTokenOutput), nil
	}
}

// refreshLocked rereads the token under a row lock so that another instance
// that refreshed first is observed, then exchanges the refresh token. A failed
// exchange deletes the row and reports ErrMissingToken.
func (t *tokenUseCase) refreshLocked(
	ctx context.Context,
	userID string,
	env *envDomain.Environment,
	force bool,
) (*oauthDomain.GetTokenOutput, error) {
	var output *oauthDomain.GetTokenOutput
	var exchangeErr error
	outcome := metrics.RefreshOutcomeRefreshed

	err := t.txManager.WithTx(ctx, func(ctx context.Context) error {
		token, err := t.tokenRepo.GetForUpdate(ctx, userID, env.ID)
		if err != nil {
			if apperrors.Is(err, oauthDomain.ErrTokenNotFound) {
				return apperrors.Wrapf(oauthDomain.ErrMissingToken, "no token for user %s in %s", userID, env.Domain)
			}
			return err
		}

		now := t.config.Now()
		if !force && !token.ExpiresWithin(now, t.config.ExpirationBuffer) {
			outcome = metrics.RefreshOutcomeSkipped
			output = tokenOutput(token, env)
			return nil
		}

		creds, err := t.credentials.Resolve(env.Domain)
		if err != nil {
			return err
		}

		result, err := t.exchanger.Refresh(ctx, creds, token.RefreshToken)
		if err != nil {
			exchangeErr = err
			return t.tokenRepo.Delete(ctx, userID, env.ID)
		}

		token.AccessToken = result.AccessToken
		if result.RefreshToken != "" {
			token.RefreshToken = result.RefreshToken
		}
		token.ExpiresAt = result.ExpiresAt
		token.UpdatedAt = now.UTC()

		if err := t.tokenRepo.Update(ctx, token); err != nil {
			return err
		}
		output = tokenOutput(token, env)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if exchangeErr != nil {
		t.metrics.RecordRefresh(ctx, env.Domain, metrics.RefreshOutcomeFailed)
		if t.logger != nil {
			t.logger.Warn("token refresh failed, token deleted",
				slog.String("user_id", userID),
				slog.String("canvas_domain", env.Domain),
				slog.Any("error", exchangeErr),
			)
		}
		return nil, apperrors.Wrapf(
			oauthDomain.ErrMissingToken,
			"refresh failed for user %s in %s",
			userID,
			env.Domain,
		)
	}

	t.metrics.RecordRefresh(ctx, env.Domain, outcome)
	if outcome == metrics.RefreshOutcomeRefreshed && t.logger != nil {
		t.logger.Info("token refreshed",
			slog.String("user_id", userID),
			slog.String("canvas_domain", env.Domain),
		)
	}
	return output, nil
}

// Store upserts the token obtained from an authorization_code exchange.
func (t *tokenUseCase) Store(
	ctx context.Context,
	userID string,
	env *envDomain.Environment,
	result *oauthDomain.ExchangeResult,
) (*oauthDomain.Token, error) {
	if userID == "" {
		return nil, oauthDomain.ErrMissingUserID
	}

	now := t.config.Now().UTC()
	token := &oauthDomain.Token{
		ID:            uuid.Must(uuid.NewV7()),
		UserID:        userID,
		EnvironmentID: env.ID,
		AccessToken:   result.AccessToken,
		RefreshToken:  result.RefreshToken,
		ExpiresAt:     result.ExpiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := t.tokenRepo.Upsert(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// Purge deletes every token of an environment.
func (t *tokenUseCase) Purge(ctx context.Context, env *envDomain.Environment) (int64, error) {
	return t.tokenRepo.DeleteByEnvironment(ctx, env.ID)
}

func tokenOutput(token *oauthDomain.Token, env *envDomain.Environment) *oauthDomain.GetTokenOutput {
	return &oauthDomain.GetTokenOutput{
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt,
		Domain:      env.Domain,
	}
}

// NewTokenUseCase creates a new TokenUseCase.
func NewTokenUseCase(
	config TokenConfig,
	txManager database.TxManager,
	tokenRepo TokenRepository,
	credentials envUseCase.CredentialProvider,
	exchanger oauthService.Exchanger,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) TokenUseCase {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.RefreshTimeout <= 0 {
		config.RefreshTimeout = 30 * time.Second
	}
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}
	return &tokenUseCase{
		config:      config,
		txManager:   txManager,
		tokenRepo:   tokenRepo,
		credentials: credentials,
		exchanger:   exchanger,
		metrics:     businessMetrics,
		logger:      logger,
	}
}
