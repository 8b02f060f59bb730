package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/allisson/canvas-oauth/internal/cache"
	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	apperrors "github.com/allisson/canvas-oauth/internal/errors"
	oauthDomain "github.com/allisson/canvas-oauth/internal/oauth/domain"
)

const launchKeyPrefix = "lti_launch:"

// LaunchVerifier authenticates launch assertions signed by the host's LTI layer.
type LaunchVerifier interface {
	// Verify checks the signature, audience and lifetime of token and marks
	// its id as used. A token verifies at most once.
	Verify(ctx context.Context, token string) (*oauthDomain.Launch, error)
}

// LaunchVerifierConfig holds the shared secret and acceptance window.
type LaunchVerifierConfig struct {
	Secret   string
	Audience string
	// MaxAge caps exp - iat so a leaked assertion is short-lived.
	MaxAge time.Duration
}

// LaunchClaims is the HS256 assertion body: sub is the host user id and lti
// carries the verified launch claims.
type LaunchClaims struct {
	LTI  envDomain.LaunchContext `json:"lti"`
	Next string                  `json:"next,omitempty"`
	jwt.RegisteredClaims
}

type launchVerifier struct {
	config LaunchVerifierConfig
	store  cache.Store
	now    func() time.Time
}

// NewLaunchVerifier creates a LaunchVerifier recording used assertion ids in store.
// A nil now uses time.Now.
func NewLaunchVerifier(config LaunchVerifierConfig, store cache.Store, now func() time.Time) LaunchVerifier {
	if now == nil {
		now = time.Now
	}
	if config.MaxAge <= 0 {
		config.MaxAge = 5 * time.Minute
	}
	return &launchVerifier{config: config, store: store, now: now}
}

func (v *launchVerifier) Verify(ctx context.Context, token string) (*oauthDomain.Launch, error) {
	claims := &LaunchClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(v.config.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(v.config.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.Wrap(oauthDomain.ErrInvalidLaunch, "assertion expired")
		}
		return nil, apperrors.Wrap(oauthDomain.ErrInvalidLaunch, err.Error())
	}

	switch {
	case claims.Subject == "":
		return nil, apperrors.Wrap(oauthDomain.ErrInvalidLaunch, "sub is required")
	case claims.ID == "":
		return nil, apperrors.Wrap(oauthDomain.ErrInvalidLaunch, "jti is required")
	case claims.IssuedAt == nil:
		return nil, apperrors.Wrap(oauthDomain.ErrInvalidLaunch, "iat is required")
	case len(claims.LTI) == 0:
		return nil, apperrors.Wrap(oauthDomain.ErrInvalidLaunch, "lti claims are required")
	case claims.ExpiresAt.Sub(claims.IssuedAt.Time) > v.config.MaxAge:
		return nil, apperrors.Wrap(oauthDomain.ErrInvalidLaunch, "assertion lifetime too long")
	}

	ttl := claims.ExpiresAt.Sub(v.now()) + time.Second
	fresh, err := v.store.SetNX(ctx, launchKeyPrefix+claims.ID, []byte(claims.Subject), ttl)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to record launch assertion")
	}
	if !fresh {
		return nil, apperrors.Wrap(oauthDomain.ErrInvalidLaunch, "assertion already used")
	}

	return &oauthDomain.Launch{
		ID:     claims.ID,
		UserID: claims.Subject,
		Claims: claims.LTI,
		Next:   claims.Next,
	}, nil
}
