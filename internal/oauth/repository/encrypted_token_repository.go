package repository

import (
	"context"

	"github.com/google/uuid"

	oauthDomain "github.com/allisson/canvas-oauth/internal/oauth/domain"
	oauthService "github.com/allisson/canvas-oauth/internal/oauth/service"
)

// tokenStore is the persistence contract shared by the SQL repositories.
type tokenStore interface {
	Upsert(ctx context.Context, token *oauthDomain.Token) error
	Update(ctx context.Context, token *oauthDomain.Token) error
	Get(ctx context.Context, userID string, environmentID uuid.UUID) (*oauthDomain.Token, error)
	GetForUpdate(ctx context.Context, userID string, environmentID uuid.UUID) (*oauthDomain.Token, error)
	Delete(ctx context.Context, userID string, environmentID uuid.UUID) error
	DeleteByEnvironment(ctx context.Context, environmentID uuid.UUID) (int64, error)
}

// EncryptedTokenRepository seals access and refresh tokens with a TokenCipher
// before they reach the underlying store. Callers always see plaintext.
type EncryptedTokenRepository struct {
	next   tokenStore
	cipher oauthService.TokenCipher
}

// Upsert encrypts the credential fields and stores the token.
func (e *EncryptedTokenRepository) Upsert(ctx context.Context, token *oauthDomain.Token) error {
	sealed, err := e.seal(ctx, token)
	if err != nil {
		return err
	}
	if err := e.next.Upsert(ctx, sealed); err != nil {
		return err
	}
	token.ID = sealed.ID
	token.CreatedAt = sealed.CreatedAt
	return nil
}

// Update encrypts the credential fields and updates the token.
func (e *EncryptedTokenRepository) Update(ctx context.Context, token *oauthDomain.Token) error {
	sealed, err := e.seal(ctx, token)
	if err != nil {
		return err
	}
	return e.next.Update(ctx, sealed)
}

// Get retrieves and decrypts a token.
func (e *EncryptedTokenRepository) Get(
	ctx context.Context,
	userID string,
	environmentID uuid.UUID,
) (*oauthDomain.Token, error) {
	token, err := e.next.Get(ctx, userID, environmentID)
	if err != nil {
		return nil, err
	}
	return e.open(ctx, token)
}

// GetForUpdate retrieves, locks and decrypts a token.
func (e *EncryptedTokenRepository) GetForUpdate(
	ctx context.Context,
	userID string,
	environmentID uuid.UUID,
) (*oauthDomain.Token, error) {
	token, err := e.next.GetForUpdate(ctx, userID, environmentID)
	if err != nil {
		return nil, err
	}
	return e.open(ctx, token)
}

// Delete removes a token.
func (e *EncryptedTokenRepository) Delete(ctx context.Context, userID string, environmentID uuid.UUID) error {
	return e.next.Delete(ctx, userID, environmentID)
}

// DeleteByEnvironment removes every token of an environment.
func (e *EncryptedTokenRepository) DeleteByEnvironment(ctx context.Context, environmentID uuid.UUID) (int64, error) {
	return e.next.DeleteByEnvironment(ctx, environmentID)
}

func (e *EncryptedTokenRepository) seal(ctx context.Context, token *oauthDomain.Token) (*oauthDomain.Token, error) {
	sealed := *token

	var err error
	if sealed.AccessToken, err = e.cipher.Encrypt(ctx, token.AccessToken); err != nil {
		return nil, err
	}
	if sealed.RefreshToken, err = e.cipher.Encrypt(ctx, token.RefreshToken); err != nil {
		return nil, err
	}
	return &sealed, nil
}

func (e *EncryptedTokenRepository) open(ctx context.Context, token *oauthDomain.Token) (*oauthDomain.Token, error) {
	var err error
	if token.AccessToken, err = e.cipher.Decrypt(ctx, token.AccessToken); err != nil {
		return nil, err
	}
	if token.RefreshToken, err = e.cipher.Decrypt(ctx, token.RefreshToken); err != nil {
		return nil, err
	}
	return token, nil
}

// NewEncryptedTokenRepository wraps next with at-rest token encryption.
func NewEncryptedTokenRepository(next tokenStore, cipher oauthService.TokenCipher) *EncryptedTokenRepository {
	return &EncryptedTokenRepository{next: next, cipher: cipher}
}
