package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"gocloud.dev/secrets"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// encryptedPrefix marks values written by a keeper-backed TokenCipher.
// Values without it are returned unchanged by Decrypt so that rows stored
// before encryption was enabled stay readable.
const encryptedPrefix = "enc:v1:"

// TokenCipher encrypts Canvas tokens before they are persisted.
type TokenCipher interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, value string) (string, error)
	Close() error
}

// keeperCipher implements TokenCipher with a gocloud.dev secrets.Keeper.
type keeperCipher struct {
	keeper *secrets.Keeper
}

// Encrypt seals plaintext. Empty values are stored as-is.
func (k *keeperCipher) Encrypt(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	ciphertext, err := k.keeper.Encrypt(ctx, []byte(plaintext))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt token: %w", err)
	}
	return encryptedPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt opens a value produced by Encrypt.
func (k *keeperCipher) Decrypt(ctx context.Context, value string) (string, error) {
	encoded, ok := strings.CutPrefix(value, encryptedPrefix)
	if !ok {
		return value, nil
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode encrypted token: %w", err)
	}
	plaintext, err := k.keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token: %w", err)
	}
	return string(plaintext), nil
}

// Close releases the keeper.
func (k *keeperCipher) Close() error {
	return k.keeper.Close()
}

// plainCipher stores tokens unencrypted.
type plainCipher struct{}

func (plainCipher) Encrypt(_ context.Context, plaintext string) (string, error) { return plaintext, nil }

func (plainCipher) Decrypt(_ context.Context, value string) (string, error) {
	if strings.HasPrefix(value, encryptedPrefix) {
		return "", fmt.Errorf("token is encrypted but no CANVAS_OAUTH_TOKEN_KEY_URI is configured")
	}
	return value, nil
}

func (plainCipher) Close() error { return nil }

// OpenTokenCipher opens the keeper at keyURI. Supported schemes are
// gcpkms://, awskms://, azurekeyvault://, hashivault:// and base64key://.
// An empty keyURI disables encryption.
func OpenTokenCipher(ctx context.Context, keyURI string) (TokenCipher, error) {
	if keyURI == "" {
		return plainCipher{}, nil
	}
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open token keeper: %w", err)
	}
	return &keeperCipher{keeper: keeper}, nil
}
