// Package http provides the Canvas OAuth HTTP handlers and middleware.
package http

import (
	"context"

	oauthDomain "github.com/allisson/canvas-oauth/internal/oauth/domain"
)

// canvasTokenKey is a context key type for storing the resolved Canvas token.
type canvasTokenKey struct{}

// WithCanvasToken stores the Canvas token in the context.
// This is called by RequireCanvasToken once a valid token is available.
func WithCanvasToken(ctx context.Context, token *oauthDomain.GetTokenOutput) context.Context {
	return context.WithValue(ctx, canvasTokenKey{}, token)
}

// GetCanvasToken retrieves the Canvas token placed by RequireCanvasToken.
func GetCanvasToken(ctx context.Context) (*oauthDomain.GetTokenOutput, bool) {
	token, ok := ctx.Value(canvasTokenKey{}).(*oauthDomain.GetTokenOutput)
	return token, ok
}
