package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	envUseCase "github.com/allisson/canvas-oauth/internal/environment/usecase"
	oauthUseCase "github.com/allisson/canvas-oauth/internal/oauth/usecase"
)

// RunPurgeTokens deletes every stored token of the active environment for
// domain, forcing its users through authorization again. Run it after the
// Canvas developer key of that environment was rotated or revoked.
//
// Requirements: Database must be migrated and the environment must be active.
func RunPurgeTokens(
	ctx context.Context,
	environmentUseCase envUseCase.EnvironmentUseCase,
	tokenUseCase oauthUseCase.TokenUseCase,
	logger *slog.Logger,
	writer io.Writer,
	domain string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	env, err := environmentUseCase.ResolveActive(ctx, domain)
	if err != nil {
		return fmt.Errorf("failed to resolve environment: %w", err)
	}

	count, err := tokenUseCase.Purge(ctx, env)
	if err != nil {
		return fmt.Errorf("failed to purge tokens: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]any{"domain": env.Domain, "count": count}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(writer, "Successfully purged %d token(s) for %s\n", count, env.Domain)
	}

	logger.Info("tokens purged",
		slog.String("canvas_domain", env.Domain),
		slog.Int64("count", count),
	)
	return nil
}
