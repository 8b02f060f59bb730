package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	envUseCase "github.com/allisson/canvas-oauth/internal/environment/usecase"
	"github.com/allisson/canvas-oauth/internal/httputil"
)

// environmentOutput is the JSON shape of an environment printed by the CLI.
type environmentOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Domain    string `json:"domain"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toEnvironmentOutput(env *envDomain.Environment) environmentOutput {
	return environmentOutput{
		ID:        env.ID.String(),
		Name:      env.Name,
		Domain:    env.Domain,
		IsActive:  env.IsActive,
		CreatedAt: env.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt: env.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// RunCreateEnvironment registers a Canvas environment.
// Domain is the bare Canvas host (e.g. canvas.example.edu); credentials are
// resolved from configuration at runtime and are never stored.
//
// Requirements: Database must be migrated.
func RunCreateEnvironment(
	ctx context.Context,
	environmentUseCase envUseCase.EnvironmentUseCase,
	logger *slog.Logger,
	writer io.Writer,
	name string,
	domain string,
	isActive bool,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("creating environment", slog.String("name", name), slog.String("domain", domain))

	env, err := environmentUseCase.Create(ctx, &envDomain.CreateEnvironmentInput{
		Name:     name,
		Domain:   domain,
		IsActive: isActive,
	})
	if err != nil {
		return fmt.Errorf("failed to create environment: %w", err)
	}

	if err := outputEnvironment(writer, "Environment created successfully!", env, format); err != nil {
		return err
	}

	logger.Info("environment created successfully",
		slog.String("environment_id", env.ID.String()),
		slog.String("domain", env.Domain),
	)
	return nil
}

// RunUpdateEnvironment replaces the label, domain and active flag of the
// environment currently registered under currentName.
//
// Requirements: Database must be migrated and the environment must exist.
func RunUpdateEnvironment(
	ctx context.Context,
	environmentUseCase envUseCase.EnvironmentUseCase,
	logger *slog.Logger,
	writer io.Writer,
	currentName string,
	name string,
	domain string,
	isActive bool,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("updating environment", slog.String("name", currentName))

	existing, err := environmentUseCase.GetByName(ctx, currentName)
	if err != nil {
		return fmt.Errorf("failed to get existing environment: %w", err)
	}

	// Unset flags keep their current values.
	if name == "" {
		name = existing.Name
	}
	if domain == "" {
		domain = existing.Domain
	}

	env, err := environmentUseCase.Update(ctx, currentName, &envDomain.UpdateEnvironmentInput{
		Name:     name,
		Domain:   domain,
		IsActive: isActive,
	})
	if err != nil {
		return fmt.Errorf("failed to update environment: %w", err)
	}

	if err := outputEnvironment(writer, "Environment updated successfully!", env, format); err != nil {
		return err
	}

	logger.Info("environment updated successfully",
		slog.String("environment_id", env.ID.String()),
		slog.Bool("is_active", env.IsActive),
	)
	return nil
}

// RunListEnvironments prints registered environments ordered by name.
func RunListEnvironments(
	ctx context.Context,
	environmentUseCase envUseCase.EnvironmentUseCase,
	writer io.Writer,
	offset int,
	limit int,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	page, err := httputil.NewPage(offset, limit)
	if err != nil {
		return err
	}

	envs, err := environmentUseCase.List(ctx, page.Offset, page.Limit)
	if err != nil {
		return fmt.Errorf("failed to list environments: %w", err)
	}

	if format == "json" {
		outputs := make([]environmentOutput, 0, len(envs))
		for _, env := range envs {
			outputs = append(outputs, toEnvironmentOutput(env))
		}
		return writeJSON(writer, map[string]any{"data": outputs})
	}

	if len(envs) == 0 {
		_, err := fmt.Fprintln(writer, "No environments registered.")
		return err
	}

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tDOMAIN\tACTIVE\tID")
	for _, env := range envs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", env.Name, env.Domain, env.IsActive, env.ID)
	}
	return tw.Flush()
}

func outputEnvironment(writer io.Writer, title string, env *envDomain.Environment, format string) error {
	if format == "json" {
		return writeJSON(writer, toEnvironmentOutput(env))
	}

	_, _ = fmt.Fprintln(writer, title)
	_, _ = fmt.Fprintf(writer, "ID: %s\n", env.ID)
	_, _ = fmt.Fprintf(writer, "Name: %s\n", env.Name)
	_, _ = fmt.Fprintf(writer, "Domain: %s\n", env.Domain)
	_, err := fmt.Fprintf(writer, "Active: %t\n", env.IsActive)
	return err
}
