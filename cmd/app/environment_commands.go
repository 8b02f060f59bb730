package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/canvas-oauth/cmd/app/commands"
	"github.com/allisson/canvas-oauth/internal/app"
	"github.com/allisson/canvas-oauth/internal/config"
	"github.com/allisson/canvas-oauth/internal/httputil"
)

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func getEnvironmentCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-environment",
			Usage: "Register a Canvas environment",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Unique environment label (e.g., prod)",
				},
				&cli.StringFlag{
					Name:     "domain",
					Aliases:  []string{"d"},
					Required: true,
					Usage:    "Canvas host without scheme (e.g., canvas.example.edu)",
				},
				&cli.BoolFlag{
					Name:    "active",
					Aliases: []string{"a"},
					Value:   true,
					Usage:   "Whether requests may resolve to this environment",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				environmentUseCase, err := container.EnvironmentUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateEnvironment(
					ctx,
					environmentUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("name"),
					cmd.String("domain"),
					cmd.Bool("active"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "update-environment",
			Usage: "Update a registered Canvas environment",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Current environment label",
				},
				&cli.StringFlag{
					Name:  "new-name",
					Usage: "New environment label (defaults to the current one)",
				},
				&cli.StringFlag{
					Name:    "domain",
					Aliases: []string{"d"},
					Usage:   "New Canvas host (defaults to the current one)",
				},
				&cli.BoolFlag{
					Name:    "active",
					Aliases: []string{"a"},
					Value:   true,
					Usage:   "Whether requests may resolve to this environment",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				environmentUseCase, err := container.EnvironmentUseCase()
				if err != nil {
					return err
				}

				return commands.RunUpdateEnvironment(
					ctx,
					environmentUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("name"),
					cmd.String("new-name"),
					cmd.String("domain"),
					cmd.Bool("active"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "list-environments",
			Usage: "List registered Canvas environments",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "offset",
					Value: 0,
					Usage: "Number of environments to skip",
				},
				&cli.IntFlag{
					Name:  "limit",
					Value: httputil.DefaultPageLimit,
					Usage: "Maximum number of environments to print (at most 100)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				environmentUseCase, err := container.EnvironmentUseCase()
				if err != nil {
					return err
				}

				return commands.RunListEnvironments(
					ctx,
					environmentUseCase,
					commands.DefaultIO().Writer,
					int(cmd.Int("offset")),
					int(cmd.Int("limit")),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "purge-tokens",
			Usage: "Delete every stored token of an environment, forcing users to re-authorize",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "domain",
					Aliases:  []string{"d"},
					Required: true,
					Usage:    "Canvas host of the environment",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				environmentUseCase, err := container.EnvironmentUseCase()
				if err != nil {
					return err
				}

				tokenUseCase, err := container.TokenUseCase()
				if err != nil {
					return err
				}

				return commands.RunPurgeTokens(
					ctx,
					environmentUseCase,
					tokenUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("domain"),
					cmd.String("format"),
				)
			},
		},
	}
}
