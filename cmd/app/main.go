package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/notewiki/internal"
	"github.com/starford/notewiki/internal/apperr"
)

func runMode(mode internal.Mode) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := internal.LoadConfig(cmd.String("config"), cmd.IsSet("config"))
		if err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		if cmd.IsSet("file") || cfg.Storage.Path == "" {
			cfg.Storage.Path = cmd.String("file")
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithMode(mode),
			internal.WithVerbose(cmd.Bool("verbose")),
		}

		if err := internal.Run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:      "notewiki",
		Usage:     "Personal wiki of titled notes linked by tags, stored in one JSON file",
		Writer:    os.Stdout,
		ErrWriter: os.Stdout,
		Action:    runMode(internal.ModeTUI),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Path to the notes file",
				Value:   "notes.json",
				Sources: cli.EnvVars("NOTEWIKI_FILE"),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log at debug level",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   "notewiki.yaml",
				Sources: cli.EnvVars("NOTEWIKI_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "print",
				Usage:  "Print the startup notes as plain text, save and exit",
				Action: runMode(internal.ModePrint),
			},
			{
				Name:   "serve",
				Usage:  "Serve the notes over HTTP with live updates",
				Action: runMode(internal.ModeServe),
			},
			{
				Name:   "mcp",
				Usage:  "Expose the notes as MCP tools over stdio",
				Action: runMode(internal.ModeMCP),
			},
		},
		OnUsageError: func(_ context.Context, _ *cli.Command, err error, _ bool) error {
			return fmt.Errorf("%w: %w", apperr.ErrArg, err)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, apperr.ErrArg) {
			fmt.Fprintln(os.Stdout, err)
		}
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
