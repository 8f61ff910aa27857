package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/skythread/internal"
	"github.com/starford/skythread/internal/models"
	pkgconfig "github.com/starford/skythread/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

// withApp opens the application with logs on stderr and runs fn.
func withApp(cmd *cli.Command, fn func(*internal.App) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	app, err := internal.Open(internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func blockArg(cmd *cli.Command) (string, error) {
	id := cmd.Args().First()
	if id == "" {
		return "", errors.New("block uid is required")
	}
	return id, nil
}

func post(ctx context.Context, cmd *cli.Command) error {
	id, err := blockArg(cmd)
	if err != nil {
		return err
	}
	return withApp(cmd, func(app *internal.App) error {
		res, err := app.Service.Post(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(res)
	})
}

func preview(ctx context.Context, cmd *cli.Command) error {
	id, err := blockArg(cmd)
	if err != nil {
		return err
	}
	return withApp(cmd, func(app *internal.App) error {
		p, err := app.Service.Preview(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(p)
	})
}

func login(_ context.Context, cmd *cli.Command) error {
	username := cmd.Args().First()
	if username == "" {
		return errors.New("username is required")
	}
	return withApp(cmd, func(app *internal.App) error {
		return app.Service.Login(models.Credential{
			Identifier: username,
			Secret:     cmd.String("password"),
		})
	})
}

func logout(_ context.Context, cmd *cli.Command) error {
	return withApp(cmd, func(app *internal.App) error {
		return app.Service.Logout()
	})
}

func configureAppend(_ context.Context, cmd *cli.Command) error {
	var enabled *bool
	var template *string
	if cmd.IsSet("enabled") {
		v := cmd.Bool("enabled")
		enabled = &v
	}
	if cmd.IsSet("template") {
		v := cmd.String("template")
		template = &v
	}
	if enabled == nil && template == nil {
		return errors.New("nothing to update: pass --enabled or --template")
	}
	return withApp(cmd, func(app *internal.App) error {
		if err := app.Service.SetAppend(enabled, template); err != nil {
			return err
		}
		view, err := app.Service.Settings()
		if err != nil {
			return err
		}
		return printJSON(view)
	})
}

func main() {
	cmd := &cli.Command{
		Name:   "skythread",
		Usage:  "Post outline blocks to Bluesky as threads",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, event stream and metrics endpoint",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the thread tools over MCP stdio",
				Action: serveMCP,
			},
			{
				Name:      "post",
				Usage:     "Post a block and its children as a thread",
				ArgsUsage: "<block-uid>",
				Action:    post,
			},
			{
				Name:      "preview",
				Usage:     "Show the thread a block would become without posting",
				ArgsUsage: "<block-uid>",
				Action:    preview,
			},
			{
				Name:      "login",
				Usage:     "Save the Bluesky account used for posting",
				ArgsUsage: "<handle-or-email>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "password",
						Usage:    "App password",
						Required: true,
						Sources:  cli.EnvVars("BLUESKY_APP_PASSWORD"),
					},
				},
				Action: login,
			},
			{
				Name:   "logout",
				Usage:  "Remove the saved Bluesky account",
				Action: logout,
			},
			{
				Name:  "append",
				Usage: "Configure the note appended to a block after posting",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "enabled",
						Usage: "Append the note after a successful post",
					},
					&cli.StringFlag{
						Name:  "template",
						Usage: "Note template; {DATE} becomes a daily-note link",
					},
				},
				Action: configureAppend,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
