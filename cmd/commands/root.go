package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/sirius/clients/agent"
	"github.com/dohr-michael/sirius/internal/config"
	"github.com/dohr-michael/sirius/internal/logger"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "sirius",
		Usage: "Terminal side panel for the Sirius browser agent",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.StringFlag{
				Name:    "backend",
				Aliases: []string{"b"},
				Usage:   "Agent server base URL (overrides backend.url)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewPanelCommand(),
			NewAskCommand(),
			NewStatusCommand(),
			NewStopCommand(),
			NewPrefsCommand(),
			NewDevServerCommand(),
		},
	}
}

// env is the configuration and logger shared by every subcommand.
type env struct {
	cfg *config.Config
	log *logger.Logger
}

// setup loads the config file, applies the global flags and installs the
// logger. Console output goes to stderr; the panel passes false since it owns
// the terminal.
func setup(cmd *cli.Command, console bool) (*env, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cmd.IsSet("backend") {
		cfg.Backend.URL = cmd.String("backend")
	}
	if cmd.Bool("debug") {
		cfg.Log.Level = "debug"
	}

	l, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: console,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &env{cfg: cfg, log: l}, nil
}

func (e *env) client(component string) (*agent.Client, zerolog.Logger) {
	logger := e.log.Component(component)
	return agent.New(e.cfg.Backend.URL, agent.WithLogger(logger)), logger
}
