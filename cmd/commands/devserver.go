package commands

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/sirius/internal/config"
	"github.com/dohr-michael/sirius/internal/devserver"
	"github.com/dohr-michael/sirius/internal/heartbeat"
)

// NewDevServerCommand returns the devserver subcommand.
func NewDevServerCommand() *cli.Command {
	return &cli.Command{
		Name:  "devserver",
		Usage: "Run a scripted local agent server for development",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Address to listen on",
				Value: "127.0.0.1:8000",
			},
			&cli.DurationFlag{
				Name:  "step",
				Usage: "Delay between streamed tokens",
				Value: devserver.DefaultStepDelay,
			},
		},
		Action: runDevServer,
	}
}

func runDevServer(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer e.log.Close()

	server := devserver.New(devserver.Options{
		Addr:      cmd.String("addr"),
		StepDelay: cmd.Duration("step"),
		Logger:    e.log.Zerolog(),
	})

	beat := heartbeat.NewWriter(config.HeartbeatPath(), cmd.String("addr"), heartbeat.DefaultInterval, e.log.Zerolog())
	zl := e.log.Zerolog()
	if err := beat.Start(); err != nil {
		zl.Warn().Err(err).Msg("devserver will not be advertised")
	}
	defer beat.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		zl.Info().Msg("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		server.Close()
		return err
	}
}
