package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/sirius/clients/agent"
	"github.com/dohr-michael/sirius/internal/config"
	"github.com/dohr-michael/sirius/internal/heartbeat"
)

// NewStatusCommand returns the status subcommand.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Probe the agent server once",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer e.log.Close()

			client, _ := e.client("status")
			printDevServer(os.Stdout, config.HeartbeatPath())
			return printStatus(ctx, os.Stdout, client)
		},
	}
}

func printStatus(ctx context.Context, w io.Writer, client *agent.Client) error {
	health, err := client.Health(ctx)
	if err != nil {
		fmt.Fprintf(w, "Agent server: UNREACHABLE (%s)\n", client.BaseURL())
		return fmt.Errorf("probe %s: %w", client.BaseURL(), err)
	}

	fmt.Fprintf(w, "Agent server: ALIVE (%s)\n", client.BaseURL())
	if health.WorkerAlive != nil {
		fmt.Fprintf(w, "Worker alive: %t\n", *health.WorkerAlive)
	}
	if health.WorkerReady != nil {
		fmt.Fprintf(w, "Worker ready: %t\n", *health.WorkerReady)
	}
	return nil
}

// printDevServer reports a local devserver advertised through its heartbeat
// file. Nothing is printed when none ever ran.
func printDevServer(w io.Writer, path string) {
	status, hb, err := heartbeat.Check(path, 3*heartbeat.DefaultInterval)
	switch {
	case err != nil:
		fmt.Fprintf(w, "Local devserver: unknown (%v)\n", err)
	case hb == nil:
	case status == heartbeat.StatusAlive:
		fmt.Fprintf(w, "Local devserver: %s on %s (pid %d, up %s)\n", status, hb.Addr, hb.PID, hb.Uptime())
	default:
		fmt.Fprintf(w, "Local devserver: %s, last seen %s\n", status, hb.Timestamp.Format(time.DateTime))
	}
}
