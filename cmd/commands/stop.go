package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// NewStopCommand returns the stop subcommand.
func NewStopCommand() *cli.Command {
	return &cli.Command{
		Name:  "stop",
		Usage: "Ask the agent to stop its current task",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer e.log.Close()

			client, _ := e.client("stop")
			if err := client.Stop(ctx); err != nil {
				return fmt.Errorf("send stop: %w", err)
			}
			fmt.Println("Stop signal sent")
			return nil
		},
	}
}
