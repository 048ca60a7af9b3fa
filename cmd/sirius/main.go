package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"

	"github.com/dohr-michael/sirius/cmd/commands"
	"github.com/dohr-michael/sirius/internal/config"
)

func main() {
	if err := config.LoadDotenv(config.DotenvPath()); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cmd := commands.NewRootCommand()
	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("fatal")
		fmt.Fprintln(os.Stderr, "sirius:", err)
		os.Exit(1)
	}
}
