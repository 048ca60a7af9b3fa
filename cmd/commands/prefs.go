package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/sirius/internal/prefs"
)

// NewPrefsCommand returns the prefs subcommand.
func NewPrefsCommand() *cli.Command {
	return &cli.Command{
		Name:  "prefs",
		Usage: "Inspect or change persisted preferences",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Print one preference, or all of them",
				ArgsUsage: "[name]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withPrefs(ctx, cmd, func(store *prefs.Store) error {
						return printPrefs(ctx, os.Stdout, store, cmd.Args().First())
					})
				},
			},
			{
				Name:      "set",
				Usage:     "Set a preference",
				ArgsUsage: "<name> <value>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 2 {
						return fmt.Errorf("usage: sirius prefs set <name> <value>")
					}
					return withPrefs(ctx, cmd, func(store *prefs.Store) error {
						return setPref(ctx, store, cmd.Args().Get(0), cmd.Args().Get(1))
					})
				},
			},
		},
	}
}

func withPrefs(ctx context.Context, cmd *cli.Command, fn func(*prefs.Store) error) error {
	e, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer e.log.Close()

	store, err := prefs.Open(e.cfg.Prefs.Path, e.log.Component("prefs"))
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func printPrefs(ctx context.Context, w io.Writer, store *prefs.Store, name string) error {
	if name != "" {
		v, err := store.Get(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, v)
		return nil
	}

	all, err := store.All(ctx)
	if err != nil {
		return err
	}
	names, err := store.Names(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintf(w, "%s=%s\n", n, all[n])
	}
	return nil
}

// setPref validates the known preferences before storing them.
func setPref(ctx context.Context, store *prefs.Store, name, value string) error {
	switch name {
	case prefs.KeyTheme:
		return store.SetTheme(ctx, value)
	case prefs.KeyMuted:
		switch value {
		case "true", "on", "yes", "1":
			return store.SetMuted(ctx, true)
		case "false", "off", "no", "0":
			return store.SetMuted(ctx, false)
		}
		return fmt.Errorf("invalid muted value %q: want true or false", value)
	default:
		return store.Set(ctx, name, value)
	}
}
