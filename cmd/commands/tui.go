package commands

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/sirius/clients/agent"
	"github.com/dohr-michael/sirius/clients/tui"
	"github.com/dohr-michael/sirius/internal/prefs"
	"github.com/dohr-michael/sirius/internal/session"
	"github.com/dohr-michael/sirius/internal/voice"
)

// NewPanelCommand returns the panel subcommand.
func NewPanelCommand() *cli.Command {
	return &cli.Command{
		Name:    "panel",
		Aliases: []string{"tui"},
		Usage:   "Launch the interactive side panel",
		Action:  runPanel,
	}
}

func runPanel(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer e.log.Close()

	client, logger := e.client("panel")

	store, err := prefs.Open(e.cfg.Prefs.Path, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var recognizer voice.Recognizer
	var speaker *voice.Speaker
	if e.cfg.Voice.Enabled {
		if dg, err := voice.NewDeepgram(e.cfg.Voice.Deepgram, e.cfg.Voice.CaptureCommand, logger); err == nil {
			recognizer = dg
		} else {
			logger.Warn().Err(err).Msg("speech input disabled")
		}
		if sp, err := voice.NewSpeaker(e.cfg.Voice.SpeakCommand, store.Muted(ctx), logger); err == nil {
			speaker = sp
			go speaker.Run(ctx)
		} else if !errors.Is(err, voice.ErrUnavailable) {
			logger.Warn().Err(err).Msg("speech output disabled")
		}
	}

	rt := agent.NewRuntime(ctx, client, e.cfg.Backend.ReconnectDelay.Duration())
	defer rt.Close()

	logger.Info().Str("backend", client.BaseURL()).Bool("voice", recognizer != nil).Msg("starting panel")

	return tui.Run(ctx, tui.Options{
		Session:        session.New(logger),
		Runtime:        rt,
		Bridge:         voice.NewBridge(recognizer, e.cfg.Voice.RemediationCommand, logger),
		Speaker:        speaker,
		Prefs:          store,
		HealthInterval: e.cfg.Backend.HealthInterval.Duration(),
		SubmitDelay:    e.cfg.Voice.SubmitDelay.Duration(),
		Logger:         logger,
	})
}
