package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/drake/beatclock/config"
	"github.com/drake/beatclock/debug"
	"github.com/drake/beatclock/scripts"
	"github.com/drake/beatclock/session"
	"github.com/drake/beatclock/ui"
)

// runSession starts the interactive clock with the scripts in args.
func runSession(cmd *cobra.Command, args []string) error {
	cfg := session.Config{
		CoreScripts:     scripts.CoreScripts,
		ConfigDir:       config.Dir(),
		UserScripts:     args,
		Tempo:           settings.Tempo,
		Lookahead:       settings.Lookahead(),
		RefreshInterval: settings.Refresh(),
		Logger:          logger,
	}

	var u ui.UI
	if settings.Simple {
		u = ui.NewConsoleUI()
		cfg.RefreshInterval = 0 // no transport bar
	} else {
		u = ui.NewBubbleTeaUI()
	}

	s, err := session.New(u, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	debug.NewMonitor(ctx, s, logger, flagDebug || debug.Enabled()).Start()

	logger.Info("starting", "tempo", settings.Tempo, "lookahead", cfg.Lookahead, "simple", settings.Simple)
	return s.Run()
}
