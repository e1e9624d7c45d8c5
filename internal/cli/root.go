package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/drake/beatclock/config"
	"github.com/drake/beatclock/internal/logging"
)

var (
	flagConfig      string
	flagDebug       bool
	flagLogLevel    string
	flagLogFormat   string
	flagLogFile     string
	flagSimple      bool
	flagTempo       float64
	flagLookaheadMS float64
	flagRefreshMS   int

	settings config.Settings
	logger   *slog.Logger
	closeLog func() error
)

// NewRootCmd creates the root cobra command for the beatclock CLI.
// Without a subcommand it runs the interactive session; arguments are Lua
// scripts loaded after init.lua.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "beatclock [script.lua ...]",
		Short: "beatclock - a scriptable tempo map and beat scheduler",
		Long: "beatclock maps beats to time through a piecewise tempo map and runs " +
			"Lua callbacks at beats or times.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			closeLog = func() error { return nil }
			s, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, &s); err != nil {
				return err
			}
			settings = s

			// The TUI owns the terminal, so it logs to a file or nowhere.
			tui := cmd == cmd.Root() && !settings.Simple
			level := logging.ParseLevel(settings.LogLevel)
			switch {
			case settings.LogFile != "":
				l, closeFn, err := logging.NewFileLogger(level, settings.LogFormat, settings.LogFile)
				if err != nil {
					return err
				}
				logger, closeLog = l, closeFn
			case tui:
				logger = logging.Discard()
			default:
				logger = logging.NewLogger(level, settings.LogFormat)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeLog()
		},
		RunE:         runSession,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", config.SettingsFile(), "Settings file")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging and the stats monitor")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")
	root.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Write logs to this file")

	root.Flags().Float64Var(&flagTempo, "tempo", 0, "Tempo at beat 0 in bpm (0 = none, 60 bpm)")
	root.Flags().BoolVar(&flagSimple, "simple", false, "Use the line console instead of the TUI")
	root.Flags().Float64Var(&flagLookaheadMS, "lookahead", -60, "Default cue lead in milliseconds (negative fires early)")
	root.Flags().IntVar(&flagRefreshMS, "refresh", 100, "Transport refresh interval in milliseconds")

	root.AddCommand(newMapCmd())

	return root
}

// applyFlags overrides settings with the flags given on the command line.
func applyFlags(cmd *cobra.Command, s *config.Settings) error {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		s.LogLevel = flagLogLevel
	}
	if flagDebug {
		s.LogLevel = "debug"
	}
	if flags.Changed("log-format") {
		s.LogFormat = flagLogFormat
	}
	if flags.Changed("log-file") {
		s.LogFile = flagLogFile
	}
	if cmd == cmd.Root() && flags.Changed("tempo") {
		s.Tempo = flagTempo
	}
	if flags.Changed("simple") {
		s.Simple = flagSimple
	}
	if flags.Changed("lookahead") {
		s.LookaheadMS = flagLookaheadMS
	}
	if flags.Changed("refresh") {
		s.RefreshMS = flagRefreshMS
	}
	return s.Validate()
}
