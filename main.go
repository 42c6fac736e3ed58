package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/lobby/internal/commands"
	"github.com/hay-kot/lobby/internal/core/config"
	"github.com/hay-kot/lobby/internal/lobby"
	"github.com/hay-kot/lobby/internal/printer"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	short := commit
	if len(commit) > 7 {
		short = commit[:7]
	}

	return fmt.Sprintf("%s (%s) %s", version, short, date)
}

func main() {
	if err := setupLogger("info", ""); err != nil {
		panic(err)
	}

	var (
		p     = printer.New(os.Stderr)
		ctx   = printer.NewContext(context.Background(), p)
		flags = &commands.Flags{Registry: prometheus.NewRegistry()}
	)

	app := &cli.Command{
		Name:      "lobby",
		Usage:     "Browse and manage conversations on a p2p messaging conductor",
		UsageText: "lobby [global options] command [command options]",
		Description: `Lobby keeps a local, ordered copy of your direct and group conversations.

Run 'lobby sync' to load the latest messages, then page through history with
'lobby msg next' and fill gaps with 'lobby msg around'. Pins, read receipts and
membership changes are sent to the conductor first and applied locally once
it accepts them.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("LOBBY_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (optional)",
				Sources:     cli.EnvVars("LOBBY_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("LOBBY_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("LOBBY_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.StringFlag{
				Name:        "conductor",
				Usage:       "conductor websocket url (overrides config)",
				Sources:     cli.EnvVars("LOBBY_CONDUCTOR"),
				Destination: &flags.Conductor,
			},
			&cli.BoolFlag{
				Name:        "metrics",
				Usage:       "print zome call metrics on exit",
				Sources:     cli.EnvVars("LOBBY_METRICS"),
				Destination: &flags.Metrics,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			if err := setupLogger(flags.LogLevel, flags.LogFile); err != nil {
				return ctx, err
			}

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			if flags.Conductor != "" {
				cfg.Conductor.URL = flags.Conductor
				if err := cfg.Validate(); err != nil {
					return ctx, fmt.Errorf("invalid --conductor: %w", err)
				}
			}
			flags.Config = cfg

			log.Debug().
				Str("conductor", cfg.Conductor.URL).
				Str("state", cfg.StateFile()).
				Msg("config loaded")
			return ctx, nil
		},
	}

	app = commands.NewSyncCmd(flags).Register(app)
	app = commands.NewLsCmd(flags).Register(app)
	app = commands.NewShowCmd(flags).Register(app)
	app = commands.NewMsgCmd(flags).Register(app)
	app = commands.NewPinCmd(flags).Register(app)
	app = commands.NewGroupCmd(flags).Register(app)
	app = commands.NewContactsCmd(flags).Register(app)
	app = commands.NewDoctorCmd(flags).Register(app)
	app = commands.NewConfigValidateCmd(flags).Register(app)

	exitCode := 0
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Println()
		printer.Ctx(ctx).Notify(lobby.Describe(err), err)
		exitCode = 1
	}

	if err := flags.Close(); err != nil {
		log.Warn().Err(err).Msg("close")
	}

	if flags.Metrics {
		if err := dumpMetrics(os.Stderr, flags.Registry); err != nil {
			log.Warn().Err(err).Msg("write metrics")
		}
	}

	os.Exit(exitCode)
}

// dumpMetrics writes the gathered metrics in the text exposition format.
func dumpMetrics(w io.Writer, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func setupLogger(level string, logFile string) error {
	parsedLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	var output io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}

	if logFile != "" {
		// Create log directory if it doesn't exist
		logDir := filepath.Dir(logFile)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}

		output = io.MultiWriter(
			zerolog.ConsoleWriter{Out: os.Stderr},
			file,
		)
	}

	log.Logger = log.Output(output).Level(parsedLevel)

	return nil
}
