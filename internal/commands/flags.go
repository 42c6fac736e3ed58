package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/hay-kot/lobby/internal/core/chat"
	"github.com/hay-kot/lobby/internal/core/config"
	"github.com/hay-kot/lobby/internal/core/zome"
	"github.com/hay-kot/lobby/internal/lobby"
	"github.com/hay-kot/lobby/internal/store/jsonfile"
	"github.com/hay-kot/lobby/internal/transport/ws"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string
	Conductor  string
	Metrics    bool

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config

	// Registry collects zome call metrics, printed on exit with --metrics
	Registry *prometheus.Registry

	client *ws.Client
	caller zome.Caller
}

// Connect dials the conductor once and returns an instrumented caller.
func (f *Flags) Connect(ctx context.Context) (zome.Caller, error) {
	if f.caller != nil {
		return f.caller, nil
	}

	client, err := ws.Dial(ctx, f.Config.Conductor.URL, log.With().Str("component", "ws").Logger())
	if err != nil {
		return nil, err
	}

	var reg prometheus.Registerer
	if f.Registry != nil {
		reg = f.Registry
	}

	f.client = client
	f.caller = zome.Instrument(zome.WithTimeout(client, f.Config.Conductor.CallTimeout), reg)
	return f.caller, nil
}

// Store returns the local state store.
func (f *Flags) Store() *jsonfile.Store {
	return jsonfile.New(f.Config.StateFile())
}

// Service builds a service over store and loads its state.
func (f *Flags) Service(ctx context.Context, store chat.Store) (*lobby.Service, error) {
	caller, err := f.Connect(ctx)
	if err != nil {
		return nil, err
	}

	svc := lobby.New(caller, store, lobby.Options{
		BatchSize:       f.Config.Fetch.BatchSize,
		LatestBatchSize: f.Config.Fetch.LatestBatchSize,
		PayloadType:     f.Config.PayloadType(),
	}, log.With().Str("component", "lobby").Logger())

	if err := svc.Open(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

// Run executes fn against a connected service and persists whatever it
// applied, including partial progress when fn fails. The state file stays
// locked from load to save, so concurrent invocations run one after another.
func (f *Flags) Run(ctx context.Context, fn func(svc *lobby.Service) error) error {
	if _, err := f.Connect(ctx); err != nil {
		return err
	}

	return f.Store().Update(ctx, func(tx chat.Store) error {
		svc, err := f.Service(ctx, tx)
		if err != nil {
			return err
		}

		fnErr := fn(svc)
		if err := svc.Save(ctx); err != nil {
			return errors.Join(fnErr, err)
		}
		return fnErr
	})
}

// Close releases the conductor connection, if any.
func (f *Flags) Close() error {
	if f.client == nil {
		return nil
	}
	if err := f.client.Close(); err != nil {
		return fmt.Errorf("close conductor connection: %w", err)
	}
	return nil
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "lobby", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "lobby")
}
