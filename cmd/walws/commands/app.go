package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openfroyo/walworkspace/pkg/config"
	"github.com/openfroyo/walworkspace/pkg/host"
	"github.com/openfroyo/walworkspace/pkg/policy"
	"github.com/openfroyo/walworkspace/pkg/providers/workspace"
	"github.com/openfroyo/walworkspace/pkg/stores"
	"github.com/openfroyo/walworkspace/pkg/telemetry"
	"github.com/openfroyo/walworkspace/pkg/transports/emrwal"
)

// app holds the components a command works with.
type app struct {
	cfg      *config.Config
	tel      *telemetry.Telemetry
	store    *stores.SQLiteStore
	policies *policy.Engine
	driver   *host.Driver
}

// loadConfig reads the --config file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newPolicyEngine builds the policy engine with the configured extra paths.
func newPolicyEngine(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*policy.Engine, error) {
	eng, err := policy.NewEngine(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy engine: %w", err)
	}
	if len(cfg.Policy.Paths) > 0 {
		if err := eng.LoadPolicies(ctx, cfg.Policy.Paths); err != nil {
			return nil, err
		}
	}
	return eng, nil
}

// newApp wires config, telemetry, store, remote client, provider and driver.
// withRemote is false for commands that only read the local store.
func newApp(ctx context.Context, withRemote bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.NewTelemetry(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	if err := tel.StartMetricsServer(); err != nil {
		return nil, fmt.Errorf("failed to start metrics server: %w", err)
	}

	store, err := stores.NewSQLiteStore(cfg.StoreConfig())
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &app{cfg: cfg, tel: tel, store: store}
	if !withRemote {
		return a, nil
	}

	client, err := emrwal.NewClient(ctx, cfg.TransportConfig(), emrwal.WithLogger(tel.Logger))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	opts := []host.Option{host.WithTelemetry(tel)}
	if cfg.Policy.Enabled {
		a.policies, err = newPolicyEngine(ctx, cfg, *tel.Logger.Zerolog())
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		opts = append(opts, host.WithChecker(a.policies))
	}

	provider := workspace.New(client, workspace.WithTelemetry(tel))
	a.driver = host.New(provider, store, cfg.DriverConfig(), opts...)

	log.Debug().
		Str("endpoint", client.Endpoint()).
		Str("store", cfg.Host.StorePath).
		Bool("policy", cfg.Policy.Enabled).
		Msg("Components initialized")

	return a, nil
}

// close prunes the invocation log and releases the store and telemetry.
func (a *app) close(ctx context.Context) error {
	var errs []error

	if a.driver != nil {
		if n, err := a.driver.Prune(ctx, a.cfg.Host.InvocationRetention); err != nil {
			errs = append(errs, err)
		} else if n > 0 {
			log.Debug().Int64("pruned", n).Msg("Pruned invocation log")
		}
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
