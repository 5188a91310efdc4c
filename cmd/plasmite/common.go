package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sandover/plasmite/config"
	"github.com/sandover/plasmite/logging"
	"github.com/sandover/plasmite/pool"
)

func loadConfig() (config.Config, error) {
	if rootArgs.ConfigPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(rootArgs.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*zap.SugaredLogger, error) {
	log, _, err := logging.Init(logging.Config{Level: cfg.Logging.ZapLevel()})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	return log, nil
}

func registryWithLogger(cfg config.Config, log *zap.SugaredLogger) *pool.Registry {
	return pool.NewRegistry(cfg.RegistryDir).WithLogger(log)
}

// openRegistry is the common path for subcommands that only need a
// registry and a logger, with no other use for the config in between.
func openRegistry() (*pool.Registry, *zap.SugaredLogger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return registryWithLogger(cfg, log), log, nil
}
