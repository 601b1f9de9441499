package commands

import (
	"github.com/decibelvc/dirlock/internal/config"
	"github.com/decibelvc/dirlock/internal/lock"
	"github.com/decibelvc/dirlock/internal/logger"
)

// setup loads the CLI configuration and builds the logger derived from it.
func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.NewLoader().Load()
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(logger.ParseLevel(cfg.LogLevel), nil)
	return cfg, log, nil
}

// newHandle builds a lock handle for dir with the configured tolerance.
func newHandle(dir string, cfg *config.Config, log *logger.Logger) *lock.Handle {
	return lock.New(dir,
		lock.WithLogger(log),
		lock.WithStartTimeTolerance(cfg.StartTimeTolerance()),
	)
}

// useJSON merges the per-command flag with the configured default.
func useJSON(flagSet bool, cfg *config.Config) bool {
	return flagSet || cfg.JSONOutput
}
