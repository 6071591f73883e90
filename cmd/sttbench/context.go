package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"sttbench/internal/config"
	"sttbench/internal/logging"
	"sttbench/internal/preflight"
	"sttbench/internal/results"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// stageEnv bundles what a pipeline command needs once setup has passed.
type stageEnv struct {
	cfg    *config.Config
	base   *slog.Logger
	logger *slog.Logger
	ctx    context.Context
}

// runLogger returns a logger tagged with the command and run ID of ctx.
func (e *stageEnv) runLogger(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, e.base)
}

// prepare loads config and logger, tags the context with the command name and
// runs the preflight checks for stage.
func (c *commandContext) prepare(cmd *cobra.Command, stage preflight.Stage) (*stageEnv, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	ctx := logging.WithCommand(cmd.Context(), cmd.Name())
	if err := preflight.FirstFailure(preflight.RunFor(ctx, cfg, stage)); err != nil {
		return nil, err
	}
	return &stageEnv{cfg: cfg, base: logger, logger: logging.WithContext(ctx, logger), ctx: ctx}, nil
}

// withStore holds the results lock and an open store for the duration of fn.
func (e *stageEnv) withStore(fn func(*results.Store) error) error {
	lock, err := results.AcquireLock(e.cfg.ResultsLockPath())
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	store, err := results.Open(e.cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
