package main

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"igclog/internal/config"
	"igclog/internal/logging"
	"igclog/internal/pipeline"
)

type commandContext struct {
	configFlag    *string
	directoryFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag, directoryFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		directoryFlag: directoryFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolvedPath, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.directoryFlag != nil && strings.TrimSpace(*c.directoryFlag) != "" {
			if err := cfg.SetDirectory(strings.TrimSpace(*c.directoryFlag)); err != nil {
				c.configErr = err
				return
			}
		}
		c.config = cfg
		c.configPath = resolvedPath
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Writer: os.Stderr,
		})
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) newRunner() (*pipeline.Runner, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg, c.ensureLogger())
}
