package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"imager/internal/config"
	"imager/internal/logging"
)

type commandContext struct {
	configFlag *string
	levelFlag  *string
	formatFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, levelFlag, formatFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		levelFlag:  levelFlag,
		formatFlag: formatFlag,
	}
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
		if c.levelFlag != nil && strings.TrimSpace(*c.levelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.levelFlag))
		}
		if c.formatFlag != nil && strings.TrimSpace(*c.formatFlag) != "" {
			cfg.Logging.Format = strings.ToLower(strings.TrimSpace(*c.formatFlag))
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger(cmd *cobra.Command) (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Writer: cmd.ErrOrStderr(),
		})
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
