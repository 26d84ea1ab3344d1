package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/himanishpuri/adrift/pkg/adrift"
	"github.com/himanishpuri/adrift/pkg/config"
	"github.com/himanishpuri/adrift/pkg/logger"
)

type globalFlags struct {
	config   string
	db       string
	logLevel string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if db := strings.TrimSpace(c.flags.db); db != "" {
			expanded, err := config.ExpandPath(db)
			if err != nil {
				c.configErr = fmt.Errorf("--db: %w", err)
				return
			}
			cfg.Paths.Database = expanded
			cfg.Dedup.Persist = true
		}
		if lvl := strings.TrimSpace(c.flags.logLevel); lvl != "" {
			cfg.Logging.Level = strings.ToLower(lvl)
		}
		if err := cfg.ApplyLogging(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// newService opens the service described by the loaded configuration.
func (c *commandContext) newService(obs adrift.Observer) (adrift.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	opts := cfg.ServiceOptions()
	opts = append(opts, adrift.WithLogger(logger.GetLogger().With("adrift")))
	if obs != nil {
		opts = append(opts, adrift.WithObserver(obs))
	}
	return adrift.NewService(opts...)
}
