package main

import (
	"strings"
	"sync"

	"fapiao/internal/api"
	"fapiao/internal/config"
	"fapiao/internal/logging"
	"fapiao/internal/taskstore"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	serviceOnce sync.Once
	service     *api.TaskService
	serviceErr  error
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
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// ensureService builds an in-process task service backed by an empty store.
// CLI runs are one-shot: import, recognize, and rename happen within a
// single invocation, so no daemon connection is required.
func (c *commandContext) ensureService() (*api.TaskService, error) {
	c.serviceOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.serviceErr = err
			return
		}
		logger, err := logging.New(logging.Options{
			Level:       "warn",
			Format:      "console",
			OutputPaths: []string{"stderr"},
		})
		if err != nil {
			c.serviceErr = err
			return
		}
		c.service = api.NewTaskService(taskstore.New(), cfg, c.configPath, logger)
	})
	return c.service, c.serviceErr
}
