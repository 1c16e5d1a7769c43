package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"dutyroster/internal/app"
	"dutyroster/internal/config"
	"dutyroster/internal/roster"
	"dutyroster/internal/storage"
	logx "dutyroster/pkg/logx"
)

type commandContext struct {
	configFlag *string
	logLevel   *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevel *string) *commandContext {
	return &commandContext{configFlag: configFlag, logLevel: logLevel}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// ensureConfig loads the config once. A missing file yields defaults.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		m := config.NewConfigManager(c.configPath())
		m.SetValidator(app.ValidateRuntime)
		c.config, c.configErr = m.LoadOrDefault()
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(w io.Writer) logx.Logger {
	level := "warn"
	if c.logLevel != nil && *c.logLevel != "" {
		level = *c.logLevel
	}
	return logx.New(w, level)
}

// withHost takes the state lock and runs fn against a live roster host.
// The state is flushed and the lock released before it returns.
func (c *commandContext) withHost(ctx context.Context, stderr io.Writer, dates roster.DateSource, fn func(ctx context.Context, h *roster.Host) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	log := c.logger(stderr)
	st, err := app.OpenState(ctx, cfg, log.With(logx.String("comp", "storage")))
	if err != nil {
		return err
	}
	defer st.Close()

	if dates == nil {
		if dates, err = app.NewDateSource(cfg, log.With(logx.String("comp", "clock"))); err != nil {
			return err
		}
	}
	h := st.Host(dates, nil, log.With(logx.String("comp", "roster")))
	_, err = app.RunHost(roster.WithActor(ctx, cliActor()), h, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx, h)
	})
	return err
}

// withStore opens the store without the lock.
func (c *commandContext) withStore(stderr io.Writer, fn func(storage.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := app.OpenStore(cfg, c.logger(stderr))
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func cliActor() string {
	if u := os.Getenv("USER"); u != "" {
		return "cli:" + u
	}
	return "cli"
}

func describeError(err error) string {
	if errors.Is(err, storage.ErrLocked) {
		return fmt.Sprintf("%v\nthe state is held by another process; use the bot commands while dutybot runs", err)
	}
	return err.Error()
}
