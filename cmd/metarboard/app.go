package main

import (
	"fmt"
	"os"
	"time"

	"github.com/realmlist/metarboard/internal/config"
	"github.com/realmlist/metarboard/internal/display"
	"github.com/realmlist/metarboard/internal/httputil"
	"github.com/realmlist/metarboard/internal/ingest"
	"github.com/realmlist/metarboard/internal/logger"
	"github.com/realmlist/metarboard/internal/store"
)

// app holds what every store-backed command needs.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	loc   *time.Location
	store *store.Store
}

// loadConfig reads dotenv files and the config file, then applies
// environment and flag overrides.
func (g *Globals) loadConfig() (*config.Config, bool, error) {
	if err := config.LoadDotEnv(g.EnvFile...); err != nil {
		return nil, false, fmt.Errorf("load env: %w", err)
	}
	cfg, created, err := config.LoadOrCreate(g.Config)
	if err != nil {
		return nil, false, fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv()
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, fmt.Errorf("invalid config %s: %w", cfg.Path, err)
	}
	return cfg, created, nil
}

func (g *Globals) setup() (*app, error) {
	cfg, created, err := g.loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, err
	}
	if created {
		log.Info("wrote default config", logger.String("path", cfg.Path))
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Storage.DBPath, nil, log)
	if err != nil {
		return nil, err
	}
	if err := st.SeedSettings(cfg.Settings()); err != nil {
		st.Close()
		return nil, fmt.Errorf("seed settings: %w", err)
	}

	return &app{cfg: cfg, log: log, loc: loc, store: st}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("close store", logger.Error(err))
	}
	_ = a.log.Sync()
}

func (a *app) fetcher() *ingest.AviationWeather {
	p := a.cfg.Provider
	return ingest.NewAviationWeather(p.BaseURL, p.Format, httputil.NewClient(p.Timeout), p.MaxElapsed)
}

// sinks builds the configured display sinks. forceStdout adds the stdout
// sink even when the config disables it.
func (a *app) sinks(forceStdout, skipWebhook bool) *display.Multi {
	m := display.NewMulti()
	s := a.cfg.Sinks
	if s.Stdout || forceStdout {
		m.Add("stdout", display.NewWriterSink(os.Stdout))
	}
	if s.WebhookURL != "" && !skipWebhook {
		client := httputil.NewClient(a.cfg.Provider.Timeout)
		hook := display.NewWebhookSink(s.WebhookURL, s.WebhookHeader, s.WebhookToken, client, a.cfg.Provider.MaxElapsed)
		m.Add("webhook", display.NewDedup(hook))
	}
	return m
}

func (a *app) scheduler(sink display.Sink) *ingest.Scheduler {
	return ingest.NewScheduler(a.store, a.fetcher(), sink, a.log, ingest.Options{
		RetryInterval: a.cfg.Provider.RetryInterval,
		RawRetention:  a.cfg.Storage.RawRetention,
		Location:      a.loc,
	})
}
