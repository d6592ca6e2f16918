package main

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"kisansight/api/internal/advisor"
	"kisansight/api/internal/advisor/gemini"
	"kisansight/api/internal/config"
	"kisansight/api/internal/i18n"
	"kisansight/api/internal/store"
)

// app is everything the commands share, built once from the configuration.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	advisor *advisor.Advisor
	repo    store.Repository
	lang    i18n.Lang

	closers []func() error
}

func newApp(ctx context.Context, c *config.Config, log *zap.Logger, withHistory bool) (*app, error) {
	a := &app{cfg: c, log: log, lang: i18n.English}
	if l, ok := i18n.Parse(c.DefaultLang); ok {
		a.lang = l
	}

	prompts, err := advisor.LoadPrompts(c.PromptDir)
	if err != nil {
		return nil, err
	}

	var model advisor.Model
	eng, err := gemini.New(ctx, c.GeminiAPIKey, c.GeminiModel, c.GeminiEndpoint)
	if err != nil {
		var ce *advisor.ConfigurationError
		if !errors.As(err, &ce) {
			return nil, err
		}
		// keep serving; every request reports the configuration problem
		log.Error("gemini unavailable", zap.Error(err))
		model = advisor.Unavailable{Err: err}
	} else {
		model = eng
		a.closers = append(a.closers, eng.Close)
	}
	a.advisor = advisor.New(model, prompts, log)
	log.Info("advisor ready", zap.String("model", a.advisor.ModelName()))

	switch {
	case withHistory && c.DatabaseURL != "":
		repo, err := store.Open(ctx, c.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		log.Info("db connected", zap.String("dsn", config.SafeDSNSummary(c.DatabaseURL)))
		a.repo = repo
	default:
		a.repo = store.NewMemory(store.MaxLimit)
	}
	a.closers = append(a.closers, a.repo.Close)
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close", zap.Error(err))
		}
	}
	a.closers = nil
}
