package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kisansight/api/internal/handle"
	"kisansight/api/internal/render"
	"kisansight/api/internal/telegram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web panels and JSON API, plus the Telegram bot when TELEGRAM_BOT_TOKEN is set",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context(), true)
	},
}

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run only the Telegram bot (webhook when WEBHOOK_URL is set, long polling otherwise)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(cfg.TelegramBotToken) == "" {
			return errors.New("TELEGRAM_BOT_TOKEN is empty")
		}
		return runServer(cmd.Context(), false)
	},
}

// runServer serves HTTP and, when a token is configured, the bot, until ctx is cancelled.
func runServer(ctx context.Context, web bool) error {
	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	pages, err := render.NewPages(nil)
	if err != nil {
		return err
	}
	h := handle.New(a.advisor, a.repo, pages, logger, handle.Options{
		RequestTimeout: cfg.RequestTimeout,
		MaxUploadBytes: cfg.MaxUploadBytes,
		DefaultLang:    a.lang,
	})

	var mux *http.ServeMux
	if web {
		mux = h.Routes()
	} else {
		mux = http.NewServeMux()
		mux.HandleFunc("/healthz", h.Healthz)
	}

	g, gctx := errgroup.WithContext(ctx)

	var router *telegram.Router
	if token := strings.TrimSpace(cfg.TelegramBotToken); token != "" {
		bot, err := tgbotapi.NewBotAPI(token)
		if err != nil {
			return err
		}
		bot.Debug = false
		router = telegram.NewRouter(bot, a.advisor, a.repo, logger)
		router.Timeout = cfg.RequestTimeout
		router.MaxUploadBytes = cfg.MaxUploadBytes
		router.DefaultLang = a.lang
		handleUpdate := func(upd tgbotapi.Update) { router.HandleUpdate(gctx, upd) }

		if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
			path, err := telegram.SetWebhook(bot, webhookURL, token)
			if err != nil {
				return err
			}
			mux.Handle(path, telegram.WebhookHandler(logger, handleUpdate))
			logger.Info("telegram webhook registered", zap.String("bot", bot.Self.UserName))
		} else {
			g.Go(func() error {
				logger.Info("telegram polling", zap.String("bot", bot.Self.UserName))
				telegram.RunPolling(gctx, bot, logger, handleUpdate)
				return nil
			})
		}
	}

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           handle.WithAccessLog(logger, mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.Bool("web", web))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if router != nil {
			router.Wait()
		}
		return err
	})
	return g.Wait()
}
