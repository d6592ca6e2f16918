package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.RetryAfter > 0 {
		return time.Duration(tgErr.RetryAfter) * time.Second
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

func clampDelay(d time.Duration) time.Duration {
	const (
		baseDelay = 1 * time.Second
		maxDelay  = 15 * time.Second
	)
	if d < baseDelay {
		return baseDelay
	}
	if d > maxDelay {
		return maxDelay
	}
	return d
}

// RunPolling long-polls getUpdates until ctx is done. Errors back off and
// never stop the loop.
func RunPolling(ctx context.Context, bot BotAPI, log *zap.Logger, handle func(tgbotapi.Update)) {
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Warn("polling: delete webhook", zap.Error(err))
	}
	offset := 0
	for {
		if ctx.Err() != nil {
			log.Info("polling: context cancelled")
			return
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := clampDelay(retryDelayFromError(err))
			log.Warn("polling error", zap.Error(err), zap.Duration("retry_in", d))
			if !sleep(ctx, d) {
				return
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 && !sleep(ctx, 200*time.Millisecond) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// WebhookPath is the secret path updates are posted to, derived from the token.
func WebhookPath(token string) string { return "/webhook/" + shortHash(token) }

// SetWebhook registers baseURL+WebhookPath(token) with Telegram, dropping updates queued meanwhile.
func SetWebhook(bot BotAPI, baseURL, token string) (string, error) {
	path := WebhookPath(token)
	wh, err := tgbotapi.NewWebhook(strings.TrimRight(baseURL, "/") + path)
	if err != nil {
		return "", err
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return "", err
	}
	return path, nil
}

// WebhookHandler decodes posted updates and hands them to handle.
func WebhookHandler(log *zap.Logger, handle func(tgbotapi.Update)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		var upd tgbotapi.Update
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&upd); err != nil {
			log.Warn("webhook: bad update", zap.Error(err))
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		handle(upd)
		w.WriteHeader(http.StatusOK)
	})
}

func shortHash(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}
