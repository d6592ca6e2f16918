package telegram

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"kisansight/api/internal/farm"
	"kisansight/api/internal/i18n"
	"kisansight/api/internal/store"
	"kisansight/api/internal/util"
)

// BotAPI is the part of *tgbotapi.BotAPI the router and the update loops use.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// Advisor runs the two panels' model calls.
type Advisor interface {
	PredictCrops(ctx context.Context, in farm.ValidCropInput, lang i18n.Lang) (farm.CropPredictionResult, error)
	DetectDisease(ctx context.Context, in farm.ValidImageInput, lang i18n.Lang) (farm.DiseaseDetectionResult, error)
}

// Doer downloads photo files; *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

const maxMessageRunes = 4000

type Router struct {
	Bot     BotAPI
	Advisor Advisor
	Repo    store.Repository
	Log     *zap.Logger

	Timeout        time.Duration
	MaxUploadBytes int64
	DefaultLang    i18n.Lang
	HTTPClient     Doer

	cat   *i18n.Catalog
	chats sync.Map // chatID -> *chatState
	wg    sync.WaitGroup
}

type chatState struct {
	mu      sync.Mutex
	lang    i18n.Lang
	crop    *farm.Panel[farm.CropForm, farm.FarmReport]
	disease *farm.Panel[farm.ImageForm, farm.DiagnosisRecord]
}

func (s *chatState) Lang() i18n.Lang {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lang
}

func (s *chatState) SetLang(l i18n.Lang) {
	s.mu.Lock()
	s.lang = l
	s.mu.Unlock()
}

func NewRouter(bot BotAPI, adv Advisor, repo store.Repository, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	if repo == nil {
		repo = store.NewMemory(0)
	}
	return &Router{
		Bot:            bot,
		Advisor:        adv,
		Repo:           repo,
		Log:            log,
		Timeout:        180 * time.Second,
		MaxUploadBytes: 10 << 20,
		DefaultLang:    i18n.English,
		HTTPClient:     &http.Client{Timeout: 60 * time.Second},
		cat:            i18n.Default(),
	}
}

// Wait blocks until every model call started by HandleUpdate has replied.
func (r *Router) Wait() { r.wg.Wait() }

func (r *Router) state(chatID int64, from *tgbotapi.User) *chatState {
	if v, ok := r.chats.Load(chatID); ok {
		return v.(*chatState)
	}
	lang := r.DefaultLang
	if from != nil {
		if l, ok := i18n.Parse(from.LanguageCode); ok {
			lang = l
		}
	}
	st := &chatState{
		lang:    lang,
		crop:    farm.NewPanel[farm.CropForm, farm.FarmReport](farm.NewCropForm()),
		disease: farm.NewPanel[farm.ImageForm, farm.DiagnosisRecord](farm.ImageForm{}),
	}
	v, _ := r.chats.LoadOrStore(chatID, st)
	return v.(*chatState)
}

// HandleUpdate dispatches one update. Model calls run in the background so a
// slow reply does not hold up other chats; ctx bounds them.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	st := r.state(msg.Chat.ID, msg.From)

	switch {
	case msg.IsCommand():
		r.handleCommand(ctx, msg, st)
	case len(msg.Photo) > 0:
		r.acceptPhoto(ctx, msg, st)
	case msg.Document != nil && util.IsImageMIME(msg.Document.MimeType):
		r.acceptDocument(ctx, msg, st)
	case strings.TrimSpace(msg.Text) != "":
		r.send(msg.Chat.ID, r.tr(st).T("bot.unknownCommand"))
	}
}

func (r *Router) tr(st *chatState) i18n.Translator { return r.cat.For(st.Lang()) }

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, util.Truncate(text, maxMessageRunes))
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.Warn("telegram send", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (r *Router) sendWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.Warn("telegram send", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (r *Router) background(ctx context.Context, fn func(ctx context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		cctx, cancel := context.WithTimeout(ctx, r.Timeout)
		defer cancel()
		fn(cctx)
	}()
}
