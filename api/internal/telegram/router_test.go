package telegram

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"kisansight/api/internal/advisor"
	"kisansight/api/internal/farm"
	"kisansight/api/internal/i18n"
	"kisansight/api/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeBot struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
	updates  [][]tgbotapi.Update
	errs     []error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		b.sent = append(b.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) GetFileDirectURL(fileID string) (string, error) {
	return "https://files.example/" + fileID, nil
}

func (b *fakeBot) GetUpdates(tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.errs) > 0 {
		err := b.errs[0]
		b.errs = b.errs[1:]
		return nil, err
	}
	if len(b.updates) > 0 {
		u := b.updates[0]
		b.updates = b.updates[1:]
		return u, nil
	}
	return nil, nil
}

func (b *fakeBot) texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.sent))
	for _, m := range b.sent {
		out = append(out, m.Text)
	}
	return out
}

func (b *fakeBot) last() string {
	t := b.texts()
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

type fakeAdvisor struct {
	mu        sync.Mutex
	gate      chan struct{}
	predicted []farm.ValidCropInput
	detected  []farm.ValidImageInput
	err       error
}

func (f *fakeAdvisor) wait() {
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakeAdvisor) PredictCrops(_ context.Context, in farm.ValidCropInput, _ i18n.Lang) (farm.CropPredictionResult, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.predicted = append(f.predicted, in)
	return farm.CropPredictionResult{
		BestCrops: []string{"Sugarcane"}, EstimatedYield: "70 tons per hectare",
		SuitabilityScore: farm.SuitabilityHigh, RiskFactors: []string{"Waterlogging"}, ImprovementTips: []string{"Trash mulching"},
	}, f.err
}

func (f *fakeAdvisor) DetectDisease(_ context.Context, in farm.ValidImageInput, _ i18n.Lang) (farm.DiseaseDetectionResult, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detected = append(f.detected, in)
	return farm.DiseaseDetectionResult{
		DiseaseName: "Red Rot", Severity: "Moderate", Treatment: []string{"Carbendazim sett treatment"},
		PreventiveSteps: []string{"Healthy setts"}, Advice: "Rogue out clumps.",
	}, f.err
}

func (f *fakeAdvisor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.predicted) + len(f.detected)
}

type fakeDoer struct{ body []byte }

func (d fakeDoer) Do(*http.Request) (*http.Response, error) {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(d.body))}, nil
}

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func newRouter(adv *fakeAdvisor) (*Router, *fakeBot, *store.Memory) {
	bot := &fakeBot{}
	repo := store.NewMemory(10)
	r := NewRouter(bot, adv, repo, nil)
	r.HTTPClient = fakeDoer{body: jpegBytes}
	return r, bot, repo
}

func command(chatID int64, text string) tgbotapi.Update {
	cmd := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		From:     &tgbotapi.User{ID: chatID, LanguageCode: "en"},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func photo(chatID int64) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:  &tgbotapi.Chat{ID: chatID},
		Photo: []tgbotapi.PhotoSize{{FileID: "small", FileSize: 100}, {FileID: "large", FileSize: 900}},
	}}
}

const puneCmd = `/predict state=maharashtra district=pune soil=black ph=6.5 n=40 p=20 k=20 rain=800 temp=28`

func TestPredictCommand(t *testing.T) {
	adv := &fakeAdvisor{}
	r, bot, repo := newRouter(adv)

	r.HandleUpdate(context.Background(), command(1, puneCmd))
	r.Wait()

	require.Len(t, adv.predicted, 1)
	in := adv.predicted[0]
	assert.Equal(t, farm.LocationData{State: "Maharashtra", District: "Pune"}, in.Location)
	assert.Equal(t, farm.SoilData{Type: farm.SoilBlack, PH: "6.5", Nitrogen: "40", Phosphorus: "20", Potassium: "20"}, in.Soil)
	assert.Equal(t, farm.ClimateData{Rainfall: "800", Temperature: "28"}, in.Climate)

	assert.Contains(t, bot.last(), "Sugarcane")
	assert.Contains(t, bot.last(), "Pune, Maharashtra")
	saved, _ := repo.RecentPredictions(context.Background(), 1)
	assert.Len(t, saved, 1)

	// the chat can ask again
	r.HandleUpdate(context.Background(), command(1, puneCmd))
	r.Wait()
	assert.Len(t, adv.predicted, 2)
}

func TestPredictCommand_ValidationReplyNoCall(t *testing.T) {
	adv := &fakeAdvisor{}
	r, bot, _ := newRouter(adv)

	r.HandleUpdate(context.Background(), command(1, `/predict state="Tamil Nadu" district=Pune`))
	r.Wait()
	assert.Zero(t, adv.calls())
	assert.Contains(t, bot.last(), "This district does not belong to the selected state.")

	r.HandleUpdate(context.Background(), command(1, `/predict state=Tamil Nadu`))
	r.Wait()
	assert.Contains(t, bot.last(), `expected key=value, got "Nadu"`)
	assert.Zero(t, adv.calls())
}

func TestPredictCommand_BusyWhileSubmitting(t *testing.T) {
	adv := &fakeAdvisor{gate: make(chan struct{})}
	r, bot, _ := newRouter(adv)

	r.HandleUpdate(context.Background(), command(7, puneCmd))
	r.HandleUpdate(context.Background(), command(7, puneCmd))
	assert.Contains(t, bot.last(), "still being processed")

	// other chats are independent
	r.HandleUpdate(context.Background(), command(8, puneCmd))

	close(adv.gate)
	r.Wait()
	assert.Len(t, adv.predicted, 2)
}

func TestPredictCommand_Failure(t *testing.T) {
	adv := &fakeAdvisor{err: &advisor.ConfigurationError{Reason: "credential rejected", Err: errors.New("403")}}
	r, bot, repo := newRouter(adv)

	r.HandleUpdate(context.Background(), command(1, puneCmd))
	r.Wait()
	assert.Contains(t, bot.last(), "check the API key")
	saved, _ := repo.RecentPredictions(context.Background(), 1)
	assert.Empty(t, saved)

	st := r.state(1, nil)
	assert.Equal(t, farm.PhaseIdle, st.crop.Phase())
	assert.Equal(t, "Pune", st.crop.Form().Location.District, "input kept after failure")
}

func TestPhoto(t *testing.T) {
	adv := &fakeAdvisor{}
	r, bot, repo := newRouter(adv)

	r.HandleUpdate(context.Background(), photo(3))
	r.Wait()

	require.Len(t, adv.detected, 1)
	assert.True(t, strings.HasPrefix(adv.detected[0].Image, "data:image/jpeg;base64,"))
	assert.Contains(t, bot.last(), "Red Rot")
	assert.Contains(t, bot.last(), "Rogue out clumps.")

	diags, _ := repo.RecentDiagnoses(context.Background(), 1)
	require.Len(t, diags, 1)
	assert.Equal(t, "image/jpeg", diags[0].MIMEType)
}

func TestPhoto_TooLargeNoCall(t *testing.T) {
	adv := &fakeAdvisor{}
	r, bot, _ := newRouter(adv)
	r.MaxUploadBytes = 500

	r.HandleUpdate(context.Background(), photo(3))
	r.Wait()
	assert.Zero(t, adv.calls())
	assert.Contains(t, bot.last(), "Please upload an image file")
}

func TestLangAndDistricts(t *testing.T) {
	r, bot, _ := newRouter(&fakeAdvisor{})
	ctx := context.Background()

	r.HandleUpdate(ctx, command(5, "/lang hi"))
	assert.Equal(t, i18n.Default().T(i18n.Hindi, "bot.langSet"), bot.last())
	assert.Equal(t, i18n.Hindi, r.state(5, nil).Lang())

	r.HandleUpdate(ctx, command(5, "/lang"))
	bot.mu.Lock()
	kb, ok := bot.sent[len(bot.sent)-1].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	bot.mu.Unlock()
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard[0], 3)

	r.HandleUpdate(ctx, tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID: "cb", Data: "lang:bn", Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 5}},
	}})
	assert.Equal(t, i18n.Bengali, r.state(5, nil).Lang())

	r.HandleUpdate(ctx, command(6, "/districts west bengal ko"))
	assert.Equal(t, "West Bengal:\nKolkata", bot.last())

	r.HandleUpdate(ctx, command(6, "/districts Uttar_Pradesh zz"))
	assert.Equal(t, "No matching districts.", bot.last())

	r.HandleUpdate(ctx, command(6, "/districts Atlantis"))
	assert.Contains(t, bot.last(), "Unknown state.")

	r.HandleUpdate(ctx, command(6, "/frobnicate"))
	assert.Equal(t, "Unknown command. Send /help.", bot.last())
}

func TestParsePredictArgs(t *testing.T) {
	form, err := ParsePredictArgs(`state=“tamil nadu” district='COIMBATORE' soil=laterite temp=31`)
	require.NoError(t, err)
	assert.Equal(t, "Tamil Nadu", form.Location.State)
	assert.Equal(t, "Coimbatore", form.Location.District)
	assert.Equal(t, farm.SoilLaterite, form.Soil.Type)
	assert.Equal(t, "31", form.Climate.Temperature)

	form, err = ParsePredictArgs(`state=Uttar_Pradesh district=Ambedkar_Nagar`)
	require.NoError(t, err)
	assert.Equal(t, "Ambedkar Nagar", form.Location.District)
	_, err = form.Validate()
	assert.NoError(t, err)

	form, err = ParsePredictArgs("")
	require.NoError(t, err)
	assert.Equal(t, farm.NewCropForm(), form)

	_, err = ParsePredictArgs(`state="Bihar`)
	assert.Error(t, err)
	_, err = ParsePredictArgs(`Bihar`)
	assert.Error(t, err)
	_, err = ParsePredictArgs(`colour=red`)
	assert.EqualError(t, err, `unknown key "colour"`)
}

func TestRetryDelayFromError(t *testing.T) {
	assert.Equal(t, time.Duration(0), retryDelayFromError(nil))
	assert.Equal(t, 7*time.Second, retryDelayFromError(errors.New("Too Many Requests: retry after 7")))
	assert.Equal(t, 3*time.Second, retryDelayFromError(errors.New("too many requests")))
	assert.Equal(t, 12*time.Second, retryDelayFromError(&tgbotapi.Error{Code: 429, ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 12}}))
	assert.Equal(t, time.Second, retryDelayFromError(errors.New("bad gateway")))
	assert.Equal(t, 15*time.Second, clampDelay(time.Minute))
	assert.Equal(t, time.Second, clampDelay(0))
}

func TestRunPolling(t *testing.T) {
	bot := &fakeBot{
		errs:    []error{errors.New("bad gateway")},
		updates: [][]tgbotapi.Update{{{UpdateID: 10}, {UpdateID: 11}}},
	}
	ctx, cancel := context.WithCancel(context.Background())
	var got []int
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunPolling(ctx, bot, zapNop(), func(u tgbotapi.Update) {
			got = append(got, u.UpdateID)
			if u.UpdateID == 11 {
				cancel()
			}
		})
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		cancel()
		<-done
		t.Fatal("polling did not stop")
	}
	assert.Equal(t, []int{10, 11}, got)
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "cbf29ce484222325", shortHash(""))
	assert.Equal(t, "af63dc4c8601ec8c", shortHash("a"))
	assert.NotEqual(t, shortHash("123:ABC"), shortHash("123:ABD"))
}

func TestWebhook(t *testing.T) {
	bot := &fakeBot{}
	path, err := SetWebhook(bot, "https://kisan.example/", "123:ABC")
	require.NoError(t, err)
	assert.Equal(t, WebhookPath("123:ABC"), path)
	assert.Len(t, strings.TrimPrefix(path, "/webhook/"), 16)
	require.Len(t, bot.requests, 1)
	wh, ok := bot.requests[0].(tgbotapi.WebhookConfig)
	require.True(t, ok)
	assert.Equal(t, "https://kisan.example"+path, wh.URL.String())

	var got []int
	h := WebhookHandler(zapNop(), func(u tgbotapi.Update) { got = append(got, u.UpdateID) })
	rec := newRecorder()
	h.ServeHTTP(rec, newRequest(http.MethodPost, path, `{"update_id": 42}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{42}, got)

	rec = newRecorder()
	h.ServeHTTP(rec, newRequest(http.MethodPost, path, `{`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
