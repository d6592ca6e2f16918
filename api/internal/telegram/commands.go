package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"kisansight/api/internal/advisor"
	"kisansight/api/internal/farm"
	"kisansight/api/internal/i18n"
	"kisansight/api/internal/render"
)

func (r *Router) handleCommand(ctx context.Context, msg *tgbotapi.Message, st *chatState) {
	cid := msg.Chat.ID
	tr := r.tr(st)
	args := msg.CommandArguments()

	switch msg.Command() {
	case "start":
		r.send(cid, tr.T("bot.start"))
	case "help":
		r.send(cid, tr.T("bot.help"))
	case "lang":
		r.handleLang(cid, st, args)
	case "districts":
		r.handleDistricts(cid, st, args)
	case "predict":
		r.handlePredict(ctx, cid, st, args)
	default:
		r.send(cid, tr.T("bot.unknownCommand"))
	}
}

func (r *Router) handleLang(chatID int64, st *chatState, args string) {
	if l, ok := i18n.Parse(args); ok {
		st.SetLang(l)
		r.send(chatID, r.cat.T(l, "bot.langSet"))
		return
	}
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(i18n.Supported))
	for _, l := range i18n.Supported {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(r.cat.T(l, "name"), "lang:"+string(l)))
	}
	r.sendWithKeyboard(chatID, "/lang en|hi|bn", tgbotapi.NewInlineKeyboardMarkup(row))
}

func (r *Router) handleCallback(cq tgbotapi.CallbackQuery) {
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cq.ID, ""))
	if cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	code, ok := strings.CutPrefix(cq.Data, "lang:")
	if !ok {
		return
	}
	l, ok := i18n.Parse(code)
	if !ok {
		return
	}
	st := r.state(cq.Message.Chat.ID, cq.From)
	st.SetLang(l)
	r.send(cq.Message.Chat.ID, r.cat.T(l, "bot.langSet"))
}

// handleDistricts answers "/districts <state> [query]". The state may span
// several words; the longest known prefix wins.
func (r *Router) handleDistricts(chatID int64, st *chatState, args string) {
	tr := r.tr(st)
	words := strings.Fields(strings.ReplaceAll(args, "_", " "))
	state, query := "", ""
	for i := len(words); i > 0; i-- {
		if s, ok := farm.CanonicalState(strings.Join(words[:i], " ")); ok {
			state, query = s, strings.Join(words[i:], " ")
			break
		}
	}
	if state == "" {
		r.send(chatID, tr.T("validation.unknown_state")+"\n"+strings.Join(farm.States(), ", "))
		return
	}
	form := farm.NewCropForm().WithState(state).WithDistrictQuery(query)
	list := form.Suggestions()
	if len(list) == 0 {
		r.send(chatID, tr.T("bot.noDistricts"))
		return
	}
	r.send(chatID, fmt.Sprintf("%s:\n%s", state, strings.Join(list, ", ")))
}

func (r *Router) handlePredict(ctx context.Context, chatID int64, st *chatState, args string) {
	tr := r.tr(st)
	form, err := ParsePredictArgs(args)
	if err != nil {
		r.send(chatID, err.Error()+"\n\n"+tr.T("bot.help"))
		return
	}
	if !st.crop.Edit(form) {
		r.send(chatID, tr.T("errors.busy"))
		return
	}
	in, err := form.Validate()
	if err != nil {
		st.crop.Reject(err)
		var fe farm.FieldErrors
		errors.As(err, &fe)
		r.send(chatID, render.FieldErrorsText(tr, fe))
		return
	}
	if !st.crop.Begin() {
		r.send(chatID, tr.T("errors.busy"))
		return
	}
	r.send(chatID, tr.T("bot.predictAccepted"))

	lang := st.Lang()
	r.background(ctx, func(ctx context.Context) {
		res, err := r.Advisor.PredictCrops(ctx, in, lang)
		if err != nil {
			st.crop.Fail(err)
			r.send(chatID, tr.T(advisor.MessageKey(advisor.PanelPredict, err)))
			return
		}
		rep := farm.FarmReport{Language: string(lang), Location: in.Location, Soil: in.Soil, Climate: in.Climate, Prediction: res}
		if saved, err := r.Repo.SavePrediction(context.WithoutCancel(ctx), rep); err != nil {
			r.Log.Warn("history: save prediction", zap.Error(err))
		} else {
			rep = saved
		}
		st.crop.Succeed(rep)
		r.send(chatID, render.CropReportText(tr, in.Location, res))
		// the report is a message; the chat is ready for the next request
		st.crop.Back()
	})
}

// ParsePredictArgs reads "key=value" pairs into a crop form. Values with
// spaces are quoted or use underscores. State, district and soil type are
// matched case-insensitively against the known names.
func ParsePredictArgs(args string) (farm.CropForm, error) {
	pairs, err := splitPairs(args)
	if err != nil {
		return farm.CropForm{}, err
	}
	form := farm.NewCropForm()
	soil := form.Soil
	var climate farm.ClimateData
	var district string
	for _, kv := range pairs {
		k, v := kv[0], kv[1]
		switch k {
		case "state":
			if s, ok := farm.CanonicalState(v); ok {
				v = s
			}
			form = form.WithState(v)
		case "district":
			district = v
		case "soil", "type":
			soil.Type = farm.SoilType(v)
			for _, t := range farm.SoilTypes {
				if strings.EqualFold(string(t), v) {
					soil.Type = t
				}
			}
		case "ph":
			soil.PH = v
		case "n", "nitrogen":
			soil.Nitrogen = v
		case "p", "phosphorus":
			soil.Phosphorus = v
		case "k", "potassium":
			soil.Potassium = v
		case "rain", "rainfall":
			climate.Rainfall = v
		case "temp", "temperature":
			climate.Temperature = v
		default:
			return farm.CropForm{}, fmt.Errorf("unknown key %q", k)
		}
	}
	if district != "" {
		if d, ok := farm.CanonicalDistrict(form.Location.State, district); ok {
			district = d
		}
		form = form.WithDistrict(district)
	}
	return form.WithSoil(soil).WithClimate(climate), nil
}

func splitPairs(s string) ([][2]string, error) {
	var (
		out   [][2]string
		tok   strings.Builder
		quote rune
		toks  []string
	)
	flush := func() {
		if tok.Len() > 0 {
			toks = append(toks, tok.String())
			tok.Reset()
		}
	}
	for _, c := range s {
		switch {
		case quote != 0 && c == quote:
			quote = 0
		case quote != 0:
			tok.WriteRune(c)
		case c == '"' || c == '\'' || c == '“' || c == '”':
			if c == '“' {
				c = '”'
			}
			quote = c
		case c == ' ' || c == '\t' || c == '\n':
			flush()
		default:
			tok.WriteRune(c)
		}
	}
	if quote != 0 {
		return nil, errors.New("unterminated quote")
	}
	flush()

	for _, t := range toks {
		k, v, ok := strings.Cut(t, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", t)
		}
		v = strings.TrimSpace(strings.ReplaceAll(v, "_", " "))
		out = append(out, [2]string{strings.ToLower(k), v})
	}
	return out, nil
}
