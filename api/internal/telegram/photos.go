package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"kisansight/api/internal/advisor"
	"kisansight/api/internal/farm"
	"kisansight/api/internal/render"
	"kisansight/api/internal/util"
)

var errTooLarge = errors.New("file too large")

func (r *Router) acceptPhoto(ctx context.Context, msg *tgbotapi.Message, st *chatState) {
	// sizes are ordered small to large
	ph := msg.Photo[len(msg.Photo)-1]
	r.runDetect(ctx, msg.Chat.ID, st, ph.FileID, int64(ph.FileSize), "photo.jpg")
}

func (r *Router) acceptDocument(ctx context.Context, msg *tgbotapi.Message, st *chatState) {
	r.runDetect(ctx, msg.Chat.ID, st, msg.Document.FileID, int64(msg.Document.FileSize), msg.Document.FileName)
}

func (r *Router) runDetect(ctx context.Context, chatID int64, st *chatState, fileID string, size int64, name string) {
	tr := r.tr(st)
	if size > r.MaxUploadBytes {
		r.send(chatID, tr.T("errors.invalidImage"))
		return
	}
	if !st.disease.Begin() {
		r.send(chatID, tr.T("errors.busy"))
		return
	}
	r.send(chatID, tr.T("bot.photoAccepted"))

	lang := st.Lang()
	r.background(ctx, func(ctx context.Context) {
		data, err := r.download(ctx, fileID)
		if err != nil {
			r.Log.Warn("telegram download", zap.Int64("chat", chatID), zap.Error(err))
			st.disease.Fail(&advisor.InputError{Field: "image", Err: err})
			r.send(chatID, tr.T("errors.invalidImage"))
			return
		}
		mime := util.SniffMIME(data)
		form := farm.ImageForm{}.WithImage(util.MakeDataURL(mime, data), name)
		in, err := form.Validate()
		if err != nil {
			st.disease.Fail(err)
			r.send(chatID, tr.T("errors.noImage"))
			return
		}
		res, err := r.Advisor.DetectDisease(ctx, in, lang)
		if err != nil {
			st.disease.Fail(err)
			r.send(chatID, tr.T(advisor.MessageKey(advisor.PanelDetect, err)))
			return
		}
		rec := farm.DiagnosisRecord{Language: string(lang), ImageHash: util.SHA256Hex(data), MIMEType: mime, Diagnosis: res}
		if saved, err := r.Repo.SaveDiagnosis(context.WithoutCancel(ctx), rec); err != nil {
			r.Log.Warn("history: save diagnosis", zap.Error(err))
		} else {
			rec = saved
		}
		st.disease.Succeed(rec)
		r.send(chatID, render.DiagnosisText(tr, res))
		st.disease.Back()
	})
}

func (r *Router) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, r.MaxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > r.MaxUploadBytes {
		return nil, errTooLarge
	}
	return data, nil
}
