package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"kisansight/api/internal/advisor"
	"kisansight/api/internal/farm"
	"kisansight/api/internal/i18n"
	"kisansight/api/internal/render"
)

type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (h *Handle) writeFailure(w http.ResponseWriter, lang i18n.Lang, panel advisor.Panel, err error) {
	tr := h.cat.For(lang)
	var fe farm.FieldErrors
	if errors.As(err, &fe) {
		msg := tr.T("errors.selectLocation")
		if panel == advisor.PanelDetect {
			msg = tr.T("errors.noImage")
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:   "validation",
			Message: msg,
			Fields:  render.LocalizeFieldErrors(tr, fe),
		})
		return
	}
	writeJSON(w, statusFor(err), errorBody{
		Error:   advisor.Kind(err),
		Message: tr.T(advisor.MessageKey(panel, err)),
	})
}

func (h *Handle) States(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "GET only"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"states":    farm.States(),
		"soilTypes": farm.SoilTypes,
	})
}

// Districts returns the autocomplete list for ?state= filtered by ?q=.
func (h *Handle) Districts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "GET only"})
		return
	}
	q := r.URL.Query()
	form := farm.NewCropForm().WithState(q.Get("state")).WithDistrictQuery(q.Get("q"))
	out := form.Suggestions()
	if out == nil {
		out = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": form.Location.State, "districts": out})
}

// Strings serves one language table as nested JSON.
func (h *Handle) Strings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "GET only"})
		return
	}
	lang, ok := i18n.Parse(r.PathValue("lang"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown language"})
		return
	}
	table, ok := h.cat.Table(lang)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown language"})
		return
	}
	writeJSON(w, http.StatusOK, table)
}

func (h *Handle) Predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST only"})
		return
	}
	lang := h.lang(r)
	form := farm.NewCropForm()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&form); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json: " + err.Error()})
		return
	}
	in, err := form.Validate()
	if err != nil {
		h.writeFailure(w, lang, advisor.PanelPredict, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.deadline(r))
	defer cancel()

	rep, err := h.predict(ctx, in, lang)
	if err != nil {
		h.writeFailure(w, lang, advisor.PanelPredict, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Detect takes {"image": "<data URI or base64>", "fileName": "..."}.
func (h *Handle) Detect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST only"})
		return
	}
	lang := h.lang(r)
	var form farm.ImageForm
	// base64 grows the payload by a third
	limit := h.opts.MaxUploadBytes*4/3 + 4<<10
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(&form); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "input", Message: h.cat.T(lang, "errors.invalidImage")})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json: " + err.Error()})
		return
	}
	in, err := form.Validate()
	if err != nil {
		h.writeFailure(w, lang, advisor.PanelDetect, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.deadline(r))
	defer cancel()

	rec, err := h.detect(ctx, in, lang)
	if err != nil {
		h.writeFailure(w, lang, advisor.PanelDetect, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handle) Reports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "GET only"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	preds, err := h.repo.RecentPredictions(r.Context(), limit)
	if err != nil {
		h.log.Error("history: recent predictions", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}
	diags, err := h.repo.RecentDiagnoses(r.Context(), limit)
	if err != nil {
		h.log.Error("history: recent diagnoses", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}
	if preds == nil {
		preds = []farm.FarmReport{}
	}
	if diags == nil {
		diags = []farm.DiagnosisRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"predictions": preds, "diagnoses": diags})
}
