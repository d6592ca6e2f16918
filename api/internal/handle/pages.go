package handle

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"kisansight/api/internal/advisor"
	"kisansight/api/internal/farm"
	"kisansight/api/internal/i18n"
	"kisansight/api/internal/render"
	"kisansight/api/internal/util"
)

type (
	cropPanel    = farm.Panel[farm.CropForm, farm.FarmReport]
	diseasePanel = farm.Panel[farm.ImageForm, farm.DiagnosisRecord]
)

// Index serves the crop panel, or the disease panel for ?tab=disease. The crop
// form may be prefilled with ?state= and ?q= so the district list narrows
// without scripting.
func (h *Handle) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	lang := h.lang(r)
	q := r.URL.Query()
	if q.Get("tab") == render.TabDisease {
		h.renderDisease(w, http.StatusOK, lang, farm.NewPanel[farm.ImageForm, farm.DiagnosisRecord](farm.ImageForm{}))
		return
	}
	form := farm.NewCropForm()
	if st := q.Get("state"); st != "" {
		if canon, ok := farm.CanonicalState(st); ok {
			st = canon
		}
		form = form.WithState(st).WithDistrictQuery(q.Get("q"))
	}
	h.renderCrop(w, http.StatusOK, lang, farm.NewPanel[farm.CropForm, farm.FarmReport](form), nil)
}

// PredictPage handles the crop form post and answers with the report or the form again.
func (h *Handle) PredictPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	lang := h.lang(r)
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form: "+err.Error(), http.StatusBadRequest)
		return
	}
	panel := farm.NewPanel[farm.CropForm, farm.FarmReport](cropFormFromValues(r.PostForm))

	in, err := panel.Form().Validate()
	if err != nil {
		var fe farm.FieldErrors
		errors.As(err, &fe)
		panel.Reject(err)
		h.renderCrop(w, http.StatusUnprocessableEntity, lang, panel, fe)
		return
	}
	if !panel.Begin() {
		http.Error(w, h.cat.T(lang, "errors.busy"), http.StatusConflict)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.deadline(r))
	defer cancel()

	rep, err := h.predict(ctx, in, lang)
	if err != nil {
		panel.Fail(err)
		h.renderCrop(w, statusFor(err), lang, panel, nil)
		return
	}
	panel.Succeed(rep)
	h.renderCrop(w, http.StatusOK, lang, panel, nil)
}

// DetectPage handles the multipart upload of one leaf image in the "image" field.
func (h *Handle) DetectPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	lang := h.lang(r)
	panel := farm.NewPanel[farm.ImageForm, farm.DiagnosisRecord](farm.ImageForm{})

	form, err := h.readUpload(w, r)
	if err != nil {
		panel.Reject(err)
		h.renderDisease(w, statusFor(err), lang, panel)
		return
	}
	panel.Edit(form)

	in, err := panel.Form().Validate()
	if err != nil {
		panel.Reject(err)
		h.renderDisease(w, http.StatusUnprocessableEntity, lang, panel)
		return
	}
	if !panel.Begin() {
		http.Error(w, h.cat.T(lang, "errors.busy"), http.StatusConflict)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.deadline(r))
	defer cancel()

	rec, err := h.detect(ctx, in, lang)
	if err != nil {
		panel.Fail(err)
		h.renderDisease(w, statusFor(err), lang, panel)
		return
	}
	panel.Succeed(rec)
	h.renderDisease(w, http.StatusOK, lang, panel)
}

func (h *Handle) ReportsPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	lang := h.lang(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	v := render.ReportsView{Page: h.pages.NewPage(lang, render.TabReports, "/reports")}
	var err error
	if v.Reports, err = h.repo.RecentPredictions(r.Context(), limit); err != nil {
		h.log.Error("history: recent predictions", zap.Error(err))
	}
	if v.Diagnoses, err = h.repo.RecentDiagnoses(r.Context(), limit); err != nil {
		h.log.Error("history: recent diagnoses", zap.Error(err))
	}
	h.writePage(w, http.StatusOK, func(wr io.Writer) error { return h.pages.Reports(wr, v) })
}

// readUpload turns the multipart "image" field into an image form. A missing
// file yields an empty form so validation reports it.
func (h *Handle) readUpload(w http.ResponseWriter, r *http.Request) (farm.ImageForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes+64<<10)
	if err := r.ParseMultipartForm(h.opts.MaxUploadBytes); err != nil {
		return farm.ImageForm{}, &advisor.InputError{Field: "image", Err: err}
	}
	file, hdr, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return farm.ImageForm{}, nil
	}
	if err != nil {
		return farm.ImageForm{}, &advisor.InputError{Field: "image", Err: err}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return farm.ImageForm{}, &advisor.InputError{Field: "image", Err: err}
	}
	if len(data) == 0 {
		return farm.ImageForm{}, nil
	}
	return farm.ImageForm{}.WithImage(util.MakeDataURL(uploadMIME(hdr.Header.Get("Content-Type"), data), data), hdr.Filename), nil
}

// uploadMIME trusts the bytes first and the browser's declared type only when sniffing gives up.
func uploadMIME(declared string, data []byte) string {
	sniffed := util.SniffMIME(data)
	if sniffed != "application/octet-stream" {
		return sniffed
	}
	if d := strings.TrimSpace(declared); d != "" {
		return d
	}
	return sniffed
}

func cropFormFromValues(v url.Values) farm.CropForm {
	get := func(k string) string { return strings.TrimSpace(v.Get(k)) }
	form := farm.NewCropForm().WithState(get("state"))
	if d := get("district"); d != "" {
		form = form.WithDistrict(d)
	} else {
		form = form.WithDistrictQuery(get("q"))
	}
	soil := farm.SoilData{
		Type:       farm.SoilType(get("soil")),
		PH:         get("ph"),
		Nitrogen:   get("n"),
		Phosphorus: get("p"),
		Potassium:  get("k"),
	}
	if soil.Type == "" {
		soil.Type = farm.SoilAlluvial
	}
	return form.WithSoil(soil).WithClimate(farm.ClimateData{Rainfall: get("rain"), Temperature: get("temp")})
}

func (h *Handle) renderCrop(w http.ResponseWriter, code int, lang i18n.Lang, p *cropPanel, fe farm.FieldErrors) {
	v := h.pages.NewCropView(lang, p.Form())
	switch p.View() {
	case farm.ViewReport:
		rep, _ := p.Result()
		v.Result = &rep.Prediction
	default:
		if err := p.Err(); err != nil {
			if len(fe) > 0 {
				v.FieldErrors = render.LocalizeFieldErrors(v.Tr, fe)
				if fe.Has("state") || fe.Has("district") {
					v.Error = v.Tr.T("errors.selectLocation")
				}
			} else {
				v.Error = v.Tr.T(advisor.MessageKey(advisor.PanelPredict, err))
			}
		}
	}
	h.writePage(w, code, func(wr io.Writer) error { return h.pages.CropPanel(wr, v) })
}

func (h *Handle) renderDisease(w http.ResponseWriter, code int, lang i18n.Lang, p *diseasePanel) {
	v := render.DiseaseView{Page: h.pages.NewPage(lang, render.TabDisease, "/")}
	switch p.View() {
	case farm.ViewReport:
		rec, _ := p.Result()
		v.Result = &rec.Diagnosis
	default:
		if err := p.Err(); err != nil {
			var fe farm.FieldErrors
			if errors.As(err, &fe) {
				v.Error = v.Tr.T("errors.noImage")
			} else {
				v.Error = v.Tr.T(advisor.MessageKey(advisor.PanelDetect, err))
			}
		}
	}
	h.writePage(w, code, func(wr io.Writer) error { return h.pages.DiseasePanel(wr, v) })
}

func (h *Handle) writePage(w http.ResponseWriter, code int, fn func(io.Writer) error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		h.log.Error("render page", zap.Error(err))
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}
