// Package render turns panel state into HTML pages for the web shell and
// plain text for chat.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"kisansight/api/internal/farm"
	"kisansight/api/internal/i18n"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	TabPredict = "predict"
	TabDisease = "disease"
	TabReports = "reports"
)

// page names, one per content template
const (
	pageCropForm      = "crop_form"
	pageCropReport    = "crop_report"
	pageDiseaseForm   = "disease_form"
	pageDiseaseReport = "disease_report"
	pageReports       = "reports"
)

type LangOption struct {
	Code     i18n.Lang
	Name     string
	Selected bool
}

// Page is the part of every view the layout needs.
type Page struct {
	Lang  i18n.Lang
	Tr    i18n.Translator
	Tab   string
	Path  string
	Langs []LangOption
}

type CropView struct {
	Page
	Form        farm.CropForm
	States      []string
	Districts   []string
	SoilTypes   []farm.SoilType
	FieldErrors map[string]string
	Error       string
	Result      *farm.CropPredictionResult
}

type DiseaseView struct {
	Page
	Error  string
	Result *farm.DiseaseDetectionResult
}

type ReportsView struct {
	Page
	Reports   []farm.FarmReport
	Diagnoses []farm.DiagnosisRecord
}

// Pages holds the parsed layout with each content page.
type Pages struct {
	cat   *i18n.Catalog
	pages map[string]*template.Template
}

func NewPages(cat *i18n.Catalog) (*Pages, error) {
	if cat == nil {
		cat = i18n.Default()
	}
	funcs := template.FuncMap{"join": strings.Join}
	base, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	p := &Pages{cat: cat, pages: map[string]*template.Template{}}
	for _, name := range []string{pageCropForm, pageCropReport, pageDiseaseForm, pageDiseaseReport, pageReports} {
		t, err := template.Must(base.Clone()).ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		p.pages[name] = t
	}
	return p, nil
}

// NewPage fills the layout data for lang and tab.
func (p *Pages) NewPage(lang i18n.Lang, tab, path string) Page {
	opts := make([]LangOption, 0, len(i18n.Supported))
	for _, l := range i18n.Supported {
		opts = append(opts, LangOption{Code: l, Name: p.cat.T(l, "name"), Selected: l == lang})
	}
	return Page{Lang: lang, Tr: p.cat.For(lang), Tab: tab, Path: path, Langs: opts}
}

// NewCropView prepares the crop panel for form. The district list follows the
// selected state and the typed query.
func (p *Pages) NewCropView(lang i18n.Lang, form farm.CropForm) CropView {
	return CropView{
		Page:      p.NewPage(lang, TabPredict, "/"),
		Form:      form,
		States:    farm.States(),
		Districts: form.Suggestions(),
		SoilTypes: farm.SoilTypes,
	}
}

// LocalizeFieldErrors maps each failing field to its translated message.
func LocalizeFieldErrors(tr i18n.Translator, errs farm.FieldErrors) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		if _, ok := out[e.Field]; !ok {
			out[e.Field] = tr.T("validation." + e.Code)
		}
	}
	return out
}

// CropPanel renders the form or, when v.Result is set, the report.
func (p *Pages) CropPanel(w io.Writer, v CropView) error {
	if v.Result != nil {
		return p.execute(w, pageCropReport, v)
	}
	return p.execute(w, pageCropForm, v)
}

func (p *Pages) DiseasePanel(w io.Writer, v DiseaseView) error {
	if v.Result != nil {
		return p.execute(w, pageDiseaseReport, v)
	}
	return p.execute(w, pageDiseaseForm, v)
}

func (p *Pages) Reports(w io.Writer, v ReportsView) error {
	return p.execute(w, pageReports, v)
}

// execute renders into a buffer first so a template error never leaves half a page.
func (p *Pages) execute(w io.Writer, name string, data any) error {
	t, ok := p.pages[name]
	if !ok {
		return fmt.Errorf("render: unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
