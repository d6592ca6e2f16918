package render

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kisansight/api/internal/farm"
	"kisansight/api/internal/i18n"
)

var prediction = farm.CropPredictionResult{
	BestCrops:        []string{"Cotton", "Soybean"},
	EstimatedYield:   "2.5 tons per hectare",
	SuitabilityScore: farm.SuitabilityMedium,
	RiskFactors:      []string{"Late monsoon onset"},
	ImprovementTips:  []string{"Apply gypsum"},
}

var diagnosis = farm.DiseaseDetectionResult{
	DiseaseName:     "Leaf Rust",
	Severity:        "High",
	Treatment:       []string{"Propiconazole spray"},
	PreventiveSteps: []string{"Resistant varieties"},
	Advice:          "Act within three days.",
}

func pages(t *testing.T) *Pages {
	t.Helper()
	p, err := NewPages(nil)
	require.NoError(t, err)
	return p
}

func TestCropPanel_ReportShowsAllFields(t *testing.T) {
	p := pages(t)
	form := farm.NewCropForm().WithState("Maharashtra").WithDistrict("Pune")
	v := p.NewCropView(i18n.English, form)
	v.Result = &prediction

	var buf bytes.Buffer
	require.NoError(t, p.CropPanel(&buf, v))
	html := buf.String()

	for _, s := range []string{"Cotton", "Soybean", "2.5 tons per hectare", "Medium", "Late monsoon onset", "Apply gypsum", "Pune, Maharashtra"} {
		assert.Contains(t, html, s)
	}
	assert.Contains(t, html, "Back to Analysis")
	assert.NotContains(t, html, `<form method="post"`)
}

func TestCropPanel_FormKeepsInputAndErrors(t *testing.T) {
	p := pages(t)
	form := farm.NewCropForm().WithState("Punjab").WithDistrictQuery("lu").
		WithSoil(farm.SoilData{Type: farm.SoilRed, PH: "7.1"})
	v := p.NewCropView(i18n.Hindi, form)
	v.Error = "boom"
	v.FieldErrors = LocalizeFieldErrors(v.Tr, farm.FieldErrors{{Field: "district", Code: farm.CodeRequired}})

	var buf bytes.Buffer
	require.NoError(t, p.CropPanel(&buf, v))
	html := buf.String()

	assert.Contains(t, html, `<option selected>Punjab</option>`)
	assert.Contains(t, html, `<input type="hidden" name="state" value="Punjab">`)
	assert.NotContains(t, html, " disabled>")
	assert.Contains(t, html, `<option selected>Red</option>`)
	assert.Contains(t, html, `value="7.1"`)
	assert.Contains(t, html, `<option value="Ludhiana">`)
	assert.NotContains(t, html, `<option value="Amritsar">`)
	assert.Contains(t, html, "boom")
	assert.Contains(t, html, i18n.Default().T(i18n.Hindi, "validation.required"))
	assert.Contains(t, html, `lang="hi"`)
}

func TestCropPanel_NoStateDisablesDistrict(t *testing.T) {
	p := pages(t)
	var buf bytes.Buffer
	require.NoError(t, p.CropPanel(&buf, p.NewCropView(i18n.English, farm.NewCropForm())))
	assert.Contains(t, buf.String(), " disabled>")
	assert.Contains(t, buf.String(), `<form method="get" action="/" class="location">`)
	assert.Contains(t, buf.String(), `<input type="hidden" name="state" value="">`)
	assert.Contains(t, buf.String(), `<option selected>Alluvial</option>`)
}

func TestDiseasePanel(t *testing.T) {
	p := pages(t)

	var form bytes.Buffer
	require.NoError(t, p.DiseasePanel(&form, DiseaseView{Page: p.NewPage(i18n.English, TabDisease, "/")}))
	assert.Contains(t, form.String(), `accept="image/*"`)
	assert.Contains(t, form.String(), `enctype="multipart/form-data"`)

	var report bytes.Buffer
	require.NoError(t, p.DiseasePanel(&report, DiseaseView{Page: p.NewPage(i18n.English, TabDisease, "/"), Result: &diagnosis}))
	for _, s := range []string{"Leaf Rust", "High", "Propiconazole spray", "Resistant varieties", "Act within three days."} {
		assert.Contains(t, report.String(), s)
	}
}

func TestReports(t *testing.T) {
	p := pages(t)
	v := ReportsView{
		Page: p.NewPage(i18n.English, TabReports, "/reports"),
		Reports: []farm.FarmReport{{
			Timestamp:  time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC),
			Location:   farm.LocationData{State: "Kerala", District: "Idukki"},
			Soil:       farm.SoilData{Type: farm.SoilLaterite},
			Prediction: prediction,
		}},
	}
	var buf bytes.Buffer
	require.NoError(t, p.Reports(&buf, v))
	assert.Contains(t, buf.String(), "2024-07-01 09:30")
	assert.Contains(t, buf.String(), "Cotton, Soybean")
	assert.Contains(t, buf.String(), "No reports yet.")
}

func TestTextRenderers(t *testing.T) {
	tr := i18n.Default().For(i18n.English)

	txt := CropReportText(tr, farm.LocationData{State: "Maharashtra", District: "Pune"}, prediction)
	for _, s := range []string{"Pune, Maharashtra", "• Cotton", "2.5 tons per hectare", "Medium", "• Late monsoon onset", "• Apply gypsum"} {
		assert.Contains(t, txt, s)
	}

	txt = DiagnosisText(tr, diagnosis)
	for _, s := range []string{"Leaf Rust", "High", "• Propiconazole spray", "• Resistant varieties", "Act within three days."} {
		assert.Contains(t, txt, s)
	}

	var fe farm.FieldErrors
	_, err := farm.NewCropForm().Validate()
	require.True(t, errors.As(err, &fe))
	txt = FieldErrorsText(tr, fe)
	assert.Contains(t, txt, "Select State: This field is required.")
	assert.Contains(t, txt, "Select District: This field is required.")
}
