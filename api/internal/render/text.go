package render

import (
	"fmt"
	"strings"

	"kisansight/api/internal/farm"
	"kisansight/api/internal/i18n"
)

// CropReportText formats a prediction for a chat message.
func CropReportText(tr i18n.Translator, loc farm.LocationData, r farm.CropPredictionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s, %s\n\n", tr.T("nav.report"), loc.District, loc.State)
	writeList(&b, tr.T("results.recommended"), r.BestCrops)
	fmt.Fprintf(&b, "%s: %s\n", tr.T("results.yield"), r.EstimatedYield)
	fmt.Fprintf(&b, "%s: %s\n\n", tr.T("results.suitability"), r.SuitabilityScore)
	writeList(&b, tr.T("results.risks"), r.RiskFactors)
	writeList(&b, tr.T("results.tips"), r.ImprovementTips)
	return strings.TrimSpace(b.String())
}

// DiagnosisText formats a disease detection result for a chat message.
func DiagnosisText(tr i18n.Translator, d farm.DiseaseDetectionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s: %s\n\n", d.DiseaseName, tr.T("results.severity"), d.Severity)
	writeList(&b, tr.T("results.treatment"), d.Treatment)
	writeList(&b, tr.T("results.prevention"), d.PreventiveSteps)
	fmt.Fprintf(&b, "%s:\n%s", tr.T("labels.advice"), d.Advice)
	return strings.TrimSpace(b.String())
}

// FieldErrorsText lists validation failures one per line, using the form labels.
func FieldErrorsText(tr i18n.Translator, errs farm.FieldErrors) string {
	labels := map[string]string{
		"state":     "labels.state",
		"district":  "labels.district",
		"soil.type": "labels.soilType",
		"image":     "labels.upload",
	}
	var b strings.Builder
	for _, e := range errs {
		label := e.Field
		if k, ok := labels[e.Field]; ok {
			label = tr.T(k)
		}
		fmt.Fprintf(&b, "%s: %s\n", label, tr.T("validation."+e.Code))
	}
	return strings.TrimSpace(b.String())
}

func writeList(b *strings.Builder, title string, items []string) {
	b.WriteString(title)
	b.WriteString(":\n")
	for _, it := range items {
		b.WriteString("• ")
		b.WriteString(it)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
}
