package advisor

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/google/generative-ai-go/genai"

	"kisansight/api/internal/farm"
	"kisansight/api/internal/i18n"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

// Prompts holds the instruction templates. Defaults are embedded; a directory
// may override any of them with <name>.tmpl.
type Prompts struct {
	predict *template.Template
	detect  *template.Template
}

// LoadPrompts parses the templates, preferring files from dir when it is set.
func LoadPrompts(dir string) (*Prompts, error) {
	predict, err := loadPrompt(dir, "predict")
	if err != nil {
		return nil, err
	}
	detect, err := loadPrompt(dir, "detect")
	if err != nil {
		return nil, err
	}
	return &Prompts{predict: predict, detect: detect}, nil
}

// DefaultPrompts returns the embedded templates.
func DefaultPrompts() *Prompts {
	p, err := LoadPrompts("")
	if err != nil {
		panic(err)
	}
	return p
}

func loadPrompt(dir, name string) (*template.Template, error) {
	var src []byte
	if dir != "" {
		if b, err := os.ReadFile(filepath.Join(dir, name+".tmpl")); err == nil && len(bytes.TrimSpace(b)) > 0 {
			src = b
		}
	}
	if src == nil {
		b, err := promptFS.ReadFile("prompts/" + name + ".tmpl")
		if err != nil {
			return nil, fmt.Errorf("prompt %q: %w", name, err)
		}
		src = b
	}
	t, err := template.New(name).Option("missingkey=error").Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("prompt %q: %w", name, err)
	}
	return t, nil
}

type predictData struct {
	farm.ValidCropInput
	Language string
}

type detectData struct {
	Language string
}

// languageNames is how the reply language is named inside the English instruction.
var languageNames = map[i18n.Lang]string{
	i18n.Hindi:   "Hindi",
	i18n.Bengali: "Bengali",
}

func (p *Prompts) Predict(in farm.ValidCropInput, lang i18n.Lang) (string, error) {
	var b strings.Builder
	if err := p.predict.Execute(&b, predictData{ValidCropInput: in, Language: languageNames[lang]}); err != nil {
		return "", fmt.Errorf("render predict prompt: %w", err)
	}
	return strings.TrimSpace(b.String()), nil
}

func (p *Prompts) Detect(lang i18n.Lang) (string, error) {
	var b strings.Builder
	if err := p.detect.Execute(&b, detectData{Language: languageNames[lang]}); err != nil {
		return "", fmt.Errorf("render detect prompt: %w", err)
	}
	return strings.TrimSpace(b.String()), nil
}

func stringArray() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
}

// CropPredictionSchema is the response contract for crop predictions.
func CropPredictionSchema() *genai.Schema {
	enum := make([]string, 0, len(farm.Suitabilities))
	for _, s := range farm.Suitabilities {
		enum = append(enum, string(s))
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"bestCrops":        stringArray(),
			"estimatedYield":   {Type: genai.TypeString, Description: "yield in tons per hectare"},
			"suitabilityScore": {Type: genai.TypeString, Format: "enum", Enum: enum},
			"riskFactors":      stringArray(),
			"improvementTips":  stringArray(),
		},
		Required: []string{"bestCrops", "estimatedYield", "suitabilityScore", "riskFactors", "improvementTips"},
	}
}

// DiseaseDetectionSchema is the response contract for disease detection.
func DiseaseDetectionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"diseaseName":     {Type: genai.TypeString},
			"severity":        {Type: genai.TypeString},
			"treatment":       stringArray(),
			"preventiveSteps": stringArray(),
			"advice":          {Type: genai.TypeString},
		},
		Required: []string{"diseaseName", "severity", "treatment", "preventiveSteps", "advice"},
	}
}
