// Package advisor builds crop-prediction and disease-detection requests for a
// generative model and turns its JSON replies into typed results.
//
// Every call is made exactly once. Failures are reported as one of
// ConfigurationError, TransportError, EmptyResponseError, DecodeError or
// InputError; MessageKey maps them to the user-facing message.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"

	"kisansight/api/internal/farm"
	"kisansight/api/internal/i18n"
	"kisansight/api/internal/util"
)

// Image is inline image data attached to a call.
type Image struct {
	MIMEType string
	Data     []byte
}

// Call is one request to the model: an instruction, an optional image and the response schema.
type Call struct {
	Op     string
	Prompt string
	Image  *Image
	Schema *genai.Schema
}

// Model sends a call and returns the reply text.
type Model interface {
	Name() string
	Generate(ctx context.Context, call Call) (string, error)
}

// Unavailable stands in for a model that could not be constructed; every call returns Err.
type Unavailable struct {
	Err error
}

func (u Unavailable) Name() string { return "unavailable" }

func (u Unavailable) Generate(context.Context, Call) (string, error) { return "", u.Err }

type Advisor struct {
	model   Model
	prompts *Prompts
	log     *zap.Logger
}

func New(model Model, prompts *Prompts, log *zap.Logger) *Advisor {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Advisor{model: model, prompts: prompts, log: log}
}

// ModelName reports the model id used for calls.
func (a *Advisor) ModelName() string { return a.model.Name() }

// PredictCrops asks the model for crop recommendations for a validated form.
func (a *Advisor) PredictCrops(ctx context.Context, in farm.ValidCropInput, lang i18n.Lang) (farm.CropPredictionResult, error) {
	const op = "predict"
	prompt, err := a.prompts.Predict(in, lang)
	if err != nil {
		return farm.CropPredictionResult{}, err
	}
	var out farm.CropPredictionResult
	err = a.run(ctx, Call{Op: op, Prompt: prompt, Schema: CropPredictionSchema()}, func(text string) error {
		r, err := DecodeCropPrediction(text)
		out = r
		return err
	}, zap.String("state", in.Location.State), zap.String("district", in.Location.District))
	return out, err
}

// DetectDisease asks the model to diagnose a leaf image given as a data URI or raw base64.
func (a *Advisor) DetectDisease(ctx context.Context, in farm.ValidImageInput, lang i18n.Lang) (farm.DiseaseDetectionResult, error) {
	const op = "detect"
	img, err := DecodeImage(in.Image)
	if err != nil {
		return farm.DiseaseDetectionResult{}, err
	}
	prompt, err := a.prompts.Detect(lang)
	if err != nil {
		return farm.DiseaseDetectionResult{}, err
	}
	var out farm.DiseaseDetectionResult
	err = a.run(ctx, Call{Op: op, Prompt: prompt, Image: &img, Schema: DiseaseDetectionSchema()}, func(text string) error {
		r, err := DecodeDiseaseDetection(text)
		out = r
		return err
	}, zap.String("mime", img.MIMEType), zap.Int("bytes", len(img.Data)))
	return out, err
}

// DecodeImage strips a data: URI prefix, decodes the payload and checks that it is an image.
func DecodeImage(s string) (Image, error) {
	data, hint, err := util.DecodeBase64MaybeDataURL(s)
	if err != nil {
		return Image{}, &InputError{Field: "image", Err: err}
	}
	mime := util.PickMIME("", hint, data)
	if !util.IsImageMIME(mime) {
		return Image{}, &InputError{Field: "image", Err: fmt.Errorf("unsupported type %q", mime)}
	}
	return Image{MIMEType: mime, Data: data}, nil
}

func (a *Advisor) run(ctx context.Context, call Call, decode func(string) error, fields ...zap.Field) error {
	start := time.Now()
	fields = append(fields, zap.String("op", call.Op), zap.String("model", a.model.Name()))

	text, err := a.model.Generate(ctx, call)
	if err != nil {
		err = classify(call.Op, err)
	} else if strings.TrimSpace(text) == "" {
		err = &EmptyResponseError{Op: call.Op}
	} else {
		err = decode(text)
	}

	fields = append(fields, zap.Duration("took", time.Since(start)))
	if err != nil {
		var ce *ConfigurationError
		if errors.As(err, &ce) {
			a.log.Error("model call failed: configuration", append(fields, zap.Error(err))...)
		} else {
			a.log.Warn("model call failed", append(fields, zap.String("kind", Kind(err)), zap.Error(err))...)
		}
		return err
	}
	a.log.Info("model call done", fields...)
	return nil
}
