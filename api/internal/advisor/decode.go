package advisor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"kisansight/api/internal/farm"
	"kisansight/api/internal/util"
)

// DecodeCropPrediction parses a reply against the crop prediction schema.
func DecodeCropPrediction(text string) (farm.CropPredictionResult, error) {
	const op = "predict"
	var out farm.CropPredictionResult
	raw, err := decodeStrict(op, text, CropPredictionSchema().Required, &out)
	if err != nil {
		return farm.CropPredictionResult{}, err
	}
	if !out.SuitabilityScore.Valid() {
		return farm.CropPredictionResult{}, &DecodeError{Op: op, Raw: raw,
			Err: fmt.Errorf("suitabilityScore %q is not one of Low, Medium, High", out.SuitabilityScore)}
	}
	return out, nil
}

// DecodeDiseaseDetection parses a reply against the disease detection schema.
func DecodeDiseaseDetection(text string) (farm.DiseaseDetectionResult, error) {
	const op = "detect"
	var out farm.DiseaseDetectionResult
	if _, err := decodeStrict(op, text, DiseaseDetectionSchema().Required, &out); err != nil {
		return farm.DiseaseDetectionResult{}, err
	}
	return out, nil
}

// decodeStrict unmarshals text into v after checking that every required key is
// present and not null, and that no array holds a null. Wrong JSON types surface
// as unmarshal errors.
func decodeStrict(op, text string, required []string, v any) (string, error) {
	raw := util.StripCodeFences(strings.TrimSpace(text))
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return raw, &DecodeError{Op: op, Raw: raw, Err: err}
	}
	var missing []string
	for _, k := range required {
		if f, ok := fields[k]; !ok || bytes.Equal(bytes.TrimSpace(f), []byte("null")) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return raw, &DecodeError{Op: op, Raw: raw, Err: fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))}
	}
	for _, k := range required {
		f := bytes.TrimSpace(fields[k])
		if len(f) == 0 || f[0] != '[' {
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(f, &items); err != nil {
			continue
		}
		for i, it := range items {
			if bytes.Equal(bytes.TrimSpace(it), []byte("null")) {
				return raw, &DecodeError{Op: op, Raw: raw, Err: fmt.Errorf("field %s: null at index %d", k, i)}
			}
		}
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			err = fmt.Errorf("field %s: want %s, got %s", te.Field, te.Type, te.Value)
		}
		return raw, &DecodeError{Op: op, Raw: raw, Err: err}
	}
	return raw, nil
}
