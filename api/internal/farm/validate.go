package farm

import (
	"strings"
)

// Field error codes.
const (
	CodeRequired         = "required"
	CodeUnknownState     = "unknown_state"
	CodeDistrictMismatch = "district_mismatch"
	CodeUnknownSoilType  = "unknown_soil_type"
)

type FieldError struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

func (e FieldError) Error() string { return e.Field + ": " + e.Code }

// FieldErrors is returned by Validate when the form cannot be submitted.
type FieldErrors []FieldError

func (es FieldErrors) Error() string {
	parts := make([]string, 0, len(es))
	for _, e := range es {
		parts = append(parts, e.Error())
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

// Has reports whether field has at least one error.
func (es FieldErrors) Has(field string) bool {
	for _, e := range es {
		if e.Field == field {
			return true
		}
	}
	return false
}

// ValidCropInput is a crop form that passed Validate.
type ValidCropInput struct {
	Location LocationData
	Soil     SoilData
	Climate  ClimateData
}

// Validate checks the crop form. On failure the error is FieldErrors.
func (f CropForm) Validate() (ValidCropInput, error) {
	var errs FieldErrors

	state := strings.TrimSpace(f.Location.State)
	district := strings.TrimSpace(f.Location.District)

	switch {
	case state == "":
		errs = append(errs, FieldError{"state", CodeRequired})
	case !KnownState(state):
		errs = append(errs, FieldError{"state", CodeUnknownState})
	}
	switch {
	case district == "":
		errs = append(errs, FieldError{"district", CodeRequired})
	case state != "" && !HasDistrict(state, district):
		errs = append(errs, FieldError{"district", CodeDistrictMismatch})
	}
	if !f.Soil.Type.Valid() {
		errs = append(errs, FieldError{"soil.type", CodeUnknownSoilType})
	}

	if len(errs) > 0 {
		return ValidCropInput{}, errs
	}

	soil := f.Soil
	soil.Nitrogen = strings.TrimSpace(soil.Nitrogen)
	soil.Phosphorus = strings.TrimSpace(soil.Phosphorus)
	soil.Potassium = strings.TrimSpace(soil.Potassium)
	soil.PH = strings.TrimSpace(soil.PH)
	return ValidCropInput{
		Location: LocationData{State: state, District: district},
		Soil:     soil,
		Climate: ClimateData{
			Rainfall:    strings.TrimSpace(f.Climate.Rainfall),
			Temperature: strings.TrimSpace(f.Climate.Temperature),
		},
	}, nil
}

// ValidImageInput is an image form that passed Validate.
type ValidImageInput struct {
	Image    string
	FileName string
}

func (f ImageForm) Validate() (ValidImageInput, error) {
	if strings.TrimSpace(f.Image) == "" {
		return ValidImageInput{}, FieldErrors{{"image", CodeRequired}}
	}
	return ValidImageInput{Image: f.Image, FileName: f.FileName}, nil
}
