package farm

// CropForm is the crop panel input. It is a value: every edit returns a new form.
type CropForm struct {
	Location      LocationData `json:"location"`
	Soil          SoilData     `json:"soil"`
	Climate       ClimateData  `json:"climate"`
	DistrictQuery string       `json:"districtQuery,omitempty"`
}

// NewCropForm returns the documented defaults: every field empty, soil type Alluvial.
func NewCropForm() CropForm {
	return CropForm{Soil: SoilData{Type: SoilAlluvial}}
}

func (f CropForm) Reset() CropForm { return NewCropForm() }

// WithState selects a state and drops the district together with the typed query.
func (f CropForm) WithState(state string) CropForm {
	f.Location = LocationData{State: state}
	f.DistrictQuery = ""
	return f
}

// WithDistrictQuery updates the autocomplete text without choosing a district.
func (f CropForm) WithDistrictQuery(q string) CropForm {
	f.DistrictQuery = q
	return f
}

// WithDistrict picks a district, as clicking a suggestion does.
func (f CropForm) WithDistrict(d string) CropForm {
	f.Location.District = d
	f.DistrictQuery = d
	return f
}

func (f CropForm) WithSoil(s SoilData) CropForm {
	f.Soil = s
	return f
}

func (f CropForm) WithClimate(c ClimateData) CropForm {
	f.Climate = c
	return f
}

// Suggestions returns the district autocomplete list for the current state and query.
func (f CropForm) Suggestions() []string {
	if f.Location.State == "" {
		return nil
	}
	return SuggestDistricts(f.Location.State, f.DistrictQuery)
}

// ImageForm is the disease panel input: one image as a data URI.
type ImageForm struct {
	Image    string `json:"image,omitempty"`
	FileName string `json:"fileName,omitempty"`
}

func (f ImageForm) Reset() ImageForm { return ImageForm{} }

func (f ImageForm) WithImage(dataURI, fileName string) ImageForm {
	return ImageForm{Image: dataURI, FileName: fileName}
}
