package farm

import "time"

type SoilType string

const (
	SoilAlluvial SoilType = "Alluvial"
	SoilBlack    SoilType = "Black"
	SoilRed      SoilType = "Red"
	SoilLaterite SoilType = "Laterite"
	SoilArid     SoilType = "Arid"
)

// SoilTypes lists the soil types in the order the form shows them.
var SoilTypes = []SoilType{SoilAlluvial, SoilBlack, SoilRed, SoilLaterite, SoilArid}

func (t SoilType) Valid() bool {
	for _, s := range SoilTypes {
		if s == t {
			return true
		}
	}
	return false
}

// Suitability is the model's judgment of how well the farm fits the recommended crops.
type Suitability string

const (
	SuitabilityLow    Suitability = "Low"
	SuitabilityMedium Suitability = "Medium"
	SuitabilityHigh   Suitability = "High"
)

var Suitabilities = []Suitability{SuitabilityLow, SuitabilityMedium, SuitabilityHigh}

func (s Suitability) Valid() bool {
	switch s {
	case SuitabilityLow, SuitabilityMedium, SuitabilityHigh:
		return true
	}
	return false
}

type LocationData struct {
	State    string `json:"state"`
	District string `json:"district"`
}

// SoilData keeps the numeric fields as entered; range checks are left to the model.
type SoilData struct {
	Nitrogen   string   `json:"nitrogen"`
	Phosphorus string   `json:"phosphorus"`
	Potassium  string   `json:"potassium"`
	PH         string   `json:"ph"`
	Type       SoilType `json:"type"`
}

type ClimateData struct {
	Rainfall    string `json:"rainfall"`    // mm
	Temperature string `json:"temperature"` // °C
}

type CropPredictionResult struct {
	BestCrops        []string    `json:"bestCrops"`
	EstimatedYield   string      `json:"estimatedYield"`
	SuitabilityScore Suitability `json:"suitabilityScore"`
	RiskFactors      []string    `json:"riskFactors"`
	ImprovementTips  []string    `json:"improvementTips"`
}

type DiseaseDetectionResult struct {
	DiseaseName     string   `json:"diseaseName"`
	Severity        string   `json:"severity"`
	Treatment       []string `json:"treatment"`
	PreventiveSteps []string `json:"preventiveSteps"`
	Advice          string   `json:"advice"`
}

// FarmReport is a completed crop prediction together with the inputs it was made for.
type FarmReport struct {
	ID         string               `json:"id"`
	Timestamp  time.Time            `json:"timestamp"`
	Language   string               `json:"language"`
	Location   LocationData         `json:"location"`
	Soil       SoilData             `json:"soil"`
	Climate    ClimateData          `json:"climate"`
	Prediction CropPredictionResult `json:"prediction"`
}

// DiagnosisRecord is a completed disease detection. The image itself is not kept, only its hash.
type DiagnosisRecord struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Language  string                 `json:"language"`
	ImageHash string                 `json:"imageHash"`
	MIMEType  string                 `json:"mimeType"`
	Diagnosis DiseaseDetectionResult `json:"diagnosis"`
}
