package vitals

import (
	"fmt"
	"math"
)

// physioRanges bounds each vital to what human physiology permits. Values
// outside produce warnings only; the vector itself is never mutated.
var physioRanges = map[string][2]float64{
	"glucose":                   {30, 1000},
	"cholesterol":               {50, 1000},
	"hemoglobin":                {3, 25},
	"platelets":                 {1e3, 5e6},
	"white_blood_cells":         {0.1, 200},
	"red_blood_cells":           {0.5, 10},
	"hematocrit":                {5, 80},
	"mean_corpuscular_volume":   {40, 150},
	"mean_corpuscular_hemoglobin": {5, 50},
	"mean_corpuscular_hemoglobin_concentration": {10, 50},
	"insulin":                  {0, 1000},
	"bmi":                      {8, 80},
	"systolic_blood_pressure":  {50, 300},
	"diastolic_blood_pressure": {30, 200},
	"triglycerides":            {5, 2000},
	"hba1c":                    {3.0, 25.0},
	"ldl_cholesterol":          {10, 1000},
	"hdl_cholesterol":          {5, 200},
	"alt":                      {1, 2000},
	"ast":                      {1, 2000},
	"heart_rate":               {30, 250},
	"creatinine":               {0.01, 50},
	"troponin":                 {0.0, 100.0},
	"c_reactive_protein":       {0.0, 500.0},
}

// Pattern-check scores, matching the screening rules of the upstream
// validation agent.
const (
	anomalyScoreIdentical    = 1.0
	anomalyScoreUniform      = 0.8
	anomalyScoreRoundNumbers = 0.6

	uniformCVThreshold    = 0.05
	roundNumberThreshold  = 0.9
)

// QualityReport is the advisory outcome of screening one vector. It never
// influences the prediction.
type QualityReport struct {
	RangeWarnings []string `json:"range_warnings,omitempty"`
	Anomalous     bool     `json:"anomalous"`
	AnomalyType   string   `json:"anomaly_type,omitempty"`
	AnomalyScore  float64  `json:"anomaly_score"`
	Message       string   `json:"message,omitempty"`
}

// Screen runs physiological range checks and input-pattern checks on a
// schema-valid vector.
func Screen(v FeatureVector) QualityReport {
	report := QualityReport{Message: "input pattern appears normal"}

	for i, value := range v {
		name := featureNames[i]
		rng, ok := physioRanges[name]
		if !ok {
			continue
		}
		if value < rng[0] || value > rng[1] {
			report.RangeWarnings = append(report.RangeWarnings,
				fmt.Sprintf("%s=%g outside physiological range [%g, %g]", name, value, rng[0], rng[1]))
		}
	}

	if allIdentical(v) {
		report.Anomalous = true
		report.AnomalyType = "all_identical"
		report.AnomalyScore = anomalyScoreIdentical
		report.Message = fmt.Sprintf("all %d values are identical (%g), highly unrealistic for clinical data", len(v), v[0])
		return report
	}

	if cv, ok := coefficientOfVariation(v); ok && cv < uniformCVThreshold {
		report.Anomalous = true
		report.AnomalyType = "suspiciously_uniform"
		report.AnomalyScore = anomalyScoreUniform
		report.Message = fmt.Sprintf("values show unusually low variation (CV=%.3f)", cv)
		return report
	}

	if frac := roundNumberFraction(v); frac > roundNumberThreshold {
		report.Anomalous = true
		report.AnomalyType = "too_many_round_numbers"
		report.AnomalyScore = anomalyScoreRoundNumbers
		report.Message = fmt.Sprintf("%.0f%% of values are round numbers, real clinical data carries more precision", frac*100)
		return report
	}

	return report
}

func allIdentical(v FeatureVector) bool {
	if len(v) == 0 {
		return false
	}
	first := v[0]
	for _, value := range v[1:] {
		if value != first {
			return false
		}
	}
	return true
}

func coefficientOfVariation(v FeatureVector) (float64, bool) {
	if len(v) == 0 {
		return 0, false
	}
	var sum float64
	for _, value := range v {
		sum += value
	}
	mean := sum / float64(len(v))
	if mean <= 0 {
		return 0, false
	}
	var variance float64
	for _, value := range v {
		variance += (value - mean) * (value - mean)
	}
	variance /= float64(len(v))
	return math.Sqrt(variance) / mean, true
}

func roundNumberFraction(v FeatureVector) float64 {
	if len(v) == 0 {
		return 0
	}
	round := 0
	for _, value := range v {
		if value == math.Trunc(value) {
			round++
		}
	}
	return float64(round) / float64(len(v))
}
