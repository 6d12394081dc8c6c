package vitals

// FeatureCount is the fixed width of every feature vector.
const FeatureCount = 24

var featureNames = [FeatureCount]string{
	"glucose",
	"cholesterol",
	"hemoglobin",
	"platelets",
	"white_blood_cells",
	"red_blood_cells",
	"hematocrit",
	"mean_corpuscular_volume",
	"mean_corpuscular_hemoglobin",
	"mean_corpuscular_hemoglobin_concentration",
	"insulin",
	"bmi",
	"systolic_blood_pressure",
	"diastolic_blood_pressure",
	"triglycerides",
	"hba1c",
	"ldl_cholesterol",
	"hdl_cholesterol",
	"alt",
	"ast",
	"heart_rate",
	"creatinine",
	"troponin",
	"c_reactive_protein",
}

var featureIndex = buildFeatureIndex()

func buildFeatureIndex() map[string]int {
	index := make(map[string]int, FeatureCount)
	for i, name := range featureNames {
		index[name] = i
	}
	return index
}

// FeatureNames returns the canonical feature order as a fresh slice.
func FeatureNames() []string {
	names := make([]string, FeatureCount)
	copy(names, featureNames[:])
	return names
}

// FeatureName returns the canonical name at position i, or "" if out of range.
func FeatureName(i int) string {
	if i < 0 || i >= FeatureCount {
		return ""
	}
	return featureNames[i]
}

// FeatureIndex maps a canonical feature name to its vector position.
func FeatureIndex(name string) (int, bool) {
	i, ok := featureIndex[name]
	return i, ok
}
