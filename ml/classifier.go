package ml

import (
	"mediguard/vitals"
)

// Classifier scores feature vectors. The loaded boosted-tree model is the
// production implementation; callers should depend on this capability, not
// on the concrete engine.
type Classifier interface {
	Predict(features vitals.FeatureVector) (vitals.PredictionResult, error)
}

// Model is an immutable trained artifact. Once loaded or trained it is
// never mutated, so a single instance may serve any number of concurrent
// callers.
type Model struct {
	manifest Manifest
	forest   *boostedForest
}

// Predict validates the vector and returns the class probabilities. It
// never mutates the model or the input. Finite out-of-range values pass
// through unclamped: the Uncertain class is the anomaly flag.
func (m *Model) Predict(features vitals.FeatureVector) (vitals.PredictionResult, error) {
	if err := features.Validate(); err != nil {
		return vitals.PredictionResult{}, err
	}

	probs := m.forest.Probabilities(features)
	result := vitals.PredictionResult{
		Probabilities: make(map[vitals.Label]float64, len(probs)),
	}
	best := 0
	for k, p := range probs {
		result.Probabilities[vitals.Label(k)] = p
		if p > probs[best] {
			best = k
		}
	}
	result.PredictedClass = vitals.Label(best)
	result.Confidence = probs[best]
	return result, nil
}

// Manifest returns a copy of the artifact metadata.
func (m *Model) Manifest() Manifest {
	manifest := m.manifest
	manifest.FeatureNames = append([]string(nil), m.manifest.FeatureNames...)
	manifest.Labels = append([]string(nil), m.manifest.Labels...)
	return manifest
}

// Version returns the artifact's version tag.
func (m *Model) Version() string {
	return m.manifest.ModelVersion
}

var _ Classifier = (*Model)(nil)
