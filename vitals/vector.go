package vitals

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrSchemaMismatch reports a feature vector whose shape does not
	// match the canonical 24-feature schema.
	ErrSchemaMismatch = errors.New("feature vector schema mismatch")

	// ErrNumericAnomaly reports NaN or infinite values in a feature vector.
	ErrNumericAnomaly = errors.New("feature vector contains non-finite value")
)

// FeatureVector is an ordered sequence of the 24 canonical vitals.
type FeatureVector []float64

// Validate checks shape and numeric sanity. Out-of-range but finite values
// pass: flagging those is the model's job, via the Uncertain class.
func (v FeatureVector) Validate() error {
	if len(v) != FeatureCount {
		return fmt.Errorf("%w: got %d features, want %d", ErrSchemaMismatch, len(v), FeatureCount)
	}
	for i, value := range v {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("%w: feature %s", ErrNumericAnomaly, featureNames[i])
		}
	}
	return nil
}

// Clone returns an independent copy of the vector.
func (v FeatureVector) Clone() FeatureVector {
	out := make(FeatureVector, len(v))
	copy(out, v)
	return out
}

// SampleSource records where a training sample came from.
type SampleSource string

const (
	SourceReal      SampleSource = "real"
	SourceSynthetic SampleSource = "synthetic"
)

// TrainingSample pairs a feature vector with its class label.
type TrainingSample struct {
	Features FeatureVector
	Label    Label
	Source   SampleSource
}

// PredictionResult is the classifier output for a single vector.
type PredictionResult struct {
	Probabilities  map[Label]float64 `json:"probabilities"`
	PredictedClass Label             `json:"predicted_class"`
	Confidence     float64           `json:"confidence"`
}

// ProbabilityOf returns the probability assigned to a class, 0 if absent.
func (r PredictionResult) ProbabilityOf(l Label) float64 {
	return r.Probabilities[l]
}
