package dataset

import (
	"fmt"
	"math/rand"

	"mediguard/vitals"
)

// Mix fixes the proportions of the three synthetic sample kinds.
type Mix struct {
	Identical   float64
	LowVariance float64
	Sparse      float64
}

// DefaultMix is the production blend of synthetic anomaly kinds.
var DefaultMix = Mix{Identical: 0.50, LowVariance: 0.30, Sparse: 0.20}

// identicalCandidates are the constants an identical-value vector is filled
// with, covering zero, unit and mid-range clinical magnitudes.
var identicalCandidates = []float64{0, 0.5, 1, 42, 55, 100, 250}

const (
	lowVarianceNoise = 0.02 // noise amplitude relative to the base value
	sparseKeepProb   = 0.3  // probability a sparse feature survives the mask
	sparseValueMax   = 200.0
)

// GenerateSynthetic produces n Uncertain-labeled vectors composed of the
// three anomaly kinds in the configured proportions. Output is fully
// determined by the seed.
func GenerateSynthetic(n int, mix Mix, seed int64) ([]vitals.TrainingSample, error) {
	if n <= 0 {
		return nil, fmt.Errorf("sample count must be positive, got %d", n)
	}
	if err := mix.validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seed))

	identicalCount := int(float64(n) * mix.Identical)
	lowVarCount := int(float64(n) * mix.LowVariance)
	sparseCount := n - identicalCount - lowVarCount

	samples := make([]vitals.TrainingSample, 0, n)
	for i := 0; i < identicalCount; i++ {
		samples = append(samples, syntheticSample(identicalVector(rng)))
	}
	for i := 0; i < lowVarCount; i++ {
		samples = append(samples, syntheticSample(lowVarianceVector(rng)))
	}
	for i := 0; i < sparseCount; i++ {
		samples = append(samples, syntheticSample(sparseVector(rng)))
	}
	return samples, nil
}

func (m Mix) validate() error {
	if m.Identical < 0 || m.LowVariance < 0 || m.Sparse < 0 {
		return fmt.Errorf("mix proportions must be non-negative: %+v", m)
	}
	total := m.Identical + m.LowVariance + m.Sparse
	if total < 0.999 || total > 1.001 {
		return fmt.Errorf("mix proportions must sum to 1, got %g", total)
	}
	return nil
}

func syntheticSample(v vitals.FeatureVector) vitals.TrainingSample {
	return vitals.TrainingSample{
		Features: v,
		Label:    vitals.Uncertain,
		Source:   vitals.SourceSynthetic,
	}
}

// identicalVector fills every feature with one constant.
func identicalVector(rng *rand.Rand) vitals.FeatureVector {
	value := identicalCandidates[rng.Intn(len(identicalCandidates))]
	v := make(vitals.FeatureVector, vitals.FeatureCount)
	for i := range v {
		v[i] = value
	}
	return v
}

// lowVarianceVector draws a base value and jitters each feature by at most
// lowVarianceNoise of the base.
func lowVarianceVector(rng *rand.Rand) vitals.FeatureVector {
	base := 10 + rng.Float64()*190
	v := make(vitals.FeatureVector, vitals.FeatureCount)
	for i := range v {
		noise := (rng.Float64()*2 - 1) * lowVarianceNoise * base
		v[i] = base + noise
	}
	return v
}

// sparseVector draws uniform values then zeroes roughly 70% of them. A mask
// that zeroes every feature is redrawn: an all-zero vector belongs to the
// identical-value kind and the three kinds must stay disjoint.
func sparseVector(rng *rand.Rand) vitals.FeatureVector {
	for {
		v := make(vitals.FeatureVector, vitals.FeatureCount)
		kept := 0
		for i := range v {
			if rng.Float64() < sparseKeepProb {
				v[i] = rng.Float64() * sparseValueMax
				kept++
			}
		}
		if kept > 0 {
			return v
		}
	}
}
