package ml

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"mediguard/vitals"
)

func TestPredictProbabilitiesSumToOne(t *testing.T) {
	model := trainedModel(t)
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 50; i++ {
		label := vitals.Label(rng.Intn(int(vitals.Uncertain)))
		pred, err := model.Predict(conditionProfile(label, rng))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pred.Probabilities) != vitals.LabelCount {
			t.Fatalf("expected %d probabilities, got %d", vitals.LabelCount, len(pred.Probabilities))
		}
		sum := 0.0
		for label, p := range pred.Probabilities {
			if p < 0 || p > 1 {
				t.Fatalf("probability for %s out of range: %g", label, p)
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-6 {
			t.Fatalf("probabilities sum to %g", sum)
		}
		if pred.Confidence != pred.Probabilities[pred.PredictedClass] {
			t.Fatalf("confidence %g does not match predicted class probability %g",
				pred.Confidence, pred.Probabilities[pred.PredictedClass])
		}
	}
}

func TestPredictRecoversTrainingClasses(t *testing.T) {
	model := trainedModel(t)
	rng := rand.New(rand.NewSource(91))

	misses := 0
	const trials = 40
	for i := 0; i < trials; i++ {
		label := vitals.Label(i % int(vitals.Uncertain))
		pred, err := model.Predict(conditionProfile(label, rng))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pred.PredictedClass != label {
			misses++
		}
	}
	if misses > trials/10 {
		t.Fatalf("model misclassified %d/%d in-distribution vectors", misses, trials)
	}
}

func TestPredictAllIdenticalIsUncertain(t *testing.T) {
	model := trainedModel(t)
	v := make(vitals.FeatureVector, vitals.FeatureCount)
	for i := range v {
		v[i] = 55
	}
	pred, err := model.Predict(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred.PredictedClass != vitals.Uncertain {
		t.Fatalf("all-55 vector predicted %s, want Uncertain (probs %v)",
			pred.PredictedClass, pred.Probabilities)
	}
}

func TestPredictShortVector(t *testing.T) {
	model := trainedModel(t)
	v := make(vitals.FeatureVector, vitals.FeatureCount-1)
	_, err := model.Predict(v)
	if !errors.Is(err, vitals.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestPredictNaN(t *testing.T) {
	model := trainedModel(t)
	rng := rand.New(rand.NewSource(4))
	v := conditionProfile(vitals.Healthy, rng)
	v[11] = math.NaN()
	_, err := model.Predict(v)
	if !errors.Is(err, vitals.ErrNumericAnomaly) {
		t.Fatalf("expected ErrNumericAnomaly, got %v", err)
	}
}

func TestPredictDeterministic(t *testing.T) {
	model := trainedModel(t)
	rng := rand.New(rand.NewSource(5))
	v := conditionProfile(vitals.Diabetes, rng)

	first, err := model.Predict(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := model.Predict(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for label, p := range first.Probabilities {
		if second.Probabilities[label] != p {
			t.Fatalf("probability for %s differs across calls", label)
		}
	}
}
