package dataset

import (
	"errors"
	"testing"

	"mediguard/vitals"
)

func makeSamples(label vitals.Label, n int, fill float64) []vitals.TrainingSample {
	samples := make([]vitals.TrainingSample, n)
	for i := range samples {
		v := make(vitals.FeatureVector, vitals.FeatureCount)
		for j := range v {
			v[j] = fill + float64(i)
		}
		samples[i] = vitals.TrainingSample{Features: v, Label: label, Source: vitals.SourceReal}
	}
	return samples
}

func TestStratifiedSplitPreservesFrequencies(t *testing.T) {
	var all []vitals.TrainingSample
	sizes := map[vitals.Label]int{
		vitals.Anemia:           50,
		vitals.Diabetes:         50,
		vitals.Healthy:          100,
		vitals.Thalassemia:      20,
		vitals.Thrombocytopenia: 20,
		vitals.Uncertain:        60,
	}
	for label, n := range sizes {
		all = append(all, makeSamples(label, n, float64(label)*10)...)
	}

	split, err := StratifiedSplit(all, 0.8, 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trainCounts := LabelCounts(split.Train)
	valCounts := LabelCounts(split.Validation)
	for label, n := range sizes {
		wantTrain := int(float64(n) * 0.8)
		if trainCounts[label] != wantTrain {
			t.Fatalf("class %s: train count %d, want %d", label, trainCounts[label], wantTrain)
		}
		if valCounts[label] != n-wantTrain {
			t.Fatalf("class %s: validation count %d, want %d", label, valCounts[label], n-wantTrain)
		}
	}
	if len(split.Train)+len(split.Validation) != len(all) {
		t.Fatalf("split loses samples: %d + %d != %d", len(split.Train), len(split.Validation), len(all))
	}
}

func TestStratifiedSplitInsufficientClass(t *testing.T) {
	all := Merge(makeSamples(vitals.Healthy, 40, 100), makeSamples(vitals.Anemia, 1, 5))
	_, err := StratifiedSplit(all, 0.8, 1)
	if !errors.Is(err, ErrDataInsufficient) {
		t.Fatalf("expected ErrDataInsufficient, got %v", err)
	}
}

func TestStratifiedSplitDeterministic(t *testing.T) {
	all := Merge(makeSamples(vitals.Healthy, 30, 100), makeSamples(vitals.Uncertain, 30, 1))

	first, err := StratifiedSplit(all, 0.8, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := StratifiedSplit(all, 0.8, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Train) != len(second.Train) {
		t.Fatalf("train sizes differ across identical seeds")
	}
	for i := range first.Train {
		if first.Train[i].Features[0] != second.Train[i].Features[0] {
			t.Fatalf("train order differs across identical seeds at %d", i)
		}
	}
}

func TestStratifiedSplitSmallClassKeepsBothSides(t *testing.T) {
	all := Merge(makeSamples(vitals.Healthy, 40, 100), makeSamples(vitals.Uncertain, 2, 1))
	split, err := StratifiedSplit(all, 0.8, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	trainCounts := LabelCounts(split.Train)
	valCounts := LabelCounts(split.Validation)
	if trainCounts[vitals.Uncertain] != 1 || valCounts[vitals.Uncertain] != 1 {
		t.Fatalf("2-sample class must land on both sides, got train=%d val=%d",
			trainCounts[vitals.Uncertain], valCounts[vitals.Uncertain])
	}
}

func TestStratifiedSplitBadRatio(t *testing.T) {
	all := makeSamples(vitals.Healthy, 10, 1)
	if _, err := StratifiedSplit(all, 0, 1); err == nil {
		t.Fatalf("expected error for ratio 0")
	}
	if _, err := StratifiedSplit(all, 1, 1); err == nil {
		t.Fatalf("expected error for ratio 1")
	}
}
