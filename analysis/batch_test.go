package analysis

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"mediguard/vitals"
)

func TestAnalyzeBatchPreservesOrder(t *testing.T) {
	analyzer := newTestAnalyzer(t, Options{})
	rng := rand.New(rand.NewSource(53))

	labels := []vitals.Label{
		vitals.Anemia, vitals.Healthy, vitals.Diabetes,
		vitals.Thalassemia, vitals.Healthy, vitals.Thrombocytopenia,
	}
	vectors := make([]vitals.FeatureVector, len(labels))
	for i, label := range labels {
		vectors[i] = classVector(label, rng)
	}

	items, err := analyzer.AnalyzeBatch(context.Background(), vectors, 3)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(items) != len(vectors) {
		t.Fatalf("expected %d items, got %d", len(vectors), len(items))
	}
	for i, item := range items {
		if item.Index != i {
			t.Fatalf("item %d carries index %d", i, item.Index)
		}
		if item.Err != nil {
			t.Fatalf("item %d failed: %v", i, item.Err)
		}
		if item.Report == nil {
			t.Fatalf("item %d has no report", i)
		}
		want, err := analyzer.Analyze(vectors[i])
		if err != nil {
			t.Fatalf("reference analyze: %v", err)
		}
		if item.Report.Prediction.PredictedClass != want.Prediction.PredictedClass {
			t.Fatalf("item %d prediction does not match sequential analyze", i)
		}
	}
}

func TestAnalyzeBatchCarriesItemErrors(t *testing.T) {
	analyzer := newTestAnalyzer(t, Options{})
	rng := rand.New(rand.NewSource(59))

	bad := make(vitals.FeatureVector, vitals.FeatureCount)
	bad[0] = math.NaN()
	vectors := []vitals.FeatureVector{
		classVector(vitals.Healthy, rng),
		bad,
		make(vitals.FeatureVector, 3), // short
		classVector(vitals.Anemia, rng),
	}

	items, err := analyzer.AnalyzeBatch(context.Background(), vectors, 2)
	if err != nil {
		t.Fatalf("batch must not fail on item errors: %v", err)
	}
	if items[0].Err != nil || items[3].Err != nil {
		t.Fatalf("valid items failed: %v, %v", items[0].Err, items[3].Err)
	}
	if !errors.Is(items[1].Err, vitals.ErrNumericAnomaly) {
		t.Fatalf("item 1: expected ErrNumericAnomaly, got %v", items[1].Err)
	}
	if !errors.Is(items[2].Err, vitals.ErrSchemaMismatch) {
		t.Fatalf("item 2: expected ErrSchemaMismatch, got %v", items[2].Err)
	}
	if items[1].Report != nil || items[2].Report != nil {
		t.Fatalf("failed items must not carry reports")
	}
}

func TestAnalyzeBatchHonorsCancellation(t *testing.T) {
	analyzer := newTestAnalyzer(t, Options{})
	rng := rand.New(rand.NewSource(61))

	vectors := make([]vitals.FeatureVector, 64)
	for i := range vectors {
		vectors[i] = classVector(vitals.Healthy, rng)
	}

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	if _, err := analyzer.AnalyzeBatch(ctx, vectors, 2); err == nil {
		t.Fatalf("expected cancellation error")
	}
}
