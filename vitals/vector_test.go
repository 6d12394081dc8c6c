package vitals

import (
	"errors"
	"math"
	"testing"
)

func validVector() FeatureVector {
	v := make(FeatureVector, FeatureCount)
	for i := range v {
		v[i] = float64(i) + 1.5
	}
	return v
}

func TestValidateOK(t *testing.T) {
	if err := validVector().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateShortVector(t *testing.T) {
	v := validVector()[:FeatureCount-1]
	err := v.Validate()
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestValidateNaN(t *testing.T) {
	v := validVector()
	v[7] = math.NaN()
	err := v.Validate()
	if !errors.Is(err, ErrNumericAnomaly) {
		t.Fatalf("expected ErrNumericAnomaly, got %v", err)
	}
}

func TestValidateInf(t *testing.T) {
	v := validVector()
	v[0] = math.Inf(-1)
	err := v.Validate()
	if !errors.Is(err, ErrNumericAnomaly) {
		t.Fatalf("expected ErrNumericAnomaly, got %v", err)
	}
}

func TestValidatePassesOutOfRangeValues(t *testing.T) {
	v := validVector()
	v[0] = 1e9
	if err := v.Validate(); err != nil {
		t.Fatalf("out-of-range finite value should pass validation, got %v", err)
	}
}

func TestFeatureNameOrder(t *testing.T) {
	names := FeatureNames()
	if len(names) != FeatureCount {
		t.Fatalf("expected %d names, got %d", FeatureCount, len(names))
	}
	if names[0] != "glucose" || names[FeatureCount-1] != "c_reactive_protein" {
		t.Fatalf("unexpected canonical order: first=%q last=%q", names[0], names[FeatureCount-1])
	}
	for i, name := range names {
		idx, ok := FeatureIndex(name)
		if !ok || idx != i {
			t.Fatalf("index lookup for %q: got %d/%v, want %d", name, idx, ok, i)
		}
	}
}
