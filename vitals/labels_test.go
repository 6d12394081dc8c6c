package vitals

import (
	"encoding/json"
	"testing"
)

func TestLabelRoundTrip(t *testing.T) {
	seen := make(map[string]bool)
	for code := 0; code < LabelCount; code++ {
		name := Label(code).String()
		if seen[name] {
			t.Fatalf("duplicate label name %q", name)
		}
		seen[name] = true

		parsed, err := ParseLabel(name)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if parsed != Label(code) {
			t.Fatalf("round trip for %q: got %d, want %d", name, parsed, code)
		}
	}
}

func TestParseLabelUnknown(t *testing.T) {
	if _, err := ParseLabel("healthy"); err == nil {
		t.Fatalf("expected error for lowercase name")
	}
	if _, err := ParseLabel(""); err == nil {
		t.Fatalf("expected error for empty name")
	}
}

func TestLabelJSONUsesNames(t *testing.T) {
	pred := PredictionResult{
		Probabilities:  map[Label]float64{Healthy: 0.7, Anemia: 0.3},
		PredictedClass: Healthy,
		Confidence:     0.7,
	}
	payload, err := json.Marshal(pred)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Probabilities  map[string]float64 `json:"probabilities"`
		PredictedClass string             `json:"predicted_class"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.PredictedClass != "Healthy" {
		t.Fatalf("predicted_class serialized as %q", decoded.PredictedClass)
	}
	if decoded.Probabilities["Anemia"] != 0.3 {
		t.Fatalf("probability map keyed by %v", decoded.Probabilities)
	}
}

func TestLabelWireNames(t *testing.T) {
	want := []string{"Anemia", "Diabetes", "Healthy", "Thalassemia", "Thrombocytopenia", "Uncertain"}
	got := LabelNames()
	if len(got) != len(want) {
		t.Fatalf("expected %d labels, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("label %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
