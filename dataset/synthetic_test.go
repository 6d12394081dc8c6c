package dataset

import (
	"testing"

	"mediguard/vitals"
)

func classifyKind(v vitals.FeatureVector) string {
	zero := 0
	for _, value := range v {
		if value == 0 {
			zero++
		}
	}

	identical := true
	for _, value := range v[1:] {
		if value != v[0] {
			identical = false
			break
		}
	}
	if identical {
		return "identical"
	}
	if zero >= vitals.FeatureCount/3 {
		return "sparse"
	}
	return "lowvar"
}

func TestGenerateSyntheticProportions(t *testing.T) {
	for _, n := range []int{10, 100, 237, 1000} {
		samples, err := GenerateSynthetic(n, DefaultMix, 42)
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		if len(samples) != n {
			t.Fatalf("n=%d: got %d samples", n, len(samples))
		}

		counts := map[string]int{}
		for _, sample := range samples {
			if len(sample.Features) != vitals.FeatureCount {
				t.Fatalf("n=%d: vector length %d", n, len(sample.Features))
			}
			if sample.Label != vitals.Uncertain {
				t.Fatalf("n=%d: unexpected label %s", n, sample.Label)
			}
			if sample.Source != vitals.SourceSynthetic {
				t.Fatalf("n=%d: unexpected source %s", n, sample.Source)
			}
			counts[classifyKind(sample.Features)]++
		}

		wantIdentical := int(float64(n) * DefaultMix.Identical)
		wantLowVar := int(float64(n) * DefaultMix.LowVariance)
		wantSparse := n - wantIdentical - wantLowVar
		if counts["identical"] != wantIdentical {
			t.Fatalf("n=%d: identical count %d, want %d", n, counts["identical"], wantIdentical)
		}
		if counts["lowvar"] != wantLowVar {
			t.Fatalf("n=%d: low-variance count %d, want %d", n, counts["lowvar"], wantLowVar)
		}
		if counts["sparse"] != wantSparse {
			t.Fatalf("n=%d: sparse count %d, want %d", n, counts["sparse"], wantSparse)
		}
	}
}

func TestGenerateSyntheticDeterministic(t *testing.T) {
	first, err := GenerateSynthetic(50, DefaultMix, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := GenerateSynthetic(50, DefaultMix, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range first {
		for j := range first[i].Features {
			if first[i].Features[j] != second[i].Features[j] {
				t.Fatalf("sample %d feature %d differs across runs", i, j)
			}
		}
	}
}

func TestGenerateSyntheticRejectsBadInput(t *testing.T) {
	if _, err := GenerateSynthetic(0, DefaultMix, 1); err == nil {
		t.Fatalf("expected error for n=0")
	}
	bad := Mix{Identical: 0.9, LowVariance: 0.9, Sparse: 0.9}
	if _, err := GenerateSynthetic(10, bad, 1); err == nil {
		t.Fatalf("expected error for mix not summing to 1")
	}
}

func TestLowVarianceNoiseBound(t *testing.T) {
	samples, err := GenerateSynthetic(200, DefaultMix, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, sample := range samples {
		if classifyKind(sample.Features) != "lowvar" {
			continue
		}
		min, max := sample.Features[0], sample.Features[0]
		for _, value := range sample.Features {
			if value < min {
				min = value
			}
			if value > max {
				max = value
			}
		}
		// Base is unknown but max-min can be at most 4% of it, and the base
		// lies between min and max scaled by the noise band.
		if max-min > 0.05*max {
			t.Fatalf("low-variance spread too wide: min=%g max=%g", min, max)
		}
	}
}
