package ml

import (
	"encoding/json"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"mediguard/vitals"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	model := trainedModel(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	if err := model.save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	rng := rand.New(rand.NewSource(21))
	for i := 0; i < 20; i++ {
		v := conditionProfile(vitals.Label(i%int(vitals.LabelCount)), rng)
		before, err := model.Predict(v)
		if err != nil {
			t.Fatalf("predict before: %v", err)
		}
		after, err := reloaded.Predict(v)
		if err != nil {
			t.Fatalf("predict after: %v", err)
		}
		if before.PredictedClass != after.PredictedClass {
			t.Fatalf("predicted class changed across reload")
		}
		for label, p := range before.Probabilities {
			if after.Probabilities[label] != p {
				t.Fatalf("probability for %s changed across reload: %g vs %g",
					label, p, after.Probabilities[label])
			}
		}
	}
}

func TestLoadMissingArtifact(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, ErrModelLoad) {
		t.Fatalf("expected ErrModelLoad, got %v", err)
	}
}

func TestLoadCorruptManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(path)
	if !errors.Is(err, ErrModelLoad) {
		t.Fatalf("expected ErrModelLoad, got %v", err)
	}
}

func TestLoadRejectsUnknownSchemaVersion(t *testing.T) {
	model := trainedModel(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	if err := model.save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var manifest map[string]interface{}
	if err := json.Unmarshal(payload, &manifest); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	manifest["schema_version"] = 99
	payload, err = json.Marshal(manifest)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err = Load(path)
	if !errors.Is(err, ErrModelLoad) {
		t.Fatalf("expected ErrModelLoad, got %v", err)
	}
}

func TestLoadRejectsTamperedBlob(t *testing.T) {
	model := trainedModel(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	if err := model.save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(payload, &manifest); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	blobPath := filepath.Join(dir, manifest.BlobFile)
	blob, err := os.ReadFile(blobPath)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	blob[len(blob)/2] ^= 0xff
	if err := os.WriteFile(blobPath, blob, 0o644); err != nil {
		t.Fatalf("write blob: %v", err)
	}

	_, err = Load(path)
	if !errors.Is(err, ErrModelLoad) {
		t.Fatalf("expected ErrModelLoad, got %v", err)
	}
}

func TestSaveSweepsStaleBlobs(t *testing.T) {
	model := trainedModel(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	stale := filepath.Join(dir, "forest-00000000-000000.json")
	if err := os.WriteFile(stale, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write stale blob: %v", err)
	}

	if err := model.save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale blob not swept")
	}

	// The committed artifact still loads.
	if _, err := Load(path); err != nil {
		t.Fatalf("load after sweep: %v", err)
	}
}
