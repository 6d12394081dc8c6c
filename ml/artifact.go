package ml

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediguard/vitals"
)

// ErrModelLoad reports a missing, corrupt or version-incompatible artifact.
var ErrModelLoad = errors.New("model artifact load failed")

// SchemaVersion is the artifact layout version this build reads and writes.
const SchemaVersion = 1

// Manifest is the structured sidecar describing a persisted model. The
// opaque tree blob lives in BlobFile next to the manifest.
type Manifest struct {
	SchemaVersion   int               `json:"schema_version"`
	ModelVersion    string            `json:"model_version"`
	FeatureNames    []string          `json:"feature_names"`
	Labels          []string          `json:"labels"`
	Hyperparameters Hyperparameters   `json:"hyperparameters"`
	TrainedAt       time.Time         `json:"trained_at"`
	Metrics         ValidationMetrics `json:"metrics"`
	BlobFile        string            `json:"blob_file"`
	BlobSHA256      string            `json:"blob_sha256"`
}

// Load reads a model artifact. The manifest's schema version, feature
// schema, label set and blob checksum are all verified before the model is
// returned; any mismatch is ErrModelLoad.
func Load(manifestPath string) (*Model, error) {
	payload, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	var manifest Manifest
	if err := json.Unmarshal(payload, &manifest); err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", ErrModelLoad, err)
	}

	if manifest.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %d, want %d",
			ErrModelLoad, manifest.SchemaVersion, SchemaVersion)
	}
	if len(manifest.FeatureNames) != vitals.FeatureCount {
		return nil, fmt.Errorf("%w: manifest lists %d features, want %d",
			ErrModelLoad, len(manifest.FeatureNames), vitals.FeatureCount)
	}
	for i, name := range manifest.FeatureNames {
		if name != vitals.FeatureName(i) {
			return nil, fmt.Errorf("%w: feature %d is %q, want %q",
				ErrModelLoad, i, name, vitals.FeatureName(i))
		}
	}
	if len(manifest.Labels) != vitals.LabelCount {
		return nil, fmt.Errorf("%w: manifest lists %d labels, want %d",
			ErrModelLoad, len(manifest.Labels), vitals.LabelCount)
	}
	for i, name := range manifest.Labels {
		if name != vitals.Label(i).String() {
			return nil, fmt.Errorf("%w: label %d is %q, want %q",
				ErrModelLoad, i, name, vitals.Label(i))
		}
	}

	blobPath := filepath.Join(filepath.Dir(manifestPath), manifest.BlobFile)
	blob, err := os.ReadFile(blobPath)
	if err != nil {
		return nil, fmt.Errorf("%w: blob: %v", ErrModelLoad, err)
	}
	sum := sha256.Sum256(blob)
	if hex.EncodeToString(sum[:]) != manifest.BlobSHA256 {
		return nil, fmt.Errorf("%w: blob checksum mismatch", ErrModelLoad)
	}

	var forest boostedForest
	if err := json.Unmarshal(blob, &forest); err != nil {
		return nil, fmt.Errorf("%w: blob: %v", ErrModelLoad, err)
	}
	if forest.Classes != vitals.LabelCount || forest.Features != vitals.FeatureCount {
		return nil, fmt.Errorf("%w: blob shape %dx%d does not match schema",
			ErrModelLoad, forest.Classes, forest.Features)
	}

	return &Model{manifest: manifest, forest: &forest}, nil
}

// save persists the model atomically. The blob is written first under a
// version-unique name, then the manifest goes to a temp file and is renamed
// onto the target path: the rename is the commit point, so a concurrent
// reader sees either the previous artifact or the complete new one.
func (m *Model) save(manifestPath string) error {
	dir := filepath.Dir(manifestPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	blob, err := json.Marshal(m.forest)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(blob)
	m.manifest.BlobSHA256 = hex.EncodeToString(sum[:])
	m.manifest.BlobFile = fmt.Sprintf("forest-%s.json", m.manifest.ModelVersion)

	blobPath := filepath.Join(dir, m.manifest.BlobFile)
	if err := writeFileSync(blobPath, blob); err != nil {
		return err
	}

	payload, err := json.MarshalIndent(m.manifest, "", "  ")
	if err != nil {
		os.Remove(blobPath)
		return err
	}
	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		os.Remove(blobPath)
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		os.Remove(blobPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		os.Remove(blobPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		os.Remove(blobPath)
		return err
	}
	if err := os.Rename(tmpPath, manifestPath); err != nil {
		os.Remove(tmpPath)
		os.Remove(blobPath)
		return err
	}

	sweepStaleBlobs(dir, m.manifest.BlobFile)
	return nil
}

func writeFileSync(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// sweepStaleBlobs removes forest blobs left behind by previous artifacts.
// Best effort: a leftover blob is wasted disk, never a correctness issue.
func sweepStaleBlobs(dir, keep string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if name == keep || entry.IsDir() {
			continue
		}
		if strings.HasPrefix(name, "forest-") && strings.HasSuffix(name, ".json") {
			os.Remove(filepath.Join(dir, name))
		}
	}
}
