package artifacts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/AntAci/AstraGuard/internal/screening"
)

// ArtifactEntry describes one written artifact in the manifest.
type ArtifactEntry struct {
	Path          string    `json:"path"`
	SchemaVersion string    `json:"schema_version"`
	ModelVersion  string    `json:"model_version"`
	SHA256        string    `json:"sha256"`
	GeneratedAt   time.Time `json:"generated_at_utc"`
}

// Manifest is the artifacts_latest.json payload: the authoritative pointer
// to the current generation of artifacts.
type Manifest struct {
	GeneratedAt   time.Time                `json:"generated_at_utc"`
	SchemaVersion string                   `json:"schema_version"`
	LatestRunID   string                   `json:"latest_run_id"`
	Artifacts     map[string]ArtifactEntry `json:"artifacts"`
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteManifest hashes each named artifact file and writes the manifest next
// to them. Keys name the artifact kind (e.g. "top_conjunctions"), values are
// the written file paths.
func WriteManifest(dir, runID string, files map[string]string, generatedAt time.Time) (string, error) {
	entries := make(map[string]ArtifactEntry, len(files))
	for kind, path := range files {
		sum, err := fileSHA256(path)
		if err != nil {
			return "", fmt.Errorf("hash %s: %w", path, err)
		}
		entries[kind] = ArtifactEntry{
			Path:          filepath.Base(path),
			SchemaVersion: SchemaVersion,
			ModelVersion:  screening.ModelVersion,
			SHA256:        sum,
			GeneratedAt:   generatedAt.UTC(),
		}
	}

	manifest := Manifest{
		GeneratedAt:   generatedAt.UTC(),
		SchemaVersion: SchemaVersion,
		LatestRunID:   runID,
		Artifacts:     entries,
	}
	path := filepath.Join(dir, ManifestName)
	if err := writeJSON(path, manifest); err != nil {
		return "", err
	}
	return path, nil
}
