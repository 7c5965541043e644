package conflate

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	randomforest "github.com/malaschitz/randomForest"

	"github.com/poi-conflation/internal/records"
)

// Model is a trained per-attribute source classifier plus the metadata
// needed to apply it: feature layout and the class-index-to-source mapping.
type Model struct {
	Attribute    records.Attribute
	FeatureNames []string
	Classes      []records.Source
	Forest       randomforest.Forest
}

// Predict returns the winning source for a feature vector.
func (m *Model) Predict(vec []float64) records.Source {
	votes := m.Forest.Vote(vec)
	best, bestVote := 0, -1.0
	for i, v := range votes {
		if i < len(m.Classes) && v > bestVote {
			best, bestVote = i, v
		}
	}
	if best >= len(m.Classes) {
		return ""
	}
	return m.Classes[best]
}

// ModelPath names an attribute's model artifact inside a model directory.
func ModelPath(dir string, attr records.Attribute) string {
	return filepath.Join(dir, fmt.Sprintf("%s_model.gob", attr))
}

// SaveModel persists a model artifact via temp file + rename.
func SaveModel(path string, m *Model) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create model dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	if err := gob.NewEncoder(f).Encode(m); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return nil
}

// LoadModel reads a model artifact. A missing file returns os.ErrNotExist
// wrapped; callers treat that as "fall back to the rule-based default", not
// as a fatal condition.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model %s: %w", path, err)
	}
	defer f.Close()

	var m Model
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode model %s: %w", path, err)
	}
	return &m, nil
}
