package brats

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ER-ALOK/BraTS18-Project/internal/models"
)

// PredictionStore serves precomputed model output as an inference
// collaborator. Predictions are exported by the training pipeline as
// one probability-plane stack per patient:
//
//	<dir>/<patient>/*.png
//
// with plane pixel intensity encoding the model's confidence. This
// keeps checkpoint loading and graph execution outside the evaluator;
// any live inference backend satisfying evaluation.Model can be swapped
// in without touching the pipeline.
type PredictionStore struct {
	// dir is the exported predictions directory
	dir string
}

// NewPredictionStore opens an exported predictions directory.
func NewPredictionStore(dir string) (*PredictionStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("predictions directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("predictions path %s is not a directory", dir)
	}
	return &PredictionStore{dir: dir}, nil
}

// Predict returns the stored probability volume for one subject. The
// result must be shape-compatible with the cropped input the model was
// run on; a disagreement here means the export used a different crop
// convention and is reported rather than silently mis-scored.
func (s *PredictionStore) Predict(ctx context.Context, id string, input *models.Volume) (*models.Volume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pred, err := loadStack(filepath.Join(s.dir, id))
	if err != nil {
		return nil, fmt.Errorf("failed to load prediction for patient %s: %w", id, err)
	}
	if !pred.SameShape(input) {
		return nil, fmt.Errorf("prediction for patient %s is %dx%dx%d, input is %dx%dx%d",
			id, pred.Width, pred.Height, pred.Depth, input.Width, input.Height, input.Depth)
	}
	return pred, nil
}
