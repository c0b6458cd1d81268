// Package metrics implements the volumetric overlap metric and the
// summary statistics used to evaluate a segmentation model. The dice
// coefficient follows the smoothed formulation
//
//	(2*|pred AND truth| + smooth) / (sum(pred) + sum(truth) + smooth)
//
// where the numerator counts voxels that are nonzero in both masks and
// the denominators sum the raw mask values. Callers must binarize both
// masks at the same threshold before scoring, otherwise the denominator
// sums confidence values rather than voxel counts.
package metrics

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ER-ALOK/BraTS18-Project/internal/models"
)

// DefaultSmooth is the smoothing constant added to the dice quotient.
// It keeps the metric defined for all-zero masks.
const DefaultSmooth = 0.02

// ErrShapeMismatch indicates two masks with disagreeing dimensions.
var ErrShapeMismatch = errors.New("mask shape mismatch")

// ErrEmptyInput indicates a summary requested over zero scores.
var ErrEmptyInput = errors.New("empty input")

// Binarize converts a continuous-valued volume into a 0/1 mask: output
// is 1 where the input is >= threshold, else 0. The operation is pure
// and idempotent; thresholds outside the input's range yield an all-0
// or all-1 mask.
func Binarize(v *models.Volume, threshold float64) *models.Volume {
	out := models.NewVolume(v.Width, v.Height, v.Depth)
	for i, val := range v.Data {
		if val >= threshold {
			out.Data[i] = 1
		}
	}
	return out
}

// Dice computes the smoothed dice coefficient between a predicted mask
// and a ground-truth mask of the same shape. The result is in (0, 1]:
// the smoothing constant prevents division by zero when both masks are
// empty, and pushes degenerate all-zero comparisons toward 1.
func Dice(pred, truth *models.Volume, smooth float64) (float64, error) {
	if !pred.SameShape(truth) {
		return 0, fmt.Errorf("%w: prediction %dx%dx%d vs truth %dx%dx%d",
			ErrShapeMismatch,
			pred.Width, pred.Height, pred.Depth,
			truth.Width, truth.Height, truth.Depth)
	}

	var intersection float64
	for i := range pred.Data {
		if pred.Data[i] != 0 && truth.Data[i] != 0 {
			intersection++
		}
	}

	denom := floats.Sum(pred.Data) + floats.Sum(truth.Data) + smooth
	return (2*intersection + smooth) / denom, nil
}

// Summary holds the aggregate statistics for one partition's scores.
type Summary struct {
	Mean float64
	Std  float64
	Min  float64
	Max  float64
}

// Summarize computes mean, population standard deviation, min and max
// over a sequence of per-patient scores. An empty sequence is a
// configuration error, not a NaN report.
func Summarize(scores []float64) (Summary, error) {
	if len(scores) == 0 {
		return Summary{}, fmt.Errorf("%w: no scores to summarize", ErrEmptyInput)
	}

	return Summary{
		Mean: stat.Mean(scores, nil),
		Std:  stat.PopStdDev(scores, nil),
		Min:  floats.Min(scores),
		Max:  floats.Max(scores),
	}, nil
}
