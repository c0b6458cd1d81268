// Package sampling locates the tumor extent within a ground-truth mask
// and draws a weighted, order-preserving sample of slice indices for
// visualization. Slices with more tumor are more likely to be chosen.
package sampling

import (
	"fmt"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/ER-ALOK/BraTS18-Project/internal/models"
)

// TumorSlices returns the indices along the scan axis whose 2D plane
// contains any positive tumor voxels, in ascending order. An all-zero
// mask yields an empty slice.
func TumorSlices(truth *models.Volume) []int {
	planeSize := truth.Width * truth.Height
	var extent []int
	for z := 0; z < truth.Depth; z++ {
		plane := truth.Data[z*planeSize : (z+1)*planeSize]
		if floats.Sum(plane) != 0 {
			extent = append(extent, z)
		}
	}
	return extent
}

// TumorWeights returns the total tumor voxel mass of each extent
// member's plane, aligned by position with extent.
func TumorWeights(truth *models.Volume, extent []int) []float64 {
	planeSize := truth.Width * truth.Height
	weights := make([]float64, len(extent))
	for i, z := range extent {
		weights[i] = floats.Sum(truth.Data[z*planeSize : (z+1)*planeSize])
	}
	return weights
}

// SampleSlices draws min(k, len(extent)) distinct slice indices from
// extent without replacement, with draw probability proportional to the
// aligned weight. The result is sorted ascending so visualization
// follows spatial order rather than draw order. An empty extent yields
// an empty result; all-zero weights fall back to a uniform draw.
func SampleSlices(extent []int, weights []float64, k int, src rand.Source) ([]int, error) {
	if len(weights) != len(extent) {
		return nil, fmt.Errorf("weights length %d does not match extent length %d",
			len(weights), len(extent))
	}
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("negative weight %f for slice %d", w, extent[i])
		}
	}
	if len(extent) == 0 || k <= 0 {
		return nil, nil
	}
	if k > len(extent) {
		k = len(extent)
	}

	w := sampleuv.NewWeighted(weights, src)
	chosen := make([]int, 0, k)
	taken := make([]bool, len(extent))
	for len(chosen) < k {
		i, ok := w.Take()
		if !ok {
			break
		}
		taken[i] = true
		chosen = append(chosen, extent[i])
	}

	// Zero-weight members are still drawable: once the positive weight
	// mass is exhausted, fill the remainder with a uniform draw over
	// the members not yet chosen. This also covers an all-zero weight
	// table, which must not divide by the zero total.
	if len(chosen) < k {
		rest := make([]float64, len(extent))
		for i := range rest {
			if !taken[i] {
				rest[i] = 1
			}
		}
		w = sampleuv.NewWeighted(rest, src)
		for len(chosen) < k {
			i, ok := w.Take()
			if !ok {
				break
			}
			chosen = append(chosen, extent[i])
		}
	}
	sort.Ints(chosen)
	return chosen, nil
}
