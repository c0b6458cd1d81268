// Package brats provides file-backed collaborators for the evaluation
// pipeline: a dataset keyed by patient ID, a partition source, and a
// prediction store standing in for live model inference.
//
// The on-disk layout under <root>/<year>/ is one directory per patient
// holding image stacks for each modality:
//
//	<root>/<year>/<patient>/flair/*.png   anatomical planes, scan order
//	<root>/<year>/<patient>/seg/*.png     ground-truth mask planes
//	<root>/<year>/partitions/train.txt    one patient ID per line
//	<root>/<year>/partitions/validation.txt
//	<root>/<year>/partitions/test.txt
//
// Planes are sorted by the numeric part of their filenames, so
// slice_000.png through slice_154.png stack in anatomical order.
package brats

import (
	"bufio"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ER-ALOK/BraTS18-Project/internal/models"
)

// DataSet is a keyed dataset of patient records loaded lazily from
// disk. Loaded records are cached until DropCache is called; the
// evaluator drops the cache after each patient to bound peak memory.
type DataSet struct {
	// dir is the resolved <root>/<year> directory
	dir string

	mu    sync.RWMutex
	cache map[string]*models.Patient
}

// NewDataSet opens the dataset for one challenge year under root.
// The root and year are explicit constructor arguments; nothing is
// read from ambient process state.
func NewDataSet(root string, year int) (*DataSet, error) {
	dir := filepath.Join(root, strconv.Itoa(year))
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("dataset directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dataset path %s is not a directory", dir)
	}
	return &DataSet{
		dir:   dir,
		cache: make(map[string]*models.Patient),
	}, nil
}

// Patient returns the record for one patient ID, loading it from disk
// on first access.
func (d *DataSet) Patient(ctx context.Context, id string) (*models.Patient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	p, ok := d.cache[id]
	d.mu.RUnlock()
	if ok {
		return p, nil
	}

	flair, err := loadStack(filepath.Join(d.dir, id, "flair"))
	if err != nil {
		return nil, fmt.Errorf("failed to load flair for patient %s: %w", id, err)
	}
	seg, err := loadStack(filepath.Join(d.dir, id, "seg"))
	if err != nil {
		return nil, fmt.Errorf("failed to load segmentation for patient %s: %w", id, err)
	}
	if !flair.SameShape(seg) {
		return nil, fmt.Errorf("patient %s: flair %dx%dx%d does not match segmentation %dx%dx%d",
			id, flair.Width, flair.Height, flair.Depth, seg.Width, seg.Height, seg.Depth)
	}

	p = &models.Patient{ID: id, Flair: flair, Seg: seg}
	d.mu.Lock()
	d.cache[id] = p
	d.mu.Unlock()
	return p, nil
}

// DropCache releases every cached patient record.
func (d *DataSet) DropCache() {
	d.mu.Lock()
	d.cache = make(map[string]*models.Patient)
	d.mu.Unlock()
}

// Partitions reads the three partition membership lists. Each file
// holds one patient ID per line; blank lines are skipped.
func (d *DataSet) Partitions() (train, validation, test models.Partition, err error) {
	dir := filepath.Join(d.dir, "partitions")
	train, err = loadPartition(dir, "train")
	if err != nil {
		return
	}
	validation, err = loadPartition(dir, "validation")
	if err != nil {
		return
	}
	test, err = loadPartition(dir, "test")
	return
}

func loadPartition(dir, name string) (models.Partition, error) {
	file, err := os.Open(filepath.Join(dir, name+".txt"))
	if err != nil {
		return models.Partition{}, fmt.Errorf("failed to read %s partition: %w", name, err)
	}
	defer file.Close()

	p := models.Partition{Name: name}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id != "" {
			p.IDs = append(p.IDs, id)
		}
	}
	if err := scanner.Err(); err != nil {
		return models.Partition{}, fmt.Errorf("failed to read %s partition: %w", name, err)
	}
	return p, nil
}

// loadStack loads a directory of 2D plane images into a volume,
// stacking planes along the scan axis in filename-number order.
func loadStack(dir string) (*models.Volume, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	// Filter and sort the plane images
	var planeFiles []string
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".png" || ext == ".jpg" || ext == ".jpeg" {
			planeFiles = append(planeFiles, entry.Name())
		}
	}
	if len(planeFiles) == 0 {
		return nil, fmt.Errorf("no plane images found in %s", dir)
	}

	// Sort by the numeric part of the filename so the planes stack in
	// anatomical order
	sort.Slice(planeFiles, func(i, j int) bool {
		return extractNumber(planeFiles[i]) < extractNumber(planeFiles[j])
	})

	var volume *models.Volume
	for z, filename := range planeFiles {
		img, err := loadImage(filepath.Join(dir, filename))
		if err != nil {
			return nil, fmt.Errorf("failed to load plane %s: %w", filename, err)
		}

		bounds := img.Bounds()
		if volume == nil {
			volume = models.NewVolume(bounds.Dx(), bounds.Dy(), len(planeFiles))
		} else if bounds.Dx() != volume.Width || bounds.Dy() != volume.Height {
			return nil, fmt.Errorf("plane %s is %dx%d, expected %dx%d",
				filename, bounds.Dx(), bounds.Dy(), volume.Width, volume.Height)
		}

		for y := 0; y < volume.Height; y++ {
			for x := 0; x < volume.Width; x++ {
				r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				// Convert 16-bit color to float64 (0-1 range)
				volume.Set(x, y, z, float64(r)/65535.0)
			}
		}
	}

	return volume, nil
}

// loadImage loads a single plane image from a file.
func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// extractNumber extracts the numeric part from a filename.
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	numStr := ""
	for _, c := range base {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}
	if numStr != "" {
		if num, err := strconv.Atoi(numStr); err == nil {
			return num
		}
	}
	return 0
}
