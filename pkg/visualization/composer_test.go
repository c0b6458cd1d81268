package visualization

import (
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ER-ALOK/BraTS18-Project/internal/models"
)

// planeFrom builds a plane with the given dimensions and values
func planeFrom(width, height int, values []float64) *models.Plane {
	p := &models.Plane{
		Data:   make([]float64, width*height),
		Width:  width,
		Height: height,
	}
	copy(p.Data, values)
	return p
}

// TestOrient verifies the display transform on an asymmetric fixture:
// transpose, then reverse the first spatial axis
func TestOrient(t *testing.T) {
	// 3 wide, 2 tall: rows [1 2 3] and [4 5 6]
	p := planeFrom(3, 2, []float64{1, 2, 3, 4, 5, 6})

	d := orient(p)

	if d.Width != 2 || d.Height != 3 {
		t.Fatalf("Expected 2x3 display plane, got %dx%d", d.Width, d.Height)
	}

	// Transpose is [[1 4] [2 5] [3 6]]; reversing the first axis
	// gives [[3 6] [2 5] [1 4]]
	expected := []float64{3, 6, 2, 5, 1, 4}
	for i, want := range expected {
		if d.Data[i] != want {
			t.Errorf("Expected display data %v, got %v", expected, d.Data)
			break
		}
	}
}

// TestComposePanelBackgroundUntouched verifies that a zero mask leaves
// the anatomy pixels unchanged
func TestComposePanelBackgroundUntouched(t *testing.T) {
	anat := planeFrom(2, 2, []float64{0, 0.25, 0.5, 1})
	mask := planeFrom(2, 2, []float64{0, 0, 0, 0})

	panel := composePanel(anat, mask, "test")

	for y := 0; y < anat.Height; y++ {
		for x := 0; x < anat.Width; x++ {
			lo, hi := planeRange(anat)
			g := gray(anat.At(x, y), lo, hi)
			r, gr, b, _ := panel.At(x, y+titleHeight).RGBA()
			if uint8(r>>8) != g || uint8(gr>>8) != g || uint8(b>>8) != g {
				t.Errorf("Pixel (%d, %d) altered by a zero mask: got %d/%d/%d, expected gray %d",
					x, y, r>>8, gr>>8, b>>8, g)
			}
		}
	}
}

// TestRenderWritesArtifact verifies the composed figure is written with
// the expected name and dimensions
func TestRenderWritesArtifact(t *testing.T) {
	dir := t.TempDir()
	composer, err := NewComposer(dir)
	if err != nil {
		t.Fatalf("Failed to create composer: %v", err)
	}

	anat := planeFrom(4, 3, []float64{
		0.1, 0.2, 0.3, 0.4,
		0.5, 0.6, 0.7, 0.8,
		0.9, 1.0, 0.9, 0.8,
	})
	truth := planeFrom(4, 3, []float64{0, 1, 0, 0, 0, 1, 1, 0, 0, 0, 0, 0})
	pred := planeFrom(4, 3, []float64{0, 1, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0})

	outPath, err := composer.Render(anat, truth, pred, "Brats18_CBICA_1", 0.87, 42)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	expectedPath := filepath.Join(dir, "Brats18_CBICA_1_42.png")
	if outPath != expectedPath {
		t.Errorf("Expected artifact path %s, got %s", expectedPath, outPath)
	}

	file, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("Artifact not written: %v", err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		t.Fatalf("Artifact is not a valid PNG: %v", err)
	}

	// Each panel is the transposed plane (3 wide, 4 tall) plus the
	// title strip; the figure holds two panels and the gap
	expectedWidth := 3*2 + panelGap
	expectedHeight := 4 + titleHeight
	if img.Bounds().Dx() != expectedWidth || img.Bounds().Dy() != expectedHeight {
		t.Errorf("Expected %dx%d figure, got %dx%d",
			expectedWidth, expectedHeight, img.Bounds().Dx(), img.Bounds().Dy())
	}
}

// TestRenderCollision verifies that a second render to the same
// (subject, slice) pair is refused rather than overwritten
func TestRenderCollision(t *testing.T) {
	dir := t.TempDir()
	composer, err := NewComposer(dir)
	if err != nil {
		t.Fatalf("Failed to create composer: %v", err)
	}

	anat := planeFrom(2, 2, []float64{0.1, 0.2, 0.3, 0.4})
	mask := planeFrom(2, 2, []float64{0, 1, 1, 0})

	if _, err := composer.Render(anat, mask, mask, "subject", 0.5, 1); err != nil {
		t.Fatalf("First render failed: %v", err)
	}

	_, err = composer.Render(anat, mask, mask, "subject", 0.5, 1)
	if !errors.Is(err, ErrOutputExists) {
		t.Errorf("Expected ErrOutputExists on second render, got %v", err)
	}
}

// TestRenderShapeDisagreement verifies mismatched panel planes are rejected
func TestRenderShapeDisagreement(t *testing.T) {
	dir := t.TempDir()
	composer, err := NewComposer(dir)
	if err != nil {
		t.Fatalf("Failed to create composer: %v", err)
	}

	anat := planeFrom(2, 2, []float64{0.1, 0.2, 0.3, 0.4})
	small := planeFrom(1, 2, []float64{1, 0})

	if _, err := composer.Render(anat, small, small, "subject", 0.5, 0); err == nil {
		t.Error("Expected an error for mismatched plane shapes")
	}
}

// TestNewComposerExistingDirectory verifies that a pre-existing output
// directory is not an error
func TestNewComposerExistingDirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewComposer(dir); err != nil {
		t.Fatalf("First composer failed: %v", err)
	}
	if _, err := NewComposer(dir); err != nil {
		t.Errorf("Expected existing directory to be accepted, got %v", err)
	}
}

// TestComposerOutputDir verifies the composer reports where it writes
func TestComposerOutputDir(t *testing.T) {
	dir := t.TempDir()
	composer, err := NewComposer(dir)
	if err != nil {
		t.Fatalf("Failed to create composer: %v", err)
	}
	if composer.OutputDir() != dir {
		t.Errorf("Expected output directory %s, got %s", dir, composer.OutputDir())
	}
}
