// Package visualization renders side-by-side comparison figures for a
// single slice: the anatomical image with the ground-truth overlay on
// the left, and the same image with the predicted overlay on the right.
// Overlays use a diverging color map with the mask value as the alpha
// channel, so the anatomy shows through wherever the mask is zero.
package visualization

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ER-ALOK/BraTS18-Project/internal/models"
)

// ErrOutputExists indicates a render targeting an artifact path that is
// already occupied. Overwriting silently would hide a caller bug, so
// the render is refused instead.
var ErrOutputExists = errors.New("output artifact already exists")

// titleHeight is the pixel height of the label strip above each panel.
const titleHeight = 16

// panelGap is the pixel gap between the two panels.
const panelGap = 4

// rdYlBu holds the 11 color stops of the RdYlBu diverging color map,
// from red (low) through yellow to blue (high).
var rdYlBu = [11]color.NRGBA{
	{0xa5, 0x00, 0x26, 0xff},
	{0xd7, 0x30, 0x27, 0xff},
	{0xf4, 0x6d, 0x43, 0xff},
	{0xfd, 0xae, 0x61, 0xff},
	{0xfe, 0xe0, 0x90, 0xff},
	{0xff, 0xff, 0xbf, 0xff},
	{0xe0, 0xf3, 0xf8, 0xff},
	{0xab, 0xd9, 0xe9, 0xff},
	{0x74, 0xad, 0xd1, 0xff},
	{0x45, 0x75, 0xb4, 0xff},
	{0x31, 0x36, 0x95, 0xff},
}

// Composer writes comparison figures into a single output directory.
// Callers are responsible for supplying a unique (subject, slice) pair
// per render; a colliding artifact path is treated as a contract
// violation rather than overwritten.
type Composer struct {
	// outputDir is where the rendered artifacts are written
	outputDir string
}

// NewComposer creates a composer writing into outputDir, creating the
// directory if it is absent. A pre-existing directory is not an error.
func NewComposer(outputDir string) (*Composer, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Composer{outputDir: outputDir}, nil
}

// OutputDir returns the directory artifacts are written into.
func (c *Composer) OutputDir() string {
	return c.outputDir
}

// Render composes the comparison figure for one slice and writes it to
// <outputDir>/<subjectID>_<sliceIndex>.png. The anatomical plane and
// both binarized mask planes must share dimensions. Returns the written
// path, or ErrOutputExists if the artifact path is already occupied.
func (c *Composer) Render(anat, truth, pred *models.Plane, subjectID string, score float64, sliceIndex int) (string, error) {
	outPath := filepath.Join(c.outputDir, fmt.Sprintf("%s_%d.png", subjectID, sliceIndex))
	if _, err := os.Stat(outPath); err == nil {
		return "", fmt.Errorf("%w: %s", ErrOutputExists, outPath)
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check artifact path %s: %w", outPath, err)
	}

	if anat.Width != truth.Width || anat.Height != truth.Height ||
		anat.Width != pred.Width || anat.Height != pred.Height {
		return "", fmt.Errorf("panel planes disagree in shape: anatomy %dx%d, truth %dx%d, prediction %dx%d",
			anat.Width, anat.Height, truth.Width, truth.Height, pred.Width, pred.Height)
	}

	// Radiological orientation: transpose, then reverse the first
	// spatial axis (display = slice.T[::-1, :]).
	dAnat := orient(anat)
	dTruth := orient(truth)
	dPred := orient(pred)

	left := composePanel(dAnat, dTruth, fmt.Sprintf("Subject: %s", subjectID))
	right := composePanel(dAnat, dPred, fmt.Sprintf("Prediction, dice: %.4f", score))

	pw := left.Bounds().Dx()
	ph := left.Bounds().Dy()
	figure := image.NewRGBA(image.Rect(0, 0, pw*2+panelGap, ph))
	draw.Draw(figure, figure.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(figure, image.Rect(0, 0, pw, ph), left, image.Point{}, draw.Src)
	draw.Draw(figure, image.Rect(pw+panelGap, 0, pw*2+panelGap, ph), right, image.Point{}, draw.Src)

	file, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact %s: %w", outPath, err)
	}
	defer file.Close()

	if err := png.Encode(file, figure); err != nil {
		return "", fmt.Errorf("failed to encode artifact %s: %w", outPath, err)
	}
	return outPath, nil
}

// orient applies the display transform to a plane: transpose, then
// reverse the first spatial axis.
func orient(p *models.Plane) *models.Plane {
	// Transposed dimensions: rows become columns.
	out := &models.Plane{
		Data:   make([]float64, len(p.Data)),
		Width:  p.Height,
		Height: p.Width,
	}
	for y := 0; y < out.Height; y++ {
		// Row y of the transpose is column y of the input; reversing
		// the first axis reads the transposed rows bottom-up.
		src := out.Height - 1 - y
		for x := 0; x < out.Width; x++ {
			out.Data[y*out.Width+x] = p.At(src, x)
		}
	}
	return out
}

// composePanel draws one panel: a title strip, the grayscale anatomy,
// and the mask overlay alpha-blended on top.
func composePanel(anat, mask *models.Plane, title string) *image.RGBA {
	w := anat.Width
	h := anat.Height
	panel := image.NewRGBA(image.Rect(0, 0, w, h+titleHeight))
	draw.Draw(panel, panel.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	lo, hi := planeRange(anat)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := gray(anat.At(x, y), lo, hi)
			px := color.NRGBA{g, g, g, 0xff}

			// Alpha channel follows the mask value, so the anatomy is
			// untouched where the mask is zero.
			if m := clamp01(mask.At(x, y)); m > 0 {
				px = blend(px, mapColor(m), m)
			}
			panel.Set(x, y+titleHeight, px)
		}
	}

	d := &font.Drawer{
		Dst:  panel,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(2, titleHeight-4),
	}
	d.DrawString(title)

	return panel
}

// planeRange returns the min and max values of a plane.
func planeRange(p *models.Plane) (lo, hi float64) {
	lo, hi = p.Data[0], p.Data[0]
	for _, v := range p.Data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// gray maps a value within [lo, hi] to an 8-bit gray level.
func gray(v, lo, hi float64) uint8 {
	if hi <= lo {
		return 0
	}
	t := (v - lo) / (hi - lo)
	return uint8(clamp01(t) * 255)
}

// mapColor looks up a normalized value in the diverging color map with
// linear interpolation between stops.
func mapColor(t float64) color.NRGBA {
	t = clamp01(t)
	pos := t * float64(len(rdYlBu)-1)
	i := int(pos)
	if i >= len(rdYlBu)-1 {
		return rdYlBu[len(rdYlBu)-1]
	}
	frac := pos - float64(i)
	a := rdYlBu[i]
	b := rdYlBu[i+1]
	return color.NRGBA{
		R: lerp(a.R, b.R, frac),
		G: lerp(a.G, b.G, frac),
		B: lerp(a.B, b.B, frac),
		A: 0xff,
	}
}

// blend mixes the overlay color into the base pixel at the given alpha.
func blend(base, overlay color.NRGBA, alpha float64) color.NRGBA {
	return color.NRGBA{
		R: uint8(float64(base.R)*(1-alpha) + float64(overlay.R)*alpha),
		G: uint8(float64(base.G)*(1-alpha) + float64(overlay.G)*alpha),
		B: uint8(float64(base.B)*(1-alpha) + float64(overlay.B)*alpha),
		A: 0xff,
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a)*(1-t) + float64(b)*t)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
