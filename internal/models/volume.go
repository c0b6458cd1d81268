package models

// Volume represents a 3D imaging volume for one modality of one subject.
// Data is stored as a 1D array in row-major order: the voxel at (x, y, z)
// lives at index z*Width*Height + y*Width + x, with z indexing the scan
// axis (the last axis). Values are raw intensities for anatomical
// modalities, confidence scores for model output, or 0/1 for binarized
// segmentation masks.
type Volume struct {
	// Data is the 3D volume data as a 1D array in row-major order
	Data []float64

	// Width is the width of the volume in voxels
	Width int

	// Height is the height of the volume in voxels
	Height int

	// Depth is the number of planes along the scan axis
	Depth int
}

// NewVolume allocates a zero-filled volume with the given dimensions.
func NewVolume(width, height, depth int) *Volume {
	return &Volume{
		Data:   make([]float64, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
}

// At returns the voxel value at (x, y, z).
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[z*v.Width*v.Height+y*v.Width+x]
}

// Set assigns the voxel value at (x, y, z).
func (v *Volume) Set(x, y, z int, value float64) {
	v.Data[z*v.Width*v.Height+y*v.Width+x] = value
}

// Dims returns the volume dimensions as (width, height, depth).
func (v *Volume) Dims() (int, int, int) {
	return v.Width, v.Height, v.Depth
}

// SameShape reports whether two volumes have identical dimensions.
func (v *Volume) SameShape(other *Volume) bool {
	return v.Width == other.Width && v.Height == other.Height && v.Depth == other.Depth
}

// Clone returns a deep copy of the volume.
func (v *Volume) Clone() *Volume {
	out := &Volume{
		Data:   make([]float64, len(v.Data)),
		Width:  v.Width,
		Height: v.Height,
		Depth:  v.Depth,
	}
	copy(out.Data, v.Data)
	return out
}

// CropLeading returns a new volume with the first n planes along the
// scan axis removed. The same crop must be applied to the model input
// and to the ground truth so that plane indices stay aligned.
func (v *Volume) CropLeading(n int) *Volume {
	if n <= 0 {
		return v.Clone()
	}
	if n >= v.Depth {
		return NewVolume(v.Width, v.Height, 0)
	}

	planeSize := v.Width * v.Height
	out := &Volume{
		Data:   make([]float64, planeSize*(v.Depth-n)),
		Width:  v.Width,
		Height: v.Height,
		Depth:  v.Depth - n,
	}
	copy(out.Data, v.Data[n*planeSize:])
	return out
}

// Plane represents a single 2D plane extracted from a volume,
// stored row-major: the pixel at (x, y) lives at index y*Width + x.
type Plane struct {
	Data   []float64
	Width  int
	Height int
}

// PlaneAt extracts the 2D plane at index z along the scan axis.
// The returned plane shares no storage with the volume.
func (v *Volume) PlaneAt(z int) *Plane {
	planeSize := v.Width * v.Height
	p := &Plane{
		Data:   make([]float64, planeSize),
		Width:  v.Width,
		Height: v.Height,
	}
	copy(p.Data, v.Data[z*planeSize:(z+1)*planeSize])
	return p
}

// At returns the pixel value at (x, y).
func (p *Plane) At(x, y int) float64 {
	return p.Data[y*p.Width+x]
}
