package models

import "fmt"

// Orientation names the anatomical plane a volume's axis order corresponds to.
// The tag is not stored inside the array; it is implied by where the volume lives.
type Orientation int

const (
	Axial Orientation = iota
	Coronal
	Sagittal
)

// String returns the lowercase plane name used in object keys and metadata
func (o Orientation) String() string {
	switch o {
	case Axial:
		return "axial"
	case Coronal:
		return "coronal"
	case Sagittal:
		return "sagittal"
	default:
		return fmt.Sprintf("orientation(%d)", int(o))
	}
}

// Volume represents one scan in one orientation
type Volume struct {
	// Data is the 3D voxel data as a 1D array in row-major order,
	// so the last axis varies fastest.
	Data []float64

	// Shape holds the size of each of the three axes
	Shape [3]int

	// Dtype is the numpy element type without byte-order mark (e.g. "f4", "i2").
	// Voxels are held as float64 in memory and written back in this type.
	Dtype string

	// Orientation is the plane this axis order represents
	Orientation Orientation
}

// Len returns the number of voxels implied by the shape
func (v *Volume) Len() int {
	return v.Shape[0] * v.Shape[1] * v.Shape[2]
}

// Index returns the flat offset of voxel (i, j, k)
func (v *Volume) Index(i, j, k int) int {
	return (i*v.Shape[1]+j)*v.Shape[2] + k
}

// At returns the voxel at (i, j, k)
func (v *Volume) At(i, j, k int) float64 {
	return v.Data[v.Index(i, j, k)]
}

// ShapeString formats the shape the way numpy prints it, e.g. "(4, 5, 6)"
func (v *Volume) ShapeString() string {
	return fmt.Sprintf("(%d, %d, %d)", v.Shape[0], v.Shape[1], v.Shape[2])
}
