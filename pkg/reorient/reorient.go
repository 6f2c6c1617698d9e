// Package reorient derives coronal and sagittal views from an axial volume.
// Every operation is a pure reindexing: voxel values are never altered and the
// input volume is never modified.
package reorient

import (
	"errors"
	"fmt"

	"mrireorient/internal/models"
)

// ErrInvalidShape is returned when an array is not a well-formed 3D volume
var ErrInvalidShape = errors.New("invalid shape")

var (
	// CoronalPerm maps axial (X, Y, Z) to coronal (Y, X, Z)
	CoronalPerm = [3]int{1, 0, 2}

	// SagittalPerm maps axial (X, Y, Z) to sagittal (Z, X, Y)
	SagittalPerm = [3]int{2, 0, 1}
)

// FromShape builds a volume from a dynamic shape and flat row-major data
func FromShape(shape []int, data []float64, dtype string) (*models.Volume, error) {
	if len(shape) != 3 {
		return nil, fmt.Errorf("%w: expected 3 dimensions, got %d", ErrInvalidShape, len(shape))
	}
	v := &models.Volume{
		Data:  data,
		Shape: [3]int{shape[0], shape[1], shape[2]},
		Dtype: dtype,
	}
	if err := Validate(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate checks that every dimension is positive and the data length matches the shape
func Validate(v *models.Volume) error {
	if v == nil {
		return fmt.Errorf("%w: nil volume", ErrInvalidShape)
	}
	for axis, n := range v.Shape {
		if n <= 0 {
			return fmt.Errorf("%w: axis %d has size %d", ErrInvalidShape, axis, n)
		}
	}
	if len(v.Data) != v.Len() {
		return fmt.Errorf("%w: shape %s needs %d voxels, got %d",
			ErrInvalidShape, v.ShapeString(), v.Len(), len(v.Data))
	}
	return nil
}

func checkPerm(perm [3]int) error {
	var seen [3]bool
	for _, p := range perm {
		if p < 0 || p > 2 || seen[p] {
			return fmt.Errorf("not a permutation of (0, 1, 2): %v", perm)
		}
		seen[p] = true
	}
	return nil
}

// Inverse returns the permutation that undoes perm
func Inverse(perm [3]int) [3]int {
	var inv [3]int
	for i, p := range perm {
		inv[p] = i
	}
	return inv
}

// PermuteAxes reorders the axes of v. Axis i of the result reads from axis perm[i]
// of the input, so out[a0][a1][a2] = in[b] where b[perm[i]] = a[i].
func PermuteAxes(v *models.Volume, perm [3]int) (*models.Volume, error) {
	if err := checkPerm(perm); err != nil {
		return nil, err
	}
	if err := Validate(v); err != nil {
		return nil, err
	}

	var shape [3]int
	for i, p := range perm {
		shape[i] = v.Shape[p]
	}

	// Input strides, picked up in output axis order.
	inStrides := [3]int{v.Shape[1] * v.Shape[2], v.Shape[2], 1}
	s0, s1, s2 := inStrides[perm[0]], inStrides[perm[1]], inStrides[perm[2]]

	out := make([]float64, len(v.Data))
	idx := 0
	for a := 0; a < shape[0]; a++ {
		for b := 0; b < shape[1]; b++ {
			base := a*s0 + b*s1
			for c := 0; c < shape[2]; c++ {
				out[idx] = v.Data[base+c*s2]
				idx++
			}
		}
	}

	return &models.Volume{
		Data:        out,
		Shape:       shape,
		Dtype:       v.Dtype,
		Orientation: v.Orientation,
	}, nil
}

// MirrorAxis1 reverses the order of elements along the second axis, the
// left-right flip in the reoriented frame.
func MirrorAxis1(v *models.Volume) *models.Volume {
	n0, n1, n2 := v.Shape[0], v.Shape[1], v.Shape[2]
	out := make([]float64, len(v.Data))
	for i := 0; i < n0; i++ {
		for j := 0; j < n1; j++ {
			src := (i*n1 + (n1 - 1 - j)) * n2
			dst := (i*n1 + j) * n2
			copy(out[dst:dst+n2], v.Data[src:src+n2])
		}
	}
	return &models.Volume{
		Data:        out,
		Shape:       v.Shape,
		Dtype:       v.Dtype,
		Orientation: v.Orientation,
	}
}

func derive(axial *models.Volume, perm [3]int, o models.Orientation) (*models.Volume, error) {
	p, err := PermuteAxes(axial, perm)
	if err != nil {
		return nil, err
	}
	out := MirrorAxis1(p)
	out.Orientation = o
	return out, nil
}

// ToCoronal returns the coronal view of an axial volume of shape (X, Y, Z),
// which has shape (Y, X, Z).
func ToCoronal(axial *models.Volume) (*models.Volume, error) {
	return derive(axial, CoronalPerm, models.Coronal)
}

// ToSagittal returns the sagittal view of an axial volume of shape (X, Y, Z),
// which has shape (Z, X, Y).
func ToSagittal(axial *models.Volume) (*models.Volume, error) {
	return derive(axial, SagittalPerm, models.Sagittal)
}

// Reorient derives both views from one axial volume
func Reorient(axial *models.Volume) (coronal, sagittal *models.Volume, err error) {
	if coronal, err = ToCoronal(axial); err != nil {
		return nil, nil, err
	}
	if sagittal, err = ToSagittal(axial); err != nil {
		return nil, nil, err
	}
	return coronal, sagittal, nil
}
