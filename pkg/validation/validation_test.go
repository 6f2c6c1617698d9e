package validation

import (
	"math"
	"testing"

	"mrireorient/internal/models"
	"mrireorient/pkg/reorient"
)

// TestSummarize verifies the intensity statistics of a small volume
func TestSummarize(t *testing.T) {
	v := &models.Volume{Data: []float64{1, 2, 3, 4, 5, 6, 7, 8}, Shape: [3]int{2, 2, 2}}
	s := Summarize(v)

	if s.Voxels != 8 {
		t.Errorf("Expected 8 voxels, got %d", s.Voxels)
	}
	if s.Min != 1 || s.Max != 8 {
		t.Errorf("Expected range [1, 8], got [%v, %v]", s.Min, s.Max)
	}
	if math.Abs(s.Mean-4.5) > 1e-12 {
		t.Errorf("Expected mean 4.5, got %v", s.Mean)
	}
	// Sample standard deviation of 1..8
	if math.Abs(s.StdDev-2.449489742783178) > 1e-9 {
		t.Errorf("Expected std 2.4495, got %v", s.StdDev)
	}
}

// TestCheckConservation verifies that reoriented views pass and altered volumes fail
func TestCheckConservation(t *testing.T) {
	data := make([]float64, 3*4*5)
	for i := range data {
		data[i] = float64(i % 7)
	}
	axial := &models.Volume{Data: data, Shape: [3]int{3, 4, 5}}

	coronal, sagittal, err := reorient.Reorient(axial)
	if err != nil {
		t.Fatalf("Reorient failed: %v", err)
	}
	if err := CheckConservation(axial, coronal); err != nil {
		t.Errorf("Expected coronal to conserve voxels, got %v", err)
	}
	if err := CheckConservation(axial, sagittal); err != nil {
		t.Errorf("Expected sagittal to conserve voxels, got %v", err)
	}

	broken := &models.Volume{Data: append([]float64(nil), coronal.Data...), Shape: coronal.Shape}
	broken.Data[0] = 99
	if err := CheckConservation(axial, broken); err == nil {
		t.Error("Expected error for altered voxel")
	}

	short := &models.Volume{Data: data[:10], Shape: [3]int{1, 2, 5}}
	if err := CheckConservation(axial, short); err == nil {
		t.Error("Expected error for dropped voxels")
	}
}

// TestCheckConservationNaN verifies that NaN voxels do not break the check
func TestCheckConservationNaN(t *testing.T) {
	v := &models.Volume{
		Data:  []float64{1, math.NaN(), 3, 4, 5, 6, 7, 8},
		Shape: [3]int{2, 2, 2},
		Dtype: "f4",
	}
	if err := CheckConservation(v, v); err != nil {
		t.Errorf("Expected volume to conserve itself, got %v", err)
	}

	coronal, sagittal, err := reorient.Reorient(v)
	if err != nil {
		t.Fatalf("Reorient failed: %v", err)
	}
	if err := CheckConservation(v, coronal); err != nil {
		t.Errorf("Expected coronal to conserve NaN voxels, got %v", err)
	}
	if err := CheckConservation(v, sagittal); err != nil {
		t.Errorf("Expected sagittal to conserve NaN voxels, got %v", err)
	}

	// A NaN replacing a real value is still a change.
	altered := &models.Volume{Data: append([]float64(nil), coronal.Data...), Shape: coronal.Shape}
	for i, x := range altered.Data {
		if x == 8 {
			altered.Data[i] = math.NaN()
		}
	}
	if err := CheckConservation(v, altered); err == nil {
		t.Error("Expected error when a voxel is replaced by NaN")
	}
}
