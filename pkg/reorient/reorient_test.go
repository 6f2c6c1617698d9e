package reorient

import (
	"errors"
	"sort"
	"testing"

	"mrireorient/internal/models"
)

// createTestVolume builds an axial volume where every voxel holds a unique value
func createTestVolume(x, y, z int) *models.Volume {
	data := make([]float64, x*y*z)
	for i := 0; i < x; i++ {
		for j := 0; j < y; j++ {
			for k := 0; k < z; k++ {
				data[(i*y+j)*z+k] = float64(i*10000 + j*100 + k)
			}
		}
	}
	return &models.Volume{Data: data, Shape: [3]int{x, y, z}, Dtype: "f8"}
}

// TestReorientShapes verifies the coronal and sagittal shapes and tags
func TestReorientShapes(t *testing.T) {
	axial := createTestVolume(4, 5, 6)

	coronal, sagittal, err := Reorient(axial)
	if err != nil {
		t.Fatalf("Reorient failed: %v", err)
	}

	if coronal.Shape != [3]int{5, 4, 6} {
		t.Errorf("Expected coronal shape (5, 4, 6), got %s", coronal.ShapeString())
	}
	if sagittal.Shape != [3]int{6, 4, 5} {
		t.Errorf("Expected sagittal shape (6, 4, 5), got %s", sagittal.ShapeString())
	}
	if coronal.Orientation != models.Coronal {
		t.Errorf("Expected coronal orientation, got %v", coronal.Orientation)
	}
	if sagittal.Orientation != models.Sagittal {
		t.Errorf("Expected sagittal orientation, got %v", sagittal.Orientation)
	}
	if coronal.Dtype != "f8" || sagittal.Dtype != "f8" {
		t.Errorf("Expected dtype to be carried through, got %q and %q", coronal.Dtype, sagittal.Dtype)
	}
}

// TestReorientVoxelPlacement verifies where every axial voxel lands in both views
func TestReorientVoxelPlacement(t *testing.T) {
	x, y, z := 3, 4, 5
	axial := createTestVolume(x, y, z)

	coronal, sagittal, err := Reorient(axial)
	if err != nil {
		t.Fatalf("Reorient failed: %v", err)
	}

	for i := 0; i < x; i++ {
		for j := 0; j < y; j++ {
			for k := 0; k < z; k++ {
				want := axial.At(i, j, k)
				if got := coronal.At(j, x-1-i, k); got != want {
					t.Fatalf("coronal[%d][%d][%d]: expected %v, got %v", j, x-1-i, k, want, got)
				}
				if got := sagittal.At(k, x-1-i, j); got != want {
					t.Fatalf("sagittal[%d][%d][%d]: expected %v, got %v", k, x-1-i, j, want, got)
				}
			}
		}
	}
}

// TestReorientConservesValues verifies that no voxel value is added or lost
func TestReorientConservesValues(t *testing.T) {
	axial := createTestVolume(2, 3, 7)
	coronal, sagittal, err := Reorient(axial)
	if err != nil {
		t.Fatalf("Reorient failed: %v", err)
	}

	src := append([]float64(nil), axial.Data...)
	sort.Float64s(src)
	for _, v := range []*models.Volume{coronal, sagittal} {
		if len(v.Data) != len(axial.Data) {
			t.Fatalf("Expected %d voxels, got %d", len(axial.Data), len(v.Data))
		}
		got := append([]float64(nil), v.Data...)
		sort.Float64s(got)
		for i := range src {
			if src[i] != got[i] {
				t.Fatalf("%v view lost value %v", v.Orientation, src[i])
			}
		}
	}
}

// TestReorientDoesNotMutateInput verifies that the axial volume is left untouched
func TestReorientDoesNotMutateInput(t *testing.T) {
	axial := createTestVolume(3, 3, 3)
	before := append([]float64(nil), axial.Data...)
	if _, _, err := Reorient(axial); err != nil {
		t.Fatalf("Reorient failed: %v", err)
	}
	for i := range before {
		if axial.Data[i] != before[i] {
			t.Fatalf("input modified at %d", i)
		}
	}
}

// TestPermuteRoundTrip verifies that the inverse permutation restores the input
func TestPermuteRoundTrip(t *testing.T) {
	axial := createTestVolume(4, 5, 6)
	for _, perm := range [][3]int{CoronalPerm, SagittalPerm, {0, 2, 1}, {0, 1, 2}} {
		p, err := PermuteAxes(axial, perm)
		if err != nil {
			t.Fatalf("PermuteAxes(%v) failed: %v", perm, err)
		}
		back, err := PermuteAxes(p, Inverse(perm))
		if err != nil {
			t.Fatalf("inverse PermuteAxes(%v) failed: %v", perm, err)
		}
		if back.Shape != axial.Shape {
			t.Fatalf("Expected shape %s after round trip, got %s", axial.ShapeString(), back.ShapeString())
		}
		for i := range axial.Data {
			if back.Data[i] != axial.Data[i] {
				t.Fatalf("round trip of %v differs at %d", perm, i)
			}
		}
	}
}

// TestMirrorAxis1IsInvolution verifies that mirroring twice is the identity
func TestMirrorAxis1IsInvolution(t *testing.T) {
	v := createTestVolume(3, 4, 2)
	twice := MirrorAxis1(MirrorAxis1(v))
	for i := range v.Data {
		if twice.Data[i] != v.Data[i] {
			t.Fatalf("double mirror differs at %d", i)
		}
	}
	once := MirrorAxis1(v)
	if once.At(1, 0, 1) != v.At(1, 3, 1) {
		t.Errorf("Expected mirrored voxel %v, got %v", v.At(1, 3, 1), once.At(1, 0, 1))
	}
}

// TestPermuteAxesRejectsBadPermutation verifies that non-permutations are rejected
func TestPermuteAxesRejectsBadPermutation(t *testing.T) {
	v := createTestVolume(2, 2, 2)
	for _, perm := range [][3]int{{0, 0, 1}, {1, 2, 3}, {-1, 0, 1}} {
		if _, err := PermuteAxes(v, perm); err == nil {
			t.Errorf("Expected error for permutation %v", perm)
		}
	}
}

// TestInvalidShape verifies that malformed shapes fail with ErrInvalidShape
func TestInvalidShape(t *testing.T) {
	tests := []struct {
		name  string
		shape []int
		data  []float64
	}{
		{"two dims", []int{2, 2}, make([]float64, 4)},
		{"four dims", []int{1, 2, 2, 1}, make([]float64, 4)},
		{"zero axis", []int{2, 0, 2}, nil},
		{"length mismatch", []int{2, 2, 2}, make([]float64, 7)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromShape(tc.shape, tc.data, "f8")
			if !errors.Is(err, ErrInvalidShape) {
				t.Errorf("Expected ErrInvalidShape, got %v", err)
			}
		})
	}

	bad := &models.Volume{Data: make([]float64, 3), Shape: [3]int{2, 2, 2}}
	if _, _, err := Reorient(bad); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("Expected ErrInvalidShape from Reorient, got %v", err)
	}
}
