// Package validation summarises volumes and checks that a derived volume is a
// rearrangement of its source.
package validation

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"mrireorient/internal/models"
)

// Summary holds intensity statistics of one volume
type Summary struct {
	Voxels int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

func (s Summary) String() string {
	return fmt.Sprintf("voxels=%d min=%g max=%g mean=%.4g std=%.4g",
		s.Voxels, s.Min, s.Max, s.Mean, s.StdDev)
}

// Summarize computes intensity statistics of v
func Summarize(v *models.Volume) Summary {
	if len(v.Data) == 0 {
		return Summary{}
	}
	mean, std := stat.MeanStdDev(v.Data, nil)
	return Summary{
		Voxels: len(v.Data),
		Min:    floats.Min(v.Data),
		Max:    floats.Max(v.Data),
		Mean:   mean,
		StdDev: std,
	}
}

// CheckConservation returns an error unless derived holds exactly the voxel
// values of src, each the same number of times. NaN voxels match each other.
func CheckConservation(src, derived *models.Volume) error {
	if len(src.Data) != len(derived.Data) {
		return fmt.Errorf("voxel count changed from %d to %d", len(src.Data), len(derived.Data))
	}
	if src.Len() != derived.Len() {
		return fmt.Errorf("shape %s does not conserve %s", derived.ShapeString(), src.ShapeString())
	}

	a := append([]float64(nil), src.Data...)
	b := append([]float64(nil), derived.Data...)
	sort.Float64s(a)
	sort.Float64s(b)
	// sort.Float64s orders NaNs first, so matching NaNs line up.
	if !floats.Same(a, b) {
		return fmt.Errorf("%v volume does not hold the source voxel values", derived.Orientation)
	}
	return nil
}
