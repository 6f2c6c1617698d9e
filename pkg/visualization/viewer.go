package visualization

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	"gonum.org/v1/gonum/floats"

	"mrireorient/internal/models"
)

// Viewer extracts 2D planes from a volume for quick visual checks of orientation
type Viewer struct {
	// volume holds the voxel data being viewed
	volume *models.Volume

	// lo and hi are the intensity range mapped to black and white
	lo, hi float64
}

// NewViewer creates a viewer whose grey levels span the volume's intensity range
func NewViewer(v *models.Volume) *Viewer {
	vw := &Viewer{volume: v}
	if len(v.Data) > 0 {
		vw.lo = floats.Min(v.Data)
		vw.hi = floats.Max(v.Data)
	}
	return vw
}

func (vw *Viewer) gray(value float64) color.Gray16 {
	if vw.hi <= vw.lo {
		return color.Gray16{Y: 0}
	}
	norm := (value - vw.lo) / (vw.hi - vw.lo)
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, norm*65535)))}
}

// ExtractSlice extracts the plane at position along axis 0, the leading axis of
// the volume's orientation. Rows follow axis 1 and columns follow axis 2.
func (vw *Viewer) ExtractSlice(position int) (image.Image, error) {
	v := vw.volume
	if position < 0 || position >= v.Shape[0] {
		return nil, fmt.Errorf("position %d outside [0, %d)", position, v.Shape[0])
	}

	rows, cols := v.Shape[1], v.Shape[2]
	img := image.NewGray16(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			img.SetGray16(x, y, vw.gray(v.At(position, y, x)))
		}
	}
	return img, nil
}

// MiddleSlice extracts the central plane along axis 0
func (vw *Viewer) MiddleSlice() (image.Image, error) {
	return vw.ExtractSlice(vw.volume.Shape[0] / 2)
}

// EncodeJPEG encodes img as a JPEG
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// Preview renders the middle slice of v as JPEG bytes
func Preview(v *models.Volume) ([]byte, error) {
	img, err := NewViewer(v).MiddleSlice()
	if err != nil {
		return nil, err
	}
	return EncodeJPEG(img)
}
