// Package npy reads and writes volumes in the numpy .npy format.
package npy

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/kshedden/gonpy"

	"mrireorient/internal/models"
	"mrireorient/pkg/reorient"
)

// nopCloser lets gonpy close its writer without touching the buffer
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// normalizeDtype strips the byte-order mark from a numpy descr ("<f8" -> "f8")
func normalizeDtype(d string) string {
	return strings.TrimLeft(d, "<>|=")
}

// Decode reads a 3D .npy array into a row-major volume.
// Fortran-ordered arrays are reordered so the last axis varies fastest.
func Decode(r io.Reader) (*models.Volume, error) {
	rdr, err := gonpy.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read npy header: %w", err)
	}
	if len(rdr.Shape) != 3 {
		return nil, fmt.Errorf("%w: expected 3 dimensions, got %d", reorient.ErrInvalidShape, len(rdr.Shape))
	}

	dtype := normalizeDtype(rdr.Dtype)
	data, err := readData(rdr, dtype)
	if err != nil {
		return nil, err
	}

	v, err := reorient.FromShape(rdr.Shape, data, dtype)
	if err != nil {
		return nil, err
	}
	if rdr.ColumnMajor {
		v.Data = fromColumnMajor(v.Data, v.Shape)
	}
	return v, nil
}

func readData(rdr *gonpy.NpyReader, dtype string) ([]float64, error) {
	switch dtype {
	case "f8":
		return rdr.GetFloat64()
	case "f4":
		d, err := rdr.GetFloat32()
		return widen(d, err)
	case "i1":
		d, err := rdr.GetInt8()
		return widen(d, err)
	case "i2":
		d, err := rdr.GetInt16()
		return widen(d, err)
	case "i4":
		d, err := rdr.GetInt32()
		return widen(d, err)
	case "i8":
		d, err := rdr.GetInt64()
		return widen(d, err)
	case "u1":
		d, err := rdr.GetUint8()
		return widen(d, err)
	case "u2":
		d, err := rdr.GetUint16()
		return widen(d, err)
	case "u4":
		d, err := rdr.GetUint32()
		return widen(d, err)
	case "u8":
		d, err := rdr.GetUint64()
		return widen(d, err)
	default:
		return nil, fmt.Errorf("unsupported npy dtype %q", dtype)
	}
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32
}

func widen[T number](in []T, err error) ([]float64, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to read npy data: %w", err)
	}
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = float64(x)
	}
	return out, nil
}

func narrow[T number](in []float64) []T {
	out := make([]T, len(in))
	for i, x := range in {
		out[i] = T(x)
	}
	return out
}

// fromColumnMajor reorders Fortran-ordered data, where the first axis varies fastest
func fromColumnMajor(in []float64, shape [3]int) []float64 {
	out := make([]float64, len(in))
	n0, n1, n2 := shape[0], shape[1], shape[2]
	for i := 0; i < n0; i++ {
		for j := 0; j < n1; j++ {
			for k := 0; k < n2; k++ {
				out[(i*n1+j)*n2+k] = in[i+n0*(j+n1*k)]
			}
		}
	}
	return out
}

// Encode writes v as a row-major .npy array in its own dtype.
// A volume without a dtype is written as float64.
func Encode(v *models.Volume) ([]byte, error) {
	if err := reorient.Validate(v); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	wtr, err := gonpy.NewWriter(nopCloser{&buf})
	if err != nil {
		return nil, fmt.Errorf("failed to create npy writer: %w", err)
	}
	wtr.Shape = []int{v.Shape[0], v.Shape[1], v.Shape[2]}

	switch normalizeDtype(v.Dtype) {
	case "f8", "":
		err = wtr.WriteFloat64(v.Data)
	case "f4":
		err = wtr.WriteFloat32(narrow[float32](v.Data))
	case "i1":
		err = wtr.WriteInt8(narrow[int8](v.Data))
	case "i2":
		err = wtr.WriteInt16(narrow[int16](v.Data))
	case "i4":
		err = wtr.WriteInt32(narrow[int32](v.Data))
	case "i8":
		err = wtr.WriteInt64(narrow[int64](v.Data))
	case "u1":
		err = wtr.WriteUint8(narrow[uint8](v.Data))
	case "u2":
		err = wtr.WriteUint16(narrow[uint16](v.Data))
	case "u4":
		err = wtr.WriteUint32(narrow[uint32](v.Data))
	case "u8":
		err = wtr.WriteUint64(narrow[uint64](v.Data))
	default:
		return nil, fmt.Errorf("unsupported npy dtype %q", v.Dtype)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write npy data: %w", err)
	}
	return buf.Bytes(), nil
}
