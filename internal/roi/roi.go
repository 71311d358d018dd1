// Package roi reads ROI masks to report which labels they carry.
//
// Only little-endian single-file NIfTI-1 (.nii, .nii.gz) is read. The nifti
// reader decodes voxels by width alone, so integer datatypes are reinterpreted
// here from the header's datatype code; 64-bit integer volumes are rejected.
package roi

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/henghuang/nifti"
)

var (
	ErrUnsupportedFormat   = errors.New("roi: unsupported image format")
	ErrInvalidHeader       = errors.New("roi: invalid nifti header")
	ErrUnsupportedDatatype = errors.New("roi: unsupported voxel datatype")
	ErrTruncatedData       = errors.New("roi: voxel data shorter than header dims")
)

const niftiHeaderSize = 348

// Labels is the sorted set of distinct nonzero values in a mask.
type Labels []float64

func (l Labels) Count() int {
	return len(l)
}

// IsBinary reports a mask holding only 0 and 1.
func (l Labels) IsBinary() bool {
	return len(l) == 1 && l[0] == 1
}

func (l Labels) String() string {
	parts := make([]string, 0, len(l))
	for _, v := range l {
		parts = append(parts, fmt.Sprintf("%g", v))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// IsNIfTI reports whether path names a NIfTI-1 file this package can read.
func IsNIfTI(path string) bool {
	return strings.HasSuffix(path, ".nii") || strings.HasSuffix(path, ".nii.gz")
}

// Inspect loads a NIfTI mask and returns its distinct nonzero labels.
func Inspect(path string) (Labels, error) {
	if !IsNIfTI(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("roi: %w", err)
	}
	header, err := safelyReadHeader(path)
	if err != nil {
		return nil, fmt.Errorf("roi: read header %s: %w", path, err)
	}
	decode, err := voxelDecoder(header)
	if err != nil {
		return nil, fmt.Errorf("roi: %s: %w", path, err)
	}
	img, err := safelyLoad(path)
	if err != nil {
		return nil, fmt.Errorf("roi: load %s: %w", path, err)
	}
	labels, err := safelyCollect(&img, decode)
	if err != nil {
		return nil, fmt.Errorf("roi: read voxels %s: %w", path, err)
	}
	return labels, nil
}

func checkHeader(h nifti.Nifti1Header) error {
	switch {
	case h.SizeofHdr != niftiHeaderSize:
		return fmt.Errorf("%w: sizeof_hdr %d", ErrInvalidHeader, h.SizeofHdr)
	case string(h.Magic[:3]) != "n+1":
		return fmt.Errorf("%w: magic %q is not single-file NIfTI-1", ErrInvalidHeader, string(h.Magic[:3]))
	case h.Dim[0] < 1 || h.Dim[0] > 7:
		return fmt.Errorf("%w: dim[0] %d", ErrInvalidHeader, h.Dim[0])
	case h.VoxOffset < niftiHeaderSize:
		return fmt.Errorf("%w: vox_offset %g", ErrInvalidHeader, h.VoxOffset)
	}
	for i := 1; i <= int(h.Dim[0]); i++ {
		if h.Dim[i] < 1 {
			return fmt.Errorf("%w: dim[%d] %d", ErrInvalidHeader, i, h.Dim[i])
		}
	}
	return nil
}

type voxelType struct {
	bitpix int16
	// decode maps the reader's width-based float32 back to the stored value.
	decode func(float32) float64
}

func asFloat(v float32) float64 {
	return float64(v)
}

var voxelTypes = map[int16]voxelType{
	2:   {bitpix: 8, decode: asFloat},
	4:   {bitpix: 16, decode: func(v float32) float64 { return float64(int16(uint16(v))) }},
	8:   {bitpix: 32, decode: func(v float32) float64 { return float64(int32(math.Float32bits(v))) }},
	16:  {bitpix: 32, decode: asFloat},
	64:  {bitpix: 64, decode: asFloat},
	256: {bitpix: 8, decode: func(v float32) float64 { return float64(int8(uint8(v))) }},
	512: {bitpix: 16, decode: asFloat},
	768: {bitpix: 32, decode: func(v float32) float64 { return float64(math.Float32bits(v)) }},
}

// voxelDecoder applies the datatype reinterpretation and scl_slope/scl_inter.
func voxelDecoder(h nifti.Nifti1Header) (func(float32) float64, error) {
	vt, ok := voxelTypes[h.Datatype]
	if !ok {
		return nil, fmt.Errorf("%w: code %d", ErrUnsupportedDatatype, h.Datatype)
	}
	if h.Bitpix != vt.bitpix {
		return nil, fmt.Errorf("%w: bitpix %d for datatype %d", ErrInvalidHeader, h.Bitpix, h.Datatype)
	}
	slope, inter := float64(h.SclSlope), float64(h.SclInter)
	if slope == 0 || math.IsNaN(slope) || (slope == 1 && inter == 0) {
		return vt.decode, nil
	}
	return func(v float32) float64 {
		return vt.decode(v)*slope + inter
	}, nil
}

// volumeDims treats empty axes as length 1.
func volumeDims(dims [4]int) [4]int {
	out := [4]int{1, 1, 1, 1}
	for i, d := range dims {
		if d > 0 {
			out[i] = d
		}
	}
	return out
}

func collectLabels(dims [4]int, at func(x, y, z, t int) float64) Labels {
	seen := make(map[float64]struct{})
	for t := 0; t < dims[3]; t++ {
		for z := 0; z < dims[2]; z++ {
			for y := 0; y < dims[1]; y++ {
				for x := 0; x < dims[0]; x++ {
					v := at(x, y, z, t)
					if v == 0 || math.IsNaN(v) {
						continue
					}
					seen[v] = struct{}{}
				}
			}
		}
	}
	out := make(Labels, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

// The nifti reader panics on unreadable input; these wrappers turn that into
// errors.

func recoverInto(err *error) {
	if panicErr := recover(); panicErr != nil {
		*err = fmt.Errorf("%v", panicErr)
	}
}

func safelyReadHeader(path string) (header nifti.Nifti1Header, err error) {
	defer recoverInto(&err)

	header.LoadHeader(path)
	return header, checkHeader(header)
}

func safelyLoad(path string) (img nifti.Nifti1Image, err error) {
	defer recoverInto(&err)

	img.LoadImage(path, true)
	return
}

func safelyCollect(img *nifti.Nifti1Image, decode func(float32) float64) (labels Labels, err error) {
	defer recoverInto(&err)

	dims := volumeDims(img.GetDims())
	// GetTimeSeries counts whole volumes present in the data block.
	if volumes := len(img.GetTimeSeries(0, 0, 0)); volumes < dims[3] {
		return nil, fmt.Errorf("%w: %d of %d volumes", ErrTruncatedData, volumes, dims[3])
	}
	labels = collectLabels(dims, func(x, y, z, t int) float64 {
		return decode(img.GetAt(x, y, z, t))
	})
	return labels, nil
}
