// Package niftitest writes small single-file NIfTI-1 masks for tests.
package niftitest

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/henghuang/nifti"
)

// Datatype codes from the NIfTI-1 header.
const (
	DTUint8   int16 = 2
	DTInt16   int16 = 4
	DTInt32   int16 = 8
	DTFloat32 int16 = 16
	DTInt64   int16 = 1024
)

// voxOffset leaves room for the 4-byte extension flag after the header.
const voxOffset = 352

// Header returns a 3D header for a dims[0] x dims[1] x dims[2] volume.
func Header(datatype, bitpix int16, dims [3]int16) nifti.Nifti1Header {
	return nifti.Nifti1Header{
		SizeofHdr: 348,
		Dim:       [8]int16{3, dims[0], dims[1], dims[2], 1, 1, 1, 1},
		Datatype:  datatype,
		Bitpix:    bitpix,
		Pixdim:    [8]float32{1, 1, 1, 1, 1, 1, 1, 1},
		VoxOffset: voxOffset,
		SclSlope:  1,
		Magic:     [4]byte{'n', '+', '1', 0},
	}
}

// Uint8 encodes voxel values as DT_UINT8.
func Uint8(values ...uint8) []byte {
	return append([]byte(nil), values...)
}

// Int32 encodes voxel values as little-endian DT_INT32.
func Int32(values ...int32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], uint32(v))
	}
	return out
}

// Float32 encodes voxel values as little-endian DT_FLOAT32.
func Float32(values ...float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

// Write stores header and voxels at path, gzipped when path ends in .gz.
func Write(t *testing.T, path string, header nifti.Nifti1Header, voxels []byte) {
	t.Helper()
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		t.Fatalf("encode nifti header: %v", err)
	}
	buf.Write(make([]byte, int(header.VoxOffset)-buf.Len()))
	buf.Write(voxels)

	data := buf.Bytes()
	if strings.HasSuffix(path, ".gz") {
		var gz bytes.Buffer
		zw := gzip.NewWriter(&gz)
		if _, err := zw.Write(data); err != nil {
			t.Fatalf("gzip nifti: %v", err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("gzip nifti: %v", err)
		}
		data = gz.Bytes()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write nifti %s: %v", path, err)
	}
}

// WriteMask writes a 2x2x2 DT_UINT8 volume.
func WriteMask(t *testing.T, path string, values ...uint8) {
	t.Helper()
	if len(values) != 8 {
		t.Fatalf("mask needs 8 voxels, got %d", len(values))
	}
	Write(t, path, Header(DTUint8, 8, [3]int16{2, 2, 2}), Uint8(values...))
}
