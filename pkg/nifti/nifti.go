// Package nifti reads and writes single-file NIfTI-1 volumes (.nii and
// .nii.gz) as models.Volume.
package nifti

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"gonum.org/v1/gonum/spatial/r3"

	"bssplot/internal/models"
)

// ErrFormat is returned for files that are not readable NIfTI-1 volumes.
var ErrFormat = errors.New("not a supported NIfTI-1 file")

const (
	headerSize = 348
	voxOffset  = 352

	// maxVoxels bounds the volume size a header may claim, 2 GiB of
	// float64 samples.
	maxVoxels = 1 << 28
)

// Datatype codes.
const (
	dtUint8   = 2
	dtInt16   = 4
	dtInt32   = 8
	dtFloat32 = 16
	dtFloat64 = 64
	dtInt8    = 256
	dtUint16  = 512
	dtUint32  = 768
	dtInt64   = 1024
	dtUint64  = 1280
)

// header is the on-disk NIfTI-1 header.
type header struct {
	SizeofHdr     int32
	DataType      [10]byte
	DBName        [18]byte
	Extents       int32
	SessionError  int16
	Regular       byte
	DimInfo       byte
	Dim           [8]int16
	IntentP1      float32
	IntentP2      float32
	IntentP3      float32
	IntentCode    int16
	Datatype      int16
	Bitpix        int16
	SliceStart    int16
	Pixdim        [8]float32
	VoxOffset     float32
	SclSlope      float32
	SclInter      float32
	SliceEnd      int16
	SliceCode     byte
	XYZTUnits     byte
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	TOffset       float32
	GLMax         int32
	GLMin         int32
	Descrip       [80]byte
	AuxFile       [24]byte
	QformCode     int16
	SformCode     int16
	QuaternB      float32
	QuaternC      float32
	QuaternD      float32
	QOffsetX      float32
	QOffsetY      float32
	QOffsetZ      float32
	SrowX         [4]float32
	SrowY         [4]float32
	SrowZ         [4]float32
	IntentName    [16]byte
	Magic         [4]byte
}

var singleFileMagic = [4]byte{'n', '+', '1', 0}

// Load reads a NIfTI-1 volume. Gzip compression is detected from the
// content, not the file name. Only the first volume of 4D data is kept and
// the scl_slope/scl_inter scaling is applied.
func Load(path string) (*models.Volume, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	vol, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return vol, nil
}

// Decode reads a NIfTI-1 volume from r, which may be gzip compressed.
// Malformed input is reported as ErrFormat, never as a panic.
func Decode(r io.Reader) (vol *models.Volume, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			vol, err = nil, fmt.Errorf("%w: %v", ErrFormat, panicErr)
		}
	}()

	remaining := available(r)
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		defer zr.Close()
		br = bufio.NewReader(zr)
		remaining = -1
	}

	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(br, raw); err != nil {
		return nil, fmt.Errorf("%w: short header: %v", ErrFormat, err)
	}
	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(raw) == headerSize:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(raw) == headerSize:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: bad header size", ErrFormat)
	}
	var h header
	if err := binary.Read(bytes.NewReader(raw), order, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if h.Magic != singleFileMagic {
		return nil, fmt.Errorf("%w: magic %q", ErrFormat, h.Magic[:3])
	}

	dims, err := volumeDims(h)
	if err != nil {
		return nil, err
	}
	size, err := voxelSize(h.Datatype)
	if err != nil {
		return nil, err
	}

	offset := int64(h.VoxOffset)
	if offset < headerSize {
		offset = voxOffset
	}
	if _, err := br.Discard(int(offset - headerSize)); err != nil {
		return nil, fmt.Errorf("%w: missing voxel data: %v", ErrFormat, err)
	}

	count := dims[0] * dims[1] * dims[2]
	if count > maxVoxels {
		return nil, fmt.Errorf("%w: %d voxels exceeds the limit of %d", ErrFormat, count, maxVoxels)
	}
	need := int64(count * size)
	if remaining >= 0 && remaining-offset < need {
		return nil, fmt.Errorf("%w: header claims %d bytes of voxel data, %d present", ErrFormat, need, max(remaining-offset, 0))
	}

	// Read through a limit so a stream shorter than its header fails
	// before the full buffer is allocated.
	buf, err := io.ReadAll(io.LimitReader(br, need))
	if err != nil {
		return nil, fmt.Errorf("%w: voxel data: %v", ErrFormat, err)
	}
	if int64(len(buf)) < need {
		return nil, fmt.Errorf("%w: truncated voxel data: %d of %d bytes", ErrFormat, len(buf), need)
	}

	vol = models.NewVolume(dims, affineFromHeader(h))
	decodeVoxels(vol.Data, buf, h.Datatype, order)

	slope, inter := float64(h.SclSlope), float64(h.SclInter)
	if slope != 0 && !math.IsNaN(slope) && !math.IsInf(slope, 0) {
		for i, v := range vol.Data {
			vol.Data[i] = v*slope + inter
		}
	}
	return vol, nil
}

// available returns the number of unread bytes in r, or -1 when r does not
// know its size.
func available(r io.Reader) int64 {
	switch r := r.(type) {
	case interface{ Len() int }:
		return int64(r.Len())
	case *os.File:
		info, err := r.Stat()
		if err != nil || !info.Mode().IsRegular() {
			return -1
		}
		pos, err := r.Seek(0, io.SeekCurrent)
		if err != nil {
			return -1
		}
		return info.Size() - pos
	}
	return -1
}

func volumeDims(h header) ([3]int, error) {
	ndim := int(h.Dim[0])
	if ndim < 1 || ndim > 7 {
		return [3]int{}, fmt.Errorf("%w: %d dimensions", ErrFormat, ndim)
	}
	dims := [3]int{1, 1, 1}
	for axis := 0; axis < 3 && axis < ndim; axis++ {
		dims[axis] = int(h.Dim[axis+1])
		if dims[axis] <= 0 {
			return [3]int{}, fmt.Errorf("%w: dimension %d is %d", ErrFormat, axis, dims[axis])
		}
	}
	return dims, nil
}

func voxelSize(datatype int16) (int, error) {
	switch datatype {
	case dtUint8, dtInt8:
		return 1, nil
	case dtInt16, dtUint16:
		return 2, nil
	case dtInt32, dtUint32, dtFloat32:
		return 4, nil
	case dtFloat64, dtInt64, dtUint64:
		return 8, nil
	}
	return 0, fmt.Errorf("%w: datatype %d", ErrFormat, datatype)
}

func decodeVoxels(dst []float64, buf []byte, datatype int16, order binary.ByteOrder) {
	for i := range dst {
		switch datatype {
		case dtUint8:
			dst[i] = float64(buf[i])
		case dtInt8:
			dst[i] = float64(int8(buf[i]))
		case dtInt16:
			dst[i] = float64(int16(order.Uint16(buf[2*i:])))
		case dtUint16:
			dst[i] = float64(order.Uint16(buf[2*i:]))
		case dtInt32:
			dst[i] = float64(int32(order.Uint32(buf[4*i:])))
		case dtUint32:
			dst[i] = float64(order.Uint32(buf[4*i:]))
		case dtFloat32:
			dst[i] = float64(math.Float32frombits(order.Uint32(buf[4*i:])))
		case dtFloat64:
			dst[i] = math.Float64frombits(order.Uint64(buf[8*i:]))
		case dtInt64:
			dst[i] = float64(int64(order.Uint64(buf[8*i:])))
		case dtUint64:
			dst[i] = float64(order.Uint64(buf[8*i:]))
		}
	}
}

// affineFromHeader prefers the sform, then the qform, then plain voxel
// sizes.
func affineFromHeader(h header) models.Affine {
	if h.SformCode > 0 {
		var v [16]float64
		for c := 0; c < 4; c++ {
			v[c] = float64(h.SrowX[c])
			v[4+c] = float64(h.SrowY[c])
			v[8+c] = float64(h.SrowZ[c])
		}
		v[15] = 1
		return models.NewAffine(v)
	}

	dx, dy, dz := spacing(h.Pixdim[1]), spacing(h.Pixdim[2]), spacing(h.Pixdim[3])
	if h.QformCode <= 0 {
		return models.DiagonalAffine(dx, dy, dz, 0, 0, 0)
	}

	b, c, d := float64(h.QuaternB), float64(h.QuaternC), float64(h.QuaternD)
	a := 1 - (b*b + c*c + d*d)
	if a < 1e-7 {
		// 180 degree rotation: renormalise b, c, d.
		n := 1 / math.Sqrt(b*b+c*c+d*d)
		b, c, d, a = b*n, c*n, d*n, 0
	} else {
		a = math.Sqrt(a)
	}
	qfac := 1.0
	if h.Pixdim[0] < 0 {
		qfac = -1
	}
	dz *= qfac

	return models.NewAffine([16]float64{
		(a*a + b*b - c*c - d*d) * dx, 2 * (b*c - a*d) * dy, 2 * (b*d + a*c) * dz, float64(h.QOffsetX),
		2 * (b*c + a*d) * dx, (a*a + c*c - b*b - d*d) * dy, 2 * (c*d - a*b) * dz, float64(h.QOffsetY),
		2 * (b*d - a*c) * dx, 2 * (c*d + a*b) * dy, (a*a + d*d - b*b - c*c) * dz, float64(h.QOffsetZ),
		0, 0, 0, 1,
	})
}

func spacing(v float32) float64 {
	if v <= 0 || math.IsNaN(float64(v)) {
		return 1
	}
	return float64(v)
}

// Write stores vol as a little-endian float32 NIfTI-1 file with its affine
// in the sform. A path ending in .gz is gzip compressed.
func Write(path string, vol *models.Volume) error {
	if err := vol.Validate(); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var w io.Writer = file
	var zw *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		zw = gzip.NewWriter(file)
		w = zw
	}
	bw := bufio.NewWriter(w)

	if err := Encode(bw, vol); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return err
		}
	}
	return file.Close()
}

// Encode writes vol to w as an uncompressed little-endian float32 NIfTI-1
// stream.
func Encode(w io.Writer, vol *models.Volume) error {
	for axis, d := range vol.Dims {
		if d > math.MaxInt16 {
			return fmt.Errorf("%w: axis %d has %d voxels", ErrFormat, axis, d)
		}
	}
	h := header{
		SizeofHdr: headerSize,
		Regular:   'r',
		Datatype:  dtFloat32,
		Bitpix:    32,
		VoxOffset: voxOffset,
		SclSlope:  1,
		XYZTUnits: 2, // mm
		SformCode: 1,
		Magic:     singleFileMagic,
	}
	h.Dim = [8]int16{3, int16(vol.Dims[0]), int16(vol.Dims[1]), int16(vol.Dims[2]), 1, 1, 1, 1}

	a := vol.Affine.Array()
	h.Pixdim[0] = 1
	for axis := 0; axis < 3; axis++ {
		col := r3.Vec{X: a[axis], Y: a[4+axis], Z: a[8+axis]}
		h.Pixdim[axis+1] = float32(r3.Norm(col))
	}
	for c := 0; c < 4; c++ {
		h.SrowX[c] = float32(a[c])
		h.SrowY[c] = float32(a[4+c])
		h.SrowZ[c] = float32(a[8+c])
	}

	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return err
	}
	// Empty extension block.
	if _, err := w.Write(make([]byte, voxOffset-headerSize)); err != nil {
		return err
	}
	buf := make([]byte, 4*len(vol.Data))
	for i, v := range vol.Data {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(v)))
	}
	_, err := w.Write(buf)
	return err
}
