// Package raster decodes the single-IFD GeoTIFF rasters this pipeline reads:
// swissALTI3D/swissSURFACE3D elevation tiles (single-band float32) and
// SWISSIMAGE-RS multispectral imagery (4-band uint8). It intentionally does
// not implement COG overview pyramids, JPEG tile decoding, or planar
// (non-chunky) band interleaving — swisstopo delivers these products as flat,
// chunky-interleaved, single-resolution GeoTIFFs, and spec.md scopes the
// raster-file decoder itself as a thin, interface-level collaborator.
package raster

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// TIFF tag IDs.
const (
	tagImageWidth         = 256
	tagImageLength        = 257
	tagBitsPerSample      = 258
	tagCompression        = 259
	tagPhotometric        = 262
	tagStripOffsets       = 273
	tagSamplesPerPixel    = 277
	tagRowsPerStrip       = 278
	tagStripByteCounts    = 279
	tagPlanarConfig       = 284
	tagTileWidth          = 322
	tagTileLength         = 323
	tagTileOffsets        = 324
	tagTileByteCounts     = 325
	tagSampleFormat       = 339
	tagModelTiepointTag   = 33922
	tagModelPixelScaleTag = 33550
	tagGeoKeyDirectoryTag = 34735
	tagGeoDoubleParamsTag = 34736
	tagGeoAsciiParamsTag  = 34737
	tagGDALNoData         = 42113
)

// TIFF data types.
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtSByte     = 6
	dtUndef     = 7
	dtSShort    = 8
	dtSLong     = 9
	dtSRational = 10
	dtFloat     = 11
	dtDouble    = 12
	dtLong8     = 16
	dtSLong8    = 17
	dtIFD8      = 18
)

// sampleFormat values (tag 339).
const (
	sampleFormatUint  = 1
	sampleFormatInt   = 2
	sampleFormatFloat = 3
)

// IFD is a parsed TIFF Image File Directory, tiled or strip-organized.
type IFD struct {
	Width, Height   uint32
	TileWidth       uint32
	TileHeight      uint32
	RowsPerStrip    uint32
	BitsPerSample   []uint16
	SampleFormat    []uint16
	SamplesPerPixel uint16
	Compression     uint16
	PlanarConfig    uint16

	TileOffsets    []uint64
	TileByteCounts []uint64
	StripOffsets   []uint64
	StripByteCounts []uint64

	ModelTiepoint   []float64
	ModelPixelScale []float64
	GeoKeys         []uint16
	GeoDoubleParams []float64
	GeoAsciiParams  string
	NoDataText      string
}

// IsTiled reports whether the IFD uses tile (rather than strip) organization.
func (ifd *IFD) IsTiled() bool { return ifd.TileWidth > 0 && ifd.TileHeight > 0 }

type tiffEntry struct {
	Tag      uint16
	DataType uint16
	Count    uint64
	Value    []byte
}

func parseTIFF(r io.ReadSeeker) ([]IFD, binary.ByteOrder, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, nil, fmt.Errorf("reading TIFF header: %w", err)
	}

	var bo binary.ByteOrder
	switch string(header[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, nil, fmt.Errorf("invalid TIFF byte order marker %q", header[0:2])
	}

	magic := bo.Uint16(header[2:4])
	bigTIFF := magic == 43
	if magic != 42 && !bigTIFF {
		return nil, nil, fmt.Errorf("invalid TIFF magic number %d", magic)
	}

	var firstOffset uint64
	if bigTIFF {
		var rest [8]byte
		if _, err := io.ReadFull(r, rest[:]); err != nil {
			return nil, nil, fmt.Errorf("reading BigTIFF header: %w", err)
		}
		firstOffset = bo.Uint64(rest[:])
	} else {
		firstOffset = uint64(bo.Uint32(header[4:8]))
	}

	var ifds []IFD
	offset := firstOffset
	for offset != 0 {
		ifd, next, err := parseOneIFD(r, bo, offset, bigTIFF)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing IFD at offset %d: %w", offset, err)
		}
		ifds = append(ifds, ifd)
		offset = next
	}
	return ifds, bo, nil
}

func parseOneIFD(r io.ReadSeeker, bo binary.ByteOrder, offset uint64, bigTIFF bool) (IFD, uint64, error) {
	if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
		return IFD{}, 0, err
	}

	var numEntries uint64
	if bigTIFF {
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return IFD{}, 0, err
		}
		numEntries = bo.Uint64(buf[:])
	} else {
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return IFD{}, 0, err
		}
		numEntries = uint64(bo.Uint16(buf[:]))
	}

	entrySize := 12
	if bigTIFF {
		entrySize = 20
	}

	entries := make([]tiffEntry, numEntries)
	for i := range entries {
		buf := make([]byte, entrySize)
		if _, err := io.ReadFull(r, buf); err != nil {
			return IFD{}, 0, err
		}
		entries[i] = parseTiffEntry(buf, bo, bigTIFF)
	}

	var next uint64
	if bigTIFF {
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return IFD{}, 0, err
		}
		next = bo.Uint64(buf[:])
	} else {
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return IFD{}, 0, err
		}
		next = uint64(bo.Uint32(buf[:]))
	}

	for i := range entries {
		if err := resolveEntry(r, bo, &entries[i], bigTIFF); err != nil {
			return IFD{}, 0, fmt.Errorf("resolving tag %d: %w", entries[i].Tag, err)
		}
	}

	return buildIFD(entries, bo), next, nil
}

func parseTiffEntry(buf []byte, bo binary.ByteOrder, bigTIFF bool) tiffEntry {
	tag := bo.Uint16(buf[0:2])
	dt := bo.Uint16(buf[2:4])

	var count uint64
	var value []byte
	if bigTIFF {
		count = bo.Uint64(buf[4:12])
		value = append([]byte(nil), buf[12:20]...)
	} else {
		count = uint64(bo.Uint32(buf[4:8]))
		value = append([]byte(nil), buf[8:12]...)
	}
	return tiffEntry{Tag: tag, DataType: dt, Count: count, Value: value}
}

func dataTypeSize(dt uint16) int {
	switch dt {
	case dtByte, dtASCII, dtSByte, dtUndef:
		return 1
	case dtShort, dtSShort:
		return 2
	case dtLong, dtSLong, dtFloat, dtIFD8:
		return 4
	case dtRational, dtSRational, dtDouble, dtLong8, dtSLong8:
		return 8
	default:
		return 1
	}
}

func resolveEntry(r io.ReadSeeker, bo binary.ByteOrder, e *tiffEntry, bigTIFF bool) error {
	total := int(e.Count) * dataTypeSize(e.DataType)
	inline := 4
	if bigTIFF {
		inline = 8
	}
	if total <= inline {
		return nil
	}

	var off uint64
	if bigTIFF {
		off = bo.Uint64(e.Value)
	} else {
		off = uint64(bo.Uint32(e.Value))
	}
	if _, err := r.Seek(int64(off), io.SeekStart); err != nil {
		return err
	}
	data := make([]byte, total)
	if _, err := io.ReadFull(r, data); err != nil {
		return err
	}
	e.Value = data
	return nil
}

func buildIFD(entries []tiffEntry, bo binary.ByteOrder) IFD {
	ifd := IFD{SamplesPerPixel: 1, PlanarConfig: 1}
	for _, e := range entries {
		switch e.Tag {
		case tagImageWidth:
			ifd.Width = getUint32(e, bo)
		case tagImageLength:
			ifd.Height = getUint32(e, bo)
		case tagTileWidth:
			ifd.TileWidth = getUint32(e, bo)
		case tagTileLength:
			ifd.TileHeight = getUint32(e, bo)
		case tagRowsPerStrip:
			ifd.RowsPerStrip = getUint32(e, bo)
		case tagBitsPerSample:
			ifd.BitsPerSample = getUint16Slice(e, bo)
		case tagSampleFormat:
			ifd.SampleFormat = getUint16Slice(e, bo)
		case tagSamplesPerPixel:
			ifd.SamplesPerPixel = getUint16Val(e, bo)
		case tagCompression:
			ifd.Compression = getUint16Val(e, bo)
		case tagPlanarConfig:
			ifd.PlanarConfig = getUint16Val(e, bo)
		case tagTileOffsets:
			ifd.TileOffsets = getUint64Slice(e, bo)
		case tagTileByteCounts:
			ifd.TileByteCounts = getUint64Slice(e, bo)
		case tagStripOffsets:
			ifd.StripOffsets = getUint64Slice(e, bo)
		case tagStripByteCounts:
			ifd.StripByteCounts = getUint64Slice(e, bo)
		case tagModelTiepointTag:
			ifd.ModelTiepoint = getFloat64Slice(e, bo)
		case tagModelPixelScaleTag:
			ifd.ModelPixelScale = getFloat64Slice(e, bo)
		case tagGeoKeyDirectoryTag:
			ifd.GeoKeys = getUint16Slice(e, bo)
		case tagGeoDoubleParamsTag:
			ifd.GeoDoubleParams = getFloat64Slice(e, bo)
		case tagGeoAsciiParamsTag:
			ifd.GeoAsciiParams = string(e.Value[:minInt(len(e.Value), int(e.Count))])
		case tagGDALNoData:
			ifd.NoDataText = string(e.Value[:minInt(len(e.Value), int(e.Count))])
		}
	}
	if len(ifd.SampleFormat) == 0 {
		ifd.SampleFormat = []uint16{sampleFormatUint}
	}
	if ifd.RowsPerStrip == 0 {
		ifd.RowsPerStrip = ifd.Height
	}
	return ifd
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func getUint16Val(e tiffEntry, bo binary.ByteOrder) uint16 {
	switch e.DataType {
	case dtShort:
		return bo.Uint16(e.Value)
	case dtLong:
		return uint16(bo.Uint32(e.Value))
	default:
		return uint16(e.Value[0])
	}
}

func getUint32(e tiffEntry, bo binary.ByteOrder) uint32 {
	switch e.DataType {
	case dtShort:
		return uint32(bo.Uint16(e.Value))
	case dtLong:
		return bo.Uint32(e.Value)
	case dtLong8:
		return uint32(bo.Uint64(e.Value))
	default:
		return uint32(e.Value[0])
	}
}

func getUint16Slice(e tiffEntry, bo binary.ByteOrder) []uint16 {
	n := int(e.Count)
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = bo.Uint16(e.Value[i*2 : i*2+2])
	}
	return out
}

func getUint64Slice(e tiffEntry, bo binary.ByteOrder) []uint64 {
	n := int(e.Count)
	out := make([]uint64, n)
	switch e.DataType {
	case dtLong:
		for i := 0; i < n; i++ {
			out[i] = uint64(bo.Uint32(e.Value[i*4 : i*4+4]))
		}
	case dtLong8:
		for i := 0; i < n; i++ {
			out[i] = bo.Uint64(e.Value[i*8 : i*8+8])
		}
	case dtShort:
		for i := 0; i < n; i++ {
			out[i] = uint64(bo.Uint16(e.Value[i*2 : i*2+2]))
		}
	}
	return out
}

func getFloat64Slice(e tiffEntry, bo binary.ByteOrder) []float64 {
	n := int(e.Count)
	out := make([]float64, n)
	size := dataTypeSize(e.DataType)
	for i := 0; i < n; i++ {
		off := i * size
		switch e.DataType {
		case dtDouble:
			out[i] = math.Float64frombits(bo.Uint64(e.Value[off : off+8]))
		case dtFloat:
			out[i] = float64(math.Float32frombits(bo.Uint32(e.Value[off : off+4])))
		}
	}
	return out
}
