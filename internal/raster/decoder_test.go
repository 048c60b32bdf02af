package raster

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// writeUncompressedFloat32Tiff writes a minimal, uncompressed, single-strip,
// single-band float32 little-endian GeoTIFF with an explicit pixel scale and
// tiepoint, sufficient for the decoder under test.
func writeUncompressedFloat32Tiff(t *testing.T, path string, width, height int, values []float32, originX, originY, pixelSize float64) {
	t.Helper()
	bo := binary.LittleEndian

	var pixelData bytes.Buffer
	for _, v := range values {
		var buf [4]byte
		bo.PutUint32(buf[:], math.Float32bits(v))
		pixelData.Write(buf[:])
	}

	type entry struct {
		tag, dtype uint16
		count      uint32
		value      uint32 // inline value or offset, filled below
		raw        []byte // external data, if any
	}

	pixelScale := []byte{}
	pixelScale = appendFloat64(pixelScale, bo, pixelSize)
	pixelScale = appendFloat64(pixelScale, bo, pixelSize)
	pixelScale = appendFloat64(pixelScale, bo, 0)

	tiepoint := []byte{}
	tiepoint = appendFloat64(tiepoint, bo, 0)
	tiepoint = appendFloat64(tiepoint, bo, 0)
	tiepoint = appendFloat64(tiepoint, bo, 0)
	tiepoint = appendFloat64(tiepoint, bo, originX)
	tiepoint = appendFloat64(tiepoint, bo, originY)
	tiepoint = appendFloat64(tiepoint, bo, 0)

	entries := []entry{
		{tag: tagImageWidth, dtype: dtLong, count: 1, value: uint32(width)},
		{tag: tagImageLength, dtype: dtLong, count: 1, value: uint32(height)},
		{tag: tagBitsPerSample, dtype: dtShort, count: 1, value: 32},
		{tag: tagCompression, dtype: dtShort, count: 1, value: 1},
		{tag: tagSamplesPerPixel, dtype: dtShort, count: 1, value: 1},
		{tag: tagRowsPerStrip, dtype: dtLong, count: 1, value: uint32(height)},
		{tag: tagSampleFormat, dtype: dtShort, count: 1, value: sampleFormatFloat},
		{tag: tagModelPixelScaleTag, dtype: dtDouble, count: 3, raw: pixelScale},
		{tag: tagModelTiepointTag, dtype: dtDouble, count: 6, raw: tiepoint},
		{tag: tagStripByteCounts, dtype: dtLong, count: 1, value: uint32(pixelData.Len())},
		{tag: tagStripOffsets, dtype: dtLong, count: 1}, // offset filled below
	}

	const headerSize = 8
	const entrySize = 12
	ifdOffset := headerSize
	ifdSize := 2 + len(entries)*entrySize + 4
	externalOffset := ifdOffset + ifdSize

	var external bytes.Buffer
	offsets := make(map[int]int)
	for i, e := range entries {
		if e.raw != nil {
			offsets[i] = externalOffset + external.Len()
			external.Write(e.raw)
		}
	}
	stripOffset := externalOffset + external.Len()

	var buf bytes.Buffer
	buf.WriteString("II")
	binary.Write(&buf, bo, uint16(42))
	binary.Write(&buf, bo, uint32(ifdOffset))

	binary.Write(&buf, bo, uint16(len(entries)))
	for i, e := range entries {
		binary.Write(&buf, bo, e.tag)
		binary.Write(&buf, bo, e.dtype)
		binary.Write(&buf, bo, e.count)
		var val uint32
		switch {
		case e.tag == tagStripOffsets:
			val = uint32(stripOffset)
		case e.raw != nil:
			val = uint32(offsets[i])
		default:
			val = e.value
		}
		if e.dtype == dtShort {
			binary.Write(&buf, bo, uint16(val))
			binary.Write(&buf, bo, uint16(0))
		} else {
			binary.Write(&buf, bo, val)
		}
	}
	binary.Write(&buf, bo, uint32(0)) // next IFD offset

	buf.Write(external.Bytes())
	buf.Write(pixelData.Bytes())

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing test tiff: %v", err)
	}
}

func appendFloat64(b []byte, bo binary.ByteOrder, v float64) []byte {
	var buf [8]byte
	bo.PutUint64(buf[:], math.Float64bits(v))
	return append(b, buf[:]...)
}

func TestDecoder_SampleAt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tile.tif")

	// 2x2 tile, 1m pixels, origin at (2600000, 1200002).
	values := []float32{10, 20, 30, 40}
	writeUncompressedFloat32Tiff(t, path, 2, 2, values, 2_600_000, 1_200_002, 1.0)

	dec, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer dec.Close()

	if dec.Bands() != 1 {
		t.Fatalf("Bands() = %d, want 1", dec.Bands())
	}

	cases := []struct {
		name string
		x, y float64
		want float64
		ok   bool
	}{
		{"top-left pixel", 2_600_000.5, 1_200_001.5, 10, true},
		{"top-right pixel", 2_600_001.5, 1_200_001.5, 20, true},
		{"bottom-left pixel", 2_600_000.5, 1_200_000.5, 30, true},
		{"bottom-right pixel", 2_600_001.5, 1_200_000.5, 40, true},
		{"outside bounds", 2_600_010, 1_200_010, 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := dec.SampleAt(c.x, c.y)
			if ok != c.ok {
				t.Fatalf("ok = %v, want %v", ok, c.ok)
			}
			if ok && got != c.want {
				t.Errorf("SampleAt(%v, %v) = %v, want %v", c.x, c.y, got, c.want)
			}
		})
	}
}

func TestDecoder_Bounds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tile.tif")
	writeUncompressedFloat32Tiff(t, path, 10, 10, make([]float32, 100), 2_600_000, 1_200_010, 1.0)

	dec, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer dec.Close()

	b := dec.Bounds()
	want := struct{ minX, minY, maxX, maxY float64 }{2_600_000, 1_200_000, 2_600_010, 1_200_010}
	if b.MinX != want.minX || b.MinY != want.minY || b.MaxX != want.maxX || b.MaxY != want.maxY {
		t.Errorf("Bounds() = %+v, want %+v", b, want)
	}
}
