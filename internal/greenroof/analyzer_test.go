package greenroof

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/swissgeo/buildingattrs/internal/geom"
)

// writeFourBandTiff writes a minimal uncompressed 4-band uint8 GeoTIFF
// fixture, covering the given origin/size, with every pixel's bands set by
// bandsAt(row, col).
func writeFourBandTiff(t *testing.T, path string, size int, pixelSize, originX, originY float64, bandsAt func(row, col int) [4]byte) {
	t.Helper()

	const (
		tagImageWidth      = 256
		tagImageLength     = 257
		tagBitsPerSample   = 258
		tagCompression     = 259
		tagSamplesPerPixel = 277
		tagRowsPerStrip    = 278
		tagStripByteCounts = 279
		tagStripOffsets    = 273
		tagSampleFormat    = 339
		tagPixelScale      = 33550
		tagTiepoint        = 33922
		dtShort            = 3
		dtLong             = 4
		dtDouble           = 12
	)

	pixelData := make([]byte, 0, size*size*4)
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			b := bandsAt(row, col)
			pixelData = append(pixelData, b[0], b[1], b[2], b[3])
		}
	}

	le := littleEndian{}
	pixelScale := le.appendFloat64(nil, pixelSize)
	pixelScale = le.appendFloat64(pixelScale, pixelSize)
	pixelScale = le.appendFloat64(pixelScale, 0)

	tiepoint := le.appendFloat64(nil, 0)
	tiepoint = le.appendFloat64(tiepoint, 0)
	tiepoint = le.appendFloat64(tiepoint, 0)
	tiepoint = le.appendFloat64(tiepoint, originX)
	tiepoint = le.appendFloat64(tiepoint, originY)
	tiepoint = le.appendFloat64(tiepoint, 0)

	// BitsPerSample needs 4 SHORT values; stored externally since count > 2.
	bits := le.appendUint16(nil, 8)
	bits = le.appendUint16(bits, 8)
	bits = le.appendUint16(bits, 8)
	bits = le.appendUint16(bits, 8)

	sampleFormat := le.appendUint16(nil, 1)
	sampleFormat = le.appendUint16(sampleFormat, 1)
	sampleFormat = le.appendUint16(sampleFormat, 1)
	sampleFormat = le.appendUint16(sampleFormat, 1)

	type entry struct {
		tag, dtype uint16
		count      uint32
		value      uint32
		raw        []byte
	}
	entries := []entry{
		{tag: tagImageWidth, dtype: dtLong, count: 1, value: uint32(size)},
		{tag: tagImageLength, dtype: dtLong, count: 1, value: uint32(size)},
		{tag: tagBitsPerSample, dtype: dtShort, count: 4, raw: bits},
		{tag: tagCompression, dtype: dtShort, count: 1, value: 1},
		{tag: tagSamplesPerPixel, dtype: dtShort, count: 1, value: 4},
		{tag: tagRowsPerStrip, dtype: dtLong, count: 1, value: uint32(size)},
		{tag: tagSampleFormat, dtype: dtShort, count: 4, raw: sampleFormat},
		{tag: tagPixelScale, dtype: dtDouble, count: 3, raw: pixelScale},
		{tag: tagTiepoint, dtype: dtDouble, count: 6, raw: tiepoint},
		{tag: tagStripByteCounts, dtype: dtLong, count: 1, value: uint32(len(pixelData))},
		{tag: tagStripOffsets, dtype: dtLong, count: 1},
	}

	const headerSize = 8
	const entrySize = 12
	ifdOffset := headerSize
	ifdSize := 2 + len(entries)*entrySize + 4
	externalOffset := ifdOffset + ifdSize

	var external []byte
	offsets := make(map[int]int)
	for i, e := range entries {
		if e.raw != nil {
			offsets[i] = externalOffset + len(external)
			external = append(external, e.raw...)
		}
	}
	stripOffset := externalOffset + len(external)

	var buf []byte
	buf = append(buf, 'I', 'I')
	buf = le.appendUint16(buf, 42)
	buf = le.appendUint32(buf, uint32(ifdOffset))

	buf = le.appendUint16(buf, uint16(len(entries)))
	for i, e := range entries {
		buf = le.appendUint16(buf, e.tag)
		buf = le.appendUint16(buf, e.dtype)
		buf = le.appendUint32(buf, e.count)
		var val uint32
		switch {
		case e.tag == tagStripOffsets:
			val = uint32(stripOffset)
		case e.raw != nil:
			val = uint32(offsets[i])
		default:
			val = e.value
		}
		if e.dtype == dtShort && e.raw == nil {
			buf = le.appendUint16(buf, uint16(val))
			buf = le.appendUint16(buf, 0)
		} else {
			buf = le.appendUint32(buf, val)
		}
	}
	buf = le.appendUint32(buf, 0)

	buf = append(buf, external...)
	buf = append(buf, pixelData...)

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("writing fixture tiff: %v", err)
	}
}

type littleEndian struct{}

func (littleEndian) appendUint16(b []byte, v uint16) []byte {
	return append(b, byte(v), byte(v>>8))
}

func (littleEndian) appendUint32(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (littleEndian) appendFloat64(b []byte, v float64) []byte {
	bits := math.Float64bits(v)
	for i := 0; i < 8; i++ {
		b = append(b, byte(bits>>(8*i)))
	}
	return b
}

func TestAnalyze_VegetatedRoof(t *testing.T) {
	dir := t.TempDir()
	// Vegetation signature: NIR high, Red low -> NDVI well above 0.2.
	writeFourBandTiff(t, filepath.Join(dir, "tile.tif"), 20, 1.0, 0, 20,
		func(row, col int) [4]byte { return [4]byte{20, 0, 0, 200} })

	idx, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer idx.Close()
	if idx.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", idx.Len())
	}

	footprint := geom.Ring{{X: 2, Y: 2}, {X: 10, Y: 2}, {X: 10, Y: 10}, {X: 2, Y: 10}}
	res := Analyze(idx, footprint)

	if res.Status != StatusAnalyzed {
		t.Fatalf("Status = %q, want analyzed", res.Status)
	}
	if res.GreenPercentage < 90 {
		t.Errorf("GreenPercentage = %v, want >= 90", res.GreenPercentage)
	}
	if res.NDVIMean <= NDVIThreshold {
		t.Errorf("NDVIMean = %v, want > %v", res.NDVIMean, NDVIThreshold)
	}
}

func TestAnalyze_NoCoverage(t *testing.T) {
	dir := t.TempDir()
	writeFourBandTiff(t, filepath.Join(dir, "tile.tif"), 20, 1.0, 1000, 1020,
		func(row, col int) [4]byte { return [4]byte{10, 0, 0, 10} })

	idx, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer idx.Close()

	footprint := geom.Ring{{X: 2, Y: 2}, {X: 10, Y: 2}, {X: 10, Y: 10}, {X: 2, Y: 10}}
	res := Analyze(idx, footprint)
	if res.Status != StatusNoCoverage {
		t.Errorf("Status = %q, want no_coverage", res.Status)
	}
}
