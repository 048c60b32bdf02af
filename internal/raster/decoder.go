package raster

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/swissgeo/buildingattrs/internal/geom"
)

// Decoder provides pixel- and point-level access to a single-IFD GeoTIFF:
// either a single-band float32 elevation tile (swissALTI3D/swissSURFACE3D)
// or a multi-band uint8 imagery tile (SWISSIMAGE-RS). The file is
// memory-mapped and decoded once into a flat band-interleaved float64 buffer at
// Open time; these rasters are small single-resolution tiles, not tiled
// pyramids, so eager decode keeps the sampling path simple and branch-free.
type Decoder struct {
	path   string
	data   []byte // memory-mapped source file, kept open for Close
	geo    GeoInfo
	width  int
	height int
	bands  int

	// pixels holds width*height*bands float64 samples, band-interleaved
	// per pixel (pixel-major, then band).
	pixels []float64
}

// Open memory-maps path and decodes its first IFD.
func Open(path string) (*Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.Size() == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	data, err := mmapFile(f.Fd(), int(fi.Size()))
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	ifds, bo, err := parseTIFF(bytes.NewReader(data))
	if err != nil {
		munmapFile(data)
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(ifds) == 0 {
		munmapFile(data)
		return nil, fmt.Errorf("%s: no image directories found", path)
	}

	ifd := &ifds[0]
	switch ifd.Compression {
	case 1, 5, 8, 32946:
		// None, LZW, Adobe Deflate, Deflate.
	default:
		munmapFile(data)
		return nil, fmt.Errorf("%s: unsupported TIFF compression %d", path, ifd.Compression)
	}
	if ifd.PlanarConfig != 1 {
		munmapFile(data)
		return nil, fmt.Errorf("%s: planar (non-chunky) band layout not supported", path)
	}

	pixels, err := decodeBands(data, bo, ifd)
	if err != nil {
		munmapFile(data)
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return &Decoder{
		path:   path,
		data:   data,
		geo:    parseGeoInfo(ifd),
		width:  int(ifd.Width),
		height: int(ifd.Height),
		bands:  int(ifd.SamplesPerPixel),
		pixels: pixels,
	}, nil
}

// Close releases the memory mapping.
func (d *Decoder) Close() error {
	if d.data != nil {
		err := munmapFile(d.data)
		d.data = nil
		return err
	}
	return nil
}

// Path returns the source file path.
func (d *Decoder) Path() string { return d.path }

// EPSG returns the detected EPSG code, or 0 if none was found.
func (d *Decoder) EPSG() int { return d.geo.EPSG }

// Bands returns the number of samples per pixel.
func (d *Decoder) Bands() int { return d.bands }

// PixelSize returns the pixel width and height in CRS units.
func (d *Decoder) PixelSize() (x, y float64) { return d.geo.PixelSizeX, d.geo.PixelSizeY }

// NoData returns the declared nodata value, if any.
func (d *Decoder) NoData() (float64, bool) { return d.geo.NoData, d.geo.HasNoData }

// Bounds returns the raster's extent in its source CRS. The upper-left
// corner of pixel (0,0) is taken as the tile's declared origin (OriginX,
// OriginY); this is the pixel-corner convention swisstopo's GeoTIFF exports
// use, not pixel-center.
func (d *Decoder) Bounds() geom.Rect {
	minX := d.geo.OriginX
	maxY := d.geo.OriginY
	maxX := minX + float64(d.width)*d.geo.PixelSizeX
	minY := maxY - float64(d.height)*d.geo.PixelSizeY
	return geom.Rect{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

// SampleAt returns the single-band value at the pixel nearest to (x, y) in
// CRS coordinates, and false if the point falls outside the raster or holds
// the declared nodata value. Matches the nearest-pixel semantics the
// pipeline's Python predecessor used for point sampling.
func (d *Decoder) SampleAt(x, y float64) (float64, bool) {
	v, ok := d.bandAt(x, y, 0)
	if !ok {
		return 0, false
	}
	if d.geo.HasNoData && v == d.geo.NoData {
		return 0, false
	}
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// SampleBandsAt returns every band's value at the pixel nearest to (x, y).
func (d *Decoder) SampleBandsAt(x, y float64) ([]float64, bool) {
	col, row, ok := d.pixelIndex(x, y)
	if !ok {
		return nil, false
	}
	out := make([]float64, d.bands)
	base := (row*d.width + col) * d.bands
	copy(out, d.pixels[base:base+d.bands])
	return out, true
}

func (d *Decoder) bandAt(x, y float64, band int) (float64, bool) {
	col, row, ok := d.pixelIndex(x, y)
	if !ok {
		return 0, false
	}
	return d.pixels[(row*d.width+col)*d.bands+band], true
}

func (d *Decoder) pixelIndex(x, y float64) (col, row int, ok bool) {
	b := d.Bounds()
	if x < b.MinX || x >= b.MaxX || y < b.MinY || y >= b.MaxY {
		return 0, 0, false
	}
	col = int((x - d.geo.OriginX) / d.geo.PixelSizeX)
	row = int((d.geo.OriginY - y) / d.geo.PixelSizeY)
	if col < 0 || col >= d.width || row < 0 || row >= d.height {
		return 0, 0, false
	}
	return col, row, true
}

// decodeBands decompresses every strip/tile of ifd and unpacks it into a
// pixel-major, band-minor float64 buffer.
func decodeBands(data []byte, bo binary.ByteOrder, ifd *IFD) ([]float64, error) {
	blocks, blockW, blockH, acrossBlocks, err := blockLayout(ifd)
	if err != nil {
		return nil, err
	}

	width, height, bands := int(ifd.Width), int(ifd.Height), int(ifd.SamplesPerPixel)
	bitsPerSample := uint16(8)
	if len(ifd.BitsPerSample) > 0 {
		bitsPerSample = ifd.BitsPerSample[0]
	}
	sampleFormat := uint16(sampleFormatUint)
	if len(ifd.SampleFormat) > 0 {
		sampleFormat = ifd.SampleFormat[0]
	}
	bytesPerSample := int(bitsPerSample) / 8
	if bytesPerSample == 0 {
		return nil, fmt.Errorf("unsupported BitsPerSample %d", bitsPerSample)
	}

	out := make([]float64, width*height*bands)

	for blockIdx, blk := range blocks {
		raw, err := readBlock(data, ifd.Compression, blk.offset, blk.byteCount)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", blockIdx, err)
		}

		blockCol := blockIdx % acrossBlocks
		blockRow := blockIdx / acrossBlocks
		originX := blockCol * blockW
		originY := blockRow * blockH

		stride := blockW * bands * bytesPerSample
		for r := 0; r < blockH; r++ {
			y := originY + r
			if y >= height {
				break
			}
			rowStart := r * stride
			if rowStart >= len(raw) {
				break
			}
			for c := 0; c < blockW; c++ {
				x := originX + c
				if x >= width {
					break
				}
				for b := 0; b < bands; b++ {
					off := rowStart + (c*bands+b)*bytesPerSample
					if off+bytesPerSample > len(raw) {
						continue
					}
					out[(y*width+x)*bands+b] = decodeSample(raw[off:off+bytesPerSample], bo, sampleFormat)
				}
			}
		}
	}

	return out, nil
}

func decodeSample(b []byte, bo binary.ByteOrder, format uint16) float64 {
	switch len(b) {
	case 1:
		return float64(b[0])
	case 2:
		v := bo.Uint16(b)
		if format == sampleFormatInt {
			return float64(int16(v))
		}
		return float64(v)
	case 4:
		if format == sampleFormatFloat {
			return float64(math.Float32frombits(bo.Uint32(b)))
		}
		v := bo.Uint32(b)
		if format == sampleFormatInt {
			return float64(int32(v))
		}
		return float64(v)
	case 8:
		if format == sampleFormatFloat {
			return math.Float64frombits(bo.Uint64(b))
		}
		v := bo.Uint64(b)
		if format == sampleFormatInt {
			return float64(int64(v))
		}
		return float64(v)
	default:
		return 0
	}
}

type block struct {
	offset, byteCount uint64
}

// blockLayout normalizes a tiled or strip-organized IFD into a uniform list
// of rectangular blocks plus their shared width/height and the number of
// blocks across a row, so the decode loop doesn't need to branch on layout.
func blockLayout(ifd *IFD) (blocks []block, blockW, blockH, across int, err error) {
	if ifd.IsTiled() {
		blockW = int(ifd.TileWidth)
		blockH = int(ifd.TileHeight)
		across = (int(ifd.Width) + blockW - 1) / blockW
		if len(ifd.TileOffsets) == 0 {
			return nil, 0, 0, 0, fmt.Errorf("tiled IFD has no tile offsets")
		}
		for i := range ifd.TileOffsets {
			blocks = append(blocks, block{offset: ifd.TileOffsets[i], byteCount: ifd.TileByteCounts[i]})
		}
		return blocks, blockW, blockH, across, nil
	}

	if len(ifd.StripOffsets) == 0 {
		return nil, 0, 0, 0, fmt.Errorf("IFD has neither tile nor strip layout")
	}
	blockW = int(ifd.Width)
	blockH = int(ifd.RowsPerStrip)
	across = 1
	for i := range ifd.StripOffsets {
		blocks = append(blocks, block{offset: ifd.StripOffsets[i], byteCount: ifd.StripByteCounts[i]})
	}
	return blocks, blockW, blockH, across, nil
}

func readBlock(data []byte, compression uint16, offset, byteCount uint64) ([]byte, error) {
	if offset+byteCount > uint64(len(data)) {
		return nil, fmt.Errorf("block extends past end of file")
	}
	raw := data[offset : offset+byteCount]

	switch compression {
	case 1:
		return raw, nil
	case 5:
		return decompressTIFFLZW(raw)
	case 8, 32946:
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			// Some encoders write raw deflate without the zlib header.
			fr := flate.NewReader(bytes.NewReader(raw))
			defer fr.Close()
			return io.ReadAll(fr)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	default:
		return nil, fmt.Errorf("unsupported compression %d", compression)
	}
}
