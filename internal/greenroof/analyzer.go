package greenroof

import (
	"math"

	"github.com/swissgeo/buildingattrs/internal/geom"
)

// Band indices (1-based) for the 4-band SWISSIMAGE-RS product.
const (
	BandRed = 1
	BandNIR = 4
)

// NDVIThreshold is the minimum NDVI value counted as vegetation.
const NDVIThreshold = 0.2

// Status reports why a green-roof analysis did or didn't succeed.
type Status string

const (
	StatusAnalyzed   Status = "analyzed"
	StatusNoCoverage Status = "no_coverage"
	StatusEmptyMask  Status = "empty_mask"
)

// Result is the per-building green-roof analysis output.
type Result struct {
	GreenAreaM2      float64
	GreenPercentage  float64
	NDVIMean         float64
	NDVIMax          float64
	Status           Status
}

// Analyze rasterizes footprint against the imagery tile the index resolves
// for it and computes NDVI statistics over the pixels it contains.
func Analyze(idx *Index, footprint geom.Ring) Result {
	bounds := footprint.Bounds()
	path, ok := idx.Query(bounds)
	if !ok {
		return Result{Status: StatusNoCoverage}
	}

	dec, err := idx.decoderFor(path)
	if err != nil {
		return Result{Status: StatusNoCoverage}
	}
	if dec.Bands() < BandNIR {
		return Result{Status: StatusEmptyMask}
	}

	pixelSizeX, pixelSizeY := dec.PixelSize()
	pixelArea := math.Abs(pixelSizeX * pixelSizeY)

	decBounds := dec.Bounds()
	minX := math.Max(bounds.MinX, decBounds.MinX)
	maxX := math.Min(bounds.MaxX, decBounds.MaxX)
	minY := math.Max(bounds.MinY, decBounds.MinY)
	maxY := math.Min(bounds.MaxY, decBounds.MaxY)

	var validCount, greenCount int
	var ndviSum, ndviMax float64
	haveMax := false

	for y := minY + pixelSizeY/2; y < maxY; y += pixelSizeY {
		for x := minX + pixelSizeX/2; x < maxX; x += pixelSizeX {
			p := geom.Point{X: x, Y: y}
			if !footprint.ContainsPoint(p) {
				continue
			}
			samples, ok := dec.SampleBandsAt(x, y)
			if !ok {
				continue
			}
			red := samples[BandRed-1]
			nir := samples[BandNIR-1]
			if math.IsNaN(red) || math.IsNaN(nir) {
				continue
			}
			denom := red + nir
			if denom == 0 {
				continue
			}

			ndvi := (nir - red) / denom
			validCount++
			ndviSum += ndvi
			if !haveMax || ndvi > ndviMax {
				ndviMax = ndvi
				haveMax = true
			}
			if ndvi > NDVIThreshold {
				greenCount++
			}
		}
	}

	if validCount == 0 {
		return Result{Status: StatusEmptyMask}
	}

	greenArea := float64(greenCount) * pixelArea
	totalArea := float64(validCount) * pixelArea

	return Result{
		GreenAreaM2:     greenArea,
		GreenPercentage: greenArea / totalArea * 100,
		NDVIMean:        ndviSum / float64(validCount),
		NDVIMax:         ndviMax,
		Status:          StatusAnalyzed,
	}
}
