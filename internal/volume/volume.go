// Package volume implements the per-building above-ground volume estimate:
// an orientation-aligned grid sampled against a terrain (DTM) and surface
// (DSM) raster tile index.
package volume

import (
	"math"

	"github.com/swissgeo/buildingattrs/internal/geom"
	"github.com/swissgeo/buildingattrs/internal/grid"
	"github.com/swissgeo/buildingattrs/internal/tileindex"
)

// Status reports why a volume estimate did or didn't succeed.
type Status string

const (
	StatusSuccess       Status = "success"
	StatusNoGridPoints  Status = "no_grid_points"
	StatusNoHeightData  Status = "no_height_data"
	StatusError         Status = "error"
)

// Result is the per-building output of the volume worker.
type Result struct {
	VolumeM3        float64
	BaseHeightM     float64
	MeanHeightM     float64
	MaxHeightM      float64
	GridPointsCount int
	Status          Status
	Error           string
}

// Estimate computes the above-ground volume of footprint against the given
// terrain and surface tile indices.
func Estimate(footprint geom.Ring, terrain, surface *tileindex.Index) Result {
	points := grid.Sample(footprint)
	if len(points) == 0 {
		return Result{Status: StatusNoGridPoints}
	}

	bounds := footprint.Bounds()
	tileIDs := tileindex.TilesCovering(bounds)

	terrainValues := make([]float64, len(points))
	surfaceValues := make([]float64, len(points))
	terrain.Sample(points, tileIDs, terrainValues)
	surface.Sample(points, tileIDs, surfaceValues)

	var base float64
	haveBase := false
	for i := range points {
		if math.IsNaN(terrainValues[i]) || math.IsNaN(surfaceValues[i]) {
			continue
		}
		if !haveBase || terrainValues[i] < base {
			base = terrainValues[i]
			haveBase = true
		}
	}

	if !haveBase {
		return Result{Status: StatusNoHeightData, GridPointsCount: len(points)}
	}

	var heights []float64
	for i := range points {
		if math.IsNaN(terrainValues[i]) || math.IsNaN(surfaceValues[i]) {
			continue
		}
		heights = append(heights, math.Max(0, surfaceValues[i]-base))
	}

	if len(heights) == 0 {
		return Result{Status: StatusNoHeightData, GridPointsCount: len(points)}
	}

	var sum, max float64
	for _, h := range heights {
		sum += h
		if h > max {
			max = h
		}
	}
	mean := sum / float64(len(heights))

	return Result{
		VolumeM3:        sum * grid.CellArea,
		BaseHeightM:     base,
		MeanHeightM:     mean,
		MaxHeightM:      max,
		GridPointsCount: len(heights),
		Status:          StatusSuccess,
	}
}
