// Package grid builds the orientation-aligned 1m^2 sample grid a building
// footprint is measured on.
package grid

import (
	"math"

	"github.com/swissgeo/buildingattrs/internal/geom"
)

// CellArea is the area, in square metres, represented by each grid point.
const CellArea = 1.0

// Sample aligns the grid to the footprint's minimum-area bounding
// rectangle: rotate the polygon by -theta about its centroid, enumerate 1m
// spaced candidate cell centres within the rotated bounds, keep those the
// rotated polygon contains or touches, then rotate the kept points back.
// Returns nil if the footprint is degenerate (fewer than 3 vertices).
func Sample(footprint geom.Ring) []geom.Point {
	if len(footprint) < 3 {
		return nil
	}

	rect, ok := geom.MinimumAreaRect([]geom.Point(footprint))
	if !ok {
		return nil
	}

	centroid := footprint.Centroid()
	rotated := footprint.Rotate(centroid, -rect.Angle)
	bounds := rotated.Bounds()

	minX := math.Floor(bounds.MinX)
	maxX := math.Ceil(bounds.MaxX)
	minY := math.Floor(bounds.MinY)
	maxY := math.Ceil(bounds.MaxY)

	var kept []geom.Point
	for j := 0; minY+0.5+float64(j) < maxY; j++ {
		y := minY + 0.5 + float64(j)
		for i := 0; minX+0.5+float64(i) < maxX; i++ {
			x := minX + 0.5 + float64(i)
			p := geom.Point{X: x, Y: y}
			if rotated.ContainsPoint(p) {
				kept = append(kept, p)
			}
		}
	}

	out := make([]geom.Point, len(kept))
	for i, p := range kept {
		out[i] = geom.Ring{p}.Rotate(centroid, rect.Angle)[0]
	}
	return out
}
