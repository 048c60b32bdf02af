package gdb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/swissgeo/buildingattrs/internal/geom"
)

// Shapefile-derived part type codes used by FileGDB's MultiPatch geometry
// encoding (ESRI Shapefile Technical Description, MultiPatch section).
const (
	partTriangleStrip = 0
	partTriangleFan   = 1
	partOuterRing     = 2
	partInnerRing     = 3
	partFirstRing     = 4
	partRing          = 5
)

// shapeTypeMultiPatch is the FileGDB geometry-type byte for a MultiPatch Z
// geometry field, the only geometry this package decodes.
const shapeTypeMultiPatch = 31

// parseMultiPatch decodes a FileGDB geometry blob holding an uncompressed
// MultiPatch Z shape into a slice of closed 3D rings, one per outer/inner
// ring or triangle-fan/strip part. Triangle strip and fan parts are each
// returned as a single ring; callers triangulate them (internal/mesh treats
// every part uniformly as a polygon ring to fan-triangulate).
func parseMultiPatch(blob []byte) ([][]geom.Point3, error) {
	r := bytes.NewReader(blob)

	shapeType, err := readVarUint(r)
	if err != nil {
		return nil, fmt.Errorf("reading shape type: %w", err)
	}
	if shapeType != shapeTypeMultiPatch {
		return nil, fmt.Errorf("unsupported geometry shape type %d, want MultiPatch (%d)", shapeType, shapeTypeMultiPatch)
	}

	// Bounding box: xmin, ymin, xmax, ymax, zmin, zmax (6 float64s).
	if _, err := readFixed(r, 6*8); err != nil {
		return nil, fmt.Errorf("reading bounding box: %w", err)
	}

	numParts, err := readVarUint(r)
	if err != nil {
		return nil, fmt.Errorf("reading part count: %w", err)
	}
	numPoints, err := readVarUint(r)
	if err != nil {
		return nil, fmt.Errorf("reading point count: %w", err)
	}

	partStarts := make([]int, numParts)
	for i := range partStarts {
		v, err := readVarUint(r)
		if err != nil {
			return nil, fmt.Errorf("reading part start %d: %w", i, err)
		}
		partStarts[i] = int(v)
	}

	partTypes := make([]byte, numParts)
	for i := range partTypes {
		b, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("reading part type %d: %w", i, err)
		}
		partTypes[i] = b
	}

	xy := make([]geom.Point, numPoints)
	for i := range xy {
		x, err := readFloat64(r)
		if err != nil {
			return nil, fmt.Errorf("reading point %d x: %w", i, err)
		}
		y, err := readFloat64(r)
		if err != nil {
			return nil, fmt.Errorf("reading point %d y: %w", i, err)
		}
		xy[i] = geom.Point{X: x, Y: y}
	}

	z := make([]float64, numPoints)
	for i := range z {
		v, err := readFloat64(r)
		if err != nil {
			return nil, fmt.Errorf("reading point %d z: %w", i, err)
		}
		z[i] = v
	}

	var rings [][]geom.Point3
	for p := 0; p < int(numParts); p++ {
		start := partStarts[p]
		end := int(numPoints)
		if p+1 < int(numParts) {
			end = partStarts[p+1]
		}
		if start < 0 || end > int(numPoints) || start > end {
			return nil, fmt.Errorf("part %d has invalid point range [%d,%d)", p, start, end)
		}

		switch partTypes[p] {
		case partOuterRing, partInnerRing, partFirstRing, partRing, partTriangleFan, partTriangleStrip:
			ring := make([]geom.Point3, end-start)
			for i := start; i < end; i++ {
				ring[i-start] = geom.Point3{X: xy[i].X, Y: xy[i].Y, Z: z[i]}
			}
			rings = append(rings, ring)
		default:
			return nil, fmt.Errorf("part %d has unsupported part type %d", p, partTypes[p])
		}
	}

	return rings, nil
}

func readFloat64(r *bytes.Reader) (float64, error) {
	buf, err := readFixed(r, 8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf)), nil
}
