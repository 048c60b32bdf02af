// Package mesh builds an indexed triangle mesh from a multipatch's rings via
// fan triangulation, the input to roof-face classification.
package mesh

import (
	"fmt"
	"math"

	"github.com/swissgeo/buildingattrs/internal/geom"
)

// Face is a triangle referencing three vertex indices into Mesh.Vertices.
type Face [3]int

// Mesh is an indexed triangle mesh in LV95 x/y, metres elevation z.
type Mesh struct {
	Vertices []geom.Point3
	Faces    []Face
}

// vertexKey rounds a vertex to millimetre precision for dedup comparison.
type vertexKey struct {
	x, y, z int64
}

func keyOf(p geom.Point3) vertexKey {
	const scale = 1000.0
	return vertexKey{
		x: int64(math.Round(p.X * scale)),
		y: int64(math.Round(p.Y * scale)),
		z: int64(math.Round(p.Z * scale)),
	}
}

// FromRings triangulates a multipatch's rings (each ring a closed loop of
// 3D vertices, with or without a repeated closing vertex) by fan
// triangulation: for a ring of n distinct vertices, emit faces
// (0, i, i+1) for i in [1, n-2]. Duplicate vertices (within a millimetre)
// are merged across the whole mesh as a preprocessing step. Returns an
// error if the resulting mesh has fewer than 3 vertices or 0 faces.
func FromRings(rings [][]geom.Point3) (Mesh, error) {
	index := make(map[vertexKey]int)
	var vertices []geom.Point3
	var faces []Face

	internFor := func(p geom.Point3) int {
		k := keyOf(p)
		if idx, ok := index[k]; ok {
			return idx
		}
		idx := len(vertices)
		vertices = append(vertices, p)
		index[k] = idx
		return idx
	}

	for _, ring := range rings {
		pts := dropClosingVertex(ring)
		if len(pts) < 3 {
			continue
		}
		start := make([]int, len(pts))
		for i, p := range pts {
			start[i] = internFor(p)
		}
		for i := 1; i < len(pts)-1; i++ {
			faces = append(faces, Face{start[0], start[i], start[i+1]})
		}
	}

	if len(vertices) < 3 || len(faces) == 0 {
		return Mesh{}, fmt.Errorf("mesh has %d vertices and %d faces, need at least 3 vertices and 1 face", len(vertices), len(faces))
	}

	return Mesh{Vertices: vertices, Faces: faces}, nil
}

// dropClosingVertex removes a ring's final vertex when it duplicates the
// first (within a millimetre), matching the "ring[:-1]" convention rings
// from the geodatabase are stored in.
func dropClosingVertex(ring []geom.Point3) []geom.Point3 {
	if len(ring) < 2 {
		return ring
	}
	first, last := ring[0], ring[len(ring)-1]
	if keyOf(first) == keyOf(last) {
		return ring[:len(ring)-1]
	}
	return ring
}

// FaceNormal returns the unit normal, area, and centroid of a triangle face.
// The normal follows the right-hand rule over (v1-v0) x (v2-v0).
func FaceNormal(m Mesh, f Face) (normal geom.Point3, area float64, centroid geom.Point3) {
	v0, v1, v2 := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]

	e1 := geom.Point3{X: v1.X - v0.X, Y: v1.Y - v0.Y, Z: v1.Z - v0.Z}
	e2 := geom.Point3{X: v2.X - v0.X, Y: v2.Y - v0.Y, Z: v2.Z - v0.Z}

	cross := geom.Point3{
		X: e1.Y*e2.Z - e1.Z*e2.Y,
		Y: e1.Z*e2.X - e1.X*e2.Z,
		Z: e1.X*e2.Y - e1.Y*e2.X,
	}
	length := math.Sqrt(cross.X*cross.X + cross.Y*cross.Y + cross.Z*cross.Z)
	area = length / 2

	if length > 1e-12 {
		normal = geom.Point3{X: cross.X / length, Y: cross.Y / length, Z: cross.Z / length}
	}

	centroid = geom.Point3{
		X: (v0.X + v1.X + v2.X) / 3,
		Y: (v0.Y + v1.Y + v2.Y) / 3,
		Z: (v0.Z + v1.Z + v2.Z) / 3,
	}
	return normal, area, centroid
}
