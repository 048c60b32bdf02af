package roof

import (
	"math"
	"testing"

	"github.com/swissgeo/buildingattrs/internal/geom"
	"github.com/swissgeo/buildingattrs/internal/mesh"
)

// gableMesh builds a simple gable-roof building: a rectangular footprint
// with a ridge running along y at x=5, roof pitch of 30 degrees, vertical
// gable-end triangles at y=0 and y=6, and a flat footprint base.
func gableMesh(t *testing.T) mesh.Mesh {
	t.Helper()
	h := 5 * math.Tan(30*math.Pi/180)
	v := []geom.Point3{
		{X: 0, Y: 0, Z: 0},  // 0
		{X: 10, Y: 0, Z: 0}, // 1
		{X: 10, Y: 6, Z: 0}, // 2
		{X: 0, Y: 6, Z: 0},  // 3
		{X: 5, Y: 0, Z: h},  // 4
		{X: 5, Y: 6, Z: h},  // 5
	}
	faces := []mesh.Face{
		{0, 4, 5}, {0, 5, 3}, // west slope, azimuth 270
		{1, 5, 4}, {1, 2, 5}, // east slope, azimuth 90
		{0, 1, 4},            // gable end y=0 (vertical)
		{3, 5, 2},            // gable end y=6 (vertical)
		{0, 1, 2}, {0, 2, 3}, // footprint base
	}
	return mesh.Mesh{Vertices: v, Faces: faces}
}

func TestAnalyze_GableRoof(t *testing.T) {
	res := Analyze(gableMesh(t))

	if res.Shape != ShapeGable {
		t.Fatalf("Shape = %q, want gable", res.Shape)
	}
	if math.Abs(res.Confidence-0.85) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.85", res.Confidence)
	}
	if math.Abs(res.PrimarySlope-30) > 0.5 {
		t.Errorf("PrimarySlope = %v, want ~30", res.PrimarySlope)
	}
	if !res.HasRidgeOrientation {
		t.Fatal("HasRidgeOrientation = false, want true")
	}
	if res.RidgeOrientation != 0 && math.Abs(res.RidgeOrientation-180) > 1e-6 {
		t.Errorf("RidgeOrientation = %v, want 0 or 180", res.RidgeOrientation)
	}
}

// flatRoofBox builds a simple closed box with a flat top: footprint at
// z=0, flat roof at z=3, four vertical walls.
func flatRoofBox(t *testing.T) mesh.Mesh {
	t.Helper()
	v := []geom.Point3{
		{X: 0, Y: 0, Z: 0}, {X: 10, Y: 0, Z: 0}, {X: 10, Y: 10, Z: 0}, {X: 0, Y: 10, Z: 0}, // 0-3
		{X: 0, Y: 0, Z: 3}, {X: 10, Y: 0, Z: 3}, {X: 10, Y: 10, Z: 3}, {X: 0, Y: 10, Z: 3}, // 4-7
	}
	faces := []mesh.Face{
		{0, 1, 2}, {0, 2, 3}, // bottom
		{4, 5, 6}, {4, 6, 7}, // top
		{0, 1, 5}, {0, 5, 4}, // front wall
		{1, 2, 6}, {1, 6, 5}, // right wall
		{2, 3, 7}, {2, 7, 6}, // back wall
		{3, 0, 4}, {3, 4, 7}, // left wall
	}
	return mesh.Mesh{Vertices: v, Faces: faces}
}

func TestAnalyze_FlatRoof(t *testing.T) {
	res := Analyze(flatRoofBox(t))

	if res.Shape != ShapeFlat {
		t.Fatalf("Shape = %q, want flat", res.Shape)
	}
	if math.Abs(res.Confidence-1) > 1e-9 {
		t.Errorf("Confidence = %v, want 1", res.Confidence)
	}
	if math.Abs(res.PrimarySlope) > 1e-9 {
		t.Errorf("PrimarySlope = %v, want 0", res.PrimarySlope)
	}
	if math.Abs(res.FootprintAreaM2-100) > 1e-6 {
		t.Errorf("FootprintAreaM2 = %v, want 100", res.FootprintAreaM2)
	}
	if math.Abs(res.FlatRoofAreaM2-100) > 1e-6 {
		t.Errorf("FlatRoofAreaM2 = %v, want 100", res.FlatRoofAreaM2)
	}
	if math.Abs(res.BuildingHeightM-3) > 1e-9 {
		t.Errorf("BuildingHeightM = %v, want 3", res.BuildingHeightM)
	}
}

func TestAnalyze_EmptyMesh_Unknown(t *testing.T) {
	res := Analyze(mesh.Mesh{})
	if res.Shape != ShapeUnknown {
		t.Errorf("Shape = %q, want unknown", res.Shape)
	}
}
