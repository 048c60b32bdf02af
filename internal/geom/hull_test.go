package geom

import (
	"math"
	"testing"
)

func TestConvexHull_Square(t *testing.T) {
	// Includes an interior point and a midpoint on an edge, both of which
	// must be excluded from the hull.
	pts := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {5, 5}, {5, 0}}
	hull := ConvexHull(pts)
	if len(hull) != 4 {
		t.Fatalf("len(hull) = %d, want 4", len(hull))
	}
	if got := hull.AbsArea(); math.Abs(got-100) > 1e-9 {
		t.Errorf("hull area = %v, want 100", got)
	}
}

func TestConvexHull_Degenerate(t *testing.T) {
	if got := ConvexHull([]Point{{0, 0}, {1, 1}}); got != nil {
		t.Errorf("ConvexHull of 2 points = %v, want nil", got)
	}
}

func TestMinimumAreaRect_AxisAlignedRectangle(t *testing.T) {
	// A 10x20 rectangle already axis-aligned: minimum rect must match it
	// exactly regardless of which hull edge the caliper starts from.
	pts := []Point{{0, 0}, {10, 0}, {10, 20}, {0, 20}}
	r, ok := MinimumAreaRect(pts)
	if !ok {
		t.Fatal("MinimumAreaRect returned ok=false")
	}
	dims := []float64{r.Width, r.Height}
	if !(approxEither(dims, 10, 20)) {
		t.Errorf("dims = %v, want (10,20) in either order", dims)
	}
}

func TestMinimumAreaRect_RotatedRectangle(t *testing.T) {
	// Same 10x20 rectangle rotated 30 degrees: area must be preserved.
	base := Ring{{0, 0}, {10, 0}, {10, 20}, {0, 20}}
	rotated := base.Rotate(Point{5, 10}, math.Pi/6)
	r, ok := MinimumAreaRect(rotated)
	if !ok {
		t.Fatal("MinimumAreaRect returned ok=false")
	}
	gotArea := r.Width * r.Height
	if math.Abs(gotArea-200) > 1e-6 {
		t.Errorf("area = %v, want 200", gotArea)
	}
}

func approxEither(got []float64, a, b float64) bool {
	const tol = 1e-6
	if math.Abs(got[0]-a) < tol && math.Abs(got[1]-b) < tol {
		return true
	}
	if math.Abs(got[0]-b) < tol && math.Abs(got[1]-a) < tol {
		return true
	}
	return false
}
