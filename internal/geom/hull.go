package geom

import (
	"math"
	"sort"
)

// ConvexHull computes the convex hull of a set of points using the
// monotone chain algorithm, returned counter-clockwise with no repeated
// start/end point. Collinear points on an edge are dropped. Returns nil if
// fewer than 3 distinct points are given.
func ConvexHull(points []Point) Ring {
	pts := dedupe(points)
	n := len(pts)
	if n < 3 {
		return nil
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	cross := func(o, a, b Point) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	lower := make([]Point, 0, n)
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	upper := make([]Point, 0, n)
	for i := n - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	if len(hull) < 3 {
		return nil
	}
	return Ring(hull)
}

func dedupe(points []Point) []Point {
	const eps = 1e-9
	seen := make([]Point, 0, len(points))
	for _, p := range points {
		dup := false
		for _, s := range seen {
			if math.Abs(s.X-p.X) < eps && math.Abs(s.Y-p.Y) < eps {
				dup = true
				break
			}
		}
		if !dup {
			seen = append(seen, p)
		}
	}
	return seen
}

// MinAreaRect is the result of fitting the smallest-area rectangle around a
// ring of points: its orientation angle (radians, measured from the X axis
// to the rectangle's long axis) and its axis-aligned dimensions once
// rotated into that orientation.
type MinAreaRect struct {
	Angle         float64 // radians, CCW from +X axis
	Width, Height float64 // extents along the rotated axes
	Center        Point
}

// MinimumAreaRect finds the minimum-area bounding rectangle of a point set
// via rotating calipers over its convex hull. Returns the zero value and
// false if the hull is degenerate (fewer than 3 points).
func MinimumAreaRect(points []Point) (MinAreaRect, bool) {
	hull := ConvexHull(points)
	if len(hull) < 3 {
		return MinAreaRect{}, false
	}

	best := MinAreaRect{}
	bestArea := math.Inf(1)
	n := len(hull)

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		edge := Point{X: hull[j].X - hull[i].X, Y: hull[j].Y - hull[i].Y}
		angle := math.Atan2(edge.Y, edge.X)

		rotated := hull.Rotate(Point{}, -angle)
		b := rotated.Bounds()
		area := b.Width() * b.Height()
		if area < bestArea {
			bestArea = area
			center := Point{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
			rotatedCenter := Ring{center}.Rotate(Point{}, angle)[0]
			best = MinAreaRect{
				Angle:  angle,
				Width:  b.Width(),
				Height: b.Height(),
				Center: rotatedCenter,
			}
		}
	}
	if best.Height > best.Width {
		best.Angle += math.Pi / 2
		best.Width, best.Height = best.Height, best.Width
	}
	return best, true
}
